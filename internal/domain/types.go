package domain

import (
	"strings"
	"time"
	"unicode"
)

type Intent string

const (
	IntentReadEmail      Intent = "read_email"
	IntentSendEmail      Intent = "send_email"
	IntentDeleteEmail    Intent = "delete_email"
	IntentSearchEmail    Intent = "search_email"
	IntentListUnread     Intent = "list_unread"
	IntentListImportant  Intent = "list_important"
	IntentImproveWriting Intent = "improve_writing"
	IntentUnknown        Intent = "unknown"
)

// Slot names. A key is present in Slots only when a value was found.
const (
	SlotSender      = "sender"
	SlotSubject     = "subject"
	SlotAfterDate   = "after_date"
	SlotMaxResults  = "max_results"
	SlotSearchTerms = "search_terms"
	SlotRecipient   = "recipient"
	SlotBody        = "body"
)

type Slots map[string]string

func (s Slots) Get(name string) (string, bool) {
	v, ok := s[name]
	return v, ok && v != ""
}

// Confidence scores are heuristics used for routing, not probabilities.
const (
	ConfidenceNone      = 0.0
	ConfidenceRule      = 0.7
	ConfidenceGenerated = 0.8
)

type Analysis struct {
	Intent     Intent  `json:"intent"`
	Slots      Slots   `json:"slots,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Utterance is one recognized block of speech. Tokens is the lower-cased word
// sequence with surrounding punctuation stripped.
type Utterance struct {
	Text   string
	Tokens []string
}

func NewUtterance(text string) Utterance {
	return Utterance{Text: text, Tokens: Tokenize(text)}
}

func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) && r != '@'
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

type Exchange struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	At        time.Time `json:"at"`
}

type GenerateRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// Route records which path produced a turn's response.
type Route string

const (
	RouteRegistry    Route = "registry"
	RouteMail        Route = "mail"
	RouteGeneration  Route = "generation"
	RouteUnresolved  Route = "unresolved"
	RouteRecognition Route = "recognition"
)

type TurnResult struct {
	TurnID     string  `json:"turn_id"`
	Text       string  `json:"text"`
	Response   string  `json:"response"`
	Route      Route   `json:"route"`
	Intent     Intent  `json:"intent,omitempty"`
	Confidence float64 `json:"confidence"`
	Failed     bool    `json:"failed,omitempty"`
}
