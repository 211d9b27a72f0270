package intent

import (
	"strconv"
	"strings"

	"mailvoice/internal/domain"
)

// DefaultAnchors map a keyword to the slot filled by the word after it.
var DefaultAnchors = map[string]string{
	"from":    domain.SlotSender,
	"subject": domain.SlotSubject,
	"after":   domain.SlotAfterDate,
}

// ComposeAnchors are used for send_email, where "to" names the recipient.
var ComposeAnchors = map[string]string{
	"to":      domain.SlotRecipient,
	"subject": domain.SlotSubject,
}

var spokenNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

func AnchorsFor(in domain.Intent) map[string]string {
	if in == domain.IntentSendEmail {
		return ComposeAnchors
	}
	return DefaultAnchors
}

// ExtractSlots never fails; slots that cannot be filled are left out. An
// anchor that is the last token fills nothing.
func ExtractSlots(tokens []string, anchors map[string]string) domain.Slots {
	slots := domain.Slots{}
	anchored := false
	for anchor, slot := range anchors {
		i := indexOf(tokens, anchor)
		if i < 0 || i+1 >= len(tokens) {
			continue
		}
		slots[slot] = tokens[i+1]
		anchored = true
	}

	// Tokens spent on "last N" are kept out of the free-text search terms.
	consumed := map[int]bool{}
	for i, tok := range tokens {
		if tok != "last" && tok != "latest" {
			continue
		}
		consumed[i] = true
		count := 1
		if i+1 < len(tokens) {
			if n, ok := parseCount(tokens[i+1]); ok {
				count = n
				consumed[i+1] = true
			}
		}
		slots[domain.SlotMaxResults] = strconv.Itoa(count)
		break
	}

	if !anchored {
		if i := indexOf(tokens, "search"); i >= 0 {
			var terms []string
			for j := i + 1; j < len(tokens); j++ {
				if !consumed[j] {
					terms = append(terms, tokens[j])
				}
			}
			if len(terms) > 0 {
				slots[domain.SlotSearchTerms] = strings.Join(terms, " ")
			}
		}
	}
	return slots
}

// ExtractBody returns the original-case text after "saying" or "body".
func ExtractBody(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		w := strings.ToLower(strings.Trim(f, ",.:;!?\"'"))
		if w == "saying" || w == "body" {
			return strings.TrimSpace(strings.Join(fields[i+1:], " "))
		}
	}
	return ""
}

func parseCount(tok string) (int, bool) {
	if n, ok := spokenNumbers[tok]; ok {
		return n, true
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func indexOf(tokens []string, word string) int {
	for i, tok := range tokens {
		if tok == word {
			return i
		}
	}
	return -1
}
