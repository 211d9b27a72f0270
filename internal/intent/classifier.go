package intent

import (
	"strings"

	"mailvoice/internal/domain"
)

type keywordGroup struct {
	intent   domain.Intent
	keywords []string
}

// Groups are tested in order and the first group with a matching word wins,
// so "read and send" is a read.
var precedence = []keywordGroup{
	{domain.IntentReadEmail, []string{"read", "check"}},
	{domain.IntentSendEmail, []string{"send", "compose"}},
	{domain.IntentSearchEmail, []string{"search", "find"}},
	{domain.IntentImproveWriting, []string{"improve", "suggestion"}},
	{domain.IntentDeleteEmail, []string{"delete"}},
	{domain.IntentListUnread, []string{"unread"}},
	{domain.IntentListImportant, []string{"important"}},
}

var inflections = []string{"", "s", "es", "d", "ed", "ing"}

// Classify maps free text to an intent. It is also applied to model output
// when the generation service answers an analysis prompt.
func Classify(text string) domain.Intent {
	return ClassifyTokens(domain.Tokenize(text))
}

func ClassifyTokens(tokens []string) domain.Intent {
	for _, group := range precedence {
		for _, kw := range group.keywords {
			if containsWord(tokens, kw) {
				return group.intent
			}
		}
	}
	return domain.IntentUnknown
}

func containsWord(tokens []string, keyword string) bool {
	for _, tok := range tokens {
		if !strings.HasPrefix(tok, keyword) {
			continue
		}
		suffix := tok[len(keyword):]
		for _, inf := range inflections {
			if suffix == inf {
				return true
			}
		}
	}
	return false
}
