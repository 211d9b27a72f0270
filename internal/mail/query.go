package mail

import (
	"strings"

	"mailvoice/internal/domain"
)

// BuildQuery turns slots into a Gmail search query. Spoken dates like
// 2024-01-01 become 2024/01/01.
func BuildQuery(slots domain.Slots) string {
	var parts []string
	if v, ok := slots.Get(domain.SlotSender); ok {
		parts = append(parts, "from:"+v)
	}
	if v, ok := slots.Get(domain.SlotSubject); ok {
		parts = append(parts, "subject:"+v)
	}
	if v, ok := slots.Get(domain.SlotAfterDate); ok {
		parts = append(parts, "after:"+strings.ReplaceAll(v, "-", "/"))
	}
	if v, ok := slots.Get(domain.SlotSearchTerms); ok {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

// Describe renders a message the way it is read aloud.
func Describe(m domain.Message) string {
	subject := m.Subject()
	if subject == "" {
		subject = "(no subject)"
	}
	if from := m.From(); from != "" {
		return subject + " from " + from
	}
	return subject
}
