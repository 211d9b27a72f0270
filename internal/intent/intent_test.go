package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailvoice/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want domain.Intent
	}{
		{"read my latest email", domain.IntentReadEmail},
		{"Check my inbox please", domain.IntentReadEmail},
		{"xyz", domain.IntentUnknown},
		{"", domain.IntentUnknown},
		{"send an email to bob", domain.IntentSendEmail},
		{"compose a message", domain.IntentSendEmail},
		{"find emails from alice", domain.IntentSearchEmail},
		{"any suggestion for this draft", domain.IntentImproveWriting},
		{"delete that email", domain.IntentDeleteEmail},
		{"show unread mail", domain.IntentListUnread},
		{"anything important today", domain.IntentListImportant},
		{"read it then send a reply", domain.IntentReadEmail},
		{"reading emails", domain.IntentReadEmail},
		{"who is the sender", domain.IntentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestExtractSlotsAnchorOrder(t *testing.T) {
	for _, text := range []string{
		"read email from alice subject budget",
		"read email subject budget from alice",
	} {
		slots := ExtractSlots(domain.Tokenize(text), DefaultAnchors)
		assert.Equal(t, domain.Slots{domain.SlotSender: "alice", domain.SlotSubject: "budget"}, slots, text)
	}
}

func TestExtractSlotsAnchorsSuppressSearchTerms(t *testing.T) {
	slots := ExtractSlots(domain.Tokenize("search from alice after 2024-01-01"), DefaultAnchors)
	require.Equal(t, domain.Slots{
		domain.SlotSender:    "alice",
		domain.SlotAfterDate: "2024-01-01",
	}, slots)
	_, ok := slots[domain.SlotSearchTerms]
	assert.False(t, ok)
}

func TestExtractSlotsSearchTerms(t *testing.T) {
	slots := ExtractSlots(domain.Tokenize("please search quarterly invoices"), DefaultAnchors)
	assert.Equal(t, "quarterly invoices", slots[domain.SlotSearchTerms])
}

func TestExtractSlotsSearchTermsSkipCount(t *testing.T) {
	tests := []struct {
		text  string
		terms string
		max   string
	}{
		{"search last 3 invoices", "invoices", "3"},
		{"search invoices latest five", "invoices", "5"},
		{"search last invoices", "invoices", "1"},
	}
	for _, tt := range tests {
		slots := ExtractSlots(domain.Tokenize(tt.text), DefaultAnchors)
		assert.Equal(t, tt.terms, slots[domain.SlotSearchTerms], tt.text)
		assert.Equal(t, tt.max, slots[domain.SlotMaxResults], tt.text)
	}
}

func TestExtractSlotsSearchOnlyCount(t *testing.T) {
	slots := ExtractSlots(domain.Tokenize("search last 2"), DefaultAnchors)
	assert.Equal(t, domain.Slots{domain.SlotMaxResults: "2"}, slots)
}

func TestExtractSlotsTrailingAnchor(t *testing.T) {
	slots := ExtractSlots(domain.Tokenize("read the email from"), DefaultAnchors)
	assert.Empty(t, slots)
}

func TestExtractSlotsMaxResults(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"read the last 3 emails", "3"},
		{"read my latest email", "1"},
		{"read the last emails", "1"},
		{"read the last", "1"},
		{"read the last five emails", "5"},
		{"read the last 0 emails", "1"},
	}
	for _, tt := range tests {
		slots := ExtractSlots(domain.Tokenize(tt.text), DefaultAnchors)
		assert.Equal(t, tt.want, slots[domain.SlotMaxResults], tt.text)
	}

	slots := ExtractSlots(domain.Tokenize("read email"), DefaultAnchors)
	_, ok := slots[domain.SlotMaxResults]
	assert.False(t, ok)
}

func TestAnalyzeCompose(t *testing.T) {
	a := Analyze("Send email to bob@example.com subject lunch saying See you at Noon.")
	assert.Equal(t, domain.IntentSendEmail, a.Intent)
	assert.Equal(t, domain.ConfidenceRule, a.Confidence)
	assert.Equal(t, "bob@example.com", a.Slots[domain.SlotRecipient])
	assert.Equal(t, "lunch", a.Slots[domain.SlotSubject])
	assert.Equal(t, "See you at Noon.", a.Slots[domain.SlotBody])
}

func TestAnalyzeUnknown(t *testing.T) {
	a := Analyze("tell me a joke")
	assert.Equal(t, domain.IntentUnknown, a.Intent)
	assert.Equal(t, domain.ConfidenceNone, a.Confidence)
}
