package intent

import "mailvoice/internal/domain"

// Analyze is the rule-based analysis used whenever the generation service
// cannot be consulted.
func Analyze(text string) domain.Analysis {
	in := Classify(text)
	confidence := domain.ConfidenceNone
	if in != domain.IntentUnknown {
		confidence = domain.ConfidenceRule
	}
	return domain.Analysis{Intent: in, Slots: SlotsFor(text, in), Confidence: confidence}
}

// SlotsFor extracts the slots relevant to in. Compose intents read "to" as the
// recipient and pick up a spoken body.
func SlotsFor(text string, in domain.Intent) domain.Slots {
	slots := ExtractSlots(domain.Tokenize(text), AnchorsFor(in))
	if in == domain.IntentSendEmail {
		if body := ExtractBody(text); body != "" {
			slots[domain.SlotBody] = body
		}
	}
	return slots
}
