package fallback

import (
	"strings"

	"mailvoice/internal/domain"
)

const (
	analyzeSystem  = "You are a Gmail voice assistant. Analyze the user's command and categorize it."
	converseSystem = "You are a helpful email assistant that can help with reading, sending, and managing emails. " +
		"You should provide clear and concise responses and maintain context of the conversation."
)

func AnalyzePrompt(text string, history []domain.Exchange) string {
	var b strings.Builder
	b.WriteString(analyzeSystem)
	b.WriteString("\n\n")
	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		writeExchanges(&b, history)
	}
	b.WriteString("User command: ")
	b.WriteString(text)
	b.WriteString("\n\nAnalyze the command type and any parameters.")
	return b.String()
}

// ConversePrompt lays out the history in the Llama 2 chat format.
func ConversePrompt(input string, history []domain.Exchange) string {
	var b strings.Builder
	b.WriteString("<s>[INST] <<SYS>>")
	b.WriteString(converseSystem)
	b.WriteString("<</SYS>>\n\n")
	writeExchanges(&b, history)
	b.WriteString("User: ")
	b.WriteString(input)
	b.WriteString("\nAssistant:[/INST]")
	return b.String()
}

func ImprovePrompt(text string) string {
	return "Please improve the following text while maintaining its meaning:\n\n" + text
}

func writeExchanges(b *strings.Builder, history []domain.Exchange) {
	for _, ex := range history {
		b.WriteString("User: ")
		b.WriteString(ex.User)
		b.WriteString("\nAssistant: ")
		b.WriteString(ex.Assistant)
		b.WriteString("\n\n")
	}
}
