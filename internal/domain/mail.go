package domain

import "strings"

type MessageSummary struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
}

type Message struct {
	ID       string            `json:"id"`
	ThreadID string            `json:"thread_id"`
	Headers  map[string]string `json:"headers"`
	Snippet  string            `json:"snippet,omitempty"`
	Body     string            `json:"body,omitempty"`
	LabelIDs []string          `json:"label_ids,omitempty"`
}

func (m Message) Header(name string) string {
	if v, ok := m.Headers[name]; ok {
		return v
	}
	for k, v := range m.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func (m Message) Subject() string { return m.Header("Subject") }
func (m Message) From() string    { return m.Header("From") }
