package orchestrator

import (
	"context"
	"sync"
	"time"

	"mailvoice/internal/domain"
	"mailvoice/internal/mail"
)

type stubMail struct {
	mu       sync.Mutex
	messages []domain.Message
	err      error
	queries  []string
	maxes    []int
	sent     [][]byte
	trashed  []string
	modified map[string][]string
}

func (s *stubMail) List(_ context.Context, query string, maxResults int) ([]domain.MessageSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	s.maxes = append(s.maxes, maxResults)
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.MessageSummary
	for _, m := range s.messages {
		if maxResults > 0 && len(out) == maxResults {
			break
		}
		out = append(out, domain.MessageSummary{ID: m.ID, ThreadID: m.ThreadID})
	}
	return out, nil
}

func (s *stubMail) Get(_ context.Context, id string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Message{}, mail.ErrNotFound
}

func (s *stubMail) Send(_ context.Context, raw []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, raw)
	return "sent-1", nil
}

func (s *stubMail) Trash(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.trashed = append(s.trashed, id)
	return nil
}

func (s *stubMail) ModifyLabels(_ context.Context, id string, remove, _ []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.modified == nil {
		s.modified = map[string][]string{}
	}
	s.modified[id] = remove
	return nil
}

func (s *stubMail) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries) + len(s.sent) + len(s.trashed) + len(s.modified)
}

type stubFallback struct {
	mu        sync.Mutex
	analysis  *domain.Analysis
	reply     string
	err       error
	conversed []string
	histories [][]domain.Exchange
}

func (f *stubFallback) Analyze(_ context.Context, text string, _ []domain.Exchange) domain.Analysis {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.analysis != nil {
		return *f.analysis
	}
	return domain.Analysis{Intent: domain.IntentUnknown, Slots: domain.Slots{}}
}

func (f *stubFallback) Converse(_ context.Context, input string, history []domain.Exchange) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversed = append(f.conversed, input)
	f.histories = append(f.histories, history)
	return f.reply, f.err
}

type stubImprover struct {
	out string
	err error
	got string
}

func (s *stubImprover) Improve(_ context.Context, text string) (string, error) {
	s.got = text
	return s.out, s.err
}

type turnCounter struct {
	mu     sync.Mutex
	routes map[string]int
}

func (c *turnCounter) ObserveTurn(route string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.routes == nil {
		c.routes = map[string]int{}
	}
	c.routes[route]++
}
