package commands

import (
	"context"
	"strings"
	"sync"

	"mailvoice/internal/domain"
)

// Handler answers a matched command. It receives the full utterance text.
type Handler func(ctx context.Context, text string) domain.Result

type entry struct {
	phrase  string
	handler Handler
}

// Registry matches trigger phrases by substring containment. Phrases are tried
// in registration order and the first match wins.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a phrase. Registering an existing phrase replaces its handler
// and keeps its original priority.
func (r *Registry) Register(phrase string, h Handler) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" || h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].phrase == phrase {
			r.entries[i].handler = h
			return
		}
	}
	r.entries = append(r.entries, entry{phrase: phrase, handler: h})
}

// Match reports the first registered phrase contained in text.
func (r *Registry) Match(text string) (string, Handler, bool) {
	lowered := strings.ToLower(text)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if strings.Contains(lowered, e.phrase) {
			return e.phrase, e.handler, true
		}
	}
	return "", nil, false
}

// Dispatch runs the first matching handler. The bool is false when nothing
// matched.
func (r *Registry) Dispatch(ctx context.Context, text string) (domain.Result, bool) {
	_, h, ok := r.Match(text)
	if !ok {
		return domain.Result{}, false
	}
	return h(ctx, text), true
}

func (r *Registry) Phrases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.phrase)
	}
	return out
}
