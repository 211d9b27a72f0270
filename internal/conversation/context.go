package conversation

import (
	"sync"
	"time"

	"mailvoice/internal/domain"
)

const (
	DefaultWindow = 5
	DefaultRetain = 100
)

// Context holds the exchanges of the running process. Window bounds what is
// folded into prompts; Retain bounds what is kept for display (0 keeps all).
type Context struct {
	mu        sync.Mutex
	exchanges []domain.Exchange
	window    int
	retain    int
	now       func() time.Time
}

func New(window, retain int) *Context {
	if window <= 0 {
		window = DefaultWindow
	}
	if retain < 0 {
		retain = DefaultRetain
	}
	return &Context{window: window, retain: retain, now: time.Now}
}

func (c *Context) Append(user, assistant string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges = append(c.exchanges, domain.Exchange{User: user, Assistant: assistant, At: c.now()})
	if c.retain > 0 && len(c.exchanges) > c.retain {
		c.exchanges = append([]domain.Exchange(nil), c.exchanges[len(c.exchanges)-c.retain:]...)
	}
}

// Recent returns at most Window exchanges, oldest first.
func (c *Context) Recent() []domain.Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := 0
	if len(c.exchanges) > c.window {
		start = len(c.exchanges) - c.window
	}
	return append([]domain.Exchange{}, c.exchanges[start:]...)
}

func (c *Context) All() []domain.Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Exchange{}, c.exchanges...)
}

func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.exchanges)
}

func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges = nil
}
