package speech

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Console reads typed utterances line by line and prints replies.
type Console struct {
	lines  chan lineResult
	done   chan struct{}
	once   sync.Once
	out    io.Writer
	prompt string
}

type lineResult struct {
	text string
	err  error
}

// NewConsole starts a reader goroutine on r. It exits when r reaches EOF, or
// after Close once the line it is holding has been dropped.
func NewConsole(r io.Reader, w io.Writer, prompt string) *Console {
	c := &Console{lines: make(chan lineResult), done: make(chan struct{}), out: w, prompt: prompt}
	go c.read(r)
	return c
}

func (c *Console) read(r io.Reader) {
	defer close(c.lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if !c.deliver(lineResult{text: sc.Text()}) {
			return
		}
	}
	if err := sc.Err(); err != nil {
		c.deliver(lineResult{err: err})
	}
}

func (c *Console) deliver(line lineResult) bool {
	select {
	case c.lines <- line:
		return true
	case <-c.done:
		return false
	}
}

// Close stops handing lines to Capture. A reader blocked inside r itself
// returns at its next line or EOF.
func (c *Console) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Console) Capture(ctx context.Context) (string, error) {
	select {
	case <-c.done:
		return "", ErrClosed
	default:
	}
	if c.prompt != "" {
		fmt.Fprint(c.out, c.prompt)
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.done:
		return "", ErrClosed
	case line, ok := <-c.lines:
		if !ok {
			return "", ErrClosed
		}
		return line.text, line.err
	}
}

func (c *Console) Speak(_ context.Context, text string) error {
	_, err := fmt.Fprintln(c.out, text)
	return err
}
