// Package speech connects utterance sources and sinks to the dispatcher.
package speech

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"mailvoice/internal/domain"
)

// ErrClosed is returned by an Input that will produce no more utterances.
var ErrClosed = errors.New("speech input closed")

// Input blocks until one utterance is recognized. An empty string means
// something was heard but not understood.
type Input interface {
	Capture(ctx context.Context) (string, error)
}

type Output interface {
	Speak(ctx context.Context, text string) error
}

type TurnHandler interface {
	HandleTurn(ctx context.Context, text string) string
}

const farewell = "Goodbye!"

// Loop hands one utterance at a time to the dispatcher and speaks each reply
// before capturing the next.
type Loop struct {
	in        Input
	out       Output
	turns     TurnHandler
	logger    *zap.Logger
	exitWords map[string]bool
}

type LoopOption func(*Loop)

// WithExitWords makes any of words, said on its own, end the loop.
func WithExitWords(words ...string) LoopOption {
	return func(l *Loop) {
		for _, w := range words {
			l.exitWords[strings.ToLower(w)] = true
		}
	}
}

func NewLoop(in Input, out Output, turns TurnHandler, logger *zap.Logger, opts ...LoopOption) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{in: in, out: out, turns: turns, logger: logger, exitWords: map[string]bool{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run returns nil when the input closes or an exit word is heard, and the
// context error when ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	for {
		text, err := l.in.Capture(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, ErrClosed) {
			return nil
		}
		if err != nil {
			l.logger.Warn("speech capture failed", zap.Error(err))
			text = ""
		}

		text = strings.TrimSpace(text)
		if l.exitWords[strings.ToLower(text)] {
			l.say(ctx, farewell)
			return nil
		}

		reply := domain.MsgNotUnderstood
		if text != "" {
			reply = l.turns.HandleTurn(ctx, text)
		}
		l.say(ctx, reply)
	}
}

func (l *Loop) say(ctx context.Context, text string) {
	if err := l.out.Speak(ctx, text); err != nil {
		l.logger.Warn("speech output failed", zap.Error(err))
	}
}
