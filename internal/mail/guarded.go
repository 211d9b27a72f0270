package mail

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"mailvoice/internal/domain"
)

// Observer receives one event per mail operation.
type Observer interface {
	ObserveMailOp(op, status string)
}

type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// Trips once at least MinRequests have been seen and the failure ratio
	// reaches FailureRatio.
	MinRequests  uint32
	FailureRatio float64
	CallTimeout  time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "mail",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
		CallTimeout:  15 * time.Second,
	}
}

// Guarded runs every call through a circuit breaker and a per-call timeout.
// Not-found answers do not count against the breaker.
type Guarded struct {
	next    Service
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	obs     Observer
}

func NewGuarded(next Service, cfg BreakerConfig, log *zap.Logger, obs Observer) *Guarded {
	if log == nil {
		log = zap.NewNop()
	}
	minRequests, ratio := cfg.MinRequests, cfg.FailureRatio
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("mail circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Guarded{next: next, cb: cb, timeout: cfg.CallTimeout, obs: obs}
}

func (g *Guarded) State() gobreaker.State {
	return g.cb.State()
}

func (g *Guarded) List(ctx context.Context, query string, maxResults int) ([]domain.MessageSummary, error) {
	var out []domain.MessageSummary
	err := g.run(ctx, "list", func(ctx context.Context) error {
		var err error
		out, err = g.next.List(ctx, query, maxResults)
		return err
	})
	return out, err
}

func (g *Guarded) Get(ctx context.Context, id string) (domain.Message, error) {
	var out domain.Message
	err := g.run(ctx, "get", func(ctx context.Context) error {
		var err error
		out, err = g.next.Get(ctx, id)
		return err
	})
	return out, err
}

func (g *Guarded) Send(ctx context.Context, raw []byte) (string, error) {
	var out string
	err := g.run(ctx, "send", func(ctx context.Context) error {
		var err error
		out, err = g.next.Send(ctx, raw)
		return err
	})
	return out, err
}

func (g *Guarded) Trash(ctx context.Context, id string) error {
	return g.run(ctx, "trash", func(ctx context.Context) error {
		return g.next.Trash(ctx, id)
	})
}

func (g *Guarded) ModifyLabels(ctx context.Context, id string, remove, add []string) error {
	return g.run(ctx, "modify", func(ctx context.Context) error {
		return g.next.ModifyLabels(ctx, id, remove, add)
	})
}

func (g *Guarded) run(ctx context.Context, op string, fn func(context.Context) error) error {
	var callErr error
	_, err := g.cb.Execute(func() (interface{}, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		callErr = fn(callCtx)
		if errors.Is(callErr, ErrNotFound) {
			return nil, nil
		}
		return nil, callErr
	})
	if err == nil {
		err = callErr
	}
	if g.obs != nil {
		status := "ok"
		if err != nil {
			status = string(Kind(err))
		}
		g.obs.ObserveMailOp(op, status)
	}
	return err
}
