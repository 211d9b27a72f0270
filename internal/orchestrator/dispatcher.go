package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailvoice/internal/commands"
	"mailvoice/internal/conversation"
	"mailvoice/internal/domain"
	"mailvoice/internal/fallback"
)

type State int32

const (
	StateIdle State = iota
	StateMatching
	StateExecuting
	StateGenerating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMatching:
		return "matching"
	case StateExecuting:
		return "executing"
	case StateGenerating:
		return "generating"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// DefaultThreshold is compared with a strict greater-than, so a rule-based
// match alone goes to generation.
const DefaultThreshold = domain.ConfidenceRule

// Fallback is the generative side of a turn.
type Fallback interface {
	Analyze(ctx context.Context, text string, history []domain.Exchange) domain.Analysis
	Converse(ctx context.Context, input string, history []domain.Exchange) (string, error)
}

type TurnObserver interface {
	ObserveTurn(route string, took time.Duration)
}

// IntentHandler executes a classified intent with its slots.
type IntentHandler func(ctx context.Context, slots domain.Slots, text string) domain.Result

type Config struct {
	Threshold float64
}

type Dispatcher struct {
	turnMu    sync.Mutex
	state     atomic.Int32
	threshold float64

	registry *commands.Registry
	intents  map[domain.Intent]IntentHandler
	fallback Fallback
	history  *conversation.Context
	logger   *zap.Logger
	observer TurnObserver
}

func New(cfg Config, registry *commands.Registry, fb Fallback, history *conversation.Context, logger *zap.Logger, observer TurnObserver) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Dispatcher{
		threshold: cfg.Threshold,
		registry:  registry,
		intents:   map[domain.Intent]IntentHandler{},
		fallback:  fb,
		history:   history,
		logger:    logger,
		observer:  observer,
	}
}

// BindIntent sets the handler run when analysis picks in with enough
// confidence. Call it before the first turn.
func (d *Dispatcher) BindIntent(in domain.Intent, h IntentHandler) {
	d.intents[in] = h
}

func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// HandleTurn is the single entry point used by the speech shells.
func (d *Dispatcher) HandleTurn(ctx context.Context, text string) string {
	return d.Handle(ctx, text).Response
}

// Handle runs one turn to completion. Turns never overlap, and every turn
// ends with a response.
func (d *Dispatcher) Handle(ctx context.Context, text string) domain.TurnResult {
	start := time.Now()
	turn := domain.TurnResult{TurnID: uuid.NewString(), Text: strings.TrimSpace(text)}
	logger := d.logger.With(zap.String("turn_id", turn.TurnID))

	if turn.Text == "" {
		turn.Route = domain.RouteRecognition
		turn.Response = domain.MsgNotUnderstood
		d.observe(turn.Route, start)
		return turn
	}

	d.turnMu.Lock()
	defer d.turnMu.Unlock()
	defer d.setState(StateIdle)

	d.setState(StateMatching)
	if phrase, h, ok := d.registry.Match(turn.Text); ok {
		d.setState(StateExecuting)
		turn.Route = domain.RouteRegistry
		res := d.safely(phrase, func() domain.Result { return h(ctx, turn.Text) })
		turn.Response, turn.Failed = d.respond(logger, res)
	} else {
		analysis := d.fallback.Analyze(ctx, turn.Text, d.history.Recent())
		turn.Intent = analysis.Intent
		turn.Confidence = analysis.Confidence

		handler, bound := d.intents[analysis.Intent]
		if bound && analysis.Confidence > d.threshold {
			d.setState(StateExecuting)
			turn.Route = domain.RouteMail
			res := d.safely(string(analysis.Intent), func() domain.Result {
				return handler(ctx, analysis.Slots, turn.Text)
			})
			turn.Response, turn.Failed = d.respond(logger, res)
		} else {
			d.setState(StateGenerating)
			turn.Route = domain.RouteGeneration
			turn.Response, turn.Failed = d.generate(ctx, logger, turn.Text)
		}
	}

	d.history.Append(turn.Text, turn.Response)
	logger.Info("turn handled",
		zap.String("route", string(turn.Route)),
		zap.String("intent", string(turn.Intent)),
		zap.Float64("confidence", turn.Confidence),
		zap.Bool("failed", turn.Failed),
		zap.Duration("took", time.Since(start)),
	)
	d.observe(turn.Route, start)
	return turn
}

func (d *Dispatcher) generate(ctx context.Context, logger *zap.Logger, text string) (string, bool) {
	reply, err := d.fallback.Converse(ctx, text, d.history.Recent())
	switch {
	case errors.Is(err, fallback.ErrUnavailable):
		return domain.MsgNotSure, false
	case err != nil:
		logger.Error("generation failed", zap.String("op", "converse"), zap.Error(err))
		return domain.MsgApology, true
	case reply == "":
		return domain.MsgNotSure, false
	}
	return reply, false
}

func (d *Dispatcher) respond(logger *zap.Logger, res domain.Result) (string, bool) {
	if res.OK() {
		return res.Response, false
	}
	logger.Error("command failed",
		zap.String("op", res.Failure.Op),
		zap.String("kind", string(res.Failure.Kind)),
		zap.Error(res.Failure.Err),
	)
	return domain.MsgApology, true
}

func (d *Dispatcher) safely(op string, fn func() domain.Result) (res domain.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = domain.Fail(op, domain.FailureInternal, fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}

// ClearContext waits for any running turn, then empties the history.
func (d *Dispatcher) ClearContext() {
	d.turnMu.Lock()
	defer d.turnMu.Unlock()
	d.history.Clear()
}

func (d *Dispatcher) History() []domain.Exchange {
	return d.history.All()
}

func (d *Dispatcher) Commands() []string {
	return d.registry.Phrases()
}

func (d *Dispatcher) setState(s State) {
	d.state.Store(int32(s))
}

func (d *Dispatcher) observe(route domain.Route, start time.Time) {
	if d.observer != nil {
		d.observer.ObserveTurn(string(route), time.Since(start))
	}
}
