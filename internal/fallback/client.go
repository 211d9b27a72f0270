// Package fallback wraps the generation service with startup probing and
// graceful degradation to rule-based analysis.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mailvoice/internal/domain"
	"mailvoice/internal/intent"
)

// ErrUnavailable is returned when the generation service was never reached or
// a single call ran past its deadline.
var ErrUnavailable = errors.New("generation service unavailable")

type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (string, error)
}

// Observer receives one event per outbound generation call.
type Observer interface {
	ObserveGeneration(call, status string)
}

type Config struct {
	ProbeAttempts     int
	ProbeDelay        time.Duration
	ProbeTimeout      time.Duration
	AnalyzeTimeout    time.Duration
	ConverseTimeout   time.Duration
	ConverseMaxTokens int
	Temperature       float64
	Window            int
}

func DefaultConfig() Config {
	return Config{
		ProbeAttempts:     3,
		ProbeDelay:        2 * time.Second,
		ProbeTimeout:      5 * time.Second,
		AnalyzeTimeout:    10 * time.Second,
		ConverseTimeout:   30 * time.Second,
		ConverseMaxTokens: 512,
		Temperature:       0.7,
		Window:            5,
	}
}

const (
	probePrompt       = "test"
	analyzeMaxTokens  = 128
	improveMaxTokens  = 512
	recipientMarker   = "recipient:"
	callProbe         = "probe"
	callAnalyze       = "analyze"
	callConverse      = "converse"
	callImprove       = "improve"
	statusOK          = "ok"
	statusError       = "error"
	statusTimeout     = "timeout"
	statusUnavailable = "unavailable"
)

// StopSequences keep the model from inventing the next user turn.
var StopSequences = []string{"User:", "[INST]"}

type Option func(*Client)

func WithObserver(o Observer) Option {
	return func(c *Client) { c.obs = o }
}

// WithSleep replaces the wait between probe attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

type Client struct {
	gen   Generator
	cfg   Config
	log   *zap.Logger
	obs   Observer
	sleep func(ctx context.Context, d time.Duration) error

	mu        sync.RWMutex
	probed    bool
	available bool
}

// New returns a client that is unavailable until Connect succeeds. A nil
// generator leaves it unavailable for good.
func New(gen Generator, cfg Config, log *zap.Logger, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.ProbeAttempts <= 0 {
		cfg.ProbeAttempts = def.ProbeAttempts
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.AnalyzeTimeout <= 0 {
		cfg.AnalyzeTimeout = def.AnalyzeTimeout
	}
	if cfg.ConverseTimeout <= 0 {
		cfg.ConverseTimeout = def.ConverseTimeout
	}
	if cfg.ConverseMaxTokens <= 0 {
		cfg.ConverseMaxTokens = def.ConverseMaxTokens
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{gen: gen, cfg: cfg, log: log, sleep: sleepContext}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect probes the generation service. It runs at most once per client;
// later calls report the outcome of the first.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.probed {
		if c.available {
			return nil
		}
		return ErrUnavailable
	}
	c.probed = true

	if c.gen == nil {
		c.log.Warn("generation service disabled, using rule-based analysis only")
		return ErrUnavailable
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.ProbeAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.cfg.ProbeDelay); err != nil {
				lastErr = err
				break
			}
		}
		lastErr = c.probe(ctx)
		if lastErr == nil {
			c.available = true
			c.log.Info("generation service connected", zap.Int("attempt", attempt))
			return nil
		}
		c.log.Debug("generation probe failed", zap.Int("attempt", attempt), zap.Error(lastErr))
	}

	c.log.Warn("generation service unreachable, using rule-based analysis only",
		zap.Int("attempts", c.cfg.ProbeAttempts), zap.Error(lastErr))
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) probe(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()
	_, err := c.gen.Generate(callCtx, domain.GenerateRequest{Prompt: probePrompt, MaxTokens: 1})
	c.observe(callCtx, callProbe, err)
	return err
}

func (c *Client) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

// Analyze never fails. Without the generation service, or when a call to it
// fails, the answer is the rule-based analysis of text.
func (c *Client) Analyze(ctx context.Context, text string, history []domain.Exchange) domain.Analysis {
	rule := intent.Analyze(text)
	if !c.Available() {
		return rule
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.AnalyzeTimeout)
	defer cancel()
	out, err := c.gen.Generate(callCtx, domain.GenerateRequest{
		Prompt:    AnalyzePrompt(text, c.recent(history)),
		MaxTokens: analyzeMaxTokens,
	})
	c.observe(callCtx, callAnalyze, err)
	if err != nil {
		c.log.Warn("generative analysis failed, using rule-based analysis", zap.Error(err))
		return rule
	}

	in := rule.Intent
	slots := rule.Slots
	if in == domain.IntentUnknown {
		in = intent.Classify(out)
		slots = intent.SlotsFor(text, in)
	}
	if r := parseRecipient(out); r != "" {
		slots[domain.SlotRecipient] = r
	}

	confidence := domain.ConfidenceNone
	if strings.TrimSpace(out) != "" {
		confidence = domain.ConfidenceGenerated
	}
	return domain.Analysis{Intent: in, Slots: slots, Confidence: confidence}
}

// Converse returns the model's trimmed reply to input given the prior
// exchanges, of which only the most recent window are sent.
func (c *Client) Converse(ctx context.Context, input string, history []domain.Exchange) (string, error) {
	return c.complete(ctx, callConverse, domain.GenerateRequest{
		Prompt:      ConversePrompt(input, c.recent(history)),
		MaxTokens:   c.cfg.ConverseMaxTokens,
		Temperature: c.cfg.Temperature,
		Stop:        StopSequences,
	})
}

func (c *Client) Improve(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, callImprove, domain.GenerateRequest{
		Prompt:      ImprovePrompt(text),
		MaxTokens:   improveMaxTokens,
		Temperature: c.cfg.Temperature,
	})
}

func (c *Client) complete(ctx context.Context, call string, req domain.GenerateRequest) (string, error) {
	if !c.Available() {
		c.observe(ctx, call, ErrUnavailable)
		return "", ErrUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.ConverseTimeout)
	defer cancel()
	out, err := c.gen.Generate(callCtx, req)
	c.observe(callCtx, call, err)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s timed out", ErrUnavailable, call)
		}
		return "", fmt.Errorf("%s: %w", call, err)
	}
	return strings.TrimSpace(out), nil
}

func (c *Client) recent(history []domain.Exchange) []domain.Exchange {
	if len(history) > c.cfg.Window {
		return history[len(history)-c.cfg.Window:]
	}
	return history
}

func (c *Client) observe(ctx context.Context, call string, err error) {
	if c.obs == nil {
		return
	}
	status := statusOK
	switch {
	case errors.Is(err, ErrUnavailable):
		status = statusUnavailable
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		status = statusTimeout
	case err != nil:
		status = statusError
	}
	c.obs.ObserveGeneration(call, status)
}

func parseRecipient(out string) string {
	i := strings.Index(strings.ToLower(out), recipientMarker)
	if i < 0 {
		return ""
	}
	fields := strings.Fields(out[i+len(recipientMarker):])
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ",;:.\"'()<>")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
