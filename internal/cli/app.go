package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"mailvoice/internal/commands"
	"mailvoice/internal/config"
	"mailvoice/internal/conversation"
	"mailvoice/internal/credential"
	"mailvoice/internal/fallback"
	"mailvoice/internal/llm"
	"mailvoice/internal/mail"
	"mailvoice/internal/metrics"
	"mailvoice/internal/orchestrator"
)

// app is the assembled assistant shared by the serve and chat commands.
type app struct {
	registry   *prometheus.Registry
	fallback   *fallback.Client
	dispatcher *orchestrator.Dispatcher
	closers    []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(a.registry)

	store, err := openTokenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if pg, ok := store.(*credential.PGStore); ok {
		a.closers = append(a.closers, pg.Close)
	}

	mailSvc, err := openMail(ctx, cfg, store, logger, recorder)
	if err != nil {
		a.Close()
		return nil, err
	}

	provider, err := llm.NewProvider(ctx, llm.Config{
		Provider:         cfg.LLMProvider,
		Model:            cfg.LLMModel,
		OllamaBaseURL:    cfg.OllamaBaseURL,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		AnthropicBaseURL: cfg.AnthropicBaseURL,
		AnthropicAPIKey:  cfg.AnthropicAPIKey,
		GeminiAPIKey:     cfg.GeminiAPIKey,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	var gen fallback.Generator
	if provider != nil {
		gen = provider
	}
	a.fallback = fallback.New(gen, fallback.Config{
		ProbeAttempts:     cfg.ProbeAttempts,
		ProbeDelay:        cfg.ProbeDelay,
		ProbeTimeout:      cfg.ProbeTimeout,
		AnalyzeTimeout:    cfg.AnalyzeTimeout,
		ConverseTimeout:   cfg.ConverseTimeout,
		ConverseMaxTokens: cfg.ConverseMaxTokens,
		Temperature:       cfg.Temperature,
		Window:            cfg.ContextWindow,
	}, logger.Named("fallback"), fallback.WithObserver(recorder))
	// Failure is logged by Connect and leaves the client in rule-based mode.
	_ = a.fallback.Connect(ctx)

	history := conversation.New(cfg.ContextWindow, cfg.ContextRetain)
	registry := commands.NewRegistry()
	a.dispatcher = orchestrator.New(orchestrator.Config{Threshold: cfg.ConfidenceThreshold},
		registry, a.fallback, history, logger.Named("dispatcher"), recorder)
	actions := orchestrator.NewMailActions(mailSvc, a.fallback, logger.Named("mail"))
	actions.Bind(a.dispatcher)
	orchestrator.DefaultCommands(registry, actions, history)

	return a, nil
}

func openTokenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (credential.TokenStore, error) {
	if cfg.TokenDSN == "" {
		logger.Debug("using file token store", zap.String("path", cfg.TokenFile))
		return credential.FileStore{Path: cfg.TokenFile}, nil
	}
	store, err := credential.NewPGStore(ctx, cfg.TokenDSN)
	if err != nil {
		return nil, fmt.Errorf("connect token db: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate token db: %w", err)
	}
	return store, nil
}

func newCredentialProvider(cfg config.Config, store credential.TokenStore, logger *zap.Logger) *credential.Provider {
	return credential.NewProvider(credential.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, store, logger.Named("credential"))
}

func openMail(ctx context.Context, cfg config.Config, store credential.TokenStore, logger *zap.Logger, recorder *metrics.Recorder) (mail.Service, error) {
	if err := cfg.RequireGoogle(); err != nil {
		return nil, err
	}
	ts, err := newCredentialProvider(cfg, store, logger).TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	gmail, err := mail.NewGmail(ctx, ts)
	if err != nil {
		return nil, err
	}
	return mail.NewGuarded(gmail, mail.BreakerConfig{
		Name:         "gmail",
		MaxRequests:  uint32(cfg.BreakerMaxRequests),
		Interval:     cfg.BreakerInterval,
		Timeout:      cfg.BreakerOpenTimeout,
		MinRequests:  uint32(cfg.BreakerMinRequests),
		FailureRatio: cfg.BreakerFailureRatio,
		CallTimeout:  cfg.MailCallTimeout,
	}, logger.Named("mail"), recorder), nil
}
