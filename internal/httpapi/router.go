// Package httpapi exposes the dispatcher over HTTP for shells that are not
// speech driven.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"mailvoice/internal/domain"
)

type Assistant interface {
	Handle(ctx context.Context, text string) domain.TurnResult
	History() []domain.Exchange
	ClearContext()
	Commands() []string
}

type Options struct {
	Logger *zap.Logger
	// Metrics is mounted at /metrics when set.
	Metrics             http.Handler
	GenerationAvailable func() bool
}

type turnRequest struct {
	Text string `json:"text"`
}

func NewRouter(a Assistant, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"ok": true}
		if opts.GenerationAvailable != nil {
			body["generation_available"] = opts.GenerationAvailable()
		}
		writeJSON(w, http.StatusOK, body)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/turns", func(w http.ResponseWriter, req *http.Request) {
			var turnReq turnRequest
			if err := json.NewDecoder(req.Body).Decode(&turnReq); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
				return
			}
			writeJSON(w, http.StatusOK, a.Handle(req.Context(), turnReq.Text))
		})
		r.Get("/context", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"exchanges": a.History()})
		})
		r.Delete("/context", func(w http.ResponseWriter, _ *http.Request) {
			a.ClearContext()
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})
		r.Get("/commands", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"commands": a.Commands()})
		})
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
