// Package api implements the HTTP layer for the dispatch backend. Handlers
// are methods on *Server. Each handler file is responsible for one resource
// group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sablemail/dispatch-backend/internal/db"
	"github.com/sablemail/dispatch-backend/internal/dispatch"
	"github.com/sablemail/dispatch-backend/internal/store"
)

// Intake is the slice of store.Store the queue handler uses. Narrowed to an
// interface so handler tests inject a fake instead of a live database.
type Intake interface {
	EnqueueBatch(ctx context.Context, p store.EnqueueBatchParams) (store.EnqueueBatchResult, error)
}

// Config holds values read from environment variables at startup.
type Config struct {
	// JWTSecret verifies the admin bearer tokens.
	JWTSecret string

	// Env is "production", "staging", or "development".
	Env string
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// q handles all single-query reads. Injected directly — no repo wrapper.
	q db.Querier

	// store handles multi-step atomic writes (intake batches).
	store Intake

	// reviewer resolves approve/reject batches, including the external sends.
	reviewer dispatch.Reviewer

	// validate checks recipient address syntax on intake.
	validate *validator.Validate

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	q db.Querier,
	st Intake,
	reviewer dispatch.Reviewer,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		q:        q,
		store:    st,
		reviewer: reviewer,
		validate: validator.New(),
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {

		// Admin-only email pipeline.
		r.Route("/emails", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/queue", s.handleQueueEmails)
			r.Get("/queued", s.handleListQueued)
			r.Post("/review", s.handleReview)
			r.Get("/sent", s.handleListSent)
		})

		// Provider callback — no auth (correlation id inside the payload),
		// CORS open to any origin for this endpoint specifically.
		r.With(s.openCORS).Post("/webhooks/mailgun", s.handleMailgunWebhook)
	})

	return r
}
