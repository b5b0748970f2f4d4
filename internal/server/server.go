// Package server exposes the trade journal over a JSON HTTP API. It is the
// presentation boundary: it translates requests into service calls and
// derived metrics back into plain data structures, and holds no domain logic
// of its own.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tradejournal/internal/app"
	"tradejournal/internal/metrics"
	"tradejournal/internal/ports"
)

// Server wires the journal service into an HTTP router.
type Server struct {
	svc    *app.JournalService
	logger ports.Logger
}

// NewServer creates a new HTTP server around the journal service.
func NewServer(svc *app.JournalService, logger ports.Logger) *Server {
	return &Server{svc: svc, logger: logger}
}

// Router builds the chi router with middleware and all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"tradejournal"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Journal mutations and reads.
		r.Post("/trades", s.createTrade)
		r.Get("/trades", s.listTrades)
		r.Get("/trades/{tradeID}", s.getTrade)
		r.Put("/trades/{tradeID}", s.updateTrade)
		r.Delete("/trades/{tradeID}", s.deleteTrade)

		// Partial exits.
		r.Post("/trades/{tradeID}/exits", s.addExit)
		r.Put("/trades/{tradeID}/exits/{exitID}", s.updateExit)
		r.Delete("/trades/{tradeID}/exits/{exitID}", s.deleteExit)

		// Derived analytics, recomputed on read.
		r.Get("/trades/{tradeID}/stats", s.tradeStats)
		r.Get("/analytics/portfolio", s.portfolio)
	})

	return r
}
