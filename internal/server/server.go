// Package server exposes the tip repository and query engine over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bettingtipsai/tips-cli/internal/config"
	"github.com/bettingtipsai/tips-cli/internal/query"
	"github.com/bettingtipsai/tips-cli/internal/store"
)

// Server holds the handler dependencies. Everything is injected; there is
// no ambient state beyond the global logger.
type Server struct {
	store  store.Store
	engine *query.Engine
	cfg    config.ServerConfig
}

// New wires a Server over the given store.
func New(s store.Store, cfg config.ServerConfig) *Server {
	return &Server{
		store:  s,
		engine: query.New(s),
		cfg:    cfg,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	if s.cfg.RateRPS > 0 {
		r.Use(rateLimit(s.cfg.RateRPS, s.cfg.RateBurst))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tips/latest", s.handleLatest)
		r.Get("/tips/by-date/{date}", s.handleByDate)
		r.Get("/tips/history", s.handleHistory)
		r.Get("/tips/stats", s.handleStats)
		r.Get("/tips/dates", s.handleDates)
		r.Get("/export.csv", s.handleExport)

		// Mutations sit behind the admin token when one is configured.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/tips/create", s.handleCreate)
			r.Post("/tips/update-result", s.handleUpdateResult)
			r.Delete("/tips/{tipID}", s.handleDelete)
		})
	})

	return r
}
