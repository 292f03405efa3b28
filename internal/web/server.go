// Package web provides the HTTP API for invoice import, part number allocation
// and user reference bookkeeping.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/PartsHole/internal/config"
	"github.com/JonMunkholm/PartsHole/internal/core"
	mw "github.com/JonMunkholm/PartsHole/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server for the PartsHole API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	done    chan struct{}
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
		done:    make(chan struct{}),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(mw.SecurityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		limiter := mw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		go limiter.Cleanup(s.done)
		s.router.Use(limiter.Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		// Invoice import, with a stricter rate limit
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled && s.cfg.Rate.UploadLimit > 0 {
				limiter := mw.NewRateLimiter(s.cfg.Rate.UploadLimit, time.Minute)
				go limiter.Cleanup(s.done)
				r.Use(limiter.Handler)
			}
			r.Post("/invoices/import", s.handleImportInvoice)
			r.Post("/invoices/import/batch", s.handleImportBatch)
		})
		r.Get("/invoices/{orderNumber}", s.handleGetInvoice)

		// Users and their reference lists
		r.Post("/users", s.handleCreateUser)
		r.Get("/users/{userID}", s.handleGetUserData)
		r.Post("/users/{userID}/part-numbers", s.handleAllocatePartNumber)
		r.Post("/users/{userID}/references/{selector}", s.handleAppendReference)
		r.Delete("/users/{userID}/references/{selector}/{modelID}", s.handleRemoveReference)
		r.Post("/users/{userID}/parts", s.handleCreatePart)
		r.Post("/users/{userID}/bins", s.handleCreateBin)

		r.Get("/part-numbers/parse", s.handleParsePartNumber)
		r.Get("/part-numbers/{id}", s.handleGetPartNumber)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, &core.NotFoundError{Kind: "route", ID: r.URL.Path})
	})
}

// Start begins listening for HTTP requests on the configured address.
// It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
