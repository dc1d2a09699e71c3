// Package server exposes processed trees and the link store over a read-only
// HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/akhdanfadh/urlkeep/internal/logger"
	"github.com/akhdanfadh/urlkeep/internal/store"
)

const shutdownTimeout = 10 * time.Second

// LinkStore is the read side of the link store used by the API.
type LinkStore interface {
	Stats(ctx context.Context) (*store.Stats, error)
	Domains(ctx context.Context) ([]store.DomainCount, error)
	Sources(ctx context.Context) ([]store.SourceInfo, error)
}

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	processedDir string
	links        LinkStore // nil when no database is configured
	log          logger.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLinkStore enables the store-backed endpoints.
func WithLinkStore(ls LinkStore) Option {
	return func(s *Server) {
		s.links = ls
	}
}

// WithLogger sets the logger for request and error messages.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// New creates a Server serving the trees in processedDir.
func New(processedDir string, opts ...Option) *Server {
	s := &Server{
		processedDir: processedDir,
		log:          logger.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/trees", s.handleListTrees)
		r.Get("/trees/{name}", s.handleGetTree)

		r.Group(func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/stats", s.handleStats)
			r.Get("/domains", s.handleDomains)
			r.Get("/sources", s.handleSources)
		})
	})

	s.router = r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
