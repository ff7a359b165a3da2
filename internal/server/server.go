// Package server provides the HTTP API for the search service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/cache"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/config"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/research"
)

// Searcher is the orchestrator surface the server consumes.
type Searcher interface {
	Search(ctx context.Context, query string, opts models.SearchOptions) (*models.SearchResponse, error)
}

// Server is the HTTP server for the search API.
type Server struct {
	searcher Searcher
	presets  *research.Client
	store    cache.Store
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	searcher Searcher,
	presets *research.Client,
	store cache.Store,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		searcher: searcher,
		presets:  presets,
		store:    store,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/research/{preset}", s.handleResearch)
	r.Get("/api/v1/cache/stats", s.handleCacheStats)
	r.Post("/api/v1/cache/sweep", s.handleCacheSweep)
	r.Delete("/api/v1/cache", s.handleCacheClear)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
