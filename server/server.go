// Package server provides HTTP server management and lifecycle handling
// for the regimen API. It includes server setup, middleware configuration,
// route management, and graceful shutdown capabilities with proper error
// handling and logging.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nkiranraj/oncov3/config"
	"github.com/nkiranraj/oncov3/handlers"
	"github.com/nkiranraj/oncov3/interfaces"
	"github.com/nkiranraj/oncov3/logging"
	"github.com/nkiranraj/oncov3/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "net/http/pprof"
)

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	router  chi.Router
	handler *handlers.RegimenHandler
	config  *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, dataStore interfaces.DataStore, validator interfaces.RegimenValidator) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:  router,
		handler: handlers.NewRegimenHandler(dataStore, validator),
		config:  cfg,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.DefaultLoggingService.Logger))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(metrics.Metrics)
	s.router.Use(RateLimitHandler)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Library routes
	s.router.Get("/regimens", s.handler.ListRegimens)
	s.router.Get("/regimens/search/{term}", s.handler.SearchRegimens)
	s.router.Get("/regimens/{id}", s.handler.GetRegimen)
	s.router.Get("/regimens/{id}/overview", s.handler.RegimenOverview)
	s.router.Get("/regimens/{id}/export", s.handler.ExportRegimen)
	s.router.Get("/regimens/{id}/timeline", s.handler.RegimenTimeline)
	s.router.Get("/regimens/{id}/courses/{courseIndex}/cycles/{cycleNumber}", s.handler.CycleCalendar)

	// Ad-hoc resolution of uploaded documents
	s.router.Post("/resolve/cycle", s.handler.ResolveCycleAdhoc)
	s.router.Post("/resolve/timeline", s.handler.ResolveTimelineAdhoc)

	// Operational routes
	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	// Service index
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondWithJSON(w, http.StatusOK, map[string]string{
			"service": "regimen-api",
			"docs":    "GET /regimens, /regimens/{id}/timeline, /regimens/{id}/courses/{i}/cycles/{n}",
		})
	})
}

// Start starts the server
func (s *Server) Start() error {
	// Start profiling server if in development mode
	if s.config.Env == "dev" {
		s.startProfilingServer()
	}

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// Router exposes the configured router, mainly for tests
func (s *Server) Router() chi.Router {
	return s.router
}

// startProfilingServer starts the pprof profiling server in development mode
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Error("Profiling server failed", "error", err)
		}
	}()
}
