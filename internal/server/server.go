// Package server provides the HTTP server and routing for Quantfolio.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/config"
	"github.com/quantfolio/quantfolio/internal/database"
	"github.com/quantfolio/quantfolio/internal/scheduler"
	marketdatahandlers "github.com/quantfolio/quantfolio/internal/modules/marketdata/handlers"
	positionshandlers "github.com/quantfolio/quantfolio/internal/modules/positions/handlers"
	referencehandlers "github.com/quantfolio/quantfolio/internal/modules/reference/handlers"
	returnshandlers "github.com/quantfolio/quantfolio/internal/modules/returns/handlers"
	transactionshandlers "github.com/quantfolio/quantfolio/internal/modules/transactions/handlers"
	valuationhandlers "github.com/quantfolio/quantfolio/internal/modules/valuation/handlers"
)

// Config holds everything the server needs wired in.
type Config struct {
	Log         zerolog.Logger
	Config      *config.Config
	LedgerDB    *database.DB
	PortfolioDB *database.DB
	HistoryDB   *database.DB
	CacheDB     *database.DB
	Scheduler   *scheduler.Scheduler

	ReferenceHandlers    *referencehandlers.Handler
	TransactionsHandlers *transactionshandlers.Handler
	PositionsHandlers    *positionshandlers.Handler
	MarketdataHandlers   *marketdatahandlers.Handler
	ValuationHandlers    *valuationhandlers.Handler
	ReturnsHandlers      *returnshandlers.Handler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	var jobStats func() map[string]scheduler.JobStats
	if cfg.Scheduler != nil {
		jobStats = cfg.Scheduler.Stats
	}

	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg.Config,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Config.DataDir,
			map[string]*database.DB{
				"ledger":    cfg.LedgerDB,
				"portfolio": cfg.PortfolioDB,
				"history":   cfg.HistoryDB,
				"cache":     cfg.CacheDB,
			},
			jobStats,
		),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		cfg.ReferenceHandlers.RegisterRoutes(r)
		cfg.TransactionsHandlers.RegisterRoutes(r)
		cfg.PositionsHandlers.RegisterRoutes(r)
		cfg.MarketdataHandlers.RegisterRoutes(r)
		cfg.ValuationHandlers.RegisterRoutes(r)
		cfg.ReturnsHandlers.RegisterRoutes(r)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/jobs", s.systemHandlers.HandleJobStats)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs each request with duration
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Msg("Request handled")
	})
}
