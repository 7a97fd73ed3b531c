// Package worker provides the HTTP worker service for pathlight.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/pathlight/pathlight/internal/config"
	"github.com/pathlight/pathlight/internal/engine"
	"github.com/pathlight/pathlight/internal/metrics"
	"github.com/pathlight/pathlight/internal/storage"
	"github.com/pathlight/pathlight/internal/watcher"
)

// Service configuration constants
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ReadyPollInterval is how often WaitReady checks initialization status.
	ReadyPollInterval = 50 * time.Millisecond

	// MaxRequestBody caps incoming request bodies.
	MaxRequestBody = 1 << 20 // 1 MiB
)

// UsageStats tracks request-level counters for the stats endpoint.
type UsageStats struct {
	InteractionsTracked   int64 // Interactions accepted via the API
	AnalysesServed        int64 // Behavior analyses returned
	RecommendationsServed int64 // Recommendation lists returned
	DecisionsMade         int64 // Decisions returned
	LearningEvents        int64 // Learning submissions accepted
}

// Service is the worker service orchestrator. The HTTP server comes up
// immediately; storage and engine initialization happen in the background.
type Service struct {
	version string

	config *config.Config

	// Core components, set by initializeAsync
	repo   storage.Repository
	engine *engine.Engine

	provider *metrics.Runtime

	// HTTP server
	router    *chi.Mux
	server    *http.Server
	startTime time.Time

	usageStats UsageStats

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Initialization state (for deferred init)
	ready     atomic.Bool
	initError error
	initMu    sync.RWMutex

	// Settings file watcher for live reload
	settingsWatcher *watcher.Watcher
}

// NewService creates a new worker service with deferred initialization.
// The health endpoint is available immediately while storage and the
// engine come up in the background.
func NewService(version string) (*Service, error) {
	cfg := config.Get()

	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:   version,
		config:    cfg,
		provider:  metrics.NewRuntime(cfg.LatencyWindow),
		router:    chi.NewRouter(),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	svc.setupMiddleware()
	svc.setupRoutes()

	go svc.initializeAsync()

	return svc, nil
}

// initializeAsync performs heavy initialization in the background.
func (s *Service) initializeAsync() {
	log.Info().Msg("Starting async initialization...")

	if err := config.EnsureDataDir(); err != nil {
		s.setInitError(fmt.Errorf("ensure data dir: %w", err))
		return
	}

	repo, err := openRepository(s.config)
	if err != nil {
		s.setInitError(fmt.Errorf("init storage: %w", err))
		return
	}

	eng := engine.New(repo, s.provider, engine.Config{
		Analysis: s.config.AnalysisConfig(),
		Decision: s.config.DecisionConfig(),
	})
	if err := eng.Initialize(s.ctx); err != nil {
		s.setInitError(fmt.Errorf("init engine: %w", err))
		return
	}

	s.initMu.Lock()
	s.repo = repo
	s.engine = eng
	s.initMu.Unlock()

	s.ready.Store(true)
	log.Info().
		Str("backend", s.config.StorageBackend).
		Msg("Async initialization complete - service ready")

	s.startSettingsWatcher()
}

// openRepository creates the persistence backend chosen by configuration.
func openRepository(cfg *config.Config) (storage.Repository, error) {
	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemory(), nil
	case "redis":
		return storage.NewRedis(storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	case "sqlite", "":
		return storage.NewSQLite(storage.SQLiteConfig{
			Path:     cfg.DBPath,
			MaxConns: cfg.MaxConns,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// startSettingsWatcher watches the settings file and reloads config on change.
func (s *Service) startSettingsWatcher() {
	settingsPath := config.SettingsPath()
	w, err := watcher.New(settingsPath, func() {
		log.Info().Str("path", settingsPath).Msg("Settings file changed, reloading config")
		if _, err := config.Reload(); err != nil {
			log.Warn().Err(err).Msg("Config reload failed, keeping current config")
			return
		}
		s.initMu.Lock()
		s.config = config.Get()
		s.initMu.Unlock()
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create settings watcher")
		return
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start settings watcher")
		return
	}
	s.settingsWatcher = w
	log.Info().Str("path", settingsPath).Msg("Settings file watcher started")
}

// setInitError records an initialization error.
func (s *Service) setInitError(err error) {
	s.initMu.Lock()
	s.initError = err
	s.initMu.Unlock()
	log.Error().Err(err).Msg("Async initialization failed")
}

// GetInitError returns any initialization error.
func (s *Service) GetInitError() error {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	return s.initError
}

// WaitReady blocks until the service is ready or the context expires.
func (s *Service) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(ReadyPollInterval)
	defer ticker.Stop()

	for {
		if s.ready.Load() {
			return nil
		}
		if err := s.GetInitError(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// setupMiddleware configures HTTP middleware.
func (s *Service) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(DefaultHTTPTimeout))
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestID)
	s.router.Use(MaxBodySize(MaxRequestBody))
	s.router.Use(s.recordLatency)
}

// setupRoutes configures HTTP routes.
func (s *Service) setupRoutes() {
	// Health check returns 200 immediately so callers can connect during init
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/health", s.handleHealth)

	s.router.Get("/api/version", s.handleVersion)

	// Readiness check - returns 200 only when fully initialized
	s.router.Get("/api/ready", s.handleReady)

	// Routes that require the engine to be ready
	s.router.Group(func(r chi.Router) {
		r.Use(s.requireReady)

		r.Post("/api/interactions", s.handleTrackInteraction)
		r.Get("/api/users/{userID}/analysis", s.handleGetAnalysis)
		r.Get("/api/users/{userID}/recommendations", s.handleGetRecommendations)
		r.Post("/api/decisions", s.handleMakeDecision)
		r.Post("/api/learning", s.handleLearn)

		r.Get("/api/status", s.handleStatus)
		r.Get("/api/stats", s.handleStats)
	})
}

// recordLatency feeds request durations into the metrics provider.
func (s *Service) recordLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.provider.RecordLatency(time.Since(start))
	})
}

// Start starts the worker service.
// The HTTP server starts immediately; engine initialization happens async.
func (s *Service) Start() error {
	port := config.GetWorkerPort()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	log.Info().
		Int("port", port).
		Int("pid", os.Getpid()).
		Msg("Worker HTTP server started (initialization in progress)")

	return nil
}

// Shutdown gracefully shuts down the service.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	if s.settingsWatcher != nil {
		_ = s.settingsWatcher.Stop()
	}

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}

	s.initMu.RLock()
	eng := s.engine
	repo := s.repo
	s.initMu.RUnlock()

	// Persist learned state before closing storage
	if eng != nil {
		if err := eng.Destroy(ctx); err != nil {
			log.Error().Err(err).Msg("Engine teardown error")
		}
	}
	if repo != nil {
		if err := repo.Close(); err != nil {
			log.Error().Err(err).Msg("Storage close error")
		}
	}

	s.wg.Wait()

	log.Info().Msg("Worker service shutdown complete")
	return nil
}

// getEngine returns the engine once initialization has completed.
func (s *Service) getEngine() *engine.Engine {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	return s.engine
}

// recordUsage atomically updates request counters.
func (s *Service) recordUsage(counter *int64) {
	atomic.AddInt64(counter, 1)
}

// GetUsageStats returns a copy of the usage stats.
func (s *Service) GetUsageStats() UsageStats {
	return UsageStats{
		InteractionsTracked:   atomic.LoadInt64(&s.usageStats.InteractionsTracked),
		AnalysesServed:        atomic.LoadInt64(&s.usageStats.AnalysesServed),
		RecommendationsServed: atomic.LoadInt64(&s.usageStats.RecommendationsServed),
		DecisionsMade:         atomic.LoadInt64(&s.usageStats.DecisionsMade),
		LearningEvents:        atomic.LoadInt64(&s.usageStats.LearningEvents),
	}
}
