package worker

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/pathlight/pathlight/internal/config"
	"github.com/pathlight/pathlight/internal/engine"
	"github.com/pathlight/pathlight/internal/metrics"
	"github.com/pathlight/pathlight/internal/storage"
)

// newTestService builds a ready service over in-memory storage, skipping
// the async initialization path.
func newTestService(t *testing.T) *Service {
	t.Helper()

	cfg := config.Default()
	cfg.StorageBackend = "memory"

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc := &Service{
		version:   "test",
		config:    cfg,
		provider:  metrics.NewRuntime(cfg.LatencyWindow),
		router:    chi.NewRouter(),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	svc.setupMiddleware()
	svc.setupRoutes()

	repo := storage.NewMemory()
	eng := engine.New(repo, svc.provider, engine.Config{
		Analysis: cfg.AnalysisConfig(),
		Decision: cfg.DecisionConfig(),
	})
	require.NoError(t, eng.Initialize(ctx))
	t.Cleanup(func() { _ = eng.Destroy(context.Background()) })

	svc.repo = repo
	svc.engine = eng
	svc.ready.Store(true)

	return svc
}

// newStartingService builds a service that is still initializing.
func newStartingService(t *testing.T) *Service {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc := &Service{
		version:   "test",
		config:    config.Default(),
		provider:  metrics.NewRuntime(10),
		router:    chi.NewRouter(),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	svc.setupMiddleware()
	svc.setupRoutes()
	return svc
}
