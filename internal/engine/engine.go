// Package engine composes the behavior-analytics pipeline and the
// decision engine behind one facade owned by the worker service.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/pathlight/pathlight/internal/analysis"
	"github.com/pathlight/pathlight/internal/decision"
	"github.com/pathlight/pathlight/internal/interactions"
	"github.com/pathlight/pathlight/internal/metrics"
	"github.com/pathlight/pathlight/internal/storage"
	"github.com/pathlight/pathlight/pkg/models"
)

// meterName identifies this instrumentation scope.
const meterName = "github.com/pathlight/pathlight"

// Health classifies the engine's overall condition.
type Health string

const (
	HealthHealthy Health = "healthy"
	HealthWarning Health = "warning"
	HealthError   Health = "error"
)

// Status is the engine's observable state.
type Status struct {
	Health      Health              `json:"health"`
	Performance metrics.Performance `json:"performance"`
	LastUpdate  time.Time           `json:"lastUpdate"`
}

// Config bundles the engine's tunables.
type Config struct {
	Analysis models.AnalysisConfig
	Decision models.DecisionConfig
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Analysis: models.DefaultAnalysisConfig(),
		Decision: models.DefaultDecisionConfig(),
	}
}

// Engine is the context-aware decision and behavior analytics engine. One
// instance owns all per-user state; nothing is ambient.
type Engine struct {
	store     *interactions.Store
	analyzer  *analysis.Analyzer
	decisions *decision.Engine
	debouncer *analysis.Debouncer
	provider  metrics.Provider

	tracked  metric.Int64Counter
	analyses metric.Int64Counter
	decided  metric.Int64Counter
}

// New creates an engine over the given repository and metrics provider.
// Initialize must be called before decisions can be made.
func New(repo storage.Repository, provider metrics.Provider, config Config) *Engine {
	store := interactions.NewStore(config.Analysis.MaxInteractions)
	analyzer := analysis.NewAnalyzer(store, repo, config.Analysis)
	decisions := decision.NewEngine(repo, config.Decision)

	e := &Engine{
		store:     store,
		analyzer:  analyzer,
		decisions: decisions,
		provider:  provider,
	}

	e.debouncer = analysis.NewDebouncer(config.Analysis.DebounceQuiet, e.reanalyze)
	store.SetOnAppend(func(userID string) {
		analyzer.Invalidate(userID)
		e.debouncer.Trigger(userID)
	})

	meter := otel.Meter(meterName)
	e.tracked, _ = meter.Int64Counter("pathlight.interactions.tracked")
	e.analyses, _ = meter.Int64Counter("pathlight.analyses.computed")
	e.decided, _ = meter.Int64Counter("pathlight.decisions.made")

	return e
}

// Initialize loads persisted decision-engine state.
func (e *Engine) Initialize(ctx context.Context) error {
	return e.decisions.Initialize(ctx)
}

// Destroy cancels pending re-analysis timers and tears down the decision
// engine, persisting its learned state.
func (e *Engine) Destroy(ctx context.Context) error {
	e.debouncer.Stop()
	return e.decisions.Destroy(ctx)
}

// TrackInteraction appends an interaction to its owner's log, invalidates
// that user's cached analysis, and (re)schedules the debounced
// re-analysis. It never blocks on analysis work.
func (e *Engine) TrackInteraction(ctx context.Context, interaction models.Interaction) error {
	start := time.Now()
	if err := e.store.Append(interaction); err != nil {
		return err
	}
	if e.tracked != nil {
		e.tracked.Add(ctx, 1)
	}
	if e.provider != nil {
		e.provider.RecordLatency(time.Since(start))
	}
	return nil
}

// AnalyzeUser returns the (possibly cached) behavior analysis for a user.
func (e *Engine) AnalyzeUser(ctx context.Context, userID string) (*models.UserBehaviorAnalysis, error) {
	start := time.Now()
	result, err := e.analyzer.AnalyzeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if e.analyses != nil {
		e.analyses.Add(ctx, 1)
	}
	if e.provider != nil {
		e.provider.RecordLatency(time.Since(start))
	}
	return result, nil
}

// GetRecommendations returns the prioritized recommendations for a user.
func (e *Engine) GetRecommendations(ctx context.Context, userID string) ([]models.Recommendation, error) {
	return e.analyzer.Recommendations(ctx, userID)
}

// MakeDecision scores the candidate options against the context and
// returns the winner with confidence and reasoning.
func (e *Engine) MakeDecision(ctx context.Context, dctx models.DecisionContext, options []string) (*models.DecisionResult, error) {
	start := time.Now()
	result, err := e.decisions.MakeDecision(ctx, dctx, options)
	if err != nil {
		return nil, err
	}
	if e.decided != nil {
		e.decided.Add(ctx, 1)
	}
	if e.provider != nil {
		e.provider.RecordLatency(time.Since(start))
	}
	return result, nil
}

// Learn records an interaction→outcome pair for the decision engine's
// pattern strategy.
func (e *Engine) Learn(ctx context.Context, interaction models.Interaction, outcome string) error {
	return e.decisions.Learn(ctx, interaction, outcome)
}

// Status reports health and performance. Resource figures come from the
// injected metrics provider, never from synthetic placeholders.
func (e *Engine) Status() Status {
	var perf metrics.Performance
	if e.provider != nil {
		perf = e.provider.Snapshot()
	}

	health := HealthHealthy
	switch e.decisions.State() {
	case decision.StateUninitialized, decision.StateDestroyed:
		health = HealthError
	default:
		if perf.ResponseTime > 250*time.Millisecond || perf.CPUFraction > 0.5 {
			health = HealthWarning
		}
	}

	return Status{
		Health:      health,
		Performance: perf,
		LastUpdate:  time.Now(),
	}
}

// Interactions exposes the interaction store (read paths and tests).
func (e *Engine) Interactions() *interactions.Store { return e.store }

// Decisions exposes the decision engine.
func (e *Engine) Decisions() *decision.Engine { return e.decisions }

// reanalyze is the debounce callback: it refreshes the user's analysis
// and folds the new efficiency figures into the learned pattern so the
// decision engine's pattern strategy sees them.
func (e *Engine) reanalyze(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := e.analyzer.AnalyzeUser(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("Debounced re-analysis failed")
		return
	}

	learning := e.decisions.Learning()
	pattern := learning.Pattern(userID, result.Role)
	pattern.Efficiency = result.Patterns.Efficiency
	pattern.AverageSessionTime = result.Patterns.AverageSessionTime
	learning.SetPattern(userID, result.Role, pattern)
}
