package decision

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pathlight/pathlight/internal/storage"
	"github.com/pathlight/pathlight/pkg/models"
)

// State is the engine lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StateActive
	StateDestroyed
)

// defaultSuccessRate is assumed for a decision with no history.
const defaultSuccessRate = 0.5

// Engine makes weighted multi-strategy decisions about which candidate
// option to surface. All state is owned by the instance; nothing is
// ambient.
type Engine struct {
	config   models.DecisionConfig
	repo     storage.Repository
	learning *LearningStore
	history  *History

	state   State
	stateMu sync.RWMutex

	now func() time.Time
}

// NewEngine creates an uninitialized engine. Initialize must be called
// before decisions can be made.
func NewEngine(repo storage.Repository, config models.DecisionConfig) *Engine {
	return &Engine{
		config:   config,
		repo:     repo,
		learning: NewLearningStore(config.OutcomeHistorySize),
		history:  NewHistory(config.HistorySize),
		now:      time.Now,
	}
}

// Initialize loads persisted learning data and readies the engine.
// Persistence failures degrade gracefully to empty defaults.
func (e *Engine) Initialize(ctx context.Context) error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.state == StateDestroyed {
		return ErrNotInitialized
	}
	if e.state != StateUninitialized {
		return nil
	}

	e.learning.LoadFrom(ctx, e.repo)
	e.state = StateInitialized
	log.Info().Int("learning_records", e.learning.Size()).Msg("Decision engine initialized")
	return nil
}

// Destroy persists learning data and clears all in-memory state. The
// engine cannot be reused afterwards.
func (e *Engine) Destroy(ctx context.Context) error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.state == StateUninitialized || e.state == StateDestroyed {
		e.state = StateDestroyed
		return nil
	}

	var saveErr error
	if err := e.learning.SaveTo(ctx, e.repo); err != nil {
		// Non-fatal: teardown proceeds, learned state is lost.
		log.Warn().Err(err).Msg("Failed to persist learning data on destroy")
		saveErr = err
	}

	e.learning.Clear()
	e.history.Reset()
	e.state = StateDestroyed
	log.Info().Msg("Decision engine destroyed")
	return saveErr
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

// ready reports whether decisions can be made, activating the engine on
// first use.
func (e *Engine) ready() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	switch e.state {
	case StateInitialized:
		e.state = StateActive
		return true
	case StateActive:
		return true
	default:
		return false
	}
}

// MakeDecision scores every candidate option with the four strategies,
// combines them by fixed weights, and returns the top option with
// confidence and reasoning. Ties resolve to the first option in input
// order, so identical context, options, and state always yield the same
// decision.
func (e *Engine) MakeDecision(ctx context.Context, dctx models.DecisionContext, options []string) (*models.DecisionResult, error) {
	if !e.ready() {
		return nil, ErrNotInitialized
	}
	if len(options) == 0 {
		return nil, ErrNoOptions
	}

	start := e.now()
	analysis := e.analyzeContext(dctx, start.Hour())
	pattern := e.learning.Pattern(dctx.UserID, analysis.role)

	best := e.scoreOption(options[0], analysis, pattern)
	for _, option := range options[1:] {
		scores := e.scoreOption(option, analysis, pattern)
		if scores.Total > best.Total {
			best = scores
		}
	}

	successRate, hasHistory := e.history.SuccessRate(best.Option)
	if !hasHistory {
		successRate = defaultSuccessRate
	}
	confidence := models.Clamp01(0.5 + (1-analysis.complexity)*0.2 + successRate*0.3)

	result := &models.DecisionResult{
		ID:           uuid.NewString(),
		Decision:     best.Option,
		Confidence:   confidence,
		Reasoning:    e.reasoning(best, analysis, pattern, successRate, hasHistory),
		Alternatives: alternatives(options, best.Option, e.config.MaxAlternatives),
		Context: models.DecisionMeta{
			Role:           analysis.role,
			CurrentView:    analysis.currentView,
			Complexity:     analysis.complexity,
			ProcessingTime: e.now().Sub(start),
			Timestamp:      start,
		},
	}

	e.history.Append(*result)

	log.Debug().
		Str("decision", result.Decision).
		Float64("confidence", result.Confidence).
		Float64("total", best.Total).
		Msg("Decision made")

	return result, nil
}

// Learn records an interaction→outcome pair into the learning store.
func (e *Engine) Learn(_ context.Context, interaction models.Interaction, outcome string) error {
	if !e.ready() {
		return ErrNotInitialized
	}
	if err := interaction.Validate(); err != nil {
		return err
	}
	e.learning.Learn(interaction, outcome)
	return nil
}

// Learning exposes the learning store for analysis feedback and tests.
func (e *Engine) Learning() *LearningStore { return e.learning }

// History exposes the decision history ring.
func (e *Engine) History() *History { return e.history }

// reasoning renders the fixed explanation templates for a decision.
func (e *Engine) reasoning(best OptionScores, analysis contextAnalysis, pattern models.UserPattern, successRate float64, hasHistory bool) []string {
	lines := []string{
		fmt.Sprintf("Role %s scores %q at %.2f", analysis.role, best.Option, best.Role),
		fmt.Sprintf("Current view %q gives a context score of %.2f", analysis.currentView, best.Context),
	}

	if hasHistory {
		lines = append(lines, fmt.Sprintf("Past decisions for %q averaged %.2f confidence", best.Option, successRate))
	} else {
		lines = append(lines, fmt.Sprintf("No prior history for %q, assuming %.2f success rate", best.Option, defaultSuccessRate))
	}

	if analysis.complexity > highComplexity {
		lines = append(lines, "Context complexity is high, simpler options were favored")
	}
	if pattern.Efficiency < lowPatternEfficiency {
		lines = append(lines, "Learned efficiency is below average, familiar options were favored")
	}

	return lines
}

// alternatives returns up to max other options, in original input order.
func alternatives(options []string, chosen string, max int) []string {
	out := make([]string, 0, max)
	for _, option := range options {
		if option == chosen {
			continue
		}
		out = append(out, option)
		if len(out) == max {
			break
		}
	}
	return out
}
