package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pathlight/pathlight/internal/storage"
	"github.com/pathlight/pathlight/pkg/models"
)

// EngineSuite is a test suite for the decision Engine.
type EngineSuite struct {
	suite.Suite
	repo   *storage.Memory
	engine *Engine
	now    time.Time
	ctx    context.Context
}

func (s *EngineSuite) SetupTest() {
	s.repo = storage.NewMemory()
	s.engine = NewEngine(s.repo, models.DefaultDecisionConfig())
	// Mid-morning on a workday
	s.now = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	s.engine.now = func() time.Time { return s.now }
	s.ctx = context.Background()
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) adminContext() models.DecisionContext {
	return models.DecisionContext{
		UserID:      "u1",
		Role:        models.RoleAdmin,
		CurrentView: "dashboard",
	}
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *EngineSuite) TestMakeDecision_GoodScenarios_AdminPrefersAdminPanel() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	result, err := s.engine.MakeDecision(s.ctx, s.adminContext(), []string{"help_center", "admin_panel"})

	s.Require().NoError(err)
	s.Equal("admin_panel", result.Decision, "role preference 0.9 dominates the default 0.3")
	s.NotEmpty(result.ID)
	s.Equal([]string{"help_center"}, result.Alternatives)
	s.NotEmpty(result.Reasoning)
}

func (s *EngineSuite) TestMakeDecision_GoodScenarios_ConfidenceFormula() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	result, err := s.engine.MakeDecision(s.ctx, s.adminContext(), []string{"admin_panel"})

	s.Require().NoError(err)
	// Complexity: 0.4 × 0.4 (dashboard) = 0.16
	// Confidence: 0.5 + (1 − 0.16) × 0.2 + 0.5 × 0.3 = 0.818
	s.InDelta(0.16, result.Context.Complexity, 0.001)
	s.InDelta(0.818, result.Confidence, 0.001)
}

func (s *EngineSuite) TestMakeDecision_GoodScenarios_Deterministic() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	dctx := s.adminContext()
	options := []string{"help_center", "admin_panel", "dashboard"}

	first, err := s.engine.MakeDecision(s.ctx, dctx, options)
	s.Require().NoError(err)
	second, err := s.engine.MakeDecision(s.ctx, dctx, options)
	s.Require().NoError(err)

	s.Equal(first.Decision, second.Decision, "identical inputs choose the same option")
	s.Equal(first.Alternatives, second.Alternatives)
}

func (s *EngineSuite) TestMakeDecision_GoodScenarios_TieKeepsInputOrder() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	// Unknown options score identically everywhere.
	dctx := models.DecisionContext{UserID: "u1", Role: models.RoleUser, CurrentView: "dashboard"}

	result, err := s.engine.MakeDecision(s.ctx, dctx, []string{"alpha", "beta"})

	s.Require().NoError(err)
	s.Equal("alpha", result.Decision, "ties resolve to the first option")
}

func (s *EngineSuite) TestMakeDecision_GoodScenarios_ViewRelevanceBreaksRoleDefaultTie() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	// Both options fall back to the admin default role score (0.3);
	// only summary_widget is relevant to the dashboard view, so the
	// context boost alone decides.
	result, err := s.engine.MakeDecision(s.ctx, s.adminContext(), []string{"mystery_option", "summary_widget"})

	s.Require().NoError(err)
	s.Equal("summary_widget", result.Decision)
	s.Equal([]string{"mystery_option"}, result.Alternatives)
}

func (s *EngineSuite) TestMakeDecision_GoodScenarios_HistoryFeedsSuccessRate() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	first, err := s.engine.MakeDecision(s.ctx, s.adminContext(), []string{"admin_panel"})
	s.Require().NoError(err)

	second, err := s.engine.MakeDecision(s.ctx, s.adminContext(), []string{"admin_panel"})
	s.Require().NoError(err)

	// Second call sees the first result's confidence as the success rate:
	// 0.5 + 0.84 × 0.2 + 0.818 × 0.3 ≈ 0.913
	s.InDelta(0.913, second.Confidence, 0.005)
	s.Greater(second.Confidence, first.Confidence)
	s.Equal(2, s.engine.History().Len())
}

func (s *EngineSuite) TestLearn_GoodScenarios_ShapesFutureDecisions() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	interaction := models.Interaction{
		Type:    models.InteractionClick,
		Element: "export_report",
		Role:    models.RoleAdmin,
		Context: models.InteractionContext{UserID: "u1"},
	}
	s.Require().NoError(s.engine.Learn(s.ctx, interaction, "success"))

	pattern := s.engine.Learning().Pattern("u1", models.RoleAdmin)
	s.Contains(pattern.PreferredFeatures, "export_report")

	// The learned preference lifts the pattern score for that option.
	dctx := models.DecisionContext{UserID: "u1", Role: models.RoleAdmin, CurrentView: "analysis"}
	result, err := s.engine.MakeDecision(s.ctx, dctx, []string{"audit_log", "export_report"})
	s.Require().NoError(err)
	s.Equal("export_report", result.Decision)
}

// =============================================================================
// WORSE SCENARIOS - Degraded but acceptable operations
// =============================================================================

func (s *EngineSuite) TestMakeDecision_WorseScenarios_UnknownRoleFallsBackToUser() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	dctx := models.DecisionContext{UserID: "u1", Role: "superuser", CurrentView: "dashboard"}

	result, err := s.engine.MakeDecision(s.ctx, dctx, []string{"help_center", "dashboard"})

	s.Require().NoError(err)
	s.Equal(models.RoleUser, result.Context.Role)
}

func (s *EngineSuite) TestMakeDecision_WorseScenarios_UnknownViewUsesDefaultComplexity() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	dctx := models.DecisionContext{UserID: "u1", Role: models.RoleUser, CurrentView: "mystery"}

	result, err := s.engine.MakeDecision(s.ctx, dctx, []string{"search"})

	s.Require().NoError(err)
	// 0.4 × 0.5 (default view complexity) = 0.2
	s.InDelta(0.2, result.Context.Complexity, 0.001)
}

func (s *EngineSuite) TestMakeDecision_WorseScenarios_ComplexContextFavorsSimpleOptions() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	dctx := models.DecisionContext{
		UserID:          "u1",
		Role:            models.RoleUser,
		CurrentView:     "analysis",
		RecentActions:   []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
		SessionDuration: 2 * time.Hour,
	}

	result, err := s.engine.MakeDecision(s.ctx, dctx, []string{"search"})

	s.Require().NoError(err)
	// 0.3 + 0.3 + 0.4 × 0.9 = 0.96
	s.InDelta(0.96, result.Context.Complexity, 0.001)
	s.Contains(result.Reasoning, "Context complexity is high, simpler options were favored")
}

func (s *EngineSuite) TestMakeDecision_WorseScenarios_AlternativesCapped() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	result, err := s.engine.MakeDecision(s.ctx, s.adminContext(),
		[]string{"admin_panel", "one", "two", "three", "four"})

	s.Require().NoError(err)
	s.Equal([]string{"one", "two"}, result.Alternatives, "at most two, in input order")
}

func (s *EngineSuite) TestMakeDecision_WorseScenarios_ConfidenceAlwaysInUnitRange() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	contexts := []models.DecisionContext{
		{UserID: "u1", Role: models.RoleAdmin, CurrentView: "help"},
		{UserID: "u1", Role: models.RoleUser, CurrentView: "analysis",
			RecentActions:   []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"},
			SessionDuration: 9 * time.Hour},
	}

	for _, dctx := range contexts {
		result, err := s.engine.MakeDecision(s.ctx, dctx, []string{"search", "terminal"})
		s.Require().NoError(err)
		s.GreaterOrEqual(result.Confidence, 0.0)
		s.LessOrEqual(result.Confidence, 1.0)
	}
}

// =============================================================================
// BAD SCENARIOS - Edge cases and error conditions
// =============================================================================

func (s *EngineSuite) TestMakeDecision_BadScenarios_NotInitialized() {
	_, err := s.engine.MakeDecision(s.ctx, s.adminContext(), []string{"admin_panel"})
	s.ErrorIs(err, ErrNotInitialized)
}

func (s *EngineSuite) TestMakeDecision_BadScenarios_NoOptions() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	_, err := s.engine.MakeDecision(s.ctx, s.adminContext(), nil)
	s.ErrorIs(err, ErrNoOptions)

	_, err = s.engine.MakeDecision(s.ctx, s.adminContext(), []string{})
	s.ErrorIs(err, ErrNoOptions)
}

func (s *EngineSuite) TestLearn_BadScenarios_NotInitialized() {
	interaction := models.Interaction{
		Type:    models.InteractionClick,
		Element: "save",
		Context: models.InteractionContext{UserID: "u1"},
	}

	err := s.engine.Learn(s.ctx, interaction, "success")
	s.ErrorIs(err, ErrNotInitialized)
}

func (s *EngineSuite) TestLearn_BadScenarios_InvalidInteraction() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	err := s.engine.Learn(s.ctx, models.Interaction{Element: "save"}, "success")
	s.Error(err, "missing userId is rejected")
}

func (s *EngineSuite) TestDestroy_BadScenarios_EngineUnusableAfterwards() {
	s.Require().NoError(s.engine.Initialize(s.ctx))
	s.Require().NoError(s.engine.Destroy(s.ctx))

	s.Equal(StateDestroyed, s.engine.State())

	_, err := s.engine.MakeDecision(s.ctx, s.adminContext(), []string{"admin_panel"})
	s.ErrorIs(err, ErrNotInitialized)

	s.ErrorIs(s.engine.Initialize(s.ctx), ErrNotInitialized, "destroyed engines cannot be revived")
}

func (s *EngineSuite) TestDestroy_BadScenarios_PersistsLearningState() {
	s.Require().NoError(s.engine.Initialize(s.ctx))

	interaction := models.Interaction{
		Type:    models.InteractionClick,
		Element: "export_report",
		Role:    models.RoleAdmin,
		Context: models.InteractionContext{UserID: "u1"},
	}
	s.Require().NoError(s.engine.Learn(s.ctx, interaction, "success"))
	s.Require().NoError(s.engine.Destroy(s.ctx))

	// A fresh engine over the same repository restores the learned state.
	reborn := NewEngine(s.repo, models.DefaultDecisionConfig())
	s.Require().NoError(reborn.Initialize(s.ctx))

	pattern := reborn.Learning().Pattern("u1", models.RoleAdmin)
	s.Contains(pattern.PreferredFeatures, "export_report")
}

func (s *EngineSuite) TestInitialize_BadScenarios_Idempotent() {
	s.Require().NoError(s.engine.Initialize(s.ctx))
	s.Require().NoError(s.engine.Initialize(s.ctx), "second initialize is a no-op")
}
