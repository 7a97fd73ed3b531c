package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pathlight/pathlight/pkg/models"
)

// ScorerSuite is a test suite for the efficiency Scorer.
type ScorerSuite struct {
	suite.Suite
	scorer *Scorer
	now    time.Time
}

func (s *ScorerSuite) SetupTest() {
	s.scorer = NewScorer()
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestScorerSuite(t *testing.T) {
	suite.Run(t, new(ScorerSuite))
}

func (s *ScorerSuite) interaction(element string, ts time.Time) models.Interaction {
	return models.Interaction{
		Timestamp: ts,
		Type:      models.InteractionClick,
		Element:   element,
		Context:   models.InteractionContext{UserID: "u1"},
	}
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *ScorerSuite) TestScore_GoodScenarios_EmptyLog() {
	// No gaps qualify, so the ratio saturates at 3: 0.5 + 0.4 = 0.9
	score := s.scorer.Score(nil, nil)
	s.InDelta(0.9, score, 0.01, "empty log scores base plus saturated speed")
}

func (s *ScorerSuite) TestScore_GoodScenarios_ReferenceSpeed() {
	// Interactions exactly 5s apart have speed ratio 1 → speed term 0.
	log := []models.Interaction{
		s.interaction("a", s.now),
		s.interaction("b", s.now.Add(5*time.Second)),
		s.interaction("c", s.now.Add(10*time.Second)),
	}

	c := s.scorer.Components(log, nil)

	s.InDelta(0, c.SpeedTerm, 0.001, "reference interval yields a neutral speed term")
	// Base 0.5 + depth 3/50×0.2 = 0.512
	s.InDelta(0.512, c.FinalScore, 0.01)
}

func (s *ScorerSuite) TestScore_GoodScenarios_FastCleanUser() {
	// Fast distinct interactions, no corrections: speed saturates at 3.
	log := []models.Interaction{
		s.interaction("a", s.now),
		s.interaction("b", s.now.Add(time.Second)),
		s.interaction("c", s.now.Add(2*time.Second)),
	}

	c := s.scorer.Components(log, nil)

	// ratio = 5000/1000 = 5 → clamped to 3 → speed = 0.4
	s.InDelta(0.4, c.SpeedTerm, 0.001)
	s.Zero(c.ErrorRate)
	// 0.5 + 0.4 + 3/50×0.2 = 0.912
	s.InDelta(0.912, c.FinalScore, 0.01)
}

func (s *ScorerSuite) TestScore_GoodScenarios_RapidRepeatScoresNearThreeQuarters() {
	// Two same-element clicks 500ms apart: the repeat counts as a
	// correction, the short gap saturates speed.
	log := []models.Interaction{
		s.interaction("save-button", s.now),
		s.interaction("save-button", s.now.Add(500*time.Millisecond)),
	}

	c := s.scorer.Components(log, nil)

	s.InDelta(0.5, c.ErrorRate, 0.001, "one of two interactions is a correction")
	// 0.5 + 0.4 − 0.15 + 0.004 = 0.754
	s.InDelta(0.75, c.FinalScore, 0.01)
}

func (s *ScorerSuite) TestScore_GoodScenarios_WorkflowBoost() {
	// Established sequences (frequency above 2) add the workflow term.
	log := []models.Interaction{
		s.interaction("a", s.now),
		s.interaction("b", s.now.Add(5*time.Second)),
	}
	sequences := []models.SequencePattern{
		{Key: "a→b→c", Frequency: 3},
		{Key: "b→c→d", Frequency: 5},
		{Key: "c→d→e", Frequency: 2}, // not above the threshold
	}

	c := s.scorer.Components(log, sequences)

	// 2 optimized sequences / 10 × 0.3 = 0.06
	s.InDelta(0.06, c.WorkflowTerm, 0.001)
}

// =============================================================================
// WORSE SCENARIOS - Degraded but acceptable operations
// =============================================================================

func (s *ScorerSuite) TestScore_WorseScenarios_SlowUser() {
	// 50-second gaps: ratio 0.1 (clamp floor) → speed term −0.18.
	log := []models.Interaction{
		s.interaction("a", s.now),
		s.interaction("b", s.now.Add(50*time.Second)),
	}

	c := s.scorer.Components(log, nil)

	s.InDelta(-0.18, c.SpeedTerm, 0.001)
	s.Less(c.FinalScore, BaseEfficiency, "slow interaction drags below base")
}

func (s *ScorerSuite) TestScore_WorseScenarios_LongPausesExcluded() {
	// Gaps of a minute or more are idle time, not slowness.
	log := []models.Interaction{
		s.interaction("a", s.now),
		s.interaction("b", s.now.Add(10*time.Minute)),
		s.interaction("c", s.now.Add(10*time.Minute+2*time.Second)),
	}

	c := s.scorer.Components(log, nil)

	s.InDelta(2000, c.MeanInterval, 1, "only the 2s gap qualifies")
}

func (s *ScorerSuite) TestScore_WorseScenarios_ErrorProneUser() {
	log := []models.Interaction{
		s.interaction("undo-button", s.now),
		s.interaction("cancel-dialog", s.now.Add(5*time.Second)),
		s.interaction("save", s.now.Add(10*time.Second)),
		s.interaction("export", s.now.Add(15*time.Second)),
	}

	c := s.scorer.Components(log, nil)

	s.InDelta(0.5, c.ErrorRate, 0.001, "undo and cancel count as corrections")
	s.InDelta(-0.15, c.ErrorTerm, 0.001)
}

// =============================================================================
// BAD SCENARIOS - Edge cases and error conditions
// =============================================================================

func (s *ScorerSuite) TestScore_BadScenarios_ScoreAlwaysInUnitRange() {
	// Pathological logs must never escape [0, 1].
	logs := [][]models.Interaction{
		nil,
		{s.interaction("undo", s.now)},
		func() []models.Interaction {
			// All corrections at maximum speed
			var log []models.Interaction
			for i := 0; i < 100; i++ {
				log = append(log, s.interaction("undo", s.now.Add(time.Duration(i)*100*time.Millisecond)))
			}
			return log
		}(),
		func() []models.Interaction {
			// Maximum depth and workflow at top speed
			var log []models.Interaction
			for i := 0; i < 100; i++ {
				log = append(log, s.interaction(fmt.Sprintf("el-%d", i), s.now.Add(time.Duration(i)*time.Second)))
			}
			return log
		}(),
	}
	sequences := []models.SequencePattern{
		{Key: "a→b→c", Frequency: 100},
		{Key: "b→c→d", Frequency: 100},
	}

	for i, log := range logs {
		score := s.scorer.Score(log, sequences)
		s.GreaterOrEqual(score, 0.0, "log %d", i)
		s.LessOrEqual(score, 1.0, "log %d", i)
	}
}

func (s *ScorerSuite) TestScore_BadScenarios_OutOfOrderTimestamps() {
	// Negative gaps are skipped rather than poisoning the mean.
	log := []models.Interaction{
		s.interaction("a", s.now),
		s.interaction("b", s.now.Add(-10*time.Second)),
		s.interaction("c", s.now.Add(5*time.Second)),
	}

	c := s.scorer.Components(log, nil)

	s.InDelta(15000, c.MeanInterval, 1, "only the forward gap counts")
}

func (s *ScorerSuite) TestScore_BadScenarios_ErrorRateCappedAtOne() {
	// An entry can be both an indicator match and a rapid repeat.
	log := []models.Interaction{
		s.interaction("undo", s.now),
		s.interaction("undo", s.now.Add(100*time.Millisecond)),
	}

	c := s.scorer.Components(log, nil)

	s.LessOrEqual(c.ErrorRate, 1.0)
	s.GreaterOrEqual(c.FinalScore, 0.0)
}
