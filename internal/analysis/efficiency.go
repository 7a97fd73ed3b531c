package analysis

import (
	"strings"
	"time"

	"github.com/pathlight/pathlight/pkg/models"
)

// Efficiency scoring constants.
const (
	// BaseEfficiency is the starting score before any term is applied.
	BaseEfficiency = 0.5

	// referenceInterval is the consecutive-interaction gap considered
	// "normal speed". Faster users score above 1 on the speed ratio.
	referenceInterval = 5 * time.Second

	// speedGapCutoff excludes long pauses from the mean interval.
	speedGapCutoff = time.Minute

	// repeatErrorWindow treats an immediate same-element repeat inside
	// this window as a correction.
	repeatErrorWindow = time.Second

	speedWeight    = 0.2
	errorWeight    = 0.3
	depthWeight    = 0.2
	workflowWeight = 0.3

	depthSaturation    = 50
	workflowSaturation = 10
	workflowMinFreq    = 2
)

// errorIndicators are element-name substrings counted as corrective actions.
var errorIndicators = []string{"undo", "cancel"}

// EfficiencyComponents is the breakdown of an efficiency score. Useful
// for explaining scores to callers.
type EfficiencyComponents struct {
	Base         float64 `json:"base"`
	SpeedTerm    float64 `json:"speed_term"`
	ErrorTerm    float64 `json:"error_term"`
	DepthTerm    float64 `json:"depth_term"`
	WorkflowTerm float64 `json:"workflow_term"`
	ErrorRate    float64 `json:"error_rate"`
	MeanInterval float64 `json:"mean_interval_ms"`
	FinalScore   float64 `json:"final_score"`
}

// Scorer computes the composite efficiency score for a user.
type Scorer struct{}

// NewScorer creates an efficiency scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the efficiency for a chronologically ordered log, using
// the sequence patterns already extracted from it.
//
// The formula:
//
//	Final = clamp(Base + Speed + Error + Depth + Workflow, 0, 1)
//
// Where:
//   - Base = 0.5
//   - Speed = (clamp(5000ms / meanInterval<60s, 0.1, 3) − 1) × 0.2
//   - Error = −errorRate × 0.3
//   - Depth = min(1, uniqueElements/50) × 0.2
//   - Workflow = min(1, sequencesWithFreq>2 / 10) × 0.3
func (s *Scorer) Score(log []models.Interaction, sequences []models.SequencePattern) float64 {
	return s.Components(log, sequences).FinalScore
}

// Components returns the individual terms of the efficiency score.
// Score() delegates to this.
func (s *Scorer) Components(log []models.Interaction, sequences []models.SequencePattern) EfficiencyComponents {
	c := EfficiencyComponents{Base: BaseEfficiency}

	c.MeanInterval = meanIntervalMillis(log)
	ratio := clamp(float64(referenceInterval.Milliseconds())/c.MeanInterval, 0.1, 3)
	c.SpeedTerm = (ratio - 1) * speedWeight

	c.ErrorRate = errorRate(log)
	c.ErrorTerm = -c.ErrorRate * errorWeight

	unique := make(map[string]struct{}, len(log))
	for _, entry := range log {
		unique[entry.Element] = struct{}{}
	}
	depth := float64(len(unique)) / depthSaturation
	if depth > 1 {
		depth = 1
	}
	c.DepthTerm = depth * depthWeight

	optimized := 0
	for _, seq := range sequences {
		if seq.Frequency > workflowMinFreq {
			optimized++
		}
	}
	workflow := float64(optimized) / workflowSaturation
	if workflow > 1 {
		workflow = 1
	}
	c.WorkflowTerm = workflow * workflowWeight

	c.FinalScore = models.Clamp01(c.Base + c.SpeedTerm + c.ErrorTerm + c.DepthTerm + c.WorkflowTerm)
	return c
}

// meanIntervalMillis is the mean of consecutive-interaction gaps under
// one minute, in milliseconds. Returns 1 when no gap qualifies so the
// speed ratio stays defined.
func meanIntervalMillis(log []models.Interaction) float64 {
	var total time.Duration
	count := 0
	for i := 1; i < len(log); i++ {
		gap := log[i].Timestamp.Sub(log[i-1].Timestamp)
		if gap >= 0 && gap < speedGapCutoff {
			total += gap
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return float64(total.Milliseconds()) / float64(count)
}

// errorRate is the share of interactions that look corrective: elements
// containing an error indicator, plus immediate same-element repeats
// within one second of the prior interaction. Capped at 1.
func errorRate(log []models.Interaction) float64 {
	if len(log) == 0 {
		return 0
	}

	errors := 0
	for i, entry := range log {
		lower := strings.ToLower(entry.Element)
		for _, indicator := range errorIndicators {
			if strings.Contains(lower, indicator) {
				errors++
				break
			}
		}
		if i > 0 &&
			entry.Element == log[i-1].Element &&
			entry.Timestamp.Sub(log[i-1].Timestamp) < repeatErrorWindow {
			errors++
		}
	}

	rate := float64(errors) / float64(len(log))
	if rate > 1 {
		rate = 1
	}
	return rate
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
