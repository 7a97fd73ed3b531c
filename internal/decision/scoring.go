package decision

import (
	"github.com/pathlight/pathlight/pkg/models"
)

// Strategy scoring constants.
const (
	patternPreferredScore = 0.8
	patternBaseScore      = 0.3
	patternEfficiencyGain = 0.2

	contextBaseScore     = 0.5
	contextViewBoost     = 0.3
	contextSimpleBoost   = 0.2
	highComplexity       = 0.7
	lowPatternEfficiency = 0.5

	timeBaseScore   = 0.5
	timeBoost       = 0.2
	workdayStart    = 9
	workdayEnd      = 17
	complexityHours = 3600.0
)

// OptionScores is the per-option strategy breakdown. Every sub-score is
// clamped to [0,1] before the weighted total is formed.
type OptionScores struct {
	Option  string  `json:"option"`
	Role    float64 `json:"role"`
	Pattern float64 `json:"pattern"`
	Context float64 `json:"context"`
	Time    float64 `json:"time"`
	Total   float64 `json:"total"`
}

// contextAnalysis is the derived view of a decision context used by the
// strategies.
type contextAnalysis struct {
	role            models.Role
	currentView     string
	recentActions   []string
	timeOfDay       int
	sessionDuration float64 // seconds
	complexity      float64
}

// analyzeContext derives complexity and time-of-day from the raw context.
func (e *Engine) analyzeContext(ctx models.DecisionContext, hour int) contextAnalysis {
	role := ctx.Role
	if !role.Valid() {
		role = models.RoleUser
	}

	seconds := ctx.SessionDuration.Seconds()

	actions := float64(len(ctx.RecentActions))
	if actions > 10 {
		actions = 10
	}
	duration := seconds
	if duration > complexityHours {
		duration = complexityHours
	}

	view := e.config.ViewComplexity[ctx.CurrentView]
	if _, known := e.config.ViewComplexity[ctx.CurrentView]; !known {
		view = models.DefaultViewComplexity
	}

	complexity := models.Clamp01(0.3*actions/10 + 0.3*duration/complexityHours + 0.4*view)

	return contextAnalysis{
		role:            role,
		currentView:     ctx.CurrentView,
		recentActions:   ctx.RecentActions,
		timeOfDay:       hour,
		sessionDuration: seconds,
		complexity:      complexity,
	}
}

// scoreOption computes the four strategy scores for one option and
// combines them by the configured weights.
func (e *Engine) scoreOption(option string, analysis contextAnalysis, pattern models.UserPattern) OptionScores {
	scores := OptionScores{
		Option:  option,
		Role:    e.roleScore(option, analysis.role),
		Pattern: patternScore(option, pattern),
		Context: e.contextScore(option, analysis),
		Time:    e.timeScore(option, analysis.timeOfDay),
	}

	w := e.config.Weights
	scores.Total = w.Role*scores.Role +
		w.Pattern*scores.Pattern +
		w.Context*scores.Context +
		w.Time*scores.Time
	return scores
}

// roleScore looks the option up in the role's preference table, falling
// back to the per-role default.
func (e *Engine) roleScore(option string, role models.Role) float64 {
	if prefs, ok := e.config.RolePreferences[role]; ok {
		if score, ok := prefs[option]; ok {
			return models.Clamp01(score)
		}
	}
	return models.Clamp01(e.config.RoleDefaults[role])
}

// patternScore rewards options in the user's preferred-features list and
// adds a small efficiency bonus.
func patternScore(option string, pattern models.UserPattern) float64 {
	score := patternBaseScore
	for _, feature := range pattern.PreferredFeatures {
		if feature == option {
			score = patternPreferredScore
			break
		}
	}
	return models.Clamp01(score + pattern.Efficiency*patternEfficiencyGain)
}

// contextScore rewards options relevant to the current view, and simple
// options when the context is complex.
func (e *Engine) contextScore(option string, analysis contextAnalysis) float64 {
	score := contextBaseScore
	for _, relevant := range e.config.ViewRelevance[analysis.currentView] {
		if relevant == option {
			score += contextViewBoost
			break
		}
	}
	if analysis.complexity > highComplexity && e.config.SimpleOptions[option] {
		score += contextSimpleBoost
	}
	return models.Clamp01(score)
}

// timeScore rewards efficiency options during working hours and simple
// options outside them.
func (e *Engine) timeScore(option string, hour int) float64 {
	score := timeBaseScore
	if hour >= workdayStart && hour < workdayEnd {
		if e.config.EfficiencyOptions[option] {
			score += timeBoost
		}
	} else if e.config.SimpleOptions[option] {
		score += timeBoost
	}
	return models.Clamp01(score)
}
