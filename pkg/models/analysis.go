package models

import "time"

// Priority ranks a recommendation for the host UI.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is a prioritized, user-facing suggestion derived from
// behavior analysis.
type Recommendation struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

// SequencePattern is a frequency-counted overlapping window of element
// names observed in a user's interaction log.
type SequencePattern struct {
	Key       string   `json:"key"`
	Elements  []string `json:"elements"`
	Frequency int      `json:"frequency"`
}

// BehaviorPatterns summarizes usage patterns extracted from the log.
type BehaviorPatterns struct {
	MostUsedFeatures   []string      `json:"mostUsedFeatures"`
	AverageSessionTime time.Duration `json:"averageSessionTime"`
	PreferredLayout    string        `json:"preferredLayout"`
	Efficiency         float64       `json:"efficiency"`
}

// Preferences captures inferred user preferences.
type Preferences struct {
	Theme     string            `json:"theme"`
	Language  string            `json:"language"`
	Shortcuts map[string]string `json:"shortcuts"`
}

// UserBehaviorAnalysis is the composed analysis for one user. One live
// entry per user is owned by the analysis cache while valid.
type UserBehaviorAnalysis struct {
	UserID          string           `json:"userId"`
	Role            Role             `json:"role"`
	Patterns        BehaviorPatterns `json:"patterns"`
	Preferences     Preferences      `json:"preferences"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generatedAt"`
}

// AnalysisConfig tunes the behavior analysis pipeline.
type AnalysisConfig struct {
	// MaxInteractions caps the per-user interaction log. Oldest entries
	// are evicted first.
	MaxInteractions int `json:"max_interactions"`

	// SessionGap is the idle gap that splits two sessions.
	SessionGap time.Duration `json:"session_gap"`

	// CacheTTL is how long a composed analysis stays valid.
	CacheTTL time.Duration `json:"cache_ttl"`

	// DebounceQuiet is the quiet period before a scheduled re-analysis fires.
	DebounceQuiet time.Duration `json:"debounce_quiet"`

	// MaxFeatures caps mostUsedFeatures.
	MaxFeatures int `json:"max_features"`

	// MaxSequences caps the reported sequence patterns.
	MaxSequences int `json:"max_sequences"`

	// MaxRecommendations caps the generated recommendations.
	MaxRecommendations int `json:"max_recommendations"`
}

// DefaultAnalysisConfig returns the default analysis configuration.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		MaxInteractions:    1000,
		SessionGap:         30 * time.Minute,
		CacheTTL:           5 * time.Minute,
		DebounceQuiet:      5 * time.Second,
		MaxFeatures:        5,
		MaxSequences:       10,
		MaxRecommendations: 5,
	}
}
