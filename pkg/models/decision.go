package models

import "time"

// DecisionContext is the situation the decision engine scores candidate
// options against.
type DecisionContext struct {
	UserID          string        `json:"userId"`
	Role            Role          `json:"role"`
	CurrentView     string        `json:"currentView"`
	RecentActions   []string      `json:"recentActions,omitempty"`
	SessionDuration time.Duration `json:"sessionDuration,omitempty"`
}

// DecisionMeta carries the context echoed back with a decision result.
type DecisionMeta struct {
	Role           Role          `json:"role"`
	CurrentView    string        `json:"currentView"`
	Complexity     float64       `json:"complexity"`
	ProcessingTime time.Duration `json:"processingTime"`
	Timestamp      time.Time     `json:"timestamp"`
}

// DecisionResult is the outcome of one MakeDecision call.
type DecisionResult struct {
	ID           string       `json:"id"`
	Decision     string       `json:"decision"`
	Confidence   float64      `json:"confidence"`
	Reasoning    []string     `json:"reasoning"`
	Alternatives []string     `json:"alternatives"`
	Context      DecisionMeta `json:"context"`
}

// UserPattern is the learned per-(user,role) preference profile consumed
// by the pattern-based decision strategy.
type UserPattern struct {
	PreferredFeatures  []string      `json:"preferredFeatures"`
	AverageSessionTime time.Duration `json:"averageSessionTime"`
	CommonWorkflows    []string      `json:"commonWorkflows"`
	Efficiency         float64       `json:"efficiency"`
}

// DefaultUserPattern is the profile used before anything has been learned
// for a (user, role) pair.
func DefaultUserPattern() UserPattern {
	return UserPattern{
		PreferredFeatures:  []string{},
		AverageSessionTime: 0,
		CommonWorkflows:    []string{},
		Efficiency:         0.5,
	}
}

// StrategyWeights combines the four decision strategies into one total.
// The weights sum to 1.
type StrategyWeights struct {
	Role    float64 `json:"role"`
	Pattern float64 `json:"pattern"`
	Context float64 `json:"context"`
	Time    float64 `json:"time"`
}

// DecisionConfig holds the strategy tables and limits for the decision
// engine. Tables are injected rather than ambient so one engine instance
// owns its state and tests can substitute fixtures.
type DecisionConfig struct {
	Weights StrategyWeights `json:"weights"`

	// RolePreferences scores options per role. Options absent from a
	// role's table fall back to RoleDefaults.
	RolePreferences map[Role]map[string]float64 `json:"role_preferences"`
	RoleDefaults    map[Role]float64            `json:"role_defaults"`

	// ViewComplexity rates each known view in [0,1]; unknown views use
	// DefaultViewComplexity.
	ViewComplexity map[string]float64 `json:"view_complexity"`

	// ViewRelevance lists the options considered relevant to each view.
	ViewRelevance map[string][]string `json:"view_relevance"`

	// SimpleOptions and EfficiencyOptions tag options for the context and
	// time strategies.
	SimpleOptions     map[string]bool `json:"simple_options"`
	EfficiencyOptions map[string]bool `json:"efficiency_options"`

	// HistorySize caps the decision history ring buffer.
	HistorySize int `json:"history_size"`

	// OutcomeHistorySize caps each learning key's outcome ring.
	OutcomeHistorySize int `json:"outcome_history_size"`

	// MaxAlternatives caps the alternatives echoed with a result.
	MaxAlternatives int `json:"max_alternatives"`
}

// DefaultViewComplexity is the fallback for views absent from the table.
const DefaultViewComplexity = 0.5

// DefaultDecisionConfig returns the default decision engine configuration.
func DefaultDecisionConfig() DecisionConfig {
	return DecisionConfig{
		Weights: StrategyWeights{
			Role:    0.30,
			Pattern: 0.30,
			Context: 0.25,
			Time:    0.15,
		},
		RolePreferences: map[Role]map[string]float64{
			RoleAdmin: {
				"admin_panel":     0.9,
				"user_management": 0.85,
				"system_settings": 0.8,
				"config_editor":   0.7,
				"audit_log":       0.6,
			},
			RoleDeveloper: {
				"code_editor":   0.9,
				"debug_console": 0.85,
				"terminal":      0.8,
				"analysis_view": 0.7,
				"git_panel":     0.6,
			},
			RoleUser: {
				"help_center":   0.8,
				"dashboard":     0.7,
				"quick_actions": 0.65,
				"search":        0.6,
			},
		},
		RoleDefaults: map[Role]float64{
			RoleAdmin:     0.3,
			RoleDeveloper: 0.4,
			RoleUser:      0.5,
		},
		ViewComplexity: map[string]float64{
			"dashboard": 0.4,
			"editor":    0.8,
			"settings":  0.3,
			"analysis":  0.9,
			"terminal":  0.7,
			"help":      0.2,
		},
		ViewRelevance: map[string][]string{
			"dashboard": {"quick_actions", "search", "summary_widget"},
			"editor":    {"code_editor", "debug_console", "terminal"},
			"settings":  {"config_editor", "system_settings"},
			"analysis":  {"analysis_view", "export_report"},
			"help":      {"help_center", "search"},
		},
		SimpleOptions: map[string]bool{
			"quick_actions": true,
			"search":        true,
			"help_center":   true,
			"dashboard":     true,
		},
		EfficiencyOptions: map[string]bool{
			"quick_actions": true,
			"terminal":      true,
			"code_editor":   true,
			"admin_panel":   true,
		},
		HistorySize:        1000,
		OutcomeHistorySize: 1000,
		MaxAlternatives:    2,
	}
}
