package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pathlight/pathlight/pkg/models"
)

// Recommendation rule thresholds.
const (
	lowEfficiencyThreshold = 0.6
	minFeatureBreadth      = 3
	minShortcutMappings    = 5
)

// WelcomeRecommendation is the single canned suggestion returned for a
// user with no recorded interactions.
func WelcomeRecommendation() models.Recommendation {
	return models.Recommendation{
		ID:          "welcome",
		Type:        "onboarding",
		Title:       "Welcome to the workspace",
		Description: "Start exploring — suggestions will appear here once there is some activity to learn from.",
		Priority:    models.PriorityMedium,
	}
}

// Generator produces prioritized recommendations from a pattern summary
// and efficiency score. Rules are evaluated in fixed order; each rule is
// independently eligible and output is capped.
type Generator struct {
	max int
}

// NewGenerator creates a recommendation generator. A non-positive cap
// falls back to the default of 5.
func NewGenerator(max int) *Generator {
	if max <= 0 {
		max = models.DefaultAnalysisConfig().MaxRecommendations
	}
	return &Generator{max: max}
}

// Generate evaluates the rule set against the summary. The caller handles
// the cold-start case; an empty summary here still runs the rules.
func (g *Generator) Generate(summary *PatternSummary, efficiency float64) []models.Recommendation {
	var recs []models.Recommendation

	if efficiency < lowEfficiencyThreshold {
		recs = append(recs, models.Recommendation{
			ID:          "improve-efficiency",
			Type:        "efficiency",
			Title:       "Improve your efficiency",
			Description: "Frequent corrections and slow transitions were detected. Reviewing common workflows may help.",
			Priority:    models.PriorityHigh,
		})
	}

	if len(summary.MostUsedFeatures) < minFeatureBreadth {
		recs = append(recs, models.Recommendation{
			ID:          "explore-features",
			Type:        "discovery",
			Title:       "Explore more features",
			Description: "Usage is concentrated on a few features. Exploring the rest of the workspace can unlock faster paths.",
			Priority:    models.PriorityMedium,
		})
	}

	if hours := summary.PeakHours; len(hours) > 0 {
		recs = append(recs, models.Recommendation{
			ID:          "optimize-schedule",
			Type:        "schedule",
			Title:       "Optimize your schedule",
			Description: fmt.Sprintf("Most activity happens around %s. Scheduling focused work in those hours may help.", formatHours(hours)),
			Priority:    models.PriorityLow,
		})
	}

	if len(summary.Shortcuts) < minShortcutMappings {
		recs = append(recs, models.Recommendation{
			ID:          "learn-shortcuts",
			Type:        "shortcuts",
			Title:       "Learn keyboard shortcuts",
			Description: "Few keyboard shortcuts are in use. Learning the common ones speeds up repeated actions.",
			Priority:    models.PriorityMedium,
		})
	}

	if len(recs) > g.max {
		recs = recs[:g.max]
	}
	return recs
}

// formatHours renders peak hours like "9:00, 10:00, 14:00".
func formatHours(hours []int) string {
	sorted := make([]int, len(hours))
	copy(sorted, hours)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, h := range sorted {
		parts[i] = fmt.Sprintf("%d:00", h)
	}
	return strings.Join(parts, ", ")
}
