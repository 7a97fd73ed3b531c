// Package analysis extracts usage patterns from interaction logs, scores
// user efficiency, and composes cached per-user behavior analyses.
package analysis

import (
	"sort"
	"strings"

	"github.com/pathlight/pathlight/pkg/models"
)

// DefaultLayout is assumed when an interaction carries no layout context.
const DefaultLayout = "default"

// sequenceWindow is the length of the overlapping element windows counted
// as sequence patterns.
const sequenceWindow = 3

// PatternSummary is the raw output of pattern extraction over one user's
// interaction log.
type PatternSummary struct {
	FeatureCounts    map[string]int
	MostUsedFeatures []string
	PreferredLayout  string
	TimeDistribution [24]int
	SequencePatterns []models.SequencePattern
	ThemePreference  string
	PeakHours        []int
	UniqueElements   int
	Shortcuts        map[string]string
}

// ExtractPatterns computes the pattern summary for a chronologically
// ordered interaction log. Ties in frequency rankings are broken by order
// of first occurrence in the log.
func ExtractPatterns(log []models.Interaction, maxFeatures, maxSequences int) *PatternSummary {
	if maxFeatures <= 0 {
		maxFeatures = models.DefaultAnalysisConfig().MaxFeatures
	}
	if maxSequences <= 0 {
		maxSequences = models.DefaultAnalysisConfig().MaxSequences
	}

	summary := &PatternSummary{
		FeatureCounts: make(map[string]int),
		Shortcuts:     make(map[string]string),
	}

	layoutCounts := make(map[string]int)
	featureFirst := make(map[string]int)
	layoutFirst := make(map[string]int)

	for i, entry := range log {
		if _, seen := summary.FeatureCounts[entry.Element]; !seen {
			featureFirst[entry.Element] = i
		}
		summary.FeatureCounts[entry.Element]++

		layout := entry.Context.Layout
		if layout == "" {
			layout = DefaultLayout
		}
		if _, seen := layoutCounts[layout]; !seen {
			layoutFirst[layout] = i
		}
		layoutCounts[layout]++

		summary.TimeDistribution[entry.Timestamp.Hour()]++

		if entry.Context.Shortcut != "" {
			summary.Shortcuts[entry.Context.Shortcut] = entry.Element
		}
	}

	summary.UniqueElements = len(summary.FeatureCounts)
	summary.MostUsedFeatures = rankByCount(summary.FeatureCounts, featureFirst, maxFeatures)
	summary.PreferredLayout = topByCount(layoutCounts, layoutFirst, DefaultLayout)
	summary.SequencePatterns = extractSequences(log, maxSequences)
	summary.PeakHours = peakHours(summary.TimeDistribution)
	summary.ThemePreference = themePreference(summary.TimeDistribution)

	return summary
}

// rankByCount returns up to limit keys ordered by count descending, ties
// broken by first occurrence.
func rankByCount(counts map[string]int, first map[string]int, limit int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return first[keys[i]] < first[keys[j]]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

// topByCount returns the mode of counts, ties broken by first occurrence.
func topByCount(counts map[string]int, first map[string]int, fallback string) string {
	best := fallback
	bestCount := -1
	bestFirst := 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && first[k] < bestFirst) {
			best = k
			bestCount = c
			bestFirst = first[k]
		}
	}
	return best
}

// extractSequences counts all overlapping length-3 windows of element
// values and returns the top maxSequences by frequency.
func extractSequences(log []models.Interaction, maxSequences int) []models.SequencePattern {
	if len(log) < sequenceWindow {
		return nil
	}

	counts := make(map[string]int)
	elements := make(map[string][]string)
	first := make(map[string]int)

	for i := 0; i+sequenceWindow <= len(log); i++ {
		window := make([]string, sequenceWindow)
		for j := 0; j < sequenceWindow; j++ {
			window[j] = log[i+j].Element
		}
		key := strings.Join(window, "→")
		if _, seen := counts[key]; !seen {
			first[key] = i
			elements[key] = window
		}
		counts[key]++
	}

	keys := rankByCount(counts, first, maxSequences)
	patterns := make([]models.SequencePattern, 0, len(keys))
	for _, key := range keys {
		patterns = append(patterns, models.SequencePattern{
			Key:       key,
			Elements:  elements[key],
			Frequency: counts[key],
		})
	}
	return patterns
}

// peakHours returns the hours whose interaction count is at least 80% of
// the busiest hour's count.
func peakHours(distribution [24]int) []int {
	max := 0
	for _, c := range distribution {
		if c > max {
			max = c
		}
	}
	if max == 0 {
		return nil
	}

	threshold := 0.8 * float64(max)
	var hours []int
	for h, c := range distribution {
		if float64(c) >= threshold {
			hours = append(hours, h)
		}
	}
	return hours
}

// themePreference infers a theme from the hour-of-day histogram: hours in
// [6,18) count as day, the rest as night. A strong skew (>1.5x) picks
// dark or light; otherwise auto.
func themePreference(distribution [24]int) string {
	day, night := 0, 0
	for h, c := range distribution {
		if h >= 6 && h < 18 {
			day += c
		} else {
			night += c
		}
	}

	switch {
	case float64(night) > float64(day)*1.5:
		return "dark"
	case float64(day) > float64(night)*1.5:
		return "light"
	default:
		return "auto"
	}
}
