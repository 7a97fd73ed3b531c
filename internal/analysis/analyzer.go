package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/pathlight/pathlight/internal/interactions"
	"github.com/pathlight/pathlight/internal/storage"
	"github.com/pathlight/pathlight/pkg/models"
)

// auditKeyPrefix is where long-lived per-user analysis records live in
// the repository. These never expire; they are the audit history.
const auditKeyPrefix = "analysis:"

// DefaultLanguage is assumed until the host supplies locale information.
const DefaultLanguage = "en"

// Analyzer composes the per-user behavior analysis and owns its cache.
// Cache entries are valid for the configured TTL and are invalidated by
// every new interaction for that user.
type Analyzer struct {
	store     *interactions.Store
	repo      storage.Repository
	scorer    *Scorer
	generator *Generator
	config    models.AnalysisConfig

	// versions invalidates racing recomputes: an append that lands while
	// a compute is in flight bumps the version, and the stale result is
	// then returned to its caller but never cached.
	cache    map[string]*models.UserBehaviorAnalysis
	versions map[string]uint64
	cacheMu  sync.RWMutex
	group    singleflight.Group

	now     func() time.Time
	extract func(log []models.Interaction, maxFeatures, maxSequences int) *PatternSummary
}

// NewAnalyzer creates an analyzer over the given interaction store and
// repository. The repository may be nil; audit persistence is then skipped.
func NewAnalyzer(store *interactions.Store, repo storage.Repository, config models.AnalysisConfig) *Analyzer {
	return &Analyzer{
		store:     store,
		repo:      repo,
		scorer:    NewScorer(),
		generator: NewGenerator(config.MaxRecommendations),
		config:    config,
		cache:     make(map[string]*models.UserBehaviorAnalysis),
		versions:  make(map[string]uint64),
		now:       time.Now,
		extract:   ExtractPatterns,
	}
}

// AnalyzeUser returns the cached analysis when it is still valid, and
// otherwise recomputes it from the full interaction log. Concurrent
// recomputes for the same user are coalesced.
func (a *Analyzer) AnalyzeUser(ctx context.Context, userID string) (*models.UserBehaviorAnalysis, error) {
	if cached := a.cached(userID); cached != nil {
		return cached, nil
	}

	result, err, _ := a.group.Do(userID, func() (any, error) {
		// Re-check under singleflight: another caller may have just
		// finished the recompute.
		if cached := a.cached(userID); cached != nil {
			return cached, nil
		}
		return a.compute(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.UserBehaviorAnalysis), nil
}

// Recommendations returns the current recommendation list for the user.
func (a *Analyzer) Recommendations(ctx context.Context, userID string) ([]models.Recommendation, error) {
	analysis, err := a.AnalyzeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return analysis.Recommendations, nil
}

// Invalidate drops the user's cached analysis and marks any in-flight
// recompute stale.
func (a *Analyzer) Invalidate(userID string) {
	a.cacheMu.Lock()
	a.versions[userID]++
	delete(a.cache, userID)
	a.cacheMu.Unlock()
}

// version reads the user's invalidation counter.
func (a *Analyzer) version(userID string) uint64 {
	a.cacheMu.RLock()
	defer a.cacheMu.RUnlock()
	return a.versions[userID]
}

// cached returns the user's analysis when present and within the TTL.
func (a *Analyzer) cached(userID string) *models.UserBehaviorAnalysis {
	a.cacheMu.RLock()
	defer a.cacheMu.RUnlock()

	entry, ok := a.cache[userID]
	if !ok || a.now().Sub(entry.GeneratedAt) >= a.config.CacheTTL {
		return nil
	}
	return entry
}

// compute builds the analysis from the full log, caches it, and persists
// the audit record. Persistence failures are logged and non-fatal.
func (a *Analyzer) compute(ctx context.Context, userID string) (*models.UserBehaviorAnalysis, error) {
	version := a.version(userID)
	entries := a.store.List(userID)

	var analysis *models.UserBehaviorAnalysis
	if len(entries) == 0 {
		analysis = a.coldStart(userID)
	} else {
		var err error
		analysis, err = a.build(userID, entries)
		if err != nil {
			log.Error().Err(err).Str("user", userID).Msg("Behavior analysis failed")
			return nil, err
		}
	}

	a.cacheMu.Lock()
	if a.versions[userID] == version {
		a.cache[userID] = analysis
	}
	a.cacheMu.Unlock()

	a.persistAudit(ctx, analysis)

	log.Debug().
		Str("user", userID).
		Str("role", string(analysis.Role)).
		Float64("efficiency", analysis.Patterns.Efficiency).
		Int("recommendations", len(analysis.Recommendations)).
		Msg("Behavior analysis computed")

	return analysis, nil
}

// build derives the analysis from a non-empty log. A panic anywhere in
// segmentation, extraction, or scoring surfaces as a ComputationError
// to the caller; the cold-start default never substitutes for it.
func (a *Analyzer) build(userID string, entries []models.Interaction) (analysis *models.UserBehaviorAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ComputationError{Stage: "compute", Err: fmt.Errorf("%v", r)}
		}
	}()

	sessions := interactions.Segment(entries, a.config.SessionGap)
	summary := a.extract(entries, a.config.MaxFeatures, a.config.MaxSequences)
	efficiency := a.scorer.Score(entries, summary.SequencePatterns)

	return &models.UserBehaviorAnalysis{
		UserID: userID,
		Role:   ClassifyRole(entries),
		Patterns: models.BehaviorPatterns{
			MostUsedFeatures:   summary.MostUsedFeatures,
			AverageSessionTime: interactions.AverageSessionTime(sessions),
			PreferredLayout:    summary.PreferredLayout,
			Efficiency:         efficiency,
		},
		Preferences: models.Preferences{
			Theme:     summary.ThemePreference,
			Language:  DefaultLanguage,
			Shortcuts: summary.Shortcuts,
		},
		Recommendations: a.generator.Generate(summary, efficiency),
		GeneratedAt:     a.now(),
	}, nil
}

// coldStart is the default analysis for a user with no interactions.
func (a *Analyzer) coldStart(userID string) *models.UserBehaviorAnalysis {
	return &models.UserBehaviorAnalysis{
		UserID: userID,
		Role:   models.RoleUser,
		Patterns: models.BehaviorPatterns{
			MostUsedFeatures:   []string{},
			AverageSessionTime: 0,
			PreferredLayout:    DefaultLayout,
			Efficiency:         BaseEfficiency,
		},
		Preferences: models.Preferences{
			Theme:     "auto",
			Language:  DefaultLanguage,
			Shortcuts: map[string]string{},
		},
		Recommendations: []models.Recommendation{WelcomeRecommendation()},
		GeneratedAt:     a.now(),
	}
}

// persistAudit writes the non-expiring per-user analysis record.
func (a *Analyzer) persistAudit(ctx context.Context, analysis *models.UserBehaviorAnalysis) {
	if a.repo == nil {
		return
	}
	record, err := json.Marshal(analysis)
	if err != nil {
		log.Warn().Err(err).Str("user", analysis.UserID).Msg("Failed to encode analysis record")
		return
	}
	if err := a.repo.Save(ctx, auditKeyPrefix+analysis.UserID, record); err != nil {
		log.Warn().Err(err).Str("user", analysis.UserID).Msg("Failed to persist analysis record")
	}
}

// ClassifyRole derives a role from the log by counting indicator
// substrings in element names. Ties resolve by the fixed precedence
// admin > developer > user.
func ClassifyRole(entries []models.Interaction) models.Role {
	counts := make(map[models.Role]int, len(models.AllRoles))
	for _, entry := range entries {
		lower := strings.ToLower(entry.Element)
		for role, indicators := range models.RoleIndicators {
			for _, indicator := range indicators {
				if strings.Contains(lower, indicator) {
					counts[role]++
				}
			}
		}
	}

	best := models.RoleUser
	bestCount := -1
	for _, role := range models.AllRoles {
		if counts[role] > bestCount {
			best = role
			bestCount = counts[role]
		}
	}
	return best
}
