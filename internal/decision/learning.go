package decision

import (
	"context"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/pathlight/pathlight/internal/storage"
	"github.com/pathlight/pathlight/pkg/models"
)

// learningRecordKey is where the serialized learning state lives in the
// repository.
const learningRecordKey = "decision:learning"

// LearningRecord accumulates interaction→outcome pairs for one
// role_type_element key.
type LearningRecord struct {
	Key              string         `json:"key"`
	Interactions     int            `json:"interactions"`
	Outcomes         []string       `json:"outcomes"`
	OutcomeFrequency map[string]int `json:"outcomeFrequency"`
}

// LearningStore accumulates learning records and per-(user,role)
// preference patterns. Owned by one engine instance; persisted through
// the Repository on Destroy and restored on Initialize.
type LearningStore struct {
	records    map[string]*LearningRecord
	patterns   map[string]models.UserPattern
	outcomeCap int
	mu         sync.RWMutex
}

// NewLearningStore creates an empty learning store. outcomeCap bounds each
// record's outcome ring.
func NewLearningStore(outcomeCap int) *LearningStore {
	if outcomeCap <= 0 {
		outcomeCap = models.DefaultDecisionConfig().OutcomeHistorySize
	}
	return &LearningStore{
		records:    make(map[string]*LearningRecord),
		patterns:   make(map[string]models.UserPattern),
		outcomeCap: outcomeCap,
	}
}

// recordKey builds the role_type_element learning key.
func recordKey(role models.Role, interactionType models.InteractionType, element string) string {
	return fmt.Sprintf("%s_%s_%s", role, interactionType, element)
}

// patternKey builds the per-(user,role) pattern key.
func patternKey(userID string, role models.Role) string {
	return userID + "_" + string(role)
}

// Learn records an interaction→outcome pair: appends to the key's outcome
// history (oldest dropped beyond the cap), recomputes the key's outcome
// frequencies, and appends the element to the user's preferred features
// if not already present.
func (s *LearningStore) Learn(interaction models.Interaction, outcome string) {
	role := interaction.Role
	if !role.Valid() {
		role = models.RoleUser
	}
	key := recordKey(role, interaction.Type, interaction.Element)

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		record = &LearningRecord{Key: key, OutcomeFrequency: make(map[string]int)}
		s.records[key] = record
	}

	record.Interactions++
	record.Outcomes = append(record.Outcomes, outcome)
	if over := len(record.Outcomes) - s.outcomeCap; over > 0 {
		record.Outcomes = record.Outcomes[over:]
	}

	record.OutcomeFrequency = make(map[string]int, 4)
	for _, o := range record.Outcomes {
		record.OutcomeFrequency[o]++
	}

	pk := patternKey(interaction.Context.UserID, role)
	pattern, ok := s.patterns[pk]
	if !ok {
		pattern = models.DefaultUserPattern()
	}
	found := false
	for _, f := range pattern.PreferredFeatures {
		if f == interaction.Element {
			found = true
			break
		}
	}
	if !found {
		pattern.PreferredFeatures = append(pattern.PreferredFeatures, interaction.Element)
	}
	s.patterns[pk] = pattern
}

// Pattern returns the learned pattern for (userID, role), or the default
// profile when nothing has been learned yet.
func (s *LearningStore) Pattern(userID string, role models.Role) models.UserPattern {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pattern, ok := s.patterns[patternKey(userID, role)]; ok {
		return pattern
	}
	return models.DefaultUserPattern()
}

// SetPattern replaces the stored pattern for (userID, role). Used to fold
// analysis results (efficiency, session time) into the decision path.
func (s *LearningStore) SetPattern(userID string, role models.Role, pattern models.UserPattern) {
	s.mu.Lock()
	s.patterns[patternKey(userID, role)] = pattern
	s.mu.Unlock()
}

// Record returns a copy of the learning record for the key, if any.
func (s *LearningStore) Record(role models.Role, interactionType models.InteractionType, element string) (LearningRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[recordKey(role, interactionType, element)]
	if !ok {
		return LearningRecord{}, false
	}
	return *record, true
}

// Size returns the number of learning records.
func (s *LearningStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear drops all in-memory learning state.
func (s *LearningStore) Clear() {
	s.mu.Lock()
	s.records = make(map[string]*LearningRecord)
	s.patterns = make(map[string]models.UserPattern)
	s.mu.Unlock()
}

// persistedState is the serialized form of the learning store.
type persistedState struct {
	Records  map[string]*LearningRecord    `json:"records"`
	Patterns map[string]models.UserPattern `json:"patterns"`
}

// LoadFrom restores learning state from the repository. A missing record
// or load failure leaves the store empty and is non-fatal.
func (s *LearningStore) LoadFrom(ctx context.Context, repo storage.Repository) {
	if repo == nil {
		return
	}

	data, err := repo.Load(ctx, learningRecordKey)
	if err != nil {
		if err != storage.ErrNotFound {
			log.Warn().Err(err).Msg("Failed to load learning data, starting empty")
		}
		return
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Warn().Err(err).Msg("Corrupt learning record, starting empty")
		return
	}

	s.mu.Lock()
	if state.Records != nil {
		s.records = state.Records
	}
	if state.Patterns != nil {
		s.patterns = state.Patterns
	}
	s.mu.Unlock()

	log.Info().
		Int("records", len(state.Records)).
		Int("patterns", len(state.Patterns)).
		Msg("Learning data loaded")
}

// SaveTo persists learning state to the repository.
func (s *LearningStore) SaveTo(ctx context.Context, repo storage.Repository) error {
	if repo == nil {
		return nil
	}

	s.mu.RLock()
	state := persistedState{Records: s.records, Patterns: s.patterns}
	data, err := json.Marshal(state)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode learning state: %w", err)
	}

	return repo.Save(ctx, learningRecordKey, data)
}
