// Package interactions provides the capped per-user interaction log and
// session segmentation over it.
package interactions

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pathlight/pathlight/pkg/models"
)

// AppendFunc is notified after an interaction is recorded for a user.
type AppendFunc func(userID string)

// Store is an append-only, capped, per-user ordered log of interaction
// events. Safe for concurrent use.
type Store struct {
	logs     map[string][]models.Interaction
	cap      int
	onAppend AppendFunc
	mu       sync.RWMutex
}

// NewStore creates an interaction store. A non-positive cap falls back to
// the default of 1000 entries per user.
func NewStore(cap int) *Store {
	if cap <= 0 {
		cap = models.DefaultAnalysisConfig().MaxInteractions
	}
	return &Store{
		logs: make(map[string][]models.Interaction),
		cap:  cap,
	}
}

// SetOnAppend sets the post-append callback. Must be called before the
// store is shared between goroutines.
func (s *Store) SetOnAppend(fn AppendFunc) {
	s.onAppend = fn
}

// Append records an interaction for its owning user, evicting the oldest
// entries beyond the cap. Missing IDs and timestamps are filled in.
func (s *Store) Append(interaction models.Interaction) error {
	if err := interaction.Validate(); err != nil {
		return err
	}
	if interaction.ID == "" {
		interaction.ID = uuid.NewString()
	}
	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = time.Now()
	}

	userID := interaction.Context.UserID

	s.mu.Lock()
	entries := append(s.logs[userID], interaction)
	if over := len(entries) - s.cap; over > 0 {
		entries = entries[over:]
		log.Debug().Str("user", userID).Int("evicted", over).Msg("Interaction log trimmed")
	}
	s.logs[userID] = entries
	s.mu.Unlock()

	if s.onAppend != nil {
		s.onAppend(userID)
	}
	return nil
}

// List returns a copy of the user's interaction log in chronological
// (recording) order.
func (s *Store) List(userID string) []models.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.logs[userID]
	out := make([]models.Interaction, len(entries))
	copy(out, entries)
	return out
}

// Len returns the number of recorded interactions for the user.
func (s *Store) Len(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs[userID])
}

// Users returns the IDs of users with at least one recorded interaction.
func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.logs))
	for u := range s.logs {
		users = append(users, u)
	}
	return users
}

// Clear drops the log for one user.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	delete(s.logs, userID)
	s.mu.Unlock()
}
