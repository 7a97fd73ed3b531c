package decision

import (
	"sync"

	"github.com/pathlight/pathlight/pkg/models"
)

// History is a fixed-capacity ring buffer of decision results. When full,
// the oldest entry is overwritten.
type History struct {
	entries []models.DecisionResult
	next    int
	count   int
	mu      sync.RWMutex
}

// NewHistory creates a history ring with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = models.DefaultDecisionConfig().HistorySize
	}
	return &History{entries: make([]models.DecisionResult, capacity)}
}

// Append records a decision result, evicting the oldest when full.
func (h *History) Append(result models.DecisionResult) {
	h.mu.Lock()
	h.entries[h.next] = result
	h.next = (h.next + 1) % len(h.entries)
	if h.count < len(h.entries) {
		h.count++
	}
	h.mu.Unlock()
}

// Len returns the number of stored results.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Recent returns up to n results, newest first.
func (h *History) Recent(n int) []models.DecisionResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > h.count {
		n = h.count
	}
	out := make([]models.DecisionResult, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}

// SuccessRate returns the mean confidence of stored results that chose
// the given decision, and whether any such result exists.
func (h *History) SuccessRate(decision string) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0.0
	matches := 0
	for i := 1; i <= h.count; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		if h.entries[idx].Decision == decision {
			total += h.entries[idx].Confidence
			matches++
		}
	}
	if matches == 0 {
		return 0, false
	}
	return total / float64(matches), true
}

// Reset drops all stored results.
func (h *History) Reset() {
	h.mu.Lock()
	h.next = 0
	h.count = 0
	h.mu.Unlock()
}
