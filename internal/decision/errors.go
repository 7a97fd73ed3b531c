// Package decision implements the weighted multi-strategy decision engine:
// four independent per-option scores combined by fixed weights, with a
// bounded decision history and an incremental learning store.
package decision

import "errors"

// ErrNotInitialized is returned when an engine method is invoked before
// Initialize or after Destroy.
var ErrNotInitialized = errors.New("decision: engine not initialized")

// ErrNoOptions is returned when MakeDecision receives an empty options list.
var ErrNoOptions = errors.New("decision: empty options list")
