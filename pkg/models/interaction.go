// Package models contains domain models for pathlight.
package models

import (
	"fmt"
	"time"
)

// Role classifies a user by observed behavior. The set is closed: every
// preference table in DecisionConfig carries an entry for each role.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
)

// AllRoles lists every role in classification precedence order.
// When indicator counts tie, the earlier role wins.
var AllRoles = []Role{RoleAdmin, RoleDeveloper, RoleUser}

// RoleIndicators maps each role to the element-name substrings that count
// toward its classification score.
var RoleIndicators = map[Role][]string{
	RoleAdmin:     {"admin", "system", "config"},
	RoleDeveloper: {"code", "debug", "analysis"},
	RoleUser:      {"help", "basic", "simple"},
}

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDeveloper, RoleUser:
		return true
	}
	return false
}

// ParseRole returns the role for s, defaulting to RoleUser for unknown input.
func ParseRole(s string) Role {
	r := Role(s)
	if r.Valid() {
		return r
	}
	return RoleUser
}

// InteractionType describes the kind of UI event that was recorded.
type InteractionType string

const (
	InteractionClick      InteractionType = "click"
	InteractionKeypress   InteractionType = "keypress"
	InteractionNavigation InteractionType = "navigation"
	InteractionInput      InteractionType = "input"
	InteractionError      InteractionType = "error"
)

// InteractionContext carries the actor context recorded with an interaction.
// UserID is the only required field.
type InteractionContext struct {
	UserID       string            `json:"userId"`
	Layout       string            `json:"layout,omitempty"`
	View         string            `json:"view,omitempty"`
	Shortcut     string            `json:"shortcut,omitempty"`
	SelectedText string            `json:"selectedText,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Interaction is a single recorded UI event. Immutable once recorded.
type Interaction struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Type      InteractionType    `json:"type"`
	Element   string             `json:"element"`
	Role      Role               `json:"role,omitempty"`
	Context   InteractionContext `json:"context"`
}

// Validate checks the fields required to record the interaction.
func (i *Interaction) Validate() error {
	if i.Context.UserID == "" {
		return fmt.Errorf("interaction missing context.userId")
	}
	if i.Element == "" {
		return fmt.Errorf("interaction missing element")
	}
	return nil
}

// Session is a contiguous run of interactions separated from neighboring
// runs by an idle gap. Derived on demand, never persisted.
type Session struct {
	StartTime    time.Time     `json:"startTime"`
	EndTime      time.Time     `json:"endTime"`
	LastActivity time.Time     `json:"lastActivity"`
	Interactions []Interaction `json:"interactions"`
	Duration     time.Duration `json:"duration"`
}

// Clamp01 bounds v to [0,1]. Every score and confidence in pathlight is
// clamped with this before it leaves a component.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
