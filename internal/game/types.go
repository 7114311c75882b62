// internal/game/types.go
//
// Core type definitions for the water-budget game engine.
// Defines:
//   - Outcome: how a session ended (or that it has not).
//   - Phase: where the engine is in its lifecycle.
//   - State: the persisted snapshot of one player's session.
//   - Event: what the engine reports to its observer after a transition.

package game

import (
	"errors"

	"github.com/hychen958/Water-trekkie-gov/internal/character"
)

// MaxInteractions is the number of accepted interactions that completes a round.
const MaxInteractions = 10

var (
	// ErrInvalidConfiguration is returned by Start when the daily limit is not
	// a finite positive number.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrIllegalTransition is returned when an operation is not allowed in the
	// engine's current phase (for example, interacting after the game ended).
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrUnknownAppliance is returned when an interaction names an appliance
	// that is not in the catalog.
	ErrUnknownAppliance = errors.New("unknown appliance")
)

// Outcome is the result of a session.
type Outcome string

const (
	OutcomeInProgress   Outcome = "in_progress"
	OutcomeWon          Outcome = "won"
	OutcomeLost         Outcome = "lost"
	OutcomeTrialExpired Outcome = "trial_expired"
)

// Terminal reports whether the outcome ends the session.
func (o Outcome) Terminal() bool {
	return o == OutcomeWon || o == OutcomeLost || o == OutcomeTrialExpired
}

// Phase is the engine lifecycle position.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseActive        Phase = "active"
	PhasePaused        Phase = "paused"
	PhaseWon           Phase = "won"
	PhaseLost          Phase = "lost"
	PhaseTrialExpired  Phase = "trial_expired"
)

// Position is the avatar's last known coordinate in the room.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is the snapshot persisted per owner. JSON names match the client's
// save payload.
type State struct {
	OwnerID      string               `json:"ownerId,omitempty"`
	DailyLimit   float64              `json:"dailyLimit"`
	Usage        float64              `json:"waterUsage"`
	Interactions int                  `json:"clickCount"`
	Score        float64              `json:"score"`
	Position     Position             `json:"characterPosition"`
	Appearance   character.Appearance `json:"selectedCharacter"`
	Outcome      Outcome              `json:"outcome"`
}

// EventKind classifies engine events.
type EventKind string

const (
	EventStarted      EventKind = "started"
	EventInteraction  EventKind = "interaction"
	EventTrialExpired EventKind = "trial_expired"
)

// Event is emitted to the observer after every state-changing transition, and
// returned from Interact for the caller to render.
type Event struct {
	Kind         EventKind `json:"kind"`
	Appliance    string    `json:"appliance,omitempty"`
	Accepted     bool      `json:"accepted"`
	Cost         float64   `json:"cost,omitempty"`
	Usage        float64   `json:"waterUsage"`
	DailyLimit   float64   `json:"dailyLimit"`
	Interactions int       `json:"clickCount"`
	Remaining    int       `json:"clicksLeft"`
	Outcome      Outcome   `json:"outcome"`
}
