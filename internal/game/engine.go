// internal/game/engine.go
//
// Core game engine for a single water-budget session.
// Responsibilities:
//   - Start a session from scratch or seeded from a persisted State.
//   - Apply interactions: de-duplicate repeat overlap with the same appliance,
//     accumulate usage and interaction count.
//   - Detect end conditions: over budget → lost, tenth interaction within
//     budget → won, forced trial expiry. Exactly one terminal outcome.
//   - Track movement and pause/resume.
//   - Produce the snapshot to persist on exit.
//
// The engine is not safe for concurrent use. Callers serialize every call,
// including timer callbacks (see TrialPolicy and the session package).
package game

import (
	"fmt"
	"math"
	"strings"

	"github.com/hychen958/Water-trekkie-gov/internal/character"
)

// Catalog resolves an appliance id to the liters one use costs.
type Catalog interface {
	Cost(id string) (float64, bool)
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers a callback for every emitted Event.
// The callback runs synchronously inside the engine call that produced it.
func WithObserver(fn func(Event)) Option {
	return func(e *Engine) { e.observer = fn }
}

// StartParams are the already-resolved inputs for Start.
type StartParams struct {
	OwnerID       string
	DailyLimit    float64
	Prior         *State               // previously persisted state, nil for a new player
	Appearance    character.Appearance // the avatar chosen for this session
	Authenticated bool
}

// Engine is the session state machine.
type Engine struct {
	catalog  Catalog
	observer func(Event)

	state         State
	started       bool
	paused        bool
	authenticated bool
	last          string // appliance behind the last accepted interaction
}

// NewEngine constructs an uninitialized engine.
func NewEngine(c Catalog, opts ...Option) *Engine {
	e := &Engine{catalog: c}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start validates the daily limit, seeds state and moves the engine to active.
//
// Seeding rules:
//   - Prior in progress: usage, interaction count and position carry over.
//   - Prior already finished: only position carries over; a new round begins.
//   - Appearance: the prior's if non-empty, otherwise the chosen one.
//
// End conditions are evaluated once after seeding, so a prior that is already
// over budget (or complete) finishes immediately.
func (e *Engine) Start(p StartParams) error {
	if e.started {
		return fmt.Errorf("start: already started: %w", ErrIllegalTransition)
	}
	if math.IsNaN(p.DailyLimit) || math.IsInf(p.DailyLimit, 0) || p.DailyLimit <= 0 {
		return fmt.Errorf("daily limit %v: %w", p.DailyLimit, ErrInvalidConfiguration)
	}

	st := State{
		OwnerID:    p.OwnerID,
		DailyLimit: p.DailyLimit,
		Appearance: p.Appearance,
		Outcome:    OutcomeInProgress,
	}
	if prior := p.Prior; prior != nil {
		st.Position = prior.Position
		if !prior.Appearance.IsZero() {
			st.Appearance = prior.Appearance
		}
		if !prior.Outcome.Terminal() {
			st.Usage = sanitizeUsage(prior.Usage)
			st.Interactions = clampInteractions(prior.Interactions)
		}
	}

	e.state = st
	e.started = true
	e.authenticated = p.Authenticated
	e.evaluate()
	e.emit(e.event(EventStarted))
	return nil
}

// Interact applies one touch of an appliance.
//
// A touch of the same appliance that produced the previous accepted
// interaction is a no-op (the avatar is still overlapping it); the returned
// event has Accepted=false and nothing is emitted.
func (e *Engine) Interact(applianceID string) (Event, error) {
	if ph := e.Phase(); ph != PhaseActive {
		return Event{}, fmt.Errorf("interact while %s: %w", ph, ErrIllegalTransition)
	}
	id := strings.ToLower(strings.TrimSpace(applianceID))
	cost, ok := e.catalog.Cost(id)
	if !ok {
		return Event{}, fmt.Errorf("%q: %w", applianceID, ErrUnknownAppliance)
	}

	if id == e.last {
		ev := e.event(EventInteraction)
		ev.Appliance = id
		return ev, nil
	}

	e.last = id
	e.state.Interactions++
	e.state.Usage += cost
	e.evaluate()

	ev := e.event(EventInteraction)
	ev.Appliance = id
	ev.Accepted = true
	ev.Cost = cost
	e.emit(ev)
	return ev, nil
}

// Move records the avatar position. Only legal while active.
func (e *Engine) Move(pos Position) error {
	if ph := e.Phase(); ph != PhaseActive {
		return fmt.Errorf("move while %s: %w", ph, ErrIllegalTransition)
	}
	e.state.Position = pos
	return nil
}

// Pause suspends an active session.
func (e *Engine) Pause() error {
	if ph := e.Phase(); ph != PhaseActive {
		return fmt.Errorf("pause while %s: %w", ph, ErrIllegalTransition)
	}
	e.paused = true
	return nil
}

// Resume continues a paused session.
func (e *Engine) Resume() error {
	if ph := e.Phase(); ph != PhasePaused {
		return fmt.Errorf("resume while %s: %w", ph, ErrIllegalTransition)
	}
	e.paused = false
	return nil
}

// ExpireTrial forces the trial_expired outcome on a running session.
func (e *Engine) ExpireTrial() error {
	if ph := e.Phase(); ph != PhaseActive && ph != PhasePaused {
		return fmt.Errorf("expire trial while %s: %w", ph, ErrIllegalTransition)
	}
	e.paused = false
	e.state.Outcome = OutcomeTrialExpired
	e.emit(e.event(EventTrialExpired))
	return nil
}

// Snapshot returns a copy of the current state with the score derived.
func (e *Engine) Snapshot() State {
	s := e.state
	s.Score = s.DailyLimit - s.Usage
	return s
}

// Finalize returns the snapshot to hand to persistence. It can be called in
// any phase and does not change the engine, so repeated calls without an
// intervening mutation return identical snapshots.
func (e *Engine) Finalize() State {
	return e.Snapshot()
}

// Phase reports the lifecycle phase.
func (e *Engine) Phase() Phase {
	if !e.started {
		return PhaseUninitialized
	}
	switch e.state.Outcome {
	case OutcomeWon:
		return PhaseWon
	case OutcomeLost:
		return PhaseLost
	case OutcomeTrialExpired:
		return PhaseTrialExpired
	}
	if e.paused {
		return PhasePaused
	}
	return PhaseActive
}

// Authenticated reports whether the session belongs to a signed-in player.
func (e *Engine) Authenticated() bool { return e.authenticated }

// evaluate applies the end conditions to an in-progress state.
// Exceeding the budget takes precedence over completing the round.
func (e *Engine) evaluate() {
	if e.state.Outcome != OutcomeInProgress {
		return
	}
	switch {
	case e.state.Usage > e.state.DailyLimit:
		e.state.Outcome = OutcomeLost
	case e.state.Interactions >= MaxInteractions:
		e.state.Outcome = OutcomeWon
	}
}

func (e *Engine) event(kind EventKind) Event {
	return Event{
		Kind:         kind,
		Usage:        e.state.Usage,
		DailyLimit:   e.state.DailyLimit,
		Interactions: e.state.Interactions,
		Remaining:    MaxInteractions - e.state.Interactions,
		Outcome:      e.state.Outcome,
	}
}

func (e *Engine) emit(ev Event) {
	if e.observer != nil {
		e.observer(ev)
	}
}

func sanitizeUsage(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func clampInteractions(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxInteractions {
		return MaxInteractions
	}
	return n
}
