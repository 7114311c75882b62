// internal/session/manager.go
//
// Live session host: keeps one game.Engine per in-progress session and is the
// only caller of those engines.
// Responsibilities:
//   - Start: resolve the daily limit, load the prior snapshot for signed-in
//     players, start the engine, arm the trial timer for guests.
//   - Serialize every engine call per session (move, interact, pause, the
//     trial timer callback) behind the session mutex.
//   - Hand the finalized snapshot to the store when the session ends (terminal
//     outcome, quit, idle reaping, shutdown). Saves are best-effort.
//
// Guests never touch the store. A signed-in player has at most one live
// session: starting another closes (and saves) the previous one first.

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hychen958/Water-trekkie-gov/internal/auth"
	"github.com/hychen958/Water-trekkie-gov/internal/character"
	"github.com/hychen958/Water-trekkie-gov/internal/game"
	"github.com/hychen958/Water-trekkie-gov/internal/limit"
	"github.com/hychen958/Water-trekkie-gov/internal/metrics"
	"github.com/hychen958/Water-trekkie-gov/internal/store"
)

var (
	// ErrNotFound is returned for unknown or already closed session ids.
	ErrNotFound = errors.New("session not found")

	// ErrLimitUnavailable is returned by Start when no daily limit could be
	// resolved; no engine is started and the caller may retry later.
	ErrLimitUnavailable = errors.New("daily limit unavailable")

	// ErrForbidden is returned when a caller addresses another player's session.
	ErrForbidden = errors.New("session belongs to another player")
)

const (
	defaultIdleTimeout = 30 * time.Minute
	saveTimeout        = 5 * time.Second
)

// Config tunes a Manager. Zero values pick defaults.
type Config struct {
	TrialDuration time.Duration
	IdleTimeout   time.Duration
	Clock         game.Clock
}

// Manager owns every live session.
type Manager struct {
	store   store.Store
	limits  limit.Provider
	catalog game.Catalog
	trial   *game.TrialPolicy
	clock   game.Clock
	idle    time.Duration

	mu       sync.Mutex
	sessions map[string]*live
	owners   map[string]*live // signed-in player → their live session

	gates ownerGates
}

// ownerGates serializes Start per signed-in player.
type ownerGates struct {
	mu    sync.Mutex
	gates map[string]*ownerGate
}

type ownerGate struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until owner's gate is free and returns its release func.
func (g *ownerGates) lock(owner string) func() {
	g.mu.Lock()
	if g.gates == nil {
		g.gates = make(map[string]*ownerGate)
	}
	gate, ok := g.gates[owner]
	if !ok {
		gate = &ownerGate{}
		g.gates[owner] = gate
	}
	gate.refs++
	g.mu.Unlock()

	gate.mu.Lock()
	return func() {
		gate.mu.Unlock()
		g.mu.Lock()
		if gate.refs--; gate.refs == 0 {
			delete(g.gates, owner)
		}
		g.mu.Unlock()
	}
}

// live is one hosted session. All fields below mu are guarded by it.
type live struct {
	id            string
	ownerID       string
	authenticated bool
	startedAt     time.Time

	mu          sync.Mutex
	engine      *game.Engine
	cancelTrial func()
	lastSeen    time.Time
	saved       *game.State
	signUp      bool
	closed      bool
}

// View is what clients see of a session.
type View struct {
	ID            string     `json:"sessionId"`
	Phase         game.Phase `json:"phase"`
	State         game.State `json:"state"`
	Authenticated bool       `json:"authenticated"`
	SignUpPrompt  bool       `json:"signUpPrompt"`
	TrialEndsAt   *time.Time `json:"trialEndsAt,omitempty"`
}

// NewManager builds a Manager.
func NewManager(st store.Store, limits limit.Provider, c game.Catalog, cfg Config) *Manager {
	clock := cfg.Clock
	if clock == nil {
		clock = game.RealClock()
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &Manager{
		store:    st,
		limits:   limits,
		catalog:  c,
		trial:    game.NewTrialPolicy(cfg.TrialDuration, clock),
		clock:    clock,
		idle:     idle,
		sessions: make(map[string]*live),
		owners:   make(map[string]*live),
	}
}

// Start creates a live session for the caller. For a signed-in player any
// session they already have is closed first and its final snapshot seeds the
// new one.
func (m *Manager) Start(ctx context.Context, who auth.Identity, characterID int) (View, error) {
	look, err := character.Choose(characterID)
	if err != nil {
		return View{}, err
	}

	dailyLimit, err := m.limits.DailyLimit(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("daily limit unavailable")
		return View{}, fmt.Errorf("%w: %v", ErrLimitUnavailable, err)
	}

	var prior *game.State
	if who.Authenticated() {
		release := m.gates.lock(who.UserID)
		defer release()

		if final, ok := m.takeOver(ctx, who.UserID); ok {
			prior = &final
		} else {
			prior, err = m.store.Load(ctx, who.UserID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				prior = nil
			case err != nil:
				log.Warn().Err(err).Str("user", who.UserID).Msg("load game state; starting fresh")
				prior = nil
			}
		}
	}

	now := m.clock.Now()
	l := &live{
		id:            uuid.NewString(),
		ownerID:       who.UserID,
		authenticated: who.Authenticated(),
		startedAt:     now,
		lastSeen:      now,
		cancelTrial:   func() {},
	}
	l.engine = game.NewEngine(m.catalog, game.WithObserver(l.observe))
	if err := l.engine.Start(game.StartParams{
		OwnerID:       who.UserID,
		DailyLimit:    dailyLimit,
		Prior:         prior,
		Appearance:    look,
		Authenticated: l.authenticated,
	}); err != nil {
		if errors.Is(err, game.ErrInvalidConfiguration) {
			return View{}, fmt.Errorf("%w: %v", ErrLimitUnavailable, err)
		}
		return View{}, err
	}

	mode := "guest"
	if l.authenticated {
		mode = "player"
	}
	metrics.SessionsStarted.WithLabelValues(mode).Inc()

	l.mu.Lock()
	if l.engine.Phase() == game.PhaseActive {
		l.cancelTrial = m.trial.Install(l.authenticated, func() { m.expire(l) })
	} else {
		m.settle(ctx, l, game.OutcomeInProgress)
	}
	view := m.view(l)
	l.mu.Unlock()

	m.mu.Lock()
	m.sessions[l.id] = l
	if l.authenticated {
		m.owners[l.ownerID] = l
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	log.Info().Str("session", l.id).Str("mode", mode).Float64("limit", dailyLimit).
		Bool("resumed", prior != nil).Msg("session started")
	return view, nil
}

// Get returns the current view of a session.
func (m *Manager) Get(who auth.Identity, id string) (View, error) {
	var v View
	err := m.with(who, id, func(l *live) error {
		v = m.view(l)
		return nil
	})
	return v, err
}

// Move records the avatar position.
func (m *Manager) Move(who auth.Identity, id string, pos game.Position) (View, error) {
	var v View
	err := m.with(who, id, func(l *live) error {
		if err := l.engine.Move(pos); err != nil {
			return err
		}
		v = m.view(l)
		return nil
	})
	return v, err
}

// Interact applies an appliance touch and, if it ends the game, persists the
// result.
func (m *Manager) Interact(ctx context.Context, who auth.Identity, id, appliance string) (game.Event, View, error) {
	var (
		ev game.Event
		v  View
	)
	err := m.with(who, id, func(l *live) error {
		before := l.engine.Snapshot().Outcome
		var err error
		ev, err = l.engine.Interact(appliance)
		if err != nil {
			return err
		}
		if !ev.Accepted {
			metrics.Interactions.WithLabelValues(ev.Appliance, "false").Inc()
		}
		m.settle(ctx, l, before)
		v = m.view(l)
		return nil
	})
	return ev, v, err
}

// Pause suspends a session.
func (m *Manager) Pause(who auth.Identity, id string) (View, error) {
	var v View
	err := m.with(who, id, func(l *live) error {
		if err := l.engine.Pause(); err != nil {
			return err
		}
		v = m.view(l)
		return nil
	})
	return v, err
}

// Resume continues a paused session.
func (m *Manager) Resume(who auth.Identity, id string) (View, error) {
	var v View
	err := m.with(who, id, func(l *live) error {
		if err := l.engine.Resume(); err != nil {
			return err
		}
		v = m.view(l)
		return nil
	})
	return v, err
}

// Quit ends a session: the trial timer is cancelled, the snapshot persisted
// (signed-in players only) and the session dropped. It returns the final
// snapshot.
func (m *Manager) Quit(ctx context.Context, who auth.Identity, id string) (game.State, error) {
	var final game.State
	err := m.with(who, id, func(l *live) error {
		final = m.close(ctx, l)
		return nil
	})
	return final, err
}

// Reap quits sessions idle since before now-IdleTimeout.
func (m *Manager) Reap(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-m.idle)
	m.mu.Lock()
	candidates := make([]*live, 0)
	for _, l := range m.sessions {
		candidates = append(candidates, l)
	}
	m.mu.Unlock()

	n := 0
	for _, l := range candidates {
		l.mu.Lock()
		if !l.closed && l.lastSeen.Before(cutoff) {
			m.close(ctx, l)
			n++
		}
		l.mu.Unlock()
	}
	if n > 0 {
		log.Info().Int("sessions", n).Msg("reaped idle sessions")
	}
	return n
}

// Run reaps idle sessions periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reap(ctx, m.clock.Now())
		}
	}
}

// Close tears down every live session, persisting best-effort.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	all := make([]*live, 0, len(m.sessions))
	for _, l := range m.sessions {
		all = append(all, l)
	}
	m.mu.Unlock()

	for _, l := range all {
		l.mu.Lock()
		if !l.closed {
			m.close(ctx, l)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// takeOver closes owner's current live session, if any, and returns its final
// snapshot. Caller holds the owner's gate.
func (m *Manager) takeOver(ctx context.Context, owner string) (game.State, bool) {
	m.mu.Lock()
	old, ok := m.owners[owner]
	m.mu.Unlock()
	if !ok {
		return game.State{}, false
	}

	old.mu.Lock()
	defer old.mu.Unlock()
	if old.closed {
		return game.State{}, false
	}
	log.Info().Str("session", old.id).Str("user", owner).Msg("replacing live session")
	return m.close(ctx, old), true
}

// with looks up a session, checks ownership, and runs fn under its lock.
func (m *Manager) with(who auth.Identity, id string, fn func(*live) error) error {
	m.mu.Lock()
	l, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrNotFound
	}
	if l.authenticated && l.ownerID != who.UserID {
		return ErrForbidden
	}
	l.lastSeen = m.clock.Now()
	return fn(l)
}

// expire is the trial timer callback. It runs on the timer goroutine and
// takes the session lock like any other event.
func (m *Manager) expire(l *live) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	before := l.engine.Snapshot().Outcome
	if err := l.engine.ExpireTrial(); err != nil {
		return
	}
	l.signUp = true
	log.Info().Str("session", l.id).Msg("trial expired")
	m.settle(context.Background(), l, before)
}

// settle reacts to a transition into a terminal outcome: the trial timer is
// cancelled and the snapshot persisted. Caller holds l.mu.
func (m *Manager) settle(ctx context.Context, l *live, before game.Outcome) {
	after := l.engine.Snapshot().Outcome
	if before.Terminal() || !after.Terminal() {
		return
	}
	l.cancelTrial()
	metrics.SessionOutcomes.WithLabelValues(string(after)).Inc()
	log.Info().Str("session", l.id).Str("outcome", string(after)).Msg("session finished")
	m.persist(ctx, l)
}

// persist saves the finalized snapshot unless it is a guest session or the
// same snapshot was already saved. Failures are logged and dropped.
// Caller holds l.mu.
func (m *Manager) persist(ctx context.Context, l *live) {
	if !l.authenticated {
		return
	}
	snap := l.engine.Finalize()
	if l.saved != nil && *l.saved == snap {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := m.store.Save(ctx, l.ownerID, &snap); err != nil {
		metrics.StateSaves.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("session", l.id).Str("user", l.ownerID).Msg("save game state")
		return
	}
	metrics.StateSaves.WithLabelValues("ok").Inc()
	l.saved = &snap
}

// close finalizes and removes a session. Caller holds l.mu.
func (m *Manager) close(ctx context.Context, l *live) game.State {
	l.cancelTrial()
	m.persist(ctx, l)
	l.closed = true

	m.mu.Lock()
	delete(m.sessions, l.id)
	if m.owners[l.ownerID] == l {
		delete(m.owners, l.ownerID)
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	log.Info().Str("session", l.id).Msg("session closed")
	return l.engine.Finalize()
}

// view renders a session for clients. Caller holds l.mu.
func (m *Manager) view(l *live) View {
	v := View{
		ID:            l.id,
		Phase:         l.engine.Phase(),
		State:         l.engine.Snapshot(),
		Authenticated: l.authenticated,
		SignUpPrompt:  l.signUp,
	}
	if !l.authenticated && !v.State.Outcome.Terminal() {
		ends := l.startedAt.Add(m.trial.Duration())
		v.TrialEndsAt = &ends
	}
	return v
}

// observe is the engine observer; it runs inside engine calls, under l.mu.
func (l *live) observe(ev game.Event) {
	if ev.Kind == game.EventInteraction && ev.Accepted {
		metrics.Interactions.WithLabelValues(ev.Appliance, "true").Inc()
	}
	log.Debug().Str("session", l.id).Str("kind", string(ev.Kind)).
		Float64("usage", ev.Usage).Int("clicks", ev.Interactions).
		Str("outcome", string(ev.Outcome)).Msg("engine event")
}
