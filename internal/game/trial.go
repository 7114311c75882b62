// internal/game/trial.go
//
// Trial policy for guest sessions.
// Responsibilities:
//   - Arm a one-shot timer when a guest starts playing; signed-in players get none.
//   - Run the caller's expiry callback at most once (the session package uses
//     it to freeze the game and raise the sign-up prompt).
//   - Cancel the timer once the session ends by any other route.
//
// Time comes from a Clock so tests can drive expiry without sleeping.

package game

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTrialDuration is how long a guest may play before being asked to sign up.
const DefaultTrialDuration = 60 * time.Second

// Timer is a cancellable one-shot timer.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so trial expiry can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

// TrialPolicy installs the guest time limit on a session.
type TrialPolicy struct {
	duration time.Duration
	clock    Clock
}

// NewTrialPolicy builds a policy. Non-positive durations fall back to
// DefaultTrialDuration and a nil clock to RealClock.
func NewTrialPolicy(d time.Duration, c Clock) *TrialPolicy {
	if d <= 0 {
		d = DefaultTrialDuration
	}
	if c == nil {
		c = RealClock()
	}
	return &TrialPolicy{duration: d, clock: c}
}

// Duration returns the trial length.
func (p *TrialPolicy) Duration() time.Duration { return p.duration }

// Install arms the trial timer for an unauthenticated session and returns its
// cancel func. fire runs at most once, on the timer goroutine; it must
// serialize itself with the rest of the session. Authenticated sessions get no
// timer and a no-op cancel. Cancel is idempotent, and fire is suppressed once
// cancel has been called.
func (p *TrialPolicy) Install(authenticated bool, fire func()) (cancel func()) {
	if authenticated {
		return func() {}
	}
	var cancelled atomic.Bool
	t := p.clock.AfterFunc(p.duration, func() {
		if cancelled.Load() {
			return
		}
		fire()
	})
	var once sync.Once
	return func() {
		once.Do(func() {
			cancelled.Store(true)
			t.Stop()
		})
	}
}
