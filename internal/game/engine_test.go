package game_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hychen958/Water-trekkie-gov/internal/catalog"
	"github.com/hychen958/Water-trekkie-gov/internal/character"
	"github.com/hychen958/Water-trekkie-gov/internal/game"
	"github.com/hychen958/Water-trekkie-gov/internal/testutil"
)

func tenLiterCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	items := make([]catalog.Appliance, 0, 10)
	for i := 0; i < 10; i++ {
		items = append(items, catalog.Appliance{ID: fmt.Sprintf("a%d", i), Liters: 10})
	}
	items = append(items, catalog.Appliance{ID: "big", Liters: 80})
	c, err := catalog.New(items)
	require.NoError(t, err)
	return c
}

func started(t *testing.T, c game.Catalog, p game.StartParams, opts ...game.Option) *game.Engine {
	t.Helper()
	e := game.NewEngine(c, opts...)
	require.NoError(t, e.Start(p))
	return e
}

func TestStartRejectsInvalidLimit(t *testing.T) {
	for _, limit := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		e := game.NewEngine(tenLiterCatalog(t))
		err := e.Start(game.StartParams{DailyLimit: limit})
		assert.True(t, errors.Is(err, game.ErrInvalidConfiguration), "limit %v", limit)
		assert.Equal(t, game.PhaseUninitialized, e.Phase())
	}
}

func TestStartTwiceIsIllegal(t *testing.T) {
	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 100})
	err := e.Start(game.StartParams{DailyLimit: 100})
	assert.True(t, errors.Is(err, game.ErrIllegalTransition))
}

func TestUninitializedRejectsMutations(t *testing.T) {
	e := game.NewEngine(tenLiterCatalog(t))
	_, err := e.Interact("a0")
	assert.True(t, errors.Is(err, game.ErrIllegalTransition))
	assert.True(t, errors.Is(e.Move(game.Position{X: 1}), game.ErrIllegalTransition))
}

// Scenario A: ten alternating interactions of 10L against a 100L limit win.
func TestScenarioWinExactlyAtLimit(t *testing.T) {
	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 100})
	for i := 0; i < 10; i++ {
		ev, err := e.Interact([]string{"a0", "a1"}[i%2])
		require.NoError(t, err)
		require.True(t, ev.Accepted)
	}
	st := e.Finalize()
	assert.Equal(t, game.OutcomeWon, st.Outcome)
	assert.Equal(t, 100.0, st.Usage)
	assert.Equal(t, 10, st.Interactions)
	assert.Equal(t, 0.0, st.Score)
	assert.Equal(t, game.PhaseWon, e.Phase())
}

// Scenario B: a single 80L interaction against a 50L limit loses immediately.
func TestScenarioImmediateLoss(t *testing.T) {
	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 50})
	ev, err := e.Interact("big")
	require.NoError(t, err)
	assert.Equal(t, game.OutcomeLost, ev.Outcome)
	st := e.Finalize()
	assert.Equal(t, 80.0, st.Usage)
	assert.Equal(t, 1, st.Interactions)
	assert.Equal(t, game.PhaseLost, e.Phase())
}

// Scenario C: the tenth interaction landing exactly on the limit is a win.
func TestScenarioBoundaryCountsAsWithinBudget(t *testing.T) {
	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 100})
	var last game.Event
	for i := 0; i < 10; i++ {
		ev, err := e.Interact(fmt.Sprintf("a%d", i))
		require.NoError(t, err)
		last = ev
	}
	assert.Equal(t, game.OutcomeWon, last.Outcome)
	assert.Equal(t, 100.0, last.Usage)
	assert.Equal(t, 0, last.Remaining)
}

func TestOverBudgetOnFinalInteractionLoses(t *testing.T) {
	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 95})
	for i := 0; i < 10; i++ {
		_, err := e.Interact(fmt.Sprintf("a%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, game.OutcomeLost, e.Finalize().Outcome)
}

// Scenario D: a guest session expires after the trial duration.
func TestScenarioTrialExpiry(t *testing.T) {
	clock := testutil.NewManualClock(time.Unix(0, 0))
	policy := game.NewTrialPolicy(60*time.Second, clock)

	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 100})
	cancel := policy.Install(false, func() { _ = e.ExpireTrial() })
	defer cancel()

	_, err := e.Interact("a0")
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	assert.Equal(t, game.PhaseActive, e.Phase())
	clock.Advance(time.Second)
	assert.Equal(t, game.PhaseTrialExpired, e.Phase())

	before := e.Finalize()
	_, err = e.Interact("a1")
	assert.True(t, errors.Is(err, game.ErrIllegalTransition))
	assert.True(t, errors.Is(e.Move(game.Position{X: 9}), game.ErrIllegalTransition))
	assert.Equal(t, before, e.Finalize())
	assert.Equal(t, game.OutcomeTrialExpired, before.Outcome)
}

// Scenario E: a loaded in-progress state keeps accumulating.
func TestScenarioResumeFromPrior(t *testing.T) {
	prior := &game.State{Usage: 30, Interactions: 3, Position: game.Position{X: 5, Y: 7}}
	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 100, Prior: prior})
	_, err := e.Interact("a0")
	require.NoError(t, err)

	st := e.Finalize()
	assert.Equal(t, 40.0, st.Usage)
	assert.Equal(t, 4, st.Interactions)
	assert.Equal(t, game.Position{X: 5, Y: 7}, st.Position)
}

func TestPriorAppearanceOverridesOnlyWhenSet(t *testing.T) {
	chosen, err := character.Choose(2)
	require.NoError(t, err)
	saved, err := character.Choose(4)
	require.NoError(t, err)

	e := started(t, tenLiterCatalog(t), game.StartParams{
		DailyLimit: 100, Appearance: chosen, Prior: &game.State{Appearance: saved},
	})
	assert.Equal(t, saved, e.Finalize().Appearance)

	e = started(t, tenLiterCatalog(t), game.StartParams{
		DailyLimit: 100, Appearance: chosen, Prior: &game.State{},
	})
	assert.Equal(t, chosen, e.Finalize().Appearance)
}

func TestFinishedPriorStartsNewRound(t *testing.T) {
	prior := &game.State{Usage: 100, Interactions: 10, Outcome: game.OutcomeWon, Position: game.Position{X: 3}}
	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 100, Prior: prior})
	st := e.Finalize()
	assert.Equal(t, game.OutcomeInProgress, st.Outcome)
	assert.Equal(t, 0.0, st.Usage)
	assert.Equal(t, 0, st.Interactions)
	assert.Equal(t, game.Position{X: 3}, st.Position)
}

func TestSeededOverBudgetEndsAtStart(t *testing.T) {
	prior := &game.State{Usage: 120, Interactions: 2}
	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 100, Prior: prior})
	assert.Equal(t, game.PhaseLost, e.Phase())
}

func TestRepeatOverlapIsIdempotent(t *testing.T) {
	var events []game.Event
	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 100},
		game.WithObserver(func(ev game.Event) { events = append(events, ev) }))

	ev, err := e.Interact("a0")
	require.NoError(t, err)
	require.True(t, ev.Accepted)
	before := e.Finalize()

	for i := 0; i < 5; i++ {
		ev, err = e.Interact("A0 ")
		require.NoError(t, err)
		assert.False(t, ev.Accepted)
	}
	assert.Equal(t, before, e.Finalize())

	// Touching another appliance re-arms the first one.
	_, err = e.Interact("a1")
	require.NoError(t, err)
	ev, err = e.Interact("a0")
	require.NoError(t, err)
	assert.True(t, ev.Accepted)
	assert.Equal(t, 3, e.Finalize().Interactions)

	// started + three accepted interactions; rejected touches emit nothing.
	require.Len(t, events, 4)
	assert.Equal(t, game.EventStarted, events[0].Kind)
}

func TestUnknownAppliance(t *testing.T) {
	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 100})
	_, err := e.Interact("jacuzzi")
	assert.True(t, errors.Is(err, game.ErrUnknownAppliance))
	assert.Equal(t, 0, e.Finalize().Interactions)
}

func TestPauseResume(t *testing.T) {
	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 100})
	require.NoError(t, e.Pause())
	assert.Equal(t, game.PhasePaused, e.Phase())

	_, err := e.Interact("a0")
	assert.True(t, errors.Is(err, game.ErrIllegalTransition))
	assert.True(t, errors.Is(e.Pause(), game.ErrIllegalTransition))

	require.NoError(t, e.Resume())
	assert.True(t, errors.Is(e.Resume(), game.ErrIllegalTransition))
	require.NoError(t, e.Move(game.Position{X: 1, Y: 2}))
	assert.Equal(t, game.Position{X: 1, Y: 2}, e.Finalize().Position)

	require.NoError(t, e.Pause())
	require.NoError(t, e.ExpireTrial())
	assert.Equal(t, game.PhaseTrialExpired, e.Phase())
	assert.True(t, errors.Is(e.ExpireTrial(), game.ErrIllegalTransition))
}

func TestFinalizeIsIdempotent(t *testing.T) {
	e := started(t, tenLiterCatalog(t), game.StartParams{OwnerID: "u1", DailyLimit: 100})
	_, err := e.Interact("a3")
	require.NoError(t, err)
	require.NoError(t, e.Move(game.Position{X: 10, Y: 20}))

	a, err := json.Marshal(e.Finalize())
	require.NoError(t, err)
	b, err := json.Marshal(e.Finalize())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTerminalOutcomesAreExclusive(t *testing.T) {
	e := started(t, tenLiterCatalog(t), game.StartParams{DailyLimit: 50})
	_, err := e.Interact("big")
	require.NoError(t, err)
	assert.True(t, errors.Is(e.ExpireTrial(), game.ErrIllegalTransition))
	assert.Equal(t, game.OutcomeLost, e.Finalize().Outcome)
}

func TestUsageEqualsSumOfAcceptedCosts(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	all := c.All()
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		e := started(t, c, game.StartParams{DailyLimit: 400 + float64(rng.Intn(2000))})
		var sum float64
		var accepted, lastInteractions int
		for step := 0; step < 40 && e.Phase() == game.PhaseActive; step++ {
			a := all[rng.Intn(len(all))]
			ev, err := e.Interact(a.ID)
			require.NoError(t, err)
			if ev.Accepted {
				sum += a.Liters
				accepted++
			}
			require.GreaterOrEqual(t, ev.Interactions, lastInteractions)
			require.LessOrEqual(t, ev.Interactions, game.MaxInteractions)
			lastInteractions = ev.Interactions
		}
		st := e.Finalize()
		assert.Equal(t, sum, st.Usage)
		assert.Equal(t, accepted, st.Interactions)

		if st.Outcome.Terminal() {
			_, err := e.Interact(all[0].ID)
			assert.True(t, errors.Is(err, game.ErrIllegalTransition))
			assert.Equal(t, st, e.Finalize())
		}
	}
}

func TestTrialPolicy(t *testing.T) {
	clock := testutil.NewManualClock(time.Unix(0, 0))
	policy := game.NewTrialPolicy(0, clock)
	assert.Equal(t, game.DefaultTrialDuration, policy.Duration())

	fired := 0
	cancel := policy.Install(true, func() { fired++ })
	assert.Equal(t, 0, clock.Pending())
	cancel()

	cancel = policy.Install(false, func() { fired++ })
	assert.Equal(t, 1, clock.Pending())
	cancel()
	cancel()
	clock.Advance(2 * game.DefaultTrialDuration)
	assert.Equal(t, 0, fired)

	cancel = policy.Install(false, func() { fired++ })
	clock.Advance(game.DefaultTrialDuration)
	clock.Advance(game.DefaultTrialDuration)
	cancel()
	assert.Equal(t, 1, fired)
}
