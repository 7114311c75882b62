// Package storetest is a reusable contract suite for store.Store implementations.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hychen958/Water-trekkie-gov/internal/character"
	"github.com/hychen958/Water-trekkie-gov/internal/game"
	"github.com/hychen958/Water-trekkie-gov/internal/store"
)

// Run verifies NotFound, create, overwrite-in-place and owner isolation.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := s.Load(ctx, "nobody")
		assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
	})

	first := &game.State{
		DailyLimit:   180.5,
		Usage:        58,
		Interactions: 3,
		Score:        122.5,
		Position:     game.Position{X: 120.25, Y: 300},
		Appearance:   character.Appearance{ID: 3, Name: "Amelia", ImgSrc: "/images/char3.jpg"},
		Outcome:      game.OutcomeInProgress,
	}

	t.Run("CreateThenLoad", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "owner-1", first))
		got, err := s.Load(ctx, "owner-1")
		require.NoError(t, err)
		want := *first
		want.OwnerID = "owner-1"
		assert.Equal(t, want, *got)
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		second := *first
		second.Usage = 1008
		second.Interactions = 4
		second.Score = second.DailyLimit - second.Usage
		second.Outcome = game.OutcomeLost
		second.Appearance = character.Appearance{}
		require.NoError(t, s.Save(ctx, "owner-1", &second))

		got, err := s.Load(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, 1008.0, got.Usage)
		assert.Equal(t, 4, got.Interactions)
		assert.Equal(t, game.OutcomeLost, got.Outcome)
		assert.True(t, got.Appearance.IsZero())
	})

	t.Run("OwnersAreIsolated", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "owner-2", &game.State{DailyLimit: 50, Outcome: game.OutcomeInProgress}))
		a, err := s.Load(ctx, "owner-1")
		require.NoError(t, err)
		b, err := s.Load(ctx, "owner-2")
		require.NoError(t, err)
		assert.NotEqual(t, a.DailyLimit, b.DailyLimit)
		assert.Equal(t, "owner-2", b.OwnerID)
	})

	t.Run("LoadedValueIsDetached", func(t *testing.T) {
		got, err := s.Load(ctx, "owner-2")
		require.NoError(t, err)
		got.Usage = 999
		again, err := s.Load(ctx, "owner-2")
		require.NoError(t, err)
		assert.Equal(t, 0.0, again.Usage)
	})
}
