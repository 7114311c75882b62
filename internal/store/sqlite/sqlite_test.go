package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hychen958/Water-trekkie-gov/internal/auth"
	"github.com/hychen958/Water-trekkie-gov/internal/game"
	"github.com/hychen958/Water-trekkie-gov/internal/store/storetest"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(" ")
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))

	var n int
	require.NoError(t, db.SQL.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestStateStore_Contract(t *testing.T) {
	storetest.Run(t, NewStateStore(openTestDB(t)))
}

func TestStateStoreKeepsSingleRowPerOwner(t *testing.T) {
	db := openTestDB(t)
	s := NewStateStore(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		st := &game.State{DailyLimit: 100, Usage: float64(i), Outcome: game.OutcomeInProgress}
		require.NoError(t, s.Save(ctx, "u", st))
	}
	var n int
	require.NoError(t, db.SQL.QueryRow(`SELECT COUNT(*) FROM game_states WHERE owner_id='u'`).Scan(&n))
	assert.Equal(t, 1, n)

	got, err := s.Load(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Usage)
}

func TestUserStore(t *testing.T) {
	users := NewUserStore(openTestDB(t))
	ctx := context.Background()
	u := &auth.User{
		ID:           "u-1",
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, users.CreateUser(ctx, u))

	dup := *u
	dup.ID = "u-2"
	dup.Email = "ADA@example.com"
	assert.True(t, errors.Is(users.CreateUser(ctx, &dup), auth.ErrEmailTaken))

	got, err := users.UserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, *u, *got)

	got, err = users.UserByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	_, err = users.UserByID(ctx, "missing")
	assert.True(t, errors.Is(err, auth.ErrUserNotFound))
}

func TestAuthServiceOverSQLite(t *testing.T) {
	svc := auth.NewService(NewUserStore(openTestDB(t)), "secret", time.Hour, auth.WithBcryptCost(4))
	ctx := context.Background()

	u, err := svc.Register(ctx, "Bo", "bo@example.com", "password1")
	require.NoError(t, err)
	tok, _, err := svc.Login(ctx, "bo@example.com", "password1")
	require.NoError(t, err)
	id, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}
