// internal/store/sqlite/states.go
//
// SQLite persistence gateway for game state snapshots.
// One row per owner in game_states; Save is an upsert that keeps created_at
// from the first save. Missing rows map to store.ErrNotFound.

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hychen958/Water-trekkie-gov/internal/game"
	"github.com/hychen958/Water-trekkie-gov/internal/store"
)

// StateStore implements store.Store over the game_states table.
type StateStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewStateStore returns a StateStore sharing d's handle.
func NewStateStore(d *DB) *StateStore {
	return &StateStore{db: d.SQL, now: time.Now}
}

// Save upserts the snapshot for ownerID. created_at is kept from the first save.
func (s *StateStore) Save(ctx context.Context, ownerID string, st *game.State) error {
	if ownerID == "" {
		return errors.New("owner id is required")
	}
	look, err := json.Marshal(st.Appearance)
	if err != nil {
		return fmt.Errorf("encode character: %w", err)
	}
	now := s.now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO game_states
            (owner_id, daily_limit, water_usage, click_count, score,
             position_x, position_y, selected_character, outcome, created_at, updated_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(owner_id) DO UPDATE SET
            daily_limit        = excluded.daily_limit,
            water_usage        = excluded.water_usage,
            click_count        = excluded.click_count,
            score              = excluded.score,
            position_x         = excluded.position_x,
            position_y         = excluded.position_y,
            selected_character = excluded.selected_character,
            outcome            = excluded.outcome,
            updated_at         = excluded.updated_at`,
		ownerID, st.DailyLimit, st.Usage, st.Interactions, st.Score,
		st.Position.X, st.Position.Y, string(look), string(outcomeOrDefault(st.Outcome)), now, now,
	)
	if err != nil {
		return fmt.Errorf("save game state: %w", err)
	}
	return nil
}

// Load returns the snapshot for ownerID or store.ErrNotFound.
func (s *StateStore) Load(ctx context.Context, ownerID string) (*game.State, error) {
	var (
		st      game.State
		look    string
		outcome string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT owner_id, daily_limit, water_usage, click_count, score,
               position_x, position_y, selected_character, outcome
        FROM game_states WHERE owner_id=?`, ownerID,
	).Scan(&st.OwnerID, &st.DailyLimit, &st.Usage, &st.Interactions, &st.Score,
		&st.Position.X, &st.Position.Y, &look, &outcome)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game state: %w", err)
	}
	if err := json.Unmarshal([]byte(look), &st.Appearance); err != nil {
		return nil, fmt.Errorf("decode character: %w", err)
	}
	st.Outcome = game.Outcome(outcome)
	return &st, nil
}

func outcomeOrDefault(o game.Outcome) game.Outcome {
	if o == "" {
		return game.OutcomeInProgress
	}
	return o
}
