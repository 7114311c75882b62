// internal/store/memory.go
//
// Persistence gateway for game state snapshots, plus the in-memory
// implementation used in development and tests.
//
// Characteristics of the memory store:
//   - One snapshot per owner id; Save overwrites (upsert).
//   - Values are copied in and out, so callers never share state with the store.
//   - Concurrency-safe via RWMutex.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/hychen958/Water-trekkie-gov/internal/game"
)

// ErrNotFound is returned by Load when no snapshot exists for the owner.
var ErrNotFound = errors.New("game state not found")

// Store defines the persistence interface for game state snapshots.
// Implementations may be backed by memory (this package), SQLite, or Redis.
type Store interface {
	// Load retrieves the snapshot for ownerID, or ErrNotFound.
	Load(ctx context.Context, ownerID string) (*game.State, error)

	// Save creates or overwrites the snapshot for ownerID.
	Save(ctx context.Context, ownerID string, st *game.State) error
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu     sync.RWMutex
	states map[string]game.State
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{states: make(map[string]game.State)}
}

func (m *memory) Save(ctx context.Context, ownerID string, st *game.State) error {
	if ownerID == "" {
		return errors.New("owner id is required")
	}
	cp := *st
	cp.OwnerID = ownerID
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[ownerID] = cp
	return nil
}

func (m *memory) Load(ctx context.Context, ownerID string) (*game.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.states[ownerID]; ok {
		return &st, nil
	}
	return nil, ErrNotFound
}
