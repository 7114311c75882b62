// internal/store/redis/store.go
//
// Redis persistence gateway for game state snapshots.
//   - One JSON value per owner under <prefix><ownerID> (default prefix
//     "watertrek:state:").
//   - Save overwrites (upsert); keys never expire, snapshots are only ever
//     replaced.
//   - Missing keys map to store.ErrNotFound.

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/hychen958/Water-trekkie-gov/internal/game"
	"github.com/hychen958/Water-trekkie-gov/internal/store"
)

// Store implements store.Store using Redis, one JSON value per owner.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix (REDIS_KEY_PREFIX). Empty keeps the default.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "watertrek:state:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(ownerID string) string {
	return s.prefix + ownerID
}

// Save overwrites the snapshot for ownerID.
func (s *Store) Save(ctx context.Context, ownerID string, st *game.State) error {
	if ownerID == "" {
		return errors.New("owner id is required")
	}
	cp := *st
	cp.OwnerID = ownerID
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(ownerID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for ownerID, or store.ErrNotFound.
func (s *Store) Load(ctx context.Context, ownerID string) (*game.State, error) {
	val, err := s.client.Get(ctx, s.key(ownerID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	var st game.State
	if err := json.Unmarshal(val, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &st, nil
}

// Ping checks connectivity; used at startup.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
