// Package storage persists the state snapshot. Every implementation stores
// and returns the whole snapshot; none of them interprets it.
package storage

import (
	"context"
	"errors"
	"sync"

	"fintrack/internal/state"
)

// ErrConflict is returned by Save when another writer changed the store
// after this store last loaded or saved it. Reload and apply the change
// again.
var ErrConflict = errors.New("storage: state changed by another writer")

// Store loads and saves the persisted state. Load on an empty store returns
// a fresh state, never an error.
type Store interface {
	Load(ctx context.Context) (*state.State, error)
	Save(ctx context.Context, s *state.State) error
	Close() error
}

// MemoryStore keeps the snapshot in process memory. It is used for the
// "memory" backend and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	saved *state.State
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*state.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return state.New(), nil
	}
	return m.saved.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *state.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = s.Clone()
	m.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Close() error { return nil }
