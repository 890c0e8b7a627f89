package persistence

import (
	"context"
	"slices"
	"sync"

	"github.com/talgya/wellspring/internal/engine"
)

// MemoryStore keeps encoded snapshots in process memory. Used by tests and
// by servers that do not need state to survive a restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]record
	events   map[string][]engine.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]record),
		events:   make(map[string][]engine.Event),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Save(_ context.Context, id string, st engine.State) error {
	rec, err := newRecord(id, st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[id] = rec
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (engine.State, bool, error) {
	m.mu.Lock()
	rec, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return engine.State{}, false, nil
	}
	st, err := rec.state()
	if err != nil {
		return engine.State{}, false, err
	}
	return st, true, nil
}

func (m *MemoryStore) RecordEvents(_ context.Context, id string, events []engine.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[id] = append(m.events[id], events...)
	return nil
}

// RecentEvents returns the most recent events for id, newest first.
func (m *MemoryStore) RecentEvents(_ context.Context, id string, limit int) ([]engine.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.events[id]
	n := max(0, min(limit, len(all)))
	out := make([]engine.Event, 0, n)
	out = append(out, all[len(all)-n:]...)
	slices.Reverse(out)
	return out, nil
}
