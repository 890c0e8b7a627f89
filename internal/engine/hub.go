package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/wellspring/internal/entropy"
)

// ErrUnknownSession is returned for session ids that are neither live nor stored.
var ErrUnknownSession = errors.New("unknown session")

// Store persists session snapshots and their event logs.
type Store interface {
	Save(ctx context.Context, id string, st State) error
	Load(ctx context.Context, id string) (State, bool, error)
	RecordEvents(ctx context.Context, id string, evs []Event) error
}

// HubOptions configures the sessions a Hub creates.
type HubOptions struct {
	Seed     int64 // 0 uses crypto randomness
	Clock    Clock
	EventTTL time.Duration
	IdleTTL  time.Duration // unwatched sessions idle this long are saved and dropped; <= 0 keeps them forever
}

// Hub is the registry of live sessions. It loads sessions from the store on
// first access and writes them back on autosave, pause and shutdown.
type Hub struct {
	store Store // nil disables persistence
	opts  HubOptions

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub creates a Hub backed by store.
func NewHub(store Store, opts HubOptions) *Hub {
	return &Hub{
		store:    store,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

func (h *Hub) newSession(id string, st State) *Session {
	var rng entropy.Source = entropy.Crypto{}
	if h.opts.Seed != 0 {
		rng = entropy.Derive(h.opts.Seed, id)
	}
	return NewSession(id, st, SessionOptions{
		RNG:      rng,
		Clock:    h.opts.Clock,
		EventTTL: h.opts.EventTTL,
	})
}

// Create starts a fresh session under a new id.
func (h *Hub) Create() *Session {
	s := h.newSession(uuid.NewString(), NewState())
	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()
	slog.Info("session created", "session", s.ID)
	return s
}

// Get returns a live session without touching the store.
func (h *Hub) Get(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Open returns the live session for id, loading it from the store if needed.
// A session that cannot be read back starts fresh.
func (h *Hub) Open(ctx context.Context, id string) (*Session, error) {
	h.mu.RLock()
	s, ok := h.sessions[id]
	if ok {
		s.Touch()
	}
	h.mu.RUnlock()
	if ok {
		return s, nil
	}
	if h.store == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}

	st, found, err := h.store.Load(ctx, id)
	switch {
	case err != nil:
		slog.Error("session load failed, starting fresh", "session", id, "error", err)
		st = NewState()
	case !found:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// Another request may have loaded it meanwhile.
	if live, ok := h.sessions[id]; ok {
		live.Touch()
		return live, nil
	}
	s = h.newSession(id, st)
	h.sessions[id] = s
	slog.Info("session loaded", "session", id, "tick", st.Stats.TickCount, "day", st.Stats.Day)
	return s, nil
}

// Live returns the live sessions ordered by id.
func (h *Hub) Live() []*Session {
	h.mu.RLock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	h.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TickAll advances every live session and expires stale events.
func (h *Hub) TickAll() {
	for _, s := range h.Live() {
		s.Tick()
		s.ExpireEvent()
	}
}

// Save writes one session to the store. The snapshot is taken under the
// session lock; the write happens outside it.
func (h *Hub) Save(ctx context.Context, s *Session) error {
	if h.store == nil {
		return nil
	}
	st := s.State()
	st.ActiveEvent = nil

	if err := h.store.Save(ctx, s.ID, st); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}

	evs := s.DrainEvents()
	if len(evs) == 0 {
		return nil
	}
	if err := h.store.RecordEvents(ctx, s.ID, evs); err != nil {
		s.requeue(evs)
		return fmt.Errorf("record events for %s: %w", s.ID, err)
	}
	return nil
}

// SaveAll saves every live session. Failures are logged and do not stop the loop.
func (h *Hub) SaveAll(ctx context.Context) int {
	saved := 0
	for _, s := range h.Live() {
		if err := h.Save(ctx, s); err != nil {
			slog.Error("autosave failed", "session", s.ID, "error", err)
			continue
		}
		saved++
	}
	return saved
}

// Pause stops the session's ticks and then saves it, so the stored state
// matches the paused one.
func (h *Hub) Pause(ctx context.Context, s *Session) error {
	s.Pause()
	return h.Save(ctx, s)
}

// EvictIdle saves and drops sessions nobody has used for IdleTTL. Sessions
// with stream subscribers stay. A session that fails to save is kept. Open
// loads evicted sessions back from the store.
func (h *Hub) EvictIdle(ctx context.Context) int {
	if h.opts.IdleTTL <= 0 || h.store == nil {
		return 0
	}
	evicted := 0
	for _, s := range h.Live() {
		if s.Watched() || s.IdleFor() < h.opts.IdleTTL {
			continue
		}
		if err := h.Save(ctx, s); err != nil {
			slog.Error("save before eviction failed", "session", s.ID, "error", err)
			continue
		}

		h.mu.Lock()
		// Recheck: a request may have picked the session up during the save.
		if h.sessions[s.ID] == s && !s.Watched() && s.IdleFor() >= h.opts.IdleTTL {
			delete(h.sessions, s.ID)
			evicted++
		}
		h.mu.Unlock()
	}
	if evicted > 0 {
		slog.Info("idle sessions evicted", "count", evicted, "live", len(h.Live()))
	}
	return evicted
}
