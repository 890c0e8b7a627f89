package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/wellspring/internal/catalog"
	"github.com/talgya/wellspring/internal/entropy"
)

func newTestSession(rng entropy.Source, clock Clock) *Session {
	return NewSession("test", NewState(), SessionOptions{RNG: rng, Clock: clock, EventTTL: 5 * time.Second})
}

func TestSessionTickAndSnapshot(t *testing.T) {
	s := newTestSession(quiet(), nil)
	_, err := s.BuyBuilding("pump")
	require.NoError(t, err)
	s.Tick()

	snap := s.Snapshot()
	assert.Equal(t, "test", snap.SessionID)
	assert.Equal(t, uint64(1), snap.Stats.TickCount)
	assert.InDelta(t, 1.0, snap.Resources.PollutedWater, 1e-9)
	require.Len(t, snap.Buildings, 5)
	assert.Equal(t, catalog.Pump, snap.Buildings[0].ID)
	assert.Equal(t, catalog.TreatmentPlant, snap.Buildings[4].ID)
	assert.False(t, snap.GameOver)
	assert.False(t, snap.Paused)
}

func TestSessionPauseStopsTicks(t *testing.T) {
	s := newTestSession(quiet(), nil)
	s.Pause()
	s.Tick()
	assert.Equal(t, uint64(0), s.State().Stats.TickCount)
	assert.True(t, s.Snapshot().Paused)

	s.Resume()
	s.Tick()
	assert.Equal(t, uint64(1), s.State().Stats.TickCount)
}

func TestSessionDispatchLogsPurchases(t *testing.T) {
	s := newTestSession(quiet(), nil)

	applied, err := s.BuyBuilding("pump")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.BuyBuilding("treatmentPlant")
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = s.BuyUpgrade("nope")
	assert.True(t, errors.Is(err, ErrInvalidIdentifier))

	evs := s.DrainEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, "building", evs[0].Category)
	assert.Equal(t, "bought Groundwater Pump #1", evs[0].Description)
	assert.Empty(t, s.DrainEvents())
}

func TestSessionEventExpiry(t *testing.T) {
	clock := NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestSession(forced(2), clock)

	res := s.Tick()
	require.NotNil(t, res.Event)
	require.NotNil(t, s.Snapshot().ActiveEvent)

	clock.Advance(4 * time.Second)
	assert.False(t, s.ExpireEvent())
	require.NotNil(t, s.Snapshot().ActiveEvent)

	clock.Advance(time.Second)
	assert.True(t, s.ExpireEvent())
	snap := s.Snapshot()
	assert.Nil(t, snap.ActiveEvent)
	// the grant stays paid
	assert.InDelta(t, 300.0, snap.Resources.Money, 1e-9)
}

func TestSessionGameOverLoggedOnce(t *testing.T) {
	st := NewState()
	st.Stats.PollutionLevel = 99.99
	setCount(&st, catalog.Bottler, 1)
	st.Resources.CleanWater = 10
	s := NewSession("doomed", st, SessionOptions{RNG: quiet()})

	s.Tick()
	s.Tick()
	snap := s.Snapshot()
	assert.True(t, snap.GameOver)
	assert.Equal(t, "Pollution levels are irreversible.", snap.GameOverReason)

	var overs int
	for _, ev := range s.DrainEvents() {
		if ev.Category == "gameover" {
			overs++
		}
	}
	assert.Equal(t, 1, overs)
}

func TestSessionReset(t *testing.T) {
	s := newTestSession(quiet(), nil)
	_, err := s.BuyBuilding("pump")
	require.NoError(t, err)
	s.Tick()

	s.Reset()
	assert.Equal(t, NewState(), s.State())
}

func TestSessionConcurrentUse(t *testing.T) {
	s := newTestSession(entropy.NewSeeded(7), nil)
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 200 {
				s.Tick()
			}
		}()
		go func() {
			defer wg.Done()
			for range 200 {
				_, _ = s.Dispatch(Action{Kind: ManualCollect})
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(800), s.State().Stats.TickCount)
}

// memStore is an in-memory Store for hub tests.
type memStore struct {
	mu      sync.Mutex
	states  map[string]State
	events  map[string][]Event
	loadErr error
	saveErr error
	onSave  func() // runs while a save is in flight
}

func newMemStore() *memStore {
	return &memStore{states: map[string]State{}, events: map[string][]Event{}}
}

func (m *memStore) Save(_ context.Context, id string, st State) error {
	if m.onSave != nil {
		m.onSave()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[id] = st.Clone()
	return nil
}

func (m *memStore) Load(_ context.Context, id string) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return State{}, false, m.loadErr
	}
	st, ok := m.states[id]
	if !ok {
		return State{}, false, nil
	}
	return st.Clone(), true, nil
}

func (m *memStore) RecordEvents(_ context.Context, id string, evs []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[id] = append(m.events[id], evs...)
	return nil
}

func TestHubSaveAndReopen(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	hub := NewHub(store, HubOptions{Seed: 1})

	s := hub.Create()
	_, err := s.BuyBuilding("pump")
	require.NoError(t, err)
	require.NoError(t, hub.Save(ctx, s))

	saved := store.states[s.ID]
	assert.Equal(t, 1, saved.Buildings[catalog.Pump].Count)
	assert.Len(t, store.events[s.ID], 1)

	other := NewHub(store, HubOptions{Seed: 1})
	reopened, err := other.Open(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.State(), reopened.State())

	again, err := other.Open(ctx, s.ID)
	require.NoError(t, err)
	assert.Same(t, reopened, again)
}

func TestHubOpenUnknown(t *testing.T) {
	hub := NewHub(newMemStore(), HubOptions{})
	_, err := hub.Open(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrUnknownSession))

	noStore := NewHub(nil, HubOptions{})
	_, err = noStore.Open(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrUnknownSession))
}

func TestHubLoadFailureStartsFresh(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("corrupt")
	hub := NewHub(store, HubOptions{})

	s, err := hub.Open(context.Background(), "broken")
	require.NoError(t, err)
	assert.Equal(t, NewState(), s.State())
}

func TestHubSaveFailureKeepsState(t *testing.T) {
	store := newMemStore()
	hub := NewHub(store, HubOptions{})
	s := hub.Create()
	_, err := s.BuyBuilding("pump")
	require.NoError(t, err)
	before := s.State()

	store.saveErr = errors.New("disk full")
	require.Error(t, hub.Save(context.Background(), s))
	assert.Equal(t, before, s.State())
	assert.Equal(t, 0, hub.SaveAll(context.Background()))

	store.saveErr = nil
	assert.Equal(t, 1, hub.SaveAll(context.Background()))
	assert.Len(t, store.events[s.ID], 1)
}

func TestHubPauseStoresPausedState(t *testing.T) {
	store := newMemStore()
	hub := NewHub(store, HubOptions{})
	s := hub.Create()
	store.onSave = hub.TickAll

	require.NoError(t, hub.Pause(context.Background(), s))
	assert.True(t, s.Paused())
	assert.Equal(t, s.State(), store.states[s.ID])
	assert.Equal(t, uint64(0), s.State().Stats.TickCount)

	store.onSave = nil
	hub.TickAll()
	assert.Equal(t, uint64(0), s.State().Stats.TickCount)
}

func TestHubPauseStillPausesWhenSaveFails(t *testing.T) {
	store := newMemStore()
	store.saveErr = errors.New("disk full")
	hub := NewHub(store, HubOptions{})
	s := hub.Create()

	require.Error(t, hub.Pause(context.Background(), s))
	assert.True(t, s.Paused())
}

func TestHubSaveDropsActiveEvent(t *testing.T) {
	store := newMemStore()
	hub := NewHub(store, HubOptions{})
	st := NewState()
	st.ActiveEvent = &ActiveEvent{ID: catalog.EventRain}
	s := NewSession("rainy", st, SessionOptions{})

	require.NoError(t, hub.Save(context.Background(), s))
	assert.Nil(t, store.states[s.ID].ActiveEvent)
	assert.NotNil(t, s.Snapshot().ActiveEvent)
}

func TestHubEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	clock := NewFakeClock(time.Unix(0, 0))
	store := newMemStore()
	hub := NewHub(store, HubOptions{Clock: clock, IdleTTL: time.Minute})

	idle := hub.Create()
	_, err := idle.BuyBuilding("pump")
	require.NoError(t, err)
	active := hub.Create()
	watched := hub.Create()
	_, stop := watched.Subscribe()
	defer stop()

	clock.Advance(40 * time.Second)
	_ = active.Snapshot()
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, hub.EvictIdle(ctx))
	_, ok := hub.Get(idle.ID)
	assert.False(t, ok)
	_, ok = hub.Get(active.ID)
	assert.True(t, ok)
	_, ok = hub.Get(watched.ID)
	assert.True(t, ok)

	stored := store.states[idle.ID]
	assert.Equal(t, 1, stored.Buildings[catalog.Pump].Count)
	assert.Len(t, store.events[idle.ID], 1)

	back, err := hub.Open(ctx, idle.ID)
	require.NoError(t, err)
	assert.NotSame(t, idle, back)
	assert.Equal(t, 1, back.State().Buildings[catalog.Pump].Count)
	assert.Len(t, hub.Live(), 3)
	assert.Equal(t, time.Duration(0), back.IdleFor())
}

func TestHubEvictIdleKeepsUnsaved(t *testing.T) {
	ctx := context.Background()
	clock := NewFakeClock(time.Unix(0, 0))
	store := newMemStore()
	hub := NewHub(store, HubOptions{Clock: clock, IdleTTL: time.Minute})
	hub.Create()
	clock.Advance(time.Hour)

	store.saveErr = errors.New("disk full")
	assert.Equal(t, 0, hub.EvictIdle(ctx))
	assert.Len(t, hub.Live(), 1)

	disabled := NewHub(newMemStore(), HubOptions{Clock: clock})
	disabled.Create()
	clock.Advance(time.Hour)
	assert.Equal(t, 0, disabled.EvictIdle(ctx))
	assert.Len(t, disabled.Live(), 1)
}

func TestSessionActivityResetsIdle(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	s := newTestSession(quiet(), clock)

	clock.Advance(time.Minute)
	assert.Equal(t, time.Minute, s.IdleFor())
	s.Tick()
	assert.Equal(t, time.Minute, s.IdleFor())

	_, err := s.Dispatch(Action{Kind: SellCleanWater})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), s.IdleFor())
}

func TestSessionSubscribe(t *testing.T) {
	s := newTestSession(quiet(), nil)
	updates, stop := s.Subscribe()
	assert.True(t, s.Watched())

	s.Tick()
	s.Tick()
	snap := <-updates
	assert.Equal(t, uint64(2), snap.Stats.TickCount)

	_, err := s.Dispatch(Action{Kind: ManualCollect})
	require.NoError(t, err)
	snap = <-updates
	assert.Equal(t, 1.0, snap.Resources.PollutedWater)

	applied, err := s.Dispatch(Action{Kind: SellCleanWater})
	require.NoError(t, err)
	require.False(t, applied)
	select {
	case <-updates:
		t.Fatal("a no-op action must not push a snapshot")
	default:
	}

	stop()
	stop()
	_, open := <-updates
	assert.False(t, open)
	assert.False(t, s.Watched())
}
