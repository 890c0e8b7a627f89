package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/wellspring/internal/catalog"
	"github.com/talgya/wellspring/internal/entropy"
)

// DefaultEventTTL is how long an event stays on screen before it expires.
const DefaultEventTTL = 5 * time.Second

// Event is a notable occurrence in a session, kept for the session log.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "building", "upgrade", "event", "gameover", ...
}

// SessionOptions configures a Session.
type SessionOptions struct {
	RNG      entropy.Source
	Clock    Clock
	EventTTL time.Duration
}

// Session owns one player's state. Every tick and action runs as a pure
// transition committed under mu, so readers never see half of one.
type Session struct {
	ID string

	mu            sync.Mutex
	state         State
	rng           entropy.Source
	clock         Clock
	eventTTL      time.Duration
	eventRaisedAt time.Time
	paused        bool
	over          bool
	pending       []Event // not yet persisted
	lastSeen      time.Time
	seq           uint64 // bumped on every committed change

	subMu     sync.Mutex
	subs      map[chan Snapshot]struct{}
	published uint64
}

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	SessionID      string       `json:"sessionId"`
	Resources      Resources    `json:"resources"`
	Stats          Stats        `json:"stats"`
	Buildings      []Building   `json:"buildings"` // catalog order
	Upgrades       Upgrades     `json:"upgrades"`
	ActiveEvent    *ActiveEvent `json:"activeEvent"`
	GameOver       bool         `json:"gameOver"`
	GameOverReason string       `json:"gameOverReason,omitempty"`
	Paused         bool         `json:"paused"`
}

// NewSession wraps st. Missing options fall back to crypto randomness, the
// wall clock and DefaultEventTTL.
func NewSession(id string, st State, opts SessionOptions) *Session {
	if opts.RNG == nil {
		opts.RNG = entropy.Crypto{}
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.EventTTL <= 0 {
		opts.EventTTL = DefaultEventTTL
	}
	s := &Session{
		ID:       id,
		state:    st.Clone(),
		rng:      opts.RNG,
		clock:    opts.Clock,
		eventTTL: opts.EventTTL,
	}
	s.over, _ = s.state.GameOver()
	s.lastSeen = s.clock.Now()
	if s.state.ActiveEvent != nil {
		s.eventRaisedAt = s.lastSeen
	}
	return s
}

// State returns a deep copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Snapshot returns the display view of the current state. It counts as
// player activity for idle eviction.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.clock.Now()
	return s.snapshotLocked()
}

// Touch marks the session as in use.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = s.clock.Now()
	s.mu.Unlock()
}

// IdleFor reports how long ago the player last looked at or acted on the session.
func (s *Session) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Now().Sub(s.lastSeen)
}

func (s *Session) snapshotLocked() Snapshot {
	st := s.state.Clone()
	over, reason := st.GameOver()
	snap := Snapshot{
		SessionID:      s.ID,
		Resources:      st.Resources,
		Stats:          st.Stats,
		Upgrades:       st.Upgrades,
		ActiveEvent:    st.ActiveEvent,
		GameOver:       over,
		GameOverReason: reason,
		Paused:         s.paused,
	}
	for _, def := range catalog.Buildings() {
		if b, ok := st.Buildings[def.ID]; ok {
			snap.Buildings = append(snap.Buildings, *b)
		}
	}
	return snap
}

// Tick advances the session one step unless it is paused.
func (s *Session) Tick() TickResult {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return TickResult{}
	}
	res := s.tickLocked()
	snap, seq, ok := s.pendingPublish()
	s.mu.Unlock()

	if ok {
		s.publish(snap, seq)
	}
	return res
}

func (s *Session) tickLocked() TickResult {
	next, res := Advance(s.state, s.rng)
	s.state = next
	tick := next.Stats.TickCount

	for _, id := range res.Unlocked {
		s.record(tick, "unlock", fmt.Sprintf("research unlocked: %s", id))
	}
	if res.Event != nil {
		s.eventRaisedAt = s.clock.Now()
		s.record(tick, "event", res.Event.Title+": "+res.Event.Description)
		slog.Info("event fired", "session", s.ID, "event", res.Event.ID, "tick", tick)
	}
	if res.Suppressed != "" {
		s.record(tick, "event", fmt.Sprintf("%s prevented by upgrades", res.Suppressed))
	}
	if res.DayPassed {
		slog.Debug("daily report",
			"session", s.ID,
			"day", next.Stats.Day,
			"money", humanize.Commaf(float64(int64(next.Resources.Money))),
			"aquifer", fmt.Sprintf("%.2f", next.Stats.AquiferLevel),
			"pollution", fmt.Sprintf("%.2f", next.Stats.PollutionLevel),
			"eco_score", fmt.Sprintf("%.1f", next.Stats.EcoScore),
			"forecast", next.Stats.Forecast,
		)
	}
	s.checkGameOver(tick)
	return res
}

// Dispatch applies a player action. A failed precondition returns (false, nil).
func (s *Session) Dispatch(a Action) (bool, error) {
	s.mu.Lock()
	s.lastSeen = s.clock.Now()
	applied, err := s.dispatchLocked(a)
	if !applied {
		s.mu.Unlock()
		return false, err
	}
	snap, seq, ok := s.pendingPublish()
	s.mu.Unlock()

	if ok {
		s.publish(snap, seq)
	}
	return true, nil
}

func (s *Session) dispatchLocked(a Action) (bool, error) {
	next, applied, err := Apply(s.state, a)
	if err != nil || !applied {
		return false, err
	}
	s.state = next
	tick := next.Stats.TickCount

	switch a.Kind {
	case BuyBuilding:
		b := next.Buildings[catalog.BuildingID(a.Target)]
		s.record(tick, "building", fmt.Sprintf("bought %s #%d", b.Name, b.Count))
	case BuyUpgrade:
		def, _ := catalog.LookupUpgrade(catalog.UpgradeID(a.Target))
		s.record(tick, "upgrade", fmt.Sprintf("researched %s", def.Name))
	}
	s.checkGameOver(tick)
	return true, nil
}

// BuyBuilding buys one unit of building id.
func (s *Session) BuyBuilding(id string) (bool, error) {
	return s.Dispatch(Action{Kind: BuyBuilding, Target: id})
}

// BuyUpgrade researches upgrade id.
func (s *Session) BuyUpgrade(id string) (bool, error) {
	return s.Dispatch(Action{Kind: BuyUpgrade, Target: id})
}

// ExpireEvent clears the active event once it has been shown for the TTL.
// The event's effect stays applied.
func (s *Session) ExpireEvent() bool {
	s.mu.Lock()
	if s.state.ActiveEvent == nil || s.clock.Now().Sub(s.eventRaisedAt) < s.eventTTL {
		s.mu.Unlock()
		return false
	}
	s.state.ActiveEvent = nil
	snap, seq, ok := s.pendingPublish()
	s.mu.Unlock()

	if ok {
		s.publish(snap, seq)
	}
	return true
}

// Pause stops ticks for this session until Resume.
func (s *Session) Pause() { s.setPaused(true) }

// Resume restarts ticks.
func (s *Session) Resume() { s.setPaused(false) }

func (s *Session) setPaused(paused bool) {
	s.mu.Lock()
	s.paused = paused
	s.lastSeen = s.clock.Now()
	snap, seq, ok := s.pendingPublish()
	s.mu.Unlock()

	if ok {
		s.publish(snap, seq)
	}
}

// Paused reports whether ticks are suspended.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Reset replaces the state with a fresh game.
func (s *Session) Reset() {
	s.mu.Lock()
	s.state = NewState()
	s.over = false
	s.lastSeen = s.clock.Now()
	s.record(0, "session", "game reset")
	snap, seq, ok := s.pendingPublish()
	s.mu.Unlock()

	if ok {
		s.publish(snap, seq)
	}
}

// Subscribe returns a channel that receives the latest snapshot after every
// committed tick or action. Slow readers only see the newest one. The cancel
// func closes the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.subMu.Lock()
	if s.subs == nil {
		s.subs = make(map[chan Snapshot]struct{})
	}
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, ch)
			close(ch)
			s.subMu.Unlock()
		})
	}
}

// Watched reports whether any subscriber is attached.
func (s *Session) Watched() bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs) > 0
}

// pendingPublish bumps the change counter and, when someone is listening,
// captures the snapshot to send. Must hold mu.
func (s *Session) pendingPublish() (Snapshot, uint64, bool) {
	s.seq++
	if !s.Watched() {
		return Snapshot{}, 0, false
	}
	return s.snapshotLocked(), s.seq, true
}

// publish hands snap to every subscriber, replacing any unread one. Snapshots
// older than the last published are dropped.
func (s *Session) publish(snap Snapshot, seq uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if seq <= s.published {
		return
	}
	s.published = seq
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// DrainEvents returns and forgets the session log entries recorded since the last drain.
func (s *Session) DrainEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// requeue puts undelivered log entries back in front of newer ones.
func (s *Session) requeue(evs []Event) {
	if len(evs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(evs, s.pending...)
}

func (s *Session) record(tick uint64, category, desc string) {
	s.pending = append(s.pending, Event{Tick: tick, Description: desc, Category: category})
	// Trim old entries to prevent unbounded growth when nothing persists them.
	if len(s.pending) > 1000 {
		s.pending = s.pending[len(s.pending)-1000:]
	}
}

func (s *Session) checkGameOver(tick uint64) {
	over, reason := s.state.GameOver()
	if over && !s.over {
		s.record(tick, "gameover", reason)
		slog.Warn("game over", "session", s.ID, "tick", tick, "reason", reason)
	}
	s.over = over
}
