// Package persistence stores session snapshots and session event logs.
// Snapshots are JSON documents compressed with LZ4 and guarded by a BLAKE3
// checksum; SQLite, Postgres and in-memory backends share that format.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/talgya/wellspring/internal/engine"
)

var (
	// ErrNotFound is returned when no snapshot exists for a session id.
	ErrNotFound = errors.New("session not found")
	// ErrCorrupt is returned when a stored snapshot fails its checksum or cannot be decoded.
	ErrCorrupt = errors.New("corrupt snapshot")
)

// Store is a session snapshot store. Load reports found=false, not an error,
// for unknown ids.
type Store interface {
	engine.Store
	RecentEvents(ctx context.Context, id string, limit int) ([]engine.Event, error)
	Close() error
}

// LoadExisting is Load for callers that need the snapshot to exist; unknown
// ids yield ErrNotFound.
func LoadExisting(ctx context.Context, s Store, id string) (engine.State, error) {
	st, found, err := s.Load(ctx, id)
	if err != nil {
		return engine.State{}, err
	}
	if !found {
		return engine.State{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return st, nil
}

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return OpenSQLite(opts.SQLitePath)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.PostgresDSN)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

// record is one row of the sessions table.
type record struct {
	ID            string `db:"id"`
	SchemaVersion int    `db:"schema_version"`
	Checksum      string `db:"checksum"`
	Blob          []byte `db:"blob"`
	SavedAt       int64  `db:"saved_at"` // unix millis
	Tick          int64  `db:"tick"`
	Day           int    `db:"day"`
}

func newRecord(id string, st engine.State) (record, error) {
	blob, sum, err := encode(st)
	if err != nil {
		return record{}, err
	}
	return record{
		ID:            id,
		SchemaVersion: SchemaVersion,
		Checksum:      sum,
		Blob:          blob,
		SavedAt:       time.Now().UnixMilli(),
		Tick:          int64(st.Stats.TickCount),
		Day:           st.Stats.Day,
	}, nil
}

func (r record) state() (engine.State, error) {
	st, err := decode(r.Blob, r.Checksum)
	if err != nil {
		return engine.State{}, fmt.Errorf("session %s: %w", r.ID, err)
	}
	return st, nil
}
