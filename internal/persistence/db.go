package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/wellspring/internal/engine"
)

// SQLiteStore keeps sessions in a SQLite database.
type SQLiteStore struct {
	conn *sqlx.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time keeps SQLite from reporting SQLITE_BUSY under autosave bursts.
	conn.SetMaxOpenConns(1)

	db := &SQLiteStore{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite store opened", "path", path)
	return db, nil
}

// Close closes the database connection.
func (db *SQLiteStore) Close() error {
	return db.conn.Close()
}

func (db *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		schema_version INTEGER NOT NULL,
		checksum TEXT NOT NULL,
		blob BLOB NOT NULL,
		saved_at INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		day INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Save writes the snapshot for id, replacing any previous one.
func (db *SQLiteStore) Save(ctx context.Context, id string, st engine.State) error {
	rec, err := newRecord(id, st)
	if err != nil {
		return err
	}
	_, err = db.conn.NamedExecContext(ctx, `INSERT INTO sessions
		(id, schema_version, checksum, blob, saved_at, tick, day)
		VALUES (:id, :schema_version, :checksum, :blob, :saved_at, :tick, :day)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			checksum = excluded.checksum,
			blob = excluded.blob,
			saved_at = excluded.saved_at,
			tick = excluded.tick,
			day = excluded.day`, rec)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", id, err)
	}
	return nil
}

// Load reads the snapshot for id.
func (db *SQLiteStore) Load(ctx context.Context, id string) (engine.State, bool, error) {
	var rec record
	err := db.conn.GetContext(ctx, &rec,
		"SELECT id, schema_version, checksum, blob, saved_at, tick, day FROM sessions WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.State{}, false, nil
	}
	if err != nil {
		return engine.State{}, false, fmt.Errorf("select session %s: %w", id, err)
	}
	st, err := rec.state()
	if err != nil {
		return engine.State{}, false, err
	}
	return st, true, nil
}

// RecordEvents appends events to the session's log.
func (db *SQLiteStore) RecordEvents(ctx context.Context, id string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO session_events (session_id, tick, category, description) VALUES (?, ?, ?, ?)",
			id, e.Tick, e.Category, e.Description,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent events for id, newest first.
func (db *SQLiteStore) RecentEvents(ctx context.Context, id string, limit int) ([]engine.Event, error) {
	events := []engine.Event{}
	err := db.conn.SelectContext(ctx, &events,
		"SELECT tick, description, category FROM session_events WHERE session_id = ? ORDER BY id DESC LIMIT ?",
		id, limit,
	)
	return events, err
}
