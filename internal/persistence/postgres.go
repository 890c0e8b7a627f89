package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talgya/wellspring/internal/engine"
)

// PostgresStore keeps sessions in Postgres, with the same layout as SQLiteStore.
type PostgresStore struct {
	db *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the tables if needed.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{db: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Info("postgres store opened")
	return s, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			checksum TEXT NOT NULL,
			blob BYTEA NOT NULL,
			saved_at BIGINT NOT NULL,
			tick BIGINT NOT NULL,
			day INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS session_events (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			tick BIGINT NOT NULL,
			category TEXT NOT NULL,
			description TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, id);
	`)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, id string, st engine.State) error {
	rec, err := newRecord(id, st)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO sessions (id, schema_version, checksum, blob, saved_at, tick, day)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			checksum = EXCLUDED.checksum,
			blob = EXCLUDED.blob,
			saved_at = EXCLUDED.saved_at,
			tick = EXCLUDED.tick,
			day = EXCLUDED.day
	`, rec.ID, rec.SchemaVersion, rec.Checksum, rec.Blob, rec.SavedAt, rec.Tick, rec.Day)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (engine.State, bool, error) {
	rec := record{ID: id}
	err := s.db.QueryRow(ctx, `
		SELECT schema_version, checksum, blob, saved_at, tick, day
		FROM sessions
		WHERE id = $1
	`, id).Scan(&rec.SchemaVersion, &rec.Checksum, &rec.Blob, &rec.SavedAt, &rec.Tick, &rec.Day)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (s *PostgresStore) RecordEvents(ctx context.Context, id string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		_, err := tx.Exec(ctx,
			"INSERT INTO session_events (session_id, tick, category, description) VALUES ($1, $2, $3, $4)",
			id, int64(e.Tick), e.Category, e.Description,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) RecentEvents(ctx context.Context, id string, limit int) ([]engine.Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT tick, description, category
		FROM session_events
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []engine.Event{}
	for rows.Next() {
		var e engine.Event
		var tick int64
		if err := rows.Scan(&tick, &e.Description, &e.Category); err != nil {
			return nil, err
		}
		e.Tick = uint64(tick)
		events = append(events, e)
	}
	return events, rows.Err()
}
