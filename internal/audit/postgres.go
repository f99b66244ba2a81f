package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore appends events to the registration_events table. Inserts are
// idempotent on the event id so a replayed emit never duplicates a row.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects, verifies the connection, and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing connection, for tests.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS registration_events (
			id          uuid PRIMARY KEY,
			timestamp   timestamptz NOT NULL,
			request_id  text NOT NULL DEFAULT '',
			action      text NOT NULL,
			outcome     text NOT NULL,
			account_id  text NOT NULL DEFAULT '',
			email       text NOT NULL DEFAULT '',
			error_code  text NOT NULL DEFAULT '',
			status      int NOT NULL DEFAULT 0,
			duration_ms bigint NOT NULL DEFAULT 0
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("audit: ensure schema: %w", err)
	}
	return nil
}

// Append inserts one event. Duplicate ids are ignored.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	const query = `
		INSERT INTO registration_events (
			id, timestamp, request_id, action, outcome,
			account_id, email, error_code, status, duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		event.RequestID,
		event.Action,
		event.Outcome,
		event.AccountID,
		event.Email,
		event.ErrorCode,
		event.Status,
		event.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

// ListRecent returns the most recent events, newest first.
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	const query = `
		SELECT id, timestamp, request_id, action, outcome,
		       account_id, email, error_code, status, duration_ms
		FROM registration_events
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var durationMS int64
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.RequestID, &e.Action, &e.Outcome,
			&e.AccountID, &e.Email, &e.ErrorCode, &e.Status, &durationMS); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
