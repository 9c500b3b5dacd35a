package sink

import (
	"context"
	"database/sql"
	"fmt"

	"throttler/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS throttle_events (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL,
	key          TEXT NOT NULL,
	slot         INTEGER NOT NULL,
	slot_start   TEXT NOT NULL,
	count        INTEGER NOT NULL,
	verdict      TEXT NOT NULL,
	phase        TEXT NOT NULL,
	processed_at TEXT NOT NULL,
	event        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_throttle_events_key_slot ON throttle_events (key, slot);`

const sqliteInsert = `
INSERT INTO throttle_events (id, key, slot, slot_start, count, verdict, phase, processed_at, event)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const sqliteRecent = `
SELECT key, slot, slot_start, count, verdict, phase, processed_at, event
FROM throttle_events
ORDER BY seq DESC
LIMIT ?`

// SQLiteSink writes processed events to a SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at dsn and ensures the schema.
func NewSQLiteSink(dsn string) (*SQLiteSink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("connection string is required for SQLite sink")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Write inserts results in a single transaction.
func (s *SQLiteSink) Write(ctx context.Context, results []*models.ThrottleResult) error {
	if err := validateResults(results); err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		event, err := marshalEvent(r.Event)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx,
			r.Event.ID, r.Key, r.Slot, formatTime(r.SlotStart), r.Count,
			r.Verdict, r.Phase, formatTime(r.ProcessedAt), string(event))
		if err != nil {
			return fmt.Errorf("failed to insert result for key %s: %w", r.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Recent returns up to limit results, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]*models.ThrottleResult, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, sqliteRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]*models.ThrottleResult, 0, limit)
	for rows.Next() {
		var (
			r                      models.ThrottleResult
			slotStart, processedAt string
			event                  string
		)
		if err := rows.Scan(&r.Key, &r.Slot, &slotStart, &r.Count, &r.Verdict, &r.Phase, &processedAt, &event); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if r.SlotStart, err = parseTime(slotStart); err != nil {
			return nil, err
		}
		if r.ProcessedAt, err = parseTime(processedAt); err != nil {
			return nil, err
		}
		if r.Event, err = unmarshalEvent([]byte(event)); err != nil {
			return nil, err
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}

	return results, nil
}

func (s *SQLiteSink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the storage connection
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
