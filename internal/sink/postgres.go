package sink

import (
	"context"
	"fmt"

	"throttler/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS throttle_events (
	seq          BIGSERIAL PRIMARY KEY,
	id           TEXT NOT NULL,
	key          TEXT NOT NULL,
	slot         BIGINT NOT NULL,
	slot_start   TIMESTAMPTZ NOT NULL,
	count        BIGINT NOT NULL,
	verdict      TEXT NOT NULL,
	phase        TEXT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL,
	event        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_throttle_events_key_slot ON throttle_events (key, slot);`

const postgresInsert = `
INSERT INTO throttle_events (id, key, slot, slot_start, count, verdict, phase, processed_at, event)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)`

const postgresRecent = `
SELECT key, slot, slot_start, count, verdict, phase, processed_at, event::text
FROM throttle_events
ORDER BY seq DESC
LIMIT $1`

// PostgresSink writes processed events to PostgreSQL through a pgx pool.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to dsn and ensures the schema.
func NewPostgresSink(dsn string) (*PostgresSink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL sink")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresSink{pool: pool}, nil
}

// Write sends all inserts in one batch inside a transaction.
func (ps *PostgresSink) Write(ctx context.Context, results []*models.ThrottleResult) error {
	if err := validateResults(results); err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range results {
		event, err := marshalEvent(r.Event)
		if err != nil {
			return err
		}
		batch.Queue(postgresInsert,
			r.Event.ID, r.Key, r.Slot, r.SlotStart, r.Count,
			r.Verdict, r.Phase, r.ProcessedAt, string(event))
	}

	err := pgx.BeginFunc(ctx, ps.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to insert results: %w", err)
	}
	return nil
}

// Recent returns up to limit results, newest first.
func (ps *PostgresSink) Recent(ctx context.Context, limit int) ([]*models.ThrottleResult, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := ps.pool.Query(ctx, postgresRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]*models.ThrottleResult, 0, limit)
	for rows.Next() {
		var (
			r     models.ThrottleResult
			event string
		)
		if err := rows.Scan(&r.Key, &r.Slot, &r.SlotStart, &r.Count, &r.Verdict, &r.Phase, &r.ProcessedAt, &event); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.SlotStart = r.SlotStart.UTC()
		r.ProcessedAt = r.ProcessedAt.UTC()
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

func (ps *PostgresSink) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool
func (ps *PostgresSink) Close() error {
	ps.pool.Close()
	return nil
}
