package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PratikDhanave/iap-event-logger/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// ErrInvalidEvent is returned for events missing a required field.
var ErrInvalidEvent = errors.New("invalid event")

// PostgresStore is the durable persistence layer behind the analytics sink.
type PostgresStore struct {
	pool  *pgxpool.Pool
	appID string
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
// Every event written through the store is attributed to appID.
func NewPostgresStore(ctx context.Context, dbURL, appID string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &PostgresStore{pool: pool, appID: appID}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaSQL)
	return err
}

// Ping is used by readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// InsertEvents writes a batch of sink events in one round trip and returns
// how many rows were new. Rows already present (same app and event ID) are
// skipped, so re-sending a batch after a partial failure is harmless.
func (p *PostgresStore) InsertEvents(ctx context.Context, events []models.AnalyticsEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, ev := range events {
		if ev.Name == "" || ev.LoggedAt.IsZero() {
			return 0, fmt.Errorf("%w: event %s", ErrInvalidEvent, ev.ID)
		}

		props := ev.Parameters
		if props == nil {
			props = map[string]string{}
		}
		propsJSON, err := json.Marshal(props)
		if err != nil {
			return 0, err
		}

		batch.Queue(`
			INSERT INTO events(app_id, event_id, event_name, value_to_sum, logged_at, properties)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (app_id, event_id) DO NOTHING
		`, p.appID, ev.ID, ev.Name, ev.ValueToSum, ev.LoggedAt, propsJSON)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range events {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("insert event: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// CountEvents returns the number of events named eventName logged in the
// window [from,to). Using a half-open interval avoids double counting at
// window boundaries.
func (p *PostgresStore) CountEvents(
	ctx context.Context,
	eventName string,
	from time.Time,
	to time.Time,
) (int64, error) {

	var count int64
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM events
		WHERE app_id=$1
		  AND event_name=$2
		  AND logged_at >= $3
		  AND logged_at <  $4
	`, p.appID, eventName, from, to).Scan(&count)

	return count, err
}
