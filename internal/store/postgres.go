package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PratikDhanave/web-analytics-service/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

const pgEventColumns = `id, session_id, event_type, page_url, click_x, click_y, ts, created_at, updated_at`

// PostgresStore is the durable persistence layer for events on PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
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
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// Append inserts one event. The events table is never updated or deleted from.
func (p *PostgresStore) Append(ctx context.Context, ev models.Event) (models.Event, error) {
	if ev.ID == "" || ev.SessionID == "" || ev.PageURL == "" {
		return models.Event{}, errors.New("id/session_id/page_url required")
	}

	x, y := coordsArgs(ev.ClickCoordinates)

	rows, err := p.pool.Query(ctx, `
		INSERT INTO events(id, session_id, event_type, page_url, click_x, click_y, ts, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+pgEventColumns,
		ev.ID, ev.SessionID, string(ev.EventType), ev.PageURL, x, y,
		utcMillis(ev.Timestamp), utcMillis(ev.CreatedAt), utcMillis(ev.UpdatedAt),
	)
	if err != nil {
		return models.Event{}, err
	}
	return pgx.CollectOneRow(rows, scanPgEvent)
}

// All returns every event in chronological order.
func (p *PostgresStore) All(ctx context.Context) ([]models.Event, error) {
	return p.query(ctx, `SELECT `+pgEventColumns+` FROM events ORDER BY ts, created_at, id`)
}

// BySession returns the events of sessionID in chronological order.
func (p *PostgresStore) BySession(ctx context.Context, sessionID string) ([]models.Event, error) {
	return p.query(ctx, `
		SELECT `+pgEventColumns+`
		FROM events
		WHERE session_id=$1
		ORDER BY ts, created_at, id
	`, sessionID)
}

// ClicksByPage returns the click events recorded on pageURL.
func (p *PostgresStore) ClicksByPage(ctx context.Context, pageURL string) ([]models.Event, error) {
	return p.query(ctx, `
		SELECT `+pgEventColumns+`
		FROM events
		WHERE page_url=$1
		  AND event_type='click'
	`, pageURL)
}

func (p *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]models.Event, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	events, err := pgx.CollectRows(rows, scanPgEvent)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

func scanPgEvent(row pgx.CollectableRow) (models.Event, error) {
	var (
		ev        models.Event
		eventType string
		x, y      *float64
	)
	if err := row.Scan(
		&ev.ID,
		&ev.SessionID,
		&eventType,
		&ev.PageURL,
		&x,
		&y,
		&ev.Timestamp,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	); err != nil {
		return models.Event{}, err
	}
	ev.EventType = models.EventType(eventType)
	ev.ClickCoordinates = coordsFrom(x, y)
	ev.Timestamp = ev.Timestamp.UTC()
	ev.CreatedAt = ev.CreatedAt.UTC()
	ev.UpdatedAt = ev.UpdatedAt.UTC()
	return ev, nil
}
