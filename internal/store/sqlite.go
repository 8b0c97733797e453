package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite

	"github.com/PratikDhanave/web-analytics-service/internal/models"
)

const sqliteEventColumns = `id, session_id, event_type, page_url, click_x, click_y, ts_ms, created_ms, updated_ms`

// SQLiteOptions controls how the SQLite database file is opened.
type SQLiteOptions struct {
	Path          string
	EnableWAL     bool
	BusyTimeoutMS int
	MaxOpenConns  int
}

func DefaultSQLiteOptions(path string) SQLiteOptions {
	return SQLiteOptions{
		Path:          path,
		EnableWAL:     true,
		BusyTimeoutMS: 5000,
		MaxOpenConns:  5,
	}
}

// SQLiteStore keeps events in a single SQLite file. Timestamps are stored
// as INTEGER epoch milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// sqliteDSN appends the connection pragmas to any query the caller
// already put on the path.
func sqliteDSN(path, query string, opts SQLiteOptions) string {
	dsnParts := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", opts.BusyTimeoutMS),
	}
	if opts.EnableWAL {
		dsnParts = append(dsnParts, "_pragma=journal_mode(WAL)")
	}
	if query != "" {
		dsnParts = append([]string{query}, dsnParts...)
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(dsnParts, "&"))
}

// OpenSQLite opens the database file and verifies it answers a ping.
func OpenSQLite(opts SQLiteOptions) (*SQLiteStore, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("sqlite database path is required")
	}
	if opts.BusyTimeoutMS <= 0 {
		opts.BusyTimeoutMS = 5000
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 5
	}

	path, query, _ := strings.Cut(opts.Path, "?")
	if path != ":memory:" {
		path = filepath.Clean(path)
	} else {
		// Every connection to :memory: is a separate database.
		opts.MaxOpenConns = 1
	}
	dsn := sqliteDSN(path, query, opts)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)
	db.SetConnMaxIdleTime(30 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an already opened database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// EnsureSchema applies pending migrations.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	return runSQLiteMigrations(ctx, s.db)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts one event.
func (s *SQLiteStore) Append(ctx context.Context, ev models.Event) (models.Event, error) {
	if ev.ID == "" || ev.SessionID == "" || ev.PageURL == "" {
		return models.Event{}, errors.New("id/session_id/page_url required")
	}

	x, y := coordsArgs(ev.ClickCoordinates)
	ev.Timestamp = utcMillis(ev.Timestamp)
	ev.CreatedAt = utcMillis(ev.CreatedAt)
	ev.UpdatedAt = utcMillis(ev.UpdatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events(id, session_id, event_type, page_url, click_x, click_y, ts_ms, created_ms, updated_ms)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		ev.ID, ev.SessionID, string(ev.EventType), ev.PageURL, x, y,
		ev.Timestamp.UnixMilli(), ev.CreatedAt.UnixMilli(), ev.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return models.Event{}, fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	return ev, nil
}

// All returns every event in chronological order.
func (s *SQLiteStore) All(ctx context.Context) ([]models.Event, error) {
	return s.query(ctx, "list events", `SELECT `+sqliteEventColumns+` FROM events ORDER BY ts_ms, created_ms, id`)
}

// BySession returns the events of sessionID in chronological order.
func (s *SQLiteStore) BySession(ctx context.Context, sessionID string) ([]models.Event, error) {
	return s.query(ctx, "list session events", `
		SELECT `+sqliteEventColumns+`
		FROM events
		WHERE session_id = ?
		ORDER BY ts_ms, created_ms, id`, sessionID)
}

// ClicksByPage returns the click events recorded on pageURL.
func (s *SQLiteStore) ClicksByPage(ctx context.Context, pageURL string) ([]models.Event, error) {
	return s.query(ctx, "list page clicks", `
		SELECT `+sqliteEventColumns+`
		FROM events
		WHERE page_url = ? AND event_type = 'click'`, pageURL)
}

func (s *SQLiteStore) query(ctx context.Context, op, query string, args ...any) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []models.Event{}
	for rows.Next() {
		var (
			ev                     models.Event
			eventType              string
			x, y                   sql.NullFloat64
			tsMS, createdMS, updMS int64
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &eventType, &ev.PageURL, &x, &y, &tsMS, &createdMS, &updMS); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		ev.EventType = models.EventType(eventType)
		if x.Valid && y.Valid {
			ev.ClickCoordinates = &models.ClickCoordinates{X: x.Float64, Y: y.Float64}
		}
		ev.Timestamp = time.UnixMilli(tsMS).UTC()
		ev.CreatedAt = time.UnixMilli(createdMS).UTC()
		ev.UpdatedAt = time.UnixMilli(updMS).UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}
