package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

type sqliteMigration struct {
	Version int
	Name    string
	UpSQL   string
}

var sqliteMigrations = []sqliteMigration{
	{
		Version: 1,
		Name:    "events",
		UpSQL: `
CREATE TABLE IF NOT EXISTS events (
    id          TEXT PRIMARY KEY,
    session_id  TEXT NOT NULL,
    event_type  TEXT NOT NULL CHECK (event_type IN ('page_view', 'click')),
    page_url    TEXT NOT NULL,
    click_x     REAL NULL,
    click_y     REAL NULL,
    ts_ms       INTEGER NOT NULL,
    created_ms  INTEGER NOT NULL,
    updated_ms  INTEGER NOT NULL,
    CHECK (
        (event_type = 'click' AND click_x IS NOT NULL AND click_y IS NOT NULL)
        OR (event_type = 'page_view' AND click_x IS NULL AND click_y IS NULL)
    )
);
`,
	},
	{
		Version: 2,
		Name:    "events_indexes",
		UpSQL: `
CREATE INDEX IF NOT EXISTS idx_events_session_ts ON events(session_id, ts_ms);
CREATE INDEX IF NOT EXISTS idx_events_page_type ON events(page_url, event_type);
`,
	},
}

func runSQLiteMigrations(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database is nil")
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
`); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	applied, err := appliedSQLiteVersions(ctx, db)
	if err != nil {
		return err
	}

	all := append([]sqliteMigration(nil), sqliteMigrations...)
	sort.Slice(all, func(i, j int) bool { return all[i].Version < all[j].Version })

	for _, m := range all {
		if applied[m.Version] {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES(?, ?)`, m.Version, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d (%s): %w", m.Version, m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func appliedSQLiteVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	out := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan applied migration version: %w", err)
		}
		out[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return out, nil
}
