// Package journal records submission outcomes in SQLite. It stores request
// metadata only, never the generated scene or audio.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded submission outcome.
type Entry struct {
	ID         string    `json:"id"`
	Location   string    `json:"location"`
	Date       string    `json:"date"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Sources    int       `json:"sources"`
	DurationMS int64     `json:"durationMs"`
	Created    time.Time `json:"created"`
}

// Journal wraps a SQLite-backed submission log.
type Journal struct {
	db         *sql.DB
	maxEntries int
	clock      func() time.Time
}

// Open initializes the journal at path, keeping at most maxEntries rows.
func Open(ctx context.Context, path string, maxEntries int) (*Journal, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	j := &Journal{db: db, maxEntries: maxEntries, clock: time.Now}
	if err := j.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := j.prune(ctx); err != nil {
		slog.Warn("journal prune on start failed", "error", err)
	}
	return j, nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS submissions (
    id TEXT PRIMARY KEY,
    location TEXT NOT NULL,
    date TEXT NOT NULL,
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    sources INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
`
	_, err := j.db.ExecContext(ctx, ddl)
	return err
}

// Record writes one entry, stamping Created when unset. The retention cap
// is re-applied after the write.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.Created.IsZero() {
		e.Created = j.clock().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO submissions(id, location, date, status, error, sources, duration_ms, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Location, e.Date, e.Status, e.Error, e.Sources, e.DurationMS, e.Created)
	if err != nil {
		return err
	}
	if err := j.prune(ctx); err != nil {
		slog.Warn("journal prune failed", "error", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, location, date, status, error, sources, duration_ms, created_at
		 FROM submissions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Location, &e.Date, &e.Status, &e.Error, &e.Sources, &e.DurationMS, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.Created = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// prune drops the oldest rows beyond the retention cap.
func (j *Journal) prune(ctx context.Context) error {
	if j.maxEntries <= 0 {
		return nil
	}
	_, err := j.db.ExecContext(ctx, `DELETE FROM submissions WHERE id IN (
		SELECT id FROM submissions ORDER BY created_at DESC LIMIT -1 OFFSET ?
	)`, j.maxEntries)
	return err
}

// Close releases underlying resources.
func (j *Journal) Close() error { return j.db.Close() }
