// Package store holds the SQLite-backed run history for heartbeats.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/openclaw/internal/heartbeat"
)

const runLogSchema = `
CREATE TABLE IF NOT EXISTS heartbeat_runs (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	response    TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_heartbeat_runs_name ON heartbeat_runs (name, started_at DESC);
`

// RunLog records heartbeat fires in a local SQLite database so the CLI
// can show run history across restarts.
type RunLog struct {
	db *sql.DB
}

// OpenRunLog opens (creating if needed) the run history database at path.
func OpenRunLog(path string) (*RunLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	// modernc.org/sqlite serialises access itself, but a single connection
	// avoids SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(runLogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init run log schema: %w", err)
	}
	return &RunLog{db: db}, nil
}

func (l *RunLog) Close() error { return l.db.Close() }

// Record stores one heartbeat fire.
func (l *RunLog) Record(ctx context.Context, rec heartbeat.RunRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO heartbeat_runs (id, name, started_at, duration_ms, response, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		rec.Name,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.Duration.Milliseconds(),
		rec.Response,
		rec.Err,
	)
	if err != nil {
		return fmt.Errorf("record heartbeat run: %w", err)
	}
	return nil
}

// Run is one row of heartbeat history.
type Run struct {
	ID        string
	Name      string
	StartedAt time.Time
	Duration  time.Duration
	Response  string
	Err       string
}

// Recent returns the latest runs, newest first. An empty name returns
// runs across all heartbeats.
func (l *RunLog) Recent(ctx context.Context, name string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, name, started_at, duration_ms, response, error
	          FROM heartbeat_runs`
	args := []any{}
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query heartbeat runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &r.Name, &startedAt, &durationMS, &r.Response, &r.Err); err != nil {
			return nil, fmt.Errorf("scan heartbeat run: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			r.StartedAt = ts
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
