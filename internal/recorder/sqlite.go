package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refresh_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			trigger_src TEXT,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER,
			status      TEXT NOT NULL,
			date        TEXT,
			score       REAL,
			label       TEXT,
			points      INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON refresh_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS run_failures (
			run_id    TEXT NOT NULL,
			index_key TEXT NOT NULL,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_run ON run_failures(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO refresh_runs
		(run_id, trigger_src, started_at, duration_ms, status, date, score, label, points, error)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.Trigger, rec.StartedAt.UnixMilli(), rec.Duration.Milliseconds(),
		rec.Status, rec.Date, rec.Score, rec.Label, rec.Points, rec.Error,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for key, msg := range rec.Failed {
		if _, err := tx.Exec(`INSERT INTO run_failures (run_id, index_key, error) VALUES (?,?,?)`,
			rec.RunID, key, msg); err != nil {
			return fmt.Errorf("insert run failure: %w", err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRecord, error) {
	rows, err := r.db.Query(`SELECT run_id, trigger_src, started_at, duration_ms, status, date, score, label, points, error
		FROM refresh_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	var runs []RunRecord
	for rows.Next() {
		var (
			rec            RunRecord
			started, durMs int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Trigger, &started, &durMs, &rec.Status,
			&rec.Date, &rec.Score, &rec.Label, &rec.Points, &rec.Error); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt = time.UnixMilli(started).UTC()
		rec.Duration = time.Duration(durMs) * time.Millisecond
		runs = append(runs, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}

	for i := range runs {
		failed, err := r.failures(runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Failed = failed
	}
	return runs, nil
}

func (r *SQLiteRecorder) failures(runID string) (map[string]string, error) {
	rows, err := r.db.Query(`SELECT index_key, error FROM run_failures WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()
	var out map[string]string
	for rows.Next() {
		var key, msg string
		if err := rows.Scan(&key, &msg); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[key] = msg
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
