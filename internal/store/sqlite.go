package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"MarketPulse/internal/calendar"
	"MarketPulse/internal/model"
)

const (
	artifactSnapshot = "snapshot"
	artifactHistory  = "history"
)

// SQLiteStore persists artifacts to a SQLite database. Every snapshot is
// kept; LoadSnapshot returns the newest. The history is replaced as a whole.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string, log zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP handlers read while a refresh writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, log: log.With().Str("component", "store").Str("driver", DriverSQLite).Logger()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			name       TEXT PRIMARY KEY,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			timestamp  INTEGER NOT NULL,
			date       TEXT NOT NULL,
			score      REAL NOT NULL,
			label      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS snapshot_indices (
			snapshot_id    INTEGER NOT NULL REFERENCES snapshots(id),
			index_key      TEXT NOT NULL,
			name           TEXT,
			symbol         TEXT,
			current_price  REAL,
			change         REAL,
			change_percent REAL,
			has_score      INTEGER NOT NULL DEFAULT 0,
			score          REAL,
			label          TEXT,
			daily_change   REAL,
			weight         REAL,
			PRIMARY KEY (snapshot_id, index_key)
		)`,

		`CREATE TABLE IF NOT EXISTS history (
			date      TEXT PRIMARY KEY,
			sentiment REAL NOT NULL,
			label     TEXT NOT NULL,
			headline  TEXT,
			summary   TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS history_indices (
			date   TEXT NOT NULL,
			index_key   TEXT NOT NULL,
			close_price REAL NOT NULL,
			change      REAL NOT NULL,
			PRIMARY KEY (date, index_key)
		)`,
	}

	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("exec %q: %w", st[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveSnapshot(snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO snapshots (run_id, timestamp, date, score, label) VALUES (?,?,?,?,?)`,
		snap.RunID, snap.Timestamp.UnixMilli(), snap.Date, snap.Sentiment.Score, string(snap.Sentiment.Label))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("snapshot id: %w", err)
	}

	keys := make(map[string]bool, len(snap.Indices))
	for k := range snap.Indices {
		keys[k] = true
	}
	for k := range snap.Sentiment.PerIndex {
		keys[k] = true
	}
	for k := range keys {
		q := snap.Indices[k]
		e, scored := snap.Sentiment.PerIndex[k]
		if _, err := tx.Exec(`INSERT INTO snapshot_indices
			(snapshot_id, index_key, name, symbol, current_price, change, change_percent,
			 has_score, score, label, daily_change, weight)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			id, k, q.Name, q.Symbol, q.Current, q.Change, q.ChangePercent,
			scored, e.Score, string(e.Label), e.DailyChange, e.Weight,
		); err != nil {
			return fmt.Errorf("insert snapshot index %s: %w", k, err)
		}
	}
	if err := touch(tx, artifactSnapshot); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadSnapshot() (*model.Snapshot, error) {
	var (
		id    int64
		ts    int64
		label string
		snap  model.Snapshot
	)
	err := s.db.QueryRow(`SELECT id, run_id, timestamp, date, score, label
		FROM snapshots ORDER BY id DESC LIMIT 1`).
		Scan(&id, &snap.RunID, &ts, &snap.Date, &snap.Sentiment.Score, &label)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	snap.Timestamp = time.UnixMilli(ts).UTC()
	snap.Sentiment.Label = model.Label(label)
	snap.Sentiment.PerIndex = make(map[string]model.IndexSentiment)
	snap.Indices = make(map[string]model.IndexQuote)

	rows, err := s.db.Query(`SELECT index_key, name, symbol, current_price, change, change_percent,
		has_score, score, label, daily_change, weight
		FROM snapshot_indices WHERE snapshot_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query snapshot indices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key    string
			q      model.IndexQuote
			e      model.IndexSentiment
			scored bool
			lbl    string
		)
		if err := rows.Scan(&key, &q.Name, &q.Symbol, &q.Current, &q.Change, &q.ChangePercent,
			&scored, &e.Score, &lbl, &e.DailyChange, &e.Weight); err != nil {
			return nil, fmt.Errorf("scan snapshot index: %w", err)
		}
		if q.Symbol != "" {
			snap.Indices[key] = q
		}
		if scored {
			e.Label = model.Label(lbl)
			e.Current = q.Current
			snap.Sentiment.PerIndex[key] = e
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read snapshot indices: %w", err)
	}
	return &snap, nil
}

func (s *SQLiteStore) SaveHistory(points []model.HistoricalPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, st := range []string{`DELETE FROM history_indices`, `DELETE FROM history`} {
		if _, err := tx.Exec(st); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
	}

	pointStmt, err := tx.Prepare(`INSERT INTO history (date, sentiment, label, headline, summary) VALUES (?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare history: %w", err)
	}
	defer pointStmt.Close()
	idxStmt, err := tx.Prepare(`INSERT INTO history_indices (date, index_key, close_price, change) VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare history indices: %w", err)
	}
	defer idxStmt.Close()

	for _, p := range points {
		if _, err := pointStmt.Exec(p.Date, p.Sentiment, string(p.SentimentLabel), p.Headline, p.Summary); err != nil {
			return fmt.Errorf("insert history %s: %w", p.Date, err)
		}
		for k, c := range p.Closes {
			if _, err := idxStmt.Exec(p.Date, k, c, p.Changes[k]); err != nil {
				return fmt.Errorf("insert history %s/%s: %w", p.Date, k, err)
			}
		}
	}
	if err := touch(tx, artifactHistory); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	s.log.Debug().Int("points", len(points)).Msg("history replaced")
	return nil
}

func (s *SQLiteStore) LoadHistory() ([]model.HistoricalPoint, error) {
	var updated int64
	err := s.db.QueryRow(`SELECT updated_at FROM artifacts WHERE name = ?`, artifactHistory).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}

	rows, err := s.db.Query(`SELECT date, sentiment, label, headline, summary FROM history ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	points := []model.HistoricalPoint{}
	pos := make(map[string]int)
	for rows.Next() {
		var (
			p     model.HistoricalPoint
			label string
		)
		if err := rows.Scan(&p.Date, &p.Sentiment, &label, &p.Headline, &p.Summary); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan history: %w", err)
		}
		p.SentimentLabel = model.Label(label)
		if d, err := calendar.ParseDay(p.Date); err == nil {
			p.Timestamp = d
		}
		p.Closes = make(map[string]float64)
		p.Changes = make(map[string]float64)
		pos[p.Date] = len(points)
		points = append(points, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	idxRows, err := s.db.Query(`SELECT date, index_key, close_price, change FROM history_indices`)
	if err != nil {
		return nil, fmt.Errorf("query history indices: %w", err)
	}
	defer idxRows.Close()
	for idxRows.Next() {
		var (
			date, key  string
			px, change float64
		)
		if err := idxRows.Scan(&date, &key, &px, &change); err != nil {
			return nil, fmt.Errorf("scan history index: %w", err)
		}
		i, ok := pos[date]
		if !ok {
			continue
		}
		points[i].Closes[key] = px
		points[i].Changes[key] = change
	}
	if err := idxRows.Err(); err != nil {
		return nil, fmt.Errorf("read history indices: %w", err)
	}
	return points, nil
}

func (s *SQLiteStore) Close() error {
	s.log.Info().Msg("closing sqlite store")
	return s.db.Close()
}

func touch(tx *sql.Tx, name string) error {
	_, err := tx.Exec(`INSERT INTO artifacts (name, updated_at) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at`, name, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("touch %s: %w", name, err)
	}
	return nil
}
