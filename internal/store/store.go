package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"MarketPulse/internal/model"
)

// ErrNotFound is returned when an artifact has never been written.
var ErrNotFound = errors.New("artifact not found")

// Store persists the two published artifacts. Every save replaces the
// previous artifact as a whole.
type Store interface {
	SaveSnapshot(snap *model.Snapshot) error
	LoadSnapshot() (*model.Snapshot, error)
	SaveHistory(points []model.HistoricalPoint) error
	LoadHistory() ([]model.HistoricalPoint, error)
	Close() error
}

const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open creates the store selected by driver.
func Open(driver, dataDir, sqlitePath string, log zerolog.Logger) (Store, error) {
	switch driver {
	case DriverJSON, "":
		return NewJSONStore(dataDir, log)
	case DriverSQLite:
		if sqlitePath == "" {
			sqlitePath = filepath.Join(dataDir, "marketpulse.db")
		}
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return NewSQLiteStore(sqlitePath, log)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
