package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"MarketPulse/internal/model"
)

const (
	SnapshotFile = "market-data.json"
	HistoryFile  = "historical-data.json"
)

// JSONStore keeps each artifact in its own JSON document under a directory,
// the layout a static dashboard reads directly.
type JSONStore struct {
	dir string
	mu  sync.RWMutex
	log zerolog.Logger
}

// NewJSONStore creates dir if needed.
func NewJSONStore(dir string, log zerolog.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &JSONStore{dir: dir, log: log.With().Str("component", "store").Str("driver", DriverJSON).Logger()}, nil
}

func (s *JSONStore) SaveSnapshot(snap *model.Snapshot) error {
	return s.write(SnapshotFile, snap)
}

func (s *JSONStore) LoadSnapshot() (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := s.read(SnapshotFile, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *JSONStore) SaveHistory(points []model.HistoricalPoint) error {
	if points == nil {
		points = []model.HistoricalPoint{}
	}
	return s.write(HistoryFile, points)
}

func (s *JSONStore) LoadHistory() ([]model.HistoricalPoint, error) {
	var points []model.HistoricalPoint
	if err := s.read(HistoryFile, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *JSONStore) Close() error { return nil }

// write replaces name atomically: readers see the old or the new document, never a mix.
func (s *JSONStore) write(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	s.log.Debug().Str("file", name).Int("bytes", len(data)).Msg("artifact saved")
	return nil
}

func (s *JSONStore) read(name string, v interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
