package store

import (
	"sync"

	"MarketPulse/internal/model"
)

// MemoryStore keeps artifacts in process memory. Used by tests and dry runs.
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot *model.Snapshot
	history  []model.HistoricalPoint
	hasHist  bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) SaveSnapshot(snap *model.Snapshot) error {
	cp := *snap
	m.mu.Lock()
	m.snapshot = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) LoadSnapshot() (*model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return nil, ErrNotFound
	}
	cp := *m.snapshot
	return &cp, nil
}

func (m *MemoryStore) SaveHistory(points []model.HistoricalPoint) error {
	m.mu.Lock()
	m.history = append([]model.HistoricalPoint{}, points...)
	m.hasHist = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) LoadHistory() ([]model.HistoricalPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasHist {
		return nil, ErrNotFound
	}
	return append([]model.HistoricalPoint{}, m.history...), nil
}

func (m *MemoryStore) Close() error { return nil }
