package storage

import (
	"context"
	"sync"

	"github.com/example/ride-companion/internal/models"
)

// HistoryStore archives finished rides.
type HistoryStore interface {
	SaveRide(ctx context.Context, rec models.RideRecord) error
	ListRides(ctx context.Context, limit int) ([]models.RideRecord, error)
}

type MemoryHistory struct {
	mu    sync.RWMutex
	rides []models.RideRecord
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (m *MemoryHistory) SaveRide(_ context.Context, rec models.RideRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides = append(m.rides, rec)
	return nil
}

func (m *MemoryHistory) ListRides(_ context.Context, limit int) ([]models.RideRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.rides)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.RideRecord, 0, n)
	// newest first
	for i := len(m.rides) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.rides[i])
	}
	return out, nil
}
