package storage

import (
	"context"
	"sync"

	"github.com/example/ride-companion/internal/models"
)

// PreferenceStore persists the two keys that survive restarts: the selected
// role and the passenger profile. Load-on-start with fallback to defaults;
// save-on-every-change.
type PreferenceStore interface {
	LoadProfile(ctx context.Context) (models.PassengerProfile, bool, error)
	SaveProfile(profile models.PassengerProfile) error
	LoadRole(ctx context.Context) (models.Role, bool, error)
	SaveRole(role models.Role) error
}

// MemoryPrefs keeps preferences in process; the fallback when Redis is not
// configured.
type MemoryPrefs struct {
	mu      sync.RWMutex
	profile *models.PassengerProfile
	role    *models.Role
}

func NewMemoryPrefs() *MemoryPrefs {
	return &MemoryPrefs{}
}

func (m *MemoryPrefs) LoadProfile(_ context.Context) (models.PassengerProfile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return models.PassengerProfile{}, false, nil
	}
	return *m.profile, true, nil
}

func (m *MemoryPrefs) SaveProfile(profile models.PassengerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := profile
	m.profile = &p
	return nil
}

func (m *MemoryPrefs) LoadRole(_ context.Context) (models.Role, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.role == nil {
		return "", false, nil
	}
	return *m.role, true, nil
}

func (m *MemoryPrefs) SaveRole(role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := role
	m.role = &r
	return nil
}
