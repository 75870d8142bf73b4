package reservation

import (
	"context"
	"sort"
	"sync"

	"github.com/evroam/roaminghub/core/model"
)

// MemoryStore is the in-memory Store, keeping full per-id history.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]model.ChargingReservation
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]model.ChargingReservation)}
}

// Get returns the latest version of the reservation.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.ChargingReservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.data[id]
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	r := versions[len(versions)-1]
	return &r, nil
}

// GetLatest returns the latest version of the reservation.
func (m *MemoryStore) GetLatest(ctx context.Context, id string) (*model.ChargingReservation, error) {
	return m.Get(ctx, id)
}

// Upsert appends a new version of the reservation.
func (m *MemoryStore) Upsert(_ context.Context, r *model.ChargingReservation) error {
	m.mu.Lock()
	m.data[r.ID] = append(m.data[r.ID], *r)
	m.mu.Unlock()
	return nil
}

// History returns all versions of the reservation, oldest first.
func (m *MemoryStore) History(_ context.Context, id string) ([]model.ChargingReservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.data[id]
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	out := make([]model.ChargingReservation, len(versions))
	copy(out, versions)
	return out, nil
}

// List returns the latest version of every reservation in id order.
func (m *MemoryStore) List(_ context.Context) ([]model.ChargingReservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.ChargingReservation, 0, len(m.data))
	for _, versions := range m.data {
		out = append(out, versions[len(versions)-1])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
