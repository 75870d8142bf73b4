package session

import (
	"context"
	"sort"
	"sync"

	"github.com/evroam/roaminghub/core/model"
)

type entry struct {
	mu sync.Mutex
	s  model.ChargingSession
}

// MemoryStore is the in-memory Store. A read-write lock guards the map while
// each entry carries its own mutex, so mutations on distinct session ids never
// contend.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]*entry)}
}

func (m *MemoryStore) get(id string) *entry {
	m.mu.RLock()
	e := m.data[id]
	m.mu.RUnlock()
	return e
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.ChargingSession, error) {
	e := m.get(id)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	s := e.s
	e.mu.Unlock()
	return &s, nil
}

// Exists reports whether the id is stored.
func (m *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	return m.get(id) != nil, nil
}

// Create stores a new session, rejecting duplicate ids.
func (m *MemoryStore) Create(_ context.Context, s *model.ChargingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[s.ID]; ok {
		return ErrExists
	}
	m.data[s.ID] = &entry{s: *s}
	return nil
}

// MutateStart applies fn under the per-id lock, creating the session if it
// does not exist yet.
func (m *MemoryStore) MutateStart(_ context.Context, id string, fn func(*model.ChargingSession)) error {
	m.mu.Lock()
	e, ok := m.data[id]
	if !ok {
		e = &entry{s: model.ChargingSession{ID: id}}
		m.data[id] = e
	}
	m.mu.Unlock()
	e.mu.Lock()
	fn(&e.s)
	e.mu.Unlock()
	return nil
}

// MutateStop applies fn to an existing session under the per-id lock.
func (m *MemoryStore) MutateStop(_ context.Context, id string, fn func(*model.ChargingSession)) error {
	e := m.get(id)
	if e == nil {
		return ErrNotFound
	}
	e.mu.Lock()
	fn(&e.s)
	e.mu.Unlock()
	return nil
}

// AttachCDR attaches the record unless one is already present.
func (m *MemoryStore) AttachCDR(_ context.Context, id string, cdr model.ChargeDetailRecord) (bool, error) {
	e := m.get(id)
	if e == nil {
		return false, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s.CDR != nil {
		return false, nil
	}
	c := cdr
	e.s.CDR = &c
	e.s.State = model.SessionSettled
	return true, nil
}

// List returns copies of all sessions in id order.
func (m *MemoryStore) List(_ context.Context) ([]model.ChargingSession, error) {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.data))
	for _, e := range m.data {
		entries = append(entries, e)
	}
	m.mu.RUnlock()
	out := make([]model.ChargingSession, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.s)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
