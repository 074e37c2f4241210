package mocks

import (
	"maps"
	"slices"
	"sync"

	"github.com/badogar/solidus/internal/infrastructure/store"
)

var _ store.ReadStoreInterface = (*MockReadStore)(nil)

// MockReadStore keeps read models in memory, keyed by collection then id.
// Set and Update calls are recorded.
type MockReadStore struct {
	mu     sync.RWMutex
	models map[string]map[string]any

	SetCalls    []SetCall
	UpdateCalls []UpdateCall
}

type SetCall struct {
	Collection string
	ID         string
	Data       any
}

type UpdateCall struct {
	Collection string
	ID         string
}

func NewMockReadStore() *MockReadStore {
	return &MockReadStore{models: make(map[string]map[string]any)}
}

func (m *MockReadStore) Set(collection, id string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls = append(m.SetCalls, SetCall{Collection: collection, ID: id, Data: data})
	m.put(collection, id, data)
}

func (m *MockReadStore) Get(collection, id string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.models[collection][id]
	return data, ok
}

// GetAll returns the collection ordered by id, like the postgres store.
func (m *MockReadStore) GetAll(collection string) []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := slices.Sorted(maps.Keys(m.models[collection]))
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.models[collection][id])
	}
	return out
}

func (m *MockReadStore) Delete(collection, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.models[collection], id)
}

func (m *MockReadStore) Update(collection, id string, updateFn func(current any) any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{Collection: collection, ID: id})
	current, ok := m.models[collection][id]
	if !ok {
		return false
	}
	m.models[collection][id] = updateFn(current)
	return true
}

// Count returns the number of models in collection.
func (m *MockReadStore) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.models[collection])
}

// SetData seeds a model without recording a call.
func (m *MockReadStore) SetData(collection, id string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, data)
}

// GetData reads a model.
func (m *MockReadStore) GetData(collection, id string) (any, bool) {
	return m.Get(collection, id)
}

func (m *MockReadStore) put(collection, id string, data any) {
	if m.models[collection] == nil {
		m.models[collection] = make(map[string]any)
	}
	m.models[collection][id] = data
}
