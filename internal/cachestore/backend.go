package cachestore

import (
	"context"
	"sort"
	"sync"
)

// Backend persists generations and their entries.
type Backend interface {
	CreateGeneration(ctx context.Context, name string) error
	Generations(ctx context.Context) ([]string, error)
	HasGeneration(ctx context.Context, name string) (bool, error)
	// DeleteGeneration removes a generation and reports whether it existed.
	DeleteGeneration(ctx context.Context, name string) (bool, error)
	// GetEntry returns nil without error on a miss.
	GetEntry(ctx context.Context, generation, key string) (*Entry, error)
	// PutEntries stores every entry or none of them.
	PutEntries(ctx context.Context, generation string, entries []*Entry) error
	EntryKeys(ctx context.Context, generation string) ([]string, error)
}

// MemoryBackend keeps generations in process memory.
type MemoryBackend struct {
	mu          sync.RWMutex
	generations map[string]map[string]*Entry
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{generations: make(map[string]map[string]*Entry)}
}

func (m *MemoryBackend) CreateGeneration(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.generations[name]; !ok {
		m.generations[name] = make(map[string]*Entry)
	}
	return nil
}

func (m *MemoryBackend) Generations(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.generations))
	for name := range m.generations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryBackend) HasGeneration(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.generations[name]
	return ok, nil
}

func (m *MemoryBackend) DeleteGeneration(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.generations[name]
	delete(m.generations, name)
	return ok, nil
}

func (m *MemoryBackend) GetEntry(_ context.Context, generation, key string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.generations[generation][key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryBackend) PutEntries(_ context.Context, generation string, entries []*Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gen, ok := m.generations[generation]
	if !ok {
		gen = make(map[string]*Entry)
		m.generations[generation] = gen
	}
	for _, e := range entries {
		cp := *e
		gen[e.URL] = &cp
	}
	return nil
}

func (m *MemoryBackend) EntryKeys(_ context.Context, generation string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.generations[generation]))
	for k := range m.generations[generation] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
