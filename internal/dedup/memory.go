package dedup

import (
	"context"
	"sync"
)

// MemoryBackend keeps sets in process memory. Used in tests and dry runs.
type MemoryBackend struct {
	mu   sync.Mutex
	sets map[Stage][]string

	// SaveErr, when set, is returned by Save after nothing is stored.
	SaveErr error
	// LoadErr, when set, is returned by Load.
	LoadErr error
	// Saves counts successful Save calls.
	Saves int
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sets: make(map[Stage][]string)}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Load(_ context.Context, stage Stage) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return append([]string(nil), m.sets[stage]...), nil
}

func (m *MemoryBackend) Save(_ context.Context, stage Stage, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.sets[stage] = append([]string(nil), keys...)
	m.Saves++
	return nil
}

func (m *MemoryBackend) Reset(_ context.Context, stage Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sets, stage)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
