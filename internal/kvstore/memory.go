package kvstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store used in tests and by hosts that opt out of
// persistence.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = stored
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

func (m *Memory) Scan(_ context.Context, prefix string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Entry
	for key, value := range m.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out := make([]byte, len(value))
		copy(out, value)
		result = append(result, Entry{Key: key, Value: out})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}
