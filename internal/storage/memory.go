package storage

import (
	"maps"
	"sync"
)

// Memory is an in-process Storage. Atomically stages writes on a copy and
// commits them only if fn succeeds.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Atomically(fn func(tx Storage) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := &Memory{data: maps.Clone(m.data)}
	if err := fn(staged); err != nil {
		return err
	}
	m.data = staged.data
	return nil
}

// Len returns the number of stored keys
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
