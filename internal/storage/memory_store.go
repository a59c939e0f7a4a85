package storage

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a DataStore kept in process memory. It backs tests and the
// --ephemeral server mode; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	blobs   map[string][]byte
	stamps  map[string]Stamp
	counter int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte), stamps: make(map[string]Stamp)}
}

func (m *MemoryStore) GetBasePath() string { return "" }

func (m *MemoryStore) Load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("collection %s not found: %w", key, os.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Save(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	m.blobs[key] = append([]byte(nil), data...)
	// The counter keeps stamps distinct even when the clock does not move.
	m.stamps[key] = Stamp{ModTime: time.Unix(0, m.counter), Size: int64(len(data))}
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	delete(m.stamps, key)
	return nil
}

func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Stamp(key string) (Stamp, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stamps[key]
	if !ok {
		return Stamp{}, os.ErrNotExist
	}
	return st, nil
}
