package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryAdapter keeps entries in process memory. It backs tests and
// ephemeral runs.
type MemoryAdapter struct {
	mu          sync.RWMutex
	entries     map[string][]byte
	quota       int64
	unavailable bool
}

// NewMemoryAdapter creates an empty adapter with the given quota.
// A quota of zero or less means unlimited.
func NewMemoryAdapter(quota int64) *MemoryAdapter {
	return &MemoryAdapter{entries: make(map[string][]byte), quota: quota}
}

// SetAvailable toggles what Available reports.
func (m *MemoryAdapter) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = !available
}

func (m *MemoryAdapter) Name() string { return "memory" }

func (m *MemoryAdapter) Available(context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.unavailable
}

func (m *MemoryAdapter) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryAdapter) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.sizeLocked() + entrySize(key, value)
	if old, ok := m.entries[key]; ok {
		used -= entrySize(key, old)
	}
	if err := checkQuota(used, m.quota); err != nil {
		return err
	}
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryAdapter) Replace(_ context.Context, entries map[string][]byte) error {
	var used int64
	next := make(map[string][]byte, len(entries))
	for k, v := range entries {
		used += entrySize(k, v)
		next[k] = append([]byte(nil), v...)
	}
	if err := checkQuota(used, m.quota); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = next
	return nil
}

func (m *MemoryAdapter) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryAdapter) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]byte)
	return nil
}

func (m *MemoryAdapter) Keys(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryAdapter) Size(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sizeLocked(), nil
}

func (m *MemoryAdapter) Quota() int64 { return m.quota }

func (m *MemoryAdapter) sizeLocked() int64 {
	var total int64
	for k, v := range m.entries {
		total += entrySize(k, v)
	}
	return total
}
