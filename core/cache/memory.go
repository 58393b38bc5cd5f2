package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	Entry
	tags []string
}

// MemoryStore is a process-local Store. It is unbounded; Sweep drops cold entries.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]memEntry
	tagKeys  map[string]map[string]struct{}
	versions map[string]uint64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]memEntry),
		tagKeys:  make(map[string]map[string]struct{}),
		versions: make(map[string]uint64),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e.Entry, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, entry Entry, tags []string, versions Versions) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if versions != nil {
		for _, tag := range tags {
			if m.versions[tag] != versions[tag] {
				return false, nil
			}
		}
	}

	m.entries[key] = memEntry{Entry: entry, tags: tags}
	for _, tag := range tags {
		keys, ok := m.tagKeys[tag]
		if !ok {
			keys = make(map[string]struct{})
			m.tagKeys[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return true, nil
}

func (m *MemoryStore) TagVersions(_ context.Context, tags []string) (Versions, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := make(Versions, len(tags))
	for _, tag := range tags {
		versions[tag] = m.versions[tag]
	}
	return versions, nil
}

func (m *MemoryStore) InvalidateTag(_ context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.versions[tag]++
	for key := range m.tagKeys[tag] {
		delete(m.entries, key)
	}
	delete(m.tagKeys, tag)
	return nil
}

// Sweep drops entries stored before `before` and returns how many were dropped.
func (m *MemoryStore) Sweep(before time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for key, e := range m.entries {
		if e.StoredAt.Before(before) {
			delete(m.entries, key)
			for _, tag := range e.tags {
				delete(m.tagKeys[tag], key)
			}
			n++
		}
	}
	return n
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
