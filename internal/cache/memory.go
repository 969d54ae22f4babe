package cache

import (
	"sync"
	"time"
)

// MemoryProvider keeps entries in process memory with a tag index.
type MemoryProvider struct {
	mu      sync.RWMutex
	entries map[string]Entry
	tagKeys map[string]map[string]struct{}
	now     func() time.Time
}

// NewMemoryProvider builds an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		entries: make(map[string]Entry),
		tagKeys: make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

// Get returns the entry for key, evicting it first when expired.
func (m *MemoryProvider) Get(key string) (Entry, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	if entry.Expired(m.now()) {
		_ = m.Delete(key)
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Set stores or overwrites the entry for key.
func (m *MemoryProvider) Set(key string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[key]; ok {
		m.unindexLocked(key, old.Tags)
	}
	m.entries[key] = entry
	for _, tag := range entry.Tags {
		keys, ok := m.tagKeys[tag]
		if !ok {
			keys = make(map[string]struct{})
			m.tagKeys[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

// Delete removes the entry for key if present.
func (m *MemoryProvider) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[key]; ok {
		m.unindexLocked(key, entry.Tags)
		delete(m.entries, key)
	}
	return nil
}

// InvalidateTag removes every entry carrying the tag and reports how
// many were dropped.
func (m *MemoryProvider) InvalidateTag(tag string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := m.tagKeys[tag]
	count := 0
	for key := range keys {
		if entry, ok := m.entries[key]; ok {
			m.unindexLocked(key, entry.Tags)
			delete(m.entries, key)
			count++
		}
	}
	delete(m.tagKeys, tag)
	return count, nil
}

// Clear drops all entries.
func (m *MemoryProvider) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	m.tagKeys = make(map[string]map[string]struct{})
	return nil
}

// Len reports the number of live entries, expired or not.
func (m *MemoryProvider) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryProvider) unindexLocked(key string, tags []string) {
	for _, tag := range tags {
		if keys, ok := m.tagKeys[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(m.tagKeys, tag)
			}
		}
	}
}
