package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileProvider persists entries as JSON files under a directory, one
// file per key. It survives restarts at the cost of slower reads;
// values round-trip through JSON, so cached structs come back as
// generic maps.
type FileProvider struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

type fileEntry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	TTLSec    float64         `json:"ttl_seconds"`
	Tags      []string        `json:"tags,omitempty"`
}

// NewFileProvider builds a provider rooted at dir, creating it when
// missing.
func NewFileProvider(dir string) (*FileProvider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileProvider{dir: dir, now: time.Now}, nil
}

// Get loads the entry for key, evicting it first when expired.
func (f *FileProvider) Get(key string) (Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, err := f.load(f.path(key))
	if os.IsNotExist(err) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	entry := stored.toEntry()
	if entry.Expired(f.now()) {
		_ = os.Remove(f.path(key))
		return Entry{}, false, nil
	}
	var value any
	if err := json.Unmarshal(stored.Value, &value); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached value: %w", err)
	}
	entry.Value = value
	return entry, true, nil
}

// Set stores the entry for key, overwriting any previous file.
func (f *FileProvider) Set(key string, entry Entry) error {
	raw, err := json.Marshal(entry.Value)
	if err != nil {
		return fmt.Errorf("encode cached value: %w", err)
	}
	stored := fileEntry{
		Key:       key,
		Value:     raw,
		CreatedAt: entry.CreatedAt,
		TTLSec:    entry.TTL.Seconds(),
		Tags:      entry.Tags,
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.WriteFile(f.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry file for key if present.
func (f *FileProvider) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// InvalidateTag scans all entry files and removes those carrying the
// tag.
func (f *FileProvider) InvalidateTag(tag string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths, err := filepath.Glob(filepath.Join(f.dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("scan cache dir: %w", err)
	}
	count := 0
	for _, path := range paths {
		stored, err := f.load(path)
		if err != nil {
			continue
		}
		for _, t := range stored.Tags {
			if t == tag {
				if os.Remove(path) == nil {
					count++
				}
				break
			}
		}
	}
	return count, nil
}

// Clear removes every entry file.
func (f *FileProvider) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths, err := filepath.Glob(filepath.Join(f.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("scan cache dir: %w", err)
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear cache entry: %w", err)
		}
	}
	return nil
}

func (f *FileProvider) path(key string) string {
	sum := sha1.Sum([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+".json")
}

func (f *FileProvider) load(path string) (fileEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileEntry{}, err
	}
	var stored fileEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return fileEntry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	return stored, nil
}

func (e fileEntry) toEntry() Entry {
	return Entry{
		CreatedAt: e.CreatedAt,
		TTL:       time.Duration(e.TTLSec * float64(time.Second)),
		Tags:      e.Tags,
	}
}
