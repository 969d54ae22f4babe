// Package cache provides the tagged TTL result cache that wraps the
// scraping pipeline. Lookups are lazy-expiring, computation is
// single-flight per key, and every internal failure is swallowed
// fail-open so a caching problem can never become a caller-visible
// failure.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// Entry is one cached value with its expiry and tag metadata. Entries
// are owned exclusively by the providers; callers never mutate them.
type Entry struct {
	Value     any
	CreatedAt time.Time
	TTL       time.Duration
	Tags      []string
}

// Expired reports lazy expiry: an entry with TTL zero is stale on the
// very next read.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) >= e.TTL
}

// Provider is the storage backend behind the cache. Implementations
// must be safe for concurrent use.
type Provider interface {
	Get(key string) (Entry, bool, error)
	Set(key string, entry Entry) error
	Delete(key string) error
	InvalidateTag(tag string) (int, error)
	Clear() error
}

// maxKeyLen bounds keys for backends with key-size limits.
const maxKeyLen = 200

// Key derives a deterministic cache key from the computation's identity
// and its effective arguments. Over-long keys keep a readable prefix
// and gain a hash suffix.
func Key(parts ...string) string {
	key := strings.Join(parts, ":")
	if len(key) <= maxKeyLen {
		return key
	}
	sum := sha1.Sum([]byte(key))
	return key[:100] + ":" + hex.EncodeToString(sum[:])
}
