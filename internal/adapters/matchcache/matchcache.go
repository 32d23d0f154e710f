// Package matchcache memoizes per-document match results in memory so a
// watch loop or repeated directory scan does not re-align files that have
// not changed. Entries are keyed by path plus size and mtime: touching a
// file invalidates its entry naturally, and a TTL bounds staleness from
// clock-granularity edits.
package matchcache

import (
	"fmt"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/balusarakesh/dje-license-search/internal/domain/index"
)

const (
	defaultTTL      = 15 * time.Minute
	cleanupInterval = 5 * time.Minute
)

// Cache memoizes match results per document.
type Cache struct {
	cache *gocache.Cache
}

// New creates a match cache with the default TTL.
func New() *Cache {
	return &Cache{cache: gocache.New(defaultTTL, cleanupInterval)}
}

// Get returns memoized matches for the document at location, if the file
// still has the size and mtime it was scanned with. The variant tag keys
// the matching configuration, so results under different options never
// alias. The second return is false on any miss, including an unreadable
// file.
func (c *Cache) Get(location, variant string) ([]index.Match, bool) {
	key, err := statKey(location, variant)
	if err != nil {
		return nil, false
	}
	if val, found := c.cache.Get(key); found {
		return val.([]index.Match), true
	}
	return nil, false
}

// Put memoizes the matches for the document at location. A file that
// cannot be stat'ed is silently not cached.
func (c *Cache) Put(location, variant string, matches []index.Match) {
	key, err := statKey(location, variant)
	if err != nil {
		return
	}
	c.cache.Set(key, matches, gocache.DefaultExpiration)
}

// Flush drops all memoized results. Called when the index is rebuilt:
// results from the previous index must never be served.
func (c *Cache) Flush() {
	c.cache.Flush()
}

// statKey derives the cache key from the file's identity, its current
// content fingerprint, and the matching configuration.
func statKey(location, variant string) (string, error) {
	fi, err := os.Stat(location)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%d|%d|%s", location, fi.Size(), fi.ModTime().UnixNano(), variant), nil
}
