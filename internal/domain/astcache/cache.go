// Package astcache keeps parsed files in memory, shared across the project.
// An entry is valid as long as the content it was parsed from is unchanged.
package astcache

import (
	"crypto/sha256"
	"sync"

	"github.com/corey/sigsync/internal/domain/cppast"
	"github.com/corey/sigsync/internal/ports"
)

const defaultCacheBytes = 64 * 1024 * 1024 // 64 MB of source text

// Cache maps absolute paths to parsed files. Thread-safe via internal RWMutex;
// concurrent misses for the same file may parse it twice, last one wins.
type Cache struct {
	parser ports.Parser

	mu       sync.RWMutex
	entries  map[string]*entry
	total    int64
	maxBytes int64
	clock    uint64

	hits, misses uint64
}

type entry struct {
	sum  [sha256.Size]byte
	file *cppast.File
	used uint64
}

// New creates a cache over parser. maxBytes bounds the total source size
// kept; 0 uses the default budget.
func New(parser ports.Parser, maxBytes int64) *Cache {
	if maxBytes <= 0 {
		maxBytes = defaultCacheBytes
	}
	return &Cache{parser: parser, entries: make(map[string]*entry), maxBytes: maxBytes}
}

// Get returns the parse of src for path, parsing on a miss or when the cached
// entry was built from different content.
func (c *Cache) Get(path string, src []byte) (*cppast.File, error) {
	sum := sha256.Sum256(src)

	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && e.sum == sum {
		c.mu.Lock()
		c.clock++
		e.used = c.clock
		c.hits++
		c.mu.Unlock()
		return e.file, nil
	}

	f, err := c.parser.Parse(path, src)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	c.removeLocked(path)
	c.clock++
	c.entries[path] = &entry{sum: sum, file: f, used: c.clock}
	c.total += int64(len(src))
	c.evictLocked(path)
	return f, nil
}

// Invalidate drops the entry for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(path)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.total = 0
}

// Stats reports entry count, total cached source bytes, hits and misses.
func (c *Cache) Stats() (entries int, bytes int64, hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), c.total, c.hits, c.misses
}

func (c *Cache) removeLocked(path string) {
	if e, ok := c.entries[path]; ok {
		c.total -= int64(len(e.file.Src))
		delete(c.entries, path)
	}
}

// evictLocked drops least recently used entries until the budget holds.
// keep is never evicted.
func (c *Cache) evictLocked(keep string) {
	for c.total > c.maxBytes && len(c.entries) > 1 {
		victim := ""
		var oldest uint64
		for p, e := range c.entries {
			if p == keep {
				continue
			}
			if victim == "" || e.used < oldest {
				victim, oldest = p, e.used
			}
		}
		if victim == "" {
			return
		}
		c.removeLocked(victim)
	}
}
