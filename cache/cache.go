// Package cache implements the content-addressed response cache shared by
// invocation managers.
//
// Entries are keyed by a deterministic fingerprint over the semantically
// relevant parts of a request (prompt, system message, model, temperature)
// so identical calls deduplicate while a changed temperature produces a new
// entry. Eviction is least-recently-used with a configurable bound; entries
// never expire by time.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
)

// DefaultMaxEntries bounds a cache constructed with a non-positive size.
const DefaultMaxEntries = 1000

// Key returns the deterministic cache key for a request. Prompt and system
// message are whitespace-normalized so incidental leading/trailing space does
// not defeat deduplication.
func Key(prompt, system, model string, temperature float64) string {
	payload, _ := json.Marshal([]string{
		strings.TrimSpace(prompt),
		strings.TrimSpace(system),
		model,
		strconv.FormatFloat(temperature, 'f', -1, 64),
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
}

// entry is the value stored per LRU element.
type entry struct {
	key   string
	value any
}

// ResponseCache is a mutex-guarded LRU cache. The zero value is not usable;
// construct with New. Values are opaque to the cache; the invocation manager
// stores its immutable results here.
type ResponseCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List // front = most recently used
	maxEntries int
	stats      Stats
}

// New creates a ResponseCache bounded to maxEntries. Non-positive sizes fall
// back to DefaultMaxEntries.
func New(maxEntries int) *ResponseCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ResponseCache{
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		maxEntries: maxEntries,
	}
}

// Get returns the cached value for key, marking it most recently used.
func (c *ResponseCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	c.lru.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*entry).value, true
}

// Put stores value under key, evicting the least-recently-used entry when
// the bound is exceeded. Storing an existing key refreshes its value and
// recency.
func (c *ResponseCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*entry).value = value
		c.lru.MoveToFront(elem)
		return
	}

	c.entries[key] = c.lru.PushFront(&entry{key: key, value: value})

	if c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
			c.stats.Evictions++
		}
	}
}

// Len returns the current number of entries.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Clear removes all entries. Counters are preserved.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}

// Stats returns a snapshot of the cache counters.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.lru.Len()
	return s
}
