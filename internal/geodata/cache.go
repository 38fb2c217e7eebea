package geodata

import (
	"sync/atomic"

	"github.com/eta-consult/quote-api/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity is used when the configured capacity is not positive
const DefaultCacheCapacity = 100

// CacheEntry is an immutable lookup result. Found=false records a definitive miss.
type CacheEntry struct {
	Building domain.BuildingAttributes
	Found    bool
}

// CacheStats is a point-in-time view of the cache counters
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	Capacity  int
}

// Cache is a bounded least-recently-used map from normalized address to lookup result
type Cache struct {
	entries   *lru.Cache[string, CacheEntry]
	capacity  int
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewCache creates a cache holding at most capacity entries
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	// Only errors on a non-positive size
	entries, _ := lru.New[string, CacheEntry](capacity)
	return &Cache{entries: entries, capacity: capacity}
}

// Get returns the entry for addr and marks it most recently used
func (c *Cache) Get(addr domain.Address) (CacheEntry, bool) {
	entry, ok := c.entries.Get(addr.CacheKey())
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return entry, ok
}

// Add stores an entry, evicting the least recently used one when full
func (c *Cache) Add(addr domain.Address, entry CacheEntry) {
	if evicted := c.entries.Add(addr.CacheKey(), entry); evicted {
		c.evictions.Add(1)
	}
}

// Clear drops every entry and returns how many there were.
// Counters are kept; a purge is not counted as evictions.
func (c *Cache) Clear() int {
	n := c.entries.Len()
	c.entries.Purge()
	return n
}

// Stats reports the counters and current size
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.entries.Len(),
		Capacity:  c.capacity,
	}
}
