// Package geocache is the bounded, expiring result cache shared by forward
// and reverse resolution.
package geocache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// TextKey normalizes forward-geocoding input into a cache key.
func TextKey(address string) string {
	return "txt:" + strings.ToLower(strings.TrimSpace(address))
}

// CoordKey rounds a coordinate to 5 decimal places (about meter level) so
// nearby repeated reverse lookups collapse to the same entry.
func CoordKey(lat, lon float64) string {
	return fmt.Sprintf("rev:%.5f,%.5f", lat, lon)
}

// Cache is a thread-safe LRU cache with a per-entry TTL. Eviction is
// least-recently-used once the size bound is reached; entries past the TTL
// miss unconditionally, regardless of recency. Failed resolutions are never
// stored, so a transient provider outage cannot poison later requests.
type Cache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key      string
	value    domain.ResolvedLocation
	storedAt time.Time
	prev     *entry
	next     *entry
}

// New creates a cache holding at most maxEntries values for at most ttl each.
func New(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clockwork.NewRealClock(),
		entries:    make(map[string]*entry),
	}
}

// Get returns the cached value for key, or a miss when absent or expired.
func (c *Cache) Get(key string) (domain.ResolvedLocation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.ResolvedLocation{}, false
	}
	if c.clock.Since(e.storedAt) >= c.ttl {
		c.removeEntry(e)
		return domain.ResolvedLocation{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Put stores a value, overwriting any existing slot for the key and
// restarting its TTL. Last write wins under concurrent misses.
func (c *Cache) Put(key string, value domain.ResolvedLocation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.storedAt = c.clock.Now()
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, storedAt: c.clock.Now()}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Len reports the current entry count, expired entries included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeEntry(e *entry) {
	delete(c.entries, e.key)
	c.unlink(e)
}

func (c *Cache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *Cache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *Cache) evictTail() {
	if c.tail == nil {
		return
	}
	c.removeEntry(c.tail)
}
