// Package dedup keeps the process-wide ledger of which (transaction ID,
// event kind) pairs have already been reported to the analytics sink.
//
// Entries are never evicted: the ledger answers a correctness question, so
// dropping an entry would allow a duplicate report.
package dedup

import (
	"sort"
	"sync"

	"github.com/PratikDhanave/iap-event-logger/internal/event"
)

// Cache maps a transaction ID to the set of event kinds recorded for it.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]map[event.Kind]struct{}
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]map[event.Kind]struct{})}
}

// Tx is a view of the cache handed to Update. Its methods must only be used
// inside the Update callback, while the cache lock is held.
type Tx struct {
	c *Cache
}

// Update runs fn while holding the cache lock, so a contains-check and the
// add that depends on it form one atomic step.
func (c *Cache) Update(fn func(tx *Tx)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&Tx{c: c})
}

// Contains reports whether kind was recorded for id. Without a kind it
// reports whether id has any recorded kind.
func (tx *Tx) Contains(id string, kind ...event.Kind) bool {
	return tx.c.contains(id, kind...)
}

// Add records kind for id. Adding an existing pair is a no-op.
func (tx *Tx) Add(id string, kind event.Kind) {
	tx.c.add(id, kind)
}

// Contains is the locking form of Tx.Contains.
func (c *Cache) Contains(id string, kind ...event.Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contains(id, kind...)
}

// Add is the locking form of Tx.Add.
func (c *Cache) Add(id string, kind event.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(id, kind)
}

// Len returns the number of distinct transaction IDs recorded.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Kinds returns the kinds recorded for id, sorted by name.
func (c *Cache) Kinds(id string) []event.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()

	set := c.entries[id]
	out := make([]event.Kind, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// contains must be called with c.mu held.
func (c *Cache) contains(id string, kind ...event.Kind) bool {
	set, ok := c.entries[id]
	if !ok {
		return false
	}
	if len(kind) == 0 {
		return len(set) > 0
	}
	_, ok = set[kind[0]]
	return ok
}

// add must be called with c.mu held.
func (c *Cache) add(id string, kind event.Kind) {
	set, ok := c.entries[id]
	if !ok {
		set = make(map[event.Kind]struct{})
		c.entries[id] = set
	}
	set[kind] = struct{}{}
}
