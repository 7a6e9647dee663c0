package prereq

import "sync"

type cacheEntry struct {
	value       bool
	fingerprint string
}

// Cache remembers the last outcome of each section for one copy-job panel.
//
// Every narrowing operation (Delete, Purge, Reset, Close) advances the
// generation; results computed against an older generation are discarded on
// arrival instead of being written back.
type Cache struct {
	mu         sync.RWMutex
	entries    map[SectionID]cacheEntry
	generation uint64
	closed     bool
}

func NewCache() *Cache {
	return &Cache{entries: make(map[SectionID]cacheEntry)}
}

// Get returns the cached value for id when it was derived from the same
// fingerprint.
func (c *Cache) Get(id SectionID, fingerprint string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok || e.fingerprint != fingerprint {
		return false, false
	}
	return e.value, true
}

// Has reports whether id has any cached value.
func (c *Cache) Has(id SectionID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[id]
	return ok
}

// Generation identifies the current epoch for gating late writes.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Store records value if the cache is still at generation and open.
func (c *Cache) Store(generation uint64, id SectionID, fingerprint string, value bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.generation != generation {
		return false
	}
	c.entries[id] = cacheEntry{value: value, fingerprint: fingerprint}
	return true
}

// Delete drops the given sections so the next pass re-validates them.
func (c *Cache) Delete(ids ...SectionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.entries, id)
	}
	c.generation++
}

// Purge drops the online-only sections.
func (c *Cache) Purge() {
	c.Delete(OnlineSections...)
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[SectionID]cacheEntry)
	c.generation++
}

// Close discards the cache; later stores are ignored.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[SectionID]cacheEntry)
	c.generation++
	c.closed = true
}

// Snapshot returns the cached values keyed by section.
func (c *Cache) Snapshot() map[SectionID]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[SectionID]bool, len(c.entries))
	for id, e := range c.entries {
		out[id] = e.value
	}
	return out
}
