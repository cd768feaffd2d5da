package objective

import (
	"sort"
	"sync"

	"github.com/compassradar/extension/pkg/core"
)

// Cache holds the tracked records keyed by entity handle and remembers the
// order in which they were first inserted.
type Cache struct {
	m       sync.Mutex
	entries map[core.EntityHandle]*Cached
	nextSeq uint64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[core.EntityHandle]*Cached),
	}
}

// Get returns a copy of the record for h.
func (c *Cache) Get(h core.EntityHandle) (Cached, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if e, ok := c.entries[h]; ok {
		return *e, true
	}
	return Empty(), false
}

// Has reports whether h is tracked.
func (c *Cache) Has(h core.EntityHandle) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.entries[h]
	return ok
}

// Insert adds rec. If the handle is already tracked the record is replaced
// but keeps its original insertion position. Empty records are ignored.
func (c *Cache) Insert(rec Cached) bool {
	if rec.IsEmpty() {
		return false
	}
	c.m.Lock()
	defer c.m.Unlock()
	if old, ok := c.entries[rec.Handle]; ok {
		rec.seq = old.seq
	} else {
		c.nextSeq++
		rec.seq = c.nextSeq
	}
	c.entries[rec.Handle] = &rec
	return true
}

// Update applies fn to the record for h in place.
func (c *Cache) Update(h core.EntityHandle, fn func(*Cached)) bool {
	c.m.Lock()
	defer c.m.Unlock()
	e, ok := c.entries[h]
	if !ok {
		return false
	}
	seq, handle := e.seq, e.Handle
	fn(e)
	e.seq, e.Handle = seq, handle
	return true
}

// Evict removes the record for h.
func (c *Cache) Evict(h core.EntityHandle) bool {
	c.m.Lock()
	defer c.m.Unlock()
	if _, ok := c.entries[h]; !ok {
		return false
	}
	delete(c.entries, h)
	return true
}

// Retain evicts every record for which keep returns false and returns the
// evicted records in insertion order.
func (c *Cache) Retain(keep func(*Cached) bool) []Cached {
	c.m.Lock()
	defer c.m.Unlock()
	var evicted []Cached
	for _, e := range c.orderedLocked() {
		if !keep(e) {
			evicted = append(evicted, *e)
			delete(c.entries, e.Handle)
		}
	}
	return evicted
}

// Clear removes every record.
func (c *Cache) Clear() {
	c.m.Lock()
	defer c.m.Unlock()
	c.entries = make(map[core.EntityHandle]*Cached)
}

// Len returns the number of tracked records.
func (c *Cache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.entries)
}

// All returns copies of the records in insertion order.
func (c *Cache) All() []Cached {
	c.m.Lock()
	defer c.m.Unlock()
	ordered := c.orderedLocked()
	out := make([]Cached, len(ordered))
	for i, e := range ordered {
		out[i] = *e
	}
	return out
}

// Closest returns the record with the smallest 3D distance. On exact ties
// the record inserted first wins. Records with an unknown distance are
// never selected; Empty() is returned when nothing qualifies.
func (c *Cache) Closest() Cached {
	c.m.Lock()
	defer c.m.Unlock()
	var best *Cached
	for _, e := range c.orderedLocked() {
		d := e.Distance3D
		if d != d {
			continue
		}
		if best == nil || d < best.Distance3D {
			best = e
		}
	}
	if best == nil {
		return Empty()
	}
	return *best
}

func (c *Cache) orderedLocked() []*Cached {
	out := make([]*Cached, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
