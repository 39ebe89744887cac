package directory

import "container/list"

// lruNode is the payload stored in the EntryCache's list.List elements;
// DirEntry.lruElem points back at the *list.Element wrapping one of these.
type lruNode struct {
	addr Addr
}

// EntryCache is an associative `address → *DirEntry` map with LRU
// eviction, grounded on the generic tag-array/LRU-queue idiom the teacher
// uses for cache tag arrays, specialized here to directory entries instead
// of cache lines (§4.4). When maxSize is 0 every touch is immediately
// evicted — the "no caching" configuration.
type EntryCache struct {
	entries map[Addr]*DirEntry
	lru     *list.List // front = MRU, back = LRU
	maxSize int
}

// NewEntryCache creates an EntryCache bounded at maxSize resident entries.
func NewEntryCache(maxSize int) *EntryCache {
	return &EntryCache{
		entries: make(map[Addr]*DirEntry),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Lookup returns the entry for addr and whether it is present (resident in
// the cache, as opposed to never having been touched or having been
// evicted to memory).
func (c *EntryCache) Lookup(addr Addr) (*DirEntry, bool) {
	e, ok := c.entries[addr]
	return e, ok
}

// GetOrCreate returns the existing entry for addr, or allocates a fresh I
// entry and inserts it at the MRU position.
func (c *EntryCache) GetOrCreate(addr Addr) *DirEntry {
	if e, ok := c.entries[addr]; ok {
		return e
	}

	e := newDirEntry(addr)
	c.insert(e)

	return e
}

func (c *EntryCache) insert(e *DirEntry) {
	c.entries[e.Addr] = e
	e.lruElem = c.lru.PushFront(&lruNode{addr: e.Addr})
}

// Touch moves e to the MRU position, or deletes it outright if it is idle,
// per §4.4's "on every completed request" rule. When the cache is
// configured with maxSize 0 ("no caching"), the entry is evicted on the
// spot instead and returned so the caller can write it back to memory;
// otherwise the caller is expected to call EvictOverflow afterwards to
// reclaim space down to maxSize.
func (c *EntryCache) Touch(e *DirEntry) []*DirEntry {
	if e.IsIdle() {
		c.remove(e)
		return nil
	}

	if e.lruElem != nil {
		c.lru.MoveToFront(e.lruElem)
	} else {
		c.insert(e)
	}

	if c.maxSize == 0 {
		evicted := []*DirEntry{e}
		c.remove(e)
		e.Cached = false

		return evicted
	}

	return nil
}

func (c *EntryCache) remove(e *DirEntry) {
	if e.lruElem != nil {
		c.lru.Remove(e.lruElem)
		e.lruElem = nil
	}

	delete(c.entries, e.Addr)
}

// EvictOverflow evicts from the LRU back while the cache holds more than
// maxSize entries, skipping any entry for which hasActivity returns true
// (an address with MSHR activity may never be evicted — §4.4). Evicted
// entries are marked Cached=false and returned so the caller can enqueue
// their PutE writebacks.
func (c *EntryCache) EvictOverflow(hasActivity func(Addr) bool) []*DirEntry {
	var evicted []*DirEntry

	elem := c.lru.Back()
	for c.lru.Len() > c.maxSize && elem != nil {
		prev := elem.Prev()

		node := elem.Value.(*lruNode)
		if hasActivity(node.addr) {
			elem = prev
			continue
		}

		e := c.entries[node.addr]
		c.remove(e)
		e.Cached = false
		evicted = append(evicted, e)

		elem = prev
	}

	return evicted
}

// Size returns the number of entries currently resident.
func (c *EntryCache) Size() int {
	return c.lru.Len()
}
