package directory

import (
	"container/list"

	"github.com/sim-arch/dirsim/sim"
)

// NodeID identifies a cache (or other cpuLink endpoint) by its port name.
type NodeID = sim.RemotePort

// DirEntry is the per-line metadata the directory tracks: state, the
// current owner or sharer set, and its residency in the EntryCache.
type DirEntry struct {
	Addr Addr

	State CoherenceState

	// Owner is valid only while State is one of M, M_Inv, M_InvX.
	Owner NodeID
	// HasOwner distinguishes "no owner" from the zero value of NodeID,
	// since RemotePort is a plain string and "" is itself a legal name.
	HasOwner bool

	// Sharers is valid only while State is one of S, S_D, S_B, S_Inv,
	// SD_Inv, SB_Inv, SM_Inv.
	Sharers map[NodeID]bool

	// Cached reports whether the entry is resident in the EntryCache, as
	// opposed to spilled out to the backing memory.
	Cached bool

	// lruElem is the entry's position in the EntryCache's LRU list,
	// maintained by EntryCache and opaque to everything else.
	lruElem *list.Element
}

func newDirEntry(addr Addr) *DirEntry {
	return &DirEntry{
		Addr:    addr,
		State:   I,
		Sharers: make(map[NodeID]bool),
		Cached:  true,
	}
}

// SetOwner records node as the line's exclusive owner.
func (e *DirEntry) SetOwner(node NodeID) {
	e.Owner = node
	e.HasOwner = true
}

// ClearOwner removes the current owner, if any.
func (e *DirEntry) ClearOwner() {
	e.Owner = ""
	e.HasOwner = false
}

// AddSharer records node as a sharer of the line.
func (e *DirEntry) AddSharer(node NodeID) {
	e.Sharers[node] = true
}

// RemoveSharer drops node from the sharer set.
func (e *DirEntry) RemoveSharer(node NodeID) {
	delete(e.Sharers, node)
}

// IsSharer reports whether node currently shares the line.
func (e *DirEntry) IsSharer(node NodeID) bool {
	return e.Sharers[node]
}

// OtherSharers returns every sharer except excl.
func (e *DirEntry) OtherSharers(excl NodeID) []NodeID {
	others := make([]NodeID, 0, len(e.Sharers))
	for n := range e.Sharers {
		if n != excl {
			others = append(others, n)
		}
	}

	return others
}

// NumSharers returns the number of current sharers.
func (e *DirEntry) NumSharers() int {
	return len(e.Sharers)
}

// IsIdle reports whether the entry is in I with no owner or sharers — the
// condition under which it is evictable and deletable (§3 Lifecycle).
func (e *DirEntry) IsIdle() bool {
	return e.State == I && !e.HasOwner && len(e.Sharers) == 0
}

// responseTracker implements the `addr → (dst → eventId)` map from §3 that
// records outstanding invalidations and fetches, so the NACK path can test
// freshness without chasing pointers to the original event.
type responseTracker struct {
	pending map[Addr]map[NodeID]string
}

func newResponseTracker() *responseTracker {
	return &responseTracker{pending: make(map[Addr]map[NodeID]string)}
}

func (t *responseTracker) record(addr Addr, dst NodeID, eventID string) {
	m, ok := t.pending[addr]
	if !ok {
		m = make(map[NodeID]string)
		t.pending[addr] = m
	}

	m[dst] = eventID
}

// isCurrent reports whether eventID is still the outstanding response
// expected from dst for addr.
func (t *responseTracker) isCurrent(addr Addr, dst NodeID, eventID string) bool {
	m, ok := t.pending[addr]
	if !ok {
		return false
	}

	return m[dst] == eventID
}

func (t *responseTracker) clear(addr Addr, dst NodeID) {
	m, ok := t.pending[addr]
	if !ok {
		return
	}

	delete(m, dst)
	if len(m) == 0 {
		delete(t.pending, addr)
	}
}

// count returns the number of outstanding responses tracked for addr,
// which must equal the line's MSHR acksNeeded counter (§8 invariant).
func (t *responseTracker) count(addr Addr) int {
	return len(t.pending[addr])
}
