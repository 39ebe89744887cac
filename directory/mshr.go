package directory

// mshrEntryKind distinguishes a parked event from a writeback marker in an
// MSHR queue.
type mshrEntryKind int

const (
	kindEvent mshrEntryKind = iota
	kindWriteback
)

type mshrSlot struct {
	kind  mshrEntryKind
	event *Packet
}

// mshrLine is the per-address state the MSHR keeps: its ordered queue of
// parked events/writeback markers plus the ack counter and opportunistic
// data buffer described in §3/§4.5.
type mshrLine struct {
	queue      []mshrSlot
	acksNeeded int
	inProgress bool

	hasData    bool
	data       []byte
	dataDirty  bool
}

// MSHRInsertPosition selects where insertEvent places a new slot within an
// address's queue.
type MSHRInsertPosition int

const (
	// InsertDefault appends to the back of the queue (ordinary requests).
	InsertDefault MSHRInsertPosition = iota
	// InsertFront inserts at index 0, used for flushes that must
	// interleave ahead of in-flight invalidations.
	InsertFront
	// InsertSecond inserts at index 1, used for invalidations/fetches that
	// must follow only a flush already at the front.
	InsertSecond
)

// MSHR is the miss-status holding register: a bounded (or unbounded) map
// from line address to an ordered queue of blocked events, with per-line
// ack counters and an opportunistic data buffer (§4.5).
type MSHR struct {
	lines    map[Addr]*mshrLine
	maxSize  int // total slots across all addresses; -1 = unlimited
	numSlots int
}

// NewMSHR creates an MSHR bounded at maxSize total entries; pass -1 for
// unlimited (the `mshr_num_entries` default).
func NewMSHR(maxSize int) *MSHR {
	return &MSHR{
		lines:   make(map[Addr]*mshrLine),
		maxSize: maxSize,
	}
}

func (m *MSHR) lineFor(addr Addr) *mshrLine {
	l, ok := m.lines[addr]
	if !ok {
		l = &mshrLine{}
		m.lines[addr] = l
	}

	return l
}

// Exists reports whether addr has any MSHR activity at all (a non-empty
// queue, in-progress marker, or buffered data) — the condition EntryCache
// eviction must respect.
func (m *MSHR) Exists(addr Addr) bool {
	l, ok := m.lines[addr]
	if !ok {
		return false
	}

	return len(l.queue) > 0 || l.inProgress || l.hasData
}

// InsertEvent inserts ev into addr's queue at pos. forward marks a
// forward-path insert (an invalidation/fetch this directory issued) which
// is allowed to bypass the capacity limit for deadlock avoidance (§5). It
// returns the final index, or -1 if the MSHR is full and the insert was
// rejected (the caller must NACK).
func (m *MSHR) InsertEvent(
	addr Addr,
	ev *Packet,
	pos MSHRInsertPosition,
	forward bool,
) int {
	if !forward && m.maxSize >= 0 && m.numSlots >= m.maxSize {
		return -1
	}

	l := m.lineFor(addr)
	slot := mshrSlot{kind: kindEvent, event: ev}

	idx := m.insertAt(l, slot, pos)
	m.numSlots++

	return idx
}

// InsertWriteback inserts a writeback marker so the line cannot progress
// past it until the marker is explicitly removed (waitWBAck mode, §4.6).
func (m *MSHR) InsertWriteback(addr Addr) {
	l := m.lineFor(addr)
	l.queue = append(l.queue, mshrSlot{kind: kindWriteback})
	m.numSlots++
}

// PendingWriteback reports whether the front of addr's queue is a
// writeback marker still awaiting its ack.
func (m *MSHR) PendingWriteback(addr Addr) bool {
	l, ok := m.lines[addr]
	if !ok || len(l.queue) == 0 {
		return false
	}

	return l.queue[0].kind == kindWriteback
}

// RemoveWriteback removes the front writeback marker once its ack has
// arrived.
func (m *MSHR) RemoveWriteback(addr Addr) {
	l, ok := m.lines[addr]
	if !ok || len(l.queue) == 0 || l.queue[0].kind != kindWriteback {
		return
	}

	l.queue = l.queue[1:]
	m.numSlots--
	m.cleanupIfEmpty(addr, l)
}

func (m *MSHR) insertAt(l *mshrLine, slot mshrSlot, pos MSHRInsertPosition) int {
	switch pos {
	case InsertFront:
		l.queue = append([]mshrSlot{slot}, l.queue...)
		return 0
	case InsertSecond:
		if len(l.queue) == 0 {
			l.queue = append(l.queue, slot)
			return 0
		}

		idx := 1
		if idx > len(l.queue) {
			idx = len(l.queue)
		}

		l.queue = append(l.queue, mshrSlot{})
		copy(l.queue[idx+1:], l.queue[idx:])
		l.queue[idx] = slot

		return idx
	default:
		l.queue = append(l.queue, slot)
		return len(l.queue) - 1
	}
}

// GetFrontEvent returns the event at the front of addr's queue, or nil if
// the queue is empty or the front is a writeback marker.
func (m *MSHR) GetFrontEvent(addr Addr) *Packet {
	l, ok := m.lines[addr]
	if !ok || len(l.queue) == 0 || l.queue[0].kind != kindEvent {
		return nil
	}

	return l.queue[0].event
}

// RemoveFront pops the front slot of addr's queue, whatever kind it is.
func (m *MSHR) RemoveFront(addr Addr) {
	l, ok := m.lines[addr]
	if !ok || len(l.queue) == 0 {
		return
	}

	l.queue = l.queue[1:]
	m.numSlots--
	m.cleanupIfEmpty(addr, l)
}

// RemoveEntry removes the slot at index idx from addr's queue (used when
// an event is satisfied out of order, e.g. opportunistic data hits).
func (m *MSHR) RemoveEntry(addr Addr, idx int) {
	l, ok := m.lines[addr]
	if !ok || idx < 0 || idx >= len(l.queue) {
		return
	}

	l.queue = append(l.queue[:idx], l.queue[idx+1:]...)
	m.numSlots--
	m.cleanupIfEmpty(addr, l)
}

func (m *MSHR) cleanupIfEmpty(addr Addr, l *mshrLine) {
	if len(l.queue) == 0 && !l.inProgress && !l.hasData {
		delete(m.lines, addr)
	}
}

// SetInProgress marks addr as having an outstanding memory-side request,
// so the line does not re-issue a duplicate.
func (m *MSHR) SetInProgress(addr Addr, inProgress bool) {
	l := m.lineFor(addr)
	l.inProgress = inProgress
	m.cleanupIfEmpty(addr, l)
}

// InProgress reports whether addr has an outstanding memory-side request.
func (m *MSHR) InProgress(addr Addr) bool {
	l, ok := m.lines[addr]
	return ok && l.inProgress
}

// IncrementAcksNeeded is called once per invalidation/fetch issued.
func (m *MSHR) IncrementAcksNeeded(addr Addr) {
	m.lineFor(addr).acksNeeded++
}

// DecrementAcksNeeded is called once per AckInv/FetchResp/FetchXResp
// received; it returns true if the counter just reached zero.
func (m *MSHR) DecrementAcksNeeded(addr Addr) bool {
	l := m.lineFor(addr)
	if l.acksNeeded > 0 {
		l.acksNeeded--
	}

	return l.acksNeeded == 0
}

// AcksNeeded returns the current outstanding-ack count for addr.
func (m *MSHR) AcksNeeded(addr Addr) int {
	l, ok := m.lines[addr]
	if !ok {
		return 0
	}

	return l.acksNeeded
}

// Occupancy returns the total number of slots (parked events plus
// writeback markers) currently held across every address, the quantity
// §6's MSHR_occupancy statistic samples over time.
func (m *MSHR) Occupancy() int {
	return m.numSlots
}

// SetData buffers a response payload opportunistically, for when the
// front event cannot be satisfied immediately (§4.5).
func (m *MSHR) SetData(addr Addr, data []byte, dirty bool) {
	l := m.lineFor(addr)
	l.hasData = true
	l.data = data
	l.dataDirty = dirty
}

// HasData reports whether addr has a buffered payload.
func (m *MSHR) HasData(addr Addr) bool {
	l, ok := m.lines[addr]
	return ok && l.hasData
}

// GetData returns the buffered payload and its dirty bit.
func (m *MSHR) GetData(addr Addr) ([]byte, bool) {
	l, ok := m.lines[addr]
	if !ok {
		return nil, false
	}

	return l.data, l.dataDirty
}

// ClearData discards the buffered payload for addr.
func (m *MSHR) ClearData(addr Addr) {
	l, ok := m.lines[addr]
	if !ok {
		return
	}

	l.hasData = false
	l.data = nil
	l.dataDirty = false
	m.cleanupIfEmpty(addr, l)
}
