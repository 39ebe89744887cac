package directory

import (
	"sort"

	"github.com/sim-arch/dirsim/sim"
)

// outgoingEntry is one scheduled-but-not-yet-sent message.
type outgoingEntry struct {
	deliverAt sim.VTimeInSec
	seq       uint64
	msg       *Packet
	dirAccess bool
}

// outgoingQueue is a time-ordered multimap `deliveryCycle → message`
// (§3 OutgoingQueues). Entries scheduled for the same cycle drain in
// insertion order, per §9's "stable iteration order at the same cycle is
// insertion order".
type outgoingQueue struct {
	entries []outgoingEntry
	nextSeq uint64
}

func (q *outgoingQueue) enqueue(msg *Packet, deliverAt sim.VTimeInSec, dirAccess bool) {
	q.entries = append(q.entries, outgoingEntry{
		deliverAt: deliverAt,
		seq:       q.nextSeq,
		msg:       msg,
		dirAccess: dirAccess,
	})
	q.nextSeq++

	sort.SliceStable(q.entries, func(i, j int) bool {
		return q.entries[i].deliverAt < q.entries[j].deliverAt
	})
}

func (q *outgoingQueue) empty() bool {
	return len(q.entries) == 0
}

// drain removes and returns every entry scheduled at or before now, in
// delivery order.
func (q *outgoingQueue) drain(now sim.VTimeInSec) []outgoingEntry {
	i := 0
	for i < len(q.entries) && q.entries[i].deliverAt <= now {
		i++
	}

	ready := q.entries[:i]
	q.entries = q.entries[i:]

	return ready
}

// LinkRouter owns the two outgoing queues and the two ports (cpuLink,
// memLink) the directory sends on. When cpuLink and memLink alias to the
// same underlying port (a shared network), both queues still drain onto
// the single port; correctness of addressing then depends entirely on
// packet destinations, matching §2's "routes by destination address".
type LinkRouter struct {
	CPUPort sim.Port
	MemPort sim.Port

	cpuQueue outgoingQueue
	memQueue outgoingQueue
}

// NewLinkRouter creates a LinkRouter over the given ports.
func NewLinkRouter(cpuPort, memPort sim.Port) *LinkRouter {
	return &LinkRouter{CPUPort: cpuPort, MemPort: memPort}
}

// ScheduleToCPU enqueues msg for delivery on cpuLink at deliverAt.
func (r *LinkRouter) ScheduleToCPU(msg *Packet, deliverAt sim.VTimeInSec) {
	r.cpuQueue.enqueue(msg, deliverAt, false)
}

// ScheduleToMem enqueues msg for delivery on memLink at deliverAt.
// dirAccess distinguishes directory-entry traffic from ordinary memory
// traffic for statistics only (§3).
func (r *LinkRouter) ScheduleToMem(msg *Packet, deliverAt sim.VTimeInSec, dirAccess bool) {
	r.memQueue.enqueue(msg, deliverAt, dirAccess)
}

// Empty reports whether both outgoing queues are empty.
func (r *LinkRouter) Empty() bool {
	return r.cpuQueue.empty() && r.memQueue.empty()
}

// Drain sends every message scheduled at or before now on both links,
// invoking onSend for bookkeeping (sent-count statistics, latency
// histograms) before each Send call, per §4.1 step 1.
func (r *LinkRouter) Drain(now sim.VTimeInSec, onSend func(msg *Packet, dirAccess bool, toMem bool)) {
	for _, e := range r.cpuQueue.drain(now) {
		if onSend != nil {
			onSend(e.msg, e.dirAccess, false)
		}

		if err := r.CPUPort.Send(e.msg); err != nil {
			r.cpuQueue.enqueue(e.msg, now, e.dirAccess)
		}
	}

	for _, e := range r.memQueue.drain(now) {
		if onSend != nil {
			onSend(e.msg, e.dirAccess, true)
		}

		if err := r.MemPort.Send(e.msg); err != nil {
			r.memQueue.enqueue(e.msg, now, e.dirAccess)
		}
	}
}
