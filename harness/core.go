// Package harness provides a minimal node-level exerciser for the
// directory controller: a handful of cores, each with a task deque of
// lazy computations, whose memory stalls turn into request/response
// traffic on the same cpuLink/memLink fabric the directory understands.
package harness

import "github.com/sim-arch/dirsim/directory"

// CoreState names where a core is in its step/stall cycle.
type CoreState int

const (
	// StateReady means the core can execute its next task.
	StateReady CoreState = iota
	// StateStallRead means the core is blocked on an outstanding read.
	StateStallRead
	// StateStallWrite means the core is blocked on an outstanding write.
	StateStallWrite
	// StateDone means the core's task deque is empty and it has nothing
	// left to run.
	StateDone
)

// Task is one lazily-evaluated unit of core work. Step is called once per
// tick while the core is ready; it returns the memory access the step
// wants to make, or nil if the step completed without touching memory.
type Task func(core *Core) *MemAccess

// AccessKind distinguishes a read stall from a write stall.
type AccessKind int

const (
	AccessRead AccessKind = iota
	AccessWrite
)

// MemAccess is the memory request a task step wants satisfied before the
// core can continue, along with which PXN (node id) owns the target
// address.
type MemAccess struct {
	Kind AccessKind
	Addr directory.Addr
	Size uint64
	Data []byte
	PXN  int // -1 means local
}

// Core is one execution context within a Node: a task deque plus the
// state needed to synthesize and wait on a memory-request event.
type Core struct {
	ID    int
	state CoreState

	deque []Task

	pending *MemAccess
	result  []byte

	// Result is written here by the node harness once the directory
	// responds; a task observes it on its next Step call.
	LastResult []byte
}

// NewCore creates an idle core with an empty task deque.
func NewCore(id int) *Core {
	return &Core{ID: id, state: StateReady}
}

// PushTask appends t to the back of the core's task deque.
func (c *Core) PushTask(t Task) {
	c.deque = append(c.deque, t)
}

// Ready reports whether the core can execute its next task this tick.
func (c *Core) Ready() bool {
	return c.state == StateReady && len(c.deque) > 0
}

// State returns the core's current state.
func (c *Core) State() CoreState {
	return c.state
}

// Step pops and runs the front task. If the task requests a memory
// access, the core transitions to the matching stall state and the
// access is returned for the node to turn into a request event.
func (c *Core) Step() *MemAccess {
	if len(c.deque) == 0 {
		c.state = StateDone
		return nil
	}

	task := c.deque[0]
	c.deque = c.deque[1:]

	access := task(c)
	if access == nil {
		return nil
	}

	c.pending = access
	if access.Kind == AccessRead {
		c.state = StateStallRead
	} else {
		c.state = StateStallWrite
	}

	return access
}

// DepositResponse delivers returned data to a stalled core and marks it
// ready again (§4.9's "on memory response, deposit returned data into the
// core's state and mark ready").
func (c *Core) DepositResponse(data []byte) {
	c.LastResult = data
	c.pending = nil
	c.state = StateReady
}

// Pending returns the access the core is currently stalled on, or nil.
func (c *Core) Pending() *MemAccess {
	return c.pending
}
