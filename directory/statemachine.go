package directory

import "log"

// processPacket dispatches one cacheable packet per §4.3. It returns true
// if the event was consumed this cycle (popped or rejected outright);
// false means "leave it in the buffer, try again next cycle".
func (c *Comp) processPacket(now VTime, ev *Packet, replay bool) bool {
	if ev.Global {
		if !c.Config.region().Contains(ev.Addr) {
			badAddress(ev.Addr)
		}

		base := LineAddr(ev.Addr, c.Config.CacheLineSize)

		if c.addrsThisCycle[base] {
			return false
		}

		consumed := c.processCacheEvent(now, base, ev, replay)
		if consumed {
			c.addrsThisCycle[base] = true
		}

		return consumed
	}

	c.handleDirEntryResponse(now, ev)
	return true
}

// processCacheEvent implements the "common structure" from §4.3 a-f, then
// dispatches to the per-command handler.
func (c *Comp) processCacheEvent(now VTime, base Addr, ev *Packet, replay bool) bool {
	entry := c.entries.GetOrCreate(base)

	if !entry.Cached {
		return c.handleUncachedAccess(now, base, entry, ev)
	}

	if !replay && ev.Cmd.IsResponse() {
		c.stats.MSHRHits++
	}

	if c.mshr.HasData(base) && ev.Cmd.IsRequest() && isWriteIntent(ev.Cmd) {
		data, dirty := c.mshr.GetData(base)
		if dirty {
			c.writebackData(now, base, data, true)
		}
		c.mshr.ClearData(base)
	}

	consumed := c.dispatch(now, entry, ev)
	if consumed {
		c.touchEntry(now, entry)
	}

	return consumed
}

func isWriteIntent(cmd Command) bool {
	switch cmd {
	case GetX, GetSX, Write:
		return true
	default:
		return false
	}
}

// handleUncachedAccess implements §4.3 step b / §4.4's "non-cached entry"
// path: issue a directory-entry read and transition to the X_d state.
func (c *Comp) handleUncachedAccess(now VTime, base Addr, entry *DirEntry, ev *Packet) bool {
	idx := c.mshr.InsertEvent(base, ev, InsertDefault, false)
	if idx == -1 {
		c.sendNACK(now, ev)
		return true
	}

	if idx != 0 || c.mshr.InProgress(base) {
		return true
	}

	entry.State = dirFetchOf(entry.State)

	req := NewPacketBuilder().
		WithSrc(c.memPortName()).
		WithDst(c.memDestFor(base)).
		WithCmd(GetS).
		WithAddr(base).
		NonGlobal().
		WithSize(4).
		Build()

	c.dirMemAccesses[req.ID] = base
	c.router.ScheduleToMem(req, now+c.cyclesToTime(c.Config.AccessLatencyCycles), true)
	c.mshr.SetInProgress(base, true)

	return true
}

// handleDirEntryResponse implements §4.4's response path: restore the
// stable state, mark cached, and retry the front MSHR event.
func (c *Comp) handleDirEntryResponse(now VTime, ev *Packet) {
	base, ok := c.dirMemAccesses[ev.RspTo]
	if !ok {
		noPendingDirEntryFetch(ev.RspTo)
	}

	delete(c.dirMemAccesses, ev.RspTo)

	entry, ok := c.entries.Lookup(base)
	if !ok {
		log.Panicf("directory: dir-entry response for untracked address %d", base)
	}

	entry.State = stableOf(entry.State)
	entry.Cached = true
	c.mshr.SetInProgress(base, false)
	c.stats.DirectoryCacheHits++

	if front := c.mshr.GetFrontEvent(base); front != nil {
		c.parkInRetryBuffer(front)
	}
}

// touchEntry implements §4.4's EntryCache bookkeeping after every
// completed request.
func (c *Comp) touchEntry(now VTime, entry *DirEntry) {
	evicted := c.entries.Touch(entry)
	c.writeBackEvicted(now, evicted)

	overflow := c.entries.EvictOverflow(c.mshr.Exists)
	c.writeBackEvicted(now, overflow)
}

func (c *Comp) writeBackEvicted(now VTime, evicted []*DirEntry) {
	for _, e := range evicted {
		if e.State == I {
			continue
		}

		req := NewPacketBuilder().
			WithSrc(c.memPortName()).
			WithDst(c.memDestFor(e.Addr)).
			WithCmd(PutE).
			WithAddr(e.Addr).
			NonGlobal().
			WithSize(4).
			WithFlags(FlagNoResponse).
			Build()

		c.router.ScheduleToMem(req, now+c.cyclesToTime(c.Config.AccessLatencyCycles), true)
	}
}

func (c *Comp) cyclesToTime(cycles uint64) VTime {
	return VTime(cycles) * c.period()
}

// dispatch implements the per-command transition tables of §4.3.
func (c *Comp) dispatch(now VTime, entry *DirEntry, ev *Packet) bool {
	switch ev.Cmd {
	case GetS:
		return c.handleGetS(now, entry, ev)
	case GetX, GetSX, Write:
		return c.handleGetXOrWrite(now, entry, ev)
	case PutS:
		return c.handlePutS(now, entry, ev)
	case PutE, PutM, PutX:
		return c.handlePutOwned(now, entry, ev)
	case FlushLine, FlushLineInv:
		return c.handleFlush(now, entry, ev)
	case FetchInv, ForceInv:
		return c.handleFetchInvFromMemory(now, entry, ev)
	case GetSResp:
		return c.handleGetSResp(now, entry, ev)
	case GetXResp:
		return c.handleGetXResp(now, entry, ev)
	case WriteResp:
		return c.handleWriteResp(now, entry, ev)
	case FlushLineResp:
		return c.handleFlushLineResp(now, entry, ev)
	case AckInv:
		return c.handleAckInv(now, entry, ev)
	case AckPut:
		return c.handleAckPut(now, entry, ev)
	case FetchResp:
		return c.handleFetchResp(now, entry, ev)
	case FetchXResp:
		return c.handleFetchXResp(now, entry, ev)
	case NACK:
		return c.handleRequestNACK(now, entry, ev)
	default:
		log.Panicf("directory: no handler registered for command %s", ev.Cmd)
	}

	return false
}

func (c *Comp) incoherent(node NodeID) bool {
	return c.incoherentSources[node]
}

// --- GetS -------------------------------------------------------------

func (c *Comp) handleGetS(now VTime, entry *DirEntry, ev *Packet) bool {
	switch entry.State {
	case I:
		if c.mshr.HasData(entry.Addr) {
			data, _ := c.mshr.GetData(entry.Addr)
			c.respondToGetS(now, entry, ev, data)
			c.mshr.ClearData(entry.Addr)
			return true
		}

		return c.missAndFetch(now, entry, ev, IS)

	case S:
		if c.mshr.HasData(entry.Addr) {
			data, _ := c.mshr.GetData(entry.Addr)
			if !c.incoherent(ev.Src) {
				entry.AddSharer(ev.Src)
			}
			c.sendDataResponse(now, ev, GetSResp, data, false)
			return true
		}

		return c.missAndFetch(now, entry, ev, SD)

	case M:
		return c.stallOrInsert(now, entry, ev, func() bool {
			entry.State = MInvX
			c.issueFetch(now, entry, ev, FetchInvX)
			return true
		})

	default:
		return c.parkBehind(now, entry, ev)
	}
}

// respondToGetS implements the Open Question preserved verbatim: an
// incoherent requester with buffered data in I gets a GetSResp but the
// entry stays in I.
func (c *Comp) respondToGetS(now VTime, entry *DirEntry, ev *Packet, data []byte) {
	if c.incoherent(ev.Src) {
		c.sendDataResponse(now, ev, GetSResp, data, false)
		return
	}

	if c.Config.Protocol == MESI {
		entry.State = M
		entry.SetOwner(ev.Src)
	} else {
		entry.State = S
		entry.AddSharer(ev.Src)
	}

	c.sendDataResponse(now, ev, GetSResp, data, false)
}

func (c *Comp) missAndFetch(now VTime, entry *DirEntry, ev *Packet, nextState CoherenceState) bool {
	idx := c.mshr.InsertEvent(entry.Addr, ev, InsertDefault, false)
	if idx == -1 {
		c.sendNACK(now, ev)
		return true
	}

	if idx != 0 {
		return true
	}

	entry.State = nextState
	c.issueMemoryRequest(now, entry, ev, true)

	return true
}

// --- GetX / GetSX / Write ----------------------------------------------

func (c *Comp) handleGetXOrWrite(now VTime, entry *DirEntry, ev *Packet) bool {
	switch entry.State {
	case I:
		idx := c.mshr.InsertEvent(entry.Addr, ev, InsertDefault, false)
		if idx == -1 {
			c.sendNACK(now, ev)
			return true
		}

		if idx != 0 {
			return true
		}

		entry.State = IM
		c.issueMemoryRequest(now, entry, ev, ev.Cmd != Write)

		return true

	case S:
		if entry.NumSharers() == 1 && entry.IsSharer(ev.Src) {
			entry.State = M
			entry.Sharers = map[NodeID]bool{}
			entry.SetOwner(ev.Src)
			c.sendDataResponse(now, ev, responseCommandFor[ev.Cmd], nil, false)

			return true
		}

		idx := c.mshr.InsertEvent(entry.Addr, ev, InsertDefault, false)
		if idx == -1 {
			c.sendNACK(now, ev)
			return true
		}

		if idx != 0 {
			return true
		}

		if entry.IsSharer(ev.Src) || c.mshr.HasData(entry.Addr) {
			entry.State = SInv
			c.issueInvalidations(now, entry, ev)
		} else {
			entry.State = SMInv
			c.issueInvalidations(now, entry, ev)
			c.issueMemoryRequest(now, entry, ev, true)
		}

		return true

	case M:
		return c.stallOrInsert(now, entry, ev, func() bool {
			entry.State = MInv
			c.issueFetch(now, entry, ev, FetchInv)
			return true
		})

	default:
		return c.parkBehind(now, entry, ev)
	}
}

func (c *Comp) stallOrInsert(now VTime, entry *DirEntry, ev *Packet, onFront func() bool) bool {
	idx := c.mshr.InsertEvent(entry.Addr, ev, InsertDefault, false)
	if idx == -1 {
		c.sendNACK(now, ev)
		return true
	}

	if idx != 0 {
		return true
	}

	return onFront()
}

func (c *Comp) parkBehind(now VTime, entry *DirEntry, ev *Packet) bool {
	idx := c.mshr.InsertEvent(entry.Addr, ev, InsertDefault, false)
	if idx == -1 {
		c.sendNACK(now, ev)
	}

	return true
}

// --- PutS / PutE / PutM / PutX ------------------------------------------

func (c *Comp) handlePutS(now VTime, entry *DirEntry, ev *Packet) bool {
	switch entry.State {
	case S, SD, SB, SInv, SDInv, SBInv, SMInv:
		entry.RemoveSharer(ev.Src)
		c.sendAckPut(now, ev)
		c.maybeCompleteTransient(now, entry)

		return true

	case I:
		c.sendAckPut(now, ev)
		return true

	default:
		unexpectedState(PutS, entry.State)
	}

	return false
}

// handlePutOwned covers PutE/PutM/PutX; per §9's recorded open question
// the default arm is a deliberate, unreachable-by-design fatal and must
// not be treated as reachable.
func (c *Comp) handlePutOwned(now VTime, entry *DirEntry, ev *Packet) bool {
	switch entry.State {
	case M, MInv, MInvX:
		if entry.HasOwner && entry.Owner == ev.Src {
			entry.ClearOwner()
		}

		if ev.Cmd != PutE && len(ev.Payload) > 0 {
			c.writebackData(now, entry.Addr, ev.Payload, ev.Dirty)
		}

		c.sendAckPut(now, ev)

		if entry.State == M {
			entry.State = I
		} else {
			c.maybeCompleteTransient(now, entry)
		}

		return true

	case I:
		c.sendAckPut(now, ev)
		return true

	default:
		unexpectedState(ev.Cmd, entry.State)
	}

	return false
}

func (c *Comp) maybeCompleteTransient(now VTime, entry *DirEntry) {
	if c.mshr.AcksNeeded(entry.Addr) > 0 {
		return
	}

	if front := c.mshr.GetFrontEvent(entry.Addr); front != nil {
		c.parkInRetryBuffer(front)
	}
}

// --- FlushLine / FlushLineInv --------------------------------------------

func (c *Comp) handleFlush(now VTime, entry *DirEntry, ev *Packet) bool {
	inv := ev.Cmd == FlushLineInv

	switch entry.State {
	case I, S:
		if inv {
			entry.RemoveSharer(ev.Src)
		}

		c.writebackData(now, entry.Addr, ev.Payload, ev.Dirty)
		c.sendResponse(now, ev, FlushLineResp)

		return true

	case M:
		if entry.HasOwner && entry.Owner == ev.Src {
			c.writebackData(now, entry.Addr, ev.Payload, ev.Dirty)

			if inv {
				entry.ClearOwner()
				entry.State = I
			}

			c.sendResponse(now, ev, FlushLineResp)

			return true
		}

		idx := c.mshr.InsertEvent(entry.Addr, ev, InsertFront, false)
		if idx == -1 {
			c.sendNACK(now, ev)
			return true
		}

		entry.State = MInvX
		c.issueFetch(now, entry, ev, FetchInvX)

		return true

	default:
		return c.parkBehind(now, entry, ev)
	}
}

// --- FetchInv / ForceInv (memory side) -----------------------------------

func (c *Comp) handleFetchInvFromMemory(now VTime, entry *DirEntry, ev *Packet) bool {
	switch entry.State {
	case I:
		c.sendAckInvTo(now, ev.Src, entry.Addr, ev)
		return true

	case S:
		entry.State = SInv
		c.issueInvalidationsBroadcast(now, entry, ev)

		return true

	case M:
		entry.State = MInv
		c.issueFetch(now, entry, ev, FetchInv)

		return true

	default:
		pos := InsertSecond
		if ev.Cmd == FlushLine || ev.Cmd == FlushLineInv {
			pos = InsertFront
		}

		idx := c.mshr.InsertEvent(entry.Addr, ev, pos, true)
		return idx != -1
	}
}

// --- Response handlers ----------------------------------------------------

func (c *Comp) handleGetSResp(now VTime, entry *DirEntry, ev *Packet) bool {
	switch entry.State {
	case IS:
		if c.incoherent(frontRequester(c, entry)) {
			entry.State = I
		} else {
			entry.State = S
			entry.AddSharer(frontRequester(c, entry))
		}

	case SD:
		entry.State = S
		entry.AddSharer(frontRequester(c, entry))

	default:
		unexpectedState(GetSResp, entry.State)
	}

	return c.completeFrontWithData(now, entry, ev, GetSResp)
}

func (c *Comp) handleGetXResp(now VTime, entry *DirEntry, ev *Packet) bool {
	switch entry.State {
	case IS:
		req := c.mshr.GetFrontEvent(entry.Addr)

		if c.Config.Protocol == MESI && req != nil {
			entry.State = M
			entry.SetOwner(req.Src)
			return c.completeFrontWithData(now, entry, ev, GetXResp)
		}

		entry.State = S
		if req != nil {
			entry.AddSharer(req.Src)
		}

		return c.completeFrontWithData(now, entry, ev, GetSResp)

	case IM:
		req := c.mshr.GetFrontEvent(entry.Addr)
		entry.State = M

		if req != nil {
			entry.SetOwner(req.Src)
		}

		return c.completeFrontWithData(now, entry, ev, GetXResp)

	case SMInv:
		c.mshr.SetData(entry.Addr, ev.Payload, ev.Dirty)
		entry.State = SInv

		return true

	default:
		unexpectedState(GetXResp, entry.State)
	}

	return false
}

func (c *Comp) handleWriteResp(now VTime, entry *DirEntry, ev *Packet) bool {
	if entry.State != IM {
		unexpectedState(WriteResp, entry.State)
	}

	entry.State = I

	return c.completeFrontWithData(now, entry, ev, WriteResp)
}

func (c *Comp) handleFlushLineResp(now VTime, entry *DirEntry, ev *Packet) bool {
	c.mshr.ClearData(entry.Addr)

	switch entry.State {
	case IB:
		entry.State = I
	case SB:
		entry.State = S
	}

	return true
}

func (c *Comp) handleAckInv(now VTime, entry *DirEntry, ev *Packet) bool {
	if !c.responses.isCurrent(entry.Addr, ev.Src, ev.RspTo) {
		return true
	}

	c.responses.clear(entry.Addr, ev.Src)
	entry.RemoveSharer(ev.Src)

	if entry.HasOwner && entry.Owner == ev.Src {
		entry.ClearOwner()
	}

	if !c.mshr.DecrementAcksNeeded(entry.Addr) {
		return true
	}

	switch entry.State {
	case MInv:
		entry.State = I
	case SInv:
		if entry.NumSharers() > 0 {
			entry.State = S
		} else {
			entry.State = I
		}
	case SBInv:
		if entry.NumSharers() > 0 {
			entry.State = SB
		} else {
			entry.State = I
		}
	case SDInv:
		if entry.NumSharers() > 0 {
			entry.State = SD
		} else {
			entry.State = IS
		}
	case SMInv:
		entry.State = IM
	}

	if front := c.mshr.GetFrontEvent(entry.Addr); front != nil {
		c.parkInRetryBuffer(front)
	}

	return true
}

// handleAckPut implements §4.6's scratchpad writeback-acknowledgment path:
// when a cpu-side peer announced itself as a scratchpad during init
// (waitWBAck), writebackData appended a writeback marker to the line's
// MSHR queue so no event behind it could proceed until memory confirmed
// the data landed. When that marker is at the front of the queue, this
// clears it and retries whatever is now at the front; otherwise the
// acknowledgment is consumed with no effect.
func (c *Comp) handleAckPut(now VTime, entry *DirEntry, ev *Packet) bool {
	if !c.mshr.PendingWriteback(entry.Addr) {
		return true
	}

	c.mshr.RemoveWriteback(entry.Addr)

	if front := c.mshr.GetFrontEvent(entry.Addr); front != nil {
		c.parkInRetryBuffer(front)
	}

	return true
}

func (c *Comp) handleFetchResp(now VTime, entry *DirEntry, ev *Packet) bool {
	if entry.State != SInv && entry.State != MInv {
		unexpectedState(FetchResp, entry.State)
	}

	if !c.responses.isCurrent(entry.Addr, ev.Src, ev.RspTo) {
		return true
	}

	c.responses.clear(entry.Addr, ev.Src)
	c.mshr.DecrementAcksNeeded(entry.Addr)

	if entry.HasOwner && entry.Owner == ev.Src {
		entry.ClearOwner()
	}

	entry.State = I

	if ev.Dirty {
		c.writebackDataFromMSHR(now, entry.Addr, ev.Payload, true)
	}

	if front := c.mshr.GetFrontEvent(entry.Addr); front != nil {
		c.parkInRetryBuffer(front)
	}

	return true
}

func (c *Comp) handleFetchXResp(now VTime, entry *DirEntry, ev *Packet) bool {
	if entry.State != MInvX {
		unexpectedState(FetchXResp, entry.State)
	}

	if !c.responses.isCurrent(entry.Addr, ev.Src, ev.RspTo) {
		return true
	}

	c.responses.clear(entry.Addr, ev.Src)
	c.mshr.DecrementAcksNeeded(entry.Addr)

	owner := entry.Owner
	entry.ClearOwner()
	entry.AddSharer(owner)
	entry.State = S
	c.mshr.SetData(entry.Addr, ev.Payload, ev.Dirty)

	if front := c.mshr.GetFrontEvent(entry.Addr); front != nil {
		c.parkInRetryBuffer(front)
	}

	return true
}

func (c *Comp) handleRequestNACK(now VTime, entry *DirEntry, ev *Packet) bool {
	switch ev.NackedCmd.Class() {
	case ClassControl:
		return true
	}

	if isInvalidationOrFetch(ev.NackedCmd) {
		if !c.responses.isCurrent(entry.Addr, ev.Src, ev.RspTo) {
			return true
		}

		retry := NewPacketBuilder().
			WithSrc(ev.Dst).
			WithDst(ev.Src).
			WithCmd(ev.NackedCmd).
			WithAddr(entry.Addr).
			Build()
		c.responses.record(entry.Addr, ev.Src, retry.ID)
		c.router.ScheduleToCPU(retry, now+c.cyclesToTime(c.Config.AccessLatencyCycles))

		return true
	}

	retry := NewPacketBuilder().
		WithSrc(ev.Dst).
		WithDst(ev.Src).
		WithCmd(ev.NackedCmd).
		WithAddr(entry.Addr).
		WithSize(c.Config.CacheLineSize).
		Build()
	c.router.ScheduleToMem(retry, now+c.cyclesToTime(c.Config.AccessLatencyCycles), false)

	return true
}

func isInvalidationOrFetch(cmd Command) bool {
	switch cmd {
	case Inv, ForceInv, FetchInv, FetchInvX:
		return true
	default:
		return false
	}
}

// completeFrontWithData pops the satisfied MSHR front event, forwards the
// payload to it, and retries whatever is now at the front.
func (c *Comp) completeFrontWithData(now VTime, entry *DirEntry, ev *Packet, rspCmd Command) bool {
	front := c.mshr.GetFrontEvent(entry.Addr)
	if front == nil {
		return true
	}

	c.mshr.RemoveFront(entry.Addr)
	c.mshr.SetInProgress(entry.Addr, false)
	c.sendDataResponse(now, front, rspCmd, ev.Payload, ev.Dirty)

	if next := c.mshr.GetFrontEvent(entry.Addr); next != nil {
		c.parkInRetryBuffer(next)
	}

	return true
}

func frontRequester(c *Comp, entry *DirEntry) NodeID {
	front := c.mshr.GetFrontEvent(entry.Addr)
	if front == nil {
		return ""
	}

	return front.Src
}
