package directory

// issueMemoryRequest implements §4.6's issueMemoryRequest(ev, entry,
// lineGran): clone the event, address it to this controller and the
// backing memory, size it, schedule it, and mark the MSHR line
// in-progress.
func (c *Comp) issueMemoryRequest(now VTime, entry *DirEntry, ev *Packet, lineGran bool) {
	size := ev.Size
	if lineGran {
		size = c.Config.CacheLineSize
	}

	cmd := GetS
	if ev.Cmd == GetX || ev.Cmd == GetSX || ev.Cmd == Write {
		cmd = GetX
	}

	req := NewPacketBuilder().
		WithSrc(c.memPortName()).
		WithDst(c.memDestFor(entry.Addr)).
		WithCmd(cmd).
		WithAddr(entry.Addr).
		WithSize(size).
		Build()

	c.router.ScheduleToMem(req, now+c.cyclesToTime(c.Config.AccessLatencyCycles), false)
	c.mshr.SetInProgress(entry.Addr, true)
}

// issueFetch implements §4.6's issueFetch(ev, entry, cmd): a new event
// targeted at the current owner, tracked in the responses table.
func (c *Comp) issueFetch(now VTime, entry *DirEntry, ev *Packet, cmd Command) {
	if !entry.HasOwner {
		return
	}

	req := NewPacketBuilder().
		WithSrc(c.cpuPortName()).
		WithDst(entry.Owner).
		WithCmd(cmd).
		WithAddr(entry.Addr).
		Build()

	c.responses.record(entry.Addr, entry.Owner, req.ID)
	c.mshr.IncrementAcksNeeded(entry.Addr)
	c.router.ScheduleToCPU(req, now+c.cyclesToTime(c.Config.AccessLatencyCycles))
}

// issueInvalidations implements §4.6's issueInvalidations: send Inv to
// every sharer other than the requester.
func (c *Comp) issueInvalidations(now VTime, entry *DirEntry, ev *Packet) {
	for _, sharer := range entry.OtherSharers(ev.Src) {
		c.issueInvalidation(now, entry, sharer, Inv)
	}
}

// issueInvalidationsBroadcast invalidates every sharer, used on the
// memory-initiated FetchInv/ForceInv path where there is no requester to
// exclude.
func (c *Comp) issueInvalidationsBroadcast(now VTime, entry *DirEntry, ev *Packet) {
	cmd := Inv
	if ev.Cmd == ForceInv {
		cmd = ForceInv
	}

	for sharer := range entry.Sharers {
		c.issueInvalidation(now, entry, sharer, cmd)
	}

	if c.mshr.AcksNeeded(entry.Addr) == 0 {
		entry.State = I
		c.sendAckInvTo(now, ev.Src, entry.Addr, ev)
	}
}

func (c *Comp) issueInvalidation(now VTime, entry *DirEntry, dst NodeID, cmd Command) {
	req := NewPacketBuilder().
		WithSrc(c.cpuPortName()).
		WithDst(dst).
		WithCmd(cmd).
		WithAddr(entry.Addr).
		Build()

	c.responses.record(entry.Addr, dst, req.ID)
	c.mshr.IncrementAcksNeeded(entry.Addr)
	c.router.ScheduleToCPU(req, now+c.cyclesToTime(c.Config.AccessLatencyCycles))
}

// sendDataResponse implements §4.6's sendDataResponse: build a response
// from the request, attach the payload, schedule at mshrLatency.
func (c *Comp) sendDataResponse(now VTime, req *Packet, cmd Command, payload []byte, dirty bool) {
	rsp := req.MakeResponse(cmd)
	rsp.Payload = payload
	rsp.Dirty = dirty
	rsp.Size = uint64(len(payload))

	c.router.ScheduleToCPU(rsp, now+c.cyclesToTime(c.Config.MSHRLatencyCycles))
}

// sendResponse implements §4.6's sendResponse for non-data responses.
func (c *Comp) sendResponse(now VTime, req *Packet, cmd Command) {
	rsp := req.MakeResponse(cmd)
	c.router.ScheduleToCPU(rsp, now+c.cyclesToTime(c.Config.MSHRLatencyCycles))
}

func (c *Comp) sendAckPut(now VTime, req *Packet) {
	c.sendResponse(now, req, AckPut)
}

func (c *Comp) sendAckInvTo(now VTime, dst NodeID, addr Addr, req *Packet) {
	rsp := NewPacketBuilder().
		WithSrc(c.cpuPortName()).
		WithDst(req.Src).
		WithCmd(AckInv).
		WithAddr(addr).
		WithRspTo(req.ID).
		Build()

	c.router.ScheduleToCPU(rsp, now+c.cyclesToTime(c.Config.MSHRLatencyCycles))
}

// sendNACK implements §4.6's sendNACK, used when the MSHR rejects an
// insert for capacity (§7).
func (c *Comp) sendNACK(now VTime, req *Packet) {
	rsp := req.MakeNACKResponse()
	c.router.ScheduleToCPU(rsp, now+c.cyclesToTime(c.Config.MSHRLatencyCycles))
}

// writebackData implements §4.6's writebackData: issue a PutM to memory
// carrying the payload and dirty flag.
func (c *Comp) writebackData(now VTime, addr Addr, payload []byte, dirty bool) {
	req := NewPacketBuilder().
		WithSrc(c.memPortName()).
		WithDst(c.memDestFor(addr)).
		WithCmd(PutM).
		WithAddr(addr).
		WithPayload(payload).
		Build()
	req.Dirty = dirty

	c.router.ScheduleToMem(req, now+c.cyclesToTime(c.Config.AccessLatencyCycles), false)

	if c.waitWBAck {
		c.mshr.InsertWriteback(addr)
	}
}

// writebackDataFromMSHR implements §4.6's writebackDataFromMSHR, the
// variant invoked when the payload came from a FetchResp rather than an
// explicit client writeback.
func (c *Comp) writebackDataFromMSHR(now VTime, addr Addr, payload []byte, dirty bool) {
	c.writebackData(now, addr, payload, dirty)
}
