package directory

// handleInit implements §4.8's initialization handshake for a NULLCMD
// packet arriving on either link.
func (c *Comp) handleInit(pkt *Packet, fromCPU bool) {
	if pkt.Info == nil {
		return
	}

	if fromCPU {
		if !pkt.Info.TracksPresence {
			c.incoherentSources[pkt.Src] = true
		}

		if pkt.Info.EndpointType == "Scratchpad" {
			c.waitWBAck = true
		}
	}

	// Endpoint-declaration messages are forwarded across the controller in
	// both directions so both sides see the full topology (§4.8).
	fwd := pkt.Clone().(*Packet)

	if fromCPU {
		fwd.Src = c.memPortName()
		fwd.Dst = c.memBroadcastDst
		c.router.ScheduleToMem(fwd, c.CurrentTime(), false)
	} else {
		fwd.Src = c.cpuPortName()
		fwd.Dst = c.cpuBroadcastDst
		c.router.ScheduleToCPU(fwd, c.CurrentTime())
	}
}

// AdvertiseCoherence emits this directory's own NULLCMD endpoint
// declaration on both links, per §4.8's "phase 0" rule. The node harness
// (or whatever drives init) calls this once before any traffic flows.
func (c *Comp) AdvertiseCoherence() {
	info := &CoherenceInfo{
		EndpointType:   "Directory",
		TracksPresence: true,
		SendsWBAck:     true,
		LineSize:       c.Config.CacheLineSize,
	}

	cpuAdv := NewPacketBuilder().
		WithSrc(c.cpuPortName()).
		WithDst(c.cpuBroadcastDst).
		WithCmd(NULLCMD).
		WithInfo(info).
		Build()
	c.router.ScheduleToCPU(cpuAdv, c.CurrentTime())

	memAdv := NewPacketBuilder().
		WithSrc(c.memPortName()).
		WithDst(c.memBroadcastDst).
		WithCmd(NULLCMD).
		WithInfo(info).
		Build()
	c.router.ScheduleToMem(memAdv, c.CurrentTime(), false)

	c.initPhase++
}

// ForwardInitData implements §4.8's "init data forwarding": preloaded
// memory contents arriving on cpuLink are forwarded to memLink iff their
// address is in-region.
func (c *Comp) ForwardInitData(pkt *Packet) bool {
	if !c.Config.region().Contains(pkt.Addr) {
		return false
	}

	fwd := pkt.Clone().(*Packet)
	fwd.Src = c.memPortName()
	fwd.Dst = c.memDestFor(pkt.Addr)
	c.router.ScheduleToMem(fwd, c.CurrentTime(), false)

	return true
}
