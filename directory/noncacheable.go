package directory

// nonCacheableTracker implements the `noncacheMemReqs eventId → source`
// map from §3/§4.7: a non-cacheable request bypasses the coherence state
// machine entirely and is forwarded verbatim, with only enough state kept
// to route the eventual response back to whoever asked.
type nonCacheableTracker struct {
	pending map[string]NodeID
}

func newNonCacheableTracker() *nonCacheableTracker {
	return &nonCacheableTracker{pending: make(map[string]NodeID)}
}

// recordRequest remembers that the packet identified by eventID came from
// src, so its response can be routed home.
func (t *nonCacheableTracker) recordRequest(eventID string, src NodeID) {
	t.pending[eventID] = src
}

// resolveResponse looks up and forgets the source recorded for eventID.
// It panics via noPendingNoncacheableRequest if no such request is
// pending, matching §4.7's "a response with no matching pending request is
// a fatal protocol violation" rule.
func (t *nonCacheableTracker) resolveResponse(eventID string) NodeID {
	src, ok := t.pending[eventID]
	if !ok {
		noPendingNoncacheableRequest(eventID)
	}

	delete(t.pending, eventID)

	return src
}

// forwardNonCacheable handles one non-cacheable packet arriving on either
// link (§4.7): requests are forwarded toward memory by address, after
// recording their source; responses are forwarded back toward the
// original requester using the recorded source, then forgotten.
func (c *Comp) forwardNonCacheable(now VTime, pkt *Packet, fromCPU bool) {
	if pkt.Cmd.IsResponse() {
		src := c.nonCacheable.resolveResponse(pkt.RspTo)
		fwd := pkt.Clone().(*Packet)
		fwd.Dst = src
		fwd.Src = c.cpuPortName()
		c.router.ScheduleToCPU(fwd, now+VTime(c.Config.AccessLatencyCycles)*c.period())

		return
	}

	c.nonCacheable.recordRequest(pkt.ID, pkt.Src)

	fwd := pkt.Clone().(*Packet)
	fwd.Src = c.memPortName()
	fwd.Dst = c.memDestFor(pkt.Addr)
	c.router.ScheduleToMem(fwd, now+VTime(c.Config.AccessLatencyCycles)*c.period(), false)
}
