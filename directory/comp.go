package directory

import (
	"log"
	"reflect"

	"github.com/sim-arch/dirsim/datarecording"
	"github.com/sim-arch/dirsim/mem/mem"
	"github.com/sim-arch/dirsim/sim"
	"github.com/sim-arch/dirsim/tracing"
)

// Comp is the directory controller component: a clocked unit sitting
// between cpuLink and memLink, implementing the §4 state machine.
type Comp struct {
	*sim.TickingComponent

	cpuPort sim.Port
	memPort sim.Port

	Config Config

	entries      *EntryCache
	mshr         *MSHR
	responses    *responseTracker
	nonCacheable *nonCacheableTracker
	router       *LinkRouter
	memMapper    mem.AddressToPortMapper

	// dirMemAccesses maps an outstanding directory-entry-read eventId to
	// the base address it concerns (§4.4).
	dirMemAccesses map[string]Addr

	// incoherentSources names cpuLink peers that declared
	// tracksPresence=false during init (§4.8); bookkeeping for them skips
	// sharer/owner tracking.
	incoherentSources map[sim.RemotePort]bool
	waitWBAck         bool

	stats *Stats

	addrsThisCycle    map[Addr]bool
	requestsThisCycle int

	eventBuffer []*Packet
	retryBuffer []*Packet

	clockOn bool

	initPhase int

	// cpuBroadcastDst/memBroadcastDst name the remote port that receives
	// control traffic with no natural per-line destination (coherence
	// advertisements, forwarded endpoint declarations). On a network with
	// more than one cache this is the switch/bus port, not an individual
	// cache.
	cpuBroadcastDst sim.RemotePort
	memBroadcastDst sim.RemotePort
}

// SetBroadcastDestinations names the remote ports that receive this
// directory's init-time control traffic (§4.8).
func (c *Comp) SetBroadcastDestinations(cpuDst, memDst sim.RemotePort) {
	c.cpuBroadcastDst = cpuDst
	c.memBroadcastDst = memDst
}

// Handle dispatches a simulator event to the ticking machinery.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case sim.TickEvent:
		return c.TickingComponent.Handle(e)
	default:
		log.Panicf("directory: cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

// NewComp creates a directory controller component named name, attached
// to engine, ticking at cfg.ClockFreq.
func NewComp(name string, engine sim.Engine, cfg Config) *Comp {
	c := &Comp{Config: cfg}
	c.TickingComponent = sim.NewTickingComponent(name, engine, cfg.ClockFreq, c)

	c.cpuPort = sim.NewPort(c, 4, 4, name+".CPUPort")
	c.memPort = sim.NewPort(c, 4, 4, name+".MemPort")
	c.AddPort("CPUPort", c.cpuPort)
	c.AddPort("MemPort", c.memPort)

	c.entries = NewEntryCache(cfg.EntryCacheSize)
	c.mshr = NewMSHR(cfg.MSHRNumEntries)
	c.responses = newResponseTracker()
	c.nonCacheable = newNonCacheableTracker()
	c.router = NewLinkRouter(c.cpuPort, c.memPort)
	c.memMapper = &mem.SinglePortMapper{}
	c.dirMemAccesses = make(map[string]Addr)
	c.incoherentSources = make(map[sim.RemotePort]bool)
	c.stats = NewStats()

	attachDebugging(c, engine, cfg)

	return c
}

// SetMemMapper installs the address→port mapper used to route
// memory-side (and non-cacheable) traffic.
func (c *Comp) SetMemMapper(m mem.AddressToPortMapper) {
	c.memMapper = m
}

// CPUPort returns the port facing the cache side of the fabric, for
// plugging into a connection.
func (c *Comp) CPUPort() sim.Port {
	return c.cpuPort
}

// MemPort returns the port facing the backing-memory side of the fabric,
// for plugging into a connection.
func (c *Comp) MemPort() sim.Port {
	return c.memPort
}

// FlushStats writes every accumulated counter into rec under this
// component's name.
func (c *Comp) FlushStats(rec datarecording.DataRecorder) {
	c.stats.Flush(rec, c.Name(), c.CurrentTime())
}

func (c *Comp) cpuPortName() sim.RemotePort {
	return c.cpuPort.AsRemote()
}

func (c *Comp) memPortName() sim.RemotePort {
	return c.memPort.AsRemote()
}

func (c *Comp) period() VTime {
	return c.Config.ClockFreq.Period()
}

func (c *Comp) memDestFor(addr Addr) sim.RemotePort {
	return c.memMapper.Find(uint64(addr))
}

// NotifyRecv is called by the port when a message arrives; it reactivates
// the clock per §4.2's "if the clock was off, reactivate it".
func (c *Comp) NotifyRecv(port sim.Port) {
	c.turnClockOn()
	c.TickingComponent.NotifyRecv(port)
}

func (c *Comp) turnClockOn() {
	if !c.clockOn {
		c.clockOn = true
		c.stats.backfillMSHROccupancy(c.CurrentTime(), c.mshr.Occupancy())
	}
}

// Tick implements sim.Ticker: the six-step clock driver from §4.1.
func (c *Comp) Tick() bool {
	now := c.CurrentTime()
	madeProgress := false

	c.stats.recordOccupancySample(now, c.mshr.Occupancy())

	if !c.router.Empty() {
		c.router.Drain(now, c.recordSend)
		madeProgress = true
	}

	c.drainIncoming()

	c.addrsThisCycle = make(map[Addr]bool)
	c.requestsThisCycle = 0

	madeProgress = c.drainBuffer(now, &c.retryBuffer, true) || madeProgress
	madeProgress = c.drainBuffer(now, &c.eventBuffer, false) || madeProgress

	if c.router.Empty() && len(c.retryBuffer) == 0 && len(c.eventBuffer) == 0 {
		c.clockOn = false
		return false
	}

	return madeProgress
}

// drainIncoming pulls every waiting message off both ports and routes it
// through handlePacket (§4.2).
func (c *Comp) drainIncoming() {
	for {
		msg := c.cpuPort.RetrieveIncoming()
		if msg == nil {
			break
		}

		c.handlePacket(msg.(*Packet), true)
	}

	for {
		msg := c.memPort.RetrieveIncoming()
		if msg == nil {
			break
		}

		c.handlePacket(msg.(*Packet), false)
	}
}

// handlePacket classifies an inbound packet per §4.2.
func (c *Comp) handlePacket(pkt *Packet, fromCPU bool) {
	tracing.TraceReqReceive(pkt, c)

	if pkt.Cmd == NULLCMD {
		c.handleInit(pkt, fromCPU)
		return
	}

	if pkt.Flags.Has(FlagNonCacheable) || pkt.Cmd.Class() != ClassCache {
		c.forwardNonCacheable(c.CurrentTime(), pkt, fromCPU)
		return
	}

	pkt.SendTime = c.CurrentTime()
	c.eventBuffer = append(c.eventBuffer, pkt)

	if !pkt.Cmd.IsResponse() {
		c.stats.recordRecv(pkt.Cmd)
	}

	c.turnClockOn()
}

// drainBuffer processes buf front-to-back with processPacket(ev, replay),
// respecting maxRequestsPerCycle and addrsThisCycle arbitration (§4.1
// steps 3/4/5).
func (c *Comp) drainBuffer(now VTime, buf *[]*Packet, replay bool) bool {
	madeProgress := false

	remaining := (*buf)[:0]

	for _, ev := range *buf {
		if c.Config.MaxRequestsPerCycle > 0 && c.requestsThisCycle >= c.Config.MaxRequestsPerCycle {
			remaining = append(remaining, ev)
			continue
		}

		if c.processPacket(now, ev, replay) {
			madeProgress = true
			c.requestsThisCycle++
		} else {
			remaining = append(remaining, ev)
		}
	}

	*buf = remaining

	return madeProgress
}

func (c *Comp) parkInRetryBuffer(ev *Packet) {
	c.retryBuffer = append(c.retryBuffer, ev)
}

func (c *Comp) recordSend(msg *Packet, dirAccess bool, toMem bool) {
	c.stats.recordSent(msg.Cmd)

	if dirAccess {
		if toMem && msg.Cmd == GetS {
			c.stats.EventSentReadDirEntry++
		} else if toMem && msg.Cmd == PutE {
			c.stats.EventSentWriteDirEntry++
		}
	}

	tracing.TraceReqInitiate(msg, c, tracing.MsgIDAtReceiver(msg, c))
}
