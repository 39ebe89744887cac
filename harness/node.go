package harness

import (
	"log"
	"reflect"

	"github.com/sim-arch/dirsim/directory"
	"github.com/sim-arch/dirsim/sim"
)

// Node owns a fixed number of cores sharing one cpuLink/memLink pair into
// the coherence fabric, plus a pump that turns core stalls into memory
// requests and directory responses back into core wakeups (§4.9).
type Node struct {
	*sim.TickingComponent

	PXN int

	cpuPort sim.Port
	memPort sim.Port

	// sender smooths over the cpuLink outgoing buffer filling up: without
	// it, a request or courtesy response racing a full port buffer would
	// be dropped silently by cpuPort.Send rather than retried.
	sender sim.BufferedSender

	// middlewares holds the send-stage middleware so Tick can grow
	// additional stages (a retry backoff, a send-rate limiter) without
	// changing its own shape.
	middlewares *sim.MiddlewareHolder

	cores []*Core

	// outstanding maps an eventId to the core waiting on it.
	outstanding map[string]*Core

	// localDirDst names the directory this node's own requests route to;
	// RemoteNode names other PXNs by id, for the scratchpad/DRAM/remote-node
	// routing split described in §4.9.
	localDirDst sim.RemotePort
	remoteNodes map[int]sim.RemotePort
}

// NewNode creates a node named name with numCores idle cores.
func NewNode(name string, engine sim.Engine, freq sim.Freq, pxn, numCores int) *Node {
	n := &Node{PXN: pxn}
	n.TickingComponent = sim.NewTickingComponent(name, engine, freq, n)

	n.cpuPort = sim.NewPort(n, 4, 4, name+".CPUPort")
	n.memPort = sim.NewPort(n, 4, 4, name+".MemPort")
	n.AddPort("CPUPort", n.cpuPort)
	n.AddPort("MemPort", n.memPort)

	sendBuf := sim.NewBuffer(name+".SendBuffer", 64)
	n.sender = sim.NewBufferedSender(n.cpuPort, sendBuf)

	n.middlewares = &sim.MiddlewareHolder{}
	n.middlewares.AddMiddleware(&senderMiddleware{sender: n.sender, now: n.CurrentTime})

	n.outstanding = make(map[string]*Core)
	n.remoteNodes = make(map[int]sim.RemotePort)

	for i := 0; i < numCores; i++ {
		n.cores = append(n.cores, NewCore(i))
	}

	return n
}

// SetLocalDirectory names the directory controller this node's requests
// route to by default.
func (n *Node) SetLocalDirectory(dst sim.RemotePort) {
	n.localDirDst = dst
}

// SetRemoteNode names the cpuLink port of another node by PXN id, used
// when a core's access targets a remote node's memory (§4.9).
func (n *Node) SetRemoteNode(pxn int, dst sim.RemotePort) {
	n.remoteNodes[pxn] = dst
}

// Core returns the core with the given index.
func (n *Node) Core(i int) *Core {
	return n.cores[i]
}

// Port returns the node's cpuLink-facing port, for plugging into a
// connection and for other nodes to address this node's remote-access
// servicing path.
func (n *Node) Port() sim.Port {
	return n.cpuPort
}

// Handle dispatches simulator events to the ticking machinery.
func (n *Node) Handle(e sim.Event) error {
	switch e := e.(type) {
	case sim.TickEvent:
		return n.TickingComponent.Handle(e)
	default:
		log.Panicf("harness: cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

// Tick steps every ready core once, synthesizes memory-request events for
// newly-stalled cores, and drains responses into their waiting cores.
func (n *Node) Tick() bool {
	madeProgress := false

	for {
		msg := n.cpuPort.RetrieveIncoming()
		if msg == nil {
			break
		}

		n.handleIncoming(msg.(*directory.Packet))
		madeProgress = true
	}

	for _, core := range n.cores {
		if core.State() != StateReady {
			continue
		}

		access := core.Step()
		madeProgress = true

		if access != nil {
			n.issueAccess(core, access)
		}
	}

	if n.middlewares.Tick() {
		madeProgress = true
	}

	return madeProgress
}

// senderMiddleware adapts BufferedSender's Tick(now) into the no-argument
// sim.Middleware shape so it can sit in a Node's middleware list alongside
// any future send-stage behavior.
type senderMiddleware struct {
	sender sim.BufferedSender
	now    func() sim.VTimeInSec
}

func (m *senderMiddleware) Tick() bool {
	return m.sender.Tick(m.now())
}

// handleIncoming dispatches one inbound packet: either a response to an
// access this node issued, or a request from another node to be serviced
// against this node's local memory in place (§4.9's "incoming requests
// from other nodes... perform the memory operation in place").
func (n *Node) handleIncoming(pkt *directory.Packet) {
	if pkt.Cmd == directory.NULLCMD {
		return
	}

	if pkt.Cmd.IsResponse() {
		core, ok := n.outstanding[pkt.RspTo]
		if !ok {
			return
		}

		delete(n.outstanding, pkt.RspTo)
		core.DepositResponse(pkt.Payload)

		return
	}

	rsp := pkt.MakeDefaultResponse()
	rsp.Payload = pkt.Payload
	n.enqueueSend(rsp)
}

func (n *Node) issueAccess(core *Core, access *MemAccess) {
	dst := n.localDirDst
	if access.PXN >= 0 && access.PXN != n.PXN {
		dst = n.remoteNodes[access.PXN]
	}

	cmd := directory.GetS
	if access.Kind == AccessWrite {
		cmd = directory.GetX
	}

	req := directory.NewPacketBuilder().
		WithSrc(n.cpuPort.AsRemote()).
		WithDst(dst).
		WithCmd(cmd).
		WithAddr(access.Addr).
		WithSize(access.Size).
		WithPayload(access.Data).
		Build()

	n.outstanding[req.ID] = core
	n.enqueueSend(req)
}

// enqueueSend hands msg to the buffered sender rather than the port
// directly, so a momentarily-full cpuLink outgoing buffer delays delivery
// by a tick instead of dropping the message.
func (n *Node) enqueueSend(msg sim.Msg) {
	if !n.sender.CanSend(1) {
		log.Panicf("harness: %s send buffer exhausted", n.Name())
	}

	n.sender.Send(msg)
}
