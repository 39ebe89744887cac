package harness

import (
	"log"
	"reflect"

	"github.com/sim-arch/dirsim/directory"
	"github.com/sim-arch/dirsim/sim"
)

// MemStub is a minimal backing-store endpoint for memLink: it always
// responds in one cycle, storing line data in a flat byte slice and
// directory-entry metadata in a small side map. It exists only to drive
// the directory controller end to end in a self-contained simulation; it
// is not a model of any particular memory technology.
type MemStub struct {
	*sim.TickingComponent

	port sim.Port

	lines   map[directory.Addr][]byte
	entries map[directory.Addr][]byte
}

// NewMemStub creates a MemStub named name.
func NewMemStub(name string, engine sim.Engine, freq sim.Freq) *MemStub {
	m := &MemStub{
		lines:   make(map[directory.Addr][]byte),
		entries: make(map[directory.Addr][]byte),
	}
	m.TickingComponent = sim.NewTickingComponent(name, engine, freq, m)

	m.port = sim.NewPort(m, 16, 16, name+".Port")
	m.AddPort("Port", m.port)

	return m
}

// Port returns the stub's sole port, for plugging into a connection.
func (m *MemStub) Port() sim.Port {
	return m.port
}

// Handle dispatches simulator events to the ticking machinery.
func (m *MemStub) Handle(e sim.Event) error {
	switch e := e.(type) {
	case sim.TickEvent:
		return m.TickingComponent.Handle(e)
	default:
		log.Panicf("harness: cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

// Tick services every waiting request in one cycle.
func (m *MemStub) Tick() bool {
	madeProgress := false

	for {
		msg := m.port.RetrieveIncoming()
		if msg == nil {
			break
		}

		m.service(msg.(*directory.Packet))
		madeProgress = true
	}

	return madeProgress
}

func (m *MemStub) service(pkt *directory.Packet) {
	if !pkt.Global {
		m.serviceDirEntry(pkt)
		return
	}

	switch pkt.Cmd {
	case directory.GetS, directory.GetX:
		rsp := pkt.MakeResponse(directory.GetXResp)
		rsp.Payload = m.readLine(pkt.Addr, pkt.Size)
		m.port.Send(rsp)

	case directory.PutM, directory.PutE, directory.PutX:
		if len(pkt.Payload) > 0 {
			m.lines[pkt.Addr] = pkt.Payload
		}

		if !pkt.Flags.Has(directory.FlagNoResponse) {
			rsp := pkt.MakeDefaultResponse()
			m.port.Send(rsp)
		}
	}
}

func (m *MemStub) serviceDirEntry(pkt *directory.Packet) {
	switch pkt.Cmd {
	case directory.GetS:
		rsp := pkt.MakeResponse(directory.GetSResp)
		rsp.Payload = m.entries[pkt.Addr]
		rsp.Global = false
		m.port.Send(rsp)

	case directory.PutE:
		if len(pkt.Payload) > 0 {
			m.entries[pkt.Addr] = pkt.Payload
		}
	}
}

func (m *MemStub) readLine(addr directory.Addr, size uint64) []byte {
	data, ok := m.lines[addr]
	if !ok {
		data = make([]byte, size)
	}

	return data
}
