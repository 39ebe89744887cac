package directory

import (
	"log"

	"github.com/sim-arch/dirsim/sim"
)

// PacketFlag is a bitmask of the out-of-band flags a Packet can carry.
type PacketFlag uint32

const (
	// FlagNonCacheable marks a packet that must bypass the coherence state
	// machine entirely and take the pass-through path.
	FlagNonCacheable PacketFlag = 1 << iota
	// FlagNoResponse marks a packet (typically a directory-initiated PutE
	// eviction) that the receiver must not acknowledge.
	FlagNoResponse
)

// Has reports whether flag is set.
func (f PacketFlag) Has(flag PacketFlag) bool {
	return f&flag != 0
}

// CoherenceInfo is the payload NULLCMD packets carry during the
// initialization handshake (§4.8).
type CoherenceInfo struct {
	EndpointType   string
	TracksPresence bool
	SendsWBAck     bool
	LineSize       uint64
}

// Packet is the single framed message type exchanged on cpuLink and
// memLink: every coherence request, response, and control message the
// directory deals with is one of these, distinguished by Cmd.
type Packet struct {
	sim.MsgMeta

	Cmd Command

	// Addr is the line-granularity base address this packet concerns.
	// Global is false for the directory's own internal traffic against
	// its EntryCache backing store (directory-entry reads/writes); such
	// packets are routed to handleDirEntryResponse instead of the
	// ordinary per-line state machine.
	Addr   Addr
	Global bool

	Size    uint64
	Payload []byte
	Dirty   bool

	Flags    PacketFlag
	MemFlags uint32

	// RspTo names the event this packet responds to, empty for requests.
	RspTo string

	// NackedCmd is set on a NACK to name the command being nacked, needed
	// because the nacked event is identified only by RspTo.
	NackedCmd Command

	Info *CoherenceInfo
}

// Meta returns the packet's envelope.
func (p *Packet) Meta() *sim.MsgMeta {
	return &p.MsgMeta
}

// Clone returns a copy of p with a freshly generated ID.
func (p *Packet) Clone() sim.Msg {
	clone := *p
	clone.ID = sim.GetIDGenerator().Generate()

	if p.Payload != nil {
		clone.Payload = make([]byte, len(p.Payload))
		copy(clone.Payload, p.Payload)
	}

	return &clone
}

// GetRspTo implements sim.Rsp for the response commands.
func (p *Packet) GetRspTo() string {
	return p.RspTo
}

// PacketBuilder builds Packets with the teacher's fluent-builder idiom.
type PacketBuilder struct {
	src, dst   sim.RemotePort
	cmd        Command
	addr       Addr
	global     bool
	size       uint64
	payload    []byte
	dirty      bool
	flags      PacketFlag
	memFlags   uint32
	rspTo      string
	nackedCmd  Command
	info       *CoherenceInfo
}

// NewPacketBuilder creates a PacketBuilder with Global defaulted to true,
// the common case for ordinary coherence traffic.
func NewPacketBuilder() PacketBuilder {
	return PacketBuilder{global: true}
}

// WithSrc sets the source port.
func (b PacketBuilder) WithSrc(src sim.RemotePort) PacketBuilder {
	b.src = src
	return b
}

// WithDst sets the destination port.
func (b PacketBuilder) WithDst(dst sim.RemotePort) PacketBuilder {
	b.dst = dst
	return b
}

// WithCmd sets the command.
func (b PacketBuilder) WithCmd(cmd Command) PacketBuilder {
	b.cmd = cmd
	return b
}

// WithAddr sets the base address.
func (b PacketBuilder) WithAddr(addr Addr) PacketBuilder {
	b.addr = addr
	return b
}

// NonGlobal marks the packet as internal directory-entry traffic.
func (b PacketBuilder) NonGlobal() PacketBuilder {
	b.global = false
	return b
}

// WithSize sets the payload size in bytes.
func (b PacketBuilder) WithSize(size uint64) PacketBuilder {
	b.size = size
	return b
}

// WithPayload attaches a data payload.
func (b PacketBuilder) WithPayload(payload []byte) PacketBuilder {
	b.payload = payload
	return b
}

// Dirty marks the attached payload dirty.
func (b PacketBuilder) Dirty() PacketBuilder {
	b.dirty = true
	return b
}

// WithFlags sets the out-of-band flags.
func (b PacketBuilder) WithFlags(flags PacketFlag) PacketBuilder {
	b.flags = flags
	return b
}

// WithMemFlags sets the opaque memory-side flags that are passed through
// unexamined.
func (b PacketBuilder) WithMemFlags(memFlags uint32) PacketBuilder {
	b.memFlags = memFlags
	return b
}

// WithRspTo marks the packet as a response to the named event.
func (b PacketBuilder) WithRspTo(id string) PacketBuilder {
	b.rspTo = id
	return b
}

// WithNackedCmd records, on a NACK, which command is being nacked.
func (b PacketBuilder) WithNackedCmd(cmd Command) PacketBuilder {
	b.nackedCmd = cmd
	return b
}

// WithInfo attaches initialization-handshake metadata.
func (b PacketBuilder) WithInfo(info *CoherenceInfo) PacketBuilder {
	b.info = info
	return b
}

// Build constructs the Packet.
func (b PacketBuilder) Build() *Packet {
	return &Packet{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: b.src,
			Dst: b.dst,
		},
		Cmd:       b.cmd,
		Addr:      b.addr,
		Global:    b.global,
		Size:      b.size,
		Payload:   b.payload,
		Dirty:     b.dirty,
		Flags:     b.flags,
		MemFlags:  b.memFlags,
		RspTo:     b.rspTo,
		NackedCmd: b.nackedCmd,
		Info:      b.info,
	}
}

// responseCommandFor maps a request command to the response command
// makeResponse produces for it.
var responseCommandFor = map[Command]Command{
	GetS:         GetSResp,
	GetX:         GetXResp,
	GetSX:        GetXResp,
	Write:        WriteResp,
	FlushLine:    FlushLineResp,
	FlushLineInv: FlushLineResp,
	PutS:         AckPut,
	PutM:         AckPut,
	PutE:         AckPut,
	PutX:         AckPut,
	FetchInv:     FetchResp,
	FetchInvX:    FetchXResp,
	ForceInv:     AckInv,
	Inv:          AckInv,
}

// MakeResponse builds the canonical response to a request packet, swapping
// source and destination and stamping RspTo, per spec's makeResponse(cmd)
// convention. An explicit cmd overrides the table lookup for commands
// whose response depends on context (e.g. FetchInv replying with AckInv
// instead of FetchResp when the line turned out clean).
func (req *Packet) MakeResponse(cmd Command) *Packet {
	rsp := NewPacketBuilder().
		WithSrc(req.Dst).
		WithDst(req.Src).
		WithCmd(cmd).
		WithAddr(req.Addr).
		WithRspTo(req.ID).
		Build()
	rsp.Global = req.Global

	return rsp
}

// MakeDefaultResponse builds the canonical response for req using the
// standard request→response command table, for the common case where the
// caller does not need to override the response command.
func (req *Packet) MakeDefaultResponse() *Packet {
	cmd, ok := responseCommandFor[req.Cmd]
	if !ok {
		log.Panicf("command %s has no canonical response", req.Cmd)
	}

	return req.MakeResponse(cmd)
}

// MakeNACKResponse builds a NACK carrying the nacked event's command and
// id, per spec's makeNACKResponse(ev) convention.
func (req *Packet) MakeNACKResponse() *Packet {
	rsp := req.MakeResponse(NACK)
	rsp.NackedCmd = req.Cmd

	return rsp
}
