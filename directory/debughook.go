package directory

import (
	"log"

	"github.com/sim-arch/dirsim/sim"
)

// DebugHook narrows sim.PortMsgLogger's per-message tracing down to the
// single line named by §6's debug_addr parameter, so turning on debug
// tracing on a long-running workload doesn't flood the log with every
// line the directory ever touches.
type DebugHook struct {
	sim.LogHookBase

	addr    Addr
	byAddr  bool
	portLog *sim.PortMsgLogger
}

// NewDebugHook builds a DebugHook writing to logger. When byAddr is true
// only packets addressed to addr are logged; otherwise every packet
// crossing the hooked port is logged.
func NewDebugHook(logger *log.Logger, addr uint64, byAddr bool) *DebugHook {
	h := &DebugHook{addr: Addr(addr), byAddr: byAddr}
	h.Logger = logger
	h.portLog = sim.NewPortMsgLogger(logger)

	return h
}

// Func implements sim.Hook.
func (h *DebugHook) Func(ctx sim.HookCtx) {
	if h.byAddr {
		pkt, ok := ctx.Item.(*Packet)
		if !ok || pkt.Addr != h.addr {
			return
		}
	}

	h.portLog.Func(ctx)
}

// attachDebugging wires up the log.Logger-backed hooks §6's debug,
// debug_level, verbose, and debug_addr fields promise: a DebugHook on both
// ports when debug tracing is on, and a sim.EventLogger on the engine when
// verbose is on. Neither changes simulated behavior; they only add output.
func attachDebugging(c *Comp, engine sim.Engine, cfg Config) {
	if cfg.Debug {
		hook := NewDebugHook(log.Default(), cfg.DebugAddr, cfg.DebugAddr != 0)
		c.cpuPort.AcceptHook(hook)
		c.memPort.AcceptHook(hook)
	}

	if cfg.Verbose {
		engine.AcceptHook(sim.NewEventLogger(log.Default()))
	}
}
