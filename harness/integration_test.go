package harness_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sim-arch/dirsim/directory"
	"github.com/sim-arch/dirsim/harness"
	memmapper "github.com/sim-arch/dirsim/mem/mem"
	"github.com/sim-arch/dirsim/sim"
)

// These specs wire a real sim.SerialEngine, directory.Comp, harness.MemStub
// and harness.Node together the same way cmd/dirsim's run command does, to
// exercise the full request/response path rather than any one package in
// isolation.
var _ = Describe("Directory end to end", func() {
	var (
		engine  sim.Engine
		dir     *directory.Comp
		memStub *harness.MemStub
		node    *harness.Node
		cpuConn *sim.DirectConnection
		memConn *sim.DirectConnection
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()

		cfg, err := directory.NewConfigBuilder().
			WithCacheLineSize(64).
			WithEntryCacheSize(64).
			Build()
		Expect(err).NotTo(HaveOccurred())

		dir = directory.NewComp("Directory", engine, cfg)
		memStub = harness.NewMemStub("Memory", engine, sim.GHz)

		memConn = sim.NewDirectConnection("MemConn", engine, sim.GHz)
		memConn.PlugIn(dir.MemPort())
		memConn.PlugIn(memStub.Port())

		dir.SetMemMapper(&memmapper.SinglePortMapper{Port: memStub.Port().AsRemote()})

		cpuConn = sim.NewDirectConnection("CPUConn", engine, sim.GHz)
		cpuConn.PlugIn(dir.CPUPort())

		node = harness.NewNode("Node0", engine, sim.GHz, 0, 1)
		cpuConn.PlugIn(node.Port())
		node.SetLocalDirectory(dir.CPUPort().AsRemote())
	})

	runToCompletion := func() {
		dir.SetBroadcastDestinations(node.Port().AsRemote(), memStub.Port().AsRemote())
		dir.AdvertiseCoherence()

		dir.TickNow()
		memStub.TickNow()
		node.TickNow()

		Expect(engine.Run()).NotTo(HaveOccurred())
	}

	It("should satisfy a single read and deposit a result into the core", func() {
		core := node.Core(0)
		core.PushTask(func(_ *harness.Core) *harness.MemAccess {
			return &harness.MemAccess{Kind: harness.AccessRead, Addr: directory.Addr(0x40), Size: 64, PXN: -1}
		})

		runToCompletion()

		Expect(core.State()).To(Equal(harness.StateDone))
		Expect(core.LastResult).To(HaveLen(64))
	})

	It("should satisfy a write followed by a read of the same line", func() {
		core := node.Core(0)
		payload := make([]byte, 64)
		payload[0] = 0xAB

		core.PushTask(func(_ *harness.Core) *harness.MemAccess {
			return &harness.MemAccess{Kind: harness.AccessWrite, Addr: directory.Addr(0x80), Size: 64, Data: payload, PXN: -1}
		})
		core.PushTask(func(_ *harness.Core) *harness.MemAccess {
			return &harness.MemAccess{Kind: harness.AccessRead, Addr: directory.Addr(0x80), Size: 64, PXN: -1}
		})

		runToCompletion()

		Expect(core.State()).To(Equal(harness.StateDone))
		Expect(core.LastResult).To(HaveLen(64))
	})

	It("should run several independently-addressed accesses to completion", func() {
		core := node.Core(0)
		for i := 0; i < 4; i++ {
			addr := directory.Addr(uint64(i) * 64)
			core.PushTask(func(_ *harness.Core) *harness.MemAccess {
				return &harness.MemAccess{Kind: harness.AccessRead, Addr: addr, Size: 64, PXN: -1}
			})
		}

		runToCompletion()

		Expect(core.State()).To(Equal(harness.StateDone))
	})
})
