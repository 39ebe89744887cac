package directory

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sim-arch/dirsim/sim"
)

var _ = Describe("PacketBuilder", func() {
	It("should default to a global packet", func() {
		p := NewPacketBuilder().
			WithSrc(sim.RemotePort("A")).
			WithDst(sim.RemotePort("B")).
			WithCmd(GetS).
			WithAddr(Addr(0x40)).
			Build()

		Expect(p.Global).To(BeTrue())
		Expect(p.Src).To(Equal(sim.RemotePort("A")))
		Expect(p.Dst).To(Equal(sim.RemotePort("B")))
		Expect(p.ID).NotTo(BeEmpty())
	})

	It("should mark a packet non-global when requested", func() {
		p := NewPacketBuilder().NonGlobal().Build()
		Expect(p.Global).To(BeFalse())
	})
})

var _ = Describe("Packet responses", func() {
	It("should swap src/dst and stamp RspTo for MakeResponse", func() {
		req := NewPacketBuilder().
			WithSrc(sim.RemotePort("Cache0.Port")).
			WithDst(sim.RemotePort("Directory.CPUPort")).
			WithCmd(GetS).
			WithAddr(Addr(0x80)).
			Build()

		rsp := req.MakeResponse(GetSResp)

		Expect(rsp.Src).To(Equal(req.Dst))
		Expect(rsp.Dst).To(Equal(req.Src))
		Expect(rsp.RspTo).To(Equal(req.ID))
		Expect(rsp.Cmd).To(Equal(GetSResp))
	})

	It("should look up the canonical response for MakeDefaultResponse", func() {
		req := NewPacketBuilder().WithCmd(PutM).Build()
		rsp := req.MakeDefaultResponse()
		Expect(rsp.Cmd).To(Equal(AckPut))
	})

	It("should carry the nacked command on a NACK response", func() {
		req := NewPacketBuilder().WithCmd(GetX).Build()
		rsp := req.MakeNACKResponse()

		Expect(rsp.Cmd).To(Equal(NACK))
		Expect(rsp.NackedCmd).To(Equal(GetX))
	})
})

var _ = Describe("Command", func() {
	It("should classify the control command separately from coherence traffic", func() {
		Expect(NULLCMD.Class()).To(Equal(ClassControl))
		Expect(GetS.Class()).To(Equal(ClassCache))
	})

	It("should distinguish requests from responses", func() {
		Expect(GetS.IsRequest()).To(BeTrue())
		Expect(GetS.IsResponse()).To(BeFalse())
		Expect(GetSResp.IsResponse()).To(BeTrue())
	})

	It("should flag the memory-initiated commands", func() {
		Expect(FetchInv.IsFromMemorySide()).To(BeTrue())
		Expect(GetS.IsFromMemorySide()).To(BeFalse())
	})
})
