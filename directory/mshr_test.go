package directory

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MSHR", func() {
	var (
		mshr *MSHR
		addr Addr
	)

	BeforeEach(func() {
		mshr = NewMSHR(-1)
		addr = Addr(0x1000)
	})

	It("should queue events in arrival order by default", func() {
		e1 := &Packet{Cmd: GetS}
		e2 := &Packet{Cmd: GetX}

		mshr.InsertEvent(addr, e1, InsertDefault, false)
		mshr.InsertEvent(addr, e2, InsertDefault, false)

		Expect(mshr.GetFrontEvent(addr)).To(BeIdenticalTo(e1))

		mshr.RemoveFront(addr)
		Expect(mshr.GetFrontEvent(addr)).To(BeIdenticalTo(e2))
	})

	It("should let InsertFront jump ahead of everything queued", func() {
		e1 := &Packet{Cmd: GetS}
		e2 := &Packet{Cmd: FlushLine}

		mshr.InsertEvent(addr, e1, InsertDefault, false)
		mshr.InsertEvent(addr, e2, InsertFront, false)

		Expect(mshr.GetFrontEvent(addr)).To(BeIdenticalTo(e2))
	})

	It("should let InsertSecond land right after an existing front", func() {
		e1 := &Packet{Cmd: FlushLine}
		e2 := &Packet{Cmd: GetS}
		e3 := &Packet{Cmd: Inv}

		mshr.InsertEvent(addr, e1, InsertDefault, false)
		mshr.InsertEvent(addr, e2, InsertDefault, false)
		mshr.InsertEvent(addr, e3, InsertSecond, false)

		mshr.RemoveFront(addr)
		Expect(mshr.GetFrontEvent(addr)).To(BeIdenticalTo(e3))
	})

	It("should reject inserts past capacity unless forwarding", func() {
		bounded := NewMSHR(1)

		idx := bounded.InsertEvent(addr, &Packet{Cmd: GetS}, InsertDefault, false)
		Expect(idx).To(Equal(0))

		idx = bounded.InsertEvent(addr, &Packet{Cmd: GetX}, InsertDefault, false)
		Expect(idx).To(Equal(-1))

		idx = bounded.InsertEvent(addr, &Packet{Cmd: Inv}, InsertDefault, true)
		Expect(idx).NotTo(Equal(-1))
	})

	It("should track the ack counter down to zero", func() {
		mshr.IncrementAcksNeeded(addr)
		mshr.IncrementAcksNeeded(addr)
		Expect(mshr.AcksNeeded(addr)).To(Equal(2))

		Expect(mshr.DecrementAcksNeeded(addr)).To(BeFalse())
		Expect(mshr.DecrementAcksNeeded(addr)).To(BeTrue())
	})

	It("should buffer and clear opportunistic data", func() {
		Expect(mshr.HasData(addr)).To(BeFalse())

		mshr.SetData(addr, []byte{1, 2, 3}, true)
		data, dirty := mshr.GetData(addr)
		Expect(data).To(Equal([]byte{1, 2, 3}))
		Expect(dirty).To(BeTrue())

		mshr.ClearData(addr)
		Expect(mshr.HasData(addr)).To(BeFalse())
	})

	It("should block the queue behind a pending writeback marker", func() {
		e1 := &Packet{Cmd: GetS}
		mshr.InsertEvent(addr, e1, InsertDefault, false)
		mshr.InsertWriteback(addr)

		Expect(mshr.PendingWriteback(addr)).To(BeFalse())

		mshr.RemoveFront(addr)
		Expect(mshr.PendingWriteback(addr)).To(BeTrue())

		mshr.RemoveWriteback(addr)
		Expect(mshr.PendingWriteback(addr)).To(BeFalse())
	})

	It("should report total occupancy across every tracked address", func() {
		Expect(mshr.Occupancy()).To(Equal(0))

		mshr.InsertEvent(addr, &Packet{Cmd: GetS}, InsertDefault, false)
		mshr.InsertEvent(addr, &Packet{Cmd: GetX}, InsertDefault, false)
		mshr.InsertEvent(Addr(0x2000), &Packet{Cmd: GetS}, InsertDefault, false)

		Expect(mshr.Occupancy()).To(Equal(3))

		mshr.RemoveFront(addr)
		Expect(mshr.Occupancy()).To(Equal(2))
	})

	It("should forget an address once it has no activity left", func() {
		mshr.InsertEvent(addr, &Packet{Cmd: GetS}, InsertDefault, false)
		Expect(mshr.Exists(addr)).To(BeTrue())

		mshr.RemoveFront(addr)
		Expect(mshr.Exists(addr)).To(BeFalse())
	})
})
