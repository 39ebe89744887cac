package directory

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DirEntry", func() {
	It("should start idle with no owner and no sharers", func() {
		e := newDirEntry(Addr(0x40))
		Expect(e.IsIdle()).To(BeTrue())
	})

	It("should track ownership", func() {
		e := newDirEntry(Addr(0x40))
		e.SetOwner("Cache0.Port")

		Expect(e.HasOwner).To(BeTrue())
		Expect(e.Owner).To(Equal(NodeID("Cache0.Port")))
		Expect(e.IsIdle()).To(BeFalse())

		e.ClearOwner()
		Expect(e.HasOwner).To(BeFalse())
	})

	It("should track a sharer set and exclude a given node from OtherSharers", func() {
		e := newDirEntry(Addr(0x40))
		e.AddSharer("Cache0.Port")
		e.AddSharer("Cache1.Port")

		Expect(e.NumSharers()).To(Equal(2))
		Expect(e.IsSharer("Cache0.Port")).To(BeTrue())
		Expect(e.OtherSharers("Cache0.Port")).To(ConsistOf(NodeID("Cache1.Port")))

		e.RemoveSharer("Cache1.Port")
		Expect(e.NumSharers()).To(Equal(1))
	})
})

var _ = Describe("responseTracker", func() {
	It("should report a recorded response as current until cleared", func() {
		t := newResponseTracker()
		t.record(Addr(0x40), "Cache0.Port", "evt-1")

		Expect(t.isCurrent(Addr(0x40), "Cache0.Port", "evt-1")).To(BeTrue())
		Expect(t.count(Addr(0x40))).To(Equal(1))

		t.clear(Addr(0x40), "Cache0.Port")
		Expect(t.isCurrent(Addr(0x40), "Cache0.Port", "evt-1")).To(BeFalse())
		Expect(t.count(Addr(0x40))).To(Equal(0))
	})

	It("should treat a superseded event id as stale", func() {
		t := newResponseTracker()
		t.record(Addr(0x40), "Cache0.Port", "evt-1")
		t.record(Addr(0x40), "Cache0.Port", "evt-2")

		Expect(t.isCurrent(Addr(0x40), "Cache0.Port", "evt-1")).To(BeFalse())
		Expect(t.isCurrent(Addr(0x40), "Cache0.Port", "evt-2")).To(BeTrue())
	})

	It("should count outstanding responses across multiple destinations", func() {
		t := newResponseTracker()
		t.record(Addr(0x40), "Cache0.Port", "evt-1")
		t.record(Addr(0x40), "Cache1.Port", "evt-2")

		Expect(t.count(Addr(0x40))).To(Equal(2))
	})
})
