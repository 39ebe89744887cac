package directory

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EntryCache", func() {
	It("should allocate a fresh I entry on first touch", func() {
		c := NewEntryCache(4)

		e := c.GetOrCreate(Addr(0x100))
		Expect(e.State).To(Equal(I))
		Expect(e.Cached).To(BeTrue())

		_, ok := c.Lookup(Addr(0x100))
		Expect(ok).To(BeTrue())
	})

	It("should delete an idle entry outright on Touch", func() {
		c := NewEntryCache(4)
		e := c.GetOrCreate(Addr(0x100))

		evicted := c.Touch(e)
		Expect(evicted).To(BeNil())

		_, ok := c.Lookup(Addr(0x100))
		Expect(ok).To(BeFalse())
	})

	It("should keep a non-idle entry resident after Touch", func() {
		c := NewEntryCache(4)
		e := c.GetOrCreate(Addr(0x100))
		e.State = S
		e.AddSharer(NodeID("Node0.CPUPort"))

		evicted := c.Touch(e)
		Expect(evicted).To(BeNil())

		_, ok := c.Lookup(Addr(0x100))
		Expect(ok).To(BeTrue())
	})

	It("should evict the least recently touched entry first", func() {
		c := NewEntryCache(2)

		e1 := c.GetOrCreate(Addr(0x100))
		e1.State = S
		c.Touch(e1)

		e2 := c.GetOrCreate(Addr(0x200))
		e2.State = S
		c.Touch(e2)

		e3 := c.GetOrCreate(Addr(0x300))
		e3.State = S
		c.Touch(e3)

		evicted := c.EvictOverflow(func(Addr) bool { return false })
		Expect(evicted).To(HaveLen(1))
		Expect(evicted[0].Addr).To(Equal(Addr(0x100)))
		Expect(evicted[0].Cached).To(BeFalse())

		Expect(c.Size()).To(Equal(2))
	})

	It("should never evict an address with outstanding MSHR activity", func() {
		c := NewEntryCache(1)

		e1 := c.GetOrCreate(Addr(0x100))
		e1.State = S
		c.Touch(e1)

		e2 := c.GetOrCreate(Addr(0x200))
		e2.State = S
		c.Touch(e2)

		evicted := c.EvictOverflow(func(addr Addr) bool { return addr == Addr(0x100) })
		Expect(evicted).To(HaveLen(1))
		Expect(evicted[0].Addr).To(Equal(Addr(0x200)))
	})

	It("should immediately evict on every touch when maxSize is zero", func() {
		c := NewEntryCache(0)

		e := c.GetOrCreate(Addr(0x100))
		e.State = M

		evicted := c.Touch(e)
		Expect(evicted).To(HaveLen(1))
		Expect(evicted[0].Cached).To(BeFalse())
	})
})
