package harness

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sim-arch/dirsim/directory"
)

var _ = Describe("Core", func() {
	It("should report not-ready with an empty task deque", func() {
		c := NewCore(0)
		Expect(c.Ready()).To(BeFalse())
	})

	It("should stall on a task that requests a memory access", func() {
		c := NewCore(0)
		c.PushTask(func(_ *Core) *MemAccess {
			return &MemAccess{Kind: AccessRead, Addr: directory.Addr(0x40), Size: 64, PXN: -1}
		})

		Expect(c.Ready()).To(BeTrue())

		access := c.Step()
		Expect(access).NotTo(BeNil())
		Expect(c.State()).To(Equal(StateStallRead))
		Expect(c.Ready()).To(BeFalse())
		Expect(c.Pending()).To(Equal(access))
	})

	It("should return to ready once a response is deposited", func() {
		c := NewCore(0)
		c.PushTask(func(_ *Core) *MemAccess {
			return &MemAccess{Kind: AccessWrite, Addr: directory.Addr(0x80), Size: 64, PXN: -1}
		})
		c.Step()

		c.DepositResponse([]byte{1, 2, 3, 4})

		Expect(c.State()).To(Equal(StateReady))
		Expect(c.Pending()).To(BeNil())
		Expect(c.LastResult).To(Equal([]byte{1, 2, 3, 4}))
	})

	It("should run a task that completes without touching memory", func() {
		ran := false
		c := NewCore(0)
		c.PushTask(func(_ *Core) *MemAccess {
			ran = true
			return nil
		})

		access := c.Step()
		Expect(access).To(BeNil())
		Expect(ran).To(BeTrue())
		Expect(c.State()).To(Equal(StateReady))
	})

	It("should move to StateDone once the deque is drained", func() {
		c := NewCore(0)
		access := c.Step()
		Expect(access).To(BeNil())
		Expect(c.State()).To(Equal(StateDone))
	})
})
