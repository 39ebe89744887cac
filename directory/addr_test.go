package directory

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LineAddr", func() {
	It("should mask off the low bits of the line size", func() {
		Expect(LineAddr(Addr(0x1047), 64)).To(Equal(Addr(0x1040)))
		Expect(LineAddr(Addr(0x1040), 64)).To(Equal(Addr(0x1040)))
	})
})

var _ = Describe("Region", func() {
	It("should treat a zero interleave as a plain contiguous range", func() {
		r := Region{Start: 0, End: 4096}

		Expect(r.Contains(0)).To(BeTrue())
		Expect(r.Contains(4095)).To(BeTrue())
		Expect(r.Contains(4096)).To(BeFalse())
	})

	It("should claim only the interleaved slice of each step", func() {
		r := Region{Start: 0, End: 1 << 20, InterleaveSize: 64, InterleaveStep: 256}

		Expect(r.Contains(0)).To(BeTrue())
		Expect(r.Contains(63)).To(BeTrue())
		Expect(r.Contains(64)).To(BeFalse())
		Expect(r.Contains(255)).To(BeFalse())
		Expect(r.Contains(256)).To(BeTrue())
	})

	It("should reject out-of-range addresses regardless of interleaving", func() {
		r := Region{Start: 4096, End: 8192, InterleaveSize: 64, InterleaveStep: 256}

		Expect(r.Contains(0)).To(BeFalse())
		Expect(r.Contains(8192)).To(BeFalse())
	})

	DescribeTable("Validate divisibility rules",
		func(r Region, lineSize uint64, wantErr bool) {
			err := r.Validate(lineSize)
			if wantErr {
				Expect(err).To(HaveOccurred())
			} else {
				Expect(err).NotTo(HaveOccurred())
			}
		},
		Entry("zero interleave is always valid", Region{}, uint64(64), false),
		Entry("interleave size not a multiple of line size",
			Region{InterleaveSize: 40, InterleaveStep: 256}, uint64(64), true),
		Entry("interleave step not a multiple of line size",
			Region{InterleaveSize: 64, InterleaveStep: 100}, uint64(64), true),
		Entry("step smaller than size",
			Region{InterleaveSize: 256, InterleaveStep: 64}, uint64(64), true),
		Entry("well-formed interleave",
			Region{InterleaveSize: 64, InterleaveStep: 256}, uint64(64), false),
	)
})
