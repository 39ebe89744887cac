package directory

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	It("should validate the defaults", func() {
		Expect(DefaultConfig().Validate()).NotTo(HaveOccurred())
	})

	It("should reject a zero cache line size", func() {
		cfg := DefaultConfig()
		cfg.CacheLineSize = 0
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("should reject mshr_num_entries of zero", func() {
		cfg := DefaultConfig()
		cfg.MSHRNumEntries = 0
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("should reject a non-empty net_memory_name", func() {
		cfg := DefaultConfig()
		cfg.NetMemoryName = "anything"
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("should reject an interleave step that is not a multiple of the line size", func() {
		cfg := DefaultConfig()
		cfg.InterleaveSize = 64
		cfg.InterleaveStep = 100
		Expect(cfg.Validate()).To(HaveOccurred())
	})
})

var _ = Describe("ConfigBuilder", func() {
	It("should build a config with overridden fields", func() {
		cfg, err := NewConfigBuilder().
			WithCacheLineSize(128).
			WithEntryCacheSize(16).
			WithProtocol(MSI).
			Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.CacheLineSize).To(Equal(uint64(128)))
		Expect(cfg.EntryCacheSize).To(Equal(16))
		Expect(cfg.Protocol).To(Equal(MSI))
	})

	It("should return an error instead of panicking on invalid input", func() {
		_, err := NewConfigBuilder().WithMSHRNumEntries(0).Build()
		Expect(err).To(HaveOccurred())
	})
})
