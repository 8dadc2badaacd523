package stack

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Metrics", func() {
	var m *Metrics

	BeforeEach(func() {
		m = &Metrics{}
	})

	It("accumulates DUP/SWAP counts by depth", func() {
		m.RecordDup(3)
		m.RecordDup(3)
		m.RecordSwap(1)
		Expect(m.DupCount).To(Equal(2))
		Expect(m.SwapCount).To(Equal(1))
		Expect(m.DupDepthHistogram[2]).To(Equal(2))
	})

	It("estimates gas from DUP/SWAP/spill/reload counts", func() {
		m.RecordDup(1)
		m.RecordSwap(1)
		m.RecordSpill()
		m.RecordReload()
		Expect(m.EstimatedGas()).To(Equal(uint64(3 + 3 + 6 + 6)))
	})

	It("computes the average DUP depth", func() {
		m.RecordDup(1)
		m.RecordDup(3)
		Expect(m.AverageDupDepth()).To(BeNumerically("==", 2.0))
	})

	It("reports zero average depth with no DUPs recorded", func() {
		Expect(m.AverageDupDepth()).To(BeNumerically("==", 0))
	})

	It("counts DUPs reaching depth 9 or deeper as deep", func() {
		m.RecordDup(9)
		m.RecordDup(5)
		Expect(m.DeepDupCount()).To(Equal(1))
	})

	It("merges another Metrics' counters in", func() {
		other := &Metrics{DupCount: 2, SwapCount: 1, SpillCount: 1}
		m.RecordDup(1)
		m.Merge(other)
		Expect(m.DupCount).To(Equal(3))
		Expect(m.SwapCount).To(Equal(1))
		Expect(m.SpillCount).To(Equal(1))
	})
})
