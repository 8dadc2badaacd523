package stack

import "fmt"

// Metrics accumulates the DUP/SWAP/spill counters the scheduler produces,
// used by the CLI's summary report and by tests asserting a scheduling
// change didn't regress gas cost.
type Metrics struct {
	DupCount          int
	SwapCount         int
	DupDepthHistogram [16]int
	SwapDepthHistogram [16]int
	SpillCount        int
	ReloadCount       int
}

func (m *Metrics) RecordDup(depth uint8) {
	m.DupCount++
	if depth >= 1 && depth <= 16 {
		m.DupDepthHistogram[depth-1]++
	}
}

func (m *Metrics) RecordSwap(depth uint8) {
	m.SwapCount++
	if depth >= 1 && depth <= 16 {
		m.SwapDepthHistogram[depth-1]++
	}
}

func (m *Metrics) RecordSpill()  { m.SpillCount++ }
func (m *Metrics) RecordReload() { m.ReloadCount++ }

// EstimatedGas prices DUP/SWAP at 3 gas each and a spill or reload (a PUSH
// plus an MSTORE/MLOAD) at roughly 6 gas, giving a rough per-function cost
// signal without running a full gas-accounted interpreter.
func (m *Metrics) EstimatedGas() uint64 {
	dupSwap := uint64(m.DupCount+m.SwapCount) * 3
	spillReload := uint64(m.SpillCount+m.ReloadCount) * 6
	return dupSwap + spillReload
}

func (m *Metrics) AverageDupDepth() float64 {
	if m.DupCount == 0 {
		return 0
	}
	total := 0
	for i, count := range m.DupDepthHistogram {
		total += (i + 1) * count
	}
	return float64(total) / float64(m.DupCount)
}

// DeepDupCount returns how many DUPs reached depth 9 or deeper, a signal
// that the scheduler is fighting register pressure it can't resolve.
func (m *Metrics) DeepDupCount() int {
	n := 0
	for i := 8; i < 16; i++ {
		n += m.DupDepthHistogram[i]
	}
	return n
}

func (m *Metrics) Merge(other *Metrics) {
	m.DupCount += other.DupCount
	m.SwapCount += other.SwapCount
	for i := 0; i < 16; i++ {
		m.DupDepthHistogram[i] += other.DupDepthHistogram[i]
		m.SwapDepthHistogram[i] += other.SwapDepthHistogram[i]
	}
	m.SpillCount += other.SpillCount
	m.ReloadCount += other.ReloadCount
}

func (m *Metrics) String() string {
	return fmt.Sprintf(
		"stack metrics: dup=%d swap=%d avg_dup_depth=%.2f deep_dups=%d spills=%d reloads=%d gas=%d",
		m.DupCount, m.SwapCount, m.AverageDupDepth(), m.DeepDupCount(), m.SpillCount, m.ReloadCount, m.EstimatedGas(),
	)
}
