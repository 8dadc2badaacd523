package analysis

import (
	"sort"

	"evmc/internal/mir"
)

// UseFrequency counts, for one block, how many times each value is used by
// an instruction in that block and, for each used value, one distance: the
// block's instruction count minus the index of that value's last use. The
// stack scheduler consults this to
// decide which of several candidate values is worth keeping shallow on the
// stack instead of spilling or re-pushing.
type UseFrequency struct {
	uses    map[mir.ValueId]int
	nextUse map[mir.ValueId]int
}

// NewUseFrequency analyzes block b of fn and returns the resulting counts.
func NewUseFrequency(fn *mir.Function, b mir.BlockId) *UseFrequency {
	uf := &UseFrequency{uses: map[mir.ValueId]int{}, nextUse: map[mir.ValueId]int{}}
	block := fn.Block(b)
	if block == nil || block.IsInvalid() {
		return uf
	}

	for _, iid := range block.Instructions {
		inst := fn.Instruction(iid)
		for _, op := range inst.Operands {
			uf.uses[op]++
		}
	}

	n := len(block.Instructions)
	seen := map[mir.ValueId]bool{}
	for idx := n - 1; idx >= 0; idx-- {
		inst := fn.Instruction(block.Instructions[idx])
		for _, op := range inst.Operands {
			if !seen[op] {
				seen[op] = true
				uf.nextUse[op] = n - idx
			}
		}
	}
	return uf
}

// UseCount returns how many instructions in the block consume v.
func (uf *UseFrequency) UseCount(v mir.ValueId) int { return uf.uses[v] }

// NextUseDistance returns the block's instruction count minus the index of
// v's last use by an instruction in the block (1 when that use is the last
// instruction), or maxInt if no instruction in the block uses v. The value
// does not depend on a current position within the block.
func (uf *UseFrequency) NextUseDistance(v mir.ValueId) int {
	d, ok := uf.nextUse[v]
	if !ok {
		return int(^uint(0) >> 1)
	}
	return d
}

// ValuesByFrequency returns every used value, most-frequently-used first
// (ties broken by ValueId for determinism).
func (uf *UseFrequency) ValuesByFrequency() []mir.ValueId {
	out := make([]mir.ValueId, 0, len(uf.uses))
	for v := range uf.uses {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := uf.uses[out[i]], uf.uses[out[j]]
		if ci != cj {
			return ci > cj
		}
		return out[i] < out[j]
	})
	return out
}

// OperandOrder is the emission order a binary instruction's two operands
// should be pushed in, chosen to minimize DUP depth for whichever operand
// survives past the instruction.
type OperandOrder int

const (
	// AFirst emits a then b, the instruction's natural operand order.
	AFirst OperandOrder = iota
	// BFirst emits b then a -- preferred when a is used more often (or
	// stays live longer) and should land on top of the stack after the op.
	BFirst
)

// OptimalOperandOrder picks the operand order for a commutative binary
// instruction that minimizes the DUP depth of whichever operand is still
// needed afterward, using use-frequency as the primary signal and liveness
// as a tiebreaker for operands neither already on the stack.
func OptimalOperandOrder(a, b mir.ValueId, onStack func(mir.ValueId) bool, freq *UseFrequency, live *Liveness, block mir.BlockId, instIdx int) OperandOrder {
	if a == b {
		return AFirst
	}

	aOn, bOn := onStack(a), onStack(b)
	switch {
	case aOn && bOn:
		af, bf := freq.UseCount(a), freq.UseCount(b)
		switch {
		case af > bf+2:
			return BFirst
		case bf > af+2:
			return AFirst
		default:
			return AFirst
		}
	case aOn && !bOn:
		// a needs no push; emit b first so it lands on top for the op.
		return BFirst
	case !aOn && bOn:
		return AFirst
	default:
		aLive := !live.IsDeadAfter(block, a, instIdx)
		bLive := !live.IsDeadAfter(block, b, instIdx)
		switch {
		case aLive && !bLive:
			return AFirst
		case bLive && !aLive:
			return BFirst
		default:
			if freq.UseCount(a) > freq.UseCount(b) {
				return AFirst
			}
			return BFirst
		}
	}
}

// SchedulingHint is a use-frequency-derived annotation for one block: which
// values are hot enough to be worth keeping shallow, and which commutative
// binary instructions should swap their natural operand order to reduce DUP
// depth. It never mutates the function; the stack scheduler (internal/stack)
// treats it as an optional hint, not a correctness requirement -- the
// scheduler's EnsureOnTop/EnsureOnTopMany already produce a valid schedule
// with no hints at all.
type SchedulingHint struct {
	OperandOrders map[int]OperandOrder // instruction index within block -> order
	HotValues     []mir.ValueId        // used 3+ times, most-frequent first
}

// maxHotValues caps how many hot values a hint tracks, mirroring EVM's own
// 16-deep DUP/SWAP window: a hot value past that depth would need a spill
// to reach regardless of how "hot" it is.
const maxHotValues = 16

// AnalyzeScheduling computes a SchedulingHint for block b of fn.
func AnalyzeScheduling(fn *mir.Function, b mir.BlockId, live *Liveness) *SchedulingHint {
	hint := &SchedulingHint{OperandOrders: map[int]OperandOrder{}}
	freq := NewUseFrequency(fn, b)

	hot := freq.ValuesByFrequency()
	for _, v := range hot {
		if freq.UseCount(v) < 3 {
			break
		}
		hint.HotValues = append(hint.HotValues, v)
		if len(hint.HotValues) == maxHotValues {
			break
		}
	}

	block := fn.Block(b)
	if block == nil || block.IsInvalid() {
		return hint
	}
	noneOnStack := func(mir.ValueId) bool { return false }
	for idx, iid := range block.Instructions {
		inst := fn.Instruction(iid)
		if !inst.Kind.IsCommutative() || len(inst.Operands) != 2 {
			continue
		}
		a, bOperand := inst.Operands[0], inst.Operands[1]
		// No live view of the actual in-progress stack is available at
		// analysis time (the scheduler runs after this pass, not alongside
		// it), so operand-presence is conservatively "neither on stack yet"
		// -- liveness and use-frequency alone still produce a useful hint.
		order := OptimalOperandOrder(a, bOperand, noneOnStack, freq, live, b, idx)
		if order != AFirst {
			hint.OperandOrders[idx] = order
		}
	}
	return hint
}

// GetOperandOrder returns the hinted order for the instruction at instIdx,
// defaulting to the instruction's natural AFirst order.
func (h *SchedulingHint) GetOperandOrder(instIdx int) OperandOrder {
	if o, ok := h.OperandOrders[instIdx]; ok {
		return o
	}
	return AFirst
}
