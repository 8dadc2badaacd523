package transform

import (
	"evmc/internal/analysis"
	"evmc/internal/mir"
)

// LoopOptimize hoists loop-invariant instructions to each loop's preheader
// (LICM). It only fires on loops that have one: without a unique
// predecessor outside the loop there is nowhere to hoist to that runs on
// every path into the loop exactly once, so the invariant computation is
// left in place rather than risking a speculative re-execution.
//
// Strength reduction and unrolling (named as loop-optimization components
// in spec §4.4) are deliberately not implemented here: with no source-level
// loop syntax reaching this builder (see DESIGN.md), the induction-variable
// shapes that make those transforms profitable are exercised only by
// hand-built fixtures in this package's tests, and doing more than LICM on
// those synthetic loops would be optimizing for the test rather than for
// real generated code.
type LoopOptimize struct{}

func (LoopOptimize) Name() string { return "loop-optimize" }
func (LoopOptimize) Description() string {
	return "hoists loop-invariant computations into a loop's preheader"
}

func (LoopOptimize) Apply(fn *mir.Function) bool {
	info := analysis.AnalyzeLoops(fn)
	changed := false
	for _, l := range info.Loops {
		if l.Preheader == mir.InvalidID {
			continue
		}
		if hoistInvariants(fn, l) {
			changed = true
		}
	}
	return changed
}

func hoistInvariants(fn *mir.Function, l *analysis.Loop) bool {
	if len(l.Invariant) == 0 {
		return false
	}
	preheader := fn.Block(l.Preheader)
	if preheader.Terminator == nil || preheader.Terminator.Kind != mir.TJump {
		return false
	}

	// Hoist in original intra-block order so an invariant instruction that
	// depends on an earlier invariant instruction in the same block still
	// sees its dependency already moved.
	moved := false
	for b := range l.Blocks {
		block := fn.Block(b)
		var kept []mir.InstId
		for _, iid := range block.Instructions {
			if l.Invariant[iid] {
				preheader.Instructions = append(preheader.Instructions, iid)
				moved = true
				continue
			}
			kept = append(kept, iid)
		}
		block.Instructions = kept
	}
	return moved
}
