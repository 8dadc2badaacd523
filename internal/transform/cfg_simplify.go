package transform

import "evmc/internal/mir"

// CFGSimplify merges a block into its unique predecessor when that
// predecessor has no other successor: the two are always executed as a
// unit, so concatenating their instruction streams removes a JUMPDEST and
// a JUMP with no change in behavior. This runs after jump threading so the
// merge candidates it creates (an unconditional-jump predecessor left with
// one successor once relays are gone) are visible.
type CFGSimplify struct{}

func (CFGSimplify) Name() string { return "cfg-simplify" }
func (CFGSimplify) Description() string {
	return "merges blocks connected by a single unconditional edge into their predecessor"
}

func (CFGSimplify) Apply(fn *mir.Function) bool {
	changed := false
	for pass := 0; pass < len(fn.Blocks); pass++ {
		mergedThisRound := false
		for _, b := range fn.Blocks {
			if b.IsInvalid() || b.ID == fn.Entry {
				continue
			}
			if len(b.Predecessors) != 1 {
				continue
			}
			pred := fn.Block(b.Predecessors[0])
			if pred == nil || pred.IsInvalid() {
				continue
			}
			if pred.Terminator == nil || pred.Terminator.Kind != mir.TJump || len(pred.Successors) != 1 {
				continue
			}
			if hasPhi(fn, b) {
				continue // a phi here needs its single incoming value substituted, not merged blind
			}
			mergeBlocks(fn, pred, b)
			mergedThisRound = true
			changed = true
		}
		if !mergedThisRound {
			break
		}
	}
	return changed
}

func hasPhi(fn *mir.Function, b *mir.BasicBlock) bool {
	for _, iid := range b.Instructions {
		if fn.Instruction(iid).Kind == mir.KPhi {
			return true
		}
	}
	return false
}

// mergeBlocks absorbs b's instructions and terminator into pred, then
// marks b invalid and repoints b's former successors' predecessor lists
// at pred.
func mergeBlocks(fn *mir.Function, pred, b *mir.BasicBlock) {
	pred.Instructions = append(pred.Instructions, b.Instructions...)
	pred.Terminator = b.Terminator
	pred.Successors = b.Successors
	for _, succ := range b.Successors {
		if sb := fn.Block(succ); sb != nil {
			sb.RemovePredecessor(b.ID)
			if !sb.HasPredecessor(pred.ID) {
				sb.Predecessors = append(sb.Predecessors, pred.ID)
			}
		}
	}
	b.Instructions = nil
	b.Successors = nil
	b.Terminator = &mir.Terminator{Kind: mir.TInvalid}
}
