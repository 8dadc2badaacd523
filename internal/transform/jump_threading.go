package transform

import "evmc/internal/mir"

// JumpThreading collapses a jump to a block that itself unconditionally
// jumps elsewhere into a single direct jump, skipping the empty
// intermediate hop. It also rewrites a branch whose target is such a
// relay block, and threads through unconditional-jump chains until every
// terminator points directly at a block with real content (or another
// branch/return/revert).
type JumpThreading struct{}

func (JumpThreading) Name() string { return "jump-threading" }
func (JumpThreading) Description() string {
	return "redirects jumps/branches through empty relay blocks to their final target"
}

func (jt JumpThreading) Apply(fn *mir.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		if b.IsInvalid() || b.Terminator == nil {
			continue
		}
		switch b.Terminator.Kind {
		case mir.TJump:
			if target := resolveRelay(fn, b.Terminator.Target, map[mir.BlockId]bool{b.ID: true}); target != b.Terminator.Target {
				rewireEdge(fn, b, b.Terminator.Target, target)
				b.Terminator.Target = target
				changed = true
			}
		case mir.TBranch:
			then := resolveRelay(fn, b.Terminator.Then, map[mir.BlockId]bool{b.ID: true})
			els := resolveRelay(fn, b.Terminator.Else, map[mir.BlockId]bool{b.ID: true})
			if then != b.Terminator.Then {
				rewireEdge(fn, b, b.Terminator.Then, then)
				b.Terminator.Then = then
				changed = true
			}
			if els != b.Terminator.Else {
				rewireEdge(fn, b, b.Terminator.Else, els)
				b.Terminator.Else = els
				changed = true
			}
		}
	}
	return changed
}

// resolveRelay follows a chain of empty blocks (no instructions, an
// unconditional jump terminator) to the first block that isn't one,
// refusing to loop forever on a cycle of empty blocks (visited guards
// against that, falling back to the original target).
func resolveRelay(fn *mir.Function, target mir.BlockId, visited map[mir.BlockId]bool) mir.BlockId {
	if visited[target] {
		return target
	}
	b := fn.Block(target)
	if b == nil || b.IsInvalid() || len(b.Instructions) != 0 {
		return target
	}
	// A relay block must have exactly one predecessor, or rewiring would
	// change the incoming edge set every other predecessor's phis expect.
	if len(b.Predecessors) != 1 || b.Terminator == nil || b.Terminator.Kind != mir.TJump {
		return target
	}
	visited[target] = true
	return resolveRelay(fn, b.Terminator.Target, visited)
}

func rewireEdge(fn *mir.Function, from *mir.BasicBlock, oldTarget, newTarget mir.BlockId) {
	if old := fn.Block(oldTarget); old != nil {
		old.RemovePredecessor(from.ID)
	}
	from.RemoveSuccessor(oldTarget)
	if !from.HasSuccessor(newTarget) {
		from.Successors = append(from.Successors, newTarget)
	}
	if nb := fn.Block(newTarget); nb != nil && !nb.HasPredecessor(from.ID) {
		nb.Predecessors = append(nb.Predecessors, from.ID)
	}
}
