package transform

import "evmc/internal/mir"

// DCE removes instructions whose result is never used and which have no
// side effect, in three passes per spec §4.4: dead-value elimination
// (pure instructions with no remaining use), dead-store elimination (a
// storage/transient write immediately overwritten by another write to the
// same address before any intervening read, within a block), and
// unreachable-block pruning (blocks no longer reachable from the entry
// after branch folding/jump threading removed their last edge in).
type DCE struct{}

func (DCE) Name() string { return "dce" }
func (DCE) Description() string {
	return "removes unused pure instructions, shadowed stores, and unreachable blocks"
}

func (d DCE) Apply(fn *mir.Function) bool {
	changed := false
	if d.removeUnreachableBlocks(fn) {
		changed = true
	}
	if d.removeDeadValues(fn) {
		changed = true
	}
	if d.removeDeadStores(fn) {
		changed = true
	}
	return changed
}

// removeUnreachableBlocks marks every block not reachable from the entry
// as TInvalid and strips it from its former neighbors' predecessor lists,
// rather than compacting the block arena (ids stay stable for anything
// holding a reference across passes).
func (DCE) removeUnreachableBlocks(fn *mir.Function) bool {
	reachable := map[mir.BlockId]bool{}
	for _, b := range fn.ReachableBlocks() {
		reachable[b.ID] = true
	}
	changed := false
	for _, b := range fn.Blocks {
		if b.IsInvalid() || reachable[b.ID] {
			continue
		}
		for _, succ := range b.Successors {
			if sb := fn.Block(succ); sb != nil {
				sb.RemovePredecessor(b.ID)
			}
		}
		b.Instructions = nil
		b.Successors = nil
		b.Terminator = &mir.Terminator{Kind: mir.TInvalid}
		changed = true
	}
	return changed
}

// removeDeadValues iterates to a fixpoint: a pure instruction whose result
// has no use anywhere in the function (operand, phi incoming, or
// terminator reference) is dropped, which can make its own operands dead
// in turn.
func (DCE) removeDeadValues(fn *mir.Function) bool {
	changed := false
	for {
		used := map[mir.ValueId]bool{}
		for _, b := range fn.Blocks {
			if b.IsInvalid() {
				continue
			}
			for _, iid := range b.Instructions {
				inst := fn.Instruction(iid)
				for _, op := range inst.Operands {
					used[op] = true
				}
				for _, inc := range inst.Incoming {
					used[inc.Value] = true
				}
			}
			if b.Terminator != nil {
				markTerminatorUses(b.Terminator, used)
			}
		}

		round := false
		for _, b := range fn.Blocks {
			if b.IsInvalid() {
				continue
			}
			var kept []mir.InstId
			for _, iid := range b.Instructions {
				inst := fn.Instruction(iid)
				if inst.HasResult() && !used[inst.Result] && inst.Kind.IsPure() {
					round = true
					continue
				}
				kept = append(kept, iid)
			}
			b.Instructions = kept
		}
		if !round {
			break
		}
		changed = true
	}
	return changed
}

func markTerminatorUses(t *mir.Terminator, used map[mir.ValueId]bool) {
	switch t.Kind {
	case mir.TBranch:
		used[t.Cond] = true
	case mir.TSwitch:
		used[t.SwitchValue] = true
		for _, c := range t.Cases {
			used[c.Value] = true
		}
	case mir.TReturn:
		for _, v := range t.ReturnValues {
			used[v] = true
		}
	case mir.TRevert:
		used[t.RevertOffset] = true
		used[t.RevertSize] = true
	case mir.TSelfDestruct:
		used[t.Recipient] = true
	}
}

// removeDeadStores drops a storage/transient write that is unconditionally
// overwritten, later in the same block, by another write to the same
// address before any read of that address occurs in between -- the last
// write before a read or the block's end is the only one that can be
// observed.
func (DCE) removeDeadStores(fn *mir.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		if b.IsInvalid() {
			continue
		}
		// storage and transient storage are disjoint address spaces, so a
		// KTStore to address N must never shadow an earlier KSStore to the
		// same address N -- key on (transient, addr), not addr alone.
		type storeKey struct {
			transient bool
			addr      mir.ValueId
		}
		lastStoreAt := map[storeKey]int{} // key -> index of most recent store
		dead := map[int]bool{}
		for i, iid := range b.Instructions {
			inst := fn.Instruction(iid)
			switch inst.Kind {
			case mir.KSStore, mir.KTStore:
				key := storeKey{transient: inst.Kind == mir.KTStore, addr: inst.Operands[0]}
				if prev, ok := lastStoreAt[key]; ok {
					dead[prev] = true
				}
				lastStoreAt[key] = i
			case mir.KSLoad, mir.KTLoad:
				key := storeKey{transient: inst.Kind == mir.KTLoad, addr: inst.Operands[0]}
				delete(lastStoreAt, key)
			default:
				if inst.Kind.IsBarrier() {
					lastStoreAt = map[storeKey]int{}
				}
			}
		}
		if len(dead) == 0 {
			continue
		}
		var kept []mir.InstId
		for i, iid := range b.Instructions {
			if dead[i] {
				changed = true
				continue
			}
			kept = append(kept, iid)
		}
		b.Instructions = kept
	}
	return changed
}
