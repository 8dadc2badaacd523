package transform

import (
	"fmt"

	"evmc/internal/mir"
)

// CSE is local common subexpression elimination: within a single block, two
// pure instructions of the same kind over the same operands compute the
// same value, so the second is replaced by a reference to the first's
// result. Storage/memory reads are included using an effect-aware key that
// is invalidated by an intervening write to the same effect class, per the
// barrier model in internal/mir/effects.go; this is deliberately coarser
// than the slot-level aliasing a production compiler would want (no
// per-slot tracking, just "any store invalidates all loads of that kind"),
// documented as a known precision gap rather than hidden.
type CSE struct{}

func (CSE) Name() string { return "cse" }
func (CSE) Description() string {
	return "replaces redundant pure/load computations within a block with their first result"
}

func (CSE) Apply(fn *mir.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		if b.IsInvalid() {
			continue
		}
		seen := map[string]mir.ValueId{}
		var kept []mir.InstId
		for _, iid := range b.Instructions {
			inst := fn.Instruction(iid)
			if inst == nil {
				continue
			}
			if invalidatesCSE(inst.Kind) {
				seen = map[string]mir.ValueId{}
			}
			if !cseEligible(inst.Kind) || !inst.HasResult() {
				kept = append(kept, iid)
				continue
			}
			key := cseKey(inst)
			if canonical, ok := seen[key]; ok {
				fn.ReplaceAllUses(inst.Result, canonical)
				changed = true
				continue // drop the redundant instruction entirely
			}
			seen[key] = inst.Result
			kept = append(kept, iid)
		}
		b.Instructions = kept
	}
	return changed
}

// cseEligible restricts CSE to instructions whose result depends only on
// their operands: pure arithmetic/bitwise/comparison plus the two read
// kinds (SLOAD, KECCAK256) that are safe as long as no intervening write
// could have changed what they observe.
func cseEligible(k mir.InstKind) bool {
	if k.IsPure() {
		return true
	}
	switch k {
	case mir.KSLoad, mir.KTLoad, mir.KMLoad:
		return true
	}
	return false
}

// invalidatesCSE reports whether an instruction kind may change what a
// later SLOAD/TLOAD/MLOAD observes, clearing the per-block CSE table.
func invalidatesCSE(k mir.InstKind) bool {
	if k.IsBarrier() {
		return true
	}
	switch k {
	case mir.KSStore, mir.KTStore, mir.KMStore, mir.KMStore8, mir.KMCopy:
		return true
	}
	return false
}

func cseKey(inst *mir.Instruction) string {
	key := fmt.Sprintf("%d", inst.Kind)
	for _, op := range inst.Operands {
		key += fmt.Sprintf(",%d", op)
	}
	return key
}
