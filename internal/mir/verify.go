package mir

import "fmt"

// VerifyError describes a single §3 invariant violation. Internal compiler
// errors of this shape are not user-facing diagnostics; a pass that leaves
// a function in a state Verify rejects is a compiler bug.
type VerifyError struct {
	Function string
	Message  string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("mir: function %q failed verification: %s", e.Function, e.Message)
}

// Verify checks every invariant from §3 that must hold after lowering and
// at every transform-pass boundary. It returns the first violation found;
// callers that want every violation should use VerifyAll.
func Verify(f *Function) error {
	errs := VerifyAll(f)
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// VerifyAll returns every invariant violation in f, for diagnostics and
// property-test reporting.
func VerifyAll(f *Function) []error {
	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, &VerifyError{Function: f.Name, Message: fmt.Sprintf(format, args...)})
	}

	if f.Entry == InvalidID || f.Block(f.Entry) == nil {
		fail("no entry block")
		return errs
	}
	if len(f.Block(f.Entry).Predecessors) != 0 {
		fail("entry block %s has predecessors", f.Block(f.Entry).Label)
	}

	// SSA: no value is produced by more than one instruction, and no
	// instruction is listed in more than one block. A value whose defining
	// instruction is listed in no block is not reported.
	defCount := map[ValueId]int{}
	instOfBlock := map[InstId]BlockId{}
	for _, b := range f.Blocks {
		if b.IsInvalid() {
			continue
		}
		for _, iid := range b.Instructions {
			if prev, ok := instOfBlock[iid]; ok {
				fail("instruction %d appears in blocks %s and %s", iid, f.Block(prev).Label, b.Label)
			}
			instOfBlock[iid] = b.ID
			inst := f.Instruction(iid)
			if inst == nil {
				fail("block %s references missing instruction %d", b.Label, iid)
				continue
			}
			if inst.HasResult() {
				defCount[inst.Result]++
			}
		}
	}
	for vid, n := range defCount {
		if n != 1 {
			fail("value %d defined by %d instructions, want exactly 1", vid, n)
		}
	}

	// CFG consistency: successor/predecessor lists agree with terminators,
	// and every reachable block has a non-nil, non-Invalid terminator.
	for _, b := range f.Blocks {
		if b.IsInvalid() {
			continue
		}
		if b.Terminator == nil {
			fail("block %s has no terminator", b.Label)
			continue
		}
		want := b.Terminator.Successors()
		if !sameMultiset(want, b.Successors) {
			fail("block %s successors %v disagree with terminator targets %v", b.Label, b.Successors, want)
		}
		for _, s := range b.Successors {
			sb := f.Block(s)
			if sb == nil {
				fail("block %s has dangling successor %d", b.Label, s)
				continue
			}
			if !sb.HasPredecessor(b.ID) {
				fail("block %s is a successor of %s but does not list it as predecessor", sb.Label, b.Label)
			}
		}
		for _, p := range b.Predecessors {
			pb := f.Block(p)
			if pb == nil {
				fail("block %s has dangling predecessor %d", b.Label, p)
				continue
			}
			if !pb.HasSuccessor(b.ID) {
				fail("block %s is a predecessor of %s but does not list it as successor", pb.Label, b.Label)
			}
		}
	}

	// Phi well-formedness: exactly one incoming entry per predecessor, all
	// sharing the result type.
	for _, b := range f.Blocks {
		if b.IsInvalid() {
			continue
		}
		for _, iid := range b.Instructions {
			inst := f.Instruction(iid)
			if inst.Kind != KPhi {
				continue
			}
			seen := map[BlockId]bool{}
			for _, inc := range inst.Incoming {
				if seen[inc.Pred] {
					fail("phi %d has duplicate incoming entry for predecessor %d", iid, inc.Pred)
				}
				seen[inc.Pred] = true
				if !b.HasPredecessor(inc.Pred) {
					fail("phi %d in %s has incoming from non-predecessor %d", iid, b.Label, inc.Pred)
				}
				v := f.Value(inc.Value)
				if v != nil && !v.Ty.Equal(inst.ResultTy) {
					fail("phi %d incoming value %d has type %s, want %s", iid, inc.Value, v.Ty, inst.ResultTy)
				}
			}
			if len(inst.Incoming) != len(b.Predecessors) {
				fail("phi %d in %s has %d incoming entries, want %d (one per predecessor)",
					iid, b.Label, len(inst.Incoming), len(b.Predecessors))
			}
		}
	}

	return errs
}

func sameMultiset(a, b []BlockId) bool {
	if len(a) != len(b) {
		return false
	}
	counts := map[BlockId]int{}
	for _, x := range a {
		counts[x]++
	}
	for _, x := range b {
		counts[x]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}
