package analysis

import (
	"math/big"

	"evmc/internal/mir"
)

type bigInt = big.Int

// Dominators holds the dominator-set result for a function: dom[b] is the
// set of every block (b included) that dominates b.
type Dominators struct {
	dom map[mir.BlockId]map[mir.BlockId]bool
}

// Dominates reports whether a dominates b (every path from entry to b
// passes through a).
func (d *Dominators) Dominates(a, b mir.BlockId) bool {
	set, ok := d.dom[b]
	return ok && set[a]
}

// ComputeDominators runs the classic iterative dataflow fixpoint:
// dom(entry) = {entry}; dom(b) = {b} ∪ (∩ dom(p) for predecessors p).
// A worklist isn't needed for correctness here (this is the textbook
// all-blocks-every-iteration formulation) and keeps the pass simple; loop
// nests in generated EVM code are shallow enough that the extra iterations
// cost nothing measurable.
func ComputeDominators(fn *mir.Function) *Dominators {
	all := map[mir.BlockId]bool{}
	for _, b := range fn.Blocks {
		all[b.ID] = true
	}

	dom := map[mir.BlockId]map[mir.BlockId]bool{}
	for _, b := range fn.Blocks {
		if b.ID == fn.Entry {
			dom[b.ID] = map[mir.BlockId]bool{b.ID: true}
		} else {
			dom[b.ID] = cloneSet(all)
		}
	}

	changed := true
	for changed {
		changed = false
		for _, b := range fn.Blocks {
			if b.ID == fn.Entry {
				continue
			}
			var newDoms map[mir.BlockId]bool
			for _, pred := range b.Predecessors {
				predDoms, ok := dom[pred]
				if !ok {
					continue
				}
				if newDoms == nil {
					newDoms = cloneSet(predDoms)
					continue
				}
				for k := range newDoms {
					if !predDoms[k] {
						delete(newDoms, k)
					}
				}
			}
			if newDoms == nil {
				newDoms = map[mir.BlockId]bool{}
			}
			newDoms[b.ID] = true

			if !setsEqual(dom[b.ID], newDoms) {
				dom[b.ID] = newDoms
				changed = true
			}
		}
	}

	return &Dominators{dom: dom}
}

func cloneSet(s map[mir.BlockId]bool) map[mir.BlockId]bool {
	out := make(map[mir.BlockId]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func setsEqual(a, b map[mir.BlockId]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// InductionVar describes a header phi that advances by a constant step each
// iteration: value = phi(init from outside the loop, step_val from inside).
type InductionVar struct {
	Value  mir.ValueId // the phi's result
	Init   mir.ValueId // value coming from outside the loop
	Step   mir.ValueId // the constant stride each iteration adds/subtracts
	Update mir.InstId  // the add/sub instruction that computes the next value
}

// Loop is one natural loop: a header with a back edge, and the set of
// blocks reachable from the back edge's source without leaving the loop.
type Loop struct {
	Header      mir.BlockId
	Blocks      map[mir.BlockId]bool
	BackEdges   []mir.BlockId
	ExitBlocks  []mir.BlockId
	Preheader   mir.BlockId // InvalidID if the header has more than one outside predecessor
	Induction   []InductionVar
	Invariant   map[mir.InstId]bool
	TripCount   *uint64 // nil unless statically determined
}

// LoopInfo is the per-function result of loop analysis: every natural loop,
// plus a block -> innermost-loop-header index for fast membership queries.
type LoopInfo struct {
	Loops       map[mir.BlockId]*Loop
	BlockToLoop map[mir.BlockId]mir.BlockId
}

func (li *LoopInfo) IsInLoop(b mir.BlockId) bool {
	_, ok := li.BlockToLoop[b]
	return ok
}

func (li *LoopInfo) LoopFor(b mir.BlockId) *Loop {
	header, ok := li.BlockToLoop[b]
	if !ok {
		return nil
	}
	return li.Loops[header]
}

// AnalyzeLoops finds every natural loop in fn and populates induction
// variables, loop-invariant instructions, exits, preheader and (when
// derivable) a static trip count, per spec §4.3.
func AnalyzeLoops(fn *mir.Function) *LoopInfo {
	dom := ComputeDominators(fn)
	loops := findNaturalLoops(fn, dom)

	info := &LoopInfo{Loops: map[mir.BlockId]*Loop{}, BlockToLoop: map[mir.BlockId]mir.BlockId{}}
	for _, l := range loops {
		findExitBlocks(fn, l)
		findPreheader(fn, l)
		analyzeInductionVars(fn, l)
		findInvariantInstructions(fn, l)
		analyzeTripCount(fn, l)

		for b := range l.Blocks {
			info.BlockToLoop[b] = l.Header
		}
		info.Loops[l.Header] = l
	}
	return info
}

// findNaturalLoops finds every back edge (an edge b -> h where h dominates
// b) and, for each distinct header h, unions the loop bodies reachable from
// every such back edge into a single Loop.
func findNaturalLoops(fn *mir.Function, dom *Dominators) []*Loop {
	byHeader := map[mir.BlockId]*Loop{}
	var order []mir.BlockId

	for _, b := range fn.Blocks {
		if b.Terminator == nil {
			continue
		}
		for _, succ := range b.Terminator.Successors() {
			if !dom.Dominates(succ, b.ID) {
				continue
			}
			l, ok := byHeader[succ]
			if !ok {
				l = &Loop{Header: succ, Blocks: map[mir.BlockId]bool{}, Preheader: mir.InvalidID, Invariant: map[mir.InstId]bool{}}
				byHeader[succ] = l
				order = append(order, succ)
			}
			l.BackEdges = append(l.BackEdges, b.ID)
			collectLoopBlocks(fn, succ, b.ID, l.Blocks)
		}
	}

	out := make([]*Loop, 0, len(order))
	for _, h := range order {
		out = append(out, byHeader[h])
	}
	return out
}

// collectLoopBlocks walks predecessors backward from the back edge's source
// until it reaches the header, gathering every block on the way: exactly
// the natural-loop-body construction from a single back edge.
func collectLoopBlocks(fn *mir.Function, header, backEdgeSrc mir.BlockId, blocks map[mir.BlockId]bool) {
	blocks[header] = true
	worklist := []mir.BlockId{backEdgeSrc}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if blocks[b] {
			continue
		}
		blocks[b] = true
		block := fn.Block(b)
		if block == nil {
			continue
		}
		for _, p := range block.Predecessors {
			if !blocks[p] {
				worklist = append(worklist, p)
			}
		}
	}
}

func findExitBlocks(fn *mir.Function, l *Loop) {
	seen := map[mir.BlockId]bool{}
	for b := range l.Blocks {
		block := fn.Block(b)
		if block == nil || block.Terminator == nil {
			continue
		}
		for _, succ := range block.Terminator.Successors() {
			if !l.Blocks[succ] && !seen[succ] {
				seen[succ] = true
				l.ExitBlocks = append(l.ExitBlocks, succ)
			}
		}
	}
}

func findPreheader(fn *mir.Function, l *Loop) {
	header := fn.Block(l.Header)
	var outside []mir.BlockId
	for _, p := range header.Predecessors {
		if !l.Blocks[p] {
			outside = append(outside, p)
		}
	}
	if len(outside) == 1 {
		l.Preheader = outside[0]
	}
}

func analyzeInductionVars(fn *mir.Function, l *Loop) {
	header := fn.Block(l.Header)
	for _, iid := range header.Instructions {
		inst := fn.Instruction(iid)
		if inst.Kind != mir.KPhi {
			continue
		}
		var init, step mir.ValueId = mir.InvalidID, mir.InvalidID
		for _, inc := range inst.Incoming {
			if l.Blocks[inc.Pred] {
				step = inc.Value
			} else {
				init = inc.Value
			}
		}
		if init == mir.InvalidID || step == mir.InvalidID {
			continue
		}
		updateInst := findUpdateInstruction(fn, inst.Result, step)
		if updateInst == mir.InvalidID {
			continue
		}
		stepAmount := stepAmount(fn, updateInst, inst.Result)
		if stepAmount == mir.InvalidID {
			continue
		}
		l.Induction = append(l.Induction, InductionVar{Value: inst.Result, Init: init, Step: stepAmount, Update: updateInst})
	}
}

// findUpdateInstruction looks for the add/sub that recomputes the induction
// variable each iteration: `phi = phi(init, stepVal)` where stepVal is
// itself `phiVal + k` or `phiVal - k`.
func findUpdateInstruction(fn *mir.Function, phiVal, stepVal mir.ValueId) mir.InstId {
	v := fn.Value(stepVal)
	if v == nil || v.Kind != mir.ValInstResult {
		return mir.InvalidID
	}
	inst := fn.Instruction(v.Def)
	if inst == nil || len(inst.Operands) != 2 {
		return mir.InvalidID
	}
	a, b := inst.Operands[0], inst.Operands[1]
	switch inst.Kind {
	case mir.KAdd:
		if a == phiVal || b == phiVal {
			return inst.ID
		}
	case mir.KSub:
		if a == phiVal {
			return inst.ID
		}
	}
	return mir.InvalidID
}

func stepAmount(fn *mir.Function, instID mir.InstId, phiVal mir.ValueId) mir.ValueId {
	inst := fn.Instruction(instID)
	a, b := inst.Operands[0], inst.Operands[1]
	switch inst.Kind {
	case mir.KAdd:
		if a == phiVal {
			return b
		}
		return a
	case mir.KSub:
		return b
	}
	return mir.InvalidID
}

// findInvariantInstructions computes, by fixpoint, every instruction inside
// the loop whose operands are all loop-invariant: arguments, immediates,
// values defined outside the loop, or (transitively) other invariant
// instructions. Side-effecting instructions and phis are never invariant --
// moving a storage write or a phi out of the loop would change behavior.
func findInvariantInstructions(fn *mir.Function, l *Loop) {
	invariantValues := map[mir.ValueId]bool{}
	for _, v := range fn.Values() {
		if v == nil {
			continue
		}
		switch v.Kind {
		case mir.ValImmediate, mir.ValArgument:
			invariantValues[v.ID] = true
		case mir.ValInstResult:
			if !l.Blocks[definingBlock(fn, v.Def)] {
				invariantValues[v.ID] = true
			}
		}
	}

	changed := true
	for changed {
		changed = false
		for b := range l.Blocks {
			block := fn.Block(b)
			for _, iid := range block.Instructions {
				if l.Invariant[iid] {
					continue
				}
				inst := fn.Instruction(iid)
				if inst.Kind.HasSideEffects() || inst.Kind == mir.KPhi {
					continue
				}
				allInvariant := true
				for _, op := range inst.Operands {
					if !invariantValues[op] {
						allInvariant = false
						break
					}
				}
				if allInvariant {
					l.Invariant[iid] = true
					if inst.HasResult() {
						invariantValues[inst.Result] = true
					}
					changed = true
				}
			}
		}
	}
}

func definingBlock(fn *mir.Function, instID mir.InstId) mir.BlockId {
	for _, b := range fn.Blocks {
		for _, iid := range b.Instructions {
			if iid == instID {
				return b.ID
			}
		}
	}
	return mir.InvalidID
}

// analyzeTripCount derives a static trip count only for the simplest shape:
// exactly one induction variable with constant init/step and a constant
// loop bound compared directly against it in a branch condition.
func analyzeTripCount(fn *mir.Function, l *Loop) {
	if len(l.Induction) != 1 {
		return
	}
	iv := l.Induction[0]

	initVal := fn.Value(iv.Init)
	stepVal := fn.Value(iv.Step)
	if initVal == nil || stepVal == nil || initVal.Kind != mir.ValImmediate || stepVal.Kind != mir.ValImmediate {
		return
	}
	if stepVal.ImmInt == nil || stepVal.ImmInt.Sign() == 0 {
		return
	}

	bound := findLoopBound(fn, l, iv.Value)
	if bound == nil {
		return
	}
	if initVal.ImmInt == nil || bound.Cmp(initVal.ImmInt) < 0 {
		return
	}
	diff := new(bigInt).Sub(bound, initVal.ImmInt)
	trip := new(bigInt).Div(diff, stepVal.ImmInt)
	if trip.IsUint64() {
		v := trip.Uint64()
		l.TripCount = &v
	}
}

func findLoopBound(fn *mir.Function, l *Loop, ivValue mir.ValueId) *bigInt {
	for b := range l.Blocks {
		block := fn.Block(b)
		if block.Terminator == nil || block.Terminator.Kind != mir.TBranch {
			continue
		}
		cond := fn.Value(block.Terminator.Cond)
		if cond == nil || cond.Kind != mir.ValInstResult {
			continue
		}
		inst := fn.Instruction(cond.Def)
		if inst == nil || len(inst.Operands) != 2 {
			continue
		}
		a, b2 := inst.Operands[0], inst.Operands[1]
		switch inst.Kind {
		case mir.KLt:
			if a == ivValue {
				if bv := fn.Value(b2); bv != nil && bv.Kind == mir.ValImmediate {
					return bv.ImmInt
				}
			}
		case mir.KGt:
			if b2 == ivValue {
				if av := fn.Value(a); av != nil && av.Kind == mir.ValImmediate {
					return av.ImmInt
				}
			}
		}
	}
	return nil
}
