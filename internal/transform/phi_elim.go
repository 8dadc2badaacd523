package transform

import "evmc/internal/mir"

// CopySource/CopyDest distinguish a real MIR value from a temporary
// introduced only to break a copy cycle; the temporary never becomes part
// of the function's SSA value arena, it exists purely as a stack scheduler
// hint (materialize-to-a-spill-slot-and-back).
type copyEndpoint struct {
	isTemp bool
	value  mir.ValueId
	temp   uint32
}

func valueEnd(v mir.ValueId) copyEndpoint   { return copyEndpoint{value: v} }
func tempEnd(t uint32) copyEndpoint         { return copyEndpoint{isTemp: true, temp: t} }
func (e copyEndpoint) asValue() (mir.ValueId, bool) {
	if e.isTemp {
		return mir.InvalidID, false
	}
	return e.value, true
}

// ParallelCopy is one copy in a block-exit parallel-copy set: dst := src,
// executed (after sequentialization) in an order that never reads a value
// that an earlier emitted copy in the same set already overwrote.
type ParallelCopy struct {
	Src copyEndpoint
	Dst copyEndpoint
	Ty  mir.MirType
}

// PhiElimination is the final lowering step before stack scheduling: every
// phi node is replaced by a set of copies inserted at the end of each
// predecessor, sequentialized so that simultaneous-assignment semantics
// (every phi reads the predecessor's pre-jump values, never a value another
// phi in the same join just wrote) are preserved despite running the
// copies one at a time. This is a lowering pass, not an optimization: it
// always runs, and its output (mir.KCopy instructions with no result type
// change) is what the stack scheduler consumes.
type PhiElimination struct{}

func (PhiElimination) Name() string { return "phi-elimination" }
func (PhiElimination) Description() string {
	return "replaces phi nodes with sequentialized copies at predecessor block exits"
}

func (PhiElimination) Apply(fn *mir.Function) bool {
	blockCopies := map[mir.BlockId][]ParallelCopy{}
	type phiLoc struct {
		block mir.BlockId
		inst  mir.InstId
	}
	var toRemove []phiLoc

	for _, b := range fn.Blocks {
		if b.IsInvalid() {
			continue
		}
		for _, iid := range b.Instructions {
			inst := fn.Instruction(iid)
			if inst.Kind != mir.KPhi {
				continue
			}
			dst := inst.Result
			ty := inst.ResultTy
			for _, inc := range inst.Incoming {
				blockCopies[inc.Pred] = append(blockCopies[inc.Pred], ParallelCopy{
					Src: valueEnd(inc.Value), Dst: valueEnd(dst), Ty: ty,
				})
			}
			toRemove = append(toRemove, phiLoc{b.ID, iid})
		}
	}
	if len(toRemove) == 0 {
		return false
	}

	var tempCounter uint32
	for pred, copies := range blockCopies {
		blockCopies[pred] = sequentialize(copies, &tempCounter)
	}

	for pred, copies := range blockCopies {
		b := fn.Block(pred)
		tempValues := map[uint32]mir.ValueId{}
		for _, c := range copies {
			insertCopyInst(fn, b, c, tempValues)
		}
	}

	removeSet := map[mir.InstId]bool{}
	for _, loc := range toRemove {
		removeSet[loc.inst] = true
	}
	for _, loc := range toRemove {
		b := fn.Block(loc.block)
		var kept []mir.InstId
		for _, iid := range b.Instructions {
			if !removeSet[iid] {
				kept = append(kept, iid)
			}
		}
		b.Instructions = kept
	}

	return true
}

// insertCopyInst materializes one ParallelCopy as a mir.KCopy instruction
// inserted just before the block's terminator. A temp endpoint is realized
// as an ordinary fresh SSA value the first time it's written; tempValues
// remembers that mapping so a later copy reading the same temp resolves to
// it (sequentialize guarantees the write always precedes the read).
func insertCopyInst(fn *mir.Function, b *mir.BasicBlock, c ParallelCopy, tempValues map[uint32]mir.ValueId) {
	var srcVal mir.ValueId
	if v, ok := c.Src.asValue(); ok {
		srcVal = v
	} else {
		srcVal = tempValues[c.Src.temp]
	}

	id := fn.NewInstID()
	var dstID mir.ValueId
	if v, ok := c.Dst.asValue(); ok {
		dstID = v
	} else {
		dstID = fn.NewValueID()
		tempValues[c.Dst.temp] = dstID
	}
	fn.AddValue(mir.NewInstResult(dstID, id, c.Ty))
	inst := &mir.Instruction{ID: id, Kind: mir.KCopy, Block: b.ID, Result: dstID, ResultTy: c.Ty, Operands: []mir.ValueId{srcVal}}
	fn.AddInstruction(inst)
	b.Instructions = append(b.Instructions, id)
}

// sequentialize implements the Briggs et al. parallel-copy destruction
// algorithm: emit copies whose destination nobody still needs to read from
// first, and break any remaining cycle by routing one copy through a fresh
// temporary.
func sequentialize(copies []ParallelCopy, tempCounter *uint32) []ParallelCopy {
	if len(copies) <= 1 {
		return copies
	}

	writesTo := map[mir.ValueId]int{}
	for i, c := range copies {
		if v, ok := c.Dst.asValue(); ok {
			writesTo[v] = i
		}
	}

	blockedBy := make([]int, len(copies))
	for i, c := range copies {
		if v, ok := c.Src.asValue(); ok {
			if w, ok := writesTo[v]; ok && w != i {
				blockedBy[w]++
			}
		}
	}

	emitted := make([]bool, len(copies))
	result := make([]ParallelCopy, 0, len(copies)+2)

	unblock := func(i int) {
		c := copies[i]
		if v, ok := c.Src.asValue(); ok {
			if w, ok := writesTo[v]; ok && w != i && !emitted[w] {
				if blockedBy[w] > 0 {
					blockedBy[w]--
				}
			}
		}
	}

	allEmitted := func() bool {
		for _, e := range emitted {
			if !e {
				return false
			}
		}
		return true
	}

	for {
		progress := false
		for i := range copies {
			if emitted[i] || blockedBy[i] != 0 {
				continue
			}
			result = append(result, copies[i])
			emitted[i] = true
			progress = true
			unblock(i)
		}
		if allEmitted() {
			break
		}
		if !progress {
			breakOneCycle(copies, emitted, blockedBy, writesTo, &result, tempCounter)
			if allEmitted() {
				break
			}
		}
	}

	return result
}

// breakOneCycle finds a copy still blocked (part of a cycle since nothing
// can make forward progress), routes its source through a fresh temporary,
// and emits the rest of the cycle before substituting the temp back in as
// the broken copy's source.
func breakOneCycle(copies []ParallelCopy, emitted []bool, blockedBy []int, writesTo map[mir.ValueId]int, result *[]ParallelCopy, tempCounter *uint32) {
	startIdx := -1
	for i := range copies {
		if !emitted[i] && blockedBy[i] > 0 {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		for i := range copies {
			if !emitted[i] {
				*result = append(*result, copies[i])
				emitted[i] = true
			}
		}
		return
	}

	cycle := []int{startIdx}
	seen := map[int]bool{startIdx: true}
	current := startIdx
	for {
		src, ok := copies[current].Src.asValue()
		if !ok {
			break
		}
		pred, ok := writesTo[src]
		if !ok || emitted[pred] || pred == startIdx || seen[pred] {
			break
		}
		cycle = append(cycle, pred)
		seen[pred] = true
		current = pred
	}

	breakIdx := cycle[0]
	breakCopy := copies[breakIdx]

	tempID := *tempCounter
	*tempCounter++

	*result = append(*result, ParallelCopy{Src: breakCopy.Src, Dst: tempEnd(tempID), Ty: breakCopy.Ty})

	if v, ok := breakCopy.Src.asValue(); ok {
		if w, ok := writesTo[v]; ok && w != breakIdx && !emitted[w] && blockedBy[w] > 0 {
			blockedBy[w]--
		}
	}

	for _, idx := range cycle[1:] {
		if emitted[idx] || blockedBy[idx] != 0 {
			continue
		}
		*result = append(*result, copies[idx])
		emitted[idx] = true
		if v, ok := copies[idx].Src.asValue(); ok {
			if w, ok := writesTo[v]; ok && !emitted[w] && blockedBy[w] > 0 {
				blockedBy[w]--
			}
		}
	}

	*result = append(*result, ParallelCopy{Src: tempEnd(tempID), Dst: breakCopy.Dst, Ty: breakCopy.Ty})
	emitted[breakIdx] = true
}
