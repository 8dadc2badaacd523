package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evmc/internal/mir"
)

func addInst(fn *mir.Function, block *mir.BasicBlock, kind mir.InstKind, operands ...mir.ValueId) mir.ValueId {
	resultID := fn.NewValueID()
	instID := fn.NewInstID()
	fn.AddInstruction(&mir.Instruction{ID: instID, Kind: kind, Block: block.ID, Result: resultID, ResultTy: mir.U256(), Operands: operands})
	fn.AddValue(mir.NewInstResult(resultID, instID, mir.U256()))
	block.AddInst(instID)
	return resultID
}

// countingLoopFunction builds the canonical counted-loop shape spec §4.3's
// induction-variable/trip-count analysis targets:
//
//	preheader: i0 = 0; jump header
//	header:    i = phi(preheader: i0, body: i1); cond = i < bound; branch body/exit
//	body:      i1 = i + 1; jump header
//	exit:      return i
func countingLoopFunction(bound int64) (*mir.Function, *Loop) {
	fn := mir.NewFunction("countTo")
	preheader := fn.NewBlock("preheader")
	fn.Entry = preheader.ID
	header := fn.NewBlock("header")
	body := fn.NewBlock("body")
	exit := fn.NewBlock("exit")

	i0 := constValue(fn, 0)
	linkEdge(preheader, header)
	preheader.Terminator = &mir.Terminator{Kind: mir.TJump, Target: header.ID}

	phiID := fn.NewValueID()
	phiInstID := fn.NewInstID()
	phiInst := &mir.Instruction{ID: phiInstID, Kind: mir.KPhi, Block: header.ID, Result: phiID, ResultTy: mir.U256()}
	fn.AddInstruction(phiInst)
	fn.AddValue(mir.NewPhiValue(phiID, phiInstID, mir.U256()))
	header.AddInst(phiInstID)

	boundVal := constValue(fn, bound)
	cond := addInst(fn, header, mir.KLt, phiID, boundVal)
	linkEdge(header, body)
	linkEdge(header, exit)
	header.Terminator = &mir.Terminator{Kind: mir.TBranch, Cond: cond, Then: body.ID, Else: exit.ID}

	one := constValue(fn, 1)
	i1 := addInst(fn, body, mir.KAdd, phiID, one)
	linkEdge(body, header)
	body.Terminator = &mir.Terminator{Kind: mir.TJump, Target: header.ID}

	phiInst.Incoming = []mir.PhiIncoming{{Pred: preheader.ID, Value: i0}, {Pred: body.ID, Value: i1}}

	exit.Terminator = &mir.Terminator{Kind: mir.TReturn, ReturnValues: []mir.ValueId{phiID}}

	info := AnalyzeLoops(fn)
	loop := info.LoopFor(header.ID)
	return fn, loop
}

func TestAnalyzeLoopsFindsHeaderAndBody(t *testing.T) {
	fn, loop := countingLoopFunction(5)
	require.NotNil(t, loop, "expected a natural loop to be found")

	header := fn.Block(loop.Header)
	require.NotNil(t, header)
	assert.Equal(t, "header", header.Label)
	assert.Len(t, loop.Blocks, 2, "header and body, not the preheader or exit")
}

func TestAnalyzeLoopsFindsPreheaderAndExit(t *testing.T) {
	fn, loop := countingLoopFunction(5)
	require.NotNil(t, loop)

	require.NotEqual(t, mir.InvalidID, loop.Preheader)
	preheader := fn.Block(loop.Preheader)
	assert.Equal(t, "preheader", preheader.Label)

	require.Len(t, loop.ExitBlocks, 1)
	exit := fn.Block(loop.ExitBlocks[0])
	assert.Equal(t, "exit", exit.Label)
}

func TestAnalyzeLoopsFindsInductionVariable(t *testing.T) {
	_, loop := countingLoopFunction(5)
	require.NotNil(t, loop)

	require.Len(t, loop.Induction, 1)
	iv := loop.Induction[0]
	assert.NotEqual(t, mir.InvalidID, iv.Update)
}

func TestLoopInfoIsInLoopMembership(t *testing.T) {
	fn, loop := countingLoopFunction(5)
	info := AnalyzeLoops(fn)

	assert.True(t, info.IsInLoop(loop.Header))
	for b := range loop.Blocks {
		assert.True(t, info.IsInLoop(b))
	}

	// the preheader is outside every loop.
	assert.False(t, info.IsInLoop(loop.Preheader))
}
