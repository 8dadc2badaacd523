package debugcfg

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evmc/internal/analysis"
	"evmc/internal/mir"
	"evmc/internal/parser"
	"evmc/internal/semantic"
)

func buildFunction(t *testing.T, source, fnName string) *mir.Function {
	contract, parseErrors, scanErrors := parser.ParseSource("test.ka", source)
	require.Empty(t, scanErrors)
	require.Empty(t, parseErrors)
	result := mir.NewBuilder(semantic.NewContextRegistry()).Build(contract)
	fn := result.Module.FunctionByName(fnName)
	require.NotNil(t, fn)
	return fn
}

func TestDOTRendersOneNodePerReachableBlock(t *testing.T) {
	source := `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
    }

    #[view]
    ext fn totalSupply() -> U256 reads State {
        State.total_supply
    }
}`
	fn := buildFunction(t, source, "totalSupply")

	dot := DOT(fn, nil)
	assert.True(t, strings.HasPrefix(dot, "digraph "))
	assert.Contains(t, dot, "totalSupply")
	nodes := 0
	for _, line := range strings.Split(dot, "\n") {
		if strings.Contains(line, " [label=") && !strings.Contains(line, " -> ") {
			nodes++
		}
	}
	assert.Equal(t, len(fn.ReachableBlocks()), nodes)
}

func TestDOTEscapesQuotesInLabels(t *testing.T) {
	assert.Equal(t, `say \"hi\"`, escape(`say "hi"`))
}

func TestDotIDSanitizesNonIdentifierCharacters(t *testing.T) {
	assert.Equal(t, "foo_bar", dotID("foo-bar"))
	assert.Equal(t, "fn", dotID(""))
}

func linkDebugEdge(from, to *mir.BasicBlock) {
	from.Successors = append(from.Successors, to.ID)
	to.Predecessors = append(to.Predecessors, from.ID)
}

// countingLoopFunction hand-builds a counted loop (preheader/header/body/
// exit) the same shape internal/analysis's loop tests use, since Kanso's
// surface syntax has no loop construct to lower one from.
func countingLoopFunction() *mir.Function {
	fn := mir.NewFunction("countUp")
	preheader := fn.NewBlock("preheader")
	header := fn.NewBlock("header")
	body := fn.NewBlock("body")
	exit := fn.NewBlock("exit")
	fn.Entry = preheader.ID

	zeroID := fn.NewValueID()
	fn.AddValue(mir.NewImmediateU256(zeroID, big.NewInt(0), mir.U256()))

	boundID := fn.NewValueID()
	fn.AddValue(mir.NewArgument(boundID, 0, "bound", mir.U256()))
	fn.Params = append(fn.Params, mir.Parameter{Name: "bound", Ty: mir.U256(), Value: boundID})

	preheader.Terminator = &mir.Terminator{Kind: mir.TJump, Target: header.ID}
	linkDebugEdge(preheader, header)

	phiID := fn.NewValueID()
	phiInstID := fn.NewInstID()
	fn.AddValue(mir.NewPhiValue(phiID, phiInstID, mir.U256()))
	fn.AddInstruction(&mir.Instruction{
		ID: phiInstID, Kind: mir.KPhi, Block: header.ID, Result: phiID, ResultTy: mir.U256(),
		Incoming: []mir.PhiIncoming{{Pred: preheader.ID, Value: zeroID}},
	})
	header.AddInst(phiInstID)

	condID := fn.NewValueID()
	condInstID := fn.NewInstID()
	fn.AddValue(mir.NewInstResult(condID, condInstID, mir.Bool()))
	fn.AddInstruction(&mir.Instruction{
		ID: condInstID, Kind: mir.KLt, Block: header.ID, Result: condID, ResultTy: mir.Bool(),
		Operands: []mir.ValueId{phiID, boundID},
	})
	header.AddInst(condInstID)
	header.Terminator = &mir.Terminator{Kind: mir.TBranch, Cond: condID, Then: body.ID, Else: exit.ID}
	linkDebugEdge(header, body)
	linkDebugEdge(header, exit)

	oneID := fn.NewValueID()
	fn.AddValue(mir.NewImmediateU256(oneID, big.NewInt(1), mir.U256()))
	stepID := fn.NewValueID()
	stepInstID := fn.NewInstID()
	fn.AddValue(mir.NewInstResult(stepID, stepInstID, mir.U256()))
	fn.AddInstruction(&mir.Instruction{
		ID: stepInstID, Kind: mir.KAdd, Block: body.ID, Result: stepID, ResultTy: mir.U256(),
		Operands: []mir.ValueId{phiID, oneID},
	})
	body.AddInst(stepInstID)
	body.Terminator = &mir.Terminator{Kind: mir.TJump, Target: header.ID}
	linkDebugEdge(body, header)

	exit.Terminator = &mir.Terminator{Kind: mir.TReturn, ReturnValues: []mir.ValueId{phiID}}

	return fn
}

func TestDOTHighlightsLoopHeaderWhenLoopInfoProvided(t *testing.T) {
	fn := countingLoopFunction()
	info := analysis.AnalyzeLoops(fn)

	dot := DOT(fn, info)
	assert.Contains(t, dot, "lightblue")
}
