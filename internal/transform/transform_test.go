package transform

import (
	"math/big"

	"evmc/internal/mir"
)

func newConst(fn *mir.Function, n int64) mir.ValueId {
	id := fn.NewValueID()
	fn.AddValue(mir.NewImmediateU256(id, big.NewInt(n), mir.U256()))
	return id
}

func newInst(fn *mir.Function, b *mir.BasicBlock, kind mir.InstKind, operands ...mir.ValueId) mir.ValueId {
	resultID := fn.NewValueID()
	instID := fn.NewInstID()
	fn.AddInstruction(&mir.Instruction{ID: instID, Kind: kind, Block: b.ID, Result: resultID, ResultTy: mir.U256(), Operands: operands})
	fn.AddValue(mir.NewInstResult(resultID, instID, mir.U256()))
	b.AddInst(instID)
	return resultID
}

// singleBlockFunction builds an entry block with no terminator yet (the
// caller sets one after appending instructions), ready for a transform
// pass to run over.
func singleBlockFunction(name string) (*mir.Function, *mir.BasicBlock) {
	fn := mir.NewFunction(name)
	entry := fn.NewBlock("entry")
	fn.Entry = entry.ID
	return fn, entry
}
