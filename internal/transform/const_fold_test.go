package transform

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evmc/internal/errors"
	"evmc/internal/mir"
)

func TestConstantFoldReplacesAllImmediateAdd(t *testing.T) {
	fn, entry := singleBlockFunction("fold")
	a := newConst(fn, 2)
	b := newConst(fn, 3)
	sum := newInst(fn, entry, mir.KAdd, a, b)
	entry.Terminator = &mir.Terminator{Kind: mir.TReturn, ReturnValues: []mir.ValueId{sum}}

	changed := (&ConstantFold{}).Apply(fn)
	require.True(t, changed)

	// the instruction that computed sum is now a no-op KConst...
	sumInst := fn.Instruction(fn.Value(sum).Def)
	assert.Equal(t, mir.KConst, sumInst.Kind)

	// ...and the terminator's return value was rewired to the new folded immediate.
	folded := fn.Value(entry.Terminator.ReturnValues[0])
	require.Equal(t, mir.ValImmediate, folded.Kind)
	assert.Equal(t, int64(5), folded.ImmInt.Int64())
}

func TestConstantFoldLeavesNonImmediateOperandsAlone(t *testing.T) {
	fn, entry := singleBlockFunction("nofold")
	argID := fn.NewValueID()
	fn.AddValue(mir.NewArgument(argID, 0, "x", mir.U256()))
	fn.Params = append(fn.Params, mir.Parameter{Name: "x", Ty: mir.U256(), Value: argID})

	b := newConst(fn, 3)
	sum := newInst(fn, entry, mir.KAdd, argID, b)
	entry.Terminator = &mir.Terminator{Kind: mir.TReturn, ReturnValues: []mir.ValueId{sum}}

	changed := (&ConstantFold{}).Apply(fn)
	assert.False(t, changed)
}

func TestConstantFoldReportsOverflowAndLeavesInstructionUnfolded(t *testing.T) {
	fn, entry := singleBlockFunction("overflow")
	maxU256 := newConstBig(fn, new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)))
	one := newConst(fn, 1)
	sum := newInst(fn, entry, mir.KAdd, maxU256, one)
	entry.Terminator = &mir.Terminator{Kind: mir.TReturn, ReturnValues: []mir.ValueId{sum}}

	cf := &ConstantFold{}
	changed := cf.Apply(fn)

	assert.False(t, changed, "an overflowing add must not be folded into a wrapped constant")
	require.Len(t, cf.Diagnostics(), 1)
	assert.Equal(t, errors.ErrorNumericOverflow, cf.Diagnostics()[0].Code)

	sumInst := fn.Instruction(fn.Value(sum).Def)
	assert.Equal(t, mir.KAdd, sumInst.Kind, "the unfoldable instruction must be left as-is, not lowered to KConst")
}

func TestConstantFoldReportsDivisionByZero(t *testing.T) {
	fn, entry := singleBlockFunction("divzero")
	ten := newConst(fn, 10)
	zero := newConst(fn, 0)
	quot := newInst(fn, entry, mir.KDiv, ten, zero)
	entry.Terminator = &mir.Terminator{Kind: mir.TReturn, ReturnValues: []mir.ValueId{quot}}

	cf := &ConstantFold{}
	changed := cf.Apply(fn)

	assert.False(t, changed)
	require.Len(t, cf.Diagnostics(), 1)
	assert.Equal(t, errors.ErrorDivisionByZero, cf.Diagnostics()[0].Code)
}

func TestConstantFoldDiagnosticsAreClearedBetweenRounds(t *testing.T) {
	fn, entry := singleBlockFunction("clean")
	a := newConst(fn, 2)
	b := newConst(fn, 3)
	sum := newInst(fn, entry, mir.KAdd, a, b)
	entry.Terminator = &mir.Terminator{Kind: mir.TReturn, ReturnValues: []mir.ValueId{sum}}

	cf := &ConstantFold{}
	cf.Apply(fn)

	assert.Empty(t, cf.Diagnostics(), "a clean fold must not carry over diagnostics from a prior instance's failures")
}

func TestConstantFoldShiftAtWordWidthFoldsToZero(t *testing.T) {
	fn, entry := singleBlockFunction("shl256")
	one := newConst(fn, 1)
	amount := newConst(fn, 256)
	shifted := newInst(fn, entry, mir.KShl, one, amount)
	entry.Terminator = &mir.Terminator{Kind: mir.TReturn, ReturnValues: []mir.ValueId{shifted}}

	changed := (&ConstantFold{}).Apply(fn)
	require.True(t, changed)

	folded := fn.Value(entry.Terminator.ReturnValues[0])
	assert.Equal(t, int64(0), folded.ImmInt.Int64())
}

func TestConstantFoldArithmeticShiftSignExtends(t *testing.T) {
	fn, entry := singleBlockFunction("sar")
	negOne := newConstBig(fn, big.NewInt(-1))
	amount := newConst(fn, 4)
	shifted := newInst(fn, entry, mir.KSar, negOne, amount)
	entry.Terminator = &mir.Terminator{Kind: mir.TReturn, ReturnValues: []mir.ValueId{shifted}}

	changed := (&ConstantFold{}).Apply(fn)
	require.True(t, changed)

	folded := fn.Value(entry.Terminator.ReturnValues[0])
	wordMax := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	assert.Equal(t, wordMax, folded.ImmInt, "arithmetic-shifting -1 right must still read as all ones")
}

func newConstBig(fn *mir.Function, v *big.Int) mir.ValueId {
	id := fn.NewValueID()
	fn.AddValue(mir.NewImmediateU256(id, v, mir.U256()))
	return id
}
