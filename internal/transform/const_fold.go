package transform

import (
	"fmt"
	"math/big"

	"evmc/internal/ast"
	"evmc/internal/errors"
	"evmc/internal/mir"
)

// ConstantFold evaluates arithmetic, bitwise, and comparison instructions
// whose operands are all immediates, replacing the result's uses with a
// freshly materialized immediate and turning the instruction into a no-op
// KConst (left for DCE to remove once it is unreferenced). This is the MIR
// counterpart of the constant folder the original front end ran over HIR
// expressions; running it again after lowering catches constants that only
// became foldable once storage reads were replaced by CSE or cached values.
//
// Folding distinguishes two compile-time error conditions (spec.md §4.4.1):
// a checked add/sub/mul whose exact result does not fit the instruction's
// declared width, and a div/mod whose divisor is the constant zero. Both
// leave the instruction unfolded and record a CompilerError in Diagnostics
// instead of emitting wrapped or zeroed bytecode; the caller is responsible
// for checking Diagnostics and refusing to hand the function to codegen.
// Shift amounts of 256 or more are not an error -- spec.md §4.4.1 defines
// them to fold to zero (or -1 for an all-ones arithmetic shift), matching
// the EVM's own SHL/SHR/SAR behavior at a shift count that clears the word.
type ConstantFold struct {
	diagnostics []errors.CompilerError
}

func (*ConstantFold) Name() string { return "constant-fold" }
func (*ConstantFold) Description() string {
	return "evaluates arithmetic/comparison instructions with all-immediate operands"
}

// Diagnostics returns the compile errors the most recent Apply call found --
// constants that fold to a value outside their declared width, or a
// division/modulo by a constant zero. Cleared at the start of every Apply.
func (cf *ConstantFold) Diagnostics() []errors.CompilerError { return cf.diagnostics }

var wordMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func maskTo(v *big.Int, bits int) *big.Int {
	if bits <= 0 || bits >= 256 {
		return new(big.Int).And(v, wordMask)
	}
	m := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits)), big.NewInt(1))
	return new(big.Int).And(v, m)
}

// signedWord reinterprets v's low 256 bits as a signed two's-complement
// integer, the view SAR's sign fill and EVM's signed comparisons use
// regardless of how the immediate happens to be stored.
func signedWord(v *big.Int) *big.Int {
	w := maskTo(v, 256)
	if w.Bit(255) == 1 {
		w = new(big.Int).Sub(w, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return w
}

// fitsWidth reports whether v, taken as an exact mathematical integer (not
// yet wrapped), is representable in ty without truncation.
func fitsWidth(v *big.Int, ty mir.MirType) bool {
	bits := ty.Width
	if bits <= 0 {
		bits = 256
	}
	if ty.IsSigned() {
		max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)), big.NewInt(1))
		min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)))
		return v.Cmp(min) >= 0 && v.Cmp(max) <= 0
	}
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits)), big.NewInt(1))
	return v.Sign() >= 0 && v.Cmp(max) <= 0
}

func (cf *ConstantFold) overflow(fn *mir.Function, inst *mir.Instruction) {
	cf.diagnostics = append(cf.diagnostics, errors.NewSemanticError(
		errors.ErrorNumericOverflow,
		fmt.Sprintf("constant %s in %q overflows %s", inst.Kind.Mnemonic(), fn.Name, inst.ResultTy.String()),
		ast.Position{},
	).WithNote("this expression is a compile-time constant; Kanso evaluates it with checked arithmetic").Build())
}

func (cf *ConstantFold) divByZero(fn *mir.Function, inst *mir.Instruction) {
	cf.diagnostics = append(cf.diagnostics, errors.NewSemanticError(
		errors.ErrorDivisionByZero,
		fmt.Sprintf("constant %s in %q divides by the constant zero", inst.Kind.Mnemonic(), fn.Name),
		ast.Position{},
	).Build())
}

func (cf *ConstantFold) Apply(fn *mir.Function) bool {
	cf.diagnostics = nil
	changed := false
	for _, b := range fn.Blocks {
		if b.IsInvalid() {
			continue
		}
		for _, iid := range b.Instructions {
			inst := fn.Instruction(iid)
			if inst == nil || !inst.HasResult() {
				continue
			}
			folded, ok := cf.foldInstruction(fn, inst)
			if !ok {
				continue
			}
			newID := fn.NewValueID()
			fn.AddValue(folded(newID))
			fn.ReplaceAllUses(inst.Result, newID)
			inst.Kind = mir.KConst
			inst.Operands = nil
			changed = true
		}

		if b.Terminator != nil && b.Terminator.Kind == mir.TBranch {
			if foldBranch(fn, b) {
				changed = true
			}
		}
	}
	return changed
}

// foldInstruction returns a constructor for the folded immediate, or ok=false
// if the instruction is not foldable (not all-immediate operands, not a kind
// this pass understands) or folds to a compile error (recorded on cf).
func (cf *ConstantFold) foldInstruction(fn *mir.Function, inst *mir.Instruction) (func(mir.ValueId) *mir.Value, bool) {
	vals := make([]*mir.Value, len(inst.Operands))
	for i, op := range inst.Operands {
		v := fn.Value(op)
		if v == nil || v.Kind != mir.ValImmediate {
			return nil, false
		}
		vals[i] = v
	}

	intOf := func(v *mir.Value) *big.Int {
		if v.Ty.Kind == mir.KBool {
			if v.ImmBool {
				return big.NewInt(1)
			}
			return big.NewInt(0)
		}
		return v.ImmInt
	}

	switch inst.Kind {
	case mir.KAdd, mir.KSub, mir.KMul:
		if len(vals) != 2 {
			return nil, false
		}
		a, b := intOf(vals[0]), intOf(vals[1])
		var r *big.Int
		switch inst.Kind {
		case mir.KAdd:
			r = new(big.Int).Add(a, b)
		case mir.KSub:
			r = new(big.Int).Sub(a, b)
		case mir.KMul:
			r = new(big.Int).Mul(a, b)
		}
		if !fitsWidth(r, inst.ResultTy) {
			cf.overflow(fn, inst)
			return nil, false
		}
		ty := inst.ResultTy
		return func(id mir.ValueId) *mir.Value { return mir.NewImmediateU256(id, r, ty) }, true

	case mir.KDiv, mir.KMod:
		if len(vals) != 2 {
			return nil, false
		}
		a, b := intOf(vals[0]), intOf(vals[1])
		if b.Sign() == 0 {
			cf.divByZero(fn, inst)
			return nil, false
		}
		var r *big.Int
		if inst.Kind == mir.KDiv {
			r = new(big.Int).Div(a, b)
		} else {
			r = new(big.Int).Mod(a, b)
		}
		ty := inst.ResultTy
		return func(id mir.ValueId) *mir.Value { return mir.NewImmediateU256(id, r, ty) }, true

	case mir.KAnd, mir.KOr, mir.KXor:
		if len(vals) != 2 {
			return nil, false
		}
		a, b := intOf(vals[0]), intOf(vals[1])
		var r *big.Int
		switch inst.Kind {
		case mir.KAnd:
			r = new(big.Int).And(a, b)
		case mir.KOr:
			r = new(big.Int).Or(a, b)
		case mir.KXor:
			r = new(big.Int).Xor(a, b)
		}
		r = maskTo(r, inst.ResultTy.Width)
		ty := inst.ResultTy
		return func(id mir.ValueId) *mir.Value { return mir.NewImmediateU256(id, r, ty) }, true

	case mir.KShl, mir.KShr, mir.KSar:
		if len(vals) != 2 {
			return nil, false
		}
		a, shiftAmt := intOf(vals[0]), intOf(vals[1])
		var r *big.Int
		overflowing := shiftAmt.Sign() < 0 || shiftAmt.Cmp(big.NewInt(256)) >= 0
		switch inst.Kind {
		case mir.KShl:
			if overflowing {
				r = big.NewInt(0)
			} else {
				r = new(big.Int).Lsh(a, uint(shiftAmt.Uint64()))
			}
		case mir.KShr:
			if overflowing {
				r = big.NewInt(0)
			} else {
				r = new(big.Int).Rsh(maskTo(a, 256), uint(shiftAmt.Uint64()))
			}
		case mir.KSar:
			signedA := signedWord(a)
			if overflowing {
				if signedA.Sign() < 0 {
					r = big.NewInt(-1)
				} else {
					r = big.NewInt(0)
				}
			} else {
				r = new(big.Int).Rsh(signedA, uint(shiftAmt.Uint64()))
			}
		}
		r = maskTo(r, inst.ResultTy.Width)
		ty := inst.ResultTy
		return func(id mir.ValueId) *mir.Value { return mir.NewImmediateU256(id, r, ty) }, true

	case mir.KLt, mir.KGt, mir.KEq:
		if len(vals) != 2 {
			return nil, false
		}
		a, b := intOf(vals[0]), intOf(vals[1])
		var r bool
		switch inst.Kind {
		case mir.KLt:
			r = a.Cmp(b) < 0
		case mir.KGt:
			r = a.Cmp(b) > 0
		case mir.KEq:
			r = a.Cmp(b) == 0
		}
		return func(id mir.ValueId) *mir.Value { return mir.NewImmediateBool(id, r) }, true

	case mir.KIsZero:
		if len(vals) != 1 {
			return nil, false
		}
		r := intOf(vals[0]).Sign() == 0
		return func(id mir.ValueId) *mir.Value { return mir.NewImmediateBool(id, r) }, true
	}
	return nil, false
}

// foldBranch rewrites a branch on a constant condition into an unconditional
// jump, pruning the edge to the now-unreachable side. The CFG-consistency
// bookkeeping (predecessor/successor lists) is updated here rather than
// left to a later pass since a stale list would fail mir.Verify immediately.
func foldBranch(fn *mir.Function, b *mir.BasicBlock) bool {
	cond := fn.Value(b.Terminator.Cond)
	if cond == nil || cond.Kind != mir.ValImmediate {
		return false
	}
	taken := b.Terminator.Then
	dead := b.Terminator.Else
	if !cond.ImmBool {
		taken, dead = dead, taken
	}
	if deadBlock := fn.Block(dead); deadBlock != nil {
		deadBlock.RemovePredecessor(b.ID)
	}
	b.RemoveSuccessor(dead)
	b.Terminator = &mir.Terminator{Kind: mir.TJump, Target: taken}
	return true
}
