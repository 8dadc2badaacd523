package mir

import (
	"fmt"
	"math/big"
)

// ValueKind tags which of the five SSA value shapes a Value is.
type ValueKind uint8

const (
	// ValImmediate is a compile-time constant: a 256-bit unsigned integer,
	// a boolean, or a 20-byte address.
	ValImmediate ValueKind = iota
	// ValArgument is a function parameter, identified by its zero-based index.
	ValArgument
	// ValInstResult is produced by exactly one instruction (the SSA invariant).
	ValInstResult
	// ValPhi distinguishes a phi-node's result so passes can special-case it
	// without re-deriving the fact from the defining instruction's kind.
	ValPhi
	// ValUndef is a transient placeholder used only during construction
	// (e.g. before a variable's first definition is known); it must never
	// survive into a well-formed function.
	ValUndef
)

// Value is a single-assignment SSA value stored in a Function's value arena.
type Value struct {
	ID   ValueId
	Kind ValueKind
	Ty   MirType

	// ValImmediate
	ImmInt  *big.Int // for Uint/Int/Bytes-as-integer immediates
	ImmBool bool
	ImmAddr [20]byte

	// ValArgument
	ArgIndex int
	ArgName  string // debug only

	// ValInstResult / ValPhi
	Def InstId
}

// NewImmediateU256 constructs an immediate unsigned integer value. The
// caller is responsible for masking to the type's width; values are stored
// as arbitrary-precision integers since the EVM word is 256 bits wide and
// no fixed-width integer in the standard library covers that range.
func NewImmediateU256(id ValueId, v *big.Int, ty MirType) *Value {
	return &Value{ID: id, Kind: ValImmediate, Ty: ty, ImmInt: new(big.Int).Set(v)}
}

func NewImmediateBool(id ValueId, b bool) *Value {
	return &Value{ID: id, Kind: ValImmediate, Ty: Bool(), ImmBool: b}
}

func NewImmediateAddress(id ValueId, addr [20]byte) *Value {
	return &Value{ID: id, Kind: ValImmediate, Ty: Address(), ImmAddr: addr}
}

func NewArgument(id ValueId, index int, name string, ty MirType) *Value {
	return &Value{ID: id, Kind: ValArgument, Ty: ty, ArgIndex: index, ArgName: name}
}

func NewInstResult(id ValueId, def InstId, ty MirType) *Value {
	return &Value{ID: id, Kind: ValInstResult, Ty: ty, Def: def}
}

func NewPhiValue(id ValueId, def InstId, ty MirType) *Value {
	return &Value{ID: id, Kind: ValPhi, Ty: ty, Def: def}
}

func NewUndef(id ValueId, ty MirType) *Value {
	return &Value{ID: id, Kind: ValUndef, Ty: ty}
}

func (v *Value) String() string {
	switch v.Kind {
	case ValImmediate:
		switch v.Ty.Kind {
		case KBool:
			return fmt.Sprintf("bool(%t)", v.ImmBool)
		case KAddress:
			return fmt.Sprintf("address(0x%x)", v.ImmAddr)
		default:
			return fmt.Sprintf("imm(%s)", v.ImmInt.String())
		}
	case ValArgument:
		if v.ArgName != "" {
			return fmt.Sprintf("%%arg%d(%s)", v.ArgIndex, v.ArgName)
		}
		return fmt.Sprintf("%%arg%d", v.ArgIndex)
	case ValPhi:
		return fmt.Sprintf("%%%d(phi)", v.ID)
	case ValUndef:
		return "undef"
	default:
		return fmt.Sprintf("%%%d", v.ID)
	}
}

// IsConstant reports whether the value is a compile-time immediate.
func (v *Value) IsConstant() bool { return v.Kind == ValImmediate }
