package stack

import (
	"math/big"

	"evmc/internal/analysis"
	"evmc/internal/mir"
)

// OpKind tags one element of a scheduled operation sequence.
type OpKind uint8

const (
	OpDup OpKind = iota
	OpSwap
	OpPop
	OpPushImmediate
	OpLoadSpill
	OpSaveSpill
	OpLoadArg
)

// ScheduledOp is one stack-manipulation or data-movement step the code
// generator emits verbatim as the corresponding opcode.
type ScheduledOp struct {
	Kind  OpKind
	N     uint8    // DUP/SWAP depth
	Imm   *big.Int // PushImmediate
	Slot  SpillSlot
	Value mir.ValueId // the value a spill/reload op carries, for codegen's own bookkeeping
	Arg   int         // LoadArg index
}

// Scheduler drives the abstract Model and SpillManager through a block's
// instructions, producing the ScheduledOp sequence the code generator
// turns into bytecode.
type Scheduler struct {
	Stack   *Model
	Spills  *SpillManager
	Metrics Metrics
}

func NewScheduler() *Scheduler {
	return &Scheduler{Stack: NewModel(), Spills: NewSpillManager(0x80)}
}

// EnsureOnTop returns the operations needed to bring v to the top of the
// stack: nothing if it's already there, a DUP if it's within reach,
// otherwise a reload from its spill slot or a fresh push of an
// immediate/argument value.
func (s *Scheduler) EnsureOnTop(v mir.ValueId, fn *mir.Function) []ScheduledOp {
	if s.Stack.IsOnTop(v) {
		return nil
	}
	if depth, ok := s.Stack.Find(v); ok {
		if depth < MaxStackAccess {
			n := uint8(depth + 1)
			s.Stack.Dup(n)
			s.Metrics.RecordDup(n)
			return []ScheduledOp{{Kind: OpDup, N: n}}
		}
	}
	if slot, ok := s.Spills.Get(v); ok {
		s.Stack.Push(v)
		s.Metrics.RecordReload()
		return []ScheduledOp{{Kind: OpLoadSpill, Slot: slot, Value: v}}
	}

	val := fn.Value(v)
	if val == nil {
		return nil
	}
	switch val.Kind {
	case mir.ValImmediate:
		s.Stack.Push(v)
		imm := val.ImmInt
		if val.Ty.Kind == mir.KBool {
			if val.ImmBool {
				imm = big.NewInt(1)
			} else {
				imm = big.NewInt(0)
			}
		}
		return []ScheduledOp{{Kind: OpPushImmediate, Imm: imm, Value: v}}
	case mir.ValArgument:
		s.Stack.Push(v)
		return []ScheduledOp{{Kind: OpLoadArg, Arg: val.ArgIndex, Value: v}}
	default:
		// A cross-block value that wasn't spilled before the predecessor's
		// exit is a scheduling bug upstream of this pass, not a case this
		// function can recover from.
		return nil
	}
}

// EnsureOnTopMany brings values to the top in order (values[0] ends up on
// top, values[1] below it, and so on) by pushing them in reverse.
func (s *Scheduler) EnsureOnTopMany(values []mir.ValueId, fn *mir.Function) []ScheduledOp {
	var all []ScheduledOp
	for i := len(values) - 1; i >= 0; i-- {
		all = append(all, s.EnsureOnTop(values[i], fn)...)
	}
	return all
}

// DropDeadValues pops values from the stack that have no remaining use
// after instruction idx in block b: first from the top, then by swapping
// a dead value at depth up to 16 to the top and popping it.
func (s *Scheduler) DropDeadValues(liveness *analysis.Liveness, b mir.BlockId, idx int) []ScheduledOp {
	var ops []ScheduledOp

	for {
		top, ok := s.Stack.Top()
		if !ok || !liveness.IsDeadAfter(b, top, idx) {
			break
		}
		s.Stack.Pop()
		ops = append(ops, ScheduledOp{Kind: OpPop})
	}

	depth := 1
	for depth < s.Stack.Depth() && depth < MaxStackAccess {
		v, ok := s.Stack.Peek(depth)
		if ok && liveness.IsDeadAfter(b, v, idx) {
			n := uint8(depth)
			s.Stack.Swap(n)
			s.Metrics.RecordSwap(n)
			ops = append(ops, ScheduledOp{Kind: OpSwap, N: n})
			s.Stack.Pop()
			ops = append(ops, ScheduledOp{Kind: OpPop})
			continue
		}
		depth++
	}

	return ops
}

// SpillExcessValues spills the deepest reachable value when the stack
// grows past MaxStackAccess, keeping every still-needed value within
// DUP/SWAP range.
func (s *Scheduler) SpillExcessValues() []ScheduledOp {
	if s.Stack.Depth() <= MaxStackAccess {
		return nil
	}
	v, ok := s.Stack.Peek(MaxStackAccess - 1)
	if !ok {
		return nil
	}
	slot := s.Spills.Allocate(v)
	s.Metrics.RecordSpill()
	return []ScheduledOp{{Kind: OpSaveSpill, Slot: slot, Value: v}}
}

// InstructionExecuted pops the consumed operand count and, if the
// instruction produced a tracked result, pushes it.
func (s *Scheduler) InstructionExecuted(consumed int, produced mir.ValueId, hasResult bool) {
	for i := 0; i < consumed; i++ {
		s.Stack.Pop()
	}
	if hasResult {
		s.Stack.Push(produced)
	}
}

// InstructionExecutedUntracked is for results the scheduler deliberately
// doesn't track by identity (e.g. a value that would go stale across a
// loop back-edge); it keeps the stack depth accounting correct anyway.
func (s *Scheduler) InstructionExecutedUntracked(consumed int) {
	for i := 0; i < consumed; i++ {
		s.Stack.Pop()
	}
	s.Stack.PushUnknown()
}

// PrepareBinaryOp arranges [a, b, ...] on top of the stack for a binary
// instruction, emitting a SWAP if both operands are already present but in
// the wrong order, or pushes through EnsureOnTop if either is missing.
// EnsureOnTopMany already handles both cases (present-but-misordered and
// missing) on its own, so there is nothing left for this wrapper to branch
// on.
func (s *Scheduler) PrepareBinaryOp(a, b mir.ValueId, fn *mir.Function) []ScheduledOp {
	return s.EnsureOnTopMany([]mir.ValueId{a, b}, fn)
}

// PrepareUnaryOp brings operand to the top for a unary instruction.
func (s *Scheduler) PrepareUnaryOp(operand mir.ValueId, fn *mir.Function) []ScheduledOp {
	return s.EnsureOnTop(operand, fn)
}
