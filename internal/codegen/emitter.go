package codegen

import (
	"fmt"
	"math/big"

	"evmc/internal/analysis"
	"evmc/internal/mir"
	"evmc/internal/stack"
)

var wordMod = new(big.Int).Lsh(big.NewInt(1), 256)

// toWord reduces a (possibly negative, for signed literals) big.Int to its
// 256-bit two's-complement representation.
func toWord(v *big.Int) *big.Int {
	w := new(big.Int).Mod(v, wordMod)
	if w.Sign() < 0 {
		w.Add(w, wordMod)
	}
	return w
}

type relocation struct {
	pos    int // byte offset of the 2-byte big-endian placeholder
	target mir.BlockId
}

// funcEmitter lowers one mir.Function's blocks to bytecode. Jump targets
// are always encoded as PUSH2 (a fixed 3-byte push), which makes every
// block's instruction-level length independent of where its jumps
// actually land and lets the whole function be emitted in a single forward
// pass: block start offsets are known by the time a later block's
// relocation needs them, and earlier ones are patched at the very end.
type funcEmitter struct {
	fn           *mir.Function
	code         []byte
	blockOffsets map[mir.BlockId]int
	relocs       []relocation
	sched        *stack.Scheduler
	live         *analysis.Liveness

	trailerBlock mir.BlockId
	trailer      func(*funcEmitter)

	// codeOffsetPatchPos is set by the deploy-code trailer (see deploy.go)
	// to the byte position of a PUSH2 placeholder that must be patched with
	// this function's own final code length once it is known -- the
	// CODECOPY that copies the runtime code out of the tail of the deploy
	// code needs to know where that tail starts, which is exactly the
	// total length of everything emitted before it.
	codeOffsetPatchPos int
}

// funcBody is one function's unpatched bytecode: relocation targets are
// still local block offsets, relative to the start of this slice. The
// caller (module assembly) rebases them once it knows where this
// function's code lands in the final runtime code.
type funcBody struct {
	code               []byte
	relocs             []relocation
	blockOffsets       map[mir.BlockId]int
	metrics            *stack.Metrics
	codeOffsetPatchPos int // -1 if the trailer didn't run
}

// emitOptions configures the pieces of function emission that depend on
// where in the assembled contract the function sits: a dispatched external
// function decodes its ABI arguments out of calldata starting after the
// 4-byte selector, the constructor decodes them starting at 0, and the
// constructor additionally replaces its normal exit with a jump to the
// deploy-time runtime-code copy trailer.
type emitOptions struct {
	decodeArgsFrom int // -1 to skip argument decoding entirely
	trailerBlock   mir.BlockId
	trailer        func(*funcEmitter)
}

// emitFunction lowers fn's blocks to an unpatched, relocatable byte
// sequence; jump targets are resolved later, once every function's final
// base offset in the assembled contract is known.
func emitFunction(fn *mir.Function, opts emitOptions) funcBody {
	e := &funcEmitter{
		fn:                  fn,
		blockOffsets:        map[mir.BlockId]int{},
		sched:               stack.NewScheduler(),
		live:                analysis.Compute(fn),
		trailerBlock:        opts.trailerBlock,
		trailer:             opts.trailer,
		codeOffsetPatchPos:  -1,
	}
	if opts.decodeArgsFrom >= 0 {
		e.decodeArguments(opts.decodeArgsFrom)
	}
	for _, b := range fn.ReachableBlocks() {
		e.blockOffsets[b.ID] = len(e.code)
		e.sched.Stack.Clear()
		if e.trailer != nil && b.ID == e.trailerBlock {
			e.trailer(e)
			continue
		}
		e.emitBlock(b)
	}
	return funcBody{
		code: e.code, relocs: e.relocs, blockOffsets: e.blockOffsets, metrics: &e.sched.Metrics,
		codeOffsetPatchPos: e.codeOffsetPatchPos,
	}
}

// decodeArguments materializes each parameter out of calldata into its own
// spill slot, starting at byte offset base (4 past a dispatched function's
// selector, 0 for the constructor). Routing arguments through the spill
// mechanism rather than seeding the native operand stack means the
// scheduler's ordinary EnsureOnTop spill-reload path handles them with no
// special case once the body starts executing.
func (e *funcEmitter) decodeArguments(base int) {
	for i, p := range e.fn.Params {
		e.emitUintOffset(base + i*32)
		e.emitOp(OpCallDataLoad)
		slot := e.sched.Spills.Allocate(p.Value)
		e.emitUintOffset(slot.Offset)
		e.emitOp(OpMStore)
	}
}

func (e *funcEmitter) push(b byte)      { e.code = append(e.code, b) }
func (e *funcEmitter) pushBytes(b []byte) { e.code = append(e.code, b...) }

func (e *funcEmitter) emitOp(op Opcode) { e.push(byte(op)) }

// emitImmediate pushes the minimal-width big-endian encoding of v, using
// PUSH0 for zero.
func (e *funcEmitter) emitImmediate(v *big.Int) {
	w := toWord(v)
	if w.Sign() == 0 {
		e.emitOp(OpPush0)
		return
	}
	raw := w.Bytes()
	if len(raw) > 32 {
		raw = raw[len(raw)-32:]
	}
	e.emitOp(PushN(len(raw)))
	e.pushBytes(raw)
}

// emitUintOffset always emits a fixed-width PUSH2 (used for spill-slot
// offsets and return-data layout, whose values must not change the
// encoding width mid-layout).
func (e *funcEmitter) emitUintOffset(v int) {
	e.emitOp(OpPush2)
	e.push(byte(v >> 8))
	e.push(byte(v))
}

// emitJumpTarget reserves a fixed-width PUSH2 placeholder for a block
// address, recording a relocation to patch in once every block's offset
// is known.
func (e *funcEmitter) emitJumpTarget(target mir.BlockId) {
	e.emitOp(OpPush2)
	e.relocs = append(e.relocs, relocation{pos: len(e.code), target: target})
	e.push(0)
	e.push(0)
}

func (e *funcEmitter) applyOps(ops []stack.ScheduledOp) {
	for _, op := range ops {
		switch op.Kind {
		case stack.OpDup:
			e.emitOp(DupN(op.N))
		case stack.OpSwap:
			e.emitOp(SwapN(op.N))
		case stack.OpPop:
			e.emitOp(OpPop)
		case stack.OpPushImmediate:
			e.emitImmediate(op.Imm)
		case stack.OpLoadSpill:
			e.emitUintOffset(op.Slot.Offset)
			e.emitOp(OpMLoad)
		case stack.OpSaveSpill:
			e.emitUintOffset(op.Slot.Offset)
			e.emitOp(OpMStore)
		case stack.OpLoadArg:
			// Arguments are pre-spilled at the function prologue (see
			// decodeArguments above); a live OpLoadArg past that
			// point means the scheduler never saw the pre-spill, which is
			// a codegen wiring bug, not a user-reachable state.
		}
	}
}

func (e *funcEmitter) bringToTop(v mir.ValueId) {
	e.applyOps(e.sched.EnsureOnTop(v, e.fn))
}

func (e *funcEmitter) dropDead(b mir.BlockId, idx int) {
	e.applyOps(e.sched.DropDeadValues(e.live, b, idx))
}

func (e *funcEmitter) spillExcess() {
	e.applyOps(e.sched.SpillExcessValues())
}

func (e *funcEmitter) emitBlock(b *mir.BasicBlock) {
	for idx, iid := range b.Instructions {
		inst := e.fn.Instruction(iid)
		e.emitInstruction(inst)
		e.spillExcess()
		e.dropDead(b.ID, idx)
	}
	e.spillLiveOut(b)
	e.emitTerminator(b)
}

// spillLiveOut saves every value live across this block's exit edges to
// its spill slot and empties the physical stack, so every successor block
// can start from a known-empty abstract stack (see DESIGN.md for why
// cross-block values are always spilled
// rather than reconciled on the operand stack directly).
func (e *funcEmitter) spillLiveOut(b *mir.BasicBlock) {
	for _, v := range e.live.LiveOut(b.ID).Values() {
		if _, ok := e.sched.Spills.Get(v); ok {
			continue
		}
		if _, onStack := e.sched.Stack.Find(v); !onStack {
			continue
		}
		e.bringToTop(v)
		slot := e.sched.Spills.Allocate(v)
		e.sched.Metrics.RecordSpill()
		e.emitUintOffset(slot.Offset)
		e.emitOp(OpMStore)
		e.sched.Stack.Pop()
	}
	for e.sched.Stack.Depth() > 0 {
		e.emitOp(OpPop)
		e.sched.Stack.Pop()
	}
}

func (e *funcEmitter) emitTerminator(b *mir.BasicBlock) {
	t := b.Terminator
	switch t.Kind {
	case mir.TJump:
		e.emitJumpTarget(t.Target)
		e.emitOp(OpJump)
	case mir.TBranch:
		e.bringToTop(t.Cond)
		e.emitJumpTarget(t.Then)
		e.emitOp(OpJumpI)
		e.emitJumpTarget(t.Else)
		e.emitOp(OpJump)
	case mir.TReturn:
		e.emitReturn(t.ReturnValues)
	case mir.TRevert:
		if t.RevertOffset != mir.InvalidID {
			e.bringToTop(t.RevertSize)
			e.bringToTop(t.RevertOffset)
		} else {
			e.emitOp(OpPush0)
			e.emitOp(OpPush0)
		}
		e.emitOp(OpRevert)
	case mir.TStop:
		e.emitOp(OpStop)
	case mir.TSelfDestruct:
		e.bringToTop(t.Recipient)
		e.emitOp(OpSelfDestruct)
	}
}

// emitReturn ABI-encodes each return value into 32-byte memory words
// starting at scratch offset 0 and returns that region. Dynamic types
// (bytes/strings) are out of scope (see DESIGN.md); every value here is a
// single word.
func (e *funcEmitter) emitReturn(values []mir.ValueId) {
	if len(values) == 0 {
		e.emitOp(OpPush0)
		e.emitOp(OpPush0)
		e.emitOp(OpReturn)
		return
	}
	for i, v := range values {
		e.bringToTop(v)
		e.emitUintOffset(i * 32)
		e.emitOp(OpMStore)
		e.sched.Stack.Pop()
	}
	e.emitUintOffset(len(values) * 32)
	e.emitUintOffset(0)
	e.emitOp(OpReturn)
}

var fixedArity = map[mir.InstKind]struct {
	op   Opcode
	args int
}{
	mir.KAdd: {OpAdd, 2}, mir.KSub: {OpSub, 2}, mir.KMul: {OpMul, 2},
	mir.KDiv: {OpDiv, 2}, mir.KSDiv: {OpSDiv, 2}, mir.KMod: {OpMod, 2}, mir.KSMod: {OpSMod, 2},
	mir.KExp: {OpExp, 2}, mir.KAddMod: {OpAddMod, 3}, mir.KMulMod: {OpMulMod, 3},
	mir.KAnd: {OpAnd, 2}, mir.KOr: {OpOr, 2}, mir.KXor: {OpXor, 2}, mir.KNot: {OpNot, 1},
	mir.KShl: {OpShl, 2}, mir.KShr: {OpShr, 2}, mir.KSar: {OpSar, 2}, mir.KByte: {OpByte, 2},
	mir.KLt: {OpLt, 2}, mir.KGt: {OpGt, 2}, mir.KSlt: {OpSlt, 2}, mir.KSgt: {OpSgt, 2},
	mir.KEq: {OpEq, 2}, mir.KIsZero: {OpIsZero, 1},
	mir.KMLoad: {OpMLoad, 1}, mir.KMStore: {OpMStore, 2}, mir.KMStore8: {OpMStore8, 2},
	mir.KMSize: {OpMSize, 0}, mir.KMCopy: {OpMCopy, 3},
	mir.KSLoad: {OpSLoad, 1}, mir.KSStore: {OpSStore, 2},
	mir.KTLoad: {OpTLoad, 1}, mir.KTStore: {OpTStore, 2},
	mir.KCallDataLoad: {OpCallDataLoad, 1}, mir.KCallDataSize: {OpCallDataSize, 0},
	mir.KCallDataCopy: {OpCallDataCopy, 3},
	mir.KCodeSize: {OpCodeSize, 0}, mir.KCodeCopy: {OpCodeCopy, 3},
	mir.KExtCodeSize: {OpExtCodeSize, 1}, mir.KExtCodeCopy: {OpExtCodeCopy, 4},
	mir.KExtCodeHash: {OpExtCodeHash, 1},
	mir.KReturnDataSize: {OpReturnDataSize, 0}, mir.KReturnDataCopy: {OpReturnDataCopy, 3},
	mir.KAddressOp: {OpAddress, 0}, mir.KBalance: {OpBalance, 1}, mir.KOrigin: {OpOrigin, 0},
	mir.KCaller: {OpCaller, 0}, mir.KCallValue: {OpCallValue, 0}, mir.KGasPrice: {OpGasPrice, 0},
	mir.KBlockHash: {OpBlockHash, 1}, mir.KCoinbase: {OpCoinbase, 0}, mir.KTimestamp: {OpTimestamp, 0},
	mir.KNumber: {OpNumber, 0}, mir.KDifficulty: {OpDifficulty, 0}, mir.KGasLimit: {OpGasLimit, 0},
	mir.KChainId: {OpChainID, 0}, mir.KSelfBalance: {OpSelfBalance, 0}, mir.KBaseFee: {OpBaseFee, 0},
	mir.KGas: {OpGas, 0},
	mir.KKeccak256: {OpKeccak256, 2},
	mir.KSignExtend: {OpSignExtend, 2},
}

func (e *funcEmitter) emitInstruction(inst *mir.Instruction) {
	switch inst.Kind {
	case mir.KPhi:
		panic(fmt.Sprintf("codegen: unresolved phi in function %q, phi elimination must run first", e.fn.Name))
	case mir.KConst:
		// The only live KConst by codegen time is the unresolved-internal-
		// call placeholder buildCallExpr emits (see DESIGN.md): no
		// call-graph inlining exists yet, so it lowers to a conservative
		// zero result rather than the callee's actual effect.
		e.emitOp(OpPush0)
		e.sched.Stack.Push(inst.Result)
		return
	case mir.KCopy:
		e.bringToTop(inst.Operands[0])
		e.sched.Stack.Push(inst.Result)
		return
	case mir.KSelect:
		e.emitSelect(inst)
		return
	case mir.KCall, mir.KStaticCall, mir.KDelegateCall, mir.KCallCode:
		e.emitCall(inst)
		return
	case mir.KCreate, mir.KCreate2:
		e.emitCreate(inst)
		return
	case mir.KLog0, mir.KLog1, mir.KLog2, mir.KLog3, mir.KLog4:
		e.emitLog(inst)
		return
	}

	spec, ok := fixedArity[inst.Kind]
	if !ok {
		panic(fmt.Sprintf("codegen: no lowering for instruction kind %s", inst.Kind.Mnemonic()))
	}
	e.applyOps(e.sched.EnsureOnTopMany(inst.Operands, e.fn))
	for range inst.Operands {
		e.sched.Stack.Pop()
	}
	e.emitOp(spec.op)
	if inst.HasResult() {
		e.sched.Stack.Push(inst.Result)
	}
}

// emitSelect lowers the SSA select (cond ? a : b) construct the short-
// circuit builder produces for && / || into branch-free arithmetic:
// b + cond*(a-b), valid because cond is always a strict 0/1 bool here.
// b is duplicated up front so the single physical copy consumed by SUB
// still has a twin available for the closing ADD.
func (e *funcEmitter) emitSelect(inst *mir.Instruction) {
	cond, a, b := inst.Operands[0], inst.Operands[1], inst.Operands[2]

	e.bringToTop(b)
	e.emitOp(DupN(1))
	e.sched.Stack.Dup(1)

	e.bringToTop(a)
	e.emitOp(OpSub)
	e.sched.Stack.Pop()
	e.sched.Stack.Pop()
	e.sched.Stack.PushUnknown()

	e.bringToTop(cond)
	e.emitOp(OpMul)
	e.sched.Stack.Pop()
	e.sched.Stack.Pop()
	e.sched.Stack.PushUnknown()

	e.emitOp(OpAdd)
	e.sched.Stack.Pop()
	e.sched.Stack.Pop()
	e.sched.Stack.Push(inst.Result)
}

// emitCall lowers KCall/KStaticCall/KDelegateCall/KCallCode. Operands are
// [gas, address, value?, argsOffset, argsSize, retOffset, retSize] in EVM
// order (value only for KCall/KCallCode); the result is the boolean
// success flag the opcode leaves on the stack.
func (e *funcEmitter) emitCall(inst *mir.Instruction) {
	op := OpCall
	switch inst.Kind {
	case mir.KStaticCall:
		op = OpStaticCall
	case mir.KDelegateCall:
		op = OpDelegateCall
	case mir.KCallCode:
		op = OpCallCode
	}
	e.applyOps(e.sched.EnsureOnTopMany(inst.Operands, e.fn))
	for range inst.Operands {
		e.sched.Stack.Pop()
	}
	e.emitOp(op)
	if inst.HasResult() {
		e.sched.Stack.Push(inst.Result)
	}
}

// emitCreate lowers KCreate ([value, offset, size]) / KCreate2 ([value,
// offset, size, salt]); result is the deployed address (0 on failure).
func (e *funcEmitter) emitCreate(inst *mir.Instruction) {
	op := OpCreate
	if inst.Kind == mir.KCreate2 {
		op = OpCreate2
	}
	e.applyOps(e.sched.EnsureOnTopMany(inst.Operands, e.fn))
	for range inst.Operands {
		e.sched.Stack.Pop()
	}
	e.emitOp(op)
	if inst.HasResult() {
		e.sched.Stack.Push(inst.Result)
	}
}

// emitLog lowers KLog0..KLog4; operands are [offset, size, topic0, ...].
func (e *funcEmitter) emitLog(inst *mir.Instruction) {
	n := int(inst.Kind - mir.KLog0)
	e.applyOps(e.sched.EnsureOnTopMany(inst.Operands, e.fn))
	for range inst.Operands {
		e.sched.Stack.Pop()
	}
	e.emitOp(LogN(n))
}
