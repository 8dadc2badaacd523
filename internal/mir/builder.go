package mir

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"evmc/internal/ast"
	"evmc/internal/errors"
	"evmc/internal/semantic"
)

// Builder lowers a Kanso contract (the AST produced by the parser, after
// semantic analysis has resolved names and validated reads/writes clauses)
// into one MIR Function per declared function, plus the storage layout and
// event signature table the functions reference.
//
// The AST fills the role of the spec's "typed HIR": straight-line
// statements, resolved storage field/map accesses, and call targets are
// already available off of it. Control flow in this MIR is therefore
// limited to what the source language's statements actually produce --
// sequential blocks, the branch+revert diamond `require!` lowers to, and
// the branches joined by phis that if/else and `&&` / `||` lower to;
// there is no surface loop syntax to lower yet (see DESIGN.md), so the
// loop-analysis and loop-optimization passes are exercised directly against
// hand-built MIR fixtures in their test suites instead of through this
// builder.
type Builder struct {
	module  *Module
	context *semantic.ContextRegistry

	fn      *Function
	block   *BasicBlock
	current map[string]ValueId // variable name -> current SSA value (single-block scope)

	storageSlots map[string]int
	storageTypes map[string]MirType
	mapSlots     map[string]int // Slots<K,V> fields, keyed storage
	slotCounter  int

	senderCache  *ValueId
	storageAddrs map[string]ValueId
	storageLoads map[string]ValueId

	diagnostics []errors.CompilerError
}

// EventSignature is a global, per-module constant: the name and canonical
// ABI signature string of a `#[event]` struct, used to compute the LOG
// topic0 hash at codegen time.
type EventSignature struct {
	EventName string
	Signature string
}

// StorageLayout records the per-slot metadata produced by collecting a
// contract's `#[storage]` struct, consumed by codegen and by the DOT
// debug renderer.
type StorageLayout struct {
	Slot int
	Name string
	Ty   MirType
	Keyed bool // true for Slots<K,V> fields addressed via keccak256(key . slot)
}

// BuildResult bundles everything MIR lowering produces for one contract.
type BuildResult struct {
	Module      *Module
	Storage     []StorageLayout
	Events      []EventSignature
	Diagnostics []errors.CompilerError
}

func NewBuilder(context *semantic.ContextRegistry) *Builder {
	return &Builder{context: context, storageSlots: map[string]int{}, storageTypes: map[string]MirType{}, mapSlots: map[string]int{}}
}

// Build converts an AST contract into MIR, one Function per declared
// function. A call this pass cannot lower adds an entry to
// BuildResult.Diagnostics and leaves a placeholder value in its function,
// so the caller decides from the diagnostics whether to go on; the core
// itself panics
// only on invariant violations (internal compiler errors), never on
// malformed input, which is caught upstream in semantic analysis.
func (b *Builder) Build(contract *ast.Contract) *BuildResult {
	b.module = NewModule(contract.Name.Value)

	var events []EventSignature
	b.collectStorageLayout(contract)
	events = b.collectEventSignatures(contract)

	for _, item := range contract.Items {
		if astFn, ok := item.(*ast.Function); ok {
			fn := b.buildFunction(astFn)
			b.module.AddFunction(fn)
		}
	}

	layout := make([]StorageLayout, 0, len(b.storageSlots))
	for name, slot := range b.storageSlots {
		_, keyed := b.mapSlots[name]
		layout = append(layout, StorageLayout{Slot: slot, Name: name, Ty: b.storageTypes[name], Keyed: keyed})
	}

	return &BuildResult{Module: b.module, Storage: layout, Events: events, Diagnostics: b.diagnostics}
}

// --- storage & event layout ---

func (b *Builder) collectStorageLayout(contract *ast.Contract) {
	for _, item := range contract.Items {
		s, ok := item.(*ast.Struct)
		if !ok || s.Attribute == nil || s.Attribute.Name != "storage" {
			continue
		}
		for _, it := range s.Items {
			field, ok := it.(*ast.StructField)
			if !ok {
				continue
			}
			name := field.Name.Value
			b.storageSlots[name] = b.slotCounter
			if field.VariableType != nil && field.VariableType.Name.Value == "Slots" {
				b.mapSlots[name] = b.slotCounter
				if len(field.VariableType.Generics) == 2 {
					b.storageTypes[name] = astTypeToMir(field.VariableType.Generics[1])
				} else {
					b.storageTypes[name] = U256()
				}
			} else {
				b.storageTypes[name] = astTypeToMir(field.VariableType)
			}
			b.slotCounter++
		}
	}
}

func (b *Builder) collectEventSignatures(contract *ast.Contract) []EventSignature {
	var events []EventSignature
	for _, item := range contract.Items {
		s, ok := item.(*ast.Struct)
		if !ok || s.Attribute == nil || s.Attribute.Name != "event" {
			continue
		}
		var fieldTypes []string
		for _, it := range s.Items {
			if field, ok := it.(*ast.StructField); ok {
				fieldTypes = append(fieldTypes, abiTypeName(field.VariableType))
			}
		}
		events = append(events, EventSignature{
			EventName: s.Name.Value,
			Signature: s.Name.Value + "(" + strings.Join(fieldTypes, ",") + ")",
		})
	}
	return events
}

func abiTypeName(vt *ast.VariableType) string {
	if vt == nil {
		return "uint256"
	}
	switch vt.Name.Value {
	case "Address":
		return "address"
	case "Bool":
		return "bool"
	case "U8":
		return "uint8"
	case "U16":
		return "uint16"
	case "U32":
		return "uint32"
	case "U64":
		return "uint64"
	case "U128":
		return "uint128"
	case "U256":
		return "uint256"
	default:
		return "uint256"
	}
}

func astTypeToMir(vt *ast.VariableType) MirType {
	if vt == nil {
		return U256()
	}
	switch vt.Name.Value {
	case "Address":
		return Address()
	case "Bool":
		return Bool()
	case "U8":
		return Uint(8)
	case "U16":
		return Uint(16)
	case "U32":
		return Uint(32)
	case "U64":
		return Uint(64)
	case "U128":
		return Uint(128)
	case "U256":
		return Uint(256)
	default:
		return Word()
	}
}

// FunctionSelector computes `name(type1,type2,...)` for selector/keccak hashing.
func FunctionSelector(astFn *ast.Function) string {
	var params []string
	for _, p := range astFn.Params {
		params = append(params, abiTypeName(p.Type))
	}
	return astFn.Name.Value + "(" + strings.Join(params, ",") + ")"
}

// --- function lowering ---

func (b *Builder) buildFunction(astFn *ast.Function) *Function {
	fn := NewFunction(astFn.Name.Value)
	vis := VisInternal
	if astFn.External {
		vis = VisExternal
	}
	fn.Attrs = FunctionAttrs{
		Visibility:  vis,
		Constructor: astFn.Attribute != nil && astFn.Attribute.Name == "create",
	}
	if astFn.Return != nil {
		fn.RetTypes = []MirType{astTypeToMir(astFn.Return)}
	}

	b.fn = fn
	b.current = map[string]ValueId{}
	b.storageAddrs = map[string]ValueId{}
	b.storageLoads = map[string]ValueId{}
	b.senderCache = nil

	entry := fn.NewBlock("entry")
	fn.Entry = entry.ID
	b.block = entry

	for i, p := range astFn.Params {
		ty := astTypeToMir(p.Type)
		vid := fn.NewValueID()
		fn.AddValue(NewArgument(vid, i, p.Name.Value, ty))
		fn.Params = append(fn.Params, Parameter{Name: p.Name.Value, Ty: ty, Value: vid})
		b.current[p.Name.Value] = vid
	}

	if astFn.Body != nil {
		b.buildBlockBody(astFn.Body)
	}
	if b.block.Terminator == nil {
		b.block.Terminator = &Terminator{Kind: TReturn}
	}

	return fn
}

func (b *Builder) buildBlockBody(blk *ast.FunctionBlock) {
	for _, item := range blk.Items {
		if b.block.Terminator != nil {
			break // unreachable tail after require's revert-path never rejoins here
		}
		b.buildStmt(item)
	}
	if b.block.Terminator != nil {
		return
	}
	if blk.TailExpr != nil {
		v := b.buildExpr(blk.TailExpr.Expr)
		b.block.Terminator = &Terminator{Kind: TReturn, ReturnValues: valueList(v)}
		return
	}
	b.block.Terminator = &Terminator{Kind: TReturn}
}

func valueList(v ValueId) []ValueId {
	if v == InvalidID {
		return nil
	}
	return []ValueId{v}
}

func (b *Builder) buildStmt(item ast.FunctionBlockItem) {
	switch s := item.(type) {
	case *ast.LetStmt:
		if s.Expr == nil {
			ty := astTypeToMir(s.Type)
			b.current[s.Name.Value] = b.emitConst(big.NewInt(0), ty)
		} else {
			b.current[s.Name.Value] = b.buildExpr(s.Expr)
		}
	case *ast.AssignStmt:
		b.buildAssign(s)
	case *ast.ExprStmt:
		b.buildExpr(s.Expr)
	case *ast.RequireStmt:
		b.buildRequire(s)
	case *ast.IfStmt:
		b.buildIfStmt(s)
	case *ast.ReturnStmt:
		var v ValueId = InvalidID
		if s.Value != nil {
			v = b.buildExpr(s.Value)
		}
		b.block.Terminator = &Terminator{Kind: TReturn, ReturnValues: valueList(v)}
	}
}

func (b *Builder) buildAssign(s *ast.AssignStmt) {
	rhs := b.buildExpr(s.Value)
	if s.Operator != ast.ASSIGN {
		var cur ValueId
		var ty MirType
		switch left := s.Target.(type) {
		case *ast.IdentExpr:
			cur = b.current[left.Name]
			ty = b.fn.Value(cur).Ty
		case *ast.FieldAccessExpr:
			cur = b.buildStorageLoad(left.Field)
			ty = b.fn.Value(cur).Ty
		case *ast.IndexExpr:
			cur = b.buildKeyedLoad(left)
			ty = b.fn.Value(cur).Ty
		}
		op := compoundOpKind(s.Operator)
		rhs = b.emitBinary(op, cur, rhs, ty)
	}
	switch left := s.Target.(type) {
	case *ast.IdentExpr:
		b.current[left.Name] = rhs
	case *ast.FieldAccessExpr:
		b.buildStorageStore(left.Field, rhs)
	case *ast.IndexExpr:
		b.buildKeyedStore(left, rhs)
	}
}

func compoundOpKind(op ast.AssignType) InstKind {
	switch op {
	case ast.PLUS_ASSIGN:
		return KAdd
	case ast.MINUS_ASSIGN:
		return KSub
	case ast.STAR_ASSIGN:
		return KMul
	default:
		return KAdd
	}
}

func (b *Builder) buildRequire(s *ast.RequireStmt) {
	var cond ValueId
	if len(s.Args) >= 1 {
		cond = b.buildExpr(s.Args[0])
	}
	success := b.fn.NewBlock("require_ok")
	revert := b.fn.NewBlock("require_fail")

	b.linkEdge(b.block, success)
	b.linkEdge(b.block, revert)
	b.block.Terminator = &Terminator{Kind: TBranch, Cond: cond, Then: success.ID, Else: revert.ID}

	revert.Terminator = &Terminator{Kind: TRevert}

	b.block = success
}

func (b *Builder) linkEdge(from, to *BasicBlock) {
	from.Successors = append(from.Successors, to.ID)
	to.Predecessors = append(to.Predecessors, from.ID)
}

func cloneVars(m map[string]ValueId) map[string]ValueId {
	out := make(map[string]ValueId, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// buildIfStmt lowers a source if/else into a branch over two fresh blocks
// that rejoin at a phi block, unless a branch ends in its own terminator
// (a nested require/return/revert), in which case that side contributes no
// join edge. Reassigned locals that disagree across both live branches get
// a phi in the join block, mirroring the && / || short-circuit lowering.
func (b *Builder) buildIfStmt(s *ast.IfStmt) {
	cond := b.buildExpr(s.Condition)
	startBlock := b.block
	beforeVars := cloneVars(b.current)

	thenBlock := b.fn.NewBlock("if_then")
	elseBlock := b.fn.NewBlock("if_else")
	b.linkEdge(startBlock, thenBlock)
	b.linkEdge(startBlock, elseBlock)
	startBlock.Terminator = &Terminator{Kind: TBranch, Cond: cond, Then: thenBlock.ID, Else: elseBlock.ID}

	b.block = thenBlock
	b.current = cloneVars(beforeVars)
	b.buildBlockBody(&s.ThenBlock)
	thenEnd := b.block
	thenVars := b.current
	thenOpen := thenEnd.Terminator == nil

	b.block = elseBlock
	b.current = cloneVars(beforeVars)
	if s.ElseBlock != nil {
		b.buildBlockBody(s.ElseBlock)
	}
	elseEnd := b.block
	elseVars := b.current
	elseOpen := elseEnd.Terminator == nil

	// A store on either side may have changed a field this builder's cache
	// still thinks holds the pre-branch value; drop the whole cache rather
	// than track per-field liveness across the diamond.
	b.storageLoads = map[string]ValueId{}

	if !thenOpen && !elseOpen {
		b.block = elseEnd
		b.current = elseVars
		return
	}

	join := b.fn.NewBlock("if_join")
	if thenOpen {
		b.linkEdge(thenEnd, join)
		thenEnd.Terminator = &Terminator{Kind: TJump, Target: join.ID}
	}
	if elseOpen {
		b.linkEdge(elseEnd, join)
		elseEnd.Terminator = &Terminator{Kind: TJump, Target: join.ID}
	}

	merged := map[string]ValueId{}
	seen := map[string]bool{}
	for name := range thenVars {
		seen[name] = true
	}
	for name := range elseVars {
		seen[name] = true
	}
	for name := range seen {
		tv, tok := thenVars[name]
		ev, eok := elseVars[name]
		switch {
		case thenOpen && elseOpen && tok && eok:
			if tv == ev {
				merged[name] = tv
				continue
			}
			ty := b.fn.Value(tv).Ty
			phiID := b.fn.NewInstID()
			resID := b.fn.NewValueID()
			b.fn.AddValue(NewPhiValue(resID, phiID, ty))
			inst := &Instruction{ID: phiID, Kind: KPhi, Block: join.ID, Result: resID, ResultTy: ty,
				Incoming: []PhiIncoming{{Pred: thenEnd.ID, Value: tv}, {Pred: elseEnd.ID, Value: ev}}}
			b.fn.AddInstruction(inst)
			join.Instructions = append(join.Instructions, phiID)
			merged[name] = resID
		case thenOpen && tok:
			merged[name] = tv
		case elseOpen && eok:
			merged[name] = ev
		}
	}

	b.block = join
	b.current = merged
}

// --- expressions ---

func (b *Builder) buildExpr(expr ast.Expr) ValueId {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		return b.buildLiteral(e)
	case *ast.IdentExpr:
		if v, ok := b.current[e.Name]; ok {
			return v
		}
		return b.buildStorageLoad(e.Name)
	case *ast.ParenExpr:
		return b.buildExpr(e.Value)
	case *ast.BinaryExpr:
		return b.buildBinaryExpr(e)
	case *ast.UnaryExpr:
		return b.buildUnaryExpr(e)
	case *ast.FieldAccessExpr:
		return b.buildStorageLoad(e.Field)
	case *ast.IndexExpr:
		return b.buildKeyedLoad(e)
	case *ast.CallExpr:
		return b.buildCallExpr(e)
	case *ast.TupleExpr:
		if len(e.Elements) > 0 {
			return b.buildExpr(e.Elements[0])
		}
		return InvalidID
	default:
		return b.emitConst(big.NewInt(0), U256())
	}
}

func (b *Builder) buildLiteral(e *ast.LiteralExpr) ValueId {
	if e.Value == "true" || e.Value == "false" {
		id := b.fn.NewValueID()
		b.fn.AddValue(NewImmediateBool(id, e.Value == "true"))
		return id
	}
	n := new(big.Int)
	s := e.Value
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n.SetString(s[2:], 16)
	} else if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		n.SetInt64(v)
	} else {
		n.SetString(s, 10)
	}
	return b.emitConst(n, U256())
}

func (b *Builder) emitConst(n *big.Int, ty MirType) ValueId {
	id := b.fn.NewValueID()
	b.fn.AddValue(NewImmediateU256(id, n, ty))
	return id
}

var binOpKind = map[string]InstKind{
	"+": KAdd, "-": KSub, "*": KMul, "/": KDiv, "%": KMod,
	"&": KAnd, "|": KOr, "^": KXor,
	"<": KLt, ">": KGt, "==": KEq,
}

func (b *Builder) buildBinaryExpr(e *ast.BinaryExpr) ValueId {
	// Short-circuit && / || expand into a branch+phi join rather than a
	// strict instruction so unevaluated operands are never side-effected.
	if e.Op == "&&" || e.Op == "||" {
		return b.buildShortCircuit(e)
	}
	left := b.buildExpr(e.Left)
	right := b.buildExpr(e.Right)
	ty := b.fn.Value(left).Ty
	switch e.Op {
	case "!=":
		eq := b.emitBinary(KEq, left, right, Bool())
		return b.emitUnary(KIsZero, eq, Bool())
	case "<=":
		gt := b.emitBinary(KGt, left, right, Bool())
		return b.emitUnary(KIsZero, gt, Bool())
	case ">=":
		lt := b.emitBinary(KLt, left, right, Bool())
		return b.emitUnary(KIsZero, lt, Bool())
	}
	kind, ok := binOpKind[e.Op]
	if !ok {
		kind = KAdd
	}
	resTy := ty
	if kind == KLt || kind == KGt || kind == KEq {
		resTy = Bool()
	}
	return b.emitBinary(kind, left, right, resTy)
}

// buildShortCircuit lowers `a && b` / `a || b` into a two-way branch that
// joins through a phi, so that `b` is only evaluated on the live path --
// mirrors how ternaries and boolean short-circuiting expand in the spec's
// MIR lowering (§4.1).
func (b *Builder) buildShortCircuit(e *ast.BinaryExpr) ValueId {
	left := b.buildExpr(e.Left)
	startBlock := b.block

	rhsBlock := b.fn.NewBlock("sc_rhs")
	joinBlock := b.fn.NewBlock("sc_join")

	var thenB, elseB BlockId
	if e.Op == "&&" {
		thenB, elseB = rhsBlock.ID, joinBlock.ID
	} else {
		thenB, elseB = joinBlock.ID, rhsBlock.ID
	}
	b.linkEdge(startBlock, rhsBlock)
	b.linkEdge(startBlock, joinBlock)
	startBlock.Terminator = &Terminator{Kind: TBranch, Cond: left, Then: thenB, Else: elseB}

	b.block = rhsBlock
	right := b.buildExpr(e.Right)
	b.linkEdge(rhsBlock, joinBlock)
	rhsBlock.Terminator = &Terminator{Kind: TJump, Target: joinBlock.ID}

	b.block = joinBlock
	phiID := b.fn.NewInstID()
	resID := b.fn.NewValueID()
	b.fn.AddValue(NewPhiValue(resID, phiID, Bool()))
	inst := &Instruction{ID: phiID, Kind: KPhi, Block: joinBlock.ID, Result: resID, ResultTy: Bool(),
		Incoming: []PhiIncoming{{Pred: startBlock.ID, Value: left}, {Pred: rhsBlock.ID, Value: right}}}
	b.fn.AddInstruction(inst)
	joinBlock.Instructions = append(joinBlock.Instructions, phiID)
	return resID
}

func (b *Builder) buildUnaryExpr(e *ast.UnaryExpr) ValueId {
	v := b.buildExpr(e.Value)
	ty := b.fn.Value(v).Ty
	switch e.Op {
	case "!":
		return b.emitUnary(KIsZero, v, Bool())
	case "-":
		zero := b.emitConst(big.NewInt(0), ty)
		return b.emitBinary(KSub, zero, v, ty)
	default:
		return v
	}
}

// environmentBuiltins maps the zero-argument Kanso environment accessors to
// the EVM opcode that reads them, all of which the code generator already
// lowers via fixedArity (internal/codegen/emitter.go).
var environmentBuiltins = map[string]struct {
	kind InstKind
	ty   func() MirType
}{
	"timestamp": {KTimestamp, U256},
	"number":    {KNumber, U256},
	"origin":    {KOrigin, Address},
	"value":     {KCallValue, U256},
	"gasleft":   {KGas, U256},
	"chainid":   {KChainId, U256},
	"coinbase":  {KCoinbase, Address},
}

func (b *Builder) buildCallExpr(e *ast.CallExpr) ValueId {
	name := calleeName(e.Callee)
	switch {
	case name == "sender":
		return b.cachedSender()
	case name == "emit":
		b.buildEmit(e)
		return InvalidID
	case name == "keccak256":
		return b.buildKeccak256Call(e)
	default:
		if builtin, ok := environmentBuiltins[name]; ok {
			return b.emitEnv(builtin.kind, builtin.ty())
		}
		return b.buildUnsupportedCall(e, name)
	}
}

// emitEnv lowers a zero-argument environment accessor straight to its EVM
// opcode, the same shape cachedSender uses for CALLER.
func (b *Builder) emitEnv(kind InstKind, ty MirType) ValueId {
	id := b.fn.NewInstID()
	resID := b.fn.NewValueID()
	b.fn.AddValue(NewInstResult(resID, id, ty))
	inst := &Instruction{ID: id, Kind: kind, Block: b.block.ID, Result: resID, ResultTy: ty}
	b.fn.AddInstruction(inst)
	b.block.AddInst(id)
	return resID
}

// buildKeccak256Call lowers a user keccak256(...) call to the same
// KKeccak256 shape keyedAddr already uses for mapping-slot addressing: one
// instruction over a conceptual two-value pair, a single argument paired
// with a zero so the instruction shape stays uniform.
func (b *Builder) buildKeccak256Call(e *ast.CallExpr) ValueId {
	var args []ValueId
	for _, a := range e.Args {
		args = append(args, b.buildExpr(a))
	}
	switch len(args) {
	case 1:
		args = append(args, b.emitConst(big.NewInt(0), U256()))
	case 2:
		// already the shape KKeccak256 expects
	default:
		return b.buildUnsupportedCall(e, "keccak256")
	}
	id := b.fn.NewInstID()
	resID := b.fn.NewValueID()
	b.fn.AddValue(NewInstResult(resID, id, U256()))
	inst := &Instruction{ID: id, Kind: KKeccak256, Block: b.block.ID, Result: resID, ResultTy: U256(), Operands: args}
	b.fn.AddInstruction(inst)
	b.block.AddInst(id)
	return resID
}

// buildUnsupportedCall records a §7 user-error diagnostic for a call this
// lowering pass cannot compile -- today that means any call to another
// Kanso function, since there is no call-graph inlining pass yet (see
// DESIGN.md). It still evaluates the arguments (for any side effects they
// themselves have) and still produces a placeholder value so the function
// stays well-formed MIR; the diagnostic is what stops this contract from
// reaching codegen; it must not be mistaken for a real compiled result.
func (b *Builder) buildUnsupportedCall(e *ast.CallExpr, name string) ValueId {
	for _, a := range e.Args {
		b.buildExpr(a)
	}
	b.diagnostics = append(b.diagnostics, errors.NewSemanticError(
		errors.ErrorUnsupportedCall,
		fmt.Sprintf("call to %q cannot be lowered: this compiler does not yet inline calls to other Kanso functions", name),
		e.Pos,
	).Build())
	id := b.fn.NewInstID()
	resID := b.fn.NewValueID()
	b.fn.AddValue(NewInstResult(resID, id, U256()))
	inst := &Instruction{ID: id, Kind: KConst, Block: b.block.ID, Result: resID, ResultTy: U256()}
	b.fn.AddInstruction(inst)
	b.block.AddInst(id)
	return resID
}

func calleeName(e ast.Expr) string {
	switch c := e.(type) {
	case *ast.IdentExpr:
		return c.Name
	case *ast.CalleePath:
		if len(c.Parts) > 0 {
			return c.Parts[len(c.Parts)-1].Value
		}
	}
	return ""
}

func (b *Builder) cachedSender() ValueId {
	if b.senderCache != nil {
		return *b.senderCache
	}
	id := b.fn.NewInstID()
	resID := b.fn.NewValueID()
	b.fn.AddValue(NewInstResult(resID, id, Address()))
	inst := &Instruction{ID: id, Kind: KCaller, Block: b.block.ID, Result: resID, ResultTy: Address()}
	b.fn.AddInstruction(inst)
	b.block.AddInst(id)
	b.senderCache = &resID
	return resID
}

func (b *Builder) buildEmit(e *ast.CallExpr) {
	if len(e.Args) == 0 {
		return
	}
	lit, ok := e.Args[0].(*ast.StructLiteralExpr)
	if !ok {
		return
	}
	var topics []ValueId
	for _, f := range lit.Fields {
		topics = append(topics, b.buildExpr(f.Value))
	}
	id := b.fn.NewInstID()
	topicsArg := 0
	if len(topics) > 4 {
		topicsArg = 4
	} else {
		topicsArg = len(topics)
	}
	kind := []InstKind{KLog0, KLog1, KLog2, KLog3, KLog4}[topicsArg]
	inst := &Instruction{ID: id, Kind: kind, Block: b.block.ID, Result: InvalidID, Operands: topics}
	b.fn.AddInstruction(inst)
	b.block.AddInst(id)
}

// --- storage access ---

func (b *Builder) storageSlot(field string) (int, bool) {
	s, ok := b.storageSlots[field]
	return s, ok
}

func (b *Builder) buildStorageLoad(field string) ValueId {
	if cached, ok := b.storageLoads[field]; ok {
		return cached
	}
	slot, _ := b.storageSlot(field)
	ty := b.storageTypes[field]
	addr := b.storageAddrConst(field, slot)
	id := b.fn.NewInstID()
	resID := b.fn.NewValueID()
	b.fn.AddValue(NewInstResult(resID, id, ty))
	inst := &Instruction{ID: id, Kind: KSLoad, Block: b.block.ID, Result: resID, ResultTy: ty, Operands: []ValueId{addr}}
	b.fn.AddInstruction(inst)
	b.block.AddInst(id)
	b.storageLoads[field] = resID
	return resID
}

func (b *Builder) buildStorageStore(field string, val ValueId) {
	slot, _ := b.storageSlot(field)
	addr := b.storageAddrConst(field, slot)
	id := b.fn.NewInstID()
	inst := &Instruction{ID: id, Kind: KSStore, Block: b.block.ID, Result: InvalidID, Operands: []ValueId{addr, val}}
	b.fn.AddInstruction(inst)
	b.block.AddInst(id)
	delete(b.storageLoads, field) // a store invalidates the per-block load cache (§4.4.2)
}

func (b *Builder) storageAddrConst(field string, slot int) ValueId {
	if v, ok := b.storageAddrs[field]; ok {
		return v
	}
	v := b.emitConst(big.NewInt(int64(slot)), U256())
	b.storageAddrs[field] = v
	return v
}

// buildKeyedLoad/Store address a Slots<K,V> mapping slot via
// keccak256(key . baseSlot), matching the Solidity mapping-slot convention.
func (b *Builder) buildKeyedLoad(e *ast.IndexExpr) ValueId {
	field, ok := e.Target.(*ast.FieldAccessExpr)
	if !ok {
		return b.emitConst(big.NewInt(0), U256())
	}
	slot, _ := b.storageSlot(field.Field)
	key := b.buildExpr(e.Index)
	addr := b.keyedAddr(key, slot)
	ty := b.storageTypes[field.Field]
	id := b.fn.NewInstID()
	resID := b.fn.NewValueID()
	b.fn.AddValue(NewInstResult(resID, id, ty))
	inst := &Instruction{ID: id, Kind: KSLoad, Block: b.block.ID, Result: resID, ResultTy: ty, Operands: []ValueId{addr}}
	b.fn.AddInstruction(inst)
	b.block.AddInst(id)
	return resID
}

func (b *Builder) buildKeyedStore(e *ast.IndexExpr, val ValueId) {
	field, ok := e.Target.(*ast.FieldAccessExpr)
	if !ok {
		return
	}
	slot, _ := b.storageSlot(field.Field)
	key := b.buildExpr(e.Index)
	addr := b.keyedAddr(key, slot)
	id := b.fn.NewInstID()
	inst := &Instruction{ID: id, Kind: KSStore, Block: b.block.ID, Result: InvalidID, Operands: []ValueId{addr, val}}
	b.fn.AddInstruction(inst)
	b.block.AddInst(id)
}

// keyedAddr lowers to MSTORE(key . slot into scratch) ; KECCAK256(scratch, 64)
// conceptually; this MIR keeps it as a single Keccak256 over a synthetic
// [key, slot] pair since concrete scratch-memory layout is a codegen concern.
func (b *Builder) keyedAddr(key ValueId, slot int) ValueId {
	slotVal := b.emitConst(big.NewInt(int64(slot)), U256())
	id := b.fn.NewInstID()
	resID := b.fn.NewValueID()
	b.fn.AddValue(NewInstResult(resID, id, U256()))
	inst := &Instruction{ID: id, Kind: KKeccak256, Block: b.block.ID, Result: resID, ResultTy: U256(), Operands: []ValueId{key, slotVal}}
	b.fn.AddInstruction(inst)
	b.block.AddInst(id)
	return resID
}

// --- instruction emission helpers ---

func (b *Builder) emitBinary(kind InstKind, left, right ValueId, ty MirType) ValueId {
	id := b.fn.NewInstID()
	resID := b.fn.NewValueID()
	b.fn.AddValue(NewInstResult(resID, id, ty))
	inst := &Instruction{ID: id, Kind: kind, Block: b.block.ID, Result: resID, ResultTy: ty, Operands: []ValueId{left, right}}
	b.fn.AddInstruction(inst)
	b.block.AddInst(id)
	return resID
}

func (b *Builder) emitUnary(kind InstKind, v ValueId, ty MirType) ValueId {
	id := b.fn.NewInstID()
	resID := b.fn.NewValueID()
	b.fn.AddValue(NewInstResult(resID, id, ty))
	inst := &Instruction{ID: id, Kind: kind, Block: b.block.ID, Result: resID, ResultTy: ty, Operands: []ValueId{v}}
	b.fn.AddInstruction(inst)
	b.block.AddInst(id)
	return resID
}
