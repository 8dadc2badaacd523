package codegen

import (
	"math/big"
	"strings"

	"evmc/internal/mir"
	"evmc/internal/stack"
)

// CompiledContract is the output of compiling one mir.Module: the runtime
// code a CREATE leaves in storage, the full init code a deploy transaction
// runs, and enough metadata for the CLI's summary report / ABI file.
type CompiledContract struct {
	Runtime   []byte
	Deploy    []byte
	Selectors map[string]uint32
	Metrics   map[string]*stack.Metrics
}

func signature(fn *mir.Function) string {
	var params []string
	for _, p := range fn.Params {
		params = append(params, p.Ty.String())
	}
	return fn.Name + "(" + strings.Join(params, ",") + ")"
}

// placedFunc is one function's body after block-level codegen but before
// its relocations are patched against a final contract-wide offset.
type placedFunc struct {
	fn   *mir.Function
	body funcBody
	base int
}

// CompileModule lowers every function in mod to one assembled contract.
// Only externally-visible functions, the fallback, the receive function and
// the constructor are reachable from the dispatcher or deploy sequence;
// internal/private functions have no call-graph inlining pass yet (see
// DESIGN.md) and are skipped.
func CompileModule(mod *mir.Module) (*CompiledContract, error) {
	var externals []*mir.Function
	var constructor, fallback, receive *mir.Function

	for _, fn := range mod.Functions {
		switch {
		case fn.Attrs.Constructor:
			constructor = fn
		case fn.Attrs.Fallback:
			fallback = fn
		case fn.Attrs.Receive:
			receive = fn
		case fn.Attrs.Visibility == mir.VisExternal:
			externals = append(externals, fn)
		}
	}

	selectors := map[string]uint32{}
	metrics := map[string]*stack.Metrics{}
	placed := make([]placedFunc, 0, len(externals)+2)

	for _, fn := range externals {
		body := emitFunction(fn, emitOptions{decodeArgsFrom: 4, trailerBlock: mir.InvalidID})
		selectors[fn.Name] = Selector4(signature(fn))
		placed = append(placed, placedFunc{fn: fn, body: body})
	}
	fallbackIdx, receiveIdx := -1, -1
	if fallback != nil {
		fallbackIdx = len(placed)
		placed = append(placed, placedFunc{fn: fallback, body: emitFunction(fallback, emitOptions{decodeArgsFrom: -1, trailerBlock: mir.InvalidID})})
	}
	if receive != nil {
		receiveIdx = len(placed)
		placed = append(placed, placedFunc{fn: receive, body: emitFunction(receive, emitOptions{decodeArgsFrom: -1, trailerBlock: mir.InvalidID})})
	}

	dispatcher := buildDispatcher(externals, selectors, fallbackIdx, receiveIdx)

	offset := len(dispatcher.code)
	for i := range placed {
		placed[i].base = offset
		offset += len(placed[i].body.code)
	}

	runtime := make([]byte, offset)
	copy(runtime, dispatcher.code)
	for _, r := range dispatcher.relocs {
		idx := int(r.target)
		target := 0
		if idx >= 0 && idx < len(placed) {
			target = placed[idx].base
		}
		runtime[r.pos] = byte(target >> 8)
		runtime[r.pos+1] = byte(target)
	}
	for _, p := range placed {
		copy(runtime[p.base:], p.body.code)
		for _, r := range p.body.relocs {
			final := p.base + p.body.blockOffsets[r.target]
			pos := p.base + r.pos
			runtime[pos] = byte(final >> 8)
			runtime[pos+1] = byte(final)
		}
		if p.body.metrics != nil {
			metrics[p.fn.Name] = p.body.metrics
		}
	}

	deploy, err := buildDeployCode(constructor, runtime)
	if err != nil {
		return nil, err
	}

	return &CompiledContract{Runtime: runtime, Deploy: deploy, Selectors: selectors, Metrics: metrics}, nil
}

// buildDispatcher assembles the selector-matching preamble: load the
// 4-byte selector out of calldata, compare it against each external
// function in turn, and fall through to the receive function (if present,
// gated on a nonzero call value), the fallback function, or a bare revert.
// Its jump targets are "placed" indices (position in CompileModule's
// placed slice), resolved by the caller once every function's base offset
// is known -- a distinct, smaller index space than mir.BlockId, since the
// dispatcher has no mir.Function of its own to number blocks against.
func buildDispatcher(externals []*mir.Function, selectors map[string]uint32, fallbackIdx, receiveIdx int) funcBody {
	e := &funcEmitter{blockOffsets: map[mir.BlockId]int{}}

	e.emitOp(OpPush0)
	e.emitOp(OpCallDataLoad)
	e.emitImmediate(big.NewInt(224))
	e.emitOp(OpShr)

	for i, fn := range externals {
		e.emitOp(OpDup1)
		e.emitImmediate(new(big.Int).SetUint64(uint64(selectors[fn.Name])))
		e.emitOp(OpEq)
		e.emitJumpTarget(mir.BlockId(i))
		e.emitOp(OpJumpI)
	}

	e.emitOp(OpPop)
	if receiveIdx >= 0 {
		e.emitOp(OpCallValue)
		e.emitJumpTarget(mir.BlockId(receiveIdx))
		e.emitOp(OpJumpI)
	}
	if fallbackIdx >= 0 {
		e.emitJumpTarget(mir.BlockId(fallbackIdx))
		e.emitOp(OpJump)
	} else {
		e.emitOp(OpPush0)
		e.emitOp(OpPush0)
		e.emitOp(OpRevert)
	}

	return funcBody{code: e.code, relocs: e.relocs}
}
