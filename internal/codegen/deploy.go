package codegen

import "evmc/internal/mir"

// prepareConstructorForDeploy rewrites a constructor's MIR so every normal
// exit (a bare STOP, or a RETURN with no values -- Kanso constructors don't
// return a value) instead jumps to a freshly appended trailer block, and
// returns that block's ID. This keeps "what happens after the constructor
// body finishes" at the MIR level, where control flow belongs, rather than
// scanning emitted bytecode for where to splice in the runtime-code copy.
func prepareConstructorForDeploy(fn *mir.Function) mir.BlockId {
	trailer := fn.NewBlock("deploy_trailer")
	trailer.Terminator = &mir.Terminator{Kind: mir.TStop}

	for _, b := range fn.Blocks {
		if b.ID == trailer.ID || b.IsInvalid() {
			continue
		}
		t := b.Terminator
		if t == nil {
			continue
		}
		isBareExit := t.Kind == mir.TStop || (t.Kind == mir.TReturn && len(t.ReturnValues) == 0)
		if !isBareExit {
			continue
		}
		b.Terminator = &mir.Terminator{Kind: mir.TJump, Target: trailer.ID}
		b.Successors = append(b.Successors, trailer.ID)
		trailer.Predecessors = append(trailer.Predecessors, b.ID)
	}
	return trailer.ID
}

// emitRuntimeCopyTrailer emits the boilerplate every deploy sequence ends
// with: copy runtimeLen bytes from the tail of the currently executing
// (init) code to memory offset 0, and return them. The CODECOPY's code
// offset is a placeholder patched in by buildDeployCode once the whole
// init code's length -- which is exactly where the runtime code begins --
// is known.
func emitRuntimeCopyTrailer(e *funcEmitter, runtimeLen int) {
	e.emitUintOffset(runtimeLen) // size
	e.codeOffsetPatchPos = len(e.code) + 1
	e.emitUintOffset(0) // codeOffset placeholder
	e.emitUintOffset(0) // destOffset
	e.emitOp(OpCodeCopy)
	e.emitUintOffset(runtimeLen)
	e.emitUintOffset(0)
	e.emitOp(OpReturn)
}

// buildDeployCode assembles the full init code: the constructor's body (if
// any), rewired to fall into the runtime-code copy trailer instead of
// halting, followed by the runtime code itself.
func buildDeployCode(constructor *mir.Function, runtime []byte) ([]byte, error) {
	var body funcBody
	if constructor != nil {
		trailerID := prepareConstructorForDeploy(constructor)
		body = emitFunction(constructor, emitOptions{
			decodeArgsFrom: 0,
			trailerBlock:   trailerID,
			trailer:        func(e *funcEmitter) { emitRuntimeCopyTrailer(e, len(runtime)) },
		})
	} else {
		e := &funcEmitter{blockOffsets: map[mir.BlockId]int{}, codeOffsetPatchPos: -1}
		emitRuntimeCopyTrailer(e, len(runtime))
		body = funcBody{code: e.code, relocs: e.relocs, codeOffsetPatchPos: e.codeOffsetPatchPos}
	}

	runtimeOffset := len(body.code)
	deploy := make([]byte, runtimeOffset+len(runtime))
	copy(deploy, body.code)

	for _, r := range body.relocs {
		final := body.blockOffsets[r.target]
		deploy[r.pos] = byte(final >> 8)
		deploy[r.pos+1] = byte(final)
	}
	if body.codeOffsetPatchPos >= 0 {
		deploy[body.codeOffsetPatchPos] = byte(runtimeOffset >> 8)
		deploy[body.codeOffsetPatchPos+1] = byte(runtimeOffset)
	}

	copy(deploy[runtimeOffset:], runtime)
	return deploy, nil
}
