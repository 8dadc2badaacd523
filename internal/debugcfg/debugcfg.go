// Package debugcfg renders a MIR function's control-flow graph as
// Graphviz DOT text, the "optional DOT-format CFG dump for each function"
// spec.md §6 lists as part of the bytecode interface's per-unit output.
// It is a pure text emitter: no rendering, no external process, just the
// DOT format itself.
package debugcfg

import (
	"fmt"
	"strings"

	"evmc/internal/analysis"
	"evmc/internal/mir"
)

// DOT renders fn's reachable blocks as a Graphviz digraph. loops may be nil;
// when supplied, loop headers are filled lightblue so nesting is visible at
// a glance without re-running the analysis by eye.
func DOT(fn *mir.Function, loops *analysis.LoopInfo) string {
	var b strings.Builder

	fmt.Fprintf(&b, "digraph %s {\n", dotID(fn.Name))
	b.WriteString("  node [shape=box, fontname=\"monospace\", fontsize=10];\n")

	blocks := fn.ReachableBlocks()
	for _, block := range blocks {
		writeNode(&b, fn, block, loops)
	}
	for _, block := range blocks {
		writeEdges(&b, fn, block)
	}

	b.WriteString("}\n")
	return b.String()
}

func writeNode(b *strings.Builder, fn *mir.Function, block *mir.BasicBlock, loops *analysis.LoopInfo) {
	var body strings.Builder
	fmt.Fprintf(&body, "%s:\\l", blockName(block))

	for _, instID := range block.Instructions {
		inst := fn.Instruction(instID)
		if inst == nil {
			continue
		}
		body.WriteString(instLine(fn, inst))
		body.WriteString("\\l")
	}
	if block.Terminator != nil {
		body.WriteString(termLine(fn, block.Terminator))
		body.WriteString("\\l")
	}

	attrs := fmt.Sprintf("label=\"%s\"", escape(body.String()))
	if loops != nil {
		if l := loops.LoopFor(block.ID); l != nil && l.Header == block.ID {
			attrs += ", style=filled, fillcolor=lightblue"
		} else if loops.IsInLoop(block.ID) {
			attrs += ", style=filled, fillcolor=\"#eef6ff\""
		}
	}

	fmt.Fprintf(b, "  %s [%s];\n", blockName(block), attrs)
}

func writeEdges(b *strings.Builder, fn *mir.Function, block *mir.BasicBlock) {
	if block.Terminator == nil {
		return
	}
	for i, succID := range block.Terminator.Successors() {
		succ := fn.Block(succID)
		if succ == nil {
			continue
		}
		label := edgeLabel(block.Terminator, i)
		if label != "" {
			fmt.Fprintf(b, "  %s -> %s [label=\"%s\"];\n", blockName(block), blockName(succ), label)
		} else {
			fmt.Fprintf(b, "  %s -> %s;\n", blockName(block), blockName(succ))
		}
	}
}

func edgeLabel(t *mir.Terminator, successorIndex int) string {
	if t.Kind == mir.TBranch {
		if successorIndex == 0 {
			return "true"
		}
		return "false"
	}
	if t.Kind == mir.TSwitch {
		if successorIndex < len(t.Cases) {
			return fmt.Sprintf("case%d", successorIndex)
		}
		return "default"
	}
	return ""
}

func instLine(fn *mir.Function, inst *mir.Instruction) string {
	operands := make([]string, len(inst.Operands))
	for i, op := range inst.Operands {
		operands[i] = valueRef(fn, op)
	}
	rhs := fmt.Sprintf("%s(%s)", inst.Kind.Mnemonic(), strings.Join(operands, ", "))
	if inst.HasResult() {
		return fmt.Sprintf("%s = %s", valueRef(fn, inst.Result), rhs)
	}
	return rhs
}

func termLine(fn *mir.Function, t *mir.Terminator) string {
	refs := make([]string, 0, 4)
	for _, v := range terminatorOperands(t) {
		refs = append(refs, valueRef(fn, v))
	}
	if len(refs) == 0 {
		return t.Mnemonic()
	}
	return fmt.Sprintf("%s %s", t.Mnemonic(), strings.Join(refs, ", "))
}

func terminatorOperands(t *mir.Terminator) []mir.ValueId {
	switch t.Kind {
	case mir.TBranch:
		return []mir.ValueId{t.Cond}
	case mir.TSwitch:
		return []mir.ValueId{t.SwitchValue}
	case mir.TReturn:
		return t.ReturnValues
	case mir.TRevert:
		return []mir.ValueId{t.RevertOffset, t.RevertSize}
	case mir.TSelfDestruct:
		return []mir.ValueId{t.Recipient}
	default:
		return nil
	}
}

func valueRef(fn *mir.Function, id mir.ValueId) string {
	v := fn.Value(id)
	if v == nil {
		return "?"
	}
	return v.String()
}

func blockName(b *mir.BasicBlock) string {
	if b.Label != "" {
		return fmt.Sprintf("%s_%s", dotID(b.Label), blockIDSuffix(b.ID))
	}
	return fmt.Sprintf("block%s", blockIDSuffix(b.ID))
}

func blockIDSuffix(id mir.BlockId) string {
	return fmt.Sprintf("%d", int(id))
}

func dotID(name string) string {
	if name == "" {
		return "fn"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
