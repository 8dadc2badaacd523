// Package transform implements the MIR-to-MIR optimization passes of
// spec §4.4: constant folding, common subexpression elimination, dead code
// elimination, jump threading, CFG simplification, loop optimization, and
// phi elimination. Every pass takes and returns the same *mir.Function,
// mutating it in place and reporting whether it changed anything.
package transform

import (
	"github.com/tliron/commonlog"

	"evmc/internal/errors"
	"evmc/internal/mir"
)

var log = commonlog.GetLogger("evmc.transform")

// Pass is one optimization transformation. Apply returns true if it
// changed the function, mirroring the run-to-fixpoint pattern the pipeline
// uses to decide whether another round is worthwhile.
type Pass interface {
	Name() string
	Description() string
	Apply(fn *mir.Function) bool
}

// Pipeline runs a fixed sequence of passes, optionally iterating the whole
// sequence until none of them report a change (constant folding can expose
// new dead code, DCE can expose new CSE opportunities, and so on).
// DiagnosticPass is a Pass that can reject the program outright instead of
// only rewriting it -- constant folding needs this to surface the
// arithmetic-overflow and division-by-zero errors spec.md §4.4.1 requires,
// rather than silently emitting wrapped or zeroed bytecode.
type DiagnosticPass interface {
	Pass
	Diagnostics() []errors.CompilerError
}

type Pipeline struct {
	passes      []Pass
	verbose     bool
	diagnostics []errors.CompilerError
}

// NewPipeline builds the default pass sequence for the core optimizer:
// folding and algebraic simplification first (cheapest, unlocks the most
// downstream opportunity), then redundancy and dead-code elimination,
// then control-flow shaping, then loop optimization, with phi elimination
// always last since it is a lowering step rather than an optimization
// (its output is no longer valid SSA).
func NewPipeline() *Pipeline {
	p := &Pipeline{}
	p.Add(&ConstantFold{})
	p.Add(&CSE{})
	p.Add(&DCE{})
	p.Add(&JumpThreading{})
	p.Add(&CFGSimplify{})
	p.Add(&LoopOptimize{})
	return p
}

func (p *Pipeline) Add(pass Pass) { p.passes = append(p.passes, pass) }

// OptLevel selects how much of the pass ladder the CLI's --opt flag runs.
// Each level is a strict superset of the one below it, so raising the
// level can only uncover more rewrites, never undo one a lower level made.
type OptLevel int

const (
	OptNone       OptLevel = iota // O0: no MIR-to-MIR passes at all
	OptBasic                      // O1: constant folding + dead code elimination
	OptStandard                   // O2: O1 + CSE + jump threading + CFG simplification
	OptAggressive                 // O3: O2 + loop-invariant code motion
)

// NewPipelineForLevel builds the pass sequence the §4.4 optimizer ladder
// prescribes for level: O0 runs nothing (useful for isolating a codegen bug
// from an optimizer one), and each higher level adds the next tier's passes
// on top of the previous one's.
func NewPipelineForLevel(level OptLevel) *Pipeline {
	p := &Pipeline{}
	if level >= OptBasic {
		p.Add(&ConstantFold{})
		p.Add(&DCE{})
	}
	if level >= OptStandard {
		p.Add(&CSE{})
		p.Add(&JumpThreading{})
		p.Add(&CFGSimplify{})
	}
	if level >= OptAggressive {
		p.Add(&LoopOptimize{})
	}
	return p
}

// SetVerbose toggles per-pass logging, off by default so running the
// optimizer over a whole contract doesn't flood stdout.
func (p *Pipeline) SetVerbose(v bool) { p.verbose = v }

// Run applies every pass once, in order, and returns whether any pass
// changed the function. Diagnostics from this round's DiagnosticPasses
// replace whatever the previous round collected, since RunToFixpoint calls
// Run repeatedly and an error a pass keeps finding (it left the offending
// instruction untouched on purpose) would otherwise be reported once per
// round instead of once overall.
func (p *Pipeline) Run(fn *mir.Function) bool {
	changed := false
	p.diagnostics = nil
	for _, pass := range p.passes {
		if pass.Apply(fn) {
			changed = true
			if p.verbose {
				log.Debugf("%s changed %s", pass.Name(), fn.Name)
			}
		}
		if dp, ok := pass.(DiagnosticPass); ok {
			p.diagnostics = append(p.diagnostics, dp.Diagnostics()...)
		}
	}
	return changed
}

// Diagnostics returns the compile errors found by the most recent Run (or,
// after RunToFixpoint, the final round -- the round where the pipeline
// stopped changing the function, so any error-causing instruction that was
// left deliberately unfolded is still present and still reported).
func (p *Pipeline) Diagnostics() []errors.CompilerError { return p.diagnostics }

// RunToFixpoint repeatedly runs the full pass sequence until a round makes
// no changes, or maxRounds is hit (a safety valve against a pass pair that
// oscillates instead of converging).
func (p *Pipeline) RunToFixpoint(fn *mir.Function, maxRounds int) int {
	rounds := 0
	for rounds < maxRounds {
		rounds++
		if !p.Run(fn) {
			break
		}
	}
	return rounds
}
