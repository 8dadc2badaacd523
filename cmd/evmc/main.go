// SPDX-License-Identifier: Apache-2.0
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"evmc/internal/analysis"
	"evmc/internal/codegen"
	"evmc/internal/debugcfg"
	"evmc/internal/errors"
	"evmc/internal/mir"
	"evmc/internal/parser"
	"evmc/internal/semantic"
	"evmc/internal/transform"
	"evmc/internal/viewpure"
)

// Options holds the compiler's command-line configuration. Flags are parsed
// with the stdlib flag package, the same library-free approach
// cmd/kanso-cli/main.go uses for its own handful of arguments -- no
// third-party CLI-flags library appears anywhere in the retrieval pack.
type Options struct {
	OptLevel        int
	NoUnroll        bool
	MaxUnrollFactor int
	DumpCFG         bool
	OutPath         string
	Verbose         bool
}

func parseOptions(args []string) (*Options, string) {
	fs := flag.NewFlagSet("evmc", flag.ExitOnError)
	opts := &Options{}
	fs.IntVar(&opts.OptLevel, "opt", 2, "optimization level 0-3 (O0 none .. O3 adds loop-invariant code motion)")
	fs.BoolVar(&opts.NoUnroll, "no-unroll", false, "disable loop unrolling (no-op: this optimizer performs LICM only, see DESIGN.md)")
	fs.IntVar(&opts.MaxUnrollFactor, "max-unroll-factor", 4, "maximum loop unroll factor (no-op, see -no-unroll)")
	fs.BoolVar(&opts.DumpCFG, "dump-cfg", false, "write a Graphviz DOT control-flow graph per function next to the input file")
	fs.StringVar(&opts.OutPath, "out", "", "write the runtime/deploy bytecode report to this file instead of stdout")
	fs.BoolVar(&opts.Verbose, "verbose", false, "log every optimization pass that changes a function")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: evmc [flags] <file.ka>")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	return opts, fs.Arg(0)
}

func main() {
	opts, path := parseOptions(os.Args[1:])
	if opts.Verbose {
		commonlog.Configure(1, nil)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		os.Exit(1)
	}

	contract, parseErrors, scanErrors := parser.ParseSource(path, string(source))
	if len(scanErrors) > 0 || len(parseErrors) > 0 {
		reportSyntaxErrors(string(source), path, scanErrors, parseErrors)
		os.Exit(1)
	}

	analyzer := semantic.NewAnalyzer()
	analyzer.Analyze(contract)
	compilerErrors := append([]errors.CompilerError{}, analyzer.GetErrors()...)
	compilerErrors = append(compilerErrors, viewpure.NewChecker().Check(contract)...)

	if hadErrors := reportCompilerErrors(string(source), path, compilerErrors); hadErrors {
		os.Exit(1)
	}

	result := mir.NewBuilder(semantic.NewContextRegistry()).Build(contract)
	if reportCompilerErrors(string(source), path, result.Diagnostics) {
		os.Exit(1)
	}

	level := transform.OptLevel(opts.OptLevel)
	pipeline := transform.NewPipelineForLevel(level)
	pipeline.SetVerbose(opts.Verbose)
	var foldErrors []errors.CompilerError
	for _, fn := range result.Module.Functions {
		pipeline.RunToFixpoint(fn, 16)
		foldErrors = append(foldErrors, pipeline.Diagnostics()...)
		// Phi elimination is a lowering step, not an optimization: it runs
		// once, after the ladder has converged, never inside RunToFixpoint.
		(transform.PhiElimination{}).Apply(fn)

		if opts.DumpCFG {
			dumpCFG(path, fn)
		}
	}

	// A constant that folds to an overflow or a division by zero is a compile
	// error (spec.md §4.4.1, E1): report it and produce no bytecode at all,
	// rather than let codegen emit whatever the unfolded instruction computes
	// at runtime.
	if reportCompilerErrors(string(source), path, foldErrors) {
		os.Exit(1)
	}

	compiled, err := codegen.CompileModule(result.Module)
	if err != nil {
		color.Red("codegen failed: %s", err)
		os.Exit(1)
	}

	report := formatReport(contract.Name.Value, compiled)
	if opts.OutPath == "" {
		fmt.Print(report)
	} else if err := os.WriteFile(opts.OutPath, []byte(report), 0o644); err != nil {
		color.Red("failed to write %s: %s", opts.OutPath, err)
		os.Exit(1)
	}

	color.Green("✅ compiled %s (%d bytes runtime, %d bytes deploy)", path, len(compiled.Runtime), len(compiled.Deploy))
}

func dumpCFG(sourcePath string, fn *mir.Function) {
	loops := analysis.AnalyzeLoops(fn)
	dot := debugcfg.DOT(fn, loops)
	outPath := fmt.Sprintf("%s.%s.dot", sourcePath, fn.Name)
	if err := os.WriteFile(outPath, []byte(dot), 0o644); err != nil {
		color.Red("failed to write %s: %s", outPath, err)
		return
	}
	color.Cyan("wrote %s", outPath)
}

func formatReport(contractName string, c *codegen.CompiledContract) string {
	var b strings.Builder
	fmt.Fprintf(&b, "contract %s\n", contractName)
	fmt.Fprintf(&b, "runtime: 0x%s\n", hex.EncodeToString(c.Runtime))
	fmt.Fprintf(&b, "deploy:  0x%s\n", hex.EncodeToString(c.Deploy))
	fmt.Fprintln(&b, "selectors:")
	for name, sel := range c.Selectors {
		fmt.Fprintf(&b, "  %-24s 0x%08x\n", name, sel)
	}
	fmt.Fprintln(&b, "stack metrics:")
	for name, m := range c.Metrics {
		fmt.Fprintf(&b, "  %-24s dup=%d swap=%d spill=%d reload=%d est_gas=%d\n",
			name, m.DupCount, m.SwapCount, m.SpillCount, m.ReloadCount, m.EstimatedGas())
	}
	return b.String()
}

// reportSyntaxErrors prints a caret-style message under the offending source
// line for every scan and parse error, the same format
// cmd/kanso-cli/main.go uses.
func reportSyntaxErrors(src, path string, scanErrors []parser.ScanError, parseErrors []parser.ParseError) {
	lines := strings.Split(src, "\n")
	printAt := func(line, column int, message string) {
		color.Red("❌ %s:%d:%d: %s", path, line, column, message)
		if line > 0 && line <= len(lines) {
			fmt.Println(lines[line-1])
			if column > 0 {
				color.HiRed(strings.Repeat(" ", column-1) + "^")
			}
		}
	}
	for _, e := range scanErrors {
		printAt(e.Position.Line, e.Position.Column, e.Message)
	}
	for _, e := range parseErrors {
		printAt(e.Position.Line, e.Position.Column, e.Message)
	}
}

// reportCompilerErrors prints every semantic/view-pure diagnostic and
// reports whether any of them was error-severity (as opposed to a warning,
// which is reported but does not block codegen).
func reportCompilerErrors(src, path string, compilerErrors []errors.CompilerError) bool {
	lines := strings.Split(src, "\n")
	hadErrors := false
	for _, ce := range compilerErrors {
		if ce.Level == errors.Warning {
			color.Yellow("⚠ %s:%d:%d: %s: %s", path, ce.Position.Line, ce.Position.Column, ce.Code, ce.Message)
			continue
		}
		hadErrors = true
		color.Red("❌ %s:%d:%d: %s: %s", path, ce.Position.Line, ce.Position.Column, ce.Code, ce.Message)
		if ce.Position.Line > 0 && ce.Position.Line <= len(lines) {
			fmt.Println(lines[ce.Position.Line-1])
		}
	}
	return hadErrors
}
