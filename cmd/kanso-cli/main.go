// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"evmc/internal/parser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: kanso <file.ka>")
		os.Exit(1)
	}

	path := os.Args[1]

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		os.Exit(1)
	}

	contract, parseErrors, scanErrors := parser.ParseSource(path, string(source))
	if len(scanErrors) > 0 || len(parseErrors) > 0 {
		reportErrors(string(source), path, scanErrors, parseErrors)
		os.Exit(1)
	}

	fmt.Println(contract.String())

	color.Green("✅ Successfully processed %s", path)
}

// reportErrors prints a caret-style message under the offending source line
// for every scan and parse error collected during compilation.
func reportErrors(src, path string, scanErrors []parser.ScanError, parseErrors []parser.ParseError) {
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
