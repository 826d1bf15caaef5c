package main

import (
	"fmt"
	"os"

	"github.com/kristofer/flux/pkg/ast"
	"github.com/kristofer/flux/pkg/compiler"
	"github.com/kristofer/flux/pkg/diagnostics"
	"github.com/kristofer/flux/pkg/parser"
)

// readSource reads filename and returns its contents as a string, or exits
// the process on failure (a missing source file is never recoverable).
func readSource(filename string) string {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flux: %v\n", err)
		os.Exit(1)
	}
	return string(data)
}

// renderDiagnostics prints every diagnostic in diags against source, using
// the same Renderer the compiler and VM use for runtime errors, so parse,
// compile, and run failures all look alike on a terminal.
func renderDiagnostics(file, source string, diags []*diagnostics.Diagnostic) {
	r := diagnostics.NewRenderer(map[string]string{file: source})
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, r.Render(d))
	}
}

// parseSource lexes and parses source, printing and exiting on a parse
// failure. It returns the parsed program on success.
func parseSource(file, source string) *ast.Program {
	p := parser.New(file, source)
	program := p.Parse()
	if diags := p.Diagnostics(); len(diags) > 0 {
		renderDiagnostics(file, source, diags)
		os.Exit(1)
	}
	return program
}

// compileSource parses and compiles source into bytecode, printing and
// exiting on either a parse or a compile failure.
func compileSource(file, source string) *compiler.Bytecode {
	program := parseSource(file, source)

	c := compiler.New(file, compiler.Options{Fold: true, Desugar: true})
	bc := c.CompileProgram(program)
	if diags := c.Diagnostics(); len(diags) > 0 {
		renderDiagnostics(file, source, diags)
		os.Exit(1)
	}
	return bc
}
