package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kristofer/flux/pkg/builtins"
	"github.com/kristofer/flux/pkg/diagnostics"
	"github.com/kristofer/flux/pkg/value"
	"github.com/kristofer/flux/pkg/vm"
)

// runCmd implements `flux run <file>`: compile and execute a Flux source
// file, printing the rendered diagnostic (if any) to stderr and the final
// value to stdout.
type runCmd struct{}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "compile and execute a Flux source file" }
func (*runCmd) Usage() string {
	return `run <file.flux>:
  Compile and execute a Flux program.
`
}
func (*runCmd) SetFlags(*flag.FlagSet) {}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "flux: no file specified")
		return subcommands.ExitUsageError
	}
	file := args[0]
	source := readSource(file)
	bc := compileSource(file, source)

	machine := vm.New(bc, nil)
	machine.SetBuiltins(builtins.All(machine))

	result, err := machine.Run()
	if err != nil {
		printRuntimeError(file, source, err)
		return subcommands.ExitFailure
	}

	if result.Kind != value.KindNone {
		fmt.Println(value.ToDisplayString(result))
	}
	return subcommands.ExitSuccess
}

// printRuntimeError renders a VM error the same way a compile diagnostic is
// rendered when err wraps one, falling back to its plain message otherwise.
func printRuntimeError(file, source string, err error) {
	if rerr, ok := err.(*vm.RuntimeError); ok && rerr.Diagnostic != nil {
		renderDiagnostics(file, source, []*diagnostics.Diagnostic{rerr.Diagnostic})
		return
	}
	fmt.Fprintf(os.Stderr, "flux: runtime error: %v\n", err)
}
