package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kristofer/flux/pkg/bytecode"
	"github.com/kristofer/flux/pkg/cache"
	"github.com/kristofer/flux/pkg/value"
)

// disasmCmd implements `flux disasm <file.fxbc>`: load cached bytecode and
// disassemble it without executing it.
type disasmCmd struct{}

func (*disasmCmd) Name() string     { return "disasm" }
func (*disasmCmd) Synopsis() string { return "disassemble a compiled bytecode cache file" }
func (*disasmCmd) Usage() string {
	return `disasm <file.fxbc>:
  Load a bytecode cache file and print its disassembly.
`
}
func (*disasmCmd) SetFlags(*flag.FlagSet) {}

func (d *disasmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "flux: no file specified")
		return subcommands.ExitUsageError
	}
	path := args[0]

	cc := cache.New("")
	info, ok := cc.InspectFile(path)
	if !ok {
		fmt.Fprintf(os.Stderr, "flux: %s is not a valid bytecode cache file\n", path)
		return subcommands.ExitFailure
	}

	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flux: %v\n", err)
		return subcommands.ExitFailure
	}
	defer file.Close()

	bc, err := cache.Decode(file, info.SourceHash, info.CompilerVersion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flux: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("compiler version: %s\n", info.CompilerVersion)
	fmt.Printf("constants: %d\n\n", len(bc.Constants))
	for i, c := range bc.Constants {
		if c.Kind == value.KindFunction {
			fmt.Printf("[%d] function %q:\n%s\n", i, c.Fn.Name, bytecode.Disassemble(c.Fn.Instructions))
		}
	}

	fmt.Println("<main>:")
	fmt.Println(bytecode.Disassemble(bc.Main.Instructions))
	return subcommands.ExitSuccess
}
