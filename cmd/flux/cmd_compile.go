package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/kristofer/flux/pkg/cache"
)

// compileCmd implements `flux compile <file> [out.fxbc]`: compile to the
// on-disk bytecode cache format without running it.
type compileCmd struct{}

func (*compileCmd) Name() string     { return "compile" }
func (*compileCmd) Synopsis() string { return "compile a Flux source file to a bytecode cache file" }
func (*compileCmd) Usage() string {
	return `compile <file.flux> [out.fxbc]:
  Compile a Flux program to the on-disk bytecode cache format.
`
}
func (*compileCmd) SetFlags(*flag.FlagSet) {}

func (cmd *compileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "flux: no file specified")
		return subcommands.ExitUsageError
	}
	file := args[0]
	out := outputPath(file, args)

	source := readSource(file)
	bc := compileSource(file, source)

	outFile, err := os.Create(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flux: %v\n", err)
		return subcommands.ExitFailure
	}
	defer outFile.Close()

	sourceHash := cache.HashBytes([]byte(source))
	if err := cache.Encode(outFile, sourceHash, version, nil, bc); err != nil {
		fmt.Fprintf(os.Stderr, "flux: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("compiled %s -> %s\n", file, out)
	return subcommands.ExitSuccess
}

// outputPath picks args[1] if given, otherwise derives an .fxbc sibling of
// file by replacing its extension.
func outputPath(file string, args []string) string {
	if len(args) >= 2 {
		return args[1]
	}
	if i := strings.LastIndex(file, "."); i >= 0 {
		return file[:i] + ".fxbc"
	}
	return file + ".fxbc"
}
