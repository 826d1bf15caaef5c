// Command flux is the Flux language driver: compile, run, disassemble, and
// explore Flux programs from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

const version = "0.1.0"

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&tokensCmd{}, "")
	subcommands.Register(&compileCmd{}, "")
	subcommands.Register(&disasmCmd{}, "")
	subcommands.Register(&replCmd{}, "")

	flag.Parse()
	ctx := context.Background()

	if flag.NArg() == 0 {
		fmt.Println("flux - the Flux language driver")
		fmt.Printf("version %s\n\n", version)
		os.Exit(int(subcommands.HelpCommand().Execute(ctx, flag.CommandLine)))
	}

	os.Exit(int(subcommands.Execute(ctx)))
}
