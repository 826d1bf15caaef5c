package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"
	"github.com/kristofer/flux/pkg/builtins"
	"github.com/kristofer/flux/pkg/compiler"
	"github.com/kristofer/flux/pkg/parser"
	"github.com/kristofer/flux/pkg/value"
	"github.com/kristofer/flux/pkg/vm"
)

// replCmd implements `flux repl`: a readline-backed REPL that compiles and
// runs one top-level statement at a time. Flux has no incremental
// compilation entry point, so each line is evaluated by recompiling the
// whole accumulated session source against a fresh compiler and VM;
// globals and module constants persist across lines simply because
// re-evaluating the same prior source always redefines the same bindings.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "start an interactive Flux session" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive read-eval-print loop.
`
}
func (*replCmd) SetFlags(*flag.FlagSet) {}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "flux> ",
		HistoryFile:     historyFilePath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "flux: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	fmt.Printf("flux %s\n", version)
	fmt.Println("type an expression or :quit to exit")

	var session strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "flux: %v\n", err)
			break
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == ":quit" || trimmed == ":exit" {
			break
		}
		if trimmed == "" {
			continue
		}

		evalREPLLine(&session, trimmed)
	}
	return subcommands.ExitSuccess
}

// historyFilePath returns a per-user readline history file, or "" (disabling
// history) if the home directory can't be determined.
func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.flux_history"
}

// evalREPLLine appends line to session and re-evaluates the whole buffer.
// A line that fails to parse or compile is not committed to session, so a
// typo doesn't permanently poison the rest of the REPL.
func evalREPLLine(session *strings.Builder, line string) {
	candidate := session.String() + line + "\n"

	p := parser.New("repl", candidate)
	program := p.Parse()
	if diags := p.Diagnostics(); len(diags) > 0 {
		renderDiagnostics("repl", candidate, diags)
		return
	}

	c := compiler.New("repl", compiler.Options{Fold: true, Desugar: true})
	bc := c.CompileProgram(program)
	if diags := c.Diagnostics(); len(diags) > 0 {
		renderDiagnostics("repl", candidate, diags)
		return
	}

	machine := vm.New(bc, nil)
	machine.SetBuiltins(builtins.All(machine))

	result, err := machine.Run()
	if err != nil {
		printRuntimeError("repl", candidate, err)
		return
	}

	session.WriteString(line)
	session.WriteString("\n")

	if result.Kind != value.KindNone {
		fmt.Println(value.ToDisplayString(result))
	}
}
