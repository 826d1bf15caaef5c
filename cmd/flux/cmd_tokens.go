package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/kristofer/flux/pkg/lexer"
	"github.com/kristofer/flux/pkg/token"
)

// tokensCmd implements `flux tokens <file>`: lex-only, dumping the raw
// token stream so the lexer can be exercised as a standalone collaborator.
type tokensCmd struct{}

func (*tokensCmd) Name() string     { return "tokens" }
func (*tokensCmd) Synopsis() string { return "dump the token stream for a Flux source file" }
func (*tokensCmd) Usage() string {
	return `tokens <file.flux>:
  Lex a Flux source file and print its tokens, one per line.
`
}
func (*tokensCmd) SetFlags(*flag.FlagSet) {}

func (t *tokensCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "flux: no file specified")
		return subcommands.ExitUsageError
	}
	source := readSource(args[0])

	l := lexer.New(source)
	for _, tok := range l.Tokenize() {
		fmt.Printf("%4d:%-3d %-14s %q\n", tok.Line, tok.Column, tok.Type, tok.Literal)
		if tok.Type == token.EOF {
			break
		}
	}
	return subcommands.ExitSuccess
}
