package compiler

import (
	"testing"

	"github.com/kristofer/flux/pkg/bytecode"
	"github.com/kristofer/flux/pkg/parser"
	"github.com/kristofer/flux/pkg/value"
)

func compileInput(t *testing.T, input string) *Bytecode {
	t.Helper()
	p := parser.New("test.flux", input)
	program := p.Parse()
	if len(p.Diagnostics()) != 0 {
		t.Fatalf("parse errors: %v", p.Diagnostics())
	}

	c := New("test.flux", Options{})
	bc := c.CompileProgram(program)
	if len(c.Diagnostics()) != 0 {
		t.Fatalf("compile errors: %v", c.Diagnostics())
	}
	return bc
}

func concatInstructions(chunks ...bytecode.Instructions) bytecode.Instructions {
	var out bytecode.Instructions
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func testInstructions(t *testing.T, want bytecode.Instructions, got bytecode.Instructions) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("wrong instruction length.\nwant=%s\ngot =%s", bytecode.Disassemble(want), bytecode.Disassemble(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instruction mismatch at byte %d.\nwant=%s\ngot =%s", i, bytecode.Disassemble(want), bytecode.Disassemble(got))
		}
	}
}

func testIntegerConstant(t *testing.T, want int64, got value.Value) {
	t.Helper()
	if got.Kind != value.KindInteger {
		t.Fatalf("constant is not an Integer, got %v", got.Kind)
	}
	if got.Int != want {
		t.Fatalf("wrong integer constant. want=%d, got=%d", want, got.Int)
	}
}

func TestCompileIntegerArithmetic(t *testing.T) {
	bc := compileInput(t, "1 + 2")

	want := concatInstructions(
		bytecode.Make(bytecode.OpConstant, 0),
		bytecode.Make(bytecode.OpConstant, 1),
		bytecode.Make(bytecode.OpAdd),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, bc.Main.Instructions)

	if len(bc.Constants) != 2 {
		t.Fatalf("expected 2 constants, got %d", len(bc.Constants))
	}
	testIntegerConstant(t, 1, bc.Constants[0])
	testIntegerConstant(t, 2, bc.Constants[1])
}

func TestCompileLessThanSwapsOperands(t *testing.T) {
	bc := compileInput(t, "1 < 2")

	// `<` compiles by swapping operands and emitting GreaterThan, so the
	// right operand (2) is pushed first.
	want := concatInstructions(
		bytecode.Make(bytecode.OpConstant, 0),
		bytecode.Make(bytecode.OpConstant, 1),
		bytecode.Make(bytecode.OpGreaterThan),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, bc.Main.Instructions)
	testIntegerConstant(t, 2, bc.Constants[0])
	testIntegerConstant(t, 1, bc.Constants[1])
}

func TestCompileBooleanLiterals(t *testing.T) {
	bc := compileInput(t, "true")
	want := concatInstructions(
		bytecode.Make(bytecode.OpTrue),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, bc.Main.Instructions)
}

func TestCompileStringLiteral(t *testing.T) {
	bc := compileInput(t, `"hello"`)

	want := concatInstructions(
		bytecode.Make(bytecode.OpConstant, 0),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, bc.Main.Instructions)

	if bc.Constants[0].Kind != value.KindString || bc.Constants[0].Str != "hello" {
		t.Fatalf("expected string constant %q, got %v", "hello", bc.Constants[0])
	}
}

func TestCompileArrayLiteral(t *testing.T) {
	bc := compileInput(t, "#[1, 2, 3]")

	want := concatInstructions(
		bytecode.Make(bytecode.OpConstant, 0),
		bytecode.Make(bytecode.OpConstant, 1),
		bytecode.Make(bytecode.OpConstant, 2),
		bytecode.Make(bytecode.OpArray, 3),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, bc.Main.Instructions)
}

func TestCompileIndexExpression(t *testing.T) {
	bc := compileInput(t, "#[1, 2, 3][1]")

	want := concatInstructions(
		bytecode.Make(bytecode.OpConstant, 0),
		bytecode.Make(bytecode.OpConstant, 1),
		bytecode.Make(bytecode.OpConstant, 2),
		bytecode.Make(bytecode.OpArray, 3),
		bytecode.Make(bytecode.OpConstant, 3),
		bytecode.Make(bytecode.OpIndex),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, bc.Main.Instructions)
}

func TestCompileLetAndGlobal(t *testing.T) {
	bc := compileInput(t, "let x = 1\nx")

	want := concatInstructions(
		bytecode.Make(bytecode.OpConstant, 0),
		bytecode.Make(bytecode.OpSetGlobal, 0),
		bytecode.Make(bytecode.OpGetGlobal, 0),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, bc.Main.Instructions)
}

func TestCompileIfElseExpression(t *testing.T) {
	bc := compileInput(t, "if true { 10 } else { 20 }")

	want := concatInstructions(
		bytecode.Make(bytecode.OpTrue),              // 0000
		bytecode.Make(bytecode.OpJumpNotTruthy, 10), // 0001
		bytecode.Make(bytecode.OpConstant, 0),       // 0004
		bytecode.Make(bytecode.OpJump, 13),          // 0007
		bytecode.Make(bytecode.OpConstant, 1),       // 0010
		bytecode.Make(bytecode.OpReturnValue),       // 0013
	)
	testInstructions(t, want, bc.Main.Instructions)
	testIntegerConstant(t, 10, bc.Constants[0])
	testIntegerConstant(t, 20, bc.Constants[1])
}

func TestCompileIfWithoutElsePushesNone(t *testing.T) {
	bc := compileInput(t, "if true { 10 }\n0")

	want := concatInstructions(
		bytecode.Make(bytecode.OpTrue),             // 0000
		bytecode.Make(bytecode.OpJumpNotTruthy, 10), // 0001
		bytecode.Make(bytecode.OpConstant, 0),       // 0004
		bytecode.Make(bytecode.OpJump, 11),          // 0007
		bytecode.Make(bytecode.OpNone),              // 0010
		bytecode.Make(bytecode.OpPop),               // 0011
		bytecode.Make(bytecode.OpConstant, 1),       // 0012
		bytecode.Make(bytecode.OpReturnValue),       // 0015
	)
	testInstructions(t, want, bc.Main.Instructions)
}

func TestCompileFunctionLiteralProducesClosureConstant(t *testing.T) {
	bc := compileInput(t, "fun(x, y) { x + y }")

	want := concatInstructions(
		bytecode.Make(bytecode.OpClosure, 0, 0),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, bc.Main.Instructions)

	if len(bc.Constants) != 1 || bc.Constants[0].Kind != value.KindFunction {
		t.Fatalf("expected a single Function constant, got %v", bc.Constants)
	}

	fn := bc.Constants[0].Fn
	if fn.NumParameters != 2 {
		t.Fatalf("expected 2 parameters, got %d", fn.NumParameters)
	}

	wantBody := concatInstructions(
		bytecode.Make(bytecode.OpGetLocal, 0),
		bytecode.Make(bytecode.OpGetLocal, 1),
		bytecode.Make(bytecode.OpAdd),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, wantBody, fn.Instructions)
}

func TestCompileCallExpression(t *testing.T) {
	bc := compileInput(t, "let add = fun(x, y) { x + y }\nadd(1, 2)")

	want := concatInstructions(
		bytecode.Make(bytecode.OpClosure, 0, 0),
		bytecode.Make(bytecode.OpSetGlobal, 0),
		bytecode.Make(bytecode.OpGetGlobal, 0),
		bytecode.Make(bytecode.OpConstant, 1),
		bytecode.Make(bytecode.OpConstant, 2),
		bytecode.Make(bytecode.OpCall, 2),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, bc.Main.Instructions)
}

func TestCompileSelfRecursiveTailCall(t *testing.T) {
	bc := compileInput(t, "fun countdown(n) { countdown(n) }")

	fn := bc.Constants[0].Fn
	want := concatInstructions(
		bytecode.Make(bytecode.OpCurrentClosure),
		bytecode.Make(bytecode.OpConsumeLocal, 0),
		bytecode.Make(bytecode.OpTailCall, 1),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, fn.Instructions)
}

func TestCompileClosureCapturesFreeVariable(t *testing.T) {
	bc := compileInput(t, "fun(x) { fun(y) { x + y } }")

	outer := bc.Constants[1].Fn
	want := concatInstructions(
		bytecode.Make(bytecode.OpGetLocal, 0),
		bytecode.Make(bytecode.OpClosure, 0, 1),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, outer.Instructions)

	inner := bc.Constants[0].Fn
	wantInner := concatInstructions(
		bytecode.Make(bytecode.OpGetFree, 0),
		bytecode.Make(bytecode.OpGetLocal, 0),
		bytecode.Make(bytecode.OpAdd),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, wantInner, inner.Instructions)
}

func TestCompileSomeLeftRight(t *testing.T) {
	bc := compileInput(t, "Some(1)")

	want := concatInstructions(
		bytecode.Make(bytecode.OpConstant, 0),
		bytecode.Make(bytecode.OpSome),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, bc.Main.Instructions)
}

func TestCompileConsExpression(t *testing.T) {
	bc := compileInput(t, "1 :: []")

	want := concatInstructions(
		bytecode.Make(bytecode.OpConstant, 0),
		bytecode.Make(bytecode.OpNone),
		bytecode.Make(bytecode.OpCons),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, bc.Main.Instructions)
}

func TestCompileListLiteralLowersThroughListBuiltin(t *testing.T) {
	bc := compileInput(t, "[1, 2]")

	listIdx, ok := BuiltinIndex("list")
	if !ok {
		t.Fatal("list must be a predeclared builtin")
	}

	want := concatInstructions(
		bytecode.Make(bytecode.OpGetBuiltin, listIdx),
		bytecode.Make(bytecode.OpConstant, 0),
		bytecode.Make(bytecode.OpConstant, 1),
		bytecode.Make(bytecode.OpCall, 2),
		bytecode.Make(bytecode.OpReturnValue),
	)
	testInstructions(t, want, bc.Main.Instructions)
}

func TestCompileAssignToImmutableBindingIsADiagnostic(t *testing.T) {
	p := parser.New("test.flux", "let x = 1\nx = 2")
	program := p.Parse()
	if len(p.Diagnostics()) != 0 {
		t.Fatalf("parse errors: %v", p.Diagnostics())
	}

	c := New("test.flux", Options{})
	c.CompileProgram(program)

	if len(c.Diagnostics()) == 0 {
		t.Fatal("expected a diagnostic for assigning to an immutable binding")
	}
}

func TestCompileUndefinedVariableIsADiagnostic(t *testing.T) {
	p := parser.New("test.flux", "y")
	program := p.Parse()
	if len(p.Diagnostics()) != 0 {
		t.Fatalf("parse errors: %v", p.Diagnostics())
	}

	c := New("test.flux", Options{})
	c.CompileProgram(program)

	if len(c.Diagnostics()) == 0 {
		t.Fatal("expected a diagnostic for an undefined variable")
	}
}

func compileDiagnosticCodes(t *testing.T, input string) []string {
	t.Helper()
	p := parser.New("test.flux", input)
	program := p.Parse()
	if len(p.Diagnostics()) != 0 {
		t.Fatalf("parse errors: %v", p.Diagnostics())
	}

	c := New("test.flux", Options{})
	c.CompileProgram(program)

	var codes []string
	for _, d := range c.Diagnostics() {
		codes = append(codes, d.Code)
	}
	return codes
}

func TestCompileMatchMissingCatchallIsNonExhaustive(t *testing.T) {
	codes := compileDiagnosticCodes(t, "match 1 { 1 -> 1; 2 -> 2 }")
	if !containsCode(codes, "E015") {
		t.Fatalf("expected E015 (non-exhaustive match), got %v", codes)
	}
}

func TestCompileMatchCatchallNotLastIsRejected(t *testing.T) {
	codes := compileDiagnosticCodes(t, "match 1 { x -> x; _ -> 0 }")
	if !containsCode(codes, "E016") {
		t.Fatalf("expected E016 (catch-all not last), got %v", codes)
	}
}

func TestCompileMatchWithTrailingCatchallIsExhaustive(t *testing.T) {
	codes := compileDiagnosticCodes(t, "match 1 { 1 -> 1; _ -> 0 }")
	if containsCode(codes, "E015") || containsCode(codes, "E016") {
		t.Fatalf("expected no exhaustiveness diagnostics, got %v", codes)
	}
}

func TestCompileDuplicatePatternBindingInConsPattern(t *testing.T) {
	codes := compileDiagnosticCodes(t, "let xs = 1 :: 2 :: []\nmatch xs { head :: head -> head; _ -> 0 }")
	if !containsCode(codes, "E061") {
		t.Fatalf("expected E061 (duplicate pattern binding), got %v", codes)
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
