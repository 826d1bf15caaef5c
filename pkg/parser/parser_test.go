package parser

import (
	"testing"

	"github.com/kristofer/flux/pkg/ast"
)

func TestParseIntegerLiteral(t *testing.T) {
	p := New("test.flux", "42")
	program := p.Parse()

	if len(p.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics())
	}
	if len(program.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(program.Statements))
	}

	stmt, ok := program.Statements[0].(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("expected ExpressionStatement, got %T", program.Statements[0])
	}

	intLit, ok := stmt.Expression.(*ast.IntegerLiteral)
	if !ok {
		t.Fatalf("expected IntegerLiteral, got %T", stmt.Expression)
	}
	if intLit.Value != 42 {
		t.Errorf("expected value 42, got %d", intLit.Value)
	}
}

func TestParseFloatLiteral(t *testing.T) {
	p := New("test.flux", "3.14")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	floatLit, ok := stmt.Expression.(*ast.FloatLiteral)
	if !ok {
		t.Fatalf("expected FloatLiteral, got %T", stmt.Expression)
	}
	if floatLit.Value != 3.14 {
		t.Errorf("expected value 3.14, got %f", floatLit.Value)
	}
}

func TestParseStringLiteral(t *testing.T) {
	p := New("test.flux", `"hello"`)
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	strLit, ok := stmt.Expression.(*ast.StringLiteral)
	if !ok {
		t.Fatalf("expected StringLiteral, got %T", stmt.Expression)
	}
	if strLit.Value != "hello" {
		t.Errorf("expected value hello, got %q", strLit.Value)
	}
}

func TestParseInterpolatedString(t *testing.T) {
	p := New("test.flux", `"hi #{name}!"`)
	program := p.Parse()

	if len(p.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics())
	}
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	lit, ok := stmt.Expression.(*ast.InterpolatedStringLiteral)
	if !ok {
		t.Fatalf("expected InterpolatedStringLiteral, got %T", stmt.Expression)
	}
	if len(lit.Parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(lit.Parts))
	}
	if lit.Parts[0].Literal != "hi " {
		t.Errorf("expected first part %q, got %q", "hi ", lit.Parts[0].Literal)
	}
	ident, ok := lit.Parts[1].Expression.(*ast.Identifier)
	if !ok {
		t.Fatalf("expected Identifier part, got %T", lit.Parts[1].Expression)
	}
	if ident.Value != "name" {
		t.Errorf("expected identifier name, got %s", ident.Value)
	}
	if lit.Parts[2].Literal != "!" {
		t.Errorf("expected trailing part %q, got %q", "!", lit.Parts[2].Literal)
	}
}

func TestParseBooleanLiterals(t *testing.T) {
	p := New("test.flux", "true")
	program := p.Parse()
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	boolLit, ok := stmt.Expression.(*ast.BooleanLiteral)
	if !ok {
		t.Fatalf("expected BooleanLiteral, got %T", stmt.Expression)
	}
	if !boolLit.Value {
		t.Errorf("expected true, got false")
	}
}

func TestParseLetStatement(t *testing.T) {
	p := New("test.flux", "let x = 5;")
	program := p.Parse()

	if len(p.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics())
	}
	stmt, ok := program.Statements[0].(*ast.LetStatement)
	if !ok {
		t.Fatalf("expected LetStatement, got %T", program.Statements[0])
	}
	if stmt.Name != "x" {
		t.Errorf("expected name x, got %s", stmt.Name)
	}
	if _, ok := stmt.Value.(*ast.IntegerLiteral); !ok {
		t.Errorf("expected IntegerLiteral value, got %T", stmt.Value)
	}
}

func TestParseAssignStatement(t *testing.T) {
	p := New("test.flux", "x = 5;")
	program := p.Parse()

	stmt, ok := program.Statements[0].(*ast.AssignStatement)
	if !ok {
		t.Fatalf("expected AssignStatement, got %T", program.Statements[0])
	}
	if stmt.Name != "x" {
		t.Errorf("expected name x, got %s", stmt.Name)
	}
}

func TestParseReturnStatement(t *testing.T) {
	p := New("test.flux", "return 5;")
	program := p.Parse()

	stmt, ok := program.Statements[0].(*ast.ReturnStatement)
	if !ok {
		t.Fatalf("expected ReturnStatement, got %T", program.Statements[0])
	}
	if _, ok := stmt.Value.(*ast.IntegerLiteral); !ok {
		t.Errorf("expected IntegerLiteral value, got %T", stmt.Value)
	}
}

func TestParseFunctionStatement(t *testing.T) {
	p := New("test.flux", "fun add(a, b) { return a + b; }")
	program := p.Parse()

	if len(p.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics())
	}
	stmt, ok := program.Statements[0].(*ast.FunctionStatement)
	if !ok {
		t.Fatalf("expected FunctionStatement, got %T", program.Statements[0])
	}
	if stmt.Name != "add" {
		t.Errorf("expected name add, got %s", stmt.Name)
	}
	if len(stmt.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(stmt.Params))
	}
	if stmt.Params[0].Value != "a" || stmt.Params[1].Value != "b" {
		t.Errorf("expected params a, b, got %s, %s", stmt.Params[0].Value, stmt.Params[1].Value)
	}
	if len(stmt.Body.Statements) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(stmt.Body.Statements))
	}
}

func TestParseModuleStatement(t *testing.T) {
	p := New("test.flux", "module Math { let pi = 3; fun square(x) { return x * x; } }")
	program := p.Parse()

	if len(p.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics())
	}
	mod, ok := program.Statements[0].(*ast.ModuleStatement)
	if !ok {
		t.Fatalf("expected ModuleStatement, got %T", program.Statements[0])
	}
	if mod.Name != "Math" {
		t.Errorf("expected name Math, got %s", mod.Name)
	}
	if len(mod.Body) != 2 {
		t.Fatalf("expected 2 body statements, got %d", len(mod.Body))
	}
}

func TestParseImportStatement(t *testing.T) {
	p := New("test.flux", "import Math as M")
	program := p.Parse()

	stmt, ok := program.Statements[0].(*ast.ImportStatement)
	if !ok {
		t.Fatalf("expected ImportStatement, got %T", program.Statements[0])
	}
	if stmt.Module != "Math" {
		t.Errorf("expected module Math, got %s", stmt.Module)
	}
	if stmt.Alias != "M" {
		t.Errorf("expected alias M, got %s", stmt.Alias)
	}
}

func TestParseImportStatementWithoutAlias(t *testing.T) {
	p := New("test.flux", "import Math")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ImportStatement)
	if stmt.Alias != stmt.Module {
		t.Errorf("expected alias to default to module name, got %s", stmt.Alias)
	}
}

func TestParseIfExpression(t *testing.T) {
	p := New("test.flux", "if x < y { x } else { y }")
	program := p.Parse()

	if len(p.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics())
	}
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	ifExpr, ok := stmt.Expression.(*ast.IfExpression)
	if !ok {
		t.Fatalf("expected IfExpression, got %T", stmt.Expression)
	}
	if _, ok := ifExpr.Condition.(*ast.InfixExpression); !ok {
		t.Errorf("expected InfixExpression condition, got %T", ifExpr.Condition)
	}
	if ifExpr.Alternative == nil {
		t.Fatalf("expected an alternative branch")
	}
}

func TestParseFunctionLiteral(t *testing.T) {
	p := New("test.flux", "fun(x, y) { return x + y; }")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	fn, ok := stmt.Expression.(*ast.FunctionLiteral)
	if !ok {
		t.Fatalf("expected FunctionLiteral, got %T", stmt.Expression)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fn.Params))
	}
}

func TestParseLambdaSingleParam(t *testing.T) {
	p := New("test.flux", `\x -> x + 1`)
	program := p.Parse()

	if len(p.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics())
	}
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	fn, ok := stmt.Expression.(*ast.FunctionLiteral)
	if !ok {
		t.Fatalf("expected FunctionLiteral, got %T", stmt.Expression)
	}
	if len(fn.Params) != 1 || fn.Params[0].Value != "x" {
		t.Fatalf("expected single param x, got %v", fn.Params)
	}
	if len(fn.Body.Statements) != 1 {
		t.Fatalf("expected lambda body wrapped in one statement, got %d", len(fn.Body.Statements))
	}
}

func TestParseLambdaMultipleParams(t *testing.T) {
	p := New("test.flux", `\(x, y) -> x + y`)
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	fn := stmt.Expression.(*ast.FunctionLiteral)
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fn.Params))
	}
}

func TestParseListLiteral(t *testing.T) {
	p := New("test.flux", "[1, 2, 3]")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	list, ok := stmt.Expression.(*ast.ListLiteral)
	if !ok {
		t.Fatalf("expected ListLiteral, got %T", stmt.Expression)
	}
	if len(list.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(list.Elements))
	}
}

func TestParseEmptyListLiteral(t *testing.T) {
	p := New("test.flux", "[]")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	if _, ok := stmt.Expression.(*ast.EmptyListLiteral); !ok {
		t.Fatalf("expected EmptyListLiteral, got %T", stmt.Expression)
	}
}

func TestParseArrayLiteral(t *testing.T) {
	p := New("test.flux", "#[1, 2, 3]")
	program := p.Parse()

	if len(p.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics())
	}
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	arr, ok := stmt.Expression.(*ast.ArrayLiteral)
	if !ok {
		t.Fatalf("expected ArrayLiteral, got %T", stmt.Expression)
	}
	if len(arr.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(arr.Elements))
	}
}

func TestParseHashLiteral(t *testing.T) {
	p := New("test.flux", `{"a": 1, "b": 2}`)
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	hash, ok := stmt.Expression.(*ast.HashLiteral)
	if !ok {
		t.Fatalf("expected HashLiteral, got %T", stmt.Expression)
	}
	if len(hash.Keys) != 2 || len(hash.Values) != 2 {
		t.Fatalf("expected 2 pairs, got %d keys / %d values", len(hash.Keys), len(hash.Values))
	}
}

func TestParseConsExpressionIsRightAssociative(t *testing.T) {
	p := New("test.flux", "1 :: 2 :: []")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	outer, ok := stmt.Expression.(*ast.Cons)
	if !ok {
		t.Fatalf("expected Cons, got %T", stmt.Expression)
	}
	if _, ok := outer.Head.(*ast.IntegerLiteral); !ok {
		t.Errorf("expected integer head, got %T", outer.Head)
	}
	inner, ok := outer.Tail.(*ast.Cons)
	if !ok {
		t.Fatalf("expected nested Cons as tail, got %T", outer.Tail)
	}
	if _, ok := inner.Tail.(*ast.EmptyListLiteral); !ok {
		t.Errorf("expected empty list terminator, got %T", inner.Tail)
	}
}

func TestParsePipeExpressionDesugarsToCall(t *testing.T) {
	p := New("test.flux", "x |> double")
	program := p.Parse()

	if len(p.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics())
	}
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected CallExpression, got %T", stmt.Expression)
	}
	if len(call.Arguments) != 1 {
		t.Fatalf("expected 1 argument, got %d", len(call.Arguments))
	}
}

func TestParsePipeExpressionWithCallTargetPrependsArgument(t *testing.T) {
	p := New("test.flux", "x |> add(1)")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	call := stmt.Expression.(*ast.CallExpression)
	if len(call.Arguments) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(call.Arguments))
	}
	if _, ok := call.Arguments[0].(*ast.Identifier); !ok {
		t.Errorf("expected first argument to be the piped identifier, got %T", call.Arguments[0])
	}
}

func TestParseCallExpression(t *testing.T) {
	p := New("test.flux", "add(1, 2)")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected CallExpression, got %T", stmt.Expression)
	}
	if len(call.Arguments) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(call.Arguments))
	}
}

func TestParseIndexExpression(t *testing.T) {
	p := New("test.flux", "arr[0]")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	if _, ok := stmt.Expression.(*ast.IndexExpression); !ok {
		t.Fatalf("expected IndexExpression, got %T", stmt.Expression)
	}
}

func TestParseMemberAccess(t *testing.T) {
	p := New("test.flux", "Math.square")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	access, ok := stmt.Expression.(*ast.MemberAccess)
	if !ok {
		t.Fatalf("expected MemberAccess, got %T", stmt.Expression)
	}
	if access.Name != "square" {
		t.Errorf("expected name square, got %s", access.Name)
	}
}

func TestParseSomeLeftRightExpressions(t *testing.T) {
	p := New("test.flux", "Some(1)")
	program := p.Parse()
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	if _, ok := stmt.Expression.(*ast.SomeExpression); !ok {
		t.Fatalf("expected SomeExpression, got %T", stmt.Expression)
	}

	p = New("test.flux", "Left(1)")
	program = p.Parse()
	stmt = program.Statements[0].(*ast.ExpressionStatement)
	if _, ok := stmt.Expression.(*ast.LeftExpression); !ok {
		t.Fatalf("expected LeftExpression, got %T", stmt.Expression)
	}

	p = New("test.flux", "Right(1)")
	program = p.Parse()
	stmt = program.Statements[0].(*ast.ExpressionStatement)
	if _, ok := stmt.Expression.(*ast.RightExpression); !ok {
		t.Fatalf("expected RightExpression, got %T", stmt.Expression)
	}
}

func TestParseMatchExpression(t *testing.T) {
	p := New("test.flux", `match x { 0 -> "zero"; Some(n) -> n; _ -> -1 }`)
	program := p.Parse()

	if len(p.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics())
	}
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	match, ok := stmt.Expression.(*ast.MatchExpression)
	if !ok {
		t.Fatalf("expected MatchExpression, got %T", stmt.Expression)
	}
	if len(match.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(match.Arms))
	}
	if _, ok := match.Arms[0].Pattern.(*ast.LiteralPattern); !ok {
		t.Errorf("expected LiteralPattern, got %T", match.Arms[0].Pattern)
	}
	somePattern, ok := match.Arms[1].Pattern.(*ast.SomePattern)
	if !ok {
		t.Fatalf("expected SomePattern, got %T", match.Arms[1].Pattern)
	}
	if _, ok := somePattern.Inner.(*ast.IdentifierPattern); !ok {
		t.Errorf("expected IdentifierPattern inner, got %T", somePattern.Inner)
	}
	if _, ok := match.Arms[2].Pattern.(*ast.WildcardPattern); !ok {
		t.Errorf("expected WildcardPattern, got %T", match.Arms[2].Pattern)
	}
}

func TestParseMatchArmWithGuard(t *testing.T) {
	p := New("test.flux", `match x { n if n > 0 -> n; _ -> 0 }`)
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	match := stmt.Expression.(*ast.MatchExpression)
	if match.Arms[0].Guard == nil {
		t.Fatalf("expected a guard on the first arm")
	}
}

func TestParseMatchListPatternSugar(t *testing.T) {
	p := New("test.flux", `match xs { [a, b] -> a; _ -> 0 }`)
	program := p.Parse()

	if len(p.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics())
	}
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	match := stmt.Expression.(*ast.MatchExpression)
	outer, ok := match.Arms[0].Pattern.(*ast.ConsPattern)
	if !ok {
		t.Fatalf("expected ConsPattern from list-pattern sugar, got %T", match.Arms[0].Pattern)
	}
	inner, ok := outer.Tail.(*ast.ConsPattern)
	if !ok {
		t.Fatalf("expected nested ConsPattern, got %T", outer.Tail)
	}
	if _, ok := inner.Tail.(*ast.EmptyListPattern); !ok {
		t.Errorf("expected EmptyListPattern terminator, got %T", inner.Tail)
	}
}

func TestSynchronizeRecoversAfterError(t *testing.T) {
	p := New("test.flux", "let = ; let y = 2;")
	program := p.Parse()

	if len(p.Diagnostics()) == 0 {
		t.Fatalf("expected at least one diagnostic")
	}

	found := false
	for _, stmt := range program.Statements {
		if let, ok := stmt.(*ast.LetStatement); ok && let.Name == "y" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected parser to recover and still parse 'let y = 2;'")
	}
}
