package parser

import (
	"testing"

	"github.com/kristofer/flux/pkg/ast"
)

// TestProductBindsTighterThanSum checks that `*` binds tighter than `+`.
func TestProductBindsTighterThanSum(t *testing.T) {
	p := New("test.flux", "3 + 4 * 2")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	top, ok := stmt.Expression.(*ast.InfixExpression)
	if !ok {
		t.Fatalf("expected InfixExpression, got %T", stmt.Expression)
	}
	if top.Operator != "+" {
		t.Fatalf("expected top-level operator '+', got %s", top.Operator)
	}
	right, ok := top.Right.(*ast.InfixExpression)
	if !ok {
		t.Fatalf("expected InfixExpression on the right, got %T", top.Right)
	}
	if right.Operator != "*" {
		t.Errorf("expected right operator '*', got %s", right.Operator)
	}
}

// TestSumIsLeftAssociative checks that `a - b - c` groups as `(a - b) - c`.
func TestSumIsLeftAssociative(t *testing.T) {
	p := New("test.flux", "a - b - c")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	top := stmt.Expression.(*ast.InfixExpression)
	if top.Operator != "-" {
		t.Fatalf("expected top-level operator '-', got %s", top.Operator)
	}
	left, ok := top.Left.(*ast.InfixExpression)
	if !ok {
		t.Fatalf("expected InfixExpression on the left, got %T", top.Left)
	}
	if left.Operator != "-" {
		t.Errorf("expected left operator '-', got %s", left.Operator)
	}
	if _, ok := top.Right.(*ast.Identifier); !ok {
		t.Errorf("expected bare identifier on the right, got %T", top.Right)
	}
}

// TestConsBindsLooserThanSum checks that `1 + 2 :: rest` parses as
// `(1 + 2) :: rest`, not `1 + (2 :: rest)`.
func TestConsBindsLooserThanSum(t *testing.T) {
	p := New("test.flux", "1 + 2 :: rest")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	cons, ok := stmt.Expression.(*ast.Cons)
	if !ok {
		t.Fatalf("expected Cons at the top, got %T", stmt.Expression)
	}
	if _, ok := cons.Head.(*ast.InfixExpression); !ok {
		t.Errorf("expected InfixExpression head, got %T", cons.Head)
	}
	if _, ok := cons.Tail.(*ast.Identifier); !ok {
		t.Errorf("expected identifier tail, got %T", cons.Tail)
	}
}

// TestConsIsRightAssociative checks that `a :: b :: c` groups as
// `a :: (b :: c)`.
func TestConsIsRightAssociative(t *testing.T) {
	p := New("test.flux", "a :: b :: c")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	outer, ok := stmt.Expression.(*ast.Cons)
	if !ok {
		t.Fatalf("expected Cons at the top, got %T", stmt.Expression)
	}
	if _, ok := outer.Head.(*ast.Identifier); !ok {
		t.Errorf("expected identifier head, got %T", outer.Head)
	}
	inner, ok := outer.Tail.(*ast.Cons)
	if !ok {
		t.Fatalf("expected nested Cons as tail, got %T", outer.Tail)
	}
	if inner.Head.(*ast.Identifier).Value != "b" || inner.Tail.(*ast.Identifier).Value != "c" {
		t.Errorf("expected nested cons b :: c, got %s :: %s",
			inner.Head.(*ast.Identifier).Value, inner.Tail.(*ast.Identifier).Value)
	}
}

// TestAndBindsTighterThanOr checks that `&&` binds tighter than `||`.
func TestAndBindsTighterThanOr(t *testing.T) {
	p := New("test.flux", "a || b && c")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	top := stmt.Expression.(*ast.InfixExpression)
	if top.Operator != "||" {
		t.Fatalf("expected top-level operator '||', got %s", top.Operator)
	}
	right, ok := top.Right.(*ast.InfixExpression)
	if !ok {
		t.Fatalf("expected InfixExpression on the right, got %T", top.Right)
	}
	if right.Operator != "&&" {
		t.Errorf("expected right operator '&&', got %s", right.Operator)
	}
}

// TestComparisonBindsTighterThanAnd checks that `<` binds tighter than `&&`.
func TestComparisonBindsTighterThanAnd(t *testing.T) {
	p := New("test.flux", "a < b && c > d")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	top := stmt.Expression.(*ast.InfixExpression)
	if top.Operator != "&&" {
		t.Fatalf("expected top-level operator '&&', got %s", top.Operator)
	}
	if _, ok := top.Left.(*ast.InfixExpression); !ok {
		t.Errorf("expected InfixExpression on the left, got %T", top.Left)
	}
	if _, ok := top.Right.(*ast.InfixExpression); !ok {
		t.Errorf("expected InfixExpression on the right, got %T", top.Right)
	}
}

// TestPipeBindsLoosestOfAll checks that `a + 1 |> double` parses as
// a pipe of the full arithmetic expression, not `a + (1 |> double)`.
func TestPipeBindsLoosestOfAll(t *testing.T) {
	p := New("test.flux", "a + 1 |> double")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected CallExpression (desugared pipe), got %T", stmt.Expression)
	}
	if len(call.Arguments) != 1 {
		t.Fatalf("expected 1 argument, got %d", len(call.Arguments))
	}
	if _, ok := call.Arguments[0].(*ast.InfixExpression); !ok {
		t.Errorf("expected the sum to be piped whole, got %T", call.Arguments[0])
	}
}

// TestCallBindsTighterThanPrefix checks that `-f(x)` negates the call's
// result rather than calling `-f` with `x`.
func TestCallBindsTighterThanPrefix(t *testing.T) {
	p := New("test.flux", "-f(x)")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	prefix, ok := stmt.Expression.(*ast.PrefixExpression)
	if !ok {
		t.Fatalf("expected PrefixExpression, got %T", stmt.Expression)
	}
	if prefix.Operator != "-" {
		t.Errorf("expected operator '-', got %s", prefix.Operator)
	}
	if _, ok := prefix.Right.(*ast.CallExpression); !ok {
		t.Errorf("expected CallExpression operand, got %T", prefix.Right)
	}
}

// TestMemberAccessBindsTighterThanCall checks that `obj.method(x)` parses
// as a call to the member, not member access on a call's result.
func TestMemberAccessBindsTighterThanCall(t *testing.T) {
	p := New("test.flux", "obj.method(x)")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected CallExpression, got %T", stmt.Expression)
	}
	if _, ok := call.Function.(*ast.MemberAccess); !ok {
		t.Errorf("expected MemberAccess as the called function, got %T", call.Function)
	}
}

// TestIndexChainsWithCall checks that `f(x)[0]` indexes the call's result.
func TestIndexChainsWithCall(t *testing.T) {
	p := New("test.flux", "f(x)[0]")
	program := p.Parse()

	stmt := program.Statements[0].(*ast.ExpressionStatement)
	index, ok := stmt.Expression.(*ast.IndexExpression)
	if !ok {
		t.Fatalf("expected IndexExpression, got %T", stmt.Expression)
	}
	if _, ok := index.Left.(*ast.CallExpression); !ok {
		t.Errorf("expected CallExpression as the indexed value, got %T", index.Left)
	}
}
