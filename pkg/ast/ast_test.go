package ast_test

import (
	"testing"

	"github.com/kristofer/flux/pkg/ast"
	"github.com/kristofer/flux/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := parser.New("test.flux", input)
	prog := p.Parse()
	require.Empty(t, p.Diagnostics())
	return prog
}

func firstExprStatement(t *testing.T, prog *ast.Program) ast.Expression {
	t.Helper()
	require.Len(t, prog.Statements, 1)
	stmt, ok := prog.Statements[0].(*ast.ExpressionStatement)
	require.True(t, ok)
	return stmt.Expression
}

func TestFoldIntegerArithmetic(t *testing.T) {
	folded := ast.Fold(parseProgram(t, "1 + 2 * 3"))

	lit, ok := firstExprStatement(t, folded).(*ast.IntegerLiteral)
	require.True(t, ok)
	assert.Equal(t, int64(7), lit.Value)
}

func TestFoldDoesNotDivideByZero(t *testing.T) {
	folded := ast.Fold(parseProgram(t, "1 / 0"))

	_, stillInfix := firstExprStatement(t, folded).(*ast.InfixExpression)
	assert.True(t, stillInfix, "division by zero must not be folded away")
}

func TestFoldStringConcatenation(t *testing.T) {
	folded := ast.Fold(parseProgram(t, `"foo" + "bar"`))

	lit, ok := firstExprStatement(t, folded).(*ast.StringLiteral)
	require.True(t, ok)
	assert.Equal(t, "foobar", lit.Value)
}

func TestFoldBooleanLogic(t *testing.T) {
	folded := ast.Fold(parseProgram(t, "true && false"))

	lit, ok := firstExprStatement(t, folded).(*ast.BooleanLiteral)
	require.True(t, ok)
	assert.False(t, lit.Value)
}

func TestFoldLeavesNonLiteralOperandsAlone(t *testing.T) {
	folded := ast.Fold(parseProgram(t, "x + 1"))

	_, stillInfix := firstExprStatement(t, folded).(*ast.InfixExpression)
	assert.True(t, stillInfix)
}

func TestDesugarListLiteralBecomesConsChain(t *testing.T) {
	desugared := ast.Desugar(parseProgram(t, "[1, 2]"))

	outer, ok := firstExprStatement(t, desugared).(*ast.Cons)
	require.True(t, ok)
	head, ok := outer.Head.(*ast.IntegerLiteral)
	require.True(t, ok)
	assert.Equal(t, int64(1), head.Value)

	inner, ok := outer.Tail.(*ast.Cons)
	require.True(t, ok)
	innerHead, ok := inner.Head.(*ast.IntegerLiteral)
	require.True(t, ok)
	assert.Equal(t, int64(2), innerHead.Value)

	_, tailIsEmpty := inner.Tail.(*ast.EmptyListLiteral)
	assert.True(t, tailIsEmpty)
}

func TestDesugarEmptyListLiteral(t *testing.T) {
	desugared := ast.Desugar(parseProgram(t, "[]"))

	_, ok := firstExprStatement(t, desugared).(*ast.EmptyListLiteral)
	assert.True(t, ok)
}

func TestDesugarPipeIntoCall(t *testing.T) {
	// The parser already lowers |> into a call itself; Desugar must agree
	// with that shape when it runs over an already-lowered tree too.
	desugared := ast.Desugar(parseProgram(t, "x |> f(1)"))

	call, ok := firstExprStatement(t, desugared).(*ast.CallExpression)
	require.True(t, ok)
	fn, ok := call.Function.(*ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "f", fn.Value)
	require.Len(t, call.Arguments, 2)

	first, ok := call.Arguments[0].(*ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "x", first.Value)

	second, ok := call.Arguments[1].(*ast.IntegerLiteral)
	require.True(t, ok)
	assert.Equal(t, int64(1), second.Value)
}

func TestFoldAndDesugarComposeOnFunctionBody(t *testing.T) {
	prog := ast.Desugar(ast.Fold(parseProgram(t, "fun double(n) { n * 2 }")))

	require.Len(t, prog.Statements, 1)
	fn, ok := prog.Statements[0].(*ast.FunctionStatement)
	require.True(t, ok)
	require.Len(t, fn.Body.Statements, 1)
	_, ok = fn.Body.Statements[0].(*ast.ExpressionStatement)
	assert.True(t, ok)
}
