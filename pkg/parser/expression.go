package parser

import (
	"github.com/kristofer/flux/pkg/ast"
	"github.com/kristofer/flux/pkg/diagnostics"
	"github.com/kristofer/flux/pkg/token"
)

// parseExpression is the Pratt-parser core: parse a prefix expression,
// then keep extending it leftward with infix/postfix operators as long as
// the next operator binds tighter than precedence.
func (p *Parser) parseExpression(precedence Precedence) ast.Expression {
	prefix, ok := p.prefixParseFns[p.curTok.Type]
	if !ok {
		p.addError(diagnostics.ExpectedExpression, []string{p.curTok.Type.String()},
			diagnostics.NewSpan(p.curPos(), p.curEndPos()))
		return nil
	}
	left := prefix()
	if left == nil {
		return nil
	}

	for !p.peekIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix, ok := p.infixParseFns[p.peekTok.Type]
		if !ok {
			return left
		}
		p.nextToken()
		left = infix(left)
		if left == nil {
			return nil
		}
	}
	return left
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	start := p.curPos()
	operator := p.curTok.Literal
	p.nextToken()
	right := p.parseExpression(PrefixPrec)
	if right == nil {
		return nil
	}
	return &ast.PrefixExpression{SpanVal: p.spanFrom(start), Operator: operator, Right: right}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	start := left.Span().Start
	operator := p.curTok.Literal
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.InfixExpression{SpanVal: p.spanFrom(start), Left: left, Operator: operator, Right: right}
}

// parseConsExpression handles `::`, which is right-associative: parsing the
// right side at ConsPrec-1 lets a chain `a :: b :: c` recurse into
// `a :: (b :: c)` instead of grouping left.
func (p *Parser) parseConsExpression(left ast.Expression) ast.Expression {
	start := left.Span().Start
	p.nextToken()
	tail := p.parseExpression(ConsPrec - 1)
	if tail == nil {
		return nil
	}
	return &ast.Cons{SpanVal: p.spanFrom(start), Head: left, Tail: tail}
}

// parsePipeExpression desugars `value |> call` into a normal call with
// value prepended as the first argument, and `value |> target` (no
// parenthesized call) into a single-argument call of target. This mirrors
// what ast.Desugar does for any pipe expression that slips through
// undesugared, so both paths agree on the lowered form.
func (p *Parser) parsePipeExpression(left ast.Expression) ast.Expression {
	start := left.Span().Start
	p.nextToken()
	target := p.parseExpression(PipePrec)
	if target == nil {
		return nil
	}
	if call, ok := target.(*ast.CallExpression); ok {
		args := append([]ast.Expression{left}, call.Arguments...)
		return &ast.CallExpression{SpanVal: p.spanFrom(start), Function: call.Function, Arguments: args}
	}
	return &ast.CallExpression{SpanVal: p.spanFrom(start), Function: target, Arguments: []ast.Expression{left}}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(Lowest)
	if expr == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	start := fn.Span().Start
	args := p.parseExpressionList(token.RPAREN)
	if args == nil && !p.curIs(token.RPAREN) {
		return nil
	}
	return &ast.CallExpression{SpanVal: p.spanFrom(start), Function: fn, Arguments: args}
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	start := left.Span().Start
	p.nextToken()
	index := p.parseExpression(Lowest)
	if index == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return &ast.IndexExpression{SpanVal: p.spanFrom(start), Left: left, Index: index}
}

func (p *Parser) parseMemberAccess(left ast.Expression) ast.Expression {
	start := left.Span().Start
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	return &ast.MemberAccess{SpanVal: p.spanFrom(start), Object: left, Name: p.curTok.Literal}
}

// parseExpressionList parses a comma-separated expression list up to (and
// consuming) end, used for call arguments, list elements, and array
// elements alike.
func (p *Parser) parseExpressionList(end token.Type) []ast.Expression {
	var list []ast.Expression
	if p.peekIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	first := p.parseExpression(Lowest)
	if first == nil {
		return nil
	}
	list = append(list, first)

	for p.peekIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		expr := p.parseExpression(Lowest)
		if expr == nil {
			return nil
		}
		list = append(list, expr)
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseListLiteral() ast.Expression {
	start := p.curPos()
	if p.peekIs(token.RBRACKET) {
		p.nextToken()
		return &ast.EmptyListLiteral{SpanVal: p.spanFrom(start)}
	}
	elements := p.parseExpressionList(token.RBRACKET)
	if elements == nil {
		return nil
	}
	return &ast.ListLiteral{SpanVal: p.spanFrom(start), Elements: elements}
}

// parseArrayLiteral parses `#[a, b, c]`, the Array container's literal
// form (distinct from `[a, b, c]`, which builds a cons-cell list).
func (p *Parser) parseArrayLiteral() ast.Expression {
	start := p.curPos()
	if p.peekIs(token.RBRACKET) {
		p.nextToken()
		return &ast.ArrayLiteral{SpanVal: p.spanFrom(start)}
	}
	elements := p.parseExpressionList(token.RBRACKET)
	if elements == nil {
		return nil
	}
	return &ast.ArrayLiteral{SpanVal: p.spanFrom(start), Elements: elements}
}

func (p *Parser) parseHashLiteral() ast.Expression {
	start := p.curPos()
	h := &ast.HashLiteral{}

	if p.peekIs(token.RBRACE) {
		p.nextToken()
		h.SpanVal = p.spanFrom(start)
		return h
	}

	for {
		p.nextToken()
		key := p.parseExpression(Lowest)
		if key == nil {
			return nil
		}
		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		value := p.parseExpression(Lowest)
		if value == nil {
			return nil
		}
		h.Keys = append(h.Keys, key)
		h.Values = append(h.Values, value)

		if p.peekIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	h.SpanVal = p.spanFrom(start)
	return h
}

func (p *Parser) parseSomeExpression() ast.Expression {
	start := p.curPos()
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression(Lowest)
	if value == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return &ast.SomeExpression{SpanVal: p.spanFrom(start), Value: value}
}

func (p *Parser) parseLeftExpression() ast.Expression {
	start := p.curPos()
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression(Lowest)
	if value == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return &ast.LeftExpression{SpanVal: p.spanFrom(start), Value: value}
}

func (p *Parser) parseRightExpression() ast.Expression {
	start := p.curPos()
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression(Lowest)
	if value == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return &ast.RightExpression{SpanVal: p.spanFrom(start), Value: value}
}

func (p *Parser) parseIfExpression() ast.Expression {
	start := p.curPos()
	p.nextToken()
	condition := p.parseExpression(Lowest)
	if condition == nil {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	consequence := p.parseBlockStatement()

	var alternative *ast.BlockStatement
	if p.peekIs(token.ELSE) {
		p.nextToken()
		if p.peekIs(token.IF) {
			p.nextToken()
			elseIf := p.parseIfExpression()
			if elseIf == nil {
				return nil
			}
			alternative = &ast.BlockStatement{
				SpanVal:    elseIf.Span(),
				Statements: []ast.Statement{&ast.ExpressionStatement{SpanVal: elseIf.Span(), Expression: elseIf}},
			}
		} else {
			if !p.expectPeek(token.LBRACE) {
				return nil
			}
			alternative = p.parseBlockStatement()
		}
	}
	return &ast.IfExpression{SpanVal: p.spanFrom(start), Condition: condition, Consequence: consequence, Alternative: alternative}
}

func (p *Parser) parseFunctionLiteral() ast.Expression {
	start := p.curPos()
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	params := p.parseFunctionParameters()
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	body := p.parseBlockStatement()
	return &ast.FunctionLiteral{SpanVal: p.spanFrom(start), Params: params, Body: body}
}

// parseLambdaLiteral parses the shorthand `\x -> expr` and `\(x, y) -> expr`
// forms, wrapping the single expression body in an implicit one-statement
// block: the compiler's pop-to-return peephole (see compileFunctionLiteral)
// turns a trailing expression statement into the function's return value,
// so no separate "expression-bodied function" case is needed downstream.
func (p *Parser) parseLambdaLiteral() ast.Expression {
	start := p.curPos()
	p.nextToken()

	var params []*ast.Identifier
	if p.curIs(token.LPAREN) {
		params = p.parseFunctionParameters()
		p.nextToken()
	} else if p.curIs(token.IDENT) {
		params = append(params, &ast.Identifier{SpanVal: diagnostics.NewSpan(p.curPos(), p.curEndPos()), Value: p.curTok.Literal})
		p.nextToken()
	} else {
		p.addError(diagnostics.LambdaParameterError, []string{p.curTok.Type.String()}, diagnostics.NewSpan(p.curPos(), p.curEndPos()))
		return nil
	}

	if !p.curIs(token.ARROW) {
		p.addError(diagnostics.LambdaSyntaxError, []string{"expected '->' after lambda parameters"}, diagnostics.NewSpan(p.curPos(), p.curEndPos()))
		return nil
	}
	p.nextToken()

	bodyStart := p.curPos()
	bodyExpr := p.parseExpression(Lowest)
	if bodyExpr == nil {
		p.addError(diagnostics.LambdaBodyError, nil, diagnostics.NewSpan(bodyStart, p.curEndPos()))
		return nil
	}
	body := &ast.BlockStatement{
		SpanVal:    p.spanFrom(bodyStart),
		Statements: []ast.Statement{&ast.ExpressionStatement{SpanVal: bodyExpr.Span(), Expression: bodyExpr}},
	}
	return &ast.FunctionLiteral{SpanVal: p.spanFrom(start), Params: params, Body: body}
}

func (p *Parser) parseMatchExpression() ast.Expression {
	start := p.curPos()
	p.nextToken()
	scrutinee := p.parseExpression(Lowest)
	if scrutinee == nil {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()

	var arms []*ast.MatchArm
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		arm := p.parseMatchArm()
		if arm != nil {
			arms = append(arms, arm)
		}
		if p.peekIs(token.SEMICOLON) {
			p.nextToken()
		}
		p.nextToken()
	}
	if len(arms) == 0 {
		p.addError(diagnostics.EmptyMatch, nil, p.spanFrom(start))
	}
	return &ast.MatchExpression{SpanVal: p.spanFrom(start), Scrutinee: scrutinee, Arms: arms}
}

func (p *Parser) parseMatchArm() *ast.MatchArm {
	start := p.curPos()
	pattern := p.parsePattern()
	if pattern == nil {
		p.synchronize()
		return nil
	}
	heads := []ast.Pattern{pattern}
	for p.peekIs(token.CONS) {
		p.nextToken()
		p.nextToken()
		next := p.parsePattern()
		if next == nil {
			p.synchronize()
			return nil
		}
		heads = append(heads, next)
	}
	pattern = heads[len(heads)-1]
	for i := len(heads) - 2; i >= 0; i-- {
		pattern = &ast.ConsPattern{SpanVal: p.spanFrom(start), Head: heads[i], Tail: pattern}
	}

	var guard ast.Expression
	if p.peekIs(token.IF) {
		p.nextToken()
		p.nextToken()
		guard = p.parseExpression(Lowest)
		if guard == nil {
			return nil
		}
	}

	if !p.expectPeek(token.ARROW) {
		return nil
	}
	p.nextToken()
	body := p.parseExpression(Lowest)
	if body == nil {
		return nil
	}
	return &ast.MatchArm{SpanVal: p.spanFrom(start), Pattern: pattern, Guard: guard, Body: body}
}

// parsePattern parses one match-arm pattern. `[a, b]`-style bracket sugar
// desugars here (not in a later pass) into nested ConsPattern nodes
// terminated by EmptyListPattern, the same way list literals desugar to
// Cons chains.
func (p *Parser) parsePattern() ast.Pattern {
	start := p.curPos()
	switch p.curTok.Type {
	case token.UNDERSCORE:
		return &ast.WildcardPattern{SpanVal: p.spanFrom(start)}

	case token.IDENT:
		return &ast.IdentifierPattern{SpanVal: p.spanFrom(start), Name: p.curTok.Literal}

	case token.NONE:
		return &ast.NonePattern{SpanVal: p.spanFrom(start)}

	case token.SOME:
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		p.nextToken()
		inner := p.parsePattern()
		if inner == nil {
			return nil
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return &ast.SomePattern{SpanVal: p.spanFrom(start), Inner: inner}

	case token.LEFT:
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		p.nextToken()
		inner := p.parsePattern()
		if inner == nil {
			return nil
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return &ast.LeftPattern{SpanVal: p.spanFrom(start), Inner: inner}

	case token.RIGHT:
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		p.nextToken()
		inner := p.parsePattern()
		if inner == nil {
			return nil
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return &ast.RightPattern{SpanVal: p.spanFrom(start), Inner: inner}

	case token.LBRACKET:
		return p.parseBracketPattern(start)

	case token.INT, token.FLOAT, token.STRING, token.TRUE, token.FALSE, token.MINUS:
		expr := p.parseExpression(Lowest)
		if expr == nil {
			return nil
		}
		return &ast.LiteralPattern{SpanVal: p.spanFrom(start), Expression: expr}

	default:
		p.addError(diagnostics.InvalidPatternLegacy, []string{p.curTok.Type.String()}, diagnostics.NewSpan(p.curPos(), p.curEndPos()))
		return nil
	}
}

func (p *Parser) parseBracketPattern(start diagnostics.Position) ast.Pattern {
	if p.peekIs(token.RBRACKET) {
		p.nextToken()
		return &ast.EmptyListPattern{SpanVal: p.spanFrom(start)}
	}
	p.nextToken()

	var elements []ast.Pattern
	first := p.parsePattern()
	if first == nil {
		return nil
	}
	elements = append(elements, first)
	for p.peekIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		next := p.parsePattern()
		if next == nil {
			return nil
		}
		elements = append(elements, next)
	}

	var tail ast.Pattern = &ast.EmptyListPattern{SpanVal: p.spanFrom(start)}
	if p.peekIs(token.CONS) {
		p.nextToken()
		p.nextToken()
		tail = p.parsePattern()
		if tail == nil {
			return nil
		}
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}

	span := p.spanFrom(start)
	for i := len(elements) - 1; i >= 0; i-- {
		tail = &ast.ConsPattern{SpanVal: span, Head: elements[i], Tail: tail}
	}
	return tail
}
