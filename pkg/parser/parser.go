// Package parser implements the Flux language parser.
//
// The parser turns a token stream (from pkg/lexer) into the AST defined in
// pkg/ast. It is a recursive-descent, Pratt-style (operator precedence
// climbing) parser: statements dispatch on the leading token, and
// expressions are parsed via a table of prefix ("nud") and infix ("led")
// functions keyed by token type, combined with the precedence table in
// precedence.go.
//
// Token Management:
//
// The parser keeps a two-token lookahead window at all times:
//   - curTok: the token currently being examined
//   - peekTok: the next token
//
// This lets the parser decide what to do (e.g. is `name` followed by `=`,
// meaning reassignment, or something else?) without consuming a token it
// might need to back out of.
//
// Error Handling:
//
// Parse errors are collected as *diagnostics.Diagnostic values rather than
// aborting at the first one, so a single pass can report every syntax
// error in a file. After an unrecoverable error inside a statement, the
// parser resynchronizes by skipping tokens until it finds one that could
// plausibly start a new statement.
package parser

import (
	"strconv"
	"strings"

	"github.com/kristofer/flux/pkg/ast"
	"github.com/kristofer/flux/pkg/diagnostics"
	"github.com/kristofer/flux/pkg/lexer"
	"github.com/kristofer/flux/pkg/token"
)

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser parses one source file's worth of tokens into an *ast.Program.
// It is stateful and single-use: create a new Parser per file.
type Parser struct {
	l    *lexer.Lexer
	file string

	curTok  token.Token
	peekTok token.Token

	diagnostics []*diagnostics.Diagnostic

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a Parser over source, tagging any diagnostics with file.
func New(file, source string) *Parser {
	p := &Parser{l: lexer.New(source), file: file}

	p.prefixParseFns = map[token.Type]prefixParseFn{
		token.IDENT:         p.parseIdentifier,
		token.INT:           p.parseIntegerLiteral,
		token.FLOAT:         p.parseFloatLiteral,
		token.STRING:        p.parseStringLiteral,
		token.INTERP_STRING: p.parseInterpolatedString,
		token.TRUE:          p.parseBooleanLiteral,
		token.FALSE:         p.parseBooleanLiteral,
		token.NONE:          p.parseNoneLiteral,
		token.SOME:          p.parseSomeExpression,
		token.LEFT:          p.parseLeftExpression,
		token.RIGHT:         p.parseRightExpression,
		token.BANG:          p.parsePrefixExpression,
		token.MINUS:         p.parsePrefixExpression,
		token.LPAREN:        p.parseGroupedExpression,
		token.LBRACKET:      p.parseListLiteral,
		token.ARRAY_START:   p.parseArrayLiteral,
		token.LBRACE:        p.parseHashLiteral,
		token.FUN:           p.parseFunctionLiteral,
		token.LAMBDA:        p.parseLambdaLiteral,
		token.MATCH:         p.parseMatchExpression,
		token.IF:            p.parseIfExpression,
	}

	p.infixParseFns = map[token.Type]infixParseFn{
		token.PLUS:     p.parseInfixExpression,
		token.MINUS:    p.parseInfixExpression,
		token.ASTERISK: p.parseInfixExpression,
		token.SLASH:    p.parseInfixExpression,
		token.PERCENT:  p.parseInfixExpression,
		token.EQ:       p.parseInfixExpression,
		token.NOT_EQ:   p.parseInfixExpression,
		token.LT:       p.parseInfixExpression,
		token.GT:       p.parseInfixExpression,
		token.LT_EQ:    p.parseInfixExpression,
		token.GT_EQ:    p.parseInfixExpression,
		token.AND:      p.parseInfixExpression,
		token.OR:       p.parseInfixExpression,
		token.CONS:     p.parseConsExpression,
		token.PIPE:     p.parsePipeExpression,
		token.LPAREN:   p.parseCallExpression,
		token.LBRACKET: p.parseIndexExpression,
		token.DOT:      p.parseMemberAccess,
	}

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.l.NextToken()
}

func (p *Parser) curIs(tt token.Type) bool  { return p.curTok.Type == tt }
func (p *Parser) peekIs(tt token.Type) bool { return p.peekTok.Type == tt }

// expectPeek consumes peekTok if it has type tt, reporting UnexpectedToken
// and leaving the cursor in place otherwise.
func (p *Parser) expectPeek(tt token.Type) bool {
	if p.peekIs(tt) {
		p.nextToken()
		return true
	}
	p.peekError(tt)
	return false
}

func (p *Parser) curPos() diagnostics.Position {
	return diagnostics.Position{Line: p.curTok.Line, Column: p.curTok.Column}
}

func (p *Parser) curEndPos() diagnostics.Position {
	return diagnostics.Position{Line: p.curTok.Line, Column: p.curTok.Column + tokenWidth(p.curTok)}
}

func tokenWidth(t token.Token) int {
	if len(t.Literal) > 0 {
		return len(t.Literal)
	}
	return 1
}

// spanFrom builds a Span running from start to the end of the token the
// parser most recently consumed (curTok). Call it once the construct being
// spanned has been fully parsed.
func (p *Parser) spanFrom(start diagnostics.Position) diagnostics.Span {
	return diagnostics.NewSpan(start, p.curEndPos())
}

func (p *Parser) addError(ec diagnostics.ErrorCode, values []string, span diagnostics.Span) {
	p.diagnostics = append(p.diagnostics, diagnostics.MakeError(ec, values, p.file, span))
}

func (p *Parser) peekError(want token.Type) {
	p.addError(diagnostics.UnexpectedToken, []string{p.peekTok.Type.String(), want.String()},
		diagnostics.NewSpan(diagnostics.Position{Line: p.peekTok.Line, Column: p.peekTok.Column}, p.curEndPos()))
}

// Diagnostics returns every error collected during Parse.
func (p *Parser) Diagnostics() []*diagnostics.Diagnostic { return p.diagnostics }

// Parse consumes the whole token stream and returns the resulting Program.
// Diagnostics() should be checked before trusting the result: a program
// with parse errors is still returned (partially), since a single pass
// should surface as many problems as possible rather than stop at the
// first one.
func (p *Parser) Parse() *ast.Program {
	start := p.curPos()
	prog := &ast.Program{}
	for !p.curIs(token.EOF) {
		stmt := p.parseTopLevelStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		p.nextToken()
	}
	prog.SpanVal = p.spanFrom(start)
	return prog
}

func (p *Parser) parseTopLevelStatement() ast.Statement {
	switch p.curTok.Type {
	case token.MODULE:
		return p.parseModuleStatement()
	case token.IMPORT:
		return p.parseImportStatement()
	default:
		return p.parseStatement()
	}
}

// parseStatement parses one statement inside a function or block body.
// Module and import declarations are only legal at the top of a file, so
// they are dispatched from parseTopLevelStatement instead of here.
func (p *Parser) parseStatement() ast.Statement {
	switch {
	case p.curIs(token.LET):
		return p.parseLetStatement()
	case p.curIs(token.RETURN):
		return p.parseReturnStatement()
	case p.curIs(token.FUN) && p.peekIs(token.IDENT):
		return p.parseFunctionStatement()
	case p.curIs(token.IDENT) && p.peekIs(token.ASSIGN):
		return p.parseAssignStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseLetStatement() ast.Statement {
	start := p.curPos()
	if !p.expectPeek(token.IDENT) {
		p.synchronize()
		return nil
	}
	name := p.curTok.Literal
	nameSpan := diagnostics.NewSpan(p.curPos(), p.curEndPos())

	if !p.expectPeek(token.ASSIGN) {
		p.synchronize()
		return nil
	}
	p.nextToken()

	value := p.parseExpression(Lowest)
	if value == nil {
		p.synchronize()
		return nil
	}
	if p.peekIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.LetStatement{SpanVal: p.spanFrom(start), Name: name, NameSpan: nameSpan, Value: value}
}

// parseAssignStatement parses `name = value;`. Flux bindings are immutable,
// but this still has to parse so the compiler can reject it with a precise
// span (see compileAssignStatement) instead of the parser surfacing a raw
// syntax error for otherwise well-formed code.
func (p *Parser) parseAssignStatement() ast.Statement {
	start := p.curPos()
	name := p.curTok.Literal
	nameSpan := diagnostics.NewSpan(p.curPos(), p.curEndPos())

	p.nextToken() // consume identifier, curTok == ASSIGN
	p.nextToken() // consume '=', curTok == start of value

	value := p.parseExpression(Lowest)
	if value == nil {
		p.synchronize()
		return nil
	}
	if p.peekIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.AssignStatement{SpanVal: p.spanFrom(start), Name: name, NameSpan: nameSpan, Value: value}
}

func (p *Parser) parseReturnStatement() ast.Statement {
	start := p.curPos()
	p.nextToken()

	if p.curIs(token.SEMICOLON) {
		return &ast.ReturnStatement{SpanVal: p.spanFrom(start)}
	}

	value := p.parseExpression(Lowest)
	if value == nil {
		p.synchronize()
		return nil
	}
	if p.peekIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.ReturnStatement{SpanVal: p.spanFrom(start), Value: value}
}

func (p *Parser) parseFunctionStatement() ast.Statement {
	start := p.curPos()
	if !p.expectPeek(token.IDENT) {
		p.synchronize()
		return nil
	}
	name := p.curTok.Literal
	nameSpan := diagnostics.NewSpan(p.curPos(), p.curEndPos())

	if !p.expectPeek(token.LPAREN) {
		p.synchronize()
		return nil
	}
	params := p.parseFunctionParameters()

	if !p.expectPeek(token.LBRACE) {
		p.synchronize()
		return nil
	}
	body := p.parseBlockStatement()

	return &ast.FunctionStatement{SpanVal: p.spanFrom(start), Name: name, NameSpan: nameSpan, Params: params, Body: body}
}

func (p *Parser) parseFunctionParameters() []*ast.Identifier {
	var params []*ast.Identifier
	if p.peekIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	p.nextToken()
	params = append(params, &ast.Identifier{SpanVal: diagnostics.NewSpan(p.curPos(), p.curEndPos()), Value: p.curTok.Literal})
	for p.peekIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		params = append(params, &ast.Identifier{SpanVal: diagnostics.NewSpan(p.curPos(), p.curEndPos()), Value: p.curTok.Literal})
	}
	if !p.expectPeek(token.RPAREN) {
		return params
	}
	return params
}

func (p *Parser) parseModuleStatement() ast.Statement {
	start := p.curPos()
	if !p.expectPeek(token.IDENT) {
		p.synchronize()
		return nil
	}
	name := p.curTok.Literal
	if !p.expectPeek(token.LBRACE) {
		p.synchronize()
		return nil
	}
	p.nextToken()

	var body []ast.Statement
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			body = append(body, stmt)
		}
		p.nextToken()
	}
	return &ast.ModuleStatement{SpanVal: p.spanFrom(start), Name: name, Body: body}
}

// parseImportStatement parses `import Mod` or `import Mod as Alias`; no
// trailing semicolon is required.
func (p *Parser) parseImportStatement() ast.Statement {
	start := p.curPos()
	if !p.expectPeek(token.IDENT) {
		p.synchronize()
		return nil
	}
	module := p.curTok.Literal
	alias := module

	if p.peekIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			p.synchronize()
			return nil
		}
		alias = p.curTok.Literal
	}
	if p.peekIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.ImportStatement{SpanVal: p.spanFrom(start), Module: module, Alias: alias}
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	start := p.curPos() // curTok == '{'
	block := &ast.BlockStatement{}
	p.nextToken()

	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	block.SpanVal = p.spanFrom(start)
	return block
}

// parseExpressionStatement parses a bare expression used as a statement,
// consuming an optional trailing semicolon.
func (p *Parser) parseExpressionStatement() ast.Statement {
	start := p.curPos()
	expr := p.parseExpression(Lowest)
	if expr == nil {
		p.synchronize()
		return nil
	}
	if p.peekIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.ExpressionStatement{SpanVal: p.spanFrom(start), Expression: expr}
}

// synchronize advances past tokens until one that could plausibly begin a
// new statement, so one malformed statement doesn't cascade into spurious
// errors for the rest of the file.
func (p *Parser) synchronize() {
	for !p.curIs(token.EOF) {
		if p.curIs(token.SEMICOLON) {
			return
		}
		switch p.peekTok.Type {
		case token.LET, token.FUN, token.RETURN, token.IF, token.MATCH, token.IMPORT, token.MODULE, token.RBRACE:
			return
		}
		p.nextToken()
	}
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{SpanVal: diagnostics.NewSpan(p.curPos(), p.curEndPos()), Value: p.curTok.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	span := diagnostics.NewSpan(p.curPos(), p.curEndPos())
	v, err := strconv.ParseInt(p.curTok.Literal, 10, 64)
	if err != nil {
		p.addError(diagnostics.InvalidInteger, []string{p.curTok.Literal}, span)
		return nil
	}
	return &ast.IntegerLiteral{SpanVal: span, Value: v}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	span := diagnostics.NewSpan(p.curPos(), p.curEndPos())
	v, err := strconv.ParseFloat(p.curTok.Literal, 64)
	if err != nil {
		p.addError(diagnostics.InvalidFloat, []string{p.curTok.Literal}, span)
		return nil
	}
	return &ast.FloatLiteral{SpanVal: span, Value: v}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{SpanVal: diagnostics.NewSpan(p.curPos(), p.curEndPos()), Value: p.curTok.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{SpanVal: diagnostics.NewSpan(p.curPos(), p.curEndPos()), Value: p.curIs(token.TRUE)}
}

func (p *Parser) parseNoneLiteral() ast.Expression {
	return &ast.NoneLiteral{SpanVal: diagnostics.NewSpan(p.curPos(), p.curEndPos())}
}

// parseInterpolatedString splits the raw INTERP_STRING literal (which still
// contains its #{...} markers, per lexer.readStringToken) into literal-text
// and expression parts, sub-parsing each #{...} body as a standalone
// expression.
func (p *Parser) parseInterpolatedString() ast.Expression {
	span := diagnostics.NewSpan(p.curPos(), p.curEndPos())
	raw := p.curTok.Literal

	var parts []ast.StringPart
	var lit strings.Builder
	i := 0
	for i < len(raw) {
		if raw[i] == '#' && i+1 < len(raw) && raw[i+1] == '{' {
			if lit.Len() > 0 {
				parts = append(parts, ast.StringPart{Literal: lit.String()})
				lit.Reset()
			}
			depth := 1
			j := i + 2
			for j < len(raw) && depth > 0 {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth > 0 {
					j++
				}
			}
			inner := raw[i+2 : j]
			sub := New(p.file, inner)
			subProg := sub.Parse()
			p.diagnostics = append(p.diagnostics, sub.Diagnostics()...)
			var expr ast.Expression
			if len(subProg.Statements) == 1 {
				if es, ok := subProg.Statements[0].(*ast.ExpressionStatement); ok {
					expr = es.Expression
				}
			}
			if expr == nil {
				p.addError(diagnostics.ExpectedExpression, []string{"interpolation body"}, span)
				expr = &ast.NoneLiteral{SpanVal: span}
			}
			parts = append(parts, ast.StringPart{Expression: expr})
			i = j + 1
			continue
		}
		lit.WriteByte(raw[i])
		i++
	}
	if lit.Len() > 0 {
		parts = append(parts, ast.StringPart{Literal: lit.String()})
	}
	return &ast.InterpolatedStringLiteral{SpanVal: span, Parts: parts}
}
