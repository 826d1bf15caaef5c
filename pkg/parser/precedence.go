package parser

import "github.com/kristofer/flux/pkg/token"

// Precedence orders how tightly an infix/postfix operator binds, lowest
// to highest. Pipe binds loosest so `a |> f |> g(1)` reads left to right;
// call/index/member bind tightest so `f(x).y[0]` parses as expected.
type Precedence int

const (
	Lowest Precedence = iota
	PipePrec
	OrPrec
	AndPrec
	EqualsPrec
	LessGreaterPrec
	ConsPrec
	SumPrec
	ProductPrec
	PrefixPrec
	CallPrec
)

var precedences = map[token.Type]Precedence{
	token.PIPE:     PipePrec,
	token.OR:       OrPrec,
	token.AND:      AndPrec,
	token.EQ:       EqualsPrec,
	token.NOT_EQ:   EqualsPrec,
	token.LT:       LessGreaterPrec,
	token.GT:       LessGreaterPrec,
	token.LT_EQ:    LessGreaterPrec,
	token.GT_EQ:    LessGreaterPrec,
	token.CONS:     ConsPrec,
	token.PLUS:     SumPrec,
	token.MINUS:    SumPrec,
	token.ASTERISK: ProductPrec,
	token.SLASH:    ProductPrec,
	token.PERCENT:  ProductPrec,
	token.LPAREN:   CallPrec,
	token.LBRACKET: CallPrec,
	token.DOT:      CallPrec,
}

// peekPrecedence and curPrecedence look up precedences, defaulting to
// Lowest for any token that never starts an infix/postfix position
// (Cons is right-associative — see parseConsExpression).
func (p *Parser) peekPrecedence() Precedence {
	if prec, ok := precedences[p.peekTok.Type]; ok {
		return prec
	}
	return Lowest
}

func (p *Parser) curPrecedence() Precedence {
	if prec, ok := precedences[p.curTok.Type]; ok {
		return prec
	}
	return Lowest
}
