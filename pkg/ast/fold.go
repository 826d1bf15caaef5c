package ast

import "github.com/kristofer/flux/pkg/diagnostics"

// Fold performs constant folding over literal arithmetic, comparison, and
// logical expressions. It returns a new Program; the input is left
// untouched. Folding only rewrites InfixExpression/PrefixExpression nodes
// whose operands are themselves literals after recursively folding their
// subtrees — it never reaches into control flow, matching the evaluator
// restrictions of the module-constant evaluator in pkg/compiler.
func Fold(prog *Program) *Program {
	out := &Program{SpanVal: prog.SpanVal}
	for _, s := range prog.Statements {
		out.Statements = append(out.Statements, foldStatement(s))
	}
	return out
}

func foldStatement(stmt Statement) Statement {
	switch s := stmt.(type) {
	case *LetStatement:
		return &LetStatement{SpanVal: s.SpanVal, Name: s.Name, NameSpan: s.NameSpan, Value: foldExpr(s.Value)}
	case *ReturnStatement:
		if s.Value == nil {
			return s
		}
		return &ReturnStatement{SpanVal: s.SpanVal, Value: foldExpr(s.Value)}
	case *ExpressionStatement:
		if s.Expression == nil {
			return s
		}
		return &ExpressionStatement{SpanVal: s.SpanVal, Expression: foldExpr(s.Expression)}
	case *FunctionStatement:
		return &FunctionStatement{SpanVal: s.SpanVal, Name: s.Name, NameSpan: s.NameSpan, Params: s.Params, Body: foldBlock(s.Body)}
	case *ModuleStatement:
		body := make([]Statement, len(s.Body))
		for i, st := range s.Body {
			body[i] = foldStatement(st)
		}
		return &ModuleStatement{SpanVal: s.SpanVal, Name: s.Name, Body: body}
	default:
		return stmt
	}
}

func foldBlock(block *BlockStatement) *BlockStatement {
	out := &BlockStatement{SpanVal: block.SpanVal}
	for _, s := range block.Statements {
		out.Statements = append(out.Statements, foldStatement(s))
	}
	return out
}

func foldExpr(expr Expression) Expression {
	switch e := expr.(type) {
	case *PrefixExpression:
		right := foldExpr(e.Right)
		if v, ok := foldPrefix(e.Operator, right); ok {
			return v
		}
		return &PrefixExpression{SpanVal: e.SpanVal, Operator: e.Operator, Right: right}
	case *InfixExpression:
		left := foldExpr(e.Left)
		right := foldExpr(e.Right)
		if v, ok := foldInfix(e.Operator, left, right); ok {
			return v
		}
		return &InfixExpression{SpanVal: e.SpanVal, Left: left, Operator: e.Operator, Right: right}
	case *IfExpression:
		alt := e.Alternative
		if alt != nil {
			alt = foldBlock(alt)
		}
		return &IfExpression{SpanVal: e.SpanVal, Condition: foldExpr(e.Condition), Consequence: foldBlock(e.Consequence), Alternative: alt}
	case *CallExpression:
		args := make([]Expression, len(e.Arguments))
		for i, a := range e.Arguments {
			args[i] = foldExpr(a)
		}
		return &CallExpression{SpanVal: e.SpanVal, Function: foldExpr(e.Function), Arguments: args}
	case *FunctionLiteral:
		return &FunctionLiteral{SpanVal: e.SpanVal, Params: e.Params, Body: foldBlock(e.Body), Name: e.Name}
	case *ArrayLiteral:
		els := make([]Expression, len(e.Elements))
		for i, el := range e.Elements {
			els[i] = foldExpr(el)
		}
		return &ArrayLiteral{SpanVal: e.SpanVal, Elements: els}
	case *ListLiteral:
		els := make([]Expression, len(e.Elements))
		for i, el := range e.Elements {
			els[i] = foldExpr(el)
		}
		return &ListLiteral{SpanVal: e.SpanVal, Elements: els}
	default:
		return expr
	}
}

func foldPrefix(op string, right Expression) (Expression, bool) {
	switch r := right.(type) {
	case *IntegerLiteral:
		if op == "-" {
			return &IntegerLiteral{SpanVal: r.SpanVal, Value: -r.Value}, true
		}
	case *FloatLiteral:
		if op == "-" {
			return &FloatLiteral{SpanVal: r.SpanVal, Value: -r.Value}, true
		}
	case *BooleanLiteral:
		if op == "!" {
			return &BooleanLiteral{SpanVal: r.SpanVal, Value: !r.Value}, true
		}
	}
	return nil, false
}

func foldInfix(op string, left, right Expression) (Expression, bool) {
	li, lIsInt := left.(*IntegerLiteral)
	ri, rIsInt := right.(*IntegerLiteral)
	if lIsInt && rIsInt {
		return foldIntInfix(op, li, ri)
	}
	lf, lIsFloat := left.(*FloatLiteral)
	rf, rIsFloat := right.(*FloatLiteral)
	if (lIsFloat || lIsInt) && (rIsFloat || rIsInt) {
		var a, b float64
		if lIsFloat {
			a = lf.Value
		} else {
			a = float64(li.Value)
		}
		if rIsFloat {
			b = rf.Value
		} else {
			b = float64(ri.Value)
		}
		return foldFloatInfix(op, left.Span(), a, b)
	}
	if ls, ok := left.(*StringLiteral); ok {
		if rs, ok := right.(*StringLiteral); ok && op == "+" {
			return &StringLiteral{SpanVal: ls.SpanVal, Value: ls.Value + rs.Value}, true
		}
	}
	if lb, ok := left.(*BooleanLiteral); ok {
		if rb, ok := right.(*BooleanLiteral); ok {
			switch op {
			case "&&":
				return &BooleanLiteral{SpanVal: lb.SpanVal, Value: lb.Value && rb.Value}, true
			case "||":
				return &BooleanLiteral{SpanVal: lb.SpanVal, Value: lb.Value || rb.Value}, true
			case "==":
				return &BooleanLiteral{SpanVal: lb.SpanVal, Value: lb.Value == rb.Value}, true
			}
		}
	}
	return nil, false
}

func foldIntInfix(op string, l, r *IntegerLiteral) (Expression, bool) {
	switch op {
	case "+":
		return &IntegerLiteral{SpanVal: l.SpanVal, Value: l.Value + r.Value}, true
	case "-":
		return &IntegerLiteral{SpanVal: l.SpanVal, Value: l.Value - r.Value}, true
	case "*":
		return &IntegerLiteral{SpanVal: l.SpanVal, Value: l.Value * r.Value}, true
	case "/":
		if r.Value == 0 {
			return nil, false
		}
		return &IntegerLiteral{SpanVal: l.SpanVal, Value: l.Value / r.Value}, true
	case "%":
		if r.Value == 0 {
			return nil, false
		}
		return &IntegerLiteral{SpanVal: l.SpanVal, Value: l.Value % r.Value}, true
	case "==":
		return &BooleanLiteral{SpanVal: l.SpanVal, Value: l.Value == r.Value}, true
	case "!=":
		return &BooleanLiteral{SpanVal: l.SpanVal, Value: l.Value != r.Value}, true
	case ">":
		return &BooleanLiteral{SpanVal: l.SpanVal, Value: l.Value > r.Value}, true
	case ">=":
		return &BooleanLiteral{SpanVal: l.SpanVal, Value: l.Value >= r.Value}, true
	case "<":
		return &BooleanLiteral{SpanVal: l.SpanVal, Value: l.Value < r.Value}, true
	case "<=":
		return &BooleanLiteral{SpanVal: l.SpanVal, Value: l.Value <= r.Value}, true
	default:
		return nil, false
	}
}

func foldFloatInfix(op string, span diagnostics.Span, a, b float64) (Expression, bool) {
	switch op {
	case "+":
		return &FloatLiteral{SpanVal: span, Value: a + b}, true
	case "-":
		return &FloatLiteral{SpanVal: span, Value: a - b}, true
	case "*":
		return &FloatLiteral{SpanVal: span, Value: a * b}, true
	case "/":
		if b == 0 {
			return nil, false
		}
		return &FloatLiteral{SpanVal: span, Value: a / b}, true
	case "==":
		return &BooleanLiteral{SpanVal: span, Value: a == b}, true
	case "!=":
		return &BooleanLiteral{SpanVal: span, Value: a != b}, true
	case ">":
		return &BooleanLiteral{SpanVal: span, Value: a > b}, true
	case ">=":
		return &BooleanLiteral{SpanVal: span, Value: a >= b}, true
	case "<":
		return &BooleanLiteral{SpanVal: span, Value: a < b}, true
	case "<=":
		return &BooleanLiteral{SpanVal: span, Value: a <= b}, true
	default:
		return nil, false
	}
}
