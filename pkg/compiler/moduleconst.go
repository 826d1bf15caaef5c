package compiler

import (
	"github.com/kristofer/flux/pkg/ast"
	"github.com/kristofer/flux/pkg/diagnostics"
	"github.com/kristofer/flux/pkg/value"
)

// evalModuleConstantsFor evaluates every top-level `let` inside a module
// body at compile time: dependencies are discovered, topologically
// sorted, then each constant expression is evaluated against the
// already-evaluated ones. The results are inlined wherever `Module.name`
// is referenced, so a module constant never costs a runtime global lookup.
func (c *Compiler) evalModuleConstantsFor(moduleName string, body []ast.Statement) {
	lets := map[string]*ast.LetStatement{}
	var order []string
	for _, stmt := range body {
		if ls, ok := stmt.(*ast.LetStatement); ok {
			lets[ls.Name] = ls
			order = append(order, ls.Name)
		}
	}
	if len(lets) == 0 {
		return
	}

	known := map[string]bool{}
	for name := range lets {
		known[name] = true
	}

	deps := map[string][]string{}
	for _, name := range order {
		deps[name] = findConstantRefs(lets[name].Value, known)
	}

	sorted, cycle := topoSortConstants(deps)
	if cycle != nil {
		c.addError(diagnostics.MakeError(diagnostics.CircularDependency, []string{cycle[0]}, c.file, lets[cycle[0]].Span()))
		return
	}

	evaluated := map[string]value.Value{}
	for _, name := range sorted {
		ls := lets[name]
		v, err := evalConstExpr(ls.Value, evaluated)
		if err != nil {
			c.addError(diagnostics.MakeError(err.ec, err.values, c.file, ls.Span()))
			return
		}
		evaluated[name] = v
		c.moduleConstants[moduleName+"."+name] = v
	}
}

func findConstantRefs(expr ast.Expression, known map[string]bool) []string {
	var refs []string
	seen := map[string]bool{}
	var collect func(ast.Expression)
	collect = func(e ast.Expression) {
		switch n := e.(type) {
		case *ast.Identifier:
			if known[n.Value] && !seen[n.Value] {
				seen[n.Value] = true
				refs = append(refs, n.Value)
			}
		case *ast.InfixExpression:
			collect(n.Left)
			collect(n.Right)
		case *ast.PrefixExpression:
			collect(n.Right)
		case *ast.ArrayLiteral:
			for _, el := range n.Elements {
				collect(el)
			}
		case *ast.HashLiteral:
			for i := range n.Keys {
				collect(n.Keys[i])
				collect(n.Values[i])
			}
		case *ast.SomeExpression:
			collect(n.Value)
		}
	}
	collect(expr)
	return refs
}

// topoSortConstants orders names so every dependency precedes its
// dependent, returning the cycle path (innermost name first) on failure.
func topoSortConstants(deps map[string][]string) ([]string, []string) {
	var result []string
	visited := map[string]bool{}
	inProgress := map[string]bool{}

	var visit func(name string) []string
	visit = func(name string) []string {
		if visited[name] {
			return nil
		}
		if inProgress[name] {
			return []string{name}
		}
		inProgress[name] = true
		for _, dep := range deps[name] {
			if cycle := visit(dep); cycle != nil {
				return append(cycle, name)
			}
		}
		delete(inProgress, name)
		visited[name] = true
		result = append(result, name)
		return nil
	}

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	for _, name := range names {
		if cycle := visit(name); cycle != nil {
			return nil, cycle
		}
	}
	return result, nil
}

type constEvalError struct {
	ec     diagnostics.ErrorCode
	values []string
}

// evalConstExpr evaluates a module constant's initializer at compile time;
// only literals, arrays/hashes of constants, references to earlier
// constants in the same module, and basic unary/binary operators over them
// are allowed.
func evalConstExpr(expr ast.Expression, defined map[string]value.Value) (value.Value, *constEvalError) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return value.Integer(e.Value), nil
	case *ast.FloatLiteral:
		return value.Float(e.Value), nil
	case *ast.StringLiteral:
		return value.String(e.Value), nil
	case *ast.BooleanLiteral:
		return value.Boolean(e.Value), nil
	case *ast.NoneLiteral:
		return value.None(), nil
	case *ast.SomeExpression:
		inner, err := evalConstExpr(e.Value, defined)
		if err != nil {
			return value.Value{}, err
		}
		return value.Some(inner), nil
	case *ast.ArrayLiteral:
		items := make([]value.Value, len(e.Elements))
		for i, el := range e.Elements {
			v, err := evalConstExpr(el, defined)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return value.Array(items), nil
	case *ast.HashLiteral:
		h := value.NewHashMap()
		for i := range e.Keys {
			k, err := evalConstExpr(e.Keys[i], defined)
			if err != nil {
				return value.Value{}, err
			}
			if !value.Hashable(k) {
				return value.Value{}, &constEvalError{diagnostics.ConstTypeError, []string{"hash keys must be integers, booleans, or strings"}}
			}
			v, err := evalConstExpr(e.Values[i], defined)
			if err != nil {
				return value.Value{}, err
			}
			h = h.Set(k, v)
		}
		return value.Hash(h), nil
	case *ast.Identifier:
		if v, ok := defined[e.Value]; ok {
			return v, nil
		}
		return value.Value{}, &constEvalError{diagnostics.ConstEvalError, []string{"'" + e.Value + "' is not a module constant"}}
	case *ast.PrefixExpression:
		right, err := evalConstExpr(e.Right, defined)
		if err != nil {
			return value.Value{}, err
		}
		return evalConstUnary(e.Operator, right)
	case *ast.InfixExpression:
		left, err := evalConstExpr(e.Left, defined)
		if err != nil {
			return value.Value{}, err
		}
		right, err := evalConstExpr(e.Right, defined)
		if err != nil {
			return value.Value{}, err
		}
		return evalConstBinary(left, e.Operator, right)
	default:
		return value.Value{}, &constEvalError{diagnostics.ConstInvalidExpr,
			[]string{"only literals, basic operations, and references to module constants are allowed"}}
	}
}

func evalConstUnary(op string, right value.Value) (value.Value, *constEvalError) {
	switch {
	case op == "-" && right.Kind == value.KindInteger:
		return value.Integer(-right.Int), nil
	case op == "-" && right.Kind == value.KindFloat:
		return value.Float(-right.Float), nil
	case op == "!" && right.Kind == value.KindBoolean:
		return value.Boolean(!right.Bool), nil
	}
	return value.Value{}, &constEvalError{diagnostics.ConstTypeError, []string{"cannot apply '" + op + "' to this value at compile time"}}
}

func evalConstBinary(left value.Value, op string, right value.Value) (value.Value, *constEvalError) {
	if left.Kind == value.KindInteger && right.Kind == value.KindInteger {
		a, b := left.Int, right.Int
		switch op {
		case "+":
			return value.Integer(a + b), nil
		case "-":
			return value.Integer(a - b), nil
		case "*":
			return value.Integer(a * b), nil
		case "/":
			if b == 0 {
				return value.Value{}, &constEvalError{diagnostics.ConstDivisionByZero, nil}
			}
			return value.Integer(a / b), nil
		case "%":
			if b == 0 {
				return value.Value{}, &constEvalError{diagnostics.ModuloByZeroCompile, nil}
			}
			return value.Integer(a % b), nil
		case "==":
			return value.Boolean(a == b), nil
		case "!=":
			return value.Boolean(a != b), nil
		case ">":
			return value.Boolean(a > b), nil
		case ">=":
			return value.Boolean(a >= b), nil
		case "<":
			return value.Boolean(a < b), nil
		case "<=":
			return value.Boolean(a <= b), nil
		}
	}
	if isConstNumeric(left) && isConstNumeric(right) {
		a, b := constAsFloat(left), constAsFloat(right)
		switch op {
		case "+":
			return value.Float(a + b), nil
		case "-":
			return value.Float(a - b), nil
		case "*":
			return value.Float(a * b), nil
		case "/":
			return value.Float(a / b), nil
		case "==":
			return value.Boolean(a == b), nil
		case "!=":
			return value.Boolean(a != b), nil
		case ">":
			return value.Boolean(a > b), nil
		case ">=":
			return value.Boolean(a >= b), nil
		case "<":
			return value.Boolean(a < b), nil
		case "<=":
			return value.Boolean(a <= b), nil
		}
	}
	if left.Kind == value.KindString && right.Kind == value.KindString && op == "+" {
		return value.String(left.Str + right.Str), nil
	}
	if left.Kind == value.KindBoolean && right.Kind == value.KindBoolean {
		switch op {
		case "&&":
			return value.Boolean(left.Bool && right.Bool), nil
		case "||":
			return value.Boolean(left.Bool || right.Bool), nil
		case "==":
			return value.Boolean(left.Bool == right.Bool), nil
		case "!=":
			return value.Boolean(left.Bool != right.Bool), nil
		}
	}
	return value.Value{}, &constEvalError{diagnostics.ConstTypeError, []string{"type mismatch for operator '" + op + "'"}}
}

func isConstNumeric(v value.Value) bool { return v.Kind == value.KindInteger || v.Kind == value.KindFloat }

func constAsFloat(v value.Value) float64 {
	if v.Kind == value.KindInteger {
		return float64(v.Int)
	}
	return v.Float
}
