package compiler

import (
	"github.com/kristofer/flux/pkg/ast"
	"github.com/kristofer/flux/pkg/bytecode"
	"github.com/kristofer/flux/pkg/diagnostics"
	"github.com/kristofer/flux/pkg/value"
)

// compileNonTailExpression compiles expr with tail position suppressed —
// used for every subexpression that is itself never in tail position
// (operands, conditions, call arguments that aren't themselves tail calls).
func (c *Compiler) compileNonTailExpression(expr ast.Expression) {
	c.withTailPosition(false, func() { c.compileExpression(expr) })
}

// compileExpression is the main expression-lowering dispatch.
func (c *Compiler) compileExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		idx := c.addConstant(value.Integer(e.Value))
		c.emitAt(e.Span(), bytecode.OpConstant, idx)

	case *ast.FloatLiteral:
		idx := c.addConstant(value.Float(e.Value))
		c.emitAt(e.Span(), bytecode.OpConstant, idx)

	case *ast.StringLiteral:
		idx := c.addConstant(value.String(e.Value))
		c.emitAt(e.Span(), bytecode.OpConstant, idx)

	case *ast.InterpolatedStringLiteral:
		c.compileInterpolatedString(e)

	case *ast.BooleanLiteral:
		if e.Value {
			c.emitAt(e.Span(), bytecode.OpTrue)
		} else {
			c.emitAt(e.Span(), bytecode.OpFalse)
		}

	case *ast.NoneLiteral:
		c.emitAt(e.Span(), bytecode.OpNone)

	case *ast.Identifier:
		c.compileIdentifier(e)

	case *ast.PrefixExpression:
		c.compilePrefixExpression(e)

	case *ast.InfixExpression:
		c.compileInfixExpression(e)

	case *ast.IfExpression:
		c.compileIfExpression(e)

	case *ast.FunctionLiteral:
		c.compileFunctionLiteral(e)

	case *ast.EmptyListLiteral:
		c.emitAt(e.Span(), bytecode.OpNone)

	case *ast.ListLiteral:
		c.compileListCall(e.Span(), e.Elements)

	case *ast.ArrayLiteral:
		for _, el := range e.Elements {
			c.compileNonTailExpression(el)
		}
		c.emitAt(e.Span(), bytecode.OpArray, len(e.Elements))

	case *ast.HashLiteral:
		for i := range e.Keys {
			c.compileNonTailExpression(e.Keys[i])
			c.compileNonTailExpression(e.Values[i])
		}
		c.emitAt(e.Span(), bytecode.OpHash, len(e.Keys)*2)

	case *ast.IndexExpression:
		c.compileNonTailExpression(e.Left)
		c.compileNonTailExpression(e.Index)
		c.emitAt(e.Span(), bytecode.OpIndex)

	case *ast.CallExpression:
		c.compileCallExpression(e)

	case *ast.MemberAccess:
		c.compileMemberAccess(e)

	case *ast.SomeExpression:
		c.compileNonTailExpression(e.Value)
		c.emitAt(e.Span(), bytecode.OpSome)

	case *ast.LeftExpression:
		c.compileNonTailExpression(e.Value)
		c.emitAt(e.Span(), bytecode.OpLeft)

	case *ast.RightExpression:
		c.compileNonTailExpression(e.Value)
		c.emitAt(e.Span(), bytecode.OpRight)

	case *ast.MatchExpression:
		c.compileMatchExpression(e)

	case *ast.Cons:
		c.compileNonTailExpression(e.Head)
		c.compileNonTailExpression(e.Tail)
		c.emitAt(e.Span(), bytecode.OpCons)
	}
}

func (c *Compiler) compileIdentifier(e *ast.Identifier) {
	if sym, ok := c.symbolTable.Resolve(e.Value); ok {
		c.loadSymbol(sym)
		return
	}
	if c.currentModulePrefix != "" {
		qualified := c.currentModulePrefix + "." + e.Value
		if sym, ok := c.symbolTable.Resolve(qualified); ok {
			c.loadSymbol(sym)
			return
		}
		if v, ok := c.moduleConstants[qualified]; ok {
			c.emitConstantValue(e.Span(), v)
			return
		}
	}
	c.addError(diagnostics.MakeError(diagnostics.UndefinedVariable, []string{e.Value}, c.file, e.Span()))
}

// emitConstantValue inlines an already-evaluated module constant.
func (c *Compiler) emitConstantValue(span diagnostics.Span, v value.Value) {
	idx := c.addConstant(v)
	c.emitAt(span, bytecode.OpConstant, idx)
}

func (c *Compiler) compilePrefixExpression(e *ast.PrefixExpression) {
	c.compileNonTailExpression(e.Right)
	switch e.Operator {
	case "!":
		c.emitAt(e.Span(), bytecode.OpBang)
	case "-":
		c.emitAt(e.Span(), bytecode.OpMinus)
	default:
		c.addError(diagnostics.MakeError(diagnostics.UnknownPrefixOperator, []string{e.Operator}, c.file, e.Span()))
	}
}

func (c *Compiler) compileInfixExpression(e *ast.InfixExpression) {
	switch e.Operator {
	case "<":
		c.compileNonTailExpression(e.Right)
		c.compileNonTailExpression(e.Left)
		c.emitAt(e.Span(), bytecode.OpGreaterThan)
		return
	case "<=":
		c.compileNonTailExpression(e.Left)
		c.compileNonTailExpression(e.Right)
		c.emitAt(e.Span(), bytecode.OpLessThanOrEqual)
		return
	case "&&":
		// a && b lowers like `if a { b } else { false }`: OpJumpNotTruthy
		// consumes a's value, so no separate pop/dup is needed.
		c.compileNonTailExpression(e.Left)
		falseJump := c.emit(bytecode.OpJumpNotTruthy, 9999)
		c.compileNonTailExpression(e.Right)
		endJump := c.emit(bytecode.OpJump, 9999)
		c.changeOperand(falseJump, len(c.currentScope().instructions))
		c.emit(bytecode.OpFalse)
		c.changeOperand(endJump, len(c.currentScope().instructions))
		return
	case "||":
		// a || b lowers like `if a { true } else { b }`.
		c.compileNonTailExpression(e.Left)
		elseJump := c.emit(bytecode.OpJumpNotTruthy, 9999)
		c.emit(bytecode.OpTrue)
		endJump := c.emit(bytecode.OpJump, 9999)
		c.changeOperand(elseJump, len(c.currentScope().instructions))
		c.compileNonTailExpression(e.Right)
		c.changeOperand(endJump, len(c.currentScope().instructions))
		return
	}

	c.compileNonTailExpression(e.Left)
	c.compileNonTailExpression(e.Right)

	switch e.Operator {
	case "+":
		c.emitAt(e.Span(), bytecode.OpAdd)
	case "-":
		c.emitAt(e.Span(), bytecode.OpSub)
	case "*":
		c.emitAt(e.Span(), bytecode.OpMul)
	case "/":
		c.emitAt(e.Span(), bytecode.OpDiv)
	case "%":
		c.emitAt(e.Span(), bytecode.OpMod)
	case "==":
		c.emitAt(e.Span(), bytecode.OpEqual)
	case "!=":
		c.emitAt(e.Span(), bytecode.OpNotEqual)
	case ">":
		c.emitAt(e.Span(), bytecode.OpGreaterThan)
	case ">=":
		c.emitAt(e.Span(), bytecode.OpGreaterThanOrEqual)
	default:
		c.addError(diagnostics.MakeError(diagnostics.UnknownInfixOperator, []string{e.Operator}, c.file, e.Span()).
			WithLabel(diagnostics.LabelSecondary, e.Left.Span(), "left operand").
			WithLabel(diagnostics.LabelSecondary, e.Right.Span(), "right operand"))
	}
}

func (c *Compiler) compileIfExpression(e *ast.IfExpression) {
	c.compileNonTailExpression(e.Condition)

	jumpNotTruthyPos := c.emit(bytecode.OpJumpNotTruthy, 9999)

	c.enterBlockScope()
	if c.inTailPosition {
		c.compileBlockWithTail(e.Consequence)
	} else {
		c.compileBlock(e.Consequence)
	}
	c.leaveBlockScope()
	if c.lastInstructionIs(bytecode.OpPop) {
		c.removeLastPop()
	}

	jumpPos := c.emit(bytecode.OpJump, 9999)
	c.changeOperand(jumpNotTruthyPos, len(c.currentScope().instructions))

	if e.Alternative != nil {
		c.enterBlockScope()
		if c.inTailPosition {
			c.compileBlockWithTail(e.Alternative)
		} else {
			c.compileBlock(e.Alternative)
		}
		c.leaveBlockScope()
		if c.lastInstructionIs(bytecode.OpPop) {
			c.removeLastPop()
		}
	} else {
		c.emit(bytecode.OpNone)
	}

	c.changeOperand(jumpPos, len(c.currentScope().instructions))
}

func (c *Compiler) compileInterpolatedString(e *ast.InterpolatedStringLiteral) {
	if len(e.Parts) == 0 {
		idx := c.addConstant(value.String(""))
		c.emitAt(e.Span(), bytecode.OpConstant, idx)
		return
	}

	emitPart := func(p ast.StringPart) {
		if p.Expression == nil {
			idx := c.addConstant(value.String(p.Literal))
			c.emitAt(e.Span(), bytecode.OpConstant, idx)
			return
		}
		c.compileNonTailExpression(p.Expression)
		c.emitAt(e.Span(), bytecode.OpToString)
	}

	emitPart(e.Parts[0])
	for _, p := range e.Parts[1:] {
		emitPart(p)
		c.emitAt(e.Span(), bytecode.OpAdd)
	}
}

// compileListCall lowers `[a, b, c]` through the `list` builtin rather
// than a Cons chain, avoiding deep recursive lowering for large literals.
// The empty list `[]` is not lowered here: it compiles to OpNone.
func (c *Compiler) compileListCall(span diagnostics.Span, elements []ast.Expression) {
	sym, ok := c.symbolTable.Resolve("list")
	if !ok {
		c.addError(diagnostics.ICE("builtin `list` must be predeclared", c.file, span))
		return
	}
	c.loadSymbol(sym)
	for _, el := range elements {
		c.compileNonTailExpression(el)
	}
	c.emitAt(span, bytecode.OpCall, len(elements))
}

func (c *Compiler) compileFunctionLiteral(e *ast.FunctionLiteral) {
	if dup := findDuplicateParam(e.Params); dup != "" {
		c.addError(diagnostics.MakeError(diagnostics.DuplicateParameter, []string{dup}, c.file, e.Span()))
		return
	}

	c.enterScope()
	for _, p := range e.Params {
		c.symbolTable.Define(p.Value, p.Span())
	}

	c.withFunctionContext(len(e.Params), func() {
		c.compileBlockWithTail(e.Body)
	})

	if c.lastInstructionIs(bytecode.OpPop) {
		c.replaceLastPopWithReturn()
	}
	if !c.lastInstructionIs(bytecode.OpReturnValue) {
		c.emit(bytecode.OpReturn)
	}

	freeSymbols := append([]*Binding(nil), c.symbolTable.FreeSymbols...)
	for _, free := range freeSymbols {
		if free.Scope == ScopeLocal {
			c.markCapturedInCurrentFunction(free.Index)
		}
	}

	numLocals := c.symbolTable.NumDefinitions()
	instructions, debugInfo, maxDepth := c.leaveScope()

	for _, free := range freeSymbols {
		c.loadSymbol(free)
	}

	fn := &value.CompiledFunction{
		Instructions:  instructions,
		NumLocals:     numLocals,
		NumParameters: len(e.Params),
		MaxStackDepth: maxDepth,
		DebugInfo:     debugInfo,
		Name:          e.Name,
	}
	c.emitClosureFor(fn, len(freeSymbols))
}

func (c *Compiler) compileCallExpression(e *ast.CallExpression) {
	isSelfTailCall := c.inTailPosition && c.isSelfCall(e.Function)

	c.compileNonTailExpression(e.Function)

	consumable := map[string]int{}
	if isSelfTailCall {
		for _, arg := range e.Arguments {
			c.collectConsumableParamUses(arg, consumable)
		}
	}

	for _, arg := range e.Arguments {
		if isSelfTailCall {
			c.compileTailCallArgument(arg, consumable)
		} else {
			c.compileNonTailExpression(arg)
		}
	}

	if isSelfTailCall {
		c.emitAt(e.Span(), bytecode.OpTailCall, len(e.Arguments))
	} else {
		c.emitAt(e.Span(), bytecode.OpCall, len(e.Arguments))
	}
}

func (c *Compiler) isSelfCall(expr ast.Expression) bool {
	ident, ok := expr.(*ast.Identifier)
	if !ok {
		return false
	}
	sym, ok := c.symbolTable.Resolve(ident.Value)
	return ok && sym.Scope == ScopeFunction
}

func (c *Compiler) compileMemberAccess(e *ast.MemberAccess) {
	ident, isIdent := e.Object.(*ast.Identifier)

	var moduleName string
	haveModule := false
	if isIdent {
		if target, ok := c.importAliases[ident.Value]; ok {
			moduleName, haveModule = target, true
		} else if c.importedModules[ident.Value] || c.currentModulePrefix == ident.Value {
			moduleName, haveModule = ident.Value, true
		}
	}

	if haveModule {
		qualified := moduleName + "." + e.Name
		if v, ok := c.moduleConstants[qualified]; ok {
			c.emitConstantValue(e.Span(), v)
			return
		}
		if sym, ok := c.symbolTable.Resolve(qualified); ok {
			c.loadSymbol(sym)
			return
		}
		c.addError(diagnostics.MakeError(diagnostics.UnknownModuleMember, []string{moduleName, e.Name}, c.file, e.Span()))
		return
	}

	// Fall back to hash member access: obj["name"] unwrapped out of Some.
	c.compileNonTailExpression(e.Object)
	idx := c.addConstant(value.String(e.Name))
	c.emitAt(e.Span(), bytecode.OpConstant, idx)
	c.emitAt(e.Span(), bytecode.OpIndex)
	c.emitAt(e.Span(), bytecode.OpUnwrapSome)
}


// ---- match ----

func (c *Compiler) compileMatchExpression(e *ast.MatchExpression) {
	c.validateMatchArms(e.Arms, e.Span())

	c.compileNonTailExpression(e.Scrutinee)

	scrutineeSym := c.symbolTable.DefineTemp()
	if scrutineeSym.Scope != ScopeGlobal && scrutineeSym.Scope != ScopeLocal {
		c.addError(diagnostics.ICE("match scrutinee temp must be Global or Local", c.file, e.Span()))
		return
	}
	c.storeSymbol(scrutineeSym)

	var endJumps []int
	var nextArmJumps []int

	for _, arm := range e.Arms {
		for _, j := range nextArmJumps {
			c.changeOperand(j, len(c.currentScope().instructions))
		}
		nextArmJumps = nil

		c.enterBlockScope()
		nextArmJumps = append(nextArmJumps, c.compilePatternCheck(arm.Pattern, scrutineeSym)...)
		c.validatePatternBindings(arm.Pattern)
		c.compilePatternBind(arm.Pattern, scrutineeSym)

		if arm.Guard != nil {
			c.compileNonTailExpression(arm.Guard)
			guardJump := c.emit(bytecode.OpJumpNotTruthy, 9999)
			nextArmJumps = append(nextArmJumps, guardJump)
		}

		c.compileExpression(arm.Body)
		c.leaveBlockScope()

		endJumps = append(endJumps, c.emit(bytecode.OpJump, 9999))
	}

	for _, j := range nextArmJumps {
		c.changeOperand(j, len(c.currentScope().instructions))
	}
	c.emit(bytecode.OpNone)

	for _, j := range endJumps {
		c.changeOperand(j, len(c.currentScope().instructions))
	}
}

// validateMatchArms reports CatchallNotLast for any non-final arm that
// unconditionally matches everything, and NonExhaustiveMatch if the final
// arm does not. An empty arm list is the parser's EmptyMatch to report.
func (c *Compiler) validateMatchArms(arms []*ast.MatchArm, matchSpan diagnostics.Span) {
	if len(arms) == 0 {
		return
	}
	for _, arm := range arms[:len(arms)-1] {
		if isUnconditionalCatchallArm(arm) {
			c.addError(diagnostics.MakeError(diagnostics.CatchallNotLast, nil, c.file, arm.Pattern.Span()))
		}
	}
	if last := arms[len(arms)-1]; !isUnconditionalCatchallArm(last) {
		c.addError(diagnostics.MakeError(diagnostics.NonExhaustiveMatch, nil, c.file, matchSpan))
	}
}

func isUnconditionalCatchallArm(arm *ast.MatchArm) bool {
	return arm.Guard == nil && isCatchallPattern(arm.Pattern)
}

func isCatchallPattern(pattern ast.Pattern) bool {
	switch pattern.(type) {
	case *ast.WildcardPattern, *ast.IdentifierPattern:
		return true
	default:
		return false
	}
}

// validatePatternBindings reports DuplicatePatternBinding for any name a
// single pattern would bind more than once, e.g. `head :: head -> head`.
func (c *Compiler) validatePatternBindings(pattern ast.Pattern) {
	seen := make(map[string]bool)
	c.checkPatternBindingNames(pattern, seen)
}

func (c *Compiler) checkPatternBindingNames(pattern ast.Pattern, seen map[string]bool) {
	switch p := pattern.(type) {
	case *ast.IdentifierPattern:
		if seen[p.Name] {
			c.addError(diagnostics.MakeError(diagnostics.DuplicatePatternBinding, []string{p.Name}, c.file, p.Span()))
			return
		}
		seen[p.Name] = true

	case *ast.SomePattern:
		c.checkPatternBindingNames(p.Inner, seen)
	case *ast.LeftPattern:
		c.checkPatternBindingNames(p.Inner, seen)
	case *ast.RightPattern:
		c.checkPatternBindingNames(p.Inner, seen)
	case *ast.ConsPattern:
		c.checkPatternBindingNames(p.Head, seen)
		c.checkPatternBindingNames(p.Tail, seen)
	}
}

// compilePatternCheck emits the runtime test for pattern against the value
// in scrutinee, returning the list of jump-to-next-arm instruction
// positions still needing a target patched in once it's known.
func (c *Compiler) compilePatternCheck(pattern ast.Pattern, scrutinee *Binding) []int {
	switch p := pattern.(type) {
	case *ast.WildcardPattern, *ast.IdentifierPattern:
		return nil

	case *ast.LiteralPattern:
		c.loadSymbol(scrutinee)
		c.compileNonTailExpression(p.Expression)
		c.emitAt(p.Span(), bytecode.OpEqual)
		return []int{c.emit(bytecode.OpJumpNotTruthy, 9999)}

	case *ast.NonePattern:
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpNone)
		c.emitAt(p.Span(), bytecode.OpEqual)
		return []int{c.emit(bytecode.OpJumpNotTruthy, 9999)}

	case *ast.EmptyListPattern:
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpIsEmptyList)
		return []int{c.emit(bytecode.OpJumpNotTruthy, 9999)}

	case *ast.SomePattern:
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpIsSome)
		jumps := []int{c.emit(bytecode.OpJumpNotTruthy, 9999)}
		if isIrrefutableLeaf(p.Inner) {
			return jumps
		}
		inner := c.symbolTable.DefineTemp()
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpUnwrapSome)
		c.storeSymbol(inner)
		jumps = append(jumps, c.compilePatternCheck(p.Inner, inner)...)
		return jumps

	case *ast.LeftPattern:
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpIsLeft)
		jumps := []int{c.emit(bytecode.OpJumpNotTruthy, 9999)}
		if isIrrefutableLeaf(p.Inner) {
			return jumps
		}
		inner := c.symbolTable.DefineTemp()
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpUnwrapLeft)
		c.storeSymbol(inner)
		jumps = append(jumps, c.compilePatternCheck(p.Inner, inner)...)
		return jumps

	case *ast.RightPattern:
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpIsRight)
		jumps := []int{c.emit(bytecode.OpJumpNotTruthy, 9999)}
		if isIrrefutableLeaf(p.Inner) {
			return jumps
		}
		inner := c.symbolTable.DefineTemp()
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpUnwrapRight)
		c.storeSymbol(inner)
		jumps = append(jumps, c.compilePatternCheck(p.Inner, inner)...)
		return jumps

	case *ast.ConsPattern:
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpIsCons)
		jumps := []int{c.emit(bytecode.OpJumpNotTruthy, 9999)}

		if !isIrrefutableLeaf(p.Head) {
			headTemp := c.symbolTable.DefineTemp()
			c.loadSymbol(scrutinee)
			c.emitAt(p.Span(), bytecode.OpConsHead)
			c.storeSymbol(headTemp)
			jumps = append(jumps, c.compilePatternCheck(p.Head, headTemp)...)
		}
		if !isIrrefutableLeaf(p.Tail) {
			tailTemp := c.symbolTable.DefineTemp()
			c.loadSymbol(scrutinee)
			c.emitAt(p.Span(), bytecode.OpConsTail)
			c.storeSymbol(tailTemp)
			jumps = append(jumps, c.compilePatternCheck(p.Tail, tailTemp)...)
		}
		return jumps
	}
	return nil
}

// compilePatternBind emits the bindings pattern introduces, assuming
// compilePatternCheck has already confirmed the match succeeds.
func (c *Compiler) compilePatternBind(pattern ast.Pattern, scrutinee *Binding) {
	switch p := pattern.(type) {
	case *ast.IdentifierPattern:
		sym := c.symbolTable.Define(p.Name, p.Span())
		c.loadSymbol(scrutinee)
		c.storeSymbol(sym)

	case *ast.SomePattern:
		inner := c.symbolTable.DefineTemp()
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpUnwrapSome)
		c.storeSymbol(inner)
		c.compilePatternBind(p.Inner, inner)

	case *ast.LeftPattern:
		inner := c.symbolTable.DefineTemp()
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpUnwrapLeft)
		c.storeSymbol(inner)
		c.compilePatternBind(p.Inner, inner)

	case *ast.RightPattern:
		inner := c.symbolTable.DefineTemp()
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpUnwrapRight)
		c.storeSymbol(inner)
		c.compilePatternBind(p.Inner, inner)

	case *ast.ConsPattern:
		headTemp := c.symbolTable.DefineTemp()
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpConsHead)
		c.storeSymbol(headTemp)
		c.compilePatternBind(p.Head, headTemp)

		tailTemp := c.symbolTable.DefineTemp()
		c.loadSymbol(scrutinee)
		c.emitAt(p.Span(), bytecode.OpConsTail)
		c.storeSymbol(tailTemp)
		c.compilePatternBind(p.Tail, tailTemp)

	case *ast.WildcardPattern, *ast.LiteralPattern, *ast.NonePattern, *ast.EmptyListPattern:
		// no bindings introduced
	}
}

// isIrrefutableLeaf reports whether pattern always succeeds and binds
// nothing structurally interesting below it, letting pattern compilation
// skip emitting a redundant temp+unwrap for that slot.
func isIrrefutableLeaf(pattern ast.Pattern) bool {
	switch pattern.(type) {
	case *ast.WildcardPattern, *ast.IdentifierPattern:
		return true
	default:
		return false
	}
}

// ---- tail-call argument consumption ----

// compileTailCallArgument compiles one argument of a detected self
// tail-call, preferring OpConsumeLocal over a plain load when the argument
// is exactly the kind of single-use tail parameter reference that makes
// the optimization safe (see isConsumableTailParam).
func (c *Compiler) compileTailCallArgument(arg ast.Expression, consumable map[string]int) {
	switch a := arg.(type) {
	case *ast.Identifier:
		if c.tryEmitConsumedParam(a, consumable) {
			return
		}
		c.compileNonTailExpression(a)

	case *ast.CallExpression:
		c.compileNonTailExpression(a.Function)
		nested := map[string]int{}
		for _, nestedArg := range a.Arguments {
			c.collectConsumableParamUses(nestedArg, nested)
		}
		for _, nestedArg := range a.Arguments {
			if ident, ok := nestedArg.(*ast.Identifier); ok && c.tryEmitConsumedParam(ident, nested) {
				continue
			}
			c.compileNonTailExpression(nestedArg)
		}
		c.emitAt(a.Span(), bytecode.OpCall, len(a.Arguments))

	default:
		c.compileNonTailExpression(arg)
	}
}

func (c *Compiler) tryEmitConsumedParam(ident *ast.Identifier, consumable map[string]int) bool {
	if consumable[ident.Value] != 1 {
		return false
	}
	sym, ok := c.symbolTable.Resolve(ident.Value)
	if !ok || !c.isConsumableTailParam(sym) {
		return false
	}
	c.emitAt(ident.Span(), bytecode.OpConsumeLocal, sym.Index)
	return true
}

// collectConsumableParamUses walks expr counting identifier occurrences by
// name, so a tail-call argument that is a parameter used exactly once in
// the whole argument list is safe to move out from under its frame via
// OpConsumeLocal rather than copy.
func (c *Compiler) collectConsumableParamUses(expr ast.Expression, counts map[string]int) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *ast.Identifier:
		counts[e.Value]++
	case *ast.PrefixExpression:
		c.collectConsumableParamUses(e.Right, counts)
	case *ast.InfixExpression:
		c.collectConsumableParamUses(e.Left, counts)
		c.collectConsumableParamUses(e.Right, counts)
	case *ast.IfExpression:
		c.collectConsumableParamUses(e.Condition, counts)
		c.collectConsumableParamUsesBlock(e.Consequence, counts)
		if e.Alternative != nil {
			c.collectConsumableParamUsesBlock(e.Alternative, counts)
		}
	case *ast.CallExpression:
		c.collectConsumableParamUses(e.Function, counts)
		for _, a := range e.Arguments {
			c.collectConsumableParamUses(a, counts)
		}
	case *ast.ListLiteral:
		for _, el := range e.Elements {
			c.collectConsumableParamUses(el, counts)
		}
	case *ast.ArrayLiteral:
		for _, el := range e.Elements {
			c.collectConsumableParamUses(el, counts)
		}
	case *ast.IndexExpression:
		c.collectConsumableParamUses(e.Left, counts)
		c.collectConsumableParamUses(e.Index, counts)
	case *ast.HashLiteral:
		for i := range e.Keys {
			c.collectConsumableParamUses(e.Keys[i], counts)
			c.collectConsumableParamUses(e.Values[i], counts)
		}
	case *ast.MemberAccess:
		c.collectConsumableParamUses(e.Object, counts)
	case *ast.MatchExpression:
		c.collectConsumableParamUses(e.Scrutinee, counts)
		for _, arm := range e.Arms {
			if arm.Guard != nil {
				c.collectConsumableParamUses(arm.Guard, counts)
			}
			c.collectConsumableParamUses(arm.Body, counts)
		}
	case *ast.InterpolatedStringLiteral:
		for _, part := range e.Parts {
			if part.Expression != nil {
				c.collectConsumableParamUses(part.Expression, counts)
			}
		}
	case *ast.SomeExpression:
		c.collectConsumableParamUses(e.Value, counts)
	case *ast.LeftExpression:
		c.collectConsumableParamUses(e.Value, counts)
	case *ast.RightExpression:
		c.collectConsumableParamUses(e.Value, counts)
	case *ast.Cons:
		c.collectConsumableParamUses(e.Head, counts)
		c.collectConsumableParamUses(e.Tail, counts)
	}
}

func (c *Compiler) collectConsumableParamUsesBlock(block *ast.BlockStatement, counts map[string]int) {
	for _, stmt := range block.Statements {
		c.collectConsumableParamUsesStatement(stmt, counts)
	}
}

func (c *Compiler) collectConsumableParamUsesStatement(stmt ast.Statement, counts map[string]int) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		c.collectConsumableParamUses(s.Expression, counts)
	case *ast.LetStatement:
		c.collectConsumableParamUses(s.Value, counts)
	case *ast.AssignStatement:
		c.collectConsumableParamUses(s.Value, counts)
	case *ast.ReturnStatement:
		c.collectConsumableParamUses(s.Value, counts)
	case *ast.BlockStatement:
		c.collectConsumableParamUsesBlock(s, counts)
	}
}
