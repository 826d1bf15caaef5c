package compiler

import (
	"github.com/kristofer/flux/pkg/ast"
	"github.com/kristofer/flux/pkg/bytecode"
	"github.com/kristofer/flux/pkg/diagnostics"
	"github.com/kristofer/flux/pkg/value"
)

// compileTopLevelStatement dispatches a Program-level statement, handling
// the forms (Module, Import) that are only legal at the top.
func (c *Compiler) compileTopLevelStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.ModuleStatement:
		c.compileModuleStatement(s)
	case *ast.ImportStatement:
		c.compileImportStatement(s)
	default:
		c.compileStatement(stmt)
	}
}

// compileStatement lowers one statement within a function or block body.
func (c *Compiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		if s.Expression == nil {
			return
		}
		c.compileExpression(s.Expression)
		c.emitAt(s.Span(), bytecode.OpPop)

	case *ast.LetStatement:
		c.compileLetStatement(s)

	case *ast.AssignStatement:
		c.compileAssignStatement(s)

	case *ast.ReturnStatement:
		if s.Value != nil {
			c.compileExpression(s.Value)
			c.emitAt(s.Span(), bytecode.OpReturnValue)
		} else {
			c.emitAt(s.Span(), bytecode.OpReturn)
		}

	case *ast.FunctionStatement:
		c.compileFunctionStatement(s.Name, s.Params, s.Body, s.NameSpan)

	case *ast.ModuleStatement:
		c.addError(diagnostics.MakeError(diagnostics.ModuleScope, nil, c.file, s.Span()))

	case *ast.ImportStatement:
		c.addError(diagnostics.MakeError(diagnostics.ImportScope, []string{s.Module}, c.file, s.Span()))

	case *ast.BlockStatement:
		c.compileBlock(s)
	}
}

func (c *Compiler) compileLetStatement(s *ast.LetStatement) {
	if existing, ok := c.symbolTable.Resolve(s.Name); ok && c.symbolTable.ExistsInCurrentScope(s.Name) {
		c.addError(diagnostics.MakeError(diagnostics.DuplicateName, []string{s.Name}, c.file, s.NameSpan).
			WithLabel(diagnostics.LabelSecondary, existing.Span, "first defined here"))
		return
	}
	if len(c.scopes) == 1 && c.fileScopeSymbols[s.Name] {
		c.addError(diagnostics.MakeError(diagnostics.ImportNameCollision, []string{s.Name}, c.file, s.NameSpan))
		return
	}

	sym := c.symbolTable.Define(s.Name, s.NameSpan)
	c.compileExpression(s.Value)
	c.storeSymbol(sym)
	sym.MarkAssigned()
	if len(c.scopes) == 1 {
		c.fileScopeSymbols[s.Name] = true
	}
}

// compileAssignStatement always raises a diagnostic: Flux bindings are
// immutable, but the grammar still parses `name = value;` so the error can
// point at a precise span instead of surfacing as a parse failure.
func (c *Compiler) compileAssignStatement(s *ast.AssignStatement) {
	sym, ok := c.symbolTable.Resolve(s.Name)
	if !ok {
		c.addError(diagnostics.MakeError(diagnostics.UndefinedVariable, []string{s.Name}, c.file, s.NameSpan))
		return
	}
	if sym.Scope == ScopeFree {
		c.addError(diagnostics.MakeError(diagnostics.OuterAssignment, []string{s.Name}, c.file, s.NameSpan))
		return
	}
	c.addError(diagnostics.MakeError(diagnostics.ImmutableBinding, []string{s.Name}, c.file, s.NameSpan))
}

// emitClosureFor adds fn to the constant pool and emits the OpClosure that
// pairs it with numFree already-pushed captured values.
func (c *Compiler) emitClosureFor(fn *value.CompiledFunction, numFree int) {
	idx := c.addConstant(value.Function(fn))
	c.emit(bytecode.OpClosure, idx, numFree)
}

// compileFunctionStatement lowers a named `fun` declaration: its own name
// is resolved (predeclared in pass 1 for top-level/module functions, or
// defined fresh for a nested one), then bound again inside its own body
// via DefineFunctionName so recursive calls compile through CurrentClosure
// instead of a parent-scope lookup.
func (c *Compiler) compileFunctionStatement(name string, params []*ast.Identifier, body *ast.BlockStatement, nameSpan diagnostics.Span) {
	if dup := findDuplicateParam(params); dup != "" {
		c.addError(diagnostics.MakeError(diagnostics.DuplicateParameter, []string{dup}, c.file, nameSpan))
		return
	}

	qualified := c.qualify(name)
	sym, ok := c.symbolTable.Resolve(qualified)
	if !ok {
		sym = c.symbolTable.Define(qualified, nameSpan)
	}

	fn, numFree := c.compileFunctionStatementBody(qualified, params, body)
	c.emitClosureFor(fn, numFree)
	c.storeSymbol(sym)
}

func (c *Compiler) compileFunctionStatementBody(qualifiedName string, params []*ast.Identifier, body *ast.BlockStatement) (*value.CompiledFunction, int) {
	c.enterScope()
	c.symbolTable.DefineFunctionName(qualifiedName)
	for _, p := range params {
		c.symbolTable.Define(p.Value, p.Span())
	}

	c.withFunctionContext(len(params), func() {
		c.compileBlockWithTail(body)
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

	return &value.CompiledFunction{
		Instructions:  instructions,
		NumLocals:     numLocals,
		NumParameters: len(params),
		MaxStackDepth: maxDepth,
		DebugInfo:     debugInfo,
		Name:          qualifiedName,
	}, len(freeSymbols)
}

func findDuplicateParam(params []*ast.Identifier) string {
	seen := map[string]bool{}
	for _, p := range params {
		if seen[p.Value] {
			return p.Value
		}
		seen[p.Value] = true
	}
	return ""
}

// qualify prefixes name with the enclosing module, if any.
func (c *Compiler) qualify(name string) string {
	if c.currentModulePrefix != "" {
		return c.currentModulePrefix + "." + name
	}
	return name
}

func (c *Compiler) compileModuleStatement(s *ast.ModuleStatement) {
	bindingName := "module$" + s.Name
	if c.symbolTable.ExistsInCurrentScope(bindingName) {
		c.addError(diagnostics.MakeError(diagnostics.DuplicateModule, []string{s.Name}, c.file, s.Span()))
		return
	}

	for _, stmt := range s.Body {
		switch fs := stmt.(type) {
		case *ast.FunctionStatement:
			if fs.Name == bindingName {
				c.addError(diagnostics.MakeError(diagnostics.ModuleNameClash, []string{bindingName}, c.file, fs.Span()))
				return
			}
		case *ast.LetStatement:
			// module constants are allowed
		default:
			c.addError(diagnostics.MakeError(diagnostics.InvalidModuleContent, nil, c.file, stmt.Span()))
			return
		}
	}

	c.importedModules[s.Name] = true
	prevPrefix := c.currentModulePrefix
	c.currentModulePrefix = s.Name

	c.evalModuleConstantsFor(s.Name, s.Body)

	seen := map[string]diagnostics.Span{}
	for _, stmt := range s.Body {
		if fs, ok := stmt.(*ast.FunctionStatement); ok {
			qualified := s.Name + "." + fs.Name
			c.predeclareName(qualified, fs.NameSpan, seen)
		}
	}

	for _, stmt := range s.Body {
		if fs, ok := stmt.(*ast.FunctionStatement); ok {
			c.compileFunctionStatement(fs.Name, fs.Params, fs.Body, fs.NameSpan)
		}
	}

	c.currentModulePrefix = prevPrefix
}

func (c *Compiler) compileImportStatement(s *ast.ImportStatement) {
	if s.Alias != s.Module {
		c.importAliases[s.Alias] = s.Module
	} else {
		c.importedModules[s.Module] = true
	}
}

func (c *Compiler) compileBlock(block *ast.BlockStatement) {
	for _, stmt := range block.Statements {
		c.compileStatement(stmt)
	}
}

// compileBlockWithTail compiles block the same way compileBlock does,
// except the final statement inherits the caller's current tail-position
// flag (set true by withFunctionContext for a function's own body, and
// propagated through if/match arm bodies) instead of being forced to
// non-tail. Every other statement always compiles as non-tail.
func (c *Compiler) compileBlockWithTail(block *ast.BlockStatement) {
	stmts := block.Statements
	if len(stmts) == 0 {
		return
	}
	outerTail := c.inTailPosition
	for i, stmt := range stmts {
		if i == len(stmts)-1 {
			c.withTailPosition(outerTail, func() { c.compileStatement(stmt) })
		} else {
			c.withTailPosition(false, func() { c.compileStatement(stmt) })
		}
	}
}
