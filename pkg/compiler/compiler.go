// Package compiler lowers a Flux AST into bytecode: a symbol table with
// nested lexical scopes, free-variable capture, tail-call detection,
// pattern-match lowering, and module constant evaluation.
package compiler

import (
	"github.com/kristofer/flux/pkg/ast"
	"github.com/kristofer/flux/pkg/bytecode"
	"github.com/kristofer/flux/pkg/diagnostics"
	"github.com/kristofer/flux/pkg/value"
)

// Options controls the optional AST passes the supplemented features
// section adds: constant folding and pipe/list-literal desugaring. Both
// default to off; enabling either must preserve runtime semantics.
type Options struct {
	Fold    bool
	Desugar bool
}

// emittedInstruction records one emission for peephole bookkeeping
// (detecting and removing a trailing OpPop before a return, for example).
type emittedInstruction struct {
	Opcode   bytecode.Opcode
	Position int
}

// compilationScope holds the instruction buffer and peephole state for one
// function body (or the top-level program, which compiles as an implicit
// zero-argument <main> function).
type compilationScope struct {
	instructions        bytecode.Instructions
	lastInstruction     emittedInstruction
	previousInstruction emittedInstruction
	debugInfo           *bytecode.DebugInfo
	maxStackDepth       int
	stackDepth          int
}

// Compiler lowers one Program into Bytecode, collecting Diagnostics rather
// than failing fast: each top-level statement compiles independently so a
// single run surfaces as many problems as possible.
type Compiler struct {
	opts Options

	constants []value.Value

	symbolTable *SymbolTable
	scopes      []compilationScope
	scopeIndex  int

	file        string
	diagnostics []*diagnostics.Diagnostic

	// inTailPosition tracks whether the expression currently being
	// compiled sits in tail position with respect to the enclosing
	// function, used by self-recursive TailCall detection.
	inTailPosition bool

	// moduleConstants maps "Module.Name" -> evaluated compile-time Value.
	moduleConstants map[string]value.Value

	// importAliases maps an alias to the real module name, populated by
	// ImportStatement so `Mod.fn` resolves even when imported `as`.
	importAliases map[string]string

	// importedModules is the set of module names visible via a bare
	// `import Mod` (as opposed to only through an alias).
	importedModules map[string]bool

	// currentModulePrefix is non-empty while compiling the body of a
	// ModuleStatement, qualifying bare function/let names.
	currentModulePrefix string

	// functionContexts tracks, per active function scope, its parameter
	// count and which local indices a nested closure has captured — used
	// by the ConsumeLocal tail-call argument optimization to conservatively
	// skip any parameter a closure might still be holding onto.
	functionContexts []*functionContext

	// fileScopeSymbols is the set of top-level names already claimed by a
	// let/fun/module/import in this file, used to diagnose import/name
	// collisions the way a single compilation unit would.
	fileScopeSymbols map[string]bool
}

// functionContext is scoped to one function body's compilation.
type functionContext struct {
	NumParams int
	Captured  map[int]bool
}

// New creates a Compiler for the given source file, with every builtin
// predeclared in the fixed order the VM's builtin registry expects.
func New(file string, opts Options) *Compiler {
	st := New()
	predeclareBuiltins(st)
	return &Compiler{
		opts:             opts,
		symbolTable:      st,
		scopes:           []compilationScope{{debugInfo: bytecode.NewDebugInfo()}},
		file:             file,
		moduleConstants:  map[string]value.Value{},
		importAliases:    map[string]string{},
		importedModules:  map[string]bool{},
		fileScopeSymbols: map[string]bool{},
	}
}

// builtinNames is the fixed predeclaration order the VM's builtin index
// table must match exactly (see pkg/builtins). Indices 0-34 mirror the
// original implementation's predeclaration order; 35-38 (map/filter/fold/
// list) are this port's own extension for the higher-order builtins named
// but never predeclared through that mechanism in the source this was
// ported from — here they go through the same builtin-index calling
// convention as everything else, with the VM supplying the callback.
var builtinNames = []string{
	"print", "len", "first", "last", "rest", "push", "to_string", "concat",
	"reverse", "contains", "slice", "sort", "split", "join", "trim", "upper",
	"lower", "chars", "substring", "keys", "values", "has_key", "merge",
	"abs", "min", "max", "type_of", "is_int", "is_float", "is_string",
	"is_bool", "is_array", "is_hash", "is_none", "is_some",
	"map", "filter", "fold", "list",
}

func predeclareBuiltins(st *SymbolTable) {
	for i, name := range builtinNames {
		st.DefineBuiltin(i, name)
	}
}

// BuiltinIndex returns the fixed index of a predeclared builtin name.
func BuiltinIndex(name string) (int, bool) {
	for i, n := range builtinNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// BuiltinNames returns the full predeclaration order, exported so
// pkg/builtins can build its registry in lockstep.
func BuiltinNames() []string { return append([]string(nil), builtinNames...) }

// Diagnostics returns every Diagnostic collected during Compile.
func (c *Compiler) Diagnostics() []*diagnostics.Diagnostic { return c.diagnostics }

func (c *Compiler) addError(d *diagnostics.Diagnostic) { c.diagnostics = append(c.diagnostics, d) }

// Bytecode is the full program-wide compiled artifact: the entry
// CompiledFunction plus the constant pool every OpConstant indexes into.
type Bytecode struct {
	Main      *value.CompiledFunction
	Constants []value.Value
}

// CompileProgram lowers prog to a full Bytecode unit. It always returns a
// result (even when diagnostics were produced, for tooling that wants
// partial output); callers should check Diagnostics() before trusting it.
func (c *Compiler) CompileProgram(prog *ast.Program) *Bytecode {
	main := c.Compile(prog)
	return &Bytecode{Main: main, Constants: c.constants}
}

// Compile lowers prog's top-level statements into the implicit <main>
// function body.
func (c *Compiler) Compile(prog *ast.Program) *value.CompiledFunction {
	if c.opts.Fold {
		prog = ast.Fold(prog)
	}
	if c.opts.Desugar {
		prog = ast.Desugar(prog)
	}

	c.predeclareTopLevel(prog.Statements)

	for _, stmt := range prog.Statements {
		c.compileTopLevelStatement(stmt)
	}

	c.replaceLastPopWithReturn()

	scope := c.currentScope()
	return &value.CompiledFunction{
		Instructions:  scope.instructions,
		NumLocals:     c.symbolTable.NumDefinitions(),
		NumParameters: 0,
		MaxStackDepth: scope.maxStackDepth,
		DebugInfo:     scope.debugInfo,
		Name:          "<main>",
	}
}

// predeclareTopLevel is compilation's pass 1: every top-level function
// name (and qualified Module.name for module-scoped functions and
// constants) is bound as
// a Global before any body is compiled, enabling forward references and
// mutual recursion without requiring topological source ordering.
func (c *Compiler) predeclareTopLevel(stmts []ast.Statement) {
	seen := map[string]diagnostics.Span{}
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.FunctionStatement:
			c.predeclareName(s.Name, s.NameSpan, seen)
		case *ast.ModuleStatement:
			for _, inner := range s.Body {
				switch is := inner.(type) {
				case *ast.FunctionStatement:
					c.predeclareName(s.Name+"."+is.Name, is.NameSpan, seen)
				case *ast.LetStatement:
					c.predeclareName(s.Name+"."+is.Name, is.NameSpan, seen)
				}
			}
		case *ast.ImportStatement:
			c.importAliases[s.Alias] = s.Module
		}
	}
}

func (c *Compiler) predeclareName(name string, span diagnostics.Span, seen map[string]diagnostics.Span) {
	if firstSpan, dup := seen[name]; dup {
		c.addError(diagnostics.MakeError(diagnostics.DuplicateName, []string{name}, c.file, span).
			WithLabel(diagnostics.LabelSecondary, firstSpan, "first defined here"))
		return
	}
	seen[name] = span
	if !c.symbolTable.ExistsInCurrentScope(name) {
		c.symbolTable.Define(name, span)
	}
}

// ---- scope management ----

func (c *Compiler) currentScope() *compilationScope { return &c.scopes[c.scopeIndex] }

// enterScope pushes a function-scope symbol table and instruction buffer.
func (c *Compiler) enterScope() {
	c.scopes = append(c.scopes, compilationScope{debugInfo: bytecode.NewDebugInfo()})
	c.scopeIndex++
	c.symbolTable = NewEnclosed(c.symbolTable)
}

// leaveScope pops the function scope, returning its finished instructions,
// debug info, and max observed stack depth.
func (c *Compiler) leaveScope() (bytecode.Instructions, *bytecode.DebugInfo, int) {
	scope := c.currentScope()
	instructions := scope.instructions
	debugInfo := scope.debugInfo
	maxDepth := scope.maxStackDepth

	c.scopes = c.scopes[:len(c.scopes)-1]
	c.scopeIndex--
	c.symbolTable = c.symbolTable.Outer

	return instructions, debugInfo, maxDepth
}

// enterBlockScope pushes a block-scope symbol table (if/match-arm bodies)
// that shares the enclosing function's local-index space.
func (c *Compiler) enterBlockScope() {
	c.symbolTable = NewBlock(c.symbolTable)
}

func (c *Compiler) leaveBlockScope() {
	c.symbolTable.LeaveBlock()
	c.symbolTable = c.symbolTable.Outer
}

// ---- emission ----

func (c *Compiler) emit(op bytecode.Opcode, operands ...int) int {
	ins := bytecode.Make(op, operands...)
	pos := c.addInstruction(ins)

	scope := c.currentScope()
	scope.previousInstruction = scope.lastInstruction
	scope.lastInstruction = emittedInstruction{Opcode: op, Position: pos}
	c.trackStackEffect(op)
	return pos
}

func (c *Compiler) addInstruction(ins bytecode.Instructions) int {
	scope := c.currentScope()
	newPos := len(scope.instructions)
	scope.instructions = append(scope.instructions, ins...)
	return newPos
}

// emitAt records the current AST span against the instruction about to be
// emitted, so runtime errors and stack traces can report file:line:col.
func (c *Compiler) emitAt(span diagnostics.Span, op bytecode.Opcode, operands ...int) int {
	pos := c.emit(op, operands...)
	c.currentScope().debugInfo.Record(pos, c.file, span)
	return pos
}

// trackStackEffect keeps a conservative running estimate of operand-stack
// depth so CompiledFunction.MaxStackDepth can presize the VM's stack.
func (c *Compiler) trackStackEffect(op bytecode.Opcode) {
	scope := c.currentScope()
	scope.stackDepth += stackDelta(op)
	if scope.stackDepth > scope.maxStackDepth {
		scope.maxStackDepth = scope.stackDepth
	}
	if scope.stackDepth < 0 {
		scope.stackDepth = 0
	}
}

// stackDelta is a conservative (over-)estimate: operations whose effect
// depends on a runtime operand count (OpCall, OpArray, OpHash) assume a
// single net push, since their arguments were already accounted for as
// they were pushed.
func stackDelta(op bytecode.Opcode) int {
	switch op {
	case bytecode.OpPop, bytecode.OpJumpNotTruthy, bytecode.OpJumpTruthy,
		bytecode.OpSetGlobal, bytecode.OpSetLocal, bytecode.OpReturnValue,
		bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod,
		bytecode.OpEqual, bytecode.OpNotEqual, bytecode.OpGreaterThan,
		bytecode.OpGreaterThanOrEqual, bytecode.OpLessThanOrEqual, bytecode.OpIndex,
		bytecode.OpCons:
		return -1
	case bytecode.OpReturn:
		return 0
	default:
		return 1
	}
}

func (c *Compiler) lastInstructionIs(op bytecode.Opcode) bool {
	scope := c.currentScope()
	if len(scope.instructions) == 0 {
		return false
	}
	return scope.lastInstruction.Opcode == op
}

func (c *Compiler) removeLastPop() {
	scope := c.currentScope()
	scope.instructions = scope.instructions[:scope.lastInstruction.Position]
	scope.lastInstruction = scope.previousInstruction
}

func (c *Compiler) replaceLastPopWithReturn() {
	if !c.lastInstructionIs(bytecode.OpPop) {
		return
	}
	scope := c.currentScope()
	lastPos := scope.lastInstruction.Position
	c.replaceInstruction(lastPos, bytecode.Make(bytecode.OpReturnValue))
	scope.lastInstruction.Opcode = bytecode.OpReturnValue
}

func (c *Compiler) replaceInstruction(pos int, newInstruction bytecode.Instructions) {
	scope := c.currentScope()
	for i := 0; i < len(newInstruction); i++ {
		scope.instructions[pos+i] = newInstruction[i]
	}
}

func (c *Compiler) changeOperand(opPos int, operand int) {
	scope := c.currentScope()
	op := bytecode.Opcode(scope.instructions[opPos])
	c.replaceInstruction(opPos, bytecode.Make(op, operand))
}

// withTailPosition runs fn with inTailPosition set to tail, restoring the
// previous value afterward.
func (c *Compiler) withTailPosition(tail bool, fn func()) {
	prev := c.inTailPosition
	c.inTailPosition = tail
	fn()
	c.inTailPosition = prev
}

func (c *Compiler) addConstant(v value.Value) int {
	c.constants = append(c.constants, v)
	return len(c.constants) - 1
}

// withFunctionContext pushes a fresh functionContext and enables tail
// position for the duration of fn, which should compile a function body.
func (c *Compiler) withFunctionContext(numParams int, fn func()) {
	c.functionContexts = append(c.functionContexts, &functionContext{NumParams: numParams, Captured: map[int]bool{}})
	c.withTailPosition(true, fn)
	c.functionContexts = c.functionContexts[:len(c.functionContexts)-1]
}

func (c *Compiler) currentFunctionContext() *functionContext {
	if len(c.functionContexts) == 0 {
		return nil
	}
	return c.functionContexts[len(c.functionContexts)-1]
}

// markCapturedInCurrentFunction records that a nested closure captured the
// local at index in whatever function scope is current at call time — used
// right after a nested closure finishes compiling, when "current" has
// already become the enclosing function that owns that local index.
func (c *Compiler) markCapturedInCurrentFunction(index int) {
	if fc := c.currentFunctionContext(); fc != nil {
		fc.Captured[index] = true
	}
}

// loadSymbol emits the Get instruction matching b's scope.
func (c *Compiler) loadSymbol(b *Binding) {
	switch b.Scope {
	case ScopeGlobal:
		c.emit(bytecode.OpGetGlobal, b.Index)
	case ScopeLocal:
		c.emit(bytecode.OpGetLocal, b.Index)
	case ScopeFree:
		c.emit(bytecode.OpGetFree, b.Index)
	case ScopeBuiltin:
		c.emit(bytecode.OpGetBuiltin, b.Index)
	case ScopeFunction:
		c.emit(bytecode.OpCurrentClosure)
	}
}

// storeSymbol emits the Set instruction matching b's scope (Global or
// Local only — Free/Builtin/Function bindings are never assignment
// targets).
func (c *Compiler) storeSymbol(b *Binding) {
	switch b.Scope {
	case ScopeGlobal:
		c.emit(bytecode.OpSetGlobal, b.Index)
	case ScopeLocal:
		c.emit(bytecode.OpSetLocal, b.Index)
	}
}

// isConsumableTailParam reports whether b is a parameter of the currently
// compiling function that ConsumeLocal may safely move out of: a Local
// within the parameter range that no nested closure has captured.
func (c *Compiler) isConsumableTailParam(b *Binding) bool {
	if b.Scope != ScopeLocal {
		return false
	}
	fc := c.currentFunctionContext()
	if fc == nil || fc.Captured[b.Index] {
		return false
	}
	return b.Index < fc.NumParams
}
