package compiler

import "github.com/kristofer/flux/pkg/diagnostics"

// SymbolScope classifies where a Binding's value lives at runtime.
type SymbolScope int

const (
	ScopeGlobal SymbolScope = iota
	ScopeLocal
	ScopeBuiltin
	ScopeFree
	// ScopeFunction marks a function's own name resolved from inside its
	// own body, compiled as OpCurrentClosure to support anonymous
	// recursion without a global lookup.
	ScopeFunction
)

// Binding is the compiler-internal record for one named value.
type Binding struct {
	Name        string
	Scope       SymbolScope
	Index       int
	IsAssigned  bool
	Span        diagnostics.Span
}

func (b *Binding) MarkAssigned() { b.IsAssigned = true }

// SymbolTable is a single lexical scope, chained to its parent. Entering a
// function pushes a new SymbolTable with allowFree=true (free variables
// promote). Entering a match arm or `if`/block body pushes one with
// allowFree=false: block scopes share the enclosing function's
// local-index space and never promote a resolved name to Free — only a
// true function boundary does that.
type SymbolTable struct {
	Outer *SymbolTable

	store          map[string]*Binding
	numDefinitions int
	FreeSymbols    []*Binding

	allowFree bool
}

// New creates the root (global) symbol table.
func New() *SymbolTable {
	return &SymbolTable{store: map[string]*Binding{}, allowFree: true}
}

// NewEnclosed pushes a function-scope table: identifiers resolved in an
// enclosing function scope promote to Free here.
func NewEnclosed(outer *SymbolTable) *SymbolTable {
	return &SymbolTable{Outer: outer, store: map[string]*Binding{}, allowFree: true}
}

// NewBlock pushes a block-scope table (if/match-arm bodies): it shares the
// enclosing function's local-index space via numDefinitions propagation
// and never promotes resolved names to Free.
func NewBlock(outer *SymbolTable) *SymbolTable {
	return &SymbolTable{Outer: outer, store: map[string]*Binding{}, allowFree: false, numDefinitions: outer.numDefinitions}
}

// LeaveBlock propagates the block's final local count back to its parent,
// so locals defined inside an if/match arm still reserve stack slots in
// the enclosing function.
func (s *SymbolTable) LeaveBlock() {
	if s.Outer != nil {
		s.Outer.numDefinitions = s.numDefinitions
	}
}

func (s *SymbolTable) NumDefinitions() int { return s.numDefinitions }

// ExistsInCurrentScope reports whether name is already bound in this exact
// table (not an outer one) — used for DUPLICATE_NAME detection.
func (s *SymbolTable) ExistsInCurrentScope(name string) bool {
	_, ok := s.store[name]
	return ok
}

// Define introduces name as a new binding in the current scope: Global if
// this is the root table, Local otherwise.
func (s *SymbolTable) Define(name string, span diagnostics.Span) *Binding {
	scope := ScopeLocal
	if s.Outer == nil {
		scope = ScopeGlobal
	}
	b := &Binding{Name: name, Scope: scope, Index: s.numDefinitions, Span: span}
	s.store[name] = b
	s.numDefinitions++
	return b
}

// DefineBuiltin registers a fixed-index host builtin in the root scope.
func (s *SymbolTable) DefineBuiltin(index int, name string) *Binding {
	b := &Binding{Name: name, Scope: ScopeBuiltin, Index: index}
	s.store[name] = b
	return b
}

// DefineFunctionName binds a named function's own name within its body so
// recursive calls resolve to ScopeFunction (CurrentClosure) rather than a
// global lookup.
func (s *SymbolTable) DefineFunctionName(name string) *Binding {
	b := &Binding{Name: name, Scope: ScopeFunction, Index: 0}
	s.store[name] = b
	return b
}

// DefineTemp allocates a fresh, uniquely-named local used by match-pattern
// lowering to hold an intermediate extracted value.
var tempCounter int

func (s *SymbolTable) DefineTemp() *Binding {
	tempCounter++
	name := "$temp" + itoa(tempCounter)
	scope := ScopeLocal
	if s.Outer == nil {
		scope = ScopeGlobal
	}
	b := &Binding{Name: name, Scope: scope, Index: s.numDefinitions}
	s.store[name] = b
	s.numDefinitions++
	return b
}

// DefineFree records a promoted free-variable binding at the next free
// index and returns the new local-facing Binding with Scope=Free.
func (s *SymbolTable) DefineFree(original *Binding) *Binding {
	s.FreeSymbols = append(s.FreeSymbols, original)
	b := &Binding{Name: original.Name, Scope: ScopeFree, Index: len(s.FreeSymbols) - 1}
	s.store[original.Name] = b
	return b
}

// Resolve walks the scope chain for name. If found in an enclosing
// function scope (not a block, not Global/Builtin), it is promoted to
// Free in every intervening function scope down to the current one.
func (s *SymbolTable) Resolve(name string) (*Binding, bool) {
	if b, ok := s.store[name]; ok {
		return b, true
	}
	if s.Outer == nil {
		return nil, false
	}
	outerBinding, ok := s.Outer.Resolve(name)
	if !ok {
		return nil, false
	}
	if outerBinding.Scope == ScopeGlobal || outerBinding.Scope == ScopeBuiltin {
		return outerBinding, true
	}
	if !s.allowFree {
		// Block scopes never promote: the resolved binding is used
		// as-is (it already lives in the enclosing function's local
		// or free slot set).
		return outerBinding, true
	}
	free := s.DefineFree(outerBinding)
	return free, true
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
