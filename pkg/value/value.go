// Package value implements Flux's tagged runtime value representation.
//
// spec.md's data model splits the heap into reference-counted acyclic
// objects and a traced heap for cons cells, because a non-GC host needs
// that split to reclaim memory safely. Go already provides one tracing
// collector for the whole process, so every heap-allocated Value here —
// strings, arrays, hashes, closures, and cons cells alike — is an ordinary
// Go pointer or slice, collected the same way. This is the simplification
// spec.md §9 explicitly sanctions for GC-hosted implementations: it is not
// a correctness shortcut, it is what "traced heap" means when the host
// runtime already traces the heap for you. See DESIGN.md "Value representation".
package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kristofer/flux/pkg/bytecode"
)

// Kind discriminates the variant of a Value.
type Kind int

const (
	KindInteger Kind = iota
	KindFloat
	KindBoolean
	KindString
	KindNone
	KindSome
	KindLeft
	KindRight
	KindArray
	KindHash
	KindFunction
	KindClosure
	KindBuiltin
	KindCons
)

// Value is Flux's universal runtime datum. Exactly one field is
// meaningful per Kind; callers must switch on Kind (or use the As*
// accessors) rather than guess from zero values, since e.g. Integer(0) and
// an unset Value both have Int == 0.
type Value struct {
	Kind    Kind
	Int     int64
	Float   float64
	Bool    bool
	Str     string
	Inner   *Value      // Some/Left/Right payload
	Items   []Value     // Array
	Hash    *HashMap    // Hash
	Fn      *CompiledFunction
	Closure *Closure
	Builtin *Builtin
	Cons    *ConsCell
}

// Integer, Float, Boolean, String, None, Some, Left, Right, Array are
// constructors for the corresponding Value variant.

func Integer(v int64) Value   { return Value{Kind: KindInteger, Int: v} }
func Float(v float64) Value   { return Value{Kind: KindFloat, Float: v} }
func Boolean(v bool) Value    { return Value{Kind: KindBoolean, Bool: v} }
func String(v string) Value   { return Value{Kind: KindString, Str: v} }
func None() Value             { return Value{Kind: KindNone} }

func Some(inner Value) Value  { return Value{Kind: KindSome, Inner: &inner} }
func Left(inner Value) Value  { return Value{Kind: KindLeft, Inner: &inner} }
func Right(inner Value) Value { return Value{Kind: KindRight, Inner: &inner} }
func Array(items []Value) Value {
	return Value{Kind: KindArray, Items: items}
}

// ConsCell is the one heap object that can, in principle, form a cycle
// (via a future recursive-binding extension); it is an ordinary Go pointer
// so the language's host GC reclaims it exactly like everything else.
type ConsCell struct {
	Head Value
	Tail Value
}

func Cons(head, tail Value) Value {
	return Value{Kind: KindCons, Cons: &ConsCell{Head: head, Tail: tail}}
}

// EmptyList is the canonical `[]`/list-terminator value — represented
// identically to None, since a cons chain's tail is either another Cons or
// this sentinel.
func EmptyList() Value { return None() }

// CompiledFunction is an immutable record produced once during
// compilation and shared for the bytecode's lifetime.
type CompiledFunction struct {
	Instructions  bytecode.Instructions
	NumLocals     int
	NumParameters int
	MaxStackDepth int
	DebugInfo     *bytecode.DebugInfo
	Name          string // empty for anonymous literals; used in stack traces
}

func Function(fn *CompiledFunction) Value {
	return Value{Kind: KindFunction, Fn: fn}
}

// Closure pairs a CompiledFunction with the values of its free variables,
// fixed at creation and never mutated afterward.
type Closure struct {
	Fn   *CompiledFunction
	Free []Value
}

func MakeClosure(c *Closure) Value {
	return Value{Kind: KindClosure, Closure: c}
}

// Builtin is a host-provided function: (name, arity-or-variadic, fn).
// Arity == -1 means variadic.
type Builtin struct {
	Name  string
	Arity int
	Fn    func(args []Value) (Value, error)
}

func MakeBuiltin(b *Builtin) Value {
	return Value{Kind: KindBuiltin, Builtin: b}
}

// HashMap is Flux's Hash container: an immutable map keyed by a hashable
// subset of Value {Integer, Boolean, String}. Go's map can't key on Value
// directly (it holds non-comparable slice/pointer fields), so HashMap
// keys on a derived comparable HashKey and keeps the original Value
// alongside each entry for iteration (`keys`/`values` builtins).
type HashMap struct {
	entries map[HashKey]hashEntry
	order   []HashKey // insertion order, for deterministic keys()/values()
}

type hashEntry struct {
	key   Value
	value Value
}

// HashKey is the comparable projection of a hashable Value.
type HashKey struct {
	Kind Kind
	Int  int64
	Bool bool
	Str  string
}

// Hashable reports whether v can be used as a Hash key.
func Hashable(v Value) bool {
	switch v.Kind {
	case KindInteger, KindBoolean, KindString:
		return true
	default:
		return false
	}
}

func keyOf(v Value) HashKey {
	return HashKey{Kind: v.Kind, Int: v.Int, Bool: v.Bool, Str: v.Str}
}

func NewHashMap() *HashMap {
	return &HashMap{entries: map[HashKey]hashEntry{}}
}

func (h *HashMap) Set(key, val Value) *HashMap {
	out := &HashMap{entries: make(map[HashKey]hashEntry, len(h.entries)+1), order: append([]HashKey{}, h.order...)}
	for k, v := range h.entries {
		out.entries[k] = v
	}
	k := keyOf(key)
	if _, exists := out.entries[k]; !exists {
		out.order = append(out.order, k)
	}
	out.entries[k] = hashEntry{key: key, value: val}
	return out
}

func (h *HashMap) Get(key Value) (Value, bool) {
	e, ok := h.entries[keyOf(key)]
	return e.value, ok
}

func (h *HashMap) Len() int { return len(h.order) }

func (h *HashMap) Keys() []Value {
	out := make([]Value, 0, len(h.order))
	for _, k := range h.order {
		out = append(out, h.entries[k].key)
	}
	return out
}

func (h *HashMap) Values() []Value {
	out := make([]Value, 0, len(h.order))
	for _, k := range h.order {
		out = append(out, h.entries[k].value)
	}
	return out
}

func Hash(m *HashMap) Value { return Value{Kind: KindHash, Hash: m} }

// Truthy implements spec.md §4.3's truthiness rule: only false and None
// are falsy; 0, 0.0, "", and empty containers are all truthy.
func Truthy(v Value) bool {
	switch v.Kind {
	case KindBoolean:
		return v.Bool
	case KindNone:
		return false
	default:
		return true
	}
}

// Equal is structural equality for primitives/containers and identity
// equality for Function/Closure/Builtin.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		if isNumeric(a) && isNumeric(b) {
			return numericEqual(a, b)
		}
		return false
	}
	switch a.Kind {
	case KindInteger:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindBoolean:
		return a.Bool == b.Bool
	case KindString:
		return a.Str == b.Str
	case KindNone:
		return true
	case KindSome, KindLeft, KindRight:
		return Equal(*a.Inner, *b.Inner)
	case KindArray:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case KindCons:
		return Equal(a.Cons.Head, b.Cons.Head) && Equal(a.Cons.Tail, b.Cons.Tail)
	case KindHash:
		if a.Hash.Len() != b.Hash.Len() {
			return false
		}
		for _, k := range a.Hash.Keys() {
			av, _ := a.Hash.Get(k)
			bv, ok := b.Hash.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindFunction:
		return a.Fn == b.Fn
	case KindClosure:
		return a.Closure == b.Closure
	case KindBuiltin:
		return a.Builtin == b.Builtin
	default:
		return false
	}
}

func isNumeric(v Value) bool { return v.Kind == KindInteger || v.Kind == KindFloat }

func numericEqual(a, b Value) bool {
	af := a.Float
	if a.Kind == KindInteger {
		af = float64(a.Int)
	}
	bf := b.Float
	if b.Kind == KindInteger {
		bf = float64(b.Int)
	}
	return af == bf
}

// TypeName returns the lowercase type name used by `type_of` and by
// diagnostics that need to describe a Value's type.
func TypeName(v Value) string {
	switch v.Kind {
	case KindInteger:
		return "int"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "bool"
	case KindString:
		return "string"
	case KindNone:
		return "none"
	case KindSome:
		return "some"
	case KindLeft:
		return "left"
	case KindRight:
		return "right"
	case KindArray:
		return "array"
	case KindHash:
		return "hash"
	case KindFunction, KindClosure:
		return "function"
	case KindBuiltin:
		return "builtin"
	case KindCons:
		return "cons"
	default:
		return "unknown"
	}
}

// ToDisplayString renders v the way `to_string` and string interpolation
// do: human-facing, not a debug dump.
func ToDisplayString(v Value) string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.Bool)
	case KindString:
		return v.Str
	case KindNone:
		return "None"
	case KindSome:
		return "Some(" + ToDisplayString(*v.Inner) + ")"
	case KindLeft:
		return "Left(" + ToDisplayString(*v.Inner) + ")"
	case KindRight:
		return "Right(" + ToDisplayString(*v.Inner) + ")"
	case KindArray:
		parts := make([]string, len(v.Items))
		for i, it := range v.Items {
			parts[i] = ToDisplayString(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindHash:
		var parts []string
		for _, k := range v.Hash.Keys() {
			val, _ := v.Hash.Get(k)
			parts = append(parts, ToDisplayString(k)+": "+ToDisplayString(val))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindCons:
		return consToDisplayString(v)
	case KindFunction:
		return fmt.Sprintf("<function %s>", v.Fn.Name)
	case KindClosure:
		return fmt.Sprintf("<closure %s>", v.Closure.Fn.Name)
	case KindBuiltin:
		return fmt.Sprintf("<builtin %s>", v.Builtin.Name)
	default:
		return "<unknown>"
	}
}

func consToDisplayString(v Value) string {
	var parts []string
	cur := v
	for cur.Kind == KindCons {
		parts = append(parts, ToDisplayString(cur.Cons.Head))
		cur = cur.Cons.Tail
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
