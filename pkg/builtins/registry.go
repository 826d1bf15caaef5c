// Package builtins implements Flux's predeclared builtin functions: the
// fixed table compiler.BuiltinNames enumerates, indexed the same way the
// compiler predeclares them so OpGetBuiltin's operand lines up with this
// package's registry without a name lookup at run time.
package builtins

import (
	"github.com/kristofer/flux/pkg/compiler"
	"github.com/kristofer/flux/pkg/value"
)

// FunctionCaller is the subset of *vm.VM the higher-order builtins (map,
// filter, fold) need: a way to apply a user-supplied closure to a slice of
// arguments from inside a builtin's own Go implementation. Builtins depend
// on this interface rather than pkg/vm directly, so the VM never needs to
// import its own builtin table.
type FunctionCaller interface {
	CallFunction(fn value.Value, args []value.Value) (value.Value, error)
}

// table maps a builtin name to the (arity, implementation) pair. Arity -1
// marks a variadic builtin (currently `list`, `print` and `sort`).
var table = map[string]func(caller FunctionCaller) *value.Builtin{
	"print":      func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "print", Arity: -1, Fn: biPrint} },
	"len":        func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "len", Arity: 1, Fn: biLen} },
	"first":      func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "first", Arity: 1, Fn: biFirst} },
	"last":       func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "last", Arity: 1, Fn: biLast} },
	"rest":       func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "rest", Arity: 1, Fn: biRest} },
	"push":       func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "push", Arity: 2, Fn: biPush} },
	"to_string":  func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "to_string", Arity: 1, Fn: biToString} },
	"concat":     func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "concat", Arity: 2, Fn: biConcat} },
	"reverse":    func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "reverse", Arity: 1, Fn: biReverse} },
	"contains":   func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "contains", Arity: 2, Fn: biContains} },
	"slice":      func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "slice", Arity: 3, Fn: biSlice} },
	"sort":       func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "sort", Arity: -1, Fn: biSort} },
	"split":      func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "split", Arity: 2, Fn: biSplit} },
	"join":       func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "join", Arity: 2, Fn: biJoin} },
	"trim":       func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "trim", Arity: 1, Fn: biTrim} },
	"upper":      func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "upper", Arity: 1, Fn: biUpper} },
	"lower":      func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "lower", Arity: 1, Fn: biLower} },
	"chars":      func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "chars", Arity: 1, Fn: biChars} },
	"substring":  func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "substring", Arity: 3, Fn: biSubstring} },
	"keys":       func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "keys", Arity: 1, Fn: biKeys} },
	"values":     func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "values", Arity: 1, Fn: biValues} },
	"has_key":    func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "has_key", Arity: 2, Fn: biHasKey} },
	"merge":      func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "merge", Arity: 2, Fn: biMerge} },
	"abs":        func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "abs", Arity: 1, Fn: biAbs} },
	"min":        func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "min", Arity: 2, Fn: biMin} },
	"max":        func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "max", Arity: 2, Fn: biMax} },
	"type_of":    func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "type_of", Arity: 1, Fn: biTypeOf} },
	"is_int":     func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "is_int", Arity: 1, Fn: kindPredicate(value.KindInteger)} },
	"is_float":   func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "is_float", Arity: 1, Fn: kindPredicate(value.KindFloat)} },
	"is_string":  func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "is_string", Arity: 1, Fn: kindPredicate(value.KindString)} },
	"is_bool":    func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "is_bool", Arity: 1, Fn: kindPredicate(value.KindBoolean)} },
	"is_array":   func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "is_array", Arity: 1, Fn: kindPredicate(value.KindArray)} },
	"is_hash":    func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "is_hash", Arity: 1, Fn: kindPredicate(value.KindHash)} },
	"is_none":    func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "is_none", Arity: 1, Fn: kindPredicate(value.KindNone)} },
	"is_some":    func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "is_some", Arity: 1, Fn: kindPredicate(value.KindSome)} },
	"map":        func(c FunctionCaller) *value.Builtin { return &value.Builtin{Name: "map", Arity: 2, Fn: biMap(c)} },
	"filter":     func(c FunctionCaller) *value.Builtin { return &value.Builtin{Name: "filter", Arity: 2, Fn: biFilter(c)} },
	"fold":       func(c FunctionCaller) *value.Builtin { return &value.Builtin{Name: "fold", Arity: 3, Fn: biFold(c)} },
	"list":       func(FunctionCaller) *value.Builtin { return &value.Builtin{Name: "list", Arity: -1, Fn: biList} },
}

// All builds the builtin table in compiler.BuiltinNames order, ready to
// pass to vm.VM.SetBuiltins. caller backs the higher-order builtins; every
// other entry ignores it.
func All(caller FunctionCaller) []value.Value {
	names := compiler.BuiltinNames()
	out := make([]value.Value, len(names))
	for i, name := range names {
		ctor, ok := table[name]
		if !ok {
			panic("builtins: no implementation registered for predeclared name " + name)
		}
		out[i] = value.MakeBuiltin(ctor(caller))
	}
	return out
}
