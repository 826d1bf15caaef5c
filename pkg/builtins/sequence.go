package builtins

import (
	"fmt"

	"github.com/kristofer/flux/pkg/value"
)

// seqKind distinguishes the two sequence containers the sequence builtins
// (len, first, rest, push, concat, reverse, contains, slice, sort, map,
// filter, fold) accept: a true Array (built via `#[...]`, indexable in
// O(1)) and a cons List (built via `[...]` or `::`). Builtins that work on
// either return a value in the same family they were given, so `map` over
// a List yields a List and `map` over an Array yields an Array.
type seqKind int

const (
	seqArray seqKind = iota
	seqList
)

// toItems flattens v into a plain Go slice along with which family it
// came from, or reports a type error naming fn.
func toItems(fn string, v value.Value) ([]value.Value, seqKind, error) {
	switch v.Kind {
	case value.KindArray:
		return v.Items, seqArray, nil
	case value.KindNone:
		return nil, seqList, nil
	case value.KindCons:
		var items []value.Value
		cur := v
		for cur.Kind == value.KindCons {
			items = append(items, cur.Cons.Head)
			cur = cur.Cons.Tail
		}
		return items, seqList, nil
	default:
		return nil, 0, fmt.Errorf("%s: expected an array or list, got %s", fn, value.TypeName(v))
	}
}

// fromItems rebuilds a sequence of the given kind from items.
func fromItems(kind seqKind, items []value.Value) value.Value {
	if kind == seqArray {
		return value.Array(items)
	}
	list := value.EmptyList()
	for i := len(items) - 1; i >= 0; i-- {
		list = value.Cons(items[i], list)
	}
	return list
}
