package builtins

import (
	"fmt"
	"sort"

	"github.com/kristofer/flux/pkg/value"
)

func biFirst(args []value.Value) (value.Value, error) {
	items, _, err := toItems("first", args[0])
	if err != nil {
		return value.Value{}, err
	}
	if len(items) == 0 {
		return value.None(), nil
	}
	return items[0], nil
}

func biLast(args []value.Value) (value.Value, error) {
	items, _, err := toItems("last", args[0])
	if err != nil {
		return value.Value{}, err
	}
	if len(items) == 0 {
		return value.None(), nil
	}
	return items[len(items)-1], nil
}

func biRest(args []value.Value) (value.Value, error) {
	items, kind, err := toItems("rest", args[0])
	if err != nil {
		return value.Value{}, err
	}
	if len(items) == 0 {
		return fromItems(kind, nil), nil
	}
	return fromItems(kind, items[1:]), nil
}

func biPush(args []value.Value) (value.Value, error) {
	items, kind, err := toItems("push", args[0])
	if err != nil {
		return value.Value{}, err
	}
	out := make([]value.Value, len(items)+1)
	copy(out, items)
	out[len(items)] = args[1]
	return fromItems(kind, out), nil
}

func biConcat(args []value.Value) (value.Value, error) {
	a, kind, err := toItems("concat", args[0])
	if err != nil {
		return value.Value{}, err
	}
	b, _, err := toItems("concat", args[1])
	if err != nil {
		return value.Value{}, err
	}
	out := make([]value.Value, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return fromItems(kind, out), nil
}

func biReverse(args []value.Value) (value.Value, error) {
	items, kind, err := toItems("reverse", args[0])
	if err != nil {
		return value.Value{}, err
	}
	out := make([]value.Value, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return fromItems(kind, out), nil
}

func biContains(args []value.Value) (value.Value, error) {
	items, _, err := toItems("contains", args[0])
	if err != nil {
		return value.Value{}, err
	}
	for _, it := range items {
		if value.Equal(it, args[1]) {
			return value.Boolean(true), nil
		}
	}
	return value.Boolean(false), nil
}

func biSlice(args []value.Value) (value.Value, error) {
	items, kind, err := toItems("slice", args[0])
	if err != nil {
		return value.Value{}, err
	}
	start, ok := asInt(args[1])
	if !ok {
		return value.Value{}, fmt.Errorf("slice: expected an int start, got %s", value.TypeName(args[1]))
	}
	end, ok := asInt(args[2])
	if !ok {
		return value.Value{}, fmt.Errorf("slice: expected an int end, got %s", value.TypeName(args[2]))
	}
	if start < 0 {
		start = 0
	}
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	if start >= end {
		return fromItems(kind, nil), nil
	}
	return fromItems(kind, items[start:end]), nil
}

// biSort accepts an optional second argument, "asc" (default) or "desc".
// Elements must be all-numeric (Int/Float, promoted for comparison) or
// all-String; mixing families is a type error.
func biSort(args []value.Value) (value.Value, error) {
	if len(args) != 1 && len(args) != 2 {
		return value.Value{}, fmt.Errorf("sort: expected 1 or 2 arguments, got %d", len(args))
	}
	items, kind, err := toItems("sort", args[0])
	if err != nil {
		return value.Value{}, err
	}

	desc := false
	if len(args) == 2 {
		order, ok := asString(args[1])
		if !ok || (order != "asc" && order != "desc") {
			return value.Value{}, fmt.Errorf(`sort: order must be "asc" or "desc"`)
		}
		desc = order == "desc"
	}

	out := append([]value.Value(nil), items...)
	allNumeric := true
	allString := true
	for _, it := range out {
		if _, ok := asFloat(it); !ok {
			allNumeric = false
		}
		if it.Kind != value.KindString {
			allString = false
		}
	}

	var less func(i, j int) bool
	switch {
	case len(out) == 0:
		less = func(int, int) bool { return false }
	case allNumeric:
		less = func(i, j int) bool {
			a, _ := asFloat(out[i])
			b, _ := asFloat(out[j])
			return a < b
		}
	case allString:
		less = func(i, j int) bool { return out[i].Str < out[j].Str }
	default:
		return value.Value{}, fmt.Errorf("sort: elements must be all numbers or all strings")
	}

	if desc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(out, less)
	return fromItems(kind, out), nil
}

// biList implements the `list` builtin the compiler lowers `[]`/`[a, b,
// c]` literals through: its arguments become the list's elements in
// order, one cons cell per argument, terminated with the empty list.
func biList(args []value.Value) (value.Value, error) {
	return fromItems(seqList, args), nil
}

// biMap, biFilter, and biFold are curried over a FunctionCaller so the
// registry can wire in the VM without those builtins depending on pkg/vm.

func biMap(caller FunctionCaller) func(args []value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		items, kind, err := toItems("map", args[0])
		if err != nil {
			return value.Value{}, err
		}
		out := make([]value.Value, len(items))
		for i, it := range items {
			r, err := caller.CallFunction(args[1], []value.Value{it})
			if err != nil {
				return value.Value{}, err
			}
			out[i] = r
		}
		return fromItems(kind, out), nil
	}
}

func biFilter(caller FunctionCaller) func(args []value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		items, kind, err := toItems("filter", args[0])
		if err != nil {
			return value.Value{}, err
		}
		var out []value.Value
		for _, it := range items {
			r, err := caller.CallFunction(args[1], []value.Value{it})
			if err != nil {
				return value.Value{}, err
			}
			if value.Truthy(r) {
				out = append(out, it)
			}
		}
		return fromItems(kind, out), nil
	}
}

func biFold(caller FunctionCaller) func(args []value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		items, _, err := toItems("fold", args[0])
		if err != nil {
			return value.Value{}, err
		}
		acc := args[1]
		for _, it := range items {
			acc, err = caller.CallFunction(args[2], []value.Value{acc, it})
			if err != nil {
				return value.Value{}, err
			}
		}
		return acc, nil
	}
}
