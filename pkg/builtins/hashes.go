package builtins

import (
	"fmt"

	"github.com/kristofer/flux/pkg/value"
)

func asHash(fn string, v value.Value) (*value.HashMap, error) {
	if v.Kind != value.KindHash {
		return nil, fmt.Errorf("%s: expected a hash, got %s", fn, value.TypeName(v))
	}
	return v.Hash, nil
}

func biKeys(args []value.Value) (value.Value, error) {
	h, err := asHash("keys", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Array(h.Keys()), nil
}

func biValues(args []value.Value) (value.Value, error) {
	h, err := asHash("values", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Array(h.Values()), nil
}

func biHasKey(args []value.Value) (value.Value, error) {
	h, err := asHash("has_key", args[0])
	if err != nil {
		return value.Value{}, err
	}
	if !value.Hashable(args[1]) {
		return value.Value{}, fmt.Errorf("has_key: key must be hashable, got %s", value.TypeName(args[1]))
	}
	_, ok := h.Get(args[1])
	return value.Boolean(ok), nil
}

func biMerge(args []value.Value) (value.Value, error) {
	a, err := asHash("merge", args[0])
	if err != nil {
		return value.Value{}, err
	}
	b, err := asHash("merge", args[1])
	if err != nil {
		return value.Value{}, err
	}
	merged := a
	for _, k := range b.Keys() {
		v, _ := b.Get(k)
		merged = merged.Set(k, v)
	}
	return value.Hash(merged), nil
}
