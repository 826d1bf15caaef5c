package builtins

import (
	"fmt"
	"math"

	"github.com/kristofer/flux/pkg/value"
)

func asFloat(v value.Value) (float64, bool) {
	switch v.Kind {
	case value.KindInteger:
		return float64(v.Int), true
	case value.KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

func biAbs(args []value.Value) (value.Value, error) {
	switch args[0].Kind {
	case value.KindInteger:
		if args[0].Int < 0 {
			return value.Integer(-args[0].Int), nil
		}
		return args[0], nil
	case value.KindFloat:
		return value.Float(math.Abs(args[0].Float)), nil
	default:
		return value.Value{}, fmt.Errorf("abs: expected int or float, got %s", value.TypeName(args[0]))
	}
}

func biMin(args []value.Value) (value.Value, error) {
	a, ok1 := asFloat(args[0])
	b, ok2 := asFloat(args[1])
	if !ok1 || !ok2 {
		return value.Value{}, fmt.Errorf("min: expected two numbers, got %s and %s", value.TypeName(args[0]), value.TypeName(args[1]))
	}
	if a <= b {
		return args[0], nil
	}
	return args[1], nil
}

func biMax(args []value.Value) (value.Value, error) {
	a, ok1 := asFloat(args[0])
	b, ok2 := asFloat(args[1])
	if !ok1 || !ok2 {
		return value.Value{}, fmt.Errorf("max: expected two numbers, got %s and %s", value.TypeName(args[0]), value.TypeName(args[1]))
	}
	if a >= b {
		return args[0], nil
	}
	return args[1], nil
}
