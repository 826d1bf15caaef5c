package builtins

import (
	"fmt"
	"strings"

	"github.com/kristofer/flux/pkg/value"
)

func biPrint(args []value.Value) (value.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = value.ToDisplayString(a)
	}
	fmt.Println(strings.Join(parts, " "))
	return value.None(), nil
}

func biLen(args []value.Value) (value.Value, error) {
	switch args[0].Kind {
	case value.KindString:
		return value.Integer(int64(len([]rune(args[0].Str)))), nil
	case value.KindHash:
		return value.Integer(int64(args[0].Hash.Len())), nil
	case value.KindArray:
		return value.Integer(int64(len(args[0].Items))), nil
	case value.KindNone, value.KindCons:
		items, _, _ := toItems("len", args[0])
		return value.Integer(int64(len(items))), nil
	default:
		return value.Value{}, fmt.Errorf("len: expected a string, array, list, or hash, got %s", value.TypeName(args[0]))
	}
}

// typeOfName names match the original implementation's `type_of` (title
// case), distinct from value.TypeName's lowercase diagnostic names.
func typeOfName(v value.Value) string {
	switch v.Kind {
	case value.KindInteger:
		return "Int"
	case value.KindFloat:
		return "Float"
	case value.KindBoolean:
		return "Bool"
	case value.KindString:
		return "String"
	case value.KindNone:
		return "None"
	case value.KindSome:
		return "Some"
	case value.KindLeft:
		return "Left"
	case value.KindRight:
		return "Right"
	case value.KindArray:
		return "Array"
	case value.KindHash:
		return "Hash"
	case value.KindCons:
		return "List"
	case value.KindFunction, value.KindClosure:
		return "Function"
	case value.KindBuiltin:
		return "Builtin"
	default:
		return "Unknown"
	}
}

func biTypeOf(args []value.Value) (value.Value, error) {
	return value.String(typeOfName(args[0])), nil
}

// kindPredicate builds an `is_*` builtin that reports whether its
// argument has the given Kind.
func kindPredicate(kind value.Kind) func(args []value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		return value.Boolean(args[0].Kind == kind), nil
	}
}
