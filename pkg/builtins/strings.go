package builtins

import (
	"fmt"
	"strings"

	"github.com/kristofer/flux/pkg/value"
)

func biToString(args []value.Value) (value.Value, error) {
	return value.String(value.ToDisplayString(args[0])), nil
}

func biSplit(args []value.Value) (value.Value, error) {
	s, ok := asString(args[0])
	if !ok {
		return value.Value{}, fmt.Errorf("split: expected a string, got %s", value.TypeName(args[0]))
	}
	sep, ok := asString(args[1])
	if !ok {
		return value.Value{}, fmt.Errorf("split: expected a string separator, got %s", value.TypeName(args[1]))
	}

	var parts []string
	if sep == "" {
		for _, r := range s {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(s, sep)
	}
	items := make([]value.Value, len(parts))
	for i, p := range parts {
		items[i] = value.String(p)
	}
	return value.Array(items), nil
}

func biJoin(args []value.Value) (value.Value, error) {
	items, _, err := toItems("join", args[0])
	if err != nil {
		return value.Value{}, err
	}
	sep, ok := asString(args[1])
	if !ok {
		return value.Value{}, fmt.Errorf("join: expected a string separator, got %s", value.TypeName(args[1]))
	}
	parts := make([]string, len(items))
	for i, it := range items {
		s, ok := asString(it)
		if !ok {
			return value.Value{}, fmt.Errorf("join: expected a sequence of strings, got %s", value.TypeName(it))
		}
		parts[i] = s
	}
	return value.String(strings.Join(parts, sep)), nil
}

func biTrim(args []value.Value) (value.Value, error) {
	s, ok := asString(args[0])
	if !ok {
		return value.Value{}, fmt.Errorf("trim: expected a string, got %s", value.TypeName(args[0]))
	}
	return value.String(strings.TrimSpace(s)), nil
}

func biUpper(args []value.Value) (value.Value, error) {
	s, ok := asString(args[0])
	if !ok {
		return value.Value{}, fmt.Errorf("upper: expected a string, got %s", value.TypeName(args[0]))
	}
	return value.String(strings.ToUpper(s)), nil
}

func biLower(args []value.Value) (value.Value, error) {
	s, ok := asString(args[0])
	if !ok {
		return value.Value{}, fmt.Errorf("lower: expected a string, got %s", value.TypeName(args[0]))
	}
	return value.String(strings.ToLower(s)), nil
}

func biChars(args []value.Value) (value.Value, error) {
	s, ok := asString(args[0])
	if !ok {
		return value.Value{}, fmt.Errorf("chars: expected a string, got %s", value.TypeName(args[0]))
	}
	runes := []rune(s)
	items := make([]value.Value, len(runes))
	for i, r := range runes {
		items[i] = value.String(string(r))
	}
	return value.Array(items), nil
}

func biSubstring(args []value.Value) (value.Value, error) {
	s, ok := asString(args[0])
	if !ok {
		return value.Value{}, fmt.Errorf("substring: expected a string, got %s", value.TypeName(args[0]))
	}
	start, ok := asInt(args[1])
	if !ok {
		return value.Value{}, fmt.Errorf("substring: expected an int start, got %s", value.TypeName(args[1]))
	}
	end, ok := asInt(args[2])
	if !ok {
		return value.Value{}, fmt.Errorf("substring: expected an int end, got %s", value.TypeName(args[2]))
	}

	runes := []rune(s)
	if start < 0 {
		start = 0
	}
	if end > int64(len(runes)) {
		end = int64(len(runes))
	}
	if start >= end {
		return value.String(""), nil
	}
	return value.String(string(runes[start:end])), nil
}

func asString(v value.Value) (string, bool) {
	if v.Kind != value.KindString {
		return "", false
	}
	return v.Str, true
}

func asInt(v value.Value) (int64, bool) {
	if v.Kind != value.KindInteger {
		return 0, false
	}
	return v.Int, true
}
