package builtins

import (
	"testing"

	"github.com/kristofer/flux/pkg/compiler"
	"github.com/kristofer/flux/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	call func(fn value.Value, args []value.Value) (value.Value, error)
}

func (f fakeCaller) CallFunction(fn value.Value, args []value.Value) (value.Value, error) {
	return f.call(fn, args)
}

func lookup(t *testing.T, caller FunctionCaller, name string) *value.Builtin {
	t.Helper()
	ctor, ok := table[name]
	require.True(t, ok, "no builtin registered for %q", name)
	return ctor(caller)
}

func arr(vs ...value.Value) value.Value { return value.Array(vs) }

func TestAllMatchesCompilerPredeclarationOrder(t *testing.T) {
	names := compiler.BuiltinNames()
	builtinsList := All(fakeCaller{})
	require.Len(t, builtinsList, len(names))
	for i, name := range names {
		require.Equal(t, value.KindBuiltin, builtinsList[i].Kind)
		assert.Equal(t, name, builtinsList[i].Builtin.Name, "index %d", i)
	}
}

func TestLenStringArrayHash(t *testing.T) {
	r, err := biLen([]value.Value{value.String("hello")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), r.Int)

	r, err = biLen([]value.Value{arr(value.Integer(1), value.Integer(2), value.Integer(3))})
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.Int)

	h := value.NewHashMap().Set(value.String("a"), value.Integer(1))
	r, err = biLen([]value.Value{value.Hash(h)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Int)
}

func TestFirstLastRestOnArray(t *testing.T) {
	a := arr(value.Integer(1), value.Integer(2), value.Integer(3))

	first, err := biFirst([]value.Value{a})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Int)

	last, err := biLast([]value.Value{a})
	require.NoError(t, err)
	assert.Equal(t, int64(3), last.Int)

	rest, err := biRest([]value.Value{a})
	require.NoError(t, err)
	require.Equal(t, value.KindArray, rest.Kind)
	assert.Equal(t, []int64{2, 3}, intsOf(rest.Items))
}

func TestFirstOnEmptyArrayReturnsNone(t *testing.T) {
	r, err := biFirst([]value.Value{arr()})
	require.NoError(t, err)
	assert.Equal(t, value.KindNone, r.Kind)
}

func TestPushConcatReverse(t *testing.T) {
	a := arr(value.Integer(1))
	pushed, err := biPush([]value.Value{a, value.Integer(2)})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, intsOf(pushed.Items))

	b := arr(value.Integer(3), value.Integer(4))
	concatenated, err := biConcat([]value.Value{a, b})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, intsOf(concatenated.Items))

	reversed, err := biReverse([]value.Value{concatenated})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3, 1}, intsOf(reversed.Items))
}

func TestContains(t *testing.T) {
	a := arr(value.Integer(1), value.Integer(2), value.Integer(3))
	r, err := biContains([]value.Value{a, value.Integer(2)})
	require.NoError(t, err)
	assert.True(t, r.Bool)

	r, err = biContains([]value.Value{a, value.Integer(9)})
	require.NoError(t, err)
	assert.False(t, r.Bool)
}

func TestSliceClampsOutOfBounds(t *testing.T) {
	a := arr(value.Integer(1), value.Integer(2))
	r, err := biSlice([]value.Value{a, value.Integer(0), value.Integer(10)})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, intsOf(r.Items))
}

func TestSortAscDescAndInvalidOrder(t *testing.T) {
	a := arr(value.Integer(3), value.Integer(1), value.Integer(4), value.Integer(1), value.Integer(5))

	asc, err := biSort([]value.Value{a})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 3, 4, 5}, intsOf(asc.Items))

	desc, err := biSort([]value.Value{a, value.String("desc")})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 3, 1, 1}, intsOf(desc.Items))

	_, err = biSort([]value.Value{a, value.String("sideways")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `must be "asc" or "desc"`)
}

func TestSortMixedNumericPromotes(t *testing.T) {
	a := arr(value.Integer(3), value.Float(1.5), value.Integer(2))
	r, err := biSort([]value.Value{a})
	require.NoError(t, err)
	require.Len(t, r.Items, 3)
	assert.Equal(t, value.Float(1.5), r.Items[0])
}

func TestListBuiltinMirrorsListLiteralLowering(t *testing.T) {
	r, err := biList([]value.Value{value.Integer(1), value.Integer(2), value.Integer(3)})
	require.NoError(t, err)
	require.Equal(t, value.KindCons, r.Kind)
	assert.Equal(t, int64(1), r.Cons.Head.Int)
	assert.Equal(t, int64(2), r.Cons.Tail.Cons.Head.Int)
}

func TestMapFilterFoldCallBackIntoVM(t *testing.T) {
	double := value.Function(&value.CompiledFunction{Name: "double"})
	caller := fakeCaller{call: func(fn value.Value, args []value.Value) (value.Value, error) {
		return value.Integer(args[0].Int * 2), nil
	}}
	mapFn := biMap(caller)
	r, err := mapFn([]value.Value{arr(value.Integer(1), value.Integer(2), value.Integer(3)), double})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4, 6}, intsOf(r.Items))

	isEven := value.Function(&value.CompiledFunction{Name: "isEven"})
	evenCaller := fakeCaller{call: func(fn value.Value, args []value.Value) (value.Value, error) {
		return value.Boolean(args[0].Int%2 == 0), nil
	}}
	filterFn := biFilter(evenCaller)
	r, err = filterFn([]value.Value{arr(value.Integer(1), value.Integer(2), value.Integer(3), value.Integer(4)), isEven})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, intsOf(r.Items))

	add := value.Function(&value.CompiledFunction{Name: "add"})
	sumCaller := fakeCaller{call: func(fn value.Value, args []value.Value) (value.Value, error) {
		return value.Integer(args[0].Int + args[1].Int), nil
	}}
	foldFn := biFold(sumCaller)
	sum, err := foldFn([]value.Value{arr(value.Integer(1), value.Integer(2), value.Integer(3)), value.Integer(0), add})
	require.NoError(t, err)
	assert.Equal(t, int64(6), sum.Int)
}

func TestHashKeysValuesHasKeyMerge(t *testing.T) {
	h := value.NewHashMap().Set(value.String("a"), value.Integer(1)).Set(value.Integer(42), value.String("x"))
	hv := value.Hash(h)

	keys, err := biKeys([]value.Value{hv})
	require.NoError(t, err)
	assert.Len(t, keys.Items, 2)

	has, err := biHasKey([]value.Value{hv, value.String("a")})
	require.NoError(t, err)
	assert.True(t, has.Bool)

	has, err = biHasKey([]value.Value{hv, value.String("z")})
	require.NoError(t, err)
	assert.False(t, has.Bool)

	_, err = biHasKey([]value.Value{hv, arr()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be hashable")

	h2 := value.NewHashMap().Set(value.String("a"), value.Integer(99)).Set(value.String("b"), value.Integer(2))
	merged, err := biMerge([]value.Value{hv, value.Hash(h2)})
	require.NoError(t, err)
	v, ok := merged.Hash.Get(value.String("a"))
	require.True(t, ok)
	assert.Equal(t, int64(99), v.Int) // h2 overwrites h
}

func TestAbsMinMax(t *testing.T) {
	r, err := biAbs([]value.Value{value.Integer(-5)})
	require.NoError(t, err)
	assert.Equal(t, int64(5), r.Int)

	r, err = biMin([]value.Value{value.Integer(3), value.Float(2.5)})
	require.NoError(t, err)
	assert.Equal(t, value.Float(2.5), r)

	r, err = biMax([]value.Value{value.Integer(3), value.Float(2.5)})
	require.NoError(t, err)
	assert.Equal(t, value.Integer(3), r)
}

func TestTypeOfAndPredicates(t *testing.T) {
	r, err := biTypeOf([]value.Value{value.Integer(1)})
	require.NoError(t, err)
	assert.Equal(t, "Int", r.Str)

	isInt := kindPredicate(value.KindInteger)
	r, err = isInt([]value.Value{value.Integer(1)})
	require.NoError(t, err)
	assert.True(t, r.Bool)

	r, err = isInt([]value.Value{value.Float(1.0)})
	require.NoError(t, err)
	assert.False(t, r.Bool)
}

func TestStringBuiltins(t *testing.T) {
	r, err := biSplit([]value.Value{value.String("a,b,c"), value.String(",")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, strsOf(r.Items))

	r, err = biSplit([]value.Value{value.String("abc"), value.String("")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, strsOf(r.Items))

	joined, err := biJoin([]value.Value{arr(value.String("a"), value.String("b")), value.String("-")})
	require.NoError(t, err)
	assert.Equal(t, "a-b", joined.Str)

	trimmed, err := biTrim([]value.Value{value.String("  hi  ")})
	require.NoError(t, err)
	assert.Equal(t, "hi", trimmed.Str)

	sub, err := biSubstring([]value.Value{value.String("hello world"), value.Integer(6), value.Integer(11)})
	require.NoError(t, err)
	assert.Equal(t, "world", sub.Str)
}

func intsOf(items []value.Value) []int64 {
	out := make([]int64, len(items))
	for i, v := range items {
		out[i] = v.Int
	}
	return out
}

func strsOf(items []value.Value) []string {
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = v.Str
	}
	return out
}
