// Package vm implements the bytecode virtual machine for Flux.
//
// The VM is a stack-based interpreter: one growable operand stack and one
// frame stack, each frame holding a closure, an instruction pointer, and a
// base pointer into the operand stack where its parameters and locals
// live. It's the final stage in the pipeline:
//
//	source -> lexer -> parser -> compiler -> Bytecode -> VM -> Value
package vm

import (
	"strconv"

	"github.com/kristofer/flux/pkg/bytecode"
	"github.com/kristofer/flux/pkg/compiler"
	"github.com/kristofer/flux/pkg/diagnostics"
	"github.com/kristofer/flux/pkg/value"
)

const (
	// StackSize bounds the operand stack.
	StackSize = 2048
	// GlobalsSize bounds the global slot table, sized to OpGetGlobal's
	// u16 operand so any valid global index always fits.
	GlobalsSize = 65536
	// MaxFrames bounds recursion depth for non-tail calls.
	MaxFrames = 1024
)

// VM executes one Bytecode program to completion.
type VM struct {
	constants []value.Value
	builtins  []value.Value

	stack []value.Value
	sp    int

	globals []value.Value

	frames      []*Frame
	framesIndex int

	debugger *Debugger
}

// New creates a VM ready to run bc, with builtins indexed the way the
// compiler predeclared them (see compiler.BuiltinNames).
func New(bc *compiler.Bytecode, builtins []value.Value) *VM {
	mainClosure := &value.Closure{Fn: bc.Main}

	frames := make([]*Frame, MaxFrames)
	frames[0] = NewFrame(mainClosure, 0)

	return &VM{
		constants:   bc.Constants,
		builtins:    builtins,
		stack:       make([]value.Value, StackSize),
		globals:     make([]value.Value, GlobalsSize),
		frames:      frames,
		framesIndex: 1,
		sp:          bc.Main.NumLocals,
	}
}

// NewWithGlobals starts a VM sharing a pre-populated globals slice, so a
// REPL can carry top-level bindings forward from one Run to the next.
func NewWithGlobals(bc *compiler.Bytecode, builtins []value.Value, globals []value.Value) *VM {
	vm := New(bc, builtins)
	vm.globals = globals
	return vm
}

// Globals exposes the VM's global slots, e.g. for a REPL session to pass
// into the next NewWithGlobals call.
func (vm *VM) Globals() []value.Value { return vm.globals }

// SetBuiltins installs the builtin table. It exists separately from New
// because the higher-order builtins (map, filter, fold) close over the VM
// itself to call back into user closures, so callers construct the VM
// first and the builtin table second.
func (vm *VM) SetBuiltins(builtins []value.Value) { vm.builtins = builtins }

// SetDebugger attaches a Debugger whose ShouldPause gates a pause between
// every instruction.
func (vm *VM) SetDebugger(d *Debugger) { vm.debugger = d }

func (vm *VM) currentFrame() *Frame { return vm.frames[vm.framesIndex-1] }

func (vm *VM) pushFrame(f *Frame) {
	vm.frames[vm.framesIndex] = f
	vm.framesIndex++
}

func (vm *VM) popFrame() *Frame {
	vm.framesIndex--
	return vm.frames[vm.framesIndex]
}

func (vm *VM) push(v value.Value) error {
	if vm.sp >= len(vm.stack) {
		return vm.raise(diagnostics.StackOverflow, nil)
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() value.Value {
	o := vm.stack[vm.sp-1]
	vm.sp--
	return o
}

// Run drives the dispatch loop to completion, returning the value of the
// program's last (tail) expression statement.
func (vm *VM) Run() (value.Value, error) {
	for vm.framesIndex > 0 {
		if vm.debugger != nil && vm.debugger.ShouldPause() {
			if !vm.debugger.InteractivePrompt() {
				return value.None(), nil
			}
		}

		halted, result, err := vm.step()
		if err != nil {
			return value.None(), err
		}
		if halted {
			return result, nil
		}
	}
	return value.None(), nil
}

// CallFunction applies fn (a Closure or Builtin) to args from inside a
// builtin's own implementation — the hook higher-order builtins like map,
// filter, and fold use to invoke a user-supplied closure per element.
func (vm *VM) CallFunction(fn value.Value, args []value.Value) (value.Value, error) {
	if err := vm.push(fn); err != nil {
		return value.Value{}, err
	}
	for _, a := range args {
		if err := vm.push(a); err != nil {
			return value.Value{}, err
		}
	}

	startDepth := vm.framesIndex
	if err := vm.executeCall(len(args)); err != nil {
		return value.Value{}, err
	}

	for vm.framesIndex > startDepth {
		_, _, err := vm.step()
		if err != nil {
			return value.Value{}, err
		}
	}

	return vm.pop(), nil
}

// step executes exactly one instruction in the current frame. halted is
// true only when the outermost frame just returned, in which case result
// is the program's final value.
func (vm *VM) step() (halted bool, result value.Value, err error) {
	frame := vm.currentFrame()
	frame.ip++
	ip := frame.ip
	ins := frame.Instructions()
	op := bytecode.Opcode(ins[ip])

	switch op {
	case bytecode.OpConstant:
		idx := int(bytecode.ReadUint16(ins, ip+1))
		frame.ip += 2
		err = vm.push(vm.constants[idx])

	case bytecode.OpConstantLong:
		idx := int(bytecode.ReadUint32(ins, ip+1))
		frame.ip += 4
		err = vm.push(vm.constants[idx])

	case bytecode.OpPop:
		vm.pop()

	case bytecode.OpTrue:
		err = vm.push(value.Boolean(true))
	case bytecode.OpFalse:
		err = vm.push(value.Boolean(false))
	case bytecode.OpNone:
		err = vm.push(value.None())

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
		right := vm.pop()
		left := vm.pop()
		var v value.Value
		v, err = vm.executeArithmetic(op, left, right)
		if err == nil {
			err = vm.push(v)
		}

	case bytecode.OpMinus:
		operand := vm.pop()
		switch operand.Kind {
		case value.KindInteger:
			err = vm.push(value.Integer(-operand.Int))
		case value.KindFloat:
			err = vm.push(value.Float(-operand.Float))
		default:
			err = vm.raise(diagnostics.UnsupportedNegation, []string{value.TypeName(operand)})
		}

	case bytecode.OpBang:
		operand := vm.pop()
		err = vm.push(value.Boolean(!value.Truthy(operand)))

	case bytecode.OpEqual:
		right := vm.pop()
		left := vm.pop()
		err = vm.push(value.Boolean(value.Equal(left, right)))
	case bytecode.OpNotEqual:
		right := vm.pop()
		left := vm.pop()
		err = vm.push(value.Boolean(!value.Equal(left, right)))

	case bytecode.OpGreaterThan, bytecode.OpGreaterThanOrEqual, bytecode.OpLessThanOrEqual:
		right := vm.pop()
		left := vm.pop()
		var v value.Value
		v, err = vm.executeComparison(op, left, right)
		if err == nil {
			err = vm.push(v)
		}

	case bytecode.OpJump:
		target := int(bytecode.ReadUint16(ins, ip+1))
		frame.ip = target - 1

	case bytecode.OpJumpNotTruthy:
		target := int(bytecode.ReadUint16(ins, ip+1))
		frame.ip += 2
		condition := vm.pop()
		if !value.Truthy(condition) {
			frame.ip = target - 1
		}

	case bytecode.OpJumpTruthy:
		target := int(bytecode.ReadUint16(ins, ip+1))
		frame.ip += 2
		condition := vm.pop()
		if value.Truthy(condition) {
			frame.ip = target - 1
		}

	case bytecode.OpGetGlobal:
		idx := int(bytecode.ReadUint16(ins, ip+1))
		frame.ip += 2
		err = vm.push(vm.globals[idx])
	case bytecode.OpSetGlobal:
		idx := int(bytecode.ReadUint16(ins, ip+1))
		frame.ip += 2
		vm.globals[idx] = vm.pop()

	case bytecode.OpGetLocal:
		idx := int(bytecode.ReadUint8(ins, ip+1))
		frame.ip += 1
		err = vm.push(vm.stack[frame.basePointer+idx])
	case bytecode.OpSetLocal:
		idx := int(bytecode.ReadUint8(ins, ip+1))
		frame.ip += 1
		vm.stack[frame.basePointer+idx] = vm.pop()
	case bytecode.OpConsumeLocal:
		idx := int(bytecode.ReadUint8(ins, ip+1))
		frame.ip += 1
		v := vm.stack[frame.basePointer+idx]
		vm.stack[frame.basePointer+idx] = value.None()
		err = vm.push(v)

	case bytecode.OpGetFree:
		idx := int(bytecode.ReadUint8(ins, ip+1))
		frame.ip += 1
		err = vm.push(frame.cl.Free[idx])

	case bytecode.OpGetBuiltin:
		idx := int(bytecode.ReadUint8(ins, ip+1))
		frame.ip += 1
		if idx < 0 || idx >= len(vm.builtins) {
			err = vm.raise(diagnostics.UnknownBuiltin, []string{itoa(idx)})
		} else {
			err = vm.push(vm.builtins[idx])
		}

	case bytecode.OpCurrentClosure:
		err = vm.push(value.MakeClosure(frame.cl))

	case bytecode.OpCall:
		numArgs := int(bytecode.ReadUint8(ins, ip+1))
		frame.ip += 1
		err = vm.executeCall(numArgs)

	case bytecode.OpTailCall:
		numArgs := int(bytecode.ReadUint8(ins, ip+1))
		frame.ip += 1
		err = vm.executeTailCall(numArgs)

	case bytecode.OpReturnValue:
		returnValue := vm.pop()
		popped := vm.popFrame()
		vm.sp = popped.basePointer - 1
		if vm.framesIndex == 0 {
			return true, returnValue, nil
		}
		err = vm.push(returnValue)

	case bytecode.OpReturn:
		popped := vm.popFrame()
		vm.sp = popped.basePointer - 1
		if vm.framesIndex == 0 {
			return true, value.None(), nil
		}
		err = vm.push(value.None())

	case bytecode.OpClosure:
		constIdx := int(bytecode.ReadUint16(ins, ip+1))
		numFree := int(bytecode.ReadUint8(ins, ip+3))
		frame.ip += 3
		free := make([]value.Value, numFree)
		for i := numFree - 1; i >= 0; i-- {
			free[i] = vm.pop()
		}
		cl := &value.Closure{Fn: vm.constants[constIdx].Fn, Free: free}
		err = vm.push(value.MakeClosure(cl))

	case bytecode.OpArray:
		n := int(bytecode.ReadUint16(ins, ip+1))
		frame.ip += 2
		items := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			items[i] = vm.pop()
		}
		err = vm.push(value.Array(items))

	case bytecode.OpHash:
		n := int(bytecode.ReadUint16(ins, ip+1))
		frame.ip += 2
		err = vm.executeHash(n)

	case bytecode.OpIndex:
		index := vm.pop()
		left := vm.pop()
		var v value.Value
		v, err = vm.executeIndex(left, index)
		if err == nil {
			err = vm.push(v)
		}

	case bytecode.OpSome:
		err = vm.push(value.Some(vm.pop()))
	case bytecode.OpLeft:
		err = vm.push(value.Left(vm.pop()))
	case bytecode.OpRight:
		err = vm.push(value.Right(vm.pop()))

	case bytecode.OpIsSome:
		err = vm.push(value.Boolean(vm.pop().Kind == value.KindSome))
	case bytecode.OpIsLeft:
		err = vm.push(value.Boolean(vm.pop().Kind == value.KindLeft))
	case bytecode.OpIsRight:
		err = vm.push(value.Boolean(vm.pop().Kind == value.KindRight))

	case bytecode.OpUnwrapSome:
		v := vm.pop()
		if v.Kind != value.KindSome {
			err = vm.raise(diagnostics.UnwrapInvariantViolated, []string{value.TypeName(v), "some"})
		} else {
			err = vm.push(*v.Inner)
		}
	case bytecode.OpUnwrapLeft:
		v := vm.pop()
		if v.Kind != value.KindLeft {
			err = vm.raise(diagnostics.UnwrapInvariantViolated, []string{value.TypeName(v), "left"})
		} else {
			err = vm.push(*v.Inner)
		}
	case bytecode.OpUnwrapRight:
		v := vm.pop()
		if v.Kind != value.KindRight {
			err = vm.raise(diagnostics.UnwrapInvariantViolated, []string{value.TypeName(v), "right"})
		} else {
			err = vm.push(*v.Inner)
		}

	case bytecode.OpCons:
		tail := vm.pop()
		head := vm.pop()
		err = vm.push(value.Cons(head, tail))
	case bytecode.OpIsCons:
		err = vm.push(value.Boolean(vm.pop().Kind == value.KindCons))
	case bytecode.OpIsEmptyList:
		err = vm.push(value.Boolean(vm.pop().Kind == value.KindNone))
	case bytecode.OpConsHead:
		v := vm.pop()
		if v.Kind != value.KindCons {
			err = vm.raise(diagnostics.UnwrapInvariantViolated, []string{value.TypeName(v), "cons"})
		} else {
			err = vm.push(v.Cons.Head)
		}
	case bytecode.OpConsTail:
		v := vm.pop()
		if v.Kind != value.KindCons {
			err = vm.raise(diagnostics.UnwrapInvariantViolated, []string{value.TypeName(v), "cons"})
		} else {
			err = vm.push(v.Cons.Tail)
		}

	case bytecode.OpToString:
		v := vm.pop()
		err = vm.push(value.String(value.ToDisplayString(v)))

	default:
		err = vm.raiseDynamic("E1999", "UNKNOWN OPCODE", "unknown opcode: "+op.String())
	}

	return false, value.None(), err
}

// executeCall dispatches a Call to whichever callable sits below its n
// arguments on the stack: a Closure pushes a new Frame, a Builtin runs to
// completion inline.
func (vm *VM) executeCall(numArgs int) error {
	calleeIdx := vm.sp - 1 - numArgs
	callee := vm.stack[calleeIdx]

	switch callee.Kind {
	case value.KindClosure:
		return vm.callClosure(callee.Closure, numArgs)
	case value.KindBuiltin:
		return vm.callBuiltin(callee.Builtin, numArgs)
	default:
		return vm.raise(diagnostics.NotAFunction, []string{value.TypeName(callee)})
	}
}

func (vm *VM) callClosure(cl *value.Closure, numArgs int) error {
	if numArgs != cl.Fn.NumParameters {
		return vm.raise(diagnostics.WrongNumberOfArguments, []string{itoa(cl.Fn.NumParameters), itoa(numArgs)})
	}
	if vm.framesIndex >= MaxFrames {
		return vm.raise(diagnostics.StackOverflow, nil)
	}

	basePointer := vm.sp - numArgs
	for i := numArgs; i < cl.Fn.NumLocals; i++ {
		vm.stack[basePointer+i] = value.None()
	}
	vm.sp = basePointer + cl.Fn.NumLocals

	vm.pushFrame(NewFrame(cl, basePointer))
	return nil
}

func (vm *VM) callBuiltin(b *value.Builtin, numArgs int) error {
	if b.Arity != -1 && numArgs != b.Arity {
		return vm.raise(diagnostics.WrongNumberOfArguments, []string{itoa(b.Arity), itoa(numArgs)})
	}

	args := make([]value.Value, numArgs)
	copy(args, vm.stack[vm.sp-numArgs:vm.sp])

	result, callErr := b.Fn(args)
	vm.sp = vm.sp - numArgs - 1
	if callErr != nil {
		return vm.raise(diagnostics.BuiltinError, []string{b.Name, callErr.Error()})
	}
	return vm.push(result)
}

// executeTailCall overwrites the current frame in place rather than
// pushing a new one, the mechanism that keeps self-recursive tail calls in
// O(1) stack frames.
func (vm *VM) executeTailCall(numArgs int) error {
	calleeIdx := vm.sp - 1 - numArgs
	callee := vm.stack[calleeIdx]
	if callee.Kind != value.KindClosure {
		return vm.raise(diagnostics.NotAFunction, []string{value.TypeName(callee)})
	}
	cl := callee.Closure
	if numArgs != cl.Fn.NumParameters {
		return vm.raise(diagnostics.WrongNumberOfArguments, []string{itoa(cl.Fn.NumParameters), itoa(numArgs)})
	}

	frame := vm.currentFrame()
	bp := frame.basePointer
	for i := 0; i < numArgs; i++ {
		vm.stack[bp+i] = vm.stack[calleeIdx+1+i]
	}
	for i := numArgs; i < cl.Fn.NumLocals; i++ {
		vm.stack[bp+i] = value.None()
	}
	vm.sp = bp + cl.Fn.NumLocals
	frame.cl = cl
	frame.ip = -1
	return nil
}

// raise builds a RuntimeError from a catalogue entry, locating the source
// span of the currently executing instruction via the frame's debug info
// and attaching the full call stack.
func (vm *VM) raise(ec diagnostics.ErrorCode, values []string) error {
	frame := vm.currentFrame()
	file, span, _ := frame.cl.Fn.DebugInfo.Lookup(frame.ip)
	diag := diagnostics.MakeError(ec, values, file, span)
	return newRuntimeError(diag, vm.buildStackTrace())
}

// raiseDynamic builds a RuntimeError whose message text isn't a fixed
// template, used for defects that should never occur from well-formed
// compiler output.
func (vm *VM) raiseDynamic(code, title, message string) error {
	frame := vm.currentFrame()
	file, span, _ := frame.cl.Fn.DebugInfo.Lookup(frame.ip)
	diag := diagnostics.MakeErrorDynamic(code, title, diagnostics.RuntimeError, message, "", file, span)
	return newRuntimeError(diag, vm.buildStackTrace())
}

func (vm *VM) buildStackTrace() []StackFrame {
	trace := make([]StackFrame, 0, vm.framesIndex)
	for i := 0; i < vm.framesIndex; i++ {
		frame := vm.frames[i]
		name := frame.cl.Fn.Name
		line, col := 0, 0
		if _, span, ok := frame.cl.Fn.DebugInfo.Lookup(frame.ip); ok {
			line, col = span.Start.Line, span.Start.Column
		}
		trace = append(trace, StackFrame{Name: name, IP: frame.ip, SourceLine: line, SourceCol: col})
	}
	return trace
}

func itoa(n int) string { return strconv.Itoa(n) }

// executeArithmetic implements spec.md's numeric rules: integer ops are
// 64-bit wrapping, mixed int/float promotes to float, `+` also concatenates
// strings and arrays.
func (vm *VM) executeArithmetic(op bytecode.Opcode, left, right value.Value) (value.Value, error) {
	switch {
	case left.Kind == value.KindString && right.Kind == value.KindString && op == bytecode.OpAdd:
		return value.String(left.Str + right.Str), nil
	case left.Kind == value.KindArray && right.Kind == value.KindArray && op == bytecode.OpAdd:
		items := make([]value.Value, 0, len(left.Items)+len(right.Items))
		items = append(items, left.Items...)
		items = append(items, right.Items...)
		return value.Array(items), nil
	case left.Kind == value.KindInteger && right.Kind == value.KindInteger:
		return vm.executeIntegerArithmetic(op, left.Int, right.Int)
	case isNumericValue(left) && isNumericValue(right):
		return vm.executeFloatArithmetic(op, asFloat(left), asFloat(right))
	default:
		return value.Value{}, vm.raise(diagnostics.UnsupportedOperand,
			[]string{opSymbol(op), value.TypeName(left), value.TypeName(right)})
	}
}

func (vm *VM) executeIntegerArithmetic(op bytecode.Opcode, l, r int64) (value.Value, error) {
	switch op {
	case bytecode.OpAdd:
		return value.Integer(l + r), nil
	case bytecode.OpSub:
		return value.Integer(l - r), nil
	case bytecode.OpMul:
		return value.Integer(l * r), nil
	case bytecode.OpDiv:
		if r == 0 {
			return value.Value{}, vm.raise(diagnostics.DivisionByZeroRuntime, nil)
		}
		return value.Integer(l / r), nil
	case bytecode.OpMod:
		if r == 0 {
			return value.Value{}, vm.raise(diagnostics.DivisionByZeroRuntime, nil)
		}
		return value.Integer(l % r), nil
	default:
		return value.Value{}, vm.raiseDynamic("E1999", "UNKNOWN OPERATOR", "unknown arithmetic opcode: "+op.String())
	}
}

func (vm *VM) executeFloatArithmetic(op bytecode.Opcode, l, r float64) (value.Value, error) {
	switch op {
	case bytecode.OpAdd:
		return value.Float(l + r), nil
	case bytecode.OpSub:
		return value.Float(l - r), nil
	case bytecode.OpMul:
		return value.Float(l * r), nil
	case bytecode.OpDiv:
		if r == 0 {
			return value.Value{}, vm.raise(diagnostics.DivisionByZeroRuntime, nil)
		}
		return value.Float(l / r), nil
	case bytecode.OpMod:
		if r == 0 {
			return value.Value{}, vm.raise(diagnostics.DivisionByZeroRuntime, nil)
		}
		return value.Float(mathMod(l, r)), nil
	default:
		return value.Value{}, vm.raiseDynamic("E1999", "UNKNOWN OPERATOR", "unknown arithmetic opcode: "+op.String())
	}
}

// executeComparison implements spec.md's comparison rules: numeric
// comparisons for (Int|Float, Int|Float), lexicographic for strings.
// Equality/inequality are handled separately via value.Equal.
func (vm *VM) executeComparison(op bytecode.Opcode, left, right value.Value) (value.Value, error) {
	switch {
	case left.Kind == value.KindString && right.Kind == value.KindString:
		return value.Boolean(compareStrings(op, left.Str, right.Str)), nil
	case isNumericValue(left) && isNumericValue(right):
		return value.Boolean(compareFloats(op, asFloat(left), asFloat(right))), nil
	default:
		return value.Value{}, vm.raise(diagnostics.UnsupportedOperand,
			[]string{opSymbol(op), value.TypeName(left), value.TypeName(right)})
	}
}

func compareFloats(op bytecode.Opcode, l, r float64) bool {
	switch op {
	case bytecode.OpGreaterThan:
		return l > r
	case bytecode.OpGreaterThanOrEqual:
		return l >= r
	case bytecode.OpLessThanOrEqual:
		return l <= r
	default:
		return false
	}
}

func compareStrings(op bytecode.Opcode, l, r string) bool {
	switch op {
	case bytecode.OpGreaterThan:
		return l > r
	case bytecode.OpGreaterThanOrEqual:
		return l >= r
	case bytecode.OpLessThanOrEqual:
		return l <= r
	default:
		return false
	}
}

func isNumericValue(v value.Value) bool {
	return v.Kind == value.KindInteger || v.Kind == value.KindFloat
}

func asFloat(v value.Value) float64 {
	if v.Kind == value.KindInteger {
		return float64(v.Int)
	}
	return v.Float
}

func mathMod(l, r float64) float64 {
	m := l - r*float64(int64(l/r))
	return m
}

func opSymbol(op bytecode.Opcode) string {
	switch op {
	case bytecode.OpAdd:
		return "+"
	case bytecode.OpSub:
		return "-"
	case bytecode.OpMul:
		return "*"
	case bytecode.OpDiv:
		return "/"
	case bytecode.OpMod:
		return "%"
	case bytecode.OpGreaterThan:
		return ">"
	case bytecode.OpGreaterThanOrEqual:
		return ">="
	case bytecode.OpLessThanOrEqual:
		return "<="
	default:
		return op.String()
	}
}

// executeIndex implements spec.md's uniform Index semantics: arrays,
// hashes, and strings all return Some(v)/None rather than trapping on an
// out-of-range index or missing key.
func (vm *VM) executeIndex(left, index value.Value) (value.Value, error) {
	switch left.Kind {
	case value.KindArray:
		if index.Kind != value.KindInteger {
			return value.Value{}, vm.raise(diagnostics.RuntimeTypeError, []string{"int", value.TypeName(index)})
		}
		i := index.Int
		if i < 0 || i >= int64(len(left.Items)) {
			return value.None(), nil
		}
		return value.Some(left.Items[i]), nil
	case value.KindString:
		if index.Kind != value.KindInteger {
			return value.Value{}, vm.raise(diagnostics.RuntimeTypeError, []string{"int", value.TypeName(index)})
		}
		runes := []rune(left.Str)
		i := index.Int
		if i < 0 || i >= int64(len(runes)) {
			return value.None(), nil
		}
		return value.Some(value.String(string(runes[i]))), nil
	case value.KindHash:
		if !value.Hashable(index) {
			return value.None(), nil
		}
		if v, ok := left.Hash.Get(index); ok {
			return value.Some(v), nil
		}
		return value.None(), nil
	case value.KindCons, value.KindNone:
		if index.Kind != value.KindInteger {
			return value.Value{}, vm.raise(diagnostics.RuntimeTypeError, []string{"int", value.TypeName(index)})
		}
		i := index.Int
		if i < 0 {
			return value.None(), nil
		}
		node := left
		for ; i > 0 && node.Kind == value.KindCons; i-- {
			node = node.Cons.Tail
		}
		if i != 0 || node.Kind != value.KindCons {
			return value.None(), nil
		}
		return value.Some(node.Cons.Head), nil
	default:
		return value.Value{}, vm.raise(diagnostics.RuntimeTypeError, []string{"array, hash, or string", value.TypeName(left)})
	}
}

func (vm *VM) executeHash(n int) error {
	pairs := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		pairs[i] = vm.pop()
	}
	h := value.NewHashMap()
	for i := 0; i+1 < n; i += 2 {
		key, val := pairs[i], pairs[i+1]
		if !value.Hashable(key) {
			return vm.raise(diagnostics.RuntimeTypeError, []string{"a hashable key", value.TypeName(key)})
		}
		h = h.Set(key, val)
	}
	return vm.push(value.Hash(h))
}
