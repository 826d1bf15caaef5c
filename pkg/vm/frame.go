package vm

import (
	"github.com/kristofer/flux/pkg/bytecode"
	"github.com/kristofer/flux/pkg/value"
)

// Frame is one activation record: the closure being executed, its
// instruction pointer, and the stack index its locals start at.
type Frame struct {
	cl          *value.Closure
	ip          int
	basePointer int
}

// NewFrame starts a frame at the beginning of cl's instructions, with
// locals occupying the operand stack from basePointer up.
func NewFrame(cl *value.Closure, basePointer int) *Frame {
	return &Frame{cl: cl, ip: -1, basePointer: basePointer}
}

func (f *Frame) Instructions() bytecode.Instructions {
	return f.cl.Fn.Instructions
}
