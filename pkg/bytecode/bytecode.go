// Package bytecode defines Flux's instruction set: the Opcode enumeration,
// variable-width operand encoding, and a disassembler shared by the
// compiler (emitter), the VM (decoder), and the `flux disasm` command.
//
//	 AST ──► [Compiler] ──► Bytecode (instructions + constants + debug info)
//	                                    │
//	                                    ▼
//	                               [VM]  ──► final value  OR  rendered diagnostic
//
// A stack machine with one operand stack and one frame stack. Operands are
// big-endian integers of width 1, 2, or 4 bytes; a "long" variant exists
// for constants when the 16-bit form would overflow.
package bytecode

import (
	"fmt"
	"strings"
)

// Opcode identifies one instruction.
type Opcode byte

const (
	// Stack/constants
	OpConstant     Opcode = iota // u16 index into the constant pool
	OpConstantLong               // u32 index into the constant pool
	OpPop
	OpTrue
	OpFalse
	OpNone

	// Arithmetic & logic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpMinus // unary negate
	OpBang  // unary not

	// Comparisons. `<` is compiled by swapping operands and emitting
	// OpGreaterThan, so there is no dedicated less-than opcode.
	OpEqual
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThanOrEqual

	// Control flow. The truthy jumps pop the top value whether or not the
	// branch is taken; a taken jump does not leave the condition on the
	// stack.
	OpJump          // u16 absolute target
	OpJumpNotTruthy // u16 absolute target
	OpJumpTruthy    // u16 absolute target

	// Variables
	OpGetGlobal    // u16
	OpSetGlobal    // u16
	OpGetLocal     // u8
	OpSetLocal     // u8
	OpConsumeLocal // u8: move a local's value out, leaving None behind
	OpGetFree      // u8
	OpGetBuiltin   // u8
	OpCurrentClosure

	// Calls
	OpCall     // u8 argc
	OpTailCall // u8 argc; overwrites the current frame in place
	OpReturnValue
	OpReturn

	// Closures. Pops num_free captured values, pairs them with the
	// CompiledFunction at constants[const_index], pushes a Closure.
	OpClosure // u16 const_index, u8 num_free

	// Containers
	OpArray // u16 n
	OpHash  // u16 2k: alternating key, value
	OpIndex

	// Sums. The Unwrap opcodes are only ever emitted right after a
	// matching IsX check; reaching one on the wrong variant is an
	// internal compiler error, not a user-facing runtime error.
	OpSome
	OpLeft
	OpRight
	OpIsSome
	OpIsLeft
	OpIsRight
	OpUnwrapSome
	OpUnwrapLeft
	OpUnwrapRight

	// Cons cells — the only heap values that may participate in cycles.
	OpCons
	OpIsCons
	OpIsEmptyList
	OpConsHead
	OpConsTail

	// Stringification, used by string interpolation.
	OpToString
)

var opcodeNames = map[Opcode]string{
	OpConstant:           "OpConstant",
	OpConstantLong:       "OpConstantLong",
	OpPop:                "OpPop",
	OpTrue:               "OpTrue",
	OpFalse:              "OpFalse",
	OpNone:               "OpNone",
	OpAdd:                "OpAdd",
	OpSub:                "OpSub",
	OpMul:                "OpMul",
	OpDiv:                "OpDiv",
	OpMod:                "OpMod",
	OpMinus:              "OpMinus",
	OpBang:               "OpBang",
	OpEqual:              "OpEqual",
	OpNotEqual:           "OpNotEqual",
	OpGreaterThan:        "OpGreaterThan",
	OpGreaterThanOrEqual: "OpGreaterThanOrEqual",
	OpLessThanOrEqual:    "OpLessThanOrEqual",
	OpJump:               "OpJump",
	OpJumpNotTruthy:      "OpJumpNotTruthy",
	OpJumpTruthy:         "OpJumpTruthy",
	OpGetGlobal:          "OpGetGlobal",
	OpSetGlobal:          "OpSetGlobal",
	OpGetLocal:           "OpGetLocal",
	OpSetLocal:           "OpSetLocal",
	OpConsumeLocal:       "OpConsumeLocal",
	OpGetFree:            "OpGetFree",
	OpGetBuiltin:         "OpGetBuiltin",
	OpCurrentClosure:     "OpCurrentClosure",
	OpCall:               "OpCall",
	OpTailCall:           "OpTailCall",
	OpReturnValue:        "OpReturnValue",
	OpReturn:             "OpReturn",
	OpClosure:            "OpClosure",
	OpArray:              "OpArray",
	OpHash:               "OpHash",
	OpIndex:              "OpIndex",
	OpSome:               "OpSome",
	OpLeft:               "OpLeft",
	OpRight:              "OpRight",
	OpIsSome:             "OpIsSome",
	OpIsLeft:             "OpIsLeft",
	OpIsRight:            "OpIsRight",
	OpUnwrapSome:         "OpUnwrapSome",
	OpUnwrapLeft:         "OpUnwrapLeft",
	OpUnwrapRight:        "OpUnwrapRight",
	OpCons:               "OpCons",
	OpIsCons:             "OpIsCons",
	OpIsEmptyList:        "OpIsEmptyList",
	OpConsHead:           "OpConsHead",
	OpConsTail:           "OpConsTail",
	OpToString:           "OpToString",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OpUnknown(%d)", byte(op))
}

// OperandWidths returns the byte width of each operand of op, in order.
func OperandWidths(op Opcode) []int {
	switch op {
	case OpConstantLong:
		return []int{4}
	case OpConstant, OpJump, OpJumpNotTruthy, OpJumpTruthy, OpGetGlobal, OpSetGlobal, OpArray, OpHash:
		return []int{2}
	case OpGetLocal, OpSetLocal, OpConsumeLocal, OpCall, OpTailCall, OpGetFree, OpGetBuiltin:
		return []int{1}
	case OpClosure:
		return []int{2, 1}
	default:
		return nil
	}
}

// Instructions is a raw encoded instruction stream.
type Instructions []byte

// Make encodes a single instruction: opcode followed by big-endian operands
// at the widths OperandWidths(op) specifies.
func Make(op Opcode, operands ...int) Instructions {
	widths := OperandWidths(op)
	instLen := 1
	for _, w := range widths {
		instLen += w
	}
	instruction := make(Instructions, instLen)
	instruction[0] = byte(op)

	offset := 1
	for i, operand := range operands {
		width := 0
		if i < len(widths) {
			width = widths[i]
		}
		switch width {
		case 1:
			instruction[offset] = byte(operand)
		case 2:
			instruction[offset] = byte(operand >> 8)
			instruction[offset+1] = byte(operand)
		case 4:
			instruction[offset] = byte(operand >> 24)
			instruction[offset+1] = byte(operand >> 16)
			instruction[offset+2] = byte(operand >> 8)
			instruction[offset+3] = byte(operand)
		}
		offset += width
	}
	return instruction
}

func ReadUint8(ins Instructions, offset int) uint8 { return ins[offset] }

func ReadUint16(ins Instructions, offset int) uint16 {
	return uint16(ins[offset])<<8 | uint16(ins[offset+1])
}

func ReadUint32(ins Instructions, offset int) uint32 {
	return uint32(ins[offset])<<24 | uint32(ins[offset+1])<<16 | uint32(ins[offset+2])<<8 | uint32(ins[offset+3])
}

// ReadOperands decodes the operands of op starting at offset, returning
// their values and the total number of bytes consumed.
func ReadOperands(op Opcode, ins Instructions, offset int) ([]int, int) {
	widths := OperandWidths(op)
	operands := make([]int, len(widths))
	read := 0
	for i, w := range widths {
		switch w {
		case 1:
			operands[i] = int(ReadUint8(ins, offset+read))
		case 2:
			operands[i] = int(ReadUint16(ins, offset+read))
		case 4:
			operands[i] = int(ReadUint32(ins, offset+read))
		}
		read += w
	}
	return operands, read
}

// Disassemble renders an instruction stream as human-readable text, one
// line per instruction: `%04d %OpName %operands`.
func Disassemble(ins Instructions) string {
	var out strings.Builder
	i := 0
	for i < len(ins) {
		op := Opcode(ins[i])
		operands, read := ReadOperands(op, ins, i+1)
		fmt.Fprintf(&out, "%04d %s", i, op)
		for _, o := range operands {
			fmt.Fprintf(&out, " %d", o)
		}
		out.WriteString("\n")
		i += 1 + read
	}
	return out.String()
}
