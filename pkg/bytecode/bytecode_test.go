package bytecode

import (
	"strings"
	"testing"
)

func TestMakeEncodesOperandWidths(t *testing.T) {
	tests := []struct {
		op       Opcode
		operands []int
		want     []byte
	}{
		{OpConstant, []int{65534}, []byte{byte(OpConstant), 255, 254}},
		{OpConstantLong, []int{65536}, []byte{byte(OpConstantLong), 0, 1, 0, 0}},
		{OpGetLocal, []int{5}, []byte{byte(OpGetLocal), 5}},
		{OpClosure, []int{258, 3}, []byte{byte(OpClosure), 1, 2, 3}},
		{OpAdd, nil, []byte{byte(OpAdd)}},
	}

	for _, tt := range tests {
		got := Make(tt.op, tt.operands...)
		if len(got) != len(tt.want) {
			t.Fatalf("Make(%s) length = %d, want %d", tt.op, len(got), len(tt.want))
		}
		for i, b := range tt.want {
			if got[i] != b {
				t.Errorf("Make(%s)[%d] = %d, want %d", tt.op, i, got[i], b)
			}
		}
	}
}

func TestReadOperandsRoundTripsMake(t *testing.T) {
	tests := []struct {
		op       Opcode
		operands []int
	}{
		{OpConstant, []int{1000}},
		{OpConstantLong, []int{100000}},
		{OpGetLocal, []int{7}},
		{OpCall, []int{3}},
		{OpClosure, []int{5, 2}},
	}

	for _, tt := range tests {
		ins := Make(tt.op, tt.operands...)
		operands, n := ReadOperands(tt.op, ins, 1)
		if n != len(ins)-1 {
			t.Errorf("ReadOperands(%s) consumed %d bytes, want %d", tt.op, n, len(ins)-1)
		}
		if len(operands) != len(tt.operands) {
			t.Fatalf("ReadOperands(%s) = %v, want %v", tt.op, operands, tt.operands)
		}
		for i, want := range tt.operands {
			if operands[i] != want {
				t.Errorf("ReadOperands(%s)[%d] = %d, want %d", tt.op, i, operands[i], want)
			}
		}
	}
}

func TestOperandWidthsNoOperandOpcode(t *testing.T) {
	if w := OperandWidths(OpPop); w != nil {
		t.Errorf("OperandWidths(OpPop) = %v, want nil", w)
	}
}

func TestDisassembleFormatsEachInstructionOnItsOwnLine(t *testing.T) {
	ins := concat(
		Make(OpConstant, 1),
		Make(OpConstant, 2),
		Make(OpAdd),
	)

	out := Disassemble(ins)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Disassemble produced %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "OpConstant") || !strings.Contains(lines[0], "1") {
		t.Errorf("line 0 = %q, want OpConstant with operand 1", lines[0])
	}
	if !strings.Contains(lines[2], "OpAdd") {
		t.Errorf("line 2 = %q, want OpAdd", lines[2])
	}
}

func concat(chunks ...Instructions) Instructions {
	var out Instructions
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
