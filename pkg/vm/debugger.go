// Package vm - debugger support
package vm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kristofer/flux/pkg/bytecode"
	"github.com/kristofer/flux/pkg/value"
)

// Debugger provides interactive debugging capabilities for the VM.
type Debugger struct {
	vm          *VM          // The VM being debugged
	breakpoints map[int]bool // Instruction positions where execution should pause
	stepMode    bool         // If true, pause after each instruction
	enabled     bool         // If true, debugger is active
}

// NewDebugger creates a new debugger instance.
func NewDebugger(vm *VM) *Debugger {
	return &Debugger{
		vm:          vm,
		breakpoints: make(map[int]bool),
		stepMode:    false,
		enabled:     false,
	}
}

// Enable activates the debugger.
func (d *Debugger) Enable() {
	d.enabled = true
}

// Disable deactivates the debugger.
func (d *Debugger) Disable() {
	d.enabled = false
}

// SetStepMode enables or disables step mode.
// In step mode, execution pauses after each instruction.
func (d *Debugger) SetStepMode(enabled bool) {
	d.stepMode = enabled
}

// AddBreakpoint adds a breakpoint at the specified instruction position
// within the currently executing frame's instruction stream.
func (d *Debugger) AddBreakpoint(ip int) {
	d.breakpoints[ip] = true
}

// RemoveBreakpoint removes a breakpoint at the specified instruction position.
func (d *Debugger) RemoveBreakpoint(ip int) {
	delete(d.breakpoints, ip)
}

// ClearBreakpoints removes all breakpoints.
func (d *Debugger) ClearBreakpoints() {
	d.breakpoints = make(map[int]bool)
}

// ShouldPause checks if execution should pause at the current instruction.
// Returns true if we're in step mode or at a breakpoint in the current frame.
func (d *Debugger) ShouldPause() bool {
	if !d.enabled {
		return false
	}
	if d.stepMode {
		return true
	}
	return d.breakpoints[d.vm.currentFrame().ip]
}

// ShowCurrentInstruction displays the current instruction being executed
// in the currently running frame.
func (d *Debugger) ShowCurrentInstruction() {
	frame := d.vm.currentFrame()
	ins := frame.Instructions()
	if frame.ip < 0 || frame.ip >= len(ins) {
		fmt.Println("No current instruction")
		return
	}
	op := bytecode.Opcode(ins[frame.ip])
	operands, _ := bytecode.ReadOperands(op, ins, frame.ip+1)
	fmt.Printf("  %4d: %s", frame.ip, op)
	for _, o := range operands {
		fmt.Printf(" %d", o)
	}
	fmt.Println()
}

// ShowStack displays the current VM operand stack.
func (d *Debugger) ShowStack() {
	fmt.Println("Stack (top to bottom):")
	if d.vm.sp == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := d.vm.sp - 1; i >= 0; i-- {
		fmt.Printf("  [%d] %s\n", i, value.ToDisplayString(d.vm.stack[i]))
	}
}

// ShowLocals displays the current frame's local variable slots.
func (d *Debugger) ShowLocals() {
	frame := d.vm.currentFrame()
	numLocals := frame.cl.Fn.NumLocals
	fmt.Println("Local variables:")
	if numLocals == 0 {
		fmt.Println("  (none)")
		return
	}
	for i := 0; i < numLocals; i++ {
		fmt.Printf("  [%d] %s\n", i, value.ToDisplayString(d.vm.stack[frame.basePointer+i]))
	}
}

// ShowGlobals displays every populated global slot.
func (d *Debugger) ShowGlobals() {
	fmt.Println("Global variables:")
	any := false
	for i, v := range d.vm.globals {
		if v.Kind == value.KindNone && v.Inner == nil {
			continue
		}
		any = true
		fmt.Printf("  [%d] %s\n", i, value.ToDisplayString(v))
	}
	if !any {
		fmt.Println("  (none)")
	}
}

// ShowCallStack displays the active frame stack, outermost first.
func (d *Debugger) ShowCallStack() {
	fmt.Println("Call stack (outermost to innermost):")
	for i := 0; i < d.vm.framesIndex; i++ {
		frame := d.vm.frames[i]
		name := frame.cl.Fn.Name
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Printf("  %s [IP: %d]\n", name, frame.ip)
	}
}

// InteractivePrompt provides an interactive debugger prompt.
// This is called when execution pauses at a breakpoint or in step mode.
func (d *Debugger) InteractivePrompt() (continueExecution bool) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("\n=== Debugger Paused ===")
	d.ShowCurrentInstruction()

	for {
		fmt.Print("debug> ")
		if !scanner.Scan() {
			return false
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		command := parts[0]

		switch command {
		case "help", "h", "?":
			d.printHelp()

		case "continue", "c":
			d.SetStepMode(false)
			return true

		case "step", "s":
			d.SetStepMode(true)
			return true

		case "next", "n":
			return true

		case "stack", "st":
			d.ShowStack()

		case "locals", "l":
			d.ShowLocals()

		case "globals", "g":
			d.ShowGlobals()

		case "callstack", "cs":
			d.ShowCallStack()

		case "instruction", "i":
			d.ShowCurrentInstruction()

		case "breakpoint", "b":
			if len(parts) < 2 {
				fmt.Println("Usage: breakpoint <instruction_number>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid instruction number")
				continue
			}
			d.AddBreakpoint(ip)
			fmt.Printf("Breakpoint added at instruction %d\n", ip)

		case "delete", "d":
			if len(parts) < 2 {
				fmt.Println("Usage: delete <instruction_number>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid instruction number")
				continue
			}
			d.RemoveBreakpoint(ip)
			fmt.Printf("Breakpoint removed at instruction %d\n", ip)

		case "list", "ls":
			d.listInstructions()

		case "quit", "q":
			return false

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", command)
		}
	}
}

// printHelp displays available debugger commands.
func (d *Debugger) printHelp() {
	fmt.Println("Debugger Commands:")
	fmt.Println("  help, h, ?           Show this help")
	fmt.Println("  continue, c          Continue execution")
	fmt.Println("  step, s              Enable step mode (pause after each instruction)")
	fmt.Println("  next, n              Execute next instruction")
	fmt.Println("  stack, st            Show VM stack")
	fmt.Println("  locals, l            Show current frame's locals")
	fmt.Println("  globals, g           Show global variables")
	fmt.Println("  callstack, cs        Show call stack")
	fmt.Println("  instruction, i       Show current instruction")
	fmt.Println("  breakpoint <n>, b    Add breakpoint at instruction n")
	fmt.Println("  delete <n>, d        Remove breakpoint at instruction n")
	fmt.Println("  list, ls             List the current frame's instructions")
	fmt.Println("  quit, q              Quit debugging (abort execution)")
}

// listInstructions displays every instruction in the current frame.
func (d *Debugger) listInstructions() {
	frame := d.vm.currentFrame()
	ins := frame.Instructions()
	fmt.Println("Instructions:")
	i := 0
	for i < len(ins) {
		op := bytecode.Opcode(ins[i])
		operands, read := bytecode.ReadOperands(op, ins, i+1)
		marker := "  "
		if i == frame.ip {
			marker = "->"
		} else if d.breakpoints[i] {
			marker = "* "
		}
		fmt.Printf("%s %4d: %s", marker, i, op)
		for _, o := range operands {
			fmt.Printf(" %d", o)
		}
		fmt.Println()
		i += 1 + read
	}
}
