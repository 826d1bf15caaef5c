// Package vm - error handling with stack traces
package vm

import (
	"fmt"
	"strings"

	"github.com/kristofer/flux/pkg/diagnostics"
)

// StackFrame represents a single frame in the call stack.
// It captures information about where execution is occurring.
type StackFrame struct {
	Name       string // Function name (empty for the top-level program)
	IP         int    // Instruction pointer at time of call
	SourceLine int    // Source line number (0 if unknown)
	SourceCol  int    // Source column number (0 if unknown)
}

// RuntimeError represents a runtime error with stack trace information.
// This provides detailed context about where an error occurred.
type RuntimeError struct {
	Diagnostic *diagnostics.Diagnostic // structured error, message, and source span
	StackTrace []StackFrame            // call stack at time of error, innermost last
}

// Error implements the error interface.
// It formats the error message with a stack trace.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Diagnostic.Message)

	if len(e.StackTrace) > 0 {
		b.WriteString("\n\nStack trace:")
		for i := len(e.StackTrace) - 1; i >= 0; i-- {
			frame := e.StackTrace[i]
			b.WriteString(fmt.Sprintf("\n  at %s", frame.Name))
			if frame.SourceLine > 0 {
				b.WriteString(fmt.Sprintf(" [line %d:%d]", frame.SourceLine, frame.SourceCol))
			}
			b.WriteString(fmt.Sprintf(" [IP: %d]", frame.IP))
		}
	}

	return b.String()
}

// newRuntimeError creates a new RuntimeError wrapping diag, with stack as
// the call stack active when it was raised.
func newRuntimeError(diag *diagnostics.Diagnostic, stack []StackFrame) *RuntimeError {
	return &RuntimeError{
		Diagnostic: diag,
		StackTrace: stack,
	}
}
