package bytecode

import "github.com/kristofer/flux/pkg/diagnostics"

// SourceLocation records which file and span produced an instruction.
type SourceLocation struct {
	FileID int
	Span   diagnostics.Span
}

// DebugInfo maps instruction offsets to source locations for one
// CompiledFunction, plus a file table so inlined modules can contribute
// distinct file IDs within a single function's debug info.
type DebugInfo struct {
	Files     []string // index = FileID
	Locations map[int]SourceLocation
}

// NewDebugInfo creates an empty DebugInfo ready for Record calls.
func NewDebugInfo() *DebugInfo {
	return &DebugInfo{Locations: map[int]SourceLocation{}}
}

// FileID returns the index of file in the file table, adding it if new.
func (d *DebugInfo) FileID(file string) int {
	for i, f := range d.Files {
		if f == file {
			return i
		}
	}
	d.Files = append(d.Files, file)
	return len(d.Files) - 1
}

// Record attaches a source location to the instruction at offset.
func (d *DebugInfo) Record(offset int, file string, span diagnostics.Span) {
	d.Locations[offset] = SourceLocation{FileID: d.FileID(file), Span: span}
}

// Lookup finds the nearest recorded location at or before ip, walking
// backward since not every instruction necessarily gets its own entry
// (operand bytes never do).
func (d *DebugInfo) Lookup(ip int) (string, diagnostics.Span, bool) {
	for i := ip; i >= 0; i-- {
		if loc, ok := d.Locations[i]; ok {
			if loc.FileID < 0 || loc.FileID >= len(d.Files) {
				return "", diagnostics.Span{}, false
			}
			return d.Files[loc.FileID], loc.Span, true
		}
	}
	return "", diagnostics.Span{}, false
}
