package diagnostics

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// colorsEnabled mirrors spec.md §4.4/§6: NO_COLOR or a dumb terminal
// disables ANSI rendering.
func colorsEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return true
}

// Renderer turns a Diagnostic into the final string shown to the user: a
// header, the message, a source snippet with a caret under the primary
// span, labels, suggestions, hints, and related diagnostics.
type Renderer struct {
	source map[string]string // file -> full text, for snippet lookup
	color  bool
}

// NewRenderer builds a Renderer over the given file->source map.
func NewRenderer(source map[string]string) *Renderer {
	return &Renderer{source: source, color: colorsEnabled()}
}

func (r *Renderer) Render(d *Diagnostic) string {
	var b strings.Builder
	r.writeHeader(&b, d)
	b.WriteString(d.Message)
	b.WriteString("\n")

	if line, ok := r.sourceLine(d.File, d.Span.Start.Line); ok {
		r.writeSnippet(&b, d.File, d.Span.Start.Line, line, d.Span, LabelPrimary, "")
	}
	for _, lbl := range d.Labels {
		if line, ok := r.sourceLine(d.File, lbl.Span.Start.Line); ok {
			r.writeSnippet(&b, d.File, lbl.Span.Start.Line, line, lbl.Span, lbl.Kind, lbl.Message)
		}
	}
	for _, s := range d.Suggestions {
		b.WriteString(r.paint(color.FgGreen, "  suggestion: "))
		b.WriteString(s)
		b.WriteString("\n")
	}
	for _, h := range d.Hints {
		b.WriteString(r.paint(color.FgCyan, "  hint: "))
		b.WriteString(h.Text)
		b.WriteString("\n")
	}
	for _, chain := range d.HintChains {
		for _, step := range chain.Steps {
			b.WriteString("    - ")
			b.WriteString(step)
			b.WriteString("\n")
		}
		b.WriteString("    => ")
		b.WriteString(chain.Conclusion)
		b.WriteString("\n")
	}
	for _, rel := range d.Related {
		b.WriteString(r.Render(rel))
	}
	return b.String()
}

func (r *Renderer) writeHeader(b *strings.Builder, d *Diagnostic) {
	sev := strings.ToUpper(d.Severity.String())
	var c *color.Color
	switch d.Severity {
	case Error:
		c = color.New(color.FgRed, color.Bold)
	case Warning:
		c = color.New(color.FgYellow, color.Bold)
	default:
		c = color.New(color.FgCyan, color.Bold)
	}
	header := fmt.Sprintf("%s[%s]: %s", sev, d.Code, d.Title)
	if r.color {
		b.WriteString(c.Sprint(header))
	} else {
		b.WriteString(header)
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  --> %s:%s\n", d.File, d.Span.Start.String()))
}

func (r *Renderer) sourceLine(file string, line int) (string, bool) {
	src, ok := r.source[file]
	if !ok || line <= 0 {
		return "", false
	}
	lines := strings.Split(src, "\n")
	if line > len(lines) {
		return "", false
	}
	return lines[line-1], true
}

func (r *Renderer) writeSnippet(b *strings.Builder, file string, lineNo int, rawLine string, span Span, kind LabelKind, message string) {
	colStart, colEnd := span.Start.Column, span.End.Column
	if span.End.Line != span.Start.Line {
		colEnd = len(rawLine)
	}
	line, colStart, colEnd := trimComment(rawLine, colStart, colEnd)

	gutter := fmt.Sprintf("%d", lineNo)
	b.WriteString(fmt.Sprintf("  %s | %s\n", gutter, line))

	caretChar, c := labelStyle(kind)
	pad := strings.Repeat(" ", colStart)
	width := colEnd - colStart
	if width < 1 {
		width = 1
	}
	carets := strings.Repeat(caretChar, width)
	prefix := fmt.Sprintf("  %s | ", strings.Repeat(" ", len(gutter)))
	line2 := prefix + pad + carets
	if message != "" {
		line2 += " " + message
	}
	if r.color {
		b.WriteString(prefix)
		b.WriteString(pad)
		b.WriteString(c.Sprint(carets))
		if message != "" {
			b.WriteString(" ")
			b.WriteString(message)
		}
		b.WriteString("\n")
	} else {
		b.WriteString(line2)
		b.WriteString("\n")
	}
}

func labelStyle(kind LabelKind) (string, *color.Color) {
	switch kind {
	case LabelPrimary:
		return "^", color.New(color.FgRed, color.Bold)
	case LabelSecondary:
		return "-", color.New(color.FgBlue)
	default:
		return "-", color.New(color.FgCyan)
	}
}

func (r *Renderer) paint(attr color.Attribute, s string) string {
	if !r.color {
		return s
	}
	return color.New(attr).Sprint(s)
}

// trimComment removes a trailing `#`-comment from a displayed source line
// unless the highlighted span extends into it, matching the Flux lexer's
// own `#`-to-end-of-line comment syntax.
func trimComment(line string, colStart, colEnd int) (string, int, int) {
	idx := findCommentStart(line)
	if idx < 0 {
		return line, colStart, colEnd
	}
	if colEnd > idx {
		return line, colStart, colEnd
	}
	trimmed := strings.TrimRight(line[:idx], " \t")
	if colStart > len(trimmed) {
		colStart = len(trimmed)
	}
	if colEnd > len(trimmed) {
		colEnd = len(trimmed)
	}
	return trimmed, colStart, colEnd
}

func findCommentStart(line string) int {
	inString := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if inString {
			if ch == '\\' {
				i++
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '#':
			return i
		}
	}
	return -1
}
