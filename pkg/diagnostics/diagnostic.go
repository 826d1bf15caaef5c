package diagnostics

import "strings"

// Severity ranks a Diagnostic for sorting and for exit-code decisions.
type Severity int

const (
	Error Severity = iota
	Warning
	Note
	Help
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	case Help:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorType discriminates where a Diagnostic originated.
type ErrorType int

const (
	CompileError ErrorType = iota
	RuntimeError
)

// LabelKind controls how a Label is rendered under the source snippet.
type LabelKind int

const (
	LabelPrimary LabelKind = iota // red ^
	LabelSecondary                // blue -
	LabelNote                     // cyan -
)

// Label annotates a span within the rendered source snippet.
type Label struct {
	Kind    LabelKind
	Span    Span
	Message string
}

// HintKind classifies a Hint the same way the compiler's original-language
// ancestor did, used only to choose a rendering prefix.
type HintKind int

const (
	HintPlain HintKind = iota
	HintNote
	HintHelp
	HintExample
)

// Hint is a one-line follow-up shown after the source snippet.
type Hint struct {
	Kind  HintKind
	Text  string
	Span  *Span // optional
	Label string
	File  string
}

// HintChain is an ordered sequence of reasoning steps ending in a
// conclusion, used for hints that need to justify themselves ("why does
// this fail?") rather than just state a fact.
type HintChain struct {
	Steps      []string
	Conclusion string
}

// Diagnostic is the single shared record produced by the lexer, parser,
// compiler, and VM alike.
type Diagnostic struct {
	Severity   Severity
	Title      string
	Code       string
	ErrorType  ErrorType
	Message    string
	File       string
	Span       Span
	Labels     []Label
	Hints      []Hint
	Suggestions []string
	HintChains []HintChain
	Related    []*Diagnostic
}

// New starts a Diagnostic with its required fields; use the With* builders
// to attach the optional decorations.
func New(severity Severity, code, title, message string, errType ErrorType, file string, span Span) *Diagnostic {
	return &Diagnostic{
		Severity:  severity,
		Title:     title,
		Code:      code,
		ErrorType: errType,
		Message:   message,
		File:      file,
		Span:      span,
	}
}

func (d *Diagnostic) WithLabel(kind LabelKind, span Span, message string) *Diagnostic {
	d.Labels = append(d.Labels, Label{Kind: kind, Span: span, Message: message})
	return d
}

func (d *Diagnostic) WithHint(kind HintKind, text string) *Diagnostic {
	d.Hints = append(d.Hints, Hint{Kind: kind, Text: text})
	return d
}

func (d *Diagnostic) WithHintAt(kind HintKind, text string, file string, span Span) *Diagnostic {
	s := span
	d.Hints = append(d.Hints, Hint{Kind: kind, Text: text, Span: &s, File: file})
	return d
}

func (d *Diagnostic) WithSuggestion(text string) *Diagnostic {
	d.Suggestions = append(d.Suggestions, text)
	return d
}

func (d *Diagnostic) WithHintChain(steps []string, conclusion string) *Diagnostic {
	d.HintChains = append(d.HintChains, HintChain{Steps: steps, Conclusion: conclusion})
	return d
}

func (d *Diagnostic) WithRelated(other *Diagnostic) *Diagnostic {
	d.Related = append(d.Related, other)
	return d
}

// Key identifies a Diagnostic for deduplication: same code, file, span, and
// message collapse to a single reported occurrence.
func (d *Diagnostic) Key() string {
	var b strings.Builder
	b.WriteString(d.Code)
	b.WriteByte('|')
	b.WriteString(d.File)
	b.WriteByte('|')
	b.WriteString(d.Span.Start.String())
	b.WriteByte('|')
	b.WriteString(d.Message)
	return b.String()
}

// ICE constructs an Internal Compiler Error diagnostic — reached only when
// the compiler's own invariants are violated (e.g. an Unwrap opcode whose
// preceding Is-check the compiler itself is supposed to have guaranteed).
func ICE(message string, file string, span Span) *Diagnostic {
	return New(Error, "E999", "internal compiler error", message, CompileError, file, span).
		WithHint(HintNote, "this indicates a bug in the compiler itself, not the input program")
}
