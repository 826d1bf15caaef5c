package diagnostics

import "sort"

// DefaultCap is the maximum number of diagnostics rendered before a
// "N not shown" summary replaces the rest, matching spec.md §8's 50-error
// boundary case.
const DefaultCap = 50

// Aggregator deduplicates, sorts, and renders a batch of diagnostics.
type Aggregator struct {
	diags       []*Diagnostic
	cap         int
	fileHeaders bool
	source      map[string]string
}

// NewAggregator builds an Aggregator over a batch of diagnostics, applying
// DefaultCap and no file-header grouping by default.
func NewAggregator(diags []*Diagnostic) *Aggregator {
	return &Aggregator{diags: diags, cap: DefaultCap, source: map[string]string{}}
}

func (a *Aggregator) WithCap(n int) *Aggregator {
	a.cap = n
	return a
}

func (a *Aggregator) WithFileHeaders(on bool) *Aggregator {
	a.fileHeaders = on
	return a
}

func (a *Aggregator) WithSource(file, text string) *Aggregator {
	a.source[file] = text
	return a
}

// Report is the result of aggregating and rendering a diagnostic batch.
type Report struct {
	Rendered  string
	Shown     int
	NotShown  int
	HasErrors bool
}

func (a *Aggregator) Report() Report {
	deduped := dedupe(a.diags)
	sort.SliceStable(deduped, func(i, j int) bool {
		di, dj := deduped[i], deduped[j]
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		if di.File != dj.File {
			return di.File < dj.File
		}
		if di.Span.Start.Line != dj.Span.Start.Line {
			return di.Span.Start.Line < dj.Span.Start.Line
		}
		return di.Span.Start.Column < dj.Span.Start.Column
	})

	limit := len(deduped)
	capN := a.cap
	if capN <= 0 {
		capN = DefaultCap
	}
	if limit > capN {
		limit = capN
	}

	renderer := NewRenderer(a.source)
	var rendered string
	lastFile := ""
	for _, d := range deduped[:limit] {
		if a.fileHeaders && d.File != lastFile {
			rendered += "== " + d.File + " ==\n"
			lastFile = d.File
		}
		rendered += renderer.Render(d)
		rendered += "\n"
	}

	notShown := len(deduped) - limit
	if notShown > 0 {
		rendered += summaryLine(notShown)
	}

	hasErrors := false
	for _, d := range deduped {
		if d.Severity == Error {
			hasErrors = true
			break
		}
	}

	return Report{Rendered: rendered, Shown: limit, NotShown: notShown, HasErrors: hasErrors}
}

func dedupe(diags []*Diagnostic) []*Diagnostic {
	seen := map[string]bool{}
	out := make([]*Diagnostic, 0, len(diags))
	for _, d := range diags {
		k := d.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	return out
}

func summaryLine(n int) string {
	if n == 1 {
		return "1 additional diagnostic not shown\n"
	}
	return itoaSummary(n) + " additional diagnostics not shown\n"
}

func itoaSummary(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
