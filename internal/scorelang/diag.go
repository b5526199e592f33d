// diag.go: diagnostic values and caret-snippet rendering
//
// Every stage of the pipeline reports problems as Diagnostic values bundled
// with its result; nothing panics across the public API. RenderDiagnostic
// turns one diagnostic into a readable, Python-style snippet with a caret
// pointing at the offending column:
//
//	error at 3:6: Notes must be separated by whitespace or connectives
//
//	   2 | &right {
//	   3 |   C DE F
//	     |      ^
//	   4 | }
package scorelang

import (
	"fmt"
	"sort"
	"strings"
)

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Diagnostic is a located message. Line and Column are 1-based; EndLine and
// EndColumn are optional (zero when absent).
type Diagnostic struct {
	Severity  Severity
	Message   string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at %d:%d: %s", d.Severity, d.Line, d.Column, d.Message)
}

func errorAt(loc SourceLocation, msg string) Diagnostic {
	return Diagnostic{Severity: SeverityError, Message: msg, Line: loc.Line, Column: loc.Column}
}

func warningAt(loc SourceLocation, msg string) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Message: msg, Line: loc.Line, Column: loc.Column}
}

func infoAt(loc SourceLocation, msg string) Diagnostic {
	return Diagnostic{Severity: SeverityInfo, Message: msg, Line: loc.Line, Column: loc.Column}
}

// SortDiagnostics orders diagnostics by position, then severity.
func SortDiagnostics(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Line != ds[j].Line {
			return ds[i].Line < ds[j].Line
		}
		if ds[i].Column != ds[j].Column {
			return ds[i].Column < ds[j].Column
		}
		return ds[i].Severity < ds[j].Severity
	})
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// RenderDiagnostic builds a snippet with a header and a caret. It shows at
// most one previous and one next line when available. Coordinates are
// clamped to the source bounds so out-of-range positions never crash
// rendering.
func RenderDiagnostic(src string, d Diagnostic) string {
	lines := strings.Split(src, "\n")
	line, col := d.Line, d.Column
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line > len(lines) {
		line = len(lines)
	}
	lineTxt := lines[line-1]

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", d.Severity, line, col, d.Message)
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lineTxt)
	caretPad := col - 1
	if caretPad > len(lineTxt) {
		caretPad = len(lineTxt)
	}
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", caretPad))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
