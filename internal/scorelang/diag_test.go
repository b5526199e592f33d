package scorelang

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Diag_String(t *testing.T) {
	d := Diagnostic{Severity: SeverityWarning, Message: "too many dots", Line: 3, Column: 7}
	assert.Equal(t, "warning at 3:7: too many dots", d.String())
}

func Test_Diag_Sorting(t *testing.T) {
	ds := []Diagnostic{
		{Severity: SeverityInfo, Line: 2, Column: 1},
		{Severity: SeverityError, Line: 1, Column: 9},
		{Severity: SeverityWarning, Line: 1, Column: 2},
		{Severity: SeverityError, Line: 1, Column: 2},
	}
	SortDiagnostics(ds)
	assert.Equal(t, 1, ds[0].Line)
	assert.Equal(t, 2, ds[0].Column)
	assert.Equal(t, SeverityError, ds[0].Severity)
	assert.Equal(t, SeverityWarning, ds[1].Severity)
	assert.Equal(t, 9, ds[2].Column)
	assert.Equal(t, 2, ds[3].Line)
}

func Test_Diag_HasErrors(t *testing.T) {
	assert.False(t, HasErrors(nil))
	assert.False(t, HasErrors([]Diagnostic{{Severity: SeverityWarning}}))
	assert.True(t, HasErrors([]Diagnostic{{Severity: SeverityWarning}, {Severity: SeverityError}}))
}

func Test_Diag_RenderCaret(t *testing.T) {
	src := "&m {\n  C DE F\n}"
	d := Diagnostic{Severity: SeverityError, Message: "Notes must be separated by whitespace or connectives", Line: 2, Column: 5}
	out := RenderDiagnostic(src, d)

	lines := strings.Split(out, "\n")
	assert.Contains(t, lines[0], "error at 2:5")
	assert.Contains(t, out, "   1 | &m {")
	assert.Contains(t, out, "   2 |   C DE F")
	assert.Contains(t, out, "     |     ^")
	assert.Contains(t, out, "   3 | }")
}

func Test_Diag_RenderClampsOutOfRange(t *testing.T) {
	out := RenderDiagnostic("C", Diagnostic{Severity: SeverityError, Message: "x", Line: 99, Column: 99})
	assert.Contains(t, out, "   1 | C")
	assert.Contains(t, out, "^")
}
