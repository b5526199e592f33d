// validator.go — semantic checks over a parsed Score.
//
// The validator only reports; it never rewrites the tree. Beat totals are
// not checked here: measure partitioning already enforced them.
package scorelang

import "fmt"

// ValidationResult is the diagnostic bundle for one Score. Valid is false
// exactly when an error-severity diagnostic is present.
type ValidationResult struct {
	Valid       bool
	Diagnostics []Diagnostic
}

// enharmonic spellings worth a hint: the plain letter is the usual choice.
var enharmonicHints = map[string]string{
	"Cb": "B",
	"Fb": "E",
	"E#": "F",
	"B#": "C",
}

// Validate checks pitch ranges, fingerings, chord shape, stave declarations
// and dot counts.
func Validate(score *Score) ValidationResult {
	var ds []Diagnostic
	if score == nil {
		return ValidationResult{Valid: false, Diagnostics: []Diagnostic{
			{Severity: SeverityError, Message: "no score to validate", Line: 1, Column: 1},
		}}
	}

	anyDeclared := len(score.Metadata.Staves) > 0
	for si := range score.Staves {
		staff := &score.Staves[si]
		if anyDeclared && !staff.Declared {
			ds = append(ds, warningAt(staff.Loc,
				fmt.Sprintf("stave %q is used but not declared", staff.Name)))
		}
		for mi := range staff.Measures {
			for _, el := range staff.Measures[mi].Elements {
				ds = append(ds, validateElement(el)...)
			}
		}
	}

	SortDiagnostics(ds)
	return ValidationResult{Valid: !HasErrors(ds), Diagnostics: ds}
}

func validateElement(el MusicElement) []Diagnostic {
	var ds []Diagnostic
	switch e := el.(type) {
	case *Note:
		ds = append(ds, validatePitch(e.Pitch)...)
		ds = append(ds, validateDuration(e.Duration, e.Loc)...)
		ds = append(ds, validateAnnotation(e.Annotation, e.Loc)...)
	case *Rest:
		ds = append(ds, validateDuration(e.Duration, e.Loc)...)
	case *Chord:
		if len(e.Pitches) == 0 {
			ds = append(ds, errorAt(e.Loc, "empty chord"))
		}
		for _, pt := range e.Pitches {
			ds = append(ds, validatePitch(pt)...)
		}
		ds = append(ds, validateDuration(e.Duration, e.Loc)...)
		ds = append(ds, validateAnnotation(e.Annotation, e.Loc)...)
	}
	return ds
}

func validatePitch(pt Pitch) []Diagnostic {
	var ds []Diagnostic
	if pt.Octave < 0 || pt.Octave > 8 {
		ds = append(ds, errorAt(pt.Loc, fmt.Sprintf("octave %d is out of range 0..8", pt.Octave)))
	}
	spelled := pt.Step + pt.Accidental
	if plain, ok := enharmonicHints[spelled]; ok {
		ds = append(ds, infoAt(pt.Loc, fmt.Sprintf("%s is enharmonic with %s", spelled, plain)))
	}
	return ds
}

func validateDuration(d Duration, loc SourceLocation) []Diagnostic {
	if d.Dots > 2 {
		return []Diagnostic{warningAt(loc, fmt.Sprintf("duration has %d dots; more than 2 is unusual", d.Dots))}
	}
	return nil
}

func validateAnnotation(a *Annotation, loc SourceLocation) []Diagnostic {
	if a == nil {
		return nil
	}
	if a.Fingering != 0 && (a.Fingering < 1 || a.Fingering > 5) {
		return []Diagnostic{errorAt(loc, fmt.Sprintf("fingering %d is out of range 1..5", a.Fingering))}
	}
	return nil
}
