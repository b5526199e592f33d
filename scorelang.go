// Package score is the public surface of the Scorelang compiler core: a
// deterministic pipeline from score notation text to tokens, a Score tree,
// validation diagnostics and MusicXML, plus a formatter and minifier over
// the raw token stream.
//
// Every function here is pure: it takes an owned input, returns an owned
// output bundled with diagnostics, and holds no state between calls, so
// concurrent use needs no coordination.
package score

import scorelang "github.com/scorelang/score/internal/scorelang"

// Version is the compiler core version.
const Version = scorelang.Version

// Re-exported pipeline types.
type (
	Token            = scorelang.Token
	TokenType        = scorelang.TokenType
	TokenizeResult   = scorelang.TokenizeResult
	SourceLocation   = scorelang.SourceLocation
	Pitch            = scorelang.Pitch
	Duration         = scorelang.Duration
	Annotation       = scorelang.Annotation
	Note             = scorelang.Note
	Rest             = scorelang.Rest
	Chord            = scorelang.Chord
	MusicElement     = scorelang.MusicElement
	Measure          = scorelang.Measure
	Staff            = scorelang.Staff
	TimeSignature    = scorelang.TimeSignature
	Metadata         = scorelang.Metadata
	Score            = scorelang.Score
	ParseResult      = scorelang.ParseResult
	ValidationResult = scorelang.ValidationResult
	Diagnostic       = scorelang.Diagnostic
	Severity         = scorelang.Severity
	XMLOptions       = scorelang.XMLOptions
	FormatOptions    = scorelang.FormatOptions
)

// Severity levels.
const (
	SeverityError   = scorelang.SeverityError
	SeverityWarning = scorelang.SeverityWarning
	SeverityInfo    = scorelang.SeverityInfo
)

// Tokenize scans a source string into tokens plus lexical diagnostics.
func Tokenize(src string) TokenizeResult { return scorelang.Tokenize(src) }

// Parse builds the Score tree for a source string. The Score is nil only
// when an internal failure was caught; diagnostics are always returned.
func Parse(src string) ParseResult { return scorelang.Parse(src) }

// Validate runs semantic checks over a parsed Score.
func Validate(s *Score) ValidationResult { return scorelang.Validate(s) }

// ToMusicXML renders a Score as a MusicXML document. A nil opts uses
// DefaultXMLOptions.
func ToMusicXML(s *Score, opts *XMLOptions) string { return scorelang.ToMusicXML(s, opts) }

// Format pretty-prints a source string. A nil opts uses
// DefaultFormatOptions.
func Format(src string, opts *FormatOptions) string { return scorelang.Format(src, opts) }

// Minify strips every dispensable byte from a source string while
// preserving its meaning.
func Minify(src string) string { return scorelang.Minify(src) }

// DefaultXMLOptions returns the MusicXML rendering defaults.
func DefaultXMLOptions() XMLOptions { return scorelang.DefaultXMLOptions() }

// DefaultFormatOptions returns the formatter defaults.
func DefaultFormatOptions() FormatOptions { return scorelang.DefaultFormatOptions() }

// RenderDiagnostic renders one diagnostic as a caret-annotated snippet of
// the source.
func RenderDiagnostic(src string, d Diagnostic) string { return scorelang.RenderDiagnostic(src, d) }
