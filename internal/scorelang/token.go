package scorelang

import "fmt"

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota
	UNKNOWN

	// Context blocks
	CONTEXT_DELIM // "---" on its own line
	YAML_CONTENT  // one raw line inside a context block
	CONTEXT_KEY
	CONTEXT_VALUE

	// Staves
	STAVE_DECL             // "&name" or "&name+voice"
	STAVE_BODY_START       // "{" opening a stave body
	STAVE_BODY_END         // "}" closing a stave body
	ANNOTATION_BLOCK_START // "{" opening the annotation block after a body
	ANNOTATION_BLOCK_END   // "}" closing an annotation block

	// Music atoms
	NOTE       // "C", "F#", "Bb4", "G##2"
	REST       // "_"
	DURATION   // "/4", "/8..", or a bare dot run
	OCTAVE_MOD // "+", "++", "-", "--"
	FINGERING  // "@1".."@5"
	CHORD_START
	CHORD_END
	BEAM_START // "=("
	PAREN_OPEN
	PAREN_CLOSE
	SLUR  // "~"
	TIE   // "^"
	PEDAL // "%"

	// Calls and arguments
	FUNCTION
	NUMBER
	RANGE // "1-4"
	COMMA
	STRING

	// Repeats (lexed only)
	REPEAT_START // "|:"
	REPEAT_END   // ":|"
	VOLTA        // "|1", "|2", ...

	GRACE // "`" or "``"

	// Trivia (kept for the formatter)
	COMMENT
	NEWLINE
	WHITESPACE
)

var tokenNames = map[TokenType]string{
	EOF:                    "EOF",
	UNKNOWN:                "UNKNOWN",
	CONTEXT_DELIM:          "CONTEXT_DELIM",
	YAML_CONTENT:           "YAML_CONTENT",
	CONTEXT_KEY:            "CONTEXT_KEY",
	CONTEXT_VALUE:          "CONTEXT_VALUE",
	STAVE_DECL:             "STAVE_DECL",
	STAVE_BODY_START:       "STAVE_BODY_START",
	STAVE_BODY_END:         "STAVE_BODY_END",
	ANNOTATION_BLOCK_START: "ANNOTATION_BLOCK_START",
	ANNOTATION_BLOCK_END:   "ANNOTATION_BLOCK_END",
	NOTE:                   "NOTE",
	REST:                   "REST",
	DURATION:               "DURATION",
	OCTAVE_MOD:             "OCTAVE_MOD",
	FINGERING:              "FINGERING",
	CHORD_START:            "CHORD_START",
	CHORD_END:              "CHORD_END",
	BEAM_START:             "BEAM_START",
	PAREN_OPEN:             "PAREN_OPEN",
	PAREN_CLOSE:            "PAREN_CLOSE",
	SLUR:                   "SLUR",
	TIE:                    "TIE",
	PEDAL:                  "PEDAL",
	FUNCTION:               "FUNCTION",
	NUMBER:                 "NUMBER",
	RANGE:                  "RANGE",
	COMMA:                  "COMMA",
	STRING:                 "STRING",
	REPEAT_START:           "REPEAT_START",
	REPEAT_END:             "REPEAT_END",
	VOLTA:                  "VOLTA",
	GRACE:                  "GRACE",
	COMMENT:                "COMMENT",
	NEWLINE:                "NEWLINE",
	WHITESPACE:             "WHITESPACE",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a lexical token with its raw text and source coordinates.
// Line and Col are 1-based; StartByte/EndByte is a half-open byte interval
// into the original source.
type Token struct {
	Type      TokenType
	Text      string
	Line      int
	Col       int
	StartByte int
	EndByte   int
}

// Loc returns the token's span as a SourceLocation.
func (t Token) Loc() SourceLocation {
	return SourceLocation{Line: t.Line, Column: t.Col, ByteStart: t.StartByte, ByteEnd: t.EndByte}
}

// IsTrivia reports whether the token carries no musical content.
// The parser skips trivia; the formatter does not.
func (t Token) IsTrivia() bool {
	switch t.Type {
	case WHITESPACE, NEWLINE, COMMENT:
		return true
	}
	return false
}
