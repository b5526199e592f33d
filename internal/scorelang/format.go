// format.go — token-stream formatter and minifier.
//
// Both tools consume the raw token stream, never the AST, so they work on
// sources the parser would complain about. The formatter is idempotent:
// Format(Format(s)) == Format(s) for every accepted source. Context blocks
// are re-dumped through the YAML decoder with canonical key ordering;
// blocks that fail to decode are preserved verbatim.
package scorelang

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatOptions controls the formatter's layout.
type FormatOptions struct {
	IndentSize             int
	MaxLineLength          int
	NotesPerLine           int
	SpaceAroundConnectives bool
	AlignContextValues     bool
}

// DefaultFormatOptions returns the options used when nil is passed.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		IndentSize:             2,
		MaxLineLength:          80,
		NotesPerLine:           8,
		SpaceAroundConnectives: false,
		AlignContextValues:     true,
	}
}

// Format pretty-prints a source string.
func Format(src string, opts *FormatOptions) string {
	o := DefaultFormatOptions()
	if opts != nil {
		o = *opts
	}
	tr := Tokenize(src)
	f := &formatter{toks: tr.Tokens, o: o}
	f.run()
	return finishOutput(f.b.String())
}

// finishOutput trims trailing blank lines down to a single newline.
func finishOutput(s string) string {
	return strings.TrimRight(s, " \t\n") + "\n"
}

type formatter struct {
	toks []Token
	i    int
	o    FormatOptions
	b    strings.Builder
}

func (f *formatter) atEnd() bool { return f.i >= len(f.toks) }

func (f *formatter) peek() Token {
	if f.atEnd() {
		return Token{Type: EOF}
	}
	return f.toks[f.i]
}

func (f *formatter) next() Token {
	t := f.peek()
	if !f.atEnd() {
		f.i++
	}
	return t
}

func (f *formatter) indent() string {
	return strings.Repeat(" ", f.o.IndentSize)
}

func (f *formatter) run() {
	for !f.atEnd() {
		t := f.peek()
		switch t.Type {
		case CONTEXT_DELIM:
			f.formatContextBlock()
		case STAVE_DECL:
			f.formatStaveSection()
		case COMMENT:
			f.next()
			f.b.WriteString(t.Text + "\n")
		case WHITESPACE, NEWLINE:
			f.next()
		default:
			// stray top-level token: keep it on its own line
			f.next()
			f.b.WriteString(t.Text + "\n")
		}
	}
}

// ───────────────────────── context blocks ─────────────────────────

func (f *formatter) formatContextBlock() {
	f.next() // opening ---
	var lines []string
	closed := false
	for !f.atEnd() {
		t := f.next()
		if t.Type == CONTEXT_DELIM {
			closed = true
			break
		}
		if t.Type == YAML_CONTENT {
			lines = append(lines, t.Text)
		}
	}

	f.b.WriteString("---\n")
	body := renderContextBody(lines, f.o)
	f.b.WriteString(body)
	if closed {
		f.b.WriteString("---\n")
	}
}

// canonical key order for context blocks; stave declarations follow in
// their original order.
var contextKeyOrder = []string{"title", "composer", "key", "time", "tempo", "octave"}

// renderContextBody decodes the block and re-emits it with canonical key
// ordering. Undecodable YAML is returned verbatim.
func renderContextBody(lines []string, o FormatOptions) string {
	raw := strings.Join(lines, "\n")
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	verbatim := raw + "\n"

	quoted := staveKeyRe.ReplaceAllString(raw, `$1"$2"$3`)
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(quoted), &doc); err != nil {
		return verbatim
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return verbatim
	}
	m := doc.Content[0]

	type entry struct{ key, val string }
	var scalars []entry
	var staves []*yaml.Node // key, value pairs interleaved
	known := map[string]string{}
	var extraOrder []string

	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		val := m.Content[i+1]
		if strings.HasPrefix(key, "&") {
			staves = append(staves, m.Content[i], val)
			continue
		}
		if val.Kind != yaml.ScalarNode {
			// unexpected nesting under a plain key: keep the block as written
			return verbatim
		}
		if _, seen := known[key]; !seen {
			known[key] = val.Value
			extraOrder = append(extraOrder, key)
		} else {
			known[key] = val.Value
		}
	}

	for _, key := range contextKeyOrder {
		if v, ok := known[key]; ok {
			scalars = append(scalars, entry{key, v})
			delete(known, key)
		}
	}
	for _, key := range extraOrder {
		if v, ok := known[key]; ok {
			scalars = append(scalars, entry{key, v})
		}
	}

	keyWidth := 0
	if o.AlignContextValues {
		for _, e := range scalars {
			if len(e.key) > keyWidth {
				keyWidth = len(e.key)
			}
		}
	}

	var b strings.Builder
	for _, e := range scalars {
		b.WriteString(e.key + ":")
		pad := 1
		if o.AlignContextValues {
			pad = keyWidth - len(e.key) + 1
		}
		b.WriteString(strings.Repeat(" ", pad))
		b.WriteString(yamlScalar(e.val) + "\n")
	}
	indent := strings.Repeat(" ", o.IndentSize)
	for i := 0; i+1 < len(staves); i += 2 {
		b.WriteString(staves[i].Value + ":\n")
		clef, voice := "", ""
		val := staves[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			clef = val.Value
		case yaml.MappingNode:
			for j := 0; j+1 < len(val.Content); j += 2 {
				switch val.Content[j].Value {
				case "clef":
					clef = val.Content[j+1].Value
				case "voice":
					voice = val.Content[j+1].Value
				}
			}
		}
		if clef == "" {
			clef = ClefTreble
		}
		b.WriteString(indent + "clef: " + yamlScalar(clef) + "\n")
		if voice != "" {
			b.WriteString(indent + "voice: " + yamlScalar(voice) + "\n")
		}
	}
	return b.String()
}

// yamlScalar quotes a value only when plain style would change its meaning.
func yamlScalar(v string) string {
	if v == "" {
		return `""`
	}
	if strings.ContainsAny(v, ":#{}[]&*!|>'\"%@`") ||
		v != strings.TrimSpace(v) {
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return v
}

// ───────────────────────── stave sections ─────────────────────────

// wordSeg is one formatted unit of a body: either a glued word or a comment
// that must sit on its own line.
type wordSeg struct {
	text    string
	comment bool
}

// skipSpace advances past whitespace and newline trivia (not comments).
func (f *formatter) skipSpace() {
	for !f.atEnd() {
		switch f.peek().Type {
		case WHITESPACE, NEWLINE:
			f.next()
		default:
			return
		}
	}
}

func (f *formatter) formatStaveSection() {
	decl := f.next() // STAVE_DECL
	f.skipSpace()
	if f.peek().Type != STAVE_BODY_START {
		f.b.WriteString(decl.Text + "\n")
		return
	}
	f.next() // {
	words := f.collectWords(STAVE_BODY_END)
	if f.peek().Type == STAVE_BODY_END {
		f.next()
	}

	var annot []wordSeg
	hasAnnot := false
	f.skipSpace()
	if f.peek().Type == ANNOTATION_BLOCK_START {
		f.next()
		annot = f.collectWords(ANNOTATION_BLOCK_END)
		if f.peek().Type == ANNOTATION_BLOCK_END {
			f.next()
		}
		hasAnnot = true
	}

	f.renderBody(decl.Text, words, annot, hasAnnot)
}

func hasComments(words []wordSeg) bool {
	for _, w := range words {
		if w.comment {
			return true
		}
	}
	return false
}

func joinWords(words []wordSeg) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, w.text)
	}
	return strings.Join(parts, " ")
}

func (f *formatter) renderBody(declText string, words, annot []wordSeg, hasAnnot bool) {
	// a line comment inside the annotation block cannot render inline
	for i, w := range annot {
		if w.comment {
			annot[i] = wordSeg{text: inlineComment(w.text)}
		}
	}
	annotSuffix := ""
	if hasAnnot {
		annotSuffix = " { " + joinWords(annot) + " }"
		if len(annot) == 0 {
			annotSuffix = " { }"
		}
	}

	oneLine := declText + " { " + joinWords(words) + " }" + annotSuffix
	if len(words) == 0 {
		oneLine = declText + " { }" + annotSuffix
	}
	if !hasComments(words) && !hasComments(annot) &&
		len(words) <= f.o.NotesPerLine && len(oneLine) <= f.o.MaxLineLength {
		f.b.WriteString(oneLine + "\n")
		return
	}

	f.b.WriteString(declText + " {\n")
	ind := f.indent()
	count := 0
	var line []string
	flush := func() {
		if len(line) > 0 {
			f.b.WriteString(ind + strings.Join(line, " ") + "\n")
			line = nil
			count = 0
		}
	}
	for _, w := range words {
		if w.comment {
			flush()
			f.b.WriteString(ind + w.text + "\n")
			continue
		}
		line = append(line, w.text)
		count++
		if count == f.o.NotesPerLine {
			flush()
		}
	}
	flush()
	f.b.WriteString("}" + annotSuffix + "\n")
}

// collectWords builds glued words from body tokens until the stop type.
// Durations, octave modifiers and fingerings glue to the token they follow
// when they were attached in the source; connectives glue their neighbors
// unless SpaceAroundConnectives is set.
func (f *formatter) collectWords(stop TokenType) []wordSeg {
	return f.collect(stop, false)
}

// collectInner is collectWords for nested groups, where comments must stay
// inline: a "//" comment rendered mid-group would swallow the closer, so it
// is rewritten to block form.
func (f *formatter) collectInner(stop TokenType) []wordSeg {
	return f.collect(stop, true)
}

func inlineComment(text string) string {
	if strings.HasPrefix(text, "//") {
		return "/* " + strings.TrimSpace(strings.TrimPrefix(text, "//")) + " */"
	}
	return text
}

func (f *formatter) collect(stop TokenType, inner bool) []wordSeg {
	var words []wordSeg
	glueNext := false
	pendingPrefix := ""
	lastEnd := -1

	appendWord := func(text string) {
		if pendingPrefix != "" {
			text = pendingPrefix + text
			pendingPrefix = ""
		}
		if glueNext && len(words) > 0 && !words[len(words)-1].comment {
			words[len(words)-1].text += text
		} else {
			words = append(words, wordSeg{text: text})
		}
		glueNext = false
	}
	glueToPrev := func(text string) {
		if len(words) > 0 && !words[len(words)-1].comment {
			words[len(words)-1].text += text
		} else {
			appendWord(text)
		}
	}

	for !f.atEnd() && f.peek().Type != stop {
		t := f.peek()
		switch t.Type {
		case WHITESPACE, NEWLINE:
			f.next()
			continue
		case COMMENT:
			f.next()
			if inner {
				words = append(words, wordSeg{text: inlineComment(t.Text)})
			} else {
				words = append(words, wordSeg{text: t.Text, comment: true})
			}
			glueNext = false
			continue
		case STAVE_DECL, CONTEXT_DELIM, STAVE_BODY_END, ANNOTATION_BLOCK_END:
			// unterminated group: stop here and let the caller resume
			return words
		}

		f.next()
		end := t.EndByte
		switch t.Type {
		case DURATION, OCTAVE_MOD, FINGERING:
			if t.StartByte == lastEnd {
				glueToPrev(t.Text)
			} else {
				appendWord(t.Text)
			}
		case SLUR, TIE, PEDAL:
			if f.o.SpaceAroundConnectives {
				appendWord(t.Text)
			} else {
				glueToPrev(t.Text)
				glueNext = true
			}
		case GRACE:
			pendingPrefix += t.Text
		case CHORD_START:
			group := f.collectInner(CHORD_END)
			if f.peek().Type == CHORD_END {
				end = f.next().EndByte
			}
			appendWord("[" + joinWords(group) + "]")
		case BEAM_START:
			group := f.collectInner(PAREN_CLOSE)
			if f.peek().Type == PAREN_CLOSE {
				end = f.next().EndByte
			}
			appendWord("=(" + joinWords(group) + ")")
		case FUNCTION:
			if f.peek().Type == PAREN_OPEN {
				f.next()
				group := f.collectInner(PAREN_CLOSE)
				if f.peek().Type == PAREN_CLOSE {
					end = f.next().EndByte
				}
				appendWord(t.Text + "(" + joinWords(group) + ")")
			} else {
				appendWord(t.Text)
			}
		case COMMA:
			glueToPrev(",")
		default:
			appendWord(t.Text)
		}
		lastEnd = end
	}
	return words
}

// ───────────────────────── minifier ─────────────────────────

// Minify removes every dispensable byte while preserving semantics:
// newlines survive only around context blocks and stave declarations, and a
// single space survives only where adjacency would fuse two tokens.
func Minify(src string) string {
	tr := Tokenize(src)
	var b strings.Builder
	var prev Token
	havePrev := false

	needNewlineBefore := func(t Token) bool {
		if !havePrev {
			return false
		}
		switch t.Type {
		case CONTEXT_DELIM, STAVE_DECL:
			return true
		}
		return prev.Type == CONTEXT_DELIM || prev.Type == YAML_CONTENT
	}

	for _, t := range tr.Tokens {
		switch t.Type {
		case WHITESPACE, NEWLINE, COMMENT:
			continue
		}
		if needNewlineBefore(t) {
			b.WriteString("\n")
		} else if havePrev && minifySpace(prev, t) {
			b.WriteString(" ")
		}
		if t.Type == YAML_CONTENT {
			b.WriteString(strings.TrimRight(t.Text, " \t"))
		} else {
			b.WriteString(t.Text)
		}
		prev = t
		havePrev = true
	}
	return finishOutput(b.String())
}

// minifySpace reports whether eliding all whitespace between a and b would
// change what the lexer sees.
func minifySpace(a, b Token) bool {
	// an attachment token that was separated in the source must stay
	// separated, or it would bind to the preceding element
	switch b.Type {
	case DURATION, OCTAVE_MOD, FINGERING:
		return a.EndByte != b.StartByte
	}
	wordish := func(tt TokenType) bool {
		switch tt {
		case NOTE, REST, FUNCTION, NUMBER, RANGE, STRING, DURATION, OCTAVE_MOD, FINGERING, CHORD_END:
			return true
		}
		return false
	}
	startish := func(tt TokenType) bool {
		switch tt {
		case NOTE, REST, CHORD_START, FUNCTION, NUMBER, RANGE, STRING, GRACE:
			return true
		}
		return false
	}
	return wordish(a.Type) && startish(b.Type)
}
