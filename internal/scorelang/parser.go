// parser.go — recursive descent over the token stream, producing a Score.
//
// Parsing runs in three phases per source region:
//
//   - Phase A: "---" context blocks are decoded as YAML (gopkg.in/yaml.v3)
//     after a preprocessing step that quotes stave keys beginning with '&'.
//     The first block populates the score metadata; later blocks update the
//     active key/time so stave bodies parsed afterwards pick up the change.
//   - Phase B: stave bodies "&name { ... }" are walked element by element.
//     The parser tracks a sticky current duration (initially a quarter) and
//     applies inline function calls and annotation blocks to the elements
//     they enclose or target.
//   - Phase C: each body's flat element list is partitioned into measures
//     against the active time signature, on an integer tick grid so the
//     measure-boundary comparison is exact.
//
// The parser never gives up: unknown tokens outside a recognized construct
// are skipped, and a top-level recover converts any internal failure into a
// single synthetic error with a nil Score.
package scorelang

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseResult bundles the AST with accumulated diagnostics. Score is nil
// only when an internal failure was caught.
type ParseResult struct {
	Score    *Score
	Errors   []Diagnostic
	Warnings []Diagnostic
}

// Parse tokenizes and parses a complete source string.
func Parse(src string) (res ParseResult) {
	tr := Tokenize(src)
	p := &parser{
		src:             src,
		defaultOctave:   4,
		currentDuration: Duration{Base: Quarter},
		staffByName:     map[string]int{},
		errors:          append([]Diagnostic{}, tr.Errors...),
	}
	for _, t := range tr.Tokens {
		if !t.IsTrivia() {
			p.toks = append(p.toks, t)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			loc := p.currentLoc()
			res = ParseResult{
				Score:    nil,
				Errors:   append(p.errors, errorAt(loc, "Unknown parse error")),
				Warnings: p.warnings,
			}
		}
	}()

	p.score = &Score{}
	p.parseProgram()
	p.score.Metadata.DefaultOctave = p.defaultOctave
	if len(p.toks) > 0 {
		first := p.toks[0]
		last := p.toks[len(p.toks)-1]
		p.score.Loc = spanLoc(first.Loc(), last.Loc())
	}
	return ParseResult{Score: p.score, Errors: p.errors, Warnings: p.warnings}
}

type staffContext struct {
	key  string
	time *TimeSignature
}

type parser struct {
	toks []Token
	i    int
	src  string

	score    *Score
	errors   []Diagnostic
	warnings []Diagnostic

	// scratch state, discarded when Parse returns
	currentDuration Duration
	defaultOctave   int
	activeKey       string
	activeTime      *TimeSignature
	staffByName     map[string]int
	staffCtx        map[int]*staffContext
}

// ───────────────────────── token plumbing ─────────────────────────

func (p *parser) atEnd() bool { return p.i >= len(p.toks) }

func (p *parser) peek() Token {
	if p.atEnd() {
		if len(p.toks) == 0 {
			return Token{Type: EOF, Line: 1, Col: 1}
		}
		last := p.toks[len(p.toks)-1]
		return Token{Type: EOF, Line: last.Line, Col: last.Col, StartByte: last.EndByte, EndByte: last.EndByte}
	}
	return p.toks[p.i]
}

func (p *parser) next() Token {
	t := p.peek()
	if !p.atEnd() {
		p.i++
	}
	return t
}

func (p *parser) check(tt TokenType) bool { return p.peek().Type == tt }

func (p *parser) match(tt TokenType) (Token, bool) {
	if p.check(tt) {
		return p.next(), true
	}
	return Token{}, false
}

func (p *parser) currentLoc() SourceLocation {
	return p.peek().Loc()
}

func (p *parser) warnf(loc SourceLocation, format string, args ...any) {
	p.warnings = append(p.warnings, warningAt(loc, fmt.Sprintf(format, args...)))
}

// ───────────────────────── program structure ─────────────────────────

func (p *parser) parseProgram() {
	for !p.atEnd() {
		switch p.peek().Type {
		case CONTEXT_DELIM:
			p.parseContextBlock()
		case STAVE_DECL:
			p.parseStaveBody()
		default:
			// stray tokens between top-level constructs are skipped
			p.next()
		}
	}
}

// ───────────────────────── Phase A: context blocks ─────────────────────────

var staveKeyRe = regexp.MustCompile(`(?m)^(\s*)(&[A-Za-z0-9+]+)(\s*:)`)

func (p *parser) parseContextBlock() {
	open := p.next() // CONTEXT_DELIM
	var lines []string
	for !p.atEnd() {
		t := p.peek()
		if t.Type == CONTEXT_DELIM {
			p.next()
			break
		}
		if t.Type == YAML_CONTENT {
			lines = append(lines, t.Text)
		}
		p.next()
	}
	if len(lines) == 0 {
		return
	}
	body := strings.Join(lines, "\n")
	// a bare "&name" is not valid YAML; quote such keys before decoding
	quoted := staveKeyRe.ReplaceAllString(body, `$1"$2"$3`)

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(quoted), &doc); err != nil {
		p.errors = append(p.errors, errorAt(open.Loc(), "YAML error: "+err.Error()))
		return
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return
	}
	p.applyContextMapping(doc.Content[0], open.Loc())
}

func (p *parser) applyContextMapping(m *yaml.Node, loc SourceLocation) {
	meta := &p.score.Metadata
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		val := m.Content[i+1]
		switch {
		case key == "title":
			meta.Title = val.Value
		case key == "composer":
			meta.Composer = val.Value
		case key == "key":
			if meta.Key == "" {
				meta.Key = val.Value
			}
			p.activeKey = val.Value
		case key == "time":
			ts, ok := parseTimeSignature(val.Value)
			if !ok {
				p.warnf(loc, "invalid time signature %q", val.Value)
				continue
			}
			if meta.Time == nil {
				meta.Time = ts
			}
			p.activeTime = ts
		case key == "tempo":
			if n, err := strconv.Atoi(val.Value); err == nil {
				meta.Tempo = n
			}
		case key == "octave":
			if n, err := strconv.Atoi(val.Value); err == nil {
				if n < 0 {
					n = 0
				}
				if n > 8 {
					n = 8
				}
				p.defaultOctave = n
			}
		case strings.HasPrefix(key, "&"):
			p.declareStave(key, val)
		}
	}
}

func (p *parser) declareStave(key string, val *yaml.Node) {
	name, voice := splitStaveName(strings.TrimPrefix(key, "&"))
	clef := ""
	switch val.Kind {
	case yaml.ScalarNode:
		clef = val.Value
	case yaml.MappingNode:
		for i := 0; i+1 < len(val.Content); i += 2 {
			switch val.Content[i].Value {
			case "clef":
				clef = val.Content[i+1].Value
			case "voice":
				voice = val.Content[i+1].Value
			}
		}
	}
	if !validClefs[clef] {
		clef = ClefTreble
	}
	ref := StaveRef{Name: name, Clef: clef, Voice: voice}
	p.score.Metadata.Staves = append(p.score.Metadata.Staves, ref)
	if _, exists := p.staffByName[name]; !exists {
		p.addStaff(Staff{Name: name, Clef: clef, Voice: voice, Declared: true})
	}
}

func (p *parser) addStaff(s Staff) int {
	idx := len(p.score.Staves)
	p.score.Staves = append(p.score.Staves, s)
	p.staffByName[s.Name] = idx
	return idx
}

func splitStaveName(s string) (name, voice string) {
	if j := strings.IndexByte(s, '+'); j >= 0 {
		return s[:j], s[j+1:]
	}
	return s, ""
}

func parseTimeSignature(s string) (*TimeSignature, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	if len(parts) != 2 {
		return nil, false
	}
	beats, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	beatType, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || beats < 1 {
		return nil, false
	}
	switch beatType {
	case 2, 4, 8, 16:
		return &TimeSignature{Beats: beats, BeatType: beatType}, true
	}
	return nil, false
}

// ───────────────────────── Phase B: stave bodies ─────────────────────────

func (p *parser) parseStaveBody() {
	decl := p.next() // STAVE_DECL
	name, voice := splitStaveName(strings.TrimPrefix(decl.Text, "&"))

	if _, ok := p.match(STAVE_BODY_START); !ok {
		// a stray declaration with no body contributes nothing
		return
	}

	els := p.parseElements(STAVE_BODY_END)
	p.match(STAVE_BODY_END)

	if _, ok := p.match(ANNOTATION_BLOCK_START); ok {
		p.parseAnnotationBlock(els)
		p.match(ANNOTATION_BLOCK_END)
	}

	idx, ok := p.staffByName[name]
	if !ok {
		idx = p.addStaff(Staff{Name: name, Clef: ClefTreble, Voice: voice, Declared: false, Loc: decl.Loc()})
	}
	staff := &p.score.Staves[idx]
	if staff.Loc == (SourceLocation{}) {
		staff.Loc = decl.Loc()
	}

	attrs := p.contextChange(idx)
	ts := p.activeTime
	if ts == nil {
		ts = &TimeSignature{Beats: 4, BeatType: 4}
	}
	measures := partitionMeasures(els, ts)
	if attrs != nil && len(measures) > 0 {
		measures[0].Attributes = attrs
	}
	staff.Measures = append(staff.Measures, measures...)
}

// contextChange reports which of key/time changed for this staff since its
// last body, and records the new context.
func (p *parser) contextChange(idx int) *MeasureAttributes {
	if p.staffCtx == nil {
		p.staffCtx = map[int]*staffContext{}
	}
	ctx, ok := p.staffCtx[idx]
	if !ok {
		// first body for this staff: baseline is the opening metadata
		ctx = &staffContext{key: p.score.Metadata.Key, time: p.score.Metadata.Time}
		p.staffCtx[idx] = ctx
	}
	var attrs *MeasureAttributes
	if p.activeKey != ctx.key {
		attrs = &MeasureAttributes{Key: p.activeKey}
		ctx.key = p.activeKey
	}
	if !timeEq(p.activeTime, ctx.time) {
		if attrs == nil {
			attrs = &MeasureAttributes{}
		}
		attrs.Time = p.activeTime
		ctx.time = p.activeTime
	}
	return attrs
}

func timeEq(a, b *TimeSignature) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Beats == b.Beats && a.BeatType == b.BeatType
}

// parseElements consumes elements until the given terminator (or EOF) and
// returns the flat element list. The terminator itself is left for the
// caller.
func (p *parser) parseElements(stop TokenType) []MusicElement {
	var els []MusicElement
	pendingSlurEnd := false
	pedalDown := false

	for !p.atEnd() && !p.check(stop) {
		t := p.peek()
		switch t.Type {
		case NOTE:
			n := p.parseNote(false)
			if pendingSlurEnd {
				annotationOf(n).SlurEnd = true
				pendingSlurEnd = false
			}
			els = append(els, n)
		case REST:
			els = append(els, p.parseRest())
		case CHORD_START:
			c := p.parseChord()
			if pendingSlurEnd {
				annotationOf(c).SlurEnd = true
				pendingSlurEnd = false
			}
			els = append(els, c)
		case BEAM_START:
			p.next()
			group := p.parseElements(PAREN_CLOSE)
			p.match(PAREN_CLOSE)
			for _, el := range group {
				if n, ok := el.(*Note); ok {
					n.Beamed = true
				}
			}
			els = append(els, group...)
		case GRACE:
			p.next()
			if p.check(NOTE) {
				els = append(els, p.parseNote(true))
			}
		case FUNCTION:
			name := t.Text
			p.next()
			if _, ok := p.match(PAREN_OPEN); !ok {
				continue // bare word, skipped
			}
			group := p.parseElements(PAREN_CLOSE)
			p.match(PAREN_CLOSE)
			p.applyInlineFunction(name, t.Loc(), group)
			els = append(els, group...)
		case SLUR:
			p.next()
			if prev := lastAnnotatable(els); prev != nil {
				annotationOf(prev).SlurStart = true
				pendingSlurEnd = true
			}
		case TIE:
			p.next()
			switch prev := lastElement(els).(type) {
			case *Note:
				prev.Tied = true
			case *Chord:
				prev.Tied = true
			}
		case PEDAL:
			p.next()
			if prev := lastAnnotatable(els); prev != nil {
				if pedalDown {
					annotationOf(prev).PedalEnd = true
				} else {
					annotationOf(prev).PedalStart = true
				}
				pedalDown = !pedalDown
			}
		case DURATION:
			// a free-standing duration just updates the sticky duration
			d := p.next()
			p.currentDuration = parseDurationText(d.Text, d.Loc())
		case STAVE_DECL, CONTEXT_DELIM, STAVE_BODY_END, ANNOTATION_BLOCK_START, ANNOTATION_BLOCK_END:
			// a construct boundary inside an unterminated group: bail out and
			// let the enclosing level handle it (when stop is one of these,
			// the loop condition exits before this case is reached)
			return els
		default:
			p.next()
		}
	}
	return els
}

func lastElement(els []MusicElement) MusicElement {
	if len(els) == 0 {
		return nil
	}
	return els[len(els)-1]
}

func lastAnnotatable(els []MusicElement) MusicElement {
	for i := len(els) - 1; i >= 0; i-- {
		switch els[i].(type) {
		case *Note, *Chord:
			return els[i]
		}
	}
	return nil
}

// parsePitch decodes one NOTE token (plus an adjacent octave modifier) into
// a Pitch. Relative octave arithmetic is additive and saturates at 0..8.
func (p *parser) parsePitch() Pitch {
	t := p.next() // NOTE
	text := t.Text
	pitch := Pitch{Loc: t.Loc(), Step: text[:1], Octave: p.defaultOctave}
	rest := text[1:]
	for len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		pitch.Accidental += rest[:1]
		rest = rest[1:]
	}
	if len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
		pitch.Octave = int(rest[0] - '0')
	}
	if mod, ok := p.adjacent(t.EndByte, OCTAVE_MOD); ok {
		delta := len(mod.Text)
		if mod.Text[0] == '-' {
			delta = -delta
		}
		pitch.Octave += delta
		pitch.Loc = spanLoc(t.Loc(), mod.Loc())
	}
	if pitch.Octave < 0 {
		pitch.Octave = 0
	}
	if pitch.Octave > 8 {
		pitch.Octave = 8
	}
	return pitch
}

// adjacent consumes and returns the next token when it has the wanted type
// and starts exactly at the given byte offset.
func (p *parser) adjacent(at int, tt TokenType) (Token, bool) {
	if p.check(tt) && p.peek().StartByte == at {
		return p.next(), true
	}
	return Token{}, false
}

func (p *parser) parseNote(grace bool) *Note {
	start := p.peek()
	pitch := p.parsePitch()
	n := &Note{Loc: spanLoc(start.Loc(), pitch.Loc), Pitch: pitch, Grace: grace}

	end := pitch.Loc.ByteEnd
	if d, ok := p.adjacent(end, DURATION); ok {
		n.Duration = parseDurationText(d.Text, d.Loc())
		p.currentDuration = n.Duration
		n.Loc = spanLoc(n.Loc, d.Loc())
		end = d.EndByte
	} else {
		n.Duration = p.currentDuration
	}
	if f, ok := p.adjacent(end, FINGERING); ok {
		annotationOf(n).Fingering = int(f.Text[1] - '0')
		n.Loc = spanLoc(n.Loc, f.Loc())
	}
	return n
}

func (p *parser) parseRest() *Rest {
	t := p.next() // REST
	r := &Rest{Loc: t.Loc()}
	if d, ok := p.adjacent(t.EndByte, DURATION); ok {
		r.Duration = parseDurationText(d.Text, d.Loc())
		p.currentDuration = r.Duration
		r.Loc = spanLoc(t.Loc(), d.Loc())
	} else {
		r.Duration = p.currentDuration
	}
	return r
}

func (p *parser) parseChord() *Chord {
	open := p.next() // CHORD_START
	c := &Chord{Loc: open.Loc()}
	for !p.atEnd() && !p.check(CHORD_END) {
		switch p.peek().Type {
		case NOTE:
			c.Pitches = append(c.Pitches, p.parsePitch())
		case STAVE_BODY_END, STAVE_DECL, CONTEXT_DELIM:
			// unterminated chord: stop before swallowing the body close
			c.Loc = spanLoc(open.Loc(), p.peek().Loc())
			c.Duration = p.currentDuration
			return c
		default:
			p.next()
		}
	}
	closeTok, _ := p.match(CHORD_END)
	c.Loc = spanLoc(open.Loc(), closeTok.Loc())
	if d, ok := p.adjacent(closeTok.EndByte, DURATION); ok {
		c.Duration = parseDurationText(d.Text, d.Loc())
		p.currentDuration = c.Duration
		c.Loc = spanLoc(c.Loc, d.Loc())
	} else {
		c.Duration = p.currentDuration
	}
	return c
}

// parseDurationText decodes "/4..", "/16", "." or "..".
func parseDurationText(text string, loc SourceLocation) Duration {
	d := Duration{Loc: loc, Base: Quarter}
	if strings.HasPrefix(text, "/") {
		body := text[1:]
		digits := strings.TrimRight(body, ".")
		if base, ok := durationBases[digits]; ok {
			d.Base = base
		}
		d.Dots = len(body) - len(digits)
		return d
	}
	// a bare dot run means a dotted quarter
	d.Dots = len(text)
	return d
}

// ───────────────────────── inline functions ─────────────────────────

var dynamicNames = map[string]bool{
	"ppp": true, "pp": true, "p": true, "mp": true,
	"mf": true, "f": true, "ff": true, "fff": true,
	"fp": true, "sfz": true,
}

// articulation shorthand → MusicXML articulation element name
var articulationNames = map[string]string{
	"st": "staccato",
	"tn": "tenuto",
	"ac": "accent",
	"mc": "strong-accent",
	"fm": "fermata",
	"tr": "trill",
}

func isCrescName(name string) bool {
	return name == "cresc" || name == "crescendo" || name == "<"
}

func isDecrescName(name string) bool {
	return name == "decresc" || name == "dim" || name == ">"
}

func (p *parser) applyInlineFunction(name string, loc SourceLocation, els []MusicElement) {
	first := firstAnnotatable(els)
	last := lastAnnotatable(els)
	switch {
	case dynamicNames[name]:
		if first != nil {
			annotationOf(first).Dynamic = name
		}
	case articulationNames[name] != "":
		for _, el := range els {
			if a := annotationOf(el); a != nil {
				a.Articulations = append(a.Articulations, articulationNames[name])
			}
		}
	case name == "slur" || name == "legato":
		if first != nil {
			annotationOf(first).SlurStart = true
		}
		if last != nil {
			annotationOf(last).SlurEnd = true
		}
	case isCrescName(name):
		if first != nil {
			annotationOf(first).Crescendo = WedgeStart
		}
		if last != nil {
			annotationOf(last).Crescendo = WedgeEnd
		}
	case isDecrescName(name):
		if first != nil {
			annotationOf(first).Decrescendo = WedgeStart
		}
		if last != nil {
			annotationOf(last).Decrescendo = WedgeEnd
		}
	default:
		p.warnf(loc, "unknown function %q", name)
	}
}

func firstAnnotatable(els []MusicElement) MusicElement {
	for _, el := range els {
		switch el.(type) {
		case *Note, *Chord:
			return el
		}
	}
	return nil
}

// ───────────────────────── annotation blocks ─────────────────────────

type annotationCall struct {
	name string
	loc  SourceLocation
	lo   int // 1-based, inclusive
	hi   int
	num  int    // numeric argument (finger)
	str  string // string argument (text)
}

func (p *parser) parseAnnotationBlock(els []MusicElement) {
	for !p.atEnd() && !p.check(ANNOTATION_BLOCK_END) {
		t := p.peek()
		if t.Type != FUNCTION {
			p.next()
			continue
		}
		call, ok := p.parseAnnotationCall()
		if !ok {
			continue
		}
		p.applyAnnotationCall(call, els)
	}
}

func (p *parser) parseAnnotationCall() (annotationCall, bool) {
	t := p.next() // FUNCTION
	call := annotationCall{name: t.Text, loc: t.Loc()}
	if _, ok := p.match(PAREN_OPEN); !ok {
		return call, false
	}
	switch arg := p.peek(); arg.Type {
	case NUMBER:
		p.next()
		n, _ := strconv.Atoi(arg.Text)
		call.lo, call.hi = n, n
	case RANGE:
		p.next()
		parts := strings.SplitN(arg.Text, "-", 2)
		call.lo, _ = strconv.Atoi(parts[0])
		call.hi, _ = strconv.Atoi(parts[1])
	default:
		// malformed call: skip to the closing paren
		p.skipToParenClose()
		return call, false
	}
	for {
		if _, ok := p.match(COMMA); !ok {
			break
		}
		switch arg := p.peek(); arg.Type {
		case NUMBER:
			p.next()
			call.num, _ = strconv.Atoi(arg.Text)
		case STRING:
			p.next()
			call.str = unquote(arg.Text)
		default:
			p.next()
		}
	}
	p.match(PAREN_CLOSE)
	return call, true
}

func (p *parser) skipToParenClose() {
	for !p.atEnd() && !p.check(ANNOTATION_BLOCK_END) {
		if _, ok := p.match(PAREN_CLOSE); ok {
			return
		}
		p.next()
	}
}

func unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

func (p *parser) applyAnnotationCall(call annotationCall, els []MusicElement) {
	if call.lo < 1 || call.lo > len(els) {
		p.warnf(call.loc, "annotation %s targets element %d of %d", call.name, call.lo, len(els))
		return
	}
	lo, hi := call.lo, call.hi
	if hi > len(els) {
		hi = len(els)
	}
	target := els[lo-1 : hi]
	first, last := els[lo-1], els[hi-1]

	switch {
	case dynamicNames[call.name]:
		for _, el := range target {
			if a := annotationOf(el); a != nil {
				a.Dynamic = call.name
			}
		}
	case articulationNames[call.name] != "":
		for _, el := range target {
			if a := annotationOf(el); a != nil {
				a.Articulations = append(a.Articulations, articulationNames[call.name])
			}
		}
	case isCrescName(call.name):
		if a := annotationOf(first); a != nil {
			a.Crescendo = WedgeStart
		}
		if a := annotationOf(last); a != nil {
			a.Crescendo = WedgeEnd
		}
	case isDecrescName(call.name):
		if a := annotationOf(first); a != nil {
			a.Decrescendo = WedgeStart
		}
		if a := annotationOf(last); a != nil {
			a.Decrescendo = WedgeEnd
		}
	case call.name == "text":
		if a := annotationOf(first); a != nil {
			a.Text = call.str
		}
	case call.name == "finger":
		for _, el := range target {
			if a := annotationOf(el); a != nil {
				a.Fingering = call.num
			}
		}
	case call.name == "tie":
		for _, el := range target {
			switch e := el.(type) {
			case *Note:
				e.Tied = true
			case *Chord:
				e.Tied = true
			}
		}
	case call.name == "slur":
		if a := annotationOf(first); a != nil {
			a.SlurStart = true
		}
		if a := annotationOf(last); a != nil {
			a.SlurEnd = true
		}
	default:
		p.warnf(call.loc, "unknown annotation function %q", call.name)
	}
}

// ───────────────────────── Phase C: measure partitioning ─────────────────────────

// partitionMeasures splits a flat element list into measures holding at most
// the time signature's beat count. A single element is never split: one that
// alone exceeds the capacity still occupies one measure.
func partitionMeasures(els []MusicElement, ts *TimeSignature) []Measure {
	capTicks := ts.Beats * ticksPerQuarter
	var measures []Measure
	var cur []MusicElement
	acc := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		m := Measure{Elements: cur, Loc: spanLoc(cur[0].Location(), cur[len(cur)-1].Location())}
		measures = append(measures, m)
		cur = nil
		acc = 0
	}

	for _, el := range els {
		t := el.Dur().Ticks()
		if acc+t > capTicks && len(cur) > 0 {
			flush()
		}
		cur = append(cur, el)
		acc += t
		if acc == capTicks {
			flush()
		}
	}
	flush()
	return measures
}
