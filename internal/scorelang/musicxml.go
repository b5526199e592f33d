// musicxml.go — Score → MusicXML (partwise, version 4.0).
//
// The emitter writes elements through a small indenting writer rather than
// encoding/xml: the document needs a DOCTYPE line, self-closed empty
// elements and a switchable pretty/compact layout, none of which the stdlib
// encoder produces in the required shape.
//
// Durations are expressed with divisions=4 per quarter, which keeps every
// length through 16th notes an integer; shorter values are rounded to the
// nearest division (see durationValue).
package scorelang

import (
	"fmt"
	"strings"
)

// XMLOptions controls document framing and layout.
type XMLOptions struct {
	IncludeXMLDeclaration bool
	PrettyPrint           bool
}

// DefaultXMLOptions returns the options used when nil is passed.
func DefaultXMLOptions() XMLOptions {
	return XMLOptions{IncludeXMLDeclaration: true, PrettyPrint: true}
}

const divisions = 4

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`
const doctype = `<!DOCTYPE score-partwise PUBLIC "-//Recordare//DTD MusicXML 4.0 Partwise//EN" "http://www.musicxml.org/dtds/partwise.dtd">`

// ToMusicXML renders a Score as a MusicXML document string.
func ToMusicXML(score *Score, opts *XMLOptions) string {
	o := DefaultXMLOptions()
	if opts != nil {
		o = *opts
	}
	w := &xmlWriter{pretty: o.PrettyPrint}
	if o.IncludeXMLDeclaration {
		w.line(xmlHeader)
		w.line(doctype)
	}

	w.open("score-partwise", `version="4.0"`)
	writeHeader(w, score)
	writePartList(w, score)
	for i := range score.Staves {
		writePart(w, score, i)
	}
	w.close("score-partwise")
	return w.String()
}

// ───────────────────────── element writer ─────────────────────────

type xmlWriter struct {
	b      strings.Builder
	pretty bool
	depth  int
}

func (w *xmlWriter) pad() {
	if !w.pretty {
		return
	}
	if w.b.Len() > 0 {
		w.b.WriteByte('\n')
	}
	for i := 0; i < w.depth; i++ {
		w.b.WriteString("  ")
	}
}

func (w *xmlWriter) line(s string) {
	w.pad()
	w.b.WriteString(s)
}

func (w *xmlWriter) open(name string, attrs ...string) {
	w.line(tagString(name, attrs, false))
	w.depth++
}

func (w *xmlWriter) close(name string) {
	w.depth--
	w.line("</" + name + ">")
}

func (w *xmlWriter) empty(name string, attrs ...string) {
	w.line(tagString(name, attrs, true))
}

func (w *xmlWriter) text(name, value string, attrs ...string) {
	w.line(tagString(name, attrs, false) + escapeXML(value) + "</" + name + ">")
}

func (w *xmlWriter) textInt(name string, value int) {
	w.text(name, fmt.Sprintf("%d", value))
}

func (w *xmlWriter) String() string {
	if w.pretty {
		return w.b.String() + "\n"
	}
	return w.b.String()
}

func tagString(name string, attrs []string, selfClose bool) string {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(name)
	for _, a := range attrs {
		sb.WriteByte(' ')
		sb.WriteString(a)
	}
	if selfClose {
		sb.WriteByte('/')
	}
	sb.WriteByte('>')
	return sb.String()
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string { return xmlEscaper.Replace(s) }

// ───────────────────────── header & part list ─────────────────────────

func writeHeader(w *xmlWriter, score *Score) {
	if score.Metadata.Title != "" {
		w.open("work")
		w.text("work-title", score.Metadata.Title)
		w.close("work")
	}
	if score.Metadata.Composer != "" {
		w.open("identification")
		w.text("creator", score.Metadata.Composer, `type="composer"`)
		w.close("identification")
	}
}

func writePartList(w *xmlWriter, score *Score) {
	grouped := len(score.Staves) > 1
	w.open("part-list")
	if grouped {
		w.open("part-group", `type="start"`, `number="1"`)
		w.text("group-symbol", "bracket")
		w.close("part-group")
	}
	for i, staff := range score.Staves {
		w.open("score-part", fmt.Sprintf(`id="P%d"`, i+1))
		w.text("part-name", staff.Name)
		w.close("score-part")
	}
	if grouped {
		w.empty("part-group", `type="stop"`, `number="1"`)
	}
	w.close("part-list")
}

// ───────────────────────── keys & clefs ─────────────────────────

var majorFifths = map[string]int{
	"C": 0, "G": 1, "D": 2, "A": 3, "E": 4, "B": 5, "F#": 6,
	"F": -1, "Bb": -2, "Eb": -3, "Ab": -4, "Db": -5, "Gb": -6,
}

var minorFifths = map[string]int{
	"A": 0, "E": 1, "B": 2, "F#": 3, "C#": 4, "G#": 5, "D#": 6,
	"D": -1, "G": -2, "C": -3, "F": -4, "Bb": -5, "Eb": -6,
}

// keySignature normalizes a key name ("C major", "Dm", "F# minor") to its
// fifths count and mode. Unknown keys get zero fifths and keep the detected
// mode (C major, or minor for a minor-suffixed name).
func keySignature(key string) (fifths int, mode string) {
	s := strings.TrimSpace(key)
	lower := strings.ToLower(s)
	minor := false
	switch {
	case strings.HasSuffix(lower, " minor"):
		s = strings.TrimSpace(s[:len(s)-len(" minor")])
		minor = true
	case strings.HasSuffix(lower, "minor"):
		s = strings.TrimSpace(s[:len(s)-len("minor")])
		minor = true
	case strings.HasSuffix(lower, " min"):
		s = strings.TrimSpace(s[:len(s)-len(" min")])
		minor = true
	case strings.HasSuffix(lower, "min"):
		s = strings.TrimSpace(s[:len(s)-len("min")])
		minor = true
	case strings.HasSuffix(lower, " major"):
		s = strings.TrimSpace(s[:len(s)-len(" major")])
	case strings.HasSuffix(lower, "major"):
		s = strings.TrimSpace(s[:len(s)-len("major")])
	case strings.HasSuffix(lower, "maj"):
		s = strings.TrimSpace(s[:len(s)-len("maj")])
	case strings.HasSuffix(s, "m"):
		s = s[:len(s)-1]
		minor = true
	}
	if minor {
		if f, ok := minorFifths[s]; ok {
			return f, "minor"
		}
		return 0, "minor"
	}
	if f, ok := majorFifths[s]; ok {
		return f, "major"
	}
	return 0, "major"
}

type clefSpec struct {
	sign         string
	line         int
	octaveChange int
}

var clefSpecs = map[string]clefSpec{
	ClefTreble:  {"G", 2, 0},
	ClefBass:    {"F", 4, 0},
	ClefAlto:    {"C", 3, 0},
	ClefTenor:   {"C", 4, 0},
	ClefTreble8: {"G", 2, -1},
	ClefBass8:   {"F", 4, -1},
}

func writeKey(w *xmlWriter, key string) {
	fifths, mode := keySignature(key)
	w.open("key")
	w.textInt("fifths", fifths)
	w.text("mode", mode)
	w.close("key")
}

func writeTime(w *xmlWriter, ts *TimeSignature) {
	w.open("time")
	w.textInt("beats", ts.Beats)
	w.textInt("beat-type", ts.BeatType)
	w.close("time")
}

func writeClef(w *xmlWriter, clef string) {
	spec, ok := clefSpecs[clef]
	if !ok {
		spec = clefSpecs[ClefTreble]
	}
	w.open("clef")
	w.text("sign", spec.sign)
	w.textInt("line", spec.line)
	if spec.octaveChange != 0 {
		w.textInt("clef-octave-change", spec.octaveChange)
	}
	w.close("clef")
}

// ───────────────────────── parts & measures ─────────────────────────

func maxMeasureCount(score *Score) int {
	n := 0
	for _, staff := range score.Staves {
		if len(staff.Measures) > n {
			n = len(staff.Measures)
		}
	}
	return n
}

func writePart(w *xmlWriter, score *Score, staffIdx int) {
	staff := &score.Staves[staffIdx]
	w.open("part", fmt.Sprintf(`id="P%d"`, staffIdx+1))

	activeKey := score.Metadata.Key
	activeTime := score.Metadata.Time
	if activeTime == nil {
		activeTime = &TimeSignature{Beats: 4, BeatType: 4}
	}

	total := maxMeasureCount(score)
	for mi := 0; mi < total; mi++ {
		w.open("measure", fmt.Sprintf(`number="%d"`, mi+1))

		if mi < len(staff.Measures) {
			m := &staff.Measures[mi]
			if a := m.Attributes; a != nil {
				if a.Key != "" {
					activeKey = a.Key
				}
				if a.Time != nil {
					activeTime = a.Time
				}
			}
			if mi == 0 {
				writeFullAttributes(w, activeKey, activeTime, staff.Clef)
			} else if a := m.Attributes; a != nil {
				writeChangedAttributes(w, a)
			}
			if mi == 0 && staffIdx == 0 && score.Metadata.Tempo > 0 {
				writeTempo(w, score.Metadata.Tempo)
			}
			writeMeasureBody(w, m)
		} else {
			// this staff ran out of music: pad with a whole-measure rest
			if mi == 0 {
				writeFullAttributes(w, activeKey, activeTime, staff.Clef)
			}
			w.open("note")
			w.empty("rest", `measure="yes"`)
			w.textInt("duration", activeTime.Beats*divisions)
			w.close("note")
		}
		w.close("measure")
	}
	w.close("part")
}

func writeFullAttributes(w *xmlWriter, key string, ts *TimeSignature, clef string) {
	w.open("attributes")
	w.textInt("divisions", divisions)
	writeKey(w, key)
	writeTime(w, ts)
	writeClef(w, clef)
	w.close("attributes")
}

func writeChangedAttributes(w *xmlWriter, a *MeasureAttributes) {
	w.open("attributes")
	if a.Key != "" {
		writeKey(w, a.Key)
	}
	if a.Time != nil {
		writeTime(w, a.Time)
	}
	if a.Clef != "" {
		writeClef(w, a.Clef)
	}
	w.close("attributes")
}

func writeTempo(w *xmlWriter, bpm int) {
	w.open("direction", `placement="above"`)
	w.open("direction-type")
	w.open("metronome")
	w.text("beat-unit", "quarter")
	w.textInt("per-minute", bpm)
	w.close("metronome")
	w.close("direction-type")
	w.close("direction")
	w.empty("sound", fmt.Sprintf(`tempo="%d"`, bpm))
}

// ───────────────────────── beams ─────────────────────────

func beamedNote(el MusicElement) bool {
	n, ok := el.(*Note)
	return ok && n.Beamed
}

// beamState derives one note's begin/continue/end position inside its
// measure. An isolated beamed note gets no beam tag at all, so emitted
// sequences are always begin (continue)* end.
func beamState(els []MusicElement, i int) string {
	if !beamedNote(els[i]) {
		return ""
	}
	prev := i > 0 && beamedNote(els[i-1])
	next := i+1 < len(els) && beamedNote(els[i+1])
	switch {
	case next && !prev:
		return "begin"
	case next && prev:
		return "continue"
	case prev:
		return "end"
	}
	return ""
}

// ───────────────────────── notes ─────────────────────────

func writeMeasureBody(w *xmlWriter, m *Measure) {
	for i, el := range m.Elements {
		switch e := el.(type) {
		case *Note:
			writeDirections(w, e.Annotation)
			writeNote(w, e, beamState(m.Elements, i))
			writeClosingDirections(w, e.Annotation)
		case *Rest:
			w.open("note")
			w.empty("rest")
			w.textInt("duration", durationValue(e.Duration))
			w.text("type", typeName(e.Duration.Base))
			writeDots(w, e.Duration.Dots)
			w.close("note")
		case *Chord:
			writeDirections(w, e.Annotation)
			writeChord(w, e)
			writeClosingDirections(w, e.Annotation)
		}
	}
}

// writeDirections emits dynamics, wedge starts, pedal starts and text
// immediately before the carrying note.
func writeDirections(w *xmlWriter, a *Annotation) {
	if a == nil {
		return
	}
	if a.Dynamic != "" {
		w.open("direction", `placement="below"`)
		w.open("direction-type")
		w.open("dynamics")
		w.empty(a.Dynamic)
		w.close("dynamics")
		w.close("direction-type")
		w.close("direction")
	}
	if a.Crescendo == WedgeStart {
		writeWedge(w, "crescendo")
	}
	if a.Decrescendo == WedgeStart {
		writeWedge(w, "diminuendo")
	}
	if a.PedalStart {
		writePedal(w, "start")
	}
	if a.Text != "" {
		w.open("direction", `placement="above"`)
		w.open("direction-type")
		w.text("words", a.Text)
		w.close("direction-type")
		w.close("direction")
	}
}

// writeClosingDirections emits wedge stops and pedal stops after the note
// that carries the end marker.
func writeClosingDirections(w *xmlWriter, a *Annotation) {
	if a == nil {
		return
	}
	if a.Crescendo == WedgeEnd || a.Decrescendo == WedgeEnd {
		writeWedge(w, "stop")
	}
	if a.PedalEnd {
		writePedal(w, "stop")
	}
}

func writeWedge(w *xmlWriter, kind string) {
	w.open("direction", `placement="below"`)
	w.open("direction-type")
	w.empty("wedge", fmt.Sprintf(`type="%s"`, kind))
	w.close("direction-type")
	w.close("direction")
}

func writePedal(w *xmlWriter, kind string) {
	w.open("direction", `placement="below"`)
	w.open("direction-type")
	w.empty("pedal", fmt.Sprintf(`type="%s"`, kind))
	w.close("direction-type")
	w.close("direction")
}

var accidentalAlters = map[string]int{
	"#":  1,
	"##": 2,
	"b":  -1,
	"bb": -2,
}

var accidentalNames = map[string]string{
	"#":  "sharp",
	"##": "double-sharp",
	"b":  "flat",
	"bb": "flat-flat",
}

var typeNames = map[string]string{
	Whole:     "whole",
	Half:      "half",
	Quarter:   "quarter",
	Eighth:    "eighth",
	Sixteenth: "16th",
	ThirtySec: "32nd",
}

func typeName(base string) string {
	if n, ok := typeNames[base]; ok {
		return n
	}
	return "quarter"
}

// durationValue scales a duration onto the divisions grid, rounding so that
// a dotted 32nd still lands on an integer.
func durationValue(d Duration) int {
	return (d.Ticks()*divisions + ticksPerQuarter/2) / ticksPerQuarter
}

func writePitch(w *xmlWriter, pt Pitch) {
	w.open("pitch")
	w.text("step", pt.Step)
	if alter, ok := accidentalAlters[pt.Accidental]; ok {
		w.textInt("alter", alter)
	}
	w.textInt("octave", pt.Octave)
	w.close("pitch")
}

func writeDots(w *xmlWriter, dots int) {
	for i := 0; i < dots; i++ {
		w.empty("dot")
	}
}

func writeNote(w *xmlWriter, n *Note, beam string) {
	w.open("note")
	if n.Grace {
		w.empty("grace")
	}
	writePitch(w, n.Pitch)
	w.textInt("duration", durationValue(n.Duration))
	if n.Tied {
		w.empty("tie", `type="start"`)
	}
	w.text("type", typeName(n.Duration.Base))
	writeDots(w, n.Duration.Dots)
	if name, ok := accidentalNames[n.Pitch.Accidental]; ok {
		w.text("accidental", name)
	}
	if beam != "" {
		w.text("beam", beam, `number="1"`)
	}
	writeNotations(w, n.Tied, n.Annotation)
	w.close("note")
}

func writeChord(w *xmlWriter, c *Chord) {
	for i, pt := range c.Pitches {
		w.open("note")
		if i > 0 {
			w.empty("chord")
		}
		writePitch(w, pt)
		w.textInt("duration", durationValue(c.Duration))
		if i == 0 && c.Tied {
			w.empty("tie", `type="start"`)
		}
		w.text("type", typeName(c.Duration.Base))
		writeDots(w, c.Duration.Dots)
		if name, ok := accidentalNames[pt.Accidental]; ok {
			w.text("accidental", name)
		}
		if i == 0 {
			writeNotations(w, c.Tied, c.Annotation)
		}
		w.close("note")
	}
}

func writeNotations(w *xmlWriter, tied bool, a *Annotation) {
	var arts []string
	trill := false
	fingering := 0
	slurStart, slurEnd := false, false
	if a != nil {
		for _, art := range a.Articulations {
			if art == "trill" {
				trill = true
			} else {
				arts = append(arts, art)
			}
		}
		fingering = a.Fingering
		slurStart, slurEnd = a.SlurStart, a.SlurEnd
	}
	if !tied && !slurStart && !slurEnd && len(arts) == 0 && !trill && fingering == 0 {
		return
	}

	w.open("notations")
	if tied {
		w.empty("tied", `type="start"`)
	}
	if slurStart {
		w.empty("slur", `type="start"`, `number="1"`)
	}
	if slurEnd {
		w.empty("slur", `type="stop"`, `number="1"`)
	}
	if len(arts) > 0 {
		w.open("articulations")
		for _, art := range arts {
			w.empty(art)
		}
		w.close("articulations")
	}
	if trill {
		w.open("ornaments")
		w.empty("trill-mark")
		w.close("ornaments")
	}
	if fingering > 0 {
		w.open("technical")
		w.textInt("fingering", fingering)
		w.close("technical")
	}
	w.close("notations")
}
