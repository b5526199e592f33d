package scorelang

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func xmlFor(t *testing.T, src string) string {
	t.Helper()
	res := Parse(src)
	require.Empty(t, res.Errors)
	require.NotNil(t, res.Score)
	return ToMusicXML(res.Score, nil)
}

func Test_XML_SingleStaffTwoMeasures(t *testing.T) {
	xml := xmlFor(t, "---\ntime: 4/4\n&main:\n  clef: treble\n---\n&main { C D E F G A B C }")

	assert.Equal(t, 1, strings.Count(xml, "<score-partwise"))
	assert.Equal(t, 2, strings.Count(xml, "<measure"))
	assert.Equal(t, 8, strings.Count(xml, "<note>"))
	assert.Contains(t, xml, "<fifths>0</fifths>")
	assert.Contains(t, xml, "<beats>4</beats>")
	assert.Contains(t, xml, "<sign>G</sign>")
	assert.Contains(t, xml, "<line>2</line>")
	assert.Contains(t, xml, "<divisions>4</divisions>")
}

func Test_XML_AccidentalsAndAlters(t *testing.T) {
	xml := xmlFor(t, "---\n&m:\n  clef: treble\n---\n&m { C# Bb F## Ebb }")

	for _, frag := range []string{
		"<alter>1</alter>", "<alter>-1</alter>", "<alter>2</alter>", "<alter>-2</alter>",
		"<accidental>sharp</accidental>", "<accidental>flat</accidental>",
		"<accidental>double-sharp</accidental>", "<accidental>flat-flat</accidental>",
	} {
		assert.Contains(t, xml, frag)
	}
}

func Test_XML_CrescendoWedge(t *testing.T) {
	xml := xmlFor(t, "---\n&m:\n  clef: treble\n---\n&m { C D E F } { cresc(1-4) }")

	startIdx := strings.Index(xml, `<wedge type="crescendo"/>`)
	stopIdx := strings.Index(xml, `<wedge type="stop"/>`)
	firstNote := strings.Index(xml, "<note>")
	require.GreaterOrEqual(t, startIdx, 0)
	require.GreaterOrEqual(t, stopIdx, 0)
	assert.Less(t, startIdx, firstNote, "crescendo wedge must precede the first note")
	assert.Greater(t, stopIdx, startIdx)
}

func Test_XML_Slur(t *testing.T) {
	xml := xmlFor(t, "---\n&m:\n  clef: treble\n---\n&m { C D E F } { slur(1-4) }")
	assert.Contains(t, xml, `<slur type="start" number="1"/>`)
	assert.Contains(t, xml, `<slur type="stop" number="1"/>`)
	assert.Less(t,
		strings.Index(xml, `<slur type="start" number="1"/>`),
		strings.Index(xml, `<slur type="stop" number="1"/>`))
}

func Test_XML_Chord(t *testing.T) {
	xml := xmlFor(t, "---\n&m:\n  clef: treble\n---\n&m { [C E G]/2 }")

	assert.Equal(t, 3, strings.Count(xml, "<note>"))
	assert.Equal(t, 2, strings.Count(xml, "<chord/>"))
	assert.Equal(t, 3, strings.Count(xml, "<type>half</type>"))
	assert.Equal(t, 3, strings.Count(xml, "<duration>8</duration>"))

	// the first note of the chord carries no <chord/>
	first := xml[strings.Index(xml, "<note>"):]
	first = first[:strings.Index(first, "</note>")]
	assert.NotContains(t, first, "<chord/>")
}

func Test_XML_TwoStavesGrouped(t *testing.T) {
	xml := xmlFor(t, "---\n&r:\n  clef: treble\n&l:\n  clef: bass\n---\n&r { C }\n&l { C }")

	assert.Contains(t, xml, `<part-group type="start" number="1">`)
	assert.Contains(t, xml, "<group-symbol>bracket</group-symbol>")
	assert.Contains(t, xml, `<part-group type="stop" number="1"/>`)
	assert.Contains(t, xml, `<score-part id="P1">`)
	assert.Contains(t, xml, `<score-part id="P2">`)
	assert.Contains(t, xml, `<part id="P1">`)
	assert.Contains(t, xml, `<part id="P2">`)
	assert.Contains(t, xml, "<sign>G</sign>")
	assert.Contains(t, xml, "<sign>F</sign>")
	assert.Contains(t, xml, "<line>4</line>")
}

func Test_XML_SingleStaffHasNoPartGroup(t *testing.T) {
	xml := xmlFor(t, "&m { C }")
	assert.NotContains(t, xml, "part-group")
}

func Test_XML_PartsPadToMaxMeasures(t *testing.T) {
	src := "---\ntime: 4/4\n&a:\n  clef: treble\n&b:\n  clef: bass\n---\n&a { C D E F G A B C }\n&b { C D E F }\n"
	res := Parse(src)
	require.Empty(t, res.Errors)
	xml := ToMusicXML(res.Score, nil)

	// both parts carry two measures; the short part pads with a whole rest
	assert.Equal(t, 4, strings.Count(xml, "<measure"))
	assert.Contains(t, xml, `<rest measure="yes"/>`)
	assert.Contains(t, xml, "<duration>16</duration>")
}

func Test_XML_BeamStates(t *testing.T) {
	xml := xmlFor(t, "---\ntime: 4/4\n---\n&m { =(C/8 D E F) }")

	assert.Equal(t, 1, strings.Count(xml, `<beam number="1">begin</beam>`))
	assert.Equal(t, 2, strings.Count(xml, `<beam number="1">continue</beam>`))
	assert.Equal(t, 1, strings.Count(xml, `<beam number="1">end</beam>`))
}

func Test_XML_BeamSequenceWellFormed(t *testing.T) {
	xml := xmlFor(t, "---\ntime: 4/4\n---\n&m { =(C/8 D) E/4 =(F/8 G A) }")

	re := regexp.MustCompile(`<beam number="1">(\w+)</beam>`)
	var states []string
	for _, m := range re.FindAllStringSubmatch(xml, -1) {
		states = append(states, m[1])
	}
	assert.Equal(t, []string{"begin", "end", "begin", "continue", "end"}, states)
}

func Test_XML_IsolatedBeamedNoteGetsNoBeamTag(t *testing.T) {
	xml := xmlFor(t, "&m { =(C/8) D }")
	assert.NotContains(t, xml, "<beam")
}

func Test_XML_TieAndNotations(t *testing.T) {
	xml := xmlFor(t, "&m { C^ C }")
	assert.Contains(t, xml, `<tie type="start"/>`)
	assert.Contains(t, xml, `<tied type="start"/>`)
}

func Test_XML_GraceNote(t *testing.T) {
	xml := xmlFor(t, "&m { `C D }")
	assert.Contains(t, xml, "<grace/>")
}

func Test_XML_DynamicsBeforeNote(t *testing.T) {
	xml := xmlFor(t, "&m { ff(C D) }")
	dyn := strings.Index(xml, "<ff/>")
	note := strings.Index(xml, "<note>")
	require.GreaterOrEqual(t, dyn, 0)
	assert.Less(t, dyn, note)
}

func Test_XML_FingeringAndArticulations(t *testing.T) {
	xml := xmlFor(t, "&m { C@3 st(D E) tr(F) }")
	assert.Contains(t, xml, "<fingering>3</fingering>")
	assert.Equal(t, 2, strings.Count(xml, "<staccato/>"))
	assert.Contains(t, xml, "<trill-mark/>")
}

func Test_XML_DurationsAndDots(t *testing.T) {
	xml := xmlFor(t, "---\ntime: 4/4\n---\n&m { C/1 }\n&m { D/2. E/4 F/8 G/16 A/32 }")

	assert.Contains(t, xml, "<type>whole</type>")
	assert.Contains(t, xml, "<duration>16</duration>")
	assert.Contains(t, xml, "<type>half</type>")
	assert.Contains(t, xml, "<duration>12</duration>") // dotted half
	assert.Contains(t, xml, "<dot/>")
	assert.Contains(t, xml, "<type>eighth</type>")
	assert.Contains(t, xml, "<duration>2</duration>")
	assert.Contains(t, xml, "<type>16th</type>")
	assert.Contains(t, xml, "<type>32nd</type>")
	assert.Contains(t, xml, "<duration>1</duration>")
}

func Test_XML_KeySignatures(t *testing.T) {
	cases := []struct {
		key    string
		fifths string
		mode   string
	}{
		{"C", "<fifths>0</fifths>", "<mode>major</mode>"},
		{"C major", "<fifths>0</fifths>", "<mode>major</mode>"},
		{"G", "<fifths>1</fifths>", "<mode>major</mode>"},
		{"F#", "<fifths>6</fifths>", "<mode>major</mode>"},
		{"F", "<fifths>-1</fifths>", "<mode>major</mode>"},
		{"Gb", "<fifths>-6</fifths>", "<mode>major</mode>"},
		{"Am", "<fifths>0</fifths>", "<mode>minor</mode>"},
		{"D minor", "<fifths>-1</fifths>", "<mode>minor</mode>"},
		{"Ebm", "<fifths>-6</fifths>", "<mode>minor</mode>"},
		{"D# min", "<fifths>6</fifths>", "<mode>minor</mode>"},
	}
	for _, tc := range cases {
		xml := xmlFor(t, "---\nkey: "+tc.key+"\n---\n&m { C }")
		assert.Contains(t, xml, tc.fifths, "key %q", tc.key)
		assert.Contains(t, xml, tc.mode, "key %q", tc.key)
	}
}

func Test_XML_ClefTable(t *testing.T) {
	cases := []struct {
		clef string
		frag string
	}{
		{"treble", "<sign>G</sign>"},
		{"bass", "<sign>F</sign>"},
		{"alto", "<sign>C</sign>"},
		{"tenor", "<sign>C</sign>"},
	}
	for _, tc := range cases {
		xml := xmlFor(t, "---\n&m:\n  clef: "+tc.clef+"\n---\n&m { C }")
		assert.Contains(t, xml, tc.frag, "clef %q", tc.clef)
	}
	xml := xmlFor(t, "---\n&m:\n  clef: tenor\n---\n&m { C }")
	assert.Contains(t, xml, "<line>4</line>")
}

func Test_XML_TitleComposerEscaped(t *testing.T) {
	xml := xmlFor(t, "---\ntitle: \"Air & Variations <no.2>\"\ncomposer: Anon\n---\n&m { C }")
	assert.Contains(t, xml, "<work-title>Air &amp; Variations &lt;no.2&gt;</work-title>")
	assert.Contains(t, xml, `<creator type="composer">Anon</creator>`)
}

func Test_XML_DeclarationAndDoctype(t *testing.T) {
	src := "&m { C }"
	res := Parse(src)
	require.NotNil(t, res.Score)

	withDecl := ToMusicXML(res.Score, nil)
	assert.True(t, strings.HasPrefix(withDecl, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, withDecl, "<!DOCTYPE score-partwise")

	opts := XMLOptions{IncludeXMLDeclaration: false, PrettyPrint: true}
	without := ToMusicXML(res.Score, &opts)
	assert.True(t, strings.HasPrefix(without, "<score-partwise"))
}

func Test_XML_CompactOutputHasNoNewlines(t *testing.T) {
	res := Parse("&m { C D }")
	require.NotNil(t, res.Score)
	opts := XMLOptions{IncludeXMLDeclaration: false, PrettyPrint: false}
	out := ToMusicXML(res.Score, &opts)
	assert.NotContains(t, out, "\n")
	assert.Contains(t, out, "<note>")
}

func Test_XML_RestElement(t *testing.T) {
	xml := xmlFor(t, "&m { C _/2 D }")
	assert.Contains(t, xml, "<rest/>")
	assert.Contains(t, xml, "<duration>8</duration>")
}

func Test_XML_MidScoreTimeChangeEmitsAttributes(t *testing.T) {
	src := "---\ntime: 4/4\n---\n&m { C D E F }\n---\ntime: 3/4\n---\n&m { C D E }\n"
	res := Parse(src)
	require.Empty(t, res.Errors)
	xml := ToMusicXML(res.Score, nil)

	assert.Equal(t, 2, strings.Count(xml, "<attributes>"))
	assert.Contains(t, xml, "<beats>3</beats>")
	// only the first attributes block carries divisions
	assert.Equal(t, 1, strings.Count(xml, "<divisions>"))
}

func Test_XML_TempoDirection(t *testing.T) {
	xml := xmlFor(t, "---\ntempo: 120\n---\n&m { C }")
	assert.Contains(t, xml, "<per-minute>120</per-minute>")
	assert.Contains(t, xml, `<sound tempo="120"/>`)
}
