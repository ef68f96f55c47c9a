package render

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
)

type refMap map[string]Reference

func (m refMap) Reference(label string) (Reference, bool) {
	r, ok := m[label]
	return r, ok
}

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		edits []Edit
		want  string
	}{
		{
			name: "closing before opening at same position",
			text: "abcd",
			edits: []Edit{
				{Pos: 1, Side: Before, Text: "<x>", Seq: 0},
				{Pos: 3, Side: Before, Text: "<y>", Seq: 1},
				{Pos: 3, Side: After, Text: "</x>", Seq: 2},
				{Pos: 4, Side: After, Text: "</y>", Seq: 3},
			},
			want: "a<x>bc</x><y>d</y>",
		},
		{
			name: "ties keep insertion order",
			text: "ab",
			edits: []Edit{
				{Pos: 0, Side: Before, Text: "[1]", Seq: 0},
				{Pos: 0, Side: Before, Text: "[2]", Seq: 1},
				{Pos: 2, Side: After, Text: "(1)", Seq: 0},
				{Pos: 2, Side: After, Text: "(2)", Seq: 1},
			},
			want: "[1][2]ab(1)(2)",
		},
		{
			name:  "no edits",
			text:  "plain",
			edits: nil,
			want:  "plain",
		},
		{
			name:  "runes not bytes",
			text:  "ëæœ",
			edits: []Edit{{Pos: 1, Side: Before, Text: "|"}, {Pos: 2, Side: After, Text: "|"}},
			want:  "ë|æ|œ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.text, tt.edits)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Apply() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyOutOfRange(t *testing.T) {
	_, err := Apply("abc", []Edit{{Pos: 4, Side: Before, Text: "x"}})
	if !errors.Is(err, errors.ErrOutOfRange) {
		t.Errorf("Apply() error = %v, want ErrOutOfRange", err)
	}
}

func TestApplyDoesNotShiftPendingEdits(t *testing.T) {
	// Every edit is positioned against the untouched text, whatever the
	// order it was recorded in.
	text := "one two three four"
	edits := []Edit{
		{Pos: 0, Side: Before, Text: "<a>"},
		{Pos: 3, Side: After, Text: "</a>"},
		{Pos: 8, Side: Before, Text: "<b>"},
		{Pos: 18, Side: After, Text: "</b>"},
	}
	want := "<a>one</a> two <b>three four</b>"
	for _, order := range [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}} {
		var es []Edit
		for _, i := range order {
			es = append(es, edits[i])
		}
		got, err := Apply(text, es)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got != want {
			t.Errorf("Apply(order %v) = %q, want %q", order, got, want)
		}
	}
}

func TestBufferEscapesText(t *testing.T) {
	b := NewBuffer(`a<b & "c"`)
	b.Open(0, "<mark>")
	b.Close(3, "</mark>")
	got, err := b.String()
	if err != nil {
		t.Fatalf("String() error = %v", err)
	}
	want := `<mark>a&lt;b</mark> &amp; &#34;c&#34;`
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func tokens(pairs ...string) []bio.Token {
	var out []bio.Token
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, bio.Token{Word: pairs[i], Tag: bio.Tag(pairs[i+1])})
	}
	return out
}

func TestHighlight(t *testing.T) {
	h := Highlighter{}
	frag, err := h.Highlight(tokens("Ave", "B-Ps", "Maria", "I-Ps", "gratia", "O", "plena", "B-Hy"))
	if err != nil {
		t.Fatalf("Highlight() error = %v", err)
	}
	want := `<mark class="marka" data-label="Ps" title="Ps">Ave Maria</mark> gratia ` +
		`<mark class="markb" data-label="Hy" title="Hy">plena</mark>`
	if string(frag.HTML) != want {
		t.Errorf("Highlight() =\n%s\nwant\n%s", frag.HTML, want)
	}
	if want := []bio.Span{{0, 2, "Ps"}, {3, 4, "Hy"}}; !reflect.DeepEqual(frag.Spans, want) {
		t.Errorf("Spans = %v, want %v", frag.Spans, want)
	}
}

func TestHighlightAdjacentSpansBalanced(t *testing.T) {
	frag, err := Highlighter{}.Highlight(tokens("a", "B-X", "b", "B-X", "c", "B-Y", "d", "I-Y"))
	if err != nil {
		t.Fatalf("Highlight() error = %v", err)
	}
	s := string(frag.HTML)
	if strings.Count(s, "<mark ") != 3 || strings.Count(s, "</mark>") != 3 {
		t.Errorf("unbalanced marks: %s", s)
	}
	if !strings.Contains(s, `a</mark> <mark class="markb"`) {
		t.Errorf("adjacent spans should close then reopen: %s", s)
	}
}

func TestHighlightRejectsMalformed(t *testing.T) {
	_, err := Highlighter{}.Highlight(tokens("a", "O", "b", "I-X"))
	if !errors.Is(err, errors.ErrMalformedTags) {
		t.Errorf("Highlight() error = %v, want ErrMalformedTags", err)
	}
}

func TestTitle(t *testing.T) {
	h := Highlighter{Refs: refMap{
		"Ps50": {Name: "Psaume 50 | Miserere | Ps50", Text: "Miserere mei"},
		"Hy1":  {Name: "Hymne | Hy1"},
	}}
	tests := []struct {
		label string
		want  string
	}{
		{"Ps50", "Psaume 50 | Miserere | Ps50 | Texte : Miserere mei"},
		{"Hy1", "Hymne | Hy1"},
		{"Unknown", "Unknown"},
	}
	for _, tt := range tests {
		if got := h.Title(tt.label); got != tt.want {
			t.Errorf("Title(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
	if got := (Highlighter{}).Title("X"); got != "X" {
		t.Errorf("Title without references = %q", got)
	}
}

func TestVolumeRoundTrip(t *testing.T) {
	toks := tokens(
		"Domine", "B-Inv", "labia", "I-Inv", "mea", "I-Inv",
		"<&>", "O", "", "B-Ps", "Deus", "B-Ps", "in", "I-Ps",
		"adiutorium", "O", "meum", "B-Hy",
	)
	want, err := bio.ExtractSpans(toks)
	if err != nil {
		t.Fatal(err)
	}

	r := Renderer{Highlighter: Highlighter{Refs: refMap{"Ps": {Name: "Psaume", Text: `quoted "text" <here>`}}}}
	var buf bytes.Buffer
	if err := r.Volume(&buf, VolumeInfo{ID: "vol-1", Name: "Horae 12"}, toks); err != nil {
		t.Fatalf("Volume() error = %v", err)
	}
	page := buf.String()
	for _, s := range []string{`href="com_style.css"`, "https://arkindex.teklia.com/element/vol-1", "Horae 12"} {
		if !strings.Contains(page, s) {
			t.Errorf("page missing %q", s)
		}
	}

	got, err := ExtractSpans(strings.NewReader(page))
	if err != nil {
		t.Fatalf("ExtractSpans() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractSpans(Volume()) = %v, want %v", got, want)
	}
}

func TestCompareRoundTrip(t *testing.T) {
	truth := tokens("a", "B-X", "b", "I-X", "c", "O", "d", "B-Y")
	matched := tokens("a", "O", "b", "B-X", "c", "I-X", "d", "O")
	params, ok := ParseParams("line_4212_2022-03-01_abc.bio")
	if !ok {
		t.Fatal("ParseParams() failed")
	}

	var buf bytes.Buffer
	err := Renderer{}.Compare(&buf, VolumeInfo{ID: "abc", Name: "Vol"}, &params, truth, matched)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Threshold: 4 - Cutoff: 2 - Ngrams: 1 - Mindistance: 2") {
		t.Errorf("parameters missing from header")
	}

	cols, err := ExtractColumns(&buf)
	if err != nil {
		t.Fatalf("ExtractColumns() error = %v", err)
	}
	want := [][]bio.Span{
		{{0, 2, "X"}, {3, 4, "Y"}},
		{{1, 3, "X"}},
	}
	if !reflect.DeepEqual(cols, want) {
		t.Errorf("ExtractColumns() = %v, want %v", cols, want)
	}
}

func TestExtractSpansNoColumn(t *testing.T) {
	_, err := ExtractSpans(strings.NewReader("<html><body><p>x</p></body></html>"))
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("ExtractSpans() error = %v, want ErrInvalidInput", err)
	}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name string
		want Params
		ok   bool
	}{
		{"line_52310_2022-05-04_1234.bio", Params{"5", "2", "3", "10"}, true},
		{"/tmp/out/line_4212_date_v.html", Params{"4", "2", "1", "2"}, true},
		{"true_1234.bio", Params{}, false},
		{"line_42_date_v.bio", Params{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseParams(tt.name)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseParams(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestVolumeID(t *testing.T) {
	for in, want := range map[string]string{
		"line_4212_2022_abc-def.bio": "abc-def",
		"true_xyz.bio":               "xyz",
		"plain.bio":                  "plain",
	} {
		if got := VolumeID(in); got != want {
			t.Errorf("VolumeID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchView(t *testing.T) {
	text := "ave maria gratia plena dominus tecum"
	refs := refMap{"Ave": {Name: "Ave Maria | Ave", Text: "ave maria gratia plena"}}
	matches := []CharMatch{
		{Label: "Ave", Start: 0, End: 16, RefStart: 0, RefEnd: 16},
		{Label: "Dom", Start: 10, End: 30, RefStart: 0, RefEnd: 5},
	}
	var buf bytes.Buffer
	overlaps, err := Renderer{Highlighter: Highlighter{Refs: refs}}.MatchView(&buf, VolumeInfo{ID: "v"}, nil, text, matches)
	if err != nil {
		t.Fatalf("MatchView() error = %v", err)
	}
	if overlaps != 1 {
		t.Errorf("overlaps = %d, want 1", overlaps)
	}
	page := buf.String()
	for _, s := range []string{
		"Number of overlapping match : 1",
		"Number of match : 2",
		"Number of recognised texts : 2",
		`<span class="marginnote"><b>Ave Maria | Ave</b><br><mark>ave maria gratia</mark> plena</span><mark>ave maria gratia</mark>`,
		`<span class="marginnote"><b>Dom</b><br></span><mark> plena dominus</mark>`,
	} {
		if !strings.Contains(page, s) {
			t.Errorf("page missing %q\n%s", s, page)
		}
	}
	if strings.Count(page, "<mark>") != strings.Count(page, "</mark>") {
		t.Error("unbalanced marks")
	}
}
