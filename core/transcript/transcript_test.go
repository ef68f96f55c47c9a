package transcript

import (
	"reflect"
	"testing"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/layout"
	"github.com/FocuswithJustin/horae/core/locate"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Jesu Christe", "Iesu Christe"},
		{"vivat VIVAT", "uiuat UIUAT"},
		{"cæli cœli Noël", "celi celi Noel"},
		{"ÆŒË", "EEE"},
		{"a\u00a0b", "a b"},
		// decomposed e + combining diaeresis is composed first
		{"Noe\u0308l", "Noel"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func box(y float64) layout.Polygon {
	return layout.Polygon{{0, y}, {100, y}, {100, y + 10}, {0, y + 10}}
}

func TestBuild(t *testing.T) {
	pages := []Page{
		{ID: "p1", Lines: []Line{
			{ID: "l2", Text: "cd", Polygon: box(50)},
			{ID: "l1", Text: "ab", Polygon: box(10)},
		}},
		{ID: "empty"},
		{ID: "p2", Lines: []Line{
			{ID: "l3", Text: "é", Polygon: box(10)},
		}},
	}
	v, err := Build(pages, layout.SinglePage)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if v.Text != "ab cd é " {
		t.Errorf("Text = %q", v.Text)
	}
	wantPages := []PageText{{"p1", "ab\ncd\n"}, {"p2", "é\n"}}
	if !reflect.DeepEqual(v.Pages, wantPages) {
		t.Errorf("Pages = %v, want %v", v.Pages, wantPages)
	}
	if !reflect.DeepEqual(v.Lines, []string{"l1", "l2", "l3"}) {
		t.Errorf("Lines = %v", v.Lines)
	}
	if got, want := len(v.Table), len([]rune(v.Text)); got != want {
		t.Fatalf("table has %d entries, text has %d runes", got, want)
	}
	if err := v.Table.Validate(); err != nil {
		t.Errorf("table is not contiguous: %v", err)
	}
	if v.Table[3] != (locate.Location{PageID: "p1", Offset: 3, ElementID: "l2"}) {
		t.Errorf("Table[3] = %v", v.Table[3])
	}
	if v.Table[6] != (locate.Location{PageID: "p2", Offset: 0, ElementID: "l3"}) {
		t.Errorf("Table[6] = %v", v.Table[6])
	}

	if text, ok := v.Transcription("p2"); !ok || text != "é\n" {
		t.Errorf("Transcription(p2) = %q, %v", text, ok)
	}
	if _, ok := v.Transcription("empty"); ok {
		t.Error("page without lines should have no transcription")
	}
}

func TestBuildRemapMatchesPageText(t *testing.T) {
	pages := []Page{
		{ID: "p1", Lines: []Line{{ID: "a", Text: "Domine labia", Polygon: box(0)}}},
		{ID: "p2", Lines: []Line{{ID: "b", Text: "mea aperies", Polygon: box(0)}}},
	}
	v, err := Build(pages, layout.SinglePage)
	if err != nil {
		t.Fatal(err)
	}
	// "labia mea" crosses from p1 to p2
	tokens := Tokenize(v.Text)
	span, err := TokenSpanToChars(tokens, bio.Span{Start: 1, End: 3, Label: "Inv"})
	if err != nil {
		t.Fatalf("TokenSpanToChars() error = %v", err)
	}
	segs, err := v.Table.Remap(span)
	if err != nil {
		t.Fatalf("Remap() error = %v", err)
	}
	var got []string
	for _, s := range segs {
		text, _ := v.Transcription(s.PageID)
		got = append(got, string([]rune(text)[s.Offset:s.Offset+s.Length]))
	}
	if want := []string{"labia\n", "mea"}; !reflect.DeepEqual(got, want) {
		t.Errorf("segments cover %q, want %q", got, want)
	}
}

func TestBuildRejectsPageWithoutID(t *testing.T) {
	_, err := Build([]Page{{Lines: []Line{{ID: "x", Text: "a"}}}}, layout.SinglePage)
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Build() error = %v, want ErrInvalidInput", err)
	}
}

func TestTokenSpanToChars(t *testing.T) {
	tokens := Tokenize("ave  maria gratia")
	got, err := TokenSpanToChars(tokens, bio.Span{Start: 1, End: 3, Label: "X"})
	if err != nil {
		t.Fatal(err)
	}
	if want := (bio.Span{Start: 5, End: 17, Label: "X"}); got != want {
		t.Errorf("TokenSpanToChars() = %v, want %v", got, want)
	}
	if _, err := TokenSpanToChars(tokens, bio.Span{Start: 2, End: 4}); !errors.Is(err, errors.ErrOutOfRange) {
		t.Errorf("out of range error = %v", err)
	}
}
