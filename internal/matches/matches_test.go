package matches

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
)

const matchJSON = `[
  {"ref": "refs/ref_ps50.txt", "locations_a": [[10, 20], [40, 45]], "locations_b": [[2, 12], [30, 35]], "ref_length": 50},
  ["ref_hy12.txt", [[0, 5]], [[0, 5]], 5]
]`

func TestRead(t *testing.T) {
	res, err := Read(strings.NewReader(matchJSON))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d results, want 2", len(res))
	}
	if res[0].Label() != "ref_ps50" || res[1].Label() != "ref_hy12" {
		t.Errorf("labels = %q, %q", res[0].Label(), res[1].Label())
	}
	if res[1].RefLength != 5 || res[1].LocationsA[0] != (Location{0, 5}) {
		t.Errorf("positional form decoded as %+v", res[1])
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "{"},
		{"unaligned", `[{"ref":"a","locations_a":[[0,1]],"locations_b":[],"ref_length":1}]`},
		{"reversed", `[{"ref":"a","locations_a":[[5,1]],"locations_b":[[0,1]],"ref_length":1}]`},
		{"short positional", `[["a", [[0,1]]]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestExtend(t *testing.T) {
	r := Result{
		Ref:        "ref_ps50",
		LocationsA: []Location{{10, 20}, {3, 8}, {90, 98}},
		LocationsB: []Location{{2, 12}, {5, 10}, {0, 8}},
		RefLength:  50,
	}
	tests := []struct {
		i    int
		want bio.Span
	}{
		{0, bio.Span{Start: 8, End: 58, Label: "ref_ps50"}},
		{1, bio.Span{Start: 0, End: 48, Label: "ref_ps50"}},
		{2, bio.Span{Start: 90, End: 100, Label: "ref_ps50"}},
	}
	for _, tt := range tests {
		if got := r.Extend(tt.i, 100); got != tt.want {
			t.Errorf("Extend(%d) = %+v, want %+v", tt.i, got, tt.want)
		}
	}
}

func TestSpans(t *testing.T) {
	res, _ := Read(strings.NewReader(matchJSON))
	tags := map[string]string{"ref_ps50": "Ps50"}
	label := func(id string) string { return tags[id] }

	got := Spans(res, 100, false, label)
	want := []bio.Span{{Start: 10, End: 20, Label: "Ps50"}, {Start: 40, End: 45, Label: "Ps50"}}
	if len(got) != len(want) {
		t.Fatalf("Spans() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("span %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	all := Spans(res, 100, true, nil)
	if len(all) != 3 || all[0].Label != "ref_hy12" || all[1].Start != 8 {
		t.Errorf("extended spans = %+v", all)
	}

	cm := CharMatches(res, nil)
	if len(cm) != 3 || cm[1].RefStart != 30 || cm[1].RefEnd != 35 {
		t.Errorf("CharMatches() = %+v", cm)
	}
}

func TestWriteReadFile(t *testing.T) {
	res, _ := Read(strings.NewReader(matchJSON))
	var buf bytes.Buffer
	if err := Write(&buf, res); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "m.json")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(back) != 2 || back[1].Ref != "ref_hy12.txt" || back[0].RefLength != 50 {
		t.Errorf("round trip = %+v", back)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "none.json")); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing file error = %v", err)
	}
}
