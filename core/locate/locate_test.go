package locate

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
)

// table builds a contiguous table from (page, count) pairs.
func table(pages ...any) Table {
	var t Table
	for i := 0; i < len(pages); i += 2 {
		id := pages[i].(string)
		n := pages[i+1].(int)
		for off := 0; off < n; off++ {
			t = append(t, Location{PageID: id, Offset: off, ElementID: id + "-line"})
		}
	}
	return t
}

func TestRemapScenarios(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		span  bio.Span
		want  []Segment
	}{
		{
			name:  "crosses page boundary",
			table: table("p1", 2, "p2", 2),
			span:  bio.Span{Start: 0, End: 4, Label: "X"},
			want:  []Segment{{"p1", 0, 2}, {"p2", 0, 2}},
		},
		{
			name:  "solo",
			table: table("p1", 10),
			span:  bio.Span{Start: 5, End: 6, Label: "Beginning"},
			want:  []Segment{{"p1", 5, 1}},
		},
		{
			name:  "inside one page",
			table: table("p1", 3, "p2", 8),
			span:  bio.Span{Start: 4, End: 9, Label: "X"},
			want:  []Segment{{"p2", 1, 5}},
		},
		{
			name:  "three pages",
			table: table("p1", 3, "p2", 2, "p3", 4),
			span:  bio.Span{Start: 1, End: 7, Label: "X"},
			want:  []Segment{{"p1", 1, 2}, {"p2", 0, 2}, {"p3", 0, 2}},
		},
		{
			name:  "ends on last char of page",
			table: table("p1", 3, "p2", 2),
			span:  bio.Span{Start: 1, End: 3, Label: "X"},
			want:  []Segment{{"p1", 1, 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.table.Remap(tt.span)
			if err != nil {
				t.Fatalf("Remap() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Remap() = %v, want %v", got, tt.want)
			}
			sum := 0
			for _, s := range got {
				if s.Length < 1 {
					t.Errorf("segment %v has length < 1", s)
				}
				sum += s.Length
			}
			if sum != tt.span.Len() {
				t.Errorf("sum of lengths = %d, want %d", sum, tt.span.Len())
			}
		})
	}
}

func TestRemapCoverage(t *testing.T) {
	tab := table("a", 4, "b", 1, "c", 6, "d", 3)
	for start := 0; start < len(tab); start++ {
		for end := start + 1; end <= len(tab); end++ {
			segs, err := tab.Remap(bio.Span{Start: start, End: end, Label: "L"})
			if err != nil {
				t.Fatalf("Remap(%d,%d) error = %v", start, end, err)
			}
			sum := 0
			for _, s := range segs {
				sum += s.Length
			}
			if sum != end-start {
				t.Fatalf("Remap(%d,%d) lengths sum to %d", start, end, sum)
			}
		}
	}
}

func TestRemapErrors(t *testing.T) {
	gap := Table{{"p1", 0, "l"}, {"p1", 1, "l"}, {"p1", 3, "l"}}
	badStart := Table{{"p1", 0, "l"}, {"p2", 4, "l"}}
	tests := []struct {
		name  string
		table Table
		span  bio.Span
		want  error
	}{
		{"start past end", table("p1", 3), bio.Span{Start: 3, End: 4}, errors.ErrOutOfRange},
		{"negative start", table("p1", 3), bio.Span{Start: -1, End: 2}, errors.ErrOutOfRange},
		{"end past end", table("p1", 3), bio.Span{Start: 1, End: 5}, errors.ErrOutOfRange},
		{"empty", table("p1", 3), bio.Span{Start: 1, End: 1}, errors.ErrOutOfRange},
		{"offset gap", gap, bio.Span{Start: 0, End: 3}, errors.ErrInconsistent},
		{"continuation not at zero", badStart, bio.Span{Start: 0, End: 2}, errors.ErrInconsistent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.table.Remap(tt.span)
			if !errors.Is(err, tt.want) {
				t.Errorf("Remap() error = %v, want %v", err, tt.want)
			}
		})
	}

	var ce *errors.ConsistencyError
	if _, err := gap.Remap(bio.Span{Start: 0, End: 3}); !errors.As(err, &ce) || ce.Index != 2 {
		t.Errorf("gap error = %v, want ConsistencyError at index 2", err)
	}
}

func TestValidate(t *testing.T) {
	if err := table("p1", 3, "p2", 2).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	bad := []Table{
		{{"p1", 1, "l"}},
		{{"p1", 0, "l"}, {"p1", 2, "l"}},
		{{"p1", 0, "l"}, {"", 1, "l"}},
	}
	for _, tab := range bad {
		if err := tab.Validate(); !errors.Is(err, errors.ErrInconsistent) {
			t.Errorf("Validate(%v) error = %v, want ErrInconsistent", tab, err)
		}
	}
}

func TestElementsAndPages(t *testing.T) {
	tab := Table{
		{"p1", 0, "l1"}, {"p1", 1, "l1"}, {"p1", 2, "l2"},
		{"p2", 0, "l3"}, {"p2", 1, "l3"},
	}
	if got, want := tab.Elements(bio.Span{Start: 1, End: 4}), []string{"l1", "l2", "l3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Elements() = %v, want %v", got, want)
	}
	if got, want := tab.Elements(bio.Span{Start: 3, End: 99}), []string{"l3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Elements() = %v, want %v", got, want)
	}
	if got, want := tab.Pages(), []string{"p1", "p2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Pages() = %v, want %v", got, want)
	}
}

func TestEntities(t *testing.T) {
	segs := []Segment{{"p1", 3, 2}, {"p2", 0, 5}}
	lookup := map[string]string{"p1": "t1", "p2": "t2"}
	got, err := Entities(segs, "ent", func(p string) (string, bool) {
		id, ok := lookup[p]
		return id, ok
	})
	if err != nil {
		t.Fatalf("Entities() error = %v", err)
	}
	want := []TranscriptionEntity{{"t1", "ent", 3, 2}, {"t2", "ent", 0, 5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Entities() = %v, want %v", got, want)
	}

	_, err = Entities(segs, "ent", func(string) (string, bool) { return "", false })
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Entities() error = %v, want ErrNotFound", err)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	tab := table("p1", 3, "p2", 2)
	var buf bytes.Buffer
	if err := WriteCSV(&buf, tab); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if !reflect.DeepEqual(got, tab) {
		t.Errorf("ReadCSV() = %v, want %v", got, tab)
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"bad header", "i,page,offset,element\n", errors.ErrInvalidInput},
		{"bad offset", "index,page_id,offset,element_id\n0,p1,x,l\n", errors.ErrInvalidInput},
		{"index gap", "index,page_id,offset,element_id\n0,p1,0,l\n2,p1,1,l\n", errors.ErrInconsistent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(bytes.NewBufferString(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadCSV() error = %v, want %v", err, tt.want)
			}
		})
	}
}
