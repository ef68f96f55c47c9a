package dump

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/layout"
	"github.com/FocuswithJustin/horae/core/sqlite"
)

const schema = `
CREATE TABLE element (id VARCHAR(37) PRIMARY KEY, name TEXT, type TEXT, polygon TEXT);
CREATE TABLE element_path (id VARCHAR(37), parent_id VARCHAR(37), child_id VARCHAR(37), ordering INTEGER);
CREATE TABLE transcription (id VARCHAR(37) PRIMARY KEY, element_id VARCHAR(37), text TEXT);
CREATE TABLE metadata (id VARCHAR(37), element_id VARCHAR(37), name TEXT, type TEXT, value TEXT);
CREATE TABLE classification (id VARCHAR(37), element_id VARCHAR(37), class_name TEXT);
`

func box(x0, y0, x1, y1 int) string {
	return fmt.Sprintf("[[%d, %d], [%d, %d], [%d, %d], [%d, %d], [%d, %d]]", x0, y0, x1, y0, x1, y1, x0, y1, x0, y0)
}

// createExport builds a three-volume export:
//
//	v1 (single_page classification)
//	  p1: l1 "Incipit hore" (y 10), l2 "Deus in adiutorium" (y 50),
//	      segment "Psalm | Miserere | Ps50" over y 40-100,
//	      paragraphs "A" (left, y 50) and "B\ntext" (right, y 0), one initial
//	  p2: l3 "meum intende" (y 10), l4 "Gloria patri" (y 60),
//	      segment "Hymnus | Ave | Hy12" over y 55-70
//	v2 ("double page" metadata), no pages
//	v3, no digitization information
func createExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.sqlite")
	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	n := 0
	exec := func(query string, args ...any) {
		t.Helper()
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatalf("%s: %v", query, err)
		}
	}
	element := func(id, name, typ, poly string) {
		exec(`INSERT INTO element (id, name, type, polygon) VALUES (?, ?, ?, ?)`, id, name, typ, poly)
	}
	child := func(parent, id string, ordering int) {
		n++
		exec(`INSERT INTO element_path (id, parent_id, child_id, ordering) VALUES (?, ?, ?, ?)`, fmt.Sprint("path", n), parent, id, ordering)
	}
	text := func(elementID, s string) {
		n++
		exec(`INSERT INTO transcription (id, element_id, text) VALUES (?, ?, ?)`, fmt.Sprint("tr", n), elementID, s)
	}

	element("v1", "Heures de Rouen", TypeVolume, "")
	element("v2", "Heures de Paris", TypeVolume, "")
	element("v3", "Heures sans type", TypeVolume, "")
	exec(`INSERT INTO classification (id, element_id, class_name) VALUES ('c1', 'v1', 'single_page')`)
	exec(`INSERT INTO metadata (id, element_id, name, type, value) VALUES ('m1', 'v2', ?, 'text', 'double page')`, DigitizationMetadata)

	element("p2", "2", TypePage, box(0, 0, 1000, 1000))
	element("p1", "1", TypePage, box(0, 0, 1000, 1000))
	child("v1", "p2", 1)
	child("v1", "p1", 0)

	element("l2", "", TypeTextLine, box(0, 50, 100, 60))
	element("l1", "", TypeTextLine, box(0, 10, 100, 20))
	element("s1", "Psalm | Miserere | Ps50", TypeTextSegment, box(0, 40, 100, 100))
	element("para1", "", TypeParagraph, box(200, 0, 300, 10))
	element("para2", "", TypeParagraph, box(0, 50, 100, 60))
	element("i1", "", TypeInitial, box(0, 50, 10, 60))
	for i, id := range []string{"l2", "l1", "s1", "para1", "para2", "i1"} {
		child("p1", id, i)
	}
	text("l1", "Incipit hore")
	text("l1", "second transcription")
	text("l2", "Deus in adiutorium")
	text("para1", "B\ntext")
	text("para2", "A")

	element("l3", "", TypeTextLine, box(0, 10, 100, 20))
	element("l4", "", TypeTextLine, box(0, 60, 100, 70))
	element("s2", "Hymnus | Ave | Hy12", TypeTextSegment, box(0, 55, 100, 70))
	for i, id := range []string{"l4", "l3", "s2"} {
		child("p2", id, i)
	}
	text("l3", "meum intende")
	text("l4", "Gloria patri")
	return path
}

func openExport(t *testing.T) *Export {
	t.Helper()
	e, err := Open(createExport(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func ids(els []Element) string {
	var out []string
	for _, el := range els {
		out = append(out, el.ID)
	}
	return strings.Join(out, ",")
}

func TestOpenRejectsForeignDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.sqlite")
	db := sqlite.MustOpen(path)
	if _, err := db.Exec(`CREATE TABLE element (id TEXT)`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	_, err := Open(path)
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("Open() error = %v, want ErrInvalidInput", err)
	}
	if !strings.Contains(err.Error(), "element_path") {
		t.Errorf("error should name the missing tables: %v", err)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.sqlite")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestVolumesAndPages(t *testing.T) {
	e := openExport(t)
	ctx := context.Background()

	vols, err := e.Volumes(ctx)
	if err != nil {
		t.Fatalf("Volumes() error = %v", err)
	}
	if got := ids(vols); got != "v2,v1,v3" {
		t.Errorf("Volumes() = %s, want name order v2,v1,v3", got)
	}

	v, err := e.Volume(ctx, "v1")
	if err != nil || v.Name != "Heures de Rouen" {
		t.Errorf("Volume(v1) = %+v, %v", v, err)
	}
	if _, err := e.Volume(ctx, "p1"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Volume(page) error = %v, want ErrNotFound", err)
	}

	pages, err := e.Pages(ctx, "v1")
	if err != nil {
		t.Fatalf("Pages() error = %v", err)
	}
	if got := ids(pages); got != "p1,p2" {
		t.Errorf("Pages() = %s", got)
	}
	if pages[1].Ordering != 1 || len(pages[0].Polygon) != 4 {
		t.Errorf("page p2 = %+v", pages[1])
	}
}

func TestDigitizationType(t *testing.T) {
	e := openExport(t)
	ctx := context.Background()

	tests := []struct {
		volume string
		want   layout.Digitization
		err    error
	}{
		{"v1", layout.SinglePage, nil},
		{"v2", layout.DoublePage, nil},
		{"v3", "", errors.ErrNotFound},
	}
	for _, tt := range tests {
		got, err := e.DigitizationType(ctx, tt.volume)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("DigitizationType(%s) error = %v, want %v", tt.volume, err, tt.err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("DigitizationType(%s) = %q, %v; want %q", tt.volume, got, err, tt.want)
		}
	}
}

func TestPageContent(t *testing.T) {
	e := openExport(t)
	ctx := context.Background()

	lines, err := e.TextLines(ctx, "p1")
	if err != nil {
		t.Fatalf("TextLines() error = %v", err)
	}
	texts := map[string]string{}
	for _, l := range lines {
		texts[l.ID] = l.Text
	}
	if texts["l1"] != "Incipit hore" || texts["l2"] != "Deus in adiutorium" {
		t.Errorf("TextLines() = %v; the first stored transcription should win", texts)
	}

	segs, err := e.Segments(ctx, "p1")
	if err != nil || ids(segs) != "s1" || segs[0].Name != "Psalm | Miserere | Ps50" {
		t.Errorf("Segments() = %+v, %v", segs, err)
	}

	initials, err := e.Elements(ctx, "p1", TypeInitial)
	if err != nil || ids(initials) != "i1" {
		t.Errorf("Elements(initial) = %+v, %v", initials, err)
	}
	if _, err := e.Elements(ctx, "p1", TypeVolume); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Elements(volume) error = %v", err)
	}

	single, err := e.PageText(ctx, "p1", layout.SinglePage)
	if err != nil || single != "B text A " {
		t.Errorf("PageText(single) = %q, %v", single, err)
	}
	double, err := e.PageText(ctx, "p1", layout.DoublePage)
	if err != nil || double != "A B text " {
		t.Errorf("PageText(double) = %q, %v", double, err)
	}

	pages, err := e.VolumePages(ctx, "v1")
	if err != nil {
		t.Fatalf("VolumePages() error = %v", err)
	}
	if len(pages) != 2 || pages[0].ID != "p1" || len(pages[1].Lines) != 2 {
		t.Errorf("VolumePages() = %+v", pages)
	}
}

func TestLabeledLines(t *testing.T) {
	e := openExport(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter string
		labels []string
	}{
		{"all functions", "", []string{bio.NoLabel, "Ps50", "Ps50", "Hy12"}},
		{"psalms only", "Psalm", []string{bio.NoLabel, "Ps50", "Ps50", bio.NoLabel}},
		{"filter ignores case", "psalm", []string{bio.NoLabel, "Ps50", "Ps50", bio.NoLabel}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := e.LabeledLines(ctx, "v1", tt.filter)
			if err != nil {
				t.Fatalf("LabeledLines() error = %v", err)
			}
			var gotIDs, gotLabels []string
			for _, l := range lines {
				gotIDs = append(gotIDs, l.ID)
				gotLabels = append(gotLabels, l.Label)
			}
			if want := []string{"l1", "l2", "l3", "l4"}; !reflect.DeepEqual(gotIDs, want) {
				t.Errorf("line order = %v, want %v", gotIDs, want)
			}
			if !reflect.DeepEqual(gotLabels, tt.labels) {
				t.Errorf("labels = %v, want %v", gotLabels, tt.labels)
			}
			if lines[2].Page != 2 {
				t.Errorf("l3 page = %d, want 2", lines[2].Page)
			}
		})
	}
}

func TestLabeledLinesToTags(t *testing.T) {
	e := openExport(t)
	lines, err := e.LabeledLines(context.Background(), "v1", "")
	if err != nil {
		t.Fatal(err)
	}
	tokens := bio.TagWords(Units(lines, true))
	var got []string
	for _, tok := range tokens {
		got = append(got, tok.Word+" "+string(tok.Tag))
	}
	want := []string{
		"Incipit O", "hore O",
		"Deus B-Ps50", "in I-Ps50", "adiutorium I-Ps50",
		"meum I-Ps50", "intende I-Ps50",
		"Gloria B-Hy12", "patri I-Hy12",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
}

func TestSegmentNamesAndPresence(t *testing.T) {
	e := openExport(t)
	ctx := context.Background()

	names, err := e.SegmentNames(ctx, "", "v1", "v2")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Hymnus | Ave | Hy12", "Psalm | Miserere | Ps50"}; !reflect.DeepEqual(names, want) {
		t.Errorf("SegmentNames() = %v, want %v", names, want)
	}

	m, err := e.PresenceMatrix(ctx, "", "v1", "v2")
	if err != nil {
		t.Fatalf("PresenceMatrix() error = %v", err)
	}
	if got := strings.Join(m.Columns, ","); got != "Hy12,Ps50" {
		t.Errorf("Columns = %s", got)
	}
	if m.Get("v1", "Ps50") != 1 || m.Get("v1", "Hy12") != 1 || m.Get("v2", "Ps50") != 0 || !m.Has("v2") {
		t.Error("unexpected presence values")
	}

	psalms, err := e.PresenceMatrix(ctx, "Psalm", "v1")
	if err != nil || strings.Join(psalms.Columns, ",") != "Ps50" {
		t.Errorf("filtered matrix columns = %v, %v", psalms.Columns, err)
	}

	lower, err := e.SegmentNames(ctx, "HYMNUS", "v1")
	if err != nil || !reflect.DeepEqual(lower, []string{"Hymnus | Ave | Hy12"}) {
		t.Errorf("SegmentNames(HYMNUS) = %v, %v", lower, err)
	}
}

func TestNameMatches(t *testing.T) {
	tests := []struct {
		name, filter string
		want         bool
	}{
		{"Psalm | Miserere | Ps50", "", true},
		{"Psalm | Miserere | Ps50", "psalm", true},
		{"Psalm | Miserere | Ps50", "MISERERE", true},
		{"Hymnus | Ave | Hy12", "psalm", false},
		// SQLite LIKE folds ASCII only
		{"Éloge | X | E1", "éloge", false},
	}
	for _, tt := range tests {
		if got := nameMatches(tt.name, tt.filter); got != tt.want {
			t.Errorf("nameMatches(%q, %q) = %v, want %v", tt.name, tt.filter, got, tt.want)
		}
	}
}

func TestHTag(t *testing.T) {
	if HTag("Psalm | Miserere | Ps50") != "Ps50" || HTag("  ") != "" {
		t.Error("HTag() mismatch")
	}
}
