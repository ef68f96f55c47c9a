// Package reftext loads the reference texts of liturgical pieces and the
// Heurist metadata that names them.
package reftext

import (
	"encoding/csv"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/render"
)

// Entry is one reference text as described in the Heurist metadata.
type Entry struct {
	ID        string // file name of the reference text, without .txt
	Name      string // "<title parts> | ... | <h-tag>"
	HeuristID string
}

// HTag is the label used in tag streams for this entry.
func (e Entry) HTag() string {
	return HTag(e.Name)
}

// HTag returns the last whitespace-separated word of a Heurist name.
func HTag(name string) string {
	f := strings.Fields(name)
	if len(f) == 0 {
		return ""
	}
	return f[len(f)-1]
}

// Title returns the third field from the end of a "|"-separated Heurist
// name, or the whole name when it has fewer fields.
func Title(name string) string {
	parts := strings.Split(name, "|")
	if len(parts) < 3 {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(parts[len(parts)-3])
}

// ReadMetadata reads the Heurist metadata CSV. The first row is a header;
// columns are found by name (id or arkindex_id, name, heurist_id or
// "ID Annotation") and otherwise taken in that order.
func ReadMetadata(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, &errors.ParseError{Format: "CSV", Message: err.Error(), Err: err}
	}
	if len(records) == 0 {
		return nil, nil
	}

	idCol, nameCol, heuristCol := 0, 1, 2
	for i, h := range records[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id", "arkindex_id", "ref", "reference":
			idCol = i
		case "name":
			nameCol = i
		case "heurist_id", "id annotation":
			heuristCol = i
		}
	}

	var out []Entry
	for n, rec := range records[1:] {
		if len(rec) <= idCol || len(rec) <= nameCol {
			return nil, &errors.ParseError{Format: "CSV", Line: n + 2, Message: "missing id or name column"}
		}
		e := Entry{ID: strings.TrimSpace(rec[idCol]), Name: strings.TrimSpace(rec[nameCol])}
		if heuristCol < len(rec) {
			e.HeuristID = strings.TrimSpace(rec[heuristCol])
		}
		if e.ID == "" && e.Name == "" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// LoadTexts reads every *.txt file under dir, keyed by file name without
// extension.
func LoadTexts(dir string) (map[string]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.NewIO("open", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.NewValidation("reference", dir+" is not a directory")
	}
	texts := make(map[string]string)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".txt" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.NewIO("read", path, err)
		}
		texts[strings.TrimSuffix(d.Name(), ".txt")] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return texts, nil
}

// Library resolves h-tags to reference names and texts.
type Library struct {
	byTag map[string]Entry
	byID  map[string]Entry
	texts map[string]string
	order []Entry
}

// NewLibrary indexes entries by h-tag. When two entries share an h-tag the
// first one wins. texts may be nil.
func NewLibrary(entries []Entry, texts map[string]string) *Library {
	l := &Library{byTag: make(map[string]Entry), byID: make(map[string]Entry), texts: texts}
	for _, e := range entries {
		if _, dup := l.byID[e.ID]; !dup && e.ID != "" {
			l.byID[e.ID] = e
		}
		tag := e.HTag()
		if tag == "" {
			continue
		}
		if _, dup := l.byTag[tag]; dup {
			continue
		}
		l.byTag[tag] = e
		l.order = append(l.order, e)
	}
	return l
}

// Load builds a library from a metadata CSV and a folder of reference texts.
func Load(metadataPath, textDir string) (*Library, error) {
	f, err := os.Open(metadataPath)
	if err != nil {
		return nil, errors.NewIO("open", metadataPath, err)
	}
	defer f.Close()
	entries, err := ReadMetadata(f)
	if err != nil {
		return nil, errors.Wrap(err, metadataPath)
	}
	var texts map[string]string
	if textDir != "" {
		if texts, err = LoadTexts(textDir); err != nil {
			return nil, err
		}
	}
	return NewLibrary(entries, texts), nil
}

// Entry returns the metadata entry of an h-tag.
func (l *Library) Entry(tag string) (Entry, bool) {
	e, ok := l.byTag[tag]
	return e, ok
}

// ByID returns the metadata entry of a reference text file name.
func (l *Library) ByID(id string) (Entry, bool) {
	e, ok := l.byID[id]
	return e, ok
}

// Entries returns the indexed entries in metadata order.
func (l *Library) Entries() []Entry {
	return l.order
}

// Text returns the reference text of an entry id.
func (l *Library) Text(id string) (string, bool) {
	t, ok := l.texts[id]
	return t, ok
}

// Reference implements render.References. A label with metadata but no
// text file yields a reference without text.
func (l *Library) Reference(label string) (render.Reference, bool) {
	e, ok := l.byTag[label]
	if !ok {
		return render.Reference{}, false
	}
	return render.Reference{Name: e.Name, Text: l.texts[e.ID]}, true
}
