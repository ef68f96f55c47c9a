// Package dump reads the SQLite exports of an Arkindex corpus: volumes, their
// pages, and the lines, paragraphs and text segments drawn on each page.
package dump

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/layout"
	"github.com/FocuswithJustin/horae/core/sqlite"
	"github.com/FocuswithJustin/horae/core/transcript"
)

// Element types used by the corpus.
const (
	TypeVolume       = "volume"
	TypePage         = "page"
	TypeParagraph    = "paragraph"
	TypeTextLine     = "text_line"
	TypeTextSegment  = "text_segment"
	TypeInitial      = "initial"
	TypeRubrication  = "rubrication"
	TypeIllustration = "illustration"
)

// DigitizationMetadata is the metadata entry carrying the digitization type
// of a volume.
const DigitizationMetadata = "Digitization Type"

var requiredTables = []string{"element", "element_path", "transcription"}

// Element is a row of the element table, with its position among its
// parent's children when read through element_path.
type Element struct {
	ID       string
	Name     string
	Type     string
	Polygon  layout.Polygon
	Ordering int
}

// Export is an open SQLite export.
type Export struct {
	db   *sql.DB
	path string
}

// Open opens an export file read-only and checks that it has the tables
// every reader needs.
func Open(path string) (*Export, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	e, err := New(db)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, path)
	}
	e.path = path
	return e, nil
}

// New wraps an already open database.
func New(db *sql.DB) (*Export, error) {
	missing, err := sqlite.HasTables(db, requiredTables...)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, errors.NewValidation("export", "missing tables: "+strings.Join(missing, ", "))
	}
	return &Export{db: db}, nil
}

// Close closes the underlying database.
func (e *Export) Close() error {
	return e.db.Close()
}

// Path returns the file the export was opened from, if any.
func (e *Export) Path() string {
	return e.path
}

func parsePolygon(id, s string) (layout.Polygon, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	p, err := layout.ParsePolygon(s)
	if err != nil {
		return nil, errors.Wrapf(err, "polygon of element %s", id)
	}
	return p, nil
}

// Volumes returns every volume, ordered by name then id.
func (e *Export) Volumes(ctx context.Context) ([]Element, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT id, COALESCE(name, '') FROM element WHERE type = ? ORDER BY name, id`, TypeVolume)
	if err != nil {
		return nil, errors.Wrap(err, "list volumes")
	}
	defer rows.Close()

	var out []Element
	for rows.Next() {
		el := Element{Type: TypeVolume}
		if err := rows.Scan(&el.ID, &el.Name); err != nil {
			return nil, errors.Wrap(err, "scan volume")
		}
		out = append(out, el)
	}
	return out, rows.Err()
}

// Volume returns one volume by id.
func (e *Export) Volume(ctx context.Context, id string) (Element, error) {
	el := Element{ID: id, Type: TypeVolume}
	err := e.db.QueryRowContext(ctx,
		`SELECT COALESCE(name, '') FROM element WHERE id = ? AND type = ?`, id, TypeVolume).Scan(&el.Name)
	if err == sql.ErrNoRows {
		return Element{}, errors.NewNotFound("volume", id)
	}
	if err != nil {
		return Element{}, errors.Wrapf(err, "read volume %s", id)
	}
	return el, nil
}

// Children returns the direct children of parentID with the given type, in
// element_path order.
func (e *Export) Children(ctx context.Context, parentID, typ string) ([]Element, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT el.id, COALESCE(el.name, ''), el.type, COALESCE(el.polygon, ''), p.ordering
		FROM element_path p
		JOIN element el ON el.id = p.child_id
		WHERE p.parent_id = ? AND el.type = ?
		ORDER BY p.ordering, el.id`, parentID, typ)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s children of %s", typ, parentID)
	}
	defer rows.Close()

	var out []Element
	for rows.Next() {
		var el Element
		var poly string
		if err := rows.Scan(&el.ID, &el.Name, &el.Type, &poly, &el.Ordering); err != nil {
			return nil, errors.Wrap(err, "scan element")
		}
		if el.Polygon, err = parsePolygon(el.ID, poly); err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, rows.Err()
}

// Pages returns the pages of a volume in order.
func (e *Export) Pages(ctx context.Context, volumeID string) ([]Element, error) {
	return e.Children(ctx, volumeID, TypePage)
}

// Segments returns the text segments drawn on a page. Their name ends with
// the h-tag of the liturgical piece.
func (e *Export) Segments(ctx context.Context, pageID string) ([]Element, error) {
	return e.Children(ctx, pageID, TypeTextSegment)
}

// Elements returns the decoration elements of a page: initials,
// rubrications or illustrations.
func (e *Export) Elements(ctx context.Context, pageID, typ string) ([]Element, error) {
	switch typ {
	case TypeInitial, TypeRubrication, TypeIllustration:
	default:
		return nil, errors.NewValidation("type", "not a decoration element type: "+typ)
	}
	return e.Children(ctx, pageID, typ)
}

// DigitizationType returns how the pages of a volume were digitized. The
// "Digitization Type" metadata wins; older exports only carry it as a
// classification of the volume.
func (e *Export) DigitizationType(ctx context.Context, volumeID string) (layout.Digitization, error) {
	var value string
	err := e.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE element_id = ? AND name = ? LIMIT 1`,
		volumeID, DigitizationMetadata).Scan(&value)
	if err == nil {
		return layout.ParseDigitization(value)
	}
	if err != sql.ErrNoRows && !isMissingTable(err) {
		return "", errors.Wrapf(err, "read metadata of %s", volumeID)
	}

	err = e.db.QueryRowContext(ctx,
		`SELECT class_name FROM classification WHERE element_id = ? LIMIT 1`, volumeID).Scan(&value)
	if err == sql.ErrNoRows || isMissingTable(err) {
		return "", errors.NewNotFound("digitization type", volumeID)
	}
	if err != nil {
		return "", errors.Wrapf(err, "read classification of %s", volumeID)
	}
	return layout.ParseDigitization(value)
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// texts returns the transcribed children of parentID with the given type.
// Elements with several transcriptions use the first one stored; elements
// without any get an empty text.
func (e *Export) texts(ctx context.Context, parentID, typ string) ([]transcript.Line, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT el.id, COALESCE(el.polygon, ''),
			COALESCE((SELECT t.text FROM transcription t WHERE t.element_id = el.id ORDER BY t.rowid LIMIT 1), '')
		FROM element_path p
		JOIN element el ON el.id = p.child_id
		WHERE p.parent_id = ? AND el.type = ?
		ORDER BY p.ordering, el.id`, parentID, typ)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s of %s", typ, parentID)
	}
	defer rows.Close()

	var out []transcript.Line
	for rows.Next() {
		var l transcript.Line
		var poly string
		if err := rows.Scan(&l.ID, &poly, &l.Text); err != nil {
			return nil, errors.Wrap(err, "scan transcription")
		}
		if l.Polygon, err = parsePolygon(l.ID, poly); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// TextLines returns the text lines of a page with their transcriptions,
// unordered.
func (e *Export) TextLines(ctx context.Context, pageID string) ([]transcript.Line, error) {
	return e.texts(ctx, pageID, TypeTextLine)
}

// Paragraphs returns the paragraphs of a page with their transcriptions,
// unordered.
func (e *Export) Paragraphs(ctx context.Context, pageID string) ([]transcript.Line, error) {
	return e.texts(ctx, pageID, TypeParagraph)
}

// VolumePages loads every page of a volume with its text lines, ready for
// transcript.Build.
func (e *Export) VolumePages(ctx context.Context, volumeID string) ([]transcript.Page, error) {
	pages, err := e.Pages(ctx, volumeID)
	if err != nil {
		return nil, err
	}
	out := make([]transcript.Page, 0, len(pages))
	for _, p := range pages {
		lines, err := e.TextLines(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, transcript.Page{ID: p.ID, Ordering: p.Ordering, Lines: lines})
	}
	return out, nil
}

// PageText joins the paragraph transcriptions of a page in reading order,
// each followed by a space, with line breaks flattened to spaces.
func (e *Export) PageText(ctx context.Context, pageID string, d layout.Digitization) (string, error) {
	paras, err := e.Paragraphs(ctx, pageID)
	if err != nil {
		return "", err
	}
	paras = layout.Order(paras, func(l transcript.Line) layout.Polygon { return l.Polygon }, d)
	var b strings.Builder
	for _, p := range paras {
		b.WriteString(strings.ReplaceAll(p.Text, "\n", " "))
		b.WriteByte(' ')
	}
	return b.String(), nil
}

// SegmentNames returns the distinct names of the text segments found on the
// pages of the given volumes, sorted. A non-empty filter keeps only names
// containing it, ignoring ASCII case as SQLite LIKE does.
func (e *Export) SegmentNames(ctx context.Context, filter string, volumeIDs ...string) ([]string, error) {
	seen := make(map[string]bool)
	for _, v := range volumeIDs {
		names, err := e.volumeSegmentNames(ctx, v)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if nameMatches(n, filter) {
				seen[n] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// nameMatches reports whether filter occurs in name, folding ASCII letters
// only.
func nameMatches(name, filter string) bool {
	return strings.Contains(asciiLower(name), asciiLower(filter))
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}, s)
}

func (e *Export) volumeSegmentNames(ctx context.Context, volumeID string) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT DISTINCT COALESCE(seg.name, '')
		FROM element_path vp
		JOIN element_path sp ON sp.parent_id = vp.child_id
		JOIN element seg ON seg.id = sp.child_id
		WHERE vp.parent_id = ? AND seg.type = ?`, volumeID, TypeTextSegment)
	if err != nil {
		return nil, errors.Wrapf(err, "list text segments of %s", volumeID)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, errors.Wrap(err, "scan text segment")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
