// Package pagexml reads line transcriptions from PAGE XML files, the layout
// format written by most HTR engines, as an alternative source to the
// SQLite exports.
package pagexml

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/layout"
	"github.com/FocuswithJustin/horae/core/transcript"
)

// Queries match on local-name() so that every PAGE schema version, with or
// without a namespace prefix, is accepted.
const (
	pageQuery     = "//*[local-name()='Page']"
	lineQuery     = ".//*[local-name()='TextLine']"
	coordsQuery   = "./*[local-name()='Coords']"
	pointQuery    = "./*[local-name()='Point']"
	unicodeQuery  = "./*[local-name()='TextEquiv']/*[local-name()='Unicode']"
	baselineQuery = "./*[local-name()='Baseline']"
)

// ParsePoints parses a PAGE points attribute: "x1,y1 x2,y2 ...".
func ParsePoints(s string) (layout.Polygon, error) {
	fields := strings.Fields(s)
	poly := make(layout.Polygon, 0, len(fields))
	for _, f := range fields {
		xs, ys, ok := strings.Cut(f, ",")
		if !ok {
			return nil, &errors.ParseError{Format: "PAGE points", Message: "bad point " + strconv.Quote(f)}
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return nil, &errors.ParseError{Format: "PAGE points", Message: "bad x in " + strconv.Quote(f), Err: err}
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return nil, &errors.ParseError{Format: "PAGE points", Message: "bad y in " + strconv.Quote(f), Err: err}
		}
		poly = append(poly, layout.Point{X: x, Y: y})
	}
	if n := len(poly); n > 1 && poly[0] == poly[n-1] {
		poly = poly[:n-1]
	}
	if len(poly) < 3 {
		return nil, &errors.ParseError{Format: "PAGE points", Message: "need at least 3 points, got " + strconv.Itoa(len(poly))}
	}
	return poly, nil
}

// coords reads the outline of an element. PAGE 2010 files list <Point>
// children instead of a points attribute.
func coords(el *Node) (layout.Polygon, error) {
	c, err := el.XPathFirst(coordsQuery)
	if err != nil || c == nil {
		return nil, err
	}
	if pts := c.Attr("points"); pts != "" {
		return ParsePoints(pts)
	}
	children, err := c.XPath(pointQuery)
	if err != nil {
		return nil, err
	}
	var parts []string
	for _, p := range children {
		parts = append(parts, p.Attr("x")+","+p.Attr("y"))
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return ParsePoints(strings.Join(parts, " "))
}

// Read reads the text lines of one PAGE XML document. Lines without an id
// are numbered after the page; a missing Unicode element gives an empty
// text.
func Read(r io.Reader, pageID string) (transcript.Page, error) {
	doc, err := Parse(r)
	if err != nil {
		return transcript.Page{}, err
	}
	page, err := doc.XPathFirst(pageQuery)
	if err != nil {
		return transcript.Page{}, err
	}
	if page == nil {
		return transcript.Page{}, errors.NewValidation("PAGE XML", "no Page element")
	}

	lines, err := page.XPath(lineQuery)
	if err != nil {
		return transcript.Page{}, err
	}
	out := transcript.Page{ID: pageID}
	for i, l := range lines {
		id := l.Attr("id")
		if id == "" {
			id = pageID + "_l" + strconv.Itoa(i+1)
		}
		poly, err := coords(l)
		if err != nil {
			return transcript.Page{}, errors.Wrapf(err, "line %s", id)
		}
		if poly == nil {
			// fall back to the baseline when the line has no outline
			if b, _ := l.XPathFirst(baselineQuery); b != nil && b.Attr("points") != "" {
				poly, _ = ParsePoints(b.Attr("points"))
			}
		}
		var text string
		if u, err := l.XPathFirst(unicodeQuery); err != nil {
			return transcript.Page{}, err
		} else if u != nil {
			text = u.Text()
		}
		out.Lines = append(out.Lines, transcript.Line{ID: id, Text: text, Polygon: poly})
	}
	return out, nil
}

// ReadFile reads a PAGE XML file; the page id is the file name without its
// extension.
func ReadFile(path string) (transcript.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return transcript.Page{}, errors.NewNotFound("PAGE XML file", path)
		}
		return transcript.Page{}, errors.NewIO("open", path, err)
	}
	defer f.Close()

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	p, err := Read(f, id)
	if err != nil {
		return transcript.Page{}, errors.Wrap(err, path)
	}
	return p, nil
}

// ReadDir reads every *.xml file of a folder as the pages of one volume,
// ordered by file name.
func ReadDir(dir string) ([]transcript.Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewIO("read dir", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	pages := make([]transcript.Page, 0, len(names))
	for i, name := range names {
		p, err := ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		p.Ordering = i
		pages = append(pages, p)
	}
	return pages, nil
}
