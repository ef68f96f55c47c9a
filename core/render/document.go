package render

import (
	"embed"
	"html/template"
	"io"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))

const (
	// DefaultStylesheet is the stylesheet linked from every page. It is not
	// generated here; the CLI copies it next to the output when asked.
	DefaultStylesheet = "com_style.css"
	// ArkindexElementURL is the base of element links.
	ArkindexElementURL = "https://arkindex.teklia.com/element/"
)

// VolumeInfo identifies the volume a page is about.
type VolumeInfo struct {
	ID   string
	Name string
}

// Params are the text-matcher settings a matched file was produced with.
type Params struct {
	Threshold   string
	Cutoff      string
	Ngrams      string
	MinDistance string
}

// ParseParams decodes matcher settings from a file name of the form
// line_<t><c><n><d>_<date>_<volume>.bio: the settings are the characters of
// the second underscore-separated field, threshold, cutoff and ngrams taking
// one character each and min-distance the rest.
func ParseParams(name string) (Params, bool) {
	parts := strings.Split(filepath.Base(name), "_")
	if len(parts) < 3 || len(parts[1]) < 4 {
		return Params{}, false
	}
	p := parts[1]
	return Params{
		Threshold:   p[0:1],
		Cutoff:      p[1:2],
		Ngrams:      p[2:3],
		MinDistance: p[3:],
	}, true
}

// VolumeID returns the volume id carried by an output file name: the last
// underscore-separated field without its extension.
func VolumeID(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.LastIndex(base, "_"); i >= 0 {
		return base[i+1:]
	}
	return base
}

// Renderer writes complete HTML pages.
type Renderer struct {
	Highlighter
	Stylesheet string // defaults to DefaultStylesheet
	ElementURL string // defaults to ArkindexElementURL
}

type pageData struct {
	Title      string
	Stylesheet string
	Volume     VolumeInfo
	VolumeURL  string
	Params     *Params
	Left       Fragment
	Right      Fragment
	Recognised int
	Matches    int
	Overlaps   int
}

func (r Renderer) page(title string, vol VolumeInfo) pageData {
	css := r.Stylesheet
	if css == "" {
		css = DefaultStylesheet
	}
	base := r.ElementURL
	if base == "" {
		base = ArkindexElementURL
	}
	d := pageData{Title: title, Stylesheet: css, Volume: vol}
	if vol.ID != "" {
		d.VolumeURL = strings.TrimSuffix(base, "/") + "/" + vol.ID
	}
	return d
}

// Volume writes a single-column page of one tagged volume.
func (r Renderer) Volume(w io.Writer, vol VolumeInfo, tokens []bio.Token) error {
	frag, err := r.Highlight(tokens)
	if err != nil {
		return err
	}
	d := r.page("Text du volume", vol)
	d.Left = frag
	return execute(w, "volume", d)
}

// Compare writes the ground truth and the matched tagging of one volume side
// by side. params may be nil when the matched file name carries no settings.
func (r Renderer) Compare(w io.Writer, vol VolumeInfo, params *Params, truth, matched []bio.Token) error {
	left, err := r.Highlight(truth)
	if err != nil {
		return errors.Wrap(err, "true text")
	}
	right, err := r.Highlight(matched)
	if err != nil {
		return errors.Wrap(err, "matched text")
	}
	d := r.page("Align text", vol)
	d.Params = params
	d.Left = left
	d.Right = right
	return execute(w, "compare", d)
}

// WriteBIO writes the tag-only form of a rendered volume.
func WriteBIO(w io.Writer, tokens []bio.Token) error {
	return bio.Write(w, tokens)
}

func execute(w io.Writer, name string, d pageData) error {
	if err := pages.ExecuteTemplate(w, name, d); err != nil {
		return errors.Wrapf(err, "render %s page", name)
	}
	return nil
}
