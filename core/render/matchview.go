package render

import (
	"html/template"
	"io"
	"sort"

	"golang.org/x/net/html"
)

// CharMatch is one text-matcher hit: a character range of the volume text
// aligned with a character range of a reference text.
type CharMatch struct {
	Label    string
	Start    int
	End      int
	RefStart int
	RefEnd   int
}

// MatchView highlights character-level matches over the raw volume text.
// Before the first match of every reference, a margin note shows the
// reference name and its text with all its matched regions highlighted.
// Matches that overlap an earlier one are clipped to where it ends and
// counted; the count is returned.
func (r Renderer) MatchView(w io.Writer, vol VolumeInfo, params *Params, text string, matches []CharMatch) (int, error) {
	frag, overlaps, recognised := r.highlightMatches(text, matches)
	d := r.page("Text Matcher", vol)
	d.Params = params
	d.Left = frag
	d.Matches = len(matches)
	d.Overlaps = overlaps
	d.Recognised = recognised
	return overlaps, execute(w, "matches", d)
}

func (r Renderer) highlightMatches(text string, matches []CharMatch) (Fragment, int, int) {
	ordered := make([]CharMatch, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	buf := NewBuffer(text)
	noted := make(map[string]bool)
	overlaps := 0
	reached := 0
	for _, m := range ordered {
		start, end := max(m.Start, 0), min(m.End, buf.Len())
		if start < reached {
			overlaps++
			start = reached
		}
		if start >= end {
			continue
		}
		if !noted[m.Label] {
			noted[m.Label] = true
			buf.Open(start, r.marginNote(m.Label, matches))
		}
		buf.Open(start, "<mark>")
		buf.Close(end, "</mark>")
		reached = end
	}

	out, err := buf.String()
	if err != nil {
		// positions are clamped above
		out = html.EscapeString(text)
	}
	return Fragment{HTML: template.HTML(out)}, overlaps, len(noted)
}

// marginNote renders the reference of label with every region matched by
// any of matches highlighted.
func (r Renderer) marginNote(label string, matches []CharMatch) string {
	name, text := label, ""
	if r.Refs != nil {
		if ref, ok := r.Refs.Reference(label); ok {
			if ref.Name != "" {
				name = ref.Name
			}
			text = ref.Text
		}
	}

	ref := NewBuffer(text)
	reached := 0
	var own []CharMatch
	for _, m := range matches {
		if m.Label == label {
			own = append(own, m)
		}
	}
	sort.SliceStable(own, func(i, j int) bool { return own[i].RefStart < own[j].RefStart })
	for _, m := range own {
		start, end := max(m.RefStart, reached, 0), min(m.RefEnd, ref.Len())
		if start >= end {
			continue
		}
		ref.Open(start, "<mark>")
		ref.Close(end, "</mark>")
		reached = end
	}
	body, err := ref.String()
	if err != nil {
		body = html.EscapeString(text)
	}
	return `<span class="marginnote"><b>` + html.EscapeString(name) + `</b><br>` + body + `</span>`
}
