package dump

import (
	"context"
	"strings"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/eval"
	"github.com/FocuswithJustin/horae/core/layout"
	"github.com/FocuswithJustin/horae/core/transcript"
)

// LabeledLine is a text line of a fully annotated volume with the
// liturgical function it was found in.
type LabeledLine struct {
	ID    string
	Page  int // 1-based page number
	Text  string
	Label string
}

// HTag returns the last word of a text segment name.
func HTag(segmentName string) string {
	f := strings.Fields(segmentName)
	if len(f) == 0 {
		return ""
	}
	return f[len(f)-1]
}

// LabeledLines reads the text lines of a volume in reading order and labels
// each with the h-tag of the text segments it intersects.
//
// Lines and segments of a page are both taken top to bottom; when several
// segments cover a line the lowest one wins. Lines without a segment
// inherit the label of the line before them, and the volume starts
// unlabelled. With a non-empty filter, labels of segments whose name does
// not contain it are replaced by bio.NoLabel.
func (e *Export) LabeledLines(ctx context.Context, volumeID, filter string) ([]LabeledLine, error) {
	pages, err := e.Pages(ctx, volumeID)
	if err != nil {
		return nil, err
	}
	byCentroid := func(el Element) layout.Polygon { return el.Polygon }
	lineCentroid := func(l transcript.Line) layout.Polygon { return l.Polygon }

	var out []LabeledLine
	for _, p := range pages {
		lines, err := e.TextLines(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		lines = layout.Order(lines, lineCentroid, layout.SinglePage)
		segs, err := e.Segments(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		segs = layout.Order(segs, byCentroid, layout.SinglePage)

		labels := make([]string, len(lines))
		for _, s := range segs {
			for i, l := range lines {
				if l.Polygon.Intersects(s.Polygon) {
					labels[i] = HTag(s.Name)
				}
			}
		}
		for i, l := range lines {
			out = append(out, LabeledLine{ID: l.ID, Page: p.Ordering + 1, Text: l.Text, Label: labels[i]})
		}
	}

	labels := make([]string, len(out))
	for i, l := range out {
		labels[i] = l.Label
	}
	labels = bio.ForwardFill(labels)

	var allowed map[string]bool
	if filter != "" {
		names, err := e.SegmentNames(ctx, filter, volumeID)
		if err != nil {
			return nil, err
		}
		allowed = make(map[string]bool, len(names))
		for _, n := range names {
			allowed[HTag(n)] = true
		}
	}
	for i := range out {
		out[i].Label = labels[i]
		if allowed != nil && !allowed[labels[i]] {
			out[i].Label = bio.NoLabel
		}
	}
	return out, nil
}

// Units converts labeled lines for bio.TagWords, normalizing their text with
// transcript.Normalize when normalize is set.
func Units(lines []LabeledLine, normalize bool) []bio.LabeledUnit {
	out := make([]bio.LabeledUnit, len(lines))
	for i, l := range lines {
		text := l.Text
		if normalize {
			text = transcript.Normalize(text)
		}
		out[i] = bio.LabeledUnit{Text: text, Label: l.Label}
	}
	return out
}

// PresenceMatrix records, for each volume, which text segments matching
// filter occur on its pages. Columns are h-tags.
func (e *Export) PresenceMatrix(ctx context.Context, filter string, volumeIDs ...string) (*eval.Matrix, error) {
	names, err := e.SegmentNames(ctx, filter, volumeIDs...)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(names))
	seen := make(map[string]bool)
	for _, n := range names {
		if tag := HTag(n); tag != "" && !seen[tag] {
			seen[tag] = true
			cols = append(cols, tag)
		}
	}
	m := eval.NewMatrix(cols...)
	for _, v := range volumeIDs {
		found, err := e.volumeSegmentNames(ctx, v)
		if err != nil {
			return nil, err
		}
		var tags []string
		for _, n := range found {
			if nameMatches(n, filter) {
				tags = append(tags, HTag(n))
			}
		}
		m.AddRow(v, tags...)
	}
	return m, nil
}
