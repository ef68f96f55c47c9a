package bio

import (
	"fmt"
	"sort"

	"github.com/FocuswithJustin/horae/core/errors"
)

// ExtractSpans recovers the spans of a tagged stream in the order their B tag
// appears.
//
// A B tag opens a span. The open span closes on an O tag, on any B tag
// (two adjacent entities of the same label stay distinct), or at the end of
// the stream. An I tag that does not continue an open span of the same label
// is rejected with a *errors.TagFormatError naming its index.
func ExtractSpans(tokens []Token) ([]Span, error) {
	var spans []Span
	open := -1
	label := ""

	closeAt := func(i int) {
		if open >= 0 {
			spans = append(spans, Span{Start: open, End: i, Label: label})
			open = -1
			label = ""
		}
	}

	for i, tok := range tokens {
		p, l, err := tok.Tag.Parse()
		if err != nil {
			return nil, errors.NewTagFormat(i, string(tok.Tag), "unrecognised tag")
		}
		switch p {
		case Outside:
			closeAt(i)
		case Begin:
			closeAt(i)
			open = i
			label = l
		case Inside:
			if open < 0 {
				return nil, errors.NewTagFormat(i, string(tok.Tag), "inside tag without a preceding begin")
			}
			if l != label {
				return nil, errors.NewTagFormat(i, string(tok.Tag), fmt.Sprintf("inside tag continues a %q span", label))
			}
		}
	}
	closeAt(len(tokens))
	return spans, nil
}

// Descending returns a copy of spans ordered by start index, highest first.
// Consumers that insert text into a buffer walk spans in this order so that
// no insertion shifts a span still waiting to be processed.
func Descending(spans []Span) []Span {
	out := make([]Span, len(spans))
	copy(out, spans)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start > out[j].Start
	})
	return out
}

// Retag rebuilds the tag sequence of length n described by spans. It is the
// inverse of ExtractSpans. Spans must lie within [0, n) and must not overlap.
func Retag(n int, spans []Span) ([]Tag, error) {
	tags := make([]Tag, n)
	for i := range tags {
		tags[i] = Out
	}
	for _, s := range spans {
		if s.Start < 0 || s.Start >= n {
			return nil, errors.NewRange("token", s.Start, 0, n)
		}
		if s.End <= s.Start || s.End > n {
			return nil, errors.NewRange("token", s.End, s.Start+1, n+1)
		}
		if s.Label == "" || s.Label == NoLabel {
			return nil, errors.NewValidation("label", fmt.Sprintf("span at %d has no label", s.Start))
		}
		for i := s.Start; i < s.End; i++ {
			if tags[i] != Out {
				return nil, errors.NewValidation("spans", fmt.Sprintf("span (%d,%d,%s) overlaps another span at %d", s.Start, s.End, s.Label, i))
			}
		}
		tags[s.Start] = BeginTag(s.Label)
		for i := s.Start + 1; i < s.End; i++ {
			tags[i] = InsideTag(s.Label)
		}
	}
	return tags, nil
}
