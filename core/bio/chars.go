package bio

import (
	"sort"
	"unicode"
)

// Field is a whitespace-delimited word of a text with its rune offsets.
// End is exclusive.
type Field struct {
	Text  string
	Start int
	End   int
}

// Fields splits text on Unicode whitespace, keeping the rune offsets of every
// word. Offsets count runes, not bytes, so they line up with character tables
// built over the same text.
func Fields(text string) []Field {
	var out []Field
	start := -1
	runes := []rune(text)
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, Field{Text: string(runes[start:i]), Start: start, End: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, Field{Text: string(runes[start:]), Start: start, End: len(runes)})
	}
	return out
}

// FromCharSpans projects character-level matches onto the words of text.
// A word belongs to a match when their rune ranges intersect. When matches
// overlap the one starting first keeps the contested words; the returned count
// is the number of matches that lost at least one word that way.
func FromCharSpans(text string, spans []Span) ([]Token, int) {
	fields := Fields(text)
	tokens := make([]Token, len(fields))
	for i, f := range fields {
		tokens[i] = Token{Word: f.Text, Tag: Out}
	}

	ordered := make([]Span, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	owner := make([]int, len(fields))
	for i := range owner {
		owner[i] = -1
	}
	overlaps := 0
	for m, s := range ordered {
		if unlabelled(s.Label) || s.End <= s.Start {
			continue
		}
		first := true
		lost := false
		for i, f := range fields {
			if f.End <= s.Start || f.Start >= s.End {
				continue
			}
			if owner[i] >= 0 {
				lost = true
				continue
			}
			owner[i] = m
			if first {
				tokens[i].Tag = BeginTag(s.Label)
				first = false
			} else {
				tokens[i].Tag = InsideTag(s.Label)
			}
		}
		if lost {
			overlaps++
		}
	}
	return tokens, overlaps
}
