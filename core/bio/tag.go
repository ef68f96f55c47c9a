// Package bio implements the Begin/Inside/Outside tagging scheme used to mark
// liturgical text spans in a flat token stream.
//
// A tagged stream is a sequence of Token values. Spans are recovered with
// ExtractSpans and written back with Retag; the two are exact inverses for any
// well-formed tagging. The on-disk interchange format is one "<token> <tag>"
// pair per line, handled by Read and Write.
package bio

import (
	"strings"

	"github.com/FocuswithJustin/horae/core/errors"
)

// NoLabel is the sentinel label of text outside any annotated region.
const NoLabel = "none"

// Prefix is the positional part of a tag.
type Prefix byte

const (
	Outside Prefix = 'O'
	Begin   Prefix = 'B'
	Inside  Prefix = 'I'
)

// Tag is a BIO tag value: "O", "B-<label>" or "I-<label>".
type Tag string

// Out is the tag of a token outside every span.
const Out Tag = "O"

// BeginTag returns the tag opening a span of the given label.
func BeginTag(label string) Tag {
	return Tag("B-" + label)
}

// InsideTag returns the tag continuing a span of the given label.
func InsideTag(label string) Tag {
	return Tag("I-" + label)
}

// Parse splits the tag into its prefix and label. The label of Out is empty.
func (t Tag) Parse() (Prefix, string, error) {
	return ParseTag(string(t))
}

// ParseTag splits a raw tag string. Labels may themselves contain dashes;
// only the first dash separates the prefix.
func ParseTag(s string) (Prefix, string, error) {
	if s == "O" {
		return Outside, "", nil
	}
	prefix, label, ok := strings.Cut(s, "-")
	if !ok || len(prefix) != 1 {
		return 0, "", &errors.ValidationError{Field: "tag", Value: s, Message: "expected O, B-<label> or I-<label>"}
	}
	if label == "" {
		return 0, "", &errors.ValidationError{Field: "tag", Value: s, Message: "empty label"}
	}
	switch Prefix(prefix[0]) {
	case Begin:
		return Begin, label, nil
	case Inside:
		return Inside, label, nil
	}
	return 0, "", &errors.ValidationError{Field: "tag", Value: s, Message: "unknown prefix " + prefix}
}

// Label returns the label carried by the tag, or "" for Out and malformed tags.
func (t Tag) Label() string {
	_, label, err := t.Parse()
	if err != nil {
		return ""
	}
	return label
}

// Token is one word of a tagged stream.
type Token struct {
	Word string
	Tag  Tag
}

// Span is a contiguous run of tokens sharing one label. End is exclusive, so
// a single-token span has End == Start+1.
type Span struct {
	Start int
	End   int
	Label string
}

// Len returns the number of tokens covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Solo reports whether the span covers exactly one token.
func (s Span) Solo() bool {
	return s.End == s.Start+1
}

// Overlaps reports whether the two half-open ranges intersect.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Words returns the surface text of each token.
func Words(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Word
	}
	return out
}

// Tags returns the tag of each token.
func Tags(tokens []Token) []Tag {
	out := make([]Tag, len(tokens))
	for i, t := range tokens {
		out[i] = t.Tag
	}
	return out
}

func unlabelled(label string) bool {
	return label == "" || label == NoLabel
}
