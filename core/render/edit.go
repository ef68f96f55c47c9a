// Package render turns tagged volumes into HTML pages for manual review and
// reads those pages back.
//
// Markup is never spliced into a string one span at a time. Every insertion
// is recorded as an Edit against the untouched source text and all edits are
// applied in a single backward pass, so no insertion can shift the position
// of another.
package render

import (
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/FocuswithJustin/horae/core/errors"
)

// Side says on which side of the character boundary at Pos markup belongs.
// Closing markup is After the text it ends; opening markup is Before the
// text it starts. At an equal position all After edits come out first.
type Side int

const (
	Before Side = iota
	After
)

// Edit inserts Text at rune position Pos of the source text. Seq orders edits
// that share a position and side; lower values come out first.
type Edit struct {
	Pos  int
	Side Side
	Text string
	Seq  int
}

// Apply inserts every edit into text and returns the result. Positions are
// rune offsets in [0, len(text)].
func Apply(text string, edits []Edit) (string, error) {
	return apply([]rune(text), edits, nil)
}

func apply(runes []rune, edits []Edit, escape func(string) string) (string, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	for _, e := range sorted {
		if e.Pos < 0 || e.Pos > len(runes) {
			return "", errors.NewRange("text", e.Pos, 0, len(runes)+1)
		}
	}
	// Walk from the end of the text. Pieces are collected back to front, so
	// within a position Before edits are emitted first and the highest Seq
	// first; reversing the pieces restores reading order.
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Pos != b.Pos {
			return a.Pos > b.Pos
		}
		if a.Side != b.Side {
			return a.Side == Before
		}
		return a.Seq > b.Seq
	})

	piece := func(s []rune) string {
		if escape == nil {
			return string(s)
		}
		return escape(string(s))
	}

	pieces := make([]string, 0, 2*len(sorted)+1)
	cursor := len(runes)
	for _, e := range sorted {
		if e.Pos < cursor {
			pieces = append(pieces, piece(runes[e.Pos:cursor]))
			cursor = e.Pos
		}
		pieces = append(pieces, e.Text)
	}
	if cursor > 0 {
		pieces = append(pieces, piece(runes[:cursor]))
	}

	for i, j := 0, len(pieces)-1; i < j; i, j = i+1, j-1 {
		pieces[i], pieces[j] = pieces[j], pieces[i]
	}
	return strings.Join(pieces, ""), nil
}

// Buffer collects markup edits over a plain source text. The source text is
// HTML-escaped when rendered; the inserted markup is not.
type Buffer struct {
	runes []rune
	edits []Edit
}

// NewBuffer returns a buffer over text.
func NewBuffer(text string) *Buffer {
	return &Buffer{runes: []rune(text)}
}

// Len returns the length of the source text in runes.
func (b *Buffer) Len() int {
	return len(b.runes)
}

// Open records markup that starts at pos.
func (b *Buffer) Open(pos int, markup string) {
	b.add(pos, Before, markup)
}

// Close records markup that ends just before pos.
func (b *Buffer) Close(pos int, markup string) {
	b.add(pos, After, markup)
}

func (b *Buffer) add(pos int, side Side, markup string) {
	b.edits = append(b.edits, Edit{Pos: pos, Side: side, Text: markup, Seq: len(b.edits)})
}

// String renders the escaped text with every recorded edit applied.
func (b *Buffer) String() (string, error) {
	return apply(b.runes, b.edits, html.EscapeString)
}
