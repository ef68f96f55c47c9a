// Package transcript assembles the text of a volume from its transcribed
// lines and keeps track of where every character came from.
package transcript

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/layout"
	"github.com/FocuswithJustin/horae/core/locate"
)

// Line is one transcribed text line of a page.
type Line struct {
	ID      string
	Text    string
	Polygon layout.Polygon
}

// Page is a page element and its text lines in any order.
type Page struct {
	ID       string
	Ordering int
	Lines    []Line
}

// latinReplacer folds the spelling variants of medieval Latin onto one form.
var latinReplacer = strings.NewReplacer(
	"\u00a0", " ",
	"j", "i", "J", "I",
	"v", "u", "V", "U",
	"ë", "e", "Ë", "E",
	"æ", "e", "Æ", "E",
	"œ", "e", "Œ", "E",
)

// Normalize composes text to NFC and folds Latin spelling variants
// (j/i, v/u, ligatures) so that transcriptions and reference texts compare
// equal.
func Normalize(s string) string {
	return latinReplacer.Replace(norm.NFC.String(s))
}

// Volume is the flat text of a volume plus everything needed to map
// positions in it back to pages and lines.
type Volume struct {
	// Text is every line of every page, each followed by a single space.
	Text string
	// Pages holds, per page in volume order, the transcription pushed for
	// that page: its lines each followed by a newline.
	Pages []PageText
	// Table has one location per rune of Text.
	Table locate.Table
	// Lines lists the line ids in reading order.
	Lines []string
}

// PageText is the transcription of one page.
type PageText struct {
	PageID string
	Text   string
}

// Build orders each page's lines for the digitization type and concatenates
// them. The space that separates two lines in the volume text maps to the
// newline that ends the line in the page transcription, so page offsets stay
// contiguous. Pages without lines contribute nothing. Line texts are used as
// given; callers normalize beforehand if needed.
func Build(pages []Page, d layout.Digitization) (*Volume, error) {
	v := &Volume{}
	var text strings.Builder
	for _, p := range pages {
		if p.ID == "" {
			return nil, errors.NewValidation("page", "page without id")
		}
		if len(p.Lines) == 0 {
			continue
		}
		lines := layout.Order(p.Lines, func(l Line) layout.Polygon { return l.Polygon }, d)

		var page strings.Builder
		offset := 0
		for _, l := range lines {
			for _, r := range l.Text {
				if r == '\n' {
					r = ' '
				}
				text.WriteRune(r)
				page.WriteRune(r)
				v.Table = append(v.Table, locate.Location{PageID: p.ID, Offset: offset, ElementID: l.ID})
				offset++
			}
			text.WriteByte(' ')
			page.WriteByte('\n')
			v.Table = append(v.Table, locate.Location{PageID: p.ID, Offset: offset, ElementID: l.ID})
			offset++
			v.Lines = append(v.Lines, l.ID)
		}
		v.Pages = append(v.Pages, PageText{PageID: p.ID, Text: page.String()})
	}
	v.Text = text.String()
	return v, nil
}

// Transcription returns the page text of pageID.
func (v *Volume) Transcription(pageID string) (string, bool) {
	for _, p := range v.Pages {
		if p.PageID == pageID {
			return p.Text, true
		}
	}
	return "", false
}

// Token is a word of the volume text with its rune offsets.
type Token = bio.Field

// Tokenize splits text into whitespace-delimited words with rune offsets.
func Tokenize(text string) []Token {
	return bio.Fields(text)
}

// TokenSpanToChars converts a span over tokens into the character span it
// covers in the text the tokens were taken from: from the first rune of its
// first token up to the end of its last token.
func TokenSpanToChars(tokens []Token, span bio.Span) (bio.Span, error) {
	if span.Start < 0 || span.Start >= len(tokens) {
		return bio.Span{}, errors.NewRange("token", span.Start, 0, len(tokens))
	}
	if span.End <= span.Start || span.End > len(tokens) {
		return bio.Span{}, errors.NewRange("token", span.End, span.Start+1, len(tokens)+1)
	}
	return bio.Span{
		Start: tokens[span.Start].Start,
		End:   tokens[span.End-1].End,
		Label: span.Label,
	}, nil
}
