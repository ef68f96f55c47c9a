package render

import (
	"io"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
)

// ExtractColumns reads back the spans of every text column of a rendered
// page, in document order. Token indices count whitespace-separated words of
// the column text; only mark elements carrying a data-label become spans.
func ExtractColumns(r io.Reader) ([][]bio.Span, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &errors.ParseError{Format: "HTML", Message: err.Error(), Err: err}
	}
	var cols [][]bio.Span
	doc.Find("div.column").Each(func(_ int, sel *goquery.Selection) {
		w := &spanWalker{}
		for _, n := range sel.Nodes {
			w.walk(n)
		}
		cols = append(cols, w.spans)
	})
	if len(cols) == 0 {
		return nil, &errors.ParseError{Format: "HTML", Message: "no text column found"}
	}
	return cols, nil
}

// ExtractSpans reads back the spans of the first text column of a rendered
// page.
func ExtractSpans(r io.Reader) ([]bio.Span, error) {
	cols, err := ExtractColumns(r)
	if err != nil {
		return nil, err
	}
	return cols[0], nil
}

type spanWalker struct {
	words   int
	midWord bool // the last text seen ended inside a word
	spans   []bio.Span
}

func (w *spanWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		if hasClass(n, "marginnote") || hasClass(n, "count") {
			return
		}
		if n.Data == "mark" {
			if label, ok := attr(n, "data-label"); ok {
				w.midWord = false
				start := w.words
				w.children(n)
				w.midWord = false
				if w.words > start {
					w.spans = append(w.spans, bio.Span{Start: start, End: w.words, Label: label})
				}
				return
			}
		}
	}
	w.children(n)
}

func (w *spanWalker) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *spanWalker) text(s string) {
	if s == "" {
		return
	}
	fields := len(strings.Fields(s))
	first := []rune(s)[0]
	if w.midWord && fields > 0 && !unicode.IsSpace(first) {
		fields-- // continues the word of the previous text node
	}
	w.words += fields
	last := []rune(s)[len([]rune(s))-1]
	w.midWord = !unicode.IsSpace(last)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}
