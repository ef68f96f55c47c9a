package render

import (
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/net/html"

	"github.com/FocuswithJustin/horae/core/bio"
)

// EmptyWord stands in for tokens without text so every token stays visible
// and countable in the rendered page.
const EmptyWord = "∅"

// Mark classes alternate between consecutive spans so that two adjacent
// spans remain distinguishable.
var markClasses = [2]string{"marka", "markb"}

// Reference is the display information attached to a label.
type Reference struct {
	Name string // full Heurist name, e.g. "Psalm 50 | Miserere | ... | Ps50"
	Text string // reference text shown on hover; may be empty
}

// References resolves labels to their reference texts.
type References interface {
	Reference(label string) (Reference, bool)
}

// Fragment is a highlighted token stream ready to be placed in a page.
type Fragment struct {
	HTML  template.HTML
	Spans []bio.Span
}

// Highlighter wraps each span of a tagged stream in a <mark> element.
type Highlighter struct {
	Refs References
}

// Title returns the hover text for label. Labels without a reference, or
// whose reference has no text, still get a title.
func (h Highlighter) Title(label string) string {
	if h.Refs == nil {
		return label
	}
	ref, ok := h.Refs.Reference(label)
	if !ok || ref.Name == "" {
		return label
	}
	if ref.Text == "" {
		return ref.Name
	}
	return ref.Name + " | Texte : " + ref.Text
}

// Highlight renders tokens as space-separated words with one mark element
// per span. The tag stream must be well formed.
func (h Highlighter) Highlight(tokens []bio.Token) (Fragment, error) {
	spans, err := bio.ExtractSpans(tokens)
	if err != nil {
		return Fragment{}, err
	}

	words := make([]string, len(tokens))
	starts := make([]int, len(tokens))
	ends := make([]int, len(tokens))
	pos := 0
	for i, t := range tokens {
		w := t.Word
		if w == "" {
			w = EmptyWord
		}
		words[i] = w
		starts[i] = pos
		pos += len([]rune(w))
		ends[i] = pos
		pos++ // separator
	}

	buf := NewBuffer(strings.Join(words, " "))
	// spans come in start order; walk them back to front
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		buf.Open(starts[s.Start], h.openTag(s, i))
		buf.Close(ends[s.End-1], "</mark>")
	}
	out, err := buf.String()
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{HTML: template.HTML(out), Spans: spans}, nil
}

func (h Highlighter) openTag(s bio.Span, n int) string {
	return fmt.Sprintf(`<mark class="%s" data-label="%s" title="%s">`,
		markClasses[n%2], html.EscapeString(s.Label), html.EscapeString(h.Title(s.Label)))
}
