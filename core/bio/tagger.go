package bio

import "strings"

// LabeledUnit is a piece of source text together with the liturgical function
// it belongs to. An empty label or NoLabel means the unit is unannotated.
type LabeledUnit struct {
	Text  string
	Label string
}

// ForwardFill resolves sparse annotation, where only the first line of a
// region carries its label. The first label defaults to NoLabel when empty and
// every later empty label takes the value of the label before it. The input
// slice is left untouched.
func ForwardFill(labels []string) []string {
	out := make([]string, len(labels))
	prev := NoLabel
	for i, l := range labels {
		if l == "" {
			l = prev
		}
		out[i] = l
		prev = l
	}
	return out
}

// TagUnits assigns one tag per unit. A new run starts whenever the label differs
// from the previous unit's label, including entering or leaving an
// unannotated region.
func TagUnits(units []LabeledUnit) []Token {
	out := make([]Token, len(units))
	prev := ""
	for i, u := range units {
		label := u.Label
		switch {
		case unlabelled(label):
			out[i] = Token{Word: u.Text, Tag: Out}
			label = ""
		case i > 0 && label == prev:
			out[i] = Token{Word: u.Text, Tag: InsideTag(label)}
		default:
			out[i] = Token{Word: u.Text, Tag: BeginTag(label)}
		}
		prev = label
	}
	return out
}

// TagWords splits every line into whitespace-separated words and tags the
// resulting word stream. Consecutive lines with the same label form a single
// run. Lines without words contribute nothing.
func TagWords(lines []LabeledUnit) []Token {
	var units []LabeledUnit
	for _, line := range lines {
		for _, w := range strings.Fields(line.Text) {
			units = append(units, LabeledUnit{Text: w, Label: line.Label})
		}
	}
	return TagUnits(units)
}

// MergeAdjacent joins matches of the same label that touch: a B tag following
// a B or I tag of the same label becomes an I tag. The input is not modified.
func MergeAdjacent(tokens []Token) []Token {
	out := make([]Token, len(tokens))
	copy(out, tokens)
	for i := 1; i < len(out); i++ {
		p, label, err := out[i].Tag.Parse()
		if err != nil || p != Begin {
			continue
		}
		pp, prevLabel, err := out[i-1].Tag.Parse()
		if err != nil || pp == Outside {
			continue
		}
		if prevLabel == label {
			out[i].Tag = InsideTag(label)
		}
	}
	return out
}
