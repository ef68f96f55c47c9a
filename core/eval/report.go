// Package eval scores predicted annotations against hand-labelled ones.
package eval

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
)

// Row holds the scores of one class.
type Row struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a per-class precision/recall table.
type Report struct {
	Name     string
	Rows     []Row
	Accuracy float64 // classification reports only
	Micro    *Row    // entity reports only
	Macro    Row
	Weighted Row
	Total    int
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func f1(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func (r *Report) averages() {
	n := float64(len(r.Rows))
	r.Macro = Row{Label: "macro avg", Support: r.Total}
	r.Weighted = Row{Label: "weighted avg", Support: r.Total}
	if n == 0 {
		return
	}
	for _, row := range r.Rows {
		r.Macro.Precision += row.Precision / n
		r.Macro.Recall += row.Recall / n
		r.Macro.F1 += row.F1 / n
		if r.Total > 0 {
			w := float64(row.Support) / float64(r.Total)
			r.Weighted.Precision += row.Precision * w
			r.Weighted.Recall += row.Recall * w
			r.Weighted.F1 += row.F1 * w
		}
	}
}

// Classification scores aligned label sequences. Every label seen in either
// sequence gets a row, sorted by label. Divisions by zero count as 0.
func Classification(name string, truth, pred []string) (Report, error) {
	if len(truth) != len(pred) {
		return Report{}, errors.NewValidation("pred", fmt.Sprintf("%d predictions for %d true labels", len(pred), len(truth)))
	}
	tp := make(map[string]int)
	inTrue := make(map[string]int)
	inPred := make(map[string]int)
	correct := 0
	for i := range truth {
		inTrue[truth[i]]++
		inPred[pred[i]]++
		if truth[i] == pred[i] {
			tp[truth[i]]++
			correct++
		}
	}

	labels := make([]string, 0, len(inTrue)+len(inPred))
	for l := range inTrue {
		labels = append(labels, l)
	}
	for l := range inPred {
		if _, ok := inTrue[l]; !ok {
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)

	r := Report{Name: name, Total: len(truth), Accuracy: ratio(correct, len(truth))}
	for _, l := range labels {
		p := ratio(tp[l], inPred[l])
		rc := ratio(tp[l], inTrue[l])
		r.Rows = append(r.Rows, Row{Label: l, Precision: p, Recall: rc, F1: f1(p, rc), Support: inTrue[l]})
	}
	r.averages()
	return r, nil
}

// TokenReport scores tags token by token. Both streams must have the same
// length; words are not compared.
func TokenReport(name string, truth, pred []bio.Token) (Report, error) {
	t := make([]string, len(truth))
	for i, tok := range truth {
		t[i] = string(tok.Tag)
	}
	p := make([]string, len(pred))
	for i, tok := range pred {
		p[i] = string(tok.Tag)
	}
	return Classification(name, t, p)
}

// EntityReport scores spans: a predicted span counts only when a true span
// has exactly the same bounds and label.
func EntityReport(name string, truth, pred []bio.Span) Report {
	trueSet := make(map[bio.Span]bool)
	inTrue := make(map[string]int)
	inPred := make(map[string]int)
	tp := make(map[string]int)
	for _, s := range truth {
		trueSet[s] = true
		inTrue[s.Label]++
	}
	matched := make(map[bio.Span]bool)
	for _, s := range pred {
		inPred[s.Label]++
		if trueSet[s] && !matched[s] {
			matched[s] = true
			tp[s.Label]++
		}
	}

	labels := make([]string, 0, len(inTrue)+len(inPred))
	for l := range inTrue {
		labels = append(labels, l)
	}
	for l := range inPred {
		if _, ok := inTrue[l]; !ok {
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)

	r := Report{Name: name, Total: len(truth)}
	allTP := 0
	for _, l := range labels {
		p := ratio(tp[l], inPred[l])
		rc := ratio(tp[l], inTrue[l])
		r.Rows = append(r.Rows, Row{Label: l, Precision: p, Recall: rc, F1: f1(p, rc), Support: inTrue[l]})
		allTP += tp[l]
	}
	mp, mr := ratio(allTP, len(pred)), ratio(allTP, len(truth))
	r.Micro = &Row{Label: "micro avg", Precision: mp, Recall: mr, F1: f1(mp, mr), Support: len(truth)}
	r.averages()
	return r
}

// Format writes the report as a plain-text table.
func Format(w io.Writer, r Report) error {
	width := len("weighted avg")
	for _, row := range r.Rows {
		width = max(width, len(row.Label))
	}
	var b strings.Builder
	if r.Name != "" {
		fmt.Fprintf(&b, "%s\n", r.Name)
	}
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	line := func(row Row) {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, row.Label, row.Precision, row.Recall, row.F1, row.Support)
	}
	for _, row := range r.Rows {
		line(row)
	}
	b.WriteString("\n")
	if r.Micro != nil {
		line(*r.Micro)
	} else {
		fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	}
	line(r.Macro)
	line(r.Weighted)
	b.WriteString("\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.NewIO("write", "", err)
	}
	return nil
}
