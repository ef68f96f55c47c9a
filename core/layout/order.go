package layout

import (
	"math"
	"sort"
	"strings"

	"github.com/FocuswithJustin/horae/core/errors"
)

// Digitization says whether a page image shows one page or an open
// double-page spread.
type Digitization string

const (
	SinglePage Digitization = "single page"
	DoublePage Digitization = "double page"
)

// ParseDigitization accepts the metadata and classification spellings used
// across the corpus.
func ParseDigitization(s string) (Digitization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single page", "single_page", "simple_page", "simple page":
		return SinglePage, nil
	case "double page", "double_page":
		return DoublePage, nil
	}
	return "", errors.NewValidation("digitization", "unknown digitization type "+s)
}

// Order returns items in reading order.
//
// On a single page, elements are read top to bottom by centroid. On a double
// page the spread is cut at the midpoint between the leftmost and the
// rightmost centroid; the left page is read top to bottom, then the right
// one. Elements whose centroid sits exactly on the cut belong to the right
// page.
func Order[T any](items []T, polygon func(T) Polygon, d Digitization) []T {
	type entry struct {
		item T
		c    Point
	}
	entries := make([]entry, len(items))
	for i, it := range items {
		entries[i] = entry{item: it, c: polygon(it).Centroid()}
	}
	byY := func(es []entry) {
		sort.SliceStable(es, func(i, j int) bool { return es[i].c.Y < es[j].c.Y })
	}

	out := make([]T, 0, len(items))
	if d != DoublePage || len(entries) == 0 {
		byY(entries)
		for _, e := range entries {
			out = append(out, e.item)
		}
		return out
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, e := range entries {
		minX = math.Min(minX, e.c.X)
		maxX = math.Max(maxX, e.c.X)
	}
	cut := (minX + maxX) / 2

	var left, right []entry
	for _, e := range entries {
		if e.c.X < cut {
			left = append(left, e)
		} else {
			right = append(right, e)
		}
	}
	byY(left)
	byY(right)
	for _, e := range append(left, right...) {
		out = append(out, e.item)
	}
	return out
}
