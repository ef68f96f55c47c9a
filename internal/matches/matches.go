// Package matches reads the output of the external n-gram text matcher: for
// every reference text that matched a volume, the aligned character ranges
// in the volume (A) and in the reference (B).
package matches

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/render"
)

// Location is a [start, end) character range.
type Location [2]int

// Result holds the matches of one reference text against a volume.
type Result struct {
	Ref        string     `json:"ref"`
	LocationsA []Location `json:"locations_a"`
	LocationsB []Location `json:"locations_b"`
	RefLength  int        `json:"ref_length"`
}

// UnmarshalJSON also accepts the positional form
// [ref, locations_a, locations_b, ref_length] written by older runs.
func (r *Result) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		type plain Result
		return json.Unmarshal(data, (*plain)(r))
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 3 || len(raw) > 4 {
		return errors.NewValidation("match", "positional form needs 3 or 4 items")
	}
	if err := json.Unmarshal(raw[0], &r.Ref); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &r.LocationsA); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[2], &r.LocationsB); err != nil {
		return err
	}
	if len(raw) == 4 {
		return json.Unmarshal(raw[3], &r.RefLength)
	}
	return nil
}

// Label returns the reference name: the base name of Ref without ".txt".
func (r Result) Label() string {
	return strings.TrimSuffix(filepath.Base(r.Ref), ".txt")
}

// Validate checks that both location lists are aligned and well formed.
func (r Result) Validate() error {
	if len(r.LocationsA) != len(r.LocationsB) {
		return errors.NewValidation("match "+r.Ref, "locations_a and locations_b differ in length")
	}
	for _, locs := range [][]Location{r.LocationsA, r.LocationsB} {
		for _, l := range locs {
			if l[0] < 0 || l[1] < l[0] {
				return errors.NewValidation("match "+r.Ref, "bad location")
			}
		}
	}
	if r.RefLength < 0 {
		return errors.NewValidation("match "+r.Ref, "negative ref_length")
	}
	return nil
}

// Read decodes and validates a JSON array of results.
func Read(r io.Reader) ([]Result, error) {
	var out []Result
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		var ve *errors.ValidationError
		if errors.As(err, &ve) {
			return nil, err
		}
		return nil, &errors.ParseError{Format: "JSON", Message: err.Error(), Err: err}
	}
	for _, res := range out {
		if err := res.Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadFile reads a match file.
func ReadFile(path string) ([]Result, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("match file", path)
		}
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	res, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return res, nil
}

// Write encodes results as an indented JSON array.
func Write(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if results == nil {
		results = []Result{}
	}
	return enc.Encode(results)
}

// Extend widens the i-th match so that it covers the whole reference text:
// the start moves back by the reference start, the end forward by what is
// left of the reference after its matched range. The result is clamped to
// [0, textLen].
func (r Result) Extend(i, textLen int) bio.Span {
	a, b := r.LocationsA[i], r.LocationsB[i]
	start := a[0] - b[0]
	end := a[1] + r.RefLength - b[1]
	start = min(max(start, 0), textLen)
	end = min(max(end, start), textLen)
	return bio.Span{Start: start, End: end, Label: r.Label()}
}

// Spans flattens results into character spans over the volume text, sorted
// by start. Labels are mapped with label when it is not nil; a match whose
// label maps to "" is dropped. With extend, spans are widened with Extend.
func Spans(results []Result, textLen int, extend bool, label func(string) string) []bio.Span {
	var out []bio.Span
	for _, r := range results {
		name := r.Label()
		if label != nil {
			name = label(name)
		}
		if name == "" {
			continue
		}
		for i, a := range r.LocationsA {
			s := bio.Span{Start: min(a[0], textLen), End: min(a[1], textLen)}
			if extend {
				s = r.Extend(i, textLen)
			}
			s.Label = name
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// CharMatches converts results for render.MatchView, keeping the aligned
// reference ranges.
func CharMatches(results []Result, label func(string) string) []render.CharMatch {
	var out []render.CharMatch
	for _, r := range results {
		name := r.Label()
		if label != nil {
			name = label(name)
		}
		if name == "" {
			continue
		}
		for i, a := range r.LocationsA {
			b := r.LocationsB[i]
			out = append(out, render.CharMatch{Label: name, Start: a[0], End: a[1], RefStart: b[0], RefEnd: b[1]})
		}
	}
	return out
}
