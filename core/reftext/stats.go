package reftext

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/FocuswithJustin/horae/core/errors"
)

var cleaner = strings.NewReplacer(
	"</p>", " ",
	"<p>", " ",
	"<br/>", " ",
	"<br />", " ",
	"...", " ",
	",", " ",
)

// CleanText strips the paragraph and line-break markup of Heurist exports,
// ellipses and commas, and lowercases the result.
func CleanText(s string) string {
	return strings.ToLower(cleaner.Replace(s))
}

// Summary describes the length distribution of a set of texts, in words.
type Summary struct {
	Count         int
	Mean          float64
	Std           float64 // sample standard deviation; 0 with fewer than two texts
	Min           int
	Max           int
	DistinctWords int
	Vocabulary    []WordFreq // most frequent first
}

// WordFreq is a word and its number of occurrences.
type WordFreq struct {
	Word  string
	Count int
}

// Stats cleans every text and summarizes word counts and vocabulary.
func Stats(texts []string) Summary {
	var s Summary
	s.Count = len(texts)
	if s.Count == 0 {
		return s
	}
	lengths := make([]int, len(texts))
	cleaned := make([]string, len(texts))
	total := 0
	for i, t := range texts {
		cleaned[i] = CleanText(t)
		lengths[i] = len(strings.Fields(cleaned[i]))
		total += lengths[i]
	}
	s.Mean = float64(total) / float64(s.Count)
	s.Min, s.Max = lengths[0], lengths[0]
	sq := 0.0
	for _, n := range lengths {
		s.Min = min(s.Min, n)
		s.Max = max(s.Max, n)
		d := float64(n) - s.Mean
		sq += d * d
	}
	if s.Count > 1 {
		s.Std = math.Sqrt(sq / float64(s.Count-1))
	}
	s.Vocabulary = Frequencies(cleaned)
	s.DistinctWords = len(s.Vocabulary)
	return s
}

// Frequencies counts the words of texts, most frequent first. Words with the
// same count keep the order in which they were first seen.
func Frequencies(texts []string) []WordFreq {
	index := make(map[string]int)
	var out []WordFreq
	for _, t := range texts {
		for _, w := range strings.Fields(t) {
			if i, ok := index[w]; ok {
				out[i].Count++
				continue
			}
			index[w] = len(out)
			out = append(out, WordFreq{Word: w, Count: 1})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// WriteFrequencies writes the vocabulary size followed by one
// "word<TAB>count" line per word.
func WriteFrequencies(w io.Writer, freqs []WordFreq) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Number of different words : %d\n", len(freqs))
	for _, f := range freqs {
		fmt.Fprintf(bw, "%s\t%d\n", f.Word, f.Count)
	}
	if err := bw.Flush(); err != nil {
		return errors.NewIO("write", "", err)
	}
	return nil
}

// ReadHeuristExport returns the non-empty values of the "Text" column of a
// Heurist CSV export.
func ReadHeuristExport(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, &errors.ParseError{Format: "CSV", Line: 1, Message: err.Error(), Err: err}
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(h) == "Text" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, &errors.ParseError{Format: "CSV", Line: 1, Message: `no "Text" column`}
	}

	var texts []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &errors.ParseError{Format: "CSV", Message: err.Error(), Err: err}
		}
		if col < len(rec) && strings.TrimSpace(rec[col]) != "" {
			texts = append(texts, rec[col])
		}
	}
	return texts, nil
}
