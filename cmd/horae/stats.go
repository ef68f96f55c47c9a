package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/reftext"
	"github.com/FocuswithJustin/horae/internal/fileutil"
)

// StatsCmd prints word-count statistics of reference texts, read from a
// folder of .txt files or from the Text column of a Heurist export.
type StatsCmd struct {
	Texts       string `help:"Folder of reference texts" type:"existingdir" xor:"source" required:""`
	Heurist     string `help:"Heurist CSV export" type:"existingfile" xor:"source" required:""`
	Top         int    `help:"Most frequent words to print" default:"20"`
	Frequencies string `help:"Write every word with its count to this file" type:"path"`

	out io.Writer
}

func (c *StatsCmd) Run() error {
	texts, err := c.load()
	if err != nil {
		return err
	}
	s := reftext.Stats(texts)
	w := writerOr(c.out)

	fmt.Fprintf(w, "Texts: %d\n", s.Count)
	fmt.Fprintf(w, "Words per text: mean %.2f, std %.2f, min %d, max %d\n", s.Mean, s.Std, s.Min, s.Max)
	fmt.Fprintf(w, "Distinct words: %d\n", s.DistinctWords)
	for i, f := range s.Vocabulary {
		if i >= c.Top {
			break
		}
		fmt.Fprintf(w, "  %-20s %d\n", f.Word, f.Count)
	}

	if c.Frequencies == "" {
		return nil
	}
	return fileutil.WriteAtomic(c.Frequencies, func(w io.Writer) error {
		return reftext.WriteFrequencies(w, s.Vocabulary)
	})
}

func (c *StatsCmd) load() ([]string, error) {
	if c.Heurist != "" {
		f, err := os.Open(c.Heurist)
		if err != nil {
			return nil, errors.NewIO("open", c.Heurist, err)
		}
		defer f.Close()
		return reftext.ReadHeuristExport(f)
	}
	byName, err := reftext.LoadTexts(c.Texts)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	texts := make([]string, len(names))
	for i, n := range names {
		texts[i] = byName[n]
	}
	return texts, nil
}
