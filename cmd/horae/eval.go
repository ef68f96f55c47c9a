package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/eval"
	"github.com/FocuswithJustin/horae/internal/fileutil"
	"github.com/FocuswithJustin/horae/internal/validation"
)

// EvalGroup scores predictions at word or volume level.
type EvalGroup struct {
	Bio    EvalBioCmd    `cmd:"" help:"Compare matched BIO files with ground truth BIO files"`
	Matrix EvalMatrixCmd `cmd:"" help:"Compare a predicted presence matrix with a true one"`
}

// EvalBioCmd pairs BIO files by volume id and prints a token report, and
// with --entities an entity report, per volume.
type EvalBioCmd struct {
	Truth    string `arg:"" help:"Ground truth BIO file or folder" type:"path"`
	Pred     string `arg:"" help:"Matched BIO file or folder" type:"path"`
	Entities bool   `help:"Also score whole spans"`
	Matrix   bool   `help:"Also compare the volume-level presence of every label"`
	XLSX     string `name:"xlsx" help:"Write the reports to an XLSX workbook" type:"path"`

	out io.Writer
}

func (c *EvalBioCmd) Run(g *Globals) error {
	truthFiles, err := collect([]string{c.Truth}, ".bio")
	if err != nil {
		return err
	}
	predFiles, err := collect([]string{c.Pred}, ".bio")
	if err != nil {
		return err
	}
	pairs := pairByVolume(truthFiles, predFiles)
	ids := sortedKeys(pairs)

	var mu sync.Mutex
	byVolume := make(map[string][]eval.Report)
	truthSpans := make(map[string][]bio.Span)
	predSpans := make(map[string][]bio.Span)
	sum := g.runner("eval").Run(context.Background(), ids, func(ctx context.Context, id string) error {
		p := pairs[id]
		if p.truth == "" || p.pred == "" {
			return errors.NewNotFound("volume pair", id)
		}
		truth, err := readBIO(p.truth)
		if err != nil {
			return err
		}
		pred, err := readBIO(p.pred)
		if err != nil {
			return err
		}
		tok, err := eval.TokenReport(id, truth, pred)
		if err != nil {
			return err
		}
		reports := []eval.Report{tok}
		ts, err := bio.ExtractSpans(truth)
		if err != nil {
			return errors.Wrap(err, p.truth)
		}
		ps, err := bio.ExtractSpans(pred)
		if err != nil {
			return errors.Wrap(err, p.pred)
		}
		if c.Entities {
			reports = append(reports, eval.EntityReport(id+" entities", ts, ps))
		}
		mu.Lock()
		defer mu.Unlock()
		byVolume[id] = reports
		truthSpans[id] = ts
		predSpans[id] = ps
		return nil
	})

	var reports []eval.Report
	for _, id := range ids {
		reports = append(reports, byVolume[id]...)
	}
	var m *eval.Matrix
	if c.Matrix {
		truthM, predM := presence(ids, truthSpans, predSpans)
		volumeReports, err := eval.CompareMatrices(truthM, predM)
		if err != nil {
			return err
		}
		reports = append(reports, volumeReports...)
		m = predM
	}
	if err := c.report(reports, m); err != nil {
		return err
	}
	return g.finish(sum)
}

// presence builds the true and predicted presence matrices of the scored
// volumes over the union of their labels, so that a label missing on one side
// still counts.
func presence(ids []string, truth, pred map[string][]bio.Span) (*eval.Matrix, *eval.Matrix) {
	var cols []string
	seen := make(map[string]bool)
	for _, id := range ids {
		for _, spans := range [][]bio.Span{truth[id], pred[id]} {
			for _, s := range spans {
				if !seen[s.Label] {
					seen[s.Label] = true
					cols = append(cols, s.Label)
				}
			}
		}
	}
	tm, pm := eval.NewMatrix(cols...), eval.NewMatrix(cols...)
	for _, id := range ids {
		if _, ok := truth[id]; !ok {
			continue
		}
		tm.AddVolume(id, truth[id])
		pm.AddVolume(id, pred[id])
	}
	return tm, pm
}

func (c *EvalBioCmd) report(reports []eval.Report, m *eval.Matrix) error {
	return writeReports(writerOr(c.out), c.XLSX, reports, m)
}

// EvalMatrixCmd compares presence matrices volume by volume. Matrices are
// read from CSV, or from the first sheet of an XLSX workbook.
type EvalMatrixCmd struct {
	Pred  string `name:"pred-file" required:"" help:"Predicted presence matrix" type:"existingfile"`
	Truth string `name:"true-file" required:"" help:"True presence matrix" type:"existingfile"`
	XLSX  string `name:"xlsx" help:"Write the reports to an XLSX workbook" type:"path"`

	out io.Writer
}

func (c *EvalMatrixCmd) Run() error {
	truth, err := readMatrixFile(c.Truth)
	if err != nil {
		return err
	}
	pred, err := readMatrixFile(c.Pred)
	if err != nil {
		return err
	}
	reports, err := eval.CompareMatrices(truth, pred)
	if err != nil {
		return err
	}
	w := writerOr(c.out)
	return writeReports(w, c.XLSX, reports, pred)
}

func readMatrixFile(path string) (*eval.Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	var m *eval.Matrix
	if validation.Sniff(data) == validation.KindZip {
		m, err = eval.ReadMatrixXLSX(data)
	} else {
		m, err = eval.ReadMatrix(bytes.NewReader(data))
	}
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return m, nil
}

// writeReports prints every report and, when xlsx is set, writes them to a
// workbook as well.
func writeReports(w io.Writer, xlsx string, reports []eval.Report, m *eval.Matrix) error {
	for _, r := range reports {
		if err := eval.Format(w, r); err != nil {
			return err
		}
	}
	if xlsx == "" {
		return nil
	}
	return fileutil.WriteAtomic(xlsx, func(w io.Writer) error {
		return eval.WriteWorkbook(w, reports, m)
	})
}
