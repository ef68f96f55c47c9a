package eval

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
)

// Matrix records which labels occur in which volumes, one 0/1 cell per
// (volume, label) pair.
type Matrix struct {
	Columns []string
	rows    []string
	cells   map[string]map[string]int
}

// NewMatrix returns an empty matrix over the given label columns.
func NewMatrix(columns ...string) *Matrix {
	return &Matrix{Columns: append([]string(nil), columns...), cells: make(map[string]map[string]int)}
}

// Rows returns the volume ids in insertion order.
func (m *Matrix) Rows() []string {
	return m.rows
}

func (m *Matrix) row(id string) map[string]int {
	r, ok := m.cells[id]
	if !ok {
		r = make(map[string]int)
		m.cells[id] = r
		m.rows = append(m.rows, id)
	}
	return r
}

func (m *Matrix) hasColumn(col string) bool {
	for _, c := range m.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Set stores a cell, adding the row or column when missing.
func (m *Matrix) Set(id, col string, v int) {
	if !m.hasColumn(col) {
		m.Columns = append(m.Columns, col)
	}
	m.row(id)[col] = v
}

// Get returns a cell; missing cells are 0.
func (m *Matrix) Get(id, col string) int {
	return m.cells[id][col]
}

// Has reports whether the matrix has a row for id.
func (m *Matrix) Has(id string) bool {
	_, ok := m.cells[id]
	return ok
}

// AddRow adds a row for a volume and marks each label as present. Empty
// labels are ignored.
func (m *Matrix) AddRow(id string, labels ...string) {
	m.row(id)
	for _, l := range labels {
		if l != "" {
			m.Set(id, l, 1)
		}
	}
}

// AddVolume adds a row for a volume and marks every label found in spans.
func (m *Matrix) AddVolume(id string, spans []bio.Span) {
	labels := make([]string, len(spans))
	for i, s := range spans {
		labels[i] = s.Label
	}
	m.AddRow(id, labels...)
}

// ReadMatrix reads a CSV whose first column holds volume ids and whose
// header row holds the labels. Header cells keep only their last word, so
// full Heurist names reduce to h-tags.
func ReadMatrix(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, &errors.ParseError{Format: "CSV", Message: err.Error(), Err: err}
	}
	return matrixFromRecords(records)
}

func matrixFromRecords(records [][]string) (*Matrix, error) {
	if len(records) == 0 {
		return NewMatrix(), nil
	}
	header := records[0]
	if len(header) == 0 {
		return NewMatrix(), nil
	}
	cols := make([]string, 0, len(header))
	for _, h := range header[1:] {
		f := strings.Fields(h)
		if len(f) == 0 {
			cols = append(cols, "")
			continue
		}
		cols = append(cols, f[len(f)-1])
	}
	m := NewMatrix(cols...)
	for n, rec := range records[1:] {
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		id := strings.TrimSpace(rec[0])
		row := m.row(id)
		for i, cell := range rec[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" || i >= len(cols) {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, &errors.ParseError{Format: "CSV", Line: n + 2, Message: fmt.Sprintf("column %q: %v", cols[i], err), Err: err}
			}
			if v != 0 {
				row[cols[i]] = 1
			}
		}
	}
	return m, nil
}

// WriteMatrix writes the matrix in the layout ReadMatrix accepts.
func WriteMatrix(w io.Writer, m *Matrix) error {
	cw := csv.NewWriter(w)
	header := append([]string{""}, m.Columns...)
	if err := cw.Write(header); err != nil {
		return errors.NewIO("write", "", err)
	}
	for _, id := range m.rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, id)
		for _, c := range m.Columns {
			rec = append(rec, strconv.Itoa(m.Get(id, c)))
		}
		if err := cw.Write(rec); err != nil {
			return errors.NewIO("write", "", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.NewIO("write", "", err)
	}
	return nil
}

// CompareMatrices scores a predicted presence matrix against a hand-labelled
// one. Only columns present in both are compared. Each volume of truth
// that pred also has yields one report; volumes are taken in id order.
func CompareMatrices(truth, pred *Matrix) ([]Report, error) {
	var common []string
	for _, c := range truth.Columns {
		if pred.hasColumn(c) {
			common = append(common, c)
		}
	}
	if len(common) == 0 {
		return nil, errors.NewValidation("columns", "matrices share no label column")
	}

	ids := append([]string(nil), truth.rows...)
	sort.Strings(ids)
	var reports []Report
	for _, id := range ids {
		if !pred.Has(id) {
			continue
		}
		t := make([]string, len(common))
		p := make([]string, len(common))
		for i, c := range common {
			t[i] = strconv.Itoa(truth.Get(id, c))
			p[i] = strconv.Itoa(pred.Get(id, c))
		}
		r, err := Classification(id, t, p)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}
