package eval

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FocuswithJustin/horae/core/errors"
)

const maxSheetName = 31

var sheetNameCleaner = strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")")

func sheetName(name string, used map[string]bool) string {
	base := sheetNameCleaner.Replace(strings.TrimSpace(name))
	if base == "" {
		base = "Sheet"
	}
	if r := []rune(base); len(r) > maxSheetName {
		base = string(r[:maxSheetName])
	}
	out := base
	for n := 2; used[strings.ToLower(out)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		out = string(r) + suffix
	}
	used[strings.ToLower(out)] = true
	return out
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeReportSheet(f *excelize.File, sheet string, r Report) error {
	if err := setRow(f, sheet, 1, []any{"", "precision", "recall", "f1-score", "support"}); err != nil {
		return err
	}
	n := 2
	put := func(row Row) error {
		err := setRow(f, sheet, n, []any{row.Label, row.Precision, row.Recall, row.F1, row.Support})
		n++
		return err
	}
	for _, row := range r.Rows {
		if err := put(row); err != nil {
			return err
		}
	}
	if r.Micro != nil {
		if err := put(*r.Micro); err != nil {
			return err
		}
	} else {
		if err := setRow(f, sheet, n, []any{"accuracy", nil, nil, r.Accuracy, r.Total}); err != nil {
			return err
		}
		n++
	}
	if err := put(r.Macro); err != nil {
		return err
	}
	return put(r.Weighted)
}

func writeMatrixSheet(f *excelize.File, sheet string, m *Matrix) error {
	header := make([]any, 0, len(m.Columns)+1)
	header = append(header, "")
	for _, c := range m.Columns {
		header = append(header, c)
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, id := range m.rows {
		row := make([]any, 0, len(header))
		row = append(row, id)
		for _, c := range m.Columns {
			row = append(row, m.Get(id, c))
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

// WriteWorkbook writes an XLSX workbook with one sheet per report and, when
// m is not nil, a first "matrix" sheet holding the presence matrix.
func WriteWorkbook(w io.Writer, reports []Report, m *Matrix) error {
	f := excelize.NewFile()
	defer f.Close()

	const first = "Sheet1"
	used := make(map[string]bool)
	var names []string
	if m != nil {
		names = append(names, sheetName("matrix", used))
	}
	for _, r := range reports {
		names = append(names, sheetName(r.Name, used))
	}
	if len(names) == 0 {
		names = append(names, sheetName("empty", used))
	}

	if err := f.SetSheetName(first, names[0]); err != nil {
		return errors.Wrap(err, "xlsx")
	}
	for _, name := range names[1:] {
		if _, err := f.NewSheet(name); err != nil {
			return errors.Wrap(err, "xlsx")
		}
	}

	i := 0
	if m != nil {
		if err := writeMatrixSheet(f, names[0], m); err != nil {
			return errors.Wrap(err, "xlsx matrix")
		}
		i = 1
	}
	for _, r := range reports {
		if err := writeReportSheet(f, names[i], r); err != nil {
			return errors.Wrapf(err, "xlsx report %s", r.Name)
		}
		i++
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.NewIO("write", "", err)
	}
	return nil
}

// ReadMatrixXLSX reads a presence matrix from the first sheet of an XLSX
// workbook laid out like the CSV form.
func ReadMatrixXLSX(content []byte) (*Matrix, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, &errors.ParseError{Format: "XLSX", Message: err.Error(), Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return NewMatrix(), nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &errors.ParseError{Format: "XLSX", Message: err.Error(), Err: err}
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	records := make([][]string, len(rows))
	for i, row := range rows {
		rec := make([]string, width)
		copy(rec, row)
		records[i] = rec
	}
	return matrixFromRecords(records)
}
