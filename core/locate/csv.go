package locate

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/FocuswithJustin/horae/core/errors"
)

var csvHeader = []string{"index", "page_id", "offset", "element_id"}

// WriteCSV writes the table with an index,page_id,offset,element_id header.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.NewIO("write", "", err)
	}
	for i, loc := range t {
		rec := []string{strconv.Itoa(i), loc.PageID, strconv.Itoa(loc.Offset), loc.ElementID}
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

// ReadCSV reads a table written by WriteCSV. Rows must be in index order with
// no gaps.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, &errors.ParseError{Format: "CSV", Line: 1, Message: err.Error(), Err: err}
	}
	for i, h := range csvHeader {
		if header[i] != h {
			return nil, &errors.ParseError{Format: "CSV", Line: 1, Message: "unexpected column " + header[i]}
		}
	}

	var t Table
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line := len(t) + 2
		if err != nil {
			return nil, &errors.ParseError{Format: "CSV", Line: line, Message: err.Error(), Err: err}
		}
		idx, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, &errors.ParseError{Format: "CSV", Line: line, Message: "bad index " + rec[0], Err: err}
		}
		if idx != len(t) {
			return nil, errors.NewConsistency(len(t), rec[1], "index "+rec[0]+" out of sequence")
		}
		off, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, &errors.ParseError{Format: "CSV", Line: line, Message: "bad offset " + rec[2], Err: err}
		}
		t = append(t, Location{PageID: rec[1], Offset: off, ElementID: rec[3]})
	}
	return t, nil
}
