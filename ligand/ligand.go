// Package ligand decodes uploaded ligand batch files.
package ligand

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Ligand is a single parsed ligand row.
type Ligand struct {
	Name     string
	SMILES   string
	StdValue float64
}

// ParseError describes a malformed batch file.
type ParseError struct {
	// Row is the 1-based data row that failed, or 0 when the file
	// as a whole is unreadable.
	Row int

	Reason string
}

func (e *ParseError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("ligand: invalid file: %s", e.Reason)
	}
	return fmt.Sprintf("ligand: invalid row %d: %s", e.Row, e.Reason)
}

// Column headers recognised in a batch file.
const (
	colName  = "name"
	colSMILE = "smiles"
	colValue = "std_value"
)

// Parse decodes a delimited-text ligand batch file. The first record
// is a header naming the name, smiles and std_value columns in any
// order. Any malformed row fails the whole parse; partial results are
// never returned.
func Parse(r io.Reader) ([]Ligand, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &ParseError{Reason: "missing header row"}
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, want := range []string{colName, colSMILE, colValue} {
		if _, ok := cols[want]; !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("missing %q column", want)}
		}
	}

	var ligands []Ligand
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Row: row, Reason: err.Error()}
		}

		val, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[colValue]]), 64)
		if err != nil {
			return nil, &ParseError{Row: row, Reason: fmt.Sprintf("non-numeric std_value %q", rec[cols[colValue]])}
		}

		ligands = append(ligands, Ligand{
			Name:     strings.TrimSpace(rec[cols[colName]]),
			SMILES:   strings.TrimSpace(rec[cols[colSMILE]]),
			StdValue: val,
		})
	}

	return ligands, nil
}
