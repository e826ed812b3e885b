package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// Built-in format names.
const (
	FormatCanonical = "canonical"
	FormatTSV       = "tsv"
	FormatChase     = "chase"
)

// CanonicalParser reads delimited content whose header already uses the
// canonical column names. The zero value reads comma-separated input.
type CanonicalParser struct {
	Name  string // defaults to "canonical"
	Comma rune   // defaults to ','
}

// Format returns the parser name.
func (p *CanonicalParser) Format() string {
	if p.Name == "" {
		return FormatCanonical
	}
	return p.Name
}

// Parse reads the header and data rows. Empty input yields an empty Table.
func (p *CanonicalParser) Parse(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	if p.Comma != 0 {
		cr.Comma = p.Comma
	}

	records, err := cr.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return Table{}, &LoadError{Source: p.Format(), Line: perr.Line, Err: perr.Err}
		}
		return Table{}, fmt.Errorf("reading %s input: %w", p.Format(), err)
	}

	if len(records) == 0 {
		return Table{}, nil
	}
	return Table{Columns: records[0], Rows: records[1:]}, nil
}
