package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincopilot/fincopilot/internal/model"
)

// ChaseParser converts Chase bank checking CSV exports to canonical rows.
// Chase reports a single signed amount; positive amounts become credits and
// negative amounts become debits.
type ChaseParser struct{}

const (
	chaseDateFormat = "01/02/2006"
	chaseNumFields  = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
	chaseColBalance = 5
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return FormatChase }

// Parse reads a Chase CSV and returns a canonical Table.
func (p *ChaseParser) Parse(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("reading chase CSV: %w", err)
	}

	table := Table{Columns: CanonicalColumns}
	if len(records) <= 1 {
		return table, nil
	}

	refs := make(map[string]int)
	for i, rec := range records[1:] {
		row, err := chaseRow(rec)
		if err != nil {
			return Table{}, &LoadError{Source: FormatChase, Line: i + 2, Err: err}
		}
		row[len(row)-1] = nthRef(refs, row[len(row)-1])
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func chaseRow(rec []string) ([]string, error) {
	date, err := time.Parse(chaseDateFormat, rec[chaseColDate])
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", rec[chaseColDate], err)
	}

	amount, err := decimal.NewFromString(rec[chaseColAmount])
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", rec[chaseColAmount], err)
	}

	var credit, debit string
	if amount.IsPositive() {
		credit = amount.String()
	} else {
		debit = amount.Abs().String()
	}

	desc := rec[chaseColDesc]
	// Column order follows CanonicalColumns.
	return []string{
		date.Format(model.DateFormat),
		desc,
		credit,
		debit,
		strings.TrimSpace(rec[chaseColBalance]),
		"",
		makeChaseRef(date, desc),
	}, nil
}

// nthRef numbers repeats of base within one file: the first keeps base, the
// second becomes base_2 and so on. Same-day purchases at one merchant stay
// distinct while a re-imported statement yields the same refs.
func nthRef(seen map[string]int, base string) string {
	seen[base]++
	if n := seen[base]; n > 1 {
		return fmt.Sprintf("%s_%d", base, n)
	}
	return base
}

// makeChaseRef creates a reference like chase_20250103_GITHUBPROS.
func makeChaseRef(date time.Time, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("chase_%s_%s", date.Format("20060102"), prefix)
}
