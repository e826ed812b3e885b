package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source is the input to normalization: a Path, a Text buffer or an
// already parsed Table. The set is closed.
type Source interface {
	isSource()
}

// Path names a delimited file on disk. A leading "~" is expanded. When the
// file does not exist the string itself is parsed as delimited content.
type Path string

// Text is in-memory delimited content.
type Text string

// Table is already parsed tabular input. Columns is the header row.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (Path) isSource()  {}
func (Text) isSource()  {}
func (Table) isSource() {}

// Canonical input columns, matched exactly and case-sensitively.
const (
	ColDate           = "transaction_date"
	ColDescription    = "description"
	ColCredit         = "credit"
	ColDebit          = "debit"
	ColClosingBalance = "closing_balance"
	ColAccount        = "account"
	ColRefNo          = "ref_no"
	ColCategory       = "category"
	ColSource         = "source" // provenance; blank cells take Options.Source
)

// CanonicalColumns is the column order written by the built-in parsers.
var CanonicalColumns = []string{
	ColDate, ColDescription, ColCredit, ColDebit, ColClosingBalance, ColAccount, ColRefNo,
}

var requiredColumns = []string{ColDate, ColDescription}

// columnIndex maps column names to their positions in a row.
type columnIndex map[string]int

func (t Table) index() (columnIndex, error) {
	idx := make(columnIndex, len(t.Columns))
	for i, c := range t.Columns {
		if i == 0 {
			c = strings.TrimPrefix(c, "\ufeff")
		}
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		idx[c] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func (idx columnIndex) cell(row []string, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ExpandPath expands a leading "~" to the user's home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
