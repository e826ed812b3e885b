// Package export writes stored transactions back out as canonical CSV that
// the importer reads without loss.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/fincopilot/fincopilot/internal/importer"
	"github.com/fincopilot/fincopilot/internal/model"
)

// ColType is informational; the importer derives type from credit and debit.
const ColType = "type"

// Header is the export column order.
var Header = append(append([]string{}, importer.CanonicalColumns...),
	ColType, importer.ColCategory, importer.ColSource)

const (
	colDate = iota
	colDesc
	colCredit
	colDebit
	colBalance
	colAccount
	colRef
	colType
	colCategory
	colSource
	numFields
)

// WriteTransactions writes the header and one row per transaction.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row in Header order.
// The amount lands in credit or debit according to Type.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colDate] = t.Date.Format(model.DateFormat)
	row[colDesc] = t.Description

	if t.Type == model.TxnCredit {
		row[colCredit] = money(t.Amount)
	} else {
		row[colDebit] = money(t.Amount)
	}
	if t.ClosingBalance != nil {
		row[colBalance] = money(*t.ClosingBalance)
	}

	row[colAccount] = model.DerefString(t.Account)
	row[colRef] = model.DerefString(t.RefNo)
	row[colType] = string(t.Type)
	row[colCategory] = model.DerefString(t.Category)
	row[colSource] = t.Source
	return row
}

// money renders cents with two places and keeps any finer precision.
func money(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}
	return d.String()
}
