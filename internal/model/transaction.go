package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxnType carries the sign of a transaction; amounts are stored as magnitudes.
type TxnType string

const (
	TxnCredit TxnType = "CREDIT"
	TxnDebit  TxnType = "DEBIT"
)

// Valid reports whether t is CREDIT or DEBIT.
func (t TxnType) Valid() bool {
	return t == TxnCredit || t == TxnDebit
}

// DateFormat is the ISO layout used for every stored calendar date.
const DateFormat = "2006-01-02"

// SourceFile is the default provenance tag for rows loaded from tabular input.
const SourceFile = "File"

// Transaction is one bank ledger entry.
type Transaction struct {
	ID             int64
	Date           time.Time
	Description    string
	Amount         decimal.Decimal // magnitude, never negative
	Type           TxnType
	ClosingBalance *decimal.Decimal
	Account        *string
	RefNo          *string
	Category       *string // filled by the external categorizer
	Source         string
	CreatedAt      time.Time
}

// Signed returns the amount with the sign implied by Type.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TxnDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Record returns the field mapping used to insert t. ID and CreatedAt are
// store-assigned and therefore omitted.
func (t Transaction) Record() Record {
	rec := Record{
		"transaction_date": t.Date.Format(DateFormat),
		"description":      t.Description,
		"amount":           t.Amount,
		"type":             string(t.Type),
		"source":           t.Source,
	}
	if t.ClosingBalance != nil {
		rec["closing_balance"] = *t.ClosingBalance
	}
	if t.Account != nil {
		rec["account"] = *t.Account
	}
	if t.RefNo != nil {
		rec["ref_no"] = *t.RefNo
	}
	if t.Category != nil {
		rec["category"] = *t.Category
	}
	return rec
}

// StringPtr returns nil for an empty string, otherwise a pointer to s.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DerefString returns *s, or "" when s is nil.
func DerefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
