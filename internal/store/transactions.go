package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincopilot/fincopilot/internal/model"
)

const transactionColumns = `id, transaction_date, description, amount, type, closing_balance,
	account, ref_no, category, source, created_at`

// TransactionFilter narrows ListTransactions. Zero fields match everything.
type TransactionFilter struct {
	Account string
	From    time.Time // inclusive
	To      time.Time // inclusive
	Type    model.TxnType
	Limit   int
}

// Scope selects the rows one account holds in a date range. A nil Account
// selects rows without an account.
type Scope struct {
	Account *string
	From    time.Time
	To      time.Time
}

func (sc Scope) String() string {
	acct := "<none>"
	if sc.Account != nil {
		acct = *sc.Account
	}
	return fmt.Sprintf("%s [%s, %s]", acct, sc.From.Format(model.DateFormat), sc.To.Format(model.DateFormat))
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		t                        model.Transaction
		date                     string
		typ                      string
		balance                  decimal.NullDecimal
		account, refNo, category sql.NullString
		source                   sql.NullString
		created                  nullTime
	)
	err := row.Scan(&t.ID, &date, &t.Description, &t.Amount, &typ, &balance,
		&account, &refNo, &category, &source, &created)
	if err != nil {
		return model.Transaction{}, err
	}
	t.Date, err = time.Parse(model.DateFormat, date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %d: bad date %q: %w", t.ID, date, err)
	}
	t.Type = model.TxnType(typ)
	if balance.Valid {
		b := balance.Decimal
		t.ClosingBalance = &b
	}
	t.Account = nullStringPtr(account)
	t.RefNo = nullStringPtr(refNo)
	t.Category = nullStringPtr(category)
	t.Source = source.String
	t.CreatedAt = created.Time
	return t, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// InsertTransactions bulk-inserts txns. See BulkInsert.
func (s *Store) InsertTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	return s.BulkInsert(ctx, KindTransaction, transactionRecords(txns))
}

func transactionRecords(txns []model.Transaction) []model.Record {
	recs := make([]model.Record, len(txns))
	for i, t := range txns {
		recs[i] = t.Record()
	}
	return recs
}

// TransactionByRef returns the lowest-id transaction with the given ref_no.
func (s *Store) TransactionByRef(ctx context.Context, refNo string) (model.Transaction, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE ref_no = ? ORDER BY id LIMIT 1", refNo)
	t, err := scanTransaction(row)
	if notFound(err) {
		return model.Transaction{}, false, nil
	}
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("looking up transaction %q: %w", refNo, err)
	}
	return t, true, nil
}

// ListTransactions returns transactions ordered by date then id.
func (s *Store) ListTransactions(ctx context.Context, f TransactionFilter) ([]model.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.Account != "" {
		where = append(where, "account = ?")
		args = append(args, f.Account)
	}
	if !f.From.IsZero() {
		where = append(where, "transaction_date >= ?")
		args = append(args, f.From.Format(model.DateFormat))
	}
	if !f.To.IsZero() {
		where = append(where, "transaction_date <= ?")
		args = append(args, f.To.Format(model.DateFormat))
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY transaction_date, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txns, nil
}

// refChunk keeps IN lists well under SQLite's bound-parameter limit.
const refChunk = 500

// ExistingRefs reports which of refs are already stored.
func (s *Store) ExistingRefs(ctx context.Context, refs []string) (map[string]bool, error) {
	found := make(map[string]bool)
	for start := 0; start < len(refs); start += refChunk {
		end := min(start+refChunk, len(refs))
		chunk := refs[start:end]

		args := make([]any, len(chunk))
		for i, r := range chunk {
			args[i] = r
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(chunk)), ", ")
		rows, err := s.db.QueryContext(ctx,
			"SELECT DISTINCT ref_no FROM transactions WHERE ref_no IN ("+placeholders+")", args...)
		if err != nil {
			return nil, fmt.Errorf("looking up existing refs: %w", err)
		}
		for rows.Next() {
			var ref string
			if err := rows.Scan(&ref); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning ref: %w", err)
			}
			found[ref] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("looking up existing refs: %w", err)
		}
	}
	return found, nil
}

// ReplaceTransactions deletes every row inside scopes and inserts txns, in
// one transaction. Nothing changes if any step fails.
func (s *Store) ReplaceTransactions(ctx context.Context, scopes []Scope, txns []model.Transaction) (deleted, inserted int, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, sc := range scopes {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM transactions WHERE account IS ? AND transaction_date BETWEEN ? AND ?`,
				scopeAccount(sc), sc.From.Format(model.DateFormat), sc.To.Format(model.DateFormat))
			if err != nil {
				return fmt.Errorf("clearing %s: %w", sc, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			deleted += int(n)
		}
		if len(txns) == 0 {
			return nil
		}
		inserted, err = insertAll(ctx, tx, KindTransaction, transactionRecords(txns))
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Int("scopes", len(scopes)).Msg("replace rolled back")
		return 0, 0, fmt.Errorf("replacing transactions: %w", err)
	}
	s.log.Info().Int("deleted", deleted).Int("inserted", inserted).Msg("transactions replaced")
	return deleted, inserted, nil
}

func scopeAccount(sc Scope) any {
	if sc.Account == nil {
		return nil
	}
	return *sc.Account
}
