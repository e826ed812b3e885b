package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fincopilot/fincopilot/internal/model"
)

// InsertOne inserts a single row of kind k in its own transaction and
// returns its rowid. An empty record is skipped with a warning and
// reported as ok=false.
func (s *Store) InsertOne(ctx context.Context, k Kind, rec model.Record) (id int64, ok bool, err error) {
	if len(rec) == 0 {
		s.log.Warn().Err(ErrEmptyInput).Str("kind", k.String()).Msg("EmptyInputWarning: insert called with an empty record, skipping")
		return 0, false, nil
	}
	query, args, err := insertStatement(k, rec)
	if err != nil {
		return 0, false, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Str("kind", k.String()).Msg("insert failed")
		return 0, false, fmt.Errorf("inserting into %s: %w", k, err)
	}
	return id, true, nil
}

// BulkInsert inserts recs as one all-or-nothing unit and returns the number
// of rows written. An empty slice is skipped with a warning. A failing row,
// including an empty record, rolls back the whole batch.
func (s *Store) BulkInsert(ctx context.Context, k Kind, recs []model.Record) (int, error) {
	if len(recs) == 0 {
		s.log.Warn().Err(ErrEmptyInput).Str("kind", k.String()).Msg("EmptyInputWarning: bulk insert called with no rows, skipping")
		return 0, nil
	}

	var n int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = insertAll(ctx, tx, k, recs)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Str("kind", k.String()).Int("rows", len(recs)).Msg("bulk insert rolled back")
		return 0, fmt.Errorf("bulk inserting %d rows into %s: %w", len(recs), k, err)
	}
	s.log.Debug().Str("kind", k.String()).Int("rows", n).Msg("bulk insert committed")
	return n, nil
}

// insertAll writes recs inside tx, reusing one prepared statement per
// distinct column set.
func insertAll(ctx context.Context, tx *sql.Tx, k Kind, recs []model.Record) (int, error) {
	stmts := make(map[string]*sql.Stmt)
	defer func() {
		for _, st := range stmts {
			_ = st.Close()
		}
	}()

	for i, rec := range recs {
		if len(rec) == 0 {
			return 0, fmt.Errorf("row %d: %w", i, ErrEmptyInput)
		}
		query, args, err := insertStatement(k, rec)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		st, ok := stmts[query]
		if !ok {
			st, err = tx.PrepareContext(ctx, query)
			if err != nil {
				return 0, fmt.Errorf("preparing insert: %w", err)
			}
			stmts[query] = st
		}
		if _, err := st.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return len(recs), nil
}

// insertStatement builds the INSERT for rec. Column names are checked
// against the kind's declared columns before they reach the SQL text.
func insertStatement(k Kind, rec model.Record) (string, []any, error) {
	def, ok := k.def()
	if !ok {
		return "", nil, fmt.Errorf("unknown kind %d", k)
	}
	cols := rec.Columns()
	args := make([]any, len(cols))
	for i, c := range cols {
		if !def.columns[c] {
			return "", nil, &ColumnError{Kind: k, Column: c}
		}
		args[i] = rec[c]
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", def.table, strings.Join(cols, ", "), placeholders)
	return query, args, nil
}

// VerifyByRef returns the first row of kind k whose ref_no equals refNo.
// A missing row is reported as found=false with a nil error.
func (s *Store) VerifyByRef(ctx context.Context, k Kind, refNo string) (rec model.Record, found bool, err error) {
	def, ok := k.def()
	if !ok {
		return nil, false, fmt.Errorf("unknown kind %d", k)
	}
	if def.refColumn == "" {
		return nil, false, fmt.Errorf("verify %s: %w", k, ErrNoRefColumn)
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? ORDER BY %s LIMIT 1", def.table, def.refColumn, def.key)
	rows, err := s.db.QueryContext(ctx, query, refNo)
	if err != nil {
		return nil, false, fmt.Errorf("verifying %s ref %q: %w", k, refNo, err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, false, fmt.Errorf("verifying %s ref %q: %w", k, refNo, err)
	}
	if len(recs) == 0 {
		s.log.Debug().Str("kind", k.String()).Str("ref_no", refNo).Msg("ref not found")
		return nil, false, nil
	}
	return recs[0], true, nil
}

// scanRecords reads every remaining row into a Record keyed by column name.
func scanRecords(rows *sql.Rows) ([]model.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var recs []model.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(model.Record, len(cols))
		for i, c := range cols {
			rec[c] = vals[i]
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// notFound maps sql.ErrNoRows to a nil result.
func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
