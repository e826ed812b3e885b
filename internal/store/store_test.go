package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincopilot/fincopilot/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newTestStore opens a fresh store in a temp directory and readies it.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "data", "fincopilot.db")}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureReady(context.Background()))
	return s
}

func txn(ref, desc string, amount string, typ model.TxnType) model.Transaction {
	return model.Transaction{
		Date:        date(2025, 1, 15),
		Description: desc,
		Amount:      dec(amount),
		Type:        typ,
		RefNo:       model.StringPtr(ref),
		Source:      model.SourceFile,
	}
}

func countRows(t *testing.T, s *Store, k Kind) int {
	t.Helper()
	n, err := s.Count(context.Background(), k)
	require.NoError(t, err)
	return n
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(Config{}, zerolog.Nop())
	require.Error(t, err)
}

func TestOpen_RejectsDSNCharacters(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"fin?copilot.db", "fin#copilot.db"} {
		_, err := Open(Config{Path: filepath.Join(dir, name)}, zerolog.Nop())
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "must not contain")
	}
}

func TestOpen_DoesNotCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fincopilot.db")
	s, err := Open(Config{Path: path}, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEnsureReady_CreatesMissingStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := os.Stat(s.Path())
	require.NoError(t, err)

	status, err := s.IntegrityCheck(ctx)
	require.NoError(t, err)
	assert.Equal(t, HealthyStatus, status)

	for _, k := range Kinds {
		assert.Zero(t, countRows(t, s, k), k.String())
	}
}

func TestEnsureReady_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var before int
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA schema_version").Scan(&before))

	require.NoError(t, s.EnsureReady(ctx))

	var after int
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA schema_version").Scan(&after))
	assert.Equal(t, before, after, "second EnsureReady must not touch the schema")
}

func TestEnsureReady_ReopenExistingStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _, err := s.InsertOne(ctx, KindUserSetting, model.Record{"key": "currency", "value": "USD"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(Config{Path: s.Path()}, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.EnsureReady(ctx))
	assert.Equal(t, 1, countRows(t, reopened, KindUserSetting))
}

func TestEnsureReady_ZeroByteFileGetsSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fincopilot.db")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := Open(Config{Path: path}, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.EnsureReady(ctx))
	assert.Zero(t, countRows(t, s, KindTransaction))
}

func TestEnsureReady_GarbageFileIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fincopilot.db")
	garbage := make([]byte, 4096)
	copy(garbage, "this is not a sqlite database")
	require.NoError(t, os.WriteFile(path, garbage, 0o644))

	s, err := Open(Config{Path: path}, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	err = s.EnsureReady(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptStore)

	var cse *CorruptStoreError
	require.ErrorAs(t, err, &cse)
	assert.Equal(t, path, cse.Path)
}

// existingFile returns a path that passes the existence check so EnsureReady
// goes straight to the integrity check.
func existingFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fincopilot.db")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

func TestEnsureReady_CorruptSentinel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("PRAGMA integrity_check")).
		WillReturnRows(sqlmock.NewRows([]string{"integrity_check"}).
			AddRow("*** in database main ***\nPage 3 is never used"))

	s := New(db, Config{Path: existingFile(t)}, zerolog.Nop())
	err = s.EnsureReady(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptStore)
	var cse *CorruptStoreError
	require.ErrorAs(t, err, &cse)
	assert.Contains(t, cse.Status, "in database main")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureReady_HungIntegrityCheckTimesOut(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("PRAGMA integrity_check")).
		WillDelayFor(5 * time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"integrity_check"}).AddRow("ok"))

	s := New(db, Config{Path: existingFile(t), ReadyTimeout: 50 * time.Millisecond}, zerolog.Nop())

	start := time.Now()
	err = s.EnsureReady(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptStore)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestIntegrityCheck_NormalizesStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("PRAGMA integrity_check")).
		WillReturnRows(sqlmock.NewRows([]string{"integrity_check"}).AddRow("  OK \n"))

	s := New(db, Config{Path: "unused"}, zerolog.Nop())
	status, err := s.IntegrityCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HealthyStatus, status)
}

func TestInsertOne(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, ok, err := s.InsertOne(ctx, KindTransaction, txn("REF-1", "Salary", "150", model.TxnCredit).Record())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Positive(t, id)
	assert.Equal(t, 1, countRows(t, s, KindTransaction))
}

func TestInsertOne_EmptyRecordIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, rec := range []model.Record{nil, {}} {
		id, ok, err := s.InsertOne(ctx, KindTransaction, rec)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, id)
	}
	assert.Zero(t, countRows(t, s, KindTransaction))
}

func TestInsertOne_UnknownColumn(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.InsertOne(context.Background(), KindTransaction, model.Record{"bogus; DROP TABLE x": 1})
	require.Error(t, err)
	assert.False(t, ok)

	var ce *ColumnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindTransaction, ce.Kind)
}

func TestInsertOne_ConstraintViolationLeavesNothing(t *testing.T) {
	s := newTestStore(t)

	rec := txn("REF-1", "Bad", "-5", model.TxnDebit).Record()
	_, ok, err := s.InsertOne(context.Background(), KindTransaction, rec)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Zero(t, countRows(t, s, KindTransaction))
}

func TestBulkInsert_EmptyIsNoop(t *testing.T) {
	s := newTestStore(t)

	n, err := s.BulkInsert(context.Background(), KindTransaction, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, countRows(t, s, KindTransaction))
}

func TestBulkInsert_RoundTripsThroughVerify(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	bal := dec("1150.00")
	salary := txn("REF-1001", "Salary", "150.00", model.TxnCredit)
	salary.ClosingBalance = &bal
	salary.Account = model.StringPtr("ACC-001")
	coffee := txn("REF-1002", "Coffee", "42.5", model.TxnDebit)

	n, err := s.BulkInsert(ctx, KindTransaction, []model.Record{salary.Record(), coffee.Record()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, want := range []model.Transaction{salary, coffee} {
		rec, found, err := s.VerifyByRef(ctx, KindTransaction, *want.RefNo)
		require.NoError(t, err)
		require.True(t, found)

		desc, _ := rec.String("description")
		assert.Equal(t, want.Description, desc)
		typ, _ := rec.String("type")
		assert.Equal(t, string(want.Type), typ)
		day, _ := rec.String("transaction_date")
		assert.Equal(t, "2025-01-15", day)
		amount, _ := rec.String("amount")
		assert.True(t, dec(amount).Equal(want.Amount), "amount %s", amount)
	}

	rec, _, err := s.VerifyByRef(ctx, KindTransaction, "REF-1001")
	require.NoError(t, err)
	acct, _ := rec.String("account")
	assert.Equal(t, "ACC-001", acct)
	balance, _ := rec.String("closing_balance")
	assert.True(t, dec(balance).Equal(bal))
}

func TestBulkInsert_IsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	good := txn("REF-1", "Salary", "150", model.TxnCredit).Record()
	bad := txn("REF-2", "x", "10", model.TxnDebit).Record()
	delete(bad, "description")

	_, err := s.BulkInsert(ctx, KindTransaction, []model.Record{good, bad})
	require.Error(t, err)
	assert.Zero(t, countRows(t, s, KindTransaction))

	_, found, err := s.VerifyByRef(ctx, KindTransaction, "REF-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBulkInsert_EmptyRecordInBatchRollsBack(t *testing.T) {
	s := newTestStore(t)

	good := txn("REF-1", "Salary", "150", model.TxnCredit).Record()
	_, err := s.BulkInsert(context.Background(), KindTransaction, []model.Record{good, {}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, countRows(t, s, KindTransaction))
}

func TestBulkInsert_CommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO transactions").
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	s := New(db, Config{Path: "unused"}, zerolog.Nop())
	n, err := s.BulkInsert(context.Background(), KindTransaction,
		[]model.Record{txn("REF-1", "Salary", "150", model.TxnCredit).Record()})

	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyByRef_NotFound(t *testing.T) {
	s := newTestStore(t)

	rec, found, err := s.VerifyByRef(context.Background(), KindTransaction, "NOPE")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, rec)
}

func TestVerifyByRef_ReturnsLowestID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.InsertTransactions(ctx, []model.Transaction{
		txn("DUP", "first", "1", model.TxnCredit),
		txn("DUP", "second", "2", model.TxnCredit),
	})
	require.NoError(t, err)

	rec, found, err := s.VerifyByRef(ctx, KindTransaction, "DUP")
	require.NoError(t, err)
	require.True(t, found)
	desc, _ := rec.String("description")
	assert.Equal(t, "first", desc)
}

func TestVerifyByRef_KindWithoutRef(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.VerifyByRef(context.Background(), KindGoal, "x")
	assert.ErrorIs(t, err, ErrNoRefColumn)
}

func TestCount_UnknownKind(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Count(context.Background(), Kind(99))
	assert.Error(t, err)
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestCorruptStoreError(t *testing.T) {
	cause := errors.New("boom")
	err := error(&CorruptStoreError{Path: "/x.db", Err: cause})
	assert.ErrorIs(t, err, ErrCorruptStore)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")

	err = &CorruptStoreError{Path: "/x.db", Status: "row 3 missing"}
	assert.ErrorIs(t, err, ErrCorruptStore)
	assert.Contains(t, err.Error(), "row 3 missing")
}
