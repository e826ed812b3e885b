package store

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptStore matches every *CorruptStoreError.
	ErrCorruptStore = errors.New("store is corrupt")

	// ErrEmptyInput is logged, never returned, when an insert is given no rows.
	ErrEmptyInput = errors.New("empty input")

	// ErrNotFound is returned by updates that match no row.
	ErrNotFound = errors.New("not found")

	// ErrNoRefColumn is returned by VerifyByRef for kinds without ref_no.
	ErrNoRefColumn = errors.New("kind has no ref_no column")
)

// HealthyStatus is the integrity check result of a healthy store.
const HealthyStatus = "ok"

// CorruptStoreError reports a failed integrity check. Status holds what the
// check returned; Err holds the failure when the check could not run.
type CorruptStoreError struct {
	Path   string
	Status string
	Err    error
}

func (e *CorruptStoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store %s: integrity check failed: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("store %s: integrity check returned %q", e.Path, e.Status)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCorruptStore) hold for any CorruptStoreError.
func (e *CorruptStoreError) Is(target error) bool { return target == ErrCorruptStore }

// ColumnError reports a record key that is not a column of the target table.
type ColumnError struct {
	Kind   Kind
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("unknown column %q for %s", e.Column, e.Kind)
}
