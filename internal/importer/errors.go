package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongFileType is returned for input that is not a Path, Text or Table,
	// or a Path that does not name a regular file.
	ErrWrongFileType = errors.New("wrong file type")

	// ErrLoad matches every *LoadError.
	ErrLoad = errors.New("load failed")
)

// SourceError reports an input that cannot be normalized at all.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// LoadError reports a source that was recognized but could not be read or
// parsed. Line is the 1-based input line, counting the header as line 1;
// zero when the failure is not tied to a row.
type LoadError struct {
	Source string
	Line   int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("loading %s: row %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("loading %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrLoad) hold for any LoadError.
func (e *LoadError) Is(target error) bool { return target == ErrLoad }
