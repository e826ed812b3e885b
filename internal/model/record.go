package model

import "sort"

// Record is a column-name to value mapping for a single row. Values are
// anything database/sql accepts as an argument or yields from a scan.
type Record map[string]any

// Columns returns the record's keys in sorted order so generated SQL is
// deterministic.
func (r Record) Columns() []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// String returns the value of col as a string when it holds text.
func (r Record) String(col string) (string, bool) {
	switch v := r[col].(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}
