package store

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/fincopilot/fincopilot/internal/model"
)

// timestampLayout is how store-side timestamps are written by this package.
const timestampLayout = "2006-01-02 15:04:05.000"

// timeLayouts are tried in order when a timestamp column comes back as text.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	timestampLayout,
	time.RFC3339Nano,
	model.DateFormat,
}

// nullTime scans TIMESTAMP and DATE columns. The driver may hand back a
// time.Time or the stored text depending on the declared column type.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (n *nullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into a timestamp", src)
	}
}

func (n *nullTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

// Ptr returns nil for NULL.
func (n nullTime) Ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// Value lets nullTime be passed back as an argument.
func (n nullTime) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Time.UTC().Format(timestampLayout), nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
