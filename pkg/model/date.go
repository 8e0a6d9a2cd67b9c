// pkg/model/date.go
package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date layout used in storage and checkpoints
const DateLayout = "2006-01-02"

// Date is an optional calendar date without time of day. The zero value
// is absent and is stored as NULL.
type Date struct {
	t     time.Time
	valid bool
}

// DateOf returns the calendar date of t in t's location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), valid: true}
}

// ParseDate parses the date portion of an ISO-8601 value, ignoring any
// time of day ("2024-05-01T10:00:00.000-0300" is 2024-05-01). An empty
// string is an absent date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}

	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t, valid: true}, nil
}

// Valid reports whether the date is present
func (d Date) Valid() bool {
	return d.valid
}

// Time returns the date at midnight UTC
func (d Date) Time() time.Time {
	return d.t
}

// Before reports whether d is strictly earlier than other. Absent dates
// sort after present ones.
func (d Date) Before(other Date) bool {
	switch {
	case !d.valid:
		return false
	case !other.valid:
		return true
	default:
		return d.t.Before(other.t)
	}
}

func (d Date) String() string {
	if !d.valid {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Value implements driver.Valuer
func (d Date) Value() (driver.Value, error) {
	if !d.valid {
		return nil, nil
	}
	return d.t.Format(DateLayout), nil
}

// Scan implements sql.Scanner
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}
