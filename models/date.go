package models

import "time"

// DayFormat is the calendar-date layout used throughout the state tree.
// Dates are stored as plain strings so they sort lexicographically and
// survive JSON round-trips without timezone drift.
const DayFormat = "2006-01-02"

// Date is a calendar date (YYYY-MM-DD). The zero value means "never".
type Date string

// DateOf truncates a wall-clock instant to its calendar date.
func DateOf(t time.Time) Date {
	return Date(t.Format(DayFormat))
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == ""
}

// Time parses the date at UTC midnight. UTC keeps day arithmetic exact:
// local midnights drift under DST, where a 23-hour day would truncate a
// one-day gap to zero. Invalid or empty dates return the zero time.
func (d Date) Time() time.Time {
	t, err := time.ParseInLocation(DayFormat, string(d), time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// DaysBetween returns the absolute number of calendar days between two
// dates. Either date being unset yields 0.
func DaysBetween(a, b Date) int {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	diff := b.Time().Sub(a.Time())
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}
