package core

import "time"

// TransactionFilter selects transactions whose TransactionDate lies in
// [From, To], optionally narrowed by category and division.
type TransactionFilter struct {
	From     time.Time
	To       time.Time
	Category string   // empty matches any
	Division Division // empty matches any
}

// DayRange covers whole calendar days from start to end in loc: start at
// 00:00:00 and end at the last instant of its day, both inclusive.
func DayRange(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	from := time.Date(sy, sm, sd, 0, 0, 0, 0, loc)
	to := time.Date(ey, em, ed+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	return from, to
}

// NewDayFilter builds a filter for the whole days between start and end.
func NewDayFilter(start, end time.Time, loc *time.Location) TransactionFilter {
	from, to := DayRange(start, end, loc)
	return TransactionFilter{From: from, To: to}
}

// Matches reports whether t satisfies every set criterion of f.
func (f TransactionFilter) Matches(t Transaction) bool {
	if t.TransactionDate.Before(f.From) || t.TransactionDate.After(f.To) {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Division != "" && t.Division != f.Division {
		return false
	}
	return true
}
