package model

import "time"

// Recipient is one destination for a personalized send. Identity for
// deduplication is Email alone; Company only feeds template substitution.
type Recipient struct {
	Email   string
	Company string
}

// SentRecord is one successful send, appended to the sent-log.
type SentRecord struct {
	Email    string
	Company  string
	DateSent time.Time
}

// DayFormat is the calendar-date format used in the sent-log and
// everywhere two sends are compared for same-day equality.
const DayFormat = "2006-01-02"

// Day truncates t to its calendar date string in t's own location.
func Day(t time.Time) string {
	return t.Format(DayFormat)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return Day(a) == Day(b)
}
