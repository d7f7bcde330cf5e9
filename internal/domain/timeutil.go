package domain

import "time"

// DayFormat is the layout for local calendar-day bucket keys.
const DayFormat = "2006-01-02"

// DayOf returns the local calendar-day bucket key for an instant.
func DayOf(t time.Time) string {
	return t.Local().Format(DayFormat)
}

// LaterOf returns the later of two instants; b when they are equal.
func LaterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
