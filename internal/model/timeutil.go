package model

import "time"

// Nashville is the court's local time zone. Boundary projections and
// docket dates are interpreted in it.
var Nashville = mustLoadLocation("America/Chicago")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// Millis projects a time onto milliseconds since the Unix epoch, the
// format the export layer and legacy consumers expect.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis is the inverse of Millis, in court local time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).In(Nashville)
}

// DayStart truncates to midnight court local time.
func DayStart(t time.Time) time.Time {
	local := t.In(Nashville)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Nashville)
}

// DayEnd is the last instant of the day in court local time.
func DayEnd(t time.Time) time.Time {
	return DayStart(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// WithinDays reports whether two dates fall within n days of each other.
func WithinDays(a, b time.Time, n int) bool {
	diff := DayStart(a).Sub(DayStart(b))
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(n)*24*time.Hour
}
