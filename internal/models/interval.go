package models

import (
	"fmt"
	"time"
)

// Interval is a half-open span [Start, End) in minutes from midnight.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two half-open intervals share any minute.
// Touching intervals do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// Contains reports whether other lies entirely inside i.
func (i Interval) Contains(other Interval) bool {
	return other.Start >= i.Start && other.End <= i.End
}

// Hours is a daily opening window expressed in whole hours, Close exclusive.
type Hours struct {
	Open  int `json:"open" yaml:"open"`
	Close int `json:"close" yaml:"close"`
}

func (h Hours) Window() Interval {
	return Interval{Start: h.Open * 60, End: h.Close * 60}
}

func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseDate parses YYYY-MM-DD as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}

// DateOf truncates t to midnight in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
