package availability

import (
	"time"

	"salonbook/internal/models"
)

// SlotStep is the distance between candidate starts. Bookings store a whole start hour.
const SlotStep = 60

// Schedule maps a weekday to its opening hours. A missing weekday is closed.
type Schedule map[time.Weekday]models.Hours

// WindowFor returns the opening window of date's weekday.
func (s Schedule) WindowFor(date time.Time) (models.Interval, bool) {
	hours, ok := s[date.Weekday()]
	if !ok || hours.Close <= hours.Open {
		return models.Interval{}, false
	}
	return hours.Window(), true
}

// DefaultSchedule opens every day with the default hours.
func DefaultSchedule() Schedule {
	s := make(Schedule, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		s[d] = models.Hours{Open: models.DefaultOpenHour, Close: models.DefaultCloseHour}
	}
	return s
}

// FreeStarts walks candidate starts from window.Start in SlotStep increments and keeps
// those whose [start, start+duration) fits the window, overlaps no busy interval and
// starts after notBefore. Pass a negative notBefore to keep every start.
func FreeStarts(window models.Interval, duration int, busy []models.Interval, notBefore int) []int {
	starts := []int{}
	if duration <= 0 {
		return starts
	}
	for start := window.Start; start+duration <= window.End; start += SlotStep {
		if start <= notBefore {
			continue
		}
		if overlapsAny(models.Interval{Start: start, End: start + duration}, busy) {
			continue
		}
		starts = append(starts, start)
	}
	return starts
}

// Fits reports whether candidate lies inside window and clears every busy interval.
func Fits(window, candidate models.Interval, busy []models.Interval) bool {
	return window.Contains(candidate) && !overlapsAny(candidate, busy)
}

func overlapsAny(candidate models.Interval, busy []models.Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}

func busyIntervals(bookings []models.Booking) []models.Interval {
	out := make([]models.Interval, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.Interval())
	}
	return out
}

func formatStarts(starts []int) []string {
	out := make([]string, 0, len(starts))
	for _, s := range starts {
		out = append(out, models.FormatMinutes(s))
	}
	return out
}
