package analytics

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("invalid date range")

// DefaultDays is the rolling window used when a caller gives none.
const DefaultDays = 30

// Window returns [now-days, now]. Non-positive days fall back to DefaultDays.
func Window(days int, now time.Time) (time.Time, time.Time) {
	if days <= 0 {
		days = DefaultDays
	}
	return now.AddDate(0, 0, -days), now
}

// DayRange converts an inclusive day range within one month into the
// half-open interval [startDay 00:00, endDay+1 00:00) in loc. endDay is
// clamped to the length of the month, so 31 works for every month.
func DayRange(startDay, endDay, month, year int, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if month < 1 || month > 12 || year < 1970 || year > 9999 {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	if startDay < 1 || startDay > 31 || endDay < 1 || endDay > 31 || startDay > endDay {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}

	last := daysIn(time.Month(month), year)
	if startDay > last {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	if endDay > last {
		endDay = last
	}

	from := time.Date(year, time.Month(month), startDay, 0, 0, 0, 0, loc)
	to := time.Date(year, time.Month(month), endDay+1, 0, 0, 0, 0, loc)
	return from, to, nil
}

// DayBounds returns the calendar day containing t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 0, 1)
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
