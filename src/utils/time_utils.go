package utils

import (
	"time"

	logger "github.com/sirupsen/logrus"
)

// DateLayout is the day format used for date windows.
const DateLayout = "2006-01-02"

// ResetTime resets the time component based on the granularity specified.
// Pass "minute" to reset seconds, "hour" to reset minutes and seconds,
// and "day" to reset to midnight in t's location.
func ResetTime(t time.Time, granularity string) time.Time {
	switch granularity {
	case "minute":
		return t.Truncate(time.Minute)
	case "hour":
		return t.Truncate(time.Hour)
	case "day":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	default:
		logger.WithField("granularity", granularity).Warn("Invalid granularity, use 'minute', 'hour' or 'day'")
		return t
	}
}

// PreviousBusinessDay is the most recent completed weekday before now.
// Monday walks back to Friday; weekends also land on Friday.
func PreviousBusinessDay(now time.Time) time.Time {
	day := ResetTime(now, "day")
	switch day.Weekday() {
	case time.Monday:
		return day.AddDate(0, 0, -3)
	case time.Sunday:
		return day.AddDate(0, 0, -2)
	default:
		return day.AddDate(0, 0, -1)
	}
}

// DaysAgo returns the calendar day n days before now.
func DaysAgo(now time.Time, n int) time.Time {
	return ResetTime(now, "day").AddDate(0, 0, -n)
}

// StartOfYear returns January 1st of t's year.
func StartOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
