// Package calendar implements the date arithmetic behind a prayer-debt
// calculation: ISO-8601 parsing, whole-day differences, the bulugh date in
// Hijri years and the supported calculation span.
//
// All results are normalized to UTC.
package calendar

import (
	"strings"
	"time"

	"github.com/example/prayer-debt/internal/domain"
)

// MaxSpanDays is the longest supported interval between the bulugh date and
// the end of a calculation (80 years of 365 days).
const MaxSpanDays = 80 * 365

const millisPerDay = int64(24 * time.Hour / time.Millisecond)

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts an ISO-8601 date or timestamp. Values without a zone are
// read as UTC. Only the layouts above are tried, so locale forms such as
// 05/01/2024 are rejected rather than guessed. Failures are
// domain.KindInvalidDate errors carrying the input.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, domain.NewError(domain.KindInvalidDate, value, "date is empty")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.NewError(domain.KindInvalidDate, value, "date is not valid ISO-8601")
}

// DaysBetween returns the floor of end-start in whole days. The result is
// negative when end precedes start.
func DaysBetween(start, end time.Time) int {
	delta := end.UnixMilli() - start.UnixMilli()
	days := delta / millisPerDay
	if delta%millisPerDay != 0 && delta < 0 {
		days--
	}
	return int(days)
}

// SpanDays returns DaysBetween(start, end) after checking the supported
// range: end before start is domain.KindInvalidRange, more than MaxSpanDays
// is domain.KindRangeExceeded.
func SpanDays(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, domain.NewError(domain.KindInvalidRange, formatRange(start, end), "end date precedes start date")
	}
	days := DaysBetween(start, end)
	if days > MaxSpanDays {
		return 0, domain.NewError(domain.KindRangeExceeded, days, "period exceeds %d days", MaxSpanDays)
	}
	return days, nil
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders the calendar day of t as YYYY-MM-DD in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func formatRange(start, end time.Time) string {
	return start.UTC().Format(time.RFC3339) + "/" + end.UTC().Format(time.RFC3339)
}
