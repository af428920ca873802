package calendar

import (
	"fmt"
	"time"

	hijri "github.com/hablullah/go-hijri"

	"github.com/example/prayer-debt/internal/domain"
)

// leapPattern places the leap years at 2, 5, 7, 10, 13, 16, 18, 21, 24, 26
// and 29 of each 30-year cycle.
const leapPattern = hijri.Default

// HijriDate is a date in the arithmetical Islamic calendar.
type HijriDate struct {
	Year  int
	Month int
	Day   int
}

func (h HijriDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d AH", h.Year, h.Month, h.Day)
}

// IsHijriLeapYear reports whether year has 355 days.
func IsHijriLeapYear(year int) bool {
	return HijriMonthDays(year, 12) == 30
}

// HijriMonthDays returns the length of month in year. Odd months have 30
// days, even months 29, and the last month gains a day in leap years.
func HijriMonthDays(year, month int) int {
	next := hijri.HijriDate{Year: int64(year), Month: int64(month) + 1, Day: 1, Pattern: leapPattern}
	if month == 12 {
		next.Year, next.Month = next.Year+1, 1
	}
	first := hijri.HijriDate{Year: int64(year), Month: int64(month), Day: 1, Pattern: leapPattern}
	return DaysBetween(first.ToGregorian(), next.ToGregorian())
}

// ToHijri converts the UTC calendar day of t. Days before 1 Muharram 1 AH
// fail with domain.KindInvalidDate.
func ToHijri(t time.Time) (HijriDate, error) {
	h, err := hijri.CreateHijriDate(t.UTC(), leapPattern)
	if err != nil {
		return HijriDate{}, domain.NewError(domain.KindInvalidDate, FormatDate(t.UTC()), "no Hijri date: %v", err)
	}
	return HijriDate{Year: int(h.Year), Month: int(h.Month), Day: int(h.Day)}, nil
}

// FromHijri returns midnight UTC of the Gregorian day matching h.
func FromHijri(h HijriDate) (time.Time, error) {
	if h.Year < 1 || h.Month < 1 || h.Month > 12 || h.Day < 1 || h.Day > HijriMonthDays(h.Year, h.Month) {
		return time.Time{}, domain.NewError(domain.KindInvalidDate, h.String(), "no such Hijri date")
	}
	d := hijri.HijriDate{Year: int64(h.Year), Month: int64(h.Month), Day: int64(h.Day), Pattern: leapPattern}
	return StartOfDay(d.ToGregorian()), nil
}

// AddBulughAge converts birthDate to the Hijri calendar, adds ageYears lunar
// years and converts back. The time of day of birthDate is preserved. A birth
// on the 30th of a month that has 29 days in the target year maps to the 29th.
//
// The conversion is tabular and may differ from an observed crescent calendar
// by one or two days.
func AddBulughAge(birthDate time.Time, ageYears int) (time.Time, error) {
	if ageYears < 0 {
		return time.Time{}, domain.NewError(domain.KindInvalidRange, ageYears, "bulugh age must not be negative")
	}
	birth := birthDate.UTC()
	h, err := ToHijri(birth)
	if err != nil {
		return time.Time{}, domain.NewError(domain.KindInvalidDate, FormatDate(birth), "date precedes the Hijri epoch")
	}
	target := HijriDate{Year: h.Year + ageYears, Month: h.Month, Day: h.Day}
	if limit := HijriMonthDays(target.Year, target.Month); target.Day > limit {
		target.Day = limit
	}
	day, err := FromHijri(target)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(birth.Sub(StartOfDay(birth))), nil
}
