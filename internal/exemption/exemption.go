// Package exemption estimates the days removed from a prayer-debt period:
// menstruation, postpartum bleeding and travel.
package exemption

import (
	"math"
	"sort"

	"github.com/example/prayer-debt/internal/calendar"
	"github.com/example/prayer-debt/internal/domain"
)

// AverageMonthDays is the Gregorian average month length. The calculator
// counts Gregorian days, so haid estimation uses the same convention.
const AverageMonthDays = 30.44

// EstimateHaidDays is a statistical estimate; no cycle history is modelled.
func EstimateHaidDays(totalDays, haidDaysPerMonth int) int {
	if totalDays <= 0 || haidDaysPerMonth <= 0 {
		return 0
	}
	return int(math.Round(float64(totalDays) / AverageMonthDays * float64(haidDaysPerMonth)))
}

// NifasDays is the exact product of childbirths and days per childbirth.
func NifasDays(childbirthCount, daysPerChildbirth int) int {
	if childbirthCount <= 0 || daysPerChildbirth <= 0 {
		return 0
	}
	return childbirthCount * daysPerChildbirth
}

// PeriodDays returns the explicit count of p, or max(1, days between its
// dates) when none was supplied.
func PeriodDays(p domain.TravelPeriod) int {
	if p.DaysCount != nil {
		return *p.DaysCount
	}
	return max(1, calendar.DaysBetween(p.Start, p.End))
}

// SumTravelDays adds up PeriodDays over periods.
func SumTravelDays(periods []domain.TravelPeriod) int {
	total := 0
	for _, p := range periods {
		total += PeriodDays(p)
	}
	return total
}

// ValidateNonOverlap sorts a copy of periods by start date and rejects any
// period that starts before the previous one ends. Periods that touch are
// accepted.
func ValidateNonOverlap(periods []domain.TravelPeriod) error {
	if len(periods) < 2 {
		return nil
	}
	sorted := sortedByStart(periods)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Start.Before(prev.End) {
			return domain.NewError(domain.KindOverlap, cur,
				"travel period starting %s overlaps the period ending %s",
				calendar.FormatDate(cur.Start), calendar.FormatDate(prev.End))
		}
	}
	return nil
}

// ResolveTravel validates periods and produces the ledger the calculator
// uses. Each period gets a concrete DaysCount. The total is override when
// supplied, otherwise the sum of the periods.
func ResolveTravel(periods []domain.TravelPeriod, override *int) (domain.TravelLedger, error) {
	for _, p := range periods {
		if p.End.Before(p.Start) {
			return domain.TravelLedger{}, domain.NewError(domain.KindInvalidRange, p, "travel period ends before it starts")
		}
		if p.DaysCount != nil && *p.DaysCount < 0 {
			return domain.TravelLedger{}, domain.NewError(domain.KindInvalidRange, p, "travel days must not be negative")
		}
	}
	if err := ValidateNonOverlap(periods); err != nil {
		return domain.TravelLedger{}, err
	}

	resolved := sortedByStart(periods)
	for i := range resolved {
		days := PeriodDays(resolved[i])
		resolved[i].DaysCount = &days
	}

	total := SumTravelDays(resolved)
	if override != nil {
		if *override < 0 {
			return domain.TravelLedger{}, domain.NewError(domain.KindInvalidRange, *override, "total travel days must not be negative")
		}
		total = *override
	}
	return domain.TravelLedger{TotalTravelDays: total, Periods: resolved}, nil
}

func sortedByStart(periods []domain.TravelPeriod) []domain.TravelPeriod {
	out := make([]domain.TravelPeriod, len(periods))
	copy(out, periods)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
