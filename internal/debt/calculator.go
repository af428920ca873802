// Package debt turns personal, women's and travel facts into an immutable
// DebtCalculation.
package debt

import (
	"time"

	"github.com/example/prayer-debt/internal/calendar"
	"github.com/example/prayer-debt/internal/domain"
	"github.com/example/prayer-debt/internal/exemption"
)

// PersonalInput carries the raw personal facts. A zero BulughAge selects
// domain.DefaultBulughAge. A nil TodayAsStart means "today" exactly when no
// PrayerStartDate is given.
type PersonalInput struct {
	BirthDate       time.Time
	Gender          domain.Gender
	BulughAge       int
	PrayerStartDate *time.Time
	TodayAsStart    *bool
}

// WomenInput carries the optional women's facts. Nil fields take the
// package defaults.
type WomenInput struct {
	HaidDaysPerMonth       *int
	ChildbirthCount        *int
	NifasDaysPerChildbirth *int
}

// TravelInput carries the claimed journeys and an optional total override.
type TravelInput struct {
	TotalTravelDays *int
	Periods         []domain.TravelPeriod
}

// Input is everything a calculation needs. An empty Madhab is hanafi.
type Input struct {
	Personal PersonalInput
	Women    *WomenInput
	Travel   TravelInput
	Madhab   domain.Madhab
}

// Result holds the resolved facts alongside the calculation built from them.
type Result struct {
	Madhab      domain.Madhab
	Personal    domain.PersonalFacts
	Women       *domain.WomenFacts
	Travel      domain.TravelLedger
	Calculation domain.DebtCalculation
}

// Calculator computes prayer debts. It holds no state besides the clock.
type Calculator struct {
	now func() time.Time
}

// NewCalculator returns a Calculator reading the current time from now.
func NewCalculator(now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{now: now}
}

// Calculate validates in and computes the debt. Every failure is a
// *domain.Error and no partial result is returned.
func (c *Calculator) Calculate(in Input) (Result, error) {
	madhab := in.Madhab
	if madhab == "" {
		madhab = domain.Hanafi
	}
	if !madhab.Valid() {
		return Result{}, domain.NewError(domain.KindInvalidInput, string(madhab), "unsupported madhab")
	}

	personal, err := c.resolvePersonal(in.Personal)
	if err != nil {
		return Result{}, err
	}

	var women *domain.WomenFacts
	if personal.Gender == domain.Female {
		w, err := resolveWomen(in.Women)
		if err != nil {
			return Result{}, err
		}
		women = &w
	}

	travel, err := exemption.ResolveTravel(in.Travel.Periods, in.Travel.TotalTravelDays)
	if err != nil {
		return Result{}, err
	}

	totalDays, err := calendar.SpanDays(personal.BulughDate, personal.PrayerStartDate)
	if err != nil {
		return Result{}, err
	}

	excluded := travel.TotalTravelDays
	if women != nil {
		excluded += exemption.EstimateHaidDays(totalDays, women.HaidDaysPerMonth)
		excluded += exemption.NifasDays(women.ChildbirthCount, women.NifasDaysPerChildbirth)
	}
	effective := max(0, totalDays-excluded)

	return Result{
		Madhab:   madhab,
		Personal: personal,
		Women:    women,
		Travel:   travel,
		Calculation: domain.DebtCalculation{
			Period:        domain.Period{Start: personal.BulughDate, End: personal.PrayerStartDate},
			TotalDays:     totalDays,
			ExcludedDays:  excluded,
			EffectiveDays: effective,
			MissedPrayers: missedPrayers(madhab, effective),
			TravelPrayers: travelPrayers(travel.TotalTravelDays),
		},
	}, nil
}

func (c *Calculator) resolvePersonal(in PersonalInput) (domain.PersonalFacts, error) {
	if in.BirthDate.IsZero() {
		return domain.PersonalFacts{}, domain.NewError(domain.KindInvalidDate, "", "birth date is required")
	}
	if !in.Gender.Valid() {
		return domain.PersonalFacts{}, domain.NewError(domain.KindInvalidInput, string(in.Gender), "unsupported gender")
	}
	age := in.BulughAge
	if age == 0 {
		age = domain.DefaultBulughAge
	}
	if age < domain.MinBulughAge || age > domain.MaxBulughAge {
		return domain.PersonalFacts{}, domain.NewError(domain.KindInvalidInput, age,
			"bulugh age must be between %d and %d", domain.MinBulughAge, domain.MaxBulughAge)
	}

	bulugh, err := calendar.AddBulughAge(in.BirthDate, age)
	if err != nil {
		return domain.PersonalFacts{}, err
	}

	today := in.PrayerStartDate == nil
	if in.TodayAsStart != nil {
		today = *in.TodayAsStart
	}
	var end time.Time
	switch {
	case today:
		end = c.now().UTC()
	case in.PrayerStartDate != nil:
		end = in.PrayerStartDate.UTC()
	default:
		return domain.PersonalFacts{}, domain.NewError(domain.KindInvalidDate, "", "prayer start date is required unless today is the start")
	}
	if end.Before(bulugh) {
		return domain.PersonalFacts{}, domain.NewError(domain.KindInvalidRange, calendar.FormatDate(end),
			"prayer start date precedes the bulugh date %s", calendar.FormatDate(bulugh))
	}

	return domain.PersonalFacts{
		BirthDate:       in.BirthDate.UTC(),
		Gender:          in.Gender,
		BulughAge:       age,
		BulughDate:      bulugh,
		PrayerStartDate: end,
		TodayAsStart:    today,
	}, nil
}

func resolveWomen(in *WomenInput) (domain.WomenFacts, error) {
	facts := domain.WomenFacts{
		HaidDaysPerMonth:       domain.DefaultHaidDaysPerMonth,
		NifasDaysPerChildbirth: domain.DefaultNifasDaysPerChildbirth,
	}
	if in == nil {
		return facts, nil
	}
	if in.HaidDaysPerMonth != nil {
		facts.HaidDaysPerMonth = *in.HaidDaysPerMonth
	}
	if in.ChildbirthCount != nil {
		facts.ChildbirthCount = *in.ChildbirthCount
	}
	if in.NifasDaysPerChildbirth != nil {
		facts.NifasDaysPerChildbirth = *in.NifasDaysPerChildbirth
	}
	switch {
	case facts.HaidDaysPerMonth < 0 || facts.HaidDaysPerMonth > domain.MaxHaidDaysPerMonth:
		return domain.WomenFacts{}, domain.NewError(domain.KindInvalidInput, facts.HaidDaysPerMonth,
			"haid days per month must be between 0 and %d", domain.MaxHaidDaysPerMonth)
	case facts.ChildbirthCount < 0:
		return domain.WomenFacts{}, domain.NewError(domain.KindInvalidInput, facts.ChildbirthCount, "childbirth count must not be negative")
	case facts.NifasDaysPerChildbirth < 0:
		return domain.WomenFacts{}, domain.NewError(domain.KindInvalidInput, facts.NifasDaysPerChildbirth, "nifas days must not be negative")
	}
	return facts, nil
}

func missedPrayers(m domain.Madhab, effective int) domain.PrayerSet {
	var set domain.PrayerSet
	for _, p := range m.ObligatoryPrayers() {
		set.Set(p, effective)
	}
	return set
}

func travelPrayers(travelDays int) domain.TravelPrayerSet {
	var set domain.TravelPrayerSet
	for _, p := range domain.TravelPrayers {
		set.Set(p, travelDays)
	}
	return set
}
