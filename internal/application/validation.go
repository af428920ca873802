package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/prayer-debt/internal/calendar"
	"github.com/example/prayer-debt/internal/debt"
	"github.com/example/prayer-debt/internal/domain"
)

const minJobIDLength = 5

// buildCalculationInput validates req and converts it into calculator input.
// Missing or out-of-range fields are reported together as a
// *ValidationError. Unparseable dates surface as the engine's InvalidDate.
func buildCalculationInput(req CalculationRequest, defaultMadhab domain.Madhab) (debt.Input, domain.CalculationMethod, error) {
	vErr := &ValidationError{}

	method := domain.CalculationMethod(strings.TrimSpace(req.CalculationMethod))
	if method == "" {
		vErr.add("calculation_method", "calculation_method is required")
	} else if !method.Valid() {
		vErr.add("calculation_method", "calculation_method must be manual or calculator")
	}

	madhab := domain.Madhab(strings.ToLower(strings.TrimSpace(req.Madhab)))
	if madhab == "" {
		madhab = defaultMadhab
	}
	if !madhab.Valid() {
		vErr.add("madhab", "madhab must be hanafi or shafii")
	}

	vErr.merge("personal_data", validatePersonal(req.PersonalData))
	if req.WomenData != nil {
		vErr.merge("women_data", validateWomen(*req.WomenData))
	}
	if req.TravelData != nil {
		vErr.merge("travel_data", validateTravel(*req.TravelData))
	}
	if vErr.HasErrors() {
		return debt.Input{}, "", vErr
	}

	personal, err := convertPersonal(req.PersonalData)
	if err != nil {
		return debt.Input{}, "", err
	}
	in := debt.Input{Personal: personal, Madhab: madhab}

	if req.WomenData != nil {
		in.Women = &debt.WomenInput{
			HaidDaysPerMonth:       req.WomenData.HaidDaysPerMonth,
			ChildbirthCount:        req.WomenData.ChildbirthCount,
			NifasDaysPerChildbirth: req.WomenData.NifasDaysPerChildbirth,
		}
	}
	if req.TravelData != nil {
		in.Travel.TotalTravelDays = req.TravelData.TotalTravelDays
		for _, p := range req.TravelData.TravelPeriods {
			start, err := calendar.ParseDate(p.StartDate)
			if err != nil {
				return debt.Input{}, "", err
			}
			end, err := calendar.ParseDate(p.EndDate)
			if err != nil {
				return debt.Input{}, "", err
			}
			in.Travel.Periods = append(in.Travel.Periods, domain.TravelPeriod{Start: start, End: end, DaysCount: p.DaysCount})
		}
	}
	return in, method, nil
}

func validatePersonal(p PersonalDataInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(p.BirthDate) == "" {
		vErr.add("birth_date", "birth_date is required")
	}
	if !domain.Gender(p.Gender).Valid() {
		vErr.add("gender", "gender must be male or female")
	}
	if p.BulughAge != nil && (*p.BulughAge < domain.MinBulughAge || *p.BulughAge > domain.MaxBulughAge) {
		vErr.add("bulugh_age", "bulugh_age must be between 9 and 18")
	}
	hasStart := p.PrayerStartDate != nil && strings.TrimSpace(*p.PrayerStartDate) != ""
	if !hasStart && p.TodayAsStart != nil && !*p.TodayAsStart {
		vErr.add("prayer_start_date", "prayer_start_date is required unless today_as_start is set")
	}
	return vErr
}

func validateWomen(w WomenDataInput) *ValidationError {
	vErr := &ValidationError{}
	if w.HaidDaysPerMonth != nil && (*w.HaidDaysPerMonth < 0 || *w.HaidDaysPerMonth > domain.MaxHaidDaysPerMonth) {
		vErr.add("haid_days_per_month", "haid_days_per_month must be between 0 and 15")
	}
	if w.ChildbirthCount != nil && *w.ChildbirthCount < 0 {
		vErr.add("childbirth_count", "childbirth_count must not be negative")
	}
	if w.NifasDaysPerChildbirth != nil && *w.NifasDaysPerChildbirth < 0 {
		vErr.add("nifas_days_per_childbirth", "nifas_days_per_childbirth must not be negative")
	}
	return vErr
}

func validateTravel(t TravelDataInput) *ValidationError {
	vErr := &ValidationError{}
	if t.TotalTravelDays != nil && *t.TotalTravelDays < 0 {
		vErr.add("total_travel_days", "total_travel_days must not be negative")
	}
	for i, p := range t.TravelPeriods {
		field := fmt.Sprintf("travel_periods[%d]", i)
		if strings.TrimSpace(p.StartDate) == "" {
			vErr.add(field+".start_date", "start_date is required")
		}
		if strings.TrimSpace(p.EndDate) == "" {
			vErr.add(field+".end_date", "end_date is required")
		}
		if p.DaysCount != nil && *p.DaysCount < 0 {
			vErr.add(field+".days_count", "days_count must not be negative")
		}
	}
	return vErr
}

func convertPersonal(p PersonalDataInput) (debt.PersonalInput, error) {
	birth, err := calendar.ParseDate(p.BirthDate)
	if err != nil {
		return debt.PersonalInput{}, err
	}
	out := debt.PersonalInput{
		BirthDate:    birth,
		Gender:       domain.Gender(p.Gender),
		TodayAsStart: p.TodayAsStart,
	}
	if p.BulughAge != nil {
		out.BulughAge = *p.BulughAge
	}
	if p.PrayerStartDate != nil && strings.TrimSpace(*p.PrayerStartDate) != "" {
		start, err := calendar.ParseDate(*p.PrayerStartDate)
		if err != nil {
			return debt.PersonalInput{}, err
		}
		out.PrayerStartDate = &start
	}
	return out, nil
}

func validateEntries(entries []domain.ProgressEntry) *ValidationError {
	vErr := &ValidationError{}
	if len(entries) == 0 {
		vErr.add("entries", "at least one entry is required")
	}
	for i, e := range entries {
		if strings.TrimSpace(string(e.Type)) == "" {
			vErr.add(fmt.Sprintf("entries[%d].type", i), "type is required")
		}
	}
	return vErr
}

func validateResolveJob(params ResolveJobParams) *ValidationError {
	vErr := &ValidationError{}
	if len(strings.TrimSpace(params.JobID)) < minJobIDLength {
		vErr.add("job_id", "job_id must be at least 5 characters")
	}
	if !params.Status.Valid() {
		vErr.add("status", "status must be pending, done or error")
	}
	if params.Status == domain.JobDone && params.Result == nil {
		vErr.add("result", "result is required when status is done")
	}
	return vErr
}

// normalizeDay parses an optional history bound into YYYY-MM-DD.
func normalizeDay(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	t, err := calendar.ParseDate(value)
	if err != nil {
		return "", err
	}
	return calendar.FormatDate(t), nil
}

func historyDay(t time.Time) string {
	return calendar.FormatDate(t.UTC())
}
