package domain

import (
	"encoding/json"
	"time"
)

// Gender decides whether women's exemptions apply.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// Valid reports whether g is supported.
func (g Gender) Valid() bool {
	return g == Male || g == Female
}

// CalculationMethod records how the user produced the figures.
type CalculationMethod string

const (
	MethodManual     CalculationMethod = "manual"
	MethodCalculator CalculationMethod = "calculator"
)

// Valid reports whether m is supported.
func (m CalculationMethod) Valid() bool {
	return m == MethodManual || m == MethodCalculator
}

// Default values applied to omitted facts.
const (
	DefaultBulughAge              = 15
	MinBulughAge                  = 9
	MaxBulughAge                  = 18
	DefaultHaidDaysPerMonth       = 7
	MaxHaidDaysPerMonth           = 15
	DefaultNifasDaysPerChildbirth = 40
)

// PersonalFacts are the resolved personal inputs of a calculation.
type PersonalFacts struct {
	BirthDate       time.Time `json:"birth_date"`
	Gender          Gender    `json:"gender"`
	BulughAge       int       `json:"bulugh_age"`
	BulughDate      time.Time `json:"bulugh_date"`
	PrayerStartDate time.Time `json:"prayer_start_date"`
	TodayAsStart    bool      `json:"today_as_start"`
}

// WomenFacts are present only for female users.
type WomenFacts struct {
	HaidDaysPerMonth       int `json:"haid_days_per_month"`
	ChildbirthCount        int `json:"childbirth_count"`
	NifasDaysPerChildbirth int `json:"nifas_days_per_childbirth"`
}

// TravelPeriod is one journey. A nil DaysCount is derived from the dates.
type TravelPeriod struct {
	Start     time.Time `json:"start_date"`
	End       time.Time `json:"end_date"`
	DaysCount *int      `json:"days_count,omitempty"`
}

// TravelLedger is the resolved set of non-overlapping journeys and the total
// number of travel days used by the calculation.
type TravelLedger struct {
	TotalTravelDays int            `json:"total_travel_days"`
	Periods         []TravelPeriod `json:"travel_periods"`
}

// Period bounds the counted interval.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DebtCalculation is immutable once produced; a recalculation replaces it.
type DebtCalculation struct {
	Period        Period          `json:"period"`
	TotalDays     int             `json:"total_days"`
	ExcludedDays  int             `json:"excluded_days"`
	EffectiveDays int             `json:"effective_days"`
	MissedPrayers PrayerSet       `json:"missed_prayers"`
	TravelPrayers TravelPrayerSet `json:"travel_prayers"`
}

// Missed returns the ceilings the progress ledger clamps against.
func (c DebtCalculation) Missed() MissedCounts {
	return MissedCounts{Prayers: c.MissedPrayers, Travel: c.TravelPrayers}
}

// MissedCounts pairs the two ceiling sets for progress application.
type MissedCounts struct {
	Prayers PrayerSet
	Travel  TravelPrayerSet
}

// Get returns the ceiling for any known key.
func (m MissedCounts) Get(p PrayerType) (int, bool) {
	if p.IsTravel() {
		return m.Travel.Get(p)
	}
	return m.Prayers.Get(p)
}

// Total sums every ceiling.
func (m MissedCounts) Total() int {
	return m.Prayers.Total() + m.Travel.Total()
}

// RepaymentProgress tracks completed repayments against a DebtCalculation.
type RepaymentProgress struct {
	CompletedPrayers       PrayerSet       `json:"completed_prayers"`
	CompletedTravelPrayers TravelPrayerSet `json:"completed_travel_prayers"`
	LastUpdated            time.Time       `json:"last_updated"`
}

// TotalCompleted sums every completed counter.
func (p RepaymentProgress) TotalCompleted() int {
	return p.CompletedPrayers.Total() + p.CompletedTravelPrayers.Total()
}

// ProgressEntry is one signed delta against a single counter.
type ProgressEntry struct {
	Type   PrayerType `json:"type"`
	Amount int        `json:"amount"`
}

// Snapshot is the per-user aggregate persisted by collaborators.
type Snapshot struct {
	UserID            string            `json:"user_id"`
	CalcVersion       string            `json:"calc_version"`
	Madhab            Madhab            `json:"madhab"`
	CalculationMethod CalculationMethod `json:"calculation_method"`
	Personal          PersonalFacts     `json:"personal_data"`
	Women             *WomenFacts       `json:"women_data,omitempty"`
	Travel            TravelLedger      `json:"travel_data"`
	Calculation       DebtCalculation   `json:"debt_calculation"`
	Progress          RepaymentProgress `json:"repayment_progress"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// JobStatus is the state of a CalculationJob.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
	JobError   JobStatus = "error"
)

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	return s == JobPending || s == JobDone || s == JobError
}

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobError
}

// CalculationJob tracks one asynchronous calculation request.
type CalculationJob struct {
	ID        string          `json:"job_id"`
	UserID    string          `json:"user_id"`
	Status    JobStatus       `json:"status"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Result    *Snapshot       `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
