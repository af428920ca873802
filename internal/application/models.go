package application

import (
	"time"

	"github.com/example/prayer-debt/internal/domain"
)

// CalculationRequest is the calculation input accepted from clients and
// stored verbatim as the payload of asynchronous jobs.
type CalculationRequest struct {
	CalculationMethod string            `json:"calculation_method" yaml:"calculation_method"`
	Madhab            string            `json:"madhab,omitempty" yaml:"madhab,omitempty"`
	PersonalData      PersonalDataInput `json:"personal_data" yaml:"personal_data"`
	WomenData         *WomenDataInput   `json:"women_data,omitempty" yaml:"women_data,omitempty"`
	TravelData        *TravelDataInput  `json:"travel_data,omitempty" yaml:"travel_data,omitempty"`
}

// PersonalDataInput carries the personal facts as sent by the client.
type PersonalDataInput struct {
	BirthDate       string  `json:"birth_date" yaml:"birth_date"`
	Gender          string  `json:"gender" yaml:"gender"`
	BulughAge       *int    `json:"bulugh_age,omitempty" yaml:"bulugh_age,omitempty"`
	PrayerStartDate *string `json:"prayer_start_date,omitempty" yaml:"prayer_start_date,omitempty"`
	TodayAsStart    *bool   `json:"today_as_start,omitempty" yaml:"today_as_start,omitempty"`
}

// WomenDataInput carries the optional women's facts.
type WomenDataInput struct {
	HaidDaysPerMonth       *int `json:"haid_days_per_month,omitempty" yaml:"haid_days_per_month,omitempty"`
	ChildbirthCount        *int `json:"childbirth_count,omitempty" yaml:"childbirth_count,omitempty"`
	NifasDaysPerChildbirth *int `json:"nifas_days_per_childbirth,omitempty" yaml:"nifas_days_per_childbirth,omitempty"`
}

// TravelDataInput carries the claimed journeys.
type TravelDataInput struct {
	TotalTravelDays *int                `json:"total_travel_days,omitempty" yaml:"total_travel_days,omitempty"`
	TravelPeriods   []TravelPeriodInput `json:"travel_periods,omitempty" yaml:"travel_periods,omitempty"`
}

// TravelPeriodInput is one journey as sent by the client.
type TravelPeriodInput struct {
	StartDate string `json:"start_date" yaml:"start_date"`
	EndDate   string `json:"end_date" yaml:"end_date"`
	DaysCount *int   `json:"days_count,omitempty" yaml:"days_count,omitempty"`
}

// CalculateParams wraps a calculation request for a user.
type CalculateParams struct {
	UserID  string
	Request CalculationRequest
}

// UpdateProgressParams wraps a batch of repayment entries for a user.
type UpdateProgressParams struct {
	UserID  string
	Entries []domain.ProgressEntry
}

// ProgressHistoryParams selects the history of a user. Dates are optional
// inclusive YYYY-MM-DD bounds.
type ProgressHistoryParams struct {
	UserID    string
	StartDate string
	EndDate   string
}

// ProgressPoint is one day of the repayment chart. Total is the whole debt
// of the current snapshot.
type ProgressPoint struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// ResolveJobParams is the outcome reported by a calculator.
type ResolveJobParams struct {
	JobID  string
	Status domain.JobStatus
	Result *domain.Snapshot
	Error  string
}

// Settings are the tunables of PrayerDebtService.
type Settings struct {
	CalcVersion       string
	DefaultMadhab     domain.Madhab
	MaxProgressAmount int
	WebhookSecret     string
	// WebhookURL is sent to external calculators as the callback target.
	WebhookURL       string
	SnapshotCacheTTL time.Duration
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		CalcVersion:       "1.0.0",
		DefaultMadhab:     domain.Hanafi,
		MaxProgressAmount: 500,
		SnapshotCacheTTL:  30 * time.Second,
	}
}
