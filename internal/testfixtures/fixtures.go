package testfixtures

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/prayer-debt/internal/application"
	"github.com/example/prayer-debt/internal/domain"
	"github.com/example/prayer-debt/internal/persistence"
)

var (
	userCounter  uint64
	jobCounter   uint64
	auditCounter uint64
)

var referenceTime = time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// MaleDays is the debt span of MaleRequest at ReferenceTime: bulugh on
// 2014-07-22 (15 Hijri years after 2000-01-01) up to 2024-06-01.
const MaleDays = 3602

// NextUserID returns a fresh user id.
func NextUserID() string {
	return fmt.Sprintf("user-%03d", atomic.AddUint64(&userCounter, 1))
}

// -------------------------- Calculation requests --------------------------

// RequestOption configures a generated calculation request.
type RequestOption func(*application.CalculationRequest)

// WithMadhab sets the requested madhab.
func WithMadhab(madhab string) RequestOption {
	return func(req *application.CalculationRequest) {
		req.Madhab = madhab
	}
}

// WithPrayerStartDate replaces "today" with a fixed start date.
func WithPrayerStartDate(date string) RequestOption {
	return func(req *application.CalculationRequest) {
		req.PersonalData.PrayerStartDate = &date
	}
}

// WithTravelPeriods attaches journeys given as start/end date pairs.
func WithTravelPeriods(pairs ...[2]string) RequestOption {
	return func(req *application.CalculationRequest) {
		travel := &application.TravelDataInput{}
		for _, p := range pairs {
			travel.TravelPeriods = append(travel.TravelPeriods, application.TravelPeriodInput{StartDate: p[0], EndDate: p[1]})
		}
		req.TravelData = travel
	}
}

// MaleRequest is a calculator request for a man born 2000-01-01 with every
// optional fact defaulted.
func MaleRequest(opts ...RequestOption) application.CalculationRequest {
	req := application.CalculationRequest{
		CalculationMethod: string(domain.MethodCalculator),
		PersonalData: application.PersonalDataInput{
			BirthDate: "2000-01-01",
			Gender:    string(domain.Male),
		},
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// FemaleRequest is a manual request for a woman born 1995-03-10 with two
// childbirths and an explicit haid estimate.
func FemaleRequest(opts ...RequestOption) application.CalculationRequest {
	haid, births := 6, 2
	bulugh := 12
	req := application.CalculationRequest{
		CalculationMethod: string(domain.MethodManual),
		PersonalData: application.PersonalDataInput{
			BirthDate: "1995-03-10",
			Gender:    string(domain.Female),
			BulughAge: &bulugh,
		},
		WomenData: &application.WomenDataInput{
			HaidDaysPerMonth: &haid,
			ChildbirthCount:  &births,
		},
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// ------------------------------- Snapshots -------------------------------

// SnapshotOption configures the generated snapshot.
type SnapshotOption func(*domain.Snapshot)

// WithUserID sets the owner of the snapshot.
func WithUserID(userID string) SnapshotOption {
	return func(s *domain.Snapshot) {
		s.UserID = userID
	}
}

// WithSnapshotMadhab switches the madhab and recomputes the witr ceiling.
func WithSnapshotMadhab(madhab domain.Madhab) SnapshotOption {
	return func(s *domain.Snapshot) {
		s.Madhab = madhab
		s.Calculation.MissedPrayers.Witr = 0
		if madhab.Obligatory(domain.Witr) {
			s.Calculation.MissedPrayers.Witr = s.Calculation.EffectiveDays
		}
	}
}

// WithCompleted sets the completed counters of the snapshot.
func WithCompleted(prayers domain.PrayerSet) SnapshotOption {
	return func(s *domain.Snapshot) {
		s.Progress.CompletedPrayers = prayers
	}
}

// NewSnapshot returns the stored form of MaleRequest under the hanafi
// madhab, calculated at ReferenceTime.
func NewSnapshot(opts ...SnapshotOption) domain.Snapshot {
	bulugh := time.Date(2014, time.July, 22, 0, 0, 0, 0, time.UTC)
	snapshot := domain.Snapshot{
		UserID:            NextUserID(),
		CalcVersion:       "1.0.0",
		Madhab:            domain.Hanafi,
		CalculationMethod: domain.MethodCalculator,
		Personal: domain.PersonalFacts{
			BirthDate:       time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
			Gender:          domain.Male,
			BulughAge:       domain.DefaultBulughAge,
			BulughDate:      bulugh,
			PrayerStartDate: referenceTime,
			TodayAsStart:    true,
		},
		Travel: domain.TravelLedger{Periods: []domain.TravelPeriod{}},
		Calculation: domain.DebtCalculation{
			Period:        domain.Period{Start: bulugh, End: referenceTime},
			TotalDays:     MaleDays,
			EffectiveDays: MaleDays,
			MissedPrayers: domain.PrayerSet{
				Fajr:    MaleDays,
				Dhuhr:   MaleDays,
				Asr:     MaleDays,
				Maghrib: MaleDays,
				Isha:    MaleDays,
				Witr:    MaleDays,
			},
		},
		Progress:  domain.RepaymentProgress{LastUpdated: referenceTime},
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&snapshot)
	}
	return snapshot
}

// ---------------------------------- Jobs ----------------------------------

// NewJob returns a pending job for userID carrying MaleRequest as payload.
func NewJob(userID string) domain.CalculationJob {
	idx := atomic.AddUint64(&jobCounter, 1)
	payload, err := json.Marshal(MaleRequest())
	if err != nil {
		panic(fmt.Sprintf("testfixtures: encode job payload: %v", err))
	}
	created := referenceTime.Add(time.Duration(idx) * time.Second)
	return domain.CalculationJob{
		ID:        fmt.Sprintf("job-%05d", idx),
		UserID:    userID,
		Status:    domain.JobPending,
		Payload:   payload,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// ---------------------------- History & audit ----------------------------

// NewHistoryEntry returns the history row of userID for date.
func NewHistoryEntry(userID, date string, completed int) persistence.HistoryEntry {
	return persistence.HistoryEntry{
		UserID:    userID,
		Date:      date,
		Completed: completed,
		UpdatedAt: referenceTime,
	}
}

// NewAuditEntry returns an audit entry for userID. Entries created later
// carry later timestamps.
func NewAuditEntry(userID string, action persistence.AuditAction) persistence.AuditEntry {
	idx := atomic.AddUint64(&auditCounter, 1)
	return persistence.AuditEntry{
		ID:         fmt.Sprintf("audit-%05d", idx),
		UserID:     userID,
		Action:     action,
		EntityType: persistence.EntityPrayerDebt,
		EntityID:   userID,
		Details:    json.RawMessage(`{"source":"fixture"}`),
		CreatedAt:  referenceTime.Add(time.Duration(idx) * time.Millisecond),
	}
}
