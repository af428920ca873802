package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/prayer-debt/internal/domain"
	"github.com/example/prayer-debt/internal/persistence"
)

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func sampleSnapshot(userID string) domain.Snapshot {
	days := 3
	return domain.Snapshot{
		UserID: userID,
		Madhab: domain.Hanafi,
		Women:  &domain.WomenFacts{HaidDaysPerMonth: 7},
		Travel: domain.TravelLedger{
			TotalTravelDays: 3,
			Periods:         []domain.TravelPeriod{{Start: base, End: base.AddDate(0, 0, 3), DaysCount: &days}},
		},
		Calculation: domain.DebtCalculation{MissedPrayers: domain.PrayerSet{Fajr: 100}},
		CreatedAt:   base,
		UpdatedAt:   base,
	}
}

func TestStoreSnapshots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	if _, err := store.GetSnapshot(ctx, "user-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	snapshot := sampleSnapshot("user-1")
	if err := store.SaveSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	snapshot.Women.HaidDaysPerMonth = 15
	*snapshot.Travel.Periods[0].DaysCount = 99

	fetched, err := store.GetSnapshot(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if fetched.Women.HaidDaysPerMonth != 7 || *fetched.Travel.Periods[0].DaysCount != 3 {
		t.Fatalf("expected stored copy to be isolated, got %#v", fetched)
	}

	if err := store.SaveSnapshot(ctx, domain.Snapshot{}); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for missing user id, got %v", err)
	}
}

func TestStoreSaveProgressAndHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	progress := domain.RepaymentProgress{CompletedPrayers: domain.PrayerSet{Fajr: 5}, LastUpdated: base}
	entry := persistence.HistoryEntry{Date: "2024-06-01", Completed: 5, UpdatedAt: base}
	if err := store.SaveProgress(ctx, "user-1", progress, entry); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without snapshot, got %v", err)
	}

	if err := store.SaveSnapshot(ctx, sampleSnapshot("user-1")); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if err := store.SaveProgress(ctx, "user-1", progress, entry); err != nil {
		t.Fatalf("SaveProgress failed: %v", err)
	}

	later := base.Add(2 * time.Hour)
	progress.CompletedPrayers.Fajr = 8
	progress.LastUpdated = later
	if err := store.SaveProgress(ctx, "user-1", progress, persistence.HistoryEntry{Date: "2024-06-01", Completed: 8, UpdatedAt: later}); err != nil {
		t.Fatalf("SaveProgress failed: %v", err)
	}
	if err := store.SaveProgress(ctx, "user-1", progress, persistence.HistoryEntry{Date: "2024-06-03", Completed: 8, UpdatedAt: later}); err != nil {
		t.Fatalf("SaveProgress failed: %v", err)
	}

	snapshot, err := store.GetSnapshot(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if snapshot.Progress.CompletedPrayers.Fajr != 8 || !snapshot.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected progress: %#v", snapshot.Progress)
	}

	history, err := store.ListHistory(ctx, "user-1", "", "")
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(history) != 2 || history[0].Date != "2024-06-01" || history[0].Completed != 8 || history[1].Date != "2024-06-03" {
		t.Fatalf("unexpected history: %#v", history)
	}

	history, err = store.ListHistory(ctx, "user-1", "2024-06-02", "2024-06-30")
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].Date != "2024-06-03" || history[0].UserID != "user-1" {
		t.Fatalf("expected bounded history, got %#v", history)
	}
}

func TestStoreJobs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	job := domain.CalculationJob{
		ID:        "job-1",
		UserID:    "user-1",
		Status:    domain.JobPending,
		Payload:   json.RawMessage(`{"madhab":"hanafi"}`),
		CreatedAt: base,
		UpdatedAt: base,
	}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := store.CreateJob(ctx, job); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	job.Payload[2] = 'X'
	fetched, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if string(fetched.Payload) != `{"madhab":"hanafi"}` {
		t.Fatalf("expected payload copy, got %s", fetched.Payload)
	}

	result := sampleSnapshot("user-1")
	fetched.Status = domain.JobDone
	fetched.Result = &result
	if err := store.UpdateJob(ctx, fetched); err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}
	if err := store.UpdateJob(ctx, domain.CalculationJob{ID: "missing"}); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	done, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if done.Status != domain.JobDone || done.Result == nil || done.Result.UserID != "user-1" {
		t.Fatalf("unexpected job: %#v", done)
	}
}

func TestStoreAudit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	entries := []persistence.AuditEntry{
		{ID: "a1", UserID: "user-1", Action: persistence.AuditDebtCalculated, EntityType: persistence.EntityPrayerDebt, CreatedAt: base},
		{ID: "a2", UserID: "user-2", Action: persistence.AuditJobCreated, EntityType: persistence.EntityCalculationJob, CreatedAt: base},
		{ID: "a3", UserID: "user-1", Action: persistence.AuditProgressUpdated, EntityType: persistence.EntityPrayerDebt, CreatedAt: base},
	}
	for _, entry := range entries {
		if err := store.AppendAudit(ctx, entry); err != nil {
			t.Fatalf("AppendAudit failed: %v", err)
		}
	}

	got, err := store.ListAudit(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a3" {
		t.Fatalf("unexpected audit entries: %#v", got)
	}
}
