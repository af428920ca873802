package persistence

import (
	"encoding/json"
	"time"
)

// HistoryEntry is one day of a user's repayment history. Date is the UTC
// calendar day (YYYY-MM-DD) and Completed the total completed count at the
// last update of that day.
type HistoryEntry struct {
	UserID    string
	Date      string
	Completed int
	UpdatedAt time.Time
}

// AuditAction names a recorded change.
type AuditAction string

const (
	AuditDebtCalculated  AuditAction = "debt_calculated"
	AuditProgressUpdated AuditAction = "progress_updated"
	AuditJobCreated      AuditAction = "job_created"
	AuditJobCompleted    AuditAction = "job_completed"
	AuditJobFailed       AuditAction = "job_failed"
)

// Entity types referenced by audit entries.
const (
	EntityPrayerDebt     = "prayer_debt"
	EntityCalculationJob = "calculation_job"
)

// AuditEntry is an append-only record of a change made on behalf of a user.
type AuditEntry struct {
	ID         string
	UserID     string
	Action     AuditAction
	EntityType string
	EntityID   string
	Details    json.RawMessage
	CreatedAt  time.Time
}
