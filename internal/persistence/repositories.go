package persistence

import (
	"context"

	"github.com/example/prayer-debt/internal/domain"
)

// SnapshotRepository stores one prayer-debt snapshot per user.
type SnapshotRepository interface {
	GetSnapshot(ctx context.Context, userID string) (domain.Snapshot, error)
	// SaveSnapshot inserts or replaces the user's snapshot.
	SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error
	// SaveProgress replaces the progress of an existing snapshot and upserts
	// the history entry for the same day in one unit of work.
	SaveProgress(ctx context.Context, userID string, progress domain.RepaymentProgress, entry HistoryEntry) error
}

// HistoryRepository reads the per-day progress history. Bounds are
// inclusive YYYY-MM-DD strings; empty bounds are open.
type HistoryRepository interface {
	ListHistory(ctx context.Context, userID, from, to string) ([]HistoryEntry, error)
}

// JobRepository stores asynchronous calculation jobs.
type JobRepository interface {
	CreateJob(ctx context.Context, job domain.CalculationJob) error
	GetJob(ctx context.Context, id string) (domain.CalculationJob, error)
	UpdateJob(ctx context.Context, job domain.CalculationJob) error
}

// AuditRepository appends and lists audit entries.
type AuditRepository interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, userID string) ([]AuditEntry, error)
}
