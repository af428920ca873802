package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/prayer-debt/internal/persistence"
	"github.com/example/prayer-debt/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Storage   *sqlite.Storage
	Snapshots persistence.SnapshotRepository
	History   persistence.HistoryRepository
	Jobs      persistence.JobRepository
	Audit     persistence.AuditRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
// Locked writes retry on a short schedule unless opts override it.
func NewSQLiteHarness(tb testing.TB, opts ...sqlite.Option) *SQLiteHarness {
	tb.Helper()

	opts = append([]sqlite.Option{sqlite.WithRetryConfig(sqlite.RetryConfig{
		MaxRetries:    5,
		InitialDelay:  5 * time.Millisecond,
		MaxDelay:      50 * time.Millisecond,
		BackoffFactor: 2,
	})}, opts...)

	dir := tb.TempDir()
	path := filepath.Join(dir, "prayerdebt.db")

	storage, err := sqlite.Open(path, opts...)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if _, err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:   storage,
		Snapshots: storage,
		History:   storage,
		Jobs:      storage,
		Audit:     storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
