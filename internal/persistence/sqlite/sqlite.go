// Package sqlite implements the persistence repositories on SQLite through
// modernc.org/sqlite and sqlx. The schema is embedded and migrated by the
// migration sub-package.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/prayer-debt/internal/persistence"
	"github.com/example/prayer-debt/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// FieldSealer encrypts sensitive columns. *secure.Sealer satisfies it.
type FieldSealer interface {
	Seal(plaintext []byte) (string, error)
	Open(value string) ([]byte, error)
}

type plaintext struct{}

func (plaintext) Seal(b []byte) (string, error) { return string(b), nil }

func (plaintext) Open(s string) ([]byte, error) { return []byte(s), nil }

// Storage bundles the SQLite repositories over one connection pool.
type Storage struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
	sealer FieldSealer
	logger *slog.Logger
}

var (
	_ persistence.SnapshotRepository = (*Storage)(nil)
	_ persistence.HistoryRepository  = (*Storage)(nil)
	_ persistence.JobRepository      = (*Storage)(nil)
	_ persistence.AuditRepository    = (*Storage)(nil)
)

// Option customizes Storage.
type Option func(*Storage)

// WithSealer encrypts personal facts and job documents with sealer.
func WithSealer(sealer FieldSealer) Option {
	return func(s *Storage) {
		if sealer != nil {
			s.sealer = sealer
		}
	}
}

// WithLogger sets the logger used for migrations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetryConfig overrides the retry policy for locked writes.
func WithRetryConfig(config RetryConfig) Option {
	return func(s *Storage) {
		s.retry = NewRetryHelper(config)
	}
}

// Open connects to the database at dsn. Call Migrate before use.
func Open(dsn string, opts ...Option) (*Storage, error) {
	pool, err := NewConnectionPool(migration.DefaultSQLiteConfig(dsn))
	if err != nil {
		return nil, err
	}
	s := &Storage{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		sealer: plaintext{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks the connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded migrations and returns how many ran.
func (s *Storage) Migrate(ctx context.Context) (int, error) {
	manager := s.migrationManager()
	applied, err := manager.Run(ctx)
	if err != nil {
		return applied, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return applied, nil
}

// SchemaVersion returns the latest applied migration version.
func (s *Storage) SchemaVersion(ctx context.Context) (string, error) {
	status, err := s.migrationManager().Status(ctx)
	if err != nil {
		return "", fmt.Errorf("sqlite: schema status: %w", err)
	}
	return status.CurrentVersion, nil
}

func (s *Storage) migrationManager() *migration.Manager {
	return migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewExecutor(s.pool.DB()),
		s.logger,
	)
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}
