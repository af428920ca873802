package migration

import "time"

// Migration is one versioned SQL file.
type Migration struct {
	Version     string // numeric prefix, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string // sha256 of SQL, hex
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version       string        `db:"version"`
	AppliedAt     string        `db:"applied_at"`
	Checksum      string        `db:"checksum"`
	ExecutionTime time.Duration `db:"-"`
	ExecutionMs   int64         `db:"execution_time_ms"`
}

// Status summarizes the schema state.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}
