package migration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(DefaultSQLiteConfig(filepath.Join(t.TempDir(), "migration.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScannerOrdersAndValidates(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"migrations/010_add_index.sql":    {Data: []byte("CREATE INDEX idx_items_name ON items(name);")},
		"migrations/002_create_items.sql": {Data: []byte("-- items\nCREATE TABLE items (id TEXT PRIMARY KEY, name TEXT);")},
		"migrations/README.md":            {Data: []byte("ignored")},
	}
	migrations, err := NewScanner(files, "migrations").Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(migrations) != 2 || migrations[0].Version != "002" || migrations[1].Version != "010" {
		t.Fatalf("unexpected order: %#v", migrations)
	}
	if migrations[0].Description != "create items" || len(migrations[0].Checksum) != 64 {
		t.Fatalf("unexpected metadata: %#v", migrations[0])
	}

	cases := map[string]fstest.MapFS{
		"bad name":  {"migrations/create.sql": {Data: []byte("SELECT 1;")}},
		"empty":     {"migrations/001_empty.sql": {Data: []byte("-- nothing\n")}},
		"duplicate": {"migrations/001_a.sql": {Data: []byte("SELECT 1;")}, "migrations/001_b.sql": {Data: []byte("SELECT 1;")}},
	}
	for name, fsys := range cases {
		_, err := NewScanner(fsys, "migrations").Scan()
		var mErr *MigrationError
		if !errors.As(err, &mErr) {
			t.Fatalf("%s: expected MigrationError, got %v", name, err)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := splitStatements("-- header\nCREATE TABLE a (id INTEGER);\n\n-- next\nCREATE TABLE b (id INTEGER);\n")
	if len(got) != 2 || got[0] != "CREATE TABLE a (id INTEGER)" || got[1] != "CREATE TABLE b (id INTEGER)" {
		t.Fatalf("unexpected statements: %#v", got)
	}
}

func TestManagerRunsPendingOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"migrations/001_create_items.sql": {Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY, name TEXT NOT NULL);")},
		"migrations/002_seed_items.sql":   {Data: []byte("INSERT INTO items (id, name) VALUES ('a', 'first');")},
	}
	manager := NewManager(NewScanner(files, "migrations"), NewExecutor(db), quietLogger())

	applied, err := manager.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 migrations applied, got %d", applied)
	}

	applied, err = manager.Run(ctx)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no pending migrations, got %d", applied)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.CurrentVersion != "002" || len(status.Applied) != 2 || len(status.Pending) != 0 {
		t.Fatalf("unexpected status: %#v", status)
	}

	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM items"); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected seed row once, got %d", count)
	}
}

func TestManagerRollsBackFailedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"migrations/001_create_items.sql": {Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY);")},
		"migrations/002_broken.sql":       {Data: []byte("CREATE TABLE other (id TEXT);\nINSERT INTO missing VALUES (1);")},
	}
	manager := NewManager(NewScanner(files, "migrations"), NewExecutor(db), quietLogger())

	applied, err := manager.Run(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected first migration to stay applied, got %d", applied)
	}

	var tables int
	if err := db.GetContext(ctx, &tables, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'other'"); err != nil {
		t.Fatalf("inspect schema: %v", err)
	}
	if tables != 0 {
		t.Fatalf("expected failed migration to roll back")
	}
}

func TestManagerDetectsChangedFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	original := fstest.MapFS{"migrations/001_create_items.sql": {Data: []byte("CREATE TABLE items (id TEXT);")}}
	if _, err := NewManager(NewScanner(original, "migrations"), NewExecutor(db), quietLogger()).Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	changed := fstest.MapFS{"migrations/001_create_items.sql": {Data: []byte("CREATE TABLE items (id TEXT, name TEXT);")}}
	if _, err := NewManager(NewScanner(changed, "migrations"), NewExecutor(db), quietLogger()).Run(ctx); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestSQLiteConfigValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultSQLiteConfig("x.db").Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}
	invalid := []SQLiteConfig{
		{},
		{DSN: "x.db", JournalMode: "FAST"},
		{DSN: "x.db", Synchronous: "SOMETIMES"},
		{DSN: "x.db", MaxOpenConns: -1},
	}
	for _, cfg := range invalid {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected %#v to be rejected", cfg)
		}
	}
}
