// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migration files are read from an fs.FS, usually an embedded directory, and
// follow the naming convention {version}_{description}.sql (for example
// "001_initial_schema.sql"). Applied versions are tracked in the
// schema_migrations table so each file runs once. Every file runs inside its
// own transaction.
//
// Example usage:
//
//	db, err := migration.Open(migration.DefaultSQLiteConfig("prayerdebt.db"))
//	manager := migration.NewManager(migration.NewScanner(files, "migrations"), migration.NewExecutor(db), logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
