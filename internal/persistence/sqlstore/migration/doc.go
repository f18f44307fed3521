// Package migration applies versioned schema migrations to the state store.
//
// Migrations are read from an fs.FS (normally embedded in the binary) and must
// follow the naming convention {version}_{description}.sql, for example
// "001_initial_schema.sql". Applied versions are recorded in the
// schema_migrations table so each file runs exactly once.
//
// Example usage:
//
//	scanner := migration.NewScanner(migrationsFS, "migrations/sqlite")
//	executor := migration.NewExecutor(db, nil)
//	manager := migration.NewManager(scanner, executor, logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
