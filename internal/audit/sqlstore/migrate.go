package sqlstore

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies (or rolls back) the reference audit_entries schema using
// golang-migrate/migrate/v4 against the database Open/New connected to.
// This is the storage-backend-specific schema setup path spec.md §4.7
// leaves to the core's discretion; the teacher carries
// golang-migrate/migrate/v4 as a direct go.mod dependency but never calls
// it (system/platform/migrations/migrations.go hand-rolls the same idea
// with embed.FS + db.ExecContext instead), so this wires the library the
// teacher's own migrations package stopped short of using.
func Migrate(s *Store, down bool) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("sqlstore: migration source: %w", err)
	}

	driver, err := postgres.WithInstance(s.db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("sqlstore: migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("sqlstore: migrate init: %w", err)
	}

	step := m.Up
	if down {
		step = m.Down
	}
	if err := step(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}
