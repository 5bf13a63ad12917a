package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

// NewMigrator returns a migrator over every registered migration, tracking
// applied migrations in the lendshelf_migrations table.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, Migrations,
		migrate.WithTableName("lendshelf_migrations"),
		migrate.WithLocksTableName("lendshelf_migration_locks"),
	)
}

// BringUpToDate creates the migration tables if needed and applies every
// pending migration.
func BringUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := NewMigrator(db)
	err := migrator.Init(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return group, nil
}

// idColumn is the auto-incrementing primary key definition for the current
// dialect.
func idColumn(db *bun.DB) string {
	if db.Dialect().Name() == dialect.PG {
		return "id SERIAL PRIMARY KEY"
	}
	return "id INTEGER PRIMARY KEY AUTOINCREMENT"
}
