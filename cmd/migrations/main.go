package main

import (
	"io"
	"os"
	"strings"

	"github.com/lendshelf/lendshelf/pkg/config"
	"github.com/lendshelf/lendshelf/pkg/database"
	"github.com/lendshelf/lendshelf/pkg/migrations"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:        "migrations",
		Usage:       "manage the lendshelf database schema",
		Description: "Runs, rolls back, and scaffolds the bun migrations in pkg/migrations.",
		Writer:      out,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "create migration tables",
				Action: withMigrator(initTables),
			},
			{
				Name:   "migrate",
				Usage:  "apply every pending migration",
				Action: withMigrator(migrateUp),
			},
			{
				Name:   "rollback",
				Usage:  "rollback the last migration group",
				Action: withMigrator(rollback),
			},
			{
				Name:      "create",
				Usage:     "create Go migration",
				ArgsUsage: "<words of the migration name>",
				Action:    withMigrator(create),
			},
			{
				Name:   "status",
				Usage:  "print migrations status",
				Action: withMigrator(status),
			},
		},
	}
}

// withMigrator opens the configured database for the length of one command.
func withMigrator(run func(c *cli.Context, migrator *migrate.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.New()
		if err != nil {
			return errors.Wrap(err, "config error")
		}

		db, err := database.New(cfg)
		if err != nil {
			return errors.Wrap(err, "database error")
		}
		defer db.Close()

		return run(c, migrations.NewMigrator(db))
	}
}

func initTables(c *cli.Context, migrator *migrate.Migrator) error {
	return errors.WithStack(migrator.Init(c.Context))
}

func migrateUp(c *cli.Context, migrator *migrate.Migrator) error {
	if err := migrator.Init(c.Context); err != nil {
		return errors.WithStack(err)
	}

	group, err := migrator.Migrate(c.Context)
	if err != nil {
		return errors.WithStack(err)
	}
	if group.IsZero() {
		_, err = io.WriteString(c.App.Writer, "There are no new migrations to run\n")
		return errors.WithStack(err)
	}

	_, err = io.WriteString(c.App.Writer, "Migrated to "+group.String()+"\n")
	return errors.WithStack(err)
}

func rollback(c *cli.Context, migrator *migrate.Migrator) error {
	group, err := migrator.Rollback(c.Context)
	if err != nil {
		return errors.WithStack(err)
	}
	if group.IsZero() {
		_, err = io.WriteString(c.App.Writer, "There are no groups to roll back\n")
		return errors.WithStack(err)
	}

	_, err = io.WriteString(c.App.Writer, "Rolled back "+group.String()+"\n")
	return errors.WithStack(err)
}

func create(c *cli.Context, migrator *migrate.Migrator) error {
	name := strings.Join(c.Args().Slice(), "_")
	if name == "" {
		return errors.New("a migration name is required")
	}

	mf, err := migrator.CreateGoMigration(c.Context, name, migrate.WithGoTemplate(migrationTemplate))
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = io.WriteString(c.App.Writer, "Created migration "+mf.Name+" ("+mf.Path+")\n")
	return errors.WithStack(err)
}

func status(c *cli.Context, migrator *migrate.Migrator) error {
	ms, err := migrator.MigrationsWithStatus(c.Context)
	if err != nil {
		return errors.WithStack(err)
	}

	lines := []string{
		"Migrations: " + ms.String(),
		"Unapplied migrations: " + ms.Unapplied().String(),
		"Last migration group: " + ms.LastGroup().String(),
	}
	_, err = io.WriteString(c.App.Writer, strings.Join(lines, "\n")+"\n")
	return errors.WithStack(err)
}

// migrationTemplate is filled in with the package name by bun.
const migrationTemplate = `package %s

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("")
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
`
