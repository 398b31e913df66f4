package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"skyfed/internal/cmd/flags"
	"skyfed/internal/persistence"
)

var migrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "Manage the database schema",
	Flags: []cli.Flag{
		flags.DatabaseURL,
	},
	Commands: []*cli.Command{
		migrationCmd(persistence.MigrateUp, "Apply all pending migrations"),
		migrationCmd(persistence.MigrateDown, "Roll back all migrations"),
	},
}

func migrationCmd(direction persistence.MigrationDirection, usage string) *cli.Command {
	return &cli.Command{
		Name:  string(direction),
		Usage: usage,
		Action: func(ctx context.Context, c *cli.Command) error {
			return run(ctx, c,
				pal.Provide(&persistence.DB{}),
				pal.Provide(&persistence.Migrator{}),
				pal.Provide(persistence.NewMigrationRunner(direction)),
			)
		},
	}
}
