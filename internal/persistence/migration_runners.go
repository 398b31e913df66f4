package persistence

import (
	"context"
)

type MigrationDirection string

const (
	MigrateUp   MigrationDirection = "up"
	MigrateDown MigrationDirection = "down"
)

// MigrationRunner is the only runner of the migrate command; pal stops once it returns.
type MigrationRunner struct {
	Migrator *Migrator

	direction MigrationDirection
}

func NewMigrationRunner(direction MigrationDirection) *MigrationRunner {
	return &MigrationRunner{direction: direction}
}

func (m *MigrationRunner) Run(ctx context.Context) error {
	if m.direction == MigrateDown {
		return m.Migrator.Down(ctx)
	}
	return m.Migrator.Up(ctx)
}
