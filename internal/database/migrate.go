package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var newMigrate = migrate.New

type Migrator struct {
	m *migrate.Migrate
}

func NewMigrator(dsn, migrationsPath string) (*Migrator, error) {
	m, err := newMigrate(fmt.Sprintf("file://%s", migrationsPath), dsn)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}

	return &Migrator{m: m}, nil
}

func (m *Migrator) Up() error {
	err := m.m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (m *Migrator) Down() error {
	err := m.m.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rolling back migrations: %w", err)
	}
	return nil
}

func (m *Migrator) Version() (uint, bool, error) {
	return m.m.Version()
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

// MigrateUp applies every pending migration and always closes the migrator.
func MigrateUp(dsn, migrationsPath string) (version uint, err error) {
	migrator, err := NewMigrator(dsn, migrationsPath)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing migrator: %w", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return 0, err
	}

	version, _, err = migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading migration version: %w", err)
	}
	return version, nil
}
