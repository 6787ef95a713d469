package state

import (
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose reads migrations from the embedded FS so the binary is
// self-contained.
func (s *Store) prepareMigrations() error {
	if s.db == nil {
		return errors.New("database not opened")
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// Migrate brings the schema up to the latest version.
func (s *Store) Migrate() error {
	if err := s.prepareMigrations(); err != nil {
		return err
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the schema version the store is at.
func (s *Store) MigrationVersion() (int64, error) {
	if err := s.prepareMigrations(); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(s.db)
}
