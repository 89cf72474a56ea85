package database

import (
	"fmt"
	"os"
	"path/filepath"

	"caseline/internal/config"
	"caseline/internal/contacts"
	"caseline/internal/database/migrations"
)

// NewDatabaseFromConfig opens the configured SQLite database and brings its
// schema up to date.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (contacts.Database, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path not configured")
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := OpenConnection(cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return NewSQLiteDatabaseFromDB(db), nil
}
