package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// RunMigrations brings the schema up to date from the SQL files under
// migrationsPath. Safe to run on every startup: applied migrations are
// skipped and concurrent starters serialize on golang-migrate's lock.
// A dirty schema (a previous migration died half-way) aborts; that needs
// a human, not a retry.
func RunMigrations(db *sql.DB, migrationsPath string, logger *zap.Logger) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer closeMigrator(m, logger)

	if version, dirty, err := m.Version(); err == nil && dirty {
		return fmt.Errorf("schema is dirty at version %d, resolve manually before starting", version)
	}

	switch err := m.Up(); {
	case err == nil:
		version, _, _ := m.Version()
		logger.Info("Schema migrated",
			zap.String("path", migrationsPath),
			zap.Uint("version", version))
		return nil
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debug("Schema already current", zap.String("path", migrationsPath))
		return nil
	default:
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
}

func closeMigrator(m *migrate.Migrate, logger *zap.Logger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("Failed to close migration source", zap.Error(srcErr))
	}
	if dbErr != nil {
		logger.Warn("Failed to close migration database", zap.Error(dbErr))
	}
}
