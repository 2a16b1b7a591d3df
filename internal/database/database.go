// Package database handles the Postgres connection and schema
// migrations.
package database

import (
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/advantage-shop/shop-service/pkg/logger"
)

// Connect opens a Postgres connection pool and verifies it.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Migrate applies file-based migrations from dir against the database
// at dsn. An up-to-date schema is not an error.
func Migrate(dsn, dir string, log *logger.Logger) error {
	if log == nil {
		log = logger.NewDefault("database")
	}

	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return fmt.Errorf("open migrations %s: %w", dir, err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.WithError(srcErr).Warn("failed to close migration source")
		}
		if dbErr != nil {
			log.WithError(dbErr).Warn("failed to close migration database")
		}
	}()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("read migration version: %w", err)
	}
	log.WithField("version", version).WithField("dirty", dirty).Info("schema migrated")
	return nil
}
