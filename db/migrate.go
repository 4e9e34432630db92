package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies every pending up migration on the database at dsn.
func RunMigrations(dbType DBType, dsn string) error {
	return MigrateTo(dbType, dsn, 0)
}

// MigrateTo migrates up to version, or to the latest version when version is 0.
// It uses its own connection and closes it when done.
func MigrateTo(dbType DBType, dsn string, version uint) error {
	conn, err := sql.Open(driverName(dbType), dsn)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", dbType, err)
	}

	var driver database.Driver
	switch dbType {
	case Postgres:
		driver, err = postgres.WithInstance(conn, &postgres.Config{})
	case SQLite:
		driver, err = sqlite.WithInstance(conn, &sqlite.Config{})
	default:
		err = fmt.Errorf("no migrations for %q", dbType)
	}
	if err != nil {
		conn.Close()
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(dbType))
	if err != nil {
		conn.Close()
		return fmt.Errorf("could not open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dbType), driver)
	if err != nil {
		conn.Close()
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if version == 0 {
		err = m.Up()
	} else {
		err = m.Migrate(version)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func driverName(dbType DBType) string {
	if dbType == SQLite {
		return "sqlite"
	}
	return "postgres"
}
