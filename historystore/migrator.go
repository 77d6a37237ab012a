package historystore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

//go:embed migrations/mysql/*.sql
var mysqlMigrations embed.FS

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// Migrator applies versioned schema migrations to the audit trail
// database. It is a separate path from [New]'s AutoMigrate: AutoMigrate
// is enough for a single process to bootstrap its own schema, but an
// operator rolling out a shared database wants explicit up/down control
// and a migrations table it can inspect.
type Migrator struct {
	migrate *migrate.Migrate
}

// NewMigrator opens a versioned migrator for driverName ("postgres",
// "mysql", or "sqlite") against dsn.
func NewMigrator(driverName, dsn string) (*Migrator, error) {
	var (
		fsys embed.FS
		path string
		drv  database.Driver
		err  error
	)

	var db *sql.DB
	switch driverName {
	case "postgres":
		fsys, path = postgresMigrations, "migrations/postgres"
		if db, err = sql.Open("postgres", dsn); err == nil {
			drv, err = postgres.WithInstance(db, &postgres.Config{})
		}
	case "mysql":
		fsys, path = mysqlMigrations, "migrations/mysql"
		if db, err = sql.Open("mysql", dsn); err == nil {
			drv, err = mysql.WithInstance(db, &mysql.Config{})
		}
	case "sqlite":
		fsys, path = sqliteMigrations, "migrations/sqlite"
		if db, err = sql.Open("sqlite", dsn); err == nil {
			drv, err = sqlite.WithInstance(db, &sqlite.Config{})
		}
	default:
		return nil, fmt.Errorf("historystore: unsupported migration driver %q", driverName)
	}
	if err != nil {
		return nil, fmt.Errorf("historystore: open database driver: %w", err)
	}

	sourceDriver, err := iofs.New(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("historystore: load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, driverName, drv)
	if err != nil {
		return nil, fmt.Errorf("historystore: init migrator: %w", err)
	}
	return &Migrator{migrate: m}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("historystore: migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.migrate.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("historystore: migrate down: %w", err)
	}
	return nil
}

// Version reports the current schema version and whether the last
// migration left the database in a dirty (partially applied) state.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("historystore: migrate version: %w", err)
	}
	return version, dirty, nil
}

// Close releases the migrator's database handle.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return sourceErr
	}
	return dbErr
}
