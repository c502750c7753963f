package db

import (
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/m-sorano/ai-cafe/internal/apperr"
	"github.com/m-sorano/ai-cafe/internal/config"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Repository provides methods for working with the database.
type Repository struct {
	db     *sqlx.DB
	driver string
}

// NewRepository opens the database named by the configuration.
func NewRepository(cfg *config.Config) (*Repository, error) {
	driver := cfg.Database.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	dsn := cfg.Database.DSN

	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
		if dsn == "" {
			return nil, errors.New("DATABASE_URL must be set for the postgres driver")
		}
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if driver == DriverSQLite {
		// One connection keeps :memory: databases shared and serializes writers.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	return &Repository{db: conn, driver: driver}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Driver returns the name of the active database driver.
func (r *Repository) Driver() string {
	return r.driver
}

// q rebinds a query written with ? placeholders for the active driver.
func (r *Repository) q(query string) string {
	return r.db.Rebind(query)
}

func sqliteDSN(path string) string {
	if path == "" {
		path = "aicafe.db"
	}
	if strings.Contains(path, "_foreign_keys") {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on"
	}
	return path + "?_foreign_keys=on"
}

// storeErr converts a driver error into an application error. sql.ErrNoRows
// becomes NotFound with the given message.
func storeErr(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(notFound)
	}
	if isUniqueViolation(err) {
		return apperr.Conflict("already exists")
	}
	return apperr.Remote(err, "database error")
}

// uniqueViolation is the postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == uniqueViolation
	}
	return false
}

// expectRow returns NotFound when a write touched no rows.
func expectRow(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err, "")
	}
	if n == 0 {
		return apperr.NotFound(notFound)
	}
	return nil
}
