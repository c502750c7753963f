package db

import (
	"context"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/m-sorano/ai-cafe/internal/category"
	"github.com/m-sorano/ai-cafe/internal/models"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies all pending schema migrations for the active driver.
func (r *Repository) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations/"+r.driver)
	if err != nil {
		return errors.Wrap(err, "open migrations")
	}

	var driver database.Driver
	switch r.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(r.db.DB, &postgres.Config{})
	default:
		driver, err = sqlite3.WithInstance(r.db.DB, &sqlite3.Config{})
	}
	if err != nil {
		return errors.Wrapf(err, "create %s migration driver", r.driver)
	}

	m, err := migrate.NewWithInstance("iofs", src, r.driver, driver)
	if err != nil {
		return errors.Wrap(err, "create migration instance")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

// SeedCategories inserts the default categories if the table is empty and
// returns the categories that exist afterwards.
func (r *Repository) SeedCategories(ctx context.Context) ([]*models.Category, error) {
	count, err := r.CountCategories(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return r.ListCategories(ctx)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storeErr(err, "")
	}
	defer tx.Rollback()

	for _, c := range category.Defaults() {
		_, err := tx.ExecContext(ctx, r.q(`INSERT INTO category (id, name, description, icon_url) VALUES (?, ?, ?, ?)`),
			uuid.NewString(), c.Name, c.Description, c.IconURL)
		if err != nil {
			return nil, storeErr(err, "")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr(err, "")
	}

	return r.ListCategories(ctx)
}
