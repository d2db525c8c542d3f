package auth

import (
	"context"
	"embed"
	"io/fs"
	"sync"

	"github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
)

const migrationsRoot = "data/sql/migrations"

//go:embed data/sql/migrations
var migrationsFS embed.FS

var registerModels sync.Once

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// RegisterPersistence registers the package models and SQL migrations
// on client
func RegisterPersistence(client *persistence.Client) error {
	registerModels.Do(func() {
		persistence.RegisterModel((*User)(nil))
	})

	sub, err := fs.Sub(migrationsFS, migrationsRoot)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to open migrations")
	}

	client.RegisterDialectMigrations(
		sub,
		persistence.WithDialectSourceLabel(migrationsRoot),
		persistence.WithValidationTargets("sqlite"),
	)

	return nil
}

// Migrate registers the package migrations on client, validates them for
// the configured dialects and applies whatever is pending
func Migrate(ctx context.Context, client *persistence.Client) error {
	if err := RegisterPersistence(client); err != nil {
		return err
	}

	if err := client.ValidateDialects(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "invalid migrations")
	}

	if err := client.Migrate(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "migration failed")
	}

	return nil
}
