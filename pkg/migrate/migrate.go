// Package migrate applies the Postgres schema with goose. The migrations are
// embedded, so each binary carries the schema it was built against. SQLite
// development databases are built with gorm AutoMigrate instead.
package migrate

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/multierr"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Files is the embedded migrations directory.
func Files() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Validate checks file names, version uniqueness and goose annotations
// without touching a database. Every problem found is reported.
func Validate(fsys fs.FS) error {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return errors.New("migrate: no migrations found")
	}

	var problems error
	versions := map[int64]string{}
	for _, name := range names {
		version, err := goose.NumericComponent(name)
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if first, taken := versions[version]; taken {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %d already used by %s", name, version, first))
			continue
		}
		versions[version] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			problems = multierr.Append(problems, err)
			continue
		}
		if !bytes.Contains(body, []byte("-- +goose Up")) {
			problems = multierr.Append(problems, fmt.Errorf("%s: missing -- +goose Up", name))
		}
	}
	return problems
}

// Runner applies the embedded migrations to one Postgres database.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB) (*Runner, error) {
	if db == nil {
		return nil, errors.New("migrate: database required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, Files())
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Up applies every pending migration and returns how many ran.
func (r *Runner) Up(ctx context.Context) (int, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("migrate up: %w", err)
	}
	return len(results), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) error {
	if _, err := r.provider.Down(ctx); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// To moves the schema up or down until version is the newest applied.
func (r *Runner) To(ctx context.Context, version int64) error {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("migrate: read schema version: %w", err)
	}
	switch {
	case version > current:
		_, err = r.provider.UpTo(ctx, version)
	case version < current:
		_, err = r.provider.DownTo(ctx, version)
	}
	if err != nil {
		return fmt.Errorf("migrate to %d: %w", version, err)
	}
	return nil
}

func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return r.provider.Status(ctx)
}
