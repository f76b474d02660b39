package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ruslano69/dbsync/pkg/adapters"
	"github.com/ruslano69/dbsync/pkg/migration"
)

// MigrateOptions contains migrate settings
type MigrateOptions struct {
	// Table migrates a single table instead of the whole database.
	Table        string
	Exclude      []string
	Include      []string
	DropTarget   bool
	ConvertTypes bool
}

// Migrate copies tables from source to target.
func Migrate(ctx context.Context, env Env, source, target adapters.Config, opts MigrateOptions) error {
	if sameDatabase(source, target) {
		return fmt.Errorf("%w: source and target are the same database (%s)", adapters.ErrConfiguration, source)
	}

	o, err := env.open(ctx, &source, &target)
	if err != nil {
		return err
	}
	defer o.Close(ctx)

	env.printf("Migrating %s -> %s\n", source, target)

	if opts.Table != "" {
		err := o.MigrateTable(ctx, opts.Table, migration.TableOptions{
			DropTarget:   opts.DropTarget,
			ConvertTypes: opts.ConvertTypes,
		})
		if err != nil {
			return err
		}
		env.printf("✓ Table %s migrated\n", opts.Table)
		return nil
	}

	var res *migration.Result
	err = env.run(ctx, func(ctx context.Context, onProgress migration.ProgressFunc) error {
		var err error
		res, err = o.MigrateDatabase(ctx, migration.DatabaseOptions{
			Exclude:      opts.Exclude,
			Include:      opts.Include,
			DropTarget:   opts.DropTarget,
			ConvertTypes: opts.ConvertTypes,
		}, onProgress)
		return err
	})
	return env.summarize(res, err)
}

// sameDatabase reports whether a and b address the same database.
// PostgreSQL configs that name different schemas are distinct.
func sameDatabase(a, b adapters.Config) bool {
	if a.Engine != b.Engine {
		return false
	}
	if a.Engine.FileBased() {
		return absPath(a.Database) == absPath(b.Database)
	}
	if !strings.EqualFold(a.Host, b.Host) || a.Port != b.Port || a.Database != b.Database {
		return false
	}
	if a.Engine == adapters.PostgreSQL {
		return pgSchema(a) == pgSchema(b)
	}
	return true
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func pgSchema(c adapters.Config) string {
	if c.Schema == "" {
		return "public"
	}
	return c.Schema
}

// summarize prints the outcome of a table run and turns table failures
// into an error for the exit code.
func (e Env) summarize(res *migration.Result, runErr error) error {
	if res == nil {
		return runErr
	}
	e.printf("%s\n", res.Summary())
	for _, table := range res.FailedTables() {
		e.printf("  ✗ %s: %v\n", table, res.Errors[table])
	}
	if runErr != nil {
		return runErr
	}
	if !res.OK() {
		return fmt.Errorf("%d of %d tables failed", len(res.Errors), len(res.Tables))
	}
	return nil
}
