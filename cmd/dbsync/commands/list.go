package commands

import (
	"context"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

// ListTables lists all tables in the database
func ListTables(ctx context.Context, env Env, config adapters.Config) error {
	o, err := env.open(ctx, &config, nil)
	if err != nil {
		return err
	}
	defer o.Close(ctx)

	tables, err := o.SourceTables(ctx)
	if err != nil {
		return err
	}

	if len(tables) == 0 {
		env.printf("No tables found in %s\n", config)
		return nil
	}

	env.printf("Found %d table(s) in %s:\n", len(tables), config)
	for i, table := range tables {
		env.printf("  %d. %s\n", i+1, table)
	}
	return nil
}
