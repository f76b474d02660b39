package commands

import (
	"context"
	"fmt"

	"github.com/ruslano69/dbsync/pkg/adapters"
	"github.com/ruslano69/dbsync/pkg/migration"
)

// maxPrintedErrors bounds the statement errors echoed to the terminal;
// all of them are logged.
const maxPrintedErrors = 10

// Import executes a SQL script against the target database.
func Import(ctx context.Context, env Env, target adapters.Config, path string) error {
	o, err := env.open(ctx, nil, &target)
	if err != nil {
		return err
	}
	defer o.Close(ctx)

	var res *migration.ImportResult
	err = env.run(ctx, func(ctx context.Context, onProgress migration.ProgressFunc) error {
		var err error
		res, err = o.Import(ctx, path, onProgress)
		return err
	})
	if res == nil {
		return err
	}

	env.printf("%s\n", res.Summary())
	for i, msg := range res.Errors {
		if i == maxPrintedErrors {
			env.printf("  ... %d more\n", len(res.Errors)-maxPrintedErrors)
			break
		}
		env.printf("  ✗ %s\n", msg)
	}
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("%d of %d statements failed", len(res.Errors), res.Statements)
	}
	return nil
}
