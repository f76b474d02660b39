package commands

import (
	"context"
	"time"

	"github.com/ruslano69/dbsync/pkg/adapters"
	"github.com/ruslano69/dbsync/pkg/migration"
)

// ExportOptions contains export settings
type ExportOptions struct {
	// Output is the script path. When empty a name is generated in OutputDir.
	Output      string
	OutputDir   string
	Exclude     []string
	Include     []string
	IncludeData bool
	Compress    bool
}

// Export writes the source database to a SQL script.
func Export(ctx context.Context, env Env, source adapters.Config, opts ExportOptions) error {
	path := opts.Output
	if path == "" {
		dir := opts.OutputDir
		if dir == "" {
			dir = "."
		}
		path = migration.DefaultExportPath(dir, source.Database, time.Now())
	}

	o, err := env.open(ctx, &source, nil)
	if err != nil {
		return err
	}
	defer o.Close(ctx)

	var res *migration.Result
	err = env.run(ctx, func(ctx context.Context, onProgress migration.ProgressFunc) error {
		var err error
		res, err = o.Export(ctx, migration.ExportOptions{
			Path:        path,
			Exclude:     opts.Exclude,
			Include:     opts.Include,
			IncludeData: opts.IncludeData,
			Compress:    opts.Compress,
			SourceName:  source.Database,
		}, onProgress)
		return err
	})
	if err == nil && res != nil {
		env.printf("Written %s (%d bytes, xxh3 %s)\n", res.Path, res.Bytes, res.Checksum)
	}
	return env.summarize(res, err)
}
