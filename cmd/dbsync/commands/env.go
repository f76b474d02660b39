package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbsync/pkg/adapters"
	"github.com/ruslano69/dbsync/pkg/migration"
	"github.com/ruslano69/dbsync/pkg/retry"
)

// Env carries the settings shared by all commands.
type Env struct {
	Logger zerolog.Logger
	// Out receives progress and summaries. Defaults to stdout.
	Out io.Writer

	Retry        retry.Config
	TableTimeout time.Duration
	Splitter     migration.Splitter
	Reporter     migration.Reporter
	Metrics      *migration.Metrics
}

func (e Env) out() io.Writer {
	if e.Out == nil {
		return os.Stdout
	}
	return e.Out
}

func (e Env) printf(format string, args ...any) {
	fmt.Fprintf(e.out(), format, args...)
}

// open builds the adapters for the given configs (nil skips a side),
// connects them and returns the orchestrator over them.
func (e Env) open(ctx context.Context, source, target *adapters.Config) (*migration.Orchestrator, error) {
	var src, dst adapters.Adapter
	var err error
	if source != nil {
		if src, err = adapters.GetAdapter(string(source.Engine), *source); err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
	}
	if target != nil {
		if dst, err = adapters.GetAdapter(string(target.Engine), *target); err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}
	}

	opts := []migration.Option{
		migration.WithLogger(e.Logger),
		migration.WithRetry(e.Retry),
		migration.WithTableTimeout(e.TableTimeout),
		migration.WithSplitter(e.Splitter),
		migration.WithMetrics(e.Metrics),
	}
	if e.Reporter != nil {
		opts = append(opts, migration.WithReporter(e.Reporter))
	}

	o := migration.New(src, dst, opts...)
	if err := o.Open(ctx); err != nil {
		o.Close(ctx)
		return nil, err
	}
	return o, nil
}

// run executes fn as a task and prints its progress until it ends.
func (e Env) run(ctx context.Context, fn migration.TaskFunc) error {
	task := migration.Start(ctx, fn)
	for p := range task.Progress() {
		e.printf("[%3d%%] %s\n", p.Percent, p.Message)
	}
	return task.Wait()
}
