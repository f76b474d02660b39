// Package migration sequences adapter and type mapper calls into the four
// user-facing operations: migrate a database, migrate one table, export a
// database to a SQL script and import a SQL script.
//
// Table and statement failures are collected and do not stop a run.
// Failing to connect or to enumerate source tables is fatal. The context
// is checked before every table and every statement, so cancelling it
// stops a run between units of work.
package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbsync/pkg/adapters"
	"github.com/ruslano69/dbsync/pkg/retry"
	"github.com/ruslano69/dbsync/pkg/typemap"
)

// Orchestrator drives one source and one target adapter.
// It must not be shared by concurrent operations.
type Orchestrator struct {
	source adapters.Adapter
	target adapters.Adapter

	converter    typemap.Converter
	splitter     Splitter
	logger       *zerolog.Logger
	retry        retry.Config
	tableTimeout time.Duration
	reporter     Reporter
	metrics      *Metrics
	now          func() time.Time
}

// New returns an Orchestrator over source and target. Either may be nil
// when an operation does not need it: Export uses only the source and
// Import only the target.
func New(source, target adapters.Adapter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:    source,
		target:    target,
		converter: typemap.PatternConverter{},
		retry:     retry.DefaultConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TableOptions control MigrateTable.
type TableOptions struct {
	// DropTarget drops the target table before creating it.
	DropTarget bool
	// ConvertTypes rewrites the DDL when the engines differ.
	ConvertTypes bool
}

// DatabaseOptions control MigrateDatabase.
type DatabaseOptions struct {
	Exclude      []string
	Include      []string
	DropTarget   bool
	ConvertTypes bool
}

func (o *Orchestrator) withLogger(ctx context.Context) context.Context {
	if o.logger != nil {
		return o.logger.WithContext(ctx)
	}
	return ctx
}

// Open connects both adapters, retrying per the retry config.
// Configuration errors are not retried.
func (o *Orchestrator) Open(ctx context.Context) error {
	ctx = o.withLogger(ctx)

	cfg := o.retry
	if cfg.Permanent == nil {
		cfg.Permanent = func(err error) bool {
			return errors.Is(err, adapters.ErrConfiguration) || errors.Is(err, adapters.ErrUnsupportedEngine)
		}
	}
	r, err := retry.NewRetryer(cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", adapters.ErrConfiguration, err)
	}

	for _, side := range []struct {
		name    string
		adapter adapters.Adapter
	}{
		{"source", o.source},
		{"target", o.target},
	} {
		if side.adapter == nil || side.adapter.IsConnected() {
			continue
		}
		if err := r.Do(ctx, side.adapter.Connect); err != nil {
			return fmt.Errorf("connect %s: %w", side.name, err)
		}

		event := zerolog.Ctx(ctx).Info().Str("side", side.name).Str("engine", string(side.adapter.Engine()))
		if v, err := side.adapter.Version(ctx); err == nil {
			event = event.Str("version", v)
		}
		event.Msg("connected")
	}
	return nil
}

// Close closes both adapters.
func (o *Orchestrator) Close(ctx context.Context) error {
	ctx = o.withLogger(ctx)

	var errs []error
	for _, a := range []adapters.Adapter{o.source, o.target} {
		if a == nil || !a.IsConnected() {
			continue
		}
		if err := a.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	zerolog.Ctx(ctx).Debug().Msg("connections closed")
	return errors.Join(errs...)
}

func (o *Orchestrator) requireSource() error {
	if o.source == nil {
		return fmt.Errorf("%w: no source database", adapters.ErrConfiguration)
	}
	return nil
}

func (o *Orchestrator) requireTarget() error {
	if o.target == nil {
		return fmt.Errorf("%w: no target database", adapters.ErrConfiguration)
	}
	return nil
}

// SourceTables lists the source tables without filtering.
func (o *Orchestrator) SourceTables(ctx context.Context) ([]string, error) {
	if err := o.requireSource(); err != nil {
		return nil, err
	}
	tables, err := o.source.ListTables(o.withLogger(ctx))
	if err != nil {
		return nil, fmt.Errorf("list source tables: %w", err)
	}
	return tables, nil
}

// MigrateTable copies one table's structure and then its data.
func (o *Orchestrator) MigrateTable(ctx context.Context, table string, opts TableOptions) error {
	ctx = o.withLogger(ctx)
	if err := o.requireSource(); err != nil {
		return err
	}
	if err := o.requireTarget(); err != nil {
		return err
	}
	_, err := o.migrateTable(ctx, table, opts)
	return err
}

func (o *Orchestrator) tableContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.tableTimeout > 0 {
		return context.WithTimeout(ctx, o.tableTimeout)
	}
	return context.WithCancel(ctx)
}

// migrateTable returns the number of rows copied.
func (o *Orchestrator) migrateTable(ctx context.Context, table string, opts TableOptions) (n int, err error) {
	ctx, cancel := o.tableContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		o.metrics.observeTable(OpMigrate, err, time.Since(start))
		o.metrics.addRows(n)
	}()

	logger := zerolog.Ctx(ctx).With().Str("table", table).Logger()
	logger.Info().Msg("migrating table")

	ddl, err := o.source.GetTableDDL(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("read structure of %s: %w", table, err)
	}
	if strings.TrimSpace(ddl) == "" {
		return 0, fmt.Errorf("%w: no structure for table %s", adapters.ErrSchema, table)
	}

	from, to := o.source.Engine(), o.target.Engine()
	if opts.ConvertTypes && from != to {
		ddl = o.converter.ConvertCreateTable(ctx, ddl, from, to)
		logger.Debug().Str("ddl", ddl).Msg("structure converted")
	}

	if opts.DropTarget {
		if err := o.target.DropTable(ctx, table); err != nil {
			logger.Warn().Err(err).Msg("drop target table failed, continuing")
		}
	}

	if err := o.target.CreateTable(ctx, ddl); err != nil {
		return 0, fmt.Errorf("create table %s: %w", table, err)
	}

	rows, err := o.source.GetRows(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("read rows of %s: %w", table, err)
	}
	if len(rows) == 0 {
		logger.Info().Msg("table has no data, structure only")
		return 0, nil
	}

	cols, err := o.source.GetColumns(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("read columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("%w: no columns for table %s", adapters.ErrSchema, table)
	}

	if err := o.target.InsertBatch(ctx, table, adapters.ColumnNames(cols), rows); err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}

	logger.Info().Int("rows", len(rows)).Msg("table migrated")
	return len(rows), nil
}

// MigrateDatabase migrates every table of the working set in source order.
// The returned error is non-nil only for fatal conditions: tables cannot
// be listed or ctx is done. Per-table failures are in Result.Errors.
func (o *Orchestrator) MigrateDatabase(ctx context.Context, opts DatabaseOptions, onProgress ProgressFunc) (res *Result, err error) {
	ctx = o.withLogger(ctx)
	logger := zerolog.Ctx(ctx)

	res = newResult(uuid.NewString(), OpMigrate, o.now())
	defer func() { o.finish(ctx, res, err) }()

	if err := o.requireSource(); err != nil {
		return res, err
	}
	if err := o.requireTarget(); err != nil {
		return res, err
	}

	tables, err := o.workingSet(ctx, opts.Exclude, opts.Include)
	if err != nil {
		return res, err
	}
	res.Tables = tables

	topts := TableOptions{DropTarget: opts.DropTarget, ConvertTypes: opts.ConvertTypes}
	for i, table := range tables {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("migration cancelled before table %s: %w", table, err)
		}

		res.Attempted++
		n, err := o.migrateTable(ctx, table, topts)
		if err != nil {
			logger.Error().Err(err).Str("table", table).Msg("table migration failed")
			res.fail(table, err)
		} else {
			res.Succeeded++
			res.Rows += int64(n)
		}

		progress(onProgress, percent(i+1, len(tables)), fmt.Sprintf("Migrated table %d/%d: %s", i+1, len(tables), table))
	}

	progress(onProgress, 100, "Migration complete")
	return res, nil
}

// workingSet lists source tables and applies the filters. A listing
// failure is fatal; an empty source is not.
func (o *Orchestrator) workingSet(ctx context.Context, exclude, include []string) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	source, err := o.source.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source tables: %w", err)
	}
	if len(source) == 0 {
		logger.Warn().Msg("source database has no tables")
		return nil, nil
	}

	tables := ResolveWorkingSet(source, exclude, include)
	logger.Info().
		Int("count", len(tables)).
		Int("skipped", len(source)-len(tables)).
		Strs("tables", tables).
		Msg("tables selected")
	return tables, nil
}

// ResolveWorkingSet returns source minus exclude, intersected with include
// when include is non-empty. Source order is preserved.
func ResolveWorkingSet(source, exclude, include []string) []string {
	excluded := toSet(exclude)
	included := toSet(include)

	out := make([]string, 0, len(source))
	for _, t := range source {
		if excluded[t] {
			continue
		}
		if len(included) > 0 && !included[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			set[n] = true
		}
	}
	return set
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return done * 100 / total
}

func progress(fn ProgressFunc, pct int, msg string) {
	if fn != nil {
		fn(pct, msg)
	}
}

type finishable interface {
	stamp(time.Time)
	Report(runErr error) RunReport
}

// finish stamps the result, logs the summary and hands the report on.
func (o *Orchestrator) finish(ctx context.Context, res finishable, runErr error) {
	res.stamp(o.now())
	rep := res.Report(runErr)
	if o.source != nil {
		rep.Source = string(o.source.Engine())
	}
	if o.target != nil && rep.Operation != OpExport {
		rep.Target = string(o.target.Engine())
	}

	logger := zerolog.Ctx(ctx)
	event := logger.Info()
	if rep.Status != StatusSuccess {
		event = logger.Warn()
	}
	event.Str("operation", rep.Operation).Str("status", rep.Status).Err(runErr).Msg(rep.Summary)

	o.metrics.observeRun(rep.Operation, rep.Status)

	if o.reporter == nil {
		return
	}
	if err := o.reporter.ReportRun(ctx, rep); err != nil {
		logger.Warn().Err(err).Msg("publishing run report failed")
	}
}

func (r *Result) stamp(t time.Time)       { r.FinishedAt = t }
func (r *ImportResult) stamp(t time.Time) { r.FinishedAt = t }
