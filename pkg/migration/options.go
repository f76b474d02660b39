package migration

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbsync/pkg/retry"
	"github.com/ruslano69/dbsync/pkg/typemap"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConverter replaces the DDL converter used when ConvertTypes is set.
func WithConverter(c typemap.Converter) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.converter = c
		}
	}
}

// WithLogger makes every call log through l instead of the context logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = &l
	}
}

// WithRetry retries adapter connects in Open.
func WithRetry(cfg retry.Config) Option {
	return func(o *Orchestrator) {
		o.retry = cfg
	}
}

// WithTableTimeout bounds the work done for a single table.
// Zero means no bound.
func WithTableTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.tableTimeout = d
	}
}

// WithReporter publishes a RunReport when an operation finishes.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = r
	}
}

// WithMetrics records operation metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithSplitter sets how Import splits scripts.
// The default is the legacy splitter (see SplitStatements).
func WithSplitter(s Splitter) Option {
	return func(o *Orchestrator) {
		o.splitter = s
	}
}

// WithClock overrides time.Now, for export headers and run timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// ProgressFunc receives a percentage in [0, 100] and a message after each
// unit of work and once more with 100 on completion.
type ProgressFunc func(percent int, message string)

// Reporter receives a report for every finished operation.
type Reporter interface {
	ReportRun(ctx context.Context, report RunReport) error
}
