// dbsync moves tables between MySQL, SQLite and PostgreSQL databases and
// exports or imports them as SQL scripts.
//
// Usage:
//
//	dbsync [-config dbsync.yaml] -migrate | -table <name> | -export | -import <file> | -list
//
// Environment:
//
//	DBSYNC_CONFIG  default config path
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbsync/cmd/dbsync/commands"
	"github.com/ruslano69/dbsync/pkg/adapters"
	_ "github.com/ruslano69/dbsync/pkg/adapters/mysql"
	_ "github.com/ruslano69/dbsync/pkg/adapters/postgres"
	_ "github.com/ruslano69/dbsync/pkg/adapters/sqlite"
	"github.com/ruslano69/dbsync/pkg/migration"
	"github.com/ruslano69/dbsync/pkg/resultlog"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run executes one command and returns the process exit code. Deferred
// cleanup has finished by the time it returns.
func run(args []string, stderr io.Writer) int {
	flags, err := ParseFlags(args, stderr)
	if err != nil {
		return 2
	}

	if *flags.Version {
		PrintVersion()
		return 0
	}
	if *flags.Help {
		PrintHelp()
		return 0
	}

	if *flags.CreateConfig {
		if err := createConfigTemplate(flags.ConfigPath()); err != nil {
			return fail(stderr, err)
		}
		return 0
	}

	if !flags.commandWasSpecified() {
		PrintHelp()
		return 1
	}

	config, err := LoadConfig(flags.ConfigPath())
	if err != nil {
		return fail(stderr, fmt.Errorf("failed to load config: %w", err))
	}
	flags.Apply(config)

	logger := newLogger(config.Logging, stderr)

	// Ctrl+C stops the run between tables or statements.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	env := commands.Env{
		Logger:       logger,
		Retry:        config.Retry,
		TableTimeout: config.Sync.TableTimeout,
		Splitter:     migration.Splitter{HonorDelimiter: config.Sync.HonorDelimiter},
	}

	if config.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		env.Metrics = migration.NewMetrics(reg)
		srv := startMetricsServer(logger, config.Metrics, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if config.ResultLog.Enabled() {
		publisher, err := resultlog.NewRedisPublisher(config.ResultLog)
		if err != nil {
			return fail(stderr, fmt.Errorf("invalid result_log: %w", err))
		}
		defer publisher.Close()
		env.Reporter = publisher
	}

	if err := dispatch(ctx, flags, config, env); err != nil {
		if errors.Is(err, context.Canceled) {
			return fail(stderr, fmt.Errorf("interrupted: %w", err))
		}
		return fail(stderr, fmt.Errorf("command failed: %w", err))
	}
	return 0
}

// dispatch resolves the databases the command needs and routes it.
func dispatch(ctx context.Context, flags *Flags, config *Config, env commands.Env) error {
	resolve := func(side string, d DatabaseConfig) (adapters.Config, error) {
		cfg, err := config.Resolve(d)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", side, err)
		}
		return cfg, nil
	}

	switch {
	case *flags.List:
		src, err := resolve("source", config.Source)
		if err != nil {
			return err
		}
		return commands.ListTables(ctx, env, src)

	case *flags.ListTarget:
		dst, err := resolve("target", config.Target)
		if err != nil {
			return err
		}
		return commands.ListTables(ctx, env, dst)

	case *flags.Migrate || *flags.Table != "":
		src, err := resolve("source", config.Source)
		if err != nil {
			return err
		}
		dst, err := resolve("target", config.Target)
		if err != nil {
			return err
		}
		return commands.Migrate(ctx, env, src, dst, commands.MigrateOptions{
			Table:        *flags.Table,
			Exclude:      config.Sync.ExcludeTables,
			Include:      config.Sync.IncludeTables,
			DropTarget:   config.Sync.DropTargetTables,
			ConvertTypes: config.Sync.ConvertTypes,
		})

	case *flags.Export:
		src, err := resolve("source", config.Source)
		if err != nil {
			return err
		}
		return commands.Export(ctx, env, src, commands.ExportOptions{
			Output:      *flags.Output,
			OutputDir:   config.Export.OutputDir,
			Exclude:     config.Sync.ExcludeTables,
			Include:     config.Sync.IncludeTables,
			IncludeData: config.Export.IncludeData,
			Compress:    config.Export.Compress,
		})

	case *flags.Import != "":
		dst, err := resolve("target", config.Target)
		if err != nil {
			return err
		}
		return commands.Import(ctx, env, dst, *flags.Import)
	}
	return nil
}

// newLogger builds the console (or JSON) logger at the configured level.
func newLogger(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
			level = l
		}
	}

	out := w
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func startMetricsServer(logger zerolog.Logger, cfg MetricsConfig, reg *prometheus.Registry) *http.Server {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.Listen).Str("path", path).Msg("metrics endpoint started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	return srv
}

// createConfigTemplate creates a sample configuration file
func createConfigTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, not overwriting", path)
	}

	if err := SaveConfig(path, CreateSampleConfig()); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("✓ Created sample config: %s\n", path)
	fmt.Println("Edit the file with your database credentials and run:")
	fmt.Printf("  dbsync -list -config %s\n", path)
	return nil
}

// fail prints err and returns the failure exit code.
func fail(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
