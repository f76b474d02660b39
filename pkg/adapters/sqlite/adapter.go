package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/ruslano69/dbsync/pkg/adapters"
	"github.com/ruslano69/dbsync/pkg/adapters/base"
)

const driverSqlite = "sqlite"

// Compile-time check
var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(adapters.SQLite, func(cfg adapters.Config) adapters.Adapter {
		return New(cfg)
	})
}

// Adapter implements adapters.Adapter for SQLite files.
type Adapter struct {
	*base.SQLConn

	config       adapters.Config
	literals     base.LiteralStyle
	exportHelper *base.ExportHelper
}

// New returns a disconnected adapter for cfg.Database.
func New(cfg adapters.Config) *Adapter {
	cfg.Engine = adapters.SQLite
	a := &Adapter{
		SQLConn: base.NewSQLConn(base.QuoteWith("`")),
		config:  cfg,
	}
	a.exportHelper = base.NewExportHelper(a, a, a)
	return a
}

// Connect opens the database file, creating parent directories if needed.
func (a *Adapter) Connect(ctx context.Context) error {
	log := zerolog.Ctx(ctx).With().Str("engine", string(adapters.SQLite)).Str("database", a.config.Database).Logger()

	if a.IsConnected() {
		return nil
	}

	path := a.config.Database
	if isFilePath(path) {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Error().Err(err).Msg("failed to create database directory")
				return fmt.Errorf("%w: failed to create directory %s: %v", adapters.ErrConnection, dir, err)
			}
		}
	}

	db, err := sql.Open(driverSqlite, path)
	if err != nil {
		log.Error().Err(err).Msg("failed to open database")
		return fmt.Errorf("%w: failed to open database: %v", adapters.ErrConnection, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, a.config.Timeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		log.Error().Err(err).Msg("failed to ping database")
		return fmt.Errorf("%w: failed to ping database: %v", adapters.ErrConnection, err)
	}

	a.Attach(db)
	a.applyPragmas(ctx)

	log.Debug().Msg("connected")
	return nil
}

// applyPragmas tunes the connection for bulk loads. Failures are logged only.
func (a *Adapter) applyPragmas(ctx context.Context) {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}

	db, err := a.DB()
	if err != nil {
		return
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("pragma", pragma).Msg("pragma failed")
		}
	}
}

func (a *Adapter) Engine() adapters.Engine {
	return adapters.SQLite
}

func (a *Adapter) Version(ctx context.Context) (string, error) {
	db, err := a.DB()
	if err != nil {
		return "", err
	}
	var version string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}
	return "SQLite " + version, nil
}

// QuoteIdentifier wraps name in backticks.
func (a *Adapter) QuoteIdentifier(name string) string {
	return base.QuoteWith("`")(name)
}

func (a *Adapter) FormatValueForSQL(v any) string {
	return a.literals.Format(v)
}

func (a *Adapter) ExportTableSQL(ctx context.Context, table string, includeData bool) (string, error) {
	return a.exportHelper.ExportTableSQL(ctx, table, includeData)
}

func isFilePath(path string) bool {
	return path != ":memory:" && !strings.HasPrefix(path, "file:")
}
