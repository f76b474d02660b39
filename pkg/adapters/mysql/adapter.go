package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	driver "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbsync/pkg/adapters"
	"github.com/ruslano69/dbsync/pkg/adapters/base"
)

// Compile-time check
var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(adapters.MySQL, func(cfg adapters.Config) adapters.Adapter {
		return New(cfg)
	})
}

// Adapter implements adapters.Adapter for MySQL.
type Adapter struct {
	*base.SQLConn

	config       adapters.Config
	literals     base.LiteralStyle
	exportHelper *base.ExportHelper
}

// New returns a disconnected adapter.
func New(cfg adapters.Config) *Adapter {
	cfg.Engine = adapters.MySQL
	a := &Adapter{
		SQLConn:  base.NewSQLConn(base.QuoteWith("`")),
		config:   cfg,
		literals: base.LiteralStyle{EscapeBackslash: true},
	}
	a.exportHelper = base.NewExportHelper(a, a, a)
	return a
}

// DriverConfig translates the connection settings into a driver config.
func DriverConfig(cfg adapters.Config) *driver.Config {
	dc := driver.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dc.DBName = cfg.Database
	dc.ParseTime = true
	dc.Timeout = cfg.Timeout()
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc
}

// Connect opens a single connection with the configured connect timeout.
func (a *Adapter) Connect(ctx context.Context) error {
	log := zerolog.Ctx(ctx).With().
		Str("engine", string(adapters.MySQL)).
		Str("host", a.config.Host).
		Int("port", a.config.Port).
		Str("database", a.config.Database).
		Logger()

	if a.IsConnected() {
		return nil
	}

	connector, err := driver.NewConnector(DriverConfig(a.config))
	if err != nil {
		log.Error().Err(err).Msg("invalid connection settings")
		return fmt.Errorf("%w: invalid connection settings: %v", adapters.ErrConnection, err)
	}
	db := sql.OpenDB(connector)

	pingCtx, cancel := context.WithTimeout(ctx, a.config.Timeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		log.Error().Err(err).Msg("failed to connect")
		return fmt.Errorf("%w: failed to connect to %s: %v", adapters.ErrConnection, a.config, err)
	}

	a.Attach(db)
	log.Debug().Msg("connected")
	return nil
}

func (a *Adapter) Engine() adapters.Engine {
	return adapters.MySQL
}

func (a *Adapter) Version(ctx context.Context) (string, error) {
	db, err := a.DB()
	if err != nil {
		return "", err
	}
	var version string
	if err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}
	return "MySQL " + version, nil
}

// QuoteIdentifier wraps name in backticks.
func (a *Adapter) QuoteIdentifier(name string) string {
	return base.QuoteWith("`")(name)
}

// FormatValueForSQL escapes backslashes as well as quotes, since MySQL
// treats backslash as an escape character in string literals.
func (a *Adapter) FormatValueForSQL(v any) string {
	return a.literals.Format(v)
}

func (a *Adapter) ExportTableSQL(ctx context.Context, table string, includeData bool) (string, error) {
	return a.exportHelper.ExportTableSQL(ctx, table, includeData)
}
