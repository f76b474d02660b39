package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbsync/pkg/adapters"
	"github.com/ruslano69/dbsync/pkg/adapters/base"
)

// Compile-time check
var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(adapters.PostgreSQL, func(cfg adapters.Config) adapters.Adapter {
		return New(cfg)
	})
}

// Adapter implements adapters.Adapter for PostgreSQL. The pool is capped
// at one connection so the adapter owns exactly one session.
type Adapter struct {
	pool   *pgxpool.Pool
	schema string
	config adapters.Config

	literals     base.LiteralStyle
	exportHelper *base.ExportHelper
}

// New returns a disconnected adapter.
func New(cfg adapters.Config) *Adapter {
	cfg.Engine = adapters.PostgreSQL
	a := &Adapter{
		config:   cfg,
		schema:   cfg.Schema,
		literals: base.LiteralStyle{Blob: byteaLiteral},
	}
	if a.schema == "" {
		a.schema = "public"
	}
	a.exportHelper = base.NewExportHelper(a, a, a)
	return a
}

// ConnString renders cfg as a postgres:// URL.
func ConnString(cfg adapters.Config) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	q := url.Values{}
	q.Set("connect_timeout", strconv.Itoa(int(cfg.Timeout().Seconds())))
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect opens a single-connection pool.
func (a *Adapter) Connect(ctx context.Context) error {
	log := zerolog.Ctx(ctx).With().
		Str("engine", string(adapters.PostgreSQL)).
		Str("host", a.config.Host).
		Int("port", a.config.Port).
		Str("database", a.config.Database).
		Logger()

	if a.pool != nil {
		return nil
	}

	poolCfg, err := pgxpool.ParseConfig(ConnString(a.config))
	if err != nil {
		log.Error().Err(err).Msg("invalid connection settings")
		return fmt.Errorf("%w: failed to parse connection string: %v", adapters.ErrConnection, err)
	}
	poolCfg.MaxConns = 1
	poolCfg.MinConns = 0
	poolCfg.ConnConfig.ConnectTimeout = a.config.Timeout()
	poolCfg.ConnConfig.RuntimeParams["search_path"] = a.schema

	connectCtx, cancel := context.WithTimeout(ctx, a.config.Timeout())
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to create connection pool")
		return fmt.Errorf("%w: failed to create connection pool: %v", adapters.ErrConnection, err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("failed to connect")
		return fmt.Errorf("%w: failed to connect to %s: %v", adapters.ErrConnection, a.config, err)
	}

	a.pool = pool
	log.Debug().Str("schema", a.schema).Msg("connected")
	return nil
}

func (a *Adapter) Close(ctx context.Context) error {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return nil
}

func (a *Adapter) IsConnected() bool {
	return a.pool != nil
}

func (a *Adapter) conn() (*pgxpool.Pool, error) {
	if a.pool == nil {
		return nil, adapters.ErrNotConnected
	}
	return a.pool, nil
}

func (a *Adapter) Engine() adapters.Engine {
	return adapters.PostgreSQL
}

// Schema returns the schema tables are read from and created in.
func (a *Adapter) Schema() string {
	return a.schema
}

func (a *Adapter) Version(ctx context.Context) (string, error) {
	pool, err := a.conn()
	if err != nil {
		return "", err
	}
	var version string
	if err := pool.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}

// QuoteIdentifier wraps name in double quotes.
func (a *Adapter) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (a *Adapter) qualified(table string) string {
	return pgx.Identifier{a.schema, table}.Sanitize()
}

func (a *Adapter) FormatValueForSQL(v any) string {
	return a.literals.Format(NormalizeValue(v))
}

func (a *Adapter) ExportTableSQL(ctx context.Context, table string, includeData bool) (string, error) {
	return a.exportHelper.ExportTableSQL(ctx, table, includeData)
}

// byteaLiteral renders bytes in bytea hex input format. X'..' would be
// read as a bit string by PostgreSQL.
func byteaLiteral(b []byte) string {
	return fmt.Sprintf(`'\x%x'::bytea`, b)
}
