package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Engine identifies a database engine kind.
type Engine string

const (
	MySQL      Engine = "mysql"
	SQLite     Engine = "sqlite"
	PostgreSQL Engine = "postgresql"
)

// DefaultConnectTimeout bounds connection attempts when Config.ConnectTimeout is zero.
const DefaultConnectTimeout = 10 * time.Second

// Engines lists every supported engine kind.
func Engines() []Engine {
	return []Engine{MySQL, SQLite, PostgreSQL}
}

// ParseEngine resolves an engine kind case-insensitively.
// "postgres", "pg" and "sqlite3" are accepted as aliases.
func ParseEngine(kind string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgresql", "postgres", "pg":
		return PostgreSQL, nil
	}
	return "", fmt.Errorf("%w: %q (supported: mysql, sqlite, postgresql)", ErrUnsupportedEngine, kind)
}

// FileBased reports whether the engine stores a database in a local file.
func (e Engine) FileBased() bool {
	return e == SQLite
}

// Config describes one database connection.
type Config struct {
	// Engine selects the adapter implementation.
	Engine Engine

	Host     string
	Port     int
	User     string
	Password string

	// Database is the database name for network engines
	// and the file path for SQLite.
	Database string

	// Schema is used by PostgreSQL only. Defaults to "public".
	Schema string

	// ConnectTimeout defaults to DefaultConnectTimeout.
	ConnectTimeout time.Duration
}

// Validate checks the fields required for the engine. It never touches the network.
func (c Config) Validate() error {
	if _, err := ParseEngine(string(c.Engine)); err != nil {
		return err
	}
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("%w: database name or file path is required", ErrConfiguration)
	}
	if c.Engine.FileBased() {
		return nil
	}
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("%w: host is required for %s", ErrConfiguration, c.Engine)
	}
	if strings.TrimSpace(c.User) == "" {
		return fmt.Errorf("%w: username is required for %s", ErrConfiguration, c.Engine)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range [1,65535]", ErrConfiguration, c.Port)
	}
	return nil
}

// Timeout returns the effective connect timeout.
func (c Config) Timeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return DefaultConnectTimeout
}

// String renders the config without the password.
func (c Config) String() string {
	if c.Engine.FileBased() {
		return fmt.Sprintf("%s:%s", c.Engine, c.Database)
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s", c.Engine, c.User, c.Host, c.Port, c.Database)
}

// ColumnDescriptor describes one table column as the engine reports it.
type ColumnDescriptor struct {
	Name string
	// Type is the engine-native spelling including modifiers, e.g. VARCHAR(255).
	Type       string
	Nullable   bool
	Default    *string
	PrimaryKey bool
	Extra      string
}

// Row is one fetched row aligned with the table's column order.
// Values are nil, int64, float64, bool, string, []byte or time.Time.
type Row []any

// Adapter is the uniform capability set over one engine connection.
// An adapter owns exactly one connection. Data operations on a
// disconnected adapter return ErrNotConnected.
type Adapter interface {
	// Connect opens the connection described by the adapter's Config.
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	IsConnected() bool

	Engine() Engine
	Version(ctx context.Context) (string, error)

	// ListTables returns table names, alphabetical for SQLite and PostgreSQL.
	ListTables(ctx context.Context) ([]string, error)

	// GetTableDDL returns a CREATE TABLE statement, or "" if the table does not exist.
	GetTableDDL(ctx context.Context, table string) (string, error)

	// GetColumns returns columns in ordinal order.
	GetColumns(ctx context.Context, table string) ([]ColumnDescriptor, error)

	// GetRows fetches the whole table.
	GetRows(ctx context.Context, table string) ([]Row, error)

	// DropTable is idempotent.
	DropTable(ctx context.Context, table string) error

	// CreateTable executes ddl verbatim, rolling back on failure.
	CreateTable(ctx context.Context, ddl string) error

	// InsertBatch inserts all rows in one transaction. Nothing is
	// committed if any row fails.
	InsertBatch(ctx context.Context, table string, columns []string, rows []Row) error

	Execute(ctx context.Context, stmt string) error

	QuoteIdentifier(name string) string

	BeginTx(ctx context.Context) (Tx, error)

	// FormatValueForSQL renders v as a SQL literal for script generation.
	FormatValueForSQL(v any) string

	// ExportTableSQL renders DROP, CREATE and, if includeData, batched INSERT statements.
	ExportTableSQL(ctx context.Context, table string, includeData bool) (string, error)
}

// Tx is a transaction on the adapter's connection.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ColumnNames extracts column names in order.
func ColumnNames(cols []ColumnDescriptor) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
