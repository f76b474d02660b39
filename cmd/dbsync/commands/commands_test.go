package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/dbsync/pkg/adapters"
	_ "github.com/ruslano69/dbsync/pkg/adapters/postgres"
	_ "github.com/ruslano69/dbsync/pkg/adapters/sqlite"
)

func testEnv() (Env, *bytes.Buffer) {
	var out bytes.Buffer
	return Env{Logger: zerolog.Nop(), Out: &out}, &out
}

// sqliteDB creates a database file holding the given statements.
func sqliteDB(t *testing.T, name string, stmts ...string) adapters.Config {
	t.Helper()
	ctx := context.Background()
	cfg := adapters.Config{Engine: adapters.SQLite, Database: filepath.Join(t.TempDir(), name)}

	a, err := adapters.Open(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)
	for _, s := range stmts {
		require.NoError(t, a.Execute(ctx, s))
	}
	return cfg
}

func shop(t *testing.T) adapters.Config {
	return sqliteDB(t, "shop.db",
		"CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO customers VALUES (1, 'Ann'), (2, 'Bob')",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, total REAL)",
		"INSERT INTO orders VALUES (1, 9.5)",
	)
}

func rowCount(t *testing.T, cfg adapters.Config, table string) int {
	t.Helper()
	ctx := context.Background()
	a, err := adapters.Open(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)
	rows, err := a.GetRows(ctx, table)
	require.NoError(t, err)
	return len(rows)
}

func TestListTables(t *testing.T) {
	env, out := testEnv()
	require.NoError(t, ListTables(context.Background(), env, shop(t)))
	assert.Contains(t, out.String(), "Found 2 table(s)")
	assert.Contains(t, out.String(), "  1. customers\n  2. orders\n")
}

func TestListTables_Empty(t *testing.T) {
	env, out := testEnv()
	require.NoError(t, ListTables(context.Background(), env, sqliteDB(t, "empty.db")))
	assert.Contains(t, out.String(), "No tables found")
}

func TestMigrate(t *testing.T) {
	env, out := testEnv()
	src := shop(t)
	dst := sqliteDB(t, "copy.db")

	err := Migrate(context.Background(), env, src, dst, MigrateOptions{DropTarget: true, ConvertTypes: true})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "[ 50%] Migrated table 1/2: customers")
	assert.Contains(t, out.String(), "[100%] Migration complete")
	assert.Contains(t, out.String(), "Migrated 2/2 tables, 3 rows")
	assert.Equal(t, 2, rowCount(t, dst, "customers"))
	assert.Equal(t, 1, rowCount(t, dst, "orders"))
}

func TestMigrate_SingleTable(t *testing.T) {
	env, out := testEnv()
	src := shop(t)
	dst := sqliteDB(t, "copy.db")

	require.NoError(t, Migrate(context.Background(), env, src, dst, MigrateOptions{Table: "orders"}))
	assert.Contains(t, out.String(), "Table orders migrated")
	assert.Equal(t, 1, rowCount(t, dst, "orders"))
}

func TestMigrate_FailedTablesFailTheCommand(t *testing.T) {
	env, out := testEnv()
	src := shop(t)
	dst := sqliteDB(t, "copy.db", "CREATE TABLE orders (id INTEGER)")

	err := Migrate(context.Background(), env, src, dst, MigrateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 tables failed")
	assert.Contains(t, out.String(), "✗ orders:")
}

func TestMigrate_SameDatabase(t *testing.T) {
	env, _ := testEnv()
	src := shop(t)
	err := Migrate(context.Background(), env, src, src, MigrateOptions{})
	assert.ErrorIs(t, err, adapters.ErrConfiguration)
}

func TestMigrate_SameDatabaseRelativePath(t *testing.T) {
	wd, werr := os.Getwd()
	require.NoError(t, werr)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	env, _ := testEnv()
	a := adapters.Config{Engine: adapters.SQLite, Database: "./a.db"}
	b := adapters.Config{Engine: adapters.SQLite, Database: "a.db"}
	err := Migrate(context.Background(), env, a, b, MigrateOptions{})
	require.ErrorIs(t, err, adapters.ErrConfiguration)
	assert.Contains(t, err.Error(), "same database")
}

func TestMigrate_DifferentSchemasAllowed(t *testing.T) {
	env, _ := testEnv()
	src := adapters.Config{
		Engine:         adapters.PostgreSQL,
		Host:           "127.0.0.1",
		Port:           1,
		User:           "app",
		Database:       "shop",
		ConnectTimeout: time.Second,
	}
	dst := src
	dst.Schema = "archive"

	err := Migrate(context.Background(), env, src, dst, MigrateOptions{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "same database")
	assert.ErrorIs(t, err, adapters.ErrConnection)
}

func TestSameDatabase(t *testing.T) {
	pg := adapters.Config{Engine: adapters.PostgreSQL, Host: "db", Port: 5432, Database: "shop"}
	public := pg
	public.Schema = "public"
	other := pg
	other.Schema = "archive"
	mysql := adapters.Config{Engine: adapters.MySQL, Host: "DB", Port: 3306, Database: "shop", Schema: "x"}
	mysqlOther := mysql
	mysqlOther.Host = "db"
	mysqlOther.Schema = ""

	assert.True(t, sameDatabase(pg, public))
	assert.False(t, sameDatabase(pg, other))
	assert.True(t, sameDatabase(mysql, mysqlOther))
	assert.False(t, sameDatabase(pg, adapters.Config{Engine: adapters.PostgreSQL, Host: "db", Port: 5433, Database: "shop"}))
	assert.False(t, sameDatabase(pg, mysql))
}

func TestExportImport(t *testing.T) {
	env, out := testEnv()
	src := shop(t)
	dir := filepath.Join(t.TempDir(), "exports")

	require.NoError(t, Export(context.Background(), env, src, ExportOptions{
		OutputDir:   dir,
		IncludeData: true,
		Compress:    true,
	}))

	matches, err := filepath.Glob(filepath.Join(dir, "export_shop_*.sql.zst"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Contains(t, out.String(), "Exported 2/2 tables")

	dst := sqliteDB(t, "restored.db")
	out.Reset()
	require.NoError(t, Import(context.Background(), env, dst, matches[0]))
	assert.Contains(t, out.String(), "Executed 6/6 statements")
	assert.Equal(t, 2, rowCount(t, dst, "customers"))
}

func TestImport_StatementErrorsFailTheCommand(t *testing.T) {
	env, out := testEnv()
	dst := sqliteDB(t, "target.db")
	path := filepath.Join(t.TempDir(), "broken.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE a (x INTEGER);\nINSERT INTO missing VALUES (1);\nINSERT INTO a VALUES (1);\n"), 0o644))

	err := Import(context.Background(), env, dst, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 statements failed")
	assert.Contains(t, out.String(), "✗ statement 2:")
	assert.Equal(t, 1, rowCount(t, dst, "a"))
}

func TestImport_MissingFile(t *testing.T) {
	env, _ := testEnv()
	err := Import(context.Background(), env, sqliteDB(t, "target.db"), filepath.Join(t.TempDir(), "none.sql"))
	assert.ErrorIs(t, err, adapters.ErrConfiguration)
}
