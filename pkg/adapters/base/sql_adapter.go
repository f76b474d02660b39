package base

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

// SQLConn is the database/sql plumbing shared by the MySQL and SQLite
// adapters. It holds exactly one connection.
type SQLConn struct {
	db    *sql.DB
	quote func(string) string
}

// NewSQLConn returns a disconnected SQLConn that quotes identifiers with quote.
func NewSQLConn(quote func(string) string) *SQLConn {
	return &SQLConn{quote: quote}
}

// Attach takes ownership of db and pins it to a single connection.
func (c *SQLConn) Attach(db *sql.DB) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	c.db = db
}

// DB returns the live handle or ErrNotConnected.
func (c *SQLConn) DB() (*sql.DB, error) {
	if c.db == nil {
		return nil, adapters.ErrNotConnected
	}
	return c.db, nil
}

func (c *SQLConn) IsConnected() bool {
	return c.db != nil
}

// Close releases the connection. Closing a closed SQLConn is a no-op.
func (c *SQLConn) Close(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// QueryRows runs query and returns normalised rows.
func (c *SQLConn) QueryRows(ctx context.Context, query string, args ...any) ([]adapters.Row, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	var result []adapters.Row
	for rows.Next() {
		values := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(adapters.Row, len(values))
		for i, v := range values {
			row[i] = NormalizeValue(colTypes[i].DatabaseTypeName(), v)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// GetRows fetches the whole table.
func (c *SQLConn) GetRows(ctx context.Context, table string) ([]adapters.Row, error) {
	rows, err := c.QueryRows(ctx, "SELECT * FROM "+c.quote(table))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rows from %s: %v", adapters.ErrData, table, err)
	}
	return rows, nil
}

func (c *SQLConn) DropTable(ctx context.Context, table string) error {
	db, err := c.DB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+c.quote(table)); err != nil {
		return fmt.Errorf("%w: failed to drop table %s: %v", adapters.ErrSchema, table, err)
	}
	return nil
}

// CreateTable executes ddl in its own transaction.
func (c *SQLConn) CreateTable(ctx context.Context, ddl string) error {
	db, err := c.DB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", adapters.ErrSchema, err)
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		rollback(ctx, tx)
		return fmt.Errorf("%w: failed to create table: %v", adapters.ErrSchema, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit create table: %v", adapters.ErrSchema, err)
	}
	return nil
}

// InsertBatch prepares one INSERT and executes it for every row inside a
// single transaction.
func (c *SQLConn) InsertBatch(ctx context.Context, table string, columns []string, rows []adapters.Row) error {
	db, err := c.DB()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	query := InsertSQL(c.quote, table, columns, func(int) string { return "?" })

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", adapters.ErrData, err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		rollback(ctx, tx)
		return fmt.Errorf("%w: failed to prepare insert into %s: %v", adapters.ErrData, table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			rollback(ctx, tx)
			return fmt.Errorf("%w: row %d has %d values, expected %d", adapters.ErrData, i+1, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			rollback(ctx, tx)
			return fmt.Errorf("%w: failed to insert row %d into %s: %v", adapters.ErrData, i+1, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit insert into %s: %v", adapters.ErrData, table, err)
	}
	return nil
}

func (c *SQLConn) Execute(ctx context.Context, stmt string) error {
	db, err := c.DB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

func (c *SQLConn) BeginTx(ctx context.Context) (adapters.Tx, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &transaction{tx: tx}, nil
}

// transaction adapts *sql.Tx to adapters.Tx.
type transaction struct {
	tx *sql.Tx
}

func (t *transaction) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

func (t *transaction) Rollback(ctx context.Context) error {
	return t.tx.Rollback()
}

func rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("rollback failed")
	}
}

// InsertSQL builds INSERT INTO t (cols) VALUES (markers).
func InsertSQL(quote func(string) string, table string, columns []string, placeholder func(int) string) string {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = quote(col)
		marks[i] = placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// QuoteWith returns a quoting function that wraps identifiers in q,
// doubling any embedded q.
func QuoteWith(q string) func(string) string {
	return func(name string) string {
		return q + strings.ReplaceAll(name, q, q+q) + q
	}
}
