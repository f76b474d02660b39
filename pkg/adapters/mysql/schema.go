package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

// ListTables returns base tables in the order MySQL reports them.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	db, err := a.DB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SHOW FULL TABLES WHERE Table_type = 'BASE TABLE'")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query tables: %v", adapters.ErrSchema, err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

func (a *Adapter) tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_name = ?
	`
	var count int
	if err := db.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return count > 0, nil
}

// GetTableDDL returns SHOW CREATE TABLE output, or "" for a missing table.
func (a *Adapter) GetTableDDL(ctx context.Context, table string) (string, error) {
	db, err := a.DB()
	if err != nil {
		return "", err
	}

	exists, err := a.tableExists(ctx, db, table)
	if err != nil {
		return "", fmt.Errorf("%w: %v", adapters.ErrSchema, err)
	}
	if !exists {
		return "", nil
	}

	var name, ddl string
	if err := db.QueryRowContext(ctx, "SHOW CREATE TABLE "+a.QuoteIdentifier(table)).Scan(&name, &ddl); err != nil {
		return "", fmt.Errorf("%w: failed to read DDL of %s: %v", adapters.ErrSchema, table, err)
	}
	return ddl, nil
}

// GetColumns reads information_schema.columns in ordinal order.
func (a *Adapter) GetColumns(ctx context.Context, table string) ([]adapters.ColumnDescriptor, error) {
	db, err := a.DB()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT column_name, column_type, is_nullable, column_default, column_key, extra
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		ORDER BY ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read columns of %s: %v", adapters.ErrSchema, table, err)
	}
	defer rows.Close()

	var cols []adapters.ColumnDescriptor
	for rows.Next() {
		var (
			name, typ, nullable, key, extra string
			dflt                            sql.NullString
		)
		if err := rows.Scan(&name, &typ, &nullable, &dflt, &key, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}

		col := adapters.ColumnDescriptor{
			Name:       name,
			Type:       typ,
			Nullable:   strings.EqualFold(nullable, "YES"),
			PrimaryKey: key == "PRI",
			Extra:      extra,
		}
		if dflt.Valid {
			d := dflt.String
			col.Default = &d
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return cols, nil
}
