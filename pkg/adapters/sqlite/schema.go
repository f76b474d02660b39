package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

// ListTables returns user tables in alphabetical order. SQLite's internal
// sqlite_* tables are skipped.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	db, err := a.DB()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query tables: %v", adapters.ErrSchema, err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// GetTableDDL returns the CREATE statement stored in sqlite_master.
func (a *Adapter) GetTableDDL(ctx context.Context, table string) (string, error) {
	db, err := a.DB()
	if err != nil {
		return "", err
	}

	var ddl sql.NullString
	err = db.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to read DDL of %s: %v", adapters.ErrSchema, table, err)
	}
	return ddl.String, nil
}

// GetColumns reads PRAGMA table_info, which reports columns in declaration order.
func (a *Adapter) GetColumns(ctx context.Context, table string) ([]adapters.ColumnDescriptor, error) {
	db, err := a.DB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", a.QuoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read columns of %s: %v", adapters.ErrSchema, table, err)
	}
	defer rows.Close()

	var cols []adapters.ColumnDescriptor
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}

		col := adapters.ColumnDescriptor{
			Name:       name,
			Type:       typ,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
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
