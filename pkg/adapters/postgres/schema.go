package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

// ListTables returns tables of the adapter's schema in alphabetical order.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	pool, err := a.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT tablename
		FROM pg_catalog.pg_tables
		WHERE schemaname = $1
		ORDER BY tablename
	`
	rows, err := pool.Query(ctx, query, a.schema)
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

func (a *Adapter) tableExists(ctx context.Context, table string) (bool, error) {
	pool, err := a.conn()
	if err != nil {
		return false, err
	}

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = $1
			  AND table_name = $2
			  AND table_type = 'BASE TABLE'
		)
	`
	var exists bool
	if err := pool.QueryRow(ctx, query, a.schema, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return exists, nil
}

// GetColumns reads pg_attribute in attnum order. Type is the format_type
// spelling; columns fed by a sequence report Extra "auto_increment".
func (a *Adapter) GetColumns(ctx context.Context, table string) ([]adapters.ColumnDescriptor, error) {
	pool, err := a.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT a.attname,
		       format_type(a.atttypid, a.atttypmod),
		       NOT a.attnotnull,
		       pg_get_expr(d.adbin, d.adrelid),
		       EXISTS (
		           SELECT 1 FROM pg_index i
		           WHERE i.indrelid = a.attrelid
		             AND i.indisprimary
		             AND a.attnum = ANY(i.indkey)
		       )
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		WHERE n.nspname = $1
		  AND c.relname = $2
		  AND a.attnum > 0
		  AND NOT a.attisdropped
		ORDER BY a.attnum
	`

	rows, err := pool.Query(ctx, query, a.schema, table)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read columns of %s: %v", adapters.ErrSchema, table, err)
	}
	defer rows.Close()

	var cols []adapters.ColumnDescriptor
	for rows.Next() {
		var col adapters.ColumnDescriptor
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.Default, &col.PrimaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		if col.Default != nil && strings.Contains(*col.Default, "nextval(") {
			col.Extra = "auto_increment"
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return cols, nil
}

func (a *Adapter) primaryKeyColumns(ctx context.Context, table string) ([]string, error) {
	pool, err := a.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = (quote_ident($1) || '.' || quote_ident($2))::regclass
		  AND i.indisprimary
		ORDER BY array_position(i.indkey, a.attnum)
	`
	rows, err := pool.Query(ctx, query, a.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read primary key of %s: %w", table, err)
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		pk = append(pk, name)
	}
	return pk, rows.Err()
}

// GetTableDDL synthesizes CREATE TABLE from catalog metadata, since
// PostgreSQL has no SHOW CREATE TABLE.
func (a *Adapter) GetTableDDL(ctx context.Context, table string) (string, error) {
	exists, err := a.tableExists(ctx, table)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", nil
	}

	cols, err := a.GetColumns(ctx, table)
	if err != nil {
		return "", err
	}
	pk, err := a.primaryKeyColumns(ctx, table)
	if err != nil {
		return "", fmt.Errorf("%w: %v", adapters.ErrSchema, err)
	}

	return BuildCreateTable(a.QuoteIdentifier, table, cols, pk), nil
}

// BuildCreateTable renders the DDL for cols and primary key pk.
func BuildCreateTable(quote func(string) string, table string, cols []adapters.ColumnDescriptor, pk []string) string {
	defs := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		typ := CanonicalType(col.Type)
		def := col.Default
		if col.Extra == "auto_increment" {
			if serial, ok := serialTypes[typ]; ok {
				typ = serial
				def = nil
			}
		}

		var b strings.Builder
		b.WriteString(quote(col.Name))
		b.WriteString(" ")
		b.WriteString(typ)
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if def != nil {
			b.WriteString(" DEFAULT ")
			b.WriteString(stripLiteralCast(*def))
		}
		defs = append(defs, b.String())
	}

	if len(pk) > 0 {
		quoted := make([]string, len(pk))
		for i, c := range pk {
			quoted[i] = quote(c)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}

	return fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", quote(table), strings.Join(defs, ",\n    "))
}

var serialTypes = map[string]string{
	"SMALLINT": "SMALLSERIAL",
	"INTEGER":  "SERIAL",
	"BIGINT":   "BIGSERIAL",
}

var (
	reVarchar   = regexp.MustCompile(`^character varying(\(\d+\))?$`)
	reTimestamp = regexp.MustCompile(`^timestamp(\(\d+\))? (with|without) time zone$`)
	reTime      = regexp.MustCompile(`^time(\(\d+\))? (with|without) time zone$`)
	reCast      = regexp.MustCompile(`^('(?:[^']|'')*')::[a-z][a-z0-9_ ]*(\([0-9, ]+\))?(\[\])?$`)
)

// CanonicalType rewrites format_type output into the short spellings
// the type mapper understands, e.g. "character varying(20)" -> "VARCHAR(20)".
func CanonicalType(t string) string {
	if m := reVarchar.FindStringSubmatch(t); m != nil {
		return "VARCHAR" + m[1]
	}
	if m := reTimestamp.FindStringSubmatch(t); m != nil {
		if m[2] == "with" {
			return "TIMESTAMPTZ" + m[1]
		}
		return "TIMESTAMP" + m[1]
	}
	if m := reTime.FindStringSubmatch(t); m != nil {
		if m[2] == "with" {
			return "TIMETZ" + m[1]
		}
		return "TIME" + m[1]
	}
	if strings.Contains(t, `"`) {
		return t
	}
	return strings.ToUpper(t)
}

// stripLiteralCast turns 'x'::character varying into 'x'.
func stripLiteralCast(def string) string {
	if m := reCast.FindStringSubmatch(def); m != nil {
		return m[1]
	}
	return def
}
