package base

import (
	"context"
	"fmt"
	"strings"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

// ExportBatchSize is the number of rows per INSERT statement in exported scripts.
const ExportBatchSize = 500

// SchemaReader reads table structure.
type SchemaReader interface {
	GetTableDDL(ctx context.Context, table string) (string, error)
	GetColumns(ctx context.Context, table string) ([]adapters.ColumnDescriptor, error)
}

// DataReader reads table contents.
type DataReader interface {
	GetRows(ctx context.Context, table string) ([]adapters.Row, error)
}

// Formatter renders identifiers and literals in the engine's dialect.
type Formatter interface {
	QuoteIdentifier(name string) string
	FormatValueForSQL(v any) string
}

// ExportHelper renders a table as a SQL script fragment. It is shared by
// all adapters; only the readers and formatter differ.
type ExportHelper struct {
	schemaReader SchemaReader
	dataReader   DataReader
	formatter    Formatter
}

func NewExportHelper(schemaReader SchemaReader, dataReader DataReader, formatter Formatter) *ExportHelper {
	return &ExportHelper{
		schemaReader: schemaReader,
		dataReader:   dataReader,
		formatter:    formatter,
	}
}

// ExportTableSQL emits DROP TABLE IF EXISTS, the CREATE statement and,
// when includeData is set, INSERT statements of ExportBatchSize rows.
func (h *ExportHelper) ExportTableSQL(ctx context.Context, table string, includeData bool) (string, error) {
	ddl, err := h.schemaReader.GetTableDDL(ctx, table)
	if err != nil {
		return "", err
	}
	if ddl == "" {
		return "", fmt.Errorf("%w: table %s not found", adapters.ErrSchema, table)
	}

	quoted := h.formatter.QuoteIdentifier(table)
	parts := []string{
		"-- Table structure: " + table,
		"DROP TABLE IF EXISTS " + quoted + ";",
		strings.TrimRight(strings.TrimSpace(ddl), ";") + ";\n",
	}

	if includeData {
		cols, err := h.schemaReader.GetColumns(ctx, table)
		if err != nil {
			return "", err
		}
		rows, err := h.dataReader.GetRows(ctx, table)
		if err != nil {
			return "", err
		}
		if len(cols) > 0 && len(rows) > 0 {
			parts = append(parts, "-- Table data: "+table)
			names := adapters.ColumnNames(cols)
			for start := 0; start < len(rows); start += ExportBatchSize {
				end := min(start+ExportBatchSize, len(rows))
				parts = append(parts, h.InsertStatement(table, names, rows[start:end]), "")
			}
		}
	}

	return strings.Join(parts, "\n"), nil
}

// InsertStatement renders one multi-row INSERT with literal values.
func (h *ExportHelper) InsertStatement(table string, columns []string, rows []adapters.Row) string {
	if len(rows) == 0 {
		return ""
	}

	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = h.formatter.QuoteIdentifier(c)
	}

	values := make([]string, len(rows))
	for i, row := range rows {
		lits := make([]string, len(row))
		for j, v := range row {
			lits[j] = h.formatter.FormatValueForSQL(v)
		}
		values[i] = "(" + strings.Join(lits, ", ") + ")"
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES\n%s;",
		h.formatter.QuoteIdentifier(table), strings.Join(cols, ", "), strings.Join(values, ",\n"))
}
