package base

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

type fakeTable struct {
	ddl     string
	cols    []adapters.ColumnDescriptor
	rows    []adapters.Row
	rowsErr error
}

func (f *fakeTable) GetTableDDL(ctx context.Context, table string) (string, error) {
	return f.ddl, nil
}

func (f *fakeTable) GetColumns(ctx context.Context, table string) ([]adapters.ColumnDescriptor, error) {
	return f.cols, nil
}

func (f *fakeTable) GetRows(ctx context.Context, table string) ([]adapters.Row, error) {
	return f.rows, f.rowsErr
}

func (f *fakeTable) QuoteIdentifier(name string) string { return QuoteWith("`")(name) }

func (f *fakeTable) FormatValueForSQL(v any) string { return FormatValue(v) }

func newFakeHelper(f *fakeTable) *ExportHelper {
	return NewExportHelper(f, f, f)
}

func TestExportTableSQL_Format(t *testing.T) {
	f := &fakeTable{
		ddl:  "CREATE TABLE users(id INTEGER PRIMARY KEY, name TEXT)",
		cols: []adapters.ColumnDescriptor{{Name: "id"}, {Name: "name"}},
		rows: []adapters.Row{{int64(1), "Alice"}, {int64(2), nil}},
	}

	out, err := newFakeHelper(f).ExportTableSQL(context.Background(), "users", true)
	require.NoError(t, err)

	want := "-- Table structure: users\n" +
		"DROP TABLE IF EXISTS `users`;\n" +
		"CREATE TABLE users(id INTEGER PRIMARY KEY, name TEXT);\n" +
		"\n" +
		"-- Table data: users\n" +
		"INSERT INTO `users` (`id`, `name`) VALUES\n" +
		"(1, 'Alice'),\n" +
		"(2, NULL);\n"
	assert.Equal(t, want, out)
}

func TestExportTableSQL_SchemaOnly(t *testing.T) {
	f := &fakeTable{ddl: "CREATE TABLE t (a INT);", rows: []adapters.Row{{int64(1)}}}

	out, err := newFakeHelper(f).ExportTableSQL(context.Background(), "t", false)
	require.NoError(t, err)
	assert.NotContains(t, out, "INSERT")
	assert.Contains(t, out, "CREATE TABLE t (a INT);\n")
	assert.NotContains(t, out, ";;")
}

func TestExportTableSQL_Batches(t *testing.T) {
	f := &fakeTable{ddl: "CREATE TABLE n (v INT)", cols: []adapters.ColumnDescriptor{{Name: "v"}}}
	for i := 0; i < ExportBatchSize*2+1; i++ {
		f.rows = append(f.rows, adapters.Row{int64(i)})
	}

	out, err := newFakeHelper(f).ExportTableSQL(context.Background(), "n", true)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "INSERT INTO"))
	assert.Contains(t, out, fmt.Sprintf("(%d);", ExportBatchSize*2))
}

func TestExportTableSQL_MissingTable(t *testing.T) {
	_, err := newFakeHelper(&fakeTable{}).ExportTableSQL(context.Background(), "ghost", true)
	assert.ErrorIs(t, err, adapters.ErrSchema)
}

func TestExportTableSQL_FetchError(t *testing.T) {
	f := &fakeTable{
		ddl:     "CREATE TABLE t (a INT)",
		cols:    []adapters.ColumnDescriptor{{Name: "a"}},
		rowsErr: errors.New("boom"),
	}
	_, err := newFakeHelper(f).ExportTableSQL(context.Background(), "t", true)
	assert.Error(t, err)
}
