package migration

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

type fakeTable struct {
	ddl  string
	cols []adapters.ColumnDescriptor
	rows []adapters.Row
}

// fakeAdapter is an in-memory adapter with injectable failures.
type fakeAdapter struct {
	mu sync.Mutex

	engine    adapters.Engine
	connected bool

	connectErrs  []error // consumed one per Connect call
	connectCalls int
	listErr      error

	order  []string
	tables map[string]*fakeTable

	failCreate map[string]bool // table names whose CREATE fails
	failRows   map[string]error
	failInsert map[string]error
	failDrop   error
	failExport map[string]error
	failExec   func(stmt string) error
	beforeRows func(ctx context.Context, table string) error

	created  []string
	dropped  []string
	inserted map[string][]adapters.Row
	executed []string
}

func newFake(engine adapters.Engine) *fakeAdapter {
	return &fakeAdapter{
		engine:     engine,
		connected:  true,
		tables:     make(map[string]*fakeTable),
		failCreate: make(map[string]bool),
		failRows:   make(map[string]error),
		failInsert: make(map[string]error),
		failExport: make(map[string]error),
		inserted:   make(map[string][]adapters.Row),
	}
}

// addTable registers a table with columns id and name.
func (f *fakeAdapter) addTable(name string, rows ...adapters.Row) {
	f.order = append(f.order, name)
	f.tables[name] = &fakeTable{
		ddl:  fmt.Sprintf("CREATE TABLE %s(id INTEGER PRIMARY KEY, name TEXT)", name),
		cols: []adapters.ColumnDescriptor{{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "TEXT"}},
		rows: rows,
	}
}

func (f *fakeAdapter) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCalls++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		if err != nil {
			return err
		}
	}
	f.connected = true
	return nil
}

func (f *fakeAdapter) Close(ctx context.Context) error {
	f.connected = false
	return nil
}

func (f *fakeAdapter) IsConnected() bool { return f.connected }
func (f *fakeAdapter) Engine() adapters.Engine { return f.engine }

func (f *fakeAdapter) Version(ctx context.Context) (string, error) { return "fake 1.0", nil }

func (f *fakeAdapter) ListTables(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.order...), nil
}

func (f *fakeAdapter) GetTableDDL(ctx context.Context, table string) (string, error) {
	if t, ok := f.tables[table]; ok {
		return t.ddl, nil
	}
	return "", nil
}

func (f *fakeAdapter) GetColumns(ctx context.Context, table string) ([]adapters.ColumnDescriptor, error) {
	if t, ok := f.tables[table]; ok {
		return t.cols, nil
	}
	return nil, nil
}

func (f *fakeAdapter) GetRows(ctx context.Context, table string) ([]adapters.Row, error) {
	if f.beforeRows != nil {
		if err := f.beforeRows(ctx, table); err != nil {
			return nil, err
		}
	}
	if err := f.failRows[table]; err != nil {
		return nil, err
	}
	if t, ok := f.tables[table]; ok {
		return t.rows, nil
	}
	return nil, nil
}

func (f *fakeAdapter) DropTable(ctx context.Context, table string) error {
	if f.failDrop != nil {
		return f.failDrop
	}
	f.dropped = append(f.dropped, table)
	return nil
}

func (f *fakeAdapter) CreateTable(ctx context.Context, ddl string) error {
	for name := range f.failCreate {
		if strings.Contains(ddl, "TABLE "+name+"(") {
			return fmt.Errorf("%w: table %s already exists", adapters.ErrSchema, name)
		}
	}
	f.created = append(f.created, ddl)
	return nil
}

func (f *fakeAdapter) InsertBatch(ctx context.Context, table string, columns []string, rows []adapters.Row) error {
	if err := f.failInsert[table]; err != nil {
		return err
	}
	f.inserted[table] = append(f.inserted[table], rows...)
	return nil
}

func (f *fakeAdapter) Execute(ctx context.Context, stmt string) error {
	if f.failExec != nil {
		if err := f.failExec(stmt); err != nil {
			return err
		}
	}
	f.executed = append(f.executed, stmt)
	return nil
}

func (f *fakeAdapter) QuoteIdentifier(name string) string { return "`" + name + "`" }

func (f *fakeAdapter) BeginTx(ctx context.Context) (adapters.Tx, error) {
	return nil, fmt.Errorf("%w: transactions not supported by fake", adapters.ErrConnection)
}

func (f *fakeAdapter) FormatValueForSQL(v any) string { return fmt.Sprint(v) }

func (f *fakeAdapter) ExportTableSQL(ctx context.Context, table string, includeData bool) (string, error) {
	if err := f.failExport[table]; err != nil {
		return "", err
	}
	t, ok := f.tables[table]
	if !ok {
		return "", fmt.Errorf("%w: table %s not found", adapters.ErrSchema, table)
	}
	sql := t.ddl + ";"
	if includeData {
		sql += fmt.Sprintf("\n-- %d rows", len(t.rows))
	}
	return sql, nil
}

// fakeReporter records run reports.
type fakeReporter struct {
	reports []RunReport
	err     error
}

func (r *fakeReporter) ReportRun(ctx context.Context, report RunReport) error {
	r.reports = append(r.reports, report)
	return r.err
}
