package migration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/dbsync/pkg/adapters"
	"github.com/ruslano69/dbsync/pkg/retry"
)

func fourTables() (*fakeAdapter, *fakeAdapter) {
	src := newFake(adapters.SQLite)
	src.addTable("A", adapters.Row{int64(1), "a"})
	src.addTable("B", adapters.Row{int64(1), "b"})
	src.addTable("C", adapters.Row{int64(1), "c"}, adapters.Row{int64(2), "cc"})
	src.addTable("D", adapters.Row{int64(1), "d"})
	return src, newFake(adapters.SQLite)
}

type progressLog struct {
	percents []int
	messages []string
}

func (p *progressLog) record(pct int, msg string) {
	p.percents = append(p.percents, pct)
	p.messages = append(p.messages, msg)
}

func TestResolveWorkingSet(t *testing.T) {
	source := []string{"A", "B", "C", "D"}

	assert.Equal(t, []string{"A", "C"}, ResolveWorkingSet(source, []string{"B"}, []string{"A", "C"}))
	assert.Equal(t, []string{"A", "C", "D"}, ResolveWorkingSet(source, []string{"B"}, nil))
	assert.Equal(t, []string{"A", "C"}, ResolveWorkingSet(source, nil, []string{"C", "A"}), "source order wins")
	assert.Equal(t, []string{"A"}, ResolveWorkingSet(source, []string{"C"}, []string{"A", "C"}), "exclude beats include")
	assert.Empty(t, ResolveWorkingSet(source, nil, []string{"missing"}))
	assert.Equal(t, source, ResolveWorkingSet(source, []string{" ", ""}, []string{""}), "blank names are ignored")
}

func TestMigrateDatabase_AllTables(t *testing.T) {
	src, dst := fourTables()
	var p progressLog

	res, err := New(src, dst).MigrateDatabase(context.Background(), DatabaseOptions{}, p.record)
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.Equal(t, []string{"A", "B", "C", "D"}, res.Tables)
	assert.Equal(t, 4, res.Succeeded)
	assert.Equal(t, int64(5), res.Rows)
	assert.Len(t, dst.inserted["C"], 2)
	assert.Equal(t, "Migrated 4/4 tables, 5 rows", res.Summary())
	assert.False(t, res.FinishedAt.IsZero())

	assert.Equal(t, []int{25, 50, 75, 100, 100}, p.percents)
	assert.Equal(t, "Migrated table 2/4: B", p.messages[1])
	assert.Equal(t, "Migration complete", p.messages[4])
}

func TestMigrateDatabase_PerTableIsolation(t *testing.T) {
	src, dst := fourTables()
	dst.failCreate["B"] = true

	res, err := New(src, dst).MigrateDatabase(context.Background(), DatabaseOptions{}, nil)
	require.NoError(t, err, "table failures are not fatal")

	assert.False(t, res.OK())
	assert.Equal(t, 4, res.Attempted)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, []string{"B"}, res.FailedTables())
	assert.ErrorIs(t, res.Errors["B"], adapters.ErrSchema)
	assert.Equal(t, "Migrated 3/4 tables, 4 rows (1 failed)", res.Summary())

	assert.Contains(t, dst.inserted, "A")
	assert.NotContains(t, dst.inserted, "B")
	assert.Contains(t, dst.inserted, "C")
	assert.Contains(t, dst.inserted, "D")
}

func TestMigrateDatabase_Filters(t *testing.T) {
	src, dst := fourTables()

	res, err := New(src, dst).MigrateDatabase(context.Background(), DatabaseOptions{
		Exclude: []string{"B"},
		Include: []string{"A", "C"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "C"}, res.Tables)
	assert.Len(t, dst.created, 2)
}

func TestMigrateDatabase_ListFailureIsFatal(t *testing.T) {
	src, dst := fourTables()
	src.listErr = fmt.Errorf("%w: permission denied", adapters.ErrSchema)

	res, err := New(src, dst).MigrateDatabase(context.Background(), DatabaseOptions{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, adapters.ErrSchema)
	assert.Zero(t, res.Attempted)
	assert.Empty(t, dst.created)
}

func TestMigrateDatabase_NoSourceTables(t *testing.T) {
	src, dst := newFake(adapters.SQLite), newFake(adapters.SQLite)
	var p progressLog

	res, err := New(src, dst).MigrateDatabase(context.Background(), DatabaseOptions{}, p.record)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "Migrated 0/0 tables", res.Summary())
	assert.Equal(t, []int{100}, p.percents)
}

func TestMigrateDatabase_Cancellation(t *testing.T) {
	src, dst := fourTables()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := New(src, dst).MigrateDatabase(ctx, DatabaseOptions{}, func(int, string) { cancel() })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Attempted)
	assert.Equal(t, 1, res.Succeeded)
	assert.False(t, res.OK())
	assert.Len(t, dst.created, 1)
}

func TestMigrateDatabase_TableTimeout(t *testing.T) {
	src, dst := fourTables()
	src.beforeRows = func(ctx context.Context, table string) error {
		if table != "C" {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	}

	res, err := New(src, dst, WithTableTimeout(20*time.Millisecond)).
		MigrateDatabase(context.Background(), DatabaseOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, res.FailedTables())
	assert.ErrorIs(t, res.Errors["C"], context.DeadlineExceeded)
	assert.Equal(t, 3, res.Succeeded)
}

func TestMigrateTable_EmptyTable(t *testing.T) {
	src, dst := newFake(adapters.SQLite), newFake(adapters.SQLite)
	src.addTable("empty")

	require.NoError(t, New(src, dst).MigrateTable(context.Background(), "empty", TableOptions{}))
	assert.Len(t, dst.created, 1)
	assert.NotContains(t, dst.inserted, "empty", "no insert for an empty table")
}

func TestMigrateTable_MissingStructure(t *testing.T) {
	src, dst := newFake(adapters.SQLite), newFake(adapters.SQLite)

	err := New(src, dst).MigrateTable(context.Background(), "ghost", TableOptions{})
	assert.ErrorIs(t, err, adapters.ErrSchema)
	assert.Empty(t, dst.created)
}

func TestMigrateTable_InsertFailure(t *testing.T) {
	src, dst := newFake(adapters.SQLite), newFake(adapters.SQLite)
	src.addTable("users", adapters.Row{int64(1), "Alice"})
	dst.failInsert["users"] = fmt.Errorf("%w: UNIQUE constraint failed", adapters.ErrData)

	err := New(src, dst).MigrateTable(context.Background(), "users", TableOptions{})
	assert.ErrorIs(t, err, adapters.ErrData)
}

func TestMigrateTable_RowsFailure(t *testing.T) {
	src, dst := newFake(adapters.SQLite), newFake(adapters.SQLite)
	src.addTable("users", adapters.Row{int64(1), "Alice"})
	src.failRows["users"] = fmt.Errorf("%w: connection reset", adapters.ErrData)

	err := New(src, dst).MigrateTable(context.Background(), "users", TableOptions{})
	assert.ErrorIs(t, err, adapters.ErrData, "a fetch failure is not an empty table")
	assert.Empty(t, dst.inserted)
}

func TestMigrateTable_ConvertTypes(t *testing.T) {
	src, dst := newFake(adapters.SQLite), newFake(adapters.PostgreSQL)
	src.addTable("users", adapters.Row{int64(1), "Alice"})
	src.tables["users"].ddl = "CREATE TABLE users(id INTEGER PRIMARY KEY, name TEXT, score REAL)"

	o := New(src, dst)
	require.NoError(t, o.MigrateTable(context.Background(), "users", TableOptions{ConvertTypes: true}))
	assert.Equal(t, "CREATE TABLE users(id INTEGER PRIMARY KEY, name TEXT, score DOUBLE PRECISION)", dst.created[0])

	require.NoError(t, o.MigrateTable(context.Background(), "users", TableOptions{ConvertTypes: false}))
	assert.Equal(t, "CREATE TABLE users(id INTEGER PRIMARY KEY, name TEXT, score REAL)", dst.created[1])
}

func TestMigrateTable_DropFailureIsNotFatal(t *testing.T) {
	src, dst := newFake(adapters.SQLite), newFake(adapters.SQLite)
	src.addTable("users", adapters.Row{int64(1), "Alice"})
	dst.failDrop = errors.New("permission denied")

	require.NoError(t, New(src, dst).MigrateTable(context.Background(), "users", TableOptions{DropTarget: true}))
	assert.Len(t, dst.created, 1)
}

func TestMigrateTable_DropsBeforeCreate(t *testing.T) {
	src, dst := newFake(adapters.SQLite), newFake(adapters.SQLite)
	src.addTable("users")

	require.NoError(t, New(src, dst).MigrateTable(context.Background(), "users", TableOptions{DropTarget: true}))
	assert.Equal(t, []string{"users"}, dst.dropped)
}

func TestOpen_ConnectionFailureIsFatal(t *testing.T) {
	src, dst := newFake(adapters.MySQL), newFake(adapters.SQLite)
	src.connected, dst.connected = false, false
	src.connectErrs = []error{fmt.Errorf("%w: connection refused", adapters.ErrConnection)}

	err := New(src, dst).Open(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, adapters.ErrConnection)
	assert.Contains(t, err.Error(), "connect source")
	assert.Zero(t, dst.connectCalls, "target is not touched after the source fails")
}

func TestOpen_RetriesConnect(t *testing.T) {
	src, dst := newFake(adapters.MySQL), newFake(adapters.SQLite)
	src.connected, dst.connected = false, false
	refused := fmt.Errorf("%w: connection refused", adapters.ErrConnection)
	src.connectErrs = []error{refused, refused}

	cfg := retry.EnableRetry(3, time.Millisecond)
	cfg.Jitter = 0

	require.NoError(t, New(src, dst, WithRetry(cfg)).Open(context.Background()))
	assert.Equal(t, 3, src.connectCalls)
	assert.True(t, src.IsConnected())
	assert.True(t, dst.IsConnected())
}

func TestOpen_ConfigurationErrorNotRetried(t *testing.T) {
	src, dst := newFake(adapters.MySQL), newFake(adapters.SQLite)
	src.connected = false
	src.connectErrs = []error{fmt.Errorf("%w: host is required", adapters.ErrConfiguration)}

	err := New(src, dst, WithRetry(retry.EnableRetry(5, time.Millisecond))).Open(context.Background())
	assert.ErrorIs(t, err, adapters.ErrConfiguration)
	assert.Equal(t, 1, src.connectCalls)
}

func TestClose(t *testing.T) {
	src, dst := newFake(adapters.MySQL), newFake(adapters.SQLite)
	require.NoError(t, New(src, dst).Close(context.Background()))
	assert.False(t, src.IsConnected())
	assert.False(t, dst.IsConnected())
}

func TestMissingAdapters(t *testing.T) {
	ctx := context.Background()

	_, err := New(nil, newFake(adapters.SQLite)).MigrateDatabase(ctx, DatabaseOptions{}, nil)
	assert.ErrorIs(t, err, adapters.ErrConfiguration)

	err = New(newFake(adapters.SQLite), nil).MigrateTable(ctx, "t", TableOptions{})
	assert.ErrorIs(t, err, adapters.ErrConfiguration)
}

func TestReporter(t *testing.T) {
	src, dst := fourTables()
	dst.failCreate["D"] = true
	rep := &fakeReporter{err: errors.New("redis down")}

	res, err := New(src, dst, WithReporter(rep)).MigrateDatabase(context.Background(), DatabaseOptions{}, nil)
	require.NoError(t, err, "reporter failures do not fail the run")
	require.Len(t, rep.reports, 1)

	r := rep.reports[0]
	assert.Equal(t, res.ID, r.ID)
	assert.Equal(t, OpMigrate, r.Operation)
	assert.Equal(t, StatusPartial, r.Status)
	assert.Equal(t, "sqlite", r.Source)
	assert.Equal(t, "sqlite", r.Target)
	assert.Equal(t, 4, r.Tables)
	assert.Equal(t, 3, r.Succeeded)
	assert.Contains(t, r.Failures["D"], "already exists")
	assert.Nil(t, r.Error)
}

func TestReporter_FatalRun(t *testing.T) {
	src, dst := fourTables()
	src.listErr = errors.New("boom")
	rep := &fakeReporter{}

	_, err := New(src, dst, WithReporter(rep)).MigrateDatabase(context.Background(), DatabaseOptions{}, nil)
	require.Error(t, err)
	require.Len(t, rep.reports, 1)
	assert.Equal(t, StatusFailed, rep.reports[0].Status)
	require.NotNil(t, rep.reports[0].Error)
	assert.Contains(t, *rep.reports[0].Error, "boom")
}

func TestMetrics(t *testing.T) {
	src, dst := fourTables()
	dst.failCreate["B"] = true
	m := NewMetrics(prometheus.NewRegistry())

	_, err := New(src, dst, WithMetrics(m)).MigrateDatabase(context.Background(), DatabaseOptions{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.tables.WithLabelValues(OpMigrate, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tables.WithLabelValues(OpMigrate, "failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.rows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(OpMigrate, StatusPartial)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.tableDuration), "one series per operation")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeTable(OpMigrate, nil, time.Second)
		m.addRows(3)
		m.observeStatement(errors.New("x"))
		m.observeRun(OpImport, StatusFailed)
	})
}
