package migration

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

var exportClock = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func twoTableSource() *fakeAdapter {
	src := newFake(adapters.SQLite)
	src.addTable("A", adapters.Row{int64(1), "a"})
	src.addTable("B", adapters.Row{int64(1), "b"}, adapters.Row{int64(2), "bb"})
	return src
}

func TestExport_WritesScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "sub", "shop.sql")
	var p progressLog

	res, err := New(twoTableSource(), nil, WithClock(exportClock)).Export(context.Background(), ExportOptions{
		Path:        path,
		IncludeData: true,
		SourceName:  "shop",
	}, p.record)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, path, res.Path)
	assert.Equal(t, "Exported 2/2 tables to "+path, res.Summary())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := "-- Database export\n" +
		"-- Exported at: 2026-01-02 03:04:05\n" +
		"-- Source database: shop\n" +
		"-- Source engine: sqlite\n\n" +
		"CREATE TABLE A(id INTEGER PRIMARY KEY, name TEXT);\n-- 1 rows\n\n" +
		"CREATE TABLE B(id INTEGER PRIMARY KEY, name TEXT);\n-- 2 rows\n\n"
	assert.Equal(t, want, string(data))
	assert.Equal(t, int64(len(want)), res.Bytes)
	assert.Equal(t, fmt.Sprintf("%016x", xxh3.Hash(data)), res.Checksum)

	assert.Equal(t, []int{50, 100, 100}, p.percents)
	assert.Equal(t, "Export complete", p.messages[2])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestExport_TableFailureLeavesTableOut(t *testing.T) {
	src := twoTableSource()
	src.failExport["A"] = fmt.Errorf("%w: no such table", adapters.ErrSchema)
	path := filepath.Join(t.TempDir(), "x.sql")

	res, err := New(src, nil).Export(context.Background(), ExportOptions{Path: path}, nil)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, []string{"A"}, res.FailedTables())
	assert.Equal(t, 1, res.Succeeded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "TABLE A(")
	assert.Contains(t, string(data), "TABLE B(")
}

func TestExport_Compressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.sql")

	res, err := New(twoTableSource(), nil).Export(context.Background(), ExportOptions{Path: path, Compress: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, path+CompressedSuffix, res.Path)
	assert.NoFileExists(t, path)

	f, err := os.Open(res.Path)
	require.NoError(t, err)
	defer f.Close()

	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	data, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- Database export")
	assert.Equal(t, fmt.Sprintf("%016x", xxh3.Hash(data)), res.Checksum)
	assert.Equal(t, int64(len(data)), res.Bytes)
}

func TestExport_SuffixSelectsCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.sql.zst")

	res, err := New(twoTableSource(), nil).Export(context.Background(), ExportOptions{Path: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, len(raw) > 4)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4], "zstd magic")
}

func TestExport_CancelledLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.sql")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := New(twoTableSource(), nil).Export(ctx, ExportOptions{Path: path}, func(int, string) { cancel() })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Attempted)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "neither the script nor its temporary file remain")
}

func TestExport_RequiresPath(t *testing.T) {
	_, err := New(twoTableSource(), nil).Export(context.Background(), ExportOptions{}, nil)
	assert.ErrorIs(t, err, adapters.ErrConfiguration)
}

func TestExport_ListFailureIsFatal(t *testing.T) {
	src := twoTableSource()
	src.listErr = fmt.Errorf("%w: gone", adapters.ErrConnection)
	path := filepath.Join(t.TempDir(), "x.sql")

	_, err := New(src, nil).Export(context.Background(), ExportOptions{Path: path}, nil)
	assert.ErrorIs(t, err, adapters.ErrConnection)
	assert.NoFileExists(t, path)
}

func TestDefaultExportPath(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	assert.Equal(t, filepath.Join("out", "export_shop_20240506_070809.sql"), DefaultExportPath("out", "shop", now))
	assert.Equal(t, filepath.Join("out", "export_app_20240506_070809.sql"),
		DefaultExportPath("out", filepath.Join("data", "app.db"), now))
	assert.Equal(t, filepath.Join("out", "export_database_20240506_070809.sql"), DefaultExportPath("out", "", now))
}
