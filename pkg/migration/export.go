package migration

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

// CompressedSuffix marks zstd-framed scripts.
const CompressedSuffix = ".zst"

// ExportOptions control Export.
type ExportOptions struct {
	// Path of the script. Missing parent directories are created.
	Path    string
	Exclude []string
	Include []string

	IncludeData bool

	// Compress frames the script with zstd and appends CompressedSuffix
	// to Path if it is missing. A Path ending in CompressedSuffix
	// compresses regardless.
	Compress bool

	// SourceName labels the header, usually the source database name.
	SourceName string
}

// DefaultExportPath returns dir/export_<database>_<YYYYMMDD_HHMMSS>.sql.
// For SQLite the file name without extension is used as database name.
func DefaultExportPath(dir, database string, now time.Time) string {
	name := filepath.Base(database)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "database"
	}
	return filepath.Join(dir, fmt.Sprintf("export_%s_%s.sql", name, now.Format("20060102_150405")))
}

// Export writes DROP, CREATE and optionally INSERT statements for every
// table of the working set to a script. The script is written to a
// temporary file next to Path and renamed when complete, so Path never
// holds a partial script. Per-table failures are in Result.Errors and
// leave that table out of the script.
func (o *Orchestrator) Export(ctx context.Context, opts ExportOptions, onProgress ProgressFunc) (res *Result, err error) {
	ctx = o.withLogger(ctx)
	logger := zerolog.Ctx(ctx)

	res = newResult(uuid.NewString(), OpExport, o.now())
	defer func() { o.finish(ctx, res, err) }()

	if err := o.requireSource(); err != nil {
		return res, err
	}
	if strings.TrimSpace(opts.Path) == "" {
		return res, fmt.Errorf("%w: export path is required", adapters.ErrConfiguration)
	}

	path := opts.Path
	compress := opts.Compress || strings.HasSuffix(path, CompressedSuffix)
	if compress && !strings.HasSuffix(path, CompressedSuffix) {
		path += CompressedSuffix
	}
	res.Path = path

	tables, err := o.workingSet(ctx, opts.Exclude, opts.Include)
	if err != nil {
		return res, err
	}
	res.Tables = tables

	out, err := newScriptWriter(path, compress)
	if err != nil {
		return res, err
	}
	defer out.abort()

	if err := o.writeHeader(out, opts.SourceName); err != nil {
		return res, err
	}

	for i, table := range tables {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("export cancelled before table %s: %w", table, err)
		}

		res.Attempted++
		sql, err := o.exportTable(ctx, table, opts.IncludeData)
		if err != nil {
			logger.Error().Err(err).Str("table", table).Msg("table export failed")
			res.fail(table, err)
		} else {
			if _, err := io.WriteString(out, sql+"\n\n"); err != nil {
				return res, fmt.Errorf("write %s: %w", path, err)
			}
			res.Succeeded++
			logger.Info().Str("table", table).Msg("table exported")
		}

		progress(onProgress, percent(i+1, len(tables)), fmt.Sprintf("Exported table %d/%d: %s", i+1, len(tables), table))
	}

	if err := out.commit(); err != nil {
		return res, err
	}
	res.Bytes = out.bytes
	res.Checksum = out.checksum()

	logger.Info().Str("path", path).Int64("bytes", res.Bytes).Str("xxh3", res.Checksum).Msg("script written")
	progress(onProgress, 100, "Export complete")
	return res, nil
}

func (o *Orchestrator) exportTable(ctx context.Context, table string, includeData bool) (sql string, err error) {
	ctx, cancel := o.tableContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { o.metrics.observeTable(OpExport, err, time.Since(start)) }()

	return o.source.ExportTableSQL(ctx, table, includeData)
}

func (o *Orchestrator) writeHeader(w io.Writer, sourceName string) error {
	if sourceName == "" {
		sourceName = "unknown"
	}
	_, err := fmt.Fprintf(w,
		"-- Database export\n-- Exported at: %s\n-- Source database: %s\n-- Source engine: %s\n\n",
		o.now().Format("2006-01-02 15:04:05"), sourceName, o.source.Engine())
	return err
}

// scriptWriter buffers into a temporary file, optionally through zstd,
// and hashes and counts the uncompressed bytes.
type scriptWriter struct {
	path   string
	tmp    *os.File
	zw     *zstd.Encoder
	buf    *bufio.Writer
	hash   *xxh3.Hasher
	bytes  int64
	closed bool
}

func newScriptWriter(path string, compress bool) (*scriptWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temporary script: %w", err)
	}

	w := &scriptWriter{path: path, tmp: tmp, hash: xxh3.New()}

	var sink io.Writer = tmp
	if compress {
		zw, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		w.zw = zw
		sink = zw
	}
	w.buf = bufio.NewWriterSize(io.MultiWriter(sink, w.hash), 64*1024)
	return w, nil
}

func (w *scriptWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *scriptWriter) checksum() string {
	return fmt.Sprintf("%016x", w.hash.Sum64())
}

// commit flushes everything and renames the temporary file onto path.
func (w *scriptWriter) commit() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			return fmt.Errorf("finish zstd stream: %w", err)
		}
	}
	if err := w.tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", w.tmp.Name(), err)
	}
	if err := w.tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", w.tmp.Name(), err)
	}
	if err := w.tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", w.tmp.Name(), err)
	}
	w.closed = true
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		os.Remove(w.tmp.Name())
		return fmt.Errorf("rename script into place: %w", err)
	}
	return nil
}

// abort removes the temporary file unless commit succeeded.
func (w *scriptWriter) abort() {
	if w.closed {
		return
	}
	if w.zw != nil {
		w.zw.Close()
	}
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}
