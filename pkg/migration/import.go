package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

// importProgressEvery is how many statements pass between progress reports.
const importProgressEvery = 100

// Import executes a SQL script against the target, one statement at a
// time in file order. A failing statement is recorded in
// ImportResult.Errors and execution continues with the next one.
// Scripts ending in CompressedSuffix are decompressed transparently.
// The returned error is non-nil only when the script cannot be read or
// split, or ctx is done.
func (o *Orchestrator) Import(ctx context.Context, path string, onProgress ProgressFunc) (res *ImportResult, err error) {
	ctx = o.withLogger(ctx)
	logger := zerolog.Ctx(ctx)

	res = &ImportResult{ID: uuid.NewString(), Path: path, StartedAt: o.now()}
	defer func() { o.finish(ctx, res, err) }()

	if err := o.requireTarget(); err != nil {
		return res, err
	}

	script, err := readScript(ctx, path)
	if err != nil {
		return res, err
	}

	stmts, err := o.splitter.Split(script)
	if err != nil {
		return res, fmt.Errorf("split %s: %w", path, err)
	}
	res.Statements = len(stmts)
	logger.Info().Int("statements", len(stmts)).Msg("script parsed")

	for i, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("import cancelled at statement %d: %w", i+1, err)
		}

		err := o.target.Execute(ctx, stmt)
		o.metrics.observeStatement(err)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("statement %d: %v", i+1, err))
			logger.Error().Err(err).Int("statement", i+1).Msg("statement failed")
		} else {
			res.Executed++
		}

		if done := i + 1; done%importProgressEvery == 0 || done == len(stmts) {
			progress(onProgress, percent(done, len(stmts)), fmt.Sprintf("Executed %d/%d statements", done, len(stmts)))
		}
	}

	progress(onProgress, 100, "Import complete")
	return res, nil
}

// readScript loads a script into memory, decompressing .zst files.
func readScript(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: script %s does not exist", adapters.ErrConfiguration, path)
	case err != nil:
		return "", fmt.Errorf("stat %s: %w", path, err)
	case info.IsDir():
		return "", fmt.Errorf("%w: script %s is a directory", adapters.ErrConfiguration, path)
	}

	zerolog.Ctx(ctx).Info().Str("path", path).Int64("bytes", info.Size()).Msg("reading script")

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, CompressedSuffix) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", adapters.ErrScriptParse, path, err)
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", adapters.ErrScriptParse, path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", adapters.ErrScriptParse, path)
	}
	return string(data), nil
}
