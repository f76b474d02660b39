package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbsync/pkg/adapters"
	"github.com/ruslano69/dbsync/pkg/adapters/base"
)

// GetRows fetches the whole table.
func (a *Adapter) GetRows(ctx context.Context, table string) ([]adapters.Row, error) {
	pool, err := a.conn()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, "SELECT * FROM "+a.qualified(table))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rows from %s: %v", adapters.ErrData, table, err)
	}
	defer rows.Close()

	var result []adapters.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan row of %s: %v", adapters.ErrData, table, err)
		}
		row := make(adapters.Row, len(values))
		for i, v := range values {
			row[i] = NormalizeValue(v)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error reading rows from %s: %v", adapters.ErrData, table, err)
	}
	return result, nil
}

func (a *Adapter) DropTable(ctx context.Context, table string) error {
	pool, err := a.conn()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+a.qualified(table)); err != nil {
		return fmt.Errorf("%w: failed to drop table %s: %v", adapters.ErrSchema, table, err)
	}
	return nil
}

// CreateTable executes ddl in its own transaction.
func (a *Adapter) CreateTable(ctx context.Context, ddl string) error {
	pool, err := a.conn()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", adapters.ErrSchema, err)
	}
	if _, err := tx.Exec(ctx, ddl); err != nil {
		rollback(ctx, tx)
		return fmt.Errorf("%w: failed to create table: %v", adapters.ErrSchema, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit create table: %v", adapters.ErrSchema, err)
	}
	return nil
}

// InsertBatch queues one parameterized INSERT per row in a pgx.Batch
// inside a single transaction.
func (a *Adapter) InsertBatch(ctx context.Context, table string, columns []string, rows []adapters.Row) error {
	pool, err := a.conn()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	query := base.InsertSQL(a.QuoteIdentifier, table, columns, func(i int) string {
		return "$" + strconv.Itoa(i)
	})

	batch := &pgx.Batch{}
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("%w: row %d has %d values, expected %d", adapters.ErrData, i+1, len(row), len(columns))
		}
		batch.Queue(query, row...)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", adapters.ErrData, err)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			rollback(ctx, tx)
			return fmt.Errorf("%w: failed to insert row %d into %s: %v", adapters.ErrData, i+1, table, err)
		}
	}
	if err := br.Close(); err != nil {
		rollback(ctx, tx)
		return fmt.Errorf("%w: failed to insert into %s: %v", adapters.ErrData, table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit insert into %s: %v", adapters.ErrData, table, err)
	}
	return nil
}

func (a *Adapter) Execute(ctx context.Context, stmt string) error {
	pool, err := a.conn()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

func (a *Adapter) BeginTx(ctx context.Context) (adapters.Tx, error) {
	pool, err := a.conn()
	if err != nil {
		return nil, err
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &transaction{tx: tx}, nil
}

// transaction adapts pgx.Tx to adapters.Tx.
type transaction struct {
	tx pgx.Tx
}

func (t *transaction) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *transaction) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("rollback failed")
	}
}
