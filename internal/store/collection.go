package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"farmacia/m/internal/metrics"
)

// Collection is the record store for one table. Rows map to T through db
// tags; the key column is always "id". Every call runs in its own transaction.
type Collection[T any] struct {
	db      *sqlx.DB
	table   string
	metrics *metrics.Recorder

	insertQuery string
	updateQuery string
	selectQuery string
}

func newCollection[T any](db *sqlx.DB, table string, columns []string, rec *metrics.Recorder) *Collection[T] {
	named := make([]string, len(columns))
	sets := make([]string, len(columns))
	for i, col := range columns {
		named[i] = ":" + col
		sets[i] = col + " = :" + col
	}
	return &Collection[T]{
		db:          db,
		table:       table,
		metrics:     rec,
		insertQuery: fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table, strings.Join(columns, ", "), strings.Join(named, ", ")),
		updateQuery: fmt.Sprintf(`UPDATE %s SET %s WHERE id = :id`, table, strings.Join(sets, ", ")),
		selectQuery: fmt.Sprintf(`SELECT id, %s FROM %s`, strings.Join(columns, ", "), table),
	}
}

// Add inserts rec and returns the identity assigned to it.
func (c *Collection[T]) Add(ctx context.Context, rec T) (id int64, err error) {
	defer c.observe("add", time.Now(), &err)
	err = c.inTx(ctx, func(tx *sqlx.Tx) error {
		id, err = c.addTx(ctx, tx, rec)
		return err
	})
	return id, err
}

// AddBatch inserts every record in one transaction. Either all rows are
// stored or none are.
func (c *Collection[T]) AddBatch(ctx context.Context, recs []T) (ids []int64, err error) {
	defer c.observe("add_batch", time.Now(), &err)
	err = c.inTx(ctx, func(tx *sqlx.Tx) error {
		ids, err = c.addBatchTx(ctx, tx, recs)
		return err
	})
	return ids, err
}

// Get looks a record up by identity. A missing row is not an error.
func (c *Collection[T]) Get(ctx context.Context, id int64) (rec T, found bool, err error) {
	defer c.observe("get", time.Now(), &err)
	err = c.db.GetContext(ctx, &rec, c.selectQuery+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("%s get %d: %w", c.table, id, err)
	}
	return rec, true, nil
}

// MustGet is Get for callers that need the record to exist.
func (c *Collection[T]) MustGet(ctx context.Context, id int64) (T, error) {
	rec, found, err := c.Get(ctx, id)
	if err != nil {
		return rec, err
	}
	if !found {
		return rec, fmt.Errorf("%w: %s %d", ErrNotFound, c.table, id)
	}
	return rec, nil
}

// All returns every row, whatever its status, in identity order.
func (c *Collection[T]) All(ctx context.Context) (recs []T, err error) {
	defer c.observe("get_all", time.Now(), &err)
	recs = []T{}
	if err = c.db.SelectContext(ctx, &recs, c.selectQuery+` ORDER BY id`); err != nil {
		return nil, fmt.Errorf("%s get all: %w", c.table, err)
	}
	return recs, nil
}

// Where returns the rows matching clause, which may end in ORDER BY.
func (c *Collection[T]) Where(ctx context.Context, clause string, args ...any) (recs []T, err error) {
	defer c.observe("where", time.Now(), &err)
	recs = []T{}
	if err = c.db.SelectContext(ctx, &recs, c.selectQuery+` WHERE `+clause, args...); err != nil {
		return nil, fmt.Errorf("%s select: %w", c.table, err)
	}
	return recs, nil
}

// Put overwrites the stored row carrying rec's identity.
func (c *Collection[T]) Put(ctx context.Context, rec T) (err error) {
	defer c.observe("put", time.Now(), &err)
	return c.inTx(ctx, func(tx *sqlx.Tx) error {
		return c.putTx(ctx, tx, rec)
	})
}

func (c *Collection[T]) addTx(ctx context.Context, tx *sqlx.Tx, rec T) (int64, error) {
	res, err := tx.NamedExecContext(ctx, c.insertQuery, rec)
	if err != nil {
		return 0, fmt.Errorf("%w: %s add: %w", ErrStorageWrite, c.table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %s add: %w", ErrStorageWrite, c.table, err)
	}
	return id, nil
}

func (c *Collection[T]) addBatchTx(ctx context.Context, tx *sqlx.Tx, recs []T) ([]int64, error) {
	stmt, err := tx.PrepareNamedContext(ctx, c.insertQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %s prepare batch: %w", ErrStorageWrite, c.table, err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(recs))
	for i, rec := range recs {
		res, err := stmt.ExecContext(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s batch row %d: %w", ErrStorageWrite, c.table, i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("%w: %s batch row %d: %w", ErrStorageWrite, c.table, i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Collection[T]) getTx(ctx context.Context, tx *sqlx.Tx, id int64) (T, error) {
	var rec T
	err := tx.GetContext(ctx, &rec, c.selectQuery+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("%w: %s %d", ErrNotFound, c.table, id)
	}
	if err != nil {
		return rec, fmt.Errorf("%s get %d: %w", c.table, id, err)
	}
	return rec, nil
}

func (c *Collection[T]) putTx(ctx context.Context, tx *sqlx.Tx, rec T) error {
	res, err := tx.NamedExecContext(ctx, c.updateQuery, rec)
	if err != nil {
		return fmt.Errorf("%w: %s put: %w", ErrStorageWrite, c.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s put: %w", ErrStorageWrite, c.table, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s put on missing row", ErrNotFound, c.table)
	}
	return nil
}

func (c *Collection[T]) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return runInTx(ctx, c.db, fn)
}

func (c *Collection[T]) observe(op string, start time.Time, err *error) {
	c.metrics.Observe(c.table, op, start, *err)
}

// runInTx commits when fn succeeds and rolls back otherwise.
func runInTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (retErr error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrStorageWrite, err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrStorageWrite, err)
	}
	return nil
}
