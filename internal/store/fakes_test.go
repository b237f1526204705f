package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/HammerMeetNail/anniversary/internal/database"
)

type fakeCommandTag struct {
	rows int64
}

func (t fakeCommandTag) RowsAffected() int64 { return t.rows }

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.scanFunc == nil {
		return errors.New("scan not configured")
	}
	return r.scanFunc(dest...)
}

// rowFromValues returns a row that assigns values to the scan destinations in
// order. A nil value leaves the destination at its zero value.
func rowFromValues(values ...any) fakeRow {
	return fakeRow{scanFunc: func(dest ...any) error {
		return assignValues(dest, values)
	}}
}

func assignValues(dest, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: got %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(values[i]))
	}
	return nil
}

type fakeRows struct {
	rows   [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return assignValues(dest, r.rows[r.idx-1]) }
func (r *fakeRows) Err() error             { return r.err }
func (r *fakeRows) Close()                 { r.closed = true }

type fakeConn struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (database.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (database.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) database.Row
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (database.CommandTag, error) {
	if c.ExecFunc == nil {
		return nil, errors.New("exec not configured")
	}
	return c.ExecFunc(ctx, sql, args...)
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	if c.QueryFunc == nil {
		return nil, errors.New("query not configured")
	}
	return c.QueryFunc(ctx, sql, args...)
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	if c.QueryRowFunc == nil {
		return fakeRow{}
	}
	return c.QueryRowFunc(ctx, sql, args...)
}

type fakeTx struct {
	fakeConn
	CommitFunc func(ctx context.Context) error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		if err := t.CommitFunc(ctx); err != nil {
			return err
		}
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeDB struct {
	fakeConn
	BeginFunc func(ctx context.Context) (database.Tx, error)
}

func (d *fakeDB) Begin(ctx context.Context) (database.Tx, error) {
	if d.BeginFunc == nil {
		return nil, errors.New("begin not configured")
	}
	return d.BeginFunc(ctx)
}
