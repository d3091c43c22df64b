package engine

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/JonMunkholm/tablebrowser/internal/core"
	"github.com/JonMunkholm/tablebrowser/internal/logging"
)

// nativeEngine talks the engine's native TCP protocol.
type nativeEngine struct {
	conn driver.Conn
}

func openNative(opts Options) (*nativeEngine, error) {
	chOpts, err := clickhouse.ParseDSN(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse engine URL: %w", err)
	}
	if opts.MaxConns > 0 {
		chOpts.MaxOpenConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		chOpts.MaxIdleConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		chOpts.ConnMaxLifetime = opts.MaxConnLifetime
	}
	if opts.DialTimeout > 0 {
		chOpts.DialTimeout = opts.DialTimeout
	}

	conn, err := clickhouse.Open(chOpts)
	if err != nil {
		return nil, fmt.Errorf("open engine connection: %w", err)
	}
	return &nativeEngine{conn: conn}, nil
}

// progress accumulates the engine's progress packets for one query.
type progress struct {
	rows  atomic.Uint64
	bytes atomic.Uint64
}

func (p *progress) context(ctx context.Context) context.Context {
	return clickhouse.Context(ctx, clickhouse.WithProgress(func(pr *clickhouse.Progress) {
		p.rows.Add(pr.Rows)
		p.bytes.Add(pr.Bytes)
	}))
}

func (e *nativeEngine) Execute(ctx context.Context, stmt string) (*core.QueryResult, error) {
	var prog progress
	start := time.Now()

	rows, err := e.conn.Query(prog.context(ctx), stmt)
	if err != nil {
		return nil, err
	}
	cursor := newNativeRows(rows)
	defer cursor.Close()

	result := &core.QueryResult{Columns: cursor.Columns()}
	for cursor.Next() {
		values, err := cursor.Values()
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, toSnapshot(result.Columns, values))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	result.Stats = &core.ExecutionStats{
		Elapsed:   time.Since(start),
		RowsRead:  prog.rows.Load(),
		BytesRead: prog.bytes.Load(),
	}
	logging.FromContext(ctx).Debug("engine query",
		"driver", DriverNative,
		"rows", result.RowCount,
		"rows_read", result.Stats.RowsRead,
		"elapsed", result.Stats.Elapsed,
	)
	return result, nil
}

func (e *nativeEngine) Exec(ctx context.Context, stmt string) error {
	return e.conn.Exec(ctx, stmt)
}

func (e *nativeEngine) Stream(ctx context.Context, stmt string) (core.Rows, error) {
	rows, err := e.conn.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return newNativeRows(rows), nil
}

func (e *nativeEngine) Ping(ctx context.Context) error {
	return e.conn.Ping(ctx)
}

func (e *nativeEngine) Close() error {
	return e.conn.Close()
}

// nativeRows adapts driver.Rows to core.Rows, scanning into values of
// each column's scan type.
type nativeRows struct {
	rows  driver.Rows
	cols  []core.ColumnMeta
	types []reflect.Type
	dest  []any
}

func newNativeRows(rows driver.Rows) *nativeRows {
	colTypes := rows.ColumnTypes()
	r := &nativeRows{
		rows:  rows,
		cols:  make([]core.ColumnMeta, len(colTypes)),
		types: make([]reflect.Type, len(colTypes)),
		dest:  make([]any, len(colTypes)),
	}
	for i, ct := range colTypes {
		r.cols[i] = core.ColumnMeta{Name: ct.Name(), Type: ct.DatabaseTypeName()}
		r.types[i] = ct.ScanType()
	}
	return r
}

func (r *nativeRows) Columns() []core.ColumnMeta { return r.cols }

func (r *nativeRows) Next() bool { return r.rows.Next() }

func (r *nativeRows) Values() ([]any, error) {
	for i, t := range r.types {
		r.dest[i] = reflect.New(t).Interface()
	}
	if err := r.rows.Scan(r.dest...); err != nil {
		return nil, err
	}
	out := make([]any, len(r.dest))
	for i, d := range r.dest {
		out[i] = normalize(reflect.ValueOf(d).Elem().Interface(), r.cols[i].Type)
	}
	return out, nil
}

func (r *nativeRows) Err() error { return r.rows.Err() }

func (r *nativeRows) Close() error { return r.rows.Close() }

// toSnapshot pairs values with their column names.
func toSnapshot(cols []core.ColumnMeta, values []any) core.RowSnapshot {
	row := make(core.RowSnapshot, len(cols))
	for i, c := range cols {
		row[i] = core.Field{Column: c.Name, Value: values[i]}
	}
	return row
}
