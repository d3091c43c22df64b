package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/tablebrowser/internal/core"
	"github.com/JonMunkholm/tablebrowser/internal/logging"
)

// pgWireEngine talks to the engine's PostgreSQL-compatible interface.
// Statements go over the simple protocol: the engine does not support
// server-side prepared statements on this interface.
type pgWireEngine struct {
	pool *pgxpool.Pool
}

func openPgWire(ctx context.Context, opts Options) (*pgWireEngine, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse engine URL: %w", err)
	}
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.DialTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = opts.DialTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open engine pool: %w", err)
	}
	return &pgWireEngine{pool: pool}, nil
}

func (e *pgWireEngine) Execute(ctx context.Context, stmt string) (*core.QueryResult, error) {
	start := time.Now()

	rows, err := e.pool.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	cursor := newPgRows(rows)
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
		Elapsed:  time.Since(start),
		RowsRead: uint64(result.RowCount),
	}
	logging.FromContext(ctx).Debug("engine query",
		"driver", DriverPgWire,
		"rows", result.RowCount,
		"elapsed", result.Stats.Elapsed,
	)
	return result, nil
}

func (e *pgWireEngine) Exec(ctx context.Context, stmt string) error {
	_, err := e.pool.Exec(ctx, stmt)
	return err
}

func (e *pgWireEngine) Stream(ctx context.Context, stmt string) (core.Rows, error) {
	rows, err := e.pool.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return newPgRows(rows), nil
}

func (e *pgWireEngine) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

func (e *pgWireEngine) Close() error {
	e.pool.Close()
	return nil
}

// pgRows adapts pgx.Rows to core.Rows.
type pgRows struct {
	rows pgx.Rows
	cols []core.ColumnMeta
}

func newPgRows(rows pgx.Rows) *pgRows {
	fields := rows.FieldDescriptions()
	r := &pgRows{rows: rows, cols: make([]core.ColumnMeta, len(fields))}

	typeMap := rows.Conn().TypeMap()
	for i, fd := range fields {
		typeName := strconv.FormatUint(uint64(fd.DataTypeOID), 10)
		if t, ok := typeMap.TypeForOID(fd.DataTypeOID); ok {
			typeName = t.Name
		}
		r.cols[i] = core.ColumnMeta{Name: fd.Name, Type: typeName}
	}
	return r
}

func (r *pgRows) Columns() []core.ColumnMeta { return r.cols }

func (r *pgRows) Next() bool { return r.rows.Next() }

func (r *pgRows) Values() ([]any, error) {
	values, err := r.rows.Values()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		values[i] = normalize(v, r.cols[i].Type)
	}
	return values, nil
}

func (r *pgRows) Err() error { return r.rows.Err() }

func (r *pgRows) Close() error {
	r.rows.Close()
	return nil
}
