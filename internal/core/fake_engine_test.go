package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// fakeEngine answers the statements the planner produces from canned data
// and records every call in order.
type fakeEngine struct {
	mu     sync.Mutex
	events []string

	columns  []ColumnMeta
	rows     []RowSnapshot
	matched  int64
	statsRow RowSnapshot

	execDelay time.Duration
	execErr   error

	// onExecute overrides the canned read answers when set.
	onExecute func(stmt string) (*QueryResult, error)
	// onStream overrides the default cursor over rows when set.
	onStream func(ctx context.Context, stmt string) (Rows, error)

	activeExec int
	peakExec   int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		columns: []ColumnMeta{{Name: "id", Type: "String"}, {Name: "name", Type: "String"}},
		rows: []RowSnapshot{
			{{Column: "id", Value: "42"}, {Column: "name", Value: "click"}},
			{{Column: "id", Value: "43"}, {Column: "name", Value: "view"}},
		},
		matched: 1,
		statsRow: RowSnapshot{
			{Column: "total_rows", Value: uint64(2)},
			{Column: "part_count", Value: uint64(1)},
			{Column: "total_bytes", Value: uint64(512)},
			{Column: "compressed_size", Value: "512.00 B"},
			{Column: "uncompressed_size", Value: "1.00 KiB"},
		},
	}
}

func (f *fakeEngine) record(event string) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

// Events returns a copy of the recorded calls.
func (f *fakeEngine) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

// count returns how many events start with prefix.
func (f *fakeEngine) count(prefix string) int {
	n := 0
	for _, e := range f.Events() {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeEngine) Execute(ctx context.Context, stmt string) (*QueryResult, error) {
	f.record("read:" + stmt)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.onExecute != nil {
		return f.onExecute(stmt)
	}

	switch {
	case strings.HasPrefix(stmt, "SELECT count() AS matched"):
		return &QueryResult{
			Columns: []ColumnMeta{{Name: "matched", Type: "UInt64"}},
			Rows:    []RowSnapshot{{{Column: "matched", Value: uint64(f.matched)}}},
		}, nil
	case strings.HasPrefix(stmt, "SELECT sum(rows)"):
		if f.statsRow == nil {
			return &QueryResult{}, nil
		}
		return &QueryResult{Rows: []RowSnapshot{f.statsRow}}, nil
	case strings.HasSuffix(stmt, "LIMIT 0"):
		return &QueryResult{Columns: f.columns}, nil
	case strings.HasPrefix(stmt, "SELECT * FROM"):
		return &QueryResult{Columns: f.columns, Rows: f.rows}, nil
	}
	return nil, fmt.Errorf("unexpected statement: %s", stmt)
}

func (f *fakeEngine) Exec(ctx context.Context, stmt string) error {
	f.mu.Lock()
	f.activeExec++
	if f.activeExec > f.peakExec {
		f.peakExec = f.activeExec
	}
	f.mu.Unlock()

	f.record("exec:" + stmt)
	if f.execDelay > 0 {
		time.Sleep(f.execDelay)
	}
	err := f.execErr
	if err == nil {
		err = ctx.Err()
	}

	f.mu.Lock()
	f.activeExec--
	f.mu.Unlock()
	f.record("ack")
	return err
}

func (f *fakeEngine) Stream(ctx context.Context, stmt string) (Rows, error) {
	f.record("stream:" + stmt)
	if f.onStream != nil {
		return f.onStream(ctx, stmt)
	}
	rows := f.rows
	return &fakeRows{
		cols:  f.columns,
		total: len(rows),
		gen: func(i int) []any {
			vals := make([]any, len(rows[i]))
			for j, fld := range rows[i] {
				vals[j] = fld.Value
			}
			return vals
		},
		failAfter: -1,
	}, nil
}

func (f *fakeEngine) Ping(ctx context.Context) error { return ctx.Err() }

func (f *fakeEngine) Close() error { return nil }

// fakeRows is a generated cursor. It can fail after a given number of rows.
type fakeRows struct {
	cols      []ColumnMeta
	total     int
	gen       func(i int) []any
	failAfter int
	failErr   error
	onRow     func(i int)

	i      int
	err    error
	closed bool
}

func (r *fakeRows) Columns() []ColumnMeta { return r.cols }

func (r *fakeRows) Next() bool {
	if r.closed {
		return false
	}
	if r.failAfter >= 0 && r.i >= r.failAfter {
		r.err = r.failErr
		return false
	}
	if r.i >= r.total {
		return false
	}
	if r.onRow != nil {
		r.onRow(r.i)
	}
	r.i++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.gen(r.i - 1), nil }

func (r *fakeRows) Err() error { return r.err }

func (r *fakeRows) Close() error {
	r.closed = true
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.QueryTimeout = 5 * time.Second
	cfg.MutationTimeout = 5 * time.Second
	cfg.ExportMaxWait = 50 * time.Millisecond
	return cfg
}

var (
	eventsTable  = TableIdentity{Database: "default", Table: "events"}
	scratchTable = TableIdentity{Database: "tmp", Table: "scratch"}
)
