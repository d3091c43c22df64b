package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/JonMunkholm/tablebrowser/internal/core"
)

type cliEngine struct {
	reads []string
	execs []string
}

func (e *cliEngine) Execute(ctx context.Context, stmt string) (*core.QueryResult, error) {
	e.reads = append(e.reads, stmt)
	if strings.HasPrefix(stmt, "SELECT sum(rows)") {
		return &core.QueryResult{Rows: []core.RowSnapshot{{
			{Column: "total_rows", Value: uint64(7)},
			{Column: "part_count", Value: uint64(2)},
			{Column: "total_bytes", Value: uint64(900)},
			{Column: "compressed_size", Value: "900.00 B"},
			{Column: "uncompressed_size", Value: "2.00 KiB"},
		}}}, nil
	}
	return &core.QueryResult{
		Columns: []core.ColumnMeta{{Name: "id", Type: "UInt64"}, {Name: "note", Type: "Nullable(String)"}},
		Rows: []core.RowSnapshot{
			{{Column: "id", Value: uint64(1)}, {Column: "note", Value: nil}},
		},
	}, nil
}

func (e *cliEngine) Exec(ctx context.Context, stmt string) error {
	e.execs = append(e.execs, stmt)
	return nil
}

func (e *cliEngine) Stream(ctx context.Context, stmt string) (core.Rows, error) {
	return nil, errors.New("not used")
}

func (e *cliEngine) Ping(ctx context.Context) error { return nil }

func (e *cliEngine) Close() error { return nil }

func opener(eng *cliEngine) serviceOpener {
	return func(ctx context.Context) (*core.Service, func(), error) {
		return core.NewService(eng, core.DefaultConfig()), func() {}, nil
	}
}

func init() {
	color.NoColor = true
}

func TestParseTable(t *testing.T) {
	tests := []struct {
		arg     string
		want    core.TableIdentity
		wantErr bool
	}{
		{arg: "default.events", want: core.TableIdentity{Database: "default", Table: "events"}},
		{arg: "db.my.table", want: core.TableIdentity{Database: "db", Table: "my.table"}},
		{arg: "events", wantErr: true},
		{arg: ".events", wantErr: true},
		{arg: "default.", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseTable(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTable(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseTable(%q) = %+v, want %+v", tt.arg, got, tt.want)
			}
		})
	}
}

func TestRun_Page(t *testing.T) {
	eng := &cliEngine{}
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"page", "-limit", "5", "default.events"}, &stdout, &stderr, opener(eng))
	if code != 0 {
		t.Fatalf("exit = %d, stderr %s", code, stderr.String())
	}
	if len(eng.reads) != 1 || eng.reads[0] != "SELECT * FROM default.events LIMIT 5" {
		t.Errorf("reads = %v", eng.reads)
	}
	if !strings.Contains(stdout.String(), "NULL") || !strings.Contains(stdout.String(), "note") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "1 rows") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_Stats(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"stats", "default.events"}, &stdout, &stderr, opener(&cliEngine{}))
	if code != 0 {
		t.Fatalf("exit = %d, stderr %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "rows:          7") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRun_Drop(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantExec bool
	}{
		{name: "no confirmation", args: []string{"drop", "tmp.scratch"}, wantCode: 2},
		{name: "wrong confirmation", args: []string{"drop", "-confirm", "scratc", "tmp.scratch"}, wantCode: 2},
		{name: "confirmed", args: []string{"drop", "-confirm", "scratch", "tmp.scratch"}, wantCode: 0, wantExec: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &cliEngine{}
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stdout, &stderr, opener(eng))
			if code != tt.wantCode {
				t.Fatalf("exit = %d, want %d, stderr %s", code, tt.wantCode, stderr.String())
			}
			if tt.wantExec {
				if len(eng.execs) != 1 || eng.execs[0] != "DROP TABLE tmp.scratch" {
					t.Errorf("execs = %v", eng.execs)
				}
				if len(eng.reads) != 0 {
					t.Errorf("drop refreshed the table: %v", eng.reads)
				}
			} else if len(eng.execs) != 0 {
				t.Errorf("unconfirmed drop reached the engine: %v", eng.execs)
			}
		})
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"vacuum"}, &stdout, &stderr, opener(&cliEngine{})); code != 2 {
		t.Errorf("exit = %d, want 2", code)
	}
}

func TestViewState_Fail(t *testing.T) {
	var out bytes.Buffer
	state := &viewState{out: &out}
	state.begin("drop tmp.scratch")
	state.fail(core.NewEngineError("DROP TABLE tmp.scratch", errors.New("Code: 60. DB::Exception: Table tmp.scratch doesn't exist")))

	if state.isBusy || state.lastError == nil || state.lastQuery != "drop tmp.scratch" {
		t.Errorf("state = %+v", state)
	}
	if !strings.Contains(out.String(), "Code: 60. DB::Exception") {
		t.Errorf("engine message missing: %q", out.String())
	}
}
