package core

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestLoadStats(t *testing.T) {
	tests := []struct {
		name string
		rows []RowSnapshot
		want TableStats
	}{
		{
			name: "populated table",
			rows: []RowSnapshot{{
				{"total_rows", uint64(1500)},
				{"part_count", uint64(3)},
				{"total_bytes", uint64(2048)},
				{"compressed_size", "2.00 KiB"},
				{"uncompressed_size", "8.00 KiB"},
			}},
			want: TableStats{TotalRows: 1500, PartCount: 3, TotalBytes: 2048, CompressedSize: "2.00 KiB", UncompressedSize: "8.00 KiB"},
		},
		{
			name: "wire protocol text values",
			rows: []RowSnapshot{{
				{"total_rows", "12"},
				{"part_count", json.Number("1")},
				{"total_bytes", int64(99)},
				{"compressed_size", "99.00 B"},
				{"uncompressed_size", "120.00 B"},
			}},
			want: TableStats{TotalRows: 12, PartCount: 1, TotalBytes: 99, CompressedSize: "99.00 B", UncompressedSize: "120.00 B"},
		},
		{
			name: "no active parts",
			rows: []RowSnapshot{{
				{"total_rows", nil},
				{"part_count", uint64(0)},
				{"total_bytes", nil},
				{"compressed_size", "0.00 B"},
				{"uncompressed_size", "0.00 B"},
			}},
			want: TableStats{CompressedSize: "0.00 B", UncompressedSize: "0.00 B"},
		},
		{
			name: "empty result",
			want: TableStats{CompressedSize: "0.00 B", UncompressedSize: "0.00 B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newFakeEngine()
			var stmts []string
			eng.onExecute = func(stmt string) (*QueryResult, error) {
				stmts = append(stmts, stmt)
				return &QueryResult{Rows: tt.rows}, nil
			}
			svc := NewService(eng, testConfig())

			got, err := svc.LoadStats(context.Background(), eventsTable)
			if err != nil {
				t.Fatalf("LoadStats() error = %v", err)
			}
			if !reflect.DeepEqual(*got, tt.want) {
				t.Errorf("LoadStats() = %s, want %s", spew.Sdump(got), spew.Sdump(tt.want))
			}
			if len(stmts) != 1 || !strings.Contains(stmts[0], "FROM system.parts") {
				t.Errorf("statements = %v", stmts)
			}
		})
	}
}

func TestLoadStats_Fresh(t *testing.T) {
	eng := newFakeEngine()
	svc := NewService(eng, testConfig())

	for i := 0; i < 3; i++ {
		if _, err := svc.LoadStats(context.Background(), eventsTable); err != nil {
			t.Fatal(err)
		}
	}
	if n := eng.count("read:SELECT sum(rows)"); n != 3 {
		t.Errorf("stats queries = %d, want one per call", n)
	}
}

func TestLoadStats_Errors(t *testing.T) {
	eng := newFakeEngine()
	eng.onExecute = func(string) (*QueryResult, error) {
		return &QueryResult{Rows: []RowSnapshot{{{"part_count", "lots"}}}}, nil
	}
	svc := NewService(eng, testConfig())
	if _, err := svc.LoadStats(context.Background(), eventsTable); err == nil {
		t.Error("LoadStats() with a non-numeric count should fail")
	}

	eng.onExecute = func(string) (*QueryResult, error) {
		return nil, errors.New("code: 497, message: Not enough privileges")
	}
	_, err := svc.LoadStats(context.Background(), eventsTable)
	var engErr *EngineError
	if !errors.As(err, &engErr) {
		t.Errorf("error = %v, want *EngineError", err)
	}

	if _, err := svc.LoadStats(context.Background(), TableIdentity{}); !IsPlannerError(err) {
		t.Errorf("empty identity error = %v, want planner error", err)
	}
}

func TestToUint64(t *testing.T) {
	tests := []struct {
		in      any
		want    uint64
		wantErr bool
	}{
		{nil, 0, false},
		{uint32(7), 7, false},
		{int(9), 9, false},
		{float64(3), 3, false},
		{"18446744073709551615", 18446744073709551615, false},
		{" 5 ", 5, false},
		{"1.5e3", 1500, false},
		{[]byte("4"), 4, false},
		{int64(-1), 0, true},
		{"-2", 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := toUint64(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("toUint64(%#v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("toUint64(%#v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
