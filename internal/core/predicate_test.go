package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestBuildEqualityPredicate(t *testing.T) {
	tests := []struct {
		name string
		row  RowSnapshot
		want string
	}{
		{
			name: "string columns in snapshot order",
			row:  RowSnapshot{{"id", "42"}, {"name", "click"}},
			want: "id = '42' AND name = 'click'",
		},
		{
			name: "order follows snapshot not alphabet",
			row:  RowSnapshot{{"name", "click"}, {"id", "42"}},
			want: "name = 'click' AND id = '42'",
		},
		{
			name: "null uses IS NULL",
			row:  RowSnapshot{{"id", uint64(7)}, {"deleted_at", nil}},
			want: "id = 7 AND deleted_at IS NULL",
		},
		{
			name: "reserved column quoted",
			row:  RowSnapshot{{"order", int64(3)}},
			want: "`order` = 3",
		},
		{
			name: "hostile value stays inside literal",
			row:  RowSnapshot{{"name", "x' OR '1'='1"}},
			want: `name = 'x\' OR \'1\'=\'1'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildEqualityPredicate(tt.row)
			if err != nil {
				t.Fatalf("BuildEqualityPredicate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildEqualityPredicate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildEqualityPredicate_OneClausePerColumn(t *testing.T) {
	for n := 1; n <= 20; n++ {
		row := make(RowSnapshot, n)
		for i := range row {
			row[i] = Field{Column: fmt.Sprintf("c%d", i), Value: fmt.Sprintf("v%d", i)}
		}
		got, err := BuildEqualityPredicate(row)
		if err != nil {
			t.Fatalf("n=%d: error = %v", n, err)
		}
		if clauses := strings.Split(got, " AND "); len(clauses) != n {
			t.Errorf("n=%d: got %d clauses in %s", n, len(clauses), got)
		}
	}
}

func TestBuildEqualityPredicate_Errors(t *testing.T) {
	if _, err := BuildEqualityPredicate(RowSnapshot{}); !errors.Is(err, ErrEmptySnapshot) {
		t.Errorf("empty snapshot error = %v, want ErrEmptySnapshot", err)
	}
	if _, err := BuildEqualityPredicate(nil); !errors.Is(err, ErrEmptySnapshot) {
		t.Errorf("nil snapshot error = %v, want ErrEmptySnapshot", err)
	}

	_, err := BuildEqualityPredicate(RowSnapshot{{"id", "1"}, {"tags", []string{"a"}}})
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("error = %v, want *EncodingError", err)
	}
	if encErr.Column != "tags" {
		t.Errorf("EncodingError.Column = %q, want %q", encErr.Column, "tags")
	}

	if _, err := BuildEqualityPredicate(RowSnapshot{{"", "1"}}); !errors.As(err, &encErr) {
		t.Errorf("empty column name error = %v, want *EncodingError", err)
	}
}

func TestBuildAssignments(t *testing.T) {
	got, err := BuildAssignments(RowSnapshot{{"name", "tap"}})
	if err != nil {
		t.Fatalf("BuildAssignments() error = %v", err)
	}
	if got != "name = 'tap'" {
		t.Errorf("BuildAssignments() = %s, want %s", got, "name = 'tap'")
	}

	got, err = BuildAssignments(RowSnapshot{{"name", "tap"}, {"score", 1.5}, {"note", nil}})
	if err != nil {
		t.Fatalf("BuildAssignments() error = %v", err)
	}
	if want := "name = 'tap', score = 1.5, note = NULL"; got != want {
		t.Errorf("BuildAssignments() = %s, want %s", got, want)
	}

	if _, err := BuildAssignments(nil); !errors.Is(err, ErrEmptyChanges) {
		t.Errorf("empty changes error = %v, want ErrEmptyChanges", err)
	}

	var encErr *EncodingError
	if _, err := BuildAssignments(RowSnapshot{{"name", "a"}, {"name", "b"}}); !errors.As(err, &encErr) {
		t.Errorf("duplicate column error = %v, want *EncodingError", err)
	}
}

func TestCheckColumns(t *testing.T) {
	cols := []string{"id", "name"}
	tests := []struct {
		name    string
		row     RowSnapshot
		wantErr bool
	}{
		{"exact", RowSnapshot{{"id", "1"}, {"name", "a"}}, false},
		{"reordered", RowSnapshot{{"name", "a"}, {"id", "1"}}, false},
		{"missing column", RowSnapshot{{"id", "1"}}, true},
		{"extra column", RowSnapshot{{"id", "1"}, {"name", "a"}, {"ghost", 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckColumns(tt.row, cols)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckColumns() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownColumn) {
				t.Errorf("CheckColumns() error = %v, want ErrUnknownColumn", err)
			}
		})
	}

	if err := CheckChangeColumns(RowSnapshot{{"ghost", 1}}, cols); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("CheckChangeColumns() error = %v, want ErrUnknownColumn", err)
	}
}

func TestBuildTypedEqualityPredicate_Floats(t *testing.T) {
	columns := []ColumnMeta{
		{Name: "id", Type: "String"},
		{Name: "score", Type: "Float32"},
		{Name: "ratio", Type: "Nullable(Float64)"},
		{Name: "price", Type: "Decimal(10, 2)"},
	}

	tests := []struct {
		name    string
		row     RowSnapshot
		columns []ColumnMeta
		want    string
	}{
		{
			name:    "float32 column from driver",
			row:     RowSnapshot{{"id", "1"}, {"score", float32(0.1)}},
			columns: columns,
			want:    "id = '1' AND score = toFloat32(0.1)",
		},
		{
			name:    "float32 column after json round trip",
			row:     RowSnapshot{{"id", "1"}, {"score", json.Number("0.1")}},
			columns: columns,
			want:    "id = '1' AND score = toFloat32(0.1)",
		},
		{
			name:    "float64 column stays plain",
			row:     RowSnapshot{{"ratio", json.Number("0.25")}},
			columns: columns,
			want:    "ratio = 0.25",
		},
		{
			name:    "nan float",
			row:     RowSnapshot{{"id", "1"}, {"ratio", math.NaN()}},
			columns: columns,
			want:    "id = '1' AND isNaN(ratio)",
		},
		{
			name:    "nan text on a float column",
			row:     RowSnapshot{{"score", "nan"}},
			columns: columns,
			want:    "isNaN(score)",
		},
		{
			name:    "nan text on a string column is a string",
			row:     RowSnapshot{{"id", "nan"}},
			columns: columns,
			want:    "id = 'nan'",
		},
		{
			name: "untyped float32 value",
			row:  RowSnapshot{{"score", float32(0.1)}},
			want: "score = toFloat32(0.1)",
		},
		{
			name: "untyped fractional json number is quoted",
			row:  RowSnapshot{{"score", json.Number("0.1")}, {"n", json.Number("7")}},
			want: "score = '0.1' AND n = 7",
		},
		{
			name: "untyped nan",
			row:  RowSnapshot{{"score", float32(math.NaN())}},
			want: "isNaN(score)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildTypedEqualityPredicate(tt.row, tt.columns)
			if err != nil {
				t.Fatalf("BuildTypedEqualityPredicate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildTypedEqualityPredicate() = %s, want %s", got, tt.want)
			}
		})
	}
}
