package engine

import (
	"math"
	"math/big"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func TestNormalize(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	s := "x"
	var nilTime *time.Time
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	tsFrac := time.Date(2024, 1, 15, 10, 30, 0, 123_000_000, time.UTC)
	cest := time.Date(2024, 1, 15, 12, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

	tests := []struct {
		name   string
		in     any
		dbType string
		want   any
	}{
		{"nil", nil, "", nil},
		{"string", "click", "String", "click"},
		{"uint64 kept", uint64(math.MaxUint64), "UInt64", uint64(math.MaxUint64)},
		{"float kept", 1.5, "Float64", 1.5},
		{"nan", math.NaN(), "Float64", "nan"},
		{"negative inf", float32(math.Inf(-1)), "Float32", "-inf"},
		{"bytes", []byte("raw"), "String", "raw"},
		{"pointer", &s, "Nullable(String)", "x"},
		{"nil pointer", nilTime, "Nullable(DateTime)", nil},
		{"date", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "Date", "2024-01-15"},
		{"date32", time.Date(1960, 1, 15, 0, 0, 0, 0, time.UTC), "Date32", "1960-01-15"},
		{"datetime", ts, "DateTime", "2024-01-15 10:30:00"},
		{"datetime keeps location", cest, "DateTime('Europe/Berlin')", "2024-01-15 12:30:00"},
		{"datetime64", tsFrac, "DateTime64(3)", "2024-01-15 10:30:00.123"},
		{"nullable datetime pointer", &ts, "Nullable(DateTime)", "2024-01-15 10:30:00"},
		{"pg timestamp", ts, "timestamp", "2024-01-15 10:30:00"},
		{"uuid", id, "UUID", id.String()},
		{"pg uuid bytes", [16]byte(id), "uuid", id.String()},
		{"ipv4", net.ParseIP("10.0.0.1"), "IPv4", "10.0.0.1"},
		{"big int", big.NewInt(1).Lsh(big.NewInt(1), 100), "UInt128", "1267650600228229401496703205376"},
		{"pg numeric", pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true}, "numeric", "12.50"},
		{"pg null numeric", pgtype.Numeric{}, "numeric", nil},
		{"array", []uint32{1, 2}, "Array(UInt32)", []any{uint32(1), uint32(2)}},
		{"array of dates", []time.Time{ts}, "Array(DateTime)", []any{"2024-01-15 10:30:00"}},
		{"map", map[string]float64{"a": math.Inf(1)}, "Map(String, Float64)", map[string]any{"a": "inf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(tt.in, tt.dbType)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalize(%v, %q) = %s, want %s", tt.in, tt.dbType, spew.Sdump(got), spew.Sdump(tt.want))
			}
		})
	}
}

func TestUnwrapType(t *testing.T) {
	tests := map[string]string{
		"String":                           "String",
		"Nullable(String)":                 "String",
		"LowCardinality(Nullable(String))": "String",
		" Nullable(DateTime64(3)) ":        "DateTime64(3)",
	}
	for in, want := range tests {
		if got := unwrapType(in); got != want {
			t.Errorf("unwrapType(%q) = %q, want %q", in, got, want)
		}
	}
	if got := elemType("Array(Nullable(Date))"); got != "Nullable(Date)" {
		t.Errorf("elemType() = %q", got)
	}
}
