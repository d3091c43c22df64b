package engine

import (
	"database/sql/driver"
	"fmt"
	"math"
	"math/big"
	"net"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// normalize converts a driver value into something that survives a JSON
// round trip and encodes back into a literal the engine compares equal.
//
// Dates and times become engine-formatted strings in their own location,
// decimals and UUIDs become strings, NaN and infinities become the engine's
// spellings. Pointers are dereferenced; nil pointers become nil.
func normalize(v any, dbType string) any {
	if n, ok := v.(*big.Int); ok {
		if n == nil {
			return nil
		}
		return n.String()
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface(), dbType)
	}

	switch x := v.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return x
	case float32:
		return normalizeFloat(float64(x), x)
	case float64:
		return normalizeFloat(x, x)
	case []byte:
		return string(x)
	case time.Time:
		return formatTime(x, dbType)
	case uuid.UUID:
		return x.String()
	case [16]byte:
		if isUUIDType(dbType) {
			return uuid.UUID(x).String()
		}
		return fmt.Sprintf("%x", x)
	case net.IP:
		return x.String()
	case driver.Valuer:
		val, err := x.Value()
		if err != nil {
			return fmt.Sprint(x)
		}
		if val == nil {
			return nil
		}
		return normalize(val, dbType)
	case fmt.Stringer:
		// Decimal, Enum and IPv4/6 wrappers all render their engine text.
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface(), elemType(dbType))
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = normalize(iter.Value().Interface(), "")
		}
		return out
	}
	return v
}

func normalizeFloat(f float64, orig any) any {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return orig
}

// formatTime renders t the way the engine prints the column type.
// Date columns drop the clock; DateTime64 keeps the fraction.
func formatTime(t time.Time, dbType string) string {
	base := strings.ToLower(unwrapType(dbType))
	switch {
	case strings.HasPrefix(base, "date32"), base == "date":
		return t.Format(time.DateOnly)
	case strings.HasPrefix(base, "datetime64"):
		return t.Format("2006-01-02 15:04:05.999999999")
	case strings.HasPrefix(base, "datetime"), strings.HasPrefix(base, "timestamp"):
		return t.Format(time.DateTime)
	}
	if t.Nanosecond() == 0 {
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && dbType == "" {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.DateTime)
	}
	return t.Format("2006-01-02 15:04:05.999999999")
}

func isUUIDType(dbType string) bool {
	return strings.EqualFold(unwrapType(dbType), "uuid")
}

// unwrapType strips Nullable(...) and LowCardinality(...) wrappers.
func unwrapType(dbType string) string {
	t := strings.TrimSpace(dbType)
	for {
		inner, ok := strings.CutPrefix(t, "Nullable(")
		if !ok {
			inner, ok = strings.CutPrefix(t, "LowCardinality(")
		}
		if !ok || !strings.HasSuffix(inner, ")") {
			return t
		}
		t = inner[:len(inner)-1]
	}
}

// elemType returns T for Array(T), or "" otherwise.
func elemType(dbType string) string {
	t := unwrapType(dbType)
	if strings.HasPrefix(t, "Array(") && strings.HasSuffix(t, ")") {
		return t[len("Array(") : len(t)-1]
	}
	return ""
}
