package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// BuildEqualityPredicate renders a WHERE clause matching every column of row.
//
// Clauses follow snapshot order and are joined with AND. NULL values become
// "col IS NULL" because "col = NULL" never matches. Every physical row holding
// identical values matches; callers that need a single row must count first.
func BuildEqualityPredicate(row RowSnapshot) (string, error) {
	return BuildTypedEqualityPredicate(row, nil)
}

// BuildTypedEqualityPredicate is BuildEqualityPredicate with the table's
// column types, so float values compare in the column's own precision.
// Float32 values are compared through toFloat32 and NaN through isNaN.
// Without a type, fractional JSON numbers are quoted and the engine parses
// them as the column type.
func BuildTypedEqualityPredicate(row RowSnapshot, columns []ColumnMeta) (string, error) {
	if len(row) == 0 {
		return "", ErrEmptySnapshot
	}

	types := make(map[string]string, len(columns))
	for _, c := range columns {
		types[c.Name] = baseType(c.Type)
	}

	clauses := make([]string, 0, len(row))
	for _, f := range row {
		col, err := encodeColumn(f.Column)
		if err != nil {
			return "", err
		}
		clause, err := equalityClause(col, f, types[f.Column])
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}

	return strings.Join(clauses, " AND "), nil
}

func equalityClause(col string, f Field, colType string) (string, error) {
	if isNull(f.Value) {
		return col + " IS NULL", nil
	}
	if isNaNValue(f.Value, colType) {
		return "isNaN(" + col + ")", nil
	}

	lit, err := encodeFieldValue(f)
	if err != nil {
		return "", err
	}

	switch {
	case colType == "Float32" && isNumeric(f.Value):
		return col + " = toFloat32(" + lit + ")", nil
	case colType == "" && isFloat32(f.Value):
		return col + " = toFloat32(" + lit + ")", nil
	case colType == "" && isFractionalNumber(f.Value):
		return col + " = " + QuoteString(lit), nil
	}
	return col + " = " + lit, nil
}

// baseType strips Nullable(...) and LowCardinality(...) wrappers.
func baseType(t string) string {
	t = strings.TrimSpace(t)
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

// isNaNValue reports NaN floats, and the "nan" text drivers emit for NaN
// cells of float columns.
func isNaNValue(v any, colType string) bool {
	switch x := v.(type) {
	case float32:
		return math.IsNaN(float64(x))
	case float64:
		return math.IsNaN(x)
	case string:
		if strings.HasPrefix(colType, "Float") {
			switch strings.ToLower(x) {
			case "nan", "-nan", "+nan":
				return true
			}
		}
	}
	return false
}

func isFloat32(v any) bool {
	_, ok := v.(float32)
	return ok
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float32, float64, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// isFractionalNumber reports JSON numbers with a fraction or exponent.
func isFractionalNumber(v any) bool {
	n, ok := v.(json.Number)
	return ok && strings.ContainsAny(string(n), ".eE")
}

// BuildAssignments renders the SET list of an UPDATE.
func BuildAssignments(changes RowSnapshot) (string, error) {
	if len(changes) == 0 {
		return "", ErrEmptyChanges
	}

	seen := make(map[string]bool, len(changes))
	parts := make([]string, 0, len(changes))
	for _, f := range changes {
		if seen[f.Column] {
			return "", &EncodingError{Column: f.Column, Value: f.Value, Reason: "column assigned twice"}
		}
		seen[f.Column] = true

		col, err := encodeColumn(f.Column)
		if err != nil {
			return "", err
		}
		lit, err := encodeFieldValue(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, col+" = "+lit)
	}

	return strings.Join(parts, ", "), nil
}

// CheckColumns verifies that snapshot names exactly the given columns, in any order.
func CheckColumns(snapshot RowSnapshot, columns []string) error {
	want := make(map[string]bool, len(columns))
	for _, c := range columns {
		want[c] = true
	}

	var unknown []string
	have := make(map[string]bool, len(snapshot))
	for _, f := range snapshot {
		have[f.Column] = true
		if !want[f.Column] {
			unknown = append(unknown, f.Column)
		}
	}
	var missing []string
	for _, c := range columns {
		if !have[c] {
			missing = append(missing, c)
		}
	}

	switch {
	case len(unknown) > 0:
		return fmt.Errorf("%w: unknown columns %s", ErrUnknownColumn, joinColumns(unknown))
	case len(missing) > 0:
		return fmt.Errorf("%w: snapshot is missing columns %s", ErrUnknownColumn, joinColumns(missing))
	}
	return nil
}

// CheckChangeColumns verifies that every changed column exists.
func CheckChangeColumns(changes RowSnapshot, columns []string) error {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	var unknown []string
	for _, f := range changes {
		if !known[f.Column] {
			unknown = append(unknown, f.Column)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: unknown columns %s", ErrUnknownColumn, joinColumns(unknown))
	}
	return nil
}

func encodeColumn(name string) (string, error) {
	col, err := EncodeIdentifier(name)
	if err != nil {
		return "", &EncodingError{Column: name, Value: name, Reason: "invalid column name"}
	}
	return col, nil
}

func encodeFieldValue(f Field) (string, error) {
	lit, err := EncodeLiteral(f.Value)
	if err != nil {
		if encErr, ok := err.(*EncodingError); ok && encErr.Column == "" {
			encErr.Column = f.Column
		}
		return "", err
	}
	return lit, nil
}

func isNull(v any) bool {
	lit, err := EncodeLiteral(v)
	return err == nil && lit == "NULL"
}
