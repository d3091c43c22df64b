package core

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// zeroSize is how the engine renders formatReadableSize(0).
const zeroSize = "0.00 B"

// LoadStats summarises the table's active parts. Stats are computed on
// every call; a table with no parts reports zeros.
func (s *Service) LoadStats(ctx context.Context, id TableIdentity) (*TableStats, error) {
	stmt, err := PlanStatsRead(id)
	if err != nil {
		return nil, err
	}
	result, err := s.execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return mapTableStats(result)
}

func mapTableStats(result *QueryResult) (*TableStats, error) {
	stats := &TableStats{CompressedSize: zeroSize, UncompressedSize: zeroSize}
	if len(result.Rows) == 0 {
		return stats, nil
	}
	row := result.Rows[0]

	var err error
	if stats.PartCount, err = uintColumn(row, "part_count"); err != nil {
		return nil, err
	}
	if stats.PartCount == 0 {
		return stats, nil
	}
	if stats.TotalRows, err = uintColumn(row, "total_rows"); err != nil {
		return nil, err
	}
	if stats.TotalBytes, err = uintColumn(row, "total_bytes"); err != nil {
		return nil, err
	}
	stats.CompressedSize = sizeColumn(row, "compressed_size")
	stats.UncompressedSize = sizeColumn(row, "uncompressed_size")
	return stats, nil
}

func uintColumn(row RowSnapshot, column string) (uint64, error) {
	v, _ := row.Get(column)
	n, err := toUint64(v)
	if err != nil {
		return 0, fmt.Errorf("stats column %s: %w", column, err)
	}
	return n, nil
}

func sizeColumn(row RowSnapshot, column string) string {
	v, _ := row.Get(column)
	if v == nil {
		return zeroSize
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return zeroSize
	}
	return s
}

// toUint64 converts the numeric shapes engines return for counts and sums.
func toUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case uint64:
		return x, nil
	case uint32:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint:
		return uint64(x), nil
	case int64:
		if x < 0 {
			return 0, fmt.Errorf("negative value %d", x)
		}
		return uint64(x), nil
	case int32:
		return toUint64(int64(x))
	case int:
		return toUint64(int64(x))
	case float64:
		if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("invalid value %v", x)
		}
		return uint64(x), nil
	case json.Number:
		return parseUint(string(x))
	case string:
		return parseUint(x)
	case []byte:
		return parseUint(string(x))
	}
	return 0, fmt.Errorf("unexpected %T", v)
}

func parseUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return uint64(f), nil
}
