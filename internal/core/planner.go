package core

import (
	"fmt"
	"strconv"
	"strings"
)

// planner.go builds every statement the service sends to the engine.
// Functions here are pure: they validate input and return SQL text, and
// never touch the engine. Invalid input fails before any I/O happens.

// MutationOption adjusts an ALTER TABLE statement.
type MutationOption func(*mutationSettings)

type mutationSettings struct {
	sync int
}

// WithMutationsSync appends SETTINGS mutations_sync = level so the engine
// acknowledges only after the mutation is materialised (1 = this replica,
// 2 = all replicas). Level 0 leaves the statement asynchronous.
func WithMutationsSync(level int) MutationOption {
	return func(s *mutationSettings) {
		s.sync = level
	}
}

func (s mutationSettings) suffix() string {
	if s.sync <= 0 {
		return ""
	}
	return " SETTINGS mutations_sync = " + strconv.Itoa(s.sync)
}

// ParseLimit parses a caller-supplied row limit.
func ParseLimit(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, &InvalidLimitError{Limit: n, Input: raw}
	}
	return n, nil
}

// PlanPageRead builds SELECT * FROM db.t LIMIT n.
func PlanPageRead(id TableIdentity, limit int) (string, error) {
	if limit <= 0 {
		return "", &InvalidLimitError{Limit: limit}
	}
	table, err := id.Qualified()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit), nil
}

// PlanColumnsRead builds a read that returns the table's columns and no rows.
func PlanColumnsRead(id TableIdentity) (string, error) {
	table, err := id.Qualified()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT 0", table), nil
}

// PlanExport builds the bounded read used by exports. The cap is part of
// the statement so the engine never produces more rows than requested.
func PlanExport(id TableIdentity, rowCap int) (string, error) {
	return PlanPageRead(id, rowCap)
}

// PlanStatsRead builds the aggregate over active parts in system.parts.
func PlanStatsRead(id TableIdentity) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	return "SELECT sum(rows) AS total_rows, count() AS part_count, " +
		"sum(data_compressed_bytes) AS total_bytes, " +
		"formatReadableSize(sum(data_compressed_bytes)) AS compressed_size, " +
		"formatReadableSize(sum(data_uncompressed_bytes)) AS uncompressed_size " +
		"FROM system.parts WHERE database = " + QuoteString(id.Database) +
		" AND table = " + QuoteString(id.Table) + " AND active", nil
}

// PlanMatchCount counts the rows a predicate would touch.
func PlanMatchCount(id TableIdentity, predicate string) (string, error) {
	if strings.TrimSpace(predicate) == "" {
		return "", ErrEmptySnapshot
	}
	table, err := id.Qualified()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT count() AS matched FROM %s WHERE %s", table, predicate), nil
}

// PlanUpdate builds ALTER TABLE db.t UPDATE <assignments> WHERE <predicate>.
func PlanUpdate(id TableIdentity, predicate, assignments string, opts ...MutationOption) (string, error) {
	if strings.TrimSpace(predicate) == "" {
		return "", ErrEmptySnapshot
	}
	if strings.TrimSpace(assignments) == "" {
		return "", ErrEmptyChanges
	}
	table, err := id.Qualified()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s UPDATE %s WHERE %s%s",
		table, assignments, predicate, applyMutationOptions(opts).suffix()), nil
}

// PlanDelete builds ALTER TABLE db.t DELETE WHERE <predicate>.
func PlanDelete(id TableIdentity, predicate string, opts ...MutationOption) (string, error) {
	if strings.TrimSpace(predicate) == "" {
		return "", ErrEmptySnapshot
	}
	table, err := id.Qualified()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DELETE WHERE %s%s",
		table, predicate, applyMutationOptions(opts).suffix()), nil
}

// PlanDrop builds DROP TABLE db.t. Callers must obtain confirmation first.
func PlanDrop(id TableIdentity) (string, error) {
	table, err := id.Qualified()
	if err != nil {
		return "", err
	}
	return "DROP TABLE " + table, nil
}

// PlanListTables lists tables with their row and byte totals.
func PlanListTables(includeSystem bool) string {
	q := "SELECT database, name, engine, " +
		"ifNull(total_rows, 0) AS total_rows, ifNull(total_bytes, 0) AS total_bytes " +
		"FROM system.tables"
	if !includeSystem {
		q += " WHERE " + nonSystemDatabases
	}
	return q + " ORDER BY database, name"
}

// PlanOverviewStats aggregates non-system tables per database.
func PlanOverviewStats() string {
	return "SELECT database, count() AS table_count, " +
		"sum(ifNull(total_rows, 0)) AS total_rows, sum(ifNull(total_bytes, 0)) AS total_bytes " +
		"FROM system.tables WHERE " + nonSystemDatabases +
		" GROUP BY database ORDER BY database"
}

const nonSystemDatabases = "database NOT IN ('system', 'INFORMATION_SCHEMA', 'information_schema')"

func applyMutationOptions(opts []MutationOption) mutationSettings {
	var s mutationSettings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
