package core

import (
	"context"
	"fmt"
)

// ListTables lists tables with their row and byte totals, ordered by
// database and name. System databases are skipped unless includeSystem is set.
func (s *Service) ListTables(ctx context.Context, includeSystem bool) ([]TableInfo, error) {
	result, err := s.execute(ctx, PlanListTables(includeSystem))
	if err != nil {
		return nil, err
	}

	tables := make([]TableInfo, 0, len(result.Rows))
	for _, row := range result.Rows {
		info := TableInfo{
			Database: stringColumn(row, "database"),
			Name:     stringColumn(row, "name"),
			Engine:   stringColumn(row, "engine"),
		}
		if info.TotalRows, err = uintColumn(row, "total_rows"); err != nil {
			return nil, fmt.Errorf("table %s.%s: %w", info.Database, info.Name, err)
		}
		if info.TotalBytes, err = uintColumn(row, "total_bytes"); err != nil {
			return nil, fmt.Errorf("table %s.%s: %w", info.Database, info.Name, err)
		}
		tables = append(tables, info)
	}
	return tables, nil
}

// OverviewStats totals tables, rows and bytes across non-system databases.
func (s *Service) OverviewStats(ctx context.Context) (*OverviewStats, error) {
	result, err := s.execute(ctx, PlanOverviewStats())
	if err != nil {
		return nil, err
	}

	overview := &OverviewStats{Databases: make([]DatabaseStats, 0, len(result.Rows))}
	for _, row := range result.Rows {
		db := DatabaseStats{Database: stringColumn(row, "database")}
		if db.TableCount, err = uintColumn(row, "table_count"); err != nil {
			return nil, err
		}
		if db.TotalRows, err = uintColumn(row, "total_rows"); err != nil {
			return nil, err
		}
		if db.TotalBytes, err = uintColumn(row, "total_bytes"); err != nil {
			return nil, err
		}
		overview.TotalTables += db.TableCount
		overview.TotalRows += db.TotalRows
		overview.TotalBytes += db.TotalBytes
		overview.Databases = append(overview.Databases, db)
	}
	return overview, nil
}

func stringColumn(row RowSnapshot, column string) string {
	v, ok := row.Get(column)
	if !ok || v == nil {
		return ""
	}
	return formatCell(v)
}
