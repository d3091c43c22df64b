package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// LoadPage reads the first limit rows of a table.
// Limits above the configured maximum are clamped; non-positive limits fail.
func (s *Service) LoadPage(ctx context.Context, id TableIdentity, limit int) (*QueryResult, error) {
	if limit > s.cfg.MaxPageLimit {
		limit = s.cfg.MaxPageLimit
	}
	stmt, err := PlanPageRead(id, limit)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, stmt)
}

// LoadColumns returns the table's current columns without reading rows.
func (s *Service) LoadColumns(ctx context.Context, id TableIdentity) ([]ColumnMeta, error) {
	stmt, err := PlanColumnsRead(id)
	if err != nil {
		return nil, err
	}
	result, err := s.execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return result.Columns, nil
}

// LoadView reads a page and the table's stats concurrently.
// Either failure fails the whole view.
func (s *Service) LoadView(ctx context.Context, id TableIdentity, limit int) (*TableView, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	view := &TableView{Table: id}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		page, err := s.LoadPage(gctx, id, limit)
		if err != nil {
			return fmt.Errorf("load page: %w", err)
		}
		view.Page = page
		return nil
	})
	g.Go(func() error {
		stats, err := s.LoadStats(gctx, id)
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}
		view.Stats = stats
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}
