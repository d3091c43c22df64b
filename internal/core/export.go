package core

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// ExportTable streams up to rowCap rows of a table to w as CSV: a header row
// of column names, then one record per row. A zero cap selects the configured
// default; caps above the maximum are clamped.
//
// If w implements Flush() (http.ResponseWriter does), it is flushed every
// ExportFlushEvery rows. Cancelling ctx stops the export and closes the
// engine cursor. Failures after streaming began are returned as *ExportError
// carrying the number of rows already written.
func (s *Service) ExportTable(ctx context.Context, id TableIdentity, rowCap int, w io.Writer, opts ExportOptions) (*ExportResult, error) {
	rowCap, err := s.ExportCap(rowCap)
	if err != nil {
		return nil, err
	}
	stmt, err := PlanExport(id, rowCap)
	if err != nil {
		return nil, err
	}

	if err := s.exports.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.exports.Release()

	result := &ExportResult{
		OperationID: s.operationID(ctx),
		Table:       id,
		Filename:    opts.Filename,
		Cap:         rowCap,
		Compressed:  opts.Compress,
	}
	if result.Filename == "" {
		result.Filename = s.ExportFilename(id, opts.Compress)
	}
	start := s.now()

	err = s.streamExport(ctx, stmt, rowCap, w, opts, result)
	result.Elapsed = s.now().Sub(start)

	s.LogAudit(ctx, AuditLogParams{
		OperationID: result.OperationID,
		Action:      ActionExport,
		Table:       id,
		Statement:   stmt,
		Matched:     -1,
		Rows:        result.Rows,
		Err:         err,
		Elapsed:     result.Elapsed,
	})
	return result, err
}

func (s *Service) streamExport(ctx context.Context, stmt string, rowCap int, w io.Writer, opts ExportOptions, result *ExportResult) error {
	rows, err := s.engine.Stream(ctx, stmt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("export aborted: %w", ctxErr)
		}
		return NewEngineError(stmt, err)
	}
	defer rows.Close()

	pipe := newExportPipeline(w, opts.Compress)
	fail := func(err error) error {
		result.Bytes = pipe.bytesWritten()
		return &ExportError{Rows: result.Rows, Err: err}
	}

	cols := rows.Columns()
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := pipe.writeRecord(header); err != nil {
		return fail(err)
	}

	record := make([]string, len(cols))
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		values, err := rows.Values()
		if err != nil {
			return fail(NewEngineError(stmt, err))
		}
		if len(values) != len(cols) {
			return fail(fmt.Errorf("row has %d values for %d columns", len(values), len(cols)))
		}
		for i, v := range values {
			record[i] = formatCell(v)
		}
		if err := pipe.writeRecord(record); err != nil {
			return fail(err)
		}
		result.Rows++

		if result.Rows%s.cfg.ExportFlushEvery == 0 {
			if err := pipe.flush(); err != nil {
				return fail(err)
			}
		}
		if result.Rows >= rowCap {
			break
		}
	}
	if err := rows.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fail(ctxErr)
		}
		return fail(NewEngineError(stmt, err))
	}

	if err := pipe.close(); err != nil {
		return fail(err)
	}
	result.Bytes = pipe.bytesWritten()
	return nil
}

// ExportFilename names an export of id dated by the service clock.
func (s *Service) ExportFilename(id TableIdentity, compressed bool) string {
	return ExportFilename(id, s.now(), compressed)
}

// ExportFilename names an export file: <database>_<table>_export_<YYYY-MM-DD>.csv,
// with .lz4 appended for compressed exports.
func ExportFilename(id TableIdentity, t time.Time, compressed bool) string {
	name := fmt.Sprintf("%s_%s_export_%s.csv",
		sanitizeFilePart(id.Database), sanitizeFilePart(id.Table), t.Format(time.DateOnly))
	if compressed {
		name += ".lz4"
	}
	return name
}

func sanitizeFilePart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, s)
}
