package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/tablebrowser/internal/core"
	"github.com/JonMunkholm/tablebrowser/internal/logging"
	"github.com/JonMunkholm/tablebrowser/internal/web/templates"
)

// handleHealth reports whether the engine answers a ping.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		slog.Warn("health check failed", "error", err)
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListTables returns every table with its row and byte totals.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.service.ListTables(r.Context(), parseBoolParam(r, "include_system", false))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tables)
}

// handleOverviewStats returns totals across all non-system databases.
func (s *Server) handleOverviewStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.OverviewStats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// handleTableView returns the first page of a table together with its stats.
// HTMX requests receive the rendered grid.
func (s *Server) handleTableView(w http.ResponseWriter, r *http.Request) {
	limit, err := s.pageLimit(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	view, err := s.service.LoadView(r.Context(), tableIdentity(r), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.TableView(view).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render table view", "error", err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// handleTableRows returns the first page of a table without stats.
func (s *Server) handleTableRows(w http.ResponseWriter, r *http.Request) {
	limit, err := s.pageLimit(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	page, err := s.service.LoadPage(r.Context(), tableIdentity(r), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

// handleTableStats returns a table's part statistics.
func (s *Server) handleTableStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.LoadStats(r.Context(), tableIdentity(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// handleExport streams a table as CSV, optionally lz4-compressed.
// Rows go straight from the engine cursor to the response; nothing is
// buffered beyond the writer chain.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rowCap, err := parseLimitParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	id := tableIdentity(r)
	compress := wantsCompression(r)
	filename := s.service.ExportFilename(id, compress)
	out := newExportWriter(w, filename, exportContentType(compress))

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.ExportTable(ctx, id, rowCap, out, core.ExportOptions{
		Compress: compress,
		Filename: filename,
	})
	if err == nil {
		return
	}

	if !out.wrote {
		s.respondError(w, r, err)
		return
	}

	// Headers are sent; the client sees a truncated file.
	rows := 0
	if result != nil {
		rows = result.Rows
	}
	var exportErr *core.ExportError
	if errors.As(err, &exportErr) {
		rows = exportErr.Rows
	}
	slog.Error("export interrupted",
		"table", id.String(),
		"rows", rows,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
}

// pageLimit resolves the limit parameter against the configured page sizes.
func (s *Server) pageLimit(r *http.Request) (int, error) {
	limit, err := parseLimitParam(r)
	if err != nil {
		return 0, err
	}
	return s.service.PageLimit(limit)
}
