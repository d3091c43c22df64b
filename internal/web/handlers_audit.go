package web

import (
	"net/http"

	"github.com/JonMunkholm/tablebrowser/internal/core"
)

// defaultAuditLimit is how many entries GET /api/audit returns by default.
const defaultAuditLimit = 50

// handleAuditLog returns the most recent mutations, drops and exports,
// newest first.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := core.ParseLimit(raw)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		limit = n
	}

	entries := s.service.RecentAudit(limit)
	writeJSON(w, r, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleExportStatus returns the current state of the export limiter.
// Used for monitoring and to check if the system can accept more exports.
func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.Exports().Status())
}
