package web

import (
	"net/http"

	"github.com/JonMunkholm/tablebrowser/internal/core"
)

// rowMutationRequest is the body of edit and delete requests. Original is
// the row exactly as it was read; Limit sizes the refreshed page.
type rowMutationRequest struct {
	Original       core.RowSnapshot `json:"original"`
	Changes        core.RowSnapshot `json:"changes,omitempty"`
	AllowAmbiguous bool             `json:"allowAmbiguous"`
	Limit          int              `json:"limit,omitempty"`
}

func (req rowMutationRequest) options() core.MutationOptions {
	return core.MutationOptions{
		AllowAmbiguous: req.AllowAmbiguous,
		RefreshLimit:   req.Limit,
	}
}

// handleEditRow rewrites one row and returns the outcome with the refreshed view.
func (s *Server) handleEditRow(w http.ResponseWriter, r *http.Request) {
	var req rowMutationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	outcome, err := s.service.ApplyEdit(ctx, tableIdentity(r), req.Original, req.Changes, req.options())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, outcome)
}

// handleDeleteRow deletes one row and returns the outcome with the refreshed view.
func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	var req rowMutationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	outcome, err := s.service.DeleteRow(ctx, tableIdentity(r), req.Original, req.options())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, outcome)
}

// handleDropTable drops a table once the caller has typed its name back.
// On success the client navigates away; no refresh is attempted.
func (s *Server) handleDropTable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm string `json:"confirm"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	id := tableIdentity(r)
	if err := id.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := core.CheckDropConfirmation(id, req.Confirm); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	outcome, err := s.service.DropTable(ctx, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/")
	}
	writeJSON(w, r, http.StatusOK, outcome)
}
