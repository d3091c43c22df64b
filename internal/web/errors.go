package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned with the engine's own message plus a mapped explanation
//   - Formatted appropriately based on request type (HTMX, JSON, or plain)
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Status is chosen from the error class, message via core.MapError
//  4. Technical error + context is logged with request ID for correlation
//  5. The response is rendered in the format the client asked for

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/tablebrowser/internal/core"
	"github.com/JonMunkholm/tablebrowser/internal/web/templates"
)

var (
	errRateLimited  = errors.New("rate limit exceeded")
	errInvalidBody  = errors.New("invalid request body")
	errBodyTooLarge = errors.New("request body too large")
)

// ErrorResponse represents the JSON structure for API error responses.
// Detail carries the engine's message verbatim when the engine failed.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
	Matched int64  `json:"matched,omitempty"`
	Rows    int    `json:"rows,omitempty"`
}

// statusFor picks the HTTP status for an error class.
func statusFor(err error) int {
	var (
		ambiguous *core.AmbiguousMutationWarning
		engErr    *core.EngineError
		exportErr *core.ExportError
	)
	switch {
	case errors.Is(err, core.ErrSnapshotNotFound),
		errors.Is(err, core.ErrUnknownColumn),
		errors.As(err, &ambiguous):
		return http.StatusConflict
	case errors.Is(err, core.ErrExportBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrDropNotConfirmed),
		errors.Is(err, errInvalidBody),
		core.IsPlannerError(err):
		return http.StatusBadRequest
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.As(err, &engErr), errors.As(err, &exportErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns an appropriate response
// based on the request type (HTMX, JSON, or plain text).
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)
	detail := core.EngineMessage(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if isHTMX(r) {
		renderErrorPartial(w, r, userMsg, detail, status)
		return
	}

	resp := errorResponse(userMsg, detail)
	var ambiguous *core.AmbiguousMutationWarning
	if errors.As(err, &ambiguous) {
		resp.Matched = ambiguous.Matched
	}
	var exportErr *core.ExportError
	if errors.As(err, &exportErr) {
		resp.Rows = exportErr.Rows
	}
	writeJSON(w, r, status, resp)
}

// writeErrorMessage writes an already-mapped message.
func writeErrorMessage(w http.ResponseWriter, r *http.Request, status int, msg core.UserMessage, detail string) {
	if isHTMX(r) {
		renderErrorPartial(w, r, msg, detail, status)
		return
	}
	writeJSON(w, r, status, errorResponse(msg, detail))
}

func errorResponse(msg core.UserMessage, detail string) ErrorResponse {
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Detail:  detail,
	}
	if detail != "" {
		resp.Error = detail
	}
	return resp
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, detail string, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code, detail).Render(r.Context(), w); err != nil {
		slog.Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsHTML reports whether an HTMX client asked for a fragment rather than JSON.
func wantsHTML(r *http.Request) bool {
	return isHTMX(r) && !strings.Contains(r.Header.Get("Accept"), "application/json")
}
