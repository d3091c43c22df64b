package web

// This file contains shared utilities and helper functions used across handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tablebrowser/internal/core"
)

// MaxRequestBodySize bounds mutation request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// tableIdentity reads the {database} and {table} route parameters.
func tableIdentity(r *http.Request) core.TableIdentity {
	return core.TableIdentity{
		Database: chi.URLParam(r, "database"),
		Table:    chi.URLParam(r, "table"),
	}
}

// parseLimitParam parses the limit query parameter. A missing parameter
// returns zero so the service applies its default.
func parseLimitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	return core.ParseLimit(raw)
}

// parseBoolParam parses a boolean query parameter with a default value.
func parseBoolParam(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: limit %d bytes", errBodyTooLarge, maxErr.Limit)
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// exportWriter defers the download headers until the first byte so an
// export that fails before writing can still return an error response.
type exportWriter struct {
	w           http.ResponseWriter
	rc          *http.ResponseController
	filename    string
	contentType string
	wrote       bool
}

func newExportWriter(w http.ResponseWriter, filename, contentType string) *exportWriter {
	return &exportWriter{
		w:           w,
		rc:          http.NewResponseController(w),
		filename:    filename,
		contentType: contentType,
	}
}

func (e *exportWriter) Write(p []byte) (int, error) {
	if !e.wrote {
		e.wrote = true
		h := e.w.Header()
		h.Set("Content-Type", e.contentType)
		h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, e.filename))
		h.Set("Cache-Control", "no-store")
		e.w.WriteHeader(http.StatusOK)
	}
	return e.w.Write(p)
}

// Flush pushes buffered bytes to the client.
func (e *exportWriter) Flush() {
	if e.wrote {
		_ = e.rc.Flush()
	}
}

// exportContentType returns the media type for an export.
func exportContentType(compressed bool) string {
	if compressed {
		return "application/x-lz4"
	}
	return "text/csv; charset=utf-8"
}

// wantsCompression reports whether the client asked for an lz4 export.
func wantsCompression(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("compress"), "lz4")
}
