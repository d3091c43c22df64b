// Package templates renders the HTML fragments returned to HTMX requests.
// The components live in .templ files; run `templ generate` after editing them.
package templates

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JonMunkholm/tablebrowser/internal/core"
)

// rowSnapshot encodes a row for the data-snapshot attribute.
func rowSnapshot(row core.RowSnapshot) (string, error) {
	b, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("encode row snapshot: %w", err)
	}
	return string(b), nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return string(x)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

func footerText(page *core.QueryResult) string {
	s := fmt.Sprintf("%d rows", page.RowCount)
	if page.Stats != nil {
		s += fmt.Sprintf(" in %s", page.Stats.Elapsed.Round(time.Millisecond))
	}
	return s
}
