package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/tablebrowser/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionRowUpdate AuditAction = "row_update"
	ActionRowDelete AuditAction = "row_delete"
	ActionTableDrop AuditAction = "table_drop"
	ActionExport    AuditAction = "export"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	OperationID string        `json:"operationId"`
	Action      AuditAction   `json:"action"`
	Severity    AuditSeverity `json:"severity"`
	Table       string        `json:"table"`
	IPAddress   string        `json:"ipAddress,omitempty"`
	UserAgent   string        `json:"userAgent,omitempty"`
	Statement   string        `json:"statement,omitempty"`
	Matched     int64         `json:"matched"`
	Rows        int           `json:"rows,omitempty"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
type AuditLogParams struct {
	OperationID string
	Action      AuditAction
	Table       TableIdentity
	Statement   string
	Matched     int64
	Rows        int
	Err         error
	Elapsed     time.Duration
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionRowDelete, ActionExport:
		return SeverityHigh
	case ActionTableDrop:
		return SeverityCritical
	case ActionRowUpdate:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// DefaultAuditCapacity is how many recent entries the in-memory trail keeps.
const DefaultAuditCapacity = 500

// auditTrail keeps the most recent entries in a fixed ring.
type auditTrail struct {
	mu      sync.RWMutex
	entries []AuditEntry
	next    int
	full    bool
}

func newAuditTrail(capacity int) *auditTrail {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &auditTrail{entries: make([]AuditEntry, capacity)}
}

func (a *auditTrail) add(e AuditEntry) {
	a.mu.Lock()
	a.entries[a.next] = e
	a.next = (a.next + 1) % len(a.entries)
	if a.next == 0 {
		a.full = true
	}
	a.mu.Unlock()
}

// recent returns up to limit entries, newest first.
func (a *auditTrail) recent(limit int) []AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	size := a.next
	if a.full {
		size = len(a.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]AuditEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (a.next - i + len(a.entries)) % len(a.entries)
		out = append(out, a.entries[idx])
	}
	return out
}

// LogAudit records a mutation, drop or export. Entries go to the structured
// log and to the in-memory trail returned by RecentAudit.
func (s *Service) LogAudit(ctx context.Context, params AuditLogParams) AuditEntry {
	entry := AuditEntry{
		OperationID: params.OperationID,
		Action:      params.Action,
		Severity:    determineSeverity(params.Action),
		Table:       params.Table.String(),
		IPAddress:   GetIPAddressFromContext(ctx),
		UserAgent:   GetUserAgentFromContext(ctx),
		Statement:   params.Statement,
		Matched:     params.Matched,
		Rows:        params.Rows,
		Success:     params.Err == nil,
		Elapsed:     params.Elapsed,
		CreatedAt:   time.Now().UTC(),
	}
	if params.Err != nil {
		entry.Error = params.Err.Error()
	}

	s.audit.add(entry)

	level := slog.LevelInfo
	if !entry.Success {
		level = slog.LevelWarn
	}
	logging.FromContext(ctx).Log(ctx, level, "audit",
		"operation_id", entry.OperationID,
		"action", entry.Action,
		"severity", entry.Severity,
		"table", entry.Table,
		"matched", entry.Matched,
		"rows", entry.Rows,
		"success", entry.Success,
		"error", entry.Error,
		"elapsed_ms", entry.Elapsed.Milliseconds(),
		"ip", entry.IPAddress,
		"user_agent", entry.UserAgent,
	)

	return entry
}

// RecentAudit returns up to limit audit entries, newest first.
func (s *Service) RecentAudit(limit int) []AuditEntry {
	return s.audit.recent(limit)
}
