package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Engine is the boundary to the OLAP database.
// Satisfied by the drivers in internal/engine and by test fakes.
type Engine interface {
	// Execute runs a read statement and buffers the full result.
	Execute(ctx context.Context, stmt string) (*QueryResult, error)
	// Exec runs a statement that returns no rows (ALTER, DROP).
	Exec(ctx context.Context, stmt string) error
	// Stream runs a read statement and returns a forward-only cursor.
	Stream(ctx context.Context, stmt string) (Rows, error)
	Ping(ctx context.Context) error
	Close() error
}

// Rows is a forward-only cursor over a streamed result.
// Callers must Close it, even after Next returns false.
type Rows interface {
	Columns() []ColumnMeta
	Next() bool
	Values() ([]any, error)
	Err() error
	Close() error
}

// TableIdentity names a table. It qualifies every statement the planner emits.
type TableIdentity struct {
	Database string `json:"database"`
	Table    string `json:"table"`
}

// Validate reports an InvalidIdentityError when either part is empty.
func (id TableIdentity) Validate() error {
	if id.Database == "" || id.Table == "" {
		return &InvalidIdentityError{Identity: id}
	}
	return nil
}

// Qualified returns the encoded database.table reference.
func (id TableIdentity) Qualified() (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	db, err := EncodeIdentifier(id.Database)
	if err != nil {
		return "", err
	}
	tbl, err := EncodeIdentifier(id.Table)
	if err != nil {
		return "", err
	}
	return db + "." + tbl, nil
}

func (id TableIdentity) String() string {
	return id.Database + "." + id.Table
}

// ColumnMeta describes one result column.
type ColumnMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Field is one column value within a row snapshot.
type Field struct {
	Column string
	Value  any
}

// RowSnapshot is a row exactly as returned by a read, in column order.
// It is treated as immutable once captured.
type RowSnapshot []Field

// Columns returns the column names in snapshot order.
func (r RowSnapshot) Columns() []string {
	cols := make([]string, len(r))
	for i, f := range r {
		cols[i] = f.Column
	}
	return cols
}

// Get returns the value for a column and whether it was present.
func (r RowSnapshot) Get(column string) (any, bool) {
	for _, f := range r {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the snapshot as an object, keeping column order.
func (r RowSnapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", f.Column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object into a snapshot, keeping key order.
// Numbers decode as json.Number so integers survive without float rounding.
func (r *RowSnapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row snapshot must be a JSON object")
	}

	var out RowSnapshot
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("row snapshot key must be a string")
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("column %s: %w", key, err)
		}
		out = append(out, Field{Column: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}

// ExecutionStats reports engine-side work for a read.
type ExecutionStats struct {
	Elapsed   time.Duration `json:"elapsed"`
	RowsRead  uint64        `json:"rowsRead"`
	BytesRead uint64        `json:"bytesRead"`
}

// QueryResult is a buffered read result.
type QueryResult struct {
	Rows     []RowSnapshot   `json:"rows"`
	Columns  []ColumnMeta    `json:"columns"`
	RowCount int             `json:"rowCount"`
	Stats    *ExecutionStats `json:"stats,omitempty"`
}

// ColumnNames returns the result's column names in order.
func (q *QueryResult) ColumnNames() []string {
	names := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		names[i] = c.Name
	}
	return names
}

// TableStats summarises the active parts of a table.
// It is recomputed on every request and never cached.
type TableStats struct {
	TotalRows        uint64 `json:"totalRows"`
	TotalBytes       uint64 `json:"totalBytes"`
	PartCount        uint64 `json:"partCount"`
	CompressedSize   string `json:"compressedSize"`
	UncompressedSize string `json:"uncompressedSize"`
}

// TableView is a page read together with the table's stats.
type TableView struct {
	Table TableIdentity `json:"table"`
	Page  *QueryResult  `json:"page"`
	Stats *TableStats   `json:"stats"`
}

// MutationKind identifies the statement a mutation runs.
type MutationKind string

const (
	MutationUpdate    MutationKind = "update"
	MutationDelete    MutationKind = "delete"
	MutationDropTable MutationKind = "drop_table"
)

// MutationRequest is a caller's request to change a table.
type MutationRequest struct {
	Kind     MutationKind
	Original RowSnapshot
	Changes  RowSnapshot
	Options  MutationOptions
}

// MutationOptions tunes a single mutation.
type MutationOptions struct {
	// AllowAmbiguous permits a mutation whose predicate matches more than one row.
	AllowAmbiguous bool
	// RefreshLimit is the page size of the post-mutation reread (0 = configured default).
	RefreshLimit int
}

// MutationState is a step of the coordinator's state machine.
type MutationState string

const (
	StateIdle       MutationState = "idle"
	StateExecuting  MutationState = "executing"
	StateSucceeded  MutationState = "succeeded"
	StateRefreshing MutationState = "refreshing"
	StateFailed     MutationState = "failed"
)

// MutationOutcome reports what a mutation did.
type MutationOutcome struct {
	OperationID string        `json:"operationId"`
	Kind        MutationKind  `json:"kind"`
	Table       TableIdentity `json:"table"`
	Statement   string        `json:"statement"`

	// Matched is the preflight match count, or -1 when no preflight ran.
	Matched int64                     `json:"matched"`
	Warning *AmbiguousMutationWarning `json:"warning,omitempty"`

	Trace        []MutationState `json:"trace"`
	NavigateAway bool            `json:"navigateAway,omitempty"`

	// View is the refreshed page and stats. Nil for drops and when the refresh failed.
	View         *TableView    `json:"view,omitempty"`
	RefreshError string        `json:"refreshError,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// ExportOptions tunes a single export.
type ExportOptions struct {
	// Compress wraps the CSV stream in an lz4 frame.
	Compress bool
	// Filename overrides the derived file name, typically with one the
	// caller already announced from Service.ExportFilename.
	Filename string
}

// ExportResult reports a completed export.
type ExportResult struct {
	OperationID string        `json:"operationId"`
	Table       TableIdentity `json:"table"`
	Filename    string        `json:"filename"`
	Rows        int           `json:"rows"`
	Bytes       int64         `json:"bytes"`
	Cap         int           `json:"cap"`
	Compressed  bool          `json:"compressed"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Truncated reports whether the export stopped at its row cap.
func (r *ExportResult) Truncated() bool {
	return r.Rows >= r.Cap
}

// TableInfo is one entry of the table listing.
type TableInfo struct {
	Database   string `json:"database"`
	Name       string `json:"name"`
	Engine     string `json:"engine"`
	TotalRows  uint64 `json:"totalRows"`
	TotalBytes uint64 `json:"totalBytes"`
}

// Identity returns the table's identity.
func (t TableInfo) Identity() TableIdentity {
	return TableIdentity{Database: t.Database, Table: t.Name}
}

// DatabaseStats aggregates the tables of one database.
type DatabaseStats struct {
	Database   string `json:"database"`
	TableCount uint64 `json:"tableCount"`
	TotalRows  uint64 `json:"totalRows"`
	TotalBytes uint64 `json:"totalBytes"`
}

// OverviewStats aggregates every non-system table.
type OverviewStats struct {
	TotalTables uint64          `json:"totalTables"`
	TotalRows   uint64          `json:"totalRows"`
	TotalBytes  uint64          `json:"totalBytes"`
	Databases   []DatabaseStats `json:"databases"`
}
