package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Callers inspect them with errors.Is.
var (
	// ErrEmptySnapshot is returned when a predicate is requested for a row with no columns.
	ErrEmptySnapshot = errors.New("empty row snapshot: cannot build predicate")

	// ErrEmptyChanges is returned when an edit carries no column assignments.
	ErrEmptyChanges = errors.New("no changes: cannot build assignments")

	// ErrSnapshotNotFound is returned when the snapshot no longer matches any row.
	ErrSnapshotNotFound = errors.New("row snapshot matches no rows")

	// ErrUnknownColumn is returned when a snapshot or change names a column the table lacks,
	// or omits one it has.
	ErrUnknownColumn = errors.New("snapshot column mismatch")

	// ErrDropNotConfirmed is returned when a drop is requested without the
	// table name typed back as confirmation.
	ErrDropNotConfirmed = errors.New("drop not confirmed: type the table name to confirm")

	// ErrExportBusy is returned when every export slot is taken and the wait expires.
	ErrExportBusy = errors.New("too many concurrent exports, please try again later")
)

// EncodingError reports a value or identifier that cannot be rendered as SQL.
type EncodingError struct {
	Column string
	Value  any
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("encoding error: column %s: %s (%T)", e.Column, e.Reason, e.Value)
	}
	return fmt.Sprintf("encoding error: %s (%T)", e.Reason, e.Value)
}

// InvalidLimitError reports a non-positive or unparsable row limit.
type InvalidLimitError struct {
	Limit int
	Input string
}

func (e *InvalidLimitError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("invalid limit %q: must be a positive integer", e.Input)
	}
	return fmt.Sprintf("invalid limit %d: must be a positive integer", e.Limit)
}

// InvalidIdentityError reports an empty database or table name.
type InvalidIdentityError struct {
	Identity TableIdentity
}

func (e *InvalidIdentityError) Error() string {
	return fmt.Sprintf("invalid table identity %q: database and table are required", e.Identity.String())
}

// EngineError carries the engine's own message verbatim.
type EngineError struct {
	Statement string
	Message   string
	Err       error
}

func (e *EngineError) Error() string {
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError wraps a driver error, keeping its text unchanged.
func NewEngineError(stmt string, err error) *EngineError {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee
	}
	return &EngineError{Statement: stmt, Message: err.Error(), Err: err}
}

// ExportError reports a failure after some rows may already have been written.
type ExportError struct {
	Rows int
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export failed after %d rows: %v", e.Rows, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// AmbiguousMutationWarning reports that a row snapshot matches several
// physical rows. Returned as an error when the mutation was refused, and
// attached to the outcome when the caller allowed it.
type AmbiguousMutationWarning struct {
	Matched int64 `json:"matched"`
}

func (w *AmbiguousMutationWarning) Error() string {
	return fmt.Sprintf("ambiguous mutation: row snapshot matches %d rows", w.Matched)
}

// IsPlannerError reports whether err was raised before reaching the engine
// because the input was malformed.
func IsPlannerError(err error) bool {
	var (
		encErr   *EncodingError
		limitErr *InvalidLimitError
		idErr    *InvalidIdentityError
	)
	return errors.As(err, &encErr) ||
		errors.As(err, &limitErr) ||
		errors.As(err, &idErr) ||
		errors.Is(err, ErrEmptySnapshot) ||
		errors.Is(err, ErrEmptyChanges) ||
		errors.Is(err, ErrUnknownColumn)
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
