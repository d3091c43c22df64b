package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. The engine's own message is always shown next to the mapped
// one; the code tells support staff which class of failure it was.
//
// # Encoding Errors (ENC001-ENC099)
//
//	ENC001 - Value cannot be encoded: a value has no safe SQL literal form
//	         Action: Edit the value and try again
//
// # Planner Errors (PLN001-PLN099)
//
// Rejected before any statement reaches the engine:
//
//	PLN001 - No row selected (empty snapshot)
//	PLN002 - Nothing to change (empty changes)
//	PLN003 - Invalid row limit
//	PLN004 - Missing database or table name
//
// # Mutation Errors (MUT001-MUT099)
//
//	MUT001 - Row not found: the snapshot no longer matches any row
//	MUT002 - Ambiguous row: the snapshot matches several identical rows
//	MUT003 - Column mismatch: the table's columns changed since the read
//
// # Engine Errors (ENG001-ENG099)
//
// Matched case-insensitively against the engine's message:
//
//	ENG001 - Table does not exist      "unknown_table", "doesn't exist"
//	ENG002 - Unknown column            "unknown_identifier", "missing columns"
//	ENG003 - Key column not updatable  "cannot_update_column", "cannot update column"
//	ENG004 - Syntax error              "syntax error"
//	ENG005 - Permission denied         "access_denied", "not enough privileges", "readonly"
//	ENG006 - Engine unreachable        "connection refused", "connection reset", "broken pipe"
//	ENG007 - Engine timeout            "timeout"
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Export slots busy
//	EXP002 - Export interrupted after some rows were written
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled         "context canceled"
//	REQ002 - Request timed out         "context deadline exceeded"
//	REQ003 - Rate limited              "rate limit"
//	REQ004 - Drop not confirmed
//
// # Default Error (ERR000)
//
// Fallback when no specific type or pattern matches. Check application logs
// for the original technical error.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgEncoding = UserMessage{
		Message: "A value could not be encoded safely",
		Action:  "Edit the value and try again",
		Code:    "ENC001",
	}
	msgEmptySnapshot = UserMessage{
		Message: "No row was selected",
		Action:  "Select a row from the table first",
		Code:    "PLN001",
	}
	msgEmptyChanges = UserMessage{
		Message: "Nothing to change",
		Action:  "Edit at least one column before saving",
		Code:    "PLN002",
	}
	msgInvalidLimit = UserMessage{
		Message: "Row limit must be a positive whole number",
		Action:  "Choose a limit such as 100 or 1000",
		Code:    "PLN003",
	}
	msgInvalidIdentity = UserMessage{
		Message: "Database and table are required",
		Action:  "Open the table from the table list",
		Code:    "PLN004",
	}
	msgNotFound = UserMessage{
		Message: "The row no longer exists or has changed",
		Action:  "Reload the table and try again",
		Code:    "MUT001",
	}
	msgAmbiguous = UserMessage{
		Message: "This row matches several identical rows",
		Action:  "Confirm to change every matching row, or cancel",
		Code:    "MUT002",
	}
	msgColumns = UserMessage{
		Message: "The row's columns do not match the table",
		Action:  "Reload the table; its schema may have changed",
		Code:    "MUT003",
	}
	msgDropNotConfirmed = UserMessage{
		Message: "Drop was not confirmed",
		Action:  "Type the table name exactly to confirm",
		Code:    "REQ004",
	}
	msgExportBusy = UserMessage{
		Message: "Too many exports in progress",
		Action:  "Please wait a moment and try again",
		Code:    "EXP001",
	}
	msgExportInterrupted = UserMessage{
		Message: "Export stopped before completion",
		Action:  "The file is incomplete. Try again or lower the row limit",
		Code:    "EXP002",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps engine and transport messages (case-insensitive) to user
// messages. The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{"unknown_table", UserMessage{"Table does not exist", "It may have been dropped. Return to the table list", "ENG001"}},
	{"doesn't exist", UserMessage{"Table does not exist", "It may have been dropped. Return to the table list", "ENG001"}},
	{"unknown_identifier", UserMessage{"Unknown column", "Reload the table; its schema may have changed", "ENG002"}},
	{"missing columns", UserMessage{"Unknown column", "Reload the table; its schema may have changed", "ENG002"}},
	{"cannot_update_column", UserMessage{"This column cannot be updated", "Key and partition columns are read-only", "ENG003"}},
	{"cannot update column", UserMessage{"This column cannot be updated", "Key and partition columns are read-only", "ENG003"}},
	{"syntax error", UserMessage{"The engine rejected the statement", "Check the values for unsupported characters", "ENG004"}},
	{"access_denied", UserMessage{"Permission denied", "Ask an administrator for write access", "ENG005"}},
	{"not enough privileges", UserMessage{"Permission denied", "Ask an administrator for write access", "ENG005"}},
	{"readonly", UserMessage{"Permission denied", "The connection is read-only", "ENG005"}},
	{"connection refused", UserMessage{"Unable to connect to the database", "Please try again in a few moments", "ENG006"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "ENG006"}},
	{"broken pipe", UserMessage{"Database connection was interrupted", "Please try again", "ENG006"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "REQ001"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller limit or try again later", "REQ002"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller limit or try again later", "ENG007"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "REQ003"}},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed errors from this package are matched first, then the error text is
// searched for known engine patterns. Unmatched errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		encErr    *EncodingError
		limitErr  *InvalidLimitError
		idErr     *InvalidIdentityError
		ambiguous *AmbiguousMutationWarning
		exportErr *ExportError
	)
	switch {
	case errors.As(err, &encErr):
		return msgEncoding
	case errors.Is(err, ErrEmptySnapshot):
		return msgEmptySnapshot
	case errors.Is(err, ErrEmptyChanges):
		return msgEmptyChanges
	case errors.As(err, &limitErr):
		return msgInvalidLimit
	case errors.As(err, &idErr):
		return msgInvalidIdentity
	case errors.Is(err, ErrSnapshotNotFound):
		return msgNotFound
	case errors.As(err, &ambiguous):
		return msgAmbiguous
	case errors.Is(err, ErrUnknownColumn):
		return msgColumns
	case errors.Is(err, ErrDropNotConfirmed):
		return msgDropNotConfirmed
	case errors.Is(err, ErrExportBusy):
		return msgExportBusy
	case errors.As(err, &exportErr) && exportErr.Rows > 0:
		return msgExportInterrupted
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// EngineMessage returns the engine's own text for err, or "" when err did
// not come from the engine.
func EngineMessage(err error) string {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Message
	}
	return ""
}

// UserError pairs a technical error with its user-facing message.
// The original error is preserved for logging via Unwrap.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps a technical error to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
