package core

// error_messages.go maps technical errors to user-facing messages with a code that
// users can quote to support.
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid rows: Some rows still contain errors
//	         Action: Fix the highlighted cells or confirm to submit without them
//	VAL002 - Unmatched columns: Required columns are not matched
//	         Action: Match the listed columns or confirm to continue
//	VAL003 - Primary keys: No unique identifier selected
//	         Action: Select one or more primary key columns
//	VAL004 - Mode unavailable: This import mode is not enabled
//	         Action: Choose Append
//	VAL005 - Unknown column: Column is not part of this import
//	         Action: Pick a column from the list
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Unsupported file type (.csv and .xlsx are accepted)
//	FILE003 - Empty file
//	FILE004 - Too many records
//	FILE005 - Unreadable file (corrupt workbook, invalid CSV)
//	FILE006 - Unknown sheet or header row
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found or expired
//	SES002 - Action not allowed at this step
//	SES003 - Submission already in progress
//	SES004 - Session closed
//	SES005 - Unknown import schema
//	SES006 - Close needs confirmation
//
// # Submission Errors (SUB001-SUB099)
//
//	SUB001 - Destination rejected the import
//	SUB002 - Destination unavailable (connection refused/reset, timeout)
//	SUB003 - Too many concurrent submissions
//	SUB004 - Duplicate key in destination
//	SUB005 - No destination configured
//	SUB006 - Request cancelled
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original
// technical error.
//
// # Matching
//
// Sentinel errors are matched first with errors.Is, so wrapped errors keep
// their code. Otherwise patterns are matched case-insensitively with
// strings.Contains; the first match wins, so specific patterns come before
// general ones.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrInvalidRowsNeedConfirm, UserMessage{"Some rows still contain errors", "Fix the highlighted cells or confirm to submit without them", "VAL001"}},
	{ErrUnmatchedRequiredFields, UserMessage{"Required columns are not matched", "Match the listed columns or confirm to continue", "VAL002"}},
	{ErrPrimaryKeysRequired, UserMessage{"No unique identifier selected", "Select one or more primary key columns", "VAL003"}},
	{ErrModeUnavailable, UserMessage{"This import mode is not enabled", "Choose Append", "VAL004"}},
	{ErrUnknownPrimaryKey, UserMessage{"Column is not part of this import", "Pick a column from the list", "VAL005"}},
	{ErrUnknownColumn, UserMessage{"Column is not part of this import", "Pick a column from the list", "VAL005"}},

	{ErrFileTooLarge, UserMessage{"File exceeds maximum size limit", "Split the file into smaller chunks", "FILE001"}},
	{ErrUnsupportedFile, UserMessage{"Unsupported file type", "Upload a .csv or .xlsx file", "FILE002"}},
	{ErrEmptyFile, UserMessage{"The uploaded file is empty", "Upload a file with data rows", "FILE003"}},
	{ErrTooManyRecords, UserMessage{"Too many records", "Split the file into smaller chunks", "FILE004"}},
	{ErrUnknownSheet, UserMessage{"Sheet not found in workbook", "Select one of the listed sheets", "FILE006"}},
	{ErrHeaderOutOfRange, UserMessage{"Header row not found", "Select one of the listed rows", "FILE006"}},

	{ErrSessionNotFound, UserMessage{"Import session not found", "The session may have expired. Please start a new import", "SES001"}},
	{ErrWrongStep, UserMessage{"Action not allowed at this step", "Reload the wizard and try again", "SES002"}},
	{ErrNoPreviousStep, UserMessage{"Action not allowed at this step", "Reload the wizard and try again", "SES002"}},
	{ErrSubmitInProgress, UserMessage{"Submission already in progress", "Wait for the current submission to finish", "SES003"}},
	{ErrSessionClosed, UserMessage{"Import session closed", "Start a new import", "SES004"}},
	{ErrUnknownSchema, UserMessage{"Unknown import type", "Choose one of the configured imports", "SES005"}},
	{ErrCloseNeedsConfirm, UserMessage{"Closing discards this import", "Confirm to exit the import flow", "SES006"}},

	{ErrTooManySubmits, UserMessage{"Too many imports in progress", "Please wait a moment and try again", "SUB003"}},
	{ErrNoSubmitter, UserMessage{"No destination configured", "Contact your administrator", "SUB005"}},
	{ErrDestinationFailed, UserMessage{"The destination rejected the import", "Review the data and try again", "SUB001"}},

	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "SUB006"}},
	{context.DeadlineExceeded, UserMessage{"Request timed out", "Try a smaller file or try again later", "SUB002"}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that arrive as text from drivers and parsers.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists in the destination",
			Action:  "Use Append/Update mode or remove the duplicates",
			Code:    "SUB004",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "A record with this key already exists in the destination",
			Action:  "Use Append/Update mode or remove the duplicates",
			Code:    "SUB004",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the destination",
			Action:  "Please try again in a few moments",
			Code:    "SUB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Unable to reach the destination",
			Action:  "Please try again",
			Code:    "SUB002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "SUB002",
		},
	},
	{
		pattern: "zip: not a valid zip file",
		msg: UserMessage{
			Message: "The workbook could not be read",
			Action:  "Save the file again as .xlsx or .csv",
			Code:    "FILE005",
		},
	},
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "The CSV file could not be read",
			Action:  "Ensure the file is comma-separated with consistent quoting",
			Code:    "FILE005",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Sentinels are checked first, then text patterns, then the ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError keeps the technical error for logging next to the message
// shown to users.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err and wraps it. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
