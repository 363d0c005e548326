package core

import "errors"

// Precondition failures. These block an action without changing state.
var (
	ErrPrimaryKeysRequired     = errors.New("primary keys required for this import mode")
	ErrModeUnavailable         = errors.New("import mode not available")
	ErrUnknownPrimaryKey       = errors.New("column is not a primary key candidate")
	ErrInvalidRowsNeedConfirm  = errors.New("invalid rows present, confirmation required")
	ErrUnmatchedRequiredFields = errors.New("required fields not matched, confirmation required")
	ErrCloseNeedsConfirm       = errors.New("closing discards the import, confirmation required")
)

// Session and step failures.
var (
	ErrSessionNotFound   = errors.New("import session not found")
	ErrSessionClosed     = errors.New("import session closed")
	ErrWrongStep         = errors.New("action not allowed at current step")
	ErrSubmitInProgress  = errors.New("submission already in progress")
	ErrNoPreviousStep    = errors.New("no previous step")
	ErrUnknownSchema     = errors.New("unknown schema")
	ErrTooManySubmits    = errors.New("too many concurrent submissions, please try again later")
	ErrNoSubmitter       = errors.New("no destination configured")
	ErrDestinationFailed = errors.New("destination rejected the import")
)

// File failures.
var (
	ErrEmptyFile        = errors.New("empty file")
	ErrUnsupportedFile  = errors.New("unsupported file type")
	ErrFileTooLarge     = errors.New("file too large")
	ErrTooManyRecords   = errors.New("too many records")
	ErrUnknownSheet     = errors.New("unknown sheet")
	ErrHeaderOutOfRange = errors.New("header row out of range")
	ErrUnknownColumn    = errors.New("unknown column")
)

// NotificationStatus mirrors toast severities.
type NotificationStatus string

const (
	StatusError   NotificationStatus = "error"
	StatusWarning NotificationStatus = "warning"
	StatusInfo    NotificationStatus = "info"
	StatusSuccess NotificationStatus = "success"
)

// Notification is a transient message for the user (a toast in a browser,
// a status line in the terminal).
type Notification struct {
	Status      NotificationStatus `json:"status"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
}

// Dialog asks the user to confirm an action before it proceeds.
type Dialog struct {
	Text  DialogText `json:"text"`
	Items []string   `json:"items,omitempty"`
}
