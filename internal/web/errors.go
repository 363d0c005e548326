package web

// errors.go turns wizard errors into responses.
//
// Every error is logged with its technical detail and request ID, mapped
// through core.MapError, and rendered for the client that asked: an
// ErrorAlert fragment for HTMX, JSON for the API, plain text otherwise.

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/logging"
	"github.com/JonMunkholm/sheetimport/internal/web/templates"
)

// ErrorResponse is the JSON body of a failed API request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var badRequestMessage = core.UserMessage{
	Message: "The request could not be read",
	Action:  "Check the request body and try again",
	Code:    "REQ001",
}

// statusFor picks the HTTP status for a wizard error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrUnknownSchema):
		return http.StatusNotFound
	case errors.Is(err, core.ErrWrongStep),
		errors.Is(err, core.ErrSubmitInProgress),
		errors.Is(err, core.ErrNoPreviousStep),
		errors.Is(err, core.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrTooManySubmits):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrDestinationFailed), errors.Is(err, core.ErrNoSubmitter):
		return http.StatusBadGateway
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrTooManyRecords),
		errors.Is(err, core.ErrUnknownSheet),
		errors.Is(err, core.ErrHeaderOutOfRange),
		errors.Is(err, core.ErrUnknownColumn),
		errors.Is(err, core.ErrUnknownPrimaryKey),
		errors.Is(err, core.ErrModeUnavailable),
		errors.Is(err, core.ErrPrimaryKeysRequired),
		errors.Is(err, core.ErrInvalidRowsNeedConfirm),
		errors.Is(err, core.ErrUnmatchedRequiredFields),
		errors.Is(err, core.ErrCloseNeedsConfirm):
		return http.StatusUnprocessableEntity
	case core.IsUserFacing(err):
		// Driver errors recognised by text, e.g. duplicate keys.
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing version of it.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)
	if errors.Is(err, errBadRequest) {
		userMsg = badRequestMessage
	}

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, status)
	case wantsJSON(r):
		writeJSONStatus(w, status, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", status)
	}
}

// renderErrorPartial renders the alert into the page's error slot. HTMX
// does not swap error statuses by default, so the fragment is retargeted
// and sent with its status in a header.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("HX-Retarget", "#wizard-error")
	w.Header().Set("HX-Reswap", "innerHTML")
	w.Header().Set("X-Error-Status", http.StatusText(status))
	w.WriteHeader(http.StatusOK)

	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
