package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/logging"
	"github.com/JonMunkholm/sheetimport/internal/web/templates"
)

// session resolves the {sessionID} URL parameter, responding with an error
// when the session is unknown or expired.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*core.Session, bool) {
	sess, err := s.service.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	return sess, true
}

// handleDashboard renders the schema list.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.Page("Import data", templates.Dashboard(s.service.Schemas()))
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "error", err)
	}
}

// handleWizardPage renders the current step, as a full page or as the
// fragment HTMX polls for. errorsOnly toggles the validation filter.
func (s *Server) handleWizardPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if q := r.URL.Query().Get("errorsOnly"); q != "" {
		on, _ := strconv.ParseBool(q)
		sess.Wizard.SetErrorFilter(on)
	}

	v := buildView(sess)
	component := templates.WizardPage(v)
	if isHTMX(r) {
		component = templates.Step(v)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render wizard", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "sessions": s.service.Count()})
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Schemas())
}

// handleStartSession opens a session for {schema}. Browsers are redirected
// to the wizard page.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	sess, err := s.service.Start(req.Schema)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.WithFields(r.Context(), "session_id", sess.ID, "schema", sess.SchemaKey).Info("session started")

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/wizard/"+sess.ID)
		w.WriteHeader(http.StatusCreated)
		return
	}
	writeJSONStatus(w, http.StatusCreated, stepResponse{WizardView: buildView(sess)})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondStep(w, r, sess, outcome{})
}

// handleCloseSession closes the wizard and forgets the session. After an
// upload the client must confirm, as closing discards the data.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req confirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	// htmx sends DELETE parameters in the query string.
	if q := r.URL.Query().Get("confirm"); q != "" {
		req.Confirm, _ = parseFlexBool(q)
	}

	dialog, err := sess.Wizard.Close(bool(req.Confirm))
	if dialog != nil {
		s.respondStep(w, r, sess, outcome{dialog: dialog, err: err})
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.service.Remove(sess.ID)
	logging.WithFields(r.Context(), "session_id", sess.ID).Info("session closed")

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Wizard.Back(); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondStep(w, r, sess, outcome{})
}

func parseFlexBool(s string) (flexBool, error) {
	var b flexBool
	err := b.UnmarshalJSON([]byte(strconv.Quote(s)))
	return b, err
}
