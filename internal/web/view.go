package web

import (
	"net/http"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/logging"
	"github.com/JonMunkholm/sheetimport/internal/web/templates"
)

// outcome is what an action produced besides the new wizard state. A
// blocked action carries the dialog or notification to show with its err.
type outcome struct {
	notification *core.Notification
	dialog       *core.Dialog
	err          error
}

// stepResponse is the JSON body of every step action.
type stepResponse struct {
	templates.WizardView
	Error *ErrorResponse `json:"error,omitempty"`
}

// recordsResponse is the JSON body of GET /records.
type recordsResponse struct {
	Records      []core.Record `json:"records"`
	RecordCount  int           `json:"recordCount"`
	InvalidCount int           `json:"invalidCount"`
	Pending      bool          `json:"pending"`
}

// buildView snapshots the session for rendering.
func buildView(sess *core.Session) templates.WizardView {
	wiz := sess.Wizard
	st := wiz.State()

	v := templates.WizardView{
		ID:        sess.ID,
		Schema:    wiz.Schema(),
		Step:      st.Type,
		StepIndex: core.StepTypeToIndex(st.Type),
		StepCount: core.StepCount(),
		Pending:   wiz.Pending(),
		CanGoBack: wiz.CanGoBack(),
		Closed:    wiz.Closed(),
		File:      st.File,
		Text:      wiz.Translations(),
	}

	switch st.Type {
	case core.StepSelectSheet:
		for _, sh := range st.Sheets {
			v.Sheets = append(v.Sheets, sh.Name)
		}
	case core.StepSelectHeader:
		v.Rows = st.Rows
		if len(v.Rows) > templates.PreviewRows {
			v.Rows = v.Rows[:templates.PreviewRows]
		}
		v.SuggestedHeader = st.SuggestedHeader
	case core.StepMatchColumns:
		v.Columns = st.Columns
	case core.StepValidateData, core.StepImportMode:
		all := wiz.Records(false)
		v.RecordCount = len(all)
		for _, rec := range all {
			if rec.HasErrors() {
				v.InvalidCount++
			}
		}
		if st.Type == core.StepValidateData {
			v.ErrorsOnly = wiz.ErrorFilter()
			v.Records = all
			if v.ErrorsOnly {
				v.Records = core.FilterErrors(all)
			}
			break
		}
		sel := wiz.Selector()
		v.Modes = sel.AvailableModes()
		v.Mode = sel.Mode()
		v.PrimaryKeys = sel.PrimaryKeys()
		v.PrimaryKeyCandidates = sel.PrimaryKeyCandidates()
	}
	return v
}

// respondStep writes the session's current step: the Step fragment for
// HTMX, JSON otherwise. A blocked outcome is reported with the step so the
// client can show its dialog or notification.
func (s *Server) respondStep(w http.ResponseWriter, r *http.Request, sess *core.Session, o outcome) {
	v := buildView(sess)
	v.Notification = o.notification
	v.Dialog = o.dialog
	if o.dialog != nil {
		v.DialogAction = r.URL.Path
		v.DialogMethod = r.Method
	}

	status := http.StatusOK
	var errResp *ErrorResponse
	if o.err != nil {
		status = statusFor(o.err)
		msg := core.MapError(o.err)
		errResp = &ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code}
		logging.WithFields(r.Context(), "session_id", sess.ID, "step", v.Step).
			Info("action blocked", "error", o.err, "code", msg.Code)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.Step(v).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render step", "error", err)
		}
		return
	}
	writeJSONStatus(w, status, stepResponse{WizardView: v, Error: errResp})
}
