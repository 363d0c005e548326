package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/logging"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 32 << 20

// handleUpload reads the multipart "file" field and hands its sheets to
// the wizard.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	// Leave room for the multipart envelope; the reader enforces the
	// exact limit on the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.reader.MaxFileSize+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: limit is %d MB", core.ErrFileTooLarge, s.reader.MaxFileSize>>20))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: missing file field", errBadRequest))
		return
	}
	defer file.Close()

	sheets, handle, err := s.reader.Read(r.Context(), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := sess.Wizard.Upload(handle, sheets); err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "session_id", sess.ID).Info("file uploaded",
		"file", handle.Name,
		"size", handle.Size,
		"sheets", len(sheets),
	)
	s.respondStep(w, r, sess, outcome{})
}

func (s *Server) handleSelectSheet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req sheetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := sess.Wizard.SelectSheet(req.Sheet); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondStep(w, r, sess, outcome{})
}

func (s *Server) handleSelectHeader(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req headerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := sess.Wizard.SelectHeader(int(req.Row)); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondStep(w, r, sess, outcome{})
}

// handleColumns applies column matches in order and, when asked, moves on
// to validation. Unmatched required fields come back as a dialog until the
// request confirms.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req columnsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	var note *core.Notification
	for _, m := range req.edits() {
		if m.Ignored != nil {
			if err := sess.Wizard.IgnoreColumn(int(m.Column), bool(*m.Ignored)); err != nil {
				s.respondError(w, r, err)
				return
			}
			continue
		}
		n, err := sess.Wizard.MatchColumn(int(m.Column), m.Field)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if n != nil {
			note = n
		}
	}

	if !req.Next && !req.Confirm {
		s.respondStep(w, r, sess, outcome{notification: note})
		return
	}

	dialog, err := sess.Wizard.ConfirmColumns(r.Context(), bool(req.Confirm))
	if dialog != nil {
		s.respondStep(w, r, sess, outcome{dialog: dialog, err: err})
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondStep(w, r, sess, outcome{notification: note})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	all := sess.Wizard.Records(false)
	resp := recordsResponse{Records: all, RecordCount: len(all), Pending: sess.Wizard.Pending()}
	for _, rec := range all {
		if rec.HasErrors() {
			resp.InvalidCount++
		}
	}
	if r.URL.Query().Get("errorsOnly") == "true" {
		resp.Records = core.FilterErrors(all)
	}
	if resp.Records == nil {
		resp.Records = []core.Record{}
	}
	writeJSON(w, resp)
}

func (s *Server) handleEditRecords(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req editsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := sess.Wizard.EditRecords(r.Context(), req.recordEdits()); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondStep(w, r, sess, outcome{})
}

func (s *Server) handleDiscardRecords(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req discardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := sess.Wizard.DiscardRecords(r.Context(), req.Indices); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondStep(w, r, sess, outcome{})
}

// handleContinueValidation moves to the import mode step. Invalid rows
// need confirmation first.
func (s *Server) handleContinueValidation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	dialog, err := sess.Wizard.ContinueValidation(bool(req.Confirm))
	if dialog != nil {
		s.respondStep(w, r, sess, outcome{dialog: dialog, err: err})
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondStep(w, r, sess, outcome{})
}

func (s *Server) handleSelectMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req modeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	if req.Mode != "" {
		if err := sess.Wizard.SelectMode(req.Mode); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if keys, ok := req.keys(); ok {
		if err := sess.Wizard.SetPrimaryKeys(keys); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	s.respondStep(w, r, sess, outcome{})
}

// handleSubmit writes the valid records to the destination. A refused or
// failed submission keeps the session on the import mode step with a
// notification describing why.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	note, err := sess.Wizard.Submit(r.Context())
	if note != nil {
		s.respondStep(w, r, sess, outcome{notification: note, err: err})
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondStep(w, r, sess, outcome{})
}
