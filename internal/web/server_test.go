package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/sheetimport/internal/config"
	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/logging"
	"github.com/JonMunkholm/sheetimport/internal/sheet"
)

const peopleCSV = "ID,Name\n1,Ann\n2,\n3,Cid\n"

type captureSubmitter struct {
	mu       sync.Mutex
	payloads []core.Payload
	err      error
}

func (c *captureSubmitter) Submit(ctx context.Context, p core.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.payloads = append(c.payloads, p)
	return nil
}

func testSchema() core.Schema {
	return core.Schema{
		Key:   "people",
		Label: "People",
		Table: "people",
		Fields: []core.Field{
			{Key: "id", Label: "ID", IsPrimaryKey: true, Validations: []core.Validation{
				{Rule: core.RuleRequired},
				{Rule: core.RuleUnique},
			}},
			{Key: "name", Label: "Name", Validations: []core.Validation{{Rule: core.RuleRequired}}},
		},
	}
}

type testServerOptions struct {
	submitter   core.Submitter
	maxFileSize int64
	updateModes bool
	security    config.SecurityConfig
}

func newTestServer(t *testing.T, opts testServerOptions) *Server {
	t.Helper()
	reg := core.NewRegistry()
	reg.MustRegister(testSchema(), core.Hooks{})

	if opts.submitter == nil {
		opts.submitter = &captureSubmitter{}
	}
	svc := core.NewService(reg, opts.submitter, core.ServiceOptions{
		Translations:    core.DefaultTranslations(),
		UpdateModes:     opts.updateModes,
		MaxRecords:      100,
		AutoMapDistance: core.DefaultAutoMapDistance,
		Logger:          logging.Discard(),
	})

	cfg := &config.Config{Security: opts.security}
	cfg.Security.EnableCSP = true

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewServer(ctx, svc, sheet.NewReader(opts.maxFileSize), cfg)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadFile(t *testing.T, h http.Handler, id, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	part.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeStep(t *testing.T, rec *httptest.ResponseRecorder) stepResponse {
	t.Helper()
	var resp stepResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v (status %d)", err, rec.Code)
	}
	return resp
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

// startSession opens a people session and returns its id.
func startSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/sessions", map[string]string{"schema": "people"})
	expectStatus(t, rec, http.StatusCreated)
	return decodeStep(t, rec).ID
}

// toValidation walks a session from upload to the validation step.
func toValidation(t *testing.T, h http.Handler, csv string) string {
	t.Helper()
	id := startSession(t, h)
	expectStatus(t, uploadFile(t, h, id, "people.csv", csv), http.StatusOK)
	expectStatus(t, doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/header", map[string]int{"row": 0}), http.StatusOK)
	expectStatus(t, doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/columns", map[string]any{"next": true}), http.StatusOK)
	return id
}

func TestWizardFlow(t *testing.T) {
	sub := &captureSubmitter{}
	srv := newTestServer(t, testServerOptions{submitter: sub})
	h := srv.Router()
	id := startSession(t, h)
	base := "/api/sessions/" + id

	rec := uploadFile(t, h, id, "people.csv", peopleCSV)
	expectStatus(t, rec, http.StatusOK)
	resp := decodeStep(t, rec)
	if resp.Step != core.StepSelectHeader {
		t.Fatalf("step after upload = %q, want %q", resp.Step, core.StepSelectHeader)
	}
	if resp.SuggestedHeader != 0 {
		t.Errorf("SuggestedHeader = %d, want 0", resp.SuggestedHeader)
	}
	if resp.File.Name != "people.csv" {
		t.Errorf("File.Name = %q, want people.csv", resp.File.Name)
	}

	rec = doJSON(t, h, http.MethodPost, base+"/header", map[string]int{"row": 0})
	expectStatus(t, rec, http.StatusOK)
	resp = decodeStep(t, rec)
	if resp.Step != core.StepMatchColumns {
		t.Fatalf("step after header = %q, want %q", resp.Step, core.StepMatchColumns)
	}
	for i, want := range []string{"id", "name"} {
		if got := resp.Columns[i].Field; got != want {
			t.Errorf("Columns[%d].Field = %q, want %q", i, got, want)
		}
	}

	rec = doJSON(t, h, http.MethodPost, base+"/columns", map[string]any{"next": true})
	expectStatus(t, rec, http.StatusOK)
	resp = decodeStep(t, rec)
	if resp.Step != core.StepValidateData {
		t.Fatalf("step after columns = %q, want %q", resp.Step, core.StepValidateData)
	}
	if resp.RecordCount != 3 || resp.InvalidCount != 1 {
		t.Fatalf("counts = %d/%d, want 3/1", resp.RecordCount, resp.InvalidCount)
	}

	var broken string
	for _, r := range resp.Records {
		if r.Data.String("name") == "" {
			broken = r.Index
		}
	}
	rec = doJSON(t, h, http.MethodPost, base+"/records", map[string]any{
		"edits": []core.RecordEdit{{Index: broken, Values: core.Values{"name": "Bob"}}},
	})
	expectStatus(t, rec, http.StatusOK)
	if resp = decodeStep(t, rec); resp.InvalidCount != 0 {
		t.Fatalf("InvalidCount after edit = %d, want 0", resp.InvalidCount)
	}

	rec = doJSON(t, h, http.MethodPost, base+"/validate/continue", nil)
	expectStatus(t, rec, http.StatusOK)
	resp = decodeStep(t, rec)
	if resp.Step != core.StepImportMode {
		t.Fatalf("step after validation = %q, want %q", resp.Step, core.StepImportMode)
	}
	if len(resp.Modes) != 1 || resp.Modes[0] != core.ModeAppend {
		t.Errorf("Modes = %v, want [append]", resp.Modes)
	}

	rec = doJSON(t, h, http.MethodPost, base+"/submit", nil)
	expectStatus(t, rec, http.StatusOK)
	if resp = decodeStep(t, rec); !resp.Closed {
		t.Errorf("Closed = false after submit, want true")
	}

	if len(sub.payloads) != 1 {
		t.Fatalf("submitted %d payloads, want 1", len(sub.payloads))
	}
	p := sub.payloads[0]
	if len(p.Data.ValidData) != 3 || len(p.Data.InvalidData) != 0 {
		t.Errorf("partition = %d valid/%d invalid, want 3/0", len(p.Data.ValidData), len(p.Data.InvalidData))
	}
	if p.ImportMode != core.ModeAppend {
		t.Errorf("ImportMode = %q, want append", p.ImportMode)
	}
}

func TestContinueValidation_NeedsConfirm(t *testing.T) {
	h := newTestServer(t, testServerOptions{}).Router()
	id := toValidation(t, h, peopleCSV)
	path := "/api/sessions/" + id + "/validate/continue"

	rec := doJSON(t, h, http.MethodPost, path, nil)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	resp := decodeStep(t, rec)
	if resp.Dialog == nil {
		t.Fatal("Dialog = nil, want submit incomplete dialog")
	}
	if resp.DialogAction != path {
		t.Errorf("DialogAction = %q, want %q", resp.DialogAction, path)
	}
	if resp.Error == nil || resp.Error.Code != "VAL001" {
		t.Errorf("Error = %+v, want code VAL001", resp.Error)
	}
	if resp.Step != core.StepValidateData {
		t.Errorf("Step = %q, want %q", resp.Step, core.StepValidateData)
	}

	rec = doJSON(t, h, http.MethodPost, path, map[string]bool{"confirm": true})
	expectStatus(t, rec, http.StatusOK)
	if resp = decodeStep(t, rec); resp.Step != core.StepImportMode {
		t.Errorf("Step after confirm = %q, want %q", resp.Step, core.StepImportMode)
	}
}

func TestColumns_UnmatchedRequiredField(t *testing.T) {
	h := newTestServer(t, testServerOptions{}).Router()
	id := startSession(t, h)
	base := "/api/sessions/" + id

	expectStatus(t, uploadFile(t, h, id, "people.csv", "ID,Remarks\n1,x\n"), http.StatusOK)
	expectStatus(t, doJSON(t, h, http.MethodPost, base+"/header", map[string]int{"row": 0}), http.StatusOK)

	rec := doJSON(t, h, http.MethodPost, base+"/columns", map[string]any{"next": true})
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	resp := decodeStep(t, rec)
	if resp.Dialog == nil || len(resp.Dialog.Items) != 1 || resp.Dialog.Items[0] != "Name" {
		t.Fatalf("Dialog = %+v, want items [Name]", resp.Dialog)
	}

	// Matching the column in the same request clears the block.
	rec = doJSON(t, h, http.MethodPost, base+"/columns", map[string]any{
		"matches": []map[string]any{{"column": 1, "field": "name"}},
		"next":    true,
	})
	expectStatus(t, rec, http.StatusOK)
	if resp = decodeStep(t, rec); resp.Step != core.StepValidateData {
		t.Errorf("Step = %q, want %q", resp.Step, core.StepValidateData)
	}
}

func TestColumns_DuplicateMatchWarns(t *testing.T) {
	h := newTestServer(t, testServerOptions{}).Router()
	id := startSession(t, h)
	base := "/api/sessions/" + id

	expectStatus(t, uploadFile(t, h, id, "people.csv", peopleCSV), http.StatusOK)
	expectStatus(t, doJSON(t, h, http.MethodPost, base+"/header", map[string]int{"row": 0}), http.StatusOK)

	// Strings, as the HTMX json-enc extension sends them.
	rec := doJSON(t, h, http.MethodPost, base+"/columns", map[string]string{"column": "1", "field": "id"})
	expectStatus(t, rec, http.StatusOK)
	resp := decodeStep(t, rec)
	if resp.Notification == nil || resp.Notification.Status != core.StatusWarning {
		t.Fatalf("Notification = %+v, want duplicate column warning", resp.Notification)
	}
	if resp.Columns[0].Field != "" || resp.Columns[1].Field != "id" {
		t.Errorf("Columns = %+v, want id moved to column 1", resp.Columns)
	}
}

func TestDiscardRecords(t *testing.T) {
	h := newTestServer(t, testServerOptions{}).Router()
	id := toValidation(t, h, peopleCSV)
	base := "/api/sessions/" + id

	rec := doJSON(t, h, http.MethodGet, base+"/records?errorsOnly=true", nil)
	expectStatus(t, rec, http.StatusOK)
	var list recordsResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(list.Records) != 1 || list.RecordCount != 3 {
		t.Fatalf("records = %d of %d, want 1 of 3", len(list.Records), list.RecordCount)
	}

	// A single index arrives as a string from the page.
	rec = doJSON(t, h, http.MethodPost, base+"/records/discard", map[string]string{"indices": list.Records[0].Index})
	expectStatus(t, rec, http.StatusOK)
	resp := decodeStep(t, rec)
	if resp.RecordCount != 2 || resp.InvalidCount != 0 {
		t.Errorf("counts = %d/%d, want 2/0", resp.RecordCount, resp.InvalidCount)
	}
}

func TestEditRecords_UnknownField(t *testing.T) {
	h := newTestServer(t, testServerOptions{}).Router()
	id := toValidation(t, h, peopleCSV)
	base := "/api/sessions/" + id

	rec := doJSON(t, h, http.MethodGet, base+"/records", nil)
	expectStatus(t, rec, http.StatusOK)
	var list recordsResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode records: %v", err)
	}

	rec = doJSON(t, h, http.MethodPost, base+"/records", map[string]string{
		"index": list.Records[0].Index,
		"field": "bogus",
		"value": "x",
	})
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	var e ErrorResponse
	json.NewDecoder(rec.Body).Decode(&e)
	if e.Code != "VAL005" {
		t.Errorf("code = %q, want VAL005", e.Code)
	}

	rec = doJSON(t, h, http.MethodGet, base+"/records", nil)
	expectStatus(t, rec, http.StatusOK)
	list = recordsResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if _, ok := list.Records[0].Data["bogus"]; ok {
		t.Errorf("data = %+v, unknown field stored", list.Records[0].Data)
	}
}

func TestSelectMode(t *testing.T) {
	tests := []struct {
		name        string
		updateModes bool
		body        map[string]any
		wantStatus  int
		wantCode    string
	}{
		{"append", false, map[string]any{"mode": "append"}, http.StatusOK, ""},
		{"update disabled", false, map[string]any{"mode": "update"}, http.StatusUnprocessableEntity, "VAL004"},
		{"update with keys", true, map[string]any{"mode": "update", "primaryKeys": []string{"id"}}, http.StatusOK, ""},
		{"unknown key", true, map[string]any{"mode": "update", "primaryKeys": "name"}, http.StatusUnprocessableEntity, "VAL005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, testServerOptions{updateModes: tt.updateModes}).Router()
			id := toValidation(t, h, "ID,Name\n1,Ann\n")
			base := "/api/sessions/" + id
			expectStatus(t, doJSON(t, h, http.MethodPost, base+"/validate/continue", nil), http.StatusOK)

			rec := doJSON(t, h, http.MethodPost, base+"/mode", tt.body)
			expectStatus(t, rec, tt.wantStatus)
			if tt.wantCode == "" {
				return
			}
			var e ErrorResponse
			json.NewDecoder(rec.Body).Decode(&e)
			if e.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", e.Code, tt.wantCode)
			}
		})
	}
}

func TestSubmit_UpdateWithoutKeys(t *testing.T) {
	sub := &captureSubmitter{}
	h := newTestServer(t, testServerOptions{submitter: sub, updateModes: true}).Router()
	id := toValidation(t, h, "ID,Name\n1,Ann\n")
	base := "/api/sessions/" + id
	expectStatus(t, doJSON(t, h, http.MethodPost, base+"/validate/continue", nil), http.StatusOK)
	expectStatus(t, doJSON(t, h, http.MethodPost, base+"/mode", map[string]string{"mode": "update"}), http.StatusOK)

	rec := doJSON(t, h, http.MethodPost, base+"/submit", nil)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	resp := decodeStep(t, rec)
	if resp.Notification == nil {
		t.Fatal("Notification = nil, want primary keys notice")
	}
	if len(sub.payloads) != 0 {
		t.Errorf("submitted %d payloads, want 0", len(sub.payloads))
	}
}

func TestSubmit_DestinationFailure(t *testing.T) {
	sub := &captureSubmitter{err: fmt.Errorf("%w: constraint", core.ErrDestinationFailed)}
	h := newTestServer(t, testServerOptions{submitter: sub}).Router()
	id := toValidation(t, h, "ID,Name\n1,Ann\n")
	base := "/api/sessions/" + id
	expectStatus(t, doJSON(t, h, http.MethodPost, base+"/validate/continue", nil), http.StatusOK)

	rec := doJSON(t, h, http.MethodPost, base+"/submit", nil)
	expectStatus(t, rec, http.StatusBadGateway)
	resp := decodeStep(t, rec)
	if resp.Notification == nil || resp.Notification.Status != core.StatusError {
		t.Errorf("Notification = %+v, want error", resp.Notification)
	}
	if resp.Closed || resp.Step != core.StepImportMode {
		t.Errorf("Closed = %v, Step = %q; want open at importMode", resp.Closed, resp.Step)
	}
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		content    string
		wantStatus int
		wantCode   string
	}{
		{"legacy excel", "people.xls", "x", http.StatusUnsupportedMediaType, "FILE002"},
		{"unknown type", "people.pdf", "x", http.StatusUnsupportedMediaType, "FILE002"},
		{"empty", "people.csv", "\n\n", http.StatusUnprocessableEntity, "FILE003"},
		{"too large", "people.csv", strings.Repeat("a,b\n", 100), http.StatusRequestEntityTooLarge, "FILE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, testServerOptions{maxFileSize: 64}).Router()
			id := startSession(t, h)

			rec := uploadFile(t, h, id, tt.file, tt.content)
			expectStatus(t, rec, tt.wantStatus)
			var e ErrorResponse
			json.NewDecoder(rec.Body).Decode(&e)
			if e.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", e.Code, tt.wantCode)
			}
		})
	}
}

func TestCloseSession(t *testing.T) {
	h := newTestServer(t, testServerOptions{}).Router()
	id := startSession(t, h)
	path := "/api/sessions/" + id
	expectStatus(t, uploadFile(t, h, id, "people.csv", peopleCSV), http.StatusOK)

	rec := doJSON(t, h, http.MethodDelete, path, nil)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if resp := decodeStep(t, rec); resp.Dialog == nil || resp.DialogMethod != http.MethodDelete {
		t.Fatalf("Dialog = %+v, DialogMethod = %q; want close confirmation", resp.Dialog, resp.DialogMethod)
	}

	rec = doJSON(t, h, http.MethodDelete, path+"?confirm=true", nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = doJSON(t, h, http.MethodGet, path, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestBack(t *testing.T) {
	h := newTestServer(t, testServerOptions{}).Router()
	id := startSession(t, h)
	base := "/api/sessions/" + id

	rec := doJSON(t, h, http.MethodPost, base+"/back", nil)
	expectStatus(t, rec, http.StatusConflict)

	expectStatus(t, uploadFile(t, h, id, "people.csv", peopleCSV), http.StatusOK)
	rec = doJSON(t, h, http.MethodPost, base+"/back", nil)
	expectStatus(t, rec, http.StatusOK)
	if resp := decodeStep(t, rec); resp.Step != core.StepUpload {
		t.Errorf("Step = %q, want %q", resp.Step, core.StepUpload)
	}
}

func TestSessionErrors(t *testing.T) {
	h := newTestServer(t, testServerOptions{}).Router()

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"unknown session", http.MethodGet, "/api/sessions/nope", nil, http.StatusNotFound, "SES001"},
		{"unknown schema", http.MethodPost, "/api/sessions", map[string]string{"schema": "nope"}, http.StatusNotFound, "SES005"},
		{"bad body", http.MethodPost, "/api/sessions", []int{1}, http.StatusBadRequest, "REQ001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, tt.method, tt.path, tt.body)
			expectStatus(t, rec, tt.wantStatus)
			var e ErrorResponse
			json.NewDecoder(rec.Body).Decode(&e)
			if e.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", e.Code, tt.wantCode)
			}
		})
	}
}

func TestWrongStep(t *testing.T) {
	h := newTestServer(t, testServerOptions{}).Router()
	id := startSession(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/header", map[string]int{"row": 0})
	expectStatus(t, rec, http.StatusConflict)
}

func TestHTMX(t *testing.T) {
	h := newTestServer(t, testServerOptions{}).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"schema":"people"}`))
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusCreated)
	redirect := rec.Header().Get("HX-Redirect")
	if !strings.HasPrefix(redirect, "/wizard/") {
		t.Fatalf("HX-Redirect = %q, want /wizard/{id}", redirect)
	}

	page := httptest.NewRecorder()
	h.ServeHTTP(page, httptest.NewRequest(http.MethodGet, redirect, nil))
	expectStatus(t, page, http.StatusOK)
	body := page.Body.String()
	for _, want := range []string{"<!doctype html>", `id="wizard"`, "Upload file", `name="file"`} {
		if !strings.Contains(body, want) {
			t.Errorf("wizard page missing %q", want)
		}
	}

	// Errors are swapped into the alert slot with a 200.
	req = httptest.NewRequest(http.MethodPost, "/api/sessions/"+strings.TrimPrefix(redirect, "/wizard/")+"/sheet", strings.NewReader(`{"sheet":"x"}`))
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("HX-Retarget"); got != "#wizard-error" {
		t.Errorf("HX-Retarget = %q, want #wizard-error", got)
	}
	if !strings.Contains(rec.Body.String(), "SES002") {
		t.Errorf("alert body = %q, want code SES002", rec.Body.String())
	}
}

func TestDashboard(t *testing.T) {
	h := newTestServer(t, testServerOptions{}).Router()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	expectStatus(t, rec, http.StatusOK)

	if !strings.Contains(rec.Body.String(), "People") {
		t.Error("dashboard does not list the People schema")
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "unpkg.com") {
		t.Errorf("Content-Security-Policy = %q, want unpkg.com allowed", csp)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	h := newTestServer(t, testServerOptions{security: config.SecurityConfig{
		RequireAPIKey: true,
		APIKeys:       []string{"secret"},
	}}).Router()

	rec := doJSON(t, h, http.MethodGet, "/api/schemas", nil)
	expectStatus(t, rec, http.StatusUnauthorized)

	req := httptest.NewRequest(http.MethodGet, "/api/schemas", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: at upload", core.ErrWrongStep), http.StatusConflict},
		{core.ErrSubmitInProgress, http.StatusConflict},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{core.ErrUnsupportedFile, http.StatusUnsupportedMediaType},
		{core.ErrTooManyRecords, http.StatusUnprocessableEntity},
		{core.ErrInvalidRowsNeedConfirm, http.StatusUnprocessableEntity},
		{core.ErrTooManySubmits, http.StatusServiceUnavailable},
		{core.ErrDestinationFailed, http.StatusBadGateway},
		{fmt.Errorf("duplicate key value (id)"), http.StatusBadGateway},
		{errBadRequest, http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("allow() = false within rate")
	}
	if rl.allow("a") {
		t.Error("allow() = true past rate, want false")
	}
	if !rl.allow("b") {
		t.Error("allow() = false for a different client")
	}
}

func TestFlexTypes(t *testing.T) {
	var req struct {
		Row     flexInt     `json:"row"`
		Confirm flexBool    `json:"confirm"`
		Indices flexStrings `json:"indices"`
	}
	if err := json.Unmarshal([]byte(`{"row":"3","confirm":"on","indices":"a"}`), &req); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if req.Row != 3 || !req.Confirm || len(req.Indices) != 1 || req.Indices[0] != "a" {
		t.Errorf("decoded = %+v", req)
	}

	if err := json.Unmarshal([]byte(`{"row":4,"confirm":true,"indices":["a","b"]}`), &req); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if req.Row != 4 || !req.Confirm || len(req.Indices) != 2 {
		t.Errorf("decoded = %+v", req)
	}
}
