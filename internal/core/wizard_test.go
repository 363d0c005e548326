package core

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func wizardSchema() Schema {
	return Schema{
		Key:   "people",
		Label: "People",
		Table: "people",
		Fields: []Field{
			{Key: "id", Label: "ID", IsPrimaryKey: true, Validations: []Validation{
				{Rule: RuleRequired},
				{Rule: RuleUnique},
			}},
			{Key: "name", Label: "Name", Validations: []Validation{{Rule: RuleRequired}}},
		},
	}
}

func peopleSheet() Sheet {
	return Sheet{Name: "Sheet1", Rows: [][]string{
		{"ID", "Name"},
		{"1", "Ann"},
		{"2", ""},
		{"3", "Cid"},
	}}
}

func newTestWizard(t *testing.T, opts WizardOptions) *Wizard {
	t.Helper()
	if opts.Schema.Key == "" {
		opts.Schema = wizardSchema()
	}
	if opts.AutoMapDistance == 0 {
		opts.AutoMapDistance = DefaultAutoMapDistance
	}
	opts.Translations = DefaultTranslations()
	w, err := NewWizard(opts)
	if err != nil {
		t.Fatalf("NewWizard() error = %v", err)
	}
	return w
}

// toValidation walks a wizard from upload to the validation step.
func toValidation(t *testing.T, w *Wizard) {
	t.Helper()
	if err := w.Upload(FileHandle{Name: "people.csv"}, []Sheet{peopleSheet()}); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if err := w.SelectHeader(w.State().SuggestedHeader); err != nil {
		t.Fatalf("SelectHeader() error = %v", err)
	}
	if _, err := w.ConfirmColumns(context.Background(), false); err != nil {
		t.Fatalf("ConfirmColumns() error = %v", err)
	}
}

func findByName(records []Record, name string) Record {
	for _, r := range records {
		if r.Data.String("name") == name {
			return r
		}
	}
	return Record{}
}

func TestWizard_HappyPath(t *testing.T) {
	sub := &recordingSubmitter{}
	closed := 0
	w := newTestWizard(t, WizardOptions{Submitter: sub, OnClose: func() { closed++ }})

	toValidation(t, w)
	if w.Step() != StepValidateData {
		t.Fatalf("step = %q, want validateData", w.Step())
	}

	records := w.Records(false)
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if got := w.Records(true); len(got) != 1 {
		t.Errorf("Records(errorsOnly) = %d, want 1", len(got))
	}

	dialog, err := w.ContinueValidation(false)
	if !errors.Is(err, ErrInvalidRowsNeedConfirm) || dialog == nil {
		t.Fatalf("ContinueValidation(false) = %+v, %v", dialog, err)
	}
	if dialog.Text.HeaderTitle != "Errors detected" {
		t.Errorf("dialog title = %q", dialog.Text.HeaderTitle)
	}

	// Fix the invalid record.
	bad := w.Records(true)[0]
	if err := w.EditRecords(context.Background(), []RecordEdit{{Index: bad.Index, Values: Values{"name": "Bo"}}}); err != nil {
		t.Fatalf("EditRecords() error = %v", err)
	}
	if got := w.Records(true); len(got) != 0 {
		t.Fatalf("records with errors after fix = %d, want 0", len(got))
	}

	if _, err := w.ContinueValidation(false); err != nil {
		t.Fatalf("ContinueValidation() error = %v", err)
	}
	if w.Step() != StepImportMode {
		t.Fatalf("step = %q, want importMode", w.Step())
	}

	if _, err := w.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.calls != 1 || len(sub.payloads[0].Data.ValidData) != 3 {
		t.Errorf("submitter calls = %d, payload = %+v", sub.calls, sub.payloads)
	}
	if sub.payloads[0].File.Name != "people.csv" {
		t.Errorf("file = %+v, want people.csv passed through", sub.payloads[0].File)
	}
	if !w.Closed() || closed != 1 {
		t.Errorf("closed = %v, OnClose ran %d times", w.Closed(), closed)
	}
	if err := w.Back(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Back() after close error = %v, want ErrSessionClosed", err)
	}
}

func TestWizard_SelectSheet(t *testing.T) {
	w := newTestWizard(t, WizardOptions{})
	sheets := []Sheet{peopleSheet(), {Name: "Other", Rows: [][]string{{"ID"}, {"9"}}}, {Name: "Blank"}}

	if err := w.Upload(FileHandle{}, sheets); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if w.Step() != StepSelectSheet {
		t.Fatalf("step = %q, want selectSheet", w.Step())
	}
	if got := len(w.State().Sheets); got != 2 {
		t.Errorf("offered %d sheets, want 2 (blank dropped)", got)
	}
	if StepTypeToIndex(w.Step()) != 0 {
		t.Error("selectSheet should share the upload position")
	}

	if err := w.SelectSheet("Missing"); !errors.Is(err, ErrUnknownSheet) {
		t.Errorf("SelectSheet(Missing) error = %v", err)
	}
	if err := w.SelectSheet("Other"); err != nil {
		t.Fatalf("SelectSheet() error = %v", err)
	}
	if w.Step() != StepSelectHeader {
		t.Errorf("step = %q, want selectHeader", w.Step())
	}
}

func TestWizard_UploadErrors(t *testing.T) {
	w := newTestWizard(t, WizardOptions{MaxRecords: 2})

	if err := w.Upload(FileHandle{}, []Sheet{{Name: "x", Rows: [][]string{{"", ""}}}}); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("Upload(empty) error = %v, want ErrEmptyFile", err)
	}

	err := w.Upload(FileHandle{}, []Sheet{peopleSheet()})
	if !errors.Is(err, ErrTooManyRecords) {
		t.Fatalf("Upload(3 rows, max 2) error = %v, want ErrTooManyRecords", err)
	}
	if want := "Too many records. Up to 2 allowed"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want it to contain %q", err, want)
	}
	if w.Step() != StepUpload {
		t.Errorf("step = %q, want upload", w.Step())
	}
}

func TestWizard_WrongStep(t *testing.T) {
	w := newTestWizard(t, WizardOptions{})

	if err := w.SelectHeader(0); !errors.Is(err, ErrWrongStep) {
		t.Errorf("SelectHeader at upload error = %v, want ErrWrongStep", err)
	}
	if _, err := w.Submit(context.Background()); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Submit at upload error = %v, want ErrWrongStep", err)
	}
	if err := w.Back(); !errors.Is(err, ErrNoPreviousStep) {
		t.Errorf("Back at upload error = %v, want ErrNoPreviousStep", err)
	}
}

func TestWizard_UnmatchedRequiredNeedsConfirm(t *testing.T) {
	w := newTestWizard(t, WizardOptions{})
	if err := w.Upload(FileHandle{}, []Sheet{peopleSheet()}); err != nil {
		t.Fatal(err)
	}
	if err := w.SelectHeader(0); err != nil {
		t.Fatal(err)
	}
	if err := w.IgnoreColumn(1, true); err != nil {
		t.Fatal(err)
	}

	dialog, err := w.ConfirmColumns(context.Background(), false)
	if !errors.Is(err, ErrUnmatchedRequiredFields) {
		t.Fatalf("ConfirmColumns(false) error = %v", err)
	}
	if len(dialog.Items) != 1 || dialog.Items[0] != "Name" {
		t.Errorf("dialog items = %v, want [Name]", dialog.Items)
	}
	if w.Step() != StepMatchColumns {
		t.Errorf("step = %q, want matchColumns", w.Step())
	}

	if _, err := w.ConfirmColumns(context.Background(), true); err != nil {
		t.Fatalf("ConfirmColumns(true) error = %v", err)
	}
	if got := len(w.Records(true)); got != 3 {
		t.Errorf("records with errors = %d, want 3 (name missing everywhere)", got)
	}
}

func TestWizard_MatchColumnWarning(t *testing.T) {
	w := newTestWizard(t, WizardOptions{})
	_ = w.Upload(FileHandle{}, []Sheet{peopleSheet()})
	_ = w.SelectHeader(0)

	n, err := w.MatchColumn(1, "id")
	if err != nil {
		t.Fatalf("MatchColumn() error = %v", err)
	}
	if n == nil || n.Status != StatusWarning || n.Title != "Another column unselected" {
		t.Errorf("notification = %+v, want duplicate warning", n)
	}
	cols := w.State().Columns
	if cols[0].Field != "" || cols[1].Field != "id" {
		t.Errorf("columns = %+v", cols)
	}

	if n, err := w.MatchColumn(0, "name"); err != nil || n != nil {
		t.Errorf("MatchColumn(0, name) = %+v, %v; want no warning", n, err)
	}
}

func TestWizard_BackRestoresState(t *testing.T) {
	w := newTestWizard(t, WizardOptions{})
	toValidation(t, w)

	if err := w.Back(); err != nil {
		t.Fatalf("Back() error = %v", err)
	}
	if w.Step() != StepMatchColumns {
		t.Fatalf("step = %q, want matchColumns", w.Step())
	}
	if got := len(w.State().Columns); got != 2 {
		t.Errorf("restored %d columns, want 2", got)
	}

	if err := w.Back(); err != nil {
		t.Fatal(err)
	}
	if w.Step() != StepSelectHeader {
		t.Errorf("step = %q, want selectHeader", w.Step())
	}
	if err := w.Back(); err != nil {
		t.Fatal(err)
	}
	if w.Step() != StepUpload || w.CanGoBack() {
		t.Errorf("step = %q, CanGoBack = %v; want upload with empty history", w.Step(), w.CanGoBack())
	}
}

func TestWizard_DiscardRecords(t *testing.T) {
	w := newTestWizard(t, WizardOptions{})
	toValidation(t, w)

	bad := w.Records(true)[0]
	if err := w.DiscardRecords(context.Background(), []string{bad.Index}); err != nil {
		t.Fatalf("DiscardRecords() error = %v", err)
	}
	records := w.Records(false)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if _, err := w.ContinueValidation(false); err != nil {
		t.Errorf("ContinueValidation() after discard error = %v", err)
	}
}

func TestWizard_EditRevalidatesUnique(t *testing.T) {
	w := newTestWizard(t, WizardOptions{})
	toValidation(t, w)

	cid := findByName(w.Records(false), "Cid")
	if err := w.EditRecords(context.Background(), []RecordEdit{{Index: cid.Index, Values: Values{"id": "1"}}}); err != nil {
		t.Fatal(err)
	}

	records := w.Records(false)
	if got := findByName(records, "Cid").Errors["id"].Message; got != defaultUniqueMessage {
		t.Errorf("edited record id error = %q, want unique", got)
	}
	// Only the edited record is revalidated.
	if _, ok := findByName(records, "Ann").Errors["id"]; ok {
		t.Error("untouched record picked up an annotation")
	}
}

func TestWizard_FailedRevalidationRestoresRecords(t *testing.T) {
	lookupDown := errors.New("lookup down")
	var failing atomic.Bool
	row := RowHookFunc(func(ctx context.Context, r Record, all []Record) (Record, error) {
		if failing.Load() {
			return r, lookupDown
		}
		return r, nil
	})
	w := newTestWizard(t, WizardOptions{Hooks: Hooks{Row: row}})
	toValidation(t, w)
	before := w.Records(false)
	failing.Store(true)

	ann := findByName(before, "Ann")
	tests := []struct {
		name string
		run  func() error
	}{
		{
			name: "edit",
			run: func() error {
				return w.EditRecords(context.Background(), []RecordEdit{{Index: ann.Index, Values: Values{"name": ""}}})
			},
		},
		{
			name: "discard",
			run: func() error { return w.DiscardRecords(context.Background(), []string{ann.Index}) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, lookupDown) {
				t.Fatalf("error = %v, want %v", err, lookupDown)
			}
			if w.Pending() {
				t.Error("still pending after a failed run")
			}
			after := w.Records(false)
			if len(after) != len(before) {
				t.Fatalf("got %d records, want %d", len(after), len(before))
			}
			for i := range after {
				if after[i].Index != before[i].Index || after[i].Data.String("name") != before[i].Data.String("name") {
					t.Errorf("record %d = %+v, want %+v", i, after[i], before[i])
				}
				if after[i].HasErrors() != before[i].HasErrors() {
					t.Errorf("record %d HasErrors() = %v, want %v", i, after[i].HasErrors(), before[i].HasErrors())
				}
			}
		})
	}

	// A failed run must leave nothing that passes as valid without review.
	failing.Store(false)
	if _, err := w.ContinueValidation(false); !errors.Is(err, ErrInvalidRowsNeedConfirm) {
		t.Errorf("ContinueValidation(false) error = %v, want ErrInvalidRowsNeedConfirm", err)
	}
}

func TestWizard_EditUnknownField(t *testing.T) {
	w := newTestWizard(t, WizardOptions{})
	toValidation(t, w)
	ann := findByName(w.Records(false), "Ann")

	err := w.EditRecords(context.Background(), []RecordEdit{
		{Index: ann.Index, Values: Values{"name": "Anna"}},
		{Index: ann.Index, Values: Values{"bogus": "x"}},
	})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("EditRecords() error = %v, want ErrUnknownColumn", err)
	}

	got := findByName(w.Records(false), "Ann")
	if got.Index != ann.Index {
		t.Fatal("valid part of a rejected batch was applied")
	}
	if _, ok := got.Data["bogus"]; ok {
		t.Errorf("data = %+v, unknown key stored", got.Data)
	}
}

func TestWizard_StaleAnnotationDropped(t *testing.T) {
	var slow atomic.Bool
	release := make(chan struct{})
	row := AsyncRowHookFunc(func(ctx context.Context, r Record, all []Record) (Record, error) {
		if slow.Load() && r.Data.String("name") == "slow" {
			<-release
			r.Errors = Errors{"name": {Level: LevelError, Message: "stale"}}
		}
		return r, nil
	})

	schema := wizardSchema()
	w, err := NewWizard(WizardOptions{
		Schema:          schema,
		Hooks:           Hooks{Row: row},
		Translations:    DefaultTranslations(),
		AutoMapDistance: DefaultAutoMapDistance,
	})
	if err != nil {
		t.Fatal(err)
	}
	toValidation(t, w)
	slow.Store(true)

	ann := findByName(w.Records(false), "Ann")
	done := make(chan error, 1)
	go func() {
		done <- w.EditRecords(context.Background(), []RecordEdit{{Index: ann.Index, Values: Values{"name": "slow"}}})
	}()

	deadline := time.Now().Add(time.Second)
	for !w.Pending() {
		if time.Now().After(deadline) {
			t.Fatal("edit never became pending")
		}
		time.Sleep(time.Millisecond)
	}
	if got := findByName(w.Records(false), "slow"); got.Index != ann.Index {
		t.Error("raw edit not visible while pending")
	}

	// A newer edit of the same record settles first.
	if err := w.EditRecords(context.Background(), []RecordEdit{{Index: ann.Index, Values: Values{"name": "fast"}}}); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	got := findByName(w.Records(false), "fast")
	if got.Index != ann.Index {
		t.Fatal("newest edit lost")
	}
	if _, ok := got.Errors["name"]; ok {
		t.Errorf("stale annotation applied: %+v", got.Errors)
	}
	if w.Pending() {
		t.Error("still pending after all edits settled")
	}
}

func TestWizard_CloseNeedsConfirm(t *testing.T) {
	closed := 0
	w := newTestWizard(t, WizardOptions{OnClose: func() { closed++ }})
	_ = w.Upload(FileHandle{}, []Sheet{peopleSheet()})

	dialog, err := w.Close(false)
	if !errors.Is(err, ErrCloseNeedsConfirm) || dialog.Text.ConfirmButtonTitle != "Exit flow" {
		t.Fatalf("Close(false) = %+v, %v", dialog, err)
	}
	if _, err := w.Close(true); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Close(true); err != nil {
		t.Fatal(err)
	}
	if !w.Closed() || closed != 1 {
		t.Errorf("closed = %v, OnClose ran %d times, want once", w.Closed(), closed)
	}
}

func TestWizard_CloseAtUploadNeedsNoConfirm(t *testing.T) {
	w := newTestWizard(t, WizardOptions{})
	if _, err := w.Close(false); err != nil {
		t.Errorf("Close(false) at upload error = %v", err)
	}
}
