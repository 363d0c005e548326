package core

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

type recordingSubmitter struct {
	calls    int
	payloads []Payload
	err      error
}

func (r *recordingSubmitter) Submit(ctx context.Context, p Payload) error {
	r.calls++
	r.payloads = append(r.payloads, p)
	return r.err
}

func selectorFields() []Field {
	return []Field{
		{Key: "id", Label: "ID", IsPrimaryKey: true},
		{Key: "email", Label: "Email", IsPrimaryKey: true},
		{Key: "name", Label: "Name"},
	}
}

func newSelector(sub Submitter, updateModes bool, onClose func()) *ImportModeSelector {
	return NewImportModeSelector(ImportModeOptions{
		Fields:       selectorFields(),
		Translations: DefaultTranslations(),
		UpdateModes:  updateModes,
		Submitter:    sub,
		OnClose:      onClose,
	})
}

func TestImportModeSelector_UpdateWithoutPrimaryKeys(t *testing.T) {
	sub := &recordingSubmitter{}
	s := newSelector(sub, true, nil)

	if err := s.SelectMode(ModeUpdate); err != nil {
		t.Fatalf("SelectMode() error = %v", err)
	}

	n, err := s.Confirm(context.Background(), []Record{rec("0", Values{"id": 1})}, FileHandle{})
	if !errors.Is(err, ErrPrimaryKeysRequired) {
		t.Fatalf("Confirm() error = %v, want ErrPrimaryKeysRequired", err)
	}
	if sub.calls != 0 {
		t.Errorf("submitter called %d times, want 0", sub.calls)
	}
	if n == nil || n.Title != "Select Unique Identifier(s)" || n.Status != StatusError {
		t.Errorf("notification = %+v, want primary keys alert", n)
	}
	if s.State() != SelectorIdle {
		t.Errorf("state = %q, want idle", s.State())
	}
}

func TestImportModeSelector_AppendSubmission(t *testing.T) {
	sub := &recordingSubmitter{}
	closed := 0
	s := newSelector(sub, false, func() { closed++ })

	records := []Record{
		{Index: "0", Data: Values{"id": 1}},
		{Index: "1", Data: Values{"id": 2}, Errors: Errors{"id": {Level: LevelError, Message: "dup"}}},
	}
	file := FileHandle{ID: "f1", Name: "people.csv"}

	n, err := s.Confirm(context.Background(), records, file)
	if err != nil || n != nil {
		t.Fatalf("Confirm() = %+v, %v; want nil, nil", n, err)
	}
	if sub.calls != 1 {
		t.Fatalf("submitter called %d times, want 1", sub.calls)
	}

	p := sub.payloads[0]
	if p.ImportMode != ModeAppend {
		t.Errorf("ImportMode = %q, want append", p.ImportMode)
	}
	if p.PrimaryKeys == nil || len(p.PrimaryKeys) != 0 {
		t.Errorf("PrimaryKeys = %#v, want empty non-nil slice", p.PrimaryKeys)
	}
	if want := []Values{{"id": 1}}; !reflect.DeepEqual(p.Data.ValidData, want) {
		t.Errorf("ValidData = %v, want %v", p.Data.ValidData, want)
	}
	if want := []Values{{"id": 2}}; !reflect.DeepEqual(p.Data.InvalidData, want) {
		t.Errorf("InvalidData = %v, want %v", p.Data.InvalidData, want)
	}
	if len(p.Data.All) != 2 {
		t.Errorf("All has %d records, want 2", len(p.Data.All))
	}
	if p.File != file {
		t.Errorf("File = %+v, want %+v", p.File, file)
	}
	if closed != 1 {
		t.Errorf("OnClose ran %d times, want 1", closed)
	}
	if s.State() != SelectorClosed {
		t.Errorf("state = %q, want closed", s.State())
	}

	if _, err := s.Confirm(context.Background(), records, file); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Confirm after close error = %v, want ErrSessionClosed", err)
	}
}

func TestImportModeSelector_SubmitFailureKeepsSelections(t *testing.T) {
	sub := &recordingSubmitter{err: errors.New("network down")}
	closed := false
	s := newSelector(sub, true, func() { closed = true })

	_ = s.SelectMode(ModeAppendUpdate)
	if err := s.SetPrimaryKeys([]string{"email"}); err != nil {
		t.Fatalf("SetPrimaryKeys() error = %v", err)
	}

	n, err := s.Confirm(context.Background(), []Record{rec("0", Values{"email": "a@b"})}, FileHandle{})
	if err == nil {
		t.Fatal("Confirm() should fail")
	}
	if n == nil || n.Title != "Error" || n.Description != "network down" {
		t.Errorf("notification = %+v, want submit error with description", n)
	}
	if closed {
		t.Error("OnClose ran after a failed submission")
	}
	if s.Busy() {
		t.Error("busy flag not reset after failure")
	}
	if s.Mode() != ModeAppendUpdate || !reflect.DeepEqual(s.PrimaryKeys(), []string{"email"}) {
		t.Errorf("selections lost: mode %q keys %v", s.Mode(), s.PrimaryKeys())
	}

	sub.err = nil
	if _, err := s.Confirm(context.Background(), nil, FileHandle{}); err != nil {
		t.Errorf("retry error = %v", err)
	}
	if sub.calls != 2 {
		t.Errorf("submitter called %d times, want 2", sub.calls)
	}
	if got := sub.payloads[1].PrimaryKeys; !reflect.DeepEqual(got, []string{"email"}) {
		t.Errorf("retry primary keys = %v", got)
	}
}

func TestImportModeSelector_EmptyErrorUsesDefaultMessage(t *testing.T) {
	s := newSelector(&recordingSubmitter{err: errors.New("")}, false, nil)
	n, _ := s.Confirm(context.Background(), nil, FileHandle{})
	if n == nil || n.Description != "An error occurred while submitting data" {
		t.Errorf("notification = %+v, want default message", n)
	}
}

func TestImportModeSelector_ModesToggle(t *testing.T) {
	off := newSelector(nil, false, nil)
	if got := off.AvailableModes(); !reflect.DeepEqual(got, []ImportMode{ModeAppend}) {
		t.Errorf("AvailableModes() = %v, want append only", got)
	}
	if err := off.SelectMode(ModeUpdate); !errors.Is(err, ErrModeUnavailable) {
		t.Errorf("SelectMode(update) error = %v, want ErrModeUnavailable", err)
	}

	on := newSelector(nil, true, nil)
	if got := len(on.AvailableModes()); got != 3 {
		t.Errorf("AvailableModes() has %d entries, want 3", got)
	}
}

func TestImportModeSelector_AppendClearsKeys(t *testing.T) {
	s := newSelector(nil, true, nil)
	_ = s.SelectMode(ModeUpdate)
	_ = s.SetPrimaryKeys([]string{"id", "id", "email"})

	if got := s.PrimaryKeys(); !reflect.DeepEqual(got, []string{"id", "email"}) {
		t.Errorf("PrimaryKeys() = %v, want deduplicated [id email]", got)
	}

	_ = s.SelectMode(ModeAppend)
	if got := s.PrimaryKeys(); len(got) != 0 {
		t.Errorf("PrimaryKeys() after append = %v, want empty", got)
	}
}

func TestImportModeSelector_UnknownPrimaryKey(t *testing.T) {
	s := newSelector(nil, true, nil)
	if err := s.SetPrimaryKeys([]string{"name"}); !errors.Is(err, ErrUnknownPrimaryKey) {
		t.Errorf("SetPrimaryKeys(name) error = %v, want ErrUnknownPrimaryKey", err)
	}
}

func TestImportModeSelector_NoCandidates(t *testing.T) {
	s := NewImportModeSelector(ImportModeOptions{Fields: []Field{{Key: "x"}}})
	if got := s.PrimaryKeyCandidates(); len(got) != 0 {
		t.Errorf("PrimaryKeyCandidates() = %v, want none", got)
	}
}

func TestImportModeSelector_NoSubmitter(t *testing.T) {
	s := newSelector(nil, false, nil)
	n, err := s.Confirm(context.Background(), nil, FileHandle{})
	if !errors.Is(err, ErrNoSubmitter) || n == nil {
		t.Errorf("Confirm() = %+v, %v; want notification and ErrNoSubmitter", n, err)
	}
}

func TestImportModeSelector_RejectsReentrantConfirm(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	sub := SubmitFunc(func(ctx context.Context, p Payload) error {
		calls.Add(1)
		<-release
		return nil
	})
	s := newSelector(sub, false, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Confirm(context.Background(), nil, FileHandle{})
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !s.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("selector never became busy")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.Confirm(context.Background(), nil, FileHandle{}); !errors.Is(err, ErrSubmitInProgress) {
		t.Errorf("second Confirm() error = %v, want ErrSubmitInProgress", err)
	}
	if err := s.SelectMode(ModeAppend); !errors.Is(err, ErrSubmitInProgress) {
		t.Errorf("SelectMode during submit error = %v, want ErrSubmitInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first Confirm() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("submitter called %d times, want 1", calls.Load())
	}
}
