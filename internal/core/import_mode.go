package core

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Submitter receives the final payload of an import. It is the only place
// data leaves the wizard.
type Submitter interface {
	Submit(ctx context.Context, p Payload) error
}

// SubmitFunc adapts a plain function to Submitter.
type SubmitFunc func(ctx context.Context, p Payload) error

func (fn SubmitFunc) Submit(ctx context.Context, p Payload) error {
	return fn(ctx, p)
}

// SchemaSubmitter is implemented by submitters whose writes depend on the
// schema, such as table sinks. Sessions bind it once at start.
type SchemaSubmitter interface {
	Submitter
	ForSchema(Schema) Submitter
}

// bindSubmitter returns the submitter a session for schema should use.
func bindSubmitter(s Submitter, schema Schema) Submitter {
	if ss, ok := s.(SchemaSubmitter); ok {
		return ss.ForSchema(schema)
	}
	return s
}

// SelectorState is the lifecycle of the last wizard step.
type SelectorState string

const (
	SelectorIdle       SelectorState = "idle"
	SelectorSubmitting SelectorState = "submitting"
	SelectorClosed     SelectorState = "closed"
)

// ImportModeOptions configures an ImportModeSelector.
type ImportModeOptions struct {
	Fields       []Field
	Translations Translations
	// UpdateModes offers update and appendUpdate next to append.
	UpdateModes bool
	Submitter   Submitter
	// OnClose runs once after a successful submission.
	OnClose func()
}

// ImportModeSelector holds the mode and primary key choices of the final
// step and runs the submission.
//
// State moves idle -> submitting -> idle on failure or closed on success.
// Choices survive a failed submission so the user can retry as is.
type ImportModeSelector struct {
	opts ImportModeOptions

	mu          sync.Mutex
	mode        ImportMode
	primaryKeys []string
	state       SelectorState
}

func NewImportModeSelector(opts ImportModeOptions) *ImportModeSelector {
	return &ImportModeSelector{
		opts:  opts,
		mode:  ModeAppend,
		state: SelectorIdle,
	}
}

// AvailableModes lists the modes the user may pick, append first.
func (s *ImportModeSelector) AvailableModes() []ImportMode {
	if s.opts.UpdateModes {
		return []ImportMode{ModeAppend, ModeUpdate, ModeAppendUpdate}
	}
	return []ImportMode{ModeAppend}
}

// PrimaryKeyCandidates returns the fields flagged as primary keys in schema
// order. An empty result is valid: the step then shows a notice instead of
// checkboxes.
func (s *ImportModeSelector) PrimaryKeyCandidates() []Field {
	var out []Field
	for _, f := range s.opts.Fields {
		if f.IsPrimaryKey {
			out = append(out, f)
		}
	}
	return out
}

func (s *ImportModeSelector) Mode() ImportMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *ImportModeSelector) PrimaryKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.primaryKeys)
}

func (s *ImportModeSelector) State() SelectorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether a submission is outstanding.
func (s *ImportModeSelector) Busy() bool {
	return s.State() == SelectorSubmitting
}

// SelectMode switches the import mode. Switching to append clears the
// primary key selection.
func (s *ImportModeSelector) SelectMode(m ImportMode) error {
	if !slices.Contains(s.AvailableModes(), m) {
		return fmt.Errorf("%w: %s", ErrModeUnavailable, m)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.mode = m
	if m == ModeAppend {
		s.primaryKeys = nil
	}
	return nil
}

// SetPrimaryKeys replaces the key selection. Keys must be primary key
// candidates; the order given is kept and repeats are dropped.
func (s *ImportModeSelector) SetPrimaryKeys(keys []string) error {
	candidates := make(map[string]bool)
	for _, f := range s.PrimaryKeyCandidates() {
		candidates[f.Key] = true
	}

	var out []string
	for _, k := range keys {
		if !candidates[k] {
			return fmt.Errorf("%w: %s", ErrUnknownPrimaryKey, k)
		}
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.primaryKeys = out
	return nil
}

func (s *ImportModeSelector) editableLocked() error {
	switch s.state {
	case SelectorSubmitting:
		return ErrSubmitInProgress
	case SelectorClosed:
		return ErrSessionClosed
	}
	return nil
}

// Confirm partitions records and hands the payload to the submitter.
//
// A non-append mode without primary keys is refused before anything is
// sent. A submitter error comes back together with a notification carrying
// its message; the selector returns to idle. On success OnClose runs and
// the selector is closed.
func (s *ImportModeSelector) Confirm(ctx context.Context, records []Record, file FileHandle) (*Notification, error) {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.mode != ModeAppend && len(s.primaryKeys) == 0 {
		s.mu.Unlock()
		text := s.opts.Translations.Alerts.PrimaryKeys
		return &Notification{
			Status:      StatusError,
			Title:       text.Title,
			Description: text.Description,
		}, ErrPrimaryKeysRequired
	}
	if s.opts.Submitter == nil {
		s.mu.Unlock()
		return s.submitError(ErrNoSubmitter), ErrNoSubmitter
	}

	payload := Payload{
		ImportMode:  s.mode,
		PrimaryKeys: append([]string{}, s.primaryKeys...),
		Data:        PartitionRecords(records),
		File:        file,
	}
	s.state = SelectorSubmitting
	s.mu.Unlock()

	err := s.opts.Submitter.Submit(ctx, payload)

	s.mu.Lock()
	if err != nil {
		s.state = SelectorIdle
		s.mu.Unlock()
		return s.submitError(err), err
	}
	s.state = SelectorClosed
	s.mu.Unlock()

	if s.opts.OnClose != nil {
		s.opts.OnClose()
	}
	return nil, nil
}

func (s *ImportModeSelector) submitError(err error) *Notification {
	text := s.opts.Translations.Alerts.SubmitError
	desc := err.Error()
	if desc == "" {
		desc = text.DefaultMessage
	}
	return &Notification{Status: StatusError, Title: text.Title, Description: desc}
}
