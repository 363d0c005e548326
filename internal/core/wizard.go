package core

// wizard.go drives one import from upload to submission.
//
// The wizard owns the working data of its current step and hands it forward
// as a fresh StepState when a step completes. Every completed transition
// pushes the previous state onto a history stack so Back can restore it
// exactly.
//
// Edits in the validation step update in two phases: the raw edited records
// are published immediately with Pending set, then replaced by annotated
// records once the hooks settle. Each edit takes a revision number and only
// the newest revision may publish its annotation; a slower, older run is
// dropped when it finishes. If the newest run fails, the records go back to
// the last annotated set.

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
)

// WizardOptions configures a Wizard.
type WizardOptions struct {
	Schema       Schema
	Hooks        Hooks
	Submitter    Submitter
	Translations Translations
	// UpdateModes offers update and appendUpdate on the last step.
	UpdateModes bool
	// MaxRecords rejects uploads with more data rows; 0 means no limit.
	MaxRecords      int
	AutoMapDistance int
	// OnClose runs once when the wizard closes, after a successful
	// submission or a confirmed close.
	OnClose func()
	Logger  *slog.Logger
}

// StepState is the data a step works on. Only the fields relevant to Type
// are set.
type StepState struct {
	Type StepType `json:"type"`

	File   FileHandle `json:"file"`
	Sheets []Sheet    `json:"-"`

	// selectHeader
	Rows            [][]string `json:"-"`
	SuggestedHeader int        `json:"suggestedHeader"`

	// matchColumns
	Headers []string      `json:"headers,omitempty"`
	Data    [][]string    `json:"-"`
	Columns []ColumnMatch `json:"columns,omitempty"`

	// validateData, importMode
	Records []Record `json:"-"`
}

// RecordEdit replaces some values of one record.
type RecordEdit struct {
	Index  string `json:"index"`
	Values Values `json:"values"`
}

// Wizard is the state machine behind one import session. It is safe for
// concurrent use; actions are serialized per wizard.
type Wizard struct {
	opts      WizardOptions
	annotator *Annotator
	matcher   *ColumnMatcher
	selector  *ImportModeSelector
	logger    *slog.Logger

	mu        sync.Mutex
	state     StepState
	history   []StepState
	revision  uint64
	pending   bool
	settled   []Record // last annotated records, restored when a run fails
	filter    bool
	closed    bool
	closeOnce sync.Once
}

// NewWizard validates the schema's rules and starts at the upload step.
func NewWizard(opts WizardOptions) (*Wizard, error) {
	if len(opts.Schema.Fields) == 0 {
		return nil, fmt.Errorf("schema %q has no fields", opts.Schema.Key)
	}
	annotator, err := NewAnnotator(opts.Schema.Fields, opts.Hooks)
	if err != nil {
		return nil, fmt.Errorf("schema %q: %w", opts.Schema.Key, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Wizard{
		opts:      opts,
		annotator: annotator,
		matcher:   NewColumnMatcher(opts.Schema.Fields, opts.AutoMapDistance),
		logger:    logger,
		state:     StepState{Type: StepUpload},
	}
	w.selector = NewImportModeSelector(ImportModeOptions{
		Fields:       opts.Schema.Fields,
		Translations: opts.Translations,
		UpdateModes:  opts.UpdateModes,
		Submitter:    opts.Submitter,
		OnClose:      w.finish,
	})
	return w, nil
}

// Schema returns the schema the wizard imports into.
func (w *Wizard) Schema() Schema {
	return w.opts.Schema
}

// Translations returns the strings the wizard was configured with.
func (w *Wizard) Translations() Translations {
	return w.opts.Translations
}

// Selector exposes the import mode step.
func (w *Wizard) Selector() *ImportModeSelector {
	return w.selector
}

// Matcher exposes the column matcher.
func (w *Wizard) Matcher() *ColumnMatcher {
	return w.matcher
}

// State returns a copy of the current step state.
func (w *Wizard) State() StepState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Step returns the current step type.
func (w *Wizard) Step() StepType {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Type
}

// Pending reports whether an annotation run is still outstanding.
func (w *Wizard) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// Closed reports whether the wizard is finished.
func (w *Wizard) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// CanGoBack reports whether Back has a state to restore.
func (w *Wizard) CanGoBack() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.history) > 0
}

// checkLocked guards every action: the wizard must be open and at one of
// the given steps.
func (w *Wizard) checkLocked(steps ...StepType) error {
	if w.closed {
		return ErrSessionClosed
	}
	if !slices.Contains(steps, w.state.Type) {
		return fmt.Errorf("%w: at %s", ErrWrongStep, w.state.Type)
	}
	return nil
}

func (w *Wizard) advanceLocked(next StepState) {
	w.history = append(w.history, w.state)
	w.logger.Debug("wizard step", "from", w.state.Type, "to", next.Type)
	w.state = next
}

// Upload accepts the decoded sheets of a file. A workbook with several
// sheets moves to sheet selection; otherwise straight to header selection.
func (w *Wizard) Upload(file FileHandle, sheets []Sheet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(StepUpload); err != nil {
		return err
	}

	var nonEmpty []Sheet
	for _, s := range sheets {
		if slices.ContainsFunc(s.Rows, func(row []string) bool { return !isEmptyRow(row) }) {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return ErrEmptyFile
	}

	if len(nonEmpty) > 1 {
		w.advanceLocked(StepState{Type: StepSelectSheet, File: file, Sheets: nonEmpty})
		return nil
	}
	return w.enterHeaderLocked(file, nonEmpty[0])
}

// SelectSheet picks the sheet to import by name.
func (w *Wizard) SelectSheet(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(StepSelectSheet); err != nil {
		return err
	}
	for _, s := range w.state.Sheets {
		if s.Name == name {
			return w.enterHeaderLocked(w.state.File, s)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownSheet, name)
}

func (w *Wizard) enterHeaderLocked(file FileHandle, s Sheet) error {
	if max := w.opts.MaxRecords; max > 0 && countDataRows(s.Rows) > max {
		return fmt.Errorf("%w: %s", ErrTooManyRecords,
			w.opts.Translations.UploadStep.MaxRecordsMessage(strconv.Itoa(max)))
	}
	w.advanceLocked(StepState{
		Type:            StepSelectHeader,
		File:            file,
		Rows:            s.Rows,
		SuggestedHeader: SuggestHeaderRow(s.Rows),
	})
	return nil
}

// SelectHeader takes row as the header and auto-matches its columns.
func (w *Wizard) SelectHeader(row int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(StepSelectHeader); err != nil {
		return err
	}

	headers, data, err := SplitAtHeader(w.state.Rows, row)
	if err != nil {
		return err
	}
	w.advanceLocked(StepState{
		Type:    StepMatchColumns,
		File:    w.state.File,
		Headers: headers,
		Data:    data,
		Columns: w.matcher.AutoMatch(headers),
	})
	return nil
}

// MatchColumn points column col at field key ("" unmatches it). When the
// field was held by another column, that column is unmatched and a warning
// notification is returned.
func (w *Wizard) MatchColumn(col int, key string) (*Notification, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(StepMatchColumns); err != nil {
		return nil, err
	}

	cols, displaced, err := w.matcher.Assign(w.state.Columns, col, key)
	if err != nil {
		return nil, err
	}
	w.state.Columns = cols
	if !displaced {
		return nil, nil
	}
	text := w.opts.Translations.MatchColumnsStep
	return &Notification{
		Status:      StatusWarning,
		Title:       text.DuplicateColumnWarningTitle,
		Description: text.DuplicateColumnWarningDescription,
	}, nil
}

// IgnoreColumn leaves column col out of the import, or brings it back.
func (w *Wizard) IgnoreColumn(col int, ignored bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(StepMatchColumns); err != nil {
		return err
	}
	cols, err := w.matcher.Ignore(w.state.Columns, col, ignored)
	if err != nil {
		return err
	}
	w.state.Columns = cols
	return nil
}

// ConfirmColumns builds and annotates the records. With required fields
// still unmatched and confirm false it returns the dialog to show and
// ErrUnmatchedRequiredFields without moving on.
func (w *Wizard) ConfirmColumns(ctx context.Context, confirm bool) (*Dialog, error) {
	w.mu.Lock()
	if err := w.checkLocked(StepMatchColumns); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if missing := w.matcher.UnmatchedRequired(w.state.Columns); len(missing) > 0 && !confirm {
		w.mu.Unlock()
		items := make([]string, len(missing))
		for i, f := range missing {
			items[i] = f.DisplayLabel()
		}
		return &Dialog{Text: w.opts.Translations.Alerts.UnmatchedRequiredFields, Items: items},
			ErrUnmatchedRequiredFields
	}
	from := w.state
	records := w.matcher.BuildRecords(from.Columns, from.Data)
	w.mu.Unlock()

	annotated, err := w.annotator.Annotate(ctx, records, nil)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	// The wizard may have moved while the hooks ran.
	if w.closed || w.state.Type != StepMatchColumns {
		return nil, ErrWrongStep
	}
	w.advanceLocked(StepState{Type: StepValidateData, File: from.File, Records: annotated})
	w.revision++
	w.pending = false
	w.filter = false
	return nil, nil
}

// Records returns the working records of the validation or import mode
// step, optionally only those with errors.
func (w *Wizard) Records(errorsOnly bool) []Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	if errorsOnly {
		return FilterErrors(w.state.Records)
	}
	return slices.Clone(w.state.Records)
}

// SetErrorFilter remembers the "only rows with errors" switch.
func (w *Wizard) SetErrorFilter(on bool) {
	w.mu.Lock()
	w.filter = on
	w.mu.Unlock()
}

// ErrorFilter returns the switch set by SetErrorFilter.
func (w *Wizard) ErrorFilter() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.filter
}

// EditRecords applies edits and revalidates only the edited records.
// Unknown indices are ignored; a field key outside the schema rejects the
// whole batch.
func (w *Wizard) EditRecords(ctx context.Context, edits []RecordEdit) error {
	w.mu.Lock()
	if err := w.checkLocked(StepValidateData); err != nil {
		w.mu.Unlock()
		return err
	}
	for _, e := range edits {
		for k := range e.Values {
			if _, ok := w.opts.Schema.Field(k); !ok {
				w.mu.Unlock()
				return fmt.Errorf("%w: field %q", ErrUnknownColumn, k)
			}
		}
	}

	byIndex := make(map[string]Values, len(edits))
	indices := make([]string, 0, len(edits))
	for _, e := range edits {
		if prev, ok := byIndex[e.Index]; ok {
			prev = prev.clone()
			for k, v := range e.Values {
				prev[k] = v
			}
			byIndex[e.Index] = prev
			continue
		}
		byIndex[e.Index] = e.Values
		indices = append(indices, e.Index)
	}

	raw := make([]Record, len(w.state.Records))
	for i, rec := range w.state.Records {
		if vals, ok := byIndex[rec.Index]; ok {
			rec = rec.Clone()
			for k, v := range vals {
				rec.Data[k] = v
			}
		}
		raw[i] = rec
	}
	positions := PositionsOf(raw, indices)
	if len(positions) == 0 {
		w.mu.Unlock()
		return nil
	}
	rev := w.publishRawLocked(raw)
	w.mu.Unlock()

	annotated, err := w.annotator.Annotate(ctx, raw, positions)
	return w.publishAnnotated(rev, annotated, err)
}

// DiscardRecords removes the records with the given indices and revalidates
// the remainder.
func (w *Wizard) DiscardRecords(ctx context.Context, indices []string) error {
	w.mu.Lock()
	if err := w.checkLocked(StepValidateData); err != nil {
		w.mu.Unlock()
		return err
	}
	if len(indices) == 0 {
		w.mu.Unlock()
		return nil
	}

	drop := make(map[string]bool, len(indices))
	for _, idx := range indices {
		drop[idx] = true
	}
	kept := make([]Record, 0, len(w.state.Records))
	for _, rec := range w.state.Records {
		if !drop[rec.Index] {
			kept = append(kept, rec)
		}
	}
	rev := w.publishRawLocked(kept)
	w.mu.Unlock()

	annotated, err := w.annotator.Annotate(ctx, kept, nil)
	return w.publishAnnotated(rev, annotated, err)
}

func (w *Wizard) publishRawLocked(raw []Record) uint64 {
	if !w.pending {
		w.settled = w.state.Records
	}
	w.revision++
	w.state.Records = raw
	w.pending = true
	return w.revision
}

// publishAnnotated installs the result of the run started at rev. When the
// run failed, the last annotated records are put back so no record is left
// with an error map computed for other values.
func (w *Wizard) publishAnnotated(rev uint64, annotated []Record, err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if rev != w.revision || w.closed || w.state.Type != StepValidateData {
		if err == nil {
			w.logger.Debug("dropping stale annotation", "revision", rev, "current", w.revision)
		}
		return err
	}
	w.pending = false
	if err != nil {
		w.state.Records, w.settled = w.settled, nil
		w.logger.Warn("revalidation failed, change reverted", "revision", rev, "error", err)
		return err
	}
	w.state.Records = annotated
	w.settled = nil
	return nil
}

// ContinueValidation moves to the import mode step. With invalid records and
// confirm false it returns the dialog to show and ErrInvalidRowsNeedConfirm.
func (w *Wizard) ContinueValidation(confirm bool) (*Dialog, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(StepValidateData); err != nil {
		return nil, err
	}
	if w.pending {
		return nil, ErrSubmitInProgress
	}
	if HasInvalid(w.state.Records) && !confirm {
		return &Dialog{Text: w.opts.Translations.Alerts.SubmitIncomplete}, ErrInvalidRowsNeedConfirm
	}
	w.advanceLocked(StepState{Type: StepImportMode, File: w.state.File, Records: w.state.Records})
	return nil, nil
}

// SelectMode sets the import mode on the last step.
func (w *Wizard) SelectMode(m ImportMode) error {
	if err := w.at(StepImportMode); err != nil {
		return err
	}
	return w.selector.SelectMode(m)
}

// SetPrimaryKeys sets the primary key columns on the last step.
func (w *Wizard) SetPrimaryKeys(keys []string) error {
	if err := w.at(StepImportMode); err != nil {
		return err
	}
	return w.selector.SetPrimaryKeys(keys)
}

// Submit hands the records to the submitter. See ImportModeSelector.Confirm.
func (w *Wizard) Submit(ctx context.Context) (*Notification, error) {
	w.mu.Lock()
	if err := w.checkLocked(StepImportMode); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	records, file := w.state.Records, w.state.File
	w.mu.Unlock()

	n, err := w.selector.Confirm(ctx, records, file)
	if err != nil {
		w.logger.Warn("submission failed", "error", err, "mode", w.selector.Mode())
		return n, err
	}
	w.logger.Info("import submitted",
		"schema", w.opts.Schema.Key,
		"records", len(records),
		"mode", w.selector.Mode(),
	)
	return nil, nil
}

func (w *Wizard) at(step StepType) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checkLocked(step)
}

// Back restores the state before the last completed step.
func (w *Wizard) Back() error {
	if w.selector.Busy() {
		return ErrSubmitInProgress
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrSessionClosed
	}
	if len(w.history) == 0 {
		return ErrNoPreviousStep
	}
	w.state = w.history[len(w.history)-1]
	w.history = w.history[:len(w.history)-1]
	w.revision++
	w.pending = false
	return nil
}

// Close ends the wizard. Once data has been uploaded, closing without
// confirm returns the dialog to show and ErrCloseNeedsConfirm. Work still
// in flight finishes and its result is discarded.
func (w *Wizard) Close(confirm bool) (*Dialog, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, nil
	}
	if w.state.Type != StepUpload && !confirm {
		w.mu.Unlock()
		return &Dialog{Text: w.opts.Translations.Alerts.ConfirmClose}, ErrCloseNeedsConfirm
	}
	w.mu.Unlock()

	w.finish()
	return nil, nil
}

// finish marks the wizard closed and runs OnClose exactly once.
func (w *Wizard) finish() {
	w.mu.Lock()
	w.closed = true
	w.revision++
	w.mu.Unlock()

	w.closeOnce.Do(func() {
		if w.opts.OnClose != nil {
			w.opts.OnClose()
		}
	})
}
