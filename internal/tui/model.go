// Package tui walks a core.Wizard in the terminal with bubbletea.
package tui

import (
	"context"
	"log/slog"
	"slices"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/logging"
	"github.com/JonMunkholm/sheetimport/internal/sheet"
)

// Options configures a Model.
type Options struct {
	Wizard *core.Wizard
	Reader *sheet.Reader
	// File is uploaded on start when set.
	File   string
	Logger *slog.Logger
}

// Model is the bubbletea model of one import.
type Model struct {
	wiz    *core.Wizard
	reader *sheet.Reader
	logger *slog.Logger
	ctx    context.Context
	file   string

	keys    keyMap
	help    help.Model
	input   textinput.Model
	spinner spinner.Model

	// UI state
	step    core.StepType
	cursor  int
	col     int
	editing bool
	marked  map[string]bool
	busy    bool
	height  int

	note      *core.Notification
	dialog    *core.Dialog
	onConfirm func() doneMsg
	err       error
}

// doneMsg reports the outcome of a wizard action run as a command. A
// blocked action carries the dialog to show and the action that repeats
// it confirmed.
type doneMsg struct {
	note    *core.Notification
	dialog  *core.Dialog
	confirm func() doneMsg
	err     error
	quit    bool
}

// New returns a model at the wizard's current step.
func New(ctx context.Context, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "path/to/file.csv"
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()
	if opts.File != "" {
		ti.SetValue(opts.File)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = currentStyle

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	m := Model{
		wiz:     opts.Wizard,
		reader:  opts.Reader,
		logger:  logger,
		ctx:     ctx,
		file:    opts.File,
		keys:    defaultKeys(),
		help:    help.New(),
		input:   ti,
		spinner: sp,
		marked:  make(map[string]bool),
		height:  24,
		busy:    opts.File != "",
	}
	m.enterStep()
	return m
}

// Init uploads the file given in Options, if any.
func (m Model) Init() tea.Cmd {
	if m.file != "" {
		return tea.Batch(m.spinner.Tick, m.upload(m.file))
	}
	return textinput.Blink
}

// enterStep resets the cursor for the wizard's current step.
func (m *Model) enterStep() {
	st := m.wiz.State()
	m.step = st.Type
	m.cursor, m.col = 0, 0
	m.editing = false
	clear(m.marked)
	if st.Type == core.StepSelectHeader {
		m.cursor = st.SuggestedHeader
	}
	if st.Type == core.StepUpload {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// start executes fn off the update loop with the spinner showing.
func (m Model) start(fn func() doneMsg) (tea.Model, tea.Cmd) {
	m.busy = true
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg { return fn() })
}

func (m Model) upload(path string) tea.Cmd {
	return func() tea.Msg { return m.uploadFile(path) }
}

func (m Model) uploadFile(path string) doneMsg {
	sheets, handle, err := m.reader.ReadFile(m.ctx, path)
	if err == nil {
		err = m.wiz.Upload(handle, sheets)
	}
	if err != nil {
		return doneMsg{err: err}
	}
	m.logger.Info("file uploaded", "file", handle.Name, "size", handle.Size, "sheets", len(sheets))
	return doneMsg{}
}

func (m Model) confirmColumns(confirm bool) func() doneMsg {
	return func() doneMsg {
		dialog, err := m.wiz.ConfirmColumns(m.ctx, confirm)
		if dialog != nil {
			return doneMsg{dialog: dialog, confirm: m.confirmColumns(true)}
		}
		return doneMsg{err: err}
	}
}

func (m Model) submit() doneMsg {
	note, err := m.wiz.Submit(m.ctx)
	if err != nil {
		return doneMsg{note: note, err: err}
	}
	return doneMsg{note: &core.Notification{Status: core.StatusSuccess, Title: "Import complete"}}
}

// visibleRecords are the rows the validation table shows.
func (m Model) visibleRecords() []core.Record {
	return m.wiz.Records(m.wiz.ErrorFilter())
}

// modeItems lists the import mode step: modes, then key candidates.
func (m Model) modeItems() (modes []core.ImportMode, keys []core.Field) {
	sel := m.wiz.Selector()
	return sel.AvailableModes(), sel.PrimaryKeyCandidates()
}

// listLen is the number of rows the cursor moves over at the current step.
func (m Model) listLen() int {
	st := m.wiz.State()
	switch st.Type {
	case core.StepSelectSheet:
		return len(st.Sheets)
	case core.StepSelectHeader:
		return min(len(st.Rows), previewRows)
	case core.StepMatchColumns:
		return len(st.Columns)
	case core.StepValidateData:
		return len(m.visibleRecords())
	case core.StepImportMode:
		modes, keys := m.modeItems()
		if m.wiz.Selector().Mode() == core.ModeAppend {
			return len(modes)
		}
		return len(modes) + len(keys)
	}
	return 0
}

func toggleKey(keys []string, key string) []string {
	if i := slices.Index(keys, key); i >= 0 {
		return slices.Delete(keys, i, i+1)
	}
	return append(keys, key)
}
