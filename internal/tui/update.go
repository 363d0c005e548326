package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

// Update handles events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case doneMsg:
		return m.finish(msg)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		if m.dialog != nil {
			return m.updateDialog(msg)
		}
		if m.step == core.StepUpload || m.editing {
			return m.updateInput(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

// finish applies the outcome of an action.
func (m Model) finish(msg doneMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.quit {
		return m, tea.Quit
	}
	m.note = msg.note
	m.err = msg.err
	if msg.dialog != nil {
		m.dialog = msg.dialog
		m.onConfirm = msg.confirm
		return m, nil
	}
	if m.wiz.Step() != m.step || m.wiz.Closed() {
		m.enterStep()
	}
	m.clampCursor()
	return m, nil
}

// do runs a quick wizard action inline and applies its result.
func (m Model) do(err error) (tea.Model, tea.Cmd) {
	return m.finish(doneMsg{err: err})
}

func (m Model) updateDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		action := m.onConfirm
		m.dialog, m.onConfirm = nil, nil
		if action == nil {
			return m, nil
		}
		return m.start(action)
	case key.Matches(msg, m.keys.Cancel):
		m.dialog, m.onConfirm = nil, nil
	}
	return m, nil
}

// updateInput drives the text input: the file path on upload, a cell
// value while editing.
func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		value := m.input.Value()
		if m.step == core.StepUpload {
			if value == "" {
				return m, nil
			}
			return m.start(func() doneMsg { return m.uploadFile(value) })
		}
		return m.commitEdit(value)
	case tea.KeyEsc:
		if m.editing {
			m.editing = false
			m.input.Blur()
			return m, nil
		}
		return m.quit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.wiz.Closed() {
		return m, tea.Quit
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Back):
		return m.do(m.wiz.Back())
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.listLen()-1 {
			m.cursor++
		}
		return m, nil
	}

	switch m.step {
	case core.StepSelectSheet:
		if key.Matches(msg, m.keys.Select) {
			sheets := m.wiz.State().Sheets
			if m.cursor < len(sheets) {
				return m.do(m.wiz.SelectSheet(sheets[m.cursor].Name))
			}
		}
	case core.StepSelectHeader:
		if key.Matches(msg, m.keys.Select) {
			return m.do(m.wiz.SelectHeader(m.cursor))
		}
	case core.StepMatchColumns:
		return m.updateColumns(msg)
	case core.StepValidateData:
		return m.updateRecords(msg)
	case core.StepImportMode:
		return m.updateMode(msg)
	}
	return m, nil
}

func (m Model) updateColumns(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := m.wiz.State().Columns
	if m.cursor >= len(cols) {
		return m, nil
	}
	col := cols[m.cursor]

	switch {
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
		// Cycle through "unmatched" and every field.
		fields := m.wiz.Schema().Fields
		options := make([]string, 0, len(fields)+1)
		options = append(options, "")
		for _, f := range fields {
			options = append(options, f.Key)
		}
		i := 0
		for j, k := range options {
			if k == col.Field {
				i = j
			}
		}
		if key.Matches(msg, m.keys.Left) {
			i = (i - 1 + len(options)) % len(options)
		} else {
			i = (i + 1) % len(options)
		}
		note, err := m.wiz.MatchColumn(col.Index, options[i])
		return m.finish(doneMsg{note: note, err: err})
	case key.Matches(msg, m.keys.Ignore):
		return m.do(m.wiz.IgnoreColumn(col.Index, !col.Ignored))
	case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Select):
		return m.start(m.confirmColumns(false))
	}
	return m, nil
}

func (m Model) updateRecords(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	records := m.visibleRecords()
	fields := m.wiz.Schema().Fields

	switch {
	case key.Matches(msg, m.keys.Left):
		if m.col > 0 {
			m.col--
		}
	case key.Matches(msg, m.keys.Right):
		if m.col < len(fields)-1 {
			m.col++
		}
	case key.Matches(msg, m.keys.Filter):
		m.wiz.SetErrorFilter(!m.wiz.ErrorFilter())
		m.cursor = 0
	case key.Matches(msg, m.keys.Mark):
		if m.cursor < len(records) {
			idx := records[m.cursor].Index
			if m.marked[idx] {
				delete(m.marked, idx)
			} else {
				m.marked[idx] = true
			}
		}
	case key.Matches(msg, m.keys.Discard):
		if len(m.marked) == 0 {
			return m, nil
		}
		indices := make([]string, 0, len(m.marked))
		for idx := range m.marked {
			indices = append(indices, idx)
		}
		clear(m.marked)
		return m.start(func() doneMsg {
			return doneMsg{err: m.wiz.DiscardRecords(m.ctx, indices)}
		})
	case key.Matches(msg, m.keys.Edit):
		if m.cursor < len(records) && m.col < len(fields) {
			m.editing = true
			m.input.SetValue(records[m.cursor].Data.String(fields[m.col].Key))
			m.input.CursorEnd()
			m.input.Focus()
		}
	case key.Matches(msg, m.keys.Next):
		dialog, err := m.wiz.ContinueValidation(false)
		if dialog != nil {
			return m.finish(doneMsg{dialog: dialog, confirm: func() doneMsg {
				_, err := m.wiz.ContinueValidation(true)
				return doneMsg{err: err}
			}})
		}
		return m.do(err)
	}
	return m, nil
}

// commitEdit writes the edited value to the cell under the cursor.
func (m Model) commitEdit(value string) (tea.Model, tea.Cmd) {
	m.editing = false
	m.input.Blur()

	records := m.visibleRecords()
	fields := m.wiz.Schema().Fields
	if m.cursor >= len(records) || m.col >= len(fields) {
		return m, nil
	}
	edit := core.RecordEdit{
		Index:  records[m.cursor].Index,
		Values: core.Values{fields[m.col].Key: value},
	}
	return m.start(func() doneMsg {
		return doneMsg{err: m.wiz.EditRecords(m.ctx, []core.RecordEdit{edit})}
	})
}

func (m Model) updateMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.start(m.submit)
	case key.Matches(msg, m.keys.Select), key.Matches(msg, m.keys.Mark):
		modes, keys := m.modeItems()
		if m.cursor < len(modes) {
			return m.do(m.wiz.SelectMode(modes[m.cursor]))
		}
		if i := m.cursor - len(modes); i < len(keys) {
			selected := toggleKey(m.wiz.Selector().PrimaryKeys(), keys[i].Key)
			return m.do(m.wiz.SetPrimaryKeys(selected))
		}
	}
	return m, nil
}

// quit closes the wizard, asking first when data would be lost.
func (m Model) quit() (tea.Model, tea.Cmd) {
	dialog, _ := m.wiz.Close(false)
	if dialog == nil {
		return m, tea.Quit
	}
	m.dialog = dialog
	m.onConfirm = func() doneMsg {
		m.wiz.Close(true)
		return doneMsg{quit: true}
	}
	return m, nil
}

func (m *Model) clampCursor() {
	if n := m.listLen(); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}
