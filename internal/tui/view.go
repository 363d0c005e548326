package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

// previewRows caps the rows shown on the header step.
const previewRows = 20

// cellWidth is the column width of the data tables.
const cellWidth = 16

// View renders the current step.
func (m Model) View() string {
	if m.wiz.Closed() {
		var b strings.Builder
		b.WriteString(titleStyle.Render(m.wiz.Schema().Label) + "\n\n")
		b.WriteString(m.renderNotification())
		b.WriteString(doneStyle.Render("Import complete.") + "\n\n")
		b.WriteString(dimStyle.Render("Press any key to exit."))
		return b.String()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.wiz.Schema().Label) + "  " + m.renderProgress() + "\n\n")

	text := m.wiz.Translations()
	b.WriteString(currentStyle.Render(m.title(text)) + "\n\n")

	st := m.wiz.State()
	switch st.Type {
	case core.StepUpload:
		b.WriteString(m.viewUpload(text))
	case core.StepSelectSheet:
		b.WriteString(m.viewSheets(st))
	case core.StepSelectHeader:
		b.WriteString(m.viewHeader(st))
	case core.StepMatchColumns:
		b.WriteString(m.viewColumns(text, st))
	case core.StepValidateData:
		b.WriteString(m.viewRecords(text))
	case core.StepImportMode:
		b.WriteString(m.viewMode(text))
	}

	b.WriteString("\n")
	b.WriteString(m.renderNotification())
	if m.err != nil {
		b.WriteString(errorStyle.Render(core.FormatUserError(m.err)) + "\n")
	}
	if m.dialog != nil {
		b.WriteString(m.renderDialog() + "\n")
	}
	if m.busy {
		b.WriteString(m.spinner.View() + " Working...\n")
	}

	b.WriteString("\n" + m.help.ShortHelpView(m.bindings()))
	return b.String()
}

func (m Model) title(t core.Translations) string {
	switch m.step {
	case core.StepSelectSheet:
		return t.UploadStep.SelectSheet.Title
	case core.StepSelectHeader:
		return t.SelectHeaderStep.Title
	case core.StepMatchColumns:
		return t.MatchColumnsStep.Title
	case core.StepValidateData:
		return t.ValidationStep.Title
	case core.StepImportMode:
		return t.ImportModeStep.Title
	default:
		return t.UploadStep.Title
	}
}

func (m Model) renderProgress() string {
	current := core.StepTypeToIndex(m.step)
	parts := make([]string, 0, core.StepCount())
	for i := range core.StepCount() {
		label := fmt.Sprintf("%d", i+1)
		switch {
		case i < current:
			parts = append(parts, doneStyle.Render(label))
		case i == current:
			parts = append(parts, currentStyle.Render(label))
		default:
			parts = append(parts, stepStyle.Render(label))
		}
	}
	return strings.Join(parts, stepStyle.Render(" > "))
}

func (m Model) renderNotification() string {
	if m.note == nil {
		return ""
	}
	line := notificationStyle(m.note.Status).Render(m.note.Title)
	if m.note.Description != "" {
		line += " " + m.note.Description
	}
	return line + "\n"
}

func (m Model) renderDialog() string {
	d := m.dialog
	var b strings.Builder
	b.WriteString(currentStyle.Render(d.Text.HeaderTitle) + "\n\n")
	b.WriteString(d.Text.BodyText + "\n")
	if len(d.Items) > 0 {
		if d.Text.ListTitle != "" {
			b.WriteString("\n" + d.Text.ListTitle + "\n")
		}
		for _, item := range d.Items {
			b.WriteString("  - " + item + "\n")
		}
	}
	b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("y: %s   n: %s", d.Text.ConfirmButtonTitle, d.Text.CancelButtonTitle)))
	return dialogStyle.Render(b.String())
}

func (m Model) viewUpload(t core.Translations) string {
	var b strings.Builder
	b.WriteString(t.UploadStep.ManifestTitle + "\n")
	if t.UploadStep.ManifestDescription != "" {
		b.WriteString(dimStyle.Render(t.UploadStep.ManifestDescription) + "\n")
	}
	for _, f := range m.wiz.Schema().Fields {
		line := "  " + f.DisplayLabel()
		if f.IsRequired() {
			line += " *"
		}
		if f.Example != "" {
			line += dimStyle.Render("  e.g. " + f.Example)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\nFile path (.csv or .xlsx):\n")
	b.WriteString(m.input.View() + "\n")
	return b.String()
}

func (m Model) viewSheets(st core.StepState) string {
	var b strings.Builder
	for i, s := range st.Sheets {
		b.WriteString(m.item(i, fmt.Sprintf("%s (%d rows)", s.Name, len(s.Rows))) + "\n")
	}
	return b.String()
}

func (m Model) viewHeader(st core.StepState) string {
	var b strings.Builder
	for i, row := range st.Rows {
		if i >= previewRows {
			b.WriteString(dimStyle.Render(fmt.Sprintf("    ... %d more rows", len(st.Rows)-previewRows)) + "\n")
			break
		}
		line := renderCells(row)
		if i == st.SuggestedHeader {
			line += dimStyle.Render("  (suggested)")
		}
		b.WriteString(m.item(i, line) + "\n")
	}
	return b.String()
}

func (m Model) viewColumns(t core.Translations, st core.StepState) string {
	text := t.MatchColumnsStep
	labels := make(map[string]string)
	for _, f := range m.wiz.Schema().Fields {
		labels[f.Key] = f.DisplayLabel()
	}

	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("    %-*s  %s", cellWidth*2, text.UserTableTitle, text.TemplateTitle)) + "\n")
	for i, col := range st.Columns {
		target := text.Unmatched
		switch {
		case col.Ignored:
			target = dimStyle.Render(text.IgnoredColumnText)
		case col.Field != "":
			target = doneStyle.Render(labels[col.Field])
		}
		b.WriteString(m.item(i, fmt.Sprintf("%-*s  ← %s →", cellWidth*2, truncate(col.Header, cellWidth*2), target)) + "\n")
	}
	return b.String()
}

func (m Model) viewRecords(t core.Translations) string {
	text := t.ValidationStep
	fields := m.wiz.Schema().Fields
	records := m.visibleRecords()

	var b strings.Builder
	filter := "off"
	if m.wiz.ErrorFilter() {
		filter = "on"
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s: %s   marked: %d", text.FilterSwitchTitle, filter, len(m.marked))) + "\n\n")

	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.DisplayLabel()
	}
	b.WriteString("      " + dimStyle.Render(renderCells(header)) + "\n")

	if len(records) == 0 {
		msg := text.NoRowsMessage
		if m.wiz.ErrorFilter() {
			msg = text.NoRowsMessageWhenFiltered
		}
		b.WriteString(dimStyle.Render("    "+msg) + "\n")
		return b.String()
	}

	// Keep the cursor row on screen.
	window := max(m.height-14, 5)
	start := 0
	if m.cursor >= window {
		start = m.cursor - window + 1
	}
	end := min(start+window, len(records))

	for i := start; i < end; i++ {
		rec := records[i]
		mark := "[ ]"
		if m.marked[rec.Index] {
			mark = "[x]"
		}
		cells := make([]string, len(fields))
		for j, f := range fields {
			cell := fmt.Sprintf("%-*s", cellWidth, truncate(rec.Data.String(f.Key), cellWidth))
			if info, ok := rec.Errors[f.Key]; ok {
				cell = levelStyle(info.Level).Render(cell)
			}
			if i == m.cursor && j == m.col {
				cell = cellCursorStyle.Render(cell)
			}
			cells[j] = cell
		}
		prefix := "  "
		if i == m.cursor {
			prefix = currentStyle.Render("> ")
		}
		b.WriteString(prefix + mark + " " + strings.Join(cells, " ") + "\n")
	}
	if end < len(records) {
		b.WriteString(dimStyle.Render(fmt.Sprintf("    ... %d more", len(records)-end)) + "\n")
	}

	// Message of the cell under the cursor.
	if m.cursor < len(records) && m.col < len(fields) {
		if info, ok := records[m.cursor].Errors[fields[m.col].Key]; ok {
			b.WriteString("\n" + levelStyle(info.Level).Render(info.Message) + "\n")
		}
	}
	if m.editing {
		b.WriteString("\n" + fields[m.col].DisplayLabel() + ": " + m.input.View() + "\n")
	}
	return b.String()
}

func (m Model) viewMode(t core.Translations) string {
	text := t.ImportModeStep
	sel := m.wiz.Selector()
	modes, keys := m.modeItems()

	var b strings.Builder
	for i, mode := range modes {
		radio := "( )"
		if sel.Mode() == mode {
			radio = "(•)"
		}
		b.WriteString(m.item(i, radio+" "+text.ModeLabel(mode)) + "\n")
	}

	if sel.Mode() == core.ModeAppend {
		return b.String()
	}

	b.WriteString("\n" + text.PrimaryKeyLabel + "\n")
	if text.PrimaryKeyHint != "" {
		b.WriteString(dimStyle.Render(text.PrimaryKeyHint) + "\n")
	}
	if len(keys) == 0 {
		b.WriteString(dimStyle.Render("    "+text.NoPrimaryKeys) + "\n")
	}
	selected := sel.PrimaryKeys()
	for i, f := range keys {
		box := "[ ]"
		if slices.Contains(selected, f.Key) {
			box = "[x]"
		}
		b.WriteString(m.item(len(modes)+i, box+" "+f.DisplayLabel()) + "\n")
	}
	return b.String()
}

// item renders one cursor-selectable line.
func (m Model) item(i int, s string) string {
	if i == m.cursor {
		return selectedStyle.Render("> " + s)
	}
	return unselectedStyle.Render(s)
}

// bindings are the keys shown in the help line for the current step.
func (m Model) bindings() []key.Binding {
	k := m.keys
	switch {
	case m.dialog != nil:
		return []key.Binding{k.Confirm, k.Cancel}
	case m.editing:
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		}
	}
	switch m.step {
	case core.StepUpload:
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "upload")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "quit")),
		}
	case core.StepSelectSheet, core.StepSelectHeader:
		return []key.Binding{k.Up, k.Down, k.Select, k.Back, k.Quit}
	case core.StepMatchColumns:
		return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Ignore, k.Next, k.Back, k.Quit}
	case core.StepValidateData:
		return []key.Binding{k.Up, k.Down, k.Edit, k.Mark, k.Discard, k.Filter, k.Next, k.Back, k.Quit}
	case core.StepImportMode:
		return []key.Binding{k.Up, k.Down, k.Mark, k.Submit, k.Back, k.Quit}
	}
	return []key.Binding{k.Quit}
}

func renderCells(cells []string) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = lipgloss.NewStyle().Width(cellWidth).MaxWidth(cellWidth).Render(truncate(c, cellWidth))
	}
	return strings.Join(out, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
