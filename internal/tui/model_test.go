package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/sheet"
)

type captureSubmitter struct {
	mu       sync.Mutex
	payloads []core.Payload
}

func (c *captureSubmitter) Submit(_ context.Context, p core.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, p)
	return nil
}

func testWizard(t *testing.T, sub core.Submitter) *core.Wizard {
	t.Helper()
	w, err := core.NewWizard(core.WizardOptions{
		Schema: core.Schema{
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
		},
		Submitter:       sub,
		Translations:    core.DefaultTranslations(),
		AutoMapDistance: core.DefaultAutoMapDistance,
	})
	if err != nil {
		t.Fatalf("NewWizard() error = %v", err)
	}
	return w
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.csv")
	if err := os.WriteFile(path, []byte("ID,Name\n1,Ann\n2,\n3,Cid\n"), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// newModel returns a model with a non-blinking cursor so commands from
// the text input return immediately.
func newModel(wiz *core.Wizard, file string) Model {
	m := New(context.Background(), Options{Wizard: wiz, Reader: sheet.NewReader(1 << 20), File: file})
	m.input.Cursor.SetMode(cursor.CursorStatic)
	return m
}

// drain runs cmd and feeds every doneMsg it yields back into the model.
// It reports whether the program was asked to quit.
func drain(t *testing.T, m Model, cmd tea.Cmd) (Model, bool) {
	t.Helper()
	quit := false
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tea.QuitMsg:
			quit = true
		case doneMsg:
			next, cmd := m.Update(msg)
			m = next.(Model)
			queue = append(queue, cmd)
		}
	}
	return m, quit
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) (Model, bool) {
	t.Helper()
	quit := false
	for _, k := range keys {
		next, cmd := m.Update(k)
		var q bool
		m, q = drain(t, next.(Model), cmd)
		quit = quit || q
	}
	return m, quit
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	right = tea.KeyMsg{Type: tea.KeyRight}
)

// started returns a model whose file upload has completed.
func started(t *testing.T, sub core.Submitter) Model {
	t.Helper()
	wiz := testWizard(t, sub)
	m := newModel(wiz, writeCSV(t))
	m, _ = drain(t, m, m.Init())
	if m.busy {
		t.Fatal("model still busy after upload")
	}
	if m.step != core.StepSelectHeader {
		t.Fatalf("step = %q, want %q (err %v)", m.step, core.StepSelectHeader, m.err)
	}
	return m
}

// toValidation walks from the header step to the validation table.
func toValidation(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = press(t, m, enter, runes("n"))
	if m.step != core.StepValidateData {
		t.Fatalf("step = %q, want %q (err %v)", m.step, core.StepValidateData, m.err)
	}
	return m
}

func TestModel_Flow(t *testing.T) {
	sub := &captureSubmitter{}
	m := started(t, sub)

	if !strings.Contains(m.View(), "(suggested)") {
		t.Error("header view does not mark the suggested row")
	}

	m, _ = press(t, m, enter)
	if m.step != core.StepMatchColumns {
		t.Fatalf("step = %q, want %q", m.step, core.StepMatchColumns)
	}
	if view := m.View(); !strings.Contains(view, "ID") || !strings.Contains(view, "Name") {
		t.Errorf("columns view = %q, want both headers", view)
	}

	m, _ = press(t, m, runes("n"))
	if m.step != core.StepValidateData {
		t.Fatalf("step = %q, want %q", m.step, core.StepValidateData)
	}

	// One row is missing its name, so moving on asks first.
	m, _ = press(t, m, runes("n"))
	if m.dialog == nil {
		t.Fatal("continue with invalid rows did not open a dialog")
	}
	m, _ = press(t, m, runes("y"))
	if m.step != core.StepImportMode {
		t.Fatalf("step = %q, want %q (err %v)", m.step, core.StepImportMode, m.err)
	}

	m, quit := press(t, m, runes("s"))
	if quit {
		t.Error("submit quit the program")
	}
	if !m.wiz.Closed() {
		t.Fatalf("wizard not closed after submit (err %v)", m.err)
	}
	if !strings.Contains(m.View(), "Import complete") {
		t.Errorf("closed view = %q", m.View())
	}
	if len(sub.payloads) != 1 {
		t.Fatalf("submissions = %d, want 1", len(sub.payloads))
	}
	p := sub.payloads[0]
	if p.ImportMode != core.ModeAppend {
		t.Errorf("ImportMode = %q, want %q", p.ImportMode, core.ModeAppend)
	}
	if len(p.Data.ValidData) != 2 || len(p.Data.InvalidData) != 1 {
		t.Errorf("valid/invalid = %d/%d, want 2/1", len(p.Data.ValidData), len(p.Data.InvalidData))
	}

	if _, quit = press(t, m, runes("x")); !quit {
		t.Error("key on closed wizard did not quit")
	}
}

func TestModel_QuitAsksToConfirm(t *testing.T) {
	m := started(t, &captureSubmitter{})

	m, quit := press(t, m, runes("q"))
	if quit || m.dialog == nil {
		t.Fatalf("quit after upload: quit=%v dialog=%v, want dialog", quit, m.dialog)
	}
	m, _ = press(t, m, esc)
	if m.dialog != nil {
		t.Fatal("esc did not dismiss the dialog")
	}
	if m.wiz.Closed() {
		t.Fatal("cancel closed the wizard")
	}

	m, _ = press(t, m, runes("q"))
	m, quit = press(t, m, runes("y"))
	if !quit {
		t.Error("confirmed quit did not quit")
	}
	if !m.wiz.Closed() {
		t.Error("confirmed quit did not close the wizard")
	}
}

func TestModel_Back(t *testing.T) {
	m := started(t, &captureSubmitter{})
	m, _ = press(t, m, enter)
	m, _ = press(t, m, runes("b"))
	if m.step != core.StepSelectHeader {
		t.Errorf("step after back = %q, want %q", m.step, core.StepSelectHeader)
	}
}

func TestModel_EditCell(t *testing.T) {
	m := toValidation(t, started(t, &captureSubmitter{}))

	// Row 2 has the empty name.
	m, _ = press(t, m, down, right, runes("e"))
	if !m.editing {
		t.Fatal("e did not start editing")
	}
	m, _ = press(t, m, runes("Bea"), enter)
	if m.editing {
		t.Error("enter did not finish editing")
	}
	if m.err != nil {
		t.Fatalf("edit error = %v", m.err)
	}
	if core.HasInvalid(m.wiz.Records(false)) {
		t.Error("records still invalid after fixing the name")
	}
	if got := m.wiz.Records(false)[1].Data.String("name"); got != "Bea" {
		t.Errorf("name = %q, want %q", got, "Bea")
	}
}

func TestModel_DiscardMarked(t *testing.T) {
	m := toValidation(t, started(t, &captureSubmitter{}))

	m, _ = press(t, m, down, space)
	if len(m.marked) != 1 {
		t.Fatalf("marked = %d, want 1", len(m.marked))
	}
	m, _ = press(t, m, runes("d"))
	if got := len(m.wiz.Records(false)); got != 2 {
		t.Errorf("records = %d, want 2", got)
	}
	if len(m.marked) != 0 {
		t.Errorf("marked = %d after discard, want 0", len(m.marked))
	}
}

func TestModel_ErrorFilter(t *testing.T) {
	m := toValidation(t, started(t, &captureSubmitter{}))

	m, _ = press(t, m, runes("f"))
	if got := len(m.visibleRecords()); got != 1 {
		t.Errorf("visible records = %d, want 1", got)
	}
	if m.listLen() != 1 {
		t.Errorf("listLen() = %d, want 1", m.listLen())
	}
}

func TestModel_UploadError(t *testing.T) {
	wiz := testWizard(t, &captureSubmitter{})
	m := newModel(wiz, "")

	m, _ = press(t, m, runes("report.pdf"), enter)
	if m.step != core.StepUpload {
		t.Errorf("step = %q, want %q", m.step, core.StepUpload)
	}
	if m.err == nil {
		t.Fatal("unsupported file did not set an error")
	}
	if !strings.Contains(m.View(), "FILE002") {
		t.Errorf("view does not show the error code: %q", m.View())
	}
}

func TestModel_SelectModeAndKeys(t *testing.T) {
	sub := &captureSubmitter{}
	wiz, err := core.NewWizard(core.WizardOptions{
		Schema:          testWizard(t, sub).Schema(),
		Submitter:       sub,
		Translations:    core.DefaultTranslations(),
		UpdateModes:     true,
		AutoMapDistance: core.DefaultAutoMapDistance,
	})
	if err != nil {
		t.Fatalf("NewWizard() error = %v", err)
	}
	m := newModel(wiz, writeCSV(t))
	m, _ = drain(t, m, m.Init())
	m = toValidation(t, m)
	m, _ = press(t, m, runes("n"), runes("y"))

	// Modes come first, then the key candidates.
	m, _ = press(t, m, down, enter)
	if got := wiz.Selector().Mode(); got != core.ModeUpdate {
		t.Fatalf("mode = %q, want %q", got, core.ModeUpdate)
	}
	if m.listLen() != 4 {
		t.Fatalf("listLen() = %d, want 4", m.listLen())
	}
	m, _ = press(t, m, down, down, space)
	if got := wiz.Selector().PrimaryKeys(); len(got) != 1 || got[0] != "id" {
		t.Errorf("PrimaryKeys() = %v, want [id]", got)
	}
	m, _ = press(t, m, space)
	if got := wiz.Selector().PrimaryKeys(); len(got) != 0 {
		t.Errorf("PrimaryKeys() = %v after toggle, want none", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated", 5, "trun…"},
		{"åäöåäö", 4, "åäö…"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := truncate(tt.in, tt.n); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestToggleKey(t *testing.T) {
	keys := toggleKey(nil, "id")
	if len(keys) != 1 || keys[0] != "id" {
		t.Fatalf("toggleKey(nil, id) = %v", keys)
	}
	keys = toggleKey(keys, "id")
	if len(keys) != 0 {
		t.Errorf("toggleKey([id], id) = %v, want empty", keys)
	}
}
