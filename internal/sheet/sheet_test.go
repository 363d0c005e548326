package sheet

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"people.csv", FormatCSV, false},
		{"PEOPLE.CSV", FormatCSV, false},
		{"book.xlsx", FormatXLSX, false},
		{"old.xls", "", true},
		{"notes.pdf", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DetectFormat(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, core.ErrUnsupportedFile) {
				t.Errorf("DetectFormat(%q) error = %v, want ErrUnsupportedFile", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestReader_CSV(t *testing.T) {
	input := "\xEF\xBB\xBFname,email\nAda,ada@example.com\n\"Lovelace, A\",x\"y\nshort\n"
	sheets, handle, err := NewReader(0).Read(context.Background(), "uploads/people.csv", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if len(sheets) != 1 || sheets[0].Name != "people" {
		t.Fatalf("Read() sheets = %+v, want one sheet named people", sheets)
	}
	want := [][]string{
		{"name", "email"},
		{"Ada", "ada@example.com"},
		{"Lovelace, A", `x"y`},
		{"short"},
	}
	if !reflect.DeepEqual(sheets[0].Rows, want) {
		t.Errorf("Rows = %q, want %q", sheets[0].Rows, want)
	}

	if handle.ID == "" || handle.Name != "people.csv" || handle.Size != int64(len(input)) {
		t.Errorf("handle = %+v", handle)
	}
	if handle.ContentType != "text/csv" {
		t.Errorf("ContentType = %q, want text/csv", handle.ContentType)
	}
}

func TestReader_Errors(t *testing.T) {
	ctx := context.Background()

	if _, _, err := NewReader(0).Read(ctx, "empty.csv", strings.NewReader("")); !errors.Is(err, core.ErrEmptyFile) {
		t.Errorf("empty csv error = %v, want ErrEmptyFile", err)
	}
	if _, _, err := NewReader(4).Read(ctx, "big.csv", strings.NewReader("a,b,c,d\n")); !errors.Is(err, core.ErrFileTooLarge) {
		t.Errorf("oversized csv error = %v, want ErrFileTooLarge", err)
	}
	if _, _, err := NewReader(0).Read(ctx, "legacy.xls", strings.NewReader("x")); !errors.Is(err, core.ErrUnsupportedFile) {
		t.Errorf("xls error = %v, want ErrUnsupportedFile", err)
	}
	if _, _, err := NewReader(0).Read(ctx, "broken.xlsx", strings.NewReader("not a zip")); err == nil {
		t.Error("corrupt workbook accepted")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := NewReader(0).Read(cancelled, "a.csv", strings.NewReader("a\n")); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled read error = %v, want context.Canceled", err)
	}
}

func workbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	cells := map[string]any{"A1": "Name", "B1": "Amount", "C1": "Active", "A2": "Ada", "B2": 12.5, "A3": "Grace"}
	for cell, v := range cells {
		if err := f.SetCellValue("Sheet1", cell, v); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Notes", "A1", "remember"); err != nil {
		t.Fatal(err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestReader_XLSX(t *testing.T) {
	sheets, handle, err := NewReader(0).Read(context.Background(), "book.xlsx", workbook(t))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if len(sheets) != 2 || sheets[0].Name != "Sheet1" || sheets[1].Name != "Notes" {
		t.Fatalf("sheet names = %v, want [Sheet1 Notes]", names(sheets))
	}
	want := [][]string{
		{"Name", "Amount", "Active"},
		{"Ada", "12.5", ""},
		{"Grace", "", ""},
	}
	if !reflect.DeepEqual(sheets[0].Rows, want) {
		t.Errorf("Sheet1 rows = %q, want %q", sheets[0].Rows, want)
	}
	if !strings.Contains(handle.ContentType, "spreadsheetml") {
		t.Errorf("ContentType = %q", handle.ContentType)
	}
}

func TestReader_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	sheets, handle, err := NewReader(0).ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(sheets[0].Rows) != 2 || handle.Name != "people.csv" {
		t.Errorf("ReadFile() = %v, %+v", sheets, handle)
	}

	if _, _, err := NewReader(3).ReadFile(context.Background(), path); !errors.Is(err, core.ErrFileTooLarge) {
		t.Errorf("ReadFile() over limit error = %v, want ErrFileTooLarge", err)
	}
}

func names(sheets []core.Sheet) []string {
	out := make([]string, len(sheets))
	for i, s := range sheets {
		out[i] = s.Name
	}
	return out
}
