// Package sheet decodes uploaded spreadsheets into core.Sheet values.
//
// CSV files become a single sheet named after the file. XLSX workbooks are
// read with excelize and yield one sheet per worksheet, in workbook order.
// Legacy .xls files are recognised and rejected.
package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

// DefaultMaxFileSize is the upload limit used when none is configured.
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// contextCheckInterval is how many CSV records are read between
// cancellation checks.
const contextCheckInterval = 1000

// Format identifies a supported file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Accept lists the extensions offered by file pickers.
var Accept = []string{".csv", ".xlsx"}

// DetectFormat maps a file name to its Format by extension.
func DetectFormat(name string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return "", fmt.Errorf("%w: legacy .xls workbooks must be saved as .xlsx", core.ErrUnsupportedFile)
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedFile, ext)
	}
}

// ContentType returns the MIME type reported for a format.
func ContentType(f Format) string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// Reader decodes uploads subject to a size limit.
type Reader struct {
	MaxFileSize int64
}

// NewReader returns a Reader with the given limit, or DefaultMaxFileSize
// when maxFileSize is not positive.
func NewReader(maxFileSize int64) *Reader {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Reader{MaxFileSize: maxFileSize}
}

// Read decodes the file called name from r. The returned handle carries a
// fresh ID, the name, the decoded size and the content type.
func (rd *Reader) Read(ctx context.Context, name string, r io.Reader) ([]core.Sheet, core.FileHandle, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, core.FileHandle{}, err
	}

	lr := &limitReader{r: r, max: rd.limit()}
	var sheets []core.Sheet
	switch format {
	case FormatXLSX:
		sheets, err = readXLSX(ctx, lr)
	default:
		sheets, err = readCSV(ctx, sheetName(name), lr)
	}
	if err != nil {
		return nil, core.FileHandle{}, err
	}

	handle := core.FileHandle{
		ID:          uuid.NewString(),
		Name:        filepath.Base(name),
		Size:        lr.read,
		ContentType: ContentType(format),
	}
	return sheets, handle, nil
}

// ReadFile opens and decodes a file from disk.
func (rd *Reader) ReadFile(ctx context.Context, path string) ([]core.Sheet, core.FileHandle, error) {
	if _, err := DetectFormat(path); err != nil {
		return nil, core.FileHandle{}, err
	}
	if info, err := os.Stat(path); err == nil && info.Size() > rd.limit() {
		return nil, core.FileHandle{}, fmt.Errorf("%w: limit is %d MB", core.ErrFileTooLarge, rd.limit()>>20)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, core.FileHandle{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return rd.Read(ctx, path, f)
}

func (rd *Reader) limit() int64 {
	if rd == nil || rd.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return rd.MaxFileSize
}

func sheetName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func readCSV(ctx context.Context, name string, r io.Reader) ([]core.Sheet, error) {
	cr := csv.NewReader(newUTF8Sanitizer(skipBOM(r)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		if len(rows)%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, core.ErrFileTooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, core.ErrEmptyFile
	}
	return []core.Sheet{{Name: name, Rows: rows}}, nil
}

func readXLSX(ctx context.Context, r io.Reader) ([]core.Sheet, error) {
	// excelize needs random access to the zip directory.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, core.ErrEmptyFile
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	var sheets []core.Sheet
	for _, name := range wb.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := wb.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, core.Sheet{Name: name, Rows: padRows(rows)})
	}

	if len(sheets) == 0 {
		return nil, core.ErrEmptyFile
	}
	return sheets, nil
}

// padRows squares off excelize rows, which omit trailing empty cells.
func padRows(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	for i, row := range rows {
		if len(row) < width {
			rows[i] = append(row, make([]string, width-len(row))...)
		}
	}
	return rows
}
