package core

import (
	"fmt"
	"strings"
)

// HeaderSearchRows bounds how far down a sheet the header suggestion looks.
const HeaderSearchRows = 20

// Sheet is one decoded table of an upload. A CSV file yields a single sheet.
type Sheet struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// SuggestHeaderRow picks the row most likely to be the header: the first of
// the leading rows with the most non-empty cells. Returns 0 for an empty
// sheet.
func SuggestHeaderRow(rows [][]string) int {
	best, bestCount := 0, -1
	for i := 0; i < len(rows) && i < HeaderSearchRows; i++ {
		n := 0
		for _, cell := range rows[i] {
			if strings.TrimSpace(cell) != "" {
				n++
			}
		}
		if n > bestCount {
			best, bestCount = i, n
		}
	}
	return best
}

// SplitAtHeader returns the header names at position header and the
// non-empty rows after it. Blank header cells are named after their column.
func SplitAtHeader(rows [][]string, header int) ([]string, [][]string, error) {
	if header < 0 || header >= len(rows) {
		return nil, nil, fmt.Errorf("%w: %d of %d", ErrHeaderOutOfRange, header, len(rows))
	}

	headers := make([]string, len(rows[header]))
	for i, h := range rows[header] {
		h = CleanCell(h)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		headers[i] = h
	}

	data := make([][]string, 0, len(rows)-header-1)
	for _, row := range rows[header+1:] {
		if isEmptyRow(row) {
			continue
		}
		data = append(data, row)
	}
	return headers, data, nil
}

// countDataRows is the number of non-empty rows a sheet would contribute
// with its first row as header.
func countDataRows(rows [][]string) int {
	n := 0
	for _, row := range rows {
		if !isEmptyRow(row) {
			n++
		}
	}
	if n > 0 {
		n--
	}
	return n
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
