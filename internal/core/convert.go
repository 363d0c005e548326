package core

// convert.go turns raw spreadsheet cells into typed values.
//
// Cells arrive in whatever shape the user's spreadsheet produced:
//   - dates in US, EU or ISO layouts, sometimes with 2-digit years
//   - numbers with currency symbols, thousands separators or (accounting) negatives
//   - booleans spelled yes/no, true/false, y/n, 1/0
//   - Excel formula wrappers (="value") and stray quotes
//
// The type validation and the destination stores share these parsers so a
// cell that validates is a cell that can be written.

import (
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot decides the century of 2-digit years: a year that would
// land more than this many years in the future is moved back 100 years.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006", "January 2, 2006",
		"2006-01-02T15:04:05Z07:00", "2006-01-02 15:04:05",
		"20060102",
	}
)

// ToPgText converts a cell to pgtype.Text; blank cells are NULL.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate parses a cell in any supported layout.
func ToPgDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{}
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	return pgtype.Date{}
}

// ToPgNumeric parses a number, tolerating currency symbols, thousands
// separators and accounting negatives like "(12.50)".
func ToPgNumeric(s string) pgtype.Numeric {
	s = normalizeNumber(s)
	if s == "" || !numericRegex.MatchString(s) {
		return pgtype.Numeric{}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}
	}
	return n
}

func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)

	if negative {
		s = "-" + s
	}
	return s
}

// ToPgBool accepts true/false, yes/no, t/f, y/n and 1/0.
func ToPgBool(s string) pgtype.Bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return pgtype.Bool{Bool: true, Valid: true}
	case "false", "f", "no", "n", "0":
		return pgtype.Bool{Bool: false, Valid: true}
	default:
		return pgtype.Bool{}
	}
}

// ConvertCell returns the typed pgtype value for a cell of the given type.
// Hooks may already have replaced a cell with a non-string value; those
// are formatted first.
func ConvertCell(v any, t FieldType) any {
	s := CleanCell(cellString(v))
	switch t {
	case FieldNumeric:
		return ToPgNumeric(s)
	case FieldDate:
		return ToPgDate(s)
	case FieldBool:
		return ToPgBool(s)
	default:
		return ToPgText(s)
	}
}

// NativeCell is ConvertCell for drivers without pgtype support. It returns
// nil for blank or unparseable cells.
func NativeCell(v any, t FieldType) any {
	switch c := ConvertCell(v, t).(type) {
	case pgtype.Numeric:
		if !c.Valid {
			return nil
		}
		f, err := c.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Date:
		if !c.Valid {
			return nil
		}
		return c.Time.Format("2006-01-02")
	case pgtype.Bool:
		if !c.Valid {
			return nil
		}
		return c.Bool
	case pgtype.Text:
		if !c.Valid {
			return nil
		}
		return c.String
	}
	return nil
}

// CleanCell removes spreadsheet artifacts from a cell value: surrounding
// whitespace, Excel formula wrappers (="...") and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
