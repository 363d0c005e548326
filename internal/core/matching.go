package core

// matching.go pairs the columns of an upload with schema fields.
//
// Auto-matching compares a normalized header against each field's key,
// label and alternates. An exact hit wins outright; otherwise the closest
// spelling within maxDistance edits is taken. A field ends up on at most
// one column: when two columns compete, the closer one keeps it.

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// DefaultAutoMapDistance is the edit distance auto-matching tolerates.
const DefaultAutoMapDistance = 2

// ColumnMatch is the decision for one uploaded column.
type ColumnMatch struct {
	Index   int    `json:"index"`
	Header  string `json:"header"`
	Field   string `json:"field,omitempty"` // empty when unmatched
	Ignored bool   `json:"ignored,omitempty"`
}

// Matched reports whether the column feeds a field.
func (c ColumnMatch) Matched() bool {
	return c.Field != "" && !c.Ignored
}

// ColumnMatcher holds the fields columns are matched against.
type ColumnMatcher struct {
	fields      []Field
	maxDistance int
}

// NewColumnMatcher returns a matcher for fields. A negative maxDistance
// restricts auto-matching to exact spellings.
func NewColumnMatcher(fields []Field, maxDistance int) *ColumnMatcher {
	return &ColumnMatcher{fields: fields, maxDistance: maxDistance}
}

// AutoMatch proposes a field for each header.
func (m *ColumnMatcher) AutoMatch(headers []string) []ColumnMatch {
	cols := make([]ColumnMatch, len(headers))
	dist := make([]int, len(headers))

	for i, h := range headers {
		cols[i] = ColumnMatch{Index: i, Header: h}
		dist[i] = -1

		key, d := m.closest(h)
		if key == "" {
			continue
		}

		// Resolve competition for the same field in favour of the closer
		// column; on a tie the earlier column keeps it.
		for j := 0; j < i; j++ {
			if cols[j].Field != key {
				continue
			}
			if dist[j] <= d {
				key = ""
			} else {
				cols[j].Field = ""
				dist[j] = -1
			}
			break
		}
		if key != "" {
			cols[i].Field = key
			dist[i] = d
		}
	}

	return cols
}

func (m *ColumnMatcher) closest(header string) (string, int) {
	h := normalizeHeader(header)
	if h == "" {
		return "", 0
	}

	bestKey, bestDist := "", m.maxDistance+1
	for _, f := range m.fields {
		for _, name := range fieldSpellings(f) {
			n := normalizeHeader(name)
			if n == "" {
				continue
			}
			if n == h {
				return f.Key, 0
			}
			if d := levenshtein.ComputeDistance(h, n); d < bestDist {
				bestKey, bestDist = f.Key, d
			}
		}
	}
	if bestKey == "" {
		return "", 0
	}
	return bestKey, bestDist
}

func fieldSpellings(f Field) []string {
	names := make([]string, 0, 2+len(f.Alternates))
	names = append(names, f.Key, f.Label)
	return append(names, f.Alternates...)
}

func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(CleanCell(s)) {
		switch r {
		case ' ', '_', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Assign matches column col to field key, or unmatches it when key is
// empty. If another column held the field it is unmatched and displaced
// reports true.
func (m *ColumnMatcher) Assign(cols []ColumnMatch, col int, key string) (out []ColumnMatch, displaced bool, err error) {
	if col < 0 || col >= len(cols) {
		return nil, false, fmt.Errorf("%w: column %d", ErrUnknownColumn, col)
	}
	if key != "" && !m.hasField(key) {
		return nil, false, fmt.Errorf("%w: field %q", ErrUnknownColumn, key)
	}

	out = append([]ColumnMatch(nil), cols...)
	if key != "" {
		for i := range out {
			if i != col && out[i].Field == key {
				out[i].Field = ""
				displaced = true
			}
		}
	}
	out[col].Field = key
	out[col].Ignored = false
	return out, displaced, nil
}

// Ignore excludes column col from the import, or brings it back.
func (m *ColumnMatcher) Ignore(cols []ColumnMatch, col int, ignored bool) ([]ColumnMatch, error) {
	if col < 0 || col >= len(cols) {
		return nil, fmt.Errorf("%w: column %d", ErrUnknownColumn, col)
	}
	out := append([]ColumnMatch(nil), cols...)
	out[col].Ignored = ignored
	if ignored {
		out[col].Field = ""
	}
	return out, nil
}

func (m *ColumnMatcher) hasField(key string) bool {
	for _, f := range m.fields {
		if f.Key == key {
			return true
		}
	}
	return false
}

// UnmatchedRequired returns the required fields no column feeds.
func (m *ColumnMatcher) UnmatchedRequired(cols []ColumnMatch) []Field {
	matched := make(map[string]bool)
	for _, c := range cols {
		if c.Matched() {
			matched[c.Field] = true
		}
	}

	var out []Field
	for _, f := range m.fields {
		if f.IsRequired() && !matched[f.Key] {
			out = append(out, f)
		}
	}
	return out
}

// BuildRecords turns data rows into records keyed by field. Every field
// gets an entry; unmatched fields and short rows yield empty strings.
func (m *ColumnMatcher) BuildRecords(cols []ColumnMatch, rows [][]string) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		values := make(Values, len(m.fields))
		for _, f := range m.fields {
			values[f.Key] = ""
		}
		for _, c := range cols {
			if !c.Matched() || c.Index >= len(row) {
				continue
			}
			values[c.Field] = strings.TrimSpace(row[c.Index])
		}
		records = append(records, NewRecord(values))
	}
	return records
}
