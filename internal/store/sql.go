// Package store writes submitted imports to a destination table.
//
// Only the valid partition of a payload is written. Each submission runs in
// one transaction:
//
//   - append inserts every row
//   - update changes rows matched by the primary keys and skips the rest
//   - appendUpdate updates matched rows and inserts the others
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

// ErrNoSchema is returned by a sink used before it is bound to a schema.
var ErrNoSchema = errors.New("sink not bound to a schema")

// Result counts what a submission changed.
type Result struct {
	Inserted int
	Updated  int
	Skipped  int
}

// placeholder renders the n-th (1-based) bind parameter.
type placeholder func(n int) string

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func question(int) string { return "?" }

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnName converts a field key to a column name.
// "Transaction ID" -> "transaction_id"
func columnName(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), " ", "_"))
}

func quoteColumns(cols []string) []string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdentifier(col)
	}
	return quoted
}

// plan is the column layout of one submission.
type plan struct {
	table   string
	fields  []core.Field
	columns []string
	keys    []core.Field
}

func newPlan(schema core.Schema, primaryKeys []string) (plan, error) {
	p := plan{table: schema.Table, fields: schema.Fields}
	if p.table == "" {
		p.table = schema.Key
	}
	for _, f := range schema.Fields {
		p.columns = append(p.columns, columnName(f.Key))
	}
	for _, key := range primaryKeys {
		f, ok := schema.Field(key)
		if !ok {
			return plan{}, fmt.Errorf("%w: %s", core.ErrUnknownPrimaryKey, key)
		}
		p.keys = append(p.keys, f)
	}
	return p, nil
}

func (p plan) keyColumns() []string {
	cols := make([]string, len(p.keys))
	for i, f := range p.keys {
		cols[i] = columnName(f.Key)
	}
	return cols
}

// valueFields are the non-key fields written by an update.
func (p plan) valueFields() []core.Field {
	var out []core.Field
	for _, f := range p.fields {
		if !p.isKey(f.Key) {
			out = append(out, f)
		}
	}
	return out
}

func (p plan) isKey(key string) bool {
	for _, k := range p.keys {
		if k.Key == key {
			return true
		}
	}
	return false
}

func (p plan) insertSQL(ph placeholder) string {
	marks := make([]string, len(p.columns))
	for i := range marks {
		marks[i] = ph(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(p.table),
		strings.Join(quoteColumns(p.columns), ", "),
		strings.Join(marks, ", "),
	)
}

// updateSQL sets the value columns first and matches on the keys after, so
// arguments come from updateArgs in the same order.
func (p plan) updateSQL(ph placeholder) string {
	n := 1
	var set []string
	for _, f := range p.valueFields() {
		set = append(set, fmt.Sprintf("%s = %s", quoteIdentifier(columnName(f.Key)), ph(n)))
		n++
	}
	var where []string
	for _, col := range p.keyColumns() {
		where = append(where, fmt.Sprintf("%s = %s", quoteIdentifier(col), ph(n)))
		n++
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		quoteIdentifier(p.table),
		strings.Join(set, ", "),
		strings.Join(where, " AND "),
	)
}

// createSQL renders a CREATE TABLE IF NOT EXISTS using typeName for the
// column types.
func (p plan) createSQL(typeName func(core.FieldType) string) string {
	defs := make([]string, len(p.fields))
	for i, f := range p.fields {
		defs[i] = quoteIdentifier(p.columns[i]) + " " + typeName(f.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdentifier(p.table), strings.Join(defs, ", "))
}

// convert turns a row into driver values.
type convert func(v any, t core.FieldType) any

func (p plan) insertArgs(row core.Values, conv convert) []any {
	args := make([]any, len(p.fields))
	for i, f := range p.fields {
		args[i] = conv(row[f.Key], f.Type)
	}
	return args
}

func (p plan) updateArgs(row core.Values, conv convert) []any {
	var args []any
	for _, f := range p.valueFields() {
		args = append(args, conv(row[f.Key], f.Type))
	}
	for _, f := range p.keys {
		args = append(args, conv(row[f.Key], f.Type))
	}
	return args
}

// validate rejects payloads that cannot be written.
func (p plan) validate(mode core.ImportMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", core.ErrModeUnavailable, mode)
	}
	if mode != core.ModeAppend {
		if len(p.keys) == 0 {
			return core.ErrPrimaryKeysRequired
		}
		if len(p.valueFields()) == 0 {
			return fmt.Errorf("%w: every column is a key, nothing to update", core.ErrDestinationFailed)
		}
	}
	return nil
}
