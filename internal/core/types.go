package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// FieldType represents the expected data type for a field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
	FieldBool
)

// String returns the schema-file spelling of the type.
func (t FieldType) String() string {
	switch t {
	case FieldEnum:
		return "enum"
	case FieldDate:
		return "date"
	case FieldNumeric:
		return "numeric"
	case FieldBool:
		return "bool"
	default:
		return "text"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so schema files can
// spell types by name.
func (t *FieldType) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "text", "string":
		*t = FieldText
	case "enum":
		*t = FieldEnum
	case "date":
		*t = FieldDate
	case "numeric", "number":
		*t = FieldNumeric
	case "bool", "boolean":
		*t = FieldBool
	default:
		return fmt.Errorf("unknown field type %q", string(b))
	}
	return nil
}

// Level is the severity of an ErrorInfo.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Source identifies which stage of annotation produced an ErrorInfo.
type Source string

const (
	SourceField Source = "field"
	SourceRow   Source = "row"
	SourceTable Source = "table"
)

// ErrorInfo annotates a single cell.
type ErrorInfo struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	Source  Source `json:"source,omitempty"`
}

// Errors maps field key to its annotation. One entry per key; later writes
// replace earlier ones.
type Errors map[string]ErrorInfo

// HasLevel reports whether any entry carries the given level.
func (e Errors) HasLevel(level Level) bool {
	for _, info := range e {
		if info.Level == level {
			return true
		}
	}
	return false
}

// Merge copies every entry of other into e, overwriting by key.
func (e Errors) Merge(other Errors) {
	for k, v := range other {
		e[k] = v
	}
}

func (e Errors) clone() Errors {
	if e == nil {
		return nil
	}
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Values holds the user data of one row keyed by field key.
type Values map[string]any

// String returns the value at key formatted as a string ("" if absent).
func (v Values) String(key string) string {
	return cellString(v[key])
}

func (v Values) clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Record is one imported row plus its bookkeeping. The index and the
// annotations live beside the data so they can never collide with a
// user field named "index" or "errors".
type Record struct {
	Index  string `json:"index"`
	Data   Values `json:"data"`
	Errors Errors `json:"errors,omitempty"`
}

// NewRecord wraps data in a record with a fresh, never reused index.
func NewRecord(data Values) Record {
	if data == nil {
		data = Values{}
	}
	return Record{Index: uuid.NewString(), Data: data}
}

// HasErrors reports whether the record carries at least one error-level
// annotation. Warnings and info never count.
func (r Record) HasErrors() bool {
	return r.Errors.HasLevel(LevelError)
}

// Clone returns a shallow copy with its own Data and Errors maps.
func (r Record) Clone() Record {
	return Record{Index: r.Index, Data: r.Data.clone(), Errors: r.Errors.clone()}
}

// Rule names a built-in validation.
type Rule string

const (
	RuleRequired Rule = "required"
	RuleUnique   Rule = "unique"
	RuleRegex    Rule = "regex"
	RuleType     Rule = "type"
	RuleEnum     Rule = "enum"
)

// Validation is one declarative check on a field.
type Validation struct {
	Rule       Rule     `toml:"rule" json:"rule"`
	Pattern    string   `toml:"pattern" json:"pattern,omitempty"`       // RuleRegex
	Flags      string   `toml:"flags" json:"flags,omitempty"`           // RuleRegex, "i" for case-insensitive
	Values     []string `toml:"values" json:"values,omitempty"`         // RuleEnum
	AllowEmpty bool     `toml:"allow_empty" json:"allowEmpty,omitempty"` // RuleUnique ignores empty cells
	Message    string   `toml:"message" json:"message,omitempty"`
	Level      Level    `toml:"level" json:"level,omitempty"` // defaults to LevelError
}

func (v Validation) level() Level {
	if v.Level == "" {
		return LevelError
	}
	return v.Level
}

// Field describes one expected column.
type Field struct {
	Key          string       `toml:"key" json:"key"`
	Label        string       `toml:"label" json:"label"`
	Description  string       `toml:"description" json:"description,omitempty"`
	Alternates   []string     `toml:"alternates" json:"alternates,omitempty"` // Extra header spellings for auto-matching
	Example      string       `toml:"example" json:"example,omitempty"`
	Type         FieldType    `toml:"type" json:"type"`
	IsPrimaryKey bool         `toml:"primary_key" json:"isPrimaryKey"`
	Validations  []Validation `toml:"validations" json:"validations,omitempty"`
}

// IsRequired reports whether the field carries a required validation.
func (f Field) IsRequired() bool {
	for _, v := range f.Validations {
		if v.Rule == RuleRequired {
			return true
		}
	}
	return false
}

// DisplayLabel returns the label, falling back to the key.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}

// Schema is a named, ordered set of fields bound to a destination table.
type Schema struct {
	Key    string  `toml:"key" json:"key"`
	Label  string  `toml:"label" json:"label"`
	Table  string  `toml:"table" json:"table"`
	Fields []Field `toml:"fields" json:"fields"`
}

// PrimaryKeyFields returns the keys of fields flagged as primary key
// candidates, in schema order.
func (s Schema) PrimaryKeyFields() []string {
	var keys []string
	for _, f := range s.Fields {
		if f.IsPrimaryKey {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Field returns the field with the given key.
func (s Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// FileHandle is an opaque reference to the uploaded file. It is carried
// from upload to submission without being inspected.
type FileHandle struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// cellString formats a cell value for validation and display.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
