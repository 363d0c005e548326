package core

// validation.go provides the built-in field checks applied to every record.
//
// Validation happens at two levels:
//  1. Per record: required, regex, type and enum checks look at one cell.
//  2. Across records: unique checks compare a field over the whole set.
//
// Both produce ErrorInfo entries with Source "field". Validations on a field
// run in declaration order and a later failing check replaces an earlier
// one. Non-required checks skip empty cells.

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultRequiredMessage = "Field is required"
	defaultUniqueMessage   = "Field must be unique"
)

// RowValidator checks records against a schema's fields.
// Build it once per session; regular expressions are compiled up front.
type RowValidator struct {
	fields   []Field
	patterns map[string]*regexp.Regexp // keyed by field key + validation position
}

// NewRowValidator compiles the validations of fields.
// It fails if a regex validation carries an invalid pattern.
func NewRowValidator(fields []Field) (*RowValidator, error) {
	v := &RowValidator{
		fields:   fields,
		patterns: make(map[string]*regexp.Regexp),
	}

	for _, f := range fields {
		for i, rule := range f.Validations {
			if rule.Rule != RuleRegex {
				continue
			}
			pattern := rule.Pattern
			if strings.Contains(rule.Flags, "i") {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("field %q: invalid regex %q: %w", f.Key, rule.Pattern, err)
			}
			v.patterns[patternKey(f.Key, i)] = re
		}
	}

	return v, nil
}

func patternKey(field string, pos int) string {
	return fmt.Sprintf("%s#%d", field, pos)
}

// ValidateRecord runs the single-cell checks on rec and returns a fresh
// error map (nil when the record is clean).
func (v *RowValidator) ValidateRecord(rec Record) Errors {
	var errs Errors
	set := func(key string, level Level, msg string) {
		if errs == nil {
			errs = make(Errors)
		}
		errs[key] = ErrorInfo{Level: level, Message: msg, Source: SourceField}
	}

	for _, f := range v.fields {
		raw := CleanCell(rec.Data.String(f.Key))

		for i, rule := range f.Validations {
			switch rule.Rule {
			case RuleRequired:
				if raw == "" {
					set(f.Key, rule.level(), messageOr(rule.Message, defaultRequiredMessage))
				}

			case RuleRegex:
				if raw == "" {
					continue
				}
				if re := v.patterns[patternKey(f.Key, i)]; re != nil && !re.MatchString(raw) {
					set(f.Key, rule.level(), messageOr(rule.Message,
						fmt.Sprintf("Field did not match the regex /%s/%s", rule.Pattern, rule.Flags)))
				}

			case RuleType:
				if raw == "" {
					continue
				}
				if err := ValidateCell(raw, f); err != nil {
					set(f.Key, rule.level(), messageOr(rule.Message, err.Error()))
				}

			case RuleEnum:
				if raw == "" {
					continue
				}
				if !inEnum(raw, rule.Values) {
					set(f.Key, rule.level(), messageOr(rule.Message,
						fmt.Sprintf("value must be one of: %s", strings.Join(rule.Values, ", "))))
				}
			}
		}
	}

	return errs
}

// UniqueErrors evaluates unique validations across records. The result is
// keyed by position in records; every occurrence of a repeated value is
// flagged, not only the later ones.
func (v *RowValidator) UniqueErrors(records []Record) map[int]Errors {
	out := make(map[int]Errors)

	for _, f := range v.fields {
		for _, rule := range f.Validations {
			if rule.Rule != RuleUnique {
				continue
			}

			seen := make(map[string][]int)
			for pos, rec := range records {
				val := CleanCell(rec.Data.String(f.Key))
				if val == "" && rule.AllowEmpty {
					continue
				}
				seen[val] = append(seen[val], pos)
			}

			for _, positions := range seen {
				if len(positions) < 2 {
					continue
				}
				for _, pos := range positions {
					if out[pos] == nil {
						out[pos] = make(Errors)
					}
					out[pos][f.Key] = ErrorInfo{
						Level:   rule.level(),
						Message: messageOr(rule.Message, defaultUniqueMessage),
						Source:  SourceField,
					}
				}
			}
		}
	}

	return out
}

// ValidateCell checks a non-empty cell against the field's declared type.
// Returns nil if valid, or an error describing the problem.
func ValidateCell(value string, f Field) error {
	if value == "" {
		return nil
	}

	switch f.Type {
	case FieldNumeric:
		if !ToPgNumeric(value).Valid {
			return fmt.Errorf("invalid number format")
		}
	case FieldDate:
		if !ToPgDate(value).Valid {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD or similar)")
		}
	case FieldBool:
		if !ToPgBool(value).Valid {
			return fmt.Errorf("must be yes/no, true/false, or 1/0")
		}
	case FieldEnum:
		for _, rule := range f.Validations {
			if rule.Rule == RuleEnum && !inEnum(value, rule.Values) {
				return fmt.Errorf("value must be one of: %s", strings.Join(rule.Values, ", "))
			}
		}
	}
	return nil
}

func inEnum(value string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, ev := range allowed {
		if strings.EqualFold(ev, value) {
			return true
		}
	}
	return false
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
