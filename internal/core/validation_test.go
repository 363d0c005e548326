package core

import (
	"strings"
	"testing"
)

func TestNewRowValidator_InvalidRegex(t *testing.T) {
	_, err := NewRowValidator([]Field{{Key: "x", Validations: []Validation{{Rule: RuleRegex, Pattern: "("}}}})
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if !strings.Contains(err.Error(), `field "x"`) {
		t.Errorf("error = %v, want it to name the field", err)
	}
}

func TestValidateRecord(t *testing.T) {
	fields := []Field{
		{Key: "code", Validations: []Validation{
			{Rule: RuleRequired},
			{Rule: RuleRegex, Pattern: "^[a-z]+$", Flags: "i"},
		}},
		{Key: "status", Type: FieldEnum, Validations: []Validation{
			{Rule: RuleEnum, Values: []string{"open", "closed"}, Level: LevelWarning},
		}},
		{Key: "when", Type: FieldDate, Validations: []Validation{{Rule: RuleType}}},
		{Key: "active", Type: FieldBool, Validations: []Validation{{Rule: RuleType}}},
	}
	v, err := NewRowValidator(fields)
	if err != nil {
		t.Fatalf("NewRowValidator() error = %v", err)
	}

	tests := []struct {
		name      string
		data      Values
		wantKeys  []string
		wantLevel map[string]Level
	}{
		{
			name: "all valid",
			data: Values{"code": "ABC", "status": "Open", "when": "2024-01-31", "active": "yes"},
		},
		{
			name:      "missing required",
			data:      Values{"code": "  "},
			wantKeys:  []string{"code"},
			wantLevel: map[string]Level{"code": LevelError},
		},
		{
			name:     "regex mismatch",
			data:     Values{"code": "abc1"},
			wantKeys: []string{"code"},
		},
		{
			name:      "enum uses configured level",
			data:      Values{"code": "a", "status": "pending"},
			wantKeys:  []string{"status"},
			wantLevel: map[string]Level{"status": LevelWarning},
		},
		{
			name:     "bad date and bool",
			data:     Values{"code": "a", "when": "soon", "active": "maybe"},
			wantKeys: []string{"active", "when"},
		},
		{
			name: "non-string cells are formatted",
			data: Values{"code": "a", "active": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateRecord(Record{Data: tt.data})
			if len(errs) != len(tt.wantKeys) {
				t.Fatalf("ValidateRecord() = %v, want keys %v", errs, tt.wantKeys)
			}
			for _, k := range tt.wantKeys {
				info, ok := errs[k]
				if !ok {
					t.Errorf("missing error for %q", k)
					continue
				}
				want := LevelError
				if l, ok := tt.wantLevel[k]; ok {
					want = l
				}
				if info.Level != want {
					t.Errorf("%s level = %q, want %q", k, info.Level, want)
				}
			}
		})
	}
}

func TestValidateRecord_RegexDefaultMessage(t *testing.T) {
	v, _ := NewRowValidator([]Field{{Key: "c", Validations: []Validation{{Rule: RuleRegex, Pattern: "^x$", Flags: "i"}}}})
	errs := v.ValidateRecord(Record{Data: Values{"c": "y"}})
	if got, want := errs["c"].Message, "Field did not match the regex /^x$/i"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestUniqueErrors(t *testing.T) {
	fields := []Field{
		{Key: "id", Validations: []Validation{{Rule: RuleUnique}}},
		{Key: "ref", Validations: []Validation{{Rule: RuleUnique, AllowEmpty: true, Message: "ref taken"}}},
	}
	v, _ := NewRowValidator(fields)

	records := []Record{
		{Data: Values{"id": "1", "ref": ""}},
		{Data: Values{"id": "2", "ref": ""}},
		{Data: Values{"id": "1", "ref": "r"}},
		{Data: Values{"id": "3", "ref": "r"}},
	}
	got := v.UniqueErrors(records)

	if _, ok := got[1]; ok {
		t.Errorf("record 1 flagged: %v", got[1])
	}
	for _, pos := range []int{0, 2} {
		if got[pos]["id"].Message != defaultUniqueMessage {
			t.Errorf("record %d id = %+v, want unique error", pos, got[pos]["id"])
		}
	}
	for _, pos := range []int{2, 3} {
		if got[pos]["ref"].Message != "ref taken" {
			t.Errorf("record %d ref = %+v, want custom unique error", pos, got[pos]["ref"])
		}
	}
	if _, ok := got[0]["ref"]; ok {
		t.Error("empty refs should be skipped with AllowEmpty")
	}
}

func TestValidateCell(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		field   Field
		wantErr bool
	}{
		{"empty always ok", "", Field{Type: FieldNumeric}, false},
		{"numeric ok", "$1,234.50", Field{Type: FieldNumeric}, false},
		{"numeric bad", "12abc", Field{Type: FieldNumeric}, true},
		{"date ok", "01/31/2024", Field{Type: FieldDate}, false},
		{"date bad", "31st", Field{Type: FieldDate}, true},
		{"bool ok", "N", Field{Type: FieldBool}, false},
		{"bool bad", "perhaps", Field{Type: FieldBool}, true},
		{"text anything", "!!", Field{Type: FieldText}, false},
		{"enum ok", "RED", Field{Type: FieldEnum, Validations: []Validation{{Rule: RuleEnum, Values: []string{"red"}}}}, false},
		{"enum bad", "blue", Field{Type: FieldEnum, Validations: []Validation{{Rule: RuleEnum, Values: []string{"red"}}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCell(tt.value, tt.field)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCell(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}
