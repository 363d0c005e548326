package core

import (
	"reflect"
	"testing"
)

func errorsOf(level Level) Errors {
	return Errors{"id": {Level: level, Message: "dup"}}
}

func TestPartitionRecords(t *testing.T) {
	tests := []struct {
		name        string
		records     []Record
		wantValid   []Values
		wantInvalid []Values
	}{
		{
			name:        "empty set",
			records:     nil,
			wantValid:   []Values{},
			wantInvalid: []Values{},
		},
		{
			name: "error level disqualifies",
			records: []Record{
				{Index: "0", Data: Values{"id": 1}},
				{Index: "1", Data: Values{"id": 2}, Errors: errorsOf(LevelError)},
			},
			wantValid:   []Values{{"id": 1}},
			wantInvalid: []Values{{"id": 2}},
		},
		{
			name: "warnings and info stay valid",
			records: []Record{
				{Index: "0", Data: Values{"id": 1}, Errors: errorsOf(LevelWarning)},
				{Index: "1", Data: Values{"id": 2}, Errors: errorsOf(LevelInfo)},
				{Index: "2", Data: Values{"id": 3}, Errors: Errors{}},
			},
			wantValid:   []Values{{"id": 1}, {"id": 2}, {"id": 3}},
			wantInvalid: []Values{},
		},
		{
			name: "mixed levels on one record",
			records: []Record{
				{Index: "0", Data: Values{"id": 1}, Errors: Errors{
					"id":   {Level: LevelWarning},
					"name": {Level: LevelError},
				}},
			},
			wantValid:   []Values{},
			wantInvalid: []Values{{"id": 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PartitionRecords(tt.records)

			if !reflect.DeepEqual(p.ValidData, tt.wantValid) {
				t.Errorf("ValidData = %v, want %v", p.ValidData, tt.wantValid)
			}
			if !reflect.DeepEqual(p.InvalidData, tt.wantInvalid) {
				t.Errorf("InvalidData = %v, want %v", p.InvalidData, tt.wantInvalid)
			}
			if len(p.ValidData)+len(p.InvalidData) != len(p.All) {
				t.Errorf("valid %d + invalid %d != all %d", len(p.ValidData), len(p.InvalidData), len(p.All))
			}
		})
	}
}

func TestPartitionRecords_EveryRecordOnce(t *testing.T) {
	var records []Record
	for i := 0; i < 50; i++ {
		rec := NewRecord(Values{"n": i})
		switch i % 3 {
		case 0:
			rec.Errors = errorsOf(LevelError)
		case 1:
			rec.Errors = errorsOf(LevelWarning)
		}
		records = append(records, rec)
	}

	p := PartitionRecords(records)

	seen := make(map[int]int)
	for _, v := range p.ValidData {
		seen[v["n"].(int)]++
	}
	for _, v := range p.InvalidData {
		n := v["n"].(int)
		seen[n]++
		if n%3 != 0 {
			t.Errorf("record %d without error-level entry landed in InvalidData", n)
		}
	}
	for i := 0; i < 50; i++ {
		if seen[i] != 1 {
			t.Errorf("record %d appears %d times, want 1", i, seen[i])
		}
	}
}

func TestPartitionRecords_DoesNotAliasInput(t *testing.T) {
	records := []Record{{Index: "0", Data: Values{"id": 1}}}
	p := PartitionRecords(records)

	p.ValidData[0]["id"] = 99
	if records[0].Data["id"] != 1 {
		t.Error("changing partitioned values modified the input record")
	}
}
