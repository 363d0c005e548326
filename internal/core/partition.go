package core

// ImportMode decides how submitted records merge into the destination.
type ImportMode string

const (
	ModeAppend       ImportMode = "append"
	ModeUpdate       ImportMode = "update"
	ModeAppendUpdate ImportMode = "appendUpdate"
)

// Valid reports whether m is one of the known modes.
func (m ImportMode) Valid() bool {
	switch m {
	case ModeAppend, ModeUpdate, ModeAppendUpdate:
		return true
	}
	return false
}

// Partition splits a record set for submission. ValidData and InvalidData
// carry plain values (index and annotations stripped); All keeps the full
// records as they were handed over.
type Partition struct {
	ValidData   []Values `json:"validData"`
	InvalidData []Values `json:"invalidData"`
	All         []Record `json:"all"`
}

// Payload is what the submitter receives.
type Payload struct {
	ImportMode  ImportMode `json:"importMode"`
	PrimaryKeys []string   `json:"primaryKeys"`
	Data        Partition  `json:"data"`
	File        FileHandle `json:"file"`
}

// PartitionRecords places each record in exactly one of ValidData or
// InvalidData. A record is invalid iff it has an error-level annotation.
// Order within each side follows the input.
func PartitionRecords(records []Record) Partition {
	p := Partition{
		ValidData:   make([]Values, 0, len(records)),
		InvalidData: make([]Values, 0),
		All:         records,
	}

	for _, rec := range records {
		values := rec.Data.clone()
		if rec.HasErrors() {
			p.InvalidData = append(p.InvalidData, values)
		} else {
			p.ValidData = append(p.ValidData, values)
		}
	}

	return p
}
