package core

// StepType identifies a wizard screen.
type StepType string

const (
	StepUpload       StepType = "upload"
	StepSelectSheet  StepType = "selectSheet"
	StepSelectHeader StepType = "selectHeader"
	StepMatchColumns StepType = "matchColumns"
	StepValidateData StepType = "validateData"
	StepImportMode   StepType = "importMode"
)

// stepDescriptor is one position in the wizard. Sub-states share the
// position of the step they belong to.
type stepDescriptor struct {
	Type      StepType
	Name      string
	SubStates []StepType
}

// stepTable is the single source for both lookup directions.
var stepTable = []stepDescriptor{
	{Type: StepUpload, Name: "uploadStep", SubStates: []StepType{StepSelectSheet}},
	{Type: StepSelectHeader, Name: "selectHeaderStep"},
	{Type: StepMatchColumns, Name: "matchColumnsStep"},
	{Type: StepValidateData, Name: "validationStep"},
	{Type: StepImportMode, Name: "importModeStep"},
}

// StepCount is the number of positions in the progress indicator.
func StepCount() int {
	return len(stepTable)
}

// StepTypeToIndex returns the progress position of t. Unknown or empty
// types map to 0 (upload).
func StepTypeToIndex(t StepType) int {
	for i, d := range stepTable {
		if d.Type == t {
			return i
		}
		for _, sub := range d.SubStates {
			if sub == t {
				return i
			}
		}
	}
	return 0
}

// IndexToStepType returns the step at position i, or upload when i is out
// of range.
func IndexToStepType(i int) StepType {
	if i < 0 || i >= len(stepTable) {
		return StepUpload
	}
	return stepTable[i].Type
}

// StepName returns the screen name of the step at t's position.
func StepName(t StepType) string {
	return stepTable[StepTypeToIndex(t)].Name
}

// Steps returns the ordered step types, sub-states excluded.
func Steps() []StepType {
	out := make([]StepType, len(stepTable))
	for i, d := range stepTable {
		out[i] = d.Type
	}
	return out
}
