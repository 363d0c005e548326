// Package templates renders the wizard's HTML with templ. Handlers render
// the same components whether they return a full page or an HTMX fragment.
package templates

//go:generate templ generate

import (
	"encoding/json"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

// PreviewRows is how many rows the header and validation screens show.
const PreviewRows = 20

// WizardView is everything a step screen needs. The JSON API returns the
// same value.
type WizardView struct {
	ID        string        `json:"id"`
	Schema    core.Schema   `json:"schema"`
	Step      core.StepType `json:"step"`
	StepIndex int           `json:"stepIndex"`
	StepCount int           `json:"stepCount"`
	Pending   bool          `json:"pending"`
	CanGoBack bool          `json:"canGoBack"`
	Closed    bool          `json:"closed"`

	File            core.FileHandle    `json:"file"`
	Sheets          []string           `json:"sheets,omitempty"`
	Rows            [][]string         `json:"rows,omitempty"`
	SuggestedHeader int                `json:"suggestedHeader"`
	Columns         []core.ColumnMatch `json:"columns,omitempty"`

	Records      []core.Record `json:"records,omitempty"`
	RecordCount  int           `json:"recordCount"`
	InvalidCount int           `json:"invalidCount"`
	ErrorsOnly   bool          `json:"errorsOnly"`

	Modes                []core.ImportMode `json:"modes,omitempty"`
	Mode                 core.ImportMode   `json:"mode,omitempty"`
	PrimaryKeys          []string          `json:"primaryKeys,omitempty"`
	PrimaryKeyCandidates []core.Field      `json:"primaryKeyCandidates,omitempty"`

	Notification *core.Notification `json:"notification,omitempty"`
	Dialog       *core.Dialog       `json:"dialog,omitempty"`
	// DialogAction is the request the dialog's confirm button repeats.
	DialogAction string `json:"dialogAction,omitempty"`
	DialogMethod string `json:"dialogMethod,omitempty"`

	Text core.Translations `json:"-"`
}

func stepTitle(t core.Translations, step core.StepType) string {
	switch step {
	case core.StepSelectHeader:
		return t.SelectHeaderStep.Title
	case core.StepMatchColumns:
		return t.MatchColumnsStep.Title
	case core.StepValidateData:
		return t.ValidationStep.Title
	case core.StepImportMode:
		return t.ImportModeStep.Title
	default:
		return t.UploadStep.Title
	}
}

func backTitle(v WizardView) string {
	switch v.Step {
	case core.StepSelectHeader:
		return v.Text.SelectHeaderStep.BackButtonTitle
	case core.StepMatchColumns:
		return v.Text.MatchColumnsStep.BackButtonTitle
	case core.StepValidateData:
		return v.Text.ValidationStep.BackButtonTitle
	case core.StepImportMode:
		return v.Text.ImportModeStep.BackButtonTitle
	default:
		return v.Text.UploadStep.SelectSheet.BackButtonTitle
	}
}

func progressClass(i, current int) string {
	switch {
	case i < current:
		return "done"
	case i == current:
		return "current"
	}
	return ""
}

func headerRowClass(i, suggested int) string {
	if i == suggested {
		return "suggested"
	}
	return ""
}

// sessionURL is the API path of an action on the viewed session.
func sessionURL(v WizardView, action string) string {
	return "/api/sessions/" + v.ID + action
}

// confirmVals resends a blocked request with the dialog answered.
var confirmVals = jsonVals(map[string]any{"confirm": true, "next": true})

func jsonVals(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
