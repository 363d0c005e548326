package core

import "strings"

// Translations holds every user-facing string of the wizard. Hosts override
// individual keys; anything left blank keeps its default.
type Translations struct {
	UploadStep       UploadStepText       `toml:"upload_step" json:"uploadStep"`
	SelectHeaderStep StepText             `toml:"select_header_step" json:"selectHeaderStep"`
	MatchColumnsStep MatchColumnsStepText `toml:"match_columns_step" json:"matchColumnsStep"`
	ValidationStep   ValidationStepText   `toml:"validation_step" json:"validationStep"`
	ImportModeStep   ImportModeStepText   `toml:"import_mode_step" json:"importModeStep"`
	Alerts           AlertsText           `toml:"alerts" json:"alerts"`
}

type StepText struct {
	Title           string `toml:"title" json:"title"`
	NextButtonTitle string `toml:"next_button_title" json:"nextButtonTitle"`
	BackButtonTitle string `toml:"back_button_title" json:"backButtonTitle"`
}

type UploadStepText struct {
	Title               string   `toml:"title" json:"title"`
	ManifestTitle       string   `toml:"manifest_title" json:"manifestTitle"`
	ManifestDescription string   `toml:"manifest_description" json:"manifestDescription"`
	MaxRecordsExceeded  string   `toml:"max_records_exceeded" json:"maxRecordsExceeded"` // {max} is replaced by the limit
	ButtonTitle         string   `toml:"button_title" json:"buttonTitle"`
	LoadingTitle        string   `toml:"loading_title" json:"loadingTitle"`
	ErrorDescription    string   `toml:"error_description" json:"errorDescription"`
	SelectSheet         StepText `toml:"select_sheet" json:"selectSheet"`
}

// MaxRecordsMessage renders MaxRecordsExceeded for the given limit.
func (u UploadStepText) MaxRecordsMessage(max string) string {
	return strings.ReplaceAll(u.MaxRecordsExceeded, "{max}", max)
}

type MatchColumnsStepText struct {
	StepText
	UserTableTitle                    string `toml:"user_table_title" json:"userTableTitle"`
	TemplateTitle                     string `toml:"template_title" json:"templateTitle"`
	SelectPlaceholder                 string `toml:"select_placeholder" json:"selectPlaceholder"`
	IgnoredColumnText                 string `toml:"ignored_column_text" json:"ignoredColumnText"`
	Unmatched                         string `toml:"unmatched" json:"unmatched"`
	DuplicateColumnWarningTitle       string `toml:"duplicate_column_warning_title" json:"duplicateColumnWarningTitle"`
	DuplicateColumnWarningDescription string `toml:"duplicate_column_warning_description" json:"duplicateColumnWarningDescription"`
}

type ValidationStepText struct {
	StepText
	NoRowsMessage             string `toml:"no_rows_message" json:"noRowsMessage"`
	NoRowsMessageWhenFiltered string `toml:"no_rows_message_when_filtered" json:"noRowsMessageWhenFiltered"`
	DiscardButtonTitle        string `toml:"discard_button_title" json:"discardButtonTitle"`
	FilterSwitchTitle         string `toml:"filter_switch_title" json:"filterSwitchTitle"`
}

type ImportModeStepText struct {
	StepText
	AppendLabel       string `toml:"append_label" json:"appendLabel"`
	UpdateLabel       string `toml:"update_label" json:"updateLabel"`
	AppendUpdateLabel string `toml:"append_update_label" json:"appendUpdateLabel"`
	PrimaryKeyLabel   string `toml:"primary_key_label" json:"primaryKeyLabel"`
	PrimaryKeyHint    string `toml:"primary_key_hint" json:"primaryKeyHint"`
	NoPrimaryKeys     string `toml:"no_primary_keys" json:"noPrimaryKeys"`
}

// ModeLabel returns the radio label for m.
func (t ImportModeStepText) ModeLabel(m ImportMode) string {
	switch m {
	case ModeUpdate:
		return t.UpdateLabel
	case ModeAppendUpdate:
		return t.AppendUpdateLabel
	default:
		return t.AppendLabel
	}
}

type DialogText struct {
	HeaderTitle             string `toml:"header_title" json:"headerTitle"`
	BodyText                string `toml:"body_text" json:"bodyText"`
	BodyTextSubmitForbidden string `toml:"body_text_submit_forbidden" json:"bodyTextSubmitForbidden,omitempty"`
	ListTitle               string `toml:"list_title" json:"listTitle,omitempty"`
	CancelButtonTitle       string `toml:"cancel_button_title" json:"cancelButtonTitle"`
	ConfirmButtonTitle      string `toml:"confirm_button_title" json:"confirmButtonTitle"`
}

type ToastText struct {
	Title          string `toml:"title" json:"title"`
	Description    string `toml:"description" json:"description,omitempty"`
	DefaultMessage string `toml:"default_message" json:"defaultMessage,omitempty"`
}

type AlertsText struct {
	ConfirmClose            DialogText `toml:"confirm_close" json:"confirmClose"`
	SubmitIncomplete        DialogText `toml:"submit_incomplete" json:"submitIncomplete"`
	UnmatchedRequiredFields DialogText `toml:"unmatched_required_fields" json:"unmatchedRequiredFields"`
	SubmitError             ToastText  `toml:"submit_error" json:"submitError"`
	PrimaryKeys             ToastText  `toml:"primary_keys" json:"primaryKeys"`
	Toast                   ToastText  `toml:"toast" json:"toast"`
}

// DefaultTranslations returns the built-in English strings.
func DefaultTranslations() Translations {
	next := func(title string) StepText {
		return StepText{Title: title, NextButtonTitle: "Next", BackButtonTitle: "Back"}
	}

	return Translations{
		UploadStep: UploadStepText{
			Title:               "Upload file",
			ManifestTitle:       "Data that we expect:",
			ManifestDescription: "(You will have a chance to rename or remove columns in next steps)",
			MaxRecordsExceeded:  "Too many records. Up to {max} allowed",
			ButtonTitle:         "Select file",
			LoadingTitle:        "Processing...",
			ErrorDescription:    "upload rejected",
			SelectSheet:         next("Select the sheet to use"),
		},
		SelectHeaderStep: next("Select header row"),
		MatchColumnsStep: MatchColumnsStepText{
			StepText:                          next("Match Columns"),
			UserTableTitle:                    "Your table",
			TemplateTitle:                     "Will become",
			SelectPlaceholder:                 "Select column...",
			IgnoredColumnText:                 "Column ignored",
			Unmatched:                         "Unmatched",
			DuplicateColumnWarningTitle:       "Another column unselected",
			DuplicateColumnWarningDescription: "Columns cannot duplicate",
		},
		ValidationStep: ValidationStepText{
			StepText:                  next("Validate data"),
			NoRowsMessage:             "No data found",
			NoRowsMessageWhenFiltered: "No data containing errors",
			DiscardButtonTitle:        "Discard selected rows",
			FilterSwitchTitle:         "Show only rows with errors",
		},
		ImportModeStep: ImportModeStepText{
			StepText:          StepText{Title: "Import Mode", NextButtonTitle: "Confirm", BackButtonTitle: "Back"},
			AppendLabel:       "Append: Add new records to the destination table",
			UpdateLabel:       "Update: Modify existing records in the destination table with matching source records",
			AppendUpdateLabel: "Append/Update: Update records if they exist in the destination, otherwise add them",
			PrimaryKeyLabel:   "Select Primary Key Column",
			PrimaryKeyHint:    "Choose the column(s) to be used as the unique key (e.g., EmployeeID, Email).",
			NoPrimaryKeys:     "No primary keys available for selection. Please ensure the data contains at least one unique identifier.",
		},
		Alerts: AlertsText{
			ConfirmClose: DialogText{
				HeaderTitle:        "Exit import flow",
				BodyText:           "Are you sure? Your current information will not be saved.",
				CancelButtonTitle:  "Cancel",
				ConfirmButtonTitle: "Exit flow",
			},
			SubmitIncomplete: DialogText{
				HeaderTitle:             "Errors detected",
				BodyText:                "There are still some rows that contain errors. Rows with errors will be ignored when submitting.",
				BodyTextSubmitForbidden: "There are still some rows containing errors.",
				CancelButtonTitle:       "Cancel",
				ConfirmButtonTitle:      "Submit",
			},
			UnmatchedRequiredFields: DialogText{
				HeaderTitle:        "Not all columns matched",
				BodyText:           "There are required columns that are not matched or ignored. Do you want to continue?",
				ListTitle:          "Columns not matched:",
				CancelButtonTitle:  "Cancel",
				ConfirmButtonTitle: "Continue",
			},
			SubmitError: ToastText{
				Title:          "Error",
				DefaultMessage: "An error occurred while submitting data",
			},
			PrimaryKeys: ToastText{
				Title:       "Select Unique Identifier(s)",
				Description: "Please choose one or more columns to serve as unique identifiers, such as EmployeeID or Email.",
			},
			Toast: ToastText{Title: "Error"},
		},
	}
}
