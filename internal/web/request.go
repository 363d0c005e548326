package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

// maxBodySize bounds JSON request bodies. Uploads have their own limit.
const maxBodySize = 10 << 20

var errBadRequest = errors.New("bad request")

// decodeJSON reads the request body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	err := json.NewDecoder(body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

// The HTMX json-enc extension sends form inputs as strings and a single
// checked checkbox as a string rather than a list. These types accept both
// that and the typed JSON API clients send.

type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*n = flexInt(v)
	return nil
}

type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.ToLower(strings.Trim(string(b), `"`)) {
	case "true", "on", "1", "yes":
		*f = true
	case "false", "off", "0", "no", "", "null":
		*f = false
	default:
		return fmt.Errorf("not a boolean: %s", b)
	}
	return nil
}

type flexStrings []string

func (l *flexStrings) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one == "" {
			*l = flexStrings{}
		} else {
			*l = flexStrings{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

type startRequest struct {
	Schema string `json:"schema"`
}

type sheetRequest struct {
	Sheet string `json:"sheet"`
}

type headerRequest struct {
	Row flexInt `json:"row"`
}

type columnMatch struct {
	Column  flexInt   `json:"column"`
	Field   string    `json:"field"`
	Ignored *flexBool `json:"ignored"`
}

// columnsRequest edits matches, then moves on when Next or Confirm is set.
// The flat Column/Field/Ignored form is what a single select or button in
// the page sends.
type columnsRequest struct {
	Matches []columnMatch `json:"matches"`
	Column  *flexInt      `json:"column"`
	Field   string        `json:"field"`
	Ignored *flexBool     `json:"ignored"`
	Next    flexBool      `json:"next"`
	Confirm flexBool      `json:"confirm"`
}

func (c columnsRequest) edits() []columnMatch {
	edits := c.Matches
	if c.Column != nil {
		edits = append(edits, columnMatch{Column: *c.Column, Field: c.Field, Ignored: c.Ignored})
	}
	return edits
}

// editsRequest carries record edits, either as a list or as the single
// cell an input in the page sends.
type editsRequest struct {
	Edits []core.RecordEdit `json:"edits"`
	Index string            `json:"index"`
	Field string            `json:"field"`
	Value *string           `json:"value"`
}

func (e editsRequest) recordEdits() []core.RecordEdit {
	edits := e.Edits
	if e.Index != "" && e.Field != "" && e.Value != nil {
		edits = append(edits, core.RecordEdit{Index: e.Index, Values: core.Values{e.Field: *e.Value}})
	}
	return edits
}

type discardRequest struct {
	Indices flexStrings `json:"indices"`
}

type confirmRequest struct {
	Confirm flexBool `json:"confirm"`
}

// modeRequest sets the mode and, when PrimaryKeys is present, replaces the
// key selection.
type modeRequest struct {
	Mode        core.ImportMode `json:"mode"`
	PrimaryKeys *flexStrings    `json:"primaryKeys"`
	// ReplaceKeys marks a request from the key checkboxes, where no key
	// checked means the field is absent.
	ReplaceKeys flexBool `json:"replaceKeys"`
}

func (m modeRequest) keys() ([]string, bool) {
	if m.PrimaryKeys != nil {
		return *m.PrimaryKeys, true
	}
	if m.ReplaceKeys {
		return nil, true
	}
	return nil, false
}
