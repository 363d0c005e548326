// Package schema loads import schemas and translation overrides from TOML
// files and provides the built-in schemas.
//
// A schema file holds one or more [[schemas]] tables:
//
//	[[schemas]]
//	key   = "people"
//	label = "People"
//	table = "people"
//
//	  [[schemas.fields]]
//	  key         = "email"
//	  label       = "Email"
//	  alternates  = ["e-mail", "mail"]
//	  primary_key = true
//	  validations = [
//	    { rule = "required" },
//	    { rule = "regex", pattern = "^[^@]+@[^@]+$", message = "Invalid email" },
//	  ]
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

type file struct {
	Schemas []core.Schema `toml:"schemas"`
}

// Load reads the schemas in the TOML file at path.
func Load(path string) ([]core.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	schemas, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schemas, nil
}

// Parse decodes schemas from TOML. Unknown keys are rejected and every
// validation is compiled, so mistakes surface at startup rather than on
// the first upload.
func Parse(data []byte) ([]core.Schema, error) {
	var f file
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("parse schema at line %d column %d: %w", row, col, err)
		}
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if len(f.Schemas) == 0 {
		return nil, errors.New("no schemas defined")
	}

	for _, s := range f.Schemas {
		if _, err := core.NewAnnotator(s.Fields, core.Hooks{}); err != nil {
			return nil, fmt.Errorf("schema %q: %w", s.Key, err)
		}
	}
	return f.Schemas, nil
}

// Register adds schemas to reg, stopping at the first rejected one.
func Register(reg *core.Registry, schemas []core.Schema) error {
	for _, s := range schemas {
		if err := reg.Register(s, core.Hooks{}); err != nil {
			return err
		}
	}
	return nil
}

// LoadTranslations overlays the TOML file at path onto the default
// translations. Keys absent from the file keep their default text.
func LoadTranslations(path string) (core.Translations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Translations{}, fmt.Errorf("read translations: %w", err)
	}
	return ParseTranslations(data)
}

// ParseTranslations is LoadTranslations for in-memory TOML.
func ParseTranslations(data []byte) (core.Translations, error) {
	t := core.DefaultTranslations()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return core.Translations{}, fmt.Errorf("parse translations: %w", err)
	}
	return t, nil
}
