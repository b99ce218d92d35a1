// Package profilefile loads user-defined shield profiles from a JSON file.
//
// The file's JSON Schema is reflected from the Go types, so the schema and
// the decoder can never disagree about field names. Files are validated
// against it before decoding; bound checks beyond the schema are left to
// shield.Settings.Validate when each profile is registered.
package profilefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/usestring/privacyshield/pkg/shield"
)

// File is the on-disk profiles document.
type File struct {
	// Default names the profile used for unknown or empty profile names.
	Default  string           `json:"default,omitempty"`
	Profiles []shield.Profile `json:"profiles"`
}

const schemaURL = "profiles.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Schema returns the JSON Schema document for File.
func Schema() ([]byte, error) {
	r := &invopop.Reflector{DoNotReference: true, Anonymous: true}
	s := r.Reflect(&File{})
	constrainOverride(s)
	return json.MarshalIndent(s, "", "  ")
}

// constrainOverride adds lower bounds to the override fields. Counts and
// delays can never be negative, and budgets and batch sizes must be positive.
func constrainOverride(s *invopop.Schema) {
	profiles, ok := s.Properties.Get("profiles")
	if !ok || profiles.Items == nil {
		return
	}
	override, ok := profiles.Items.Properties.Get("override")
	if !ok || override.Properties == nil {
		return
	}
	for pair := override.Properties.Oldest(); pair != nil; pair = pair.Next() {
		minimum := json.Number("0")
		switch pair.Key {
		case "max_lookups_per_hour", "batch_min", "batch_max":
			minimum = json.Number("1")
		}
		pair.Value.Minimum = minimum
	}
}

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := Schema()
		if err != nil {
			compileErr = fmt.Errorf("reflecting schema: %w", err)
			return
		}

		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			compileErr = fmt.Errorf("unmarshaling schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Parse validates and decodes a profiles document.
func Parse(data []byte) (*File, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("profiles file does not match schema: %s", validationMessage(err))
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding profiles: %w", err)
	}
	return &f, nil
}

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles file: %w", err)
	}
	return Parse(data)
}

// Apply registers every profile in f and, if set, its default. Profiles
// registered before a failing one stay registered.
func Apply(reg *shield.Registry, f *File) error {
	for _, p := range f.Profiles {
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	if f.Default != "" {
		if err := reg.SetDefault(f.Default); err != nil {
			return err
		}
	}
	return nil
}

// printer renders localized schema error messages.
var printer = message.NewPrinter(language.English)

// validationMessage flattens a schema validation error onto one line.
func validationMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}

	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 && e.ErrorKind != nil {
			loc := "/" + strings.Join(e.InstanceLocation, "/")
			msgs = append(msgs, fmt.Sprintf("%s: %s", loc, e.ErrorKind.LocalizedString(printer)))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}
