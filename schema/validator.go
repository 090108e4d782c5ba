// Package schema embeds the JSON schemas used by the hooks and validates
// documents against them.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed hooks.schema.json
var configSchemaData []byte

//go:embed feature-state.schema.json
var featureStateSchemaData []byte

// Validator validates documents against one compiled JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator creates a validator for the hooks configuration file.
func NewValidator() (*Validator, error) {
	return compile("hooks.json", configSchemaData)
}

// NewFeatureStateValidator creates a validator for per-feature state records.
func NewFeatureStateValidator() (*Validator, error) {
	return compile("feature-state.json", featureStateSchemaData)
}

func compile(name string, data []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add embedded schema resource %s: %w", name, err)
	}

	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile embedded schema %s: %w", name, err)
	}

	return &Validator{schema: schema}, nil
}

// Validate validates data against the schema. It expects data to be any
// value that can be marshaled to JSON.
func (v *Validator) Validate(data interface{}) error {
	// Round-trip through JSON so the validator sees plain JSON values
	// regardless of whether data came from YAML, TOML or a Go struct.
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal document to JSON for validation: %w", err)
	}
	return v.ValidateJSON(jsonData)
}

// ValidateJSON validates raw JSON bytes against the schema.
func (v *Validator) ValidateJSON(raw []byte) error {
	var dataToValidate interface{}
	if err := json.Unmarshal(raw, &dataToValidate); err != nil {
		return fmt.Errorf("failed to unmarshal JSON for validation: %w", err)
	}

	if err := v.schema.Validate(dataToValidate); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			var errorMessages []string
			collectErrors(validationErr, &errorMessages)
			return fmt.Errorf("schema validation failed:\n%s", strings.Join(errorMessages, "\n"))
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}

// collectErrors recursively collects all validation errors into a slice
func collectErrors(err *jsonschema.ValidationError, messages *[]string) {
	if err.InstanceLocation != "" || len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*messages = append(*messages, fmt.Sprintf("- %s: %s", loc, err.Message))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}
