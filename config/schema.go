package config

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for the hooks configuration file.
// Section structs are closed (unknown keys rejected) while the root stays
// open so extensions such as `logging` can live beside the hook sections.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
		// Defaults fill every field, nothing is required.
		RequiredFromJSONSchemaTags: true,
	}

	schema := r.Reflect(&Config{})
	schema.Title = "Grove Hooks Configuration"
	schema.Description = "Configuration for the grove-hooks session lifecycle hooks."
	schema.AdditionalProperties = jsonschema.TrueSchema

	return json.MarshalIndent(schema, "", "  ")
}
