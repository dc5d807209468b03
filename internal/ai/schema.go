package ai

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema is a named JSON Schema for structured output.
type Schema struct {
	Name       string
	Definition *jsonschema.Schema
}

// SchemaFor reflects T into a closed, inline JSON Schema.
func SchemaFor[T any](name string) *Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}

	var zero T
	def := reflector.Reflect(&zero)
	def.Version = ""
	def.ID = ""

	return &Schema{Name: name, Definition: def}
}

// JSON returns the schema document.
func (s *Schema) JSON() ([]byte, error) {
	data, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", s.Name, err)
	}
	return data, nil
}

// Instruction renders the schema as a prompt instruction for providers
// without native structured output.
func (s *Schema) Instruction() string {
	data, err := s.JSON()
	if err != nil {
		return "Respond with a single JSON object and nothing else."
	}
	return "Respond with a single JSON object and nothing else. It must match this JSON Schema:\n" + string(data)
}
