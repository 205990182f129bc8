package driver

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// RequestSchema returns the JSON Schema for protocol requests, for callers
// that want to validate requests before writing them to the driver.
func RequestSchema() ([]byte, error) {
	return reflectSchema(&Request{})
}

// FormatTestSchema returns the JSON Schema for format_test responses.
func FormatTestSchema() ([]byte, error) {
	return reflectSchema(&FormatTestResult{})
}

func reflectSchema(v any) ([]byte, error) {
	reflector := &jsonschema.Reflector{
		// Inline everything; consumers get one self-contained document.
		ExpandedStruct: true,
		DoNotReference: true,
	}
	schema := reflector.Reflect(v)
	return json.MarshalIndent(schema, "", "  ")
}
