package classify

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordSchema is the JSON Schema the model's output must satisfy after
// sanitization. Every label field is optional except document_category;
// the aggregator treats a record without a category as invalid anyway, so
// accepting one here would only add noise to the label file.
const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "document_category":         {"type": "string"},
    "document_subcategory":      {"type": "string"},
    "language_primary":          {"type": "string"},
    "language_secondary":        {"type": "string"},
    "text_density":              {"type": "string"},
    "text_clarity":              {"type": "string"},
    "image_quality":             {"type": "string"},
    "orientation":               {"type": "string"},
    "background_complexity":     {"type": "string"},
    "ocr_difficulty":            {"type": "string"},
    "layout_type":               {"type": "string"},
    "sensitive_data_types":      {"type": "array", "items": {"type": "string"}},
    "special_features":          {"type": "array", "items": {"type": "string"}},
    "testing_scenarios":         {"type": "array", "items": {"type": "string"}},
    "challenge_factors":         {"type": "array", "items": {"type": "string"}},
    "confidence_score":          {"type": "number", "minimum": 0, "maximum": 1},
    "recommended_preprocessing": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["document_category"]
}`

// compiledSchema is built once at init; the schema is a compile-time
// constant, so failure here is a programming error.
var compiledSchema = jsonschema.MustCompileString("record.json", recordSchema)

// validateRecord checks the sanitized model output against the record
// schema. The input must already be unmarshaled (jsonschema validates
// decoded values, not raw bytes).
func validateRecord(doc any) error {
	if err := compiledSchema.Validate(doc); err != nil {
		// The validator's multi-line error dumps the whole instance;
		// keep the first line, which names the failing keyword.
		msg := err.Error()
		if i := strings.IndexByte(msg, '\n'); i > 0 {
			msg = msg[:i]
		}
		return fmt.Errorf("schema validation failed: %s", msg)
	}
	return nil
}
