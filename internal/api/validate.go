package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchemaJSON is the JSON Schema for the schema-document shape
// accepted by POST / and POST /names/<name>/versions (spec §4.1). It
// is deliberately loose about field internals (the field union is
// validated in full by internal/schema.Parse) and exists only to turn
// a structurally malformed request body into a precise pointer before
// that codec ever sees it.
const documentSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "fields"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "doc": {"type": "string"},
    "type": {"type": "string"},
    "fields": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "type"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string"}
        }
      }
    }
  }
}`

var documentSchema = compileDocumentSchema()

func compileDocumentSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("document.json", bytes.NewReader([]byte(documentSchemaJSON))); err != nil {
		panic(fmt.Sprintf("api: invalid embedded document schema: %v", err))
	}
	return compiler.MustCompile("document.json")
}

// validateDocumentShape checks body against documentSchema, returning
// a validation error with a JSON pointer to the first offending field
// when the shape is wrong. internal/schema.Parse still performs the
// full semantic validation (field union, duplicate names, record-array
// ordering); this is a fast, precise rejection of the common case of a
// malformed request body.
func validateDocumentShape(body []byte) error {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errInvalidArgument, err)
	}
	if err := documentSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgument, err)
	}
	return nil
}
