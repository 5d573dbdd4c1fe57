package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/docstreams/errors"
)

// envelopeSchema is the draft-07 JSON schema every inbound envelope is
// validated against before typed decoding. Validation failures
// enumerate every violated field so a malformed envelope is diagnosed
// in one pass instead of one error at a time.
const envelopeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["specversion", "id", "type", "time", "data"],
  "properties": {
    "specversion": {"type": "string", "enum": ["1.0"]},
    "id": {"type": "string", "minLength": 1},
    "type": {"type": "string", "enum": ["document-created", "document-deleted"]},
    "time": {"type": "string"},
    "data": {
      "type": "object",
      "required": ["chainId", "source", "document", "callStack"],
      "properties": {
        "chainId": {"type": "string", "minLength": 1},
        "source": {"$ref": "#/definitions/document"},
        "document": {"$ref": "#/definitions/document"},
        "metadata": {
          "type": "object",
          "properties": {
            "title": {"type": "string"},
            "description": {"type": "string"},
            "authors": {"type": "array", "items": {"type": "string"}},
            "keywords": {"type": "array", "items": {"type": "string"}},
            "topics": {"type": "array", "items": {"type": "string"}},
            "classes": {"type": "array", "items": {"type": "string"}},
            "language": {"type": "string"},
            "publisher": {"type": "string"},
            "ontology": {"$ref": "#/definitions/handle"},
            "properties": {
              "type": "object",
              "required": ["kind"],
              "properties": {
                "kind": {"type": "string", "enum": ["text", "image", "video", "audio", "composite"]}
              }
            },
            "custom": {"type": "object", "additionalProperties": {"type": "string"}}
          }
        },
        "callStack": {"type": "array", "items": {"type": "string"}}
      }
    }
  },
  "definitions": {
    "document": {
      "type": "object",
      "required": ["url", "type", "etag"],
      "properties": {
        "url": {"type": "string", "minLength": 1},
        "type": {"type": "string", "minLength": 1},
        "size": {"type": "integer", "minimum": 0},
        "etag": {"type": "string", "minLength": 1}
      }
    },
    "handle": {
      "type": "object",
      "required": ["uri"],
      "properties": {
        "uri": {"type": "string", "minLength": 1},
        "type": {"type": "string"}
      }
    }
  }
}`

var compiledSchema *gojsonschema.Schema

func init() {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(envelopeSchema))
	if err != nil {
		panic(fmt.Sprintf("event: invalid envelope schema: %v", err))
	}
	compiledSchema = schema
}

// FromJSON parses and validates a serialized envelope. The raw bytes
// are checked against the envelope schema first; a shape violation
// fails with a description naming every violated field, never a
// generic parse error.
func FromJSON(raw []byte) (*CloudEvent, error) {
	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, errors.WrapInvalid(err, "CloudEvent", "FromJSON", "run schema validation")
	}

	if !result.Valid() {
		var fields []string
		for _, desc := range result.Errors() {
			fields = append(fields, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return nil, errors.WrapInvalid(errors.ErrSchemaViolation, "CloudEvent", "FromJSON",
			strings.Join(fields, "; "))
	}

	var evt CloudEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, errors.WrapInvalid(err, "CloudEvent", "FromJSON", "decode envelope")
	}

	if err := evt.Validate(); err != nil {
		return nil, err
	}
	return &evt, nil
}
