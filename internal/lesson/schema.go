package lesson

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// RecordSchema is the JSON Schema of the lesson interchange record. The Go
// validator in the domain package remains authoritative; this document is
// what consumers of the records can check against.
const RecordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Lesson",
  "type": "object",
  "required": ["name", "intro", "steps"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "intro": {"type": "string"},
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {"$ref": "#/$defs/step"}
    }
  },
  "$defs": {
    "step": {
      "type": "object",
      "required": ["id", "type", "points", "text"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "type": {"enum": ["text", "mcq"]},
        "points": {"type": "integer", "minimum": 0},
        "text": {"type": "string", "minLength": 1},
        "answers": {
          "type": "array",
          "minItems": 2,
          "uniqueItems": true,
          "items": {"type": "string"}
        },
        "correctAnswer": {"type": "string"}
      },
      "if": {"properties": {"type": {"const": "mcq"}}},
      "then": {"required": ["answers", "correctAnswer"]},
      "else": {
        "not": {
          "anyOf": [
            {"required": ["answers"]},
            {"required": ["correctAnswer"]}
          ]
        }
      }
    }
  }
}`

// ScoreRequestSchema is the JSON Schema of a score request body
const ScoreRequestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "ScoreRequest",
  "type": "object",
  "required": ["responses"],
  "properties": {
    "responses": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    }
  },
  "additionalProperties": false
}`

// AttemptRequestSchema is the JSON Schema of a recorded attempt body
const AttemptRequestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "AttemptRequest",
  "type": "object",
  "required": ["lesson", "responses"],
  "properties": {
    "lesson": {"type": "string", "pattern": "^[^/]+/[^/]+$"},
    "responses": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    }
  },
  "additionalProperties": false
}`

// schemaCache caches compiled schemas by name
var schemaCache sync.Map // map[string]*jsonschema.Schema

// ValidateRecordJSON checks a JSON document against RecordSchema
func ValidateRecordJSON(data []byte) error {
	return validateJSON("lesson", RecordSchema, data)
}

// ValidateScoreRequest checks a JSON request body against ScoreRequestSchema
func ValidateScoreRequest(data []byte) error {
	return validateJSON("score-request", ScoreRequestSchema, data)
}

// ValidateAttemptRequest checks a JSON request body against
// AttemptRequestSchema
func ValidateAttemptRequest(data []byte) error {
	return validateJSON("attempt-request", AttemptRequestSchema, data)
}

func validateJSON(name, definition string, data []byte) error {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("%w: invalid JSON: %w", domain.ErrInvalidInput, err)
	}

	compiled, err := compiledSchema(name, definition)
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", name, err)
	}

	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

// compiledSchema returns a cached compiled schema or compiles and caches it
func compiledSchema(name, definition string) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	var def any
	if err := json.Unmarshal([]byte(definition), &def); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://primer/%s.json", name)
	if err := c.AddResource(schemaURL, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}
