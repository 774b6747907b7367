package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrSchemaInvalid reports a schema that could not be compiled.
	ErrSchemaInvalid = errors.New("schema invalid")
	// ErrPayloadInvalid reports an API payload that does not match its schema.
	ErrPayloadInvalid = errors.New("payload validation failed")
)

// ValidationIssue captures a single validation failure.
type ValidationIssue struct {
	Location string
	Message  string
}

// PayloadValidationError surfaces validation issues with schema-aware context.
type PayloadValidationError struct {
	Resource string
	Issues   []ValidationIssue
}

func (e *PayloadValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		location := strings.TrimSpace(issue.Location)
		if location == "" {
			location = "#"
		} else if !strings.HasPrefix(location, "#") {
			location = "#" + location
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, issue.Message))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: %s", e.Resource, ErrPayloadInvalid)
	}
	return fmt.Sprintf("%s: %s", e.Resource, strings.Join(parts, "; "))
}

func (e *PayloadValidationError) Unwrap() error {
	return ErrPayloadInvalid
}

// Issues extracts validation issues from an error.
func Issues(err error) []ValidationIssue {
	if err == nil {
		return nil
	}
	var payloadErr *PayloadValidationError
	if errors.As(err, &payloadErr) && payloadErr != nil {
		return payloadErr.Issues
	}
	return []ValidationIssue{{Message: err.Error()}}
}

const filterDefinitionsSchema = `{
  "type": "object",
  "required": ["data"],
  "properties": {
    "data": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "type"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "min": {"type": ["number", "null"]},
          "max": {"type": ["number", "null"]},
          "options": {
            "type": ["array", "null"],
            "items": {
              "type": "object",
              "required": ["value"],
              "properties": {
                "label": {"type": "string"},
                "value": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

const listResponseSchema = `{
  "type": "object",
  "required": ["data"],
  "properties": {
    "data": {"type": "array", "items": {"type": "object"}},
    "totalCount": {"type": "integer", "minimum": 0}
  }
}`

var (
	filterDefinitions = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return compileSchema("filters.json", filterDefinitionsSchema)
	})
	listResponse = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return compileSchema("experts.json", listResponseSchema)
	})
)

// ValidateFilterDefinitions checks a raw filters endpoint payload.
func ValidateFilterDefinitions(payload []byte) error {
	return validatePayload("filters", filterDefinitions, payload)
}

// ValidateListResponse checks a raw paginated experts payload.
func ValidateListResponse(payload []byte) error {
	return validatePayload("experts", listResponse, payload)
}

func validatePayload(resource string, load func() (*jsonschema.Schema, error), payload []byte) error {
	schema, err := load()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	var document any
	if err := json.Unmarshal(payload, &document); err != nil {
		return &PayloadValidationError{
			Resource: resource,
			Issues:   []ValidationIssue{{Message: err.Error()}},
		}
	}
	if err := schema.Validate(document); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return &PayloadValidationError{Resource: resource, Issues: collectValidationIssues(validationErr)}
		}
		return &PayloadValidationError{Resource: resource, Issues: []ValidationIssue{{Message: err.Error()}}}
	}
	return nil
}

func compileSchema(name, schema string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, bytes.NewReader([]byte(schema))); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

func collectValidationIssues(err *jsonschema.ValidationError) []ValidationIssue {
	issues := []ValidationIssue{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, ValidationIssue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
