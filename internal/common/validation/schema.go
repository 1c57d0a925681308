package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// CanonicalResultSchema accepts any object that carries the record's
// top-level keys. Field-level shape is repaired by normalization, so items
// are only required to be objects.
const CanonicalResultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "status": {"type": "string"},
    "gems": {"type": "array", "items": {"type": "object"}},
    "message": {"type": ["string", "null"]}
  },
  "anyOf": [
    {"required": ["gems"]},
    {"required": ["status"]}
  ]
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SchemaValidator validates decoded JSON documents against a compiled schema.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

func NewSchemaValidator(schemaJSON string) (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate checks a Go value produced by unmarshalling JSON.
func (v *SchemaValidator) Validate(doc interface{}) *ValidationResult {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "SCHEMA_LOAD_FAILED"}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out
}

var (
	canonicalOnce      sync.Once
	canonicalValidator *SchemaValidator
)

// CanonicalResult returns the shared validator for canonical records.
func CanonicalResult() *SchemaValidator {
	canonicalOnce.Do(func() {
		v, err := NewSchemaValidator(CanonicalResultSchema)
		if err != nil {
			panic(err)
		}
		canonicalValidator = v
	})
	return canonicalValidator
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs `validate` struct tags and reports failures with the
// JSON field names.
func ValidateStruct(s interface{}) *ValidationResult {
	err := validate.Struct(s)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "INVALID_INPUT"}},
		}
	}

	out := &ValidationResult{Valid: false}
	for _, fe := range validationErrors {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fe.Field(),
			Message: describe(fe),
			Code:    strings.ToUpper(fe.Tag()) + "_VIOLATION",
		})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field missing"
	case "min":
		return fmt.Sprintf("value must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("value must be at most %s characters", fe.Param())
	case "uuid", "uuid4":
		return "value must be a valid UUID"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
