package store

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/memstore/errors"
)

// FieldRule constrains a single field path. Zero-valued length bounds are
// treated as unset; length bounds apply only to string values.
type FieldRule struct {
	Required  bool   `json:"required"             yaml:"required"`
	Type      string `json:"type,omitempty"       yaml:"type,omitempty"`
	MinLength int    `json:"min_length,omitempty" yaml:"minLength,omitempty"`
	MaxLength int    `json:"max_length,omitempty" yaml:"maxLength,omitempty"`
}

// Recognized values for FieldRule.Type.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Schema maps dotted field paths to rules. A nil Schema performs no
// structural validation beyond system fields.
type Schema map[string]FieldRule

// Violation describes one failed rule during validation.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError carries the full list of violated rules so calling
// layers can render field-level messages.
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return errors.ErrValidationFailed.Error()
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Message
	}
	return fmt.Sprintf("%s: %s", errors.ErrValidationFailed.Error(), strings.Join(parts, "; "))
}

// Unwrap ties the error into the store taxonomy.
func (e *ValidationError) Unwrap() error {
	return errors.ErrValidationFailed
}

// Validate checks an item's field map against the schema. Returns a
// *ValidationError listing every violated rule, or nil when the fields
// conform.
func (s Schema) Validate(fields map[string]any) error {
	if len(s) == 0 {
		return nil
	}

	var violations []Violation
	for path, rule := range s {
		value, present := resolvePath(fields, path)

		if !present || value == nil {
			if rule.Required {
				violations = append(violations, Violation{
					Field:   path,
					Rule:    "required",
					Message: fmt.Sprintf("field %q is required", path),
				})
			}
			continue
		}

		if rule.Type != "" && !typeMatches(rule.Type, value) {
			violations = append(violations, Violation{
				Field:   path,
				Rule:    "type",
				Message: fmt.Sprintf("field %q must be of type %s", path, rule.Type),
			})
			continue
		}

		if str, ok := value.(string); ok {
			if rule.MinLength > 0 && len(str) < rule.MinLength {
				violations = append(violations, Violation{
					Field:   path,
					Rule:    "minLength",
					Message: fmt.Sprintf("field %q must be at least %d characters", path, rule.MinLength),
				})
			}
			if rule.MaxLength > 0 && len(str) > rule.MaxLength {
				violations = append(violations, Violation{
					Field:   path,
					Rule:    "maxLength",
					Message: fmt.Sprintf("field %q must be at most %d characters", path, rule.MaxLength),
				})
			}
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// clone returns an independent copy of the schema.
func (s Schema) clone() Schema {
	if s == nil {
		return nil
	}
	cp := make(Schema, len(s))
	for path, rule := range s {
		cp[path] = rule
	}
	return cp
}

// typeMatches reports whether a value satisfies a schema type name.
func typeMatches(typeName string, value any) bool {
	switch typeName {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeObject:
		_, ok := value.(map[string]any)
		return ok
	case TypeArray:
		_, ok := value.([]any)
		return ok
	default:
		// Unknown type names never match; Validate reports the mismatch
		return false
	}
}

// LoadSchemaFile reads a Schema from a YAML file keyed by field path:
//
//	name:
//	  required: true
//	  type: string
//	  maxLength: 64
//	details.priority:
//	  type: number
func LoadSchemaFile(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Schema", "LoadSchemaFile", "read schema file")
	}

	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, errors.WrapInvalid(err, "Schema", "LoadSchemaFile", "parse schema file")
	}

	for fieldPath, rule := range schema {
		if rule.Type == "" {
			continue
		}
		switch rule.Type {
		case TypeString, TypeNumber, TypeBoolean, TypeObject, TypeArray:
		default:
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Schema", "LoadSchemaFile",
				fmt.Sprintf("unknown type %q for field %q", rule.Type, fieldPath))
		}
	}

	return schema, nil
}
