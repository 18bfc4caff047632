package llm

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// Type is a JSON schema type name.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema is the subset of JSON schema that the providers accept for
// structured output: types, enums, required fields, nested objects/arrays.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Nullable    bool               `json:"nullable,omitempty"`
}

// Schema constructors keep handler schema tables compact.

func String(desc string) *Schema { return &Schema{Type: TypeString, Description: desc} }

func Number(desc string) *Schema { return &Schema{Type: TypeNumber, Description: desc} }

func Integer(desc string) *Schema { return &Schema{Type: TypeInteger, Description: desc} }

func Boolean(desc string) *Schema { return &Schema{Type: TypeBoolean, Description: desc} }

func Enum(desc string, values ...string) *Schema {
	return &Schema{Type: TypeString, Description: desc, Enum: values}
}

func ArrayOf(items *Schema) *Schema { return &Schema{Type: TypeArray, Items: items} }

// Object builds an object schema; every listed property is required unless
// it is marked Nullable.
func Object(props map[string]*Schema) *Schema {
	required := make([]string, 0, len(props))
	for name, p := range props {
		if p != nil && !p.Nullable {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

// Optional marks s as not required in its parent object.
func Optional(s *Schema) *Schema {
	c := *s
	c.Nullable = true
	return &c
}

// Validate checks a value decoded by encoding/json into interface{} against
// the schema and returns a *ValidationError listing every problem found.
func (s *Schema) Validate(v any) error {
	if s == nil {
		return nil
	}
	var problems []string
	s.validate("$", v, &problems)
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (s *Schema) validate(path string, v any, problems *[]string) {
	if v == nil {
		if !s.Nullable {
			*problems = append(*problems, fmt.Sprintf("%s: expected %s, got null", path, s.Type))
		}
		return
	}
	switch s.Type {
	case TypeString:
		str, ok := v.(string)
		if !ok {
			*problems = append(*problems, fmt.Sprintf("%s: expected string, got %s", path, jsonKind(v)))
			return
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
			*problems = append(*problems, fmt.Sprintf("%s: %q is not one of %v", path, str, s.Enum))
		}
	case TypeNumber:
		if _, ok := v.(float64); !ok {
			*problems = append(*problems, fmt.Sprintf("%s: expected number, got %s", path, jsonKind(v)))
		}
	case TypeInteger:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			*problems = append(*problems, fmt.Sprintf("%s: expected integer, got %s", path, jsonKind(v)))
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			*problems = append(*problems, fmt.Sprintf("%s: expected boolean, got %s", path, jsonKind(v)))
		}
	case TypeArray:
		items, ok := v.([]any)
		if !ok {
			*problems = append(*problems, fmt.Sprintf("%s: expected array, got %s", path, jsonKind(v)))
			return
		}
		if s.Items == nil {
			return
		}
		for i, item := range items {
			s.Items.validate(fmt.Sprintf("%s[%d]", path, i), item, problems)
		}
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			*problems = append(*problems, fmt.Sprintf("%s: expected object, got %s", path, jsonKind(v)))
			return
		}
		for _, name := range s.Required {
			if _, present := obj[name]; !present {
				*problems = append(*problems, fmt.Sprintf("%s.%s: required field missing", path, name))
			}
		}
		names := make([]string, 0, len(s.Properties))
		for name := range s.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			value, present := obj[name]
			if !present {
				continue
			}
			s.Properties[name].validate(path+"."+name, value, problems)
		}
	}
}

func jsonKind(v any) string {
	switch v := v.(type) {
	case string:
		return "string"
	case float64:
		if v == math.Trunc(v) {
			return "integer"
		}
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
