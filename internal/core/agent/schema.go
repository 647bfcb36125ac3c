package agent

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// DescribeSchema serializes a JSON-Schema-style description of a Go type so
// the model can be instructed what shape to produce. Field names follow the
// json struct tags; pointer and omitempty fields are optional.
func DescribeSchema(t reflect.Type) (string, error) {
	desc, err := describeType(t, map[reflect.Type]bool{})
	if err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize schema: %w", err)
	}
	return string(raw), nil
}

func describeType(t reflect.Type, seen map[reflect.Type]bool) (map[string]any, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == timeType {
		return map[string]any{"type": "string", "format": "date-time"}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}, nil
	case reflect.Slice, reflect.Array:
		items, err := describeType(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "array", "items": items}, nil
	case reflect.Map:
		values, err := describeType(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "object", "additionalProperties": values}, nil
	case reflect.Struct:
		return describeStruct(t, seen)
	case reflect.Interface:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("unsupported schema type %s", t)
	}
}

func describeStruct(t reflect.Type, seen map[reflect.Type]bool) (map[string]any, error) {
	// Cycle guard.
	if seen[t] {
		return map[string]any{"type": "object"}, nil
	}
	seen[t] = true
	defer delete(seen, t)

	properties := make(map[string]any)
	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, opts := parseJSONTag(field)
		if name == "-" {
			continue
		}

		prop, err := describeType(field.Type, seen)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name(), field.Name, err)
		}
		properties[name] = prop

		if field.Type.Kind() != reflect.Pointer && !opts.omitempty {
			required = append(required, name)
		}
	}

	desc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		desc["required"] = required
	}
	return desc, nil
}

type tagOptions struct {
	omitempty bool
}

func parseJSONTag(field reflect.StructField) (string, tagOptions) {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name, tagOptions{}
	}
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		name = field.Name
	}
	var opts tagOptions
	for _, p := range parts[1:] {
		if p == "omitempty" {
			opts.omitempty = true
		}
	}
	return name, opts
}
