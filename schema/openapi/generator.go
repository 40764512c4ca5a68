// Package openapi derives OpenAPI 3 documents from Go types so the JSON API
// can describe itself.
package openapi

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// Schema returns the schema for the type of value. Pointers are followed and
// struct fields use their json tag names.
func Schema(value any) (map[string]any, error) {
	return schemaForType(reflect.TypeOf(value), nil)
}

// schemaForType builds a schema for rt. Named struct types present in refs
// are emitted as $ref pointers into components.
func schemaForType(rt reflect.Type, refs map[reflect.Type]string) (map[string]any, error) {
	if rt == nil {
		return map[string]any{"type": "null"}, nil
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if name, ok := refs[rt]; ok {
		return map[string]any{"$ref": componentRef(name)}, nil
	}
	return schemaBody(rt, refs)
}

func schemaBody(rt reflect.Type, refs map[reflect.Type]string) (map[string]any, error) {
	switch rt.Kind() {
	case reflect.Interface:
		return map[string]any{}, nil
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}, nil
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Struct:
		if rt == timeType {
			return map[string]any{"type": "string", "format": "date-time"}, nil
		}
		return schemaForStruct(rt, refs)
	case reflect.Map:
		if rt.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("openapi: map key type %s unsupported", rt.Key())
		}
		child, err := schemaForType(rt.Elem(), refs)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "object", "additionalProperties": child}, nil
	case reflect.Slice, reflect.Array:
		if rt.Elem().Kind() == reflect.Uint8 {
			return map[string]any{"type": "string", "format": "byte"}, nil
		}
		items, err := schemaForType(rt.Elem(), refs)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "array", "items": items}, nil
	default:
		return nil, fmt.Errorf("openapi: type %s unsupported", rt)
	}
}

func schemaForStruct(rt reflect.Type, refs map[reflect.Type]string) (map[string]any, error) {
	properties := map[string]any{}
	var required []string

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonName(field)
		if skip {
			continue
		}
		child, err := schemaForType(field.Type, refs)
		if err != nil {
			return nil, fmt.Errorf("openapi: field %s.%s: %w", rt.Name(), field.Name, err)
		}
		properties[name] = child
		if !omitEmpty && field.Type.Kind() != reflect.Pointer {
			required = append(required, name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sort.Strings(required)
		schema["required"] = required
	}
	return schema, nil
}

func jsonName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	name = field.Name
	tag := field.Tag.Get("json")
	if tag == "" {
		return name, false, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "-" && len(parts) == 1 {
		return "", false, true
	}
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func componentRef(name string) string {
	return "#/components/schemas/" + name
}
