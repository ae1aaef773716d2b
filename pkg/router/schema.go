package router

import (
	"encoding/json"
	"reflect"
	"slices"
	"strings"
	"time"
)

const schemaRefPrefix = "#/components/schemas/"

var (
	timeType       = reflect.TypeOf(time.Time{})
	rawMessageType = reflect.TypeOf(json.RawMessage{})
)

// schemaRegistry tracks schema definitions to enable reuse
type schemaRegistry struct {
	schemas map[string]map[string]any
}

// newSchemaRegistry creates a new schema registry
func newSchemaRegistry() *schemaRegistry {
	return &schemaRegistry{
		schemas: make(map[string]map[string]any),
	}
}

// register adds a schema to the registry
func (r *schemaRegistry) register(typeName string, schema map[string]any) {
	r.schemas[typeName] = schema
}

// has reports whether typeName was registered
func (r *schemaRegistry) has(typeName string) bool {
	_, ok := r.schemas[typeName]
	return ok
}

// getSchemas returns all registered schemas
func (r *schemaRegistry) getSchemas() map[string]any {
	result := make(map[string]any, len(r.schemas))
	for name, schema := range r.schemas {
		result[name] = schema
	}
	return result
}

// schemaGenerator converts Go types to JSON Schema. Named structs are
// registered once and referenced, which also resolves recursive types.
type schemaGenerator struct {
	registry   *schemaRegistry
	inProgress map[reflect.Type]bool
}

// newSchemaGenerator creates a generator registering into registry
func newSchemaGenerator(registry *schemaRegistry) *schemaGenerator {
	return &schemaGenerator{
		registry:   registry,
		inProgress: make(map[reflect.Type]bool),
	}
}

// typeSchema returns the schema for typ, or a reference for named structs
func (g *schemaGenerator) typeSchema(typ reflect.Type) map[string]any {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	switch typ {
	case timeType:
		return map[string]any{"type": "string", "format": "date-time"}
	case rawMessageType:
		return map[string]any{"type": "object"}
	}

	if schema := basicTypeSchema(typ.Kind()); schema != nil {
		return schema
	}

	switch typ.Kind() {
	case reflect.Struct:
		return g.structRef(typ)
	case reflect.Slice, reflect.Array:
		return map[string]any{
			"type":  "array",
			"items": g.typeSchema(typ.Elem()),
		}
	case reflect.Map:
		return map[string]any{
			"type":                 "object",
			"additionalProperties": g.typeSchema(typ.Elem()),
		}
	default:
		return map[string]any{"type": "object"}
	}
}

// structRef inlines anonymous structs and references named ones
func (g *schemaGenerator) structRef(typ reflect.Type) map[string]any {
	name := typ.Name()
	if name == "" {
		return g.structSchema(typ)
	}

	if !g.registry.has(name) && !g.inProgress[typ] {
		g.inProgress[typ] = true
		g.registry.register(name, g.structSchema(typ))
		delete(g.inProgress, typ)
	}

	return map[string]any{"$ref": schemaRefPrefix + name}
}

// structSchema converts a struct type to an object schema
func (g *schemaGenerator) structSchema(typ reflect.Type) map[string]any {
	properties := make(map[string]any)
	required := []string{}

	g.collectFields(typ, properties, &required)

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// collectFields adds the JSON visible fields of typ, flattening embedded structs
func (g *schemaGenerator) collectFields(typ reflect.Type, properties map[string]any, required *[]string) {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		if field.Anonymous && jsonTag == "" {
			embedded := field.Type
			if embedded.Kind() == reflect.Ptr {
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				g.collectFields(embedded, properties, required)
				continue
			}
		}

		// skip unexported fields
		if !field.IsExported() {
			continue
		}

		name, isRequired := parseJsonTag(jsonTag, field.Name)
		if isRequired {
			*required = append(*required, name)
		}

		properties[name] = g.processField(field)
	}
}

// parseJsonTag extracts name and required status from a json tag
func parseJsonTag(jsonTag, fieldName string) (string, bool) {
	if jsonTag == "" {
		return fieldName, true
	}

	parts := strings.Split(jsonTag, ",")
	name := parts[0]
	if name == "" {
		name = fieldName
	}

	optional := slices.Contains(parts[1:], "omitempty") || slices.Contains(parts[1:], "omitzero")
	return name, !optional
}

// processField converts a struct field to a JSON Schema. A format tag marks
// types with custom JSON encoding as strings of that format.
func (g *schemaGenerator) processField(field reflect.StructField) map[string]any {
	var schema map[string]any
	if format := field.Tag.Get("format"); format != "" {
		schema = map[string]any{"type": "string", "format": format}
	} else {
		schema = g.typeSchema(field.Type)
	}

	// references can't carry siblings
	if _, isRef := schema["$ref"]; isRef {
		if doc := field.Tag.Get("doc"); doc != "" {
			return map[string]any{
				"allOf":       []any{schema},
				"description": doc,
			}
		}
		return schema
	}

	addFieldMetadata(schema, field)
	return schema
}

// addFieldMetadata adds documentation from struct tags to a schema
func addFieldMetadata(schema map[string]any, field reflect.StructField) {
	if docTag := field.Tag.Get("doc"); docTag != "" {
		schema["description"] = docTag
	}

	if exampleTag := field.Tag.Get("example"); exampleTag != "" {
		schema["example"] = exampleTag
	}

	if enumTag := field.Tag.Get("enum"); enumTag != "" {
		schema["enum"] = strings.Split(enumTag, ",")
	}
}

// basicTypeSchema creates a schema for a basic Go type
func basicTypeSchema(kind reflect.Kind) map[string]any {
	switch kind {
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.String:
		return map[string]any{"type": "string"}
	default:
		return nil
	}
}

// schemaRef returns the schema for t, registering named structs on the way
func (dr *DocRouter) schemaRef(t any) map[string]any {
	if t == nil {
		return nil
	}

	return newSchemaGenerator(dr.schemaRegistry).typeSchema(reflect.TypeOf(t))
}
