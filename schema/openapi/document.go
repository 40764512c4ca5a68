package openapi

import (
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Response describes one status code of an operation. Body is a sample value
// whose type describes the payload; nil means no body.
type Response struct {
	Description string
	Body        any
}

// Parameter is a query parameter.
type Parameter struct {
	Name        string
	Description string
	Required    bool
}

// Operation describes one method on one path.
type Operation struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Query       []Parameter
	Request     any
	Responses   map[int]Response
}

// Builder assembles an OpenAPI document from registered components and
// operations.
type Builder struct {
	config     documentConfig
	components map[string]reflect.Type
	refs       map[reflect.Type]string
	operations []Operation
}

// NewBuilder constructs an empty document builder.
func NewBuilder(opts ...Option) *Builder {
	cfg := defaultDocumentConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Builder{
		config:     cfg,
		components: map[string]reflect.Type{},
		refs:       map[reflect.Type]string{},
	}
}

// Component publishes the struct type of sample under components/schemas.
// Later references to the type become $ref pointers.
func (b *Builder) Component(name string, sample any) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("openapi: component name must not be empty")
	}
	rt := reflect.TypeOf(sample)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return fmt.Errorf("openapi: component %q must be a struct, got %v", name, rt)
	}
	if _, exists := b.components[name]; exists {
		return fmt.Errorf("openapi: component %q already registered", name)
	}
	b.components[name] = rt
	b.refs[rt] = name
	return nil
}

// Add queues an operation for the document.
func (b *Builder) Add(op Operation) {
	b.operations = append(b.operations, op)
}

// Build renders the document. It fails on malformed or duplicate operations.
func (b *Builder) Build() (map[string]any, error) {
	paths := map[string]any{}
	for _, op := range b.operations {
		method := strings.ToLower(strings.TrimSpace(op.Method))
		if !validMethod(method) {
			return nil, fmt.Errorf("openapi: unsupported method %q for %s", op.Method, op.Path)
		}
		if !strings.HasPrefix(op.Path, "/") {
			return nil, fmt.Errorf("openapi: path %q must start with /", op.Path)
		}
		item, _ := paths[op.Path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[op.Path] = item
		}
		if _, exists := item[method]; exists {
			return nil, fmt.Errorf("openapi: duplicate operation %s %s", method, op.Path)
		}
		rendered, err := b.operation(method, op)
		if err != nil {
			return nil, err
		}
		item[method] = rendered
	}

	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.info(),
		"paths":   paths,
	}
	if len(b.components) > 0 {
		schemas := make(map[string]any, len(b.components))
		for name, rt := range b.components {
			schema, err := schemaBody(rt, b.refs)
			if err != nil {
				return nil, err
			}
			schemas[name] = schema
		}
		document["components"] = map[string]any{"schemas": schemas}
	}
	return document, nil
}

func (b *Builder) info() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

func (b *Builder) operation(method string, op Operation) (map[string]any, error) {
	out := map[string]any{}
	if op.OperationID != "" {
		out["operationId"] = op.OperationID
	} else {
		out["operationId"] = method + ":" + op.Path
	}
	if op.Summary != "" {
		out["summary"] = op.Summary
	}
	if len(op.Query) > 0 {
		params := make([]any, 0, len(op.Query))
		for _, p := range op.Query {
			param := map[string]any{
				"name":     p.Name,
				"in":       "query",
				"required": p.Required,
				"schema":   map[string]any{"type": "string"},
			}
			if p.Description != "" {
				param["description"] = p.Description
			}
			params = append(params, param)
		}
		out["parameters"] = params
	}
	if op.Request != nil {
		schema, err := schemaForType(reflect.TypeOf(op.Request), b.refs)
		if err != nil {
			return nil, err
		}
		out["requestBody"] = map[string]any{
			"required": true,
			"content":  b.content(schema),
		}
	}

	if len(op.Responses) == 0 {
		return nil, fmt.Errorf("openapi: operation %s %s has no responses", method, op.Path)
	}
	codes := make([]int, 0, len(op.Responses))
	for code := range op.Responses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	responses := make(map[string]any, len(codes))
	for _, code := range codes {
		resp := op.Responses[code]
		description := resp.Description
		if description == "" {
			description = http.StatusText(code)
		}
		rendered := map[string]any{"description": description}
		if resp.Body != nil {
			schema, err := schemaForType(reflect.TypeOf(resp.Body), b.refs)
			if err != nil {
				return nil, err
			}
			rendered["content"] = b.content(schema)
		}
		responses[strconv.Itoa(code)] = rendered
	}
	out["responses"] = responses
	return out, nil
}

func (b *Builder) content(schema map[string]any) map[string]any {
	return map[string]any{
		b.config.contentType: map[string]any{"schema": schema},
	}
}

func validMethod(method string) bool {
	switch method {
	case "get", "put", "post", "delete", "options", "head", "patch", "trace":
		return true
	default:
		return false
	}
}
