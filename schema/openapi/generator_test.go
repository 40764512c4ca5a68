package openapi

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

type point struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	X     int    `json:"x"`
}

type envelope struct {
	World    string            `json:"world"`
	Point    point             `json:"point"`
	Note     string            `json:"note,omitempty"`
	Count    *int              `json:"count"`
	Tags     []string          `json:"tags"`
	ByWorld  map[string]point  `json:"by_world"`
	Extra    map[string]string `json:"-"`
	At       time.Time         `json:"at"`
	Raw      []byte            `json:"raw,omitempty"`
	internal string
}

func TestSchemaForStruct(t *testing.T) {
	schema, err := Schema(envelope{})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	props := schema["properties"].(map[string]any)
	if _, ok := props["Extra"]; ok {
		t.Fatalf("json:\"-\" field should be skipped")
	}
	if _, ok := props["internal"]; ok {
		t.Fatalf("unexported field should be skipped")
	}
	if got := props["at"].(map[string]any)["format"]; got != "date-time" {
		t.Fatalf("expected date-time format, got %v", got)
	}
	if got := props["raw"].(map[string]any)["format"]; got != "byte" {
		t.Fatalf("expected byte format, got %v", got)
	}
	tags := props["tags"].(map[string]any)
	if tags["type"] != "array" || tags["items"].(map[string]any)["type"] != "string" {
		t.Fatalf("unexpected tags schema: %v", tags)
	}
	byWorld := props["by_world"].(map[string]any)
	inner := byWorld["additionalProperties"].(map[string]any)
	if inner["type"] != "object" {
		t.Fatalf("expected inline object for map values, got %v", inner)
	}

	required := schema["required"].([]string)
	want := []string{"at", "by_world", "point", "tags", "world"}
	if !reflect.DeepEqual(required, want) {
		t.Fatalf("required = %v, want %v", required, want)
	}
}

func TestSchemaRejectsUnsupportedTypes(t *testing.T) {
	if _, err := Schema(map[int]string{}); err == nil {
		t.Fatalf("expected error for non-string map keys")
	}
	if _, err := Schema(struct{ C chan int }{}); err == nil {
		t.Fatalf("expected error for channel field")
	}
}

func TestBuilderDocument(t *testing.T) {
	b := NewBuilder(
		WithOpenAPIVersion("3.1.0"),
		WithInfo("Test API", "2.0.0", WithInfoDescription("points")),
	)
	if err := b.Component("Point", point{}); err != nil {
		t.Fatalf("component: %v", err)
	}
	b.Add(Operation{
		Method:  "GET",
		Path:    "/points",
		Summary: "List points",
		Query:   []Parameter{{Name: "world", Description: "filter"}},
		Responses: map[int]Response{
			200: {Body: map[string][]point{}},
		},
	})
	b.Add(Operation{
		Method:      "post",
		Path:        "/points",
		OperationID: "addPoint",
		Request:     &point{},
		Responses: map[int]Response{
			201: {Description: "Created", Body: point{}},
			400: {},
		},
	})

	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if doc["openapi"] != "3.1.0" {
		t.Fatalf("unexpected version %v", doc["openapi"])
	}
	info := doc["info"].(map[string]any)
	if info["title"] != "Test API" || info["description"] != "points" {
		t.Fatalf("unexpected info %v", info)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`"$ref":"#/components/schemas/Point"`,
		`"operationId":"get:/points"`,
		`"operationId":"addPoint"`,
		`"400":{"description":"Bad Request"}`,
		`"in":"query"`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("document missing %s:\n%s", want, text)
		}
	}

	schemas := doc["components"].(map[string]any)["schemas"].(map[string]any)
	pointSchema := schemas["Point"].(map[string]any)
	if _, ok := pointSchema["$ref"]; ok {
		t.Fatalf("component body should be inline, got %v", pointSchema)
	}
}

func TestBuilderErrors(t *testing.T) {
	b := NewBuilder()
	if err := b.Component("", point{}); err == nil {
		t.Fatalf("expected empty name error")
	}
	if err := b.Component("Bad", 3); err == nil {
		t.Fatalf("expected non-struct error")
	}
	if err := b.Component("Point", point{}); err != nil {
		t.Fatalf("component: %v", err)
	}
	if err := b.Component("Point", point{}); err == nil {
		t.Fatalf("expected duplicate component error")
	}

	cases := []Operation{
		{Method: "FETCH", Path: "/x", Responses: map[int]Response{200: {}}},
		{Method: "GET", Path: "x", Responses: map[int]Response{200: {}}},
		{Method: "GET", Path: "/x"},
	}
	for _, op := range cases {
		b := NewBuilder()
		b.Add(op)
		if _, err := b.Build(); err == nil {
			t.Fatalf("expected error for %+v", op)
		}
	}

	dup := NewBuilder()
	dup.Add(Operation{Method: "GET", Path: "/x", Responses: map[int]Response{200: {}}})
	dup.Add(Operation{Method: "get", Path: "/x", Responses: map[int]Response{200: {}}})
	if _, err := dup.Build(); err == nil {
		t.Fatalf("expected duplicate operation error")
	}
}
