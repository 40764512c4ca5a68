package markers

import (
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-markers/pkg/document"
)

func TestEnsureMarkerSetCreatesDefaults(t *testing.T) {
	doc := document.Tree{"unrelated": map[string]any{"keep": true}}

	got, err := EnsureMarkerSet(doc, "marker-sets", "user-pois", "")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	set, ok, err := document.LookupMapping(got, "marker-sets", "user-pois")
	if err != nil || !ok {
		t.Fatalf("expected marker set, ok=%t err=%v", ok, err)
	}
	want := MarkerSetDefaults(DefaultSetLabel)
	if !reflect.DeepEqual(set, want) {
		t.Fatalf("unexpected defaults:\n got %#v\nwant %#v", set, want)
	}
	if keep, _ := document.Lookup(got, "unrelated", "keep"); keep != true {
		t.Fatalf("unrelated content lost: %#v", got)
	}
	if _, ok := doc["marker-sets"]; ok {
		t.Fatalf("input document must not be mutated")
	}
}

func TestEnsureMarkerSetIsIdempotent(t *testing.T) {
	docs := []document.Tree{
		nil,
		{},
		{"marker-sets": map[string]any{"other": map[string]any{"label": "Other"}}},
		{"marker-sets": map[string]any{"user-pois": map[string]any{}}},
	}
	for _, doc := range docs {
		once, err := EnsureMarkerSet(doc, "marker-sets", "user-pois", "Mine")
		if err != nil {
			t.Fatalf("ensure once: %v", err)
		}
		twice, err := EnsureMarkerSet(once, "marker-sets", "user-pois", "Mine")
		if err != nil {
			t.Fatalf("ensure twice: %v", err)
		}
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("ensure not idempotent:\n once %#v\ntwice %#v", once, twice)
		}
		if label, _ := document.Lookup(once, "marker-sets", "user-pois", "label"); label != "Mine" {
			t.Fatalf("expected configured label, got %v", label)
		}
	}
}

func TestEnsureMarkerSetKeepsExistingSet(t *testing.T) {
	doc := document.Tree{
		"marker-sets": map[string]any{
			"user-pois": map[string]any{
				"label":   "Hand Edited",
				"sorting": 5,
				"markers": map[string]any{"spawn": map[string]any{"label": "Spawn"}},
			},
		},
	}
	got, err := EnsureMarkerSet(doc, "marker-sets", "user-pois", "Ignored")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Fatalf("existing set must be left alone: %#v", got)
	}
}

func TestEnsureMarkerSetRejectsScalarNodes(t *testing.T) {
	docs := []document.Tree{
		{"marker-sets": "not a mapping"},
		{"marker-sets": map[string]any{"user-pois": "also not"}},
	}
	for _, doc := range docs {
		if _, err := EnsureMarkerSet(doc, "marker-sets", "user-pois", ""); !errors.Is(err, ErrDocumentParse) {
			t.Fatalf("expected ErrDocumentParse for %#v, got %v", doc, err)
		}
	}
}
