package document

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestParseBlankIsEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t\n"} {
		tree, err := Parse([]byte(input))
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", input, err)
		}
		if len(tree) != 0 {
			t.Fatalf("Parse(%q) = %#v, want empty", input, tree)
		}
	}
}

func TestParseHandWrittenDocument(t *testing.T) {
	input := `
# renderer settings
marker-sets {
  pois {
    label = "Points"
    toggleable = true
    sorting = 2
    markers {
      spawn {
        type = "poi"
        label = "Spawn"
        position { x = 1, y = 64, z = -3 }
      }
    }
  }
}
other = [1, 2]
`
	tree, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	label, ok := Lookup(tree, "marker-sets", "pois", "markers", "spawn", "label")
	if !ok || label != "Spawn" {
		t.Fatalf("label = %#v (%t), want Spawn", label, ok)
	}
	z, ok := Lookup(tree, "marker-sets", "pois", "markers", "spawn", "position", "z")
	if n, isInt := Int(z); !ok || !isInt || n != -3 {
		t.Fatalf("z = %#v, want -3", z)
	}
	toggle, _ := Lookup(tree, "marker-sets", "pois", "toggleable")
	if toggle != true {
		t.Fatalf("toggleable = %#v, want true", toggle)
	}
	other, _ := Lookup(tree, "other")
	if list, ok := other.([]any); !ok || len(list) != 2 {
		t.Fatalf("other = %#v, want two element list", other)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse([]byte("marker-sets { pois { "))
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	tree := Tree{
		"marker-sets": map[string]any{
			"pois": map[string]any{
				"label":          "User POIs",
				"toggleable":     true,
				"default-hidden": false,
				"sorting":        0,
				"markers": map[string]any{
					"camp": map[string]any{
						"type":  "poi",
						"label": `Bob's "Camp" {east} \ side`,
						"position": map[string]any{
							"x": -10,
							"y": 70,
							"z": 12345,
						},
						"sorting": 0,
					},
					"2nd-camp": map[string]any{
						"type":  "poi",
						"label": "Zweites Lager ü\nline",
					},
				},
			},
		},
		"unrelated": map[string]any{
			"keep": "me",
			"list": []any{"a", "b"},
			"rate": 1.5,
		},
		"empty": map[string]any{},
	}

	encoded := Encode(tree)
	parsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse(Encode()) error: %v\n%s", err, encoded)
	}
	if !reflect.DeepEqual(tree, parsed) {
		t.Fatalf("round trip mismatch:\nwant: %#v\n got: %#v\n%s", tree, parsed, encoded)
	}
}

func TestEncodeIsStableAndQuotesText(t *testing.T) {
	tree := Tree{"b": "x", "a": map[string]any{"label": `say "hi"`}}
	first := string(Encode(tree))
	second := string(Encode(tree))
	if first != second {
		t.Fatalf("encoding not deterministic")
	}
	if !strings.HasPrefix(first, "a {") {
		t.Fatalf("expected sorted keys, got:\n%s", first)
	}
	if !strings.Contains(first, `label = "say \"hi\""`) {
		t.Fatalf("expected escaped label, got:\n%s", first)
	}
}

func TestEncodeQuotesUnsafeKeys(t *testing.T) {
	cases := map[string]string{
		"spawn":   "spawn",
		"camp-2":  "camp-2",
		"a.b":     `"a.b"`,
		"2nd":     `"2nd"`,
		"include": `"include"`,
		"x y":     `"x y"`,
	}
	for key, want := range cases {
		if got := encodeKey(key); got != want {
			t.Fatalf("encodeKey(%q) = %s, want %s", key, got, want)
		}
	}
}

func TestCheckPath(t *testing.T) {
	tree := Tree{
		"marker-sets": map[string]any{
			"pois":   map[string]any{"markers": "oops"},
			"scalar": 3,
		},
	}
	if err := CheckPath(tree, "marker-sets", "missing", "markers"); err != nil {
		t.Fatalf("missing nodes should pass: %v", err)
	}
	if err := CheckPath(tree, "marker-sets", "pois", "markers"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for scalar markers, got %v", err)
	}
	if err := CheckPath(tree, "marker-sets", "scalar", "markers"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for scalar parent, got %v", err)
	}
}

func TestNestAndIsEmpty(t *testing.T) {
	got := Nest("v", "a", "b")
	want := Tree{"a": map[string]any{"b": "v"}}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("Nest = %#v", got)
	}
	for _, v := range []any{nil, map[string]any{}, []any{}, "", false} {
		if !IsEmpty(v) {
			t.Fatalf("IsEmpty(%#v) = false", v)
		}
	}
	for _, v := range []any{map[string]any{"a": 1}, "x", true, 0} {
		if IsEmpty(v) {
			t.Fatalf("IsEmpty(%#v) = true", v)
		}
	}
}

func TestInt(t *testing.T) {
	cases := []struct {
		in   any
		want int
		ok   bool
	}{
		{in: 5, want: 5, ok: true},
		{in: int64(-2), want: -2, ok: true},
		{in: 7.0, want: 7, ok: true},
		{in: 7.5, ok: false},
		{in: " 12 ", want: 12, ok: true},
		{in: "abc", ok: false},
		{in: nil, ok: false},
	}
	for _, tc := range cases {
		got, ok := Int(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Int(%#v) = %d,%t want %d,%t", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestEncodeParseIsAFixedPoint(t *testing.T) {
	labels := []string{
		`say "hi"`,
		`ends with quote"`,
		`ends with escaped pair \"`,
		`back\slash`,
		`trailing backslash \`,
		`\\double`,
		"line\nbreak",
		"tab\tand\rreturn",
		`""`,
		"",
		"emoji 🗺 and ü",
		"slash / and \u0001 control",
		string(numberMark) + "-5",
		"-10",
		"12",
	}
	tree := Tree{"m": map[string]any{}}
	markers := tree["m"].(map[string]any)
	for i, label := range labels {
		markers[fmt.Sprintf("camp-%d", i)] = map[string]any{"label": label}
	}

	first := Encode(tree)
	parsed, err := Parse(first)
	if err != nil {
		t.Fatalf("parse: %v\n%s", err, first)
	}
	for i, label := range labels {
		got, _ := Lookup(parsed, "m", fmt.Sprintf("camp-%d", i), "label")
		if got != label {
			t.Fatalf("label %d = %#v, want %#v", i, got, label)
		}
	}

	second := Encode(parsed)
	if !bytes.Equal(first, second) {
		t.Fatalf("re-encoding changed the document:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	again, err := Parse(second)
	if err != nil {
		t.Fatalf("parse again: %v", err)
	}
	if third := Encode(again); !bytes.Equal(second, third) {
		t.Fatalf("third encoding drifted:\n%s", third)
	}
}

func TestParseNumbersKeepTheirType(t *testing.T) {
	input := `
position { x = -10, y = 64, z = -3 }
offsets = [-1, 2, -30]
scale = -2.5
quoted = "-10"
range = 5-10
# offset -7 applies to the nether only
`
	tree, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cases := []struct {
		path []string
		want any
	}{
		{path: []string{"position", "x"}, want: -10},
		{path: []string{"position", "y"}, want: 64},
		{path: []string{"position", "z"}, want: -3},
		{path: []string{"scale"}, want: -2.5},
		{path: []string{"quoted"}, want: "-10"},
		{path: []string{"range"}, want: "5-10"},
	}
	for _, tc := range cases {
		got, ok := Lookup(tree, tc.path...)
		if !ok || !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%v = %#v (%T), want %#v (%T)", tc.path, got, got, tc.want, tc.want)
		}
	}
	offsets, _ := Lookup(tree, "offsets")
	if !reflect.DeepEqual(offsets, []any{-1, 2, -30}) {
		t.Fatalf("offsets = %#v", offsets)
	}

	encoded := string(Encode(tree))
	for _, want := range []string{"x = -10\n", "quoted = \"-10\"\n", "scale = -2.5\n"} {
		if !strings.Contains(encoded, want) {
			t.Fatalf("encoded output missing %q:\n%s", want, encoded)
		}
	}
}

func TestParseDecodesEscapesInHandWrittenText(t *testing.T) {
	input := `renderer {
  title = "My \"Server\" Map"
  path = "C:\\maps\\world"
  motd = "line one\nline two \u00e9 \ud83d\uddfa"
  plain = unquoted text
}
`
	tree, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]any{
		"title": `My "Server" Map`,
		"path":  `C:\maps\world`,
		"motd":  "line one\nline two é 🗺",
		"plain": "unquoted text",
	}
	if got := tree["renderer"]; !reflect.DeepEqual(got, want) {
		t.Fatalf("renderer = %#v, want %#v", got, want)
	}
}
