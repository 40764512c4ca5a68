package markers

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-markers/layering"
	"github.com/goliatone/go-markers/pkg/document"
)

// MarkerType is the type tag written on every marker record.
const MarkerType = "poi"

// Marker is a single point of interest inside a marker set.
type Marker struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

// Record builds the document subtree stored under the marker's ID.
func (m Marker) Record() map[string]any {
	return map[string]any{
		"type":  MarkerType,
		"label": m.Label,
		"position": map[string]any{
			"x": m.X,
			"y": m.Y,
			"z": m.Z,
		},
		"sorting": 0,
	}
}

// MergeMarker places m at groupsKey.setKey.markers.<m.ID>, keeping sibling
// markers and every unrelated key in doc. A node on that path that is not a
// mapping fails with ErrDocumentParse rather than being overwritten.
func MergeMarker(doc document.Tree, groupsKey, setKey string, m Marker) (document.Tree, error) {
	if m.ID == "" {
		return nil, fmt.Errorf("markers: marker id must not be empty")
	}
	if err := document.CheckPath(doc, groupsKey, setKey, markersKey); err != nil {
		return nil, fmt.Errorf("markers: merge %s: %w", m.ID, err)
	}
	overlay := document.Nest(m.Record(), groupsKey, setKey, markersKey, m.ID)
	return layering.Fallback(overlay, doc), nil
}

// AppendMarker runs the full write-path transformation on doc: ensure the set,
// allocate a unique slug for label, then merge the new record.
func AppendMarker(doc document.Tree, layout Layout, label string, x, y, z int) (document.Tree, Marker, error) {
	layout = layout.withDefaults()
	ensured, err := EnsureMarkerSet(doc, layout.GroupsKey, layout.SetKey, layout.SetLabel)
	if err != nil {
		return nil, Marker{}, err
	}
	marker := Marker{
		ID:    AllocateUnique(ensured, layout.GroupsKey, layout.SetKey, Slugify(label)),
		Label: label,
		X:     x,
		Y:     y,
		Z:     z,
	}
	merged, err := MergeMarker(ensured, layout.GroupsKey, layout.SetKey, marker)
	if err != nil {
		return nil, Marker{}, err
	}
	return merged, marker, nil
}

// ReadMarkers lists the markers of one set ordered by ID. Entries that are not
// mappings are skipped; a missing label falls back to the ID and missing
// coordinates read as zero.
func ReadMarkers(doc document.Tree, groupsKey, setKey string) ([]Marker, error) {
	entries, ok, err := document.LookupMapping(doc, groupsKey, setKey, markersKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Marker{}, nil
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Marker, 0, len(ids))
	for _, id := range ids {
		entry, isMap := document.Mapping(entries[id])
		if !isMap {
			continue
		}
		marker := Marker{ID: id, Label: id}
		if label, ok := entry["label"]; ok && label != nil {
			marker.Label = fmt.Sprint(label)
		}
		marker.X = coordinate(entry, "x")
		marker.Y = coordinate(entry, "y")
		marker.Z = coordinate(entry, "z")
		out = append(out, marker)
	}
	return out, nil
}

func coordinate(entry map[string]any, axis string) int {
	value, ok := document.Lookup(entry, "position", axis)
	if !ok {
		return 0
	}
	n, _ := document.Int(value)
	return n
}
