package markers

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-markers/layering"
	"github.com/goliatone/go-markers/pkg/document"
)

const (
	// DefaultGroupsKey is the top-level namespace the renderer reads marker sets from.
	DefaultGroupsKey = "marker-sets"
	// DefaultSetKey identifies the marker set new markers are written to.
	DefaultSetKey = "user-pois"
	// DefaultSetLabel is the display label of a newly created marker set.
	DefaultSetLabel = "User POIs"

	markersKey = "markers"
)

// MarkerSetDefaults returns the metadata a new marker set is seeded with.
func MarkerSetDefaults(label string) map[string]any {
	if strings.TrimSpace(label) == "" {
		label = DefaultSetLabel
	}
	return map[string]any{
		"label":          label,
		"toggleable":     true,
		"default-hidden": false,
		"sorting":        0,
		markersKey:       map[string]any{},
	}
}

// EnsureMarkerSet guarantees groupsKey.setKey exists in doc. A set that is
// already present with content is left untouched; otherwise the defaults are
// merged in with everything else in doc preserved. doc itself is not mutated.
func EnsureMarkerSet(doc document.Tree, groupsKey, setKey, label string) (document.Tree, error) {
	if setKey == "" {
		return nil, fmt.Errorf("markers: marker set key must not be empty")
	}
	if err := document.CheckPath(doc, groupsKey); err != nil {
		return nil, fmt.Errorf("markers: ensure %s.%s: %w", groupsKey, setKey, err)
	}
	if current, ok := document.Lookup(doc, groupsKey, setKey); ok && !document.IsEmpty(current) {
		if _, isMap := document.Mapping(current); !isMap {
			return nil, fmt.Errorf("markers: ensure %s.%s: %w", groupsKey, setKey,
				&document.PathError{Path: []string{groupsKey, setKey}, Err: document.ErrParse})
		}
		return doc, nil
	}
	overlay := document.Nest(MarkerSetDefaults(label), groupsKey, setKey)
	return layering.Fallback(overlay, doc), nil
}
