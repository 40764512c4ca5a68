package markers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-markers/pkg/document"
)

// FallbackSlug is used when a label has no characters in [a-z0-9].
const FallbackSlug = "marker"

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases label and collapses every run outside [a-z0-9] into one
// hyphen, trimming hyphens at either end.
func Slugify(label string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(label), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return FallbackSlug
	}
	return slug
}

// AllocateUnique returns base, or the first of base-2, base-3, ... that is not
// already a marker ID in the set. A markers node that cannot be read yields
// base unchanged.
func AllocateUnique(doc document.Tree, groupsKey, setKey, base string) string {
	existing, ok, err := document.LookupMapping(doc, groupsKey, setKey, markersKey)
	if err != nil || !ok {
		return base
	}
	slug := base
	for n := 2; ; n++ {
		if _, taken := existing[slug]; !taken {
			return slug
		}
		slug = base + "-" + strconv.Itoa(n)
	}
}
