package markers

import "strings"

// Layout locates the marker set inside a world document.
type Layout struct {
	// GroupsKey is the top-level namespace holding marker sets.
	GroupsKey string
	// SetKey identifies the marker set this process writes to.
	SetKey string
	// SetLabel is the display label used when the set has to be created.
	SetLabel string
}

// DefaultLayout matches what the map renderer reads out of the box.
func DefaultLayout() Layout {
	return Layout{GroupsKey: DefaultGroupsKey, SetKey: DefaultSetKey, SetLabel: DefaultSetLabel}
}

func (l Layout) withDefaults() Layout {
	if strings.TrimSpace(l.GroupsKey) == "" {
		l.GroupsKey = DefaultGroupsKey
	}
	if strings.TrimSpace(l.SetKey) == "" {
		l.SetKey = DefaultSetKey
	}
	if strings.TrimSpace(l.SetLabel) == "" {
		l.SetLabel = DefaultSetLabel
	}
	return l
}
