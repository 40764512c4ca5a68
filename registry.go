package markers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-markers/pkg/state"
)

// DefaultWorld names the implicit world backed by the legacy single-file setting.
const DefaultWorld = "overworld"

// World is a named spatial namespace with its own marker document.
type World struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Ref returns the storage reference for the world's document.
func (w World) Ref() state.Ref {
	return state.Ref{Name: w.Name, Location: w.Location}
}

// Registry maps world names to document locations. It is immutable once built.
type Registry struct {
	worlds map[string]World
	names  []string
}

// NewRegistry builds a registry from an explicit name to location mapping. When
// files is empty, legacy names a single document served as DefaultWorld.
func NewRegistry(files map[string]string, legacy string) (*Registry, error) {
	worlds := make(map[string]World, len(files))
	for name, location := range files {
		name = strings.TrimSpace(name)
		location = strings.TrimSpace(location)
		if name == "" {
			return nil, fmt.Errorf("markers: world name must not be empty")
		}
		if location == "" {
			return nil, fmt.Errorf("markers: world %q has no document location", name)
		}
		worlds[name] = World{Name: name, Location: location}
	}
	if len(worlds) == 0 {
		legacy = strings.TrimSpace(legacy)
		if legacy == "" {
			return nil, fmt.Errorf("markers: no worlds configured")
		}
		worlds[DefaultWorld] = World{Name: DefaultWorld, Location: legacy}
	}

	names := make([]string, 0, len(worlds))
	for name := range worlds {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Registry{worlds: worlds, names: names}, nil
}

// Resolve returns the world called name. An empty name selects Default.
func (r *Registry) Resolve(name string) (World, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return r.Default()
	}
	world, ok := r.worlds[name]
	if !ok {
		return World{}, fmt.Errorf("%w: %q", ErrInvalidWorld, name)
	}
	return world, nil
}

// Default returns DefaultWorld when configured, otherwise the only world.
// With several worlds and none named DefaultWorld the caller must choose.
func (r *Registry) Default() (World, error) {
	if world, ok := r.worlds[DefaultWorld]; ok {
		return world, nil
	}
	if len(r.names) == 1 {
		return r.worlds[r.names[0]], nil
	}
	return World{}, fmt.Errorf("%w: world name required", ErrInvalidWorld)
}

// Names lists configured world names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Worlds lists configured worlds in name order.
func (r *Registry) Worlds() []World {
	out := make([]World, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.worlds[name])
	}
	return out
}
