package markers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goliatone/go-markers/pkg/activity"
	"github.com/goliatone/go-markers/pkg/document"
	"github.com/goliatone/go-markers/pkg/state"
)

// DirtyMarker is the part of the reload tracker the write path needs.
type DirtyMarker interface {
	MarkDirty()
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActivity publishes marker.created events after each successful add.
func WithActivity(emitter *activity.Emitter) Option {
	return func(s *Service) {
		s.emitter = emitter
	}
}

// WithTracker is marked dirty after every persisted add.
func WithTracker(tracker DirtyMarker) Option {
	return func(s *Service) {
		s.tracker = tracker
	}
}

// WithGroupsKey overrides DefaultGroupsKey.
func WithGroupsKey(key string) Option {
	return func(s *Service) {
		if key = strings.TrimSpace(key); key != "" {
			s.layout.GroupsKey = key
		}
	}
}

// WithMarkerSet selects the marker set new markers go into and the label used
// when it has to be created.
func WithMarkerSet(key, label string) Option {
	return func(s *Service) {
		if key = strings.TrimSpace(key); key != "" {
			s.layout.SetKey = key
		}
		if label = strings.TrimSpace(label); label != "" {
			s.layout.SetLabel = label
		}
	}
}

// WithLocks shares a lock table with other editors of the same documents.
func WithLocks(locks *state.KeyedMutex) Option {
	return func(s *Service) {
		if locks != nil {
			s.editor.Locks = locks
		}
	}
}

// Service lists and adds markers across the worlds of a Registry.
type Service struct {
	registry *Registry
	editor   *state.Editor[document.Tree]
	layout   Layout
	tracker  DirtyMarker
	emitter  *activity.Emitter
	logger   *slog.Logger
}

// NewService binds registry to store.
func NewService(registry *Registry, store state.Store[document.Tree], opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("markers: registry is required")
	}
	if store == nil {
		return nil, fmt.Errorf("markers: store is required")
	}
	s := &Service{
		registry: registry,
		editor:   state.NewEditor(store),
		layout:   DefaultLayout(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Registry returns the worlds the service serves.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Layout reports where markers are written inside each document.
func (s *Service) Layout() Layout {
	return s.layout
}

// ListMarkers returns the markers of world, or of every world when world is
// empty. A document that cannot be read lists as empty instead of failing the
// whole call; only an unknown world name is an error.
func (s *Service) ListMarkers(ctx context.Context, world string) (map[string][]Marker, error) {
	worlds := s.registry.Worlds()
	if strings.TrimSpace(world) != "" {
		resolved, err := s.registry.Resolve(world)
		if err != nil {
			return nil, wrapMarkerError("list", world, err)
		}
		worlds = []World{resolved}
	}

	out := make(map[string][]Marker, len(worlds))
	for _, w := range worlds {
		out[w.Name] = s.listWorld(ctx, w)
	}
	return out, nil
}

func (s *Service) listWorld(ctx context.Context, world World) []Marker {
	doc, _, ok, err := s.editor.Read(ctx, world.Ref())
	if err != nil {
		s.logger.Warn("marker document unreadable, listing as empty",
			"world", world.Name, "location", world.Location, "error", err)
		return []Marker{}
	}
	if !ok {
		return []Marker{}
	}
	list, err := ReadMarkers(doc, s.layout.GroupsKey, s.layout.SetKey)
	if err != nil {
		s.logger.Warn("marker set malformed, listing as empty",
			"world", world.Name, "location", world.Location, "error", err)
		return []Marker{}
	}
	return list
}

// AddRequest is a validated request to add one marker.
type AddRequest struct {
	World   string
	Label   string
	X, Y, Z int
	// ActorID is recorded on the activity event when set.
	ActorID string
}

// AddResult describes the marker that was written.
type AddResult struct {
	World      string `json:"world"`
	ID         string `json:"id"`
	Marker     Marker `json:"marker"`
	SnapshotID string `json:"snapshot_id,omitempty"`
}

// ParseAddRequest validates raw form or CLI input. Coordinates must be whole
// numbers; surrounding whitespace is ignored. The world is checked by AddMarker.
func ParseAddRequest(world, label, x, y, z string) (AddRequest, error) {
	req := AddRequest{World: strings.TrimSpace(world), Label: strings.TrimSpace(label)}
	if req.Label == "" {
		return AddRequest{}, ErrEmptyLabel
	}
	axes := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"x", x, &req.X},
		{"y", y, &req.Y},
		{"z", z, &req.Z},
	}
	for _, axis := range axes {
		n, err := strconv.Atoi(strings.TrimSpace(axis.raw))
		if err != nil {
			return AddRequest{}, fmt.Errorf("%w: %s=%q", ErrInvalidCoordinates, axis.name, axis.raw)
		}
		*axis.dst = n
	}
	return req, nil
}

// AddMarker writes a new marker into the requested world's document. The
// tracker is marked dirty only after the document has been saved.
func (s *Service) AddMarker(ctx context.Context, req AddRequest) (AddResult, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return AddResult{}, wrapMarkerError("add", req.World, ErrEmptyLabel)
	}
	world, err := s.registry.Resolve(req.World)
	if err != nil {
		return AddResult{}, wrapMarkerError("add", req.World, err)
	}

	var added Marker
	_, meta, err := s.editor.Edit(ctx, world.Ref(), state.Meta{}, func(doc *document.Tree) error {
		merged, marker, err := AppendMarker(*doc, s.layout, label, req.X, req.Y, req.Z)
		if err != nil {
			return err
		}
		*doc = merged
		added = marker
		return nil
	})
	if err != nil {
		s.logger.Error("add marker failed", "world", world.Name, "label", label, "error", err)
		return AddResult{}, wrapMarkerError("add", world.Name, err)
	}

	if s.tracker != nil {
		s.tracker.MarkDirty()
	}
	s.logger.Info("marker added",
		"world", world.Name, "id", added.ID, "x", added.X, "y", added.Y, "z", added.Z)

	event := activity.BuildMarkerCreatedEvent(activity.MarkerEventInput{
		ActorID:    req.ActorID,
		World:      world.Name,
		MarkerSet:  s.layout.SetKey,
		MarkerID:   added.ID,
		Label:      added.Label,
		X:          added.X,
		Y:          added.Y,
		Z:          added.Z,
		Location:   world.Location,
		SnapshotID: meta.SnapshotID,
		OccurredAt: meta.UpdatedAt,
	})
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Warn("activity emit failed", "verb", event.Verb, "error", err)
	}

	return AddResult{World: world.Name, ID: added.ID, Marker: added, SnapshotID: meta.SnapshotID}, nil
}

// FlashMessage renders the confirmation shown after a successful add.
func (r AddResult) FlashMessage() string {
	return fmt.Sprintf("Added POI \"%s\" at %d, %d, %d in %s.", r.Marker.Label, r.Marker.X, r.Marker.Y, r.Marker.Z, r.World)
}
