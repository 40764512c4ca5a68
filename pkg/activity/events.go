package activity

import (
	"strings"
	"time"
)

const (
	VerbMarkerCreated   = "marker.created"
	VerbReloadTriggered = "reload.triggered"
	VerbReloadSucceeded = "reload.succeeded"
	VerbReloadFailed    = "reload.failed"

	ObjectMarker = "marker"
	ObjectReload = "reload"
)

// MarkerEventInput describes a marker that was written to a world document.
type MarkerEventInput struct {
	ActorID    string
	World      string
	MarkerSet  string
	MarkerID   string
	Label      string
	X, Y, Z    int
	Location   string
	SnapshotID string
	OccurredAt time.Time
}

// BuildMarkerCreatedEvent constructs the event emitted after a marker is saved.
// The object ID is "<world>/<set>/<marker>" so sinks can key on it directly.
func BuildMarkerCreatedEvent(input MarkerEventInput) Event {
	metadata := map[string]any{
		"world":      input.World,
		"marker_set": input.MarkerSet,
		"label":      input.Label,
		"x":          input.X,
		"y":          input.Y,
		"z":          input.Z,
	}
	if input.Location != "" {
		metadata["location"] = input.Location
	}
	if input.SnapshotID != "" {
		metadata["snapshot_id"] = input.SnapshotID
	}
	return Event{
		Verb:       VerbMarkerCreated,
		ActorID:    strings.TrimSpace(input.ActorID),
		ObjectType: ObjectMarker,
		ObjectID:   joinID(input.World, input.MarkerSet, input.MarkerID),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// ReloadEventInput describes one run of the reload action.
type ReloadEventInput struct {
	RunID      string
	Pending    int
	Attempt    int
	Duration   time.Duration
	Err        error
	Retrying   bool
	OccurredAt time.Time
}

// BuildReloadTriggeredEvent constructs the event emitted before the action runs.
func BuildReloadTriggeredEvent(input ReloadEventInput) Event {
	return buildReloadEvent(VerbReloadTriggered, input)
}

// BuildReloadSucceededEvent constructs the event emitted after a clean run.
func BuildReloadSucceededEvent(input ReloadEventInput) Event {
	event := buildReloadEvent(VerbReloadSucceeded, input)
	event.Metadata["duration_ms"] = input.Duration.Milliseconds()
	return event
}

// BuildReloadFailedEvent constructs the event emitted after a failed run.
func BuildReloadFailedEvent(input ReloadEventInput) Event {
	event := buildReloadEvent(VerbReloadFailed, input)
	event.Metadata["duration_ms"] = input.Duration.Milliseconds()
	event.Metadata["retrying"] = input.Retrying
	if input.Err != nil {
		event.Metadata["error"] = input.Err.Error()
	}
	return event
}

func buildReloadEvent(verb string, input ReloadEventInput) Event {
	objectID := strings.TrimSpace(input.RunID)
	if objectID == "" {
		objectID = ObjectReload
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectReload,
		ObjectID:   objectID,
		Metadata: map[string]any{
			"pending": input.Pending,
			"attempt": input.Attempt,
		},
		OccurredAt: input.OccurredAt,
	}
}

func joinID(parts ...string) string {
	trimmed := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			trimmed = append(trimmed, part)
		}
	}
	return strings.Join(trimmed, "/")
}
