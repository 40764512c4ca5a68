package state

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrIO reports a storage read or write failure.
var ErrIO = errors.New("state: storage i/o failed")

var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies one persisted document.
type Ref struct {
	Name     string
	Location string
}

// Meta is storage-owned metadata used for trace/audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single document reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Codec converts snapshots to and from their stored bytes.
type Codec[T any] interface {
	Decode(data []byte) (T, error)
	Encode(snapshot T) ([]byte, error)
}

// Mutator edits a loaded snapshot in place. Returning an error aborts the
// edit and nothing is saved.
type Mutator[T any] func(*T) error

// Identifier returns the canonical key for the referenced document: the
// cleaned location, which is what two refs must share to alias one file.
func (r Ref) Identifier() (string, error) {
	location := strings.TrimSpace(r.Location)
	if location == "" {
		return "", fmt.Errorf("state: missing location for %q", r.Name)
	}
	if strings.Contains(location, "://") {
		return location, nil
	}
	return filepath.Clean(location), nil
}

// Editor runs read-modify-write cycles against a Store, one at a time per
// document.
type Editor[T any] struct {
	Store Store[T]
	Locks *KeyedMutex
	Now   func() time.Time
}

// NewEditor constructs an Editor with its own lock table.
func NewEditor[T any](store Store[T]) *Editor[T] {
	return &Editor[T]{Store: store, Locks: NewKeyedMutex()}
}

// Read loads the current snapshot. Missing documents yield the zero value and
// ok=false.
func (e *Editor[T]) Read(ctx context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	if e == nil || e.Store == nil {
		return zero, Meta{}, false, fmt.Errorf("state: store is required")
	}
	snapshot, meta, ok, err := e.Store.Load(ctx, ref)
	if err != nil {
		return zero, Meta{}, false, fmt.Errorf("state: load %q: %w", ref.Name, err)
	}
	return snapshot, meta, ok, nil
}

// Edit loads one snapshot, applies fn, then saves, holding the document's lock
// for the whole cycle. When expect.ETag is set and the stored document has a
// different ETag the edit is refused with ErrETagMismatch.
func (e *Editor[T]) Edit(ctx context.Context, ref Ref, expect Meta, fn Mutator[T]) (T, Meta, error) {
	var zero T
	if e == nil || e.Store == nil {
		return zero, Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return zero, Meta{}, fmt.Errorf("state: mutator is required")
	}
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, err
	}

	locks := e.Locks
	if locks == nil {
		locks = defaultLocks
	}
	unlock := locks.Lock(key)
	defer unlock()

	snapshot, loadedMeta, ok, err := e.Store.Load(ctx, ref)
	if err != nil {
		return zero, Meta{}, fmt.Errorf("state: load %q: %w", ref.Name, err)
	}
	if !ok {
		snapshot = zero
		loadedMeta = Meta{}
	}

	if expect.ETag != "" && expect.ETag != loadedMeta.ETag {
		return zero, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expect.ETag, loadedMeta.ETag)
	}

	if err := fn(&snapshot); err != nil {
		return zero, loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, expect)
	saveMeta.ETag = ""
	saveMeta.SnapshotID = uuid.NewString()
	saveMeta.UpdatedAt = e.now()

	savedMeta, err := e.Store.Save(ctx, ref, snapshot, saveMeta)
	if err != nil {
		return zero, loadedMeta, fmt.Errorf("state: save %q: %w", ref.Name, err)
	}
	return snapshot, savedMeta, nil
}

func (e *Editor[T]) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func mergeMeta(base, override Meta) Meta {
	out := cloneMeta(base)
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = cloneMeta(override).Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
