package state

import (
	"context"
	"strconv"
	"sync"

	"github.com/goliatone/go-markers/layering"
)

// MemoryStore is a minimal in-memory Store implementation intended for tests
// and examples. It uses Ref.Identifier() as its deterministic key and deep
// copies snapshots on the way in and out so callers never share state.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	records map[string]memoryRecord[T]
	version int
	// FailSave, when set, is returned by Save without storing anything.
	FailSave error
}

type memoryRecord[T any] struct {
	snapshot T
	meta     Meta
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{records: map[string]memoryRecord[T]{}}
}

func (s *MemoryStore[T]) Load(_ context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return zero, Meta{}, false, nil
	}
	return layering.Clone(record.snapshot), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore[T]) Save(_ context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return Meta{}, s.FailSave
	}
	s.version++
	saved := cloneMeta(meta)
	saved.ETag = "v" + strconv.Itoa(s.version)
	s.records[key] = memoryRecord[T]{snapshot: layering.Clone(snapshot), meta: saved}
	return cloneMeta(saved), nil
}

// Put seeds a record directly, bypassing ETag assignment.
func (s *MemoryStore[T]) Put(ref Ref, snapshot T, meta Meta) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.records[key] = memoryRecord[T]{snapshot: layering.Clone(snapshot), meta: cloneMeta(meta)}
	s.mu.Unlock()
	return nil
}

// Len reports how many documents are stored.
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
