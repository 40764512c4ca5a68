package rules

import "sync"

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MapCache is a ProgramCache safe for concurrent use.
type MapCache struct {
	entries sync.Map
}

func NewMapCache() *MapCache {
	return &MapCache{}
}

func (c *MapCache) Get(key string) (any, bool) {
	return c.entries.Load(key)
}

func (c *MapCache) Set(key string, value any) {
	c.entries.Store(key, value)
}
