package bids

import (
	"context"
	"strings"
	"sync"
)

// Cache shares built layouts across callers in one process. Layouts never
// change after construction, so a cached entry can be handed out freely.
type Cache struct {
	mu      sync.Mutex
	layouts map[string]*Layout
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{layouts: make(map[string]*Layout)}
}

// Load returns the layout for (root, schema, excludes), building it on first
// use. Failed builds are not cached.
func (c *Cache) Load(ctx context.Context, root, schemaName string, excludes ...string) (*Layout, error) {
	key := root + "\x00" + schemaName + "\x00" + strings.Join(excludes, "\x00")

	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.layouts[key]; ok {
		return l, nil
	}
	schema, err := BundledSchema(schemaName)
	if err != nil {
		return nil, err
	}
	l, err := NewLayout(ctx, root, schema, WithExclude(excludes...))
	if err != nil {
		return nil, err
	}
	c.layouts[key] = l
	return l, nil
}

