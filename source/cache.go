package source

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/swind/go-enigma/entry"
)

// DefaultCacheSize is the number of decompiled classes a Cache keeps.
const DefaultCacheSize = 64

// Cache keeps recently decompiled units and runs one decompile at a time.
// Units do not depend on mappings, so entries stay valid across renames.
type Cache struct {
	mu         sync.Mutex
	decompiler Decompiler
	units      *lru.Cache[entry.ClassEntry, *Unit]
	hook       func(hit bool)
}

func NewCache(d Decompiler, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	units, err := lru.New[entry.ClassEntry, *Unit](size)
	if err != nil {
		return nil, err
	}
	return &Cache{decompiler: d, units: units}, nil
}

// OnLookup registers fn to be called on every Decompile with whether the
// unit was cached.
func (c *Cache) OnLookup(fn func(hit bool)) { c.hook = fn }

// Decompile returns the cached unit of class or decompiles it. Failures
// are not cached.
func (c *Cache) Decompile(ctx context.Context, class entry.ClassEntry) (*Unit, error) {
	if u, ok := c.units.Get(class); ok {
		c.observe(true)
		return u, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.units.Get(class); ok {
		c.observe(true)
		return u, nil
	}
	c.observe(false)
	u, err := c.decompiler.Decompile(ctx, class)
	if err != nil {
		return nil, err
	}
	c.units.Add(class, u)
	return u, nil
}

func (c *Cache) observe(hit bool) {
	if c.hook != nil {
		c.hook(hit)
	}
}

func (c *Cache) Len() int { return c.units.Len() }

// Purge drops every cached unit.
func (c *Cache) Purge() { c.units.Purge() }
