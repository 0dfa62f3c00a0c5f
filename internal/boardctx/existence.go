package boardctx

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ExistenceFunc answers whether a resource of the given type exists upstream.
// resource is one of "item", "board", "group", "user", "column".
type ExistenceFunc func(ctx context.Context, resource, id string) (bool, error)

// ExistenceCache memoizes resource-existence lookups for the validator.
// Entries expire after a short TTL; concurrent writers for the same key race
// harmlessly since the answer is an idempotent re-derivation.
type ExistenceCache struct {
	lru *expirable.LRU[string, bool]
	fn  ExistenceFunc
}

// NewExistenceCache wraps fn with a TTL cache.
func NewExistenceCache(fn ExistenceFunc, size int, ttl time.Duration) *ExistenceCache {
	if size <= 0 {
		size = 512
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ExistenceCache{
		lru: expirable.NewLRU[string, bool](size, nil, ttl),
		fn:  fn,
	}
}

// Exists reports whether the resource exists, consulting the cache first.
// Only positive and negative answers are cached; lookup errors are not.
func (c *ExistenceCache) Exists(ctx context.Context, resource, id string) (bool, error) {
	key := resource + ":" + id
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	v, err := c.fn(ctx, resource, id)
	if err != nil {
		return false, err
	}
	c.lru.Add(key, v)
	return v, nil
}
