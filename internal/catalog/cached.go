package catalog

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// CachedRepository is a read-through cache in front of another Repository. Only successful
// lookups are cached; not-found results and failures always reach the backing repository.
type CachedRepository struct {
	next  Repository
	cache *gocache.Cache
	group singleflight.Group
}

var _ Repository = (*CachedRepository)(nil)

// sharedFetchTimeout bounds a coalesced backing call, which outlives any single caller.
const sharedFetchTimeout = 10 * time.Second

// NewCachedRepository caches results from next for ttl.
func NewCachedRepository(next Repository, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedRepository{
		next:  next,
		cache: gocache.New(ttl, ttl*2),
	}
}

// Flush drops every cached entry.
func (c *CachedRepository) Flush() {
	c.cache.Flush()
}

func (c *CachedRepository) ListServers(ctx context.Context, opts ListOptions) (ServerList, error) {
	opts = opts.normalized()
	return load(ctx, c, "servers:"+listKey(opts), func(ctx context.Context) (ServerList, error) {
		return c.next.ListServers(ctx, opts)
	})
}

func (c *CachedRepository) GetServer(ctx context.Context, slug string) (Server, error) {
	return load(ctx, c, "server:"+slug, func(ctx context.Context) (Server, error) {
		return c.next.GetServer(ctx, slug)
	})
}

func (c *CachedRepository) ListCategories(ctx context.Context) ([]Category, error) {
	return load(ctx, c, "categories", func(ctx context.Context) ([]Category, error) {
		return c.next.ListCategories(ctx)
	})
}

func (c *CachedRepository) GetCategory(ctx context.Context, slug string) (Category, error) {
	return load(ctx, c, "category:"+slug, func(ctx context.Context) (Category, error) {
		return c.next.GetCategory(ctx, slug)
	})
}

func (c *CachedRepository) ServersByCategory(ctx context.Context, slug string, opts ListOptions) (ServerList, error) {
	opts = opts.normalized()
	return load(ctx, c, "category-servers:"+slug+":"+listKey(opts), func(ctx context.Context) (ServerList, error) {
		return c.next.ServersByCategory(ctx, slug, opts)
	})
}

// Ping is never cached.
func (c *CachedRepository) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}

func listKey(opts ListOptions) string {
	return fmt.Sprintf("%s|%s|%d|%d", opts.Query, opts.Sort, opts.Limit, opts.Offset)
}

// load returns the cached value for key or calls fetch once for all concurrent callers. The shared
// fetch runs detached from any one caller's cancellation; each caller stops waiting on its own ctx.
func load[T any](ctx context.Context, c *CachedRepository, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := c.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		res, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.cache.SetDefault(key, res)
		return res, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	}
}
