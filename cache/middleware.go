package cache

import (
	"context"
	"net/url"
)

// FetchFunc performs the uncached call.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Lookup wraps upstream calls with read-through caching.
type Lookup struct {
	cache  Cache
	keyer  Keyer
	policy Policy
}

// NewLookup creates a read-through wrapper. A nil cache or keyer gets the
// in-memory and default implementations.
func NewLookup(cache Cache, keyer Keyer, policy Policy) *Lookup {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	return &Lookup{cache: cache, keyer: keyer, policy: policy}
}

// Execute returns a cached body for the request when one is held, and
// otherwise calls fetch and stores its result. hit reports whether fetch
// was skipped. Errors are returned as-is and never cached.
func (l *Lookup) Execute(ctx context.Context, method, path string, query url.Values, fetch FetchFunc) (body []byte, hit bool, err error) {
	if !l.policy.Cacheable(method) {
		body, err = fetch(ctx)
		return body, false, err
	}

	key := l.keyer.Key(method, path, query)
	if cached, ok := l.cache.Get(ctx, key); ok {
		return cached, true, nil
	}

	body, err = fetch(ctx)
	if err != nil {
		return body, false, err
	}

	_ = l.cache.Set(ctx, key, body, l.policy.EffectiveTTL())
	return body, false, nil
}

// Invalidate drops any cached body for the request.
func (l *Lookup) Invalidate(ctx context.Context, method, path string, query url.Values) error {
	return l.cache.Delete(ctx, l.keyer.Key(method, path, query))
}

// Policy returns the caching policy.
func (l *Lookup) Policy() Policy {
	return l.policy
}
