package cache

import (
	"net/http"
	"time"
)

// Policy decides what is cached and for how long.
type Policy struct {
	// TTL is how long a successful lookup is kept. Zero disables caching.
	TTL time.Duration

	// MaxTTL caps TTL when set.
	MaxTTL time.Duration
}

// DefaultPolicy keeps lookups for five minutes, never longer than an hour.
func DefaultPolicy() Policy {
	return Policy{
		TTL:    5 * time.Minute,
		MaxTTL: time.Hour,
	}
}

// Enabled reports whether the policy caches anything.
func (p Policy) Enabled() bool {
	return p.EffectiveTTL() > 0
}

// EffectiveTTL returns TTL clamped to MaxTTL.
func (p Policy) EffectiveTTL() time.Duration {
	ttl := p.TTL
	if ttl < 0 {
		return 0
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}

// Cacheable reports whether responses to method may be cached. Only
// safe methods qualify; a PUT to /credentials changes upstream state.
func (p Policy) Cacheable(method string) bool {
	if !p.Enabled() {
		return false
	}
	switch method {
	case http.MethodGet, http.MethodHead:
		return true
	default:
		return false
	}
}
