package httpserver

import (
	"sync"

	"golang.org/x/time/rate"
)

// ipRateLimiterStore hands out one token-bucket limiter per client
// identifier (echo's RateLimiter middleware keys this by IP by default),
// lazily creating limiters on first sight rather than pre-populating a
// fixed set of buckets.
type ipRateLimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newIPRateLimiterStore(r rate.Limit, burst int) *ipRateLimiterStore {
	return &ipRateLimiterStore{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		burst:    burst,
	}
}

// Allow implements echo middleware's RateLimiterStore interface.
func (s *ipRateLimiterStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	limiter, ok := s.limiters[identifier]
	if !ok {
		limiter = rate.NewLimiter(s.r, s.burst)
		s.limiters[identifier] = limiter
	}
	s.mu.Unlock()

	return limiter.Allow(), nil
}
