package ratelimit

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Limiter throttles repeated requests for the same key (an email address for
// the account flows). Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow reports whether a request for key may proceed, and records it if so.
	Allow(key string) bool
}

type keyLimiter struct {
	interval time.Duration
	seen     *gocache.Cache
}

// NewKeyLimiter allows one request per key per interval. Entries expire on
// their own, so the map cannot grow without bound. The limiter is process
// local; multi-instance deployments need a shared-store implementation.
func NewKeyLimiter(interval time.Duration) Limiter {
	return &keyLimiter{
		interval: interval,
		seen:     gocache.New(interval, 2*interval),
	}
}

func (l *keyLimiter) Allow(key string) bool {
	// Add fails if the key is present and unexpired.
	return l.seen.Add(key, time.Now(), l.interval) == nil
}
