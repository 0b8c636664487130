package repository

import (
	"time"

	"github.com/okian/gincana/pkg/logger"
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets how long a snapshot is served before Get reloads it.
// A non-positive TTL keeps snapshots until they are invalidated.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithRefreshInterval enables a background reload at the given interval.
func WithRefreshInterval(interval time.Duration) Option {
	return func(c *Cache) {
		if interval > 0 {
			c.refreshInterval = interval
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger for the cache.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}
