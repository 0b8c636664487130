package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/gincana/internal/adapters/source"
	"github.com/okian/gincana/pkg/logger"
	"github.com/okian/gincana/pkg/metrics"
)

const (
	defaultTTL = 5 * time.Minute
	loadKey    = "load"
)

// Cache is a TTL-boxed Store in front of a source. Concurrent misses share
// a single load. When a reload fails while an older snapshot exists, the
// older snapshot keeps being served.
type Cache struct {
	src             source.Source
	ttl             time.Duration
	refreshInterval time.Duration
	now             func() time.Time
	logger          logger.Logger

	group    singleflight.Group
	snapshot atomic.Pointer[Snapshot]
	version  atomic.Uint64

	// generation is bumped by every invalidation. A load started under an
	// older generation returns its result without caching it.
	mu         sync.Mutex
	generation uint64

	// Periodic refresh management
	startOnce sync.Once
	wg        sync.WaitGroup
	stopChan  chan struct{}
	closed    atomic.Bool
}

var _ Store = (*Cache)(nil)

// NewCache constructs a cache over src.
func NewCache(src source.Source, opts ...Option) *Cache {
	c := &Cache{
		src:      src,
		ttl:      defaultTTL,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get()
	}
	c.logger = c.logger.Named("cache")
	return c
}

// Start launches the periodic refresh when an interval is configured.
func (c *Cache) Start(ctx context.Context) {
	if c.refreshInterval <= 0 {
		return
	}
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			ticker := time.NewTicker(c.refreshInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-c.stopChan:
					return
				case <-ticker.C:
					if _, err := c.Reload(ctx); err != nil {
						c.logger.Warn(ctx, "periodic reload failed", logger.Error(err))
					}
				}
			}
		}()
	})
}

// Close stops the periodic refresh goroutine.
func (c *Cache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopChan)
	}
	c.wg.Wait()
	return nil
}

// Get implements Store.Get.
func (c *Cache) Get(ctx context.Context) (Snapshot, error) {
	if s := c.snapshot.Load(); s != nil && c.fresh(s) {
		metrics.RecordCacheHit()
		return *s, nil
	}
	metrics.RecordCacheMiss()
	return c.load(ctx)
}

// Reload implements Store.Reload.
func (c *Cache) Reload(ctx context.Context) (Snapshot, error) {
	metrics.RecordCacheInvalidation("reload")
	c.mu.Lock()
	c.generation++
	c.group.Forget(loadKey)
	c.mu.Unlock()
	return c.load(ctx)
}

// Invalidate implements Store.Invalidate.
func (c *Cache) Invalidate(reason string) {
	c.mu.Lock()
	c.generation++
	c.snapshot.Store(nil)
	c.group.Forget(loadKey)
	c.mu.Unlock()
	metrics.RecordCacheInvalidation(reason)
	c.logger.Info(context.Background(), "cache invalidated", logger.String("reason", reason))
}

// Current implements Store.Current.
func (c *Cache) Current() (Snapshot, error) {
	if s := c.snapshot.Load(); s != nil {
		return *s, nil
	}
	return Snapshot{}, ErrNotLoaded
}

// Age returns how long ago the cached snapshot was loaded, 0 when empty.
func (c *Cache) Age() time.Duration {
	if s := c.snapshot.Load(); s != nil {
		return c.now().Sub(s.LoadedAt)
	}
	return 0
}

func (c *Cache) fresh(s *Snapshot) bool {
	return c.ttl <= 0 || c.now().Sub(s.LoadedAt) < c.ttl
}

// store caches s unless the cache was invalidated after gen was read.
func (c *Cache) store(s *Snapshot, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.snapshot.Store(s)
	return true
}

func (c *Cache) load(ctx context.Context) (Snapshot, error) {
	if c.closed.Load() {
		return Snapshot{}, ErrClosed
	}
	v, err, shared := c.group.Do(loadKey, func() (interface{}, error) {
		c.mu.Lock()
		gen := c.generation
		c.mu.Unlock()

		start := time.Now()
		raw, err := c.src.Load(ctx)
		latency := float64(time.Since(start).Microseconds()) / 1000
		if err != nil {
			metrics.RecordSourceLoad(c.src.Name(), "error", latency)
			return nil, err
		}
		metrics.RecordSourceLoad(c.src.Name(), "ok", latency)

		s := &Snapshot{
			Data:     raw,
			Source:   c.src.Name(),
			LoadedAt: c.now(),
			Version:  c.version.Add(1),
		}
		if !c.store(s, gen) {
			c.logger.Debug(ctx, "cache invalidated during load, result not cached",
				logger.Int("version", int(s.Version)),
			)
			return s, nil
		}
		metrics.UpdateCacheLastLoad(float64(s.LoadedAt.Unix()))
		c.logger.Info(ctx, "source loaded",
			logger.String("source", s.Source),
			logger.Int("version", int(s.Version)),
			logger.Float64("latency_ms", latency),
		)
		return s, nil
	})
	if err != nil {
		if stale := c.snapshot.Load(); stale != nil {
			c.logger.Warn(ctx, "source load failed, serving stale snapshot",
				logger.String("source", c.src.Name()),
				logger.Int("version", int(stale.Version)),
				logger.Error(err),
			)
			return *stale, nil
		}
		return Snapshot{}, fmt.Errorf("load %s: %w", c.src.Name(), err)
	}
	if shared {
		c.logger.Debug(ctx, "shared in-flight load")
	}
	return *v.(*Snapshot), nil
}
