package cache

import (
	"context"
	"time"

	"github.com/cuemby/universalis/pkg/metrics"
)

// TwoTier is a read-through, write-invalidate cache over a slow source:
// an L1 process-local tier backed by an L2 distributed tier. Family
// labels the metric series (e.g. "listing").
type TwoTier[T any] struct {
	l1     *L1[T]
	l2     *L2
	l2TTL  time.Duration
	codec  Codec[T]
	family string
}

// Config configures a TwoTier cache's tiers.
type Config struct {
	L1Size int
	L1TTL  time.Duration
	L2TTL  time.Duration
	Wait   time.Duration // bound on every L2 read
}

// New builds a TwoTier cache over the given L2 backend.
func New[T any](family string, cfg Config, primary Commander, replicas []Commander, codec Codec[T]) *TwoTier[T] {
	return &TwoTier[T]{
		l1:     NewL1[T](cfg.L1Size, cfg.L1TTL),
		l2:     NewL2(primary, replicas, cfg.Wait),
		l2TTL:  cfg.L2TTL,
		codec:  codec,
		family: family,
	}
}

// Get probes L1, then L2. It never returns an error: a cache miss or a
// backend failure are indistinguishable to the caller, who is expected to
// fall back to the source of truth.
func (c *TwoTier[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T

	if v, ok := c.l1.Get(key); ok {
		metrics.CacheL1Hits.WithLabelValues(c.family).Inc()
		return v, true
	}

	data, err := c.l2.Get(ctx, key)
	switch err {
	case nil:
		v, decodeErr := c.codec.Decode(data)
		if decodeErr != nil {
			metrics.CacheMisses.WithLabelValues(c.family).Inc()
			return zero, false
		}
		metrics.CacheL2Hits.WithLabelValues(c.family).Inc()
		c.l1.Set(key, v)
		return v, true
	case ErrTimeout:
		metrics.CacheTimeouts.WithLabelValues(c.family).Inc()
		return zero, false
	default:
		metrics.CacheMisses.WithLabelValues(c.family).Inc()
		return zero, false
	}
}

// Populate fills both tiers after a source-of-truth read: L1 synchronously,
// L2 fire-and-forget.
func (c *TwoTier[T]) Populate(key string, v T) {
	c.l1.Set(key, v)

	data, err := c.codec.Encode(v)
	if err != nil {
		return
	}
	c.l2.SetAsync(key, data, c.l2TTL)
}

// Invalidate removes key from both tiers. L1 is removed synchronously so
// that the writer's own next read observes the change; L2 deletion is
// fire-and-forget, issued before this call returns.
func (c *TwoTier[T]) Invalidate(key string) {
	c.l1.Delete(key)
	c.l2.DeleteAsync(key)
}
