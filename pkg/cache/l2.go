package cache

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by L2 reads that found no value for the key.
var ErrMiss = errors.New("cache: miss")

// ErrTimeout is returned by L2 reads that were cancelled or exceeded the
// bounded wait. Per the store's failure semantics this is Transient: it is
// swallowed and treated as a miss by callers, never surfaced as an error.
var ErrTimeout = errors.New("cache: timeout")

// Commander is the subset of *redis.Client this package depends on, so
// tests can substitute a fake without pulling in a live Redis server.
type Commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// L2 is the distributed cache tier. It picks between a primary and a pool
// of read replicas on every read, weighted by replica count, and bounds
// every read to a fixed wait.
type L2 struct {
	primary  Commander
	replicas []Commander
	wait     time.Duration
	rand     func() float64
}

// NewL2 builds an L2 tier. wait bounds every Get; per spec it is 1s.
func NewL2(primary Commander, replicas []Commander, wait time.Duration) *L2 {
	return &L2{
		primary:  primary,
		replicas: replicas,
		wait:     wait,
		rand:     rand.Float64,
	}
}

// pick chooses PreferReplica with probability 1/(1+R), else PreferMaster,
// where R is the number of configured replicas.
func (l *L2) pick() Commander {
	r := len(l.replicas)
	if r == 0 {
		return l.primary
	}
	if l.rand() < 1.0/float64(1+r) {
		return l.replicas[rand.Intn(r)]
	}
	return l.primary
}

// Get fetches raw bytes for key, bounding the wait to l.wait. Timeouts and
// cancellations are reported as ErrTimeout; a clean miss as ErrMiss. Both
// are Transient per the store's failure semantics — the caller never
// surfaces either as an error.
func (l *L2) Get(ctx context.Context, key string) ([]byte, error) {
	bounded, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	client := l.pick()
	data, err := client.Get(bounded, key).Bytes()
	if err != nil {
		if bounded.Err() != nil {
			return nil, ErrTimeout
		}
		return nil, ErrMiss
	}
	return data, nil
}

// SetAsync fire-and-forgets a write to the primary with the given TTL. The
// caller does not wait for completion and is not told of failure.
func (l *L2) SetAsync(key string, data []byte, ttl time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.wait)
		defer cancel()
		_ = l.primary.Set(ctx, key, data, ttl)
	}()
}

// DeleteAsync fire-and-forgets an invalidation of key on the primary.
func (l *L2) DeleteAsync(key string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.wait)
		defer cancel()
		_ = l.primary.Del(ctx, key)
	}()
}
