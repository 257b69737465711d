package metrics

import (
	"context"
	"time"
)

// StatsSource is the minimal capability Collector needs from the market
// store; kept as an interface here (rather than importing pkg/market
// directly) so this leaf package never depends on the domain layer above
// it.
type StatsSource interface {
	BlacklistSize(ctx context.Context) (int64, error)
	TrustedSourceCount(ctx context.Context) (int64, error)
}

// Collector periodically samples gauges from a StatsSource.
type Collector struct {
	source StatsSource
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if n, err := c.source.BlacklistSize(ctx); err == nil {
		BlacklistSize.Set(float64(n))
	}
	if n, err := c.source.TrustedSourceCount(ctx); err == nil {
		TrustedSourcesTotal.Set(float64(n))
	}
}
