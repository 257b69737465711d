package market

import "context"

// Stats adapts BlacklistStore and SourceRegistry to metrics.StatsSource
// without pkg/metrics having to import this package.
type Stats struct {
	Blacklist *BlacklistStore
	Sources   *SourceRegistry
}

func (s Stats) BlacklistSize(ctx context.Context) (int64, error) {
	return s.Blacklist.Size(ctx)
}

func (s Stats) TrustedSourceCount(ctx context.Context) (int64, error) {
	return s.Sources.Count(ctx)
}
