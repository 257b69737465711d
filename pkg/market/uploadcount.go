package market

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cuemby/universalis/pkg/apierr"
)

const uploadCountHistoryKey = "upload_count_history"

// rolloverInterval is 86,400,000 ms, spelled out per spec.
const rolloverInterval = 86_400_000 * time.Millisecond

const maxDailyCounters = 30

// uploadCountCommander is the minimal redis.Client surface this store uses.
// The singleton must round-trip exactly, so unlike the L2 cache tier this
// is a plain get/set, never miss-tolerant.
type uploadCountCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd
}

// UploadCountStore is the singleton rolling-30-day upload counter.
type UploadCountStore struct {
	rdb uploadCountCommander
}

// NewUploadCountStore builds an UploadCountStore over rdb.
func NewUploadCountStore(rdb uploadCountCommander) *UploadCountStore {
	return &UploadCountStore{rdb: rdb}
}

// Increment applies one upload to the singleton history: if now is more
// than rolloverInterval past last_push, a fresh 0 counter is prepended and
// truncated to maxDailyCounters entries; then counts[0] is incremented.
func (s *UploadCountStore) Increment(ctx context.Context, now time.Time) error {
	hist, err := s.Retrieve(ctx)
	if err != nil {
		return err
	}

	if hist.LastPush.IsZero() || now.Sub(hist.LastPush) > rolloverInterval {
		hist.Counts = append([]int64{0}, hist.Counts...)
		if len(hist.Counts) > maxDailyCounters {
			hist.Counts = hist.Counts[:maxDailyCounters]
		}
		hist.LastPush = now
	}
	if len(hist.Counts) == 0 {
		hist.Counts = []int64{0}
	}
	hist.Counts[0]++

	data, err := json.Marshal(hist)
	if err != nil {
		return apierr.New(apierr.Durable, "upload_count.increment", err)
	}
	if err := s.rdb.Set(ctx, uploadCountHistoryKey, data, 0).Err(); err != nil {
		return apierr.New(apierr.Durable, "upload_count.increment", err)
	}
	return nil
}

// Retrieve returns the singleton record verbatim.
func (s *UploadCountStore) Retrieve(ctx context.Context) (UploadCountHistory, error) {
	data, err := s.rdb.Get(ctx, uploadCountHistoryKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return UploadCountHistory{}, nil
		}
		return UploadCountHistory{}, apierr.New(apierr.Durable, "upload_count.retrieve", err)
	}
	var hist UploadCountHistory
	if err := json.Unmarshal(data, &hist); err != nil {
		return UploadCountHistory{}, apierr.New(apierr.Durable, "upload_count.retrieve", err)
	}
	return hist, nil
}
