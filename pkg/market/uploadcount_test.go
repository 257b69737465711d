package market

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploadCountBackend struct {
	data []byte
}

func (f *fakeUploadCountBackend) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.data == nil {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(f.data), nil)
}

func (f *fakeUploadCountBackend) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data = v
	case string:
		f.data = []byte(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func TestUploadCountFirstIncrementStartsAtOne(t *testing.T) {
	backend := &fakeUploadCountBackend{}
	store := NewUploadCountStore(backend)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Increment(context.Background(), now))

	hist, err := store.Retrieve(context.Background())
	require.NoError(t, err)
	require.Len(t, hist.Counts, 1)
	assert.Equal(t, int64(1), hist.Counts[0])
}

func TestUploadCountSameDayAccumulates(t *testing.T) {
	backend := &fakeUploadCountBackend{}
	store := NewUploadCountStore(backend)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Increment(context.Background(), base))
	require.NoError(t, store.Increment(context.Background(), base.Add(time.Hour)))
	require.NoError(t, store.Increment(context.Background(), base.Add(2*time.Hour)))

	hist, err := store.Retrieve(context.Background())
	require.NoError(t, err)
	require.Len(t, hist.Counts, 1)
	assert.Equal(t, int64(3), hist.Counts[0])
}

func TestUploadCountRolloverPrependsZero(t *testing.T) {
	backend := &fakeUploadCountBackend{}
	store := NewUploadCountStore(backend)

	day1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Increment(context.Background(), day1))
	require.NoError(t, store.Increment(context.Background(), day1))

	day2 := day1.Add(25 * time.Hour)
	require.NoError(t, store.Increment(context.Background(), day2))

	hist, err := store.Retrieve(context.Background())
	require.NoError(t, err)
	require.Len(t, hist.Counts, 2)
	assert.Equal(t, int64(1), hist.Counts[0], "today's counter starts fresh")
	assert.Equal(t, int64(2), hist.Counts[1], "yesterday's counter is preserved")
}

func TestUploadCountTruncatesAt30(t *testing.T) {
	backend := &fakeUploadCountBackend{}
	store := NewUploadCountStore(backend)

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 35; i++ {
		require.NoError(t, store.Increment(context.Background(), day))
		day = day.Add(25 * time.Hour)
	}

	hist, err := store.Retrieve(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hist.Counts), 30)
}

func TestUploadCountRetrieveEmptyIsZeroValue(t *testing.T) {
	backend := &fakeUploadCountBackend{}
	store := NewUploadCountStore(backend)

	hist, err := store.Retrieve(context.Background())
	require.NoError(t, err)
	assert.True(t, hist.LastPush.IsZero())
	assert.Empty(t, hist.Counts)
}
