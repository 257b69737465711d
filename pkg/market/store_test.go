package market

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cuemby/universalis/pkg/apierr"
	"github.com/cuemby/universalis/pkg/storage"
)

// noopCommander is a Commander that always misses, used where a test
// exercises ListingStore's database path and only needs cache invalidation
// not to panic against a nil backend.
type noopCommander struct{}

func (noopCommander) Get(ctx context.Context, key string) *redis.StringCmd {
	return redis.NewStringResult("", redis.Nil)
}

func (noopCommander) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	return redis.NewStatusResult("OK", nil)
}

func (noopCommander) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return redis.NewIntResult(0, nil)
}

// setupTestDB starts a throwaway Postgres container, applies the schema,
// and returns a pool closed (and container terminated) on test cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("universalis_test"),
		tcpostgres.WithUsername("universalis"),
		tcpostgres.WithPassword("universalis"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, storage.ApplySchema(ctx, pool))
	return pool
}

func sampleListing(id string, world, item, price int32) Listing {
	return Listing{
		ListingID:  id,
		WorldID:    world,
		ItemID:     item,
		UnitPrice:  price,
		Quantity:   1,
		Materia:    []Materia{},
		UploadedAt: time.Now().UTC(),
	}
}

// TestListingStoreReplaceThenRead is spec scenario S1.
func TestListingStoreReplaceThenRead(t *testing.T) {
	pool := setupTestDB(t)
	store := NewListingStore(pool, noopCommander{}, nil)
	ctx := context.Background()

	err := store.ReplaceLive(ctx, []Listing{
		sampleListing("A", 23, 5057, 100),
		sampleListing("B", 23, 5057, 50),
	})
	require.NoError(t, err)

	got, err := store.queryLive(ctx, []int32{23}, []int32{5057})
	require.NoError(t, err)
	listings := got[WorldItem{WorldID: 23, ItemID: 5057}]
	require.Len(t, listings, 2)
	require.Equal(t, "B", listings[0].ListingID)
	require.Equal(t, "A", listings[1].ListingID)
}

// TestListingStoreIdempotentConflict is spec scenario S2: re-uploading an
// existing listing_id retains the original row, and a group replace drops
// listings absent from the new set.
func TestListingStoreIdempotentConflict(t *testing.T) {
	pool := setupTestDB(t)
	store := NewListingStore(pool, noopCommander{}, nil)
	ctx := context.Background()

	require.NoError(t, store.ReplaceLive(ctx, []Listing{
		sampleListing("A", 23, 5057, 100),
		sampleListing("B", 23, 5057, 50),
	}))

	require.NoError(t, store.ReplaceLive(ctx, []Listing{
		sampleListing("A", 23, 5057, 999),
	}))

	got, err := store.queryLive(ctx, []int32{23}, []int32{5057})
	require.NoError(t, err)
	listings := got[WorldItem{WorldID: 23, ItemID: 5057}]
	require.Len(t, listings, 1)
	require.Equal(t, "A", listings[0].ListingID)
	require.Equal(t, int32(100), listings[0].UnitPrice, "conflicting insert must not reset the existing row")
}

func TestListingStoreDeleteLiveClearsGroup(t *testing.T) {
	pool := setupTestDB(t)
	store := NewListingStore(pool, noopCommander{}, nil)
	ctx := context.Background()

	require.NoError(t, store.ReplaceLive(ctx, []Listing{sampleListing("A", 23, 5057, 100)}))
	require.NoError(t, store.ReplaceLive(ctx, []Listing{})) // no group key, nothing to do

	require.NoError(t, store.DeleteLive(ctx, 23, 5057))

	got, err := store.queryLive(ctx, []int32{23}, []int32{5057})
	require.NoError(t, err)
	require.Empty(t, got[WorldItem{WorldID: 23, ItemID: 5057}])
}

func TestListingStoreRetrieveManyLiveMissingPairsAreEmpty(t *testing.T) {
	pool := setupTestDB(t)
	store := NewListingStore(pool, noopCommander{}, nil)
	ctx := context.Background()

	require.NoError(t, store.ReplaceLive(ctx, []Listing{sampleListing("A", 23, 5057, 100)}))

	got, err := store.RetrieveManyLive(ctx, []int32{23, 24}, []int32{5057})
	require.NoError(t, err)
	require.Len(t, got[WorldItem{WorldID: 23, ItemID: 5057}], 1)
	require.Empty(t, got[WorldItem{WorldID: 24, ItemID: 5057}])
}

func TestSalesStoreAppendIsIdempotentAndOrdered(t *testing.T) {
	pool := setupTestDB(t)
	store := NewSalesStore(pool)
	ctx := context.Background()

	older := time.Now().Add(-time.Hour).UTC()
	newer := time.Now().UTC()

	sales := []Sale{
		{WorldID: 23, ItemID: 5057, UnitPrice: 100, Quantity: 1, BuyerName: "x", SoldAt: older},
		{WorldID: 23, ItemID: 5057, UnitPrice: 50, Quantity: 2, BuyerName: "y", SoldAt: newer},
	}
	require.NoError(t, store.Append(ctx, 23, 5057, sales))
	require.NoError(t, store.Append(ctx, 23, 5057, sales)) // replay

	got, err := store.Recent(ctx, 23, 5057, 10)
	require.NoError(t, err)
	require.Len(t, got, 2, "duplicate replay must not double-insert")
	require.Equal(t, "y", got[0].BuyerName, "newest first")
}

func TestBlacklistStoreHasAndAdd(t *testing.T) {
	pool := setupTestDB(t)
	store := NewBlacklistStore(pool)
	ctx := context.Background()

	has, err := store.Has(ctx, "deadbeef")
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, store.Add(ctx, "deadbeef"))
	require.NoError(t, store.Add(ctx, "deadbeef")) // idempotent

	has, err = store.Has(ctx, "deadbeef")
	require.NoError(t, err)
	require.True(t, has)

	n, err := store.Size(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestSourceRegistryGetAndIncrement(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	hash := HashAPIKey("plaintext-key")
	_, err := pool.Exec(ctx, `INSERT INTO trusted_source (api_key_hash, name, upload_count) VALUES ($1, $2, 0)`, hash, "Test Client")
	require.NoError(t, err)

	registry := NewSourceRegistry(pool)

	ts, err := registry.Get(ctx, "plaintext-key")
	require.NoError(t, err)
	require.Equal(t, "Test Client", ts.Name)
	require.Equal(t, int64(0), ts.UploadCount)

	require.NoError(t, registry.Increment(ctx, hash))
	require.NoError(t, registry.Increment(ctx, hash))

	ts, err = registry.Get(ctx, "plaintext-key")
	require.NoError(t, err)
	require.Equal(t, int64(2), ts.UploadCount)
}

func TestSourceRegistryUnknownKeyIsForbidden(t *testing.T) {
	pool := setupTestDB(t)
	registry := NewSourceRegistry(pool)

	_, err := registry.Get(context.Background(), "whoever")
	require.Error(t, err)
	require.Equal(t, apierr.Forbidden, apierr.KindOf(err))
}
