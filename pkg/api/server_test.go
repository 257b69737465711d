package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cuemby/universalis/pkg/apierr"
	"github.com/cuemby/universalis/pkg/market"
	"github.com/cuemby/universalis/pkg/storage"
	"github.com/cuemby/universalis/pkg/upload"
	"github.com/cuemby/universalis/pkg/world"
)

type fakeWorldReader struct {
	worlds []world.GameDataRow
	items  []world.ItemRow
}

func (f *fakeWorldReader) ReadWorlds() ([]world.GameDataRow, error) { return f.worlds, nil }
func (f *fakeWorldReader) ReadItems() ([]world.ItemRow, error)      { return f.items, nil }

func testResolver(t *testing.T) *world.Resolver {
	t.Helper()
	r, err := world.Load(&fakeWorldReader{
		worlds: []world.GameDataRow{
			{WorldID: 23, WorldName: "Torgal", DataCenterID: 10, DataCenterName: "Aether", DataCenterRegion: "North-America", IsPublic: true},
		},
		items: []world.ItemRow{
			{ItemID: 5057, StackSize: 999, ItemSearchCategory: 2},
		},
	})
	require.NoError(t, err)
	return r
}

func setupServerTestDB(t *testing.T) *pgxpool.Pool {
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

func newTestServer(t *testing.T, pool *pgxpool.Pool) *Server {
	t.Helper()
	resolver := testResolver(t)
	listings := market.NewListingStore(pool, noopCommander{}, nil)
	sales := market.NewSalesStore(pool)
	aggregator := market.NewAggregator(listings, sales, resolver)

	sources := market.NewSourceRegistry(pool)
	blacklist := market.NewBlacklistStore(pool)
	pipeline := upload.NewPipeline(sources, blacklist,
		&upload.ListingsBehavior{Listings: listings},
		&upload.SalesBehavior{Sales: sales},
	)

	_, err := pool.Exec(context.Background(),
		`INSERT INTO trusted_source (api_key_hash, name) VALUES ($1, 'test-source')`,
		market.HashAPIKey("valid-key"),
	)
	require.NoError(t, err)

	return NewServer(":0", aggregator, pipeline, resolver)
}

func TestHandleUploadThenHandleCurrentListings(t *testing.T) {
	pool := setupServerTestDB(t)
	s := newTestServer(t, pool)

	body := `{
		"world_id": 23,
		"item_id": 5057,
		"uploader_id": "uploader-1",
		"listings": [{
			"listing_id": "l1",
			"price_per_unit": 150,
			"quantity": 2,
			"last_review_time": 1700000000
		}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/upload/valid-key", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/api/v2/5057/Torgal", nil)
	w2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(w2, req2)
	require.Equal(t, http.StatusOK, w2.Code)

	var resp struct {
		ItemID   int32                `json:"item_id"`
		Listings []market.ListingView `json:"listings"`
	}
	require.NoError(t, json.NewDecoder(w2.Body).Decode(&resp))
	require.Len(t, resp.Listings, 1)
	assert.Equal(t, "l1", resp.Listings[0].ListingID)
	assert.Equal(t, int32(150), resp.Listings[0].UnitPrice)
}

func TestHandleUploadUnknownAPIKeyForbidden(t *testing.T) {
	pool := setupServerTestDB(t)
	s := newTestServer(t, pool)

	req := httptest.NewRequest(http.MethodPost, "/upload/wrong-key", bytes.NewBufferString(`{"uploader_id":"u"}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, apierr.Forbidden.Status(), w.Code)
}

func TestHandleCurrentListingsUnknownItemIsNotFound(t *testing.T) {
	pool := setupServerTestDB(t)
	s := newTestServer(t, pool)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/1/Torgal", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCurrentListingsUnknownWorldIsNotFound(t *testing.T) {
	pool := setupServerTestDB(t)
	s := newTestServer(t, pool)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/5057/NoSuchWorld", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDtoToPayloadConvertsTimestampsAndMateria(t *testing.T) {
	dto := uploadRequestDTO{
		UploaderID: "u1",
		Listings: []listingDTO{{
			ListingID:      "l1",
			Materia:        []materiaDTO{{SlotID: 1, MateriaID: 2}},
			PricePerUnit:   100,
			Quantity:       1,
			LastReviewTime: 1700000000,
		}},
		Entries: []saleDTO{{UnitPrice: 50, Quantity: 1, SoldAt: 1700000001}},
	}
	p := dtoToPayload(dto)

	require.Len(t, p.Listings, 1)
	assert.Equal(t, int32(100), p.Listings[0].UnitPrice)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), p.Listings[0].LastReviewTime)
	require.Len(t, p.Listings[0].Materia, 1)
	assert.Equal(t, int32(2), p.Listings[0].Materia[0].MateriaID)

	require.Len(t, p.Entries, 1)
	assert.Equal(t, time.Unix(1700000001, 0).UTC(), p.Entries[0].SoldAt)
}

func TestWriteErrorMapsApierrKindToStatus(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, context.Background(), apierr.New(apierr.BadRequest, "test", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWriteErrorCancelledContextOverridesKind(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := httptest.NewRecorder()
	writeError(w, ctx, apierr.New(apierr.Durable, "test", nil))
	assert.Equal(t, apierr.Cancelled.Status(), w.Code)
}
