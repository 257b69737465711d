package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuemby/universalis/pkg/apierr"
	"github.com/cuemby/universalis/pkg/cache"
)

// WorldItem identifies a (world,item) listing group.
type WorldItem struct {
	WorldID int32
	ItemID  int32
}

func listingCacheKey(worldID, itemID int32) string {
	return fmt.Sprintf("listing4:%d:%d", worldID, itemID)
}

// ListingStore serves the live listing set for a (world,item) pair: a
// write-through, replace-per-upload store fronted by a two-tier cache.
//
// The database is always the source of truth; the cache only ever shortens
// reads. Cache failures are never surfaced to callers.
type ListingStore struct {
	pool  *pgxpool.Pool
	cache *cache.TwoTier[[]Listing]
}

// NewListingStore builds a ListingStore over pool, fronted by a two-tier
// cache built from the given Redis primary/replicas.
func NewListingStore(pool *pgxpool.Pool, primary cache.Commander, replicas []cache.Commander) *ListingStore {
	c := cache.New[[]Listing]("listing", cache.Config{
		L1Size: 10_000,
		L1TTL:  60 * time.Second,
		L2TTL:  10 * time.Minute,
		Wait:   time.Second,
	}, primary, replicas, listingCodec{})

	return &ListingStore{pool: pool, cache: c}
}

// ReplaceLive groups listings by (world_id,item_id) and, for each group,
// deletes the existing rows and inserts the new ones in a single
// transactional batch, stamping uploaded_at with the wall clock at the
// start of this call. Groups are formed from the listings passed in, so a
// (world,item) pair with no listings in the call is left untouched and a
// call with no listings changes nothing; clearing a pair is DeleteLive's job.
//
// On a group failure the other groups' outcomes are undefined-but-persisted:
// this call does not roll back groups that already succeeded, and does not
// attempt compensating deletion (see DESIGN.md). Errors from every failed
// group are joined and returned after all groups have been attempted.
func (s *ListingStore) ReplaceLive(ctx context.Context, listings []Listing) error {
	groups := make(map[WorldItem][]Listing)
	for _, l := range listings {
		key := WorldItem{WorldID: l.WorldID, ItemID: l.ItemID}
		groups[key] = append(groups[key], l)
	}

	uploadedAt := time.Now().UTC()

	var errs []error
	for pair, group := range groups {
		if err := s.replaceGroup(ctx, pair, group, uploadedAt); err != nil {
			errs = append(errs, fmt.Errorf("replace_live %d/%d: %w", pair.WorldID, pair.ItemID, err))
			continue
		}
		s.cache.Invalidate(listingCacheKey(pair.WorldID, pair.ItemID))
	}

	if len(errs) > 0 {
		return apierr.New(apierr.Durable, "listing.replace_live", errors.Join(errs...))
	}
	return nil
}

func (s *ListingStore) replaceGroup(ctx context.Context, pair WorldItem, group []Listing, uploadedAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if len(group) > 0 {
		if err := insertListings(ctx, tx, group, uploadedAt); err != nil {
			return err
		}
	}

	// Rows for this (world,item) whose listing_id is not in the new group are
	// stale and removed. A listing_id present in both the old and new group
	// was already inserted above (or left intact by ON CONFLICT DO NOTHING),
	// so it survives this delete untouched.
	listingIDs := make([]string, len(group))
	for i, l := range group {
		listingIDs[i] = l.ListingID
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM listing WHERE world_id = $1 AND item_id = $2 AND NOT (listing_id = ANY($3::text[]))`,
		pair.WorldID, pair.ItemID, listingIDs,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertListings(ctx context.Context, tx pgx.Tx, listings []Listing, uploadedAt time.Time) error {
	n := len(listings)
	listingIDs := make([]string, n)
	itemIDs := make([]int32, n)
	worldIDs := make([]int32, n)
	hqs := make([]bool, n)
	onMannequins := make([]bool, n)
	materias := make([][]byte, n)
	prices := make([]int32, n)
	qtys := make([]int32, n)
	dyeIDs := make([]int32, n)
	creatorIDs := make([]string, n)
	creatorNames := make([]string, n)
	lastReviews := make([]time.Time, n)
	retainerIDs := make([]string, n)
	retainerNames := make([]string, n)
	retainerCityIDs := make([]int32, n)
	sellerIDs := make([]string, n)
	uploadedAts := make([]time.Time, n)
	sources := make([]string, n)

	for i, l := range listings {
		materiaJSON, err := json.Marshal(l.Materia)
		if err != nil {
			return fmt.Errorf("marshal materia: %w", err)
		}
		listingIDs[i] = l.ListingID
		itemIDs[i] = l.ItemID
		worldIDs[i] = l.WorldID
		hqs[i] = l.HQ
		onMannequins[i] = l.OnMannequin
		materias[i] = materiaJSON
		prices[i] = l.UnitPrice
		qtys[i] = l.Quantity
		dyeIDs[i] = l.DyeID
		creatorIDs[i] = l.CreatorID
		creatorNames[i] = l.CreatorName
		lastReviews[i] = l.LastReviewTime
		retainerIDs[i] = l.RetainerID
		retainerNames[i] = l.RetainerName
		retainerCityIDs[i] = l.RetainerCityID
		sellerIDs[i] = l.SellerID
		uploadedAts[i] = uploadedAt
		sources[i] = l.Source
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO listing (
			listing_id, item_id, world_id, hq, on_mannequin, materia, unit_price, quantity,
			dye_id, creator_id, creator_name, last_review_time, retainer_id, retainer_name,
			retainer_city_id, seller_id, uploaded_at, source
		)
		SELECT * FROM UNNEST(
			$1::text[], $2::int[], $3::int[], $4::bool[], $5::bool[], $6::jsonb[], $7::int[], $8::int[],
			$9::int[], $10::text[], $11::text[], $12::timestamptz[], $13::text[], $14::text[],
			$15::int[], $16::text[], $17::timestamptz[], $18::text[]
		)
		ON CONFLICT (listing_id) DO NOTHING`,
		listingIDs, itemIDs, worldIDs, hqs, onMannequins, materias, prices, qtys,
		dyeIDs, creatorIDs, creatorNames, lastReviews, retainerIDs, retainerNames,
		retainerCityIDs, sellerIDs, uploadedAts, sources,
	)
	return err
}

// DeleteLive removes all listings for (worldID,itemID) and invalidates both
// cache tiers.
func (s *ListingStore) DeleteLive(ctx context.Context, worldID, itemID int32) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM listing WHERE world_id = $1 AND item_id = $2`, worldID, itemID)
	if err != nil {
		return apierr.New(apierr.Durable, "listing.delete_live", err)
	}
	s.cache.Invalidate(listingCacheKey(worldID, itemID))
	return nil
}

// RetrieveLive returns the live listings for (worldID,itemID) ordered by
// unit_price ascending, served from cache when possible.
func (s *ListingStore) RetrieveLive(ctx context.Context, worldID, itemID int32) ([]Listing, error) {
	key := listingCacheKey(worldID, itemID)
	if v, ok := s.cache.Get(ctx, key); ok {
		return sortedCopy(v), nil
	}

	listings, err := s.queryLive(ctx, []int32{worldID}, []int32{itemID})
	if err != nil {
		return nil, err
	}
	group := listings[WorldItem{WorldID: worldID, ItemID: itemID}]
	s.cache.Populate(key, group)
	return sortedCopy(group), nil
}

// RetrieveManyLive fetches listings for the cross product of worldIDs and
// itemIDs in one round trip. Missing pairs map to an empty (nil) sequence.
// Bypasses the cache: callers fanning out across a data center already pay
// one query per request, not one per world.
func (s *ListingStore) RetrieveManyLive(ctx context.Context, worldIDs, itemIDs []int32) (map[WorldItem][]Listing, error) {
	return s.queryLive(ctx, worldIDs, itemIDs)
}

func (s *ListingStore) queryLive(ctx context.Context, worldIDs, itemIDs []int32) (map[WorldItem][]Listing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT listing_id, item_id, world_id, hq, on_mannequin, materia, unit_price, quantity,
			dye_id, creator_id, creator_name, last_review_time, retainer_id, retainer_name,
			retainer_city_id, seller_id, uploaded_at, source
		FROM listing
		WHERE item_id = ANY($1) AND world_id = ANY($2)`, itemIDs, worldIDs,
	)
	if err != nil {
		return nil, apierr.New(apierr.Durable, "listing.retrieve", err)
	}
	defer rows.Close()

	out := make(map[WorldItem][]Listing)
	for _, w := range worldIDs {
		for _, i := range itemIDs {
			out[WorldItem{WorldID: w, ItemID: i}] = nil
		}
	}

	for rows.Next() {
		var l Listing
		var materiaJSON []byte
		if err := rows.Scan(&l.ListingID, &l.ItemID, &l.WorldID, &l.HQ, &l.OnMannequin, &materiaJSON,
			&l.UnitPrice, &l.Quantity, &l.DyeID, &l.CreatorID, &l.CreatorName, &l.LastReviewTime,
			&l.RetainerID, &l.RetainerName, &l.RetainerCityID, &l.SellerID, &l.UploadedAt, &l.Source,
		); err != nil {
			return nil, apierr.New(apierr.Durable, "listing.retrieve", err)
		}
		if len(materiaJSON) > 0 {
			if err := json.Unmarshal(materiaJSON, &l.Materia); err != nil {
				return nil, apierr.New(apierr.Durable, "listing.retrieve", err)
			}
		}
		key := WorldItem{WorldID: l.WorldID, ItemID: l.ItemID}
		out[key] = append(out[key], l)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.New(apierr.Durable, "listing.retrieve", err)
	}

	for key, group := range out {
		out[key] = sortedCopy(group)
	}
	return out, nil
}

func sortedCopy(in []Listing) []Listing {
	out := make([]Listing, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UnitPrice != out[j].UnitPrice {
			return out[i].UnitPrice < out[j].UnitPrice
		}
		return out[i].ListingID < out[j].ListingID
	})
	return out
}
