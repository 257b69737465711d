package market

import (
	"context"
	"sort"

	"github.com/cuemby/universalis/pkg/apierr"
	"github.com/cuemby/universalis/pkg/world"
)

// ListingView is a listing annotated with the world it came from, returned
// by the Aggregator so a data-center merge is traceable back to its source.
type ListingView struct {
	Listing
	SourceWorldID int32 `json:"source_world_id"`
}

// SaleView is a sale annotated with its source world.
type SaleView struct {
	Sale
	SourceWorldID int32 `json:"source_world_id"`
}

// Aggregator fans a resolved token (world or data center) out across the
// member worlds and merges the results into one price- or time-ordered view.
type Aggregator struct {
	listings *ListingStore
	sales    *SalesStore
	resolver *world.Resolver
}

// NewAggregator builds an Aggregator over the given stores and resolver.
func NewAggregator(listings *ListingStore, sales *SalesStore, resolver *world.Resolver) *Aggregator {
	return &Aggregator{listings: listings, sales: sales, resolver: resolver}
}

// ResolveAndFetchListings resolves token via the WorldDcResolver and fetches
// the current listings view for itemID: a single-world view if token names
// a world, or a price-ascending merge across every member world if it names
// a data center.
func (a *Aggregator) ResolveAndFetchListings(ctx context.Context, itemID int32, token string) ([]ListingView, error) {
	target, err := a.resolver.Resolve(token)
	if err != nil {
		return nil, apierr.New(apierr.NotFound, "aggregator.resolve_and_fetch_listings", err)
	}

	worldIDs, err := a.worldIDsFor(target)
	if err != nil {
		return nil, err
	}

	groups, err := a.listings.RetrieveManyLive(ctx, worldIDs, []int32{itemID})
	if err != nil {
		return nil, err
	}

	var out []ListingView
	for _, w := range worldIDs {
		for _, l := range groups[WorldItem{WorldID: w, ItemID: itemID}] {
			out = append(out, ListingView{Listing: l, SourceWorldID: w})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UnitPrice != out[j].UnitPrice {
			return out[i].UnitPrice < out[j].UnitPrice
		}
		return out[i].ListingID < out[j].ListingID
	})
	return out, nil
}

// ResolveAndFetchSales is the sales analogue: merges by sold_at descending.
func (a *Aggregator) ResolveAndFetchSales(ctx context.Context, itemID int32, token string, limit int) ([]SaleView, error) {
	target, err := a.resolver.Resolve(token)
	if err != nil {
		return nil, apierr.New(apierr.NotFound, "aggregator.resolve_and_fetch_sales", err)
	}

	worldIDs, err := a.worldIDsFor(target)
	if err != nil {
		return nil, err
	}

	var out []SaleView
	for _, w := range worldIDs {
		sales, err := a.sales.Recent(ctx, w, itemID, limit)
		if err != nil {
			return nil, err
		}
		for _, s := range sales {
			out = append(out, SaleView{Sale: s, SourceWorldID: w})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SoldAt.After(out[j].SoldAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// worldIDsFor returns the member worlds a resolved token fans out to: a
// single world, or every world in a data center, sorted for determinism.
func (a *Aggregator) worldIDsFor(target world.WorldOrDc) ([]int32, error) {
	if target.Kind == world.KindWorld {
		return []int32{target.WorldID}, nil
	}

	dc, ok := a.resolver.DataCenterByName(target.Dc)
	if !ok {
		return nil, apierr.New(apierr.NotFound, "aggregator.world_ids_for", world.ErrNotFound)
	}
	ids := make([]int32, 0, len(dc.WorldIDs))
	for id := range dc.WorldIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
