package upload

import (
	"context"
	"time"

	"github.com/cuemby/universalis/pkg/market"
)

// ListingsBehavior triggers when the upload carries listings for a world
// and invokes ListingStore.ReplaceLive.
type ListingsBehavior struct {
	Listings *market.ListingStore
}

func (ListingsBehavior) Name() string { return "listings" }

func (ListingsBehavior) ShouldExecute(p *Payload) bool {
	return len(p.Listings) > 0 && p.WorldID != nil && p.ItemID != nil
}

func (b ListingsBehavior) Execute(ctx context.Context, _ market.TrustedSource, p *Payload) error {
	for i := range p.Listings {
		p.Listings[i].WorldID = *p.WorldID
		p.Listings[i].ItemID = *p.ItemID
	}
	return b.Listings.ReplaceLive(ctx, p.Listings)
}

// SalesBehavior triggers when the upload carries sale entries and invokes
// SalesStore.Append.
type SalesBehavior struct {
	Sales *market.SalesStore
}

func (SalesBehavior) Name() string { return "sales" }

func (SalesBehavior) ShouldExecute(p *Payload) bool {
	return len(p.Entries) > 0 && p.WorldID != nil && p.ItemID != nil
}

func (b SalesBehavior) Execute(ctx context.Context, _ market.TrustedSource, p *Payload) error {
	return b.Sales.Append(ctx, *p.WorldID, *p.ItemID, p.Entries)
}

// TaxRatesBehavior triggers when the upload carries tax rates for a world.
// The uploaded fields win; fields absent from the upload keep their
// existing stored value, defaulting to 0 when nothing was ever stored.
type TaxRatesBehavior struct {
	TaxRates *market.TaxRatesStore
}

func (TaxRatesBehavior) Name() string { return "tax_rates" }

func (TaxRatesBehavior) ShouldExecute(p *Payload) bool {
	return p.TaxRates != nil && p.WorldID != nil
}

func (b TaxRatesBehavior) Execute(ctx context.Context, source market.TrustedSource, p *Payload) error {
	existing, existed, err := b.TaxRates.Retrieve(ctx, *p.WorldID)
	if err != nil {
		return err
	}
	merged := market.MergeTaxRatesUpload(existing, existed, *p.TaxRates, *p.WorldID, source.Name)
	return b.TaxRates.Update(ctx, merged)
}

// TrustedSourceIncrementBehavior unconditionally increments the uploading
// source's upload count.
type TrustedSourceIncrementBehavior struct {
	Sources *market.SourceRegistry
}

func (TrustedSourceIncrementBehavior) Name() string { return "trusted_source_increment" }

func (TrustedSourceIncrementBehavior) ShouldExecute(p *Payload) bool { return true }

func (b TrustedSourceIncrementBehavior) Execute(ctx context.Context, source market.TrustedSource, _ *Payload) error {
	return b.Sources.Increment(ctx, source.APIKeyHash)
}

// DailyUploadIncrementBehavior unconditionally rolls and increments the
// singleton upload-count history.
type DailyUploadIncrementBehavior struct {
	Counts *market.UploadCountStore
}

func (DailyUploadIncrementBehavior) Name() string { return "daily_upload_increment" }

func (DailyUploadIncrementBehavior) ShouldExecute(p *Payload) bool { return true }

func (b DailyUploadIncrementBehavior) Execute(ctx context.Context, _ market.TrustedSource, _ *Payload) error {
	return b.Counts.Increment(ctx, time.Now().UTC())
}
