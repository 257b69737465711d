package market

import (
	"context"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// TaxRatesCommander is the subset of *redis.Client TaxRatesStore depends on.
type TaxRatesCommander interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

var taxRatesFields = []string{
	"limsa_lominsa", "gridania", "uldah", "ishgard",
	"kugane", "crystarium", "old_sharlayan", "tuliyollal", "source",
}

func taxRatesKey(worldID int32) string {
	return "tax:" + strconv.Itoa(int(worldID))
}

// TaxRatesStore is a key-value hash per world holding eight city tax rates
// plus the uploading application's name. There is no cache tier: reads fan
// out to Redis directly, same as writes.
type TaxRatesStore struct {
	rdb TaxRatesCommander
}

// NewTaxRatesStore builds a TaxRatesStore over rdb.
func NewTaxRatesStore(rdb TaxRatesCommander) *TaxRatesStore {
	return &TaxRatesStore{rdb: rdb}
}

// Update writes all fields of rates for worldID in a single HSET and returns
// its error; a failed write is not retried here.
func (s *TaxRatesStore) Update(ctx context.Context, rates TaxRates) error {
	return s.rdb.HSet(ctx, taxRatesKey(rates.WorldID),
		"limsa_lominsa", rates.LimsaLominsa,
		"gridania", rates.Gridania,
		"uldah", rates.Uldah,
		"ishgard", rates.Ishgard,
		"kugane", rates.Kugane,
		"crystarium", rates.Crystarium,
		"old_sharlayan", rates.OldSharlayan,
		"tuliyollal", rates.Tuliyollal,
		"source", rates.Source,
	).Err()
}

// Retrieve reads all eight fields (plus source) in parallel and assembles a
// TaxRates. A world with no stored rates returns (TaxRates{}, false).
func (s *TaxRatesStore) Retrieve(ctx context.Context, worldID int32) (TaxRates, bool, error) {
	key := taxRatesKey(worldID)

	results := make([]string, len(taxRatesFields))
	errs := make([]error, len(taxRatesFields))

	var wg sync.WaitGroup
	for i, field := range taxRatesFields {
		wg.Add(1)
		go func(i int, field string) {
			defer wg.Done()
			v, err := s.rdb.HGet(ctx, key, field).Result()
			if err != nil && err != redis.Nil {
				errs[i] = err
				return
			}
			results[i] = v
		}(i, field)
	}
	wg.Wait()

	anyPresent := false
	for i, v := range results {
		if errs[i] != nil {
			return TaxRates{}, false, errs[i]
		}
		if v != "" && taxRatesFields[i] != "source" {
			anyPresent = true
		}
	}
	if !anyPresent {
		return TaxRates{}, false, nil
	}

	rates := TaxRates{WorldID: worldID}
	rates.LimsaLominsa = parseIntOrZero(results[0])
	rates.Gridania = parseIntOrZero(results[1])
	rates.Uldah = parseIntOrZero(results[2])
	rates.Ishgard = parseIntOrZero(results[3])
	rates.Kugane = parseIntOrZero(results[4])
	rates.Crystarium = parseIntOrZero(results[5])
	rates.OldSharlayan = parseIntOrZero(results[6])
	rates.Tuliyollal = parseIntOrZero(results[7])
	rates.Source = results[8]
	return rates, true, nil
}

func parseIntOrZero(s string) int32 {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return int32(n)
}

// MergeTaxRatesUpload applies an upload on top of existing rates: an
// uploaded field wins; otherwise the existing value is kept; otherwise 0.
func MergeTaxRatesUpload(existing TaxRates, existed bool, upload TaxRatesUpload, worldID int32, source string) TaxRates {
	merged := TaxRates{WorldID: worldID, Source: source}
	if !existed {
		existing = TaxRates{}
	}

	merged.LimsaLominsa = pickInt32(upload.LimsaLominsa, existing.LimsaLominsa)
	merged.Gridania = pickInt32(upload.Gridania, existing.Gridania)
	merged.Uldah = pickInt32(upload.Uldah, existing.Uldah)
	merged.Ishgard = pickInt32(upload.Ishgard, existing.Ishgard)
	merged.Kugane = pickInt32(upload.Kugane, existing.Kugane)
	merged.Crystarium = pickInt32(upload.Crystarium, existing.Crystarium)
	merged.OldSharlayan = pickInt32(upload.OldSharlayan, existing.OldSharlayan)
	merged.Tuliyollal = pickInt32(upload.Tuliyollal, existing.Tuliyollal)
	return merged
}

func pickInt32(uploaded *int32, existing int32) int32 {
	if uploaded != nil {
		return *uploaded
	}
	return existing
}
