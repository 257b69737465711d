package market

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuemby/universalis/pkg/apierr"
	"github.com/cuemby/universalis/pkg/metrics"
)

// SalesStore is an append-only history of completed sales. Reads are
// infrequent relative to listing reads and histories only grow, so there is
// no cache tier here.
type SalesStore struct {
	pool *pgxpool.Pool
}

// NewSalesStore builds a SalesStore over pool.
func NewSalesStore(pool *pgxpool.Pool) *SalesStore {
	return &SalesStore{pool: pool}
}

// Append inserts sales for (worldID,itemID). Duplicates on
// (world_id,item_id,sold_at,unit_price,quantity,buyer_name) are silently
// ignored so replayed uploads are idempotent.
func (s *SalesStore) Append(ctx context.Context, worldID, itemID int32, sales []Sale) error {
	if len(sales) == 0 {
		return nil
	}

	worldIDs := make([]int32, len(sales))
	itemIDs := make([]int32, len(sales))
	soldAts := make([]interface{}, len(sales))
	prices := make([]int32, len(sales))
	qtys := make([]int32, len(sales))
	buyers := make([]string, len(sales))
	hqs := make([]bool, len(sales))

	for i, sale := range sales {
		worldIDs[i] = worldID
		itemIDs[i] = itemID
		soldAts[i] = sale.SoldAt
		prices[i] = sale.UnitPrice
		qtys[i] = sale.Quantity
		buyers[i] = sale.BuyerName
		hqs[i] = sale.HQ
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sale (world_id, item_id, sold_at, unit_price, quantity, buyer_name, hq)
		SELECT * FROM UNNEST(
			$1::int[], $2::int[], $3::timestamptz[], $4::int[], $5::int[], $6::text[], $7::bool[]
		)
		ON CONFLICT DO NOTHING`,
		worldIDs, itemIDs, soldAts, prices, qtys, buyers, hqs,
	)
	if err != nil {
		return apierr.New(apierr.Durable, "sales.append", err)
	}
	metrics.SalesAppended.Add(float64(len(sales)))
	return nil
}

// Recent returns up to limit sales for (worldID,itemID), newest first. A
// limit of 0 or less returns every stored sale.
func (s *SalesStore) Recent(ctx context.Context, worldID, itemID int32, limit int) ([]Sale, error) {
	// A NULL limit is LIMIT ALL in Postgres.
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT world_id, item_id, hq, unit_price, quantity, buyer_name, sold_at
		FROM sale WHERE world_id = $1 AND item_id = $2
		ORDER BY sold_at DESC LIMIT $3`, worldID, itemID, limitArg,
	)
	if err != nil {
		return nil, apierr.New(apierr.Durable, "sales.recent", err)
	}
	defer rows.Close()

	var out []Sale
	for rows.Next() {
		var sale Sale
		if err := rows.Scan(&sale.WorldID, &sale.ItemID, &sale.HQ, &sale.UnitPrice, &sale.Quantity, &sale.BuyerName, &sale.SoldAt); err != nil {
			return nil, apierr.New(apierr.Durable, "sales.recent", err)
		}
		out = append(out, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.New(apierr.Durable, "sales.recent", err)
	}
	return out, nil
}

// mergeSalesBySoldAt merges multiple per-world sale sequences into one
// sold_at-descending sequence. The Aggregator does not call it; it orders
// its SaleView results with its own sort.
func mergeSalesBySoldAt(groups [][]Sale) []Sale {
	var out []Sale
	for _, g := range groups {
		out = append(out, g...)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SoldAt.After(out[j].SoldAt)
	})
	return out
}
