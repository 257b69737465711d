/*
Package storage owns the Postgres connection pool and schema for the market
store: listings, sales, the uploader blacklist, and trusted sources.

	┌──────────────── POSTGRES STORAGE ────────────────┐
	│  DB (pgxpool.Pool)                                │
	│   - listing   (PK listing_id, idx item_id,world_id)│
	│   - sale      (idx item_id,world_id,sold_at DESC) │
	│   - uploader_blacklist (PK uploader_hash)         │
	│   - trusted_source     (PK api_key_hash)          │
	└────────────────────────────────────────────────────┘

pkg/market issues its own SQL against Pool(); this package's only job is
opening the pool and creating the schema once at startup, the same division
of labor the teacher draws between its storage package and its consumers.
*/
package storage
