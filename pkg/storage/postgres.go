package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds connection configuration for the Postgres pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// DB wraps a pgx connection pool with the schema this package owns.
//
// There is no ORM layer: every store in pkg/market issues its own SQL
// against the pool returned by Pool(). DB's only job is connecting,
// pinging, and creating the schema once at startup.
type DB struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres, verifies connectivity, and ensures the schema
// exists. It is meant to be called once at process startup.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ensure schema: %w", err)
	}

	return db, nil
}

// Pool returns the underlying pgx pool for use by pkg/market stores.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// Close closes the pool.
func (d *DB) Close() {
	d.pool.Close()
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS listing (
	listing_id        TEXT PRIMARY KEY,
	item_id           INTEGER NOT NULL,
	world_id          INTEGER NOT NULL,
	hq                BOOLEAN NOT NULL DEFAULT false,
	on_mannequin      BOOLEAN NOT NULL DEFAULT false,
	materia           JSONB NOT NULL DEFAULT '[]',
	unit_price        INTEGER NOT NULL,
	quantity          INTEGER NOT NULL,
	dye_id            INTEGER NOT NULL DEFAULT 0,
	creator_id        TEXT NOT NULL DEFAULT '',
	creator_name      TEXT NOT NULL DEFAULT '',
	last_review_time  TIMESTAMPTZ,
	retainer_id       TEXT NOT NULL DEFAULT '',
	retainer_name     TEXT NOT NULL DEFAULT '',
	retainer_city_id  INTEGER NOT NULL DEFAULT 0,
	seller_id         TEXT NOT NULL DEFAULT '',
	uploaded_at       TIMESTAMPTZ NOT NULL,
	source            TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_listing_item_world ON listing (item_id, world_id);

CREATE TABLE IF NOT EXISTS sale (
	world_id    INTEGER NOT NULL,
	item_id     INTEGER NOT NULL,
	sold_at     TIMESTAMPTZ NOT NULL,
	unit_price  INTEGER NOT NULL,
	quantity    INTEGER NOT NULL,
	buyer_name  TEXT NOT NULL DEFAULT '',
	hq          BOOLEAN NOT NULL DEFAULT false,
	UNIQUE (world_id, item_id, sold_at, unit_price, quantity, buyer_name)
);
CREATE INDEX IF NOT EXISTS idx_sale_item_world_sold_at ON sale (item_id, world_id, sold_at DESC);

CREATE TABLE IF NOT EXISTS uploader_blacklist (
	uploader_hash TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS trusted_source (
	api_key_hash  TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	upload_count  BIGINT NOT NULL DEFAULT 0
);
`

func (d *DB) ensureSchema(ctx context.Context) error {
	return ApplySchema(ctx, d.pool)
}

// ApplySchema runs the schema DDL against pool. Exposed so integration
// tests can stand up a throwaway database without going through Open.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaDDL)
	return err
}
