package market

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuemby/universalis/pkg/apierr"
)

// BlacklistStore is a set of opaque uploader hashes. Membership is the only
// read operation the upload pipeline needs; removal is out of scope.
type BlacklistStore struct {
	pool *pgxpool.Pool
}

// NewBlacklistStore builds a BlacklistStore over pool.
func NewBlacklistStore(pool *pgxpool.Pool) *BlacklistStore {
	return &BlacklistStore{pool: pool}
}

// Has reports whether hash is blacklisted.
func (s *BlacklistStore) Has(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM uploader_blacklist WHERE uploader_hash = $1)`, hash,
	).Scan(&exists)
	if err != nil {
		return false, apierr.New(apierr.Durable, "blacklist.has", err)
	}
	return exists, nil
}

// Add inserts hash into the blacklist. Idempotent: re-adding is a no-op.
func (s *BlacklistStore) Add(ctx context.Context, hash string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO uploader_blacklist (uploader_hash) VALUES ($1) ON CONFLICT DO NOTHING`, hash,
	)
	if err != nil {
		return apierr.New(apierr.Durable, "blacklist.add", err)
	}
	return nil
}

// Size returns the current blacklist cardinality, used only for the metrics
// gauge — not on any request hot path.
func (s *BlacklistStore) Size(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM uploader_blacklist`).Scan(&n)
	if err != nil {
		return 0, apierr.New(apierr.Durable, "blacklist.size", err)
	}
	return n, nil
}
