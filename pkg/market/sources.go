package market

import (
	"context"
	"crypto/sha512"
	"encoding/hex"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuemby/universalis/pkg/apierr"
)

// SourceRegistry maps the SHA-512 hash of an API key (see HashAPIKey) to a
// TrustedSource record. It never stores or logs plaintext keys.
type SourceRegistry struct {
	pool *pgxpool.Pool
}

// NewSourceRegistry builds a SourceRegistry over pool.
func NewSourceRegistry(pool *pgxpool.Pool) *SourceRegistry {
	return &SourceRegistry{pool: pool}
}

// HashAPIKey computes the registry's key for an API key plaintext. The
// registry only ever sees this hash, never the key itself.
func HashAPIKey(apiKey string) string {
	sum := sha512.Sum512([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// Get looks up the trusted source for an API key plaintext. Returns
// apierr.Forbidden if the key is unknown.
func (r *SourceRegistry) Get(ctx context.Context, apiKey string) (TrustedSource, error) {
	hash := HashAPIKey(apiKey)

	var ts TrustedSource
	err := r.pool.QueryRow(ctx,
		`SELECT api_key_hash, name, upload_count FROM trusted_source WHERE api_key_hash = $1`, hash,
	).Scan(&ts.APIKeyHash, &ts.Name, &ts.UploadCount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return TrustedSource{}, apierr.New(apierr.Forbidden, "sources.get", err)
		}
		return TrustedSource{}, apierr.New(apierr.Durable, "sources.get", err)
	}
	return ts, nil
}

// Increment atomically adds 1 to the upload count for an API-key hash. Two
// concurrent increments for the same hash leave the count exactly +2: the
// UPDATE is a single atomic statement, no read-modify-write in application
// code.
func (r *SourceRegistry) Increment(ctx context.Context, apiKeyHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE trusted_source SET upload_count = upload_count + 1 WHERE api_key_hash = $1`, apiKeyHash,
	)
	if err != nil {
		return apierr.New(apierr.Durable, "sources.increment", err)
	}
	return nil
}

// Count returns the number of registered trusted sources, used only for
// the metrics gauge.
func (r *SourceRegistry) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trusted_source`).Scan(&n)
	if err != nil {
		return 0, apierr.New(apierr.Durable, "sources.count", err)
	}
	return n, nil
}
