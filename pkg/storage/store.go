package storage

import "context"

// Pinger is implemented by anything a readiness check can probe without
// depending on a concrete client type; *DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping satisfies Pinger against the Postgres pool.
func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}
