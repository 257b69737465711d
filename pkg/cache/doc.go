/*
Package cache implements the two-tier, write-through-invalidated cache used
by the listing store.

	L1 (process-local, expirable LRU, TTL 60s)
	  │ miss
	  ▼
	L2 (distributed, TTL 10m, replica-ratio-weighted read, 1s bound)
	  │ miss or timeout — never an error
	  ▼
	source of truth (Postgres)

A miss or a bounded-wait timeout against L2 are indistinguishable to the
caller by design: both mean "go read the source of truth and repopulate."
Invalidation removes the L1 entry synchronously and fires the L2 delete
without waiting for it, so a writer's own next read never observes its own
stale write while other processes bound their staleness to the L1 TTL.
*/
package cache
