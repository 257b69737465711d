/*
Package metrics defines and registers the Prometheus metrics for the
listing/sales store, its two-tier cache, and the upload pipeline.

Metrics are package-level vars registered in init(), exposed via Handler()
for scraping; pkg/api's HealthServer mounts Handler() at /metrics on the
same mux as its /health and /ready checks. A Collector periodically samples gauges (blacklist size, trusted
source count) from a StatsSource so pkg/market never has to know metrics
exist — it only has to satisfy that small interface.
*/
package metrics
