/*
Package api implements the HTTP v2 JSON surface: current-listings and sales
views per item/world-or-data-center, and the upload endpoint that feeds the
upload pipeline.

	┌────────────── CLIENT ──────────────┐
	│  GET  /api/v2/{itemId}/{worldOrDc}  │
	│  GET  /api/v2/history/{itemId}/...  │
	│  POST /upload/{apiKey}              │
	└──────────────────┬──────────────────┘
	                    │ net/http
	┌───────────────────▼───────────────────┐
	│              Server                    │
	│  - resolves item/world via pkg/world   │
	│  - fetches via pkg/market.Aggregator    │
	│  - runs uploads via pkg/upload.Pipeline │
	└───────────────────┬───────────────────┘
	                    │
	        apierr.Kind → HTTP status

A logging/metrics middleware wraps every route; a separate HealthServer
exposes /health, /ready, and /metrics for the orchestration layer.
*/
package api
