// Package server is the HTTP layer over the scanning pipeline.
//
// It owns everything the core pipeline deliberately does not: decoding
// uploaded image bytes, resolving recognized names against the card
// database, and serializing results to JSON. Scans that find nothing are
// normal 200 responses carrying a reason; only an upload the service
// cannot decode at all is rejected (422), matching the batch-level error
// rule of the pipeline.
//
// Routes:
//
//	POST /api/scan/card    scan a single-card photo
//	POST /api/scan/binder  scan a 3x3 binder page photo
//	GET  /api/scan/status  recognition backend and pipeline settings
//	GET  /health           liveness and degradation
package server
