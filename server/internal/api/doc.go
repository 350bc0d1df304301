// Package api implements the HTTP REST API for startingnine-server.
//
// New(store) returns an http.Handler that serves:
//
//	GET /api/v1/health              freshness, record counts and diagnostics
//	GET /api/v1/matchups            the daily cache as the collector wrote it
//	GET /api/v1/matchups/{gamePk}   the records of one game; 404 if unknown
//	GET /api/v1/umpires             the latest umpire report
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for non-GET methods
//   - Return 404 while the collector has not written the underlying file
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
