// Package ws implements the WebSocket push channel for startingnine-server.
//
// Hub polls the store on an interval (default 5s in production) and pushes
// the daily matchup cache to every connected client whenever the collector
// has rewritten the file, so the frontend updates without re-fetching
// /api/v1/matchups on a timer.
//
// Message format sent to clients:
//
//	{
//	  "event":      "matchups",
//	  "updated_at": "2026-05-01T17:40:02Z",
//	  "data":       { /* same schema as GET /api/v1/matchups */ }
//	}
//
// A client connecting before the first collector run receives
// {"event": "waiting"} and then the first cache once it is written.
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The endpoint is mounted at /ws/matchups by the server.
package ws
