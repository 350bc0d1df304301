package api

import "github.com/startingnine/startingnine/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// State is one of: ok | degraded | stale | empty.
	State             string           `json:"state"`
	Today             string           `json:"today"`
	MatchupsDate      string           `json:"matchups_date,omitempty"`
	MatchupsRecords   int              `json:"matchups_records"`
	DegradedRecords   int              `json:"degraded_records"`
	MatchupsUpdatedAt string           `json:"matchups_updated_at,omitempty"` // RFC3339
	UmpireCount       int              `json:"umpire_count"`
	UmpiresWindow     string           `json:"umpires_window,omitempty"`
	FiringAlerts      int              `json:"firing_alerts"`
	Diagnostics       []DiagnosticHint `json:"diagnostics"`
}

// GameResponse is the payload for GET /api/v1/matchups/{gamePk}.
type GameResponse struct {
	Date    string                        `json:"date"`
	GameID  string                        `json:"game_id"`
	Players map[string]types.PersonRecord `json:"players"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
