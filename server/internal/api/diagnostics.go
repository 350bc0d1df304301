package api

import (
	"fmt"

	"github.com/startingnine/startingnine/server/internal/store"
)

// DiagnosticHint is one human-readable insight about the served data.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label (5 words at most).
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives hints from the store status. Critical hints
// come first.
func computeDiagnostics(st store.Status, today string) []DiagnosticHint {
	hints := make([]DiagnosticHint, 0, 3)

	// ── No matchups yet ──────────────────────────────────────────────────────
	if st.MatchupsDate == "" {
		hints = append(hints, DiagnosticHint{
			Key:   "no_matchups",
			Level: "critical",
			Title: "No matchups collected",
			Detail: "The collector has not written a matchup file yet. " +
				"Check that it is running and that its data_dir matches the server's.",
		})
	} else if st.MatchupsDate != today {
		hints = append(hints, DiagnosticHint{
			Key:   "stale_matchups",
			Level: "warning",
			Title: "Matchups from another day",
			Detail: fmt.Sprintf("The matchup file is for %s but today is %s. "+
				"The next collector run will start a fresh file for today.",
				st.MatchupsDate, today),
		})
	}

	// ── Degraded records ─────────────────────────────────────────────────────
	if st.Degraded > 0 && st.MatchupsRecords > 0 {
		pct := 100 * float64(st.Degraded) / float64(st.MatchupsRecords)
		level := "info"
		if pct >= 25 {
			level = "warning"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "degraded_records",
			Level: level,
			Title: fmt.Sprintf("%d degraded records", st.Degraded),
			Detail: fmt.Sprintf("%.0f%% of records hold placeholder splits because a Stats API "+
				"call failed. They are retried on the next collector run.", pct),
			Value: &pct,
		})
	}

	// ── Collector alerts ─────────────────────────────────────────────────────
	if st.FiringAlerts > 0 {
		n := float64(st.FiringAlerts)
		hints = append(hints, DiagnosticHint{
			Key:    "alerts_firing",
			Level:  "warning",
			Title:  fmt.Sprintf("%d collector alerts firing", st.FiringAlerts),
			Detail: "An alert rule matched the last collector run. See /api/v1/alerts for details.",
			Value:  &n,
		})
	}

	// ── Umpire report ────────────────────────────────────────────────────────
	if st.Umpires == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "no_umpires",
			Level:  "info",
			Title:  "No umpire report",
			Detail: "The umpire batch has not produced a report yet. It runs once a day.",
		})
	}

	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "healthy",
			Level:  "ok",
			Title:  "All data current",
			Detail: "Today's matchups and the umpire report are being served.",
		})
	}
	return hints
}
