package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/startingnine/startingnine/server/internal/store"
)

func hintKeys(hints []DiagnosticHint) []string {
	keys := make([]string, len(hints))
	for i, h := range hints {
		keys[i] = h.Key
	}
	return keys
}

func TestComputeDiagnostics(t *testing.T) {
	cases := []struct {
		name  string
		st    store.Status
		want  []string
		level string // level of the first hint
	}{
		{
			name:  "nothing collected",
			st:    store.Status{},
			want:  []string{"no_matchups", "no_umpires"},
			level: "critical",
		},
		{
			name:  "healthy",
			st:    store.Status{MatchupsDate: "2026-05-01", MatchupsRecords: 40, Umpires: 70},
			want:  []string{"healthy"},
			level: "ok",
		},
		{
			name:  "stale file",
			st:    store.Status{MatchupsDate: "2026-04-30", MatchupsRecords: 40, Umpires: 70},
			want:  []string{"stale_matchups"},
			level: "warning",
		},
		{
			name:  "few degraded",
			st:    store.Status{MatchupsDate: "2026-05-01", MatchupsRecords: 40, Degraded: 2, Umpires: 70},
			want:  []string{"degraded_records"},
			level: "info",
		},
		{
			name:  "alerts firing",
			st:    store.Status{MatchupsDate: "2026-05-01", MatchupsRecords: 40, Umpires: 70, FiringAlerts: 2},
			want:  []string{"alerts_firing"},
			level: "warning",
		},
		{
			name:  "many degraded",
			st:    store.Status{MatchupsDate: "2026-05-01", MatchupsRecords: 40, Degraded: 10, Umpires: 70},
			want:  []string{"degraded_records"},
			level: "warning",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hints := computeDiagnostics(tc.st, "2026-05-01")
			got := hintKeys(hints)
			if len(got) != len(tc.want) {
				t.Fatalf("keys: got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("keys[%d]: got %q, want %q", i, got[i], tc.want[i])
				}
			}
			if hints[0].Level != tc.level {
				t.Errorf("level: got %q, want %q", hints[0].Level, tc.level)
			}
		})
	}
}

func TestDegradedHintValue(t *testing.T) {
	hints := computeDiagnostics(store.Status{MatchupsDate: "d", MatchupsRecords: 8, Degraded: 2, Umpires: 1}, "d")
	if hints[0].Value == nil || *hints[0].Value != 25 {
		t.Fatalf("value: got %v, want 25", hints[0].Value)
	}
	if hints[0].Level != "warning" {
		t.Errorf("25%% degraded should warn, got %q", hints[0].Level)
	}
}

func TestStateOf(t *testing.T) {
	cases := map[string]store.Status{
		"empty":    {},
		"stale":    {MatchupsDate: "2026-04-30", MatchupsRecords: 1},
		"degraded": {MatchupsDate: "2026-05-01", MatchupsRecords: 1, Degraded: 1},
		"ok":       {MatchupsDate: "2026-05-01", MatchupsRecords: 1},
	}
	for want, st := range cases {
		if got := stateOf(st, "2026-05-01"); got != want {
			t.Errorf("stateOf(%+v): got %q, want %q", st, got, want)
		}
	}
}

func TestHealth_FixedClock(t *testing.T) {
	dir := t.TempDir()
	mp := filepath.Join(dir, "matchups.json")
	if err := os.WriteFile(mp, []byte(`{"date":"2026-05-01","games":{"1":{"2":{"name":"A","status":"fetched"}}}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	h := newHandler(store.New(mp, filepath.Join(dir, "umpires.json"), filepath.Join(dir, "alerts.json")), func() time.Time {
		return time.Date(2026, 5, 1, 23, 0, 0, 0, time.UTC)
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Today != "2026-05-01" || resp.State != "ok" || resp.MatchupsRecords != 1 {
		t.Errorf("health: %+v", resp)
	}
	if got := hintKeys(resp.Diagnostics); len(got) != 1 || got[0] != "no_umpires" {
		t.Errorf("diagnostics: %v", got)
	}
}
