package alerts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/startingnine/startingnine/collector/internal/config"
)

// hookRecorder collects webhook bodies.
type hookRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (h *hookRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	h.mu.Lock()
	h.bodies = append(h.bodies, string(b))
	h.mu.Unlock()
}

func (h *hookRecorder) all() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.bodies...)
}

func newEngine(t *testing.T, rules []config.AlertRule, hookType string) (*Engine, *hookRecorder, clockwork.FakeClock) {
	t.Helper()
	rec := &hookRecorder{}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	t.Setenv("STARTINGNINE_TEST_HOOK", srv.URL)

	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC))
	e := New(config.AlertsConfig{
		Rules:    rules,
		Webhooks: []config.WebhookConfig{{Type: hookType, URLEnv: "STARTINGNINE_TEST_HOOK"}},
	}, WithClock(clock))
	return e, rec, clock
}

func TestEvalCondition(t *testing.T) {
	r := Report{Job: "matchups", Failed: true, Games: 15, Fetched: 30, Degraded: 10, Skipped: 2, Umpires: 0}
	tests := []struct {
		cond  string
		fires bool
		value float64
	}{
		{"failed == 1", true, 1},
		{"games == 0", false, 15},
		{"degraded_pct >= 25", true, 25},
		{"degraded_pct > 25", false, 25},
		{"skipped != 2", false, 2},
		{"umpires < 20", true, 0},
		{"unknown > 1", false, 0},
		{"games >", false, 0},
		{"games ~ 3", false, 15},
		{"games > x", false, 0},
	}
	for _, tc := range tests {
		fires, v := evalCondition(tc.cond, r)
		if fires != tc.fires || v != tc.value {
			t.Errorf("%q: got (%v, %v), want (%v, %v)", tc.cond, fires, v, tc.fires, tc.value)
		}
	}
}

func TestReport_DegradedPctNothingWritten(t *testing.T) {
	if got := (Report{Skipped: 4}).DegradedPct(); got != 0 {
		t.Errorf("DegradedPct: got %v, want 0", got)
	}
}

func TestEvaluate_FireThenResolve(t *testing.T) {
	e, rec, clock := newEngine(t, []config.AlertRule{
		{Name: "run-failed", Job: "matchups", Condition: "failed == 1", Severity: "critical"},
	}, "slack")
	ctx := context.Background()

	fired := e.Evaluate(ctx, Report{Job: "matchups", Date: "2026-05-01", Failed: true})
	if len(fired) != 1 || fired[0].State != StateFiring || fired[0].Severity != "critical" {
		t.Fatalf("fire: %+v", fired)
	}
	if len(e.Active()) != 1 {
		t.Errorf("Active: got %d, want 1", len(e.Active()))
	}

	// Still failing: no second notification.
	clock.Advance(10 * time.Minute)
	if got := e.Evaluate(ctx, Report{Job: "matchups", Failed: true}); len(got) != 0 {
		t.Errorf("repeat fire: %+v", got)
	}

	clock.Advance(10 * time.Minute)
	resolved := e.Evaluate(ctx, Report{Job: "matchups", Fetched: 30})
	if len(resolved) != 1 || resolved[0].State != StateResolved || resolved[0].ResolvedAt == nil {
		t.Fatalf("resolve: %+v", resolved)
	}

	bodies := rec.all()
	if len(bodies) != 2 {
		t.Fatalf("webhook deliveries: got %d, want 2", len(bodies))
	}
	if !strings.Contains(bodies[0], "[CRITICAL]") || !strings.Contains(bodies[1], "[RESOLVED]") {
		t.Errorf("slack bodies: %v", bodies)
	}

	active := e.Active()
	if len(active) != 1 || active[0].State != StateResolved {
		t.Errorf("recently resolved should be listed: %+v", active)
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	e, rec, clock := newEngine(t, []config.AlertRule{
		{Name: "degraded", Condition: "degraded_pct > 20", Cooldown: time.Hour},
	}, "http")
	ctx := context.Background()
	bad := Report{Job: "matchups", Fetched: 6, Degraded: 4}
	good := Report{Job: "matchups", Fetched: 10}

	e.Evaluate(ctx, bad)
	e.Evaluate(ctx, good)

	clock.Advance(20 * time.Minute)
	if got := e.Evaluate(ctx, bad); len(got) != 0 {
		t.Errorf("fired within cooldown: %+v", got)
	}

	clock.Advance(time.Hour)
	if got := e.Evaluate(ctx, bad); len(got) != 1 || got[0].Severity != "warning" {
		t.Errorf("after cooldown: %+v", got)
	}
	if n := len(rec.all()); n != 3 {
		t.Errorf("deliveries: got %d, want 3", n)
	}
	if body := rec.all()[0]; !strings.Contains(body, `"rule_name":"degraded"`) {
		t.Errorf("http body: %s", body)
	}
}

func TestEvaluate_JobFilter(t *testing.T) {
	e, _, _ := newEngine(t, []config.AlertRule{
		{Name: "thin-report", Job: "umpires", Condition: "umpires < 20"},
	}, "teams")

	if got := e.Evaluate(context.Background(), Report{Job: "matchups"}); len(got) != 0 {
		t.Errorf("rule for umpires fired on matchups: %+v", got)
	}
	got := e.Evaluate(context.Background(), Report{Job: "umpires", Umpires: 3})
	if len(got) != 1 || got[0].Value != 3 {
		t.Errorf("umpires: %+v", got)
	}
}

func TestEvaluate_NoRules(t *testing.T) {
	e := New(config.AlertsConfig{})
	if got := e.Evaluate(context.Background(), Report{Job: "matchups", Failed: true}); len(got) != 0 {
		t.Errorf("no rules should never fire: %+v", got)
	}
}

func TestDeliver_WebhookErrorIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	t.Setenv("STARTINGNINE_TEST_HOOK", srv.URL)

	e := New(config.AlertsConfig{
		Rules:    []config.AlertRule{{Name: "run-failed", Condition: "failed == 1"}},
		Webhooks: []config.WebhookConfig{{Type: "http", URLEnv: "STARTINGNINE_TEST_HOOK"}, {Type: "slack"}},
	})
	if got := e.Evaluate(context.Background(), Report{Job: "umpires", Failed: true}); len(got) != 1 {
		t.Fatalf("fire: %+v", got)
	}
}

func TestReload_DropsRemovedRules(t *testing.T) {
	e, _, _ := newEngine(t, []config.AlertRule{
		{Name: "run-failed", Condition: "failed == 1"},
	}, "http")
	e.Evaluate(context.Background(), Report{Job: "matchups", Failed: true})

	e.Reload(config.AlertsConfig{Rules: []config.AlertRule{{Name: "other", Condition: "games == 0"}}})
	if n := len(e.Active()); n != 0 {
		t.Errorf("Active after reload: got %d, want 0", n)
	}
}

func TestWriteFile_RestoreKeepsFiringState(t *testing.T) {
	rules := []config.AlertRule{{Name: "run-failed", Job: "matchups", Condition: "failed == 1"}}
	path := filepath.Join(t.TempDir(), "alerts.json")
	ctx := context.Background()

	first, _, _ := newEngine(t, rules, "http")
	first.Evaluate(ctx, Report{Job: "matchups", Date: "2026-05-01", Failed: true})
	if err := first.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"state": "firing"`) {
		t.Errorf("alerts file: %s", b)
	}

	// A restarted engine sees the alert as already firing.
	second, rec, clock := newEngine(t, rules, "http")
	if err := second.Restore(path); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := second.Evaluate(ctx, Report{Job: "matchups", Failed: true}); len(got) != 0 {
		t.Errorf("restored alert fired again: %+v", got)
	}
	clock.Advance(5 * time.Minute)
	got := second.Evaluate(ctx, Report{Job: "matchups", Fetched: 4})
	if len(got) != 1 || got[0].State != StateResolved {
		t.Fatalf("resolve after restore: %+v", got)
	}
	if n := len(rec.all()); n != 1 {
		t.Errorf("deliveries after restore: got %d, want 1", n)
	}
}

func TestRestore_MissingFileAndUnknownRule(t *testing.T) {
	dir := t.TempDir()
	e, _, _ := newEngine(t, []config.AlertRule{{Name: "run-failed", Condition: "failed == 1"}}, "http")
	if err := e.Restore(filepath.Join(dir, "absent.json")); err != nil {
		t.Errorf("missing file: %v", err)
	}

	path := filepath.Join(dir, "alerts.json")
	body := `{"generated_at":"2026-05-01T18:00:00Z","alerts":[
		{"id":"a","rule_name":"gone","job":"matchups","state":"firing","fired_at":"2026-05-01T17:00:00Z"}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.Restore(path); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if n := len(e.Active()); n != 0 {
		t.Errorf("alert for a removed rule restored: %d", n)
	}

	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.Restore(path); err == nil {
		t.Error("corrupt file: expected error")
	}
}
