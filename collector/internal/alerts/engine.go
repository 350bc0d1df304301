package alerts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/startingnine/startingnine/collector/internal/atomicfile"
	"github.com/startingnine/startingnine/collector/internal/config"
	"github.com/startingnine/startingnine/pkg/types"
)

const (
	defaultCooldown   = time.Hour
	maxHistoryLen     = 200
	recentWindowHours = 24
)

// Alert state values.
const (
	StateFiring   = types.AlertFiring
	StateResolved = types.AlertResolved
)

// Alert represents a single alert event produced by the rule engine.
type Alert = types.Alert

// Engine evaluates alert rules against job reports and delivers webhook
// notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	clock  clockwork.Clock
	client *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "ruleName:job"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock, for tests.
func WithClock(c clockwork.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithHTTPClient replaces the webhook HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(e *Engine) { e.client = c } }

// WithLogger sets the logger used for fire/resolve and delivery messages.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// New creates an Engine from the alert configuration.
// An Engine with empty rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig, opts ...Option) *Engine {
	e := &Engine{
		clock:    clockwork.NewRealClock(),
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   slog.Default(),
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Reload swaps in new rules and webhooks. Firing alerts whose rule no longer
// exists are dropped without a resolve notification.
func (e *Engine) Reload(cfg config.AlertsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks
	names := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		names[r.Name] = true
	}
	for key, a := range e.active {
		if !names[a.RuleName] {
			delete(e.active, key)
		}
	}
}

// Evaluate tests the rules that apply to r.Job against r. Alerts that fire
// or resolve are delivered to every webhook before Evaluate returns; the
// transitions are returned in rule order.
func (e *Engine) Evaluate(ctx context.Context, r Report) []Alert {
	now := e.clock.Now()

	e.mu.Lock()
	var changed []Alert
	for _, rule := range e.rules {
		if rule.Job != "" && rule.Job != r.Job {
			continue
		}
		key := rule.Name + ":" + r.Job
		fires, value := evalCondition(rule.Condition, r)

		if fires {
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if _, firing := e.active[key]; firing || now.Sub(e.lastFire[key]) <= cooldown {
				continue
			}
			sev := rule.Severity
			if sev == "" {
				sev = "warning"
			}
			a := &Alert{
				ID:       uuid.NewString(),
				RuleName: rule.Name,
				Job:      r.Job,
				Date:     r.Date,
				Severity: sev,
				Value:    value,
				Message: fmt.Sprintf("[%s] %s fired on %s run %s: %s = %.2f",
					sev, rule.Name, r.Job, r.Date, rule.Condition, value),
				FiredAt: now,
				State:   StateFiring,
			}
			e.active[key] = a
			e.lastFire[key] = now
			changed = append(changed, *a)
			e.logger.Warn("alert fired",
				"rule", rule.Name,
				"job", r.Job,
				"value", value,
				"severity", sev,
			)
			continue
		}

		if a, ok := e.active[key]; ok {
			resolved := now
			a.State = StateResolved
			a.ResolvedAt = &resolved
			delete(e.active, key)

			e.history = append(e.history, a)
			if len(e.history) > maxHistoryLen {
				e.history = e.history[len(e.history)-maxHistoryLen:]
			}
			changed = append(changed, *a)
			e.logger.Info("alert resolved", "rule", rule.Name, "job", r.Job)
		}
	}
	webhooks := e.webhooks
	e.mu.Unlock()

	for i := range changed {
		e.deliver(ctx, webhooks, &changed[i])
	}
	return changed
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past day, sorted newest first.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.clock.Now().Add(-recentWindowHours * time.Hour)
	out := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// WriteFile persists the Active view as an alerts report at path.
func (e *Engine) WriteFile(path string) error {
	rep := types.AlertReport{GeneratedAt: e.clock.Now().UTC(), Alerts: e.Active()}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("alerts: encode: %w", err)
	}
	if err := atomicfile.Write(path, b, 0o644); err != nil {
		return fmt.Errorf("alerts: %w", err)
	}
	return nil
}

// Restore loads a report written by WriteFile. Firing alerts become active
// again and keep their cooldown, so a restart neither repeats a fire
// notification nor loses the resolve. A missing file is not an error.
func (e *Engine) Restore(path string) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("alerts: read %s: %w", path, err)
	}
	var rep types.AlertReport
	if err := json.Unmarshal(b, &rep); err != nil {
		return fmt.Errorf("alerts: decode %s: %w", path, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	names := make(map[string]bool, len(e.rules))
	for _, r := range e.rules {
		names[r.Name] = true
	}
	for i := range rep.Alerts {
		a := rep.Alerts[i]
		if !names[a.RuleName] {
			continue
		}
		key := a.RuleName + ":" + a.Job
		if a.FiredAt.After(e.lastFire[key]) {
			e.lastFire[key] = a.FiredAt
		}
		switch a.State {
		case StateFiring:
			e.active[key] = &a
		case StateResolved:
			e.history = append(e.history, &a)
		}
	}
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	return nil
}
