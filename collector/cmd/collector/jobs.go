package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/startingnine/startingnine/collector/internal/alerts"
	"github.com/startingnine/startingnine/collector/internal/cache"
	"github.com/startingnine/startingnine/collector/internal/config"
	"github.com/startingnine/startingnine/collector/internal/matchup"
	"github.com/startingnine/startingnine/collector/internal/metrics"
	"github.com/startingnine/startingnine/collector/internal/statsapi"
	"github.com/startingnine/startingnine/collector/internal/umpire"
)

const (
	jobMatchups = "matchups"
	jobUmpires  = "umpires"
	jobAll      = "all"
)

// app runs collector jobs against the current config. Jobs never overlap,
// so the Stats API sees one sequential, throttled stream of calls.
type app struct {
	cfg     atomic.Pointer[config.Config]
	metrics *metrics.Metrics
	alerts  *alerts.Engine
	runMu   sync.Mutex
}

func newApp(cfg *config.Config, m *metrics.Metrics, opts ...alerts.Option) *app {
	a := &app{metrics: m, alerts: alerts.New(cfg.Alerts, opts...)}
	a.cfg.Store(cfg)
	if err := a.alerts.Restore(cfg.AlertsPath()); err != nil {
		slog.Warn("alerts: previous state not restored", "path", cfg.AlertsPath(), "err", err)
	}
	return a
}

// setConfig swaps in a reloaded config; runs already in progress keep the
// one they started with.
func (a *app) setConfig(cfg *config.Config) {
	a.cfg.Store(cfg)
	a.alerts.Reload(cfg.Alerts)
}

func (a *app) client(cfg *config.Config, logger *slog.Logger) *statsapi.Client {
	return statsapi.New(cfg.StatsAPI,
		statsapi.WithLogger(logger),
		statsapi.WithObserver(a.metrics.ObserveRequest),
	)
}

// runMatchups collects the matchups for date, or for today's canonical date
// when date is empty.
func (a *app) runMatchups(ctx context.Context, date string) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	cfg := a.cfg.Load()
	today := cache.CanonicalDate(time.Now(), cfg.Location())
	if date == "" {
		date = today
	}
	path := cfg.MatchupsPathFor(date, today)
	logger := slog.Default().With("run_id", uuid.NewString(), "job", jobMatchups)
	logger.Info("matchup run starting", "date", date, "path", path)

	client := a.client(cfg, logger)
	store := cache.Open(path, date)
	orch := matchup.New(client, store, matchup.Options{
		RetryDegraded: cfg.Collector.RetryDegraded,
		Seasons:       client.Seasons(cfg.Collector.SplitSeasons),
		MemoSize:      cfg.Collector.MemoSize,
		Logger:        logger,
		Recorder:      a.metrics,
	})

	sum, err := orch.Run(ctx, date)
	if ferr := store.Flush(); ferr != nil {
		logger.Error("matchup: flush cache failed", "err", ferr)
	}
	a.metrics.SetCacheRecords(store.Len())
	a.finish(cfg, logger, jobMatchups)

	if ctx.Err() == nil {
		a.evaluate(ctx, cfg, logger, alerts.Report{
			Job:      jobMatchups,
			Date:     date,
			Failed:   err != nil,
			Games:    sum.Games,
			Fetched:  sum.Fetched,
			Degraded: sum.Degraded,
			Skipped:  sum.Skipped,
		})
	}
	if err != nil {
		return err
	}
	logger.Info("matchup run complete", "summary", sum, "calls", client.Calls())
	return nil
}

func (a *app) runUmpires(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	cfg := a.cfg.Load()
	logger := slog.Default().With("run_id", uuid.NewString(), "job", jobUmpires)
	logger.Info("umpire run starting", "path", cfg.UmpiresPath())

	b := umpire.NewBuilder(a.client(cfg, logger), cfg.UmpiresPath(), cfg.Umpires.LookbackDays,
		umpire.WithLogger(logger),
		umpire.WithLocation(cfg.Location()),
	)
	res, err := b.Run(ctx)
	if err == nil {
		a.metrics.SetUmpiresReported(res.Umpires)
	}
	a.finish(cfg, logger, jobUmpires)

	if ctx.Err() == nil {
		a.evaluate(ctx, cfg, logger, alerts.Report{
			Job:     jobUmpires,
			Date:    res.End,
			Failed:  err != nil,
			Games:   res.Games,
			Skipped: res.Skipped,
			Umpires: res.Umpires,
		})
	}
	return err
}

// evaluate runs the alert rules against a finished job and persists the
// resulting alert state for the server.
func (a *app) evaluate(ctx context.Context, cfg *config.Config, logger *slog.Logger, r alerts.Report) {
	a.alerts.Evaluate(ctx, r)
	if err := a.alerts.WriteFile(cfg.AlertsPath()); err != nil {
		logger.Warn("alerts file not written", "path", cfg.AlertsPath(), "err", err)
	}
}

// finish stamps the job and refreshes the metrics textfile.
func (a *app) finish(cfg *config.Config, logger *slog.Logger, job string) {
	a.metrics.MarkRun(job, time.Now())
	path := cfg.MetricsPath()
	if path == "" {
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		logger.Warn("metrics textfile not written", "path", path, "err", err)
	}
}

// run executes the selected job(s) once. With jobAll both run even if the
// first fails; the first error is returned.
func (a *app) run(ctx context.Context, job, date string) error {
	var first error
	if job == jobMatchups || job == jobAll {
		if err := a.runMatchups(ctx, date); err != nil {
			first = fmt.Errorf("matchups: %w", err)
		}
	}
	if job == jobUmpires || job == jobAll {
		if err := a.runUmpires(ctx); err != nil && first == nil {
			first = fmt.Errorf("umpires: %w", err)
		}
	}
	return first
}
