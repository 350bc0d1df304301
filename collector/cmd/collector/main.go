package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/startingnine/startingnine/collector/internal/cache"
	"github.com/startingnine/startingnine/collector/internal/config"
	"github.com/startingnine/startingnine/collector/internal/metrics"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (empty: defaults + environment)")
	job := flag.String("job", jobAll, "job to run: matchups | umpires | all")
	once := flag.Bool("once", false, "run the selected job(s) once and exit")
	date := flag.String("date", "", "collect matchups for this YYYY-MM-DD instead of today (with -once); written beside the daily cache as matchups-<date>.json")
	printConfig := flag.Bool("print-config", false, "print the effective config as YAML and exit")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Level())

	if *printConfig {
		out, err := config.Marshal(cfg)
		if err != nil {
			slog.Error("failed to render config", "err", err)
			os.Exit(1)
		}
		os.Stdout.Write(out) //nolint:errcheck
		return
	}

	switch *job {
	case jobMatchups, jobUmpires, jobAll:
	default:
		slog.Error("unknown job", "job", *job)
		os.Exit(2)
	}
	if *date != "" {
		if _, err := time.Parse(cache.DateLayout, *date); err != nil {
			slog.Error("invalid -date", "date", *date, "err", err)
			os.Exit(2)
		}
	}

	slog.Info("startingnine-collector starting",
		"config", *configPath,
		"job", *job,
		"once", *once,
		"data_dir", cfg.Collector.DataDir,
		"timezone", cfg.Collector.Timezone,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := newApp(cfg, metrics.New())

	if *once {
		if err := a.run(ctx, *job, *date); err != nil {
			slog.Error("run failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
				level.Set(updated.Level())
				a.setConfig(updated)
				slog.Info("config hot-reloaded; schedules apply after restart",
					"data_dir", updated.Collector.DataDir,
					"min_interval", updated.StatsAPI.MinInterval,
				)
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	c := cron.New(cron.WithLocation(cfg.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if *job == jobMatchups || *job == jobAll {
		if _, err := c.AddFunc(cfg.Collector.Schedule, func() {
			if err := a.runMatchups(ctx, ""); err != nil {
				slog.Error("scheduled matchup run failed", "err", err)
			}
		}); err != nil {
			slog.Error("invalid matchup schedule", "schedule", cfg.Collector.Schedule, "err", err)
			os.Exit(1)
		}
		// Also run immediately on startup.
		go func() {
			if err := a.runMatchups(ctx, ""); err != nil {
				slog.Error("initial matchup run failed", "err", err)
			}
		}()
	}
	if *job == jobUmpires || *job == jobAll {
		if _, err := c.AddFunc(cfg.Umpires.Schedule, func() {
			if err := a.runUmpires(ctx); err != nil {
				slog.Error("scheduled umpire run failed", "err", err)
			}
		}); err != nil {
			slog.Error("invalid umpire schedule", "schedule", cfg.Umpires.Schedule, "err", err)
			os.Exit(1)
		}
	}

	c.Start()
	slog.Info("scheduler started",
		"matchups", cfg.Collector.Schedule,
		"umpires", cfg.Umpires.Schedule,
	)

	<-ctx.Done()
	slog.Info("startingnine-collector shutting down")
	<-c.Stop().Done()
}
