// Package config loads and watches the collector configuration file.
//
// Top-level types:
//   - Config{LogLevel, Collector, StatsAPI, Umpires, Alerts}: full tree parsed from YAML
//   - CollectorConfig: data_dir, matchups_file, metrics_file, timezone, schedule,
//     retry_degraded, split_seasons, memo_size
//   - StatsAPIConfig: base_url, user_agent, timeout, schedule_timeout, min_interval
//   - UmpiresConfig: output_file, schedule, lookback_days
//   - AlertsConfig: run-outcome rules and webhook targets (URLs come from env)
//
// Load(path) reads the YAML file over defaults (10s call timeout, 15s schedule
// timeout, 200ms between calls, two split seasons), overlays STARTINGNINE_*
// environment variables, then validates required fields and cron expressions.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config.
package config
