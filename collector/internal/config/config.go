package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override file values.
// Nested keys are joined with a double underscore:
// STARTINGNINE_COLLECTOR__DATA_DIR -> collector.data_dir.
const EnvPrefix = "STARTINGNINE_"

// Default values applied when fields are absent from the config file.
const (
	DefaultDataDir         = "data"
	DefaultMatchupsFile    = "matchups.json"
	DefaultUmpiresFile     = "umpires.json"
	DefaultAlertsFile      = "alerts.json"
	DefaultMetricsFile     = "metrics/collector.prom"
	DefaultTimezone        = "UTC"
	DefaultSchedule        = "*/10 * * * *"
	DefaultUmpireSchedule  = "0 6 * * *"
	DefaultSplitSeasons    = 2
	DefaultMemoSize        = 512
	DefaultLookbackDays    = 90
	DefaultBaseURL         = "https://statsapi.mlb.com"
	DefaultUserAgent       = "MLBStartingNine-DataBot/1.0"
	DefaultTimeout         = 10 * time.Second
	DefaultScheduleTimeout = 15 * time.Second
	DefaultMinInterval     = 200 * time.Millisecond
)

// Config is the collector configuration. Fields map 1:1 to config.example.yaml.
type Config struct {
	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	Collector CollectorConfig `yaml:"collector"`
	StatsAPI  StatsAPIConfig  `yaml:"stats_api"`
	Umpires   UmpiresConfig   `yaml:"umpires"`
	Alerts    AlertsConfig    `yaml:"alerts"`
}

// CollectorConfig holds the matchup collector settings.
type CollectorConfig struct {
	// DataDir is where matchups.json, umpires.json and the metrics textfile live.
	DataDir string `yaml:"data_dir"`

	// MatchupsFile is the daily cache file name, relative to DataDir.
	MatchupsFile string `yaml:"matchups_file"`

	// MetricsFile is the Prometheus textfile path, relative to DataDir.
	// Empty disables the export.
	MetricsFile string `yaml:"metrics_file"`

	// Timezone names the zone that defines the canonical date.
	Timezone string `yaml:"timezone"`

	// Schedule is the cron expression for matchup runs in daemon mode.
	Schedule string `yaml:"schedule"`

	// RetryDegraded re-fetches cached records that hold sentinel splits.
	RetryDegraded bool `yaml:"retry_degraded"`

	// SplitSeasons is how many seasons (current and prior) are summed into
	// each handedness split. 0 uses one career window instead.
	SplitSeasons int `yaml:"split_seasons"`

	// MemoSize bounds the per-run memo of split lookups.
	MemoSize int `yaml:"memo_size"`
}

// StatsAPIConfig configures the Stats API client.
type StatsAPIConfig struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`

	// Timeout bounds each player-stats and game-feed call.
	Timeout time.Duration `yaml:"timeout"`

	// ScheduleTimeout bounds each schedule call.
	ScheduleTimeout time.Duration `yaml:"schedule_timeout"`

	// MinInterval is the minimum gap between consecutive outbound calls.
	MinInterval time.Duration `yaml:"min_interval"`
}

// UmpiresConfig configures the umpire analytics batch.
type UmpiresConfig struct {
	// OutputFile is relative to collector.data_dir.
	OutputFile string `yaml:"output_file"`

	// Schedule is the cron expression for the batch in daemon mode.
	Schedule string `yaml:"schedule"`

	// LookbackDays is the rolling window used from April onwards.
	LookbackDays int `yaml:"lookback_days"`
}

// AlertsConfig holds run-outcome alert rules and webhook targets.
type AlertsConfig struct {
	// OutputFile holds firing and recently resolved alerts, relative to
	// collector.data_dir. The server reads it and the collector restores
	// from it on start.
	OutputFile string `yaml:"output_file"`

	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition evaluated after
// every run of Job.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Job restricts the rule to one job (matchups | umpires). Empty matches both.
	Job string `yaml:"job"`

	// Condition is a simple expression: "failed == 1", "degraded_pct > 25",
	// "games == 0", "umpires < 20".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 1 hour if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv names the environment variable holding the webhook URL, so the
	// secret never lives in the config file.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// MatchupsPath returns the absolute-or-relative path of the daily cache file.
func (c *Config) MatchupsPath() string {
	return filepath.Join(c.Collector.DataDir, c.Collector.MatchupsFile)
}

// MatchupsPathFor returns the cache file for date. Runs for the canonical
// today use MatchupsPath; any other date gets its own file beside it, named
// after the date, so it never replaces today's cache.
func (c *Config) MatchupsPathFor(date, today string) string {
	if date == today {
		return c.MatchupsPath()
	}
	ext := filepath.Ext(c.Collector.MatchupsFile)
	base := strings.TrimSuffix(c.Collector.MatchupsFile, ext)
	return filepath.Join(c.Collector.DataDir, base+"-"+date+ext)
}

// AlertsPath returns the path of the persisted alert state.
func (c *Config) AlertsPath() string {
	return filepath.Join(c.Collector.DataDir, c.Alerts.OutputFile)
}

// UmpiresPath returns the path of the umpire analytics file.
func (c *Config) UmpiresPath() string {
	return filepath.Join(c.Collector.DataDir, c.Umpires.OutputFile)
}

// MetricsPath returns the metrics textfile path, or "" when disabled.
func (c *Config) MetricsPath() string {
	if c.Collector.MetricsFile == "" {
		return ""
	}
	return filepath.Join(c.Collector.DataDir, c.Collector.MetricsFile)
}

// Location resolves Collector.Timezone. validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Collector.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads the YAML file at path, layers STARTINGNINE_* environment
// overrides on top and validates the result. An empty path skips the file
// and uses defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays STARTINGNINE_* variables onto cfg.
func applyEnv(cfg *Config) error {
	k := koanf.New(".")
	provider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(provider, nil); err != nil {
		return err
	}
	if len(k.Keys()) == 0 {
		return nil
	}
	return k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"})
}

// Marshal renders cfg back to YAML (used by -print-config).
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		LogLevel: "info",
		Collector: CollectorConfig{
			DataDir:       DefaultDataDir,
			MatchupsFile:  DefaultMatchupsFile,
			MetricsFile:   DefaultMetricsFile,
			Timezone:      DefaultTimezone,
			Schedule:      DefaultSchedule,
			RetryDegraded: true,
			SplitSeasons:  DefaultSplitSeasons,
			MemoSize:      DefaultMemoSize,
		},
		StatsAPI: StatsAPIConfig{
			BaseURL:         DefaultBaseURL,
			UserAgent:       DefaultUserAgent,
			Timeout:         DefaultTimeout,
			ScheduleTimeout: DefaultScheduleTimeout,
			MinInterval:     DefaultMinInterval,
		},
		Umpires: UmpiresConfig{
			OutputFile:   DefaultUmpiresFile,
			Schedule:     DefaultUmpireSchedule,
			LookbackDays: DefaultLookbackDays,
		},
		Alerts: AlertsConfig{
			OutputFile: DefaultAlertsFile,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Collector.DataDir == "" {
		return fmt.Errorf("collector.data_dir is required")
	}
	if cfg.Collector.MatchupsFile == "" {
		return fmt.Errorf("collector.matchups_file is required")
	}
	if _, err := time.LoadLocation(cfg.Collector.Timezone); err != nil {
		return fmt.Errorf("collector.timezone %q: %w", cfg.Collector.Timezone, err)
	}
	if cfg.Collector.SplitSeasons < 0 {
		return fmt.Errorf("collector.split_seasons must not be negative")
	}
	if cfg.Collector.MemoSize <= 0 {
		return fmt.Errorf("collector.memo_size must be positive")
	}
	if _, err := cron.ParseStandard(cfg.Collector.Schedule); err != nil {
		return fmt.Errorf("collector.schedule %q: %w", cfg.Collector.Schedule, err)
	}
	if cfg.StatsAPI.BaseURL == "" {
		return fmt.Errorf("stats_api.base_url is required")
	}
	if cfg.StatsAPI.Timeout <= 0 {
		return fmt.Errorf("stats_api.timeout must be positive")
	}
	if cfg.StatsAPI.ScheduleTimeout <= 0 {
		return fmt.Errorf("stats_api.schedule_timeout must be positive")
	}
	if cfg.StatsAPI.MinInterval < 0 {
		return fmt.Errorf("stats_api.min_interval must not be negative")
	}
	if cfg.Umpires.OutputFile == "" {
		return fmt.Errorf("umpires.output_file is required")
	}
	if cfg.Umpires.LookbackDays <= 0 {
		return fmt.Errorf("umpires.lookback_days must be positive")
	}
	if _, err := cron.ParseStandard(cfg.Umpires.Schedule); err != nil {
		return fmt.Errorf("umpires.schedule %q: %w", cfg.Umpires.Schedule, err)
	}
	if cfg.Alerts.OutputFile == "" {
		return fmt.Errorf("alerts.output_file is required")
	}
	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d].name is required", i)
		}
		if len(strings.Fields(r.Condition)) != 3 {
			return fmt.Errorf("alerts.rules[%d].condition %q must be \"field op value\"", i, r.Condition)
		}
		switch r.Job {
		case "", "matchups", "umpires":
		default:
			return fmt.Errorf("alerts.rules[%d].job %q is not matchups or umpires", i, r.Job)
		}
		switch r.Severity {
		case "", "critical", "warning", "info":
		default:
			return fmt.Errorf("alerts.rules[%d].severity %q is unknown", i, r.Severity)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d].type %q is not slack, teams or http", i, w.Type)
		}
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}
	return nil
}
