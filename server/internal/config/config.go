package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is shared with the collector so one environment can configure
// both binaries: STARTINGNINE_SERVER__HTTP_PORT -> server.http_port.
const EnvPrefix = "STARTINGNINE_"

// Default values for the server configuration.
const (
	DefaultHTTPPort     = 8080
	DefaultDataDir      = "data"
	DefaultMatchupsFile = "matchups.json"
	DefaultUmpiresFile  = "umpires.json"
	DefaultAlertsFile   = "alerts.json"
	DefaultPushInterval = 5 * time.Second
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The collector's keys in the same file are ignored.
type Config struct {
	LogLevel string       `koanf:"log_level"`
	Server   ServerConfig `koanf:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and /metrics listen on (default 8080).
	HTTPPort int `koanf:"http_port"`

	// DataDir is the collector's data directory, read-only from here.
	DataDir string `koanf:"data_dir"`

	// MatchupsFile, UmpiresFile and AlertsFile are relative to DataDir.
	MatchupsFile string `koanf:"matchups_file"`
	UmpiresFile  string `koanf:"umpires_file"`
	AlertsFile   string `koanf:"alerts_file"`

	// PushInterval is how often the WebSocket hub checks the matchup file
	// for a rewrite (default 5s).
	PushInterval time.Duration `koanf:"push_interval"`
}

// MatchupsPath returns the path of the daily cache snapshot.
func (c *Config) MatchupsPath() string {
	return filepath.Join(c.Server.DataDir, c.Server.MatchupsFile)
}

// UmpiresPath returns the path of the umpire analytics file.
func (c *Config) UmpiresPath() string {
	return filepath.Join(c.Server.DataDir, c.Server.UmpiresFile)
}

// AlertsPath returns the path of the collector's alert state file.
func (c *Config) AlertsPath() string {
	return filepath.Join(c.Server.DataDir, c.Server.AlertsFile)
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Load layers defaults, the optional YAML file at path and STARTINGNINE_*
// environment variables (low to high precedence), then validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("server config: read %q: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("server config: env: %w", err)
	}

	cfg := defaults()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("server config: decode: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			HTTPPort:     DefaultHTTPPort,
			DataDir:      DefaultDataDir,
			MatchupsFile: DefaultMatchupsFile,
			UmpiresFile:  DefaultUmpiresFile,
			AlertsFile:   DefaultAlertsFile,
			PushInterval: DefaultPushInterval,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.DataDir == "" {
		return fmt.Errorf("server.data_dir is required")
	}
	if cfg.Server.MatchupsFile == "" || cfg.Server.UmpiresFile == "" || cfg.Server.AlertsFile == "" {
		return fmt.Errorf("server.matchups_file, server.umpires_file and server.alerts_file are required")
	}
	if cfg.Server.PushInterval <= 0 {
		return fmt.Errorf("server.push_interval must be positive")
	}
	return nil
}
