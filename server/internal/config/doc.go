// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the collector's keys are ignored by the server binary).
//
// Config fields:
//   - HTTPPort     : port for the REST API and /metrics (default 8080)
//   - DataDir      : the collector's data directory (default "data")
//   - MatchupsFile : daily cache file name (default "matchups.json")
//   - UmpiresFile  : umpire analytics file name (default "umpires.json")
//
// Load(path) layers defaults, the YAML file and STARTINGNINE_* environment
// variables with koanf, then validates.
package config
