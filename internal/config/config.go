/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/godspeed/internal/models"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Play log sink names accepted in GODSPEED_PLAYLOG_SINKS.
const (
	SinkHTTP = "http"
	SinkDB   = "db"
	SinkNATS = "nats"
)

// Media backends accepted in GODSPEED_MEDIA_BACKEND.
const (
	MediaNull = "null"
	MediaBeep = "beep"
	MediaMPV  = "mpv"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	CatalogURL  string // Base URL of the library service (e.g., http://localhost:4000)

	MediaBackend     string
	PositionInterval time.Duration

	PlayLogSinks []string
	DBBackend    DatabaseBackend
	DBDSN        string
	NATSURL      string
	NATSSubject  string

	// Catalog cache
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CatalogCacheTTL time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Initial mix, optionally read from a YAML file
	MixFile string
	Mix     models.MixState
}

// Load reads a .env file if present, then environment variables, applies
// defaults, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Environment: getEnvAny([]string{"GODSPEED_ENV", "ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"GODSPEED_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"GODSPEED_HTTP_PORT", "PORT"}, 8080),
		CatalogURL:  getEnvAny([]string{"GODSPEED_CATALOG_URL"}, "http://localhost:4000"),

		MediaBackend:     strings.ToLower(getEnvAny([]string{"GODSPEED_MEDIA_BACKEND"}, MediaNull)),
		PositionInterval: time.Duration(getEnvIntAny([]string{"GODSPEED_POSITION_INTERVAL_MS"}, 250)) * time.Millisecond,

		PlayLogSinks: splitList(getEnvAny([]string{"GODSPEED_PLAYLOG_SINKS"}, SinkHTTP)),
		DBBackend:    DatabaseBackend(getEnvAny([]string{"GODSPEED_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:        getEnvAny([]string{"GODSPEED_DB_DSN"}, "godspeed.db"),
		NATSURL:      getEnvAny([]string{"GODSPEED_NATS_URL"}, ""),
		NATSSubject:  getEnvAny([]string{"GODSPEED_NATS_SUBJECT"}, "godspeed.plays"),

		RedisAddr:       getEnvAny([]string{"GODSPEED_REDIS_ADDR"}, ""),
		RedisPassword:   getEnvAny([]string{"GODSPEED_REDIS_PASSWORD"}, ""),
		RedisDB:         getEnvIntAny([]string{"GODSPEED_REDIS_DB"}, 0),
		CatalogCacheTTL: getEnvDurationAny([]string{"GODSPEED_CATALOG_CACHE_TTL"}, 10*time.Minute),

		TracingEnabled:    getEnvBoolAny([]string{"GODSPEED_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"GODSPEED_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"GODSPEED_TRACING_SAMPLE_RATE"}, 1.0),

		MixFile: getEnvAny([]string{"GODSPEED_MIX_FILE"}, ""),
		Mix:     models.DefaultMix(),
	}

	if cfg.MixFile != "" {
		mix, err := LoadMix(cfg.MixFile)
		if err != nil {
			return nil, err
		}
		cfg.Mix = mix
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid GODSPEED_HTTP_PORT %d", c.HTTPPort)
	}

	switch c.MediaBackend {
	case MediaNull, MediaBeep, MediaMPV:
	default:
		return fmt.Errorf("unsupported media backend %q", c.MediaBackend)
	}

	if c.PositionInterval <= 0 {
		return fmt.Errorf("GODSPEED_POSITION_INTERVAL_MS must be positive")
	}

	for _, sink := range c.PlayLogSinks {
		switch sink {
		case SinkHTTP:
		case SinkDB:
			if c.DBBackend != DatabasePostgres && c.DBBackend != DatabaseMySQL && c.DBBackend != DatabaseSQLite {
				return fmt.Errorf("unsupported database backend %q", c.DBBackend)
			}
			if c.DBDSN == "" {
				return fmt.Errorf("GODSPEED_DB_DSN must be provided for the db play log sink")
			}
		case SinkNATS:
			if c.NATSURL == "" {
				return fmt.Errorf("GODSPEED_NATS_URL must be provided for the nats play log sink")
			}
		default:
			return fmt.Errorf("unknown play log sink %q", sink)
		}
	}

	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("GODSPEED_TRACING_SAMPLE_RATE must be within [0, 1]")
	}
	return nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c == nil || strings.EqualFold(c.Environment, "development")
}

// HasSink reports whether name is an enabled play log sink.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.PlayLogSinks {
		if s == name {
			return true
		}
	}
	return false
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// LoadMix reads mix defaults from a YAML file. Keys missing from the file
// keep their default values; the result is clamped.
func LoadMix(path string) (models.MixState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.MixState{}, fmt.Errorf("read mix file: %w", err)
	}
	mix := models.DefaultMix()
	if err := yaml.Unmarshal(data, &mix); err != nil {
		return models.MixState{}, fmt.Errorf("parse mix file %s: %w", path, err)
	}
	return mix.Clamped(), nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvDurationAny accepts Go durations ("90s") or bare seconds.
func getEnvDurationAny(keys []string, def time.Duration) time.Duration {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				return d
			}
			if secs, err := strconv.Atoi(v); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return def
}
