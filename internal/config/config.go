// Package config loads the server configuration from a YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration. Zero values fall back to
// Default(); a missing file is not an error, so a bare `graphrun serve`
// works out of the box with the in-memory store.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
	Events EventsConfig `yaml:"events"`
}

type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	// Backend selects the persistence layer: memory, sqlite, mysql, redis.
	Backend    string      `yaml:"backend"`
	SQLitePath string      `yaml:"sqlite_path"`
	MySQLDSN   string      `yaml:"mysql_dsn"`
	Redis      RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EngineConfig struct {
	// IterationCap bounds node executions per run. Zero uses the engine
	// default.
	IterationCap int `yaml:"iteration_cap"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

type EventsConfig struct {
	// Mode selects the execution event sink: off, text, json, otel.
	Mode string `yaml:"mode"`
}

// Default returns the configuration used when no file is present: in-memory
// store, info logging, no event output, port 8080.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Store: StoreConfig{
			Backend:    "memory",
			SQLitePath: "graphrun.db",
			Redis:      RedisConfig{Addr: "localhost:6379"},
		},
		Log:    LogConfig{Level: "info"},
		Events: EventsConfig{Mode: "off"},
	}
}

// Load reads the configuration at path, overlaying it onto Default(). An
// empty path or a missing file returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case "memory", "sqlite", "mysql", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Events.Mode {
	case "", "off", "text", "json", "otel":
	default:
		return fmt.Errorf("unknown events mode %q", c.Events.Mode)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level, defaulting to info on unknown values.
func (c Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
