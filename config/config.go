package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// minObservations mirrors the fit threshold. The config cannot lower it.
const minObservations = 3

// Config holds all application configuration.
type Config struct {
	DataPath        string        `yaml:"data_path"`
	ReferencePath   string        `yaml:"reference_path"`
	DBPath          string        `yaml:"db_path"`
	DatasetName     string        `yaml:"dataset_name"`
	MinObservations int           `yaml:"min_observations"`
	WeekInterval    time.Duration `yaml:"week_interval"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	PlotPath        string        `yaml:"plot_path"`
	Server          Server        `yaml:"server"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

// Load reads configuration from a YAML file and applies defaults. An empty path skips the file and
// uses defaults with environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// GetConfigPath returns the config file path from the environment, or empty when unset.
func GetConfigPath() string {
	return os.Getenv("DELTACAST_CONFIG")
}

func applyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = "./deltacast.db"
	}
	if cfg.DatasetName == "" {
		cfg.DatasetName = "default"
	}
	if cfg.MinObservations == 0 {
		cfg.MinObservations = minObservations
	}
	if cfg.WeekInterval == 0 {
		cfg.WeekInterval = 7 * 24 * time.Hour
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.PlotPath == "" {
		cfg.PlotPath = "./deltacast.html"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if dataPath := os.Getenv("DELTACAST_DATA"); dataPath != "" {
		cfg.DataPath = dataPath
	}
	if dbPath := os.Getenv("DELTACAST_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if addr := os.Getenv("DELTACAST_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
}

func validate(cfg *Config) error {
	if cfg.MinObservations < minObservations {
		return fmt.Errorf("min_observations must be at least %d, got %d", minObservations, cfg.MinObservations)
	}
	if cfg.WeekInterval < 0 {
		return fmt.Errorf("week_interval must be positive, got %s", cfg.WeekInterval)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", cfg.LogFormat)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return level, nil
}

// Logger builds the slog logger described by log_level and log_format.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
