// Package config loads service configuration.
//
// Configuration is read from a YAML file (config.yaml by default) with
// ${VAR} expansion, falling back to environment variables when the file
// is missing:
//
//	cfg, err := config.LoadOrEnv()
//	db, err := config.InitDB(cfg.Database)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"document-reconciliation-backend/internal/services/matching"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Matching MatchingConfig `yaml:"matching"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig selects the gorm dialector. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type MatchingConfig struct {
	Weights                matching.Weights `yaml:"weights"`
	DateCutoffDays         int              `yaml:"date_cutoff_days"`
	MinScore               float64          `yaml:"min_score"`
	AutoAttachThreshold    float64          `yaml:"auto_attach_threshold"`
	AmountTolerance        float64          `yaml:"amount_tolerance"`
	PatternAmountThreshold float64          `yaml:"pattern_amount_threshold"`
	Workers                int              `yaml:"workers"`
	// IncludeAutoAttached lets documents that already carry an automatic
	// attachment compete again.
	IncludeAutoAttached bool `yaml:"include_auto_attached"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		Weights:                matching.DefaultWeights(),
		DateCutoffDays:         30,
		MinScore:               0.2,
		AutoAttachThreshold:    0.6,
		AmountTolerance:        0.01,
		PatternAmountThreshold: 0.98,
		Workers:                4,
	}
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{Driver: "postgres"},
		Matching: DefaultMatchingConfig(),
		Logging:  LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads and parses the config file. Unset keys keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := Default()

	cfg.Server.Addr = getEnv("SERVER_ADDR", cfg.Server.Addr)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DATABASE_URL", defaultPostgresDSN())

	m := &cfg.Matching
	w := &m.Weights
	w.Amount = getEnvFloat("MATCH_WEIGHT_AMOUNT", w.Amount)
	w.Vendor = getEnvFloat("MATCH_WEIGHT_VENDOR", w.Vendor)
	w.InvoiceNumber = getEnvFloat("MATCH_WEIGHT_INVOICE_NUMBER", w.InvoiceNumber)
	w.Pattern = getEnvFloat("MATCH_WEIGHT_PATTERN", w.Pattern)
	w.Date = getEnvFloat("MATCH_WEIGHT_DATE", w.Date)
	w.Skonto = getEnvFloat("MATCH_WEIGHT_SKONTO", w.Skonto)
	m.DateCutoffDays = getEnvInt("MATCH_DATE_CUTOFF_DAYS", m.DateCutoffDays)
	m.MinScore = getEnvFloat("MATCH_MIN_SCORE", m.MinScore)
	m.AutoAttachThreshold = getEnvFloat("MATCH_AUTO_ATTACH_THRESHOLD", m.AutoAttachThreshold)
	m.AmountTolerance = getEnvFloat("MATCH_AMOUNT_TOLERANCE", m.AmountTolerance)
	m.PatternAmountThreshold = getEnvFloat("MATCH_PATTERN_AMOUNT_THRESHOLD", m.PatternAmountThreshold)
	m.Workers = getEnvInt("MATCH_WORKERS", m.Workers)
	m.IncludeAutoAttached = getEnv("MATCH_INCLUDE_AUTO_ATTACHED", "false") == "true"

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	return cfg
}

// LoadOrEnv loads config.yaml (or $CONFIG_PATH) and falls back to
// environment variables only when the file does not exist.
func LoadOrEnv() (*Config, error) {
	return LoadOrEnvWithPath(getEnv("CONFIG_PATH", "config.yaml"))
}

// LoadOrEnvWithPath is LoadOrEnv for an explicit path. A file that exists
// but fails to parse or validate is an error, never a silent fallback.
func LoadOrEnvWithPath(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return LoadFromEnv(), nil
}

func (c *Config) Validate() error {
	m := c.Matching
	if err := m.Weights.Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	if m.DateCutoffDays <= 0 {
		return fmt.Errorf("matching: date_cutoff_days must be positive")
	}
	if m.MinScore < 0 || m.MinScore > 1 {
		return fmt.Errorf("matching: min_score must be within [0,1]")
	}
	if m.AutoAttachThreshold < m.MinScore || m.AutoAttachThreshold > 1 {
		return fmt.Errorf("matching: auto_attach_threshold must be within [min_score,1]")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database: unsupported driver %q", c.Database.Driver)
	}
	return nil
}

func defaultPostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "reconciliation"),
		getEnv("DB_PORT", "5432"),
	)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}
