// Package config loads runtime configuration from the environment and an
// optional .env file, plus the optional YAML file with matching rules.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"complybook/internal/services/matching"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HTTPAddr       string
	CORSOrigins    []string
	RequestTimeout time.Duration
	LogLevel       string
	Database       DatabaseConfig
	Matching       matching.Config
}

type DatabaseConfig struct {
	Driver     string
	URL        string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from
// the individual DB_* variables.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Load reads envFile (or .env when empty) if present, then the environment.
// A missing env file is not an error; the caller may log that it is absent.
func Load(envFile string) (*Config, bool, error) {
	var loaded bool
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, false, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		loaded = true
	} else if err := godotenv.Load(); err == nil {
		loaded = true
	}

	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "15s"))
	if err != nil {
		return nil, loaded, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	cfg := &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RequestTimeout: timeout,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			URL:        os.Getenv("DATABASE_URL"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   os.Getenv("DB_PASSWORD"),
			Name:       getEnv("DB_NAME", "complybook"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "complybook.db"),
		},
		Matching: matching.DefaultConfig(),
	}

	if path := os.Getenv("MATCHING_CONFIG"); path != "" {
		m, err := LoadMatchingConfig(path)
		if err != nil {
			return nil, loaded, err
		}
		cfg.Matching = m
	}

	return cfg, loaded, nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("DATABASE_URL or DB_HOST is required for postgres")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return c.Matching.Validate()
}

type matchingFile struct {
	AmountWeight      *float64 `yaml:"amount_weight"`
	DateWeight        *float64 `yaml:"date_weight"`
	DescriptionWeight *float64 `yaml:"description_weight"`
	Threshold         *float64 `yaml:"threshold"`
}

// LoadMatchingConfig overlays the YAML file at path onto the default
// matching weights. Keys left out keep their defaults.
func LoadMatchingConfig(path string) (matching.Config, error) {
	cfg := matching.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read matching config: %w", err)
	}

	var f matchingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return cfg, fmt.Errorf("failed to parse matching config: %w", err)
	}

	if f.AmountWeight != nil {
		cfg.AmountWeight = *f.AmountWeight
	}
	if f.DateWeight != nil {
		cfg.DateWeight = *f.DateWeight
	}
	if f.DescriptionWeight != nil {
		cfg.DescriptionWeight = *f.DescriptionWeight
	}
	if f.Threshold != nil {
		cfg.Threshold = *f.Threshold
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid matching config %s: %w", path, err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
