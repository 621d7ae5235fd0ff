package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const defaultJWTSecret = "your-super-secret-key-change-in-production"

type Config struct {
	DatabaseURL     string        `yaml:"database_url"`
	JWTSecret       string        `yaml:"jwt_secret"`
	JWTExpiration   time.Duration `yaml:"jwt_expiration"`
	ServerPort      string        `yaml:"server_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	SQLLogLevel string `yaml:"sql_log_level"`

	// Dashboard shows at most this many entries.
	EntryListLimit int `yaml:"entry_list_limit"`

	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

func Default() *Config {
	return &Config{
		DatabaseURL:     "postgresql://postgres@localhost:5432/workhours",
		JWTSecret:       defaultJWTSecret,
		JWTExpiration:   24 * time.Hour,
		ServerPort:      "8080",
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "console",
		SQLLogLevel:     "warn",
		EntryListLimit:  500,
		AdminUsername:   "admin",
		AdminPassword:   "admin",
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// at path, then environment variables. ${VAR} references in the file are
// expanded before parsing.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.SQLLogLevel = getEnv("SQL_LOG_LEVEL", c.SQLLogLevel)
	c.AdminUsername = getEnv("ADMIN_USERNAME", c.AdminUsername)
	c.AdminPassword = getEnv("ADMIN_PASSWORD", c.AdminPassword)

	if c.JWTExpiration, err = getEnvDuration("JWT_EXPIRATION", c.JWTExpiration); err != nil {
		return err
	}
	if c.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		return err
	}
	if c.EntryListLimit, err = getEnvInt("ENTRY_LIST_LIMIT", c.EntryListLimit); err != nil {
		return err
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs error

	if port, err := strconv.Atoi(c.ServerPort); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid port %q: must be a number", c.ServerPort))
	} else if port < 1 || port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = multierr.Append(errs, fmt.Errorf("database url is required"))
	}
	if len(c.JWTSecret) < 16 {
		errs = multierr.Append(errs, fmt.Errorf("jwt secret must be at least 16 characters"))
	}
	if c.JWTExpiration <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("jwt expiration must be positive"))
	}
	if c.EntryListLimit <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("entry list limit must be positive"))
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		errs = multierr.Append(errs, fmt.Errorf("invalid log format %q: must be console or json", c.LogFormat))
	}
	switch c.SQLLogLevel {
	case "silent", "error", "warn", "info":
	default:
		errs = multierr.Append(errs, fmt.Errorf("invalid sql log level %q", c.SQLLogLevel))
	}

	return errs
}

// UsesDefaultSecret is true while JWT_SECRET has not been changed.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return d, nil
}
