package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBDriver   string `yaml:"db_driver" env:"DB_DRIVER"`
	DBHost     string `yaml:"db_host" env:"DB_HOST"`
	DBPort     string `yaml:"db_port" env:"DB_PORT"`
	DBUser     string `yaml:"db_user" env:"DB_USER"`
	DBPassword string `yaml:"db_password" env:"DB_PASSWORD"`
	DBName     string `yaml:"db_name" env:"DB_NAME"`
	DBSSLMode  string `yaml:"db_sslmode" env:"DB_SSLMODE"`

	HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR"`
	GinMode  string `yaml:"gin_mode" env:"GIN_MODE"`

	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`

	UploadDir      string `yaml:"upload_dir" env:"UPLOAD_DIR"`
	UploadMaxBytes int64  `yaml:"upload_max_bytes" env:"UPLOAD_MAX_BYTES"`

	// FieldTimezone is the zone "today" and the my-tasks date filter are evaluated in.
	FieldTimezone string        `yaml:"field_timezone" env:"FIELD_TIMEZONE"`
	AckValidity   time.Duration `yaml:"ack_validity" env:"ACK_VALIDITY"`

	OutboxPollInterval time.Duration `yaml:"outbox_poll_interval" env:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize    int           `yaml:"outbox_batch_size" env:"OUTBOX_BATCH_SIZE"`

	OpenAIAPIKey  string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
}

// Default returns the configuration used when neither a file nor the
// environment overrides a value.
func Default() *Config {
	return &Config{
		DBDriver:           "postgres",
		DBHost:             "localhost",
		DBPort:             "5432",
		DBUser:             "postgres",
		DBPassword:         "password",
		DBName:             "parks_gardens",
		DBSSLMode:          "disable",
		HTTPAddr:           ":3000",
		GinMode:            "debug",
		JWTSecret:          "fallback_secret",
		TokenTTL:           24 * time.Hour,
		UploadDir:          "uploads/safety-documents",
		UploadMaxBytes:     10 << 20,
		FieldTimezone:      "Australia/Sydney",
		AckValidity:        12 * time.Hour,
		OutboxPollInterval: 500 * time.Millisecond,
		OutboxBatchSize:    100,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.GinMode == "release" && (c.JWTSecret == "" || c.JWTSecret == Default().JWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set in release mode")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves FieldTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.FieldTimezone)
	if err != nil {
		return nil, fmt.Errorf("load FIELD_TIMEZONE %q: %w", c.FieldTimezone, err)
	}
	return loc, nil
}

// AIEnabled reports whether task drafting can reach OpenAI.
func (c *Config) AIEnabled() bool {
	return c.OpenAIAPIKey != ""
}
