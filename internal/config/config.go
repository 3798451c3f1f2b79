package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string // development, production

	// SMTP relay (credentials come from the operator form, never config)
	SMTPHost string
	SMTPPort int

	// Sent-log
	SentLogBackend string // csv or sqlite
	SentLogPath    string

	// Schedule
	OperatorZone string // IANA id; empty means the process-local zone

	MaxUploadSizeMB int
}

func Load() (*Config, error) {
	// Load .env file if it exists (don't error if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Define flags with env var fallbacks
	flag.StringVar(&cfg.Port, "port", getEnv("PORT", "8080"), "Server port")
	flag.StringVar(&cfg.Env, "env", getEnv("ENV", "development"), "Environment (development, production)")
	flag.StringVar(&cfg.SentLogBackend, "sent-log-backend", getEnv("SENT_LOG_BACKEND", "csv"), "Sent-log backend (csv, sqlite)")
	flag.StringVar(&cfg.SentLogPath, "sent-log", getEnv("SENT_LOG_PATH", "sent_emails.csv"), "Sent-log file path")

	cfg.SMTPHost = getEnv("SMTP_HOST", "smtp.gmail.com")
	cfg.SMTPPort = getEnvInt("SMTP_PORT", 587)
	cfg.OperatorZone = getEnv("OPERATOR_TZ", "")
	cfg.MaxUploadSizeMB = getEnvInt("MAX_UPLOAD_SIZE_MB", 25)

	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required")
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT must be a valid port, got %d", c.SMTPPort)
	}
	if c.SentLogBackend != "csv" && c.SentLogBackend != "sqlite" {
		return fmt.Errorf("SENT_LOG_BACKEND must be csv or sqlite, got %q", c.SentLogBackend)
	}
	if c.SentLogPath == "" {
		return fmt.Errorf("SENT_LOG_PATH is required")
	}
	if c.MaxUploadSizeMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_MB must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
