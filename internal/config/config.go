package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"qanta-backend-go/internal/quota"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`

	GeminiAPIKey      string        `mapstructure:"GEMINI_API_KEY"`
	GeminiTextModel   string        `mapstructure:"GEMINI_TEXT_MODEL"`
	GeminiVisionModel string        `mapstructure:"GEMINI_VISION_MODEL"`
	GeminiMaxAttempts int           `mapstructure:"GEMINI_MAX_ATTEMPTS"`
	GeminiTimeout     time.Duration `mapstructure:"GEMINI_TIMEOUT"`

	QuotaBypassUIDs    string `mapstructure:"QUOTA_BYPASS_UIDS"`
	BootstrapAdminUIDs string `mapstructure:"BOOTSTRAP_ADMIN_UIDS"`
	DefaultTimezone    string `mapstructure:"DEFAULT_TIMEZONE"`
	AllowTestMode      bool   `mapstructure:"ALLOW_TEST_MODE"` // non-admins may call setTestMode

	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int    `mapstructure:"REDIS_DB"`
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	EncryptionKey string `mapstructure:"ENCRYPTION_KEY"` // 64 hex chars

	SMTPHost         string `mapstructure:"SMTP_HOST"`
	SMTPPort         string `mapstructure:"SMTP_PORT"`
	SMTPUsername     string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword     string `mapstructure:"SMTP_PASSWORD"`
	SupportEmailFrom string `mapstructure:"SUPPORT_EMAIL_FROM"`
	SupportEmailTo   string `mapstructure:"SUPPORT_EMAIL_TO"`
}

var defaults = map[string]interface{}{
	"PORT":                  "8080",
	"GIN_MODE":              "debug",
	"GEMINI_TEXT_MODEL":     "gemini-2.5-flash-lite",
	"GEMINI_VISION_MODEL":   "gemini-2.0-flash-exp",
	"GEMINI_MAX_ATTEMPTS":   1,
	"GEMINI_TIMEOUT":        "60s",
	"DEFAULT_TIMEZONE":      "+03:00",
	"ALLOW_TEST_MODE":       false,
	"REDIS_DB":              0,
	"RATE_LIMIT_PER_MINUTE": 30,
	"SMTP_PORT":             "587",
}

var envKeys = []string{
	"PORT", "GIN_MODE", "FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS",
	"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64", "CLIENT_URL",
	"GEMINI_API_KEY", "GEMINI_TEXT_MODEL", "GEMINI_VISION_MODEL", "GEMINI_MAX_ATTEMPTS", "GEMINI_TIMEOUT",
	"QUOTA_BYPASS_UIDS", "BOOTSTRAP_ADMIN_UIDS", "DEFAULT_TIMEZONE", "ALLOW_TEST_MODE",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "RATE_LIMIT_PER_MINUTE",
	"ENCRYPTION_KEY",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SUPPORT_EMAIL_FROM", "SUPPORT_EMAIL_TO",
}

// LoadConfig loads configuration from environment variables using Viper.
// Outside release mode a .env file in the working directory is read first;
// variables already set in the environment win over it.
func LoadConfig() (*Config, error) {
	if !strings.EqualFold(os.Getenv("GIN_MODE"), "release") {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read .env: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.FirebaseProjectID == "" {
		return errors.New("FIREBASE_PROJECT_ID is required")
	}
	if c.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	if c.EncryptionKey == "" {
		return errors.New("ENCRYPTION_KEY is required")
	}
	if _, ok := quota.ParseOffset(c.DefaultTimezone); !ok {
		return fmt.Errorf("DEFAULT_TIMEZONE %q is not a UTC offset like +03:00", c.DefaultTimezone)
	}
	if c.GeminiMaxAttempts < 1 {
		return errors.New("GEMINI_MAX_ATTEMPTS must be at least 1")
	}
	if c.GeminiTimeout <= 0 {
		return errors.New("GEMINI_TIMEOUT must be positive")
	}
	if c.RateLimitPerMinute < 1 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be at least 1")
	}
	if c.AllowTestMode && c.IsRelease() {
		return errors.New("ALLOW_TEST_MODE cannot be enabled in release mode")
	}
	return nil
}

// IsRelease reports whether the service runs in gin release mode.
func (c *Config) IsRelease() bool {
	return strings.EqualFold(c.GinMode, "release")
}
