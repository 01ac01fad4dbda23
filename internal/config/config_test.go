package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("GIN_MODE", "")
	t.Setenv("FIREBASE_PROJECT_ID", "qanta-test")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("ENCRYPTION_KEY", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.GeminiTextModel)
	assert.Equal(t, "gemini-2.0-flash-exp", cfg.GeminiVisionModel)
	assert.Equal(t, 1, cfg.GeminiMaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, "+03:00", cfg.DefaultTimezone)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, "587", cfg.SMTPPort)
	assert.Empty(t, cfg.RedisAddr)
	assert.False(t, cfg.IsRelease())
	assert.False(t, cfg.AllowTestMode)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("GEMINI_TIMEOUT", "15s")
	t.Setenv("GEMINI_MAX_ATTEMPTS", "3")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("QUOTA_BYPASS_UIDS", "a, b")
	t.Setenv("DEFAULT_TIMEZONE", "-05:00")
	t.Setenv("GIN_MODE", "release")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, 3, cfg.GeminiMaxAttempts)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "a, b", cfg.QuotaBypassUIDs)
	assert.Equal(t, "-05:00", cfg.DefaultTimezone)
	assert.True(t, cfg.IsRelease())
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	setRequired(t)
	// Registers restoration, then leaves the variable unset for godotenv.
	t.Setenv("SUPPORT_EMAIL_TO", "x")
	require.NoError(t, os.Unsetenv("SUPPORT_EMAIL_TO"))
	t.Setenv("PORT", "7070")
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte("SUPPORT_EMAIL_TO=destek@qanta.app\nPORT=9090\n"), 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "destek@qanta.app", cfg.SupportEmailTo)
	assert.Equal(t, "7070", cfg.Port, "environment wins over .env")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			FirebaseProjectID:  "p",
			GeminiAPIKey:       "k",
			EncryptionKey:      "e",
			DefaultTimezone:    "+03:00",
			GeminiMaxAttempts:  1,
			GeminiTimeout:      time.Second,
			RateLimitPerMinute: 30,
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"project", func(c *Config) { c.FirebaseProjectID = "" }, "FIREBASE_PROJECT_ID"},
		{"gemini key", func(c *Config) { c.GeminiAPIKey = "" }, "GEMINI_API_KEY"},
		{"encryption key", func(c *Config) { c.EncryptionKey = "" }, "ENCRYPTION_KEY"},
		{"timezone", func(c *Config) { c.DefaultTimezone = "Europe/Istanbul" }, "DEFAULT_TIMEZONE"},
		{"attempts", func(c *Config) { c.GeminiMaxAttempts = 0 }, "GEMINI_MAX_ATTEMPTS"},
		{"timeout", func(c *Config) { c.GeminiTimeout = 0 }, "GEMINI_TIMEOUT"},
		{"rate", func(c *Config) { c.RateLimitPerMinute = 0 }, "RATE_LIMIT_PER_MINUTE"},
		{"test mode in release", func(c *Config) { c.AllowTestMode = true; c.GinMode = "release" }, "ALLOW_TEST_MODE"},
	}
	base := valid()
	require.NoError(t, base.Validate())
	base.AllowTestMode = true
	require.NoError(t, base.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
