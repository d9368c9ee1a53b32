package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8480", cfg.Port)
	assert.Equal(t, "atelier", cfg.DBName)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.False(t, cfg.TracingEnabled)
}

func TestConfigValidate(t *testing.T) {
	base := Config{
		Port:       "8480",
		JWTSecret:  "a-very-long-development-secret-key-12345",
		DBPassword: "s3cure-password",
		DBSSLMode:  "require",
	}

	t.Run("Valid production config", func(t *testing.T) {
		cfg := base
		cfg.Env = "production"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Missing port", func(t *testing.T) {
		cfg := base
		cfg.Port = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Missing JWT secret", func(t *testing.T) {
		cfg := base
		cfg.JWTSecret = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Default JWT secret rejected in production", func(t *testing.T) {
		cfg := base
		cfg.Env = "production"
		cfg.JWTSecret = "your-secret-key-change-in-production"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Short JWT secret rejected in production", func(t *testing.T) {
		cfg := base
		cfg.Env = "production"
		cfg.JWTSecret = "short"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Weak DB password rejected in production", func(t *testing.T) {
		cfg := base
		cfg.Env = "production"
		cfg.DBPassword = "password"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Development tolerates weak values", func(t *testing.T) {
		cfg := base
		cfg.Env = "development"
		cfg.JWTSecret = "short"
		cfg.DBPassword = "password"
		assert.NoError(t, cfg.Validate())
	})
}
