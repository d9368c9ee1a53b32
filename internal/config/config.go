// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string  `mapstructure:"JWT_SECRET"`
	Port           string  `mapstructure:"PORT"`
	DBHost         string  `mapstructure:"DB_HOST"`
	DBPort         string  `mapstructure:"DB_PORT"`
	DBUser         string  `mapstructure:"DB_USER"`
	DBPassword     string  `mapstructure:"DB_PASSWORD"`
	DBName         string  `mapstructure:"DB_NAME"`
	DBSSLMode      string  `mapstructure:"DB_SSLMODE"`
	RedisURL       string  `mapstructure:"REDIS_URL"`
	AllowedOrigins string  `mapstructure:"ALLOWED_ORIGINS"`
	Env            string  `mapstructure:"APP_ENV"`
	TracingEnabled bool    `mapstructure:"TRACING_ENABLED"`
	TraceExporter  string  `mapstructure:"TRACE_EXPORTER"`
	OTLPEndpoint   string  `mapstructure:"OTLP_ENDPOINT"`
	TraceSampler   float64 `mapstructure:"TRACE_SAMPLER_RATIO"`
}

var defaults = map[string]any{
	"PORT":                "8480",
	"DB_HOST":             "localhost",
	"DB_PORT":             "5432",
	"DB_USER":             "user",
	"DB_PASSWORD":         "password",
	"DB_NAME":             "atelier",
	"DB_SSLMODE":          "disable",
	"REDIS_URL":           "localhost:6379",
	"JWT_SECRET":          "your-secret-key-change-in-production",
	"ALLOWED_ORIGINS":     "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173",
	"APP_ENV":             "development",
	"TRACING_ENABLED":     false,
	"TRACE_EXPORTER":      "stdout",
	"OTLP_ENDPOINT":       "localhost:4318",
	"TRACE_SAMPLER_RATIO": 1.0,
}

// LoadConfig reads configuration in three layers: an optional config.yml,
// an optional per-environment config.<env>.yml merged on top, and
// environment variables overriding both.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env vars and defaults cover everything.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to merge profile config 'config.%s.yml': %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks required values and rejects known-weak secrets in
// production. Outside production weak values only warn.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	if c.Env != "production" && c.Env != "prod" {
		if len(c.JWTSecret) < 32 {
			log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
		}
		return nil
	}

	if c.JWTSecret == defaults["JWT_SECRET"] {
		return errors.New("JWT_SECRET must be changed from the default value in production")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	}
	if c.DBPassword == "password" || c.DBPassword == "" {
		return errors.New("a strong DB_PASSWORD is required in production")
	}
	if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
		log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
	}
	if c.AllowedOrigins == "*" {
		log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
	}

	return nil
}
