package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Env  string
	Port string

	DatabaseURL string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string

	// WebhookSecret signs deposit webhooks. Empty means signature
	// verification is skipped (non-enforcing mode).
	WebhookSecret string

	MinBetCents int64
	MaxBetCents int64

	// Platform-wide wagering multiplier used when an offer does not set its own.
	PromoWageringMultiplier float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                     getEnv("ENV", "development"),
		Port:                    getEnv("PORT", "8080"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RedisURL:                getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:               os.Getenv("REDIS_PASS"),
		JWTSecret:               os.Getenv("JWT_SECRET"),
		WebhookSecret:           os.Getenv("WEBHOOK_SECRET"),
		MinBetCents:             getEnvInt64("MIN_BET_CENTS", 1),
		MaxBetCents:             getEnvInt64("MAX_BET_CENTS", 10000),
		PromoWageringMultiplier: getEnvFloat("PROMO_WAGERING_MULTIPLIER", 20),
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %v", db, err)
		}
		cfg.RedisDB = n
	}

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
	}

	if cfg.MinBetCents < 1 || cfg.MaxBetCents < cfg.MinBetCents {
		return nil, fmt.Errorf("invalid bet bounds: min=%d max=%d", cfg.MinBetCents, cfg.MaxBetCents)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}
