package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultJWTSecret = "change-me-jwt-secret"
	defaultJWTTTL    = "24h"
)

// Config holds all runtime configuration. It is loaded once in main and
// injected into constructors; services never read the environment themselves.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Razorpay RazorpayConfig
	Payment  PaymentConfig
}

type ServerConfig struct {
	Port   string
	AppEnv string // dev, staging, production
	// CORSOrigins is a comma-separated allowlist; empty means allow all.
	CORSOrigins string
}

// IsProduction reports whether the environment should get production
// hardening (gin release mode, strict credential checks).
func (s ServerConfig) IsProduction() bool {
	return isProdLike(s.AppEnv)
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// RazorpayConfig holds gateway credentials. KeySecret is used for order
// creation auth and signature verification and must never reach the client.
type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

type PaymentConfig struct {
	// AllowFakeAdvance enables the gateway-bypass endpoint for test
	// environments. Load rejects it in production.
	AllowFakeAdvance bool
	// ReconcileAfter is how old an unpaid order must be before the
	// reconciliation sweep asks the gateway about it.
	ReconcileAfter time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			AppEnv:      strings.ToLower(getEnv("APP_ENV", "dev")),
			CORSOrigins: os.Getenv("CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "jaladhar.db"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", defaultJWTSecret),
		},
		Razorpay: RazorpayConfig{
			KeyID:     os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
			BaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
		},
		Payment: PaymentConfig{
			AllowFakeAdvance: parseBoolEnv("RAZORPAY_ALLOW_FAKE", "false"),
		},
	}

	var err error
	cfg.JWT.TTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}
	cfg.Razorpay.Timeout, err = parseDurationEnv("RAZORPAY_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cfg.Payment.ReconcileAfter, err = parseDurationEnv("PAYMENT_RECONCILE_AFTER", "30m")
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if isProdLike(cfg.Server.AppEnv) {
		if strings.TrimSpace(cfg.JWT.Secret) == "" || cfg.JWT.Secret == defaultJWTSecret {
			return fmt.Errorf("in production JWT_SECRET must be set and not default")
		}
		if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
			return fmt.Errorf("in production RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set")
		}
		if cfg.Payment.AllowFakeAdvance {
			return fmt.Errorf("RAZORPAY_ALLOW_FAKE must not be enabled in production")
		}
	}
	if cfg.Razorpay.Timeout <= 0 {
		return fmt.Errorf("RAZORPAY_TIMEOUT must be > 0")
	}
	if cfg.Payment.ReconcileAfter <= 0 {
		return fmt.Errorf("PAYMENT_RECONCILE_AFTER must be > 0")
	}
	return nil
}

func isProdLike(env string) bool {
	return env == "prod" || env == "production" || env == "release"
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
