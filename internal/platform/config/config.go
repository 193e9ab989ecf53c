package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                 string
	DatabaseURL          string
	JWTSecret            string
	TokenTTL             time.Duration
	Environment          string
	SeedAdminEmail       string
	SeedAdminPassword    string
	EmailFrom            string
	EmailEnabled         bool
	SMTPHost             string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	SMTPUseTLS           bool
	RunMigrations        bool
	RunSeed              bool
	MigrationsDir        string
	MaxBodyBytes         int64
	RateLimitPerMinute   int
	CORSAllowedOrigins   []string
	FiscalYearStartMonth int
	OverdueAfter         time.Duration
	MetricsEnabled       bool
}

func Load() Config {
	// Best effort; real env vars win over .env entries.
	_ = godotenv.Load()

	return Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		TokenTTL:             getEnvDuration("TOKEN_TTL", 12*time.Hour),
		Environment:          getEnv("APP_ENV", "development"),
		SeedAdminEmail:       getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:    getEnv("SEED_ADMIN_PASSWORD", ""),
		EmailFrom:            getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:         getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:           getEnvBool("SMTP_USE_TLS", true),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:              getEnvBool("RUN_SEED", true),
		MigrationsDir:        getEnv("MIGRATIONS_DIR", "migrations"),
		MaxBodyBytes:         int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		CORSAllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		FiscalYearStartMonth: getEnvInt("FISCAL_YEAR_START_MONTH", 1),
		OverdueAfter:         getEnvDuration("LEAVE_OVERDUE_AFTER", 72*time.Hour),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.FiscalYearStartMonth < 1 || c.FiscalYearStartMonth > 12 {
		return fmt.Errorf("FISCAL_YEAR_START_MONTH must be between 1 and 12")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
