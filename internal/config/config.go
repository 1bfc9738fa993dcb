package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Verification VerificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	OpTimeoutMsec int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token and credential parameters. Lifetimes are fixed
// for the life of the process.
type AuthConfig struct {
	JWTSecret              string
	AppTokenTTLSeconds     int
	KioskTokenTTLSeconds   int
	RefreshTokenTTLSeconds int
	AdminTokenTTLSeconds   int
	BcryptCost             int
	PublicPaths            []string
	LogoutRatePerMinute    int
	ConfirmRatePerMinute   int
}

// VerificationConfig holds SMS verification settings.
type VerificationConfig struct {
	CodeTTLSeconds int
	SenderNumber   string
	WebhookURL     string
}

var defaultPublicPaths = []string{
	"/health/**",
	"/metrics",
	"/api/auth/verify/**",
	"/api/auth/admin/**",
	"/api/auth/kiosk/phone-login",
	"/api/auth/refresh",
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "orderme-api"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			OpTimeoutMsec: getEnvAsInt("REDIS_OP_TIMEOUT_MS", 300),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              os.Getenv("AUTH_JWT_SECRET"),
			AppTokenTTLSeconds:     getEnvAsInt("AUTH_APP_TOKEN_TTL_SECONDS", 30*24*60*60),
			KioskTokenTTLSeconds:   getEnvAsInt("AUTH_KIOSK_TOKEN_TTL_SECONDS", 60),
			RefreshTokenTTLSeconds: getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_SECONDS", 60*24*60*60),
			AdminTokenTTLSeconds:   getEnvAsInt("AUTH_ADMIN_TOKEN_TTL_SECONDS", 24*60*60),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
			PublicPaths:            getEnvAsList("AUTH_PUBLIC_PATHS", defaultPublicPaths),
			LogoutRatePerMinute:    getEnvAsInt("AUTH_LOGOUT_RATE_LIMIT_PER_MINUTE", 30),
			ConfirmRatePerMinute:   getEnvAsInt("AUTH_VERIFY_CONFIRM_RATE_LIMIT_PER_MINUTE", 10),
		},
		Verification: VerificationConfig{
			CodeTTLSeconds: getEnvAsInt("SMS_VERIFICATION_TTL_SECONDS", 600),
			SenderNumber:   getEnv("SMS_SENDER_NUMBER", ""),
			WebhookURL:     getEnv("SMS_WEBHOOK_URL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the token authority cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	lifetimes := map[string]int{
		"AUTH_APP_TOKEN_TTL_SECONDS":     c.Auth.AppTokenTTLSeconds,
		"AUTH_KIOSK_TOKEN_TTL_SECONDS":   c.Auth.KioskTokenTTLSeconds,
		"AUTH_REFRESH_TOKEN_TTL_SECONDS": c.Auth.RefreshTokenTTLSeconds,
		"AUTH_ADMIN_TOKEN_TTL_SECONDS":   c.Auth.AdminTokenTTLSeconds,
	}
	for key, val := range lifetimes {
		if val <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// OpTimeout bounds a single Redis round trip.
func (r RedisConfig) OpTimeout() time.Duration {
	if r.OpTimeoutMsec <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(r.OpTimeoutMsec) * time.Millisecond
}

// CodeTTL returns how long an SMS verification code stays usable.
func (v VerificationConfig) CodeTTL() time.Duration {
	return time.Duration(v.CodeTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
