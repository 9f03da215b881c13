package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	defaultAppName          = "Calivra"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultAccessTokenTTL   = 15 * time.Minute
	defaultRefreshTokenTTL  = 7 * 24 * time.Hour
	defaultTransactionLimit = "500000"
	defaultReconcileSpec    = "@every 15m"
	defaultEventsExchange   = "calivra.events"
	defaultCurrency         = "NGN"
	devJWTSecret            = "calivra-dev-access-secret"
	devRefreshSecret        = "calivra-dev-refresh-secret"
)

var envKeys = []string{
	"APP_NAME", "APP_ENV", "PORT", "LOG_LEVEL",
	"DATABASE_URL", "REDIS_URL", "AMQP_URL", "EVENTS_EXCHANGE",
	"JWT_SECRET", "REFRESH_SECRET", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL",
	"SHUTDOWN_TIMEOUT", "IDEMPOTENCY_TTL", "ADMIN_EMAILS", "DEFAULT_TRANSACTION_LIMIT",
	"RECONCILE_SCHEDULE", "CURRENCY",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SENDER_EMAIL",
}

// Config captures application runtime configuration loaded from the environment.
type Config struct {
	AppName        string        `mapstructure:"APP_NAME"`
	AppEnv         string        `mapstructure:"APP_ENV"`
	Port           string        `mapstructure:"PORT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	AMQPURL        string        `mapstructure:"AMQP_URL"`
	EventsExchange string        `mapstructure:"EVENTS_EXCHANGE"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	RefreshSecret  string        `mapstructure:"REFRESH_SECRET"`
	AccessTokenTTL time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTTL     time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	ShutdownPeriod time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	IdempotencyTTL time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	AdminEmails    []string      `mapstructure:"ADMIN_EMAILS"`
	RawTxLimit     string        `mapstructure:"DEFAULT_TRANSACTION_LIMIT"`
	ReconcileSpec  string        `mapstructure:"RECONCILE_SCHEDULE"`
	Currency       string        `mapstructure:"CURRENCY"`
	SMTP           SMTP          `mapstructure:",squash"`

	// TransactionLimit is RawTxLimit parsed; populated by Load.
	TransactionLimit decimal.Decimal `mapstructure:"-"`
}

// SMTP holds outbound mail settings. Mail notifications are disabled when Host is empty.
type SMTP struct {
	Host     string `mapstructure:"SMTP_HOST"`
	Port     string `mapstructure:"SMTP_PORT"`
	Username string `mapstructure:"SMTP_USERNAME"`
	Password string `mapstructure:"SMTP_PASSWORD"`
	From     string `mapstructure:"SENDER_EMAIL"`
}

// Load reads configuration values from the environment (and an optional .env file).
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("APP_ENV", defaultAppEnv)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("EVENTS_EXCHANGE", defaultEventsExchange)
	v.SetDefault("ACCESS_TOKEN_TTL", defaultAccessTokenTTL)
	v.SetDefault("REFRESH_TOKEN_TTL", defaultRefreshTokenTTL)
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownDelay)
	v.SetDefault("IDEMPOTENCY_TTL", defaultIdempotencyTTL)
	v.SetDefault("DEFAULT_TRANSACTION_LIMIT", defaultTransactionLimit)
	v.SetDefault("RECONCILE_SCHEDULE", defaultReconcileSpec)
	v.SetDefault("CURRENCY", defaultCurrency)
	v.SetDefault("SMTP_PORT", "587")
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.AdminEmails = normalizeEmails(cfg.AdminEmails)

	limit, err := decimal.NewFromString(cfg.RawTxLimit)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DEFAULT_TRANSACTION_LIMIT: %w", err)
	}
	if !limit.IsPositive() {
		return Config{}, fmt.Errorf("DEFAULT_TRANSACTION_LIMIT must be positive")
	}
	cfg.TransactionLimit = limit

	if cfg.IsDevelopment() {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = devJWTSecret
		}
		if cfg.RefreshSecret == "" {
			cfg.RefreshSecret = devRefreshSecret
		}
		return cfg, nil
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}
	if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether in-memory fallbacks are allowed.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// IsAdminEmail reports whether the address is configured as an administrator.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
