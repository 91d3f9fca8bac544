package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress       string        `envconfig:"RUN_ADDRESS" default:":8080"`
	DatabaseURI      string        `envconfig:"DATABASE_URI"`
	StatementTimeout time.Duration `envconfig:"STATEMENT_TIMEOUT" default:"5s"`
	AutoMigrate      bool          `envconfig:"AUTO_MIGRATE" default:"true"`

	JWTSecret     string        `envconfig:"JWT_SECRET" default:"change-me-in-production"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL" default:"12h"`
	AdminLogin    string        `envconfig:"ADMIN_LOGIN"`
	AdminPassword string        `envconfig:"ADMIN_PASSWORD"`

	WebhookSigningKey   string        `envconfig:"WEBHOOK_SIGNING_KEY"`
	WebhookReplayWindow time.Duration `envconfig:"WEBHOOK_REPLAY_WINDOW" default:"5m"`

	NotifyURL     string        `envconfig:"NOTIFY_URL"`
	NotifyTimeout time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`

	RedisAddress     string        `envconfig:"REDIS_ADDRESS"`
	ReminderInterval time.Duration `envconfig:"REMINDER_INTERVAL" default:"1h"`
	ReminderRate     float64       `envconfig:"REMINDER_RATE" default:"2"`
	ReminderLockTTL  time.Duration `envconfig:"REMINDER_LOCK_TTL" default:"10m"`

	Timezone        string        `envconfig:"TIMEZONE" default:"America/Toronto"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`

	Location *time.Location `ignored:"true"`
}

const (
	defaultStatementTimeout    = 5 * time.Second
	defaultTokenTTL            = 12 * time.Hour
	defaultWebhookReplayWindow = 5 * time.Minute
	defaultNotifyTimeout       = 10 * time.Second
	defaultReminderInterval    = time.Hour
	defaultReminderRate        = 2.0
	defaultReminderLockTTL     = 10 * time.Minute
	defaultShutdownTimeout     = 10 * time.Second
)

// Load parses configuration from environment variables and flags.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	fs := flag.NewFlagSet("orderdesk", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.BoolVar(&cfg.AutoMigrate, "auto-migrate", cfg.AutoMigrate, "Apply schema migrations on start")
	fs.DurationVar(&cfg.StatementTimeout, "statement-timeout", cfg.StatementTimeout, "Per statement timeout")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for signing auth tokens")
	fs.StringVar(&cfg.WebhookSigningKey, "webhook-key", cfg.WebhookSigningKey, "Payment provider signing key")
	fs.StringVar(&cfg.NotifyURL, "notify-url", cfg.NotifyURL, "Mail relay base URL")
	fs.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "Redis address for the scheduler lock")
	fs.DurationVar(&cfg.ReminderInterval, "reminder-interval", cfg.ReminderInterval, "Interval between reminder sweeps")
	fs.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "Business time zone")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := readSecretFile("JWT_SECRET_FILE", &cfg.JWTSecret); err != nil {
		return nil, err
	}
	if err := readSecretFile("WEBHOOK_SIGNING_KEY_FILE", &cfg.WebhookSigningKey); err != nil {
		return nil, err
	}
	if err := readSecretFile("ADMIN_PASSWORD_FILE", &cfg.AdminPassword); err != nil {
		return nil, err
	}

	normalize(&cfg)

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}
	if cfg.WebhookSigningKey == "" {
		return nil, fmt.Errorf("webhook signing key must be provided")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	cfg.Location = loc

	return &cfg, nil
}

func normalize(cfg *Config) {
	if cfg.StatementTimeout <= 0 {
		cfg.StatementTimeout = defaultStatementTimeout
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.WebhookReplayWindow <= 0 {
		cfg.WebhookReplayWindow = defaultWebhookReplayWindow
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}
	if cfg.ReminderInterval <= 0 {
		cfg.ReminderInterval = defaultReminderInterval
	}
	if cfg.ReminderRate <= 0 {
		cfg.ReminderRate = defaultReminderRate
	}
	if cfg.ReminderLockTTL <= 0 {
		cfg.ReminderLockTTL = defaultReminderLockTTL
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
}

func readSecretFile(key string, dst *string) error {
	path, ok := os.LookupEnv(key)
	if !ok || path == "" {
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", strings.ToLower(key), err)
	}
	*dst = strings.TrimSpace(string(content))
	return nil
}
