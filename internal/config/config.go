package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	BaseURL        string   `env:"BASE_URL" envDefault:"http://localhost:8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"`
	DBDSN      string `env:"DB_DSN"`
	DBLogLevel string `env:"DB_LOG_LEVEL" envDefault:"warn"`

	JWTSecret         string        `env:"JWT_SECRET"`
	JWTTTL            time.Duration `env:"JWT_TTL" envDefault:"24h"`
	CookieName        string        `env:"COOKIE_NAME" envDefault:"pos_token"`
	CookieSecure      bool          `env:"COOKIE_SECURE" envDefault:"false"`
	AllowRegistration bool          `env:"ALLOW_REGISTRATION" envDefault:"false"`

	DebtDuePeriod     time.Duration `env:"DEBT_DUE_PERIOD" envDefault:"720h"`
	SweepSchedule     string        `env:"SWEEP_SCHEDULE" envDefault:"@every 1h"`
	CartTTL           time.Duration `env:"CART_TTL" envDefault:"168h"`
	AutoApproveLimit  string        `env:"EXPENDITURE_AUTO_APPROVE_LIMIT" envDefault:"100"`
	autoApproveAmount decimal.Decimal

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@localhost"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"backoffice-events"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	// A missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the configuration from the environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.DBDriver {
	case "mysql":
		if c.DBDSN == "" {
			return errors.New("DB_DSN is required when DB_DRIVER is mysql")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	limit, err := decimal.NewFromString(c.AutoApproveLimit)
	if err != nil || limit.IsNegative() {
		return fmt.Errorf("invalid EXPENDITURE_AUTO_APPROVE_LIMIT %q", c.AutoApproveLimit)
	}
	c.autoApproveAmount = limit
	return nil
}

// AutoApproveAmount is the largest expenditure approved without an admin.
func (c *Config) AutoApproveAmount() decimal.Decimal {
	return c.autoApproveAmount
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
