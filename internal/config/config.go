// Package config содержит логику чтения конфигурации бота доставки воды.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Поддерживаемые драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config содержит параметры конфигурации бота.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	DatabaseURI    string `env:"DATABASE_URI"`
	DatabaseDriver string `env:"DATABASE_DRIVER"`
	BotToken       string `env:"BOT_TOKEN"`

	WebhookURL string `env:"WEBHOOK_URL"`

	GeocoderURL       string        `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org"`
	GeocoderUserAgent string        `env:"GEOCODER_USER_AGENT" envDefault:"LaVitaBot/1.0"`
	GeocoderRPS       float64       `env:"GEOCODER_RPS" envDefault:"1"`
	ResolveTimeout    time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"10s"`

	// UnitPrice это цена одной бутыли.
	UnitPrice     decimal.Decimal `env:"UNIT_PRICE" envDefault:"20000"`
	BalanceGating bool            `env:"BALANCE_GATING" envDefault:"true"`
	SessionTTL    time.Duration   `env:"SESSION_TTL" envDefault:"30m"`

	OperatorSecret  string `env:"OPERATOR_SECRET"`
	WelcomePhotoURL string `env:"WELCOME_PHOTO_URL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envDatabaseDriver := cfg.DatabaseDriver
	envBotToken := cfg.BotToken

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.DatabaseDriver, "s", DriverPostgres, "storage driver: postgres or sqlite")
	flag.StringVar(&cfg.BotToken, "t", "", "telegram bot token")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envDatabaseDriver != "" {
		cfg.DatabaseDriver = envDatabaseDriver
	}
	if envBotToken != "" {
		cfg.BotToken = envBotToken
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = DriverPostgres
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	if c.BotToken == "" {
		return errors.New("bot token is required")
	}
	if c.GeocoderRPS <= 0 {
		return fmt.Errorf("geocoder rps must be positive, got %v", c.GeocoderRPS)
	}
	if !c.UnitPrice.IsPositive() {
		return fmt.Errorf("unit price must be positive, got %s", c.UnitPrice)
	}
	if !c.UnitPrice.Equal(c.UnitPrice.Round(2)) {
		return fmt.Errorf("unit price must have at most 2 decimal places, got %s", c.UnitPrice)
	}
	return nil
}
