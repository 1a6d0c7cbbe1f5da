package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	OpenAI  OpenAIConfig
	Server  ServerConfig
	Store   StoreConfig
	Quota   QuotaConfig
	Events  EventsConfig
	R2      R2Config
	Purge   PurgeConfig
	Profile string `env:"INTERVIEW_CONFIG" envDefault:"config/interview.yaml"`
}

type ServerConfig struct {
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// StoreConfig выбирает хранилище сессий
type StoreConfig struct {
	Driver       string        `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabasePath string        `env:"DATABASE_PATH" envDefault:"data/interview.db"`
	DatabaseURL  string        `env:"DB_URL"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

type QuotaConfig struct {
	Monthly  int    `env:"QUOTA_MONTHLY" envDefault:"1"`
	Timezone string `env:"QUOTA_TIMEZONE" envDefault:"Asia/Tokyo"`
}

// EventsConfig - публикация событий сессии в RabbitMQ (опционально)
type EventsConfig struct {
	RabbitMQURL string `env:"RABBITMQ_URL"`
	Exchange    string `env:"EVENTS_EXCHANGE" envDefault:"interview.events"`
}

// R2Config - бакет с загруженными резюме (опционально)
type R2Config struct {
	AccountID string `env:"R2_ACCOUNT_ID"`
	Bucket    string `env:"R2_BUCKET"`
	AccessKey string `env:"R2_ACCESS_KEY"`
	SecretKey string `env:"R2_SECRET_KEY"`
}

type PurgeConfig struct {
	Schedule string `env:"PURGE_SCHEDULE" envDefault:"*/15 * * * *"`
}

// Enabled сообщает, настроен ли бакет
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Location возвращает часовой пояс для расчета месячного периода квоты
func (c QuotaConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadAppConfig загружает .env (если есть) и читает переменные окружения
func LoadAppConfig() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for sqlite store")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DB_URL is required for postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Store.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Quota.Monthly < 0 {
		return fmt.Errorf("QUOTA_MONTHLY must not be negative")
	}
	return nil
}
