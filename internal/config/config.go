package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "BOT"

type Config struct {
	Telegram TelegramConfig `envconfig:"TELEGRAM"`
	Usersbox UsersboxConfig `envconfig:"USERSBOX"`
	DB       DBConfig       `envconfig:"DB"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	HTTP     HTTPConfig     `envconfig:"HTTP"`
	Log      LogConfig      `envconfig:"LOG"`

	// FreeAttempts is the number of searches granted to a freshly created profile.
	FreeAttempts int `envconfig:"FREE_ATTEMPTS" default:"1"`
}

type TelegramConfig struct {
	Token         string `envconfig:"TOKEN"`
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	APIServer     string `envconfig:"API_SERVER"`
}

type UsersboxConfig struct {
	Token      string        `envconfig:"TOKEN"`
	BaseURL    string        `envconfig:"BASE_URL" default:"https://api.usersbox.ru/v1"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"15s"`
	SourcesTTL time.Duration `envconfig:"SOURCES_TTL" default:"10m"`
}

type DBConfig struct {
	Driver     string `envconfig:"DRIVER" default:"postgres"`
	Host       string `envconfig:"HOST" default:"localhost"`
	Port       string `envconfig:"PORT" default:"5432"`
	User       string `envconfig:"USER" default:"postgres"`
	Password   string `envconfig:"PASSWORD" default:"postgres"`
	Name       string `envconfig:"NAME" default:"usersbox_bot"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"usersbox_bot.db"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"ENABLED" default:"false"`
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     string `envconfig:"PORT" default:"6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

type HTTPConfig struct {
	Host              string        `envconfig:"HOST" default:"0.0.0.0"`
	Port              string        `envconfig:"PORT" default:"8001"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"3s"`
	// Outbound provider + telegram calls happen inside the webhook request.
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	// AllowedCIDRs restricts webhook sources when non-empty.
	AllowedCIDRs []string `envconfig:"ALLOWED_CIDRS"`
}

type LogConfig struct {
	Level      string `envconfig:"LEVEL" default:"info"`
	Production bool   `envconfig:"PRODUCTION" default:"false"`
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed to serve bot traffic.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("BOT_TELEGRAM_TOKEN is required"))
	}
	if c.Usersbox.Token == "" {
		errs = append(errs, errors.New("BOT_USERSBOX_TOKEN is required"))
	}
	if c.FreeAttempts < 0 {
		errs = append(errs, errors.New("BOT_FREE_ATTEMPTS must not be negative"))
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported BOT_DB_DRIVER %q", c.DB.Driver))
	}
	return errors.Join(errs...)
}

func (c *DBConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
