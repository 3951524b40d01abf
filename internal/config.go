package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"http_server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Security  SecurityConfig  `mapstructure:"security"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Source       string `mapstructure:"source"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type SecurityConfig struct {
	AccessTokenSecret  string        `mapstructure:"access_token_secret"`
	RefreshTokenSecret string        `mapstructure:"refresh_token_secret"`
	AccessTokenTTL     time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `mapstructure:"refresh_token_ttl"`
	BCryptCost         int           `mapstructure:"bcrypt_cost"`
}

type TelegramConfig struct {
	Token      string `mapstructure:"token"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// SchedulerConfig controls the worker clock: the operator timezone every
// quiet-hours and reminder decision is made in, the do-not-disturb window,
// and the pause between flushed sends.
type SchedulerConfig struct {
	Timezone       string        `mapstructure:"timezone"`
	QuietStartHour int           `mapstructure:"quiet_start_hour"`
	QuietEndHour   int           `mapstructure:"quiet_end_hour"`
	SendThrottle   time.Duration `mapstructure:"send_throttle"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfigFromEnv builds the config from environment variables, used for
// container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:      getEnv("SERVER_BASE_URL", ""),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Source:       getEnv("DATABASE_URL", ""),
			MaxOpenConns: getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Security: SecurityConfig{
			AccessTokenSecret:  getEnv("ACCESS_TOKEN_SECRET", ""),
			RefreshTokenSecret: getEnv("REFRESH_TOKEN_SECRET", ""),
			AccessTokenTTL:     getEnvAsDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL:    getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
			BCryptCost:         getEnvAsInt("BCRYPT_COST", 10),
		},
		Telegram: TelegramConfig{
			Token:      getEnv("TELEGRAM_TOKEN", ""),
			WebhookURL: getEnv("TELEGRAM_WEBHOOK_URL", ""),
		},
		Scheduler: SchedulerConfig{
			Timezone:       getEnv("SCHEDULER_TIMEZONE", "Europe/Kyiv"),
			QuietStartHour: getEnvAsInt("SCHEDULER_QUIET_START_HOUR", 22),
			QuietEndHour:   getEnvAsInt("SCHEDULER_QUIET_END_HOUR", 8),
			SendThrottle:   getEnvAsDuration("SCHEDULER_SEND_THROTTLE", 100*time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func (c *Config) Validate() error {
	if c.Database.Source == "" {
		return errors.New("database source is required")
	}
	if c.Security.AccessTokenSecret == "" || c.Security.RefreshTokenSecret == "" {
		return errors.New("token secrets are required")
	}
	if c.Scheduler.QuietStartHour < 0 || c.Scheduler.QuietStartHour > 23 {
		return fmt.Errorf("quiet_start_hour out of range: %d", c.Scheduler.QuietStartHour)
	}
	if c.Scheduler.QuietEndHour < 0 || c.Scheduler.QuietEndHour > 23 {
		return fmt.Errorf("quiet_end_hour out of range: %d", c.Scheduler.QuietEndHour)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return nil
}

// Location resolves the operator timezone. Validate has already checked it.
func (c *SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
