package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Store  StoreConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Server ServerConfig
	Slack  SlackConfig
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend  string // "memory" or "postgres"
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings for the event fan-out.
// An empty Addr disables the fan-out and the websocket event stream.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// AuthConfig holds single-user authentication settings. An empty
// Password runs the server open, which is the self-hosted default.
type AuthConfig struct {
	Password  string //nolint:gosec // G117: auth config
	JWTSecret string //nolint:gosec // G117: JWT signing secret config
	TokenTTL  time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// SlackConfig holds the optional Slack notification target.
type SlackConfig struct {
	BotToken string
	Channel  string
}

// Load reads configuration from environment variables. Defaults are
// safe for local single-user use; postgres and auth must be opted into.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("TEMPO_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("TEMPO_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("TEMPO_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tokenTTL, err := getEnvDuration("TEMPO_AUTH_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("TEMPO_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("TEMPO_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("TEMPO_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Store: StoreConfig{
			Backend:  getEnv("TEMPO_STORE", "memory"),
			Host:     getEnv("TEMPO_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("TEMPO_DB_USER", "tempo"),
			Password: getEnv("TEMPO_DB_PASSWORD", ""),
			DBName:   getEnv("TEMPO_DB_NAME", "tempo_dev"),
			SSLMode:  getEnv("TEMPO_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("TEMPO_REDIS_ADDR", ""),
			Password: getEnv("TEMPO_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			Password:  getEnv("TEMPO_AUTH_PASSWORD", ""),
			JWTSecret: getEnv("TEMPO_JWT_SECRET", ""),
			TokenTTL:  tokenTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("TEMPO_SERVER_ADDR", ":8090"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Slack: SlackConfig{
			BotToken: getEnv("TEMPO_SLACK_BOT_TOKEN", ""),
			Channel:  getEnv("TEMPO_SLACK_CHANNEL", ""),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	switch c.Store.Backend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("TEMPO_STORE must be 'memory' or 'postgres', got %q", c.Store.Backend)
	}

	// Auth is optional, but when enabled the JWT secret must be real.
	if c.Auth.Password != "" {
		if c.Auth.JWTSecret == "" {
			return errors.New("TEMPO_JWT_SECRET is required when TEMPO_AUTH_PASSWORD is set")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return errors.New("TEMPO_JWT_SECRET must be at least 32 characters")
		}
	}

	// Bounds checks.
	if c.Store.Port < 1 || c.Store.Port > 65535 {
		return fmt.Errorf("TEMPO_DB_PORT must be 1-65535, got %d", c.Store.Port)
	}
	if c.Store.MaxConns < 1 {
		return fmt.Errorf("TEMPO_DB_MAX_CONNS must be >= 1, got %d", c.Store.MaxConns)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("TEMPO_AUTH_TOKEN_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("TEMPO_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("TEMPO_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Slack.BotToken != "" && c.Slack.Channel == "" {
		return errors.New("TEMPO_SLACK_CHANNEL is required when TEMPO_SLACK_BOT_TOKEN is set")
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *StoreConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
