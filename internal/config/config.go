package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	SessionJWT   = "jwt"
	SessionRedis = "redis"
	SessionChain = "chain"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR,default=:3000"`

	// DB_DSN demo for mysql:
	// app:apppass@tcp(127.0.0.1:3306)/chat?charset=utf8mb4&parseTime=true&loc=UTC
	DBDriver string `env:"DB_DRIVER,default=sqlite"`
	DBDSN    string `env:"DB_DSN,default=chat.db"`

	// session authority
	SessionBackend string `env:"SESSION_BACKEND,default=jwt"`
	JWTSecret      string `env:"JWT_SECRET,default=dev-secret-change-me"`
	JWTIssuer      string `env:"JWT_ISSUER,default=chatcore"`

	RedisAddr     string `env:"REDIS_ADDR,default=127.0.0.1:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	// rabbitMQ, empty url disables event export
	RabbitURL         string `env:"RABBIT_URL"`
	RabbitQueue       string `env:"RABBIT_QUEUE,default=chat_events"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=2"`
	ExportBuffer      int    `env:"EXPORT_BUFFER,default=1024"`

	ClientSendBuffer int           `env:"CLIENT_SEND_BUFFER,default=64"`
	TypingExpiry     time.Duration `env:"TYPING_EXPIRY,default=0s"`
	HistoryLimit     int           `env:"HISTORY_LIMIT,default=0"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`
}

func Load() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverMySQL:
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER=%q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("config: DB_DSN is empty")
	}

	switch c.SessionBackend {
	case SessionJWT, SessionChain:
		if c.JWTSecret == "" {
			return fmt.Errorf("config: JWT_SECRET is required for SESSION_BACKEND=%s", c.SessionBackend)
		}
	case SessionRedis:
	default:
		return fmt.Errorf("config: unsupported SESSION_BACKEND=%q", c.SessionBackend)
	}

	if c.ExportBuffer <= 0 {
		return fmt.Errorf("config: EXPORT_BUFFER must be positive, got %d", c.ExportBuffer)
	}
	if c.WorkerConcurrency <= 0 || c.WorkerConcurrency > 50 {
		return fmt.Errorf("config: WORKER_CONCURRENCY must be in [1,50], got %d", c.WorkerConcurrency)
	}
	if c.ClientSendBuffer <= 0 {
		return fmt.Errorf("config: CLIENT_SEND_BUFFER must be positive, got %d", c.ClientSendBuffer)
	}
	if c.TypingExpiry < 0 {
		return fmt.Errorf("config: TYPING_EXPIRY must not be negative")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("config: HISTORY_LIMIT must not be negative")
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("config: unsupported LOG_FORMAT=%q", c.LogFormat)
	}
	return nil
}

// EventExportEnabled reports whether chat events are published to RabbitMQ.
func (c Config) EventExportEnabled() bool {
	return strings.TrimSpace(c.RabbitURL) != ""
}
