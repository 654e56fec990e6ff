package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	WebSocket WebSocketConfig
	AMQP      AMQPConfig
	Log       LogConfig

	ShutdownTimeout time.Duration
}

type HTTPConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type WebSocketConfig struct {
	SendBuffer     int
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	// AllowedOrigins пустой список оставляет проверку same-origin
	AllowedOrigins []string
}

// AMQPConfig необязателен, пустой URL отключает публикацию событий
type AMQPConfig struct {
	URL      string
	Exchange string
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		HTTP:  HTTPConfig{Port: "8080"},
		Redis: RedisConfig{URL: "redis://localhost:6379/0"},
		Auth:  AuthConfig{TokenTTL: 24 * time.Hour},
		WebSocket: WebSocketConfig{
			SendBuffer:     256,
			PingInterval:   54 * time.Second,
			PongWait:       60 * time.Second,
			WriteWait:      10 * time.Second,
			MaxMessageSize: 512 * 1024,
		},
		AMQP:            AMQPConfig{Exchange: "chatflow.events"},
		Log:             LogConfig{Level: "info", Format: "text"},
		ShutdownTimeout: 30 * time.Second,
	}
}

// Load читает .env.local или .env, затем переменные окружения
func Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			slog.Info(".env not found, using environment variables")
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv собирает Config поверх DefaultConfig
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := DefaultConfig()
	var err error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" || err != nil {
			return
		}
		d, perr := time.ParseDuration(v)
		if perr != nil {
			err = fmt.Errorf("%s: %w", key, perr)
			return
		}
		*dst = d
	}
	num := func(key string, dst *int64) {
		v, ok := lookup(key)
		if !ok || v == "" || err != nil {
			return
		}
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			err = fmt.Errorf("%s: %w", key, perr)
			return
		}
		*dst = n
	}

	str("PORT", &cfg.HTTP.Port)
	str("DATABASE_URL", &cfg.Database.URL)
	str("REDIS_URL", &cfg.Redis.URL)
	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	dur("JWT_TTL", &cfg.Auth.TokenTTL)
	dur("WS_PING_INTERVAL", &cfg.WebSocket.PingInterval)
	dur("WS_PONG_WAIT", &cfg.WebSocket.PongWait)
	dur("WS_WRITE_WAIT", &cfg.WebSocket.WriteWait)
	num("WS_MAX_MESSAGE_SIZE", &cfg.WebSocket.MaxMessageSize)
	sendBuffer := int64(cfg.WebSocket.SendBuffer)
	num("WS_SEND_BUFFER", &sendBuffer)
	cfg.WebSocket.SendBuffer = int(sendBuffer)
	if v, ok := lookup("WS_ALLOWED_ORIGINS"); ok && v != "" {
		cfg.WebSocket.AllowedOrigins = splitList(v)
	}
	str("AMQP_URL", &cfg.AMQP.URL)
	str("AMQP_EXCHANGE", &cfg.AMQP.Exchange)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	dur("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive")
	}
	if c.WebSocket.PongWait <= 0 || c.WebSocket.WriteWait <= 0 {
		return fmt.Errorf("websocket timeouts must be positive")
	}
	if c.WebSocket.PingInterval <= 0 || c.WebSocket.PingInterval >= c.WebSocket.PongWait {
		return fmt.Errorf("WS_PING_INTERVAL must be positive and shorter than WS_PONG_WAIT")
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		return fmt.Errorf("WS_MAX_MESSAGE_SIZE must be positive")
	}
	return nil
}

// Logger создает логгер по настройкам c.Log
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
