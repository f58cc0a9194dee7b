package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort        = 3000
	DefaultTickInterval    = time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultSendBuffer      = 16
	DefaultWriteTimeout    = 10 * time.Second
	DefaultPongWait        = 60 * time.Second
	DefaultLogLevel        = "info"
)

// Environment variables that override file values.
const (
	EnvPort         = "PORT"
	EnvLogLevel     = "LOG_LEVEL"
	EnvTickInterval = "TICK_INTERVAL"
)

// Config holds the stockwatch-server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Market MarketConfig `yaml:"market"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds the HTTP and WebSocket settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 3000).
	HTTPPort int `yaml:"http_port"`

	// TickInterval is the price tick and broadcast period (default 1s).
	TickInterval time.Duration `yaml:"tick_interval"`

	// ShutdownTimeout bounds the HTTP server drain on shutdown (default 5s).
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// UIDir, when set, serves the front-end bundle from this directory.
	UIDir string `yaml:"ui_dir"`

	CORS CORSConfig `yaml:"cors"`
	WS   WSConfig   `yaml:"ws"`
}

// CORSConfig lists the origins allowed to call the REST API from a browser.
type CORSConfig struct {
	// AllowedOrigins may contain "*" to allow any origin. Empty disables CORS headers.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WSConfig tunes per-client WebSocket behaviour.
type WSConfig struct {
	// SendBuffer is the per-client outgoing message buffer depth.
	SendBuffer int `yaml:"send_buffer"`

	// WriteTimeout is the deadline for a single write to a client.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// PongWait is how long to wait for a pong before treating the client as dead.
	PongWait time.Duration `yaml:"pong_wait"`
}

// MarketConfig controls ticker handling.
type MarketConfig struct {
	// EnforceTickers rejects subscriptions to tickers outside the supported set.
	EnforceTickers bool `yaml:"enforce_tickers"`
}

// LogConfig controls the slog level.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`
}

// SlogLevel maps Level to a slog.Level. Unknown values map to Info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load builds the configuration: defaults, then the YAML file at path (skipped
// when path is empty), then a .env file in the working directory if present,
// then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("server config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("server config: parse yaml: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("server config: load .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        DefaultHTTPPort,
			TickInterval:    DefaultTickInterval,
			ShutdownTimeout: DefaultShutdownTimeout,
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
			},
			WS: WSConfig{
				SendBuffer:   DefaultSendBuffer,
				WriteTimeout: DefaultWriteTimeout,
				PongWait:     DefaultPongWait,
			},
		},
		Market: MarketConfig{
			EnforceTickers: true,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// applyEnv overrides file values with PORT, LOG_LEVEL and TICK_INTERVAL.
func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not a number", EnvPort, v)
		}
		cfg.Server.HTTPPort = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvTickInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvTickInterval, v, err)
		}
		cfg.Server.TickInterval = d
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.TickInterval <= 0 {
		return fmt.Errorf("server.tick_interval must be positive")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	if cfg.Server.WS.SendBuffer < 1 {
		return fmt.Errorf("server.ws.send_buffer must be at least 1")
	}
	if cfg.Server.WS.WriteTimeout <= 0 || cfg.Server.WS.PongWait <= 0 {
		return fmt.Errorf("server.ws timeouts must be positive")
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	return nil
}
