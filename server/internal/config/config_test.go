package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_NoFile_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.TickInterval != DefaultTickInterval {
		t.Errorf("tick_interval: got %v, want %v", cfg.Server.TickInterval, DefaultTickInterval)
	}
	if cfg.Server.WS.SendBuffer != DefaultSendBuffer {
		t.Errorf("ws.send_buffer: got %d, want %d", cfg.Server.WS.SendBuffer, DefaultSendBuffer)
	}
	if !cfg.Market.EnforceTickers {
		t.Error("market.enforce_tickers: got false, want true")
	}
	if len(cfg.Server.CORS.AllowedOrigins) != 1 || cfg.Server.CORS.AllowedOrigins[0] != "*" {
		t.Errorf("cors.allowed_origins: got %v, want [*]", cfg.Server.CORS.AllowedOrigins)
	}
}

func TestLoad_PartialFile_KeepsDefaults(t *testing.T) {
	p := writeConfig(t, `log:
  level: debug
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level: got %v, want debug", cfg.Log.SlogLevel())
	}
}

func TestLoad_FullFile(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  tick_interval: 250ms
  shutdown_timeout: 2s
  ui_dir: web/dist
  cors:
    allowed_origins: ["http://localhost:5173"]
  ws:
    send_buffer: 4
    write_timeout: 3s
    pong_wait: 30s
market:
  enforce_tickers: false
log:
  level: warn
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", cfg.Server.HTTPPort)
	}
	if cfg.Server.TickInterval != 250*time.Millisecond {
		t.Errorf("tick_interval: got %v, want 250ms", cfg.Server.TickInterval)
	}
	if cfg.Server.ShutdownTimeout != 2*time.Second {
		t.Errorf("shutdown_timeout: got %v, want 2s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.UIDir != "web/dist" {
		t.Errorf("ui_dir: got %q, want web/dist", cfg.Server.UIDir)
	}
	if got := cfg.Server.CORS.AllowedOrigins; len(got) != 1 || got[0] != "http://localhost:5173" {
		t.Errorf("cors.allowed_origins: got %v", got)
	}
	if cfg.Server.WS.SendBuffer != 4 || cfg.Server.WS.WriteTimeout != 3*time.Second || cfg.Server.WS.PongWait != 30*time.Second {
		t.Errorf("ws: got %+v", cfg.Server.WS)
	}
	if cfg.Market.EnforceTickers {
		t.Error("market.enforce_tickers: got true, want false")
	}
	if cfg.Log.SlogLevel() != slog.LevelWarn {
		t.Errorf("log level: got %v, want warn", cfg.Log.SlogLevel())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "4000")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvTickInterval, "500ms")

	p := writeConfig(t, `server:
  http_port: 9091
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 4000 {
		t.Errorf("http_port: got %d, want 4000 from PORT", cfg.Server.HTTPPort)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("log.level: got %q, want error", cfg.Log.Level)
	}
	if cfg.Server.TickInterval != 500*time.Millisecond {
		t.Errorf("tick_interval: got %v, want 500ms", cfg.Server.TickInterval)
	}
}

func TestLoad_BadPortEnv(t *testing.T) {
	t.Setenv(EnvPort, "abc")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric PORT, got nil")
	}
}

func TestLoad_PortOutOfRange(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 70000
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for out-of-range port, got nil")
	}
}

func TestLoad_UnknownLogLevel(t *testing.T) {
	p := writeConfig(t, `log:
  level: verbose
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for unknown log level, got nil")
	}
}

func TestLoad_NonPositiveTick(t *testing.T) {
	p := writeConfig(t, `server:
  tick_interval: 0s
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for zero tick interval, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	p := writeConfig(t, "server: [not a map")
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for invalid yaml, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestSlogLevel_UnknownIsInfo(t *testing.T) {
	if got := (LogConfig{Level: "loud"}).SlogLevel(); got != slog.LevelInfo {
		t.Errorf("SlogLevel: got %v, want info", got)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, `log:
  level: info
`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go Watch(ctx, p, func(c *Config) { got <- c }) //nolint:errcheck

	// Give the watcher time to register the file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// WriteFile truncates first, so an intermediate reload may see an empty file.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Log.Level == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("no reload with log.level=debug within 2s")
		}
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), "/nonexistent/config.yaml", func(*Config) {})
	if err == nil {
		t.Fatal("expected error watching a missing file, got nil")
	}
}
