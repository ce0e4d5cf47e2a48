package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"water-quality-platform/internal/generator"
	"water-quality-platform/pkg/logging"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	if cfg.Server.Port != DefaultPort {
		t.Errorf("port: got %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Generator.Days != 30 || cfg.Generator.Seed != 42 {
		t.Errorf("generator: got days=%d seed=%d", cfg.Generator.Days, cfg.Generator.Seed)
	}
	if len(cfg.Generator.Stations) != 5 {
		t.Errorf("stations: got %d, want 5", len(cfg.Generator.Stations))
	}
	if len(cfg.Anomalies) != 1 || cfg.Anomalies[0].Offset != 48*time.Hour {
		t.Errorf("anomalies: got %+v", cfg.Anomalies)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.TTL != time.Hour {
		t.Errorf("cache: got %+v", cfg.Cache)
	}
	if cfg.Refresh.Schedule != DefaultRefreshSchedule {
		t.Errorf("refresh schedule: got %q", cfg.Refresh.Schedule)
	}
}

func TestLoad_File(t *testing.T) {
	cfg := loadFromString(t, `
server:
  port: 9090
  read_timeout: 5s
logging:
  level: debug
generator:
  days: 7
  seed: 1234
  frequency: daily
  stations:
    - name: Intake
      location: Lake
      base_ph: 7.4
      base_temp: 18
anomalies:
  - station: Intake
    parameter: turbidity
    offset: 12h
    duration_hours: 3
    severity: medium
cache:
  backend: redis
  redis_addr: "cache:6379"
  ttl: 10m
refresh:
  schedule: "*/15 * * * *"
`)

	if cfg.Server.Port != 9090 || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server: got %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("unset write_timeout should keep default, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level: got %q", cfg.Logging.Level)
	}
	if cfg.Generator.Days != 7 || cfg.Generator.Seed != 1234 || cfg.Frequency() != "daily" {
		t.Errorf("generator: got %+v", cfg.Generator)
	}
	if len(cfg.Generator.Stations) != 1 || cfg.Generator.Stations[0].BasePH != 7.4 {
		t.Errorf("stations: got %+v", cfg.Generator.Stations)
	}
	if len(cfg.Anomalies) != 1 || cfg.Anomalies[0].Offset != 12*time.Hour || cfg.Anomalies[0].Severity != "medium" {
		t.Errorf("anomalies: got %+v", cfg.Anomalies)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "cache:6379" || cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("cache: got %+v", cfg.Cache)
	}
}

func TestLoad_EmptyAnomalyListDisablesDemo(t *testing.T) {
	cfg := loadFromString(t, "anomalies: []\n")
	if len(cfg.Anomalies) != 0 {
		t.Errorf("anomalies: got %d, want 0", len(cfg.Anomalies))
	}
	if len(cfg.Generator.Stations) != 5 {
		t.Errorf("stations should fall back to defaults, got %d", len(cfg.Generator.Stations))
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WQ_SERVER_PORT", "7000")
	t.Setenv("WQ_LOG_LEVEL", "warn")
	t.Setenv("WQ_GENERATOR_DAYS", "3")
	t.Setenv("WQ_GENERATOR_SEED", "99")
	t.Setenv("WQ_GENERATOR_FREQUENCY", "D")
	t.Setenv("WQ_CACHE_TTL", "90s")
	t.Setenv("WQ_REFRESH_SCHEDULE", "")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("env should override file port, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" || cfg.Generator.Days != 3 || cfg.Generator.Seed != 99 {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Logging, cfg.Generator)
	}
	if cfg.Frequency() != "daily" {
		t.Errorf("frequency: got %q", cfg.Frequency())
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("ttl: got %v", cfg.Cache.TTL)
	}
	if cfg.Refresh.Schedule != "" {
		t.Errorf("an empty WQ_REFRESH_SCHEDULE should disable the refresher, got %q", cfg.Refresh.Schedule)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "server: [not, a, map]\n")); err == nil {
		t.Error("expected error for malformed yaml")
	}

	t.Setenv("WQ_SERVER_PORT", "eighty")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "WQ_SERVER_PORT") {
		t.Errorf("expected WQ_SERVER_PORT error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"zero timeout", func(c *Config) { c.Server.IdleTimeout = 0 }, "timeouts"},
		{"negative days", func(c *Config) { c.Generator.Days = -1 }, "generator.days"},
		{"days above maximum", func(c *Config) { c.Generator.Days = generator.MaxDays + 1 }, "generator.days"},
		{"bad frequency", func(c *Config) { c.Generator.Frequency = "weekly" }, "generator.frequency"},
		{"unnamed station", func(c *Config) { c.Generator.Stations[1].Name = " " }, "stations[1]"},
		{"duplicate station", func(c *Config) { c.Generator.Stations[2].Name = "Station A" }, "duplicate"},
		{"anomaly station", func(c *Config) { c.Anomalies[0].Station = "" }, "anomalies[0]"},
		{"anomaly parameter", func(c *Config) { c.Anomalies[0].Parameter = "lead" }, "unknown parameter"},
		{"anomaly severity", func(c *Config) { c.Anomalies[0].Severity = "huge" }, "unknown severity"},
		{"anomaly duration", func(c *Config) { c.Anomalies[0].DurationHours = -2 }, "duration_hours"},
		{"cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"redis addr", func(c *Config) { c.Cache.Backend = "redis"; c.Cache.RedisAddr = "" }, "redis_addr"},
		{"cron schedule", func(c *Config) { c.Refresh.Schedule = "every hour" }, "refresh.schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "generator:\n  days: 3\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, logging.Discard(), func(c *Config) {
			select {
			case reloaded <- c:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("generator:\n  days: 9\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// A truncating write can surface an intermediate empty file first.
	timeout := time.After(5 * time.Second)
	for seen := false; !seen; {
		select {
		case cfg := <-reloaded:
			seen = cfg.Generator.Days == 9
		case <-timeout:
			t.Fatal("timed out waiting for reload with days=9")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch() did not stop after cancel")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), logging.Discard(), func(*Config) {})
	if err == nil {
		t.Error("expected error watching a missing file")
	}
}
