package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"water-quality-platform/internal/generator"
	"water-quality-platform/internal/models"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file.
const ConfigFileEnv = "WQ_CONFIG_FILE"

// Default values applied when fields are absent from file and environment.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultLogLevel        = "info"
	DefaultCacheBackend    = "memory"
	DefaultRedisAddr       = "localhost:6379"
	DefaultCacheTTL        = time.Hour
	DefaultRefreshSchedule = "0 * * * *"
)

// Config is the top-level application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Generator GeneratorConfig `yaml:"generator"`
	Anomalies []AnomalyConfig `yaml:"anomalies"`
	Cache     CacheConfig     `yaml:"cache"`
	Refresh   RefreshConfig   `yaml:"refresh"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// GeneratorConfig controls the dataset served by the API
type GeneratorConfig struct {
	Days      int                    `yaml:"days"`
	Seed      int64                  `yaml:"seed"`
	Frequency string                 `yaml:"frequency"`
	Stations  []models.StationConfig `yaml:"stations"`
}

// AnomalyConfig is a demo anomaly applied to every served dataset.
// Offset is measured backwards from the dataset's last tick.
type AnomalyConfig struct {
	Station       string        `yaml:"station"`
	Parameter     string        `yaml:"parameter"`
	Offset        time.Duration `yaml:"offset"`
	DurationHours int           `yaml:"duration_hours"`
	Severity      string        `yaml:"severity"`
}

// CacheConfig selects and configures the dataset cache backend
type CacheConfig struct {
	// Backend is one of: memory | redis.
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// RefreshConfig controls the scheduled cache refresh
type RefreshConfig struct {
	// Schedule is a five-field cron expression. Empty disables the refresher.
	Schedule string `yaml:"schedule"`
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel},
		Generator: GeneratorConfig{
			Days:      generator.DefaultDays,
			Seed:      generator.DefaultSeed,
			Frequency: string(generator.Hourly),
			Stations:  models.DefaultStations(),
		},
		Anomalies: []AnomalyConfig{
			{
				Station:       "Station A",
				Parameter:     models.ParamPH,
				Offset:        48 * time.Hour,
				DurationHours: 5,
				Severity:      string(generator.SeverityHigh),
			},
		},
		Cache: CacheConfig{
			Backend:   DefaultCacheBackend,
			RedisAddr: DefaultRedisAddr,
			TTL:       DefaultCacheTTL,
		},
		Refresh: RefreshConfig{Schedule: DefaultRefreshSchedule},
	}
}

// LoadConfig loads defaults, the optional YAML file named by WQ_CONFIG_FILE
// and environment overrides, in that order.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv(ConfigFileEnv))
}

// Load is LoadConfig with an explicit file path. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
		if len(cfg.Generator.Stations) == 0 {
			cfg.Generator.Stations = models.DefaultStations()
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides cfg fields from WQ_* environment variables.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("WQ_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if err := envInt("WQ_SERVER_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if v := os.Getenv("WQ_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if err := envInt("WQ_GENERATOR_DAYS", &cfg.Generator.Days); err != nil {
		return err
	}
	if v := os.Getenv("WQ_GENERATOR_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("WQ_GENERATOR_SEED: %w", err)
		}
		cfg.Generator.Seed = seed
	}
	if v := os.Getenv("WQ_GENERATOR_FREQUENCY"); v != "" {
		cfg.Generator.Frequency = v
	}
	if v := os.Getenv("WQ_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("WQ_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("WQ_REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("WQ_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("WQ_CACHE_TTL: %w", err)
		}
		cfg.Cache.TTL = ttl
	}
	if v, ok := os.LookupEnv("WQ_REFRESH_SCHEDULE"); ok {
		cfg.Refresh.Schedule = v
	}
	return nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}

// Validate checks required fields and structural constraints.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Generator.Days < 0 || c.Generator.Days > generator.MaxDays {
		return fmt.Errorf("generator.days must be between 0 and %d, got %d", generator.MaxDays, c.Generator.Days)
	}
	if _, err := generator.ParseFrequency(c.Generator.Frequency); err != nil {
		return fmt.Errorf("generator.frequency: %w", err)
	}

	names := make(map[string]struct{}, len(c.Generator.Stations))
	for i, st := range c.Generator.Stations {
		if strings.TrimSpace(st.Name) == "" {
			return fmt.Errorf("generator.stations[%d]: name is required", i)
		}
		if _, dup := names[st.Name]; dup {
			return fmt.Errorf("generator.stations[%d]: duplicate station %q", i, st.Name)
		}
		names[st.Name] = struct{}{}
	}

	for i, a := range c.Anomalies {
		if a.Station == "" {
			return fmt.Errorf("anomalies[%d]: station is required", i)
		}
		if !models.IsKnownParameter(a.Parameter) {
			return fmt.Errorf("anomalies[%d]: unknown parameter %q", i, a.Parameter)
		}
		if a.DurationHours < 0 {
			return fmt.Errorf("anomalies[%d]: duration_hours must not be negative", i)
		}
		switch generator.Severity(a.Severity) {
		case "", generator.SeverityLow, generator.SeverityMedium, generator.SeverityHigh:
		default:
			return fmt.Errorf("anomalies[%d]: unknown severity %q", i, a.Severity)
		}
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}

	if c.Refresh.Schedule != "" {
		if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
			return fmt.Errorf("refresh.schedule: %w", err)
		}
	}

	return nil
}

// Frequency returns the parsed generator frequency. Call after Validate.
func (c *Config) Frequency() generator.Frequency {
	f, _ := generator.ParseFrequency(c.Generator.Frequency)
	return f
}
