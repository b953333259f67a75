package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"vdflow/internal/analyzer"
	"vdflow/internal/cache"
	"vdflow/internal/logger"
)

// Config represents the application configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	Scanner ScannerConfig `yaml:"scanner"`
	Engine  EngineConfig  `yaml:"engine"`
	Cache   CacheConfig   `yaml:"cache"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Log     logger.Config `yaml:"log"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// APIConfig holds API provider configurations
type APIConfig struct {
	Finnhub ProviderConfig `yaml:"finnhub"`
	Yahoo   ProviderConfig `yaml:"yahoo"`
}

// ProviderConfig holds individual provider settings
type ProviderConfig struct {
	Key       string `yaml:"key"`
	RateLimit int    `yaml:"rate_limit"` // requests per minute
}

// ScannerConfig holds scanner settings
type ScannerConfig struct {
	Workers         int           `yaml:"workers"`
	Timeout         time.Duration `yaml:"timeout"`        // whole scan
	TickerTimeout   time.Duration `yaml:"ticker_timeout"` // fetch + analyze for one ticker
	ScanDays        int           `yaml:"scan_days"`      // calendar days
	PreContextDays  int           `yaml:"pre_context_days"`
	IntervalMinutes int           `yaml:"interval_minutes"`
}

// EngineConfig holds the few engine knobs that are not fixed thresholds
type EngineConfig struct {
	MaxZones  int                `yaml:"max_zones"`
	Timezone  string             `yaml:"timezone"`
	Precision analyzer.Precision `yaml:",inline"`
}

// CacheConfig selects the snapshot cache backend
type CacheConfig struct {
	Backend string            `yaml:"backend"` // memory or redis
	TTL     time.Duration     `yaml:"ttl"`
	Prefix  string            `yaml:"prefix"`
	Redis   cache.RedisConfig `yaml:"redis"`
}

// StorageConfig selects the snapshot store backend
type StorageConfig struct {
	Backend      string `yaml:"backend"` // memory or postgres
	DSN          string `yaml:"dsn"`
	MaxPerTicker int    `yaml:"max_per_ticker"` // memory backend only
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port         int           `yaml:"port"`
	JWTSecret    string        `yaml:"jwt_secret"` // empty disables auth
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	RefreshLimit int           `yaml:"refresh_limit"` // forced refreshes per ticker per minute
}

// BreakerConfig configures the provider circuit breakers
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Finnhub: ProviderConfig{
				Key:       os.Getenv("FINNHUB_API_KEY"),
				RateLimit: 60,
			},
			Yahoo: ProviderConfig{
				RateLimit: 30,
			},
		},
		Scanner: ScannerConfig{
			Workers:         8,
			Timeout:         10 * time.Minute,
			TickerTimeout:   45 * time.Second,
			ScanDays:        180,
			PreContextDays:  30,
			IntervalMinutes: 60,
		},
		Engine: EngineConfig{
			MaxZones:  analyzer.DefaultMaxZones,
			Timezone:  "America/New_York",
			Precision: analyzer.DefaultPrecision(),
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     4 * time.Hour,
			Prefix:  "vdf",
			Redis:   cache.RedisConfig{Addr: "localhost:6379"},
		},
		Storage: StorageConfig{
			Backend:      "memory",
			MaxPerTicker: 50,
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 90 * time.Second,
			RefreshLimit: 6,
		},
		Log: logger.Config{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Breaker: BreakerConfig{
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		data = nil // Use defaults if file doesn't exist
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides secrets and endpoints from environment variables
func (c *Config) applyEnv() {
	if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		c.API.Finnhub.Key = key
	}
	if addr := os.Getenv("VDF_REDIS_ADDR"); addr != "" {
		c.Cache.Redis.Addr = addr
		c.Cache.Backend = "redis"
	}
	if dsn := os.Getenv("VDF_POSTGRES_DSN"); dsn != "" {
		c.Storage.DSN = dsn
		c.Storage.Backend = "postgres"
	}
	if secret := os.Getenv("VDF_JWT_SECRET"); secret != "" {
		c.Server.JWTSecret = secret
	}
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			c.Server.Port = n
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Scanner.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Scanner.ScanDays < 1 || c.Scanner.PreContextDays < 1 {
		return fmt.Errorf("scan_days and pre_context_days must be positive")
	}
	if c.Scanner.PreContextDays >= c.Scanner.ScanDays {
		return fmt.Errorf("pre_context_days (%d) must be shorter than scan_days (%d)",
			c.Scanner.PreContextDays, c.Scanner.ScanDays)
	}
	if c.Scanner.IntervalMinutes < 1 {
		return fmt.Errorf("interval_minutes must be at least 1")
	}
	if c.Engine.MaxZones < 1 {
		return fmt.Errorf("max_zones must be at least 1")
	}
	if c.Engine.Precision.Percent < 0 || c.Engine.Precision.Ratio < 0 {
		return fmt.Errorf("decimal places cannot be negative")
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("postgres storage requires a dsn (VDF_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}
