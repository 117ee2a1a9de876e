package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML config file, layers .env and environment variables on
// top, and parses duration strings. Environment variables win over the file.
func Load(path string) (*Config, error) {
	// A missing .env is fine; real env vars still apply.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := parseDurations(&cfg); err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}

	return &cfg, nil
}

func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		src  string
		dst  *time.Duration
		def  time.Duration
	}{
		{"server.read_timeout", cfg.Server.ReadTimeoutStr, &cfg.Server.ReadTimeout, 10 * time.Second},
		{"server.write_timeout", cfg.Server.WriteTimeoutStr, &cfg.Server.WriteTimeout, 10 * time.Second},
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeoutStr, &cfg.Server.ShutdownTimeout, 30 * time.Second},
		{"redis.quote_ttl", cfg.Redis.QuoteTTLStr, &cfg.Redis.QuoteTTL, 2 * time.Minute},
		{"providers.request_timeout", cfg.Providers.RequestTimeoutStr, &cfg.Providers.RequestTimeout, 8 * time.Second},
		{"providers.primary.chunk_delay", cfg.Providers.Primary.ChunkDelayStr, &cfg.Providers.Primary.ChunkDelay, 500 * time.Millisecond},
		{"providers.primary.quota_window", cfg.Providers.Primary.QuotaWindowStr, &cfg.Providers.Primary.QuotaWindow, time.Minute},
		{"refresh.interval", cfg.Refresh.IntervalStr, &cfg.Refresh.Interval, 30 * time.Second},
		{"refresh.error_backoff", cfg.Refresh.ErrorBackoffStr, &cfg.Refresh.ErrorBackoff, 180 * time.Second},
		{"refresh.priority_delay", cfg.Refresh.PriorityDelayStr, &cfg.Refresh.PriorityDelay, 250 * time.Millisecond},
		{"refresh.regular_delay", cfg.Refresh.RegularDelayStr, &cfg.Refresh.RegularDelay, time.Second},
		{"refresh.interest_ttl", cfg.Refresh.InterestTTLStr, &cfg.Refresh.InterestTTL, 60 * time.Second},
		{"gateway.idle_timeout", cfg.Gateway.IdleTimeoutStr, &cfg.Gateway.IdleTimeout, time.Hour},
		{"gateway.housekeeping_interval", cfg.Gateway.HousekeepingStr, &cfg.Gateway.Housekeeping, 5 * time.Minute},
	}

	for _, f := range fields {
		if f.src == "" {
			*f.dst = f.def
			continue
		}
		d, err := time.ParseDuration(f.src)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.PostgreSQL.SSLMode == "" {
		cfg.PostgreSQL.SSLMode = "disable"
	}
	if cfg.Providers.Primary.BatchSize <= 0 {
		cfg.Providers.Primary.BatchSize = 50
	}
	if cfg.Providers.Primary.Quota <= 0 {
		cfg.Providers.Primary.Quota = 60
	}
	if cfg.Refresh.FallbackCap <= 0 {
		cfg.Refresh.FallbackCap = 50
	}
	if cfg.Refresh.WatchlistLimit <= 0 {
		cfg.Refresh.WatchlistLimit = 50
	}
	if cfg.Gateway.MaxConnections <= 0 {
		cfg.Gateway.MaxConnections = 500
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.PostgreSQL.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.PostgreSQL.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.PostgreSQL.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.PostgreSQL.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.PostgreSQL.Database = v
	}

	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("PRIMARY_API_KEY"); v != "" {
		cfg.Providers.Primary.APIKey = v
	}
	if v := os.Getenv("FALLBACK_API_KEY"); v != "" {
		cfg.Providers.Fallback.APIKey = v
	}
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host, c.PostgreSQL.Port, c.PostgreSQL.User,
		c.PostgreSQL.Password, c.PostgreSQL.Database, c.PostgreSQL.SSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
