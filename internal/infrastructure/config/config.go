package config

import "time"

type Config struct {
	Server struct {
		Port               int    `yaml:"port"`
		ReadTimeoutStr     string `yaml:"read_timeout"`
		WriteTimeoutStr    string `yaml:"write_timeout"`
		ShutdownTimeoutStr string `yaml:"shutdown_timeout"`
		ReadTimeout        time.Duration `yaml:"-"`
		WriteTimeout       time.Duration `yaml:"-"`
		ShutdownTimeout    time.Duration `yaml:"-"`
	} `yaml:"server"`

	PostgreSQL struct {
		Host         string `yaml:"host"`
		Port         int    `yaml:"port"`
		User         string `yaml:"user"`
		Password     string `yaml:"password"`
		Database     string `yaml:"database"`
		SSLMode      string `yaml:"sslmode"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"postgresql"`

	Redis struct {
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		Password    string `yaml:"password"`
		DB          int    `yaml:"db"`
		QuoteTTLStr string `yaml:"quote_ttl"`
		QuoteTTL    time.Duration `yaml:"-"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`

	Providers struct {
		RequestTimeoutStr string `yaml:"request_timeout"`
		RequestTimeout    time.Duration `yaml:"-"`

		Primary struct {
			BaseURL        string `yaml:"base_url"`
			APIKey         string `yaml:"api_key"`
			BatchSize      int    `yaml:"batch_size"`
			ChunkDelayStr  string `yaml:"chunk_delay"`
			Quota          int    `yaml:"quota"`
			QuotaWindowStr string `yaml:"quota_window"`
			ChunkDelay     time.Duration `yaml:"-"`
			QuotaWindow    time.Duration `yaml:"-"`
		} `yaml:"primary"`

		Fallback struct {
			BaseURL string `yaml:"base_url"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"fallback"`
	} `yaml:"providers"`

	Refresh struct {
		IntervalStr      string `yaml:"interval"`
		ErrorBackoffStr  string `yaml:"error_backoff"`
		PriorityDelayStr string `yaml:"priority_delay"`
		RegularDelayStr  string `yaml:"regular_delay"`
		InterestTTLStr   string `yaml:"interest_ttl"`
		FallbackCap      int    `yaml:"fallback_cap"`
		WatchlistLimit   int    `yaml:"watchlist_limit"`
		Interval         time.Duration `yaml:"-"`
		ErrorBackoff     time.Duration `yaml:"-"`
		PriorityDelay    time.Duration `yaml:"-"`
		RegularDelay     time.Duration `yaml:"-"`
		InterestTTL      time.Duration `yaml:"-"`
	} `yaml:"refresh"`

	Gateway struct {
		MaxConnections  int    `yaml:"max_connections"`
		IdleTimeoutStr  string `yaml:"idle_timeout"`
		HousekeepingStr string `yaml:"housekeeping_interval"`
		IdleTimeout     time.Duration `yaml:"-"`
		Housekeeping    time.Duration `yaml:"-"`
	} `yaml:"gateway"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}
