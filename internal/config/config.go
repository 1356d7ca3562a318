package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/msg43/getreceipts-web/pkg/receipts"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from environment variables
// and an optional configs/.env file.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIKey                string        `mapstructure:"getreceipts_api_key"`
	APIURL                string        `mapstructure:"getreceipts_api_url"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestsPerMinute     int           `mapstructure:"requests_per_minute"`
	UserAgent             string        `mapstructure:"user_agent"`
	RequestTimeout        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	JournalPath            string        `mapstructure:"journal_path"`
	JournalTTLSeconds      int64         `mapstructure:"journal_ttl_seconds"`
	JournalCleanupSeconds  int64         `mapstructure:"journal_cleanup_interval_seconds"`
	JournalTTL             time.Duration `mapstructure:"-"`
	JournalCleanupInterval time.Duration `mapstructure:"-"`

	PublishersFile string `mapstructure:"publishers_file"`

	EnrichSources bool  `mapstructure:"enrich_sources"`
	EnrichDelayMs int64 `mapstructure:"enrich_delay_ms"`

	KnowledgeCacheTTLSeconds int64         `mapstructure:"knowledge_cache_ttl_seconds"`
	KnowledgeCacheTTL        time.Duration `mapstructure:"-"`

	MockAddr string `mapstructure:"mock_addr"`
}

// Load reads configuration from environment variables and configs/.env.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "getreceipts-client")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("getreceipts_api_key", "")
	v.SetDefault("getreceipts_api_url", receipts.DefaultBaseURL)
	v.SetDefault("request_timeout_seconds", int64(receipts.DefaultTimeout/time.Second))
	v.SetDefault("requests_per_minute", 0)
	v.SetDefault("user_agent", receipts.DefaultUserAgent)
	v.SetDefault("storage_type", "none")
	v.SetDefault("journal_path", "./data/receipts.db")
	v.SetDefault("journal_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("journal_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("publishers_file", "")
	v.SetDefault("enrich_sources", false)
	v.SetDefault("enrich_delay_ms", 250)
	v.SetDefault("knowledge_cache_ttl_seconds", 300)
	v.SetDefault("mock_addr", ":3000")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.APIURL = strings.TrimSpace(cfg.APIURL)
	if cfg.APIURL == "" {
		cfg.APIURL = receipts.DefaultBaseURL
	}

	if cfg.RequestTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.RequestsPerMinute < 0 {
		return nil, fmt.Errorf("invalid requests_per_minute (must be zero or positive)")
	}

	if cfg.JournalTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid journal_ttl_seconds (must be positive seconds)")
	}
	if cfg.JournalCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid journal_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.JournalTTL = time.Duration(cfg.JournalTTLSeconds) * time.Second
	cfg.JournalCleanupInterval = time.Duration(cfg.JournalCleanupSeconds) * time.Second

	if cfg.KnowledgeCacheTTLSeconds < 0 {
		return nil, fmt.Errorf("invalid knowledge_cache_ttl_seconds (must be zero or positive)")
	}
	cfg.KnowledgeCacheTTL = time.Duration(cfg.KnowledgeCacheTTLSeconds) * time.Second

	return &cfg, nil
}

// ClientConfig is the explicit client configuration derived from the loaded settings.
func (c *Config) ClientConfig() receipts.Config {
	return receipts.Config{
		APIKey:            c.APIKey,
		BaseURL:           c.APIURL,
		Timeout:           c.RequestTimeout,
		UserAgent:         c.UserAgent,
		RequestsPerMinute: c.RequestsPerMinute,
	}
}

// EnrichDelay is the pause between source fetches during enrichment.
func (c *Config) EnrichDelay() time.Duration {
	if c.EnrichDelayMs <= 0 {
		return 0
	}
	return time.Duration(c.EnrichDelayMs) * time.Millisecond
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "***"
	}
	return c
}
