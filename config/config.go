package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration
type Config struct {
	Port     string `env:"PORT" envDefault:"3000"`
	APIKey   string `env:"SPEXREGISTER_API_KEY"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	DataPath string `env:"DATA_PATH" envDefault:"./data"`

	// Public base URL used for hypermedia links, e.g. behind a proxy
	BaseURL string `env:"BASE_URL"`

	// Paging and search
	DefaultPageSize       int  `env:"DEFAULT_PAGE_SIZE" envDefault:"20"`
	MaxPageSize           int  `env:"MAX_PAGE_SIZE" envDefault:"2000"`
	FacetSize             int  `env:"FACET_SIZE" envDefault:"100"`
	ForceFirstAndLastRels bool `env:"FORCE_FIRST_AND_LAST_RELS" envDefault:"false"`

	// Registry database
	DatabaseURL            string        `env:"DATABASE_URL"`
	DatabaseSchema         string        `env:"DATABASE_SCHEMA" envDefault:"public"`
	DatabaseTable          string        `env:"DATABASE_TABLE" envDefault:"spexare_documents"`
	DatabaseMaxConns       int32         `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	DatabaseConnectTimeout time.Duration `env:"DATABASE_CONNECT_TIMEOUT" envDefault:"30s"`

	// Incremental updates through LISTEN/NOTIFY, disabled without a channel
	DatabaseNotifyChannel  string `env:"DATABASE_NOTIFY_CHANNEL"`
	DatabaseInstallTrigger bool   `env:"DATABASE_INSTALL_TRIGGER" envDefault:"false"`

	// Indexing
	IndexBatchSize int    `env:"INDEX_BATCH_SIZE" envDefault:"1000"`
	FullIndexCron  string `env:"FULL_INDEX_CRON"`
	IndexOnStartup bool   `env:"INDEX_ON_STARTUP" envDefault:"true"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be expressed as env defaults
func (c *Config) Validate() error {
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be at least 1")
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("MAX_PAGE_SIZE must not be less than DEFAULT_PAGE_SIZE")
	}
	if c.FacetSize < 1 {
		return fmt.Errorf("FACET_SIZE must be at least 1")
	}
	if c.DatabaseInstallTrigger && c.DatabaseNotifyChannel == "" {
		return fmt.Errorf("DATABASE_INSTALL_TRIGGER requires DATABASE_NOTIFY_CHANNEL")
	}
	if c.BaseURL != "" {
		if _, err := c.ParsedBaseURL(); err != nil {
			return err
		}
	}
	return nil
}

// RequiresAuth returns true if authentication is enabled
func (c *Config) RequiresAuth() bool {
	return c.APIKey != ""
}

// HasDatabase returns true if a registry database is configured
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// ListensForChanges returns true if the index follows database notifications
func (c *Config) ListensForChanges() bool {
	return c.HasDatabase() && c.DatabaseNotifyChannel != ""
}

// ParsedBaseURL returns the base URL, or nil if none is configured
func (c *Config) ParsedBaseURL() (*url.URL, error) {
	if c.BaseURL == "" {
		return nil, nil
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("BASE_URL must be an absolute URL: %q", c.BaseURL)
	}
	return u, nil
}
