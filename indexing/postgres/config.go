package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Config holds the settings of the registry database source
type Config struct {
	// Connection settings
	DSN         string
	MaxConns    int32
	ConnTimeout time.Duration

	// Table settings. The table (or view) has one row per spexare with the
	// id and the full document as json.
	Schema         string
	Table          string
	IDColumn       string
	DocumentColumn string

	// Change notifications. When set, changed ids are read from
	// pg_notify payloads on this channel.
	NotifyChannel string
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if c.Table == "" {
		return fmt.Errorf("table is required")
	}
	return nil
}

// WithDefaults returns the config with default values applied
func (c *Config) WithDefaults() *Config {
	cfg := *c
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 10
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = "id"
	}
	if cfg.DocumentColumn == "" {
		cfg.DocumentColumn = "document"
	}
	return &cfg
}

// FullTableName returns the quoted schema.table
func (c *Config) FullTableName() string {
	return pgx.Identifier{c.Schema, c.Table}.Sanitize()
}
