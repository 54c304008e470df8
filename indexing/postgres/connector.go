package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Connector manages the PostgreSQL connection pool
type Connector struct {
	dsn    string
	pool   *pgxpool.Pool
	logger *zap.Logger

	maxConns    int32
	connTimeout time.Duration
}

// NewConnector creates a new Connector
func NewConnector(cfg *Config, logger *zap.Logger) *Connector {
	cfg = cfg.WithDefaults()
	return &Connector{
		dsn:         cfg.DSN,
		logger:      logger,
		maxConns:    cfg.MaxConns,
		connTimeout: cfg.ConnTimeout,
	}
}

// Connect establishes a connection to PostgreSQL
func (c *Connector) Connect(ctx context.Context) error {
	config, err := pgxpool.ParseConfig(c.dsn)
	if err != nil {
		return fmt.Errorf("failed to parse DSN: %w", err)
	}

	config.MaxConns = c.maxConns
	config.ConnConfig.ConnectTimeout = c.connTimeout

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.pool = pool
	c.logger.Info("Connected to PostgreSQL",
		zap.String("host", config.ConnConfig.Host),
		zap.String("database", config.ConnConfig.Database),
		zap.Int32("max_conns", c.maxConns))

	return nil
}

// ConnectWithRetry connects, retrying with exponential backoff
func (c *Connector) ConnectWithRetry(ctx context.Context, maxAttempts int) error {
	backoff := time.Second
	maxBackoff := time.Minute

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = c.Connect(ctx); err == nil {
			return nil
		}

		c.logger.Warn("Failed to connect to PostgreSQL",
			zap.Int("attempt", attempt),
			zap.Error(err),
			zap.Duration("next_retry", backoff))

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
	}

	return fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
}

// Pool returns the connection pool
func (c *Connector) Pool() *pgxpool.Pool {
	return c.pool
}

// Close closes the connection pool
func (c *Connector) Close() {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}

// IsConnected returns true if the pool is connected and healthy
func (c *Connector) IsConnected(ctx context.Context) bool {
	if c.pool == nil {
		return false
	}
	return c.pool.Ping(ctx) == nil
}
