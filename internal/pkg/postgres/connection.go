package postgres

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotConnected = errors.New("postgres: not connected")

// Connection owns the pgx pool shared by the store and the migrator.
type Connection struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
	config *Config
}

func New(logger *logger.Logger, config *Config) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	return &Connection{
		config: config,
		logger: logger.Component("database/postgres"),
	}, nil
}

func (c *Connection) poolConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.config.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = c.config.MaxConns
	cfg.MinConns = c.config.MinConns
	cfg.MaxConnLifetime = c.config.MaxConnLifetime
	cfg.MaxConnIdleTime = c.config.MaxConnIdleTime
	cfg.HealthCheckPeriod = c.config.HealthCheckPeriod

	if c.config.ApplicationName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = c.config.ApplicationName
	}

	return cfg, nil
}

// Connect opens the pool and verifies it with a ping.
func (c *Connection) Connect(ctx context.Context) error {
	cfg, err := c.poolConfig()
	if err != nil {
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping %s/%s: %w", c.config.Host, c.config.Database, err)
	}

	c.pool = pool
	c.logger.Info("connected",
		"host", c.config.Host,
		"database", c.config.Database,
		"schema", c.config.Schema,
		"pool", fmt.Sprintf("%d-%d", c.config.MinConns, c.config.MaxConns),
	)

	return nil
}

// Pool panics when Connect has not succeeded.
func (c *Connection) Pool() *pgxpool.Pool {
	if c.pool == nil {
		panic(ErrNotConnected)
	}
	return c.pool
}

func (c *Connection) Close() {
	if c.pool == nil {
		return
	}

	stat := c.pool.Stat()
	c.pool.Close()
	c.pool = nil

	c.logger.Info("disconnected",
		"acquired_total", stat.AcquireCount(),
		"canceled_acquires", stat.CanceledAcquireCount(),
	)
}

func (c *Connection) Health(ctx context.Context) error {
	if c.pool == nil {
		return ErrNotConnected
	}
	if c.config.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.AcquireTimeout)
		defer cancel()
	}
	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
