package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type Connection struct {
	db     *sql.DB
	path   string
	logger *logger.Logger
}

func New(logger *logger.Logger, path string) (*Connection, error) {
	if path == "" {
		return nil, fmt.Errorf("invalid sqlite config: path is required")
	}
	return &Connection{
		path:   path,
		logger: logger.Component("database/sqlite"),
	}, nil
}

// Connect opens the database file, creating its directory when needed.
func (c *Connection) Connect(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", c.dsn())
	if err != nil {
		return fmt.Errorf("open sqlite database: %w", err)
	}

	// one writer at a time; concurrent callers queue in the pool
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	c.db = db
	c.logger.Info("sqlite database opened", "path", c.path)
	return nil
}

func (c *Connection) dsn() string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	return c.path + "?" + params.Encode()
}

func (c *Connection) DB() *sql.DB {
	if c.db == nil {
		panic("sqlite database not opened, call Connect() first")
	}
	return c.db
}

func (c *Connection) Close() {
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Warn("failed to close sqlite database", "error", err)
			return
		}
		c.logger.Info("sqlite database closed")
	}
}

func (c *Connection) Health(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("sqlite database not opened")
	}
	return c.db.PingContext(ctx)
}
