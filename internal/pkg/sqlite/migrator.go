package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"io/fs"
	"sort"
	"strings"
	"time"
)

type MigrationConfig struct {
	TableName string
	Enabled   bool
	Source    fs.FS // *.sql files applied in name order
}

type Migrator struct {
	db     *sql.DB
	logger *logger.Logger
	config *MigrationConfig
}

func NewMigrator(db *sql.DB, config *MigrationConfig, logger *logger.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger.Component("sqlite/migrator"),
		config: config,
	}
}

// RunMigrations applies every file not yet recorded in the tracking table.
// Each file runs in its own transaction together with its tracking row.
func (m *Migrator) RunMigrations(ctx context.Context) error {
	if !m.config.Enabled {
		m.logger.Info("migrations disabled, skipping")
		return nil
	}

	start := time.Now()
	pending, err := m.Pending(ctx)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		m.logger.Info("database schema up to date")
		return nil
	}

	for _, name := range pending {
		if err := m.apply(ctx, name); err != nil {
			return err
		}
		m.logger.Info("migration applied", "file", name)
	}

	m.logger.Info("migrations completed successfully",
		"applied_count", len(pending),
		"duration", time.Since(start))
	return nil
}

// Pending lists migration files that have not been applied yet.
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(m.config.Source, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var pending []string
	for _, name := range names {
		var count int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE filename = ?", m.config.TableName)
		if err := m.db.QueryRowContext(ctx, query, name).Scan(&count); err != nil {
			return nil, fmt.Errorf("check migration %s: %w", name, err)
		}
		if count == 0 {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

func (m *Migrator) Health(ctx context.Context) error {
	pending, err := m.Pending(ctx)
	if err != nil {
		return fmt.Errorf("migration health check failed: %w", err)
	}
	if m.config.Enabled && len(pending) > 0 {
		return fmt.Errorf("migration health check failed: %d pending migrations", len(pending))
	}
	return nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL
	)`, m.config.TableName))
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, name string) error {
	data, err := fs.ReadFile(m.config.Source, name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration %s: %w", name, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (filename, applied_at) VALUES (?, ?)", m.config.TableName)
	if _, err = tx.ExecContext(ctx, insert, name, time.Now().UTC()); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}
