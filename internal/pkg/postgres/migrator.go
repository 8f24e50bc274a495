package postgres

import (
	"context"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
	"io/fs"
	"time"
)

type MigrationConfig struct {
	Timeout   time.Duration `json:"timeout"`
	TableName string        `json:"table_name"`
	Enabled   bool          `json:"enabled"`
	Source    fs.FS         `json:"-"` // directory of NNN_name.sql files
}

// MigrationStatus describes how far the schema is behind the embedded files.
type MigrationStatus struct {
	CurrentVersion int32
	LatestVersion  int32
}

func (s MigrationStatus) Pending() int32 {
	return max(s.LatestVersion-s.CurrentVersion, 0)
}

type Migrator struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
	config *MigrationConfig
}

func NewMigrator(pool *pgxpool.Pool, config *MigrationConfig, logger *logger.Logger) *Migrator {
	return &Migrator{
		pool:   pool,
		logger: logger.Component("postgres/migrator"),
		config: config,
	}
}

func (m *Migrator) RunMigrations(ctx context.Context) error {
	if !m.config.Enabled {
		m.logger.Info("migrations disabled, skipping")
		return nil
	}

	start := time.Now()
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	migrator, err := m.load(ctx, conn)
	if err != nil {
		return err
	}

	status, err := m.status(ctx, migrator)
	if err != nil {
		return err
	}

	if status.Pending() == 0 {
		m.logger.Info("database schema up to date",
			"current_version", status.CurrentVersion,
			"latest_version", status.LatestVersion)
		return nil
	}

	m.logger.Info("applying database migrations",
		"current_version", status.CurrentVersion,
		"target_version", status.LatestVersion,
		"pending_migrations", status.Pending())

	if err = migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	finalVersion, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("get final version: %w", err)
	}

	m.logger.Info("migrations completed successfully",
		"from_version", status.CurrentVersion,
		"to_version", finalVersion,
		"applied_count", finalVersion-status.CurrentVersion,
		"duration", time.Since(start))

	return nil
}

func (m *Migrator) Status(ctx context.Context) (MigrationStatus, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	migrator, err := m.load(ctx, conn)
	if err != nil {
		return MigrationStatus{}, err
	}
	return m.status(ctx, migrator)
}

func (m *Migrator) Health(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return fmt.Errorf("migration health check failed: %w", err)
	}
	if m.config.Enabled && status.Pending() > 0 {
		return fmt.Errorf("migration health check failed: %d pending migrations", status.Pending())
	}
	return nil
}

func (m *Migrator) load(ctx context.Context, conn *pgxpool.Conn) (*migrate.Migrator, error) {
	migrator, err := migrate.NewMigrator(ctx, conn.Conn(), m.config.TableName)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	if err = migrator.LoadMigrations(m.config.Source); err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return migrator, nil
}

func (m *Migrator) status(ctx context.Context, migrator *migrate.Migrator) (MigrationStatus, error) {
	current, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("get current version: %w", err)
	}

	var latest int32
	for _, migration := range migrator.Migrations {
		if migration.Sequence > latest {
			latest = migration.Sequence
		}
	}

	return MigrationStatus{CurrentVersion: current, LatestVersion: latest}, nil
}
