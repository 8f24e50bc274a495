package bootstrap

import (
	"context"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/api"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/config"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/password"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/postgres"
	sqlitedb "github.com/ZertGraf/deploy-tracker/internal/pkg/sqlite"
	"github.com/ZertGraf/deploy-tracker/internal/repository"
	sqliterepo "github.com/ZertGraf/deploy-tracker/internal/repository/sqlite"
	"github.com/ZertGraf/deploy-tracker/internal/service"
	"github.com/ZertGraf/deploy-tracker/migrations"
	"os"
)

// Migrator is implemented by the postgres and sqlite migrators.
type Migrator interface {
	RunMigrations(ctx context.Context) error
	Health(ctx context.Context) error
}

type Application struct {
	Config *config.Config
	Logger *logger.Logger

	// exactly one of Postgres and SQLite is set, depending on the driver
	Postgres *postgres.Connection
	SQLite   *sqlitedb.Connection
	Migrator Migrator

	Store     repository.Store
	Passwords *password.Manager

	Accounts     *service.AccountService
	Organization *service.OrganizationService

	HTTPServer *api.HTTPServer

	connected bool
}

func New() (*Application, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg)
}

func NewWithConfig(cfg *config.Config) (*Application, error) {
	log, err := logger.New(&logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: cfg.LogAddSource,
		Output:    os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	passwords, err := password.NewManagerFor(cfg.PasswordHasher, cfg.PasswordPBKDF2Iterations, cfg.PasswordBcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to create password hasher: %w", err)
	}

	app := &Application{
		Config:    cfg,
		Logger:    log,
		Passwords: passwords,
	}

	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		app.SQLite, err = sqlitedb.New(log, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite connection: %w", err)
		}
	default:
		app.Postgres, err = postgres.New(log, &postgres.Config{
			Host:              cfg.DatabaseHost,
			Port:              cfg.DatabasePort,
			Username:          cfg.DatabaseUser,
			Password:          cfg.DatabasePassword,
			Database:          cfg.DatabaseName,
			Schema:            cfg.DatabaseSchema,
			SSLMode:           cfg.DatabaseSSLMode,
			ApplicationName:   cfg.ServiceName,
			MaxConns:          cfg.DatabaseMaxConns,
			MinConns:          cfg.DatabaseMinConns,
			MaxConnLifetime:   cfg.DatabaseMaxConnLifetime,
			MaxConnIdleTime:   cfg.DatabaseMaxConnIdleTime,
			HealthCheckPeriod: cfg.DatabaseHealthCheckPeriod,
			ConnectTimeout:    cfg.DatabaseConnectTimeout,
			AcquireTimeout:    cfg.DatabaseAcquireTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres connection: %w", err)
		}
	}

	return app, nil
}

// Connect opens the database and wires the store and services. The schema
// is left as is; see Migrate.
func (app *Application) Connect(ctx context.Context) error {
	if app.connected {
		return nil
	}

	if app.SQLite != nil {
		if err := app.SQLite.Connect(ctx); err != nil {
			return fmt.Errorf("sqlite connection failed: %w", err)
		}

		app.Migrator = sqlitedb.NewMigrator(app.SQLite.DB(), &sqlitedb.MigrationConfig{
			TableName: app.Config.DatabaseMigrationTable,
			Enabled:   app.Config.DatabaseMigrationEnabled,
			Source:    migrations.SQLite(),
		}, app.Logger)
		app.Store = sqliterepo.NewStore(app.SQLite.DB(), app.Logger)
	} else {
		if err := app.Postgres.Connect(ctx); err != nil {
			return fmt.Errorf("postgres connection failed: %w", err)
		}

		app.Migrator = postgres.NewMigrator(app.Postgres.Pool(), &postgres.MigrationConfig{
			Timeout:   app.Config.DatabaseMigrationTimeout,
			TableName: app.Config.DatabaseMigrationTable,
			Enabled:   app.Config.DatabaseMigrationEnabled,
			Source:    migrations.Postgres(),
		}, app.Logger)
		app.Store = repository.NewPostgresStore(app.Postgres.Pool(), app.Logger)
	}

	app.Accounts = service.NewAccountService(app.Store, app.Passwords, app.Logger)
	app.Organization = service.NewOrganizationService(app.Store, app.Logger)

	app.connected = true
	return nil
}

func (app *Application) Migrate(ctx context.Context) error {
	if err := app.Connect(ctx); err != nil {
		return err
	}
	if err := app.Migrator.RunMigrations(ctx); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}
	return nil
}

// Init connects, migrates and starts the probe server.
func (app *Application) Init(ctx context.Context) error {
	app.Logger.Info("initializing application", "driver", app.Config.DatabaseDriver)

	if err := app.Migrate(ctx); err != nil {
		return err
	}

	app.HTTPServer = api.NewHTTPServer(&api.ServerConfig{
		Host:         app.Config.ServerHost,
		Port:         app.Config.ServerPort,
		ReadTimeout:  app.Config.ServerReadTimeout,
		WriteTimeout: app.Config.ServerWriteTimeout,
		IdleTimeout:  app.Config.ServerIdleTimeout,
	}, app, app.Logger)

	if err := app.HTTPServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	app.Logger.Info("application initialized successfully")
	return nil
}

func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("shutting down application")

	if app.HTTPServer != nil {
		if err := app.HTTPServer.Stop(ctx); err != nil {
			app.Logger.Error("error stopping http server", "error", err)
		}
	}

	if app.Postgres != nil {
		app.Postgres.Close()
	}
	if app.SQLite != nil {
		app.SQLite.Close()
	}

	app.Logger.Info("application shutdown completed")
	return nil
}

func (app *Application) Health(ctx context.Context) error {
	if !app.connected {
		return fmt.Errorf("database not connected")
	}

	if app.Postgres != nil {
		if err := app.Postgres.Health(ctx); err != nil {
			return fmt.Errorf("postgres health check failed: %w", err)
		}
	}
	if app.SQLite != nil {
		if err := app.SQLite.Health(ctx); err != nil {
			return fmt.Errorf("sqlite health check failed: %w", err)
		}
	}

	if err := app.Migrator.Health(ctx); err != nil {
		return fmt.Errorf("migrator health check failed: %w", err)
	}
	return nil
}
