package main

import (
	"context"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/bootstrap"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/config"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/output"
	"github.com/spf13/cobra"
)

// cli holds flag values shared by every subcommand.
type cli struct {
	ui *output.UI

	envFile    string
	driver     string
	sqlitePath string
}

func newRootCmd(ui *output.UI) *cobra.Command {
	c := &cli{ui: ui}

	root := &cobra.Command{
		Use:   "tracker",
		Short: "Track teams, projects, repositories and deployment servers",
		Long: `tracker owns the account directory and the organization schema
(teams, projects, repositories, branches, servers) of the deploy tracker.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	root.SetOut(ui.Out)
	root.SetErr(ui.ErrOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file read before the environment")
	flags.StringVar(&c.driver, "driver", "", "storage backend override (postgres or sqlite)")
	flags.StringVar(&c.sqlitePath, "sqlite-path", "", "sqlite database file override")

	root.AddCommand(
		c.migrateCmd(),
		c.serveCmd(),
		c.userCmd(),
		c.teamCmd(),
	)

	return root
}

func (c *cli) application() (*bootstrap.Application, error) {
	cfg, err := config.Load(c.envFile)
	if err != nil {
		return nil, err
	}

	if c.driver != "" {
		if c.driver != config.DriverPostgres && c.driver != config.DriverSQLite {
			return nil, fmt.Errorf("unsupported database driver %q", c.driver)
		}
		cfg.DatabaseDriver = c.driver
	}
	if c.sqlitePath != "" {
		cfg.SQLitePath = c.sqlitePath
	}

	return bootstrap.NewWithConfig(cfg)
}

// connect opens the store for one-shot commands. The returned func closes it.
func (c *cli) connect(ctx context.Context) (*bootstrap.Application, func(), error) {
	app, err := c.application()
	if err != nil {
		return nil, nil, err
	}

	if err := app.Connect(ctx); err != nil {
		_ = app.Shutdown(ctx)
		return nil, nil, err
	}

	return app, func() { _ = app.Shutdown(ctx) }, nil
}
