package main

import (
	"github.com/spf13/cobra"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, closeApp, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			if err := app.Migrate(ctx); err != nil {
				return err
			}

			c.ui.Success("schema up to date (%s)", app.Config.DatabaseDriver)
			return nil
		},
	}
}
