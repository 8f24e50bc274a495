package main

import (
	"github.com/ZertGraf/deploy-tracker/internal/pkg/output"
	"github.com/spf13/cobra"
	"strconv"
	"time"
)

func (c *cli) teamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Inspect teams",
	}
	cmd.AddCommand(c.teamListCmd())
	return cmd
}

func (c *cli) teamListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List teams with their member and project counts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, closeApp, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			teams, err := app.Organization.ListTeams(ctx)
			if err != nil {
				return err
			}

			if len(teams) == 0 {
				c.ui.Info("No teams.")
				return nil
			}

			table := c.ui.Table([]string{"ID", "Name", "Description", "Members", "Projects", "Created"})
			for _, t := range teams {
				projects, err := app.Organization.ListTeamProjects(ctx, t.ID)
				if err != nil {
					return err
				}
				_ = table.Append([]string{
					strconv.FormatInt(t.ID, 10),
					output.Cyan(t.Name),
					output.Optional(t.Description),
					strconv.Itoa(len(t.MemberIDs)),
					strconv.Itoa(len(projects)),
					t.CreatedAt.Format(time.DateOnly),
				})
			}
			return table.Render()
		},
	}
}
