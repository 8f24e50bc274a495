package main

import (
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/output"
	"github.com/spf13/cobra"
	"strconv"
	"strings"
	"time"
)

func (c *cli) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	cmd.AddCommand(
		c.userCreateCmd(),
		c.userCreateSuperuserCmd(),
		c.userListCmd(),
		c.userCheckPasswordCmd(),
		c.userDeactivateCmd(),
	)
	return cmd
}

func (c *cli) userCreateCmd() *cobra.Command {
	var email, password, birthDate string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a regular account",
		Long: `Create a regular, active account. Without --password the account
gets an unusable password and cannot log in until one is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			birth, err := parseBirthDate(birthDate)
			if err != nil {
				return err
			}

			var raw *string
			if cmd.Flags().Changed("password") {
				raw = &password
			}

			app, closeApp, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			user, err := app.Accounts.CreateUser(ctx, email, birth, raw)
			if err != nil {
				return err
			}

			c.ui.Success("user %s created with id %d", output.Cyan(user.Email), user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "raw password")
	cmd.Flags().StringVar(&birthDate, "birth-date", "", "birth date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) userCreateSuperuserCmd() *cobra.Command {
	var email, password, birthDate string

	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			birth, err := parseBirthDate(birthDate)
			if err != nil {
				return err
			}

			app, closeApp, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			user, err := app.Accounts.CreateSuperuser(ctx, email, birth, password)
			if err != nil {
				return err
			}

			c.ui.Success("superuser %s created with id %d", output.Cyan(user.Email), user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "raw password")
	cmd.Flags().StringVar(&birthDate, "birth-date", "", "birth date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List accounts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, closeApp, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			users, err := app.Accounts.ListUsers(ctx)
			if err != nil {
				return err
			}

			if len(users) == 0 {
				c.ui.Info("No users. Use 'tracker user create' to add one.")
				return nil
			}

			table := c.ui.Table([]string{"ID", "Email", "Name", "Active", "Staff", "Last login"})
			for _, u := range users {
				lastLogin := "-"
				if u.LastLogin != nil {
					lastLogin = u.LastLogin.Format(time.DateTime)
				}
				_ = table.Append([]string{
					strconv.FormatInt(u.ID, 10),
					output.Cyan(u.Email),
					strings.TrimSpace(u.FirstName + " " + u.LastName),
					output.Flag(u.IsActive),
					output.Flag(u.IsStaff()),
					lastLogin,
				})
			}
			return table.Render()
		},
	}
}

func (c *cli) userCheckPasswordCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "check-password <email>",
		Short: "Verify an account password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, closeApp, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			user, err := app.Accounts.Authenticate(ctx, args[0], password)
			if err != nil {
				if errors.Is(err, domain.ErrInvalidCredentials) {
					c.ui.Error("password rejected for %s", args[0])
				}
				return err
			}

			c.ui.Success("password accepted for %s", output.Cyan(user.Email))
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "raw password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) userDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate an account instead of deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			app, closeApp, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			user, err := app.Accounts.SetActive(ctx, id, false)
			if err != nil {
				return err
			}

			c.ui.Success("user %s deactivated", output.Cyan(user.Email))
			return nil
		},
	}
}

func parseBirthDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("%w: birth date must be YYYY-MM-DD", domain.ErrValidation)
	}
	return &t, nil
}
