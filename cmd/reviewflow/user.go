package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/RealZimboGuy/reviewflow/internal/seed"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var u seed.User
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user with a bcrypt-hashed password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := reviewflow.OpenDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			app := reviewflow.NewApp(db, core.NewRealClock())
			id, err := seed.CreateUser(cmd.Context(), app.Users, u)
			if err != nil {
				return err
			}
			success(cmd, "Created user %s (id %d)", color.YellowString(u.Username), id)
			if u.ApiKey != "" {
				hint(cmd, "Authenticate API calls with the X-API-Key header")
			}
			return nil
		},
	}
	create.Flags().StringVar(&u.Username, "username", "", "login name")
	create.Flags().StringVar(&u.Password, "password", "", "password")
	create.Flags().StringVar(&u.Role, "role", domain.RoleAuthor, "role: super-admin, editor or author")
	create.Flags().StringVar(&u.ApiKey, "api-key", "", "optional API key")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := reviewflow.OpenDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			users, err := reviewflow.NewApp(db, core.NewRealClock()).Users.FindAll(cmd.Context())
			if err != nil {
				return err
			}
			for _, user := range users {
				state := color.GreenString("enabled")
				if user.Enabled.Valid && !user.Enabled.Bool {
					state = color.RedString("disabled")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", user.ID, user.Username, user.Role, state)
			}
			return nil
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}
