package main

import (
	"github.com/spf13/cobra"

	"github.com/RealZimboGuy/reviewflow/internal/migrations"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				target, err := reviewflow.ResolveTarget()
				if err != nil {
					return err
				}
				if err := migrations.Up(target.Dialect, target.MigrateURL); err != nil {
					return err
				}
				success(cmd, "Schema is up to date (%s)", target.Dialect)
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				target, err := reviewflow.ResolveTarget()
				if err != nil {
					return err
				}
				if err := migrations.Down(target.Dialect, target.MigrateURL); err != nil {
					return err
				}
				success(cmd, "All migrations rolled back (%s)", target.Dialect)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				target, err := reviewflow.ResolveTarget()
				if err != nil {
					return err
				}
				v, dirty, err := migrations.Version(target.Dialect, target.MigrateURL)
				if err != nil {
					return err
				}
				success(cmd, "Schema version %d (dirty: %t)", v, dirty)
				return nil
			},
		},
	)
	return cmd
}
