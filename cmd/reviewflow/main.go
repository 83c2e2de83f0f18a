package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/RealZimboGuy/reviewflow/internal/config"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow"
)

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:   "reviewflow",
		Short: "ReviewFlow - review workflow administration for your content types.",
		Long: `ReviewFlow serves the review workflow settings screen and its JSON API.

Settings come from RFLOW_* environment variables, optionally merged with a YAML
file passed via --config.

Examples:
  # Run the server on SQLite
  RFLOW_DATABASE_TYPE=SQLITE reviewflow serve

  # Create an admin user
  reviewflow user create --username admin --password secret --role super-admin

  # Load fixtures
  reviewflow seed --file seed.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				if err := config.LoadFile(cfgFile); err != nil {
					return err
				}
			}
			reviewflow.SetupLogger()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newUserCmd(), newSeedCmd(), newLicenseCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("✗")+" "+err.Error())
		os.Exit(1)
	}
}

func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓")+" "+fmt.Sprintf(format, args...))
}

func hint(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.OutOrStdout(), color.CyanString("→")+" "+fmt.Sprintf(format, args...))
}
