package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

func newLicenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "license",
		Short: "Inspect and override plan limits",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <entitlement> [value]",
			Short: "Set a review-workflows limit; omit the value to remove the override",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				value := ""
				if len(args) == 2 {
					value = args[1]
				}
				db, err := reviewflow.OpenDatabase()
				if err != nil {
					return err
				}
				defer db.Close()
				app := reviewflow.NewApp(db, core.NewRealClock())
				if err := app.License.SetLimit(cmd.Context(), domain.FeatureReviewWorkflows, args[0], value); err != nil {
					return err
				}
				if value == "" {
					success(cmd, "Removed override for %s", color.YellowString(args[0]))
					return nil
				}
				success(cmd, "Set %s to %s", color.YellowString(args[0]), value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective review-workflows limits and current usage",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := reviewflow.OpenDatabase()
				if err != nil {
					return err
				}
				defer db.Close()
				app := reviewflow.NewApp(db, core.NewRealClock())
				limits, err := app.License.FeatureLimits(cmd.Context(), domain.FeatureReviewWorkflows)
				if err != nil {
					return err
				}
				inUse, err := app.Workflows.Count(cmd.Context())
				if err != nil {
					return err
				}
				for _, entitlement := range []string{domain.EntitlementWorkflows, domain.EntitlementStagesPerWorkflow} {
					limit := limits.Get(entitlement)
					shown := limit.String()
					if !limit.Bounded() {
						shown = color.CyanString("unlimited")
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", entitlement, shown)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "workflowsInUse\t%d\n", inUse)
				return nil
			},
		},
	)
	return cmd
}
