package main

import (
	"github.com/spf13/cobra"

	"github.com/RealZimboGuy/reviewflow/internal/seed"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
)

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load content types, workflows, users, grants and license limits from YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(file)
			if err != nil {
				return err
			}
			db, err := reviewflow.OpenDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			res, err := reviewflow.NewApp(db, core.NewRealClock()).Seeder().Apply(cmd.Context(), f)
			if err != nil {
				return err
			}
			success(cmd, "Seeded %d content types, %d workflows, %d users, %d grants, %d limits",
				res.ContentTypes, res.Workflows, res.Users, res.Grants, res.Limits)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "seed file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
