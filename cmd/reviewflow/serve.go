package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RealZimboGuy/reviewflow/internal/config"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow"
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				config.Set(config.SERVER_WEB_PORT, port)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return reviewflow.Start(ctx, nil)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "HTTP port (overrides RFLOW_SERVER_WEB_PORT)")
	return cmd
}
