package cmd

import (
	"context"

	"github.com/Daskott/favdial/server"
	"github.com/spf13/cobra"
)

func createServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start a favdial server",
		Long: `The favdial server exposes the favorites over an HTTP API, and runs the periodic
avatar sweep and bucket backups set in the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				server.Start(server.Options{
					Config:  svc.config,
					Manager: svc.manager,
					Adapter: svc.adapter,
					Backup:  svc.backup,
					Logger:  svc.logg,
				})
				return nil
			})
		},
	}
}
