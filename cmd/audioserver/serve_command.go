package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audioserver/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, logPath, err := ctx.serverLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{Bind: bind, Logger: logger, LogPath: logPath})
		},
	}
	cmd.Flags().StringVarP(&bind, "bind", "b", "", "Listen address (overrides server.bind)")
	return cmd
}
