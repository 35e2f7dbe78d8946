/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/enod/pkg/api"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Serve the series in the data directory over a REST API.

The API key is read from the config file; run "enod config init" first.
Prometheus metrics are exposed at /metrics.

Examples:
  enod serve
  enod serve --port 9000 --bind 0.0.0.0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			if cmd.Flags().Changed("bind") {
				a.cfg.Bind = bind
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			manager, err := a.openManager()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.log.WithField("data_dir", a.cfg.DataDir).Info("serving series")
			return api.StartServer(ctx, manager, api.ServerConfig{
				Bind:   a.cfg.Bind,
				Port:   a.cfg.Port,
				APIKey: a.cfg.Security.APIKey,
			}, a.log)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().StringVar(&bind, "bind", "127.0.0.1", "Address to bind server to")
	return cmd
}
