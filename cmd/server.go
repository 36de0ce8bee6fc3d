package cmd

import (
	"clipwatch/config"
	"clipwatch/logger"
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var standaloneServerPort string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the API server only (page sessions, rules, history, settings)",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := pickPort(cmd.Flags().Changed("port"), standaloneServerPort, config.AppConfig.Server.Port, "8778")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := newAppRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		logger.Info("--- Server Command: starting on port %s ---", port)
		return serveAPI(ctx, port, rt)
	},
}

func init() {
	serverCmd.Flags().StringVarP(&standaloneServerPort, "port", "p", "8778", "Port for the API server (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
