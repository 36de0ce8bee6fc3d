package cmd

import (
	"clipwatch/config"
	"clipwatch/core"
	"clipwatch/logger"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var standaloneProxyPort string

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Manages the MITM proxy server (can be run standalone or as part of 'start')",
}

var proxyStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the MITM proxy server",
	Long: `Starts the Man-in-the-Middle proxy that evaluates your rules against intercepted traffic.
Configure your browser or system to use this proxy and trust the CA generated by 'proxy init-ca'.
Without the API server no page sessions can connect, so matches are only copied and recorded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := pickPort(cmd.Flags().Changed("port"), standaloneProxyPort, config.AppConfig.Proxy.Port, "8777")

		caCertPath := config.AppConfig.Proxy.CACertPath
		caKeyPath := config.AppConfig.Proxy.CAKeyPath
		if caCertPath == "" || caKeyPath == "" {
			return errors.New("proxy CA certificate or key path not configured; check config or run 'proxy init-ca' first")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := newAppRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		logger.ProxyInfo("Proxy using CA Cert: %s, CA Key: %s", caCertPath, caKeyPath)
		if err := core.StartProxy(ctx, ":"+port, caCertPath, caKeyPath, rt.pipeline, rt.listenerConfig()); err != nil {
			logger.ProxyError("Error running proxy: %v", err)
			return err
		}
		return nil
	},
}

var proxyInitCACmd = &cobra.Command{
	Use:   "init-ca",
	Short: "Generates the root CA certificate and key for the MITM proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		certPath := config.AppConfig.Proxy.CACertPath
		keyPath := config.AppConfig.Proxy.CAKeyPath
		if certPath == "" || keyPath == "" {
			return errors.New("CA certificate or key path is not defined in configuration")
		}

		if err := core.GenerateAndSaveCA(certPath, keyPath); err != nil {
			logger.Error("Generating CA: %v", err)
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "CA certificate saved to %s\n", certPath)
		fmt.Fprintf(out, "CA private key saved to %s\n", keyPath)
		fmt.Fprintf(out, "Please import %s into your browser/system's trust store.\n", certPath)
		return nil
	},
}

func init() {
	proxyStartCmd.Flags().StringVarP(&standaloneProxyPort, "port", "p", "8777", "Port for the proxy server to listen on (overrides config)")

	proxyCmd.AddCommand(proxyStartCmd)
	proxyCmd.AddCommand(proxyInitCACmd)
	rootCmd.AddCommand(proxyCmd)
}
