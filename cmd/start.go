package cmd

import (
	"clipwatch/config"
	"clipwatch/core"
	"clipwatch/logger"
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	startServerPort string
	startProxyPort  string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts all clipwatch services (API server and MITM proxy)",
	Long: `Starts both the API server and the MITM proxy concurrently.
Press Ctrl+C to gracefully shut down all services.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverPort := pickPort(cmd.Flags().Changed("server-port"), startServerPort, config.AppConfig.Server.Port, "8778")
		proxyPort := pickPort(cmd.Flags().Changed("proxy-port"), startProxyPort, config.AppConfig.Proxy.Port, "8777")
		logger.Info("Start Command: ports determined - Server: %s, Proxy: %s", serverPort, proxyPort)

		caCertPath := config.AppConfig.Proxy.CACertPath
		caKeyPath := config.AppConfig.Proxy.CAKeyPath
		if caCertPath == "" || caKeyPath == "" {
			return errors.New("proxy CA certificate or key path not configured; check config or run 'proxy init-ca' first")
		}

		sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(sigCtx)
		defer cancel()

		rt, err := newAppRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		var (
			wg       sync.WaitGroup
			errMu    sync.Mutex
			firstErr error
		)
		fail := func(err error) {
			errMu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			errMu.Unlock()
			cancel()
		}

		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := serveAPI(ctx, serverPort, rt); err != nil {
				logger.Error("Start Command(API): %v", err)
				fail(err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := core.StartProxy(ctx, ":"+proxyPort, caCertPath, caKeyPath, rt.pipeline, rt.listenerConfig()); err != nil {
				logger.ProxyError("Start Command(Proxy): %v", err)
				fail(err)
			}
		}()

		logger.Info("Start Command: All services launched. Press Ctrl+C to exit.")
		<-ctx.Done()
		logger.Info("Start Command: Initiating shutdown...")

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			logger.Info("Start Command: All services shut down.")
		case <-time.After(10 * time.Second):
			logger.Error("Start Command: Shutdown timed out. Forcing exit.")
		}

		errMu.Lock()
		defer errMu.Unlock()
		return firstErr
	},
}

func init() {
	startCmd.Flags().StringVar(&startServerPort, "server-port", "8778", "Port for the API server (overrides config)")
	startCmd.Flags().StringVar(&startProxyPort, "proxy-port", "8777", "Port for the MITM proxy server (overrides config)")
	rootCmd.AddCommand(startCmd)
}
