package cmd

import (
	"clipwatch/api"
	"clipwatch/clipboard"
	"clipwatch/config"
	"clipwatch/core"
	"clipwatch/database"
	"clipwatch/logger"
	"clipwatch/notify"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// appRuntime holds the long-lived pieces shared by the API server and the proxy.
type appRuntime struct {
	hub      *notify.Hub
	pipeline *core.Pipeline
}

func clipboardTiers(hub *notify.Hub) []clipboard.Tier {
	cfg := config.AppConfig.Clipboard
	var tiers []clipboard.Tier
	if cfg.EnableHelper {
		tiers = append(tiers, clipboard.Tier{Name: "helper", Writer: clipboard.HelperWriter{Pages: hub}})
	}
	if cfg.EnableSystem {
		tiers = append(tiers, clipboard.Tier{Name: "system", Writer: clipboard.SystemWriter{}})
	}
	if cfg.EnablePageRelay {
		tiers = append(tiers, clipboard.Tier{Name: "page", Writer: clipboard.PageRelayWriter{Pages: hub}})
	}
	return tiers
}

func newAppRuntime(ctx context.Context) (*appRuntime, error) {
	hub := notify.NewHub(notify.WithRetry(config.AppConfig.Notify.Retries, config.AppConfig.Notify.RetryDelay))
	store := database.Store{}
	dispatcher := &core.Dispatcher{
		Rules:     store,
		History:   store,
		Settings:  store,
		Clipboard: clipboard.NewChain(clipboardTiers(hub)...),
		Notifier:  hub,
	}
	matcher := core.NewMatcher(core.WithRegexTimeout(config.AppConfig.Matching.RegexTimeout))
	pipeline, err := core.NewPipeline(ctx, store, matcher, dispatcher, config.AppConfig.Dispatch.Workers)
	if err != nil {
		hub.Close()
		return nil, err
	}
	return &appRuntime{hub: hub, pipeline: pipeline}, nil
}

func (rt *appRuntime) Close() {
	rt.pipeline.Close()
	rt.hub.Close()
}

func (rt *appRuntime) listenerConfig() core.ListenerConfig {
	return core.ListenerConfig{
		TabHeader:    config.AppConfig.Proxy.TabHeader,
		MaxBodyBytes: config.AppConfig.Proxy.MaxBodyBytes,
	}
}

// serveAPI runs the API server until ctx is cancelled.
func serveAPI(ctx context.Context, port string, rt *appRuntime) error {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           api.NewRouter(rt.hub, rt.pipeline),
		ReadHeaderTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API server listening on :%s", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server: %w", err)
	case <-ctx.Done():
		logger.Info("API server: shutdown signal received...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("API server graceful shutdown failed: %w", err)
		}
		logger.Info("API server: gracefully stopped.")
		return nil
	}
}

// pickPort prefers an explicitly set flag, then config, then the fallback.
func pickPort(flagChanged bool, flagValue, configValue, fallback string) string {
	if flagChanged && flagValue != "" {
		return flagValue
	}
	if configValue != "" {
		return configValue
	}
	return fallback
}
