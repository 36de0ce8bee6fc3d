package core

import (
	"clipwatch/logger"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/elazarl/goproxy"
)

// NewProxy builds the intercepting proxy. With a CA, HTTPS CONNECT tunnels
// are decrypted so their requests reach the listeners too; without one they
// are passed through untouched.
func NewProxy(ca *tls.Certificate, sink EventSink, cfg ListenerConfig) *goproxy.ProxyHttpServer {
	proxy := goproxy.NewProxyHttpServer()
	proxy.Logger = log.New(io.Discard, "", 0)

	if ca != nil {
		tlsConfig := goproxy.TLSConfigFromCA(ca)
		proxy.OnRequest().HandleConnect(goproxy.FuncHttpsHandler(func(host string, ctx *goproxy.ProxyCtx) (*goproxy.ConnectAction, string) {
			logger.ProxyDebug("HandleConnect for session %d, host %s", ctx.Session, host)
			return &goproxy.ConnectAction{Action: goproxy.ConnectMitm, TLSConfig: tlsConfig}, host
		}))
	}

	RegisterListeners(proxy, sink, cfg)
	return proxy
}

// StartProxy loads the CA and serves the proxy on addr until ctx is cancelled.
func StartProxy(ctx context.Context, addr, caCertPath, caKeyPath string, sink EventSink, cfg ListenerConfig) error {
	ca, err := LoadCA(caCertPath, caKeyPath)
	if err != nil {
		return fmt.Errorf("could not load CA certificate/key: %w. Please run 'proxy init-ca' or check config", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewProxy(ca, sink, cfg),
		ReadHeaderTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.ProxyInfo("MITM Proxy server starting on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("proxy server: %w", err)
	case <-ctx.Done():
		logger.ProxyInfo("MITM Proxy server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("proxy shutdown: %w", err)
		}
		return nil
	}
}
