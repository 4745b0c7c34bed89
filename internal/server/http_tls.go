package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
)

// configureTLS sets up TLS configuration based on the mode
func (s *Server) configureTLS(ctx context.Context, httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		s.Logger.Info("TLS disabled, serving plain HTTP", "address", httpServer.Addr)
		return nil
	case "server":
		return s.configureServerTLS(ctx, httpServer)
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", s.TLSConfig.Mode)
	}
}

// configureServerTLS loads the key pair and, when enabled, watches it for changes
func (s *Server) configureServerTLS(ctx context.Context, httpServer *http.Server) error {
	reloader, err := NewCertReloader(
		s.TLSConfig.CertFile,
		s.TLSConfig.KeyFile,
		s.TLSConfig.AutoReload.DebounceDelay,
		s.observability.Metrics(),
		s.Logger,
	)
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}

	if s.TLSConfig.AutoReload.Enabled {
		if err := reloader.Watch(ctx); err != nil {
			return fmt.Errorf("failed to start certificate watcher: %w", err)
		}
	}
	s.certReloader = reloader

	httpServer.TLSConfig = &tls.Config{
		MinVersion:     minTLSVersion(s.TLSConfig.MinVersion),
		GetCertificate: reloader.GetCertificate,
	}

	s.Logger.Info("TLS enabled",
		"address", httpServer.Addr,
		"min_version", s.TLSConfig.MinVersion,
		"auto_reload", s.TLSConfig.AutoReload.Enabled)
	return nil
}

func minTLSVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}
