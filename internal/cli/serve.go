package cli

import (
	"context"
	"fmt"
	"time"

	"candidaterank/internal/config"
	"candidaterank/internal/observability"
	"candidaterank/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP ranking server",
	Long: `Start an HTTP server that ranks candidate batches.

Available endpoints:
- POST /rank-candidates: Rank a batch of candidates against a job posting
- GET /health: Embedding provider and certificate health
- GET /stats: Server limits and scoring settings

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded server config
func applyServeFlags(cmd *cobra.Command, sc *config.ServerConfig) {
	overrides := map[string]*string{
		"port":      &sc.Port,
		"host":      &sc.Host,
		"tls-mode":  &sc.TLS.Mode,
		"cert-file": &sc.TLS.CertFile,
		"key-file":  &sc.TLS.KeyFile,
	}
	for name, target := range overrides {
		if !cmd.Flags().Changed(name) {
			continue
		}
		if value, err := cmd.Flags().GetString(name); err == nil {
			*target = value
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	applyServeFlags(cmd, &cfg.Server)

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	om, err := observability.NewManager(cfg.Observability, Version, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer shutdownObservability(om)

	engine, provider, err := newEngine(cfg, om.Recorder(), logger)
	if err != nil {
		return err
	}
	defer closeProvider(provider, logger)

	serverCfg := server.ServerConfig{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		Version:   Version,
		TLSConfig: cfg.Server.TLS,
	}
	return server.NewServer(cfg, serverCfg, engine, provider, om, logger).Start(cmd.Context())
}

func shutdownObservability(om *observability.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = om.Shutdown(ctx)
}
