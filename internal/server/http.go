package server

import (
	"context"
	"time"

	"candidaterank/internal/config"
	"candidaterank/internal/embedding"
	"candidaterank/internal/errors"
	"candidaterank/internal/observability"
	"candidaterank/internal/types"
)

// Ranker ranks a batch of candidates against one job
type Ranker interface {
	Rank(ctx context.Context, job types.Job, candidates []types.Candidate) (*types.RankOutput, error)
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64
	MaxCandidates  int

	ranker        Ranker
	provider      embedding.Provider
	observability *observability.Manager
	certReloader  *CertReloader

	Logger *errors.Logger
}

// ServerConfig holds the listener settings that the CLI may override
type ServerConfig struct {
	Host      string
	Port      string
	Version   string
	TLSConfig config.TLSConfig
}

// NewServer creates a Server. The ranker and provider are shared by every
// request; om may be nil when observability is not set up.
func NewServer(appCfg *config.Config, cfg ServerConfig, ranker Ranker, provider embedding.Provider, om *observability.Manager, logger *errors.Logger) *Server {
	if om == nil {
		om, _ = observability.NewManager(config.ObservabilityConfig{}, cfg.Version, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: appCfg.Server.MaxRequestSize,
		MaxCandidates:  appCfg.Server.MaxCandidates,
		ranker:         ranker,
		provider:       provider,
		observability:  om,
		Logger:         logger,
	}
}
