package embedding

import (
	"context"
	"fmt"

	"candidaterank/internal/config"
	"candidaterank/internal/errors"
)

// Provider maps text to a fixed-length vector. Implementations must be
// deterministic for a fixed model and safe for concurrent use.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Name() string
	Close() error
}

// healthProbe is embedded by Ping to check provider reachability
const healthProbe = "candidate ranking health probe"

// NewProvider builds the provider selected by cfg.Provider. It is called once
// at startup and the result is shared by every request.
func NewProvider(cfg config.EmbeddingConfig, logger *errors.Logger) (Provider, error) {
	logger.Debug("Initializing embedding provider",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries,
		"requests_per_second", cfg.RequestsPerSecond)

	switch cfg.Provider {
	case "gemini":
		if cfg.APIKey == "" {
			return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
				"embedding API key is required for the gemini provider", nil)
		}
		p, err := NewGeminiProvider(cfg, logger)
		if err != nil {
			return nil, errors.NewAIError(errors.ErrCodeEmbeddingFailed, "Failed to create embedding provider", err)
		}
		return p, nil
	case "local":
		return NewHashingProvider(cfg.Dimensions), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported embedding provider: %s", cfg.Provider), nil)
	}
}

// Ping embeds a fixed probe string to check that the provider answers
func Ping(ctx context.Context, p Provider) error {
	vec, err := p.Embed(ctx, healthProbe)
	if err != nil {
		return err
	}
	if len(vec) == 0 {
		return errors.NewAIError(errors.ErrCodeEmbeddingEmpty, "provider returned an empty vector", nil)
	}
	return nil
}
