package embedding

import (
	"context"
	"testing"

	"candidaterank/internal/config"
	"candidaterank/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	logger := errors.NewNopLogger()

	t.Run("local", func(t *testing.T) {
		p, err := NewProvider(config.EmbeddingConfig{Provider: "local", Dimensions: 64}, logger)
		require.NoError(t, err)
		assert.Equal(t, 64, p.Dimension())
		assert.NoError(t, Ping(context.Background(), p))
		assert.NoError(t, p.Close())
	})

	t.Run("gemini without key", func(t *testing.T) {
		_, err := NewProvider(config.EmbeddingConfig{Provider: "gemini"}, logger)
		assert.Equal(t, errors.ErrCodeMissingAPIKey, errors.CodeOf(err))
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewProvider(config.EmbeddingConfig{Provider: "word2vec"}, logger)
		assert.Equal(t, errors.ErrCodeInvalidConfig, errors.CodeOf(err))
	})
}

func TestCircuitBreakerDisabled(t *testing.T) {
	b := NewCircuitBreaker("test", config.CircuitBreakerConfig{Enabled: false}, nil)
	assert.Nil(t, b)
	assert.True(t, b.IsHealthy())
	assert.Equal(t, false, b.Stats()["enabled"])

	vec, err := b.Execute(func() ([]float32, error) { return []float32{1}, nil })
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
}

func TestCircuitBreakerStatsName(t *testing.T) {
	b := NewCircuitBreaker("gemini", config.CircuitBreakerConfig{Enabled: true, MaxRequests: 1, MinRequests: 1, FailureThreshold: 1}, nil)
	stats := b.Stats()
	assert.Equal(t, "embedding-gemini", stats["name"])
	assert.Equal(t, "closed", stats["state"])
	assert.True(t, b.IsHealthy())
}
