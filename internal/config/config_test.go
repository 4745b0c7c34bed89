package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   "local",
			Dimensions: 256,
			Timeout:    5 * time.Second,
		},
		Scoring: ScoringConfig{
			Workers:                4,
			BatchTimeout:           30 * time.Second,
			DefaultExperienceYears: 2,
			ProjectPenalty:         0.9,
		},
		Server: ServerConfig{
			Port:          "8080",
			MaxCandidates: 100,
			TLS:           TLSConfig{Mode: "disabled"},
		},
		Queue: QueueConfig{Workers: 1},
		App: AppConfig{
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text", "markdown"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{name: "valid local config", mutate: func(c *Config) {}},
		{
			name: "gemini without key",
			mutate: func(c *Config) {
				c.Embedding.Provider = "gemini"
				c.Embedding.Model = "text-embedding-004"
			},
			errorMsg: "embedding API key is required",
		},
		{
			name: "gemini key deferred to vault",
			mutate: func(c *Config) {
				c.Embedding.Provider = "gemini"
				c.Embedding.Model = "text-embedding-004"
				c.Vault.Enabled = true
			},
		},
		{
			name:     "unknown provider",
			mutate:   func(c *Config) { c.Embedding.Provider = "openai" },
			errorMsg: "unsupported embedding provider",
		},
		{
			name:     "zero workers",
			mutate:   func(c *Config) { c.Scoring.Workers = 0 },
			errorMsg: "scoring workers must be positive",
		},
		{
			name:     "penalty above one",
			mutate:   func(c *Config) { c.Scoring.ProjectPenalty = 1.5 },
			errorMsg: "project penalty must be in (0, 1]",
		},
		{
			name:     "penalty zero",
			mutate:   func(c *Config) { c.Scoring.ProjectPenalty = 0 },
			errorMsg: "project penalty must be in (0, 1]",
		},
		{
			name:     "unnamed skill",
			mutate:   func(c *Config) { c.Scoring.Skills = []SkillTerm{{Aliases: []string{"k8s"}}} },
			errorMsg: "skill vocabulary entry 0 has no name",
		},
		{
			name:     "unsupported default format",
			mutate:   func(c *Config) { c.App.DefaultFormat = "xml" },
			errorMsg: "invalid default format",
		},
		{
			name:     "tls server without files",
			mutate:   func(c *Config) { c.Server.TLS.Mode = "server" },
			errorMsg: "TLS configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg != "" {
				assert.ErrorContains(t, err, tt.errorMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
embedding:
  provider: local
  dimensions: 128
scoring:
  workers: 8
  skills:
    - name: kubernetes
      aliases: [k8s]
server:
  maxCandidates: 50
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("CANDIDATERANK_SERVER_PORT", "9999")

	v := viper.New()
	v.AddConfigPath(dir)

	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 128, cfg.Embedding.Dimensions)
	assert.Equal(t, 8, cfg.Scoring.Workers)
	assert.Equal(t, 0.9, cfg.Scoring.ProjectPenalty)
	assert.Equal(t, 30*time.Second, cfg.Scoring.BatchTimeout)
	require.Len(t, cfg.Scoring.Skills, 1)
	assert.Equal(t, []string{"k8s"}, cfg.Scoring.Skills[0].Aliases)
	assert.Equal(t, 50, cfg.Server.MaxCandidates)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestApplyFallbacksGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "legacy-key")

	cfg := validConfig()
	cfg.applyFallbacks()
	assert.Equal(t, "legacy-key", cfg.Embedding.APIKey)

	cfg = validConfig()
	cfg.Embedding.APIKey = "configured"
	cfg.applyFallbacks()
	assert.Equal(t, "configured", cfg.Embedding.APIKey)
}
