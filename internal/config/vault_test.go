package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"candidaterank/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretReader struct {
	values map[string]string
	err    error
}

func (f fakeSecretReader) GetStringSecret(path, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.values[path+"#"+key], nil
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/embedding")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseKVv2(t *testing.T) {
	t.Run("valid envelope", func(t *testing.T) {
		secret, err := parseKVv2(map[string]any{
			"data":     map[string]any{"api_key": "abc"},
			"metadata": map[string]any{"version": "3"},
		}, "secret/data/embedding")
		require.NoError(t, err)
		assert.Equal(t, int64(3), secret.Version)
		assert.Equal(t, "abc", secret.Data["api_key"])
	})

	t.Run("kv v1 shape", func(t *testing.T) {
		_, err := parseKVv2(map[string]any{"api_key": "abc"}, "secret/embedding")
		assert.ErrorContains(t, err, "missing 'data' field")
	})

	t.Run("missing version", func(t *testing.T) {
		_, err := parseKVv2(map[string]any{
			"data":     map[string]any{},
			"metadata": map[string]any{},
		}, "secret/data/embedding")
		assert.ErrorContains(t, err, "missing 'version' field")
	})
}

func TestStringField(t *testing.T) {
	secret := &VaultSecret{Data: map[string]any{"api_key": "k", "count": 3}}

	v, err := stringField(secret, "p", "api_key")
	require.NoError(t, err)
	assert.Equal(t, "k", v)

	_, err = stringField(secret, "p", "missing")
	assert.ErrorContains(t, err, "not found")

	_, err = stringField(secret, "p", "count")
	assert.ErrorContains(t, err, "is not a string")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "abcd****mnop", maskSecret("abcdefghijklmnop"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}

func TestResolveVaultToken(t *testing.T) {
	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token"})
		assert.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile})
		assert.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing token file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token/file"})
		assert.ErrorContains(t, err, "failed to read vault token file")
	})

	t.Run("no token provided", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{})
		assert.ErrorContains(t, err, "vault token is required")
	})
}

func TestLoadEmbeddingKeyFromVault(t *testing.T) {
	logger := errors.NewNopLogger()
	path := "secret/data/candidaterank/embedding"

	t.Run("overrides configured key", func(t *testing.T) {
		cfg := &Config{Embedding: EmbeddingConfig{APIKey: "from-env"}}
		cfg.Vault.Secrets.EmbeddingKey = path
		reader := fakeSecretReader{values: map[string]string{path + "#api_key": "from-vault"}}

		require.NoError(t, loadEmbeddingKeyFromVault(reader, cfg, logger))
		assert.Equal(t, "from-vault", cfg.Embedding.APIKey)
	})

	t.Run("empty value keeps configured key", func(t *testing.T) {
		cfg := &Config{Embedding: EmbeddingConfig{APIKey: "from-env"}}
		cfg.Vault.Secrets.EmbeddingKey = path

		require.NoError(t, loadEmbeddingKeyFromVault(fakeSecretReader{}, cfg, logger))
		assert.Equal(t, "from-env", cfg.Embedding.APIKey)
	})

	t.Run("no path configured", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, loadEmbeddingKeyFromVault(fakeSecretReader{err: fmt.Errorf("unreachable")}, cfg, logger))
	})

	t.Run("read failure", func(t *testing.T) {
		cfg := &Config{}
		cfg.Vault.Secrets.EmbeddingKey = path

		err := loadEmbeddingKeyFromVault(fakeSecretReader{err: fmt.Errorf("permission denied")}, cfg, logger)
		assert.ErrorContains(t, err, "permission denied")
	})
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{Enabled: false}}
	assert.NoError(t, ApplyVaultSecrets(cfg, errors.NewNopLogger()))
}
