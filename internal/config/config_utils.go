package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks and derived defaults
func (c *Config) applyFallbacks() {
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}

	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"CANDIDATERANK_EMBEDDING_APIKEY",
		"CANDIDATERANK_EMBEDDING_PROVIDER",
		"CANDIDATERANK_EMBEDDING_MODEL",
		"CANDIDATERANK_SERVER_PORT",
		"CANDIDATERANK_SERVER_HOST",
		"CANDIDATERANK_QUEUE_URL",
		"CANDIDATERANK_APP_LOGLEVEL",
		"CANDIDATERANK_VAULT_ENABLED",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitive(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Embedding Provider: %s", c.Embedding.Provider)
	log.Printf("[CONFIG] Embedding Model: %s", c.Embedding.Model)
	if c.Embedding.APIKey != "" {
		log.Println("[CONFIG] Embedding API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] Embedding API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Scoring Workers: %d, Batch Timeout: %s", c.Scoring.Workers, c.Scoring.BatchTimeout)
	log.Printf("[CONFIG] Server: %s:%s (TLS %s)", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Queue: %s", c.Queue.RequestQueue)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func isSensitive(envVar string) bool {
	lower := strings.ToLower(envVar)
	return strings.Contains(lower, "key") || strings.Contains(lower, "url")
}
