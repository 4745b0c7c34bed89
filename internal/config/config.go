package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Embedding API key precedence:
// 1. Vault (if configured) - Highest priority
// 2. Config file values
// 3. Environment variables (CANDIDATERANK_EMBEDDING_APIKEY, GEMINI_API_KEY)
// 4. Default values - Lowest priority
type Config struct {
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Scoring       ScoringConfig       `mapstructure:"scoring"`
	Server        ServerConfig        `mapstructure:"server"`
	Queue         QueueConfig         `mapstructure:"queue"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider          string               `mapstructure:"provider"` // gemini, local
	Model             string               `mapstructure:"model"`
	APIKey            string               `mapstructure:"apiKey"`
	Timeout           time.Duration        `mapstructure:"timeout"`
	MaxRetries        int                  `mapstructure:"maxRetries"`
	Dimensions        int                  `mapstructure:"dimensions"`
	TaskType          string               `mapstructure:"taskType"`
	RequestsPerSecond float64              `mapstructure:"requestsPerSecond"` // 0 disables throttling
	Burst             int                  `mapstructure:"burst"`
	CircuitBreaker    CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Min requests before evaluating failure ratio
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio that trips the breaker
}

// ScoringConfig holds ranking engine settings
type ScoringConfig struct {
	Workers                int           `mapstructure:"workers"`
	BatchTimeout           time.Duration `mapstructure:"batchTimeout"`
	DefaultExperienceYears int           `mapstructure:"defaultExperienceYears"`
	ProjectPenalty         float64       `mapstructure:"projectPenalty"`
	Skills                 []SkillTerm   `mapstructure:"skills"` // empty means built-in vocabulary
}

// SkillTerm is one vocabulary entry used to find skills in job descriptions
type SkillTerm struct {
	Name    string   `mapstructure:"name"`
	Aliases []string `mapstructure:"aliases"`
	Exact   []string `mapstructure:"exact"` // matched case-sensitively as written
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	MaxRequestSize int64         `mapstructure:"maxRequestSize"`
	MaxCandidates  int           `mapstructure:"maxCandidates"`

	TLS TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Mode       string           `mapstructure:"mode"`       // TLS mode: "disabled", "server"
	CertFile   string           `mapstructure:"certFile"`   // Server certificate file (PEM)
	KeyFile    string           `mapstructure:"keyFile"`    // Server private key file (PEM)
	MinVersion string           `mapstructure:"minVersion"` // Minimum TLS version: "1.2", "1.3"
	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig controls reloading the certificate pair when the files change
type AutoReloadConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// QueueConfig holds the AMQP worker configuration
type QueueConfig struct {
	URL          string `mapstructure:"url"`
	RequestQueue string `mapstructure:"requestQueue"`
	Workers      int    `mapstructure:"workers"`
	Prefetch     int    `mapstructure:"prefetch"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	ServiceName     string            `mapstructure:"serviceName"`
	ServiceVersion  string            `mapstructure:"serviceVersion"`
	ServiceInstance string            `mapstructure:"serviceInstance"`
	ConsoleOutput   bool              `mapstructure:"consoleOutput"`
	SampleRate      float64           `mapstructure:"sampleRate"`
	Metrics         MetricsConfig     `mapstructure:"metrics"`
	Prometheus      PrometheusConfig  `mapstructure:"prometheus"`
	OTLP            OTLPConfig        `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig `mapstructure:"healthCheck"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	setDefaults(v)

	v.SetEnvPrefix("CANDIDATERANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/candidaterank/")
	v.AddConfigPath("$HOME/.candidaterank")
	v.AddConfigPath(".")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateEmbedding(); err != nil {
		return err
	}

	if c.Scoring.Workers <= 0 {
		return fmt.Errorf("scoring workers must be positive")
	}
	if c.Scoring.BatchTimeout <= 0 {
		return fmt.Errorf("scoring batch timeout must be positive")
	}
	if c.Scoring.DefaultExperienceYears <= 0 {
		return fmt.Errorf("default experience years must be positive")
	}
	if c.Scoring.ProjectPenalty <= 0 || c.Scoring.ProjectPenalty > 1 {
		return fmt.Errorf("project penalty must be in (0, 1], got %v", c.Scoring.ProjectPenalty)
	}
	for i, term := range c.Scoring.Skills {
		if strings.TrimSpace(term.Name) == "" {
			return fmt.Errorf("skill vocabulary entry %d has no name", i)
		}
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.MaxCandidates <= 0 {
		return fmt.Errorf("server maxCandidates must be positive")
	}

	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue workers must be positive")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

func (c *Config) validateEmbedding() error {
	e := c.Embedding
	switch e.Provider {
	case "gemini":
		if e.APIKey == "" && !c.Vault.Enabled {
			return fmt.Errorf("embedding API key is required for the gemini provider (set CANDIDATERANK_EMBEDDING_APIKEY)")
		}
		if e.Model == "" {
			return fmt.Errorf("embedding model is required for the gemini provider")
		}
	case "local":
		if e.Dimensions <= 0 {
			return fmt.Errorf("embedding dimensions must be positive for the local provider")
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s (must be 'gemini' or 'local')", e.Provider)
	}

	if e.Timeout <= 0 {
		return fmt.Errorf("embedding timeout must be positive")
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("embedding maxRetries must not be negative")
	}
	if e.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding requestsPerSecond must not be negative")
	}
	return nil
}
