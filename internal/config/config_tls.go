package config

import "fmt"

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	if err := validateTLSMode(tls); err != nil {
		return err
	}

	return validateTLSVersion(tls)
}

// validateTLSMode validates the TLS mode and associated requirements
func validateTLSMode(tls TLSConfig) error {
	switch tls.Mode {
	case "disabled":
		return nil
	case "server":
		if tls.CertFile == "" || tls.KeyFile == "" {
			return fmt.Errorf("TLS certificate and key files are required for server mode")
		}
		if tls.AutoReload.Enabled && tls.AutoReload.DebounceDelay < 0 {
			return fmt.Errorf("TLS autoReload debounceDelay must not be negative")
		}
		return nil
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", tls.Mode)
	}
}

// validateTLSVersion validates the TLS version configuration
func validateTLSVersion(tls TLSConfig) error {
	switch tls.MinVersion {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}
}
