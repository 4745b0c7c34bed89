package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"

	"candidaterank/internal/embedding"
	"candidaterank/internal/types"
)

// breakerReporter is implemented by providers that guard calls with a circuit breaker
type breakerReporter interface {
	BreakerStats() map[string]any
}

func (s *Server) getHealthCheckTimeout() time.Duration {
	if t := s.AppConfig.Observability.HealthCheck.Timeout; t > 0 {
		return t
	}
	return 10 * time.Second
}

// healthHandler reports service status and embedding provider reachability
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":  "healthy",
		"service": "candidaterank",
		"version": s.Version,
	}
	healthy := true

	providerStatus := s.checkProviderHealth(r.Context())
	response["embedding"] = providerStatus
	if available, _ := providerStatus["available"].(bool); !available {
		healthy = false
	}

	if s.certReloader != nil {
		certStatus := s.certReloader.Status()
		response["certificates"] = certStatus
		if certHealthy, _ := certStatus["healthy"].(bool); !certHealthy {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkProviderHealth embeds a probe string within the health check timeout
func (s *Server) checkProviderHealth(ctx context.Context) map[string]any {
	ctx, cancel := context.WithTimeout(ctx, s.getHealthCheckTimeout())
	defer cancel()

	status := map[string]any{
		"provider":  s.provider.Name(),
		"dimension": s.provider.Dimension(),
	}

	start := time.Now()
	if err := embedding.Ping(ctx, s.provider); err != nil {
		status["available"] = false
		status["error"] = err.Error()
	} else {
		status["available"] = true
		status["latency_ms"] = time.Since(start).Milliseconds()
	}

	if br, ok := s.provider.(breakerReporter); ok {
		status["circuit_breaker"] = br.BreakerStats()
	}
	return status
}

// statsHandler reports version, limits and worker settings
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	scoring := s.AppConfig.Scoring
	response := map[string]any{
		"service": "candidaterank",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_candidates":         s.MaxCandidates,
			"tls_mode":               s.TLSConfig.Mode,
		},
		"scoring": map[string]any{
			"workers":                  scoring.Workers,
			"batch_timeout":            scoring.BatchTimeout.String(),
			"default_experience_years": scoring.DefaultExperienceYears,
			"project_penalty":          scoring.ProjectPenalty,
			"custom_vocabulary_terms":  len(scoring.Skills),
		},
		"embedding": map[string]any{
			"provider":  s.provider.Name(),
			"dimension": s.provider.Dimension(),
		},
	}
	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, types.ErrorResponse{
		Error:   error,
		Message: message,
	})
}
