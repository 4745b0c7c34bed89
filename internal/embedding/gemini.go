package embedding

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"candidaterank/internal/config"
	"candidaterank/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// maxBackoff caps the delay between retries
const maxBackoff = 10 * time.Second

// GeminiProvider embeds text with the Gemini embedding API
type GeminiProvider struct {
	client     *genai.Client
	model      string
	taskType   string
	dimension  int
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration

	limiter *rate.Limiter
	breaker *CircuitBreaker
	logger  *errors.Logger

	// embed performs one API call; replaced in tests
	embed func(ctx context.Context, text string) ([]float32, error)
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates the Gemini client and its call guards
func NewGeminiProvider(cfg config.EmbeddingConfig, logger *errors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := newGeminiProvider(cfg, logger)
	g.client = client
	g.embed = g.embedContent
	return g, nil
}

func newGeminiProvider(cfg config.EmbeddingConfig, logger *errors.Logger) *GeminiProvider {
	// rate.Inf disables throttling
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)

	return &GeminiProvider{
		model:      cfg.Model,
		taskType:   cfg.TaskType,
		dimension:  cfg.Dimensions,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		baseDelay:  500 * time.Millisecond,
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    NewCircuitBreaker("gemini", cfg.CircuitBreaker, logger),
		logger:     logger,
	}
}

// Embed returns the embedding of text. Calls are throttled, retried on
// transient failures and guarded by the circuit breaker.
func (g *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := otel.Tracer("candidaterank.embedding").Start(ctx, "embedding.embed")
	defer span.End()
	span.SetAttributes(
		attribute.String("embedding.provider", "gemini"),
		attribute.String("embedding.model", g.model),
		attribute.Int("input.length", len(text)),
	)

	vec, err := g.breaker.Execute(func() ([]float32, error) {
		return g.executeWithRetry(ctx, text)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		if _, ok := errors.AsAppError(err); ok {
			return nil, err
		}
		return nil, errors.NewAIError(errors.ErrCodeEmbeddingFailed, "Failed to embed text", err)
	}

	span.SetAttributes(attribute.Int("embedding.dimension", len(vec)))
	return vec, nil
}

// executeWithRetry runs one embedding with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying embedding request",
				"attempt", attempt,
				"max_retries", g.maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(backoffDelay(g.baseDelay, attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		vec, err := g.embed(callCtx, text)
		cancel()
		if err == nil {
			if len(vec) == 0 {
				return nil, errors.NewAIError(errors.ErrCodeEmbeddingEmpty, "Gemini returned an empty embedding", nil)
			}
			return vec, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Embedding error is not retryable", "error", err.Error())
			break
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", g.maxRetries+1, lastErr)
}

func (g *GeminiProvider) embedContent(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{TaskType: g.taskType}
	if g.dimension > 0 {
		dim := int32(g.dimension)
		cfg.OutputDimensionality = &dim
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, nil
	}
	return resp.Embeddings[0].Values, nil
}

// backoffDelay is base * 2^(attempt-1) plus up to 10% jitter, capped at maxBackoff
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt-1))) * base
	if jitterMax := int64(float64(delay) * 0.1); jitterMax > 0 {
		if j, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			delay += time.Duration(j.Int64())
		}
	}
	return min(delay, maxBackoff)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}

	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Dimension returns the requested output dimensionality, or 0 for the model default
func (g *GeminiProvider) Dimension() int { return g.dimension }

// Name identifies the provider and model
func (g *GeminiProvider) Name() string { return "gemini/" + g.model }

// BreakerStats exposes circuit breaker statistics for /stats
func (g *GeminiProvider) BreakerStats() map[string]any { return g.breaker.Stats() }

// Close implements Provider. The genai client holds no resources to release.
func (g *GeminiProvider) Close() error { return nil }
