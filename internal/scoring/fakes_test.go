package scoring

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"candidaterank/internal/embedding"
)

// stubProvider wraps the hashing provider with failure, delay and call counting hooks
type stubProvider struct {
	inner *embedding.HashingProvider
	calls atomic.Int32

	failOn  string // texts containing this fail
	panicOn string // texts containing this panic
	blockOn string // texts containing this block until ctx is done
}

func newStubProvider() *stubProvider {
	return &stubProvider{inner: embedding.NewHashingProvider(256)}
}

func (s *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls.Add(1)
	switch {
	case s.failOn != "" && strings.Contains(text, s.failOn):
		return nil, fmt.Errorf("provider unavailable")
	case s.panicOn != "" && strings.Contains(text, s.panicOn):
		panic("corrupt model state")
	case s.blockOn != "" && strings.Contains(text, s.blockOn):
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.inner.Embed(ctx, text)
}

func (s *stubProvider) Dimension() int { return s.inner.Dimension() }
func (s *stubProvider) Name() string   { return "stub" }
func (s *stubProvider) Close() error   { return nil }

// constantProvider returns the same vector for every text
type constantProvider struct{}

func (constantProvider) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (constantProvider) Dimension() int { return 3 }
func (constantProvider) Name() string   { return "constant" }
func (constantProvider) Close() error   { return nil }

// wrongDimensionProvider returns vectors whose size depends on the text
type wrongDimensionProvider struct{}

func (wrongDimensionProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.HasPrefix(text, "Skills") {
		return []float32{1, 0}, nil
	}
	return []float32{1, 0, 0}, nil
}
func (wrongDimensionProvider) Dimension() int { return 3 }
func (wrongDimensionProvider) Name() string   { return "wrong-dimension" }
func (wrongDimensionProvider) Close() error   { return nil }

type recordedBatch struct {
	outcome    string
	candidates int
}

// memRecorder keeps every measurement in memory
type memRecorder struct {
	mu       sync.Mutex
	batches  []recordedBatch
	scores   []float64
	failures []string
}

func (m *memRecorder) RecordBatch(_ context.Context, outcome string, candidates int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, recordedBatch{outcome: outcome, candidates: candidates})
}

func (m *memRecorder) RecordCandidate(_ context.Context, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, score)
}

func (m *memRecorder) RecordFailure(_ context.Context, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, code)
}
