package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"candidaterank/internal/embedding"
	"candidaterank/internal/types"
)

// SimilarityScorer compares job text with a candidate profile through an
// embedding provider
type SimilarityScorer struct {
	provider embedding.Provider
}

// NewSimilarityScorer wraps a shared, read-only provider
func NewSimilarityScorer(provider embedding.Provider) *SimilarityScorer {
	return &SimilarityScorer{provider: provider}
}

// Score returns the rescaled cosine similarity of the two texts in [0, 1].
// Empty text on either side scores 0 without calling the provider.
func (s *SimilarityScorer) Score(ctx context.Context, jobText, candidateText string) (float64, error) {
	if strings.TrimSpace(jobText) == "" || strings.TrimSpace(candidateText) == "" {
		return 0, nil
	}

	jobVec, err := s.Embed(ctx, jobText)
	if err != nil {
		return 0, err
	}
	candidateVec, err := s.Embed(ctx, candidateText)
	if err != nil {
		return 0, err
	}
	return Compare(jobVec, candidateVec)
}

// Embed returns the vector for text, or nil for blank text
func (s *SimilarityScorer) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return s.provider.Embed(ctx, text)
}

// Compare rescales the cosine of two vectors from [-1, 1] to [0, 1]. A nil
// vector stands for empty text and scores 0.
func Compare(a, b []float32) (float64, error) {
	if a == nil || b == nil {
		return 0, nil
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}
	return clamp01((CosineSimilarity(a, b) + 1) / 2), nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector has zero length or norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ProfileText is the text embedded for a candidate: skills, then projects.
// A candidate with neither has an empty profile.
func ProfileText(c types.Candidate) string {
	var parts []string
	if len(c.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(c.Skills, ", "))
	}
	if len(c.Projects) > 0 {
		parts = append(parts, "Projects: "+strings.Join(c.Projects, ", "))
	}
	return strings.Join(parts, ". ")
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
