package scoring

import (
	"context"
	"testing"

	"candidaterank/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.5},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.5},
		{"missing job text", nil, []float32{1, 0}, 0},
		{"missing candidate text", []float32{1, 0}, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCompareDimensionMismatch(t *testing.T) {
	_, err := Compare([]float32{1, 0}, []float32{1, 0, 0})
	assert.ErrorContains(t, err, "dimension mismatch")
}

func TestSimilarityScoreSkipsEmptyText(t *testing.T) {
	p := newStubProvider()
	s := NewSimilarityScorer(p)

	score, err := s.Score(context.Background(), "", "Skills: Go")
	require.NoError(t, err)
	assert.Zero(t, score)

	score, err = s.Score(context.Background(), "Go developer", "   ")
	require.NoError(t, err)
	assert.Zero(t, score)

	assert.Equal(t, int32(0), p.calls.Load())
}

func TestSimilarityScoreRange(t *testing.T) {
	s := NewSimilarityScorer(newStubProvider())

	score, err := s.Score(context.Background(), "Go backend developer", "Skills: Go, PostgreSQL")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)

	same, err := s.Score(context.Background(), "Skills: Go", "Skills: Go")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same, 1e-6)
}

func TestProfileText(t *testing.T) {
	tests := []struct {
		name      string
		candidate types.Candidate
		want      string
	}{
		{
			name:      "skills and projects",
			candidate: types.Candidate{Skills: []string{"Python", "SQL"}, Projects: []string{"ETL", "Dashboards"}},
			want:      "Skills: Python, SQL. Projects: ETL, Dashboards",
		},
		{
			name:      "skills only",
			candidate: types.Candidate{Skills: []string{"Python"}},
			want:      "Skills: Python",
		},
		{
			name:      "projects only",
			candidate: types.Candidate{Projects: []string{"Compiler"}},
			want:      "Projects: Compiler",
		},
		{
			name:      "nothing",
			candidate: types.Candidate{ExperienceYears: 4},
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProfileText(tt.candidate))
		})
	}
}
