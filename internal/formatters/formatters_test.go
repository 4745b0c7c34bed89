package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"candidaterank/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResponse() types.RankResponse {
	return types.RankResponse{
		BatchID:         "b-1",
		JobTitle:        "Data Engineer",
		TotalCandidates: 3,
		RankedCandidates: []types.RankedCandidate{
			{CandidateID: "alice", FinalScore: 81.25, JobDescScore: 80, JobTitleScore: 70, SkillScore: 100, ExperienceScore: 90, ProjectPenalty: 1},
			{CandidateID: "bob|ops", FinalScore: 55.5, JobDescScore: 60, JobTitleScore: 50, SkillScore: 50, ExperienceScore: 50, ProjectPenalty: 0.9},
		},
		Failures: []types.CandidateFailure{{CandidateID: "carol", Index: 2, Code: "BATCH_DEADLINE_EXCEEDED", Reason: "not scored before the batch deadline"}},
		Partial:  true,
	}
}

func TestFormatRankResponse(t *testing.T) {
	tests := []struct {
		format   string
		contains []string
	}{
		{"text", []string{"=== CANDIDATE RANKING ===", "Job: Data Engineer", "Ranked 2 of 3", "partial", "alice", "81.25", "=== NOT RANKED ===", "carol (input #2)"}},
		{"markdown", []string{"# Candidate Ranking: Data Engineer", "| 1 | alice | 81.25 |", `bob\|ops`, "## Not Ranked", "Partial result"}},
		{"json", []string{`"batch_id": "b-1"`, `"candidate_id": "alice"`}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := GlobalRegistry.Format(sampleResponse(), tt.format)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestFormatTextOrdersByRank(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleResponse(), "text")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "alice"), strings.Index(out, "bob|ops"))
}

func TestFormatAcceptsPointer(t *testing.T) {
	resp := sampleResponse()
	out, err := GlobalRegistry.Format(&resp, "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
}

func TestFormatJSONRoundTrips(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleResponse(), "json")
	require.NoError(t, err)

	var decoded types.RankResponse
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, sampleResponse(), decoded)
}

func TestFormatUnknown(t *testing.T) {
	_, err := GlobalRegistry.Format(sampleResponse(), "xml")
	assert.Error(t, err)

	_, err = (&RankTextFormatter{}).Format("not a ranking")
	assert.Error(t, err)
}

func TestSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "text"}, GlobalRegistry.GetSupportedFormats())
}
